package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/samber/oops"
)

// SQLiteSessionStore keeps sessions in a SQLite database. The default DSN is
// a shared in-memory database, so sessions still vanish on restart.
type SQLiteSessionStore struct {
	db  *sql.DB
	ttl time.Duration

	getStmt    *sql.Stmt
	putStmt    *sql.Stmt
	deleteStmt *sql.Stmt
}

// NewSQLiteSessionStore opens (or creates) the database at path, applies
// schema migrations and prepares statements. A ttl of zero never expires.
func NewSQLiteSessionStore(path string, ttl time.Duration) (*SQLiteSessionStore, error) {
	dsn := path
	if !strings.HasPrefix(path, "file:") {
		// Ensure directory exists so first-run succeeds.
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, oops.Code("SESSION_STORE_OPEN").Wrapf(err, "create db dir")
			}
		}
		dsn = fmt.Sprintf("file:%s?_busy_timeout=5000", path)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, oops.Code("SESSION_STORE_OPEN").Wrapf(err, "open sqlite")
	}
	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	s := &SQLiteSessionStore{db: db, ttl: ttl}
	if err := s.prepareStatements(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Close releases prepared statements and closes the DB.
func (s *SQLiteSessionStore) Close() error {
	for _, stmt := range []*sql.Stmt{s.getStmt, s.putStmt, s.deleteStmt} {
		if stmt != nil {
			stmt.Close()
		}
	}
	return s.db.Close()
}

// ---------------------------------------------------------------------------
// Schema migration
// ---------------------------------------------------------------------------

const schemaVersion = 1

func applyMigrations(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);`); err != nil {
		return oops.Code("SESSION_STORE_OPEN").Wrapf(err, "create meta table")
	}

	var current int
	_ = db.QueryRow(`SELECT value FROM meta WHERE key='schema_version';`).Scan(&current)
	if current >= schemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return oops.Code("SESSION_STORE_OPEN").Wrap(err)
	}
	defer tx.Rollback()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
            token TEXT PRIMARY KEY,
            username TEXT NOT NULL DEFAULT '',
            expires_at DATETIME
        );`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_expires ON sessions(expires_at);`,
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return oops.Code("SESSION_STORE_OPEN").Wrapf(err, "apply migration")
		}
	}
	if _, err := tx.Exec(`INSERT INTO meta(key,value) VALUES('schema_version',?)
        ON CONFLICT(key) DO UPDATE SET value=excluded.value;`, schemaVersion); err != nil {
		return oops.Code("SESSION_STORE_OPEN").Wrapf(err, "record schema version")
	}
	return tx.Commit()
}

// ---------------------------------------------------------------------------
// Prepared statements
// ---------------------------------------------------------------------------

func (s *SQLiteSessionStore) prepareStatements() error {
	var err error
	if s.getStmt, err = s.db.Prepare(`SELECT username, expires_at FROM sessions WHERE token=?`); err != nil {
		return oops.Code("SESSION_STORE_OPEN").Wrap(err)
	}
	if s.putStmt, err = s.db.Prepare(`INSERT INTO sessions(token,username,expires_at) VALUES(?,?,?)
        ON CONFLICT(token) DO UPDATE SET username=excluded.username, expires_at=excluded.expires_at`); err != nil {
		return oops.Code("SESSION_STORE_OPEN").Wrap(err)
	}
	if s.deleteStmt, err = s.db.Prepare(`DELETE FROM sessions WHERE token=?`); err != nil {
		return oops.Code("SESSION_STORE_OPEN").Wrap(err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// SessionStore
// ---------------------------------------------------------------------------

func (s *SQLiteSessionStore) Get(ctx context.Context, token string) (Session, error) {
	var (
		sess    Session
		expires sql.NullTime
	)
	err := s.getStmt.QueryRowContext(ctx, token).Scan(&sess.Username, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, nil
	}
	if err != nil {
		return Session{}, oops.Code("SESSION_STORE_GET").Wrap(err)
	}
	if expires.Valid && !time.Now().Before(expires.Time) {
		return Session{}, nil
	}
	return sess, nil
}

func (s *SQLiteSessionStore) Put(ctx context.Context, token string, sess Session) error {
	var expires sql.NullTime
	if s.ttl > 0 {
		expires = sql.NullTime{Time: time.Now().Add(s.ttl).UTC(), Valid: true}
	}
	if _, err := s.putStmt.ExecContext(ctx, token, sess.Username, expires); err != nil {
		return oops.Code("SESSION_STORE_PUT").Wrap(err)
	}
	return nil
}

func (s *SQLiteSessionStore) Delete(ctx context.Context, token string) error {
	if _, err := s.deleteStmt.ExecContext(ctx, token); err != nil {
		return oops.Code("SESSION_STORE_DELETE").Wrap(err)
	}
	return nil
}

// PurgeExpired deletes expired sessions and returns how many were removed.
func (s *SQLiteSessionStore) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at IS NOT NULL AND expires_at <= ?`, time.Now().UTC())
	if err != nil {
		return 0, oops.Code("SESSION_STORE_DELETE").Wrap(err)
	}
	return res.RowsAffected()
}
