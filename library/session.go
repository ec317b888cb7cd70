package library

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"library-catalog/logging"
)

// SessionStore persists sessions by opaque token.
// Get on an unknown token returns a zero (anonymous) Session and no error.
// Delete on an unknown token is not an error.
type SessionStore interface {
	Get(ctx context.Context, token string) (Session, error)
	Put(ctx context.Context, token string, s Session) error
	Delete(ctx context.Context, token string) error
}

// NewSessionToken returns a fresh opaque session token.
func NewSessionToken() string {
	return uuid.NewString()
}

// MemorySessionStore keeps sessions in-process.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

// NewMemorySessionStore initializes an empty in-memory store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]Session)}
}

func (m *MemorySessionStore) Get(_ context.Context, token string) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[token], nil
}

func (m *MemorySessionStore) Put(_ context.Context, token string, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[token] = s
	return nil
}

func (m *MemorySessionStore) Delete(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token)
	return nil
}

// SessionAuth tracks which username, if any, is logged in on a session token.
// It does not check credentials; callers authenticate through UserDirectory first.
type SessionAuth struct {
	store  SessionStore
	logger *slog.Logger
}

// NewSessionAuth builds a SessionAuth over store.
func NewSessionAuth(store SessionStore, logger *slog.Logger) *SessionAuth {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionAuth{store: store, logger: logger}
}

// Login binds username to the session, replacing whatever was there.
// The only error is a failed store write.
func (a *SessionAuth) Login(ctx context.Context, token, username string) error {
	return a.store.Put(ctx, token, Session{Username: strings.TrimSpace(username)})
}

// Logout erases the session. It is idempotent, and a failed delete is only
// logged because the session is unusable either way.
func (a *SessionAuth) Logout(ctx context.Context, token string) {
	if token == "" {
		return
	}
	if err := a.store.Delete(ctx, token); err != nil {
		logging.LogWarn(ctx, a.logger, "session discard failed", err)
	}
}

// CurrentUser returns the logged-in username for token.
// Store read failures are logged and read as anonymous.
func (a *SessionAuth) CurrentUser(ctx context.Context, token string) (string, bool) {
	if token == "" {
		return "", false
	}
	s, err := a.store.Get(ctx, token)
	if err != nil {
		logging.LogWarn(ctx, a.logger, "session lookup failed", err)
		return "", false
	}
	return s.Username, s.Authenticated()
}
