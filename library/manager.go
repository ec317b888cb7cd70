package library

import (
	"context"
	"io"
	"log/slog"
)

// Recorder receives catalog and auth events, typically for metrics.
type Recorder interface {
	BookOperation(op string, found bool)
	AuthEvent(event, result string)
}

type nopRecorder struct{}

func (nopRecorder) BookOperation(string, bool) {}
func (nopRecorder) AuthEvent(string, string)   {}

// LibraryManager is a thin façade over the catalog, the user directory and
// session auth, keeping HTTP handlers simple.
type LibraryManager struct {
	Catalog  *BookCatalog
	Users    *UserDirectory
	Sessions *SessionAuth

	store    SessionStore
	recorder Recorder
	logger   *slog.Logger
}

// Options configures NewLibraryManager. Zero values select the in-memory
// session store, bcrypt, slog.Default and no metrics.
type Options struct {
	SessionStore SessionStore
	Hasher       PasswordHasher
	Recorder     Recorder
	Logger       *slog.Logger
}

// NewLibraryManager wires empty stores together.
func NewLibraryManager(opts Options) *LibraryManager {
	if opts.SessionStore == nil {
		opts.SessionStore = NewMemorySessionStore()
	}
	if opts.Recorder == nil {
		opts.Recorder = nopRecorder{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &LibraryManager{
		Catalog:  NewBookCatalog(),
		Users:    NewUserDirectory(opts.Hasher),
		Sessions: NewSessionAuth(opts.SessionStore, opts.Logger),
		store:    opts.SessionStore,
		recorder: opts.Recorder,
		logger:   opts.Logger,
	}
}

// Close closes the session store when it holds external resources.
func (lm *LibraryManager) Close() error {
	if c, ok := lm.store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// ------------------ Book helpers ------------------

func (lm *LibraryManager) AddBook(title, author, genre, year string) Book {
	b := lm.Catalog.Create(title, author, genre, year)
	lm.recorder.BookOperation("create", true)
	lm.logger.Debug("book created", "book_id", b.ID)
	return b
}

func (lm *LibraryManager) ListBooks(filter string) []Book { return lm.Catalog.List(filter) }

// GetBook resolves a raw id as it arrives from a URL.
func (lm *LibraryManager) GetBook(rawID string) (Book, bool) {
	id, ok := ParseID(rawID)
	if !ok {
		return Book{}, false
	}
	return lm.Catalog.FindByID(id)
}

// UpdateBook updates the book with rawID. Unknown or malformed ids are a no-op.
func (lm *LibraryManager) UpdateBook(rawID, title, author, genre, year string) bool {
	id, ok := ParseID(rawID)
	found := ok && lm.Catalog.Update(id, title, author, genre, year)
	lm.recorder.BookOperation("update", found)
	return found
}

// DeleteBook deletes the book with rawID. Unknown or malformed ids are a no-op.
func (lm *LibraryManager) DeleteBook(rawID string) bool {
	id, ok := ParseID(rawID)
	found := ok && lm.Catalog.Delete(id)
	lm.recorder.BookOperation("delete", found)
	return found
}

// Seed creates every seed book in order and returns how many were added.
func (lm *LibraryManager) Seed(books []SeedBook) int {
	for _, sb := range books {
		lm.AddBook(sb.Title, sb.Author, sb.Genre, sb.Year)
	}
	return len(books)
}

// ------------------ Account helpers ------------------

// Register creates an account and logs it in on the session token.
func (lm *LibraryManager) Register(ctx context.Context, token, username, password string) (User, error) {
	u, err := lm.Users.Register(username, password)
	lm.recorder.AuthEvent("register", resultOf(err))
	if err != nil {
		return User{}, err
	}
	if err := lm.Sessions.Login(ctx, token, u.Username); err != nil {
		return u, err
	}
	return u, nil
}

// Login checks credentials and binds the user to the session token.
func (lm *LibraryManager) Login(ctx context.Context, token, username, password string) (User, error) {
	u, err := lm.Users.Authenticate(username, password)
	if err == nil {
		err = lm.Sessions.Login(ctx, token, u.Username)
	}
	lm.recorder.AuthEvent("login", resultOf(err))
	if err != nil {
		return User{}, err
	}
	return u, nil
}

// Logout clears the session. It never fails.
func (lm *LibraryManager) Logout(ctx context.Context, token string) {
	lm.Sessions.Logout(ctx, token)
	lm.recorder.AuthEvent("logout", "ok")
}

func (lm *LibraryManager) CurrentUser(ctx context.Context, token string) (string, bool) {
	return lm.Sessions.CurrentUser(ctx, token)
}

// ------------------ Utilities ------------------

// ParseID parses a book id from a URL segment using its leading integer,
// so "2abc" names book 2.
func ParseID(raw string) (int64, bool) {
	return ParseLeadingInt(raw)
}

func resultOf(err error) string {
	if err == nil {
		return "ok"
	}
	return FailureCode(err)
}
