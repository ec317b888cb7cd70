package library

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type recordedEvent struct {
	kind, name, result string
}

type fakeRecorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *fakeRecorder) BookOperation(op string, found bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := "ok"
	if !found {
		result = "missing"
	}
	r.events = append(r.events, recordedEvent{"book", op, result})
}

func (r *fakeRecorder) AuthEvent(event, result string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{"auth", event, result})
}

func newManager(t *testing.T) (*LibraryManager, *fakeRecorder) {
	t.Helper()
	rec := &fakeRecorder{}
	mgr := NewLibraryManager(Options{
		Hasher:   &BcryptHasher{Cost: bcrypt.MinCost},
		Recorder: rec,
	})
	t.Cleanup(func() { mgr.Close() })
	return mgr, rec
}

func TestManagerSearchEndToEnd(t *testing.T) {
	mgr, _ := newManager(t)
	mgr.AddBook("Dune", "Frank Herbert", "SF", "1965")
	mgr.AddBook("Foundation", "Isaac Asimov", "SF", "1951")
	mgr.AddBook("Dune Messiah", "Frank Herbert", "SF", "1969")

	got := mgr.ListBooks("dune")
	require.Len(t, got, 2)
	assert.Equal(t, "Dune", got[0].Title)
	assert.Equal(t, int64(1), got[0].ID)
	assert.Equal(t, "Dune Messiah", got[1].Title)
	assert.Equal(t, int64(3), got[1].ID)
}

func TestManagerBookRefs(t *testing.T) {
	mgr, rec := newManager(t)
	b := mgr.AddBook("Dune", "Frank Herbert", "SF", "1965")

	got, ok := mgr.GetBook("1")
	require.True(t, ok)
	assert.Equal(t, b, got)

	_, ok = mgr.GetBook("abc")
	assert.False(t, ok)

	assert.False(t, mgr.UpdateBook("abc", "x", "y", "z", "1"))
	assert.False(t, mgr.UpdateBook("7", "x", "y", "z", "1"))
	assert.True(t, mgr.UpdateBook(" 1 ", "Dune", "Herbert", "SF", "1966"))
	assert.False(t, mgr.DeleteBook("x"))
	assert.True(t, mgr.DeleteBook("1"))
	assert.Empty(t, mgr.ListBooks(""))

	assert.Equal(t, []recordedEvent{
		{"book", "create", "ok"},
		{"book", "update", "missing"},
		{"book", "update", "missing"},
		{"book", "update", "ok"},
		{"book", "delete", "missing"},
		{"book", "delete", "ok"},
	}, rec.events)
}

func TestManagerBookRefsUseLeadingInteger(t *testing.T) {
	mgr, _ := newManager(t)
	dune := mgr.AddBook("Dune", "Frank Herbert", "SF", "1965")
	mgr.AddBook("Foundation", "Isaac Asimov", "SF", "1951")

	got, ok := mgr.GetBook("1.0")
	require.True(t, ok)
	assert.Equal(t, dune, got)

	assert.True(t, mgr.UpdateBook(" 1 ", "Dune", "Herbert", "SF", "1966"))
	assert.True(t, mgr.DeleteBook("2abc"))

	books := mgr.ListBooks("")
	require.Len(t, books, 1)
	assert.Equal(t, int64(1), books[0].ID)
}

func TestManagerAccounts(t *testing.T) {
	mgr, rec := newManager(t)
	ctx := context.Background()
	tokA, tokB := NewSessionToken(), NewSessionToken()

	u, err := mgr.Register(ctx, tokA, "alice", "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), u.ID)
	user, ok := mgr.CurrentUser(ctx, tokA)
	require.True(t, ok, "registration logs the new user in")
	assert.Equal(t, "alice", user)

	_, err = mgr.Register(ctx, tokB, "alice", "p2")
	require.ErrorIs(t, err, ErrDuplicateUsername)
	_, ok = mgr.CurrentUser(ctx, tokB)
	assert.False(t, ok)

	_, err = mgr.Login(ctx, tokB, "alice", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, ok = mgr.CurrentUser(ctx, tokB)
	assert.False(t, ok)

	_, err = mgr.Login(ctx, tokB, "alice", "p1")
	require.NoError(t, err)
	user, _ = mgr.CurrentUser(ctx, tokB)
	assert.Equal(t, "alice", user)

	mgr.Logout(ctx, tokB)
	mgr.Logout(ctx, tokB)
	_, ok = mgr.CurrentUser(ctx, tokB)
	assert.False(t, ok)
	_, ok = mgr.CurrentUser(ctx, tokA)
	assert.True(t, ok, "other sessions are untouched")

	assert.Equal(t, []recordedEvent{
		{"auth", "register", "ok"},
		{"auth", "register", "duplicate_username"},
		{"auth", "login", "invalid_credentials"},
		{"auth", "login", "ok"},
		{"auth", "logout", "ok"},
		{"auth", "logout", "ok"},
	}, rec.events)
}

func TestManagerRegisterSessionWriteFailure(t *testing.T) {
	mgr := NewLibraryManager(Options{
		SessionStore: brokenStore{},
		Hasher:       &BcryptHasher{Cost: bcrypt.MinCost},
	})

	u, err := mgr.Register(context.Background(), "tok", "alice", "p1")
	require.Error(t, err)
	assert.Equal(t, "internal", FailureCode(err))
	assert.Equal(t, int64(1), u.ID, "the account is kept even though the session write failed")
}

func TestManagerSeed(t *testing.T) {
	mgr, _ := newManager(t)
	n := mgr.Seed([]SeedBook{
		{Title: "Dune", Author: "Frank Herbert", Genre: "SF", Year: "1965"},
		{Title: "Foundation", Author: "Isaac Asimov", Genre: "SF", Year: "n/a"},
	})
	assert.Equal(t, 2, n)

	books := mgr.ListBooks("")
	require.Len(t, books, 2)
	assert.Equal(t, int64(2), books[1].ID)
	assert.False(t, books[1].PublicationYear.Valid)
}

func TestManagerClosesSQLiteStore(t *testing.T) {
	store := tempSQLiteStore(t, 0)
	mgr := NewLibraryManager(Options{SessionStore: store})
	require.NoError(t, mgr.Close())
}
