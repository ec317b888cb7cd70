package library

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newDirectory(t *testing.T) *UserDirectory {
	t.Helper()
	return NewUserDirectory(&BcryptHasher{Cost: bcrypt.MinCost})
}

func TestRegister(t *testing.T) {
	d := newDirectory(t)

	alice, err := d.Register("  alice ", " p1 ")
	require.NoError(t, err)
	assert.Equal(t, int64(1), alice.ID)
	assert.Equal(t, "alice", alice.Username)
	assert.NotEqual(t, "p1", alice.PasswordHash, "password must not be stored in clear text")

	bob, err := d.Register("bob", "p2")
	require.NoError(t, err)
	assert.Equal(t, int64(2), bob.ID)
	assert.Equal(t, 2, d.Len())
}

func TestRegisterEmptyField(t *testing.T) {
	d := newDirectory(t)
	for _, tc := range [][2]string{{"", "p"}, {"u", ""}, {"   ", "p"}, {"u", " \t "}} {
		_, err := d.Register(tc[0], tc[1])
		assert.ErrorIs(t, err, ErrEmptyField, "%q/%q", tc[0], tc[1])
	}
	assert.Equal(t, 0, d.Len())
}

func TestRegisterDuplicateUsername(t *testing.T) {
	d := newDirectory(t)
	_, err := d.Register("alice", "p1")
	require.NoError(t, err)

	_, err = d.Register(" alice ", "p2")
	require.ErrorIs(t, err, ErrDuplicateUsername)
	assert.Equal(t, 1, d.Len())

	// The first password still works, the rejected one does not.
	_, err = d.Authenticate("alice", "p1")
	require.NoError(t, err)
	_, err = d.Authenticate("alice", "p2")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegisterIsCaseSensitive(t *testing.T) {
	d := newDirectory(t)
	_, err := d.Register("alice", "p1")
	require.NoError(t, err)
	_, err = d.Register("Alice", "p1")
	assert.NoError(t, err)
}

func TestRegisterConcurrentDuplicates(t *testing.T) {
	d := newDirectory(t)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		oks  int
		dups int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := d.Register("carol", "pw")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				oks++
			case errors.Is(err, ErrDuplicateUsername):
				dups++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, oks)
	assert.Equal(t, 7, dups)
	assert.Equal(t, 1, d.Len())
}

func TestAuthenticate(t *testing.T) {
	d := newDirectory(t)
	registered, err := d.Register("alice", "p1")
	require.NoError(t, err)

	t.Run("matching credentials", func(t *testing.T) {
		u, err := d.Authenticate(" alice", "p1 ")
		require.NoError(t, err)
		assert.Equal(t, registered, u)
	})
	t.Run("wrong password", func(t *testing.T) {
		_, err := d.Authenticate("alice", "wrong")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
	t.Run("unknown user", func(t *testing.T) {
		_, err := d.Authenticate("mallory", "p1")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
	t.Run("empty input", func(t *testing.T) {
		_, err := d.Authenticate("", "p1")
		assert.ErrorIs(t, err, ErrEmptyField)
		_, err = d.Authenticate("alice", "  ")
		assert.ErrorIs(t, err, ErrEmptyField)
	})
}

type failingHasher struct{ err error }

func (h failingHasher) Hash(string) (string, error)         { return "", h.err }
func (h failingHasher) Verify(string, string) (bool, error) { return false, h.err }

func TestHasherErrorsPropagate(t *testing.T) {
	boom := errors.New("boom")
	d := NewUserDirectory(failingHasher{err: boom})

	_, err := d.Register("alice", "p1")
	require.ErrorIs(t, err, boom)
	assert.Equal(t, "internal", FailureCode(err))
	assert.Equal(t, 0, d.Len())
}

func TestLookup(t *testing.T) {
	d := newDirectory(t)
	_, err := d.Register("alice", "p1")
	require.NoError(t, err)

	u, ok := d.Lookup(" alice ")
	require.True(t, ok)
	assert.Equal(t, int64(1), u.ID)

	_, ok = d.Lookup("bob")
	assert.False(t, ok)
}

func TestFailureCode(t *testing.T) {
	assert.Equal(t, "", FailureCode(nil))
	assert.Equal(t, "empty_field", FailureCode(ErrEmptyField))
	assert.Equal(t, "duplicate_username", FailureCode(ErrDuplicateUsername))
	assert.Equal(t, "invalid_credentials", FailureCode(ErrInvalidCredentials))
	assert.Equal(t, "invalid_credentials", FailureCode(errors.Join(errors.New("ctx"), ErrInvalidCredentials)))
	assert.Equal(t, "internal", FailureCode(errors.New("disk on fire")))
}

func TestBcryptHasher(t *testing.T) {
	h := &BcryptHasher{Cost: bcrypt.MinCost}
	hash, err := h.Hash("secret")
	require.NoError(t, err)

	ok, err := h.Verify("secret", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify("other", hash)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = h.Verify("secret", "not-a-hash")
	assert.Error(t, err)
}

func TestLongPasswords(t *testing.T) {
	d := newDirectory(t)
	password := strings.Repeat("x", 80)

	_, err := d.Register("alice", password)
	require.NoError(t, err)

	u, err := d.Authenticate("alice", password)
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)

	// Bytes past the 72nd still count.
	_, err = d.Authenticate("alice", strings.Repeat("x", 79)+"y")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
