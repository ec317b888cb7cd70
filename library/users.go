package library

import (
	"strings"
	"sync"
)

// UserDirectory owns the registered users. Usernames are unique after trimming.
type UserDirectory struct {
	mu     sync.RWMutex
	users  []User
	hasher PasswordHasher
}

// NewUserDirectory returns an empty directory. A nil hasher falls back to bcrypt.
func NewUserDirectory(hasher PasswordHasher) *UserDirectory {
	if hasher == nil {
		hasher = NewBcryptHasher()
	}
	return &UserDirectory{hasher: hasher}
}

// Register creates a user with the next sequential id.
// It fails with ErrEmptyField or ErrDuplicateUsername.
func (d *UserDirectory) Register(username, password string) (User, error) {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)
	if username == "" || password == "" {
		return User{}, ErrEmptyField
	}

	// Reject early so duplicates don't pay for a hash.
	d.mu.RLock()
	_, taken := d.find(username)
	d.mu.RUnlock()
	if taken {
		return User{}, ErrDuplicateUsername
	}

	hash, err := d.hasher.Hash(password)
	if err != nil {
		return User{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, taken := d.find(username); taken {
		return User{}, ErrDuplicateUsername
	}
	u := User{ID: d.nextID(), Username: username, PasswordHash: hash}
	d.users = append(d.users, u)
	return u, nil
}

// Authenticate returns the user matching both trimmed credentials.
// It fails with ErrEmptyField or ErrInvalidCredentials.
func (d *UserDirectory) Authenticate(username, password string) (User, error) {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)
	if username == "" || password == "" {
		return User{}, ErrEmptyField
	}

	d.mu.RLock()
	u, ok := d.find(username)
	d.mu.RUnlock()
	if !ok {
		return User{}, ErrInvalidCredentials
	}

	match, err := d.hasher.Verify(password, u.PasswordHash)
	if err != nil {
		return User{}, err
	}
	if !match {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}

// Lookup returns the user with the given username.
func (d *UserDirectory) Lookup(username string) (User, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.find(strings.TrimSpace(username))
}

// Len returns the number of registered users.
func (d *UserDirectory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.users)
}

func (d *UserDirectory) find(username string) (User, bool) {
	for _, u := range d.users {
		if u.Username == username {
			return u, true
		}
	}
	return User{}, false
}

func (d *UserDirectory) nextID() int64 {
	var maxID int64
	for _, u := range d.users {
		if u.ID > maxID {
			maxID = u.ID
		}
	}
	return maxID + 1
}
