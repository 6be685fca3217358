package store

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/arturoeanton/go-mini-rag/internal/domain"
	"github.com/arturoeanton/go-mini-rag/internal/port"
)

// UserStore is an in-memory user table plus token blacklist. It is not
// persistent: accounts live for the process lifetime only. Constructed and
// injected explicitly so tests get a fresh store per case.
type UserStore struct {
	mu          sync.RWMutex
	users       map[string]domain.User // keyed by username
	blacklisted map[string]struct{}
}

// NewUserStore creates an empty user store.
func NewUserStore() *UserStore {
	return &UserStore{
		users:       make(map[string]domain.User),
		blacklisted: make(map[string]struct{}),
	}
}

// Seed installs the default admin/user accounts with bcrypt-hashed
// passwords. Intended for first boot; change these in production.
func (s *UserStore) Seed() error {
	defaults := []struct {
		username, password, email, fullName, role string
	}{
		{"admin", "admin123", "admin@example.com", "Administrator", "admin"},
		{"user", "user123", "user@example.com", "Regular User", "user"},
	}

	for _, d := range defaults {
		hash, err := bcrypt.GenerateFromPassword([]byte(d.password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		_, err = s.Create(domain.User{
			Username:     d.username,
			Email:        d.email,
			FullName:     d.fullName,
			Role:         d.role,
			IsActive:     true,
			PasswordHash: string(hash),
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// Create inserts a new user. The id and timestamps are assigned here.
func (s *UserStore) Create(user domain.User) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.Username]; ok {
		return domain.User{}, port.ErrUserExists
	}

	now := time.Now()
	user.ID = uuid.NewString()
	user.CreatedAt = now
	user.UpdatedAt = now
	s.users[user.Username] = user
	return user, nil
}

// Get returns the user with the given username.
func (s *UserStore) Get(username string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[username]
	if !ok {
		return domain.User{}, port.ErrUserNotFound
	}
	return user, nil
}

// Update applies non-zero fields of patch to an existing user.
func (s *UserStore) Update(username string, patch domain.UserPatch) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[username]
	if !ok {
		return domain.User{}, port.ErrUserNotFound
	}

	if patch.Email != nil {
		user.Email = *patch.Email
	}
	if patch.FullName != nil {
		user.FullName = *patch.FullName
	}
	if patch.IsActive != nil {
		user.IsActive = *patch.IsActive
	}
	user.UpdatedAt = time.Now()
	s.users[username] = user
	return user, nil
}

// Delete removes a user. Deleting an unknown user is an error.
func (s *UserStore) Delete(username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[username]; !ok {
		return port.ErrUserNotFound
	}
	delete(s.users, username)
	return nil
}

// Blacklist marks a token as revoked until the process restarts.
func (s *UserStore) Blacklist(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blacklisted[token] = struct{}{}
}

// IsBlacklisted reports whether a token has been revoked.
func (s *UserStore) IsBlacklisted(token string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.blacklisted[token]
	return ok
}
