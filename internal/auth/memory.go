package auth

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// MemoryProvider implements Provider with an in-memory map, suitable for
// running without Redis and for tests.
type MemoryProvider struct {
	mu    sync.Mutex
	users map[string]storedUser
}

// NewMemoryProvider returns an empty in-memory provider.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{users: make(map[string]storedUser)}
}

// SignUp registers a new account.
func (p *MemoryProvider) SignUp(_ context.Context, email, password string) (Identity, error) {
	email = NormalizeEmail(email)
	if err := ValidateCredentials(email, password); err != nil {
		return Identity{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return Identity{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.users[email]; ok {
		return Identity{}, ErrEmailTaken
	}

	user := storedUser{UID: uuid.NewString(), Email: email, PasswordHash: hash}
	p.users[email] = user
	return Identity{UID: user.UID, Email: user.Email}, nil
}

// SignIn verifies credentials against the in-memory map.
func (p *MemoryProvider) SignIn(_ context.Context, email, password string) (Identity, error) {
	email = NormalizeEmail(email)

	p.mu.Lock()
	user, ok := p.users[email]
	p.mu.Unlock()

	if !ok {
		return Identity{}, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)) != nil {
		return Identity{}, ErrInvalidCredentials
	}
	return Identity{UID: user.UID, Email: user.Email}, nil
}
