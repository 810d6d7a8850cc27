package auth

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
	ErrInvalidEmail       = errors.New("a valid email address is required")
	ErrNoIdentity         = errors.New("no identity present")
)

// MinPasswordLength matches the sign-up form's floor.
const MinPasswordLength = 6

// Identity is the authenticated principal used to scope chat history.
type Identity struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
}

// Provider 负责凭证校验，错误以可读文本形式返回给表单展示。
type Provider interface {
	SignUp(ctx context.Context, email, password string) (Identity, error)
	SignIn(ctx context.Context, email, password string) (Identity, error)
}

// ValidateCredentials applies the shared sign-up constraints before a
// provider is consulted.
func ValidateCredentials(email, password string) error {
	if !validEmail(email) {
		return ErrInvalidEmail
	}
	if len(password) < MinPasswordLength {
		return ErrWeakPassword
	}
	return nil
}

func validEmail(email string) bool {
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 {
		return false
	}
	domain := email[at+1:]
	return !strings.ContainsAny(email, " \t") && strings.Contains(domain, ".")
}

// NormalizeEmail 统一邮箱大小写与空白，保证同一账号只有一个键。
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
