package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

const userKeyPrefix = "emotutor:user:"

// RedisProvider 把账号存放在 Redis 中，密码只保存 bcrypt 哈希。
type RedisProvider struct {
	rdb *redis.Client
}

// NewRedisProvider wraps an existing Redis client.
func NewRedisProvider(rdb *redis.Client) *RedisProvider {
	return &RedisProvider{rdb: rdb}
}

type storedUser struct {
	UID          string `json:"uid"`
	Email        string `json:"email"`
	PasswordHash []byte `json:"passwordHash"`
}

// SignUp registers a new account. The email key is claimed with SETNX so two
// concurrent sign-ups cannot both win.
func (p *RedisProvider) SignUp(ctx context.Context, email, password string) (Identity, error) {
	email = NormalizeEmail(email)
	if err := ValidateCredentials(email, password); err != nil {
		return Identity{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Identity{}, fmt.Errorf("failed to hash password: %w", err)
	}

	user := storedUser{
		UID:          uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
	}
	data, err := json.Marshal(user)
	if err != nil {
		return Identity{}, fmt.Errorf("failed to marshal user: %w", err)
	}

	ok, err := p.rdb.SetNX(ctx, userKeyPrefix+email, data, 0).Result()
	if err != nil {
		return Identity{}, fmt.Errorf("failed to store user: %w", err)
	}
	if !ok {
		return Identity{}, ErrEmailTaken
	}

	return Identity{UID: user.UID, Email: user.Email}, nil
}

// SignIn verifies the supplied credentials against the stored hash. Unknown
// email and wrong password are indistinguishable to the caller.
func (p *RedisProvider) SignIn(ctx context.Context, email, password string) (Identity, error) {
	email = NormalizeEmail(email)

	data, err := p.rdb.Get(ctx, userKeyPrefix+email).Bytes()
	if errors.Is(err, redis.Nil) {
		return Identity{}, ErrInvalidCredentials
	}
	if err != nil {
		return Identity{}, fmt.Errorf("failed to load user: %w", err)
	}

	var user storedUser
	if err := json.Unmarshal(data, &user); err != nil {
		return Identity{}, fmt.Errorf("failed to unmarshal user: %w", err)
	}

	if bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)) != nil {
		return Identity{}, ErrInvalidCredentials
	}

	return Identity{UID: user.UID, Email: user.Email}, nil
}
