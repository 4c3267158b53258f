package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func tokenKey(token string) string { return "chess:auth:" + strings.TrimSpace(token) }

// RedisAuthStore maps opaque tokens to usernames.
type RedisAuthStore struct{ rdb *redis.Client }

func NewRedisAuthStore(rdb *redis.Client) *RedisAuthStore { return &RedisAuthStore{rdb: rdb} }

func (s *RedisAuthStore) Authenticate(ctx context.Context, token string) (string, error) {
	if strings.TrimSpace(token) == "" {
		return "", ErrUnauthorized
	}
	name, err := s.rdb.Get(ctx, tokenKey(token)).Result()
	if err == redis.Nil {
		return "", ErrUnauthorized
	}
	if err != nil {
		return "", fmt.Errorf("lookup token: %w", err)
	}
	return name, nil
}

// IssueToken creates a token for username. ttl <= 0 means no expiry.
func (s *RedisAuthStore) IssueToken(ctx context.Context, username string, ttl time.Duration) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", fmt.Errorf("username is required")
	}
	if ttl < 0 {
		ttl = 0
	}
	token := uuid.NewString()
	if err := s.rdb.Set(ctx, tokenKey(token), username, ttl).Err(); err != nil {
		return "", err
	}
	return token, nil
}

func (s *RedisAuthStore) Revoke(ctx context.Context, token string) error {
	return s.rdb.Del(ctx, tokenKey(token)).Err()
}
