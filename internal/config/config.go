// Package config loads server settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type AuthMode string

const (
	AuthRedis  AuthMode = "redis"
	AuthJWT    AuthMode = "jwt"
	AuthRemote AuthMode = "remote"
)

type AppConfig struct {
	HTTPAddr string

	RedisURL    string
	DatabaseURL string

	AuthMode          AuthMode
	AuthJWTSecret     string
	AuthRemoteURL     string
	AuthRemoteTimeout time.Duration

	WSWriteTimeout time.Duration
	AllowedOrigins []string

	MsgOverrideDir string
}

// Load reads a .env file when present, then the process environment.
// Variables already set in the environment win over .env entries.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv reads the process environment only.
func FromEnv() (*AppConfig, error) {
	cfg := &AppConfig{
		HTTPAddr:          ":8080",
		AuthMode:          AuthRedis,
		AuthRemoteTimeout: 3 * time.Second,
		WSWriteTimeout:    5 * time.Second,
	}

	if v := env("HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	cfg.RedisURL = env("REDIS_URL")
	cfg.DatabaseURL = env("DATABASE_URL")

	if v := env("AUTH_MODE"); v != "" {
		cfg.AuthMode = AuthMode(strings.ToLower(v))
	}
	cfg.AuthJWTSecret = env("AUTH_JWT_SECRET")
	cfg.AuthRemoteURL = strings.TrimRight(env("AUTH_REMOTE_URL"), "/")
	if v := env("AUTH_REMOTE_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.AuthRemoteTimeout = time.Duration(n) * time.Millisecond
		}
	}

	if v := env("WS_WRITE_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.WSWriteTimeout = time.Duration(n) * time.Millisecond
		}
	}
	cfg.AllowedOrigins = splitList(env("ALLOWED_ORIGINS"))
	cfg.MsgOverrideDir = env("MSG_OVERRIDE_DIR")

	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	switch cfg.AuthMode {
	case AuthRedis:
	case AuthJWT:
		if cfg.AuthJWTSecret == "" {
			return nil, errors.New("AUTH_JWT_SECRET is required when AUTH_MODE=jwt")
		}
	case AuthRemote:
		if cfg.AuthRemoteURL == "" {
			return nil, errors.New("AUTH_REMOTE_URL is required when AUTH_MODE=remote")
		}
	default:
		return nil, fmt.Errorf("unknown AUTH_MODE %q", cfg.AuthMode)
	}
	return cfg, nil
}

func env(k string) string { return strings.TrimSpace(os.Getenv(k)) }

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
