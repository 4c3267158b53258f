package config

import (
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("AUTH_MODE", "")
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("WS_WRITE_TIMEOUT_MS", "")
	t.Setenv("ALLOWED_ORIGINS", " https://a.example , ,https://b.example")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.HTTPAddr != ":8080" || cfg.AuthMode != AuthRedis || cfg.WSWriteTimeout != 5*time.Second {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Fatalf("origins = %v", cfg.AllowedOrigins)
	}
}

func TestValidation(t *testing.T) {
	t.Setenv("REDIS_URL", "")
	if _, err := FromEnv(); err == nil {
		t.Fatal("missing REDIS_URL must fail")
	}

	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("AUTH_MODE", "jwt")
	t.Setenv("AUTH_JWT_SECRET", "")
	if _, err := FromEnv(); err == nil {
		t.Fatal("jwt without secret must fail")
	}

	t.Setenv("AUTH_MODE", "remote")
	t.Setenv("AUTH_REMOTE_URL", "https://auth.example/")
	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("remote mode: %v", err)
	}
	if cfg.AuthRemoteURL != "https://auth.example" {
		t.Fatalf("trailing slash kept: %q", cfg.AuthRemoteURL)
	}

	t.Setenv("AUTH_MODE", "ldap")
	if _, err := FromEnv(); err == nil {
		t.Fatal("unknown auth mode must fail")
	}
}
