package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/park285/cheese-chess-live/internal/archive"
	"github.com/park285/cheese-chess-live/internal/auth"
	appcfg "github.com/park285/cheese-chess-live/internal/config"
	"github.com/park285/cheese-chess-live/internal/connreg"
	"github.com/park285/cheese-chess-live/internal/msgcat"
	"github.com/park285/cheese-chess-live/internal/obslog"
	"github.com/park285/cheese-chess-live/internal/session"
	"github.com/park285/cheese-chess-live/internal/store"
	"github.com/park285/cheese-chess-live/internal/wsserver"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb, err := store.Connect(ctx, cfg.RedisURL)
	if err != nil {
		logger.Fatal("redis_connect_failed", zap.Error(err))
	}
	defer func() { _ = rdb.Close() }()
	games := store.NewRedisGameStore(rdb)

	authn, err := authenticator(cfg, store.NewRedisAuthStore(rdb))
	if err != nil {
		logger.Fatal("auth_init_failed", zap.Error(err))
	}

	msgs, err := msgcat.New(cfg.MsgOverrideDir)
	if err != nil {
		logger.Fatal("msgcat_init_failed", zap.Error(err))
	}

	opts := []session.Option{session.WithCatalog(msgs), session.WithLogger(logger)}
	if cfg.DatabaseURL != "" {
		repo, err := archive.NewRepository(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("archive_connect_failed", zap.Error(err))
		}
		defer func() { _ = repo.Close() }()
		if err := repo.EnsureSchema(ctx); err != nil {
			logger.Fatal("archive_schema_failed", zap.Error(err))
		}
		opts = append(opts, session.WithArchiver(repo))
	} else {
		logger.Info("archive_disabled")
	}

	coord := session.New(authn, games, connreg.New(), opts...)
	srv := wsserver.New(coord, games, wsserver.Options{
		WriteTimeout:   cfg.WSWriteTimeout,
		AllowedOrigins: cfg.AllowedOrigins,
	})
	logger.Info("server_start", zap.String("addr", cfg.HTTPAddr), zap.String("auth_mode", string(cfg.AuthMode)))
	if err := srv.Run(ctx, cfg.HTTPAddr); err != nil {
		logger.Error("server_exit", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("server_stopped")
}

func authenticator(cfg *appcfg.AppConfig, tokens *store.RedisAuthStore) (session.Authenticator, error) {
	switch cfg.AuthMode {
	case appcfg.AuthJWT:
		return auth.NewJWTVerifier(cfg.AuthJWTSecret, "")
	case appcfg.AuthRemote:
		return auth.NewRemoteVerifier(cfg.AuthRemoteURL, auth.WithTimeout(cfg.AuthRemoteTimeout)), nil
	default:
		return tokens, nil
	}
}
