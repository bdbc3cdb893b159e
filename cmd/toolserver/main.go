// Command toolserver serves the todo tools over JSON-RPC on stdin/stdout.
// Logs go to stderr; stdout carries only protocol messages.
//
// The tool server and cmd/server share data only through a postgres
// DATABASE_URL. With DATABASE_URL=memory each process holds its own store,
// so toolserver refuses to start unless TOOLSERVER_ALLOW_MEMORY=true.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/ayush/cybertodo/internal/apikey"
	"github.com/ayush/cybertodo/internal/config"
	"github.com/ayush/cybertodo/internal/logging"
	"github.com/ayush/cybertodo/internal/store"
	"github.com/ayush/cybertodo/internal/todo"
	"github.com/ayush/cybertodo/internal/toolserver"
)

func main() {
	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger, err := logging.New(cfg.Production(), cfg.LogLevel, "stderr")
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if err := cfg.CheckToolServerStore(); err != nil {
		logger.Fatal("refusing to start", zap.Error(err))
	}

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("open database", zap.Error(err))
	}
	defer db.Close()

	keys, closeKeys, err := apikey.Open(ctx, cfg)
	if err != nil {
		logger.Fatal("open api key store", zap.Error(err), zap.String("backend", cfg.APIKeyBackend))
	}
	defer closeKeys(context.Background())

	if _, err := keys.EnsureDefault(ctx, cfg.DefaultAPIKey); err != nil {
		logger.Fatal("provision default api key", zap.Error(err))
	}

	srv, err := toolserver.New(todo.NewService(db), keys, cfg.ToolServerAPIKey, logger)
	if err != nil {
		logger.Fatal("build tool server", zap.Error(err))
	}

	logger.Info("tool server ready",
		zap.String("name", toolserver.ServerName),
		zap.String("version", toolserver.ServerVersion),
		zap.String("key_backend", cfg.APIKeyBackend),
	)
	if err := srv.Serve(ctx, os.Stdin, os.Stdout); err != nil && ctx.Err() == nil {
		logger.Error("serve", zap.Error(err))
	}
}
