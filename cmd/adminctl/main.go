// Package main - adminctl, терминальный клиент админки Travy.
//
// Сессия хранится в файле в каталоге конфигурации пользователя; все команды
// ходят в тот же REST-бэкенд, что и консоль.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/atotto/clipboard"
	"github.com/joho/godotenv"

	"github.com/travy/admin-hub/config"
	"github.com/travy/admin-hub/internal/application/command"
	"github.com/travy/admin-hub/internal/domain/session"
	"github.com/travy/admin-hub/internal/infrastructure/external/backend"
	"github.com/travy/admin-hub/internal/infrastructure/persistence/file"
	"github.com/travy/admin-hub/internal/interface/cli"
	"github.com/travy/admin-hub/pkg/logger"
)

// systemClipboard copies through the OS clipboard.
type systemClipboard struct{}

func (systemClipboard) WriteAll(text string) error {
	return clipboard.WriteAll(text)
}

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	level := "warn"
	if cfg.App.Debug {
		level = "debug"
	}
	log, err := logger.New(logger.Options{
		Level:       level,
		Format:      logger.FormatText,
		OutputPaths: []string{"stderr"},
		Service:     "adminctl",
	})
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	path := cfg.Session.FilePath
	if path == "" {
		if path, err = file.DefaultPath(); err != nil {
			return fmt.Errorf("failed to resolve session file: %w", err)
		}
	}

	sessions := session.NewOwner(
		file.NewSessionStore(path, time.Now),
		session.NewTokenDecoder(cfg.Auth.JWTSecret),
		session.Policy{Disabled: cfg.Auth.Disabled, DefaultTTL: cfg.Session.DefaultTTL},
		time.Now,
		nil,
	)

	backendCfg := backend.DefaultClientConfig(cfg.Backend.BaseURL)
	backendCfg.Timeout = cfg.Backend.RequestTimeout
	backendCfg.Logger = log
	client := backend.NewClient(backendCfg)

	features := cfg.Features
	app := cli.NewApp(cli.Env{
		Sessions:          sessions,
		Login:             command.NewLoginHandler(client, sessions, log),
		Logout:            command.NewLogoutHandler(sessions, log),
		Gateway:           func(token string) cli.Gateway { return client.WithToken(token) },
		Clipboard:         systemClipboard{},
		Logger:            log,
		In:                os.Stdin,
		Out:               os.Stdout,
		CopyToClipboard:   features.Enabled(config.FeatureClipboard) && !clipboard.Unsupported,
		AllowDelete:       features.Enabled(config.FeatureInfluencerDelete),
		HideTopPerformers: !features.Enabled(config.FeatureTopPerformers),
	})
	return app.Run(ctx, os.Args)
}
