// Package main - точка входа консоли администратора Travy.
//
// Консоль - backend-for-frontend между браузером и REST-бэкендом: хранит
// сессии, держит страницы пользователей и инфлюенсеров на каждого вошедшего
// и отдаёт их представления в JSON.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/travy/admin-hub/config"

	// Application layer
	"github.com/travy/admin-hub/internal/application/command"
	"github.com/travy/admin-hub/internal/application/page"

	// Domain layer
	"github.com/travy/admin-hub/internal/domain/session"

	// Infrastructure layer
	"github.com/travy/admin-hub/internal/infrastructure/external/backend"
	"github.com/travy/admin-hub/internal/infrastructure/messaging"
	"github.com/travy/admin-hub/internal/infrastructure/metrics"
	"github.com/travy/admin-hub/internal/infrastructure/persistence/memory"
	"github.com/travy/admin-hub/internal/infrastructure/persistence/postgres"
	"github.com/travy/admin-hub/internal/infrastructure/persistence/redis"

	// Interface layer
	httpserver "github.com/travy/admin-hub/internal/interface/http"
	"github.com/travy/admin-hub/internal/interface/http/handlers"

	// Packages
	"github.com/travy/admin-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	// .env необязателен
	_ = godotenv.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. ЗАГРУЗКА КОНФИГУРАЦИИ
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	features := cfg.Features

	// ─────────────────────────────────────────────────────────────────────────
	// 2. НАСТРОЙКА ЛОГИРОВАНИЯ
	// ─────────────────────────────────────────────────────────────────────────
	log, err := logger.New(logger.Options{
		Level:   cfg.Observability.LogLevel,
		Format:  logger.Format(cfg.Observability.LogFormat),
		Service: "console",
		Version: cfg.App.Version,
	})
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting admin console",
		zap.String("env", string(cfg.App.Environment)),
		zap.String("backend", cfg.Backend.BaseURL),
		zap.Bool("auth_disabled", cfg.Auth.Disabled),
	)
	if cfg.Auth.Disabled {
		log.Warn("route guard is disabled; every request is treated as signed in")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 3. МЕТРИКИ И ШИНА СОБЫТИЙ
	// ─────────────────────────────────────────────────────────────────────────
	m := metrics.New()

	busConfig := messaging.DefaultInMemoryEventBusConfig()
	busConfig.Logger = log
	busConfig.Observer = m
	bus := messaging.NewInMemoryEventBus(busConfig)
	defer func() {
		log.Info("closing event bus...")
		_ = bus.Close()
	}()

	health := handlers.NewCompositeHealthChecker(cfg.App.Version)

	// ─────────────────────────────────────────────────────────────────────────
	// 4. ХРАНИЛИЩЕ СЕССИЙ
	// ─────────────────────────────────────────────────────────────────────────
	var store session.Store
	switch cfg.Session.Store {
	case "redis":
		redisCfg := redis.Config{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
			KeyPrefix:    cfg.Redis.KeyPrefix,
		}
		log.Info("connecting to Redis...", zap.String("addr", redisCfg.Addr()))
		cache, err := redis.NewCache(redisCfg)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer func() { _ = cache.Close() }()
		store = redis.NewSessionStore(cache)
		health.AddCheck("redis", handlers.NewPingCheck(cache))
	default:
		log.Warn("sessions are kept in memory and lost on restart")
		store = memory.NewSessionStore(time.Now)
	}

	sessions := session.NewOwner(
		store,
		session.NewTokenDecoder(cfg.Auth.JWTSecret),
		session.Policy{Disabled: cfg.Auth.Disabled, DefaultTTL: cfg.Session.DefaultTTL},
		time.Now,
		bus,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 5. ЖУРНАЛ АУДИТА (PostgreSQL, опционально)
	// ─────────────────────────────────────────────────────────────────────────
	if cfg.Audit.Enabled() && features.Enabled(config.FeatureAuditJournal) {
		opts := postgres.DefaultPoolOptions()
		if cfg.Audit.MaxConns > 0 {
			opts.MaxConns = int32(cfg.Audit.MaxConns)
		}
		log.Info("connecting to audit database...")
		conn, err := postgres.NewConnectionFromURL(ctx, cfg.Audit.DatabaseURL, opts)
		if err != nil {
			return fmt.Errorf("failed to connect to audit database: %w", err)
		}
		defer func() {
			log.Info("closing audit database connection...")
			conn.Close()
		}()

		if err := postgres.NewMigrator(conn).Migrate(ctx); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		if err := postgres.NewAuditJournal(conn, log).Subscribe(bus); err != nil {
			return fmt.Errorf("failed to subscribe audit journal: %w", err)
		}
		health.AddOptionalCheck("audit", handlers.NewPingCheck(conn))
		log.Info("audit journal enabled")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. КЛИЕНТ БЭКЕНДА
	// ─────────────────────────────────────────────────────────────────────────
	backendCfg := backend.DefaultClientConfig(cfg.Backend.BaseURL)
	backendCfg.Timeout = cfg.Backend.RequestTimeout
	backendCfg.Logger = log
	backendCfg.Observer = m
	if features.Enabled(config.FeatureBackendBreaker) {
		backendCfg.Breaker = backend.NewBreaker(backend.BreakerConfig{
			FailureThreshold: cfg.Backend.BreakerThreshold,
			Timeout:          cfg.Backend.BreakerTimeout,
			OnStateChange:    m.BreakerStateChanged,
		})
		health.AddOptionalCheck("backend", handlers.NewBreakerCheck(backendCfg.Breaker))
	}
	client := backend.NewClient(backendCfg)

	// ─────────────────────────────────────────────────────────────────────────
	// 7. APPLICATION LAYER
	// ─────────────────────────────────────────────────────────────────────────
	workspaces := httpserver.NewWorkspaces(
		func(token string) httpserver.Gateway { return client.WithToken(token) },
		page.Options{
			Logger:            log,
			Events:            bus,
			HideTopPerformers: !features.Enabled(config.FeatureTopPerformers),
		},
		cfg.Session.WorkspaceIdle,
	)
	if err := workspaces.Subscribe(bus); err != nil {
		return fmt.Errorf("failed to subscribe workspaces: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 8. HTTP СЕРВЕР
	// ─────────────────────────────────────────────────────────────────────────
	serverCfg := httpserver.DefaultConfig()
	serverCfg.Host = cfg.HTTP.Host
	serverCfg.Port = cfg.HTTP.Port
	serverCfg.ReadTimeout = cfg.HTTP.ReadTimeout
	serverCfg.WriteTimeout = cfg.HTTP.WriteTimeout
	serverCfg.IdleTimeout = cfg.HTTP.IdleTimeout
	serverCfg.MaxBodyBytes = cfg.HTTP.MaxBodyBytes
	serverCfg.EnableCORS = len(cfg.HTTP.AllowedOrigins) > 0
	serverCfg.AllowedOrigins = cfg.HTTP.AllowedOrigins
	serverCfg.EnableMetrics = cfg.Observability.MetricsEnabled
	serverCfg.EnableCompression = features.Enabled(config.FeatureCompression)
	serverCfg.RateLimitPerSecond = cfg.HTTP.RateLimitPerSecond
	serverCfg.RateLimitBurst = cfg.HTTP.RateLimitBurst
	serverCfg.TrustProxy = cfg.HTTP.TrustProxy
	serverCfg.SecureCookies = cfg.HTTP.SecureCookies
	serverCfg.DisableInfluencerDelete = !features.Enabled(config.FeatureInfluencerDelete)
	serverCfg.DisableInfluencerDashboard = !features.Enabled(config.FeatureInfluencerDashboard)
	serverCfg.Version = cfg.App.Version

	server := httpserver.NewServer(serverCfg, httpserver.Dependencies{
		Sessions:      sessions,
		Login:         command.NewLoginHandler(client, sessions, log),
		Logout:        command.NewLogoutHandler(sessions, log),
		Workspaces:    workspaces,
		Metrics:       m,
		HealthChecker: health,
		Logger:        log,
	})
	serverErr := server.StartAsync()

	// ─────────────────────────────────────────────────────────────────────────
	// 9. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", zap.String("signal", sig.String()))
	case err, ok := <-serverErr:
		if ok && err != nil {
			return err
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server shutdown failed", zap.Error(err))
	}
	log.Info("admin console stopped")
	return nil
}
