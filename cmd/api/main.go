package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/hoyn-app/profile-qr/internal/api/http"
	"github.com/hoyn-app/profile-qr/internal/api/http/handlers"
	"github.com/hoyn-app/profile-qr/internal/auth"
	"github.com/hoyn-app/profile-qr/internal/config"
	"github.com/hoyn-app/profile-qr/internal/events"
	"github.com/hoyn-app/profile-qr/internal/observability"
	"github.com/hoyn-app/profile-qr/internal/persistence"
	"github.com/hoyn-app/profile-qr/internal/qrtoken"
	"github.com/hoyn-app/profile-qr/internal/repository"
	"github.com/hoyn-app/profile-qr/internal/service"
	"github.com/hoyn-app/profile-qr/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	keys := qrtoken.NewKeyStore(cfg.Token.KeyPath)
	encryptionKey, created, err := keys.LoadOrCreate()
	if err != nil {
		logger.Fatal("failed to load encryption key", zap.Error(err))
	}
	if created {
		logger.Info("generated new encryption key", zap.String("path", keys.Path()))
	}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	profiles := repository.NewCachedProfiles(
		repository.NewProfileRepository(pool),
		redis.Handle(),
		cfg.Cache.ProfileTTL(),
		logger,
	)
	scanRepo := repository.NewScanEventRepository(pool)

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	audit := service.NewScanAuditService(dispatcher, scanRepo, logger)
	worker.StartScanAuditWorker(audit)

	recorder := worker.NewScanRecorder(dispatcher, logger, worker.WithDropHook(metrics.RecordDroppedScan))
	recorder.Start(ctx)

	tokens, err := qrtoken.NewService(qrtoken.Config{
		IssuerTag:        cfg.Token.IssuerTag,
		AuthorizedOrigin: cfg.Token.AuthorizedOrigin,
		MaxAge:           cfg.Token.MaxAge(),
		ClockSkew:        cfg.Token.ClockSkew(),
	}, qrtoken.Dependencies{
		EncryptionKey: encryptionKey,
		SigningKey:    cfg.Token.SigningKey,
		Profiles:      profiles,
		Scans:         recorder,
		Logger:        logger,
	})
	if err != nil {
		logger.Fatal("failed to build token service", zap.Error(err))
	}

	qr := service.NewQRService(cfg.App.PublicBaseURL, service.QRDependencies{
		Tokens:     tokens,
		Profiles:   profiles,
		Audit:      audit,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	})

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)

	deps := map[string]handlers.Pinger{"postgres": pg, "redis": nil}
	if redis.Handle() != nil {
		deps["redis"] = redis
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  cfg.App.RequestTimeout(),
		WriteTimeout: cfg.App.RequestTimeout(),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, deps, metrics),
		QR:             handlers.NewQRHandler(qr),
		Scan:           handlers.NewScanHandler(qr),
		AuthMiddleware: auth.NewAuthMiddleware(tokenManager),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}

	drainCtx, drainCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer drainCancel()
	if err := recorder.Close(drainCtx); err != nil {
		logger.Warn("scan recorder did not drain", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
