package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/portalacademico/portal-backend/config"
	httpapi "github.com/portalacademico/portal-backend/internal/api/http"
	"github.com/portalacademico/portal-backend/internal/api/http/middleware"
	"github.com/portalacademico/portal-backend/internal/api/http/routes"
	"github.com/portalacademico/portal-backend/internal/auth"
	"github.com/portalacademico/portal-backend/internal/bootstrap"
	"github.com/portalacademico/portal-backend/internal/catalog/cache"
	cronjob "github.com/portalacademico/portal-backend/internal/catalog/cron"
	cataloghttp "github.com/portalacademico/portal-backend/internal/catalog/http"
	catalogsvc "github.com/portalacademico/portal-backend/internal/catalog/service"
	enrollhttp "github.com/portalacademico/portal-backend/internal/enrollment/http"
	enrollsvc "github.com/portalacademico/portal-backend/internal/enrollment/service"
	applog "github.com/portalacademico/portal-backend/internal/logger"
	"github.com/portalacademico/portal-backend/internal/storage"
	"github.com/portalacademico/portal-backend/internal/storage/memory"
	"github.com/portalacademico/portal-backend/internal/storage/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := applog.New(cfg.App.LogLevel)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck
	zap.ReplaceGlobals(logger)

	bootstrap.SetGinMode(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open store", zap.String("driver", cfg.Database.Driver), zap.Error(err))
	}
	defer closeStore()

	backend, cachePinger, closeCache := openCache(ctx, cfg, logger)
	defer closeCache()

	catalog := catalogsvc.NewCatalogService(store, backend, cfg.Cache.TTL, logger)
	admin := catalogsvc.NewCourseAdminService(store, catalog, logger)
	engine := enrollsvc.NewAdmissionEngine(store, logger)
	workflow := enrollsvc.NewConfirmationWorkflow(store, logger)
	query := enrollsvc.NewEnrollmentQuery(store)

	var warmer *cronjob.Scheduler
	if cfg.Cache.WarmSchedule != "" && cfg.Cache.TTL > 0 {
		warmer = cronjob.NewScheduler(catalog, cfg.Cache.WarmSchedule, cfg.Server.RequestTimeout, logger)
		if err := warmer.Start(); err != nil {
			logger.Fatal("failed to start catalog warmer", zap.Error(err))
		}
	}

	enrollLimit := middleware.NewRateLimiter(cfg.RateLimit.EnrollPerMinute, cfg.RateLimit.EnrollBurst)
	go enrollLimit.RunSweeper(ctx, 5*time.Minute)

	router := bootstrap.BuildRouter(bootstrap.RouterDeps{
		ServiceName:    cfg.App.ServiceName,
		Version:        cfg.App.Version,
		Log:            logger,
		Store:          store,
		Cache:          cachePinger,
		RequestTimeout: cfg.Server.RequestTimeout,
		V1: routes.V1Deps{
			Catalog:    cataloghttp.New(catalog, admin, logger),
			Enrollment: enrollhttp.New(engine, workflow, query, logger),
			Auth: auth.Options{
				Secret:         []byte(cfg.Auth.JWTSecret),
				HeaderIdentity: cfg.Auth.HeaderIdentity,
			},
			CoordinatorRole: cfg.Auth.CoordinatorRole,
			EnrollLimit:     enrollLimit.Middleware(),
		},
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.Server.RequestTimeout + 5*time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.String("port", cfg.Server.Port),
			zap.String("env", cfg.App.Environment),
			zap.String("store", cfg.Database.Driver),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error("server failed", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if warmer != nil {
		warmer.Stop(shutdownCtx)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
	logger.Info("server stopped")
}

// openStore returns the configured store and a func releasing its resources.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (storage.Store, func(), error) {
	switch cfg.Database.Driver {
	case config.DriverMemory:
		st := memory.New()
		if cfg.Database.SeedOnStart {
			courses, err := storage.LoadSeed(cfg.Database.SeedFile)
			if err != nil {
				return nil, nil, err
			}
			if err := st.SeedCourses(ctx, courses); err != nil {
				return nil, nil, fmt.Errorf("seed memory store: %w", err)
			}
		}
		logger.Warn("using in-memory store, data is lost on restart")
		return st, func() {}, nil

	case config.DriverPostgres:
		if cfg.Database.MigrateOnStart || cfg.Database.SeedOnStart {
			if err := prepareSchema(ctx, &cfg.Database, logger); err != nil {
				return nil, nil, err
			}
		}

		pool, err := bootstrap.OpenDB(ctx, bootstrap.DBOptions{
			DSN:      cfg.Database.PostgresDSN(),
			MaxConns: int32(cfg.Database.MaxConns),
		})
		if err != nil {
			return nil, nil, err
		}
		logger.Info("connected to postgres", zap.Int("max_conns", cfg.Database.MaxConns))
		return postgres.NewStore(pool), pool.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Database.Driver)
}

func prepareSchema(ctx context.Context, dbCfg *config.DatabaseConfig, logger *zap.Logger) error {
	db, err := postgres.NewConnection(ctx, dbCfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if dbCfg.MigrateOnStart {
		applied, err := postgres.Migrate(ctx, db)
		if err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		logger.Info("migrations applied", zap.Strings("versions", applied))
	}
	if dbCfg.SeedOnStart {
		courses, err := storage.LoadSeed(dbCfg.SeedFile)
		if err != nil {
			return err
		}
		n, err := postgres.SeedCourses(ctx, db, courses)
		if err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		logger.Info("seed courses inserted", zap.Int64("rows", n))
	}
	return nil
}

// openCache connects to redis when caching is enabled. Any failure degrades to
// the no-op backend so the catalog keeps serving from the store.
func openCache(ctx context.Context, cfg *config.Config, logger *zap.Logger) (cache.Backend, httpapi.Pinger, func()) {
	if cfg.Cache.TTL <= 0 {
		logger.Info("catalog cache disabled")
		return cache.Noop{}, nil, func() {}
	}

	client, err := bootstrap.OpenRedis(ctx, cfg.Redis)
	if err != nil {
		logger.Warn("redis unavailable, catalog cache disabled", zap.Error(err))
		return cache.Noop{}, nil, func() {}
	}

	logger.Info("connected to redis", zap.String("addr", client.Options().Addr))
	backend := cache.NewRedis(client, cfg.Cache.KeyPrefix)
	return backend, backend, func() { _ = client.Close() }
}
