package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"go.uber.org/zap"

	"github.com/hackgods/vetclinic-scheduling/internal/adoption"
	"github.com/hackgods/vetclinic-scheduling/internal/api"
	"github.com/hackgods/vetclinic-scheduling/internal/appointment"
	"github.com/hackgods/vetclinic-scheduling/internal/config"
	"github.com/hackgods/vetclinic-scheduling/internal/db"
	"github.com/hackgods/vetclinic-scheduling/internal/logging"
	"github.com/hackgods/vetclinic-scheduling/internal/notification"
	redisclient "github.com/hackgods/vetclinic-scheduling/internal/redis"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Error("config load error", zap.Error(err))
		return err
	}

	logger, err := logging.New(cfg)
	if err != nil {
		zap.NewExample().Error("logger init error", zap.Error(err))
		return err
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("api-server starting up",
		zap.String("env", cfg.Env),
		zap.String("version", cfg.Version),
		zap.String("http_port", cfg.HTTPPort),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, cfg.PostgresMaxConn)
	cancelPg()
	if err != nil {
		logger.Error("postgres connection error", zap.Error(err))
		return err
	}
	defer pgPool.Close()
	logger.Info("connected to Postgres")

	if cfg.MigrateOnStart {
		applied, err := db.Migrate(rootCtx, pgPool, logger)
		if err != nil {
			logger.Error("migration failed", zap.Error(err))
			return err
		}
		logger.Info("migrations applied", zap.Int("count", applied))
	}

	rdb, err := redisclient.NewClient(rootCtx, cfg)
	if err != nil {
		logger.Error("redis connection error", zap.Error(err))
		return err
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Warn("error closing redis", zap.Error(err))
		}
	}()
	logger.Info("connected to Redis")

	locker := redisclient.NewRedisLocker(rdb, cfg.LockTTL)
	outbox := notification.NewOutbox(notification.NewPgRepository(pgPool), logger.Named("outbox"), cfg.NotifyTimeout)

	appointments := appointment.NewService(
		appointment.NewPgRepository(pgPool), locker, outbox,
		appointment.WithLogger(logger.Named("appointment")),
		appointment.WithLocation(cfg.ClinicLocation),
	)
	adoptions := adoption.NewService(
		adoption.NewPgRepository(pgPool), locker, outbox,
		adoption.WithLogger(logger.Named("adoption")),
	)

	router := api.NewRouter(api.RouterConfig{
		Appointments:  appointments,
		Adoption:      adoptions,
		Notifications: outbox,
		Health:        api.NewHealthHandler(pgPool, rdb, cfg.Env, cfg.Version),
		Logger:        logger.Named("http"),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			logger.Error("http server failed", zap.Error(err))
			return err
		}
	case <-rootCtx.Done():
	}

	logger.Info("shutting down api-server", zap.Duration("timeout", cfg.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
		return err
	}
	logger.Info("api-server stopped")
	return nil
}
