package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"go.uber.org/zap"

	"github.com/hackgods/vetclinic-scheduling/internal/appointment"
	"github.com/hackgods/vetclinic-scheduling/internal/config"
	"github.com/hackgods/vetclinic-scheduling/internal/db"
	"github.com/hackgods/vetclinic-scheduling/internal/logging"
	"github.com/hackgods/vetclinic-scheduling/internal/notification"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Error("config load error", zap.Error(err))
		os.Exit(1)
	}

	logger, err := logging.New(cfg)
	if err != nil {
		zap.NewExample().Error("logger init error", zap.Error(err))
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("reminder-worker starting up",
		zap.String("env", cfg.Env),
		zap.Duration("interval", cfg.WorkerInterval),
		zap.String("timezone", cfg.ClinicLocation.String()),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, cfg.PostgresMaxConn)
	cancelPg()
	if err != nil {
		logger.Fatal("postgres connection error", zap.Error(err))
	}
	defer pgPool.Close()
	logger.Info("connected to Postgres")

	outbox := notification.NewOutbox(notification.NewPgRepository(pgPool), logger.Named("outbox"), cfg.NotifyTimeout)
	// Reminders never book, so no slot locker is needed.
	svc := appointment.NewService(appointment.NewPgRepository(pgPool), nil, outbox,
		appointment.WithLogger(logger.Named("appointment")),
		appointment.WithLocation(cfg.ClinicLocation),
	)

	// Run once at startup
	runOnce(rootCtx, svc, cfg.ClinicLocation, logger)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			logger.Info("shutdown signal received, stopping reminder worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, svc, cfg.ClinicLocation, logger)
		}
	}
}

// runOnce reminds owners about tomorrow's visits, tomorrow being judged on
// the clinic's wall clock.
func runOnce(ctx context.Context, svc *appointment.Service, loc *time.Location, logger *zap.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	start := time.Now()
	tomorrow := start.In(loc).AddDate(0, 0, 1)

	sent, err := svc.SendReminders(runCtx, tomorrow)
	if err != nil {
		logger.Error("reminder run error", zap.Int("sent", sent), zap.Error(err))
		return
	}
	logger.Info("reminder run complete",
		zap.String("day", tomorrow.Format(appointment.DateLayout)),
		zap.Int("sent", sent),
		zap.Duration("took", time.Since(start)),
	)
}
