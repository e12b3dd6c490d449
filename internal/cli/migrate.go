package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hackgods/vetclinic-scheduling/internal/config"
	"github.com/hackgods/vetclinic-scheduling/internal/db"
	"github.com/hackgods/vetclinic-scheduling/internal/logging"
)

// connect loads config and opens the pool every subcommand works against.
func connect(ctx context.Context) (*pgxpool.Pool, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(cfg)
	if err != nil {
		return nil, nil, err
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	pool, err := db.ConnectPostgres(connectCtx, cfg.PostgresDSN, 2)
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	return pool, logger, nil
}

func MigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Long: `Apply every migration newer than the version recorded in schema_migrations.
Safe to run from several hosts at once; migrators queue on an advisory lock.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, logger, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()
			defer func() { _ = logger.Sync() }()

			applied, err := db.Migrate(cmd.Context(), pool, logger)
			if err != nil {
				return fmt.Errorf("migrate: %w", err)
			}

			if applied == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Applied %d migration(s)\n", applied)
			return nil
		},
	}
}
