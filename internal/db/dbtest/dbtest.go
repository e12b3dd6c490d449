// Package dbtest connects integration tests to a real Postgres.
package dbtest

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hackgods/vetclinic-scheduling/internal/db"
)

const EnvDSN = "TEST_POSTGRES_DSN"

// Pool connects to $TEST_POSTGRES_DSN and applies migrations. The test is
// skipped when the variable is unset. Tests share one database, so they must
// create their own rows and never assume an empty table.
func Pool(t testing.TB) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv(EnvDSN)
	if dsn == "" {
		t.Skipf("%s not set", EnvDSN)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn, 20)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = db.Migrate(ctx, pool, zap.NewNop())
	require.NoError(t, err)
	return pool
}

// User inserts a user with the given role and returns its id.
func User(t testing.TB, pool *pgxpool.Pool, role string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := pool.Exec(context.Background(),
		`INSERT INTO users (id, name, email, role) VALUES ($1, $2, $3, $4)`,
		id, gofakeit.Name(), id.String()+"@example.test", role)
	require.NoError(t, err)
	return id
}
