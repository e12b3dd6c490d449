package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Migration is one forward-only schema step.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations is the list of all migrations in order
var migrations = []Migration{
	{
		Version: 1,
		Name:    "create_clinic_tables",
		SQL: `
CREATE TABLE users (
	id         UUID PRIMARY KEY,
	name       TEXT NOT NULL,
	email      TEXT UNIQUE,
	role       TEXT NOT NULL CHECK (role IN ('admin', 'staff', 'doctor', 'owner')),
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE doctors (
	id           UUID PRIMARY KEY,
	name         TEXT NOT NULL,
	specialty    TEXT,
	availability TEXT NOT NULL DEFAULT 'available' CHECK (availability IN ('available', 'unavailable')),
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE patients (
	id         UUID PRIMARY KEY,
	owner_id   UUID NOT NULL REFERENCES users(id),
	name       TEXT NOT NULL,
	species    TEXT NOT NULL,
	breed      TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX patients_owner_idx ON patients(owner_id);`,
	},
	{
		Version: 2,
		Name:    "create_appointments",
		SQL: `
CREATE TABLE appointments (
	id               UUID PRIMARY KEY,
	patient_id       UUID NOT NULL REFERENCES patients(id),
	doctor_id        UUID NOT NULL REFERENCES doctors(id),
	appointment_date DATE NOT NULL,
	appointment_time TIME NOT NULL,
	reason           TEXT NOT NULL DEFAULT '',
	status           TEXT NOT NULL DEFAULT 'scheduled' CHECK (status IN ('scheduled', 'completed', 'cancelled')),
	created_by       UUID NOT NULL,
	reminder_sent_at TIMESTAMPTZ,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE UNIQUE INDEX appointments_slot_active_uq
	ON appointments(doctor_id, appointment_date, appointment_time)
	WHERE status <> 'cancelled';
CREATE INDEX appointments_patient_idx ON appointments(patient_id);
CREATE INDEX appointments_date_idx ON appointments(appointment_date DESC, appointment_time DESC);`,
	},
	{
		Version: 3,
		Name:    "create_adoption_tables",
		SQL: `
CREATE TABLE adoption_listings (
	id          UUID PRIMARY KEY,
	posted_by   UUID NOT NULL REFERENCES users(id),
	animal_name TEXT NOT NULL,
	species     TEXT NOT NULL,
	age         INTEGER NOT NULL CHECK (age >= 0),
	description TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL DEFAULT 'available' CHECK (status IN ('available', 'pending', 'adopted')),
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE adoption_requests (
	id           UUID PRIMARY KEY,
	listing_id   UUID NOT NULL REFERENCES adoption_listings(id),
	requested_by UUID NOT NULL REFERENCES users(id),
	status       TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'approved', 'rejected')),
	requested_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	decided_by   UUID,
	decided_at   TIMESTAMPTZ
);
CREATE UNIQUE INDEX adoption_requests_pending_uq
	ON adoption_requests(listing_id, requested_by)
	WHERE status = 'pending';
CREATE UNIQUE INDEX adoption_requests_approved_uq
	ON adoption_requests(listing_id)
	WHERE status = 'approved';`,
	},
	{
		Version: 4,
		Name:    "create_notification_outbox",
		SQL: `
CREATE TABLE notifications (
	id           UUID PRIMARY KEY,
	recipient_id UUID,
	audience     TEXT,
	message      TEXT NOT NULL,
	category     TEXT NOT NULL CHECK (category IN ('appointment', 'adoption_approved', 'adoption_rejected', 'general')),
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	CHECK (recipient_id IS NOT NULL OR audience IS NOT NULL)
);
CREATE INDEX notifications_recipient_idx ON notifications(recipient_id, created_at DESC);

CREATE TABLE notification_reads (
	notification_id UUID NOT NULL REFERENCES notifications(id) ON DELETE CASCADE,
	principal_id    UUID NOT NULL,
	read_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (notification_id, principal_id)
);`,
	},
}

// migrationLockKey serialises concurrent migrators (two api-server replicas
// starting at once) on a session advisory lock.
const migrationLockKey = 727_001

// Migrate applies every migration newer than the recorded schema version.
// It is run once at deploy or startup, never per request.
func Migrate(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) (int, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire conn: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, `SELECT pg_advisory_lock($1)`, migrationLockKey); err != nil {
		return 0, fmt.Errorf("acquire migration lock: %w", err)
	}
	defer func() {
		_, _ = conn.Exec(context.WithoutCancel(ctx), `SELECT pg_advisory_unlock($1)`, migrationLockKey)
	}()

	if _, err := conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			name       TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`); err != nil {
		return 0, fmt.Errorf("create schema_migrations: %w", err)
	}

	var current int
	if err := conn.QueryRow(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}

	applied := 0
	for _, m := range Pending(current) {
		err := pgx.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, m.SQL); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`, m.Version, m.Name)
			return err
		})
		if err != nil {
			return applied, fmt.Errorf("migration %d (%s): %w", m.Version, m.Name, err)
		}
		logger.Info("migration applied", zap.Int("version", m.Version), zap.String("name", m.Name))
		applied++
	}

	return applied, nil
}

// Pending returns the migrations with a version above current, in order.
func Pending(current int) []Migration {
	var out []Migration
	for _, m := range migrations {
		if m.Version > current {
			out = append(out, m)
		}
	}
	return out
}
