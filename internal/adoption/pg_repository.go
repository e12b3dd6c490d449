package adoption

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackgods/vetclinic-scheduling/internal/db"
)

const (
	pendingIndex  = "adoption_requests_pending_uq"
	approvedIndex = "adoption_requests_approved_uq"
)

type PgRepository struct {
	pool *pgxpool.Pool
	q    db.DBTX
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool, q: pool}
}

func (r *PgRepository) InTx(ctx context.Context, fn func(tx Store) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(&PgRepository{pool: r.pool, q: tx})
	})
}

const listingColumns = `id, posted_by, animal_name, species, age, description, status, created_at, updated_at`

func scanListing(row pgx.Row) (*Listing, error) {
	var l Listing
	err := row.Scan(&l.ID, &l.PostedBy, &l.AnimalName, &l.Species, &l.Age,
		&l.Description, &l.Status, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrListingNotFound
		}
		return nil, err
	}
	return &l, nil
}

const requestColumns = `id, listing_id, requested_by, status, requested_at, decided_by, decided_at`

func scanRequest(row pgx.Row) (*Request, error) {
	var rq Request
	err := row.Scan(&rq.ID, &rq.ListingID, &rq.RequestedBy, &rq.Status,
		&rq.Date, &rq.DecidedBy, &rq.DecidedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	return &rq, nil
}

func collectRequests(rows pgx.Rows) ([]Request, error) {
	defer rows.Close()
	var out []Request
	for rows.Next() {
		rq, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rq)
	}
	return out, rows.Err()
}

func (r *PgRepository) InsertListing(ctx context.Context, l *Listing) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	err := r.q.QueryRow(ctx, `
		INSERT INTO adoption_listings (id, posted_by, animal_name, species, age, description, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`, l.ID, l.PostedBy, l.AnimalName, l.Species, l.Age, l.Description, l.Status).
		Scan(&l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert listing: %w", err)
	}
	return nil
}

func (r *PgRepository) GetListing(ctx context.Context, id uuid.UUID) (*Listing, error) {
	return scanListing(r.q.QueryRow(ctx, `SELECT `+listingColumns+` FROM adoption_listings WHERE id = $1`, id))
}

func (r *PgRepository) LockListing(ctx context.Context, id uuid.UUID) (*Listing, error) {
	return scanListing(r.q.QueryRow(ctx, `SELECT `+listingColumns+` FROM adoption_listings WHERE id = $1 FOR UPDATE`, id))
}

func (r *PgRepository) ListListings(ctx context.Context, f ListingFilter) ([]Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM adoption_listings`
	var args []any
	if f.Status != nil {
		args = append(args, string(*f.Status))
		query += ` WHERE status = $1`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}

func (r *PgRepository) UpdateListingStatus(ctx context.Context, id uuid.UUID, to ListingStatus) (*Listing, error) {
	return scanListing(r.q.QueryRow(ctx, `
		UPDATE adoption_listings
		SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+listingColumns, id, to))
}

func (r *PgRepository) HasPendingRequest(ctx context.Context, listingID, userID uuid.UUID) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM adoption_requests
			WHERE listing_id = $1 AND requested_by = $2 AND status = 'pending'
		)
	`, listingID, userID).Scan(&exists)
	return exists, err
}

func (r *PgRepository) InsertRequest(ctx context.Context, rq *Request) error {
	if rq.ID == uuid.Nil {
		rq.ID = uuid.New()
	}
	err := r.q.QueryRow(ctx, `
		INSERT INTO adoption_requests (id, listing_id, requested_by, status)
		VALUES ($1, $2, $3, $4)
		RETURNING requested_at
	`, rq.ID, rq.ListingID, rq.RequestedBy, rq.Status).Scan(&rq.Date)
	if err != nil {
		if db.IsUniqueViolation(err, pendingIndex) {
			return fmt.Errorf("%w: listing %s", ErrDuplicatePending, rq.ListingID)
		}
		return fmt.Errorf("insert adoption request: %w", err)
	}
	return nil
}

func (r *PgRepository) GetRequest(ctx context.Context, id uuid.UUID) (*Request, error) {
	return scanRequest(r.q.QueryRow(ctx, `SELECT `+requestColumns+` FROM adoption_requests WHERE id = $1`, id))
}

func (r *PgRepository) LockRequest(ctx context.Context, id uuid.UUID) (*Request, error) {
	return scanRequest(r.q.QueryRow(ctx, `SELECT `+requestColumns+` FROM adoption_requests WHERE id = $1 FOR UPDATE`, id))
}

func (r *PgRepository) ListRequests(ctx context.Context, f RequestFilter) ([]Request, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.ListingID != nil {
		add("listing_id = $%d", *f.ListingID)
	}
	if f.RequestedBy != nil {
		add("requested_by = $%d", *f.RequestedBy)
	}
	if f.Status != nil {
		add("status = $%d", string(*f.Status))
	}

	query := `SELECT ` + requestColumns + ` FROM adoption_requests`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY requested_at DESC`

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectRequests(rows)
}

func (r *PgRepository) DecideRequest(ctx context.Context, id uuid.UUID, to RequestStatus, decidedBy uuid.UUID) (*Request, error) {
	rq, err := scanRequest(r.q.QueryRow(ctx, `
		UPDATE adoption_requests
		SET status = $2, decided_by = $3, decided_at = now()
		WHERE id = $1 AND status = 'pending'
		RETURNING `+requestColumns, id, to, decidedBy))
	if err != nil && db.IsUniqueViolation(err, approvedIndex) {
		return nil, fmt.Errorf("%w: listing already has an approved request", ErrAlreadyDecided)
	}
	return rq, err
}

func (r *PgRepository) RejectPendingSiblings(ctx context.Context, listingID, exceptID, decidedBy uuid.UUID) ([]Request, error) {
	rows, err := r.q.Query(ctx, `
		UPDATE adoption_requests
		SET status = 'rejected', decided_by = $3, decided_at = now()
		WHERE listing_id = $1 AND id <> $2 AND status = 'pending'
		RETURNING `+requestColumns, listingID, exceptID, decidedBy)
	if err != nil {
		return nil, err
	}
	return collectRequests(rows)
}
