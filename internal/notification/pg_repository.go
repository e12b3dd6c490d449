package notification

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackgods/vetclinic-scheduling/internal/principal"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func (r *PgRepository) Insert(ctx context.Context, n *Notification) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO notifications (id, recipient_id, audience, message, category, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		RETURNING created_at
	`, n.ID, n.RecipientID, n.Audience, n.Message, n.Category).Scan(&n.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

const visibleTo = `(n.recipient_id = $1 OR n.audience = $2 OR n.audience = 'all')`

func (r *PgRepository) List(ctx context.Context, q ListQuery) ([]Notification, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT n.id, n.recipient_id, n.audience, n.message, n.category, n.created_at,
		       (nr.notification_id IS NOT NULL) AS read
		FROM notifications n
		LEFT JOIN notification_reads nr
		       ON nr.notification_id = n.id AND nr.principal_id = $1
		WHERE `+visibleTo+`
		  AND (NOT $3 OR nr.notification_id IS NULL)
		ORDER BY n.created_at DESC
		LIMIT $4 OFFSET $5
	`, q.Principal.ID, string(q.Principal.Role), q.UnreadOnly, q.Limit, q.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.RecipientID, &n.Audience, &n.Message, &n.Category, &n.CreatedAt, &n.Read); err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	return result, rows.Err()
}

func (r *PgRepository) MarkRead(ctx context.Context, id uuid.UUID, p principal.Principal) error {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO notification_reads (notification_id, principal_id)
		SELECT n.id, $1 FROM notifications n
		WHERE n.id = $3 AND `+visibleTo+`
		ON CONFLICT (notification_id, principal_id) DO NOTHING
	`, p.ID, string(p.Role), id)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Either invisible or already read; tell them apart.
		var visible bool
		err := r.pool.QueryRow(ctx, `
			SELECT EXISTS (SELECT 1 FROM notifications n WHERE n.id = $3 AND `+visibleTo+`)
		`, p.ID, string(p.Role), id).Scan(&visible)
		if err != nil {
			return err
		}
		if !visible {
			return ErrNotificationNotFound
		}
	}
	return nil
}
