package notification

import (
	"context"

	"github.com/google/uuid"

	"github.com/hackgods/vetclinic-scheduling/internal/principal"
)

type ListQuery struct {
	Principal  principal.Principal
	UnreadOnly bool
	Limit      int
	Offset     int
}

type Repository interface {
	Insert(ctx context.Context, n *Notification) error
	// List returns entries addressed to the principal directly or through a
	// broadcast to their role or to everyone, newest first.
	List(ctx context.Context, q ListQuery) ([]Notification, error)
	// MarkRead records a read for a visible entry. Returns ErrNotificationNotFound
	// when the entry does not exist or is not addressed to the principal.
	MarkRead(ctx context.Context, id uuid.UUID, p principal.Principal) error
}
