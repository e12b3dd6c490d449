package notification

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/vetclinic-scheduling/internal/apperr"
	"github.com/hackgods/vetclinic-scheduling/internal/metrics"
	"github.com/hackgods/vetclinic-scheduling/internal/principal"
)

// Notifier is what the workflows depend on. Delivery is best-effort: the call
// never returns an error and never fails the caller's operation.
type Notifier interface {
	Notify(ctx context.Context, recipient uuid.UUID, message string, category Category)
}

type Outbox struct {
	repo    Repository
	logger  *zap.Logger
	timeout time.Duration
}

func NewOutbox(repo Repository, logger *zap.Logger, timeout time.Duration) *Outbox {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Outbox{repo: repo, logger: logger, timeout: timeout}
}

// Notify persists a targeted entry. It is detached from the caller's
// cancellation so a client hanging up after commit does not drop it.
func (o *Outbox) Notify(ctx context.Context, recipient uuid.UUID, message string, category Category) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.timeout)
	defer cancel()

	rcpt := recipient
	n := &Notification{RecipientID: &rcpt, Message: message, Category: category}
	if err := o.repo.Insert(ctx, n); err != nil {
		metrics.NotificationFailed()
		o.logger.Warn("notification dropped",
			zap.String("recipient", recipient.String()),
			zap.String("category", string(category)),
			zap.Error(err),
		)
	}
}

// Broadcast posts an entry to every principal of a role, or to everyone with
// AudienceAll. Unlike Notify it is a primary operation and reports errors.
func (o *Outbox) Broadcast(ctx context.Context, actor principal.Principal, audience, message string, category Category) (*Notification, error) {
	if !actor.IsAdmin() {
		return nil, apperr.Forbiddenf("only administrators may broadcast")
	}
	audience = strings.ToLower(strings.TrimSpace(audience))
	if audience != AudienceAll {
		if _, err := principal.ParseRole(audience); err != nil {
			return nil, apperr.Validationf("audience must be a role or %q", AudienceAll)
		}
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, apperr.Validationf("message is required")
	}
	if category == "" {
		category = CategoryGeneral
	}
	if !category.Valid() {
		return nil, apperr.Validationf("unknown category %q", category)
	}

	n := &Notification{Audience: &audience, Message: message, Category: category}
	if err := o.repo.Insert(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

func (o *Outbox) List(ctx context.Context, q ListQuery) ([]Notification, error) {
	if q.Limit <= 0 {
		q.Limit = 20
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	return o.repo.List(ctx, q)
}

func (o *Outbox) MarkRead(ctx context.Context, p principal.Principal, id uuid.UUID) error {
	return o.repo.MarkRead(ctx, id, p)
}
