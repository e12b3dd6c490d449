package notification

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type Category string

const (
	CategoryAppointment      Category = "appointment"
	CategoryAdoptionApproved Category = "adoption_approved"
	CategoryAdoptionRejected Category = "adoption_rejected"
	CategoryGeneral          Category = "general"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryAppointment, CategoryAdoptionApproved, CategoryAdoptionRejected, CategoryGeneral:
		return true
	}
	return false
}

// AudienceAll addresses a broadcast to every principal regardless of role.
const AudienceAll = "all"

var ErrNotificationNotFound = errors.New("notification not found")

// Notification is one outbox entry. Targeted entries carry RecipientID,
// broadcasts carry Audience instead.
type Notification struct {
	ID          uuid.UUID
	RecipientID *uuid.UUID
	Audience    *string
	Message     string
	Category    Category
	CreatedAt   time.Time
	Read        bool
}
