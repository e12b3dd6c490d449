package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrPatientNotFound     = errors.New("patient not found")
	ErrDoctorNotFound      = errors.New("doctor not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
)

// Store contains all DB interactions needed by the service.
type Store interface {
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error)

	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	GetAppointmentView(ctx context.Context, id uuid.UUID) (*AppointmentView, error)
	ListAppointments(ctx context.Context, filter ListFilter) ([]AppointmentView, error)

	// For conflict checks. Returns ErrAppointmentNotFound when the slot is free.
	FindActiveInSlot(ctx context.Context, slot Slot) (*Appointment, error)

	// InsertAppointment fills ID and timestamps. A concurrent booking of the
	// same slot surfaces as ErrSlotTaken.
	InsertAppointment(ctx context.Context, a *Appointment) error
	// UpdateAppointmentStatus is a compare-and-set; ErrAppointmentNotFound
	// means no row with that id is currently in the from status.
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error)

	// ClaimDueReminders stamps reminder_sent_at on every scheduled visit on day
	// that has none yet and returns the rows it stamped. A row is claimed once.
	ClaimDueReminders(ctx context.Context, day time.Time) ([]Reminder, error)
}

type Repository interface {
	Store
	// InTx runs fn against a Store bound to a single transaction. Do not nest.
	InTx(ctx context.Context, fn func(tx Store) error) error
}
