package appointment

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	StatusScheduled AppointmentStatus = "scheduled"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
)

func ParseStatus(raw string) (AppointmentStatus, error) {
	switch s := AppointmentStatus(raw); s {
	case StatusScheduled, StatusCompleted, StatusCancelled:
		return s, nil
	}
	return "", fmt.Errorf("unknown appointment status %q", raw)
}

type Availability string

const (
	AvailabilityAvailable   Availability = "available"
	AvailabilityUnavailable Availability = "unavailable"
)

// DateLayout and TimeLayout are the wire formats for a slot.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// SlotMinutes is the booking granularity.
const SlotMinutes = 30

type Patient struct {
	ID        uuid.UUID
	OwnerID   uuid.UUID
	Name      string
	Species   string
	Breed     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Doctor struct {
	ID           uuid.UUID
	Name         string
	Specialty    *string
	Availability Availability
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Slot identifies one bookable opportunity.
type Slot struct {
	DoctorID uuid.UUID
	Date     time.Time // midnight UTC
	Time     string    // HH:MM
}

func (s Slot) String() string {
	return fmt.Sprintf("doctor %s on %s at %s", s.DoctorID, s.Date.Format(DateLayout), s.Time)
}

func (s Slot) lockKey() string {
	return fmt.Sprintf("slot:%s:%s:%s", s.DoctorID, s.Date.Format(DateLayout), s.Time)
}

type Appointment struct {
	ID             uuid.UUID
	PatientID      uuid.UUID
	DoctorID       uuid.UUID
	Date           time.Time
	Time           string
	Reason         string
	Status         AppointmentStatus
	CreatedBy      uuid.UUID
	ReminderSentAt *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (a Appointment) Slot() Slot {
	return Slot{DoctorID: a.DoctorID, Date: a.Date, Time: a.Time}
}

// StartsAt is the visit start in the clinic's timezone.
func (a Appointment) StartsAt(loc *time.Location) time.Time {
	return slotStart(a.Date, a.Time, loc)
}

func slotStart(date time.Time, hhmm string, loc *time.Location) time.Time {
	tod, err := time.Parse(TimeLayout, hhmm)
	if err != nil {
		return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc)
	}
	return time.Date(date.Year(), date.Month(), date.Day(), tod.Hour(), tod.Minute(), 0, 0, loc)
}

// AppointmentView is an appointment joined with its display data.
type AppointmentView struct {
	Appointment
	PatientName    string
	PatientSpecies string
	OwnerID        uuid.UUID
	OwnerName      string
	DoctorName     string
}

type ListFilter struct {
	OwnerID  *uuid.UUID
	DoctorID *uuid.UUID
	DateFrom *time.Time
	DateTo   *time.Time
	Status   *AppointmentStatus
	Limit    int
	Offset   int
}

// Reminder is a scheduled visit whose owner has not been reminded yet.
type Reminder struct {
	AppointmentID uuid.UUID
	OwnerID       uuid.UUID
	PatientName   string
	DoctorName    string
	Date          time.Time
	Time          string
}
