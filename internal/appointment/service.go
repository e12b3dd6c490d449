package appointment

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/vetclinic-scheduling/internal/apperr"
	"github.com/hackgods/vetclinic-scheduling/internal/metrics"
	"github.com/hackgods/vetclinic-scheduling/internal/notification"
	"github.com/hackgods/vetclinic-scheduling/internal/principal"
	redisclient "github.com/hackgods/vetclinic-scheduling/internal/redis"
)

var (
	ErrSlotTaken         = errors.New("slot already booked")
	ErrSlotBusy          = errors.New("slot is currently being booked, please retry")
	ErrDoctorUnavailable = errors.New("doctor is not available for booking")
	ErrInvalidState      = errors.New("invalid appointment state")
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// BookingInput is a booking intent as received from a caller.
type BookingInput struct {
	PatientID uuid.UUID `validate:"required"`
	DoctorID  uuid.UUID `validate:"required"`
	Date      string    `validate:"required,datetime=2006-01-02"`
	Time      string    `validate:"required,datetime=15:04"`
	Reason    string    `validate:"max=500"`
}

type Service struct {
	repo     Repository
	locker   redisclient.Locker
	notifier notification.Notifier
	validate *validator.Validate
	logger   *zap.Logger
	loc      *time.Location
	now      func() time.Time
}

type Option func(*Service)

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithLocation sets the clinic timezone used to judge whether a slot is past.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func WithValidator(v *validator.Validate) Option {
	return func(s *Service) {
		if v != nil {
			s.validate = v
		}
	}
}

func NewService(repo Repository, locker redisclient.Locker, notifier notification.Notifier, opts ...Option) *Service {
	if locker == nil {
		locker = redisclient.NoopLocker{}
	}
	s := &Service{
		repo:     repo,
		locker:   locker,
		notifier: notifier,
		validate: validator.New(),
		logger:   zap.NewNop(),
		loc:      time.UTC,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Book reserves a slot for a patient. The Redis lock keeps concurrent callers
// for the same slot from piling onto the database; the transactional check and
// the partial unique index on active slots are what guarantee one booking.
func (s *Service) Book(ctx context.Context, actor principal.Principal, in BookingInput) (*Appointment, error) {
	appt, err := s.book(ctx, actor, in)
	metrics.ObserveBooking(bookingOutcome(err))
	return appt, err
}

func (s *Service) book(ctx context.Context, actor principal.Principal, in BookingInput) (*Appointment, error) {
	slot, err := s.validateBooking(in)
	if err != nil {
		return nil, err
	}

	patient, err := s.repo.GetPatientByID(ctx, in.PatientID)
	if err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load patient: %w", err)
	}

	switch {
	case actor.IsClinicStaff():
	case actor.Role == principal.RoleOwner && patient.OwnerID == actor.ID:
	default:
		return nil, apperr.Forbiddenf("cannot book for patient %s", patient.ID)
	}

	doctor, err := s.repo.GetDoctorByID(ctx, in.DoctorID)
	if err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load doctor: %w", err)
	}
	if doctor.Availability != AvailabilityAvailable {
		return nil, fmt.Errorf("%w: %s", ErrDoctorUnavailable, doctor.Name)
	}

	var created *Appointment

	err = s.locker.WithLock(ctx, slot.lockKey(), func(lockCtx context.Context) error {
		return s.repo.InTx(lockCtx, func(tx Store) error {
			existing, err := tx.FindActiveInSlot(lockCtx, slot)
			if err != nil && !errors.Is(err, ErrAppointmentNotFound) {
				return fmt.Errorf("check slot: %w", err)
			}
			if existing != nil {
				return fmt.Errorf("%w: %s", ErrSlotTaken, slot)
			}

			appt := &Appointment{
				PatientID: patient.ID,
				DoctorID:  doctor.ID,
				Date:      slot.Date,
				Time:      slot.Time,
				Reason:    strings.TrimSpace(in.Reason),
				Status:    StatusScheduled,
				CreatedBy: actor.ID,
			}
			if err := tx.InsertAppointment(lockCtx, appt); err != nil {
				return err
			}
			created = appt
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, fmt.Errorf("%w: %s", ErrSlotBusy, slot)
		}
		return nil, err
	}

	s.logger.Info("appointment booked",
		zap.String("appointment_id", created.ID.String()),
		zap.String("slot", slot.String()),
		zap.String("booked_by", actor.ID.String()),
	)

	if actor.ID != patient.OwnerID {
		s.notify(ctx, patient.OwnerID, fmt.Sprintf("An appointment for %s with %s was booked on %s at %s.",
			patient.Name, doctor.Name, slot.Date.Format(DateLayout), slot.Time))
	}

	return created, nil
}

func (s *Service) validateBooking(in BookingInput) (Slot, error) {
	if err := s.validate.Struct(in); err != nil {
		return Slot{}, apperr.FromValidator(err)
	}

	date, err := time.Parse(DateLayout, in.Date)
	if err != nil {
		return Slot{}, apperr.Validationf("date must be YYYY-MM-DD")
	}
	tod, err := time.Parse(TimeLayout, in.Time)
	if err != nil {
		return Slot{}, apperr.Validationf("time must be HH:MM")
	}
	if tod.Minute()%SlotMinutes != 0 {
		return Slot{}, apperr.Validationf("time must fall on a %d minute boundary", SlotMinutes)
	}

	slot := Slot{DoctorID: in.DoctorID, Date: date, Time: tod.Format(TimeLayout)}
	if slotStart(slot.Date, slot.Time, s.loc).Before(s.now()) {
		return Slot{}, apperr.Validationf("slot %s %s is in the past", in.Date, slot.Time)
	}
	return slot, nil
}

// Cancel frees the slot. Only the pet's owner or an admin may cancel, and only
// before the visit starts. Cancelling twice is a no-op.
func (s *Service) Cancel(ctx context.Context, actor principal.Principal, id uuid.UUID) error {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return err
		}
		return fmt.Errorf("load appointment: %w", err)
	}

	patient, err := s.repo.GetPatientByID(ctx, appt.PatientID)
	if err != nil {
		return fmt.Errorf("load patient: %w", err)
	}

	isOwner := actor.Role == principal.RoleOwner && patient.OwnerID == actor.ID
	if !isOwner && !actor.IsAdmin() {
		return apperr.Forbiddenf("cannot cancel appointment %s", appt.ID)
	}

	switch appt.Status {
	case StatusCancelled:
		return nil
	case StatusCompleted:
		return fmt.Errorf("%w: appointment %s is already completed", ErrInvalidState, appt.ID)
	}

	if !s.now().Before(appt.StartsAt(s.loc)) {
		return fmt.Errorf("%w: the visit on %s at %s has already started", ErrInvalidState, appt.Date.Format(DateLayout), appt.Time)
	}

	_, err = s.repo.UpdateAppointmentStatus(ctx, appt.ID, StatusScheduled, StatusCancelled)
	if err != nil {
		if !errors.Is(err, ErrAppointmentNotFound) {
			return fmt.Errorf("cancel appointment: %w", err)
		}
		// Lost a race with another transition; judge by what won.
		current, getErr := s.repo.GetAppointmentByID(ctx, appt.ID)
		if getErr != nil {
			return fmt.Errorf("reload appointment: %w", getErr)
		}
		if current.Status == StatusCancelled {
			return nil
		}
		return fmt.Errorf("%w: appointment %s is %s", ErrInvalidState, current.ID, current.Status)
	}

	s.logger.Info("appointment cancelled",
		zap.String("appointment_id", appt.ID.String()),
		zap.String("cancelled_by", actor.ID.String()),
	)

	if actor.ID != patient.OwnerID {
		s.notify(ctx, patient.OwnerID, fmt.Sprintf("The appointment for %s on %s at %s was cancelled by the clinic.",
			patient.Name, appt.Date.Format(DateLayout), appt.Time))
	}
	return nil
}

// Complete records that the visit took place.
func (s *Service) Complete(ctx context.Context, actor principal.Principal, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load appointment: %w", err)
	}

	assigned := actor.Role == principal.RoleDoctor && appt.DoctorID == actor.ID
	if !assigned && !actor.IsClinicStaff() {
		return nil, apperr.Forbiddenf("cannot complete appointment %s", appt.ID)
	}

	switch appt.Status {
	case StatusCompleted:
		return appt, nil
	case StatusCancelled:
		return nil, fmt.Errorf("%w: appointment %s was cancelled", ErrInvalidState, appt.ID)
	}

	updated, err := s.repo.UpdateAppointmentStatus(ctx, appt.ID, StatusScheduled, StatusCompleted)
	if err != nil {
		if !errors.Is(err, ErrAppointmentNotFound) {
			return nil, fmt.Errorf("complete appointment: %w", err)
		}
		current, getErr := s.repo.GetAppointmentByID(ctx, appt.ID)
		if getErr != nil {
			return nil, fmt.Errorf("reload appointment: %w", getErr)
		}
		if current.Status == StatusCompleted {
			return current, nil
		}
		return nil, fmt.Errorf("%w: appointment %s is %s", ErrInvalidState, current.ID, current.Status)
	}
	return updated, nil
}

// GetAppointment returns a hydrated appointment the actor is allowed to see.
func (s *Service) GetAppointment(ctx context.Context, actor principal.Principal, id uuid.UUID) (*AppointmentView, error) {
	view, err := s.repo.GetAppointmentView(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get appointment: %w", err)
	}

	switch actor.Role {
	case principal.RoleOwner:
		if view.OwnerID != actor.ID {
			return nil, ErrAppointmentNotFound
		}
	case principal.RoleDoctor:
		if view.DoctorID != actor.ID {
			return nil, ErrAppointmentNotFound
		}
	}
	return view, nil
}

// ListAppointments returns the newest visits first. Owners only ever see their
// own pets and doctors only their own schedule.
func (s *Service) ListAppointments(ctx context.Context, actor principal.Principal, filter ListFilter) ([]AppointmentView, error) {
	switch actor.Role {
	case principal.RoleOwner:
		id := actor.ID
		filter.OwnerID = &id
	case principal.RoleDoctor:
		id := actor.ID
		filter.DoctorID = &id
	}

	if filter.DateFrom != nil && filter.DateTo != nil && filter.DateTo.Before(*filter.DateFrom) {
		return nil, apperr.Validationf("date_to is before date_from")
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	appointments, err := s.repo.ListAppointments(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return appointments, nil
}

// SendReminders notifies owners about scheduled visits on day and returns how
// many reminders went out. Rows are claimed before anyone is notified, so a
// second worker on the same tick finds nothing left to send.
func (s *Service) SendReminders(ctx context.Context, day time.Time) (int, error) {
	day = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)

	due, err := s.repo.ClaimDueReminders(ctx, day)
	if err != nil {
		return 0, fmt.Errorf("claim due reminders: %w", err)
	}

	sort.Slice(due, func(i, j int) bool { return due[i].Time < due[j].Time })
	for _, rm := range due {
		s.notify(ctx, rm.OwnerID, fmt.Sprintf("Reminder: %s sees %s on %s at %s.",
			rm.PatientName, rm.DoctorName, rm.Date.Format(DateLayout), rm.Time))
	}
	return len(due), nil
}

func (s *Service) notify(ctx context.Context, recipient uuid.UUID, message string) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, recipient, message, notification.CategoryAppointment)
}

func bookingOutcome(err error) string {
	switch {
	case err == nil:
		return metrics.BookingBooked
	case errors.Is(err, ErrSlotTaken):
		return metrics.BookingTaken
	case errors.Is(err, ErrSlotBusy):
		return metrics.BookingBusy
	case errors.Is(err, apperr.ErrValidation),
		errors.Is(err, apperr.ErrForbidden),
		errors.Is(err, ErrPatientNotFound),
		errors.Is(err, ErrDoctorNotFound),
		errors.Is(err, ErrDoctorUnavailable):
		return metrics.BookingRejected
	default:
		return metrics.BookingError
	}
}
