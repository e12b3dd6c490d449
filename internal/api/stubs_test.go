package api

import (
	"context"

	"github.com/google/uuid"

	"github.com/hackgods/vetclinic-scheduling/internal/adoption"
	"github.com/hackgods/vetclinic-scheduling/internal/appointment"
	"github.com/hackgods/vetclinic-scheduling/internal/notification"
	"github.com/hackgods/vetclinic-scheduling/internal/principal"
)

type appointmentStub struct {
	bookFn     func(principal.Principal, appointment.BookingInput) (*appointment.Appointment, error)
	cancelFn   func(principal.Principal, uuid.UUID) error
	completeFn func(principal.Principal, uuid.UUID) (*appointment.Appointment, error)
	getFn      func(principal.Principal, uuid.UUID) (*appointment.AppointmentView, error)
	listFn     func(principal.Principal, appointment.ListFilter) ([]appointment.AppointmentView, error)
}

func (s *appointmentStub) Book(ctx context.Context, p principal.Principal, in appointment.BookingInput) (*appointment.Appointment, error) {
	return s.bookFn(p, in)
}

func (s *appointmentStub) Cancel(ctx context.Context, p principal.Principal, id uuid.UUID) error {
	return s.cancelFn(p, id)
}

func (s *appointmentStub) Complete(ctx context.Context, p principal.Principal, id uuid.UUID) (*appointment.Appointment, error) {
	return s.completeFn(p, id)
}

func (s *appointmentStub) GetAppointment(ctx context.Context, p principal.Principal, id uuid.UUID) (*appointment.AppointmentView, error) {
	return s.getFn(p, id)
}

func (s *appointmentStub) ListAppointments(ctx context.Context, p principal.Principal, f appointment.ListFilter) ([]appointment.AppointmentView, error) {
	return s.listFn(p, f)
}

type adoptionStub struct {
	createFn    func(principal.Principal, adoption.ListingInput) (*adoption.Listing, error)
	setStatusFn func(principal.Principal, uuid.UUID, adoption.ListingStatus) (*adoption.Listing, error)
	listFn      func(adoption.ListingFilter) ([]adoption.Listing, error)
	submitFn    func(principal.Principal, uuid.UUID) (*adoption.Request, error)
	approveFn   func(principal.Principal, uuid.UUID, uuid.UUID) (*adoption.Decision, error)
	rejectFn    func(principal.Principal, uuid.UUID) (*adoption.Request, error)
	requestsFn  func(principal.Principal, adoption.RequestFilter) ([]adoption.Request, error)
}

func (s *adoptionStub) CreateListing(ctx context.Context, p principal.Principal, in adoption.ListingInput) (*adoption.Listing, error) {
	return s.createFn(p, in)
}

func (s *adoptionStub) SetListingStatus(ctx context.Context, p principal.Principal, id uuid.UUID, to adoption.ListingStatus) (*adoption.Listing, error) {
	return s.setStatusFn(p, id, to)
}

func (s *adoptionStub) ListListings(ctx context.Context, f adoption.ListingFilter) ([]adoption.Listing, error) {
	return s.listFn(f)
}

func (s *adoptionStub) SubmitRequest(ctx context.Context, p principal.Principal, listingID uuid.UUID) (*adoption.Request, error) {
	return s.submitFn(p, listingID)
}

func (s *adoptionStub) ApproveRequest(ctx context.Context, p principal.Principal, requestID, listingID uuid.UUID) (*adoption.Decision, error) {
	return s.approveFn(p, requestID, listingID)
}

func (s *adoptionStub) RejectRequest(ctx context.Context, p principal.Principal, requestID uuid.UUID) (*adoption.Request, error) {
	return s.rejectFn(p, requestID)
}

func (s *adoptionStub) ListRequests(ctx context.Context, p principal.Principal, f adoption.RequestFilter) ([]adoption.Request, error) {
	return s.requestsFn(p, f)
}

type notificationStub struct {
	broadcastFn func(principal.Principal, string, string, notification.Category) (*notification.Notification, error)
	listFn      func(notification.ListQuery) ([]notification.Notification, error)
	markReadFn  func(principal.Principal, uuid.UUID) error
}

func (s *notificationStub) Broadcast(ctx context.Context, p principal.Principal, audience, message string, c notification.Category) (*notification.Notification, error) {
	return s.broadcastFn(p, audience, message, c)
}

func (s *notificationStub) List(ctx context.Context, q notification.ListQuery) ([]notification.Notification, error) {
	return s.listFn(q)
}

func (s *notificationStub) MarkRead(ctx context.Context, p principal.Principal, id uuid.UUID) error {
	return s.markReadFn(p, id)
}
