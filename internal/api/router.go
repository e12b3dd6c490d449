package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/hackgods/vetclinic-scheduling/internal/adoption"
	"github.com/hackgods/vetclinic-scheduling/internal/appointment"
	"github.com/hackgods/vetclinic-scheduling/internal/notification"
	"github.com/hackgods/vetclinic-scheduling/internal/principal"
)

type AppointmentService interface {
	Book(ctx context.Context, actor principal.Principal, in appointment.BookingInput) (*appointment.Appointment, error)
	Cancel(ctx context.Context, actor principal.Principal, id uuid.UUID) error
	Complete(ctx context.Context, actor principal.Principal, id uuid.UUID) (*appointment.Appointment, error)
	GetAppointment(ctx context.Context, actor principal.Principal, id uuid.UUID) (*appointment.AppointmentView, error)
	ListAppointments(ctx context.Context, actor principal.Principal, filter appointment.ListFilter) ([]appointment.AppointmentView, error)
}

type AdoptionService interface {
	CreateListing(ctx context.Context, actor principal.Principal, in adoption.ListingInput) (*adoption.Listing, error)
	SetListingStatus(ctx context.Context, actor principal.Principal, id uuid.UUID, to adoption.ListingStatus) (*adoption.Listing, error)
	ListListings(ctx context.Context, filter adoption.ListingFilter) ([]adoption.Listing, error)
	SubmitRequest(ctx context.Context, actor principal.Principal, listingID uuid.UUID) (*adoption.Request, error)
	ApproveRequest(ctx context.Context, actor principal.Principal, requestID, listingID uuid.UUID) (*adoption.Decision, error)
	RejectRequest(ctx context.Context, actor principal.Principal, requestID uuid.UUID) (*adoption.Request, error)
	ListRequests(ctx context.Context, actor principal.Principal, filter adoption.RequestFilter) ([]adoption.Request, error)
}

type NotificationService interface {
	Broadcast(ctx context.Context, actor principal.Principal, audience, message string, category notification.Category) (*notification.Notification, error)
	List(ctx context.Context, q notification.ListQuery) ([]notification.Notification, error)
	MarkRead(ctx context.Context, p principal.Principal, id uuid.UUID) error
}

type RouterConfig struct {
	Appointments  AppointmentService
	Adoption      AdoptionService
	Notifications NotificationService
	Health        *HealthHandler
	Logger        *zap.Logger
}

// Handler holds the services behind the HTTP surface.
type Handler struct {
	appointments  AppointmentService
	adoption      AdoptionService
	notifications NotificationService
	logger        *zap.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{
		appointments:  cfg.Appointments,
		adoption:      cfg.Adoption,
		notifications: cfg.Notifications,
		logger:        logger,
	}

	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(logger))
	r.Use(middleware.Recoverer)

	if cfg.Health != nil {
		r.Get("/health/live", cfg.Health.Liveness)
		r.Get("/health/ready", cfg.Health.Readiness)
	}
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(PrincipalMiddleware)

		r.Route("/appointments", func(r chi.Router) {
			r.Post("/", h.bookAppointment)
			r.Get("/", h.listAppointments)
			r.Get("/{id}", h.getAppointment)
			r.Post("/{id}/cancel", h.cancelAppointment)
			r.Post("/{id}/complete", h.completeAppointment)
		})

		r.Route("/adoption", func(r chi.Router) {
			r.Get("/listings", h.listListings)
			r.Post("/listings", h.createListing)
			r.Patch("/listings/{id}/status", h.setListingStatus)
			r.Post("/listings/{id}/requests", h.submitAdoptionRequest)
			r.Get("/requests", h.listAdoptionRequests)
			r.Post("/requests/{id}/approve", h.approveAdoptionRequest)
			r.Post("/requests/{id}/reject", h.rejectAdoptionRequest)
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", h.listNotifications)
			r.Post("/broadcast", h.broadcast)
			r.Post("/{id}/read", h.markNotificationRead)
		})
	})

	return r
}
