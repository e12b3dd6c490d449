package adoption

import (
	"context"
	"errors"
	"fmt"
	"strings"

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
	ErrListingNotAvailable = errors.New("listing is not open for requests")
	ErrDuplicatePending    = errors.New("a pending request already exists")
	ErrAlreadyDecided      = errors.New("adoption request already decided")
	ErrInvalidTransition   = errors.New("invalid listing status transition")
	ErrSubmitBusy          = errors.New("a request for this listing is already being filed")
)

type ListingInput struct {
	AnimalName  string `validate:"required,max=100"`
	Species     string `validate:"required,max=50"`
	Age         int    `validate:"gte=0,lte=60"`
	Description string `validate:"max=2000"`
}

type Service struct {
	repo     Repository
	locker   redisclient.Locker
	notifier notification.Notifier
	validate *validator.Validate
	logger   *zap.Logger
}

type Option func(*Service)

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
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
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) CreateListing(ctx context.Context, actor principal.Principal, in ListingInput) (*Listing, error) {
	if !actor.IsAdmin() {
		return nil, apperr.Forbiddenf("only admins can post listings")
	}
	in.AnimalName = strings.TrimSpace(in.AnimalName)
	in.Species = strings.TrimSpace(in.Species)
	if err := s.validate.Struct(in); err != nil {
		return nil, apperr.FromValidator(err)
	}

	l := &Listing{
		PostedBy:    actor.ID,
		AnimalName:  in.AnimalName,
		Species:     in.Species,
		Age:         in.Age,
		Description: strings.TrimSpace(in.Description),
		Status:      ListingAvailable,
	}
	if err := s.repo.InsertListing(ctx, l); err != nil {
		return nil, err
	}
	s.logger.Info("adoption listing created",
		zap.String("listing_id", l.ID.String()),
		zap.String("animal", l.AnimalName),
	)
	return l, nil
}

// SetListingStatus lets an admin pause or reopen a listing. Adoption itself
// only happens through ApproveRequest.
func (s *Service) SetListingStatus(ctx context.Context, actor principal.Principal, id uuid.UUID, to ListingStatus) (*Listing, error) {
	if !actor.IsAdmin() {
		return nil, apperr.Forbiddenf("only admins can change listing status")
	}
	if to != ListingAvailable && to != ListingPending {
		return nil, fmt.Errorf("%w: cannot set %s directly", ErrInvalidTransition, to)
	}

	var updated *Listing
	err := s.repo.InTx(ctx, func(tx Store) error {
		l, err := tx.LockListing(ctx, id)
		if err != nil {
			return err
		}
		if l.Status == ListingAdopted {
			return fmt.Errorf("%w: %s is already adopted", ErrInvalidTransition, l.AnimalName)
		}
		if l.Status == to {
			updated = l
			return nil
		}
		updated, err = tx.UpdateListingStatus(ctx, id, to)
		return err
	})
	if err != nil {
		return nil, wrapStore(err, "set listing status")
	}
	return updated, nil
}

// ListListings returns listings newest first.
func (s *Service) ListListings(ctx context.Context, filter ListingFilter) ([]Listing, error) {
	listings, err := s.repo.ListListings(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list listings: %w", err)
	}
	return listings, nil
}

// SubmitRequest files a pending request for the actor. A user may hold at
// most one pending request per listing.
func (s *Service) SubmitRequest(ctx context.Context, actor principal.Principal, listingID uuid.UUID) (*Request, error) {
	if actor.Role != principal.RoleOwner && !actor.IsAdmin() {
		return nil, apperr.Forbiddenf("role %s cannot request adoptions", actor.Role)
	}

	var created *Request
	key := "adoption:" + listingID.String() + ":" + actor.ID.String()
	err := s.locker.WithLock(ctx, key, func(lockCtx context.Context) error {
		return s.repo.InTx(lockCtx, func(tx Store) error {
			l, err := tx.LockListing(lockCtx, listingID)
			if err != nil {
				return err
			}
			if l.Status != ListingAvailable {
				return fmt.Errorf("%w: %s is %s", ErrListingNotAvailable, l.AnimalName, l.Status)
			}

			dup, err := tx.HasPendingRequest(lockCtx, listingID, actor.ID)
			if err != nil {
				return fmt.Errorf("check pending: %w", err)
			}
			if dup {
				return fmt.Errorf("%w: listing %s", ErrDuplicatePending, listingID)
			}

			rq := &Request{ListingID: listingID, RequestedBy: actor.ID, Status: RequestPending}
			if err := tx.InsertRequest(lockCtx, rq); err != nil {
				return err
			}
			created = rq
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, fmt.Errorf("%w: listing %s", ErrSubmitBusy, listingID)
		}
		return nil, wrapStore(err, "submit request")
	}

	s.logger.Info("adoption request submitted",
		zap.String("request_id", created.ID.String()),
		zap.String("listing_id", listingID.String()),
		zap.String("requested_by", actor.ID.String()),
	)
	return created, nil
}

// ApproveRequest approves one pending request, marks the listing adopted and
// rejects every competing pending request in the same transaction. All parties
// are notified after commit.
func (s *Service) ApproveRequest(ctx context.Context, actor principal.Principal, requestID, listingID uuid.UUID) (*Decision, error) {
	if !actor.IsAdmin() {
		return nil, apperr.Forbiddenf("only admins can approve adoption requests")
	}

	// Lock order is listing, then request. RejectPendingSiblings touches
	// sibling rows, so a request lock taken first can deadlock.
	var d Decision
	err := s.repo.InTx(ctx, func(tx Store) error {
		l, err := tx.LockListing(ctx, listingID)
		if err != nil {
			return err
		}
		rq, err := tx.LockRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if rq.ListingID != listingID {
			return apperr.Validationf("request %s does not belong to listing %s", requestID, listingID)
		}
		if rq.Status != RequestPending {
			return fmt.Errorf("%w: request %s is %s", ErrAlreadyDecided, rq.ID, rq.Status)
		}
		if l.Status == ListingAdopted {
			return fmt.Errorf("%w: %s is already adopted", ErrAlreadyDecided, l.AnimalName)
		}

		approved, err := tx.DecideRequest(ctx, rq.ID, RequestApproved, actor.ID)
		if err != nil {
			return err
		}
		listing, err := tx.UpdateListingStatus(ctx, listingID, ListingAdopted)
		if err != nil {
			return err
		}
		rejected, err := tx.RejectPendingSiblings(ctx, listingID, rq.ID, actor.ID)
		if err != nil {
			return fmt.Errorf("reject competing requests: %w", err)
		}

		d = Decision{Approved: *approved, Listing: *listing, Rejected: rejected}
		return nil
	})
	if err != nil {
		return nil, wrapStore(err, "approve request")
	}

	metrics.ObserveAdoptionDecision(string(RequestApproved), 1)
	metrics.ObserveAdoptionDecision(string(RequestRejected), len(d.Rejected))
	s.logger.Info("adoption request approved",
		zap.String("request_id", d.Approved.ID.String()),
		zap.String("listing_id", listingID.String()),
		zap.Int("rejected", len(d.Rejected)),
	)

	s.notify(ctx, d.Approved.RequestedBy,
		fmt.Sprintf("Your adoption request for %s was approved.", d.Listing.AnimalName),
		notification.CategoryAdoptionApproved)
	for _, rq := range d.Rejected {
		s.notify(ctx, rq.RequestedBy,
			fmt.Sprintf("Your adoption request for %s was not approved; %s has found another home.", d.Listing.AnimalName, d.Listing.AnimalName),
			notification.CategoryAdoptionRejected)
	}
	return &d, nil
}

func (s *Service) RejectRequest(ctx context.Context, actor principal.Principal, requestID uuid.UUID) (*Request, error) {
	if !actor.IsAdmin() {
		return nil, apperr.Forbiddenf("only admins can reject adoption requests")
	}

	rq, err := s.repo.DecideRequest(ctx, requestID, RequestRejected, actor.ID)
	if err != nil {
		if !errors.Is(err, ErrRequestNotFound) {
			return nil, fmt.Errorf("reject request: %w", err)
		}
		// No pending row: either it never existed or it was already decided.
		current, getErr := s.repo.GetRequest(ctx, requestID)
		if getErr != nil {
			return nil, wrapStore(getErr, "reload request")
		}
		return nil, fmt.Errorf("%w: request %s is %s", ErrAlreadyDecided, current.ID, current.Status)
	}

	metrics.ObserveAdoptionDecision(string(RequestRejected), 1)
	s.logger.Info("adoption request rejected", zap.String("request_id", rq.ID.String()))

	msg := "Your adoption request was rejected."
	if l, err := s.repo.GetListing(ctx, rq.ListingID); err == nil {
		msg = fmt.Sprintf("Your adoption request for %s was rejected.", l.AnimalName)
	}
	s.notify(ctx, rq.RequestedBy, msg, notification.CategoryAdoptionRejected)
	return rq, nil
}

// ListRequests returns requests newest first. Owners only see their own.
func (s *Service) ListRequests(ctx context.Context, actor principal.Principal, filter RequestFilter) ([]Request, error) {
	if !actor.IsClinicStaff() {
		id := actor.ID
		filter.RequestedBy = &id
	}
	requests, err := s.repo.ListRequests(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	return requests, nil
}

func (s *Service) notify(ctx context.Context, recipient uuid.UUID, message string, category notification.Category) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, recipient, message, category)
}

// wrapStore passes domain errors through untouched and labels the rest.
func wrapStore(err error, op string) error {
	for _, known := range []error{
		ErrListingNotFound, ErrRequestNotFound, ErrListingNotAvailable,
		ErrDuplicatePending, ErrAlreadyDecided, ErrInvalidTransition, ErrSubmitBusy,
		apperr.ErrValidation, apperr.ErrForbidden,
	} {
		if errors.Is(err, known) {
			return err
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
