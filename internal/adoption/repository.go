package adoption

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrListingNotFound = errors.New("listing not found")
	ErrRequestNotFound = errors.New("adoption request not found")
)

type Store interface {
	InsertListing(ctx context.Context, l *Listing) error
	GetListing(ctx context.Context, id uuid.UUID) (*Listing, error)
	// LockListing reads the listing and holds a row lock until the
	// transaction ends. Only meaningful inside InTx.
	LockListing(ctx context.Context, id uuid.UUID) (*Listing, error)
	ListListings(ctx context.Context, filter ListingFilter) ([]Listing, error)
	UpdateListingStatus(ctx context.Context, id uuid.UUID, to ListingStatus) (*Listing, error)

	HasPendingRequest(ctx context.Context, listingID, userID uuid.UUID) (bool, error)
	// InsertRequest fills ID and Date. A second pending row for the same
	// (listing, user) surfaces as ErrDuplicatePending.
	InsertRequest(ctx context.Context, r *Request) error
	GetRequest(ctx context.Context, id uuid.UUID) (*Request, error)
	LockRequest(ctx context.Context, id uuid.UUID) (*Request, error)
	ListRequests(ctx context.Context, filter RequestFilter) ([]Request, error)
	// DecideRequest is a compare-and-set from pending to approved or rejected.
	// ErrRequestNotFound means no pending row with that id exists.
	DecideRequest(ctx context.Context, id uuid.UUID, to RequestStatus, decidedBy uuid.UUID) (*Request, error)
	// RejectPendingSiblings rejects every other pending request on the listing
	// and returns them.
	RejectPendingSiblings(ctx context.Context, listingID, exceptID, decidedBy uuid.UUID) ([]Request, error)
}

type Repository interface {
	Store
	// InTx runs fn against a Store bound to one transaction. Do not nest.
	InTx(ctx context.Context, fn func(tx Store) error) error
}
