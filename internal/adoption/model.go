package adoption

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type ListingStatus string

const (
	ListingAvailable ListingStatus = "available"
	ListingPending   ListingStatus = "pending"
	ListingAdopted   ListingStatus = "adopted"
)

func ParseListingStatus(raw string) (ListingStatus, error) {
	switch s := ListingStatus(raw); s {
	case ListingAvailable, ListingPending, ListingAdopted:
		return s, nil
	}
	return "", fmt.Errorf("unknown listing status %q", raw)
}

type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
)

func ParseRequestStatus(raw string) (RequestStatus, error) {
	switch s := RequestStatus(raw); s {
	case RequestPending, RequestApproved, RequestRejected:
		return s, nil
	}
	return "", fmt.Errorf("unknown request status %q", raw)
}

// Listing is a pet posted for adoption.
type Listing struct {
	ID          uuid.UUID
	PostedBy    uuid.UUID
	AnimalName  string
	Species     string
	Age         int
	Description string
	Status      ListingStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Request is one user's bid to adopt a listing.
type Request struct {
	ID          uuid.UUID
	ListingID   uuid.UUID
	RequestedBy uuid.UUID
	Status      RequestStatus
	Date        time.Time
	DecidedBy   *uuid.UUID
	DecidedAt   *time.Time
}

// Decision is the outcome of an approval: the winner, the listing now
// adopted, and every competing request that was rejected with it.
type Decision struct {
	Approved Request
	Listing  Listing
	Rejected []Request
}

type ListingFilter struct {
	Status *ListingStatus
}

type RequestFilter struct {
	ListingID   *uuid.UUID
	RequestedBy *uuid.UUID
	Status      *RequestStatus
}
