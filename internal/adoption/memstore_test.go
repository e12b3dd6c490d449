package adoption

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/vetclinic-scheduling/internal/notification"
)

// memRepo is an in-memory Repository. Transactions are serialised, which
// stands in for the row locks, and a failed fn restores the pre-tx state.
type memRepo struct {
	txMu sync.Mutex
	mu   sync.Mutex

	listings map[uuid.UUID]*Listing
	requests map[uuid.UUID]*Request
	seq      time.Time

	failSiblings error
	locks        []string
}

func newMemRepo() *memRepo {
	return &memRepo{
		listings: make(map[uuid.UUID]*Listing),
		requests: make(map[uuid.UUID]*Request),
		seq:      time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
	}
}

// tick returns strictly increasing timestamps so ordering is deterministic.
func (m *memRepo) tick() time.Time {
	m.seq = m.seq.Add(time.Minute)
	return m.seq
}

func (m *memRepo) addListing(name string, status ListingStatus) *Listing {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.tick()
	l := &Listing{ID: uuid.New(), PostedBy: uuid.New(), AnimalName: name, Species: "cat", Age: 2, Status: status, CreatedAt: now, UpdatedAt: now}
	m.listings[l.ID] = l
	cp := *l
	return &cp
}

func (m *memRepo) addRequest(listingID, userID uuid.UUID, status RequestStatus) *Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	rq := &Request{ID: uuid.New(), ListingID: listingID, RequestedBy: userID, Status: status, Date: m.tick()}
	m.requests[rq.ID] = rq
	cp := *rq
	return &cp
}

func (m *memRepo) listing(id uuid.UUID) Listing {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.listings[id]
}

func (m *memRepo) request(id uuid.UUID) Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.requests[id]
}

func (m *memRepo) InTx(ctx context.Context, fn func(tx Store) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	listings := make(map[uuid.UUID]*Listing, len(m.listings))
	for id, l := range m.listings {
		cp := *l
		listings[id] = &cp
	}
	requests := make(map[uuid.UUID]*Request, len(m.requests))
	for id, r := range m.requests {
		cp := *r
		requests[id] = &cp
	}
	m.mu.Unlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.listings, m.requests = listings, requests
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *memRepo) InsertListing(ctx context.Context, l *Listing) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l.ID = uuid.New()
	l.CreatedAt = m.tick()
	l.UpdatedAt = l.CreatedAt
	cp := *l
	m.listings[l.ID] = &cp
	return nil
}

func (m *memRepo) GetListing(ctx context.Context, id uuid.UUID) (*Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.listings[id]
	if !ok {
		return nil, ErrListingNotFound
	}
	cp := *l
	return &cp, nil
}

func (m *memRepo) LockListing(ctx context.Context, id uuid.UUID) (*Listing, error) {
	m.recordLock("listing:" + id.String())
	return m.GetListing(ctx, id)
}

func (m *memRepo) recordLock(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locks = append(m.locks, key)
}

func (m *memRepo) ListListings(ctx context.Context, f ListingFilter) ([]Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Listing
	for _, l := range m.listings {
		if f.Status != nil && l.Status != *f.Status {
			continue
		}
		out = append(out, *l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memRepo) UpdateListingStatus(ctx context.Context, id uuid.UUID, to ListingStatus) (*Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.listings[id]
	if !ok {
		return nil, ErrListingNotFound
	}
	l.Status = to
	l.UpdatedAt = m.tick()
	cp := *l
	return &cp, nil
}

func (m *memRepo) HasPendingRequest(ctx context.Context, listingID, userID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.requests {
		if r.ListingID == listingID && r.RequestedBy == userID && r.Status == RequestPending {
			return true, nil
		}
	}
	return false, nil
}

func (m *memRepo) InsertRequest(ctx context.Context, rq *Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.requests {
		if r.ListingID == rq.ListingID && r.RequestedBy == rq.RequestedBy && r.Status == RequestPending {
			return ErrDuplicatePending
		}
	}
	rq.ID = uuid.New()
	rq.Date = m.tick()
	cp := *rq
	m.requests[rq.ID] = &cp
	return nil
}

func (m *memRepo) GetRequest(ctx context.Context, id uuid.UUID) (*Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok {
		return nil, ErrRequestNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memRepo) LockRequest(ctx context.Context, id uuid.UUID) (*Request, error) {
	m.recordLock("request:" + id.String())
	return m.GetRequest(ctx, id)
}

func (m *memRepo) ListRequests(ctx context.Context, f RequestFilter) ([]Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Request
	for _, r := range m.requests {
		if f.ListingID != nil && r.ListingID != *f.ListingID {
			continue
		}
		if f.RequestedBy != nil && r.RequestedBy != *f.RequestedBy {
			continue
		}
		if f.Status != nil && r.Status != *f.Status {
			continue
		}
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (m *memRepo) DecideRequest(ctx context.Context, id uuid.UUID, to RequestStatus, decidedBy uuid.UUID) (*Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok || r.Status != RequestPending {
		return nil, ErrRequestNotFound
	}
	if to == RequestApproved {
		for _, other := range m.requests {
			if other.ListingID == r.ListingID && other.Status == RequestApproved {
				return nil, ErrAlreadyDecided
			}
		}
	}
	now := m.tick()
	r.Status = to
	r.DecidedBy = &decidedBy
	r.DecidedAt = &now
	cp := *r
	return &cp, nil
}

func (m *memRepo) RejectPendingSiblings(ctx context.Context, listingID, exceptID, decidedBy uuid.UUID) ([]Request, error) {
	if m.failSiblings != nil {
		return nil, m.failSiblings
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.tick()
	var out []Request
	for _, r := range m.requests {
		if r.ListingID != listingID || r.ID == exceptID || r.Status != RequestPending {
			continue
		}
		r.Status = RequestRejected
		r.DecidedBy = &decidedBy
		r.DecidedAt = &now
		out = append(out, *r)
	}
	return out, nil
}

type sentNotification struct {
	recipient uuid.UUID
	message   string
	category  notification.Category
}

type notifierStub struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (n *notifierStub) Notify(ctx context.Context, recipient uuid.UUID, message string, category notification.Category) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentNotification{recipient, message, category})
}

func (n *notifierStub) to(recipient uuid.UUID) []sentNotification {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []sentNotification
	for _, s := range n.sent {
		if s.recipient == recipient {
			out = append(out, s)
		}
	}
	return out
}
