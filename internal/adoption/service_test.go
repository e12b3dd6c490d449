package adoption

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/vetclinic-scheduling/internal/apperr"
	"github.com/hackgods/vetclinic-scheduling/internal/notification"
	"github.com/hackgods/vetclinic-scheduling/internal/principal"
	redisclient "github.com/hackgods/vetclinic-scheduling/internal/redis"
)

type busyLocker struct{}

func (busyLocker) WithLock(ctx context.Context, key string, fn func(context.Context) error) error {
	return redisclient.ErrLockNotAcquired
}

func owner() principal.Principal {
	return principal.Principal{ID: uuid.New(), Role: principal.RoleOwner}
}

func newTestService(locker redisclient.Locker) (*Service, *memRepo, *notifierStub) {
	repo := newMemRepo()
	notifier := &notifierStub{}
	return NewService(repo, locker, notifier), repo, notifier
}

var admin = principal.Principal{ID: uuid.New(), Role: principal.RoleAdmin}

func TestCreateListing(t *testing.T) {
	svc, repo, _ := newTestService(nil)
	ctx := context.Background()

	l, err := svc.CreateListing(ctx, admin, ListingInput{AnimalName: " Bella ", Species: "dog", Age: 3})
	require.NoError(t, err)
	assert.Equal(t, "Bella", l.AnimalName)
	assert.Equal(t, ListingAvailable, l.Status)
	assert.Equal(t, admin.ID, l.PostedBy)
	assert.Equal(t, ListingAvailable, repo.listing(l.ID).Status)

	_, err = svc.CreateListing(ctx, owner(), ListingInput{AnimalName: "Bella", Species: "dog"})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = svc.CreateListing(ctx, admin, ListingInput{AnimalName: "  ", Species: "dog"})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.CreateListing(ctx, admin, ListingInput{AnimalName: "Old", Species: "tortoise", Age: -1})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestListListingsNewestFirst(t *testing.T) {
	svc, repo, _ := newTestService(nil)
	first := repo.addListing("Bella", ListingAvailable)
	repo.addListing("Milo", ListingAdopted)
	third := repo.addListing("Luna", ListingAvailable)

	all, err := svc.ListListings(context.Background(), ListingFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, third.ID, all[0].ID)
	assert.Equal(t, first.ID, all[2].ID)

	status := ListingAvailable
	open, err := svc.ListListings(context.Background(), ListingFilter{Status: &status})
	require.NoError(t, err)
	require.Len(t, open, 2)
	for _, l := range open {
		assert.Equal(t, ListingAvailable, l.Status)
	}
}

func TestSetListingStatus(t *testing.T) {
	svc, repo, _ := newTestService(nil)
	ctx := context.Background()
	l := repo.addListing("Bella", ListingAvailable)

	updated, err := svc.SetListingStatus(ctx, admin, l.ID, ListingPending)
	require.NoError(t, err)
	assert.Equal(t, ListingPending, updated.Status)

	updated, err = svc.SetListingStatus(ctx, admin, l.ID, ListingAvailable)
	require.NoError(t, err)
	assert.Equal(t, ListingAvailable, updated.Status)

	_, err = svc.SetListingStatus(ctx, admin, l.ID, ListingAdopted)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	adopted := repo.addListing("Milo", ListingAdopted)
	_, err = svc.SetListingStatus(ctx, admin, adopted.ID, ListingAvailable)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, ListingAdopted, repo.listing(adopted.ID).Status)

	_, err = svc.SetListingStatus(ctx, admin, uuid.New(), ListingPending)
	assert.ErrorIs(t, err, ErrListingNotFound)

	_, err = svc.SetListingStatus(ctx, owner(), l.ID, ListingPending)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestSubmitRequest(t *testing.T) {
	svc, repo, _ := newTestService(nil)
	ctx := context.Background()
	l := repo.addListing("Bella", ListingAvailable)
	u := owner()

	rq, err := svc.SubmitRequest(ctx, u, l.ID)
	require.NoError(t, err)
	assert.Equal(t, RequestPending, rq.Status)
	assert.Equal(t, u.ID, rq.RequestedBy)
	assert.False(t, rq.Date.IsZero())
	assert.Equal(t, ListingAvailable, repo.listing(l.ID).Status, "submitting does not reserve the listing")

	_, err = svc.SubmitRequest(ctx, u, l.ID)
	assert.ErrorIs(t, err, ErrDuplicatePending)

	_, err = svc.SubmitRequest(ctx, owner(), l.ID)
	assert.NoError(t, err, "other users may compete for the same listing")

	_, err = svc.SubmitRequest(ctx, admin, l.ID)
	assert.NoError(t, err)
}

func TestSubmitRequestRejections(t *testing.T) {
	svc, repo, _ := newTestService(nil)
	ctx := context.Background()

	_, err := svc.SubmitRequest(ctx, owner(), uuid.New())
	assert.ErrorIs(t, err, ErrListingNotFound)

	paused := repo.addListing("Milo", ListingPending)
	_, err = svc.SubmitRequest(ctx, owner(), paused.ID)
	assert.ErrorIs(t, err, ErrListingNotAvailable)

	adopted := repo.addListing("Luna", ListingAdopted)
	_, err = svc.SubmitRequest(ctx, owner(), adopted.ID)
	assert.ErrorIs(t, err, ErrListingNotAvailable)

	open := repo.addListing("Bella", ListingAvailable)
	for _, role := range []principal.Role{principal.RoleStaff, principal.RoleDoctor} {
		_, err = svc.SubmitRequest(ctx, principal.Principal{ID: uuid.New(), Role: role}, open.ID)
		assert.ErrorIs(t, err, apperr.ErrForbidden, "role %s", role)
	}
}

func TestSubmitRequestAfterRejectionIsAllowed(t *testing.T) {
	svc, repo, _ := newTestService(nil)
	ctx := context.Background()
	l := repo.addListing("Bella", ListingAvailable)
	u := owner()

	rq, err := svc.SubmitRequest(ctx, u, l.ID)
	require.NoError(t, err)
	_, err = svc.RejectRequest(ctx, admin, rq.ID)
	require.NoError(t, err)

	again, err := svc.SubmitRequest(ctx, u, l.ID)
	require.NoError(t, err)
	assert.NotEqual(t, rq.ID, again.ID)
}

func TestSubmitRequestWhileLockedIsBusy(t *testing.T) {
	svc, repo, _ := newTestService(busyLocker{})
	l := repo.addListing("Bella", ListingAvailable)

	_, err := svc.SubmitRequest(context.Background(), owner(), l.ID)
	assert.ErrorIs(t, err, ErrSubmitBusy)
	assert.NotErrorIs(t, err, ErrDuplicatePending)
	assert.Empty(t, repo.requests)
}

func TestConcurrentSubmitsFromOneUserLeaveOnePending(t *testing.T) {
	svc, repo, _ := newTestService(nil)
	l := repo.addListing("Bella", ListingAvailable)
	u := owner()

	const n = 10
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok, dups int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.SubmitRequest(context.Background(), u, l.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, ErrDuplicatePending):
				dups++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, dups)
}

func TestApproveRequestRejectsCompetitors(t *testing.T) {
	svc, repo, notifier := newTestService(nil)
	ctx := context.Background()
	l := repo.addListing("Bella", ListingAvailable)
	other := repo.addListing("Milo", ListingAvailable)

	u1, u2, u3 := owner(), owner(), owner()
	r1, err := svc.SubmitRequest(ctx, u1, l.ID)
	require.NoError(t, err)
	r2, err := svc.SubmitRequest(ctx, u2, l.ID)
	require.NoError(t, err)
	r3, err := svc.SubmitRequest(ctx, u3, l.ID)
	require.NoError(t, err)
	unrelated, err := svc.SubmitRequest(ctx, u2, other.ID)
	require.NoError(t, err)

	d, err := svc.ApproveRequest(ctx, admin, r2.ID, l.ID)
	require.NoError(t, err)
	assert.Equal(t, RequestApproved, d.Approved.Status)
	assert.Equal(t, ListingAdopted, d.Listing.Status)
	require.NotNil(t, d.Approved.DecidedBy)
	assert.Equal(t, admin.ID, *d.Approved.DecidedBy)

	var rejectedIDs []uuid.UUID
	for _, rq := range d.Rejected {
		rejectedIDs = append(rejectedIDs, rq.ID)
	}
	assert.ElementsMatch(t, []uuid.UUID{r1.ID, r3.ID}, rejectedIDs)

	assert.Equal(t, ListingAdopted, repo.listing(l.ID).Status)
	assert.Equal(t, RequestApproved, repo.request(r2.ID).Status)
	assert.Equal(t, RequestRejected, repo.request(r1.ID).Status)
	assert.Equal(t, RequestRejected, repo.request(r3.ID).Status)
	assert.Equal(t, RequestPending, repo.request(unrelated.ID).Status)
	assert.Equal(t, ListingAvailable, repo.listing(other.ID).Status)

	won := notifier.to(u2.ID)
	require.Len(t, won, 1)
	assert.Equal(t, notification.CategoryAdoptionApproved, won[0].category)
	assert.Contains(t, won[0].message, "Bella")
	for _, loser := range []principal.Principal{u1, u3} {
		lost := notifier.to(loser.ID)
		require.Len(t, lost, 1)
		assert.Equal(t, notification.CategoryAdoptionRejected, lost[0].category)
	}

	_, err = svc.SubmitRequest(ctx, owner(), l.ID)
	assert.ErrorIs(t, err, ErrListingNotAvailable)
}

func TestApproveRequestChecks(t *testing.T) {
	svc, repo, notifier := newTestService(nil)
	ctx := context.Background()
	l := repo.addListing("Bella", ListingAvailable)
	other := repo.addListing("Milo", ListingAvailable)
	rq := repo.addRequest(l.ID, uuid.New(), RequestPending)

	_, err := svc.ApproveRequest(ctx, owner(), rq.ID, l.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = svc.ApproveRequest(ctx, admin, uuid.New(), l.ID)
	assert.ErrorIs(t, err, ErrRequestNotFound)

	_, err = svc.ApproveRequest(ctx, admin, rq.ID, other.ID)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, RequestPending, repo.request(rq.ID).Status)
	assert.Equal(t, ListingAvailable, repo.listing(other.ID).Status)

	decided := repo.addRequest(l.ID, uuid.New(), RequestRejected)
	_, err = svc.ApproveRequest(ctx, admin, decided.ID, l.ID)
	assert.ErrorIs(t, err, ErrAlreadyDecided)

	assert.Empty(t, notifier.sent)
}

func TestApproveRequestTwiceFails(t *testing.T) {
	svc, repo, _ := newTestService(nil)
	ctx := context.Background()
	l := repo.addListing("Bella", ListingAvailable)
	rq := repo.addRequest(l.ID, uuid.New(), RequestPending)

	_, err := svc.ApproveRequest(ctx, admin, rq.ID, l.ID)
	require.NoError(t, err)

	_, err = svc.ApproveRequest(ctx, admin, rq.ID, l.ID)
	assert.ErrorIs(t, err, ErrAlreadyDecided)
}

func TestConcurrentApprovalsPickOneWinner(t *testing.T) {
	svc, repo, _ := newTestService(nil)
	l := repo.addListing("Bella", ListingAvailable)

	const n = 8
	requests := make([]*Request, n)
	for i := range requests {
		requests[i] = repo.addRequest(l.ID, uuid.New(), RequestPending)
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
		losers  int
	)
	for _, rq := range requests {
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			_, err := svc.ApproveRequest(context.Background(), admin, id, l.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners++
			case errors.Is(err, ErrAlreadyDecided):
				losers++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(rq.ID)
	}
	wg.Wait()

	assert.Equal(t, 1, winners)
	assert.Equal(t, n-1, losers)

	approved := 0
	for _, rq := range requests {
		st := repo.request(rq.ID).Status
		assert.NotEqual(t, RequestPending, st)
		if st == RequestApproved {
			approved++
		}
	}
	assert.Equal(t, 1, approved)
	assert.Equal(t, ListingAdopted, repo.listing(l.ID).Status)
}

func TestApproveRequestLocksListingBeforeRequest(t *testing.T) {
	svc, repo, _ := newTestService(nil)
	l := repo.addListing("Bella", ListingAvailable)
	rq := repo.addRequest(l.ID, uuid.New(), RequestPending)

	_, err := svc.ApproveRequest(context.Background(), admin, rq.ID, l.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"listing:" + l.ID.String(), "request:" + rq.ID.String()}, repo.locks)
}

func TestDecisionsWithoutNotifier(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()
	l := repo.addListing("Bella", ListingAvailable)
	winner := repo.addRequest(l.ID, uuid.New(), RequestPending)
	loser := repo.addRequest(l.ID, uuid.New(), RequestPending)

	var d *Decision
	require.NotPanics(t, func() {
		var err error
		d, err = svc.ApproveRequest(ctx, admin, winner.ID, l.ID)
		require.NoError(t, err)
	})
	require.Len(t, d.Rejected, 1)
	assert.Equal(t, ListingAdopted, repo.listing(l.ID).Status)
	assert.Equal(t, RequestRejected, repo.request(loser.ID).Status)

	other := repo.addListing("Milo", ListingAvailable)
	pending := repo.addRequest(other.ID, uuid.New(), RequestPending)
	require.NotPanics(t, func() {
		_, err := svc.RejectRequest(ctx, admin, pending.ID)
		require.NoError(t, err)
	})
	assert.Equal(t, RequestRejected, repo.request(pending.ID).Status)
}

func TestApproveRequestRollsBackOnFailure(t *testing.T) {
	svc, repo, notifier := newTestService(nil)
	l := repo.addListing("Bella", ListingAvailable)
	winner := repo.addRequest(l.ID, uuid.New(), RequestPending)
	loser := repo.addRequest(l.ID, uuid.New(), RequestPending)
	repo.failSiblings = errors.New("connection reset")

	_, err := svc.ApproveRequest(context.Background(), admin, winner.ID, l.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")

	assert.Equal(t, ListingAvailable, repo.listing(l.ID).Status)
	assert.Equal(t, RequestPending, repo.request(winner.ID).Status)
	assert.Equal(t, RequestPending, repo.request(loser.ID).Status)
	assert.Empty(t, notifier.sent)
}

func TestRejectRequest(t *testing.T) {
	svc, repo, notifier := newTestService(nil)
	ctx := context.Background()
	l := repo.addListing("Bella", ListingAvailable)
	requester := uuid.New()
	rq := repo.addRequest(l.ID, requester, RequestPending)

	_, err := svc.RejectRequest(ctx, principal.Principal{ID: uuid.New(), Role: principal.RoleStaff}, rq.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	rejected, err := svc.RejectRequest(ctx, admin, rq.ID)
	require.NoError(t, err)
	assert.Equal(t, RequestRejected, rejected.Status)
	assert.Equal(t, ListingAvailable, repo.listing(l.ID).Status)

	sent := notifier.to(requester)
	require.Len(t, sent, 1)
	assert.Equal(t, notification.CategoryAdoptionRejected, sent[0].category)
	assert.Contains(t, sent[0].message, "Bella")

	_, err = svc.RejectRequest(ctx, admin, rq.ID)
	assert.ErrorIs(t, err, ErrAlreadyDecided)

	_, err = svc.RejectRequest(ctx, admin, uuid.New())
	assert.ErrorIs(t, err, ErrRequestNotFound)
}

func TestListRequestsScopesOwners(t *testing.T) {
	svc, repo, _ := newTestService(nil)
	ctx := context.Background()
	l := repo.addListing("Bella", ListingAvailable)
	u := owner()
	mine := repo.addRequest(l.ID, u.ID, RequestPending)
	repo.addRequest(l.ID, uuid.New(), RequestPending)

	got, err := svc.ListRequests(ctx, u, RequestFilter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, mine.ID, got[0].ID)

	listingID := l.ID
	all, err := svc.ListRequests(ctx, admin, RequestFilter{ListingID: &listingID})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	status := RequestApproved
	none, err := svc.ListRequests(ctx, admin, RequestFilter{Status: &status})
	require.NoError(t, err)
	assert.Empty(t, none)
}
