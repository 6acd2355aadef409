package bids

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ayush/jobbid/internal/models"
	"github.com/ayush/jobbid/internal/store"
)

var (
	alice = models.Identity{Email: "alice@x.com"}
	bob   = models.Identity{Email: "bob@x.com"}
	carol = models.Identity{Email: "carol@x.com"}

	aliceAsPoster = models.Actor{Email: "alice@x.com", Role: models.RolePoster}
	bobAsBidder   = models.Actor{Email: "bob@x.com", Role: models.RoleBidder}
)

type memHistory struct {
	mu     sync.Mutex
	events []models.Transition
	err    error
}

func (h *memHistory) Record(_ context.Context, t models.Transition) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return h.err
	}
	h.events = append(h.events, t)
	return nil
}

func (h *memHistory) List(_ context.Context, bidID string) ([]models.Transition, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := []models.Transition{}
	for _, t := range h.events {
		if t.BidID == bidID {
			out = append(out, t)
		}
	}
	return out, nil
}

type fixture struct {
	ledger  *Ledger
	jobs    *store.MemoryJobStore
	bids    *store.MemoryBidStore
	history *memHistory
	jobID   string
}

func newFixture(t *testing.T, policy Policy) *fixture {
	t.Helper()
	f := &fixture{
		jobs:    store.NewMemoryJobStore(),
		bids:    store.NewMemoryBidStore(),
		history: &memHistory{},
	}
	job := models.Job{Employer: "alice@x.com", Job: "Logo", Minimum: 10, Maximum: 50}
	oid, err := f.jobs.Insert(context.Background(), &job)
	require.NoError(t, err)
	f.jobID = oid.Hex()

	f.ledger = NewLedger(Deps{
		Store:   f.bids,
		Jobs:    f.jobs,
		Policy:  policy,
		History: f.history,
	})
	return f
}

func (f *fixture) bid(t *testing.T) string {
	t.Helper()
	res, err := f.ledger.Create(context.Background(), bob, models.Bid{
		JobID:      f.jobID,
		Job:        "Logo",
		Price:      40,
		Deadline:   "2024-12-01",
		BuyerEmail: "alice@x.com",
		Status:     models.BidPending,
	})
	require.NoError(t, err)
	return res.InsertedID
}

func TestCreate_DefaultsAndRejects(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, StrictPolicy{})

	res, err := f.ledger.Create(ctx, bob, models.Bid{JobID: f.jobID, BuyerEmail: "alice@x.com"})
	require.NoError(t, err)
	assert.True(t, res.Acknowledged)

	oid, err := primitive.ObjectIDFromHex(res.InsertedID)
	require.NoError(t, err)
	stored, err := f.bids.FindByID(ctx, oid)
	require.NoError(t, err)
	assert.Equal(t, "bob@x.com", stored.UserEmail)
	assert.Equal(t, models.BidPending, stored.Status)
	assert.False(t, stored.CreatedAt.IsZero())

	_, err = f.ledger.Create(ctx, bob, models.Bid{UserEmail: "carol@x.com"})
	assert.ErrorIs(t, err, models.ErrForbidden)

	_, err = f.ledger.Create(ctx, bob, models.Bid{Status: models.BidAccepted})
	assert.ErrorIs(t, err, models.ErrInvalidStatus)
}

func TestCreate_DoesNotRequireLiveJob(t *testing.T) {
	f := newFixture(t, StrictPolicy{})

	_, err := f.ledger.Create(context.Background(), bob, models.Bid{JobID: primitive.NewObjectID().Hex()})
	assert.NoError(t, err)
	_, err = f.ledger.Create(context.Background(), bob, models.Bid{JobID: "not-an-id"})
	assert.NoError(t, err)
}

func TestListByBidder_SortsByStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, OpenPolicy{})

	for _, st := range []models.BidStatus{models.BidPending, models.BidRejected, models.BidAccepted} {
		_, err := f.ledger.Create(ctx, bob, models.Bid{JobID: f.jobID, BuyerEmail: "alice@x.com", Status: st})
		require.NoError(t, err)
	}
	_, err := f.ledger.Create(ctx, carol, models.Bid{JobID: f.jobID, BuyerEmail: "alice@x.com"})
	require.NoError(t, err)

	asc, err := f.ledger.ListByBidder(ctx, "bob@x.com", "asc")
	require.NoError(t, err)
	assert.Equal(t, []models.BidStatus{models.BidAccepted, models.BidPending, models.BidRejected}, statuses(asc))

	for _, sort := range []string{"desc", "", "sideways"} {
		desc, err := f.ledger.ListByBidder(ctx, "bob@x.com", sort)
		require.NoError(t, err)
		assert.Equal(t, []models.BidStatus{models.BidRejected, models.BidPending, models.BidAccepted}, statuses(desc), sort)
	}
}

func TestListByJobPoster(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, StrictPolicy{})
	id := f.bid(t)
	_, err := f.ledger.Create(ctx, bob, models.Bid{JobID: f.jobID, BuyerEmail: "dave@x.com"})
	require.NoError(t, err)

	views, err := f.ledger.ListByJobPoster(ctx, "alice@x.com")
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, id, views[0].ID.Hex())
	assert.True(t, views[0].JobAvailable)

	views, err = f.ledger.ListByJobPoster(ctx, "nobody@x.com")
	require.NoError(t, err)
	assert.NotNil(t, views)
	assert.Empty(t, views)
}

func TestListings_MarkDeletedJobs(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, StrictPolicy{})
	f.bid(t)
	_, err := f.ledger.Create(ctx, bob, models.Bid{JobID: "garbage", BuyerEmail: "alice@x.com"})
	require.NoError(t, err)

	oid, err := primitive.ObjectIDFromHex(f.jobID)
	require.NoError(t, err)
	n, err := f.jobs.DeleteOwned(ctx, oid, "alice@x.com")
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	views, err := f.ledger.ListByBidder(ctx, "bob@x.com", "asc")
	require.NoError(t, err)
	require.Len(t, views, 2, "bids survive their job")
	for _, v := range views {
		assert.False(t, v.JobAvailable)
	}
}

func TestListings_WithoutJobIndex(t *testing.T) {
	ctx := context.Background()
	l := NewLedger(Deps{Store: store.NewMemoryBidStore()})

	_, err := l.Create(ctx, bob, models.Bid{JobID: primitive.NewObjectID().Hex(), BuyerEmail: "alice@x.com"})
	require.NoError(t, err)
	_, err = l.Create(ctx, bob, models.Bid{JobID: "garbage", BuyerEmail: "alice@x.com"})
	require.NoError(t, err)

	var views []models.BidView
	require.NotPanics(t, func() {
		views, err = l.ListByJobPoster(ctx, "alice@x.com")
	})
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.True(t, views[0].JobAvailable)
	assert.False(t, views[1].JobAvailable, "a malformed reference never resolves")
}

func TestUpdateStatus_OpenPolicyOverwrites(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, OpenPolicy{})
	id := f.bid(t)

	res, err := f.ledger.UpdateStatus(ctx, aliceAsPoster, id, models.BidRejected)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.ModifiedCount)

	res, err = f.ledger.UpdateStatus(ctx, bobAsBidder, id, models.BidAccepted)
	require.NoError(t, err, "any prior status may move to any status")
	assert.Equal(t, int64(1), res.ModifiedCount)

	views, err := f.ledger.ListByBidder(ctx, "bob@x.com", "desc")
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, models.BidAccepted, views[0].Status)
}

func TestUpdateStatus_StrictPolicy(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, StrictPolicy{})
	id := f.bid(t)

	_, err := f.ledger.UpdateStatus(ctx, bobAsBidder, id, models.BidAccepted)
	assert.ErrorIs(t, err, models.ErrInvalidTransition, "bidders cannot accept their own bid")

	res, err := f.ledger.UpdateStatus(ctx, aliceAsPoster, id, models.BidAccepted)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.ModifiedCount)

	_, err = f.ledger.UpdateStatus(ctx, aliceAsPoster, id, models.BidRejected)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)

	_, err = f.ledger.UpdateStatus(ctx, aliceAsPoster, id, "in-progress")
	assert.ErrorIs(t, err, models.ErrInvalidStatus)

	_, err = f.ledger.UpdateStatus(ctx, aliceAsPoster, id, models.BidCompleted)
	require.NoError(t, err)
}

func TestUpdateStatus_Ownership(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, OpenPolicy{})
	id := f.bid(t)

	tests := map[string]models.Actor{
		"stranger as bidder": {Email: "carol@x.com", Role: models.RoleBidder},
		"stranger as poster": {Email: "carol@x.com", Role: models.RolePoster},
		"poster as bidder":   {Email: "alice@x.com", Role: models.RoleBidder},
		"bidder as poster":   {Email: "bob@x.com", Role: models.RolePoster},
		"no role":            {Email: "bob@x.com"},
	}
	for name, actor := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := f.ledger.UpdateStatus(ctx, actor, id, models.BidAccepted)
			assert.ErrorIs(t, err, models.ErrForbidden)
		})
	}
}

func TestUpdateStatus_LookupErrors(t *testing.T) {
	f := newFixture(t, StrictPolicy{})

	_, err := f.ledger.UpdateStatus(context.Background(), aliceAsPoster, "bad-id", models.BidAccepted)
	assert.ErrorIs(t, err, models.ErrBadReference)

	_, err = f.ledger.UpdateStatus(context.Background(), aliceAsPoster, primitive.NewObjectID().Hex(), models.BidAccepted)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

// racingStore flips the bid to another status between the read and the
// conditional write.
type racingStore struct {
	*store.MemoryBidStore
	to models.BidStatus
}

func (s racingStore) SetStatus(ctx context.Context, id primitive.ObjectID, from *models.BidStatus, to models.BidStatus) (models.UpdateResult, error) {
	if _, err := s.MemoryBidStore.SetStatus(ctx, id, nil, s.to); err != nil {
		return models.UpdateResult{}, err
	}
	return s.MemoryBidStore.SetStatus(ctx, id, from, to)
}

func TestUpdateStatus_ConcurrentChangeConflicts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, StrictPolicy{})
	id := f.bid(t)
	f.ledger.store = racingStore{MemoryBidStore: f.bids, to: models.BidCancelled}

	_, err := f.ledger.UpdateStatus(ctx, aliceAsPoster, id, models.BidAccepted)
	assert.ErrorIs(t, err, models.ErrStatusConflict)
	assert.Empty(t, f.history.events)

	views, err := f.ledger.ListByJobPoster(ctx, "alice@x.com")
	require.NoError(t, err)
	assert.Equal(t, models.BidCancelled, views[0].Status)
}

func TestHistory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, StrictPolicy{})
	id := f.bid(t)

	_, err := f.ledger.UpdateStatus(ctx, aliceAsPoster, id, models.BidAccepted)
	require.NoError(t, err)
	_, err = f.ledger.UpdateStatus(ctx, bobAsBidder, id, models.BidCancelled)
	require.NoError(t, err)

	for _, caller := range []models.Identity{alice, bob} {
		events, err := f.ledger.History(ctx, caller, id)
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, models.BidPending, events[0].From)
		assert.Equal(t, models.BidAccepted, events[0].To)
		assert.Equal(t, "alice@x.com", events[0].Actor)
		assert.Equal(t, models.RolePoster, events[0].Role)
		assert.Equal(t, models.BidCancelled, events[1].To)
		assert.Equal(t, models.RoleBidder, events[1].Role)
	}

	_, err = f.ledger.History(ctx, carol, id)
	assert.ErrorIs(t, err, models.ErrForbidden)
}

func TestHistory_NoOpWriteIsNotRecorded(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, OpenPolicy{})
	id := f.bid(t)

	res, err := f.ledger.UpdateStatus(ctx, aliceAsPoster, id, models.BidPending)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.MatchedCount)
	assert.Equal(t, int64(0), res.ModifiedCount)
	assert.Empty(t, f.history.events)
}

func TestHistory_RecordFailureDoesNotFailUpdate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, StrictPolicy{})
	id := f.bid(t)
	f.history.err = errors.New("postgres down")

	res, err := f.ledger.UpdateStatus(ctx, aliceAsPoster, id, models.BidAccepted)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.ModifiedCount)
}

func TestHistory_Disabled(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, StrictPolicy{})
	f.ledger.history = nil
	id := f.bid(t)

	_, err := f.ledger.UpdateStatus(ctx, aliceAsPoster, id, models.BidAccepted)
	require.NoError(t, err)

	events, err := f.ledger.History(ctx, bob, id)
	require.NoError(t, err)
	assert.NotNil(t, events)
	assert.Empty(t, events)
}

func statuses(views []models.BidView) []models.BidStatus {
	out := make([]models.BidStatus, len(views))
	for i, v := range views {
		out[i] = v.Status
	}
	return out
}
