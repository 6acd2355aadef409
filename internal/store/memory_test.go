package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ayush/jobbid/internal/models"
)

func TestMemoryJobStore_InsertAndFind(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryJobStore()

	job := models.Job{Employer: "alice@x.com", Job: "Logo", Minimum: 10, Maximum: 50}
	id, err := s.Insert(ctx, &job)
	require.NoError(t, err)
	assert.False(t, id.IsZero())
	assert.Equal(t, id, job.ID)

	got, err := s.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, job, *got)

	_, err = s.FindByID(ctx, primitive.NewObjectID())
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestMemoryJobStore_ListsKeepInsertionOrder(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryJobStore()

	for _, j := range []models.Job{
		{Employer: "alice@x.com", Job: "a"},
		{Employer: "bob@x.com", Job: "b"},
		{Employer: "alice@x.com", Job: "c"},
	} {
		_, err := s.Insert(ctx, &j)
		require.NoError(t, err)
	}

	all, err := s.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, jobTitles(all))

	mine, err := s.FindByEmployer(ctx, "alice@x.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, jobTitles(mine))

	none, err := s.FindByEmployer(ctx, "carol@x.com")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestMemoryJobStore_UpsertFields(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryJobStore()
	id := primitive.NewObjectID()
	fields := models.JobFields{Employer: "alice@x.com", Job: "Logo", Minimum: 10, Maximum: 50}

	res, err := s.UpsertFields(ctx, id, "alice@x.com", fields)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.UpsertedCount)
	assert.Equal(t, id.Hex(), res.UpsertedID)

	require.NoError(t, s.SetAttachment(ctx, id, "jobs/x/brief"))

	res, err = s.UpsertFields(ctx, id, "alice@x.com", fields)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.MatchedCount)
	assert.Equal(t, int64(0), res.ModifiedCount, "same values modify nothing")

	fields.Maximum = 80
	res, err = s.UpsertFields(ctx, id, "alice@x.com", fields)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.ModifiedCount)

	got, err := s.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 80.0, got.Maximum)
	assert.Equal(t, "jobs/x/brief", got.AttachmentKey, "edits keep the attachment")

	_, err = s.UpsertFields(ctx, id, "bob@x.com", models.JobFields{Employer: "bob@x.com"})
	assert.ErrorIs(t, err, models.ErrForbidden)
}

func TestMemoryJobStore_DeleteOwned(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryJobStore()
	job := models.Job{Employer: "alice@x.com"}
	id, err := s.Insert(ctx, &job)
	require.NoError(t, err)

	_, err = s.DeleteOwned(ctx, id, "bob@x.com")
	assert.ErrorIs(t, err, models.ErrForbidden)

	n, err := s.DeleteOwned(ctx, id, "alice@x.com")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = s.DeleteOwned(ctx, id, "alice@x.com")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	all, err := s.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	assert.ErrorIs(t, s.SetAttachment(ctx, id, "k"), models.ErrNotFound)
}

func TestMemoryJobStore_Existing(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryJobStore()
	job := models.Job{Employer: "alice@x.com"}
	kept, err := s.Insert(ctx, &job)
	require.NoError(t, err)
	gone := primitive.NewObjectID()

	found, err := s.Existing(ctx, []primitive.ObjectID{kept, gone})
	require.NoError(t, err)
	assert.True(t, found[kept])
	assert.False(t, found[gone])
}

func TestMemoryBidStore_FindByBidderSortsByStatus(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryBidStore()

	for _, st := range []models.BidStatus{models.BidPending, models.BidAccepted, models.BidRejected} {
		_, err := s.Insert(ctx, &models.Bid{UserEmail: "bob@x.com", Status: st})
		require.NoError(t, err)
	}
	_, err := s.Insert(ctx, &models.Bid{UserEmail: "carol@x.com", Status: models.BidPending})
	require.NoError(t, err)

	asc, err := s.FindByBidder(ctx, "bob@x.com", true)
	require.NoError(t, err)
	assert.Equal(t, []models.BidStatus{models.BidAccepted, models.BidPending, models.BidRejected}, bidStatuses(asc))

	desc, err := s.FindByBidder(ctx, "bob@x.com", false)
	require.NoError(t, err)
	assert.Equal(t, []models.BidStatus{models.BidRejected, models.BidPending, models.BidAccepted}, bidStatuses(desc))
}

func TestMemoryBidStore_FindByPoster(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryBidStore()

	_, err := s.Insert(ctx, &models.Bid{UserEmail: "bob@x.com", BuyerEmail: "alice@x.com", Job: "a"})
	require.NoError(t, err)
	_, err = s.Insert(ctx, &models.Bid{UserEmail: "bob@x.com", BuyerEmail: "dave@x.com", Job: "b"})
	require.NoError(t, err)

	got, err := s.FindByPoster(ctx, "alice@x.com")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].Job)
	assert.False(t, got[0].CreatedAt.IsZero())
}

func TestMemoryBidStore_SetStatus(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryBidStore()
	bid := models.Bid{UserEmail: "bob@x.com", Status: models.BidPending}
	id, err := s.Insert(ctx, &bid)
	require.NoError(t, err)

	stale := models.BidRejected
	res, err := s.SetStatus(ctx, id, &stale, models.BidAccepted)
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.MatchedCount, "condition on a stale status misses")

	current := models.BidPending
	res, err = s.SetStatus(ctx, id, &current, models.BidAccepted)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.MatchedCount)
	assert.Equal(t, int64(1), res.ModifiedCount)

	res, err = s.SetStatus(ctx, id, nil, models.BidAccepted)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.MatchedCount)
	assert.Equal(t, int64(0), res.ModifiedCount)

	res, err = s.SetStatus(ctx, primitive.NewObjectID(), nil, models.BidAccepted)
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.MatchedCount)
}

func jobTitles(jobs []models.Job) []string {
	out := make([]string, len(jobs))
	for i, j := range jobs {
		out[i] = j.Job
	}
	return out
}

func bidStatuses(bids []models.Bid) []models.BidStatus {
	out := make([]models.BidStatus, len(bids))
	for i, b := range bids {
		out[i] = b.Status
	}
	return out
}
