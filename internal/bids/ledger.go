// Package bids owns bids: submission, owner-scoped listing and the status
// lifecycle.
package bids

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ayush/jobbid/internal/models"
)

// Store is the document store contract the ledger relies on.
type Store interface {
	Insert(ctx context.Context, bid *models.Bid) (primitive.ObjectID, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Bid, error)
	FindByBidder(ctx context.Context, email string, ascending bool) ([]models.Bid, error)
	FindByPoster(ctx context.Context, email string) ([]models.Bid, error)
	SetStatus(ctx context.Context, id primitive.ObjectID, from *models.BidStatus, to models.BidStatus) (models.UpdateResult, error)
}

// JobIndex tells which referenced jobs still exist.
type JobIndex interface {
	Existing(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]bool, error)
}

// History records and lists status changes.
type History interface {
	Record(ctx context.Context, t models.Transition) error
	List(ctx context.Context, bidID string) ([]models.Transition, error)
}

// Deps holds the collaborators of a Ledger. Store is required. Policy
// defaults to StrictPolicy. Without Jobs every well-formed job reference is
// reported available. History may be nil.
type Deps struct {
	Store   Store
	Jobs    JobIndex
	Policy  Policy
	History History
	Logger  *slog.Logger
}

// Ledger implements the bid operations on top of a Store.
type Ledger struct {
	store   Store
	jobs    JobIndex
	policy  Policy
	history History
	logger  *slog.Logger
	now     func() time.Time
}

func NewLedger(d Deps) *Ledger {
	l := &Ledger{
		store:   d.Store,
		jobs:    d.Jobs,
		policy:  d.Policy,
		history: d.History,
		logger:  d.Logger,
		now:     time.Now,
	}
	if l.policy == nil {
		l.policy = StrictPolicy{}
	}
	if l.jobs == nil {
		l.jobs = assumeJobsExist{}
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	return l
}

// Create stores a bid from owner. The referenced job is not checked; the
// bidder defaults to the owner and may not name anyone else.
func (l *Ledger) Create(ctx context.Context, owner models.Identity, bid models.Bid) (models.InsertResult, error) {
	switch bid.UserEmail {
	case "":
		bid.UserEmail = owner.Email
	case owner.Email:
	default:
		return models.InsertResult{}, fmt.Errorf("%w: bidder %q is not the caller", models.ErrForbidden, bid.UserEmail)
	}
	if bid.Status == "" {
		bid.Status = l.policy.Initial()
	}
	if err := l.policy.Admit(bid.Status); err != nil {
		return models.InsertResult{}, err
	}
	bid.ID = primitive.NilObjectID
	bid.CreatedAt = l.now()

	oid, err := l.store.Insert(ctx, &bid)
	if err != nil {
		return models.InsertResult{}, err
	}
	return models.InsertResult{Acknowledged: true, InsertedID: oid.Hex()}, nil
}

// ListByBidder lists the bidder's bids sorted by status: ascending for
// "asc", descending for anything else.
func (l *Ledger) ListByBidder(ctx context.Context, email, sort string) ([]models.BidView, error) {
	bids, err := l.store.FindByBidder(ctx, email, sort == "asc")
	if err != nil {
		return nil, err
	}
	return l.annotate(ctx, bids)
}

func (l *Ledger) ListByJobPoster(ctx context.Context, email string) ([]models.BidView, error) {
	bids, err := l.store.FindByPoster(ctx, email)
	if err != nil {
		return nil, err
	}
	return l.annotate(ctx, bids)
}

// annotate marks bids whose job is gone. A dangling or malformed job id is a
// displayable state, not an error.
func (l *Ledger) annotate(ctx context.Context, bids []models.Bid) ([]models.BidView, error) {
	ids := make([]primitive.ObjectID, 0, len(bids))
	for _, b := range bids {
		if oid, err := primitive.ObjectIDFromHex(b.JobID); err == nil {
			ids = append(ids, oid)
		}
	}
	found, err := l.jobs.Existing(ctx, ids)
	if err != nil {
		return nil, err
	}

	views := make([]models.BidView, len(bids))
	for i, b := range bids {
		oid, err := primitive.ObjectIDFromHex(b.JobID)
		views[i] = models.BidView{Bid: b, JobAvailable: err == nil && found[oid]}
	}
	return views, nil
}

// UpdateStatus moves the bid to status on behalf of actor, who must be the
// bidder or the poster of the bid depending on the role they act in.
func (l *Ledger) UpdateStatus(ctx context.Context, actor models.Actor, id string, status models.BidStatus) (models.UpdateResult, error) {
	bid, err := l.find(ctx, id)
	if err != nil {
		return models.UpdateResult{}, err
	}
	if !owns(bid, actor) {
		return models.UpdateResult{}, models.ErrForbidden
	}
	if err := l.policy.Check(bid.Status, status, actor.Role); err != nil {
		return models.UpdateResult{}, err
	}

	var from *models.BidStatus
	if l.policy.Conditional() {
		from = &bid.Status
	}
	res, err := l.store.SetStatus(ctx, bid.ID, from, status)
	if err != nil {
		return models.UpdateResult{}, err
	}
	if from != nil && res.MatchedCount == 0 {
		return models.UpdateResult{}, models.ErrStatusConflict
	}

	if res.ModifiedCount > 0 && l.history != nil {
		t := models.Transition{
			BidID:     bid.ID.Hex(),
			From:      bid.Status,
			To:        status,
			Actor:     actor.Email,
			Role:      actor.Role,
			CreatedAt: l.now(),
		}
		// The status is already written; a lost history row is not worth
		// failing the request over.
		if err := l.history.Record(ctx, t); err != nil {
			l.logger.Error("record bid transition",
				slog.String("bid_id", t.BidID),
				slog.String("error", err.Error()),
			)
		}
	}
	return res, nil
}

// History lists the status changes of a bid to its bidder or poster.
func (l *Ledger) History(ctx context.Context, caller models.Identity, id string) ([]models.Transition, error) {
	bid, err := l.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if bid.UserEmail != caller.Email && bid.BuyerEmail != caller.Email {
		return nil, models.ErrForbidden
	}
	if l.history == nil {
		return []models.Transition{}, nil
	}
	return l.history.List(ctx, bid.ID.Hex())
}

type assumeJobsExist struct{}

func (assumeJobsExist) Existing(_ context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]bool, error) {
	found := make(map[primitive.ObjectID]bool, len(ids))
	for _, id := range ids {
		found[id] = true
	}
	return found, nil
}

func (l *Ledger) find(ctx context.Context, id string) (*models.Bid, error) {
	oid, err := models.ParseID(id)
	if err != nil {
		return nil, err
	}
	return l.store.FindByID(ctx, oid)
}

func owns(bid *models.Bid, actor models.Actor) bool {
	switch actor.Role {
	case models.RoleBidder:
		return bid.UserEmail == actor.Email
	case models.RolePoster:
		return bid.BuyerEmail == actor.Email
	default:
		return false
	}
}
