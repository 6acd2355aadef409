package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ayush/jobbid/internal/models"
)

// MemoryJobStore keeps jobs in process memory. It honors the same contracts
// as MongoJobStore and backs STORE_DRIVER=memory and the tests.
type MemoryJobStore struct {
	mu    sync.RWMutex
	order []primitive.ObjectID
	docs  map[primitive.ObjectID]models.Job
}

func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{docs: make(map[primitive.ObjectID]models.Job)}
}

func (s *MemoryJobStore) All(ctx context.Context) ([]models.Job, error) {
	return s.filter(func(models.Job) bool { return true }), nil
}

func (s *MemoryJobStore) FindByEmployer(ctx context.Context, email string) ([]models.Job, error) {
	return s.filter(func(j models.Job) bool { return j.Employer == email }), nil
}

func (s *MemoryJobStore) filter(keep func(models.Job) bool) []models.Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := []models.Job{}
	for _, id := range s.order {
		if j, ok := s.docs[id]; ok && keep(j) {
			jobs = append(jobs, j)
		}
	}
	return jobs
}

func (s *MemoryJobStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	j, ok := s.docs[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &j, nil
}

func (s *MemoryJobStore) Insert(ctx context.Context, job *models.Job) (primitive.ObjectID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if job.ID.IsZero() {
		job.ID = primitive.NewObjectID()
	}
	s.put(*job)
	return job.ID, nil
}

func (s *MemoryJobStore) put(j models.Job) {
	if _, ok := s.docs[j.ID]; !ok {
		s.order = append(s.order, j.ID)
	}
	s.docs[j.ID] = j
}

func (s *MemoryJobStore) UpsertFields(ctx context.Context, id primitive.ObjectID, owner string, fields models.JobFields) (models.UpdateResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.docs[id]
	if !ok {
		j = models.Job{ID: id}
		fields.Apply(&j)
		s.put(j)
		return models.UpdateResult{Acknowledged: true, UpsertedCount: 1, UpsertedID: id.Hex()}, nil
	}
	if j.Employer != owner {
		return models.UpdateResult{}, models.ErrForbidden
	}

	before := j
	fields.Apply(&j)
	s.docs[id] = j

	res := models.UpdateResult{Acknowledged: true, MatchedCount: 1}
	if before != j {
		res.ModifiedCount = 1
	}
	return res, nil
}

func (s *MemoryJobStore) DeleteOwned(ctx context.Context, id primitive.ObjectID, owner string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.docs[id]
	if !ok {
		return 0, nil
	}
	if j.Employer != owner {
		return 0, models.ErrForbidden
	}
	delete(s.docs, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return 1, nil
}

func (s *MemoryJobStore) SetAttachment(ctx context.Context, id primitive.ObjectID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.docs[id]
	if !ok {
		return models.ErrNotFound
	}
	j.AttachmentKey = key
	s.docs[id] = j
	return nil
}

func (s *MemoryJobStore) Existing(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	found := make(map[primitive.ObjectID]bool, len(ids))
	for _, id := range ids {
		if _, ok := s.docs[id]; ok {
			found[id] = true
		}
	}
	return found, nil
}

// MemoryBidStore keeps bids in process memory.
type MemoryBidStore struct {
	mu    sync.RWMutex
	order []primitive.ObjectID
	docs  map[primitive.ObjectID]models.Bid
}

func NewMemoryBidStore() *MemoryBidStore {
	return &MemoryBidStore{docs: make(map[primitive.ObjectID]models.Bid)}
}

func (s *MemoryBidStore) Insert(ctx context.Context, bid *models.Bid) (primitive.ObjectID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if bid.ID.IsZero() {
		bid.ID = primitive.NewObjectID()
	}
	if bid.CreatedAt.IsZero() {
		bid.CreatedAt = time.Now()
	}
	if _, ok := s.docs[bid.ID]; !ok {
		s.order = append(s.order, bid.ID)
	}
	s.docs[bid.ID] = *bid
	return bid.ID, nil
}

func (s *MemoryBidStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Bid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.docs[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &b, nil
}

func (s *MemoryBidStore) FindByBidder(ctx context.Context, email string, ascending bool) ([]models.Bid, error) {
	bids := s.filter(func(b models.Bid) bool { return b.UserEmail == email })
	sort.SliceStable(bids, func(i, j int) bool {
		if ascending {
			return bids[i].Status < bids[j].Status
		}
		return bids[i].Status > bids[j].Status
	})
	return bids, nil
}

func (s *MemoryBidStore) FindByPoster(ctx context.Context, email string) ([]models.Bid, error) {
	return s.filter(func(b models.Bid) bool { return b.BuyerEmail == email }), nil
}

func (s *MemoryBidStore) filter(keep func(models.Bid) bool) []models.Bid {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bids := []models.Bid{}
	for _, id := range s.order {
		if b, ok := s.docs[id]; ok && keep(b) {
			bids = append(bids, b)
		}
	}
	return bids
}

func (s *MemoryBidStore) SetStatus(ctx context.Context, id primitive.ObjectID, from *models.BidStatus, to models.BidStatus) (models.UpdateResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.docs[id]
	if !ok || (from != nil && b.Status != *from) {
		return models.UpdateResult{Acknowledged: true}, nil
	}
	res := models.UpdateResult{Acknowledged: true, MatchedCount: 1}
	if b.Status != to {
		b.Status = to
		s.docs[id] = b
		res.ModifiedCount = 1
	}
	return res, nil
}
