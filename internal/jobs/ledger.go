// Package jobs owns job postings: creation, lookup, owner-scoped listing,
// field replacement, deletion and the optional job brief.
package jobs

import (
	"context"
	"fmt"
	"io"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ayush/jobbid/internal/models"
)

// Store is the document store contract the ledger relies on.
type Store interface {
	All(ctx context.Context) ([]models.Job, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Job, error)
	FindByEmployer(ctx context.Context, email string) ([]models.Job, error)
	Insert(ctx context.Context, job *models.Job) (primitive.ObjectID, error)
	UpsertFields(ctx context.Context, id primitive.ObjectID, owner string, fields models.JobFields) (models.UpdateResult, error)
	DeleteOwned(ctx context.Context, id primitive.ObjectID, owner string) (int64, error)
	SetAttachment(ctx context.Context, id primitive.ObjectID, key string) error
}

// BriefStore keeps uploaded job briefs.
type BriefStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, string, error)
}

// Ledger implements the job operations on top of a Store.
type Ledger struct {
	store  Store
	briefs BriefStore
}

// NewLedger returns a Ledger. briefs may be nil, which disables job briefs.
func NewLedger(store Store, briefs BriefStore) *Ledger {
	return &Ledger{store: store, briefs: briefs}
}

func (l *Ledger) ListAll(ctx context.Context) ([]models.Job, error) {
	return l.store.All(ctx)
}

func (l *Ledger) Get(ctx context.Context, id string) (*models.Job, error) {
	oid, err := models.ParseID(id)
	if err != nil {
		return nil, err
	}
	return l.store.FindByID(ctx, oid)
}

// Create stores job as posted by owner. The employer defaults to the owner
// and may not name anyone else.
func (l *Ledger) Create(ctx context.Context, owner models.Identity, job models.Job) (models.InsertResult, error) {
	employer, err := employerFor(owner, job.Employer)
	if err != nil {
		return models.InsertResult{}, err
	}
	job.Employer = employer
	job.ID = primitive.NilObjectID
	job.AttachmentKey = ""
	if err := checkRange(job.Minimum, job.Maximum); err != nil {
		return models.InsertResult{}, err
	}

	oid, err := l.store.Insert(ctx, &job)
	if err != nil {
		return models.InsertResult{}, err
	}
	return models.InsertResult{Acknowledged: true, InsertedID: oid.Hex()}, nil
}

func (l *Ledger) ListByEmployer(ctx context.Context, email string) ([]models.Job, error) {
	return l.store.FindByEmployer(ctx, email)
}

// Replace overwrites the negotiable fields of the job, inserting it under id
// when it does not exist. Only the owner may replace an existing job.
func (l *Ledger) Replace(ctx context.Context, owner models.Identity, id string, fields models.JobFields) (models.UpdateResult, error) {
	oid, err := models.ParseID(id)
	if err != nil {
		return models.UpdateResult{}, err
	}
	employer, err := employerFor(owner, fields.Employer)
	if err != nil {
		return models.UpdateResult{}, err
	}
	fields.Employer = employer
	if err := checkRange(fields.Minimum, fields.Maximum); err != nil {
		return models.UpdateResult{}, err
	}
	return l.store.UpsertFields(ctx, oid, owner.Email, fields)
}

// Delete removes the job if owner posted it. Bids pointing at it are left
// alone. A missing id deletes nothing.
func (l *Ledger) Delete(ctx context.Context, owner models.Identity, id string) (models.DeleteResult, error) {
	oid, err := models.ParseID(id)
	if err != nil {
		return models.DeleteResult{}, err
	}
	n, err := l.store.DeleteOwned(ctx, oid, owner.Email)
	if err != nil {
		return models.DeleteResult{}, err
	}
	return models.DeleteResult{Acknowledged: true, DeletedCount: n}, nil
}

// AttachBrief uploads a brief for the owner's job and records its key.
func (l *Ledger) AttachBrief(ctx context.Context, owner models.Identity, id string, r io.Reader, size int64, contentType string) (*models.Job, error) {
	if l.briefs == nil {
		return nil, models.ErrAttachmentsDisabled
	}
	job, err := l.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Employer != owner.Email {
		return nil, models.ErrForbidden
	}

	key := fmt.Sprintf("jobs/%s/brief", job.ID.Hex())
	if err := l.briefs.Put(ctx, key, r, size, contentType); err != nil {
		return nil, err
	}
	if err := l.store.SetAttachment(ctx, job.ID, key); err != nil {
		return nil, err
	}
	job.AttachmentKey = key
	return job, nil
}

// Brief opens the job's brief. The caller closes the reader.
func (l *Ledger) Brief(ctx context.Context, id string) (io.ReadCloser, string, error) {
	if l.briefs == nil {
		return nil, "", models.ErrAttachmentsDisabled
	}
	job, err := l.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if job.AttachmentKey == "" {
		return nil, "", models.ErrNotFound
	}
	return l.briefs.Get(ctx, job.AttachmentKey)
}

func employerFor(owner models.Identity, employer string) (string, error) {
	if employer == "" || employer == owner.Email {
		return owner.Email, nil
	}
	return "", fmt.Errorf("%w: employer %q is not the caller", models.ErrForbidden, employer)
}

func checkRange(min, max float64) error {
	if min > max {
		return fmt.Errorf("%w: minimum %g exceeds maximum %g", models.ErrValidation, min, max)
	}
	return nil
}
