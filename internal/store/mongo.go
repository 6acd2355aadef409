package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ayush/jobbid/internal/models"
)

const (
	JobsCollection = "addJobs"
	BidsCollection = "bidJobs"
)

// MongoJobStore handles job postings in MongoDB.
type MongoJobStore struct {
	col *mongo.Collection
}

func NewMongoJobStore(db *mongo.Database) *MongoJobStore {
	return &MongoJobStore{col: db.Collection(JobsCollection)}
}

// EnsureIndexes creates the employer index used by owner-scoped listing.
func (s *MongoJobStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{{Key: "employer", Value: 1}}})
	if err != nil {
		return fmt.Errorf("mongo jobs index: %w", err)
	}
	return nil
}

func (s *MongoJobStore) All(ctx context.Context) ([]models.Job, error) {
	return s.find(ctx, bson.M{})
}

func (s *MongoJobStore) FindByEmployer(ctx context.Context, email string) ([]models.Job, error) {
	return s.find(ctx, bson.M{"employer": email})
}

func (s *MongoJobStore) find(ctx context.Context, filter bson.M) ([]models.Job, error) {
	cur, err := s.col.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("mongo find jobs: %w", err)
	}
	defer cur.Close(ctx)

	jobs := []models.Job{}
	if err := cur.All(ctx, &jobs); err != nil {
		return nil, fmt.Errorf("mongo decode jobs: %w", err)
	}
	return jobs, nil
}

func (s *MongoJobStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Job, error) {
	var job models.Job
	err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&job)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mongo find job: %w", err)
	}
	return &job, nil
}

func (s *MongoJobStore) Insert(ctx context.Context, job *models.Job) (primitive.ObjectID, error) {
	res, err := s.col.InsertOne(ctx, job)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("mongo insert job: %w", err)
	}
	oid := res.InsertedID.(primitive.ObjectID)
	job.ID = oid
	return oid, nil
}

// UpsertFields sets the negotiable fields of the job owned by owner, inserting
// it under id when absent. The owner is part of the filter, so a job held by
// someone else makes the insert collide on _id.
func (s *MongoJobStore) UpsertFields(ctx context.Context, id primitive.ObjectID, owner string, fields models.JobFields) (models.UpdateResult, error) {
	filter := bson.M{"_id": id, "employer": owner}
	update := bson.M{"$set": fields}
	res, err := s.col.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if mongo.IsDuplicateKeyError(err) {
		return models.UpdateResult{}, models.ErrForbidden
	}
	if err != nil {
		return models.UpdateResult{}, fmt.Errorf("mongo upsert job: %w", err)
	}
	return updateResult(res), nil
}

// DeleteOwned removes the job if owner posted it. A missing job deletes
// nothing and is not an error.
func (s *MongoJobStore) DeleteOwned(ctx context.Context, id primitive.ObjectID, owner string) (int64, error) {
	res, err := s.col.DeleteOne(ctx, bson.M{"_id": id, "employer": owner})
	if err != nil {
		return 0, fmt.Errorf("mongo delete job: %w", err)
	}
	if res.DeletedCount > 0 {
		return res.DeletedCount, nil
	}
	n, err := s.col.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, fmt.Errorf("mongo count job: %w", err)
	}
	if n > 0 {
		return 0, models.ErrForbidden
	}
	return 0, nil
}

func (s *MongoJobStore) SetAttachment(ctx context.Context, id primitive.ObjectID, key string) error {
	res, err := s.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"attachmentKey": key}})
	if err != nil {
		return fmt.Errorf("mongo set attachment: %w", err)
	}
	if res.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

// Existing reports which of ids still resolve to a job.
func (s *MongoJobStore) Existing(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]bool, error) {
	found := make(map[primitive.ObjectID]bool, len(ids))
	if len(ids) == 0 {
		return found, nil
	}
	opts := options.Find().SetProjection(bson.M{"_id": 1})
	cur, err := s.col.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo find existing jobs: %w", err)
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var doc struct {
			ID primitive.ObjectID `bson:"_id"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("mongo decode job id: %w", err)
		}
		found[doc.ID] = true
	}
	return found, cur.Err()
}

// MongoBidStore handles bids in MongoDB.
type MongoBidStore struct {
	col *mongo.Collection
}

func NewMongoBidStore(db *mongo.Database) *MongoBidStore {
	return &MongoBidStore{col: db.Collection(BidsCollection)}
}

// EnsureIndexes creates the bidder and poster indexes.
func (s *MongoBidStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "userEmail", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "buyerEmail", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("mongo bids index: %w", err)
	}
	return nil
}

func (s *MongoBidStore) Insert(ctx context.Context, bid *models.Bid) (primitive.ObjectID, error) {
	if bid.CreatedAt.IsZero() {
		bid.CreatedAt = time.Now()
	}
	res, err := s.col.InsertOne(ctx, bid)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("mongo insert bid: %w", err)
	}
	oid := res.InsertedID.(primitive.ObjectID)
	bid.ID = oid
	return oid, nil
}

func (s *MongoBidStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Bid, error) {
	var bid models.Bid
	err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&bid)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mongo find bid: %w", err)
	}
	return &bid, nil
}

// FindByBidder lists a bidder's bids ordered by status.
func (s *MongoBidStore) FindByBidder(ctx context.Context, email string, ascending bool) ([]models.Bid, error) {
	dir := -1
	if ascending {
		dir = 1
	}
	opts := options.Find().SetSort(bson.D{{Key: "status", Value: dir}})
	return s.find(ctx, bson.M{"userEmail": email}, opts)
}

func (s *MongoBidStore) FindByPoster(ctx context.Context, email string) ([]models.Bid, error) {
	return s.find(ctx, bson.M{"buyerEmail": email})
}

func (s *MongoBidStore) find(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]models.Bid, error) {
	cur, err := s.col.Find(ctx, filter, opts...)
	if err != nil {
		return nil, fmt.Errorf("mongo find bids: %w", err)
	}
	defer cur.Close(ctx)

	bids := []models.Bid{}
	if err := cur.All(ctx, &bids); err != nil {
		return nil, fmt.Errorf("mongo decode bids: %w", err)
	}
	return bids, nil
}

// SetStatus overwrites the status of a bid. With a non-nil from, the write
// only lands while the stored status still equals *from.
func (s *MongoBidStore) SetStatus(ctx context.Context, id primitive.ObjectID, from *models.BidStatus, to models.BidStatus) (models.UpdateResult, error) {
	filter := bson.M{"_id": id}
	if from != nil {
		filter["status"] = *from
	}
	res, err := s.col.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"status": to}})
	if err != nil {
		return models.UpdateResult{}, fmt.Errorf("mongo set bid status: %w", err)
	}
	return updateResult(res), nil
}

func updateResult(res *mongo.UpdateResult) models.UpdateResult {
	out := models.UpdateResult{
		Acknowledged:  true,
		MatchedCount:  res.MatchedCount,
		ModifiedCount: res.ModifiedCount,
		UpsertedCount: res.UpsertedCount,
	}
	if oid, ok := res.UpsertedID.(primitive.ObjectID); ok {
		out.UpsertedID = oid.Hex()
	}
	return out
}
