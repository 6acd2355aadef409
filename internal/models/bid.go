package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// BidStatus is the lifecycle state of a bid.
type BidStatus string

const (
	BidPending   BidStatus = "pending"
	BidAccepted  BidStatus = "accepted"
	BidRejected  BidStatus = "rejected"
	BidCancelled BidStatus = "cancelled"
	BidCompleted BidStatus = "completed"
)

// Role says which side of a bid the caller acts for.
type Role string

const (
	RoleBidder Role = "bidder"
	RolePoster Role = "poster"
)

// Bid is one worker's offer against a job, stored in the bidJobs collection.
// JobID is a weak reference: the job may be gone.
type Bid struct {
	ID         primitive.ObjectID `json:"_id"        bson:"_id,omitempty"`
	JobID      string             `json:"jobId"      bson:"jobId"`
	Job        string             `json:"job"        bson:"job"`
	Price      float64            `json:"price"      bson:"price"`
	Deadline   string             `json:"deadline"   bson:"deadline"`
	UserEmail  string             `json:"userEmail"  bson:"userEmail"`
	BuyerEmail string             `json:"buyerEmail" bson:"buyerEmail"`
	Status     BidStatus          `json:"status"     bson:"status"`
	CreatedAt  time.Time          `json:"createdAt"  bson:"createdAt"`
}

// BidView is a bid as listed to its owners, with the state of the job it
// points at.
type BidView struct {
	Bid
	JobAvailable bool `json:"jobAvailable"`
}

// StatusRequest is the JSON body for the status PATCH routes.
type StatusRequest struct {
	Status BidStatus `json:"status"`
}

// Actor is the caller of a status change and the role they act in.
type Actor struct {
	Email string
	Role  Role
}

// Transition is one recorded status change of a bid.
type Transition struct {
	BidID     string    `json:"bidId"`
	From      BidStatus `json:"from"`
	To        BidStatus `json:"to"`
	Actor     string    `json:"actor"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}
