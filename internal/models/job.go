package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Job is a single posting stored in the addJobs collection.
type Job struct {
	ID            primitive.ObjectID `json:"_id"                     bson:"_id,omitempty"`
	Employer      string             `json:"employer"                bson:"employer"`
	Job           string             `json:"job"                     bson:"job"`
	Deadline      string             `json:"deadline"                bson:"deadline"`
	Description   string             `json:"description"             bson:"description"`
	Category      string             `json:"category"                bson:"category"`
	Minimum       float64            `json:"minimum"                 bson:"minimum"`
	Maximum       float64            `json:"maximum"                 bson:"maximum"`
	AttachmentKey string             `json:"attachmentKey,omitempty" bson:"attachmentKey,omitempty"`
}

// JobFields are the negotiable fields an edit overwrites. Anything not listed
// here (the attachment key, for one) survives an edit untouched.
type JobFields struct {
	Employer    string  `json:"employer"    bson:"employer"`
	Job         string  `json:"job"         bson:"job"`
	Deadline    string  `json:"deadline"    bson:"deadline"`
	Description string  `json:"description" bson:"description"`
	Category    string  `json:"category"    bson:"category"`
	Minimum     float64 `json:"minimum"     bson:"minimum"`
	Maximum     float64 `json:"maximum"     bson:"maximum"`
}

// Apply copies the negotiable fields onto j.
func (f JobFields) Apply(j *Job) {
	j.Employer = f.Employer
	j.Job = f.Job
	j.Deadline = f.Deadline
	j.Description = f.Description
	j.Category = f.Category
	j.Minimum = f.Minimum
	j.Maximum = f.Maximum
}

// EditJobRequest is the JSON body for PUT /edit_job/{id}.
type EditJobRequest struct {
	UpdateJob JobFields `json:"updateJob"`
}
