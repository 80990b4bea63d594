package models

import "time"

// WorkerPhoto is one roster entry owned by exactly one submission.
type WorkerPhoto struct {
	ID             string     `db:"id" json:"id"`
	SubmissionID   string     `db:"submission_id" json:"submission_id"`
	WorkerName     string     `db:"worker_name" json:"worker_name"`
	PhotoPath      string     `db:"photo_path" json:"photo_path"`
	HSSEPassNumber *string    `db:"hsse_pass_number" json:"hsse_pass_number,omitempty"`
	HSSEPassExpiry *time.Time `db:"hsse_pass_expiry" json:"hsse_pass_expiry,omitempty"`
	HSSEPassDoc    *string    `db:"hsse_pass_doc" json:"hsse_pass_doc,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}
