package dto

import "time"

// CreateWorkerRequest adds one roster entry to a submission.
type CreateWorkerRequest struct {
	WorkerName     string     `json:"worker_name" validate:"required"`
	PhotoPath      string     `json:"photo_path" validate:"required"`
	HSSEPassNumber *string    `json:"hsse_pass_number"`
	HSSEPassExpiry *time.Time `json:"hsse_pass_expiry"`
	HSSEPassDoc    *string    `json:"hsse_pass_doc"`
}
