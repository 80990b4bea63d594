package dto

import "github.com/simlok-id/simlok-api/internal/models"

// VerifyScanRequest is the payload presented by a gate verifier.
type VerifyScanRequest struct {
	Code     string `json:"code" validate:"required"`
	Location string `json:"location"`
	Notes    string `json:"notes"`
}

// ScanResult returns the recorded event plus a permit summary for the
// scanning client.
type ScanResult struct {
	Scan       *models.QrScan    `json:"scan"`
	Submission SubmissionSummary `json:"submission"`
}

// SubmissionSummary is the trimmed projection shown on scan devices.
type SubmissionSummary struct {
	ID             string  `json:"id"`
	PermitNumber   *string `json:"permit_number,omitempty"`
	VendorName     string  `json:"vendor_name"`
	OfficerName    string  `json:"officer_name"`
	JobDescription string  `json:"job_description"`
	WorkLocation   string  `json:"work_location"`
	FinalStatus    string  `json:"final_status"`
}
