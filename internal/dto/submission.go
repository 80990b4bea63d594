package dto

import (
	"time"

	"github.com/simlok-id/simlok-api/internal/models"
)

// CreateSubmissionRequest is the vendor-facing creation payload.
type CreateSubmissionRequest struct {
	VendorName     string `json:"vendor_name" validate:"required"`
	BasedOn        string `json:"based_on"`
	OfficerName    string `json:"officer_name" validate:"required"`
	JobDescription string `json:"job_description" validate:"required"`
	WorkLocation   string `json:"work_location" validate:"required"`
	Implementation string `json:"implementation"`
	WorkingHours   string `json:"working_hours"`
	OtherNotes     string `json:"other_notes"`
	WorkFacilities string `json:"work_facilities"`
	WorkerCount    int    `json:"worker_count" validate:"gte=0"`

	SimjaNumber        *string    `json:"simja_number"`
	SimjaDate          *time.Time `json:"simja_date"`
	SikaNumber         *string    `json:"sika_number"`
	SikaDate           *time.Time `json:"sika_date"`
	SupportingDoc1Name *string    `json:"supporting_doc1_name"`
	SupportingDoc1Num  *string    `json:"supporting_doc1_number"`
	SupportingDoc1Date *time.Time `json:"supporting_doc1_date"`
	SupportingDoc2Name *string    `json:"supporting_doc2_name"`
	SupportingDoc2Num  *string    `json:"supporting_doc2_number"`
	SupportingDoc2Date *time.Time `json:"supporting_doc2_date"`

	Workers []CreateWorkerRequest `json:"workers"`
}

// UpdateSubmissionRequest carries the editable fields. Pointer fields are
// patched only when present.
type UpdateSubmissionRequest struct {
	VendorName     *string `json:"vendor_name"`
	BasedOn        *string `json:"based_on"`
	OfficerName    *string `json:"officer_name"`
	JobDescription *string `json:"job_description"`
	WorkLocation   *string `json:"work_location"`
	Implementation *string `json:"implementation"`
	WorkingHours   *string `json:"working_hours"`
	OtherNotes     *string `json:"other_notes"`
	WorkFacilities *string `json:"work_facilities"`
	WorkerCount    *int    `json:"worker_count"`

	SimjaNumber        *string    `json:"simja_number"`
	SimjaDate          *time.Time `json:"simja_date"`
	SikaNumber         *string    `json:"sika_number"`
	SikaDate           *time.Time `json:"sika_date"`
	SupportingDoc1Name *string    `json:"supporting_doc1_name"`
	SupportingDoc1Num  *string    `json:"supporting_doc1_number"`
	SupportingDoc1Date *time.Time `json:"supporting_doc1_date"`
	SupportingDoc2Name *string    `json:"supporting_doc2_name"`
	SupportingDoc2Num  *string    `json:"supporting_doc2_number"`
	SupportingDoc2Date *time.Time `json:"supporting_doc2_date"`

	ImplementationStart *time.Time `json:"implementation_start"`
	ImplementationEnd   *time.Time `json:"implementation_end"`
	HolidayWorkingHours *string    `json:"holiday_working_hours"`
	SignerPosition      *string    `json:"signer_position"`
	SignerName          *string    `json:"signer_name"`
	Content             *string    `json:"content"`
}

// ReviewSubmissionRequest captures the reviewer verdict and both mandatory notes.
type ReviewSubmissionRequest struct {
	Verdict       models.ReviewStatus `json:"verdict" validate:"required"`
	ReviewNote    string              `json:"review_note" validate:"required"`
	NoteForVendor string              `json:"note_for_vendor" validate:"required"`
}

// FinalizeSubmissionRequest carries the approver decision.
type FinalizeSubmissionRequest struct {
	Decision     models.FinalStatus `json:"decision" validate:"required"`
	PermitNumber string             `json:"permit_number"`
	Tembusan     string             `json:"tembusan"`
	FinalNote    string             `json:"final_note"`
	SimlokDate   *time.Time         `json:"simlok_date"`
}

// SubmissionQuery mirrors supported listing filters.
type SubmissionQuery struct {
	ReviewStatus []models.ReviewStatus
	FinalStatus  []models.FinalStatus
	Vendor       string
	Search       string
	Page         int
	Limit        int
	SortBy       string
	SortOrder    string
	WithStats    bool
}

// SubmissionDetail pairs a submission with derived roster information.
// The stored worker_count is advisory; the mismatch flag surfaces rows
// where it diverges from the actual roster length.
type SubmissionDetail struct {
	Submission          *models.Submission   `json:"submission"`
	Workers             []models.WorkerPhoto `json:"workers,omitempty"`
	RosterCount         int                  `json:"roster_count"`
	WorkerCountMismatch bool                 `json:"worker_count_mismatch"`
}
