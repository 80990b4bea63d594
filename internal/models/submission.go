package models

import "time"

// ReviewStatus captures the reviewer verdict on a submission.
type ReviewStatus string

const (
	ReviewStatusPending  ReviewStatus = "PENDING_REVIEW"
	ReviewStatusMeets    ReviewStatus = "MEETS_REQUIREMENTS"
	ReviewStatusNotMeets ReviewStatus = "NOT_MEETS_REQUIREMENTS"
)

// FinalStatus captures the approver decision. PENDING_APPROVAL is the only
// state that permits further mutation; APPROVED and REJECTED are terminal.
type FinalStatus string

const (
	FinalStatusPending  FinalStatus = "PENDING_APPROVAL"
	FinalStatusApproved FinalStatus = "APPROVED"
	FinalStatusRejected FinalStatus = "REJECTED"
)

// Submission is the central permit request entity.
type Submission struct {
	ID           string  `db:"id" json:"id"`
	UserID       string  `db:"user_id" json:"user_id"`
	PermitNumber *string `db:"permit_number" json:"permit_number,omitempty"`

	VendorName     string `db:"vendor_name" json:"vendor_name"`
	BasedOn        string `db:"based_on" json:"based_on"`
	OfficerName    string `db:"officer_name" json:"officer_name"`
	JobDescription string `db:"job_description" json:"job_description"`
	WorkLocation   string `db:"work_location" json:"work_location"`
	Implementation string `db:"implementation" json:"implementation"`
	WorkingHours   string `db:"working_hours" json:"working_hours"`
	OtherNotes     string `db:"other_notes" json:"other_notes"`
	WorkFacilities string `db:"work_facilities" json:"work_facilities"`
	WorkerCount    int    `db:"worker_count" json:"worker_count"`

	// Legacy named supporting documents plus the generic slots that
	// superseded them.
	SimjaNumber        *string    `db:"simja_number" json:"simja_number,omitempty"`
	SimjaDate          *time.Time `db:"simja_date" json:"simja_date,omitempty"`
	SikaNumber         *string    `db:"sika_number" json:"sika_number,omitempty"`
	SikaDate           *time.Time `db:"sika_date" json:"sika_date,omitempty"`
	SupportingDoc1Name *string    `db:"supporting_doc1_name" json:"supporting_doc1_name,omitempty"`
	SupportingDoc1Num  *string    `db:"supporting_doc1_number" json:"supporting_doc1_number,omitempty"`
	SupportingDoc1Date *time.Time `db:"supporting_doc1_date" json:"supporting_doc1_date,omitempty"`
	SupportingDoc2Name *string    `db:"supporting_doc2_name" json:"supporting_doc2_name,omitempty"`
	SupportingDoc2Num  *string    `db:"supporting_doc2_number" json:"supporting_doc2_number,omitempty"`
	SupportingDoc2Date *time.Time `db:"supporting_doc2_date" json:"supporting_doc2_date,omitempty"`

	// Template fields frozen once finalized.
	ImplementationStart *time.Time `db:"implementation_start" json:"implementation_start,omitempty"`
	ImplementationEnd   *time.Time `db:"implementation_end" json:"implementation_end,omitempty"`
	HolidayWorkingHours string     `db:"holiday_working_hours" json:"holiday_working_hours"`
	SignerPosition      string     `db:"signer_position" json:"signer_position"`
	SignerName          string     `db:"signer_name" json:"signer_name"`
	Content             string     `db:"content" json:"content"`

	ReviewStatus  ReviewStatus `db:"review_status" json:"review_status"`
	ReviewNote    *string      `db:"review_note" json:"review_note,omitempty"`
	NoteForVendor *string      `db:"note_for_vendor" json:"note_for_vendor,omitempty"`
	ReviewedBy    *string      `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt    *time.Time   `db:"reviewed_at" json:"reviewed_at,omitempty"`

	FinalStatus FinalStatus `db:"final_status" json:"final_status"`
	FinalNote   *string     `db:"final_note" json:"final_note,omitempty"`
	SimlokDate  *time.Time  `db:"simlok_date" json:"simlok_date,omitempty"`
	Tembusan    *string     `db:"tembusan" json:"tembusan,omitempty"`
	ApprovedBy  *string     `db:"approved_by" json:"approved_by,omitempty"`
	ApprovedAt  *time.Time  `db:"approved_at" json:"approved_at,omitempty"`

	QRCode    string    `db:"qrcode" json:"qrcode"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Finalized reports whether the approver decision has been locked in.
func (s *Submission) Finalized() bool {
	return s.FinalStatus == FinalStatusApproved || s.FinalStatus == FinalStatusRejected
}

// SubmissionFilter constrains listing queries.
type SubmissionFilter struct {
	ReviewStatus []ReviewStatus
	FinalStatus  []FinalStatus
	UserID       string
	Vendor       string
	Search       string
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}

// SubmissionStats aggregates dashboard counters.
type SubmissionStats struct {
	Total           int `db:"total" json:"total"`
	PendingReview   int `db:"pending_review" json:"pending_review"`
	MeetsReqs       int `db:"meets_requirements" json:"meets_requirements"`
	NotMeetsReqs    int `db:"not_meets_requirements" json:"not_meets_requirements"`
	PendingApproval int `db:"pending_approval" json:"pending_approval"`
	Approved        int `db:"approved" json:"approved"`
	Rejected        int `db:"rejected" json:"rejected"`
	ScansToday      int `db:"scans_today" json:"scans_today"`
}
