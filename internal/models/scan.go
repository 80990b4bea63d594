package models

import "time"

// QrScan is an append-only gate scan event. Rows are never updated or
// deleted; repeated scans of the same permit append new rows.
type QrScan struct {
	ID           string    `db:"id" json:"id"`
	SubmissionID string    `db:"submission_id" json:"submission_id"`
	ScannedBy    string    `db:"scanned_by" json:"scanned_by"`
	ScannerName  string    `db:"scanner_name" json:"scanner_name"`
	ScanLocation *string   `db:"scan_location" json:"scan_location,omitempty"`
	Notes        *string   `db:"notes" json:"notes,omitempty"`
	ScannedAt    time.Time `db:"scanned_at" json:"scanned_at"`
}

// QrScanFilter constrains scan history queries.
type QrScanFilter struct {
	SubmissionID string
	ScannedBy    string
	Page         int
	PageSize     int
}
