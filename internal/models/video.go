package models

import "time"

// VideoStatus tracks the verification state of a stored upload.
type VideoStatus string

const (
	VideoStatusPending  VideoStatus = "PENDING"
	VideoStatusVerified VideoStatus = "VERIFIED"
	VideoStatusRejected VideoStatus = "REJECTED"
)

// VideoSubmission is an accepted upload form payload.
type VideoSubmission struct {
	ID           string      `db:"id" json:"id"`
	Name         string      `db:"name" json:"name"`
	Description  string      `db:"description" json:"description"`
	Filename     string      `db:"filename" json:"filename"`
	SizeBytes    int64       `db:"size_bytes" json:"sizeBytes"`
	MimeType     string      `db:"mime_type" json:"mimeType"`
	Duration     *float64    `db:"duration_seconds" json:"duration,omitempty"`
	FilePath     *string     `db:"file_path" json:"filePath,omitempty"`
	DetectedMime *string     `db:"detected_mime" json:"detectedMime,omitempty"`
	Status       VideoStatus `db:"status" json:"status,omitempty"`
	SubmittedAt  time.Time   `db:"submitted_at" json:"submittedAt"`
	DeletedAt    *time.Time  `db:"deleted_at" json:"deletedAt,omitempty"`
}

// VideoFilter narrows listing queries.
type VideoFilter struct {
	Status         VideoStatus
	IncludeDeleted bool
	Limit          int
	Offset         int
}

// Pagination describes a window over a listing.
type Pagination struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Count  int `json:"count"`
}
