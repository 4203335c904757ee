package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Job tracks one processing attempt for one uploaded document. Status only
// ever moves processing -> completed or processing -> failed.
type Job struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	DocumentURL string     `json:"documentUrl" db:"document_url"`
	Status      string     `json:"status" db:"status"`
	CreatedAt   time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time  `json:"updatedAt" db:"updated_at"`
	DocumentID  *uuid.UUID `json:"documentId,omitempty" db:"document_id"`
	Error       string     `json:"error,omitempty" db:"error"`
}

// Document is the metadata record of a successfully processed document.
// Written once on the success path, immutable after that.
type Document struct {
	ID          uuid.UUID `json:"id" db:"id"`
	BlobURL     string    `json:"blobUrl" db:"blob_url"`
	UploadDate  time.Time `json:"uploadDate" db:"upload_date"`
	Status      string    `json:"status" db:"status"`
	ContentType string    `json:"contentType" db:"content_type"`
	SizeBytes   int64     `json:"sizeBytes" db:"size_bytes"`
	JobID       uuid.UUID `json:"jobId" db:"job_id"`
	UserID      string    `json:"userId" db:"user_id"`
	FileName    string    `json:"fileName" db:"file_name"`
	PageCount   *int      `json:"pageCount,omitempty" db:"page_count"`
}

// ExtractedData holds one extraction result for a document. 1:1 with
// Document by convention; duplicates can appear under redelivery.
type ExtractedData struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	DocumentID      uuid.UUID       `json:"documentId" db:"document_id"`
	ExtractedFields json.RawMessage `json:"extractedFields" db:"extracted_fields"`
	Confidence      float64         `json:"confidence" db:"confidence"`
	Model           string          `json:"model" db:"model"`
	ExtractedAt     time.Time       `json:"extractedAt" db:"extracted_at"`
	Warnings        []string        `json:"warnings" db:"warnings"`
	RawResponse     string          `json:"rawResponse" db:"raw_response"`
}

const (
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"

	DocStatusCompleted = "completed"
)

// AnonymousUser is recorded when the triggering event carries no user.
const AnonymousUser = "anonymous"
