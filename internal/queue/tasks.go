package queue

import "time"

const TypeDocumentProcess = "document:process"

// DocumentProcessPayload triggers one orchestration run. UserID may be
// empty; the pipeline records the anonymous sentinel in that case.
type DocumentProcessPayload struct {
	BlobURL    string    `json:"blob_url"`
	UserID     string    `json:"user_id,omitempty"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}
