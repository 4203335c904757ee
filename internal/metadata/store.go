package metadata

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sdocherty/docflow/internal/models"
)

// ErrNotFound is returned when a lookup matches no record.
var ErrNotFound = errors.New("record not found")

// Store is the metadata capability the pipeline consumes. Jobs are created
// once and upserted once more with their terminal status; documents and
// extraction records are insert-only.
type Store interface {
	CreateJob(ctx context.Context, job *models.Job) error
	UpsertJob(ctx context.Context, job *models.Job) error
	CreateDocument(ctx context.Context, doc *models.Document) error
	ListDocuments(ctx context.Context, limit int, status string) ([]models.Document, error)
	CreateExtractedData(ctx context.Context, data *models.ExtractedData) error
	GetExtractedData(ctx context.Context, documentID uuid.UUID) (*models.ExtractedData, error)
}
