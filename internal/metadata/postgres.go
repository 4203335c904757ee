package metadata

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sdocherty/docflow/internal/models"
)

type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) CreateJob(ctx context.Context, job *models.Job) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO jobs (id, document_url, status, created_at, updated_at, document_id, error)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		job.ID, job.DocumentURL, job.Status, job.CreatedAt, job.UpdatedAt, job.DocumentID, job.Error,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpsertJob(ctx context.Context, job *models.Job) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO jobs (id, document_url, status, created_at, updated_at, document_id, error)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO UPDATE
		 SET status = EXCLUDED.status,
		     updated_at = EXCLUDED.updated_at,
		     document_id = EXCLUDED.document_id,
		     error = EXCLUDED.error`,
		job.ID, job.DocumentURL, job.Status, job.CreatedAt, job.UpdatedAt, job.DocumentID, job.Error,
	)
	if err != nil {
		return fmt.Errorf("upsert job: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateDocument(ctx context.Context, doc *models.Document) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO documents (id, blob_url, upload_date, status, content_type, size_bytes, job_id, user_id, file_name, page_count)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		doc.ID, doc.BlobURL, doc.UploadDate, doc.Status, doc.ContentType, doc.SizeBytes, doc.JobID, doc.UserID, doc.FileName, doc.PageCount,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListDocuments(ctx context.Context, limit int, status string) ([]models.Document, error) {
	query := `SELECT id, blob_url, upload_date, status, content_type, size_bytes, job_id, user_id, file_name, page_count
	          FROM documents`
	args := []any{}
	if status != "" {
		query += ` WHERE status = $1 ORDER BY upload_date DESC LIMIT $2`
		args = append(args, status, limit)
	} else {
		query += ` ORDER BY upload_date DESC LIMIT $1`
		args = append(args, limit)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		var d models.Document
		if err := rows.Scan(&d.ID, &d.BlobURL, &d.UploadDate, &d.Status, &d.ContentType, &d.SizeBytes, &d.JobID, &d.UserID, &d.FileName, &d.PageCount); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (s *PostgresStore) CreateExtractedData(ctx context.Context, data *models.ExtractedData) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO extracted_data (id, document_id, extracted_fields, confidence, model, extracted_at, warnings, raw_response)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		data.ID, data.DocumentID, data.ExtractedFields, data.Confidence, data.Model, data.ExtractedAt, data.Warnings, data.RawResponse,
	)
	if err != nil {
		return fmt.Errorf("insert extracted data: %w", err)
	}
	return nil
}

// GetExtractedData returns the newest extraction record for a document.
// Redelivery can produce duplicates; the latest one wins.
func (s *PostgresStore) GetExtractedData(ctx context.Context, documentID uuid.UUID) (*models.ExtractedData, error) {
	var data models.ExtractedData
	err := s.db.QueryRow(ctx,
		`SELECT id, document_id, extracted_fields, confidence, model, extracted_at, warnings, raw_response
		 FROM extracted_data WHERE document_id = $1
		 ORDER BY extracted_at DESC LIMIT 1`,
		documentID,
	).Scan(&data.ID, &data.DocumentID, &data.ExtractedFields, &data.Confidence, &data.Model, &data.ExtractedAt, &data.Warnings, &data.RawResponse)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get extracted data: %w", err)
	}
	return &data, nil
}
