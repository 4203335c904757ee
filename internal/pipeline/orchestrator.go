package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sdocherty/docflow/internal/extraction"
	"github.com/sdocherty/docflow/internal/metadata"
	"github.com/sdocherty/docflow/internal/models"
	"github.com/sdocherty/docflow/internal/notify"
	"github.com/sdocherty/docflow/internal/storage"
	"github.com/sdocherty/docflow/pkg/pdfinfo"
)

// Trigger carries everything one inbound event provides: the blob reference,
// the user it belongs to (may be empty), and the delivery's message ID for
// correlation.
type Trigger struct {
	DocumentURL string
	UserID      string
	MessageID   string
}

// Extractor is the model capability consumed by the orchestrator.
type Extractor interface {
	Extract(ctx context.Context, data []byte, contentType string) (*extraction.Result, error)
}

// BlobMover relocates a source blob to its terminal lifecycle area.
type BlobMover interface {
	MoveToProcessed(ctx context.Context, src storage.Locator, documentID string) error
	MoveToFailed(ctx context.Context, src storage.Locator, errMsg string) error
}

// Orchestrator drives one document through the full lifecycle:
// create job, download, validate, extract, persist, relocate, notify.
// It holds no state across invocations; every piece of mutable state lives
// in the metadata store or the object store, so invocations scale out with
// no coordination.
type Orchestrator struct {
	store     metadata.Store
	blobs     storage.BlobStore
	mover     BlobMover
	extractor Extractor
	notifier  notify.Publisher
	maxSizeMB float64
}

func NewOrchestrator(store metadata.Store, blobs storage.BlobStore, mover BlobMover, extractor Extractor, notifier notify.Publisher, maxSizeMB float64) *Orchestrator {
	return &Orchestrator{
		store:     store,
		blobs:     blobs,
		mover:     mover,
		extractor: extractor,
		notifier:  notifier,
		maxSizeMB: maxSizeMB,
	}
}

// ProcessDocument runs one document to a terminal job state. The returned
// error is the original failure, so the queue layer can apply its
// redelivery policy; redelivery is safe because each run creates fresh job
// and document IDs (at-least-once, not exactly-once).
func (o *Orchestrator) ProcessDocument(ctx context.Context, trig Trigger) (*models.Job, error) {
	now := time.Now().UTC()
	job := &models.Job{
		ID:          uuid.New(),
		DocumentURL: trig.DocumentURL,
		Status:      models.JobStatusProcessing,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := o.store.CreateJob(ctx, job); err != nil {
		// No job record exists to mark failed; surface immediately and let
		// redelivery start over with a fresh job ID.
		return nil, wrapKind(ErrFatal, "create job", err)
	}

	slog.Info("job created", "job_id", job.ID, "message_id", trig.MessageID, "document_url", trig.DocumentURL)

	loc, err := storage.ParseLocator(trig.DocumentURL)
	if err != nil {
		return o.fail(ctx, job, nil, wrapKind(ErrValidation, "resolve locator", err))
	}

	data, contentType, err := o.blobs.Download(ctx, loc)
	if err != nil {
		return o.fail(ctx, job, &loc, wrapKind(ErrTransient, "download document", err))
	}

	sizeMB := float64(len(data)) / (1 << 20)
	if sizeMB > o.maxSizeMB {
		slog.Warn("document exceeds size limit", "job_id", job.ID, "size_mb", sizeMB, "max_mb", o.maxSizeMB)
		err := fmt.Errorf("document too large: %.2fMB (max: %gMB)", sizeMB, o.maxSizeMB)
		return o.fail(ctx, job, &loc, wrapKind(ErrValidation, "validate size", err))
	}

	slog.Info("document downloaded", "job_id", job.ID, "size_mb", fmt.Sprintf("%.2f", sizeMB), "content_type", contentType)

	result, err := o.extractor.Extract(ctx, data, contentType)
	if err != nil {
		return o.fail(ctx, job, &loc, wrapKind(ErrTransient, "extract data", err))
	}

	doc := &models.Document{
		ID:          uuid.New(),
		BlobURL:     trig.DocumentURL,
		UploadDate:  time.Now().UTC(),
		Status:      models.DocStatusCompleted,
		ContentType: contentType,
		SizeBytes:   int64(len(data)),
		JobID:       job.ID,
		UserID:      userOrAnonymous(trig.UserID),
		FileName:    loc.FileName(),
		PageCount:   pageCount(data, contentType),
	}
	if err := o.store.CreateDocument(ctx, doc); err != nil {
		return o.fail(ctx, job, &loc, wrapKind(ErrTransient, "persist document", err))
	}

	fields, err := json.Marshal(result.ExtractedFields)
	if err != nil {
		return o.fail(ctx, job, &loc, wrapKind(ErrTransient, "serialize extracted fields", err))
	}
	record := &models.ExtractedData{
		ID:              uuid.New(),
		DocumentID:      doc.ID,
		ExtractedFields: fields,
		Confidence:      result.Confidence,
		Model:           result.Model,
		ExtractedAt:     time.Now().UTC(),
		Warnings:        result.Warnings,
		RawResponse:     result.RawResponse,
	}
	if err := o.store.CreateExtractedData(ctx, record); err != nil {
		return o.fail(ctx, job, &loc, wrapKind(ErrTransient, "persist extracted data", err))
	}

	// Both metadata records are durable now; blob placement is organizational
	// and must not fail the job.
	if err := o.mover.MoveToProcessed(ctx, loc, doc.ID.String()); err != nil {
		slog.Error("move to processed failed", "job_id", job.ID, "error", err)
	}

	job.Status = models.JobStatusCompleted
	job.DocumentID = &doc.ID
	job.UpdatedAt = time.Now().UTC()
	if err := o.store.UpsertJob(ctx, job); err != nil {
		return o.fail(ctx, job, &loc, wrapKind(ErrTransient, "complete job", err))
	}

	event := notify.CompletionEvent{
		DocumentID:      doc.ID.String(),
		JobID:           job.ID.String(),
		Status:          models.JobStatusCompleted,
		FieldsExtracted: len(result.ExtractedFields),
		CompletedAt:     time.Now().UTC(),
	}
	if err := o.notifier.PublishCompletion(ctx, event); err != nil {
		slog.Error("completion notification failed", "job_id", job.ID, "document_id", doc.ID, "error", err)
	}

	slog.Info("document processed", "job_id", job.ID, "document_id", doc.ID, "confidence", result.Confidence)
	return job, nil
}

// fail marks the job failed and relocates the source blob, both best-effort,
// then hands the original failure back to the caller.
func (o *Orchestrator) fail(ctx context.Context, job *models.Job, loc *storage.Locator, cause error) (*models.Job, error) {
	job.Status = models.JobStatusFailed
	job.Error = cause.Error()
	job.UpdatedAt = time.Now().UTC()
	if err := o.store.UpsertJob(ctx, job); err != nil {
		slog.Error("mark job failed errored", "job_id", job.ID, "error", err)
	}

	if loc != nil {
		if err := o.mover.MoveToFailed(ctx, *loc, cause.Error()); err != nil {
			slog.Error("move to failed area errored", "job_id", job.ID, "error", err)
		}
	}

	slog.Error("document processing failed", "job_id", job.ID, "error", cause)
	return job, cause
}

func userOrAnonymous(userID string) string {
	if userID == "" {
		return models.AnonymousUser
	}
	return userID
}

// pageCount is enrichment only; any PDF parse trouble just leaves it unset.
func pageCount(data []byte, contentType string) *int {
	if extraction.MediaType(contentType) != "application/pdf" {
		return nil
	}
	n, err := pdfinfo.PageCount(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil
	}
	return &n
}
