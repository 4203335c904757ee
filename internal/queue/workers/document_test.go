package workers

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdocherty/docflow/internal/extraction"
	"github.com/sdocherty/docflow/internal/models"
	"github.com/sdocherty/docflow/internal/notify"
	"github.com/sdocherty/docflow/internal/pipeline"
	"github.com/sdocherty/docflow/internal/queue"
	"github.com/sdocherty/docflow/internal/storage"
)

type recordStoreFake struct{}

func (recordStoreFake) CreateJob(context.Context, *models.Job) error           { return nil }
func (recordStoreFake) UpsertJob(context.Context, *models.Job) error           { return nil }
func (recordStoreFake) CreateDocument(context.Context, *models.Document) error { return nil }
func (recordStoreFake) ListDocuments(context.Context, int, string) ([]models.Document, error) {
	return nil, nil
}
func (recordStoreFake) CreateExtractedData(context.Context, *models.ExtractedData) error {
	return nil
}
func (recordStoreFake) GetExtractedData(context.Context, uuid.UUID) (*models.ExtractedData, error) {
	return nil, errors.New("not implemented")
}

type downloadFake struct {
	data        []byte
	downloadErr error
}

func (f downloadFake) Download(context.Context, storage.Locator) ([]byte, string, error) {
	if f.downloadErr != nil {
		return nil, "", f.downloadErr
	}
	return f.data, "application/pdf", nil
}

func (downloadFake) Upload(_ context.Context, bucket, key string, _ []byte, _ string) (storage.Locator, error) {
	return storage.Locator{Bucket: bucket, Key: key}, nil
}
func (downloadFake) Copy(context.Context, storage.Locator, string, string) error { return nil }
func (downloadFake) Delete(context.Context, storage.Locator) error               { return nil }
func (downloadFake) SetMetadata(context.Context, storage.Locator, map[string]string) error {
	return nil
}
func (downloadFake) Exists(context.Context, storage.Locator) (bool, error) { return true, nil }
func (downloadFake) PublicURL(loc storage.Locator) string                  { return "https://store/" + loc.String() }

type noopMover struct{}

func (noopMover) MoveToProcessed(context.Context, storage.Locator, string) error { return nil }
func (noopMover) MoveToFailed(context.Context, storage.Locator, string) error    { return nil }

type fixedExtractor struct{}

func (fixedExtractor) Extract(context.Context, []byte, string) (*extraction.Result, error) {
	return &extraction.Result{
		ExtractedFields: map[string]any{"total": 1.0},
		Confidence:      1.0,
		Model:           "test-model",
	}, nil
}

type noopPublisher struct{}

func (noopPublisher) PublishCompletion(context.Context, notify.CompletionEvent) error { return nil }

func newWorker(blobs downloadFake, maxSizeMB float64) *DocumentWorker {
	orch := pipeline.NewOrchestrator(recordStoreFake{}, blobs, noopMover{}, fixedExtractor{}, noopPublisher{}, maxSizeMB)
	return NewDocumentWorker(orch)
}

func processTask(t *testing.T, w *DocumentWorker, payload queue.DocumentProcessPayload) error {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	return w.ProcessTask(context.Background(), asynq.NewTask(queue.TypeDocumentProcess, body))
}

const taskBlobURL = "https://store/documents-incoming/20240115_ab12cd34_invoice.pdf"

func TestProcessTaskSuccess(t *testing.T) {
	w := newWorker(downloadFake{data: []byte("pdf bytes")}, 50)

	err := processTask(t, w, queue.DocumentProcessPayload{BlobURL: taskBlobURL})
	assert.NoError(t, err)
}

func TestProcessTaskValidationFailureSkipsRetry(t *testing.T) {
	w := newWorker(downloadFake{data: make([]byte, 2<<20)}, 1)

	err := processTask(t, w, queue.DocumentProcessPayload{BlobURL: taskBlobURL})
	require.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry), "oversize can never succeed on redelivery")
}

func TestProcessTaskTransientFailureRetries(t *testing.T) {
	w := newWorker(downloadFake{downloadErr: errors.New("connection reset")}, 50)

	err := processTask(t, w, queue.DocumentProcessPayload{BlobURL: taskBlobURL})
	require.Error(t, err)
	assert.False(t, errors.Is(err, asynq.SkipRetry), "transient failures go back for redelivery")
}

func TestProcessTaskBadPayloadSkipsRetry(t *testing.T) {
	w := newWorker(downloadFake{data: []byte("x")}, 50)

	err := w.ProcessTask(context.Background(), asynq.NewTask(queue.TypeDocumentProcess, []byte("{not json")))
	require.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry))
}
