package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/sdocherty/docflow/internal/pipeline"
	"github.com/sdocherty/docflow/internal/queue"
)

// DocumentWorker is the queue-side trigger for the orchestrator. It owns no
// pipeline logic: unmarshal the payload, run the job, translate the failure
// kind into the queue's retry decision.
type DocumentWorker struct {
	orchestrator *pipeline.Orchestrator
}

func NewDocumentWorker(orch *pipeline.Orchestrator) *DocumentWorker {
	return &DocumentWorker{orchestrator: orch}
}

func (w *DocumentWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload queue.DocumentProcessPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w: %w", err, asynq.SkipRetry)
	}

	taskID, _ := asynq.GetTaskID(ctx)
	slog.Info("processing document task", "task_id", taskID, "blob_url", payload.BlobURL)

	job, err := w.orchestrator.ProcessDocument(ctx, pipeline.Trigger{
		DocumentURL: payload.BlobURL,
		UserID:      payload.UserID,
		MessageID:   taskID,
	})
	if err != nil {
		// Validation failures will never succeed on redelivery; everything
		// else goes back to asynq for retry and eventual archival.
		if pipeline.IsKind(err, pipeline.ErrValidation) {
			return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
		}
		return err
	}

	slog.Info("document task complete", "task_id", taskID, "job_id", job.ID, "status", job.Status)
	return nil
}
