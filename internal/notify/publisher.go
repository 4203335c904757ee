package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sdocherty/docflow/internal/config"
)

// CompletionEvent announces that a document finished processing. Consumers
// downstream (mail, dashboards, archival) subscribe to the completions
// queue; this core never reads it back.
type CompletionEvent struct {
	DocumentID      string    `json:"documentId"`
	JobID           string    `json:"jobId"`
	Status          string    `json:"status"`
	FieldsExtracted int       `json:"fieldsExtracted"`
	CompletedAt     time.Time `json:"completedAt"`
}

const TypeDocumentCompleted = "document:completed"

// Publisher is the fire-and-forget notification capability.
type Publisher interface {
	PublishCompletion(ctx context.Context, event CompletionEvent) error
}

// QueuePublisher emits completion events as tasks on a dedicated queue.
type QueuePublisher struct {
	client *asynq.Client
	queue  string
}

func NewQueuePublisher(cfg config.RedisConfig, queue string) *QueuePublisher {
	return &QueuePublisher{
		client: asynq.NewClient(asynq.RedisClientOpt{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		queue: queue,
	}
}

func (p *QueuePublisher) PublishCompletion(ctx context.Context, event CompletionEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal completion event: %w", err)
	}
	task := asynq.NewTask(TypeDocumentCompleted, data)
	if _, err := p.client.EnqueueContext(ctx, task, asynq.Queue(p.queue), asynq.MaxRetry(5)); err != nil {
		return fmt.Errorf("enqueue completion event: %w", err)
	}
	return nil
}

func (p *QueuePublisher) Close() error {
	return p.client.Close()
}
