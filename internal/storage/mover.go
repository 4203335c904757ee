package storage

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"
)

const errMetadataLimit = 256

// Mover relocates blobs between lifecycle buckets. Moves are copy-then-delete:
// the copy is confirmed at the destination before the source is removed, so
// an interrupted move leaves the source intact and is safe to retry.
type Mover struct {
	store           BlobStore
	processedBucket string
	failedBucket    string
	maxAttempts     int
	baseDelay       time.Duration
}

func NewMover(store BlobStore, processedBucket, failedBucket string) *Mover {
	return &Mover{
		store:           store,
		processedBucket: processedBucket,
		failedBucket:    failedBucket,
		maxAttempts:     5,
		baseDelay:       200 * time.Millisecond,
	}
}

// MoveToProcessed files the blob under the document's ID so every object
// belonging to one document shares a prefix.
func (m *Mover) MoveToProcessed(ctx context.Context, src Locator, documentID string) error {
	dstKey := fmt.Sprintf("%s/%s", documentID, src.FileName())
	return m.move(ctx, src, m.processedBucket, dstKey, nil)
}

// MoveToFailed keys the blob by failure time and tags it with the error,
// so failures can be triaged chronologically.
func (m *Mover) MoveToFailed(ctx context.Context, src Locator, errMsg string) error {
	now := time.Now().UTC()
	dstKey := fmt.Sprintf("%s_failed/%s", now.Format("20060102150405"), src.FileName())
	errMsg = truncateError(errMsg)
	meta := map[string]string{
		"error":     errMsg,
		"failed_at": now.Format(time.RFC3339),
	}
	return m.move(ctx, src, m.failedBucket, dstKey, meta)
}

// truncateError caps the message at the metadata value limit without
// splitting a multi-byte rune at the cut point.
func truncateError(msg string) string {
	if len(msg) <= errMetadataLimit {
		return msg
	}
	cut := errMetadataLimit
	for cut > 0 && !utf8.RuneStart(msg[cut]) {
		cut--
	}
	return msg[:cut]
}

func (m *Mover) move(ctx context.Context, src Locator, dstBucket, dstKey string, meta map[string]string) error {
	if err := m.store.Copy(ctx, src, dstBucket, dstKey); err != nil {
		return fmt.Errorf("copy blob: %w", err)
	}

	dst := Locator{Bucket: dstBucket, Key: dstKey}
	if err := m.awaitVisible(ctx, dst); err != nil {
		return err
	}

	if meta != nil {
		if err := m.store.SetMetadata(ctx, dst, meta); err != nil {
			return fmt.Errorf("tag blob: %w", err)
		}
	}

	if err := m.store.Delete(ctx, src); err != nil {
		return fmt.Errorf("delete source blob: %w", err)
	}

	return nil
}

// awaitVisible polls the destination with bounded exponential backoff until
// the copy is observable.
func (m *Mover) awaitVisible(ctx context.Context, dst Locator) error {
	delay := m.baseDelay
	for attempt := 1; attempt <= m.maxAttempts; attempt++ {
		ok, err := m.store.Exists(ctx, dst)
		if err != nil {
			return fmt.Errorf("confirm copy: %w", err)
		}
		if ok {
			return nil
		}
		if attempt == m.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return fmt.Errorf("copy to %s not visible after %d attempts", dst, m.maxAttempts)
}
