package storage

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type blobStoreFake struct {
	copyErr      error
	deleteErr    error
	metaErr      error
	existsAfter  int // number of Exists calls that report absent before visible
	existsCalls  int
	copied       []string
	deleted      []string
	metadata     map[string]string
	metadataLoc  Locator
}

func (f *blobStoreFake) Download(context.Context, Locator) ([]byte, string, error) {
	return nil, "", errors.New("not implemented")
}

func (f *blobStoreFake) Upload(_ context.Context, bucket, key string, _ []byte, _ string) (Locator, error) {
	return Locator{Bucket: bucket, Key: key}, nil
}

func (f *blobStoreFake) Copy(_ context.Context, src Locator, dstBucket, dstKey string) error {
	if f.copyErr != nil {
		return f.copyErr
	}
	f.copied = append(f.copied, src.String()+" -> "+dstBucket+"/"+dstKey)
	return nil
}

func (f *blobStoreFake) Delete(_ context.Context, loc Locator) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, loc.String())
	return nil
}

func (f *blobStoreFake) SetMetadata(_ context.Context, loc Locator, meta map[string]string) error {
	if f.metaErr != nil {
		return f.metaErr
	}
	f.metadataLoc = loc
	f.metadata = meta
	return nil
}

func (f *blobStoreFake) Exists(context.Context, Locator) (bool, error) {
	f.existsCalls++
	return f.existsCalls > f.existsAfter, nil
}

func (f *blobStoreFake) PublicURL(loc Locator) string {
	return "https://store/" + loc.String()
}

func newTestMover(store BlobStore) *Mover {
	m := NewMover(store, "documents-processed", "documents-failed")
	m.baseDelay = time.Millisecond
	return m
}

func TestMoveToProcessed(t *testing.T) {
	fake := &blobStoreFake{}
	m := newTestMover(fake)

	src := Locator{Bucket: "documents-incoming", Key: "20240101_abcd1234_invoice.pdf"}
	err := m.MoveToProcessed(context.Background(), src, "doc-1")
	require.NoError(t, err)

	require.Len(t, fake.copied, 1)
	assert.Equal(t, "documents-incoming/20240101_abcd1234_invoice.pdf -> documents-processed/doc-1/20240101_abcd1234_invoice.pdf", fake.copied[0])
	assert.Equal(t, []string{"documents-incoming/20240101_abcd1234_invoice.pdf"}, fake.deleted)
	assert.Nil(t, fake.metadata, "processed moves carry no metadata")
}

func TestMoveWaitsForCopyVisibility(t *testing.T) {
	fake := &blobStoreFake{existsAfter: 3}
	m := newTestMover(fake)

	err := m.MoveToProcessed(context.Background(), Locator{Bucket: "b", Key: "k.pdf"}, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 4, fake.existsCalls)
	assert.Len(t, fake.deleted, 1)
}

func TestMoveGivesUpWhenCopyNeverVisible(t *testing.T) {
	fake := &blobStoreFake{existsAfter: 100}
	m := newTestMover(fake)

	err := m.MoveToProcessed(context.Background(), Locator{Bucket: "b", Key: "k.pdf"}, "doc-1")
	require.Error(t, err)
	assert.Empty(t, fake.deleted, "source must survive an unconfirmed copy")
}

func TestMoveCopyFailureLeavesSource(t *testing.T) {
	fake := &blobStoreFake{copyErr: errors.New("boom")}
	m := newTestMover(fake)

	err := m.MoveToProcessed(context.Background(), Locator{Bucket: "b", Key: "k.pdf"}, "doc-1")
	require.Error(t, err)
	assert.Empty(t, fake.deleted)
}

func TestMoveToFailedTagsMetadata(t *testing.T) {
	fake := &blobStoreFake{}
	m := newTestMover(fake)

	src := Locator{Bucket: "documents-incoming", Key: "k.pdf"}
	err := m.MoveToFailed(context.Background(), src, "download document: connection reset")
	require.NoError(t, err)

	require.NotNil(t, fake.metadata)
	assert.Equal(t, "download document: connection reset", fake.metadata["error"])
	assert.NotEmpty(t, fake.metadata["failed_at"])
	assert.Equal(t, "documents-failed", fake.metadataLoc.Bucket)
	assert.True(t, strings.HasSuffix(fake.metadataLoc.Key, "_failed/k.pdf"))
}

func TestMoveToFailedTruncatesLongError(t *testing.T) {
	fake := &blobStoreFake{}
	m := newTestMover(fake)

	err := m.MoveToFailed(context.Background(), Locator{Bucket: "b", Key: "k.pdf"}, strings.Repeat("x", 1000))
	require.NoError(t, err)
	assert.Len(t, fake.metadata["error"], 256)
}

func TestMoveToFailedTruncatesOnRuneBoundary(t *testing.T) {
	fake := &blobStoreFake{}
	m := newTestMover(fake)

	// The two-byte rune straddles the limit; the cut must land before it.
	msg := strings.Repeat("x", 255) + "é" + strings.Repeat("x", 100)
	err := m.MoveToFailed(context.Background(), Locator{Bucket: "b", Key: "k.pdf"}, msg)
	require.NoError(t, err)

	got := fake.metadata["error"]
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("x", 255), got)
}

func TestMoveDeleteFailureReported(t *testing.T) {
	fake := &blobStoreFake{deleteErr: errors.New("forbidden")}
	m := newTestMover(fake)

	err := m.MoveToProcessed(context.Background(), Locator{Bucket: "b", Key: "k.pdf"}, "doc-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delete source blob")
}
