package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sdocherty/docflow/internal/api/middleware"
	"github.com/sdocherty/docflow/internal/cache"
	"github.com/sdocherty/docflow/internal/metadata"
	"github.com/sdocherty/docflow/internal/models"
	"github.com/sdocherty/docflow/internal/queue"
	"github.com/sdocherty/docflow/internal/storage"
)

const extractionCacheTTL = 5 * time.Minute

// Enqueuer schedules a processing run for an uploaded blob.
type Enqueuer interface {
	EnqueueDocumentProcess(payload queue.DocumentProcessPayload) error
}

type DocumentHandler struct {
	store          metadata.Store
	blobs          storage.BlobStore
	queue          Enqueuer
	cache          *cache.Cache
	incomingBucket string
	maxSizeMB      float64
}

func NewDocumentHandler(store metadata.Store, blobs storage.BlobStore, qc Enqueuer, c *cache.Cache, incomingBucket string, maxSizeMB float64) *DocumentHandler {
	return &DocumentHandler{
		store:          store,
		blobs:          blobs,
		queue:          qc,
		cache:          c,
		incomingBucket: incomingBucket,
		maxSizeMB:      maxSizeMB,
	}
}

// Upload stores the file in the incoming bucket and enqueues a processing
// task. Processing itself is asynchronous; the response only confirms
// receipt.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(64 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart form"})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file required"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "read file: " + err.Error()})
		return
	}

	sizeMB := float64(len(data)) / (1 << 20)
	if sizeMB > h.maxSizeMB {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "file too large: " + strconv.FormatFloat(sizeMB, 'f', 2, 64) + "MB (max: " + strconv.FormatFloat(h.maxSizeMB, 'f', -1, 64) + "MB)",
		})
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := storage.GenerateKey(header.Filename)
	loc, err := h.blobs.Upload(r.Context(), h.incomingBucket, key, data, contentType)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	blobURL := h.blobs.PublicURL(loc)
	if err := h.queue.EnqueueDocumentProcess(queue.DocumentProcessPayload{
		BlobURL:    blobURL,
		UserID:     middleware.UserID(r.Context()),
		EnqueuedAt: time.Now().UTC(),
	}); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "enqueue processing: " + err.Error()})
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"message":   "document accepted for processing",
		"blobUrl":   blobURL,
		"fileName":  header.Filename,
		"sizeBytes": len(data),
	})
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 50
	}
	status := r.URL.Query().Get("status")

	docs, err := h.store.ListDocuments(r.Context(), limit, status)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if docs == nil {
		docs = []models.Document{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"documents": docs, "count": len(docs)})
}

func (h *DocumentHandler) ExtractedData(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid document ID"})
		return
	}

	cacheKey := "extraction:" + id.String()
	if h.cache != nil {
		var cached models.ExtractedData
		if err := h.cache.Get(r.Context(), cacheKey, &cached); err == nil {
			writeJSON(w, http.StatusOK, &cached)
			return
		}
	}

	data, err := h.store.GetExtractedData(r.Context(), id)
	if err != nil {
		if errors.Is(err, metadata.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "document not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	if h.cache != nil {
		_ = h.cache.Set(r.Context(), cacheKey, data, extractionCacheTTL)
	}

	writeJSON(w, http.StatusOK, data)
}
