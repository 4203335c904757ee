package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// BlobStore is the object-store capability the pipeline consumes.
type BlobStore interface {
	Download(ctx context.Context, loc Locator) ([]byte, string, error)
	Upload(ctx context.Context, bucket, key string, data []byte, contentType string) (Locator, error)
	Copy(ctx context.Context, src Locator, dstBucket, dstKey string) error
	Delete(ctx context.Context, loc Locator) error
	SetMetadata(ctx context.Context, loc Locator, meta map[string]string) error
	Exists(ctx context.Context, loc Locator) (bool, error)
	PublicURL(loc Locator) string
}

type SupabaseStore struct {
	baseURL    string
	serviceKey string
	httpClient *http.Client
}

func NewSupabaseStore(supabaseURL, serviceKey string) *SupabaseStore {
	return &SupabaseStore{
		baseURL:    supabaseURL + "/storage/v1",
		serviceKey: serviceKey,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
	}
}

func (s *SupabaseStore) Download(ctx context.Context, loc Locator) ([]byte, string, error) {
	url := fmt.Sprintf("%s/object/%s/%s", s.baseURL, loc.Bucket, loc.Key)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create download request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.serviceKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download %s: %w", loc, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, "", fmt.Errorf("download %s failed (%d)", loc, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read download body: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	return data, contentType, nil
}

func (s *SupabaseStore) Upload(ctx context.Context, bucket, key string, data []byte, contentType string) (Locator, error) {
	url := fmt.Sprintf("%s/object/%s/%s", s.baseURL, bucket, key)

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(data))
	if err != nil {
		return Locator{}, fmt.Errorf("create upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.serviceKey)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "true")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return Locator{}, fmt.Errorf("upload %s/%s: %w", bucket, key, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return Locator{}, fmt.Errorf("upload failed (%d): %s", resp.StatusCode, string(body))
	}

	return Locator{Bucket: bucket, Key: key}, nil
}

func (s *SupabaseStore) Copy(ctx context.Context, src Locator, dstBucket, dstKey string) error {
	url := s.baseURL + "/object/copy"

	payload, err := json.Marshal(map[string]string{
		"bucketId":          src.Bucket,
		"sourceKey":         src.Key,
		"destinationBucket": dstBucket,
		"destinationKey":    dstKey,
	})
	if err != nil {
		return fmt.Errorf("marshal copy request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create copy request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.serviceKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("copy %s to %s/%s: %w", src, dstBucket, dstKey, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("copy failed (%d): %s", resp.StatusCode, string(body))
	}

	return nil
}

func (s *SupabaseStore) Delete(ctx context.Context, loc Locator) error {
	url := fmt.Sprintf("%s/object/%s/%s", s.baseURL, loc.Bucket, loc.Key)

	req, err := http.NewRequestWithContext(ctx, "DELETE", url, nil)
	if err != nil {
		return fmt.Errorf("create delete request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.serviceKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("delete %s: %w", loc, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("delete %s failed (%d)", loc, resp.StatusCode)
	}

	return nil
}

func (s *SupabaseStore) SetMetadata(ctx context.Context, loc Locator, meta map[string]string) error {
	url := fmt.Sprintf("%s/object/info/%s/%s", s.baseURL, loc.Bucket, loc.Key)

	payload, err := json.Marshal(map[string]any{"metadata": meta})
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "PUT", url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create metadata request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.serviceKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("set metadata on %s: %w", loc, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("set metadata on %s failed (%d)", loc, resp.StatusCode)
	}

	return nil
}

func (s *SupabaseStore) Exists(ctx context.Context, loc Locator) (bool, error) {
	url := fmt.Sprintf("%s/object/%s/%s", s.baseURL, loc.Bucket, loc.Key)

	req, err := http.NewRequestWithContext(ctx, "HEAD", url, nil)
	if err != nil {
		return false, fmt.Errorf("create exists request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.serviceKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("check %s: %w", loc, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	case resp.StatusCode >= 400:
		return false, fmt.Errorf("check %s failed (%d)", loc, resp.StatusCode)
	}
	return true, nil
}

func (s *SupabaseStore) PublicURL(loc Locator) string {
	return fmt.Sprintf("%s/object/public/%s/%s", s.baseURL, loc.Bucket, loc.Key)
}
