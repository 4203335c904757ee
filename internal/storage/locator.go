package storage

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Locator identifies a blob as a (bucket, key) pair. The bucket doubles as
// the lifecycle area: incoming, processed, or failed.
type Locator struct {
	Bucket string
	Key    string
}

func (l Locator) String() string {
	return l.Bucket + "/" + l.Key
}

// FileName returns the final path segment of the key.
func (l Locator) FileName() string {
	if i := strings.LastIndex(l.Key, "/"); i >= 0 {
		return l.Key[i+1:]
	}
	return l.Key
}

// ParseLocator extracts the bucket and key from a storage URL. Object-API
// prefixes are stripped, so both plain https://host/bucket/key references
// and full Supabase object URLs resolve to the same locator.
func ParseLocator(rawURL string) (Locator, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Locator{}, fmt.Errorf("parse blob URL %q: %w", rawURL, err)
	}

	path := strings.TrimPrefix(u.Path, "/")
	for _, prefix := range []string{"storage/v1/object/public/", "storage/v1/object/", "object/"} {
		if strings.HasPrefix(path, prefix) {
			path = strings.TrimPrefix(path, prefix)
			break
		}
	}

	bucket, key, ok := strings.Cut(path, "/")
	if !ok || bucket == "" || key == "" {
		return Locator{}, fmt.Errorf("invalid blob URL %q: missing bucket or key", rawURL)
	}

	return Locator{Bucket: bucket, Key: key}, nil
}

// GenerateKey builds a sortable, collision-free object key:
// a timestamp for chronological ordering, a short random disambiguator,
// and the original filename for debuggability.
func GenerateKey(fileName string) string {
	ts := time.Now().UTC().Format("20060102150405")
	return fmt.Sprintf("%s_%s_%s", ts, uuid.NewString()[:8], fileName)
}
