package storage

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLocatorPlainURL(t *testing.T) {
	loc, err := ParseLocator("https://files.example.com/documents-incoming/20240115_ab12cd34_invoice.pdf")
	require.NoError(t, err)
	assert.Equal(t, "documents-incoming", loc.Bucket)
	assert.Equal(t, "20240115_ab12cd34_invoice.pdf", loc.Key)
}

func TestParseLocatorSupabaseObjectURL(t *testing.T) {
	loc, err := ParseLocator("https://proj.supabase.co/storage/v1/object/documents-incoming/a/b/file.pdf")
	require.NoError(t, err)
	assert.Equal(t, "documents-incoming", loc.Bucket)
	assert.Equal(t, "a/b/file.pdf", loc.Key)
}

func TestParseLocatorSupabasePublicURL(t *testing.T) {
	loc, err := ParseLocator("https://proj.supabase.co/storage/v1/object/public/documents-processed/doc-1/file.pdf")
	require.NoError(t, err)
	assert.Equal(t, "documents-processed", loc.Bucket)
	assert.Equal(t, "doc-1/file.pdf", loc.Key)
}

func TestParseLocatorInvalid(t *testing.T) {
	for _, raw := range []string{"https://host/onlybucket", "https://host/", ""} {
		_, err := ParseLocator(raw)
		assert.Error(t, err, "ParseLocator(%q)", raw)
	}
}

func TestLocatorFileName(t *testing.T) {
	assert.Equal(t, "file.pdf", Locator{Bucket: "b", Key: "doc-1/file.pdf"}.FileName())
	assert.Equal(t, "file.pdf", Locator{Bucket: "b", Key: "file.pdf"}.FileName())
}

func TestGenerateKeyFormat(t *testing.T) {
	key := GenerateKey("invoice.pdf")
	assert.Regexp(t, regexp.MustCompile(`^\d{14}_[0-9a-f]{8}_invoice\.pdf$`), key)
}

func TestGenerateKeyNoCollisions(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		key := GenerateKey("same.pdf")
		assert.False(t, seen[key], "duplicate key %s", key)
		seen[key] = true
	}
}
