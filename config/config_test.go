package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig()

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, int64(100*1024*1024), cfg.MaxFileSize)
	assert.Equal(t, int64(5*1024*1024), cfg.DefaultChunkSize)
	assert.Contains(t, cfg.AllowedMimeTypes, "audio/webm")
	assert.Contains(t, cfg.AllowedExtensions, ".m4a")
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, SessionStoreDynamo, cfg.SessionStore)
	assert.Equal(t, BlobStoreS3, cfg.BlobStore)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("SESSION_STORE", "Redis")
	t.Setenv("BLOB_STORE", "local")
	t.Setenv("MAX_FILE_SIZE_MB", "10")
	t.Setenv("ALLOWED_MIME_TYPES", " audio/wav , audio/ogg ,")
	t.Setenv("SESSION_TTL", "2h")
	t.Setenv("JWT_SECRET", "s3cret")

	cfg := LoadConfig()

	assert.Equal(t, SessionStoreRedis, cfg.SessionStore)
	assert.Equal(t, BlobStoreLocal, cfg.BlobStore)
	assert.Equal(t, int64(10*1024*1024), cfg.MaxFileSize)
	assert.Equal(t, []string{"audio/wav", "audio/ogg"}, cfg.AllowedMimeTypes)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("BLOB_STORE", "ftp")

	err := LoadConfig().Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET is required")
	assert.Contains(t, err.Error(), `unknown BLOB_STORE "ftp"`)
}

func TestNeedsAWS(t *testing.T) {
	t.Setenv("SESSION_STORE", "memory")
	t.Setenv("BLOB_STORE", "local")

	assert.False(t, LoadConfig().NeedsAWS())

	t.Setenv("UPLOADS_NOTIFICATIONS_QUEUE_NAME", "uploads")
	assert.True(t, LoadConfig().NeedsAWS())

	t.Setenv("UPLOADS_NOTIFICATIONS_QUEUE_NAME", "")
	t.Setenv("SESSION_STORE", "redis")
	assert.True(t, LoadConfig().NeedsAWS())
}
