package store

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/Yulian302/lfusys-services-recordings/health"
)

// BlobStore is durable byte storage keyed by slash-separated paths.
type BlobStore interface {
	// Put stores r under key, replacing any existing object. size < 0 means
	// the length is unknown. A failed Put never leaves a partial object.
	Put(ctx context.Context, key string, r io.Reader, size int64) error
	// Open returns apperror.ErrBlobNotFound when key does not exist.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Stat(ctx context.Context, key string) (int64, error)
	// Delete is a no-op for missing keys.
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) error

	health.ReadinessCheck
}

// Composer is implemented by blob stores able to concatenate objects
// server-side. srcs are concatenated in slice order; the total size is returned.
type Composer interface {
	Compose(ctx context.Context, dst string, srcs []string) (int64, error)
}

const (
	chunkPrefixRoot = "uploads"
	artifactRoot    = "audio"

	DefaultAudioExtension = ".webm"
)

// ChunkPrefix is the key prefix shared by every chunk of an upload.
func ChunkPrefix(uploadID string) string {
	return fmt.Sprintf("%s/%s/", chunkPrefixRoot, uploadID)
}

// ChunkKey example: uploads/{uploadId}/chunk_000003
func ChunkKey(uploadID string, chunk uint32) string {
	return fmt.Sprintf("%schunk_%06d", ChunkPrefix(uploadID), chunk)
}

// FileExtension returns the extension of filename as written, or the default
// audio extension when it has none.
func FileExtension(filename string) string {
	ext := path.Ext(filename)
	if ext == "" || ext == "." {
		return DefaultAudioExtension
	}
	return ext
}

// ArtifactKey is the deterministic location of a completed recording.
func ArtifactKey(ownerID, fileID, filename string) string {
	owner := strings.ReplaceAll(ownerID, "/", "_")
	return fmt.Sprintf("%s/%s/%s%s", artifactRoot, owner, fileID, FileExtension(filename))
}
