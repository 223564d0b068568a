package store

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/Yulian302/lfusys-services-recordings/apperror"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLocalStore(t *testing.T) (*LocalBlobStore, afero.Fs) {
	t.Helper()
	fsys := afero.NewMemMapFs()
	s, err := NewLocalBlobStore(fsys, "/data")
	require.NoError(t, err)
	return s, fsys
}

func readBlob(t *testing.T, s BlobStore, key string) []byte {
	t.Helper()
	rc, err := s.Open(context.Background(), key)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return data
}

func TestLocalBlobStorePutOpenStat(t *testing.T) {
	ctx := context.Background()
	s, _ := newLocalStore(t)

	key := ChunkKey("u1", 1)
	require.NoError(t, s.Put(ctx, key, bytes.NewReader([]byte("hello")), 5))

	assert.Equal(t, []byte("hello"), readBlob(t, s, key))

	size, err := s.Stat(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(5), size)
}

func TestLocalBlobStorePutOverwrites(t *testing.T) {
	ctx := context.Background()
	s, _ := newLocalStore(t)

	key := ChunkKey("u1", 1)
	require.NoError(t, s.Put(ctx, key, bytes.NewReader([]byte("first")), -1))
	require.NoError(t, s.Put(ctx, key, bytes.NewReader([]byte("2nd")), -1))

	assert.Equal(t, []byte("2nd"), readBlob(t, s, key))
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestLocalBlobStoreFailedPutLeavesNothing(t *testing.T) {
	ctx := context.Background()
	s, fsys := newLocalStore(t)

	key := ArtifactKey("user-1", "f1", "a.wav")
	err := s.Put(ctx, key, io.MultiReader(bytes.NewReader([]byte("partial")), failingReader{}), -1)
	require.Error(t, err)

	_, err = s.Stat(ctx, key)
	assert.ErrorIs(t, err, apperror.ErrBlobNotFound)

	entries, err := afero.ReadDir(fsys, "/data/audio/user-1")
	require.NoError(t, err)
	assert.Empty(t, entries, "temp file must be removed")
}

func TestLocalBlobStoreMissing(t *testing.T) {
	ctx := context.Background()
	s, _ := newLocalStore(t)

	_, err := s.Open(ctx, "uploads/none/chunk_000001")
	assert.ErrorIs(t, err, apperror.ErrBlobNotFound)
	assert.NoError(t, s.Delete(ctx, "uploads/none/chunk_000001"))
}

func TestLocalBlobStoreRejectsEscapingKeys(t *testing.T) {
	s, _ := newLocalStore(t)
	err := s.Put(context.Background(), "../etc/passwd", bytes.NewReader(nil), 0)
	assert.True(t, apperror.IsKind(err, apperror.KindInvalidArgument))
}

func TestLocalBlobStoreDeletePrefix(t *testing.T) {
	ctx := context.Background()
	s, _ := newLocalStore(t)

	for n := uint32(1); n <= 3; n++ {
		require.NoError(t, s.Put(ctx, ChunkKey("u1", n), bytes.NewReader([]byte{byte(n)}), 1))
	}
	require.NoError(t, s.Put(ctx, ChunkKey("u2", 1), bytes.NewReader([]byte{9}), 1))

	require.NoError(t, s.DeletePrefix(ctx, ChunkPrefix("u1")))

	for n := uint32(1); n <= 3; n++ {
		_, err := s.Stat(ctx, ChunkKey("u1", n))
		assert.ErrorIs(t, err, apperror.ErrBlobNotFound)
	}
	_, err := s.Stat(ctx, ChunkKey("u2", 1))
	assert.NoError(t, err)

	require.NoError(t, s.DeletePrefix(ctx, "uploads/u2/chunk_"))
	_, err = s.Stat(ctx, ChunkKey("u2", 1))
	assert.ErrorIs(t, err, apperror.ErrBlobNotFound)
}

func TestKeyLayout(t *testing.T) {
	assert.Equal(t, "uploads/abc/chunk_000003", ChunkKey("abc", 3))
	assert.Equal(t, "audio/user-1/f1.WAV", ArtifactKey("user-1", "f1", "Standup.WAV"))
	assert.Equal(t, ".Wav", FileExtension("memo.Wav"))
	assert.Equal(t, "audio/user-1/f1.webm", ArtifactKey("user-1", "f1", "recording"))
	assert.Equal(t, "audio/a_b/f1.mp3", ArtifactKey("a/b", "f1", "x.mp3"))
}
