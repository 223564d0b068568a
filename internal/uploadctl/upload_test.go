package uploadctl

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	uploaderv1 "github.com/Yulian302/lfusys-services-recordings/api/uploader/v1"
	"github.com/Yulian302/lfusys-services-recordings/auth"
	"github.com/Yulian302/lfusys-services-recordings/caching"
	"github.com/Yulian302/lfusys-services-recordings/handlers"
	"github.com/Yulian302/lfusys-services-recordings/logging"
	"github.com/Yulian302/lfusys-services-recordings/queues"
	"github.com/Yulian302/lfusys-services-recordings/services"
	"github.com/Yulian302/lfusys-services-recordings/store"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
)

func startServer(t *testing.T) (*store.MemoryFileStore, *store.LocalBlobStore) {
	t.Helper()
	l := logging.NewNopLogger()

	blobs, err := store.NewLocalBlobStore(afero.NewMemMapFs(), "/data")
	require.NoError(t, err)
	sessions := store.NewMemorySessionStore()
	files := store.NewMemoryFileStore()
	catalog := queues.NewFileCatalog(files, caching.NewNullCachingService(), l)
	manager := services.NewUploadManager(sessions, blobs, queues.NewInlineUploadsNotifier(catalog), services.UploadPolicy{
		MaxFileSize:       1024,
		DefaultChunkSize:  8,
		AllowedMimeTypes:  []string{"audio/wav"},
		AllowedExtensions: []string{".wav"},
		SessionTTL:        time.Hour,
	}, nil, l)
	fileSvc := services.NewFileServiceImpl(files, blobs, caching.NewNullCachingService(), time.Minute, l)

	tokens := auth.NewTokenManager("cli-secret", "lfusys", time.Hour)
	token, err := tokens.Issue("alice")
	require.NoError(t, err)

	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(
		handlers.UnaryErrorInterceptor(l),
		handlers.UnaryAuthInterceptor(tokens),
	))
	uploaderv1.RegisterUploaderServer(srv, handlers.NewGrpcHandler(manager, services.NewSessionServiceImpl(sessions), fileSvc))

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	v.Set("server", lis.Addr().String())
	v.Set("token", token)
	t.Cleanup(func() {
		v.Set("server", "")
		v.Set("token", "")
	})

	return files, blobs
}

func TestRunUpload(t *testing.T) {
	files, blobs := startServer(t)

	content := []byte("RIFF\x00\x00\x00\x00WAVEfmt some recorded audio")
	path := filepath.Join(t.TempDir(), "standup.wav")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	err := runUpload(context.Background(), path, &uploadOptions{chunkSize: 5, parallel: 3, mimeType: "audio/wav"})
	require.NoError(t, err)

	list, err := files.ListByOwner(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "standup.wav", list[0].Name)
	assert.Equal(t, int64(len(content)), list[0].Size)

	size, err := blobs.Stat(context.Background(), list[0].Key)
	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), size)
}

func TestRunUploadRejectedType(t *testing.T) {
	startServer(t)

	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o600))

	err := runUpload(context.Background(), path, &uploadOptions{parallel: 1})
	assert.ErrorContains(t, err, "failed to start upload")
}

func TestNewUploaderClientNeedsToken(t *testing.T) {
	v.Set("token", "")
	_, err := newUploaderClient()
	assert.ErrorContains(t, err, "no token")
}
