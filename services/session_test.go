package services

import (
	"context"
	"testing"

	"github.com/Yulian302/lfusys-services-recordings/apperror"
	"github.com/Yulian302/lfusys-services-recordings/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetUploadStatus(t *testing.T) {
	env := newTestEnv(t)
	svc := NewSessionServiceImpl(env.sessions)
	ctx := context.Background()
	res := env.start(t, 30, 10)

	status, err := svc.GetUploadStatus(ctx, res.UploadID, owner)
	require.NoError(t, err)
	assert.Equal(t, models.UploadStatusPending, status.Status)
	assert.Equal(t, []uint32{1, 2, 3}, status.MissingChunks)

	_, err = env.manager.AcceptChunk(ctx, res.UploadID, owner, 2, []byte("0123456789"))
	require.NoError(t, err)

	status, err = svc.GetUploadStatus(ctx, res.UploadID, owner)
	require.NoError(t, err)
	assert.Equal(t, models.UploadStatusInProgress, status.Status)
	assert.Equal(t, uint8(33), status.Progress)
	assert.Equal(t, uint32(1), status.ReceivedChunks)
	assert.Equal(t, uint32(3), status.TotalChunks)
	assert.Equal(t, []uint32{1, 3}, status.MissingChunks)

	for _, n := range []uint32{1, 3} {
		_, err = env.manager.AcceptChunk(ctx, res.UploadID, owner, n, []byte("0123456789"))
		require.NoError(t, err)
	}
	status, err = svc.GetUploadStatus(ctx, res.UploadID, owner)
	require.NoError(t, err)
	assert.Equal(t, models.UploadStatusReady, status.Status)
	assert.Equal(t, uint8(100), status.Progress)
	assert.Empty(t, status.MissingChunks)

	_, err = svc.GetUploadStatus(ctx, res.UploadID, "intruder")
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	_, err = svc.GetUploadStatus(ctx, "missing", owner)
	assert.ErrorIs(t, err, apperror.ErrSessionNotFound)
}
