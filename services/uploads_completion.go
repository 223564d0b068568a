package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/Yulian302/lfusys-services-recordings/apperror"
	"github.com/Yulian302/lfusys-services-recordings/metrics"
	"github.com/Yulian302/lfusys-services-recordings/models"
	"github.com/Yulian302/lfusys-services-recordings/store"
	"golang.org/x/sync/errgroup"
)

const cleanupConcurrency = 8

// CompleteSession assembles every chunk, in ascending order, into the final
// artifact and then removes the session. The session is left untouched when
// assembly fails so the call can be retried.
func (m *UploadManager) CompleteSession(ctx context.Context, uploadID, requesterID string) (*CompleteSessionResult, error) {
	session, err := m.ownedSession(ctx, uploadID, requesterID)
	if err != nil {
		return nil, err
	}

	if missing := session.MissingChunks(); len(missing) > 0 {
		m.metrics.Completions.WithLabelValues(metrics.ResultIncomplete).Inc()
		m.logger.Info("upload not complete yet", "upload_id", uploadID, "missing", len(missing))
		return nil, &apperror.IncompleteUploadError{UploadID: uploadID, Missing: missing}
	}

	m.logger.Info("upload finalization started", "upload_id", uploadID, "total_chunks", session.TotalChunks)

	key := store.ArtifactKey(session.OwnerId, session.FileId, session.FileName)
	started := time.Now()
	totalBytes, err := m.assemble(ctx, session, key)
	if err != nil {
		m.metrics.Completions.WithLabelValues(metrics.ResultFailed).Inc()
		m.logger.Error("upload assembly failed", "upload_id", uploadID, "key", key, "error", err)
		return nil, apperror.WithCause(apperror.ErrAssemblyFailed, err)
	}
	m.metrics.AssemblySeconds.Observe(time.Since(started).Seconds())

	m.publishCompleted(ctx, models.UploadCompletedEvent{
		UploadId:    session.UploadId,
		FileId:      session.FileId,
		OwnerId:     session.OwnerId,
		FileName:    session.FileName,
		MimeType:    session.MimeType,
		Size:        totalBytes,
		TotalChunks: session.TotalChunks,
		Key:         key,
		CompletedAt: m.now(),
	})

	// the artifact is durable from here on; cleanup failures are only logged
	m.cleanup(context.WithoutCancel(ctx), session)

	m.metrics.Completions.WithLabelValues(metrics.ResultOK).Inc()
	m.logger.Info("upload completed successfully",
		"upload_id", uploadID,
		"file_id", session.FileId,
		"key", key,
		"total_bytes", totalBytes,
	)

	return &CompleteSessionResult{
		FileID:     session.FileId,
		Filename:   session.FileName,
		MimeType:   session.MimeType,
		TotalBytes: totalBytes,
		Key:        key,
	}, nil
}

func chunkKeys(session *models.UploadSession) []string {
	keys := make([]string, 0, session.TotalChunks)
	for n := uint32(1); n <= session.TotalChunks; n++ {
		keys = append(keys, store.ChunkKey(session.UploadId, n))
	}
	return keys
}

// assemble writes the ordered concatenation of the session's chunks to dst
// and returns the number of bytes written.
func (m *UploadManager) assemble(ctx context.Context, session *models.UploadSession, dst string) (int64, error) {
	srcs := chunkKeys(session)

	if composer, ok := m.blobs.(store.Composer); ok {
		return composer.Compose(ctx, dst, srcs)
	}

	pr, pw := io.Pipe()
	var written int64

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for _, key := range srcs {
			n, err := m.copyBlob(gctx, pw, key)
			written += n
			if err != nil {
				pw.CloseWithError(err)
				return err
			}
		}
		return pw.Close()
	})

	putErr := m.blobs.Put(ctx, dst, pr, -1)
	// unblock the writer if Put gave up early
	pr.CloseWithError(putErr)

	if err := g.Wait(); err != nil {
		return 0, err
	}
	if putErr != nil {
		return 0, putErr
	}
	return written, nil
}

func (m *UploadManager) copyBlob(ctx context.Context, w io.Writer, key string) (int64, error) {
	body, err := m.blobs.Open(ctx, key)
	if err != nil {
		if errors.Is(err, apperror.ErrBlobNotFound) {
			return 0, fmt.Errorf("chunk %s is marked received but missing: %w", key, err)
		}
		return 0, fmt.Errorf("open chunk %s: %w", key, err)
	}
	defer body.Close()

	n, err := io.Copy(w, body)
	if err != nil {
		return n, fmt.Errorf("copy chunk %s: %w", key, err)
	}
	return n, nil
}

// cleanup removes the chunk blobs in parallel and then the session record.
func (m *UploadManager) cleanup(ctx context.Context, session *models.UploadSession) {
	uploadID := session.UploadId

	var g errgroup.Group
	g.SetLimit(cleanupConcurrency)
	for _, key := range chunkKeys(session) {
		g.Go(func() error {
			if err := m.blobs.Delete(ctx, key); err != nil {
				m.logger.Warn("failed to delete chunk", "upload_id", uploadID, "key", key, "error", err)
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		m.logger.Warn("chunk cleanup incomplete", "upload_id", uploadID, "error", err)
	}

	if err := m.sessions.DeleteSession(ctx, uploadID); err != nil && !errors.Is(err, apperror.ErrSessionNotFound) {
		m.logger.Warn("upload session deletion failed", "upload_id", uploadID, "error", err)
	}
}
