package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/Yulian302/lfusys-services-recordings/apperror"
	"github.com/Yulian302/lfusys-services-recordings/logging"
	"github.com/Yulian302/lfusys-services-recordings/metrics"
	"github.com/Yulian302/lfusys-services-recordings/models"
	"github.com/Yulian302/lfusys-services-recordings/queues"
	"github.com/Yulian302/lfusys-services-recordings/store"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

type UploadPolicy struct {
	MaxFileSize       int64
	DefaultChunkSize  int64
	AllowedMimeTypes  []string
	AllowedExtensions []string
	SessionTTL        time.Duration
}

func (p UploadPolicy) mimeAllowed(mime string) bool {
	return slices.Contains(p.AllowedMimeTypes, mime)
}

func (p UploadPolicy) extensionAllowed(filename string) bool {
	if len(p.AllowedExtensions) == 0 {
		return true
	}
	return slices.Contains(p.AllowedExtensions, strings.ToLower(store.FileExtension(filename)))
}

type StartSessionInput struct {
	OwnerID   string
	Filename  string
	FileSize  int64
	MimeType  string
	ChunkSize int64 // 0 selects the configured default
}

type StartSessionResult struct {
	UploadID    string
	FileID      string
	TotalChunks uint32
	ChunkSize   int64
	ExpiresAt   time.Time
}

type AcceptChunkResult struct {
	BytesReceived   int64
	AlreadyUploaded bool
	ReceivedChunks  uint32
	TotalChunks     uint32
}

type CompleteSessionResult struct {
	FileID     string
	Filename   string
	MimeType   string
	TotalBytes int64
	Key        string
}

type UploadAudioInput struct {
	OwnerID  string
	Filename string
	MimeType string // sniffed from Data when empty
	Data     []byte
}

type UploadService interface {
	StartSession(ctx context.Context, in StartSessionInput) (*StartSessionResult, error)
	AcceptChunk(ctx context.Context, uploadID, requesterID string, chunkNumber uint32, data []byte) (*AcceptChunkResult, error)
	CompleteSession(ctx context.Context, uploadID, requesterID string) (*CompleteSessionResult, error)
	AbortSession(ctx context.Context, uploadID, requesterID string) error
	UploadAudio(ctx context.Context, in UploadAudioInput) (*CompleteSessionResult, error)
}

// UploadManager runs the chunked upload lifecycle. It keeps no state between
// calls; sessions live in the SessionStore and bytes in the BlobStore, so
// chunks of one upload may land on different instances.
type UploadManager struct {
	sessions store.SessionStore
	blobs    store.BlobStore
	notifier queues.UploadsNotifier
	policy   UploadPolicy

	metrics *metrics.UploadMetrics
	logger  logging.Logger

	now   func() time.Time
	newID func() string
}

func NewUploadManager(
	sessions store.SessionStore,
	blobs store.BlobStore,
	notifier queues.UploadsNotifier,
	policy UploadPolicy,
	m *metrics.UploadMetrics,
	l logging.Logger,
) *UploadManager {
	if m == nil {
		m = metrics.NewUploadMetrics(nil)
	}
	return &UploadManager{
		sessions: sessions,
		blobs:    blobs,
		notifier: notifier,
		policy:   policy,
		metrics:  m,
		logger:   l,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
}

func (m *UploadManager) StartSession(ctx context.Context, in StartSessionInput) (*StartSessionResult, error) {
	if in.OwnerID == "" {
		return nil, apperror.New(apperror.KindInvalidArgument, "owner id is required")
	}
	if !m.policy.mimeAllowed(in.MimeType) {
		return nil, apperror.Newf(apperror.KindUnsupportedMediaType, "unsupported file type: %s", in.MimeType)
	}
	if in.FileSize > m.policy.MaxFileSize {
		return nil, apperror.Newf(apperror.KindPayloadTooLarge, "file too large, maximum size: %dMB", m.policy.MaxFileSize/(1024*1024))
	}
	if in.FileSize <= 0 {
		return nil, apperror.New(apperror.KindInvalidArgument, "file size must be positive")
	}

	chunkSize := in.ChunkSize
	if chunkSize == 0 {
		chunkSize = m.policy.DefaultChunkSize
	}
	if chunkSize <= 0 {
		return nil, apperror.New(apperror.KindInvalidArgument, "chunk size must be positive")
	}

	now := m.now()
	expiresAt := now.Add(m.policy.SessionTTL)
	session := models.UploadSession{
		UploadId:    m.newID(),
		FileId:      m.newID(),
		OwnerId:     in.OwnerID,
		FileName:    in.Filename,
		MimeType:    in.MimeType,
		FileSize:    in.FileSize,
		ChunkSize:   chunkSize,
		TotalChunks: models.TotalChunksFor(in.FileSize, chunkSize),
		Status:      models.SessionStatusPending,
		CreatedAt:   now,
		ExpiresAt:   expiresAt.Unix(),
	}

	if err := m.sessions.CreateSession(ctx, session); err != nil {
		m.logger.Error("failed to create upload session", "owner_id", in.OwnerID, "error", err)
		return nil, asStoreError(err, "create upload session")
	}

	m.metrics.SessionsStarted.Inc()
	m.logger.Info("upload session started",
		"upload_id", session.UploadId,
		"file_id", session.FileId,
		"owner_id", in.OwnerID,
		"total_chunks", session.TotalChunks,
		"chunk_size", chunkSize,
	)

	return &StartSessionResult{
		UploadID:    session.UploadId,
		FileID:      session.FileId,
		TotalChunks: session.TotalChunks,
		ChunkSize:   chunkSize,
		ExpiresAt:   expiresAt,
	}, nil
}

func (m *UploadManager) AcceptChunk(ctx context.Context, uploadID, requesterID string, chunkNumber uint32, data []byte) (*AcceptChunkResult, error) {
	session, err := m.ownedSession(ctx, uploadID, requesterID)
	if err != nil {
		return nil, err
	}
	if !session.InRange(chunkNumber) {
		return nil, apperror.WithCause(apperror.ErrInvalidChunkIndex,
			fmt.Errorf("got %d, expected 1-%d", chunkNumber, session.TotalChunks))
	}

	if session.HasChunk(chunkNumber) {
		m.metrics.Chunks.WithLabelValues(metrics.ResultDuplicate).Inc()
		m.logger.Debug("chunk already uploaded", "upload_id", uploadID, "chunk_number", chunkNumber)
		return &AcceptChunkResult{
			AlreadyUploaded: true,
			ReceivedChunks:  uint32(len(session.UploadedChunks)),
			TotalChunks:     session.TotalChunks,
		}, nil
	}

	// the blob goes first: a crash before the session update leaves the
	// chunk unmarked and re-uploadable
	key := store.ChunkKey(uploadID, chunkNumber)
	if err := m.blobs.Put(ctx, key, bytes.NewReader(data), int64(len(data))); err != nil {
		m.logger.Error("failed to store chunk", "upload_id", uploadID, "chunk_number", chunkNumber, "error", err)
		return nil, asStoreError(err, "store chunk")
	}

	session, added, err := m.sessions.AddChunk(ctx, uploadID, chunkNumber)
	if err != nil {
		m.logger.Error("failed to record chunk", "upload_id", uploadID, "chunk_number", chunkNumber, "error", err)
		return nil, asStoreError(err, "record chunk")
	}
	if !added {
		// a concurrent request for the same chunk got there first
		m.metrics.Chunks.WithLabelValues(metrics.ResultDuplicate).Inc()
		return &AcceptChunkResult{
			AlreadyUploaded: true,
			ReceivedChunks:  uint32(len(session.UploadedChunks)),
			TotalChunks:     session.TotalChunks,
		}, nil
	}

	m.metrics.Chunks.WithLabelValues(metrics.ResultAccepted).Inc()
	m.metrics.Bytes.Add(float64(len(data)))
	m.logger.Debug("chunk accepted",
		"upload_id", uploadID,
		"chunk_number", chunkNumber,
		"bytes", len(data),
		"received", len(session.UploadedChunks),
		"total_chunks", session.TotalChunks,
	)

	return &AcceptChunkResult{
		BytesReceived:  int64(len(data)),
		ReceivedChunks: uint32(len(session.UploadedChunks)),
		TotalChunks:    session.TotalChunks,
	}, nil
}

// AbortSession removes the session and all of its chunks. A session that no
// longer exists is treated as already aborted.
func (m *UploadManager) AbortSession(ctx context.Context, uploadID, requesterID string) error {
	session, err := m.sessions.GetSession(ctx, uploadID)
	if errors.Is(err, apperror.ErrSessionNotFound) {
		m.logger.Debug("abort of unknown upload session", "upload_id", uploadID)
		return nil
	}
	if err != nil {
		return asStoreError(err, "get upload session")
	}
	if session.OwnerId != requesterID {
		return apperror.ErrForbidden
	}
	return m.discard(ctx, session)
}

func (m *UploadManager) discard(ctx context.Context, session *models.UploadSession) error {
	uploadID := session.UploadId
	if err := m.blobs.DeletePrefix(ctx, store.ChunkPrefix(uploadID)); err != nil {
		m.logger.Error("failed to delete chunks", "upload_id", uploadID, "error", err)
		return asStoreError(err, "delete chunks")
	}

	err := m.sessions.DeleteSession(ctx, uploadID)
	if err != nil && !errors.Is(err, apperror.ErrSessionNotFound) {
		m.logger.Error("failed to delete upload session", "upload_id", uploadID, "error", err)
		return asStoreError(err, "delete upload session")
	}

	m.logger.Info("upload session aborted", "upload_id", uploadID, "received", len(session.UploadedChunks))
	return nil
}

// UploadAudio stores a whole recording in one call, bypassing sessions.
func (m *UploadManager) UploadAudio(ctx context.Context, in UploadAudioInput) (*CompleteSessionResult, error) {
	if in.OwnerID == "" {
		return nil, apperror.New(apperror.KindInvalidArgument, "owner id is required")
	}
	if len(in.Data) == 0 {
		return nil, apperror.New(apperror.KindInvalidArgument, "file is empty")
	}

	mimeType := in.MimeType
	if mimeType == "" {
		// mimetype reports parameters like "audio/webm; codecs=opus"
		mimeType, _, _ = strings.Cut(mimetype.Detect(in.Data).String(), ";")
	}
	if !m.policy.mimeAllowed(mimeType) {
		return nil, apperror.Newf(apperror.KindUnsupportedMediaType, "unsupported file type: %s", mimeType)
	}
	if in.Filename != "" && !m.policy.extensionAllowed(in.Filename) {
		return nil, apperror.Newf(apperror.KindInvalidArgument, "invalid file extension: %s", store.FileExtension(in.Filename))
	}
	if int64(len(in.Data)) > m.policy.MaxFileSize {
		return nil, apperror.Newf(apperror.KindPayloadTooLarge, "file too large, maximum size: %dMB", m.policy.MaxFileSize/(1024*1024))
	}

	fileID := m.newID()
	filename := in.Filename
	if filename == "" {
		filename = fileID + store.DefaultAudioExtension
	}
	key := store.ArtifactKey(in.OwnerID, fileID, filename)

	if err := m.blobs.Put(ctx, key, bytes.NewReader(in.Data), int64(len(in.Data))); err != nil {
		m.logger.Error("failed to store audio file", "file_id", fileID, "owner_id", in.OwnerID, "error", err)
		return nil, asStoreError(err, "store audio file")
	}
	m.metrics.Bytes.Add(float64(len(in.Data)))

	result := &CompleteSessionResult{
		FileID:     fileID,
		Filename:   filename,
		MimeType:   mimeType,
		TotalBytes: int64(len(in.Data)),
		Key:        key,
	}
	m.publishCompleted(ctx, models.UploadCompletedEvent{
		FileId:      fileID,
		OwnerId:     in.OwnerID,
		FileName:    filename,
		MimeType:    mimeType,
		Size:        result.TotalBytes,
		TotalChunks: 1,
		Key:         key,
		CompletedAt: m.now(),
	})

	m.logger.Info("audio file uploaded", "file_id", fileID, "owner_id", in.OwnerID, "size", result.TotalBytes)
	return result, nil
}

// ownedSession loads a session and checks it belongs to requesterID.
func (m *UploadManager) ownedSession(ctx context.Context, uploadID, requesterID string) (*models.UploadSession, error) {
	session, err := m.sessions.GetSession(ctx, uploadID)
	if err != nil {
		return nil, asStoreError(err, "get upload session")
	}
	if session.OwnerId != requesterID {
		return nil, apperror.ErrForbidden
	}
	return session, nil
}

func (m *UploadManager) publishCompleted(ctx context.Context, evt models.UploadCompletedEvent) {
	if m.notifier == nil {
		return
	}
	if err := m.notifier.NotifyUploadCompleted(ctx, evt); err != nil {
		m.logger.Error("failed to publish upload completed event", "upload_id", evt.UploadId, "file_id", evt.FileId, "error", err)
	}
}

// asStoreError keeps classified errors and reports the rest as StoreUnavailable.
func asStoreError(err error, op string) error {
	if apperror.KindOf(err) != apperror.KindInternal {
		return err
	}
	return apperror.Wrap(apperror.KindStoreUnavailable, err, op)
}
