package queues

import (
	"context"
	"errors"
	"time"

	"github.com/Yulian302/lfusys-services-recordings/caching"
	"github.com/Yulian302/lfusys-services-recordings/logging"
	"github.com/Yulian302/lfusys-services-recordings/models"
	"github.com/Yulian302/lfusys-services-recordings/store"
)

var errInvalidEvent = errors.New("invalid upload completed event")

// FileCatalog turns completion events into catalog records.
type FileCatalog struct {
	fileStore  store.FileStore
	cachingSvc caching.CachingService
	logger     logging.Logger
}

func NewFileCatalog(fileStore store.FileStore, cachingSvc caching.CachingService, l logging.Logger) *FileCatalog {
	return &FileCatalog{
		fileStore:  fileStore,
		cachingSvc: cachingSvc,
		logger:     l,
	}
}

// Register stores the file described by evt and invalidates the owner's
// cached file list. Registering the same event twice overwrites the record.
func (c *FileCatalog) Register(ctx context.Context, evt models.UploadCompletedEvent) error {
	file, err := buildFileFromEvent(evt)
	if err != nil {
		return err
	}

	if err := c.fileStore.Create(ctx, file); err != nil {
		return err
	}

	if err := c.cachingSvc.Delete(ctx, caching.UserFilesKey(file.OwnerId)); err != nil {
		c.logger.Warn("cached files invalidation failed", "owner_id", file.OwnerId, "error", err)
	}

	c.logger.Info("file registered", "file_id", file.FileId, "upload_id", file.UploadId, "owner_id", file.OwnerId)
	return nil
}

func buildFileFromEvent(evt models.UploadCompletedEvent) (models.File, error) {
	switch {
	case evt.FileId == "":
		return models.File{}, errors.Join(errInvalidEvent, errors.New("missing file_id"))
	case evt.OwnerId == "":
		return models.File{}, errors.Join(errInvalidEvent, errors.New("missing owner_id"))
	case evt.Key == "":
		return models.File{}, errors.Join(errInvalidEvent, errors.New("missing key"))
	case evt.Size < 0:
		return models.File{}, errors.Join(errInvalidEvent, errors.New("invalid file size"))
	}

	createdAt := evt.CompletedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	return models.File{
		FileId:      evt.FileId,
		UploadId:    evt.UploadId,
		OwnerId:     evt.OwnerId,
		Name:        evt.FileName,
		MimeType:    evt.MimeType,
		Size:        evt.Size,
		TotalChunks: evt.TotalChunks,
		Key:         evt.Key,
		Status:      models.FileStatusCompleted,
		CreatedAt:   createdAt,
	}, nil
}
