package services

import (
	"context"
	"errors"
	"time"

	"github.com/Yulian302/lfusys-services-recordings/apperror"
	"github.com/Yulian302/lfusys-services-recordings/caching"
	"github.com/Yulian302/lfusys-services-recordings/logging"
	"github.com/Yulian302/lfusys-services-recordings/models"
	"github.com/Yulian302/lfusys-services-recordings/store"
)

type FileService interface {
	GetFiles(ctx context.Context, ownerID string) (*models.FilesResponse, error)
	GetFile(ctx context.Context, ownerID, fileID string) (*models.File, error)
	DeleteFile(ctx context.Context, ownerID, fileID string) error
}

type FileServiceImpl struct {
	fileStore  store.FileStore
	blobs      store.BlobStore
	cachingSvc caching.CachingService
	cacheTTL   time.Duration

	logger logging.Logger
}

func NewFileServiceImpl(
	fileStore store.FileStore,
	blobs store.BlobStore,
	cachingSvc caching.CachingService,
	cacheTTL time.Duration,
	l logging.Logger,
) *FileServiceImpl {
	return &FileServiceImpl{
		fileStore:  fileStore,
		blobs:      blobs,
		cachingSvc: cachingSvc,
		cacheTTL:   cacheTTL,
		logger:     l,
	}
}

func (svc *FileServiceImpl) GetFiles(ctx context.Context, ownerID string) (*models.FilesResponse, error) {
	key := caching.UserFilesKey(ownerID)

	var cached []models.File
	err := svc.cachingSvc.Get(ctx, key, &cached)
	if err == nil {
		return &models.FilesResponse{Files: cached}, nil
	}
	if !errors.Is(err, caching.ErrCacheMiss) {
		svc.logger.Warn("files cache read failed", "owner_id", ownerID, "error", err)
	}

	files, err := svc.fileStore.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, asStoreError(err, "list files")
	}

	if err := svc.cachingSvc.Set(ctx, key, files, svc.cacheTTL); err != nil {
		svc.logger.Warn("files cache write failed", "owner_id", ownerID, "error", err)
	}

	return &models.FilesResponse{
		Files: files,
	}, nil
}

func (svc *FileServiceImpl) GetFile(ctx context.Context, ownerID, fileID string) (*models.File, error) {
	file, err := svc.fileStore.Get(ctx, fileID)
	if err != nil {
		return nil, asStoreError(err, "get file")
	}
	if file.OwnerId != ownerID {
		return nil, apperror.ErrFileForbidden
	}
	return file, nil
}

// DeleteFile removes the artifact and then its catalog record.
func (svc *FileServiceImpl) DeleteFile(ctx context.Context, ownerID, fileID string) error {
	file, err := svc.GetFile(ctx, ownerID, fileID)
	if err != nil {
		return err
	}

	if err := svc.blobs.Delete(ctx, file.Key); err != nil {
		svc.logger.Error("failed to delete artifact", "file_id", fileID, "key", file.Key, "error", err)
		return asStoreError(err, "delete artifact")
	}
	if err := svc.fileStore.Delete(ctx, fileID); err != nil && !errors.Is(err, apperror.ErrFileNotFound) {
		return asStoreError(err, "delete file record")
	}

	if err := svc.cachingSvc.Delete(ctx, caching.UserFilesKey(ownerID)); err != nil {
		svc.logger.Warn("cached files invalidation failed", "owner_id", ownerID, "error", err)
	}

	svc.logger.Info("file deleted", "file_id", fileID, "owner_id", ownerID)
	return nil
}
