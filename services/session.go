package services

import (
	"context"

	"github.com/Yulian302/lfusys-services-recordings/apperror"
	"github.com/Yulian302/lfusys-services-recordings/models"
	"github.com/Yulian302/lfusys-services-recordings/store"
)

type SessionService interface {
	GetUploadStatus(ctx context.Context, uploadID, requesterID string) (*models.UploadStatusResponse, error)
}

type SessionServiceImpl struct {
	sessionStore store.SessionStore
}

func NewSessionServiceImpl(sessionStore store.SessionStore) *SessionServiceImpl {
	return &SessionServiceImpl{
		sessionStore: sessionStore,
	}
}

func (svc *SessionServiceImpl) GetUploadStatus(ctx context.Context, uploadID, requesterID string) (*models.UploadStatusResponse, error) {
	session, err := svc.sessionStore.GetSession(ctx, uploadID)
	if err != nil {
		return nil, asStoreError(err, "get upload session")
	}
	if session.OwnerId != requesterID {
		return nil, apperror.ErrForbidden
	}

	out := &models.UploadStatusResponse{
		Progress:       session.Progress(),
		ReceivedChunks: uint32(len(session.UploadedChunks)),
		TotalChunks:    session.TotalChunks,
		MissingChunks:  session.MissingChunks(),
	}
	switch {
	case session.IsComplete():
		out.Status = models.UploadStatusReady
		out.Message = "all chunks received, ready to complete"
	case len(session.UploadedChunks) > 0:
		out.Status = models.UploadStatusInProgress
		out.Message = "upload in progress"
	default:
		out.Status = models.UploadStatusPending
		out.Message = "waiting for chunks"
	}
	return out, nil
}
