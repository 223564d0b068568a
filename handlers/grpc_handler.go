package handlers

import (
	"context"
	"fmt"

	uploaderv1 "github.com/Yulian302/lfusys-services-recordings/api/uploader/v1"
	"github.com/Yulian302/lfusys-services-recordings/apperror"
	"github.com/Yulian302/lfusys-services-recordings/auth"
	"github.com/Yulian302/lfusys-services-recordings/models"
	"github.com/Yulian302/lfusys-services-recordings/services"
)

type GrpcHandler struct {
	uploadService  services.UploadService
	sessionService services.SessionService
	fileService    services.FileService
	uploaderv1.UnimplementedUploaderServer
}

func NewGrpcHandler(
	uploadSvc services.UploadService,
	sessSvc services.SessionService,
	fileSvc services.FileService,
) *GrpcHandler {
	return &GrpcHandler{
		uploadService:  uploadSvc,
		sessionService: sessSvc,
		fileService:    fileSvc,
	}
}

func requester(ctx context.Context) (string, error) {
	owner, ok := auth.OwnerFromContext(ctx)
	if !ok {
		return "", apperror.ErrUnauthenticated
	}
	return owner, nil
}

func (h *GrpcHandler) StartUpload(ctx context.Context, req *uploaderv1.StartUploadRequest) (*uploaderv1.StartUploadReply, error) {
	owner, err := requester(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	out, err := h.uploadService.StartSession(ctx, services.StartSessionInput{
		OwnerID:   owner,
		Filename:  req.Filename,
		FileSize:  req.FileSize,
		MimeType:  req.MimeType,
		ChunkSize: req.ChunkSize,
	})
	if err != nil {
		return nil, err
	}

	return &uploaderv1.StartUploadReply{
		UploadId:    out.UploadID,
		FileId:      out.FileID,
		TotalChunks: out.TotalChunks,
		ChunkSize:   out.ChunkSize,
		ExpiresAt:   out.ExpiresAt,
		Message:     "upload session created",
	}, nil
}

func (h *GrpcHandler) UploadChunk(ctx context.Context, req *uploaderv1.UploadChunkRequest) (*uploaderv1.UploadChunkReply, error) {
	owner, err := requester(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	out, err := h.uploadService.AcceptChunk(ctx, req.UploadId, owner, req.ChunkNumber, req.Data)
	if err != nil {
		return nil, err
	}

	msg := "chunk uploaded successfully"
	if out.AlreadyUploaded {
		msg = "chunk already uploaded"
	}
	return &uploaderv1.UploadChunkReply{
		UploadId:        req.UploadId,
		ChunkNumber:     req.ChunkNumber,
		TotalChunks:     out.TotalChunks,
		ReceivedChunks:  out.ReceivedChunks,
		BytesReceived:   out.BytesReceived,
		AlreadyUploaded: out.AlreadyUploaded,
		Message:         msg,
	}, nil
}

func (h *GrpcHandler) CompleteUpload(ctx context.Context, req *uploaderv1.UploadID) (*uploaderv1.CompleteUploadReply, error) {
	owner, err := requester(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	out, err := h.uploadService.CompleteSession(ctx, req.UploadId, owner)
	if err != nil {
		return nil, err
	}
	return completeReply(out, "file upload completed"), nil
}

func (h *GrpcHandler) AbortUpload(ctx context.Context, req *uploaderv1.UploadID) (*uploaderv1.Empty, error) {
	owner, err := requester(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	if err := h.uploadService.AbortSession(ctx, req.UploadId, owner); err != nil {
		return nil, err
	}
	return &uploaderv1.Empty{}, nil
}

func (h *GrpcHandler) GetUploadStatus(ctx context.Context, req *uploaderv1.UploadID) (*uploaderv1.StatusReply, error) {
	owner, err := requester(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	out, err := h.sessionService.GetUploadStatus(ctx, req.UploadId, owner)
	if err != nil {
		return nil, err
	}
	return &uploaderv1.StatusReply{
		Status:         out.Status.String(),
		Progress:       uint32(out.Progress),
		ReceivedChunks: out.ReceivedChunks,
		TotalChunks:    out.TotalChunks,
		MissingChunks:  out.MissingChunks,
		Message:        out.Message,
	}, nil
}

func (h *GrpcHandler) UploadAudio(ctx context.Context, req *uploaderv1.UploadAudioRequest) (*uploaderv1.CompleteUploadReply, error) {
	owner, err := requester(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	out, err := h.uploadService.UploadAudio(ctx, services.UploadAudioInput{
		OwnerID:  owner,
		Filename: req.Filename,
		MimeType: req.MimeType,
		Data:     req.Data,
	})
	if err != nil {
		return nil, err
	}
	return completeReply(out, "audio file uploaded"), nil
}

func (h *GrpcHandler) GetFiles(ctx context.Context, _ *uploaderv1.Empty) (*uploaderv1.FilesReply, error) {
	owner, err := requester(ctx)
	if err != nil {
		return nil, err
	}

	filesResponse, err := h.fileService.GetFiles(ctx, owner)
	if err != nil {
		return nil, err
	}

	files := make([]*uploaderv1.File, len(filesResponse.Files))
	for i := range filesResponse.Files {
		files[i] = toFileReply(&filesResponse.Files[i])
	}
	return &uploaderv1.FilesReply{Files: files}, nil
}

func (h *GrpcHandler) GetFile(ctx context.Context, req *uploaderv1.FileID) (*uploaderv1.File, error) {
	owner, err := requester(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	f, err := h.fileService.GetFile(ctx, owner, req.FileId)
	if err != nil {
		return nil, err
	}
	return toFileReply(f), nil
}

func (h *GrpcHandler) DeleteFile(ctx context.Context, req *uploaderv1.FileID) (*uploaderv1.Empty, error) {
	owner, err := requester(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	if err := h.fileService.DeleteFile(ctx, owner, req.FileId); err != nil {
		return nil, err
	}
	return &uploaderv1.Empty{}, nil
}

func completeReply(out *services.CompleteSessionResult, msg string) *uploaderv1.CompleteUploadReply {
	return &uploaderv1.CompleteUploadReply{
		FileId:   out.FileID,
		Filename: out.Filename,
		FileSize: out.TotalBytes,
		MimeType: out.MimeType,
		Key:      out.Key,
		Message:  fmt.Sprintf("%s: %s", msg, out.Filename),
	}
}

func toFileReply(f *models.File) *uploaderv1.File {
	return &uploaderv1.File{
		Id:          f.FileId,
		UploadId:    f.UploadId,
		OwnerId:     f.OwnerId,
		Name:        f.Name,
		MimeType:    f.MimeType,
		Size:        f.Size,
		TotalChunks: f.TotalChunks,
		Key:         f.Key,
		Status:      f.Status,
		CreatedAt:   f.CreatedAt,
	}
}
