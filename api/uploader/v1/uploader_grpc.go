// Package uploaderv1 declares the uploader.v1.Uploader gRPC service. Messages
// are plain Go structs carried by the JSON codec registered in this package.
package uploaderv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const ServiceName = "uploader.v1.Uploader"

const (
	Uploader_StartUpload_FullMethodName     = "/uploader.v1.Uploader/StartUpload"
	Uploader_UploadChunk_FullMethodName     = "/uploader.v1.Uploader/UploadChunk"
	Uploader_CompleteUpload_FullMethodName  = "/uploader.v1.Uploader/CompleteUpload"
	Uploader_AbortUpload_FullMethodName     = "/uploader.v1.Uploader/AbortUpload"
	Uploader_GetUploadStatus_FullMethodName = "/uploader.v1.Uploader/GetUploadStatus"
	Uploader_UploadAudio_FullMethodName     = "/uploader.v1.Uploader/UploadAudio"
	Uploader_GetFiles_FullMethodName        = "/uploader.v1.Uploader/GetFiles"
	Uploader_GetFile_FullMethodName         = "/uploader.v1.Uploader/GetFile"
	Uploader_DeleteFile_FullMethodName      = "/uploader.v1.Uploader/DeleteFile"
)

type UploaderServer interface {
	StartUpload(context.Context, *StartUploadRequest) (*StartUploadReply, error)
	UploadChunk(context.Context, *UploadChunkRequest) (*UploadChunkReply, error)
	CompleteUpload(context.Context, *UploadID) (*CompleteUploadReply, error)
	AbortUpload(context.Context, *UploadID) (*Empty, error)
	GetUploadStatus(context.Context, *UploadID) (*StatusReply, error)
	UploadAudio(context.Context, *UploadAudioRequest) (*CompleteUploadReply, error)
	GetFiles(context.Context, *Empty) (*FilesReply, error)
	GetFile(context.Context, *FileID) (*File, error)
	DeleteFile(context.Context, *FileID) (*Empty, error)
}

// UnimplementedUploaderServer must be embedded to stay forward compatible.
type UnimplementedUploaderServer struct{}

func (UnimplementedUploaderServer) StartUpload(context.Context, *StartUploadRequest) (*StartUploadReply, error) {
	return nil, status.Error(codes.Unimplemented, "method StartUpload not implemented")
}
func (UnimplementedUploaderServer) UploadChunk(context.Context, *UploadChunkRequest) (*UploadChunkReply, error) {
	return nil, status.Error(codes.Unimplemented, "method UploadChunk not implemented")
}
func (UnimplementedUploaderServer) CompleteUpload(context.Context, *UploadID) (*CompleteUploadReply, error) {
	return nil, status.Error(codes.Unimplemented, "method CompleteUpload not implemented")
}
func (UnimplementedUploaderServer) AbortUpload(context.Context, *UploadID) (*Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method AbortUpload not implemented")
}
func (UnimplementedUploaderServer) GetUploadStatus(context.Context, *UploadID) (*StatusReply, error) {
	return nil, status.Error(codes.Unimplemented, "method GetUploadStatus not implemented")
}
func (UnimplementedUploaderServer) UploadAudio(context.Context, *UploadAudioRequest) (*CompleteUploadReply, error) {
	return nil, status.Error(codes.Unimplemented, "method UploadAudio not implemented")
}
func (UnimplementedUploaderServer) GetFiles(context.Context, *Empty) (*FilesReply, error) {
	return nil, status.Error(codes.Unimplemented, "method GetFiles not implemented")
}
func (UnimplementedUploaderServer) GetFile(context.Context, *FileID) (*File, error) {
	return nil, status.Error(codes.Unimplemented, "method GetFile not implemented")
}
func (UnimplementedUploaderServer) DeleteFile(context.Context, *FileID) (*Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method DeleteFile not implemented")
}

func RegisterUploaderServer(s grpc.ServiceRegistrar, srv UploaderServer) {
	s.RegisterService(&Uploader_ServiceDesc, srv)
}

// unaryHandler adapts one typed method to the grpc.MethodDesc handler shape.
func unaryHandler[Req any, Resp any](
	fullMethod string,
	call func(UploaderServer, context.Context, *Req) (*Resp, error),
) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(UploaderServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(UploaderServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var Uploader_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*UploaderServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "StartUpload",
			Handler:    unaryHandler(Uploader_StartUpload_FullMethodName, UploaderServer.StartUpload),
		},
		{
			MethodName: "UploadChunk",
			Handler:    unaryHandler(Uploader_UploadChunk_FullMethodName, UploaderServer.UploadChunk),
		},
		{
			MethodName: "CompleteUpload",
			Handler:    unaryHandler(Uploader_CompleteUpload_FullMethodName, UploaderServer.CompleteUpload),
		},
		{
			MethodName: "AbortUpload",
			Handler:    unaryHandler(Uploader_AbortUpload_FullMethodName, UploaderServer.AbortUpload),
		},
		{
			MethodName: "GetUploadStatus",
			Handler:    unaryHandler(Uploader_GetUploadStatus_FullMethodName, UploaderServer.GetUploadStatus),
		},
		{
			MethodName: "UploadAudio",
			Handler:    unaryHandler(Uploader_UploadAudio_FullMethodName, UploaderServer.UploadAudio),
		},
		{
			MethodName: "GetFiles",
			Handler:    unaryHandler(Uploader_GetFiles_FullMethodName, UploaderServer.GetFiles),
		},
		{
			MethodName: "GetFile",
			Handler:    unaryHandler(Uploader_GetFile_FullMethodName, UploaderServer.GetFile),
		},
		{
			MethodName: "DeleteFile",
			Handler:    unaryHandler(Uploader_DeleteFile_FullMethodName, UploaderServer.DeleteFile),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "uploader/v1/uploader.go",
}

type UploaderClient interface {
	StartUpload(ctx context.Context, in *StartUploadRequest, opts ...grpc.CallOption) (*StartUploadReply, error)
	UploadChunk(ctx context.Context, in *UploadChunkRequest, opts ...grpc.CallOption) (*UploadChunkReply, error)
	CompleteUpload(ctx context.Context, in *UploadID, opts ...grpc.CallOption) (*CompleteUploadReply, error)
	AbortUpload(ctx context.Context, in *UploadID, opts ...grpc.CallOption) (*Empty, error)
	GetUploadStatus(ctx context.Context, in *UploadID, opts ...grpc.CallOption) (*StatusReply, error)
	UploadAudio(ctx context.Context, in *UploadAudioRequest, opts ...grpc.CallOption) (*CompleteUploadReply, error)
	GetFiles(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*FilesReply, error)
	GetFile(ctx context.Context, in *FileID, opts ...grpc.CallOption) (*File, error)
	DeleteFile(ctx context.Context, in *FileID, opts ...grpc.CallOption) (*Empty, error)
}

type uploaderClient struct {
	cc grpc.ClientConnInterface
}

// NewUploaderClient returns a client that always speaks the JSON codec.
func NewUploaderClient(cc grpc.ClientConnInterface) UploaderClient {
	return &uploaderClient{cc}
}

func invoke[Req any, Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in *Req, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *uploaderClient) StartUpload(ctx context.Context, in *StartUploadRequest, opts ...grpc.CallOption) (*StartUploadReply, error) {
	return invoke[StartUploadRequest, StartUploadReply](ctx, c.cc, Uploader_StartUpload_FullMethodName, in, opts)
}

func (c *uploaderClient) UploadChunk(ctx context.Context, in *UploadChunkRequest, opts ...grpc.CallOption) (*UploadChunkReply, error) {
	return invoke[UploadChunkRequest, UploadChunkReply](ctx, c.cc, Uploader_UploadChunk_FullMethodName, in, opts)
}

func (c *uploaderClient) CompleteUpload(ctx context.Context, in *UploadID, opts ...grpc.CallOption) (*CompleteUploadReply, error) {
	return invoke[UploadID, CompleteUploadReply](ctx, c.cc, Uploader_CompleteUpload_FullMethodName, in, opts)
}

func (c *uploaderClient) AbortUpload(ctx context.Context, in *UploadID, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[UploadID, Empty](ctx, c.cc, Uploader_AbortUpload_FullMethodName, in, opts)
}

func (c *uploaderClient) GetUploadStatus(ctx context.Context, in *UploadID, opts ...grpc.CallOption) (*StatusReply, error) {
	return invoke[UploadID, StatusReply](ctx, c.cc, Uploader_GetUploadStatus_FullMethodName, in, opts)
}

func (c *uploaderClient) UploadAudio(ctx context.Context, in *UploadAudioRequest, opts ...grpc.CallOption) (*CompleteUploadReply, error) {
	return invoke[UploadAudioRequest, CompleteUploadReply](ctx, c.cc, Uploader_UploadAudio_FullMethodName, in, opts)
}

func (c *uploaderClient) GetFiles(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*FilesReply, error) {
	return invoke[Empty, FilesReply](ctx, c.cc, Uploader_GetFiles_FullMethodName, in, opts)
}

func (c *uploaderClient) GetFile(ctx context.Context, in *FileID, opts ...grpc.CallOption) (*File, error) {
	return invoke[FileID, File](ctx, c.cc, Uploader_GetFile_FullMethodName, in, opts)
}

func (c *uploaderClient) DeleteFile(ctx context.Context, in *FileID, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[FileID, Empty](ctx, c.cc, Uploader_DeleteFile_FullMethodName, in, opts)
}
