package uploaderv1

import "time"

type StartUploadRequest struct {
	Filename  string `json:"filename" validate:"required,max=255"`
	FileSize  int64  `json:"file_size" validate:"gt=0"`
	MimeType  string `json:"mime_type" validate:"required"`
	ChunkSize int64  `json:"chunk_size,omitempty" validate:"gte=0"` // 0 = server default
}

type StartUploadReply struct {
	UploadId    string    `json:"upload_id"`
	FileId      string    `json:"file_id"`
	TotalChunks uint32    `json:"total_chunks"`
	ChunkSize   int64     `json:"chunk_size"`
	ExpiresAt   time.Time `json:"expires_at"`
	Message     string    `json:"message"`
}

type UploadChunkRequest struct {
	UploadId    string `json:"upload_id" validate:"required"`
	ChunkNumber uint32 `json:"chunk_number" validate:"gte=1"`
	Data        []byte `json:"data" validate:"required"`
}

type UploadChunkReply struct {
	UploadId        string `json:"upload_id"`
	ChunkNumber     uint32 `json:"chunk_number"`
	TotalChunks     uint32 `json:"total_chunks"`
	ReceivedChunks  uint32 `json:"received_chunks"`
	BytesReceived   int64  `json:"bytes_received"`
	AlreadyUploaded bool   `json:"already_uploaded"`
	Message         string `json:"message"`
}

type UploadID struct {
	UploadId string `json:"upload_id" validate:"required"`
}

type CompleteUploadReply struct {
	FileId   string `json:"file_id"`
	Filename string `json:"filename"`
	FileSize int64  `json:"file_size"`
	MimeType string `json:"mime_type"`
	Key      string `json:"key"`
	Message  string `json:"message"`
}

type StatusReply struct {
	Status         string   `json:"status"`
	Progress       uint32   `json:"progress"`
	ReceivedChunks uint32   `json:"received_chunks"`
	TotalChunks    uint32   `json:"total_chunks"`
	MissingChunks  []uint32 `json:"missing_chunks"`
	Message        string   `json:"message"`
}

type UploadAudioRequest struct {
	Filename string `json:"filename" validate:"max=255"`
	MimeType string `json:"mime_type,omitempty"`
	Data     []byte `json:"data" validate:"required"`
}

type FileID struct {
	FileId string `json:"file_id" validate:"required"`
}

type File struct {
	Id          string    `json:"id"`
	UploadId    string    `json:"upload_id,omitempty"`
	OwnerId     string    `json:"owner_id"`
	Name        string    `json:"name"`
	MimeType    string    `json:"mime_type"`
	Size        int64     `json:"size"`
	TotalChunks uint32    `json:"total_chunks"`
	Key         string    `json:"key"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

type FilesReply struct {
	Files []*File `json:"files"`
}

type Empty struct{}
