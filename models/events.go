package models

import "time"

// UploadCompletedEvent is published once an artifact is durably written.
type UploadCompletedEvent struct {
	UploadId    string    `json:"upload_id"`
	FileId      string    `json:"file_id"`
	OwnerId     string    `json:"owner_id"`
	FileName    string    `json:"file_name"`
	MimeType    string    `json:"mime_type"`
	Size        int64     `json:"size"`
	TotalChunks uint32    `json:"total_chunks"`
	Key         string    `json:"key"`
	CompletedAt time.Time `json:"completed_at"`
}
