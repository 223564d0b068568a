package models

import "time"

type File struct {
	FileId      string    `dynamodbav:"file_id" json:"file_id"`           // Unique file identifier
	UploadId    string    `dynamodbav:"upload_id" json:"upload_id"`       // Upload session it came from, empty for single-shot uploads
	OwnerId     string    `dynamodbav:"owner_id" json:"owner_id"`         // File owner
	Name        string    `dynamodbav:"file_name" json:"file_name"`       // Original file name
	MimeType    string    `dynamodbav:"mime_type" json:"mime_type"`       // Declared MIME type
	Size        int64     `dynamodbav:"file_size" json:"file_size"`       // Assembled byte count
	TotalChunks uint32    `dynamodbav:"total_chunks" json:"total_chunks"` // Number of chunks assembled
	Key         string    `dynamodbav:"key" json:"key"`                   // Blob key of the artifact
	Status      string    `dynamodbav:"status" json:"status"`
	CreatedAt   time.Time `dynamodbav:"created_at" json:"created_at"`
}

const FileStatusCompleted = "completed"

type FilesResponse struct {
	Files []File
}
