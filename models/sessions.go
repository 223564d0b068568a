package models

import (
	"sort"
	"time"
)

// UploadSession tracks one in-progress chunked upload.
// Status values: pending (open, accepting chunks).
type UploadSession struct {
	UploadId       string   `dynamodbav:"upload_id" json:"upload_id"`                                           // Unique identifier for upload session
	FileId         string   `dynamodbav:"file_id" json:"file_id"`                                               // Identifier of the artifact produced on completion
	OwnerId        string   `dynamodbav:"owner_id" json:"owner_id"`                                             // User who owns this upload
	FileName       string   `dynamodbav:"file_name" json:"file_name"`                                           // Client-declared file name
	MimeType       string   `dynamodbav:"mime_type" json:"mime_type"`                                           // Client-declared MIME type
	FileSize       int64    `dynamodbav:"file_size" json:"file_size"`                                           // Client-declared size, advisory
	ChunkSize      int64    `dynamodbav:"chunk_size" json:"chunk_size"`                                         // Size of every chunk but possibly the last
	TotalChunks    uint32   `dynamodbav:"total_chunks" json:"total_chunks"`                                     // ceil(file_size / chunk_size)
	UploadedChunks []uint32 `dynamodbav:"uploaded_chunks,numberset,omitempty" json:"uploaded_chunks,omitempty"` // Sorted, unique chunk numbers received
	Status         string   `dynamodbav:"status" json:"status"`
	Version        int64    `dynamodbav:"version" json:"version"` // Compare-and-set token

	CreatedAt time.Time `dynamodbav:"created_at" json:"created_at"`
	ExpiresAt int64     `dynamodbav:"expires_at" json:"expires_at"` // Unix seconds
}

const SessionStatusPending = "pending"

// TotalChunksFor returns ceil(fileSize / chunkSize).
func TotalChunksFor(fileSize, chunkSize int64) uint32 {
	return uint32((fileSize + chunkSize - 1) / chunkSize)
}

func (s *UploadSession) InRange(chunk uint32) bool {
	return chunk >= 1 && chunk <= s.TotalChunks
}

func (s *UploadSession) HasChunk(chunk uint32) bool {
	i := sort.Search(len(s.UploadedChunks), func(i int) bool { return s.UploadedChunks[i] >= chunk })
	return i < len(s.UploadedChunks) && s.UploadedChunks[i] == chunk
}

// AddChunk inserts chunk keeping the set sorted. It reports false when the
// chunk is out of range or already present.
func (s *UploadSession) AddChunk(chunk uint32) bool {
	if !s.InRange(chunk) {
		return false
	}
	i := sort.Search(len(s.UploadedChunks), func(i int) bool { return s.UploadedChunks[i] >= chunk })
	if i < len(s.UploadedChunks) && s.UploadedChunks[i] == chunk {
		return false
	}
	s.UploadedChunks = append(s.UploadedChunks, 0)
	copy(s.UploadedChunks[i+1:], s.UploadedChunks[i:])
	s.UploadedChunks[i] = chunk
	return true
}

// MissingChunks lists, in ascending order, every chunk number not yet received.
func (s *UploadSession) MissingChunks() []uint32 {
	missing := make([]uint32, 0)
	next := 0
	for n := uint32(1); n <= s.TotalChunks; n++ {
		if next < len(s.UploadedChunks) && s.UploadedChunks[next] == n {
			next++
			continue
		}
		missing = append(missing, n)
	}
	return missing
}

func (s *UploadSession) IsComplete() bool {
	return len(s.UploadedChunks) == int(s.TotalChunks) && len(s.MissingChunks()) == 0
}

func (s *UploadSession) Progress() uint8 {
	if s.TotalChunks == 0 {
		return 0
	}
	p := float64(len(s.UploadedChunks)) / float64(s.TotalChunks) * 100
	if p > 100 {
		p = 100
	}
	return uint8(p)
}

func (s *UploadSession) Expired(now time.Time) bool {
	return s.ExpiresAt > 0 && now.Unix() >= s.ExpiresAt
}

// Clone returns a deep copy so stores never share the chunk slice with callers.
func (s UploadSession) Clone() UploadSession {
	out := s
	if s.UploadedChunks != nil {
		out.UploadedChunks = append([]uint32(nil), s.UploadedChunks...)
	}
	return out
}
