package models

import "fmt"

type UploadStatus int

const (
	UploadStatusPending UploadStatus = iota
	UploadStatusInProgress
	UploadStatusReady
)

func (s UploadStatus) String() string {
	switch s {
	case UploadStatusInProgress:
		return "in_progress"
	case UploadStatusReady:
		return "ready"
	default:
		return "pending"
	}
}

func ParseUploadStatus(s string) (UploadStatus, error) {
	switch s {
	case "pending":
		return UploadStatusPending, nil
	case "in_progress":
		return UploadStatusInProgress, nil
	case "ready":
		return UploadStatusReady, nil
	}
	return UploadStatusPending, fmt.Errorf("unknown upload status %q", s)
}

type UploadStatusResponse struct {
	Status         UploadStatus
	Progress       uint8
	ReceivedChunks uint32
	TotalChunks    uint32
	MissingChunks  []uint32
	Message        string
}
