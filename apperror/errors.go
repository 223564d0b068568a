package apperror

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type Kind int

const (
	KindInternal Kind = iota
	KindInvalidArgument
	KindUnsupportedMediaType
	KindPayloadTooLarge
	KindNotFound
	KindForbidden
	KindIncompleteUpload
	KindAssemblyFailed
	KindStoreUnavailable
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "invalid_argument"
	case KindUnsupportedMediaType:
		return "unsupported_media_type"
	case KindPayloadTooLarge:
		return "payload_too_large"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindIncompleteUpload:
		return "incomplete_upload"
	case KindAssemblyFailed:
		return "assembly_failed"
	case KindStoreUnavailable:
		return "store_unavailable"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Error is a classified application error. Two errors are equal for errors.Is
// when they share kind and message, so sentinels survive wrapping.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == e.Message
}

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches kind and message to err. A nil err yields nil.
func Wrap(kind Kind, err error, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: msg, Err: err}
}

// WithCause returns a copy of the sentinel carrying cause.
func WithCause(sentinel *Error, cause error) error {
	return &Error{Kind: sentinel.Kind, Message: sentinel.Message, Err: cause}
}

var (
	ErrSessionNotFound   = New(KindNotFound, "upload session not found")
	ErrFileNotFound      = New(KindNotFound, "file not found")
	ErrBlobNotFound      = New(KindNotFound, "blob not found")
	ErrForbidden         = New(KindForbidden, "access denied to upload session")
	ErrFileForbidden     = New(KindForbidden, "access denied to file")
	ErrSessionExists     = New(KindConflict, "upload session already exists")
	ErrVersionConflict   = New(KindConflict, "upload session was modified concurrently")
	ErrStoreUnavailable  = New(KindStoreUnavailable, "store unavailable")
	ErrAssemblyFailed    = New(KindAssemblyFailed, "assembly failed")
	ErrUnauthenticated   = New(KindForbidden, "missing or invalid credentials")
	ErrInvalidChunkIndex = New(KindInvalidArgument, "invalid chunk number")
)

// IncompleteUploadError reports which chunk numbers are still missing.
type IncompleteUploadError struct {
	UploadID string
	Missing  []uint32
}

func (e *IncompleteUploadError) Error() string {
	parts := make([]string, len(e.Missing))
	for i, n := range e.Missing {
		parts[i] = strconv.FormatUint(uint64(n), 10)
	}
	return "missing chunks: [" + strings.Join(parts, ", ") + "]"
}

// KindOf classifies err. Unclassified errors are internal.
func KindOf(err error) Kind {
	if err == nil {
		return KindInternal
	}
	var incomplete *IncompleteUploadError
	if errors.As(err, &incomplete) {
		return KindIncompleteUpload
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
