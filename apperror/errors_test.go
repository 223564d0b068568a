package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentinelSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("get session: %w", WithCause(ErrSessionNotFound, errors.New("empty item")))

	require.ErrorIs(t, err, ErrSessionNotFound)
	assert.NotErrorIs(t, err, ErrFileNotFound)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"plain", errors.New("boom"), KindInternal},
		{"nil", nil, KindInternal},
		{"forbidden", ErrForbidden, KindForbidden},
		{"wrapped store", Wrap(KindStoreUnavailable, errors.New("timeout"), "put session"), KindStoreUnavailable},
		{"incomplete", fmt.Errorf("complete: %w", &IncompleteUploadError{Missing: []uint32{2}}), KindIncompleteUpload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestIncompleteUploadErrorMessage(t *testing.T) {
	err := &IncompleteUploadError{UploadID: "u1", Missing: []uint32{2, 5, 7}}
	assert.Equal(t, "missing chunks: [2, 5, 7]", err.Error())
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(KindAssemblyFailed, nil, "noop"))
}
