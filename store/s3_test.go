package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanMultipartCopy(t *testing.T) {
	const mb = 1024 * 1024

	assert.True(t, canMultipartCopy([]int64{5 * mb, 5 * mb, 1}))
	assert.True(t, canMultipartCopy([]int64{1}))
	assert.False(t, canMultipartCopy([]int64{5 * mb, 4 * mb, 5 * mb}))
	assert.False(t, canMultipartCopy(make([]int64, maxMultipartParts+1)))
}
