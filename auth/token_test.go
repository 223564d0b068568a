package auth

import (
	"testing"
	"time"

	"github.com/Yulian302/lfusys-services-recordings/apperror"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndVerify(t *testing.T) {
	m := NewTokenManager("secret", "lfusys", time.Hour)

	token, err := m.Issue("user-42")
	require.NoError(t, err)

	owner, err := m.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-42", owner)
}

func TestVerifyRejects(t *testing.T) {
	m := NewTokenManager("secret", "lfusys", time.Hour)

	expired := NewTokenManager("secret", "lfusys", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expiredToken, err := expired.Issue("user-1")
	require.NoError(t, err)

	otherKey, err := NewTokenManager("other", "lfusys", time.Hour).Issue("user-1")
	require.NoError(t, err)

	otherIssuer, err := NewTokenManager("secret", "someone-else", time.Hour).Issue("user-1")
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "user-1"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"expired", expiredToken},
		{"wrong key", otherKey},
		{"wrong issuer", otherIssuer},
		{"alg none", none},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Verify(tt.token)
			assert.ErrorIs(t, err, apperror.ErrUnauthenticated)
		})
	}
}

func TestIssueRequiresOwner(t *testing.T) {
	_, err := NewTokenManager("secret", "", time.Hour).Issue("")
	assert.True(t, apperror.IsKind(err, apperror.KindInvalidArgument))
}
