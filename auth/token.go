package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/Yulian302/lfusys-services-recordings/apperror"
	"github.com/golang-jwt/jwt/v4"
)

// Claims carried by access tokens. The subject is the owner id.
type Claims struct {
	jwt.RegisteredClaims
}

// TokenManager issues and verifies HS256 access tokens.
type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenManager(secret, issuer string, ttl time.Duration) *TokenManager {
	return &TokenManager{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
}

func (m *TokenManager) Issue(ownerID string) (string, error) {
	if ownerID == "" {
		return "", apperror.New(apperror.KindInvalidArgument, "owner id is required")
	}
	now := m.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   ownerID,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature, algorithm, expiry and issuer, and returns the owner id.
func (m *TokenManager) Verify(token string) (string, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return "", apperror.WithCause(apperror.ErrUnauthenticated, err)
	}
	if !parsed.Valid {
		return "", apperror.ErrUnauthenticated
	}
	if m.issuer != "" && !claims.VerifyIssuer(m.issuer, true) {
		return "", apperror.WithCause(apperror.ErrUnauthenticated, errors.New("unexpected issuer"))
	}
	if claims.Subject == "" {
		return "", apperror.WithCause(apperror.ErrUnauthenticated, errors.New("token has no subject"))
	}
	return claims.Subject, nil
}
