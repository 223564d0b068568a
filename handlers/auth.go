package handlers

import (
	"context"
	"strings"

	"github.com/Yulian302/lfusys-services-recordings/apperror"
	"github.com/Yulian302/lfusys-services-recordings/auth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

const healthServicePrefix = "/grpc.health.v1.Health/"

type TokenVerifier interface {
	Verify(token string) (string, error)
}

// UnaryAuthInterceptor requires a bearer token on every call except health
// checks and stores the owner id in the context.
func UnaryAuthInterceptor(verifier TokenVerifier) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if strings.HasPrefix(info.FullMethod, healthServicePrefix) {
			return handler(ctx, req)
		}

		token, err := bearerToken(ctx)
		if err != nil {
			return nil, ToStatus(err)
		}
		owner, err := verifier.Verify(token)
		if err != nil {
			return nil, ToStatus(err)
		}
		return handler(auth.WithOwner(ctx, owner), req)
	}
}

func bearerToken(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", apperror.ErrUnauthenticated
	}
	values := md.Get("authorization")
	if len(values) == 0 {
		return "", apperror.ErrUnauthenticated
	}
	scheme, token, found := strings.Cut(values[0], " ")
	if !found || !strings.EqualFold(scheme, "bearer") || token == "" {
		return "", apperror.ErrUnauthenticated
	}
	return token, nil
}
