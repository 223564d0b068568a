package retries

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/aws/smithy-go"
	"github.com/cenkalti/backoff/v4"
)

const (
	DefaultAttempts  = 3
	DefaultBaseDelay = 50 * time.Millisecond

	HealthAttempts  = 2
	HealthBaseDelay = 100 * time.Millisecond
)

// Retry runs fn up to attempts times with exponential backoff starting at
// baseDelay. Errors for which isRetriable returns false stop immediately and
// are returned unchanged.
func Retry(ctx context.Context, attempts int, baseDelay time.Duration, fn func() error, isRetriable func(error) bool) error {
	if attempts < 1 {
		attempts = 1
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = baseDelay
	exp.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(attempts-1)), ctx)

	return backoff.Retry(func() error {
		err := fn()
		if err == nil {
			return nil
		}
		if isRetriable != nil && !isRetriable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, policy)
}

var retriableAPICodes = map[string]struct{}{
	"ProvisionedThroughputExceededException": {},
	"ThrottlingException":                    {},
	"Throttling":                             {},
	"RequestLimitExceeded":                   {},
	"InternalServerError":                    {},
	"InternalError":                          {},
	"ServiceUnavailable":                     {},
	"SlowDown":                               {},
	"TransactionConflictException":           {},
}

// IsRetriableDbError reports whether err is a transient store fault: AWS
// throttling or server errors, or a network timeout.
func IsRetriableDbError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		_, ok := retriableAPICodes[apiErr.ErrorCode()]
		return ok
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	return false
}
