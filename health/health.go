package health

import "context"

// ReadinessCheck is implemented by every backing store the service depends on.
type ReadinessCheck interface {
	IsReady(ctx context.Context) error
	Name() string
}
