package services

import (
	"context"
	"sync"
	"time"

	"github.com/Yulian302/lfusys-services-recordings/logging"
	"github.com/Yulian302/lfusys-services-recordings/metrics"
	"github.com/Yulian302/lfusys-services-recordings/store"
	"github.com/robfig/cron/v3"
)

// SessionSweeper periodically aborts sessions whose expiry has passed.
type SessionSweeper struct {
	sessions  store.SessionStore
	manager   *UploadManager
	batchSize int

	cron    *cron.Cron
	metrics *metrics.UploadMetrics
	logger  logging.Logger

	mu      sync.Mutex
	running bool
	now     func() time.Time
}

func NewSessionSweeper(
	sessions store.SessionStore,
	manager *UploadManager,
	batchSize int,
	m *metrics.UploadMetrics,
	l logging.Logger,
) *SessionSweeper {
	if batchSize <= 0 {
		batchSize = 100
	}
	if m == nil {
		m = metrics.NewUploadMetrics(nil)
	}
	return &SessionSweeper{
		sessions:  sessions,
		manager:   manager,
		batchSize: batchSize,
		metrics:   m,
		logger:    l,
		now:       time.Now,
	}
}

// Start schedules Sweep on a cron spec such as "@every 10m".
func (s *SessionSweeper) Start(spec string) error {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		if _, err := s.Sweep(context.Background()); err != nil {
			s.logger.Error("session sweep failed", "error", err)
		}
	})
	if err != nil {
		return err
	}
	s.cron = c
	c.Start()
	s.logger.Info("session sweeper started", "schedule", spec)
	return nil
}

// Sweep aborts one batch of expired sessions and returns how many it removed.
// Overlapping runs are skipped.
func (s *SessionSweeper) Sweep(ctx context.Context) (int, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return 0, nil
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	expired, err := s.sessions.ListExpired(ctx, s.now(), s.batchSize)
	if err != nil {
		return 0, err
	}

	swept := 0
	for _, session := range expired {
		if err := ctx.Err(); err != nil {
			return swept, err
		}
		if err := s.manager.AbortSession(ctx, session.UploadId, session.OwnerId); err != nil {
			s.logger.Warn("failed to abort expired session", "upload_id", session.UploadId, "error", err)
			continue
		}
		swept++
	}

	if swept > 0 {
		s.metrics.SessionsSwept.Add(float64(swept))
		s.logger.Info("expired sessions swept", "count", swept)
	}
	return swept, nil
}

func (s *SessionSweeper) Shutdown(ctx context.Context) error {
	if s.cron == nil {
		return nil
	}
	stopped := s.cron.Stop()
	select {
	case <-stopped.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
