package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Yulian302/lfusys-services-recordings/apperror"
	"github.com/Yulian302/lfusys-services-recordings/models"
)

// MemorySessionStore keeps sessions in process memory. It is meant for tests
// and single-instance local development.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]models.UploadSession
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]models.UploadSession),
	}
}

func (s *MemorySessionStore) IsReady(context.Context) error { return nil }

func (s *MemorySessionStore) Name() string { return "SessionStore[memory]" }

func (s *MemorySessionStore) CreateSession(_ context.Context, uploadSession models.UploadSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[uploadSession.UploadId]; ok {
		return apperror.ErrSessionExists
	}
	if uploadSession.Version == 0 {
		uploadSession.Version = 1
	}
	s.sessions[uploadSession.UploadId] = uploadSession.Clone()
	return nil
}

func (s *MemorySessionStore) GetSession(_ context.Context, uploadID string) (*models.UploadSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[uploadID]
	if !ok {
		return nil, apperror.ErrSessionNotFound
	}
	out := session.Clone()
	return &out, nil
}

func (s *MemorySessionStore) UpdateSession(_ context.Context, session *models.UploadSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.sessions[session.UploadId]
	if !ok {
		return apperror.ErrSessionNotFound
	}
	if current.Version != session.Version {
		return apperror.ErrVersionConflict
	}

	next := session.Clone()
	next.Version++
	s.sessions[session.UploadId] = next
	session.Version = next.Version
	return nil
}

func (s *MemorySessionStore) AddChunk(_ context.Context, uploadID string, chunk uint32) (*models.UploadSession, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.sessions[uploadID]
	if !ok {
		return nil, false, apperror.ErrSessionNotFound
	}
	if !current.InRange(chunk) {
		return nil, false, apperror.ErrInvalidChunkIndex
	}

	next := current.Clone()
	added := next.AddChunk(chunk)
	if added {
		next.Version++
		s.sessions[uploadID] = next
	}
	out := next.Clone()
	return &out, added, nil
}

func (s *MemorySessionStore) DeleteSession(_ context.Context, uploadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[uploadID]; !ok {
		return apperror.ErrSessionNotFound
	}
	delete(s.sessions, uploadID)
	return nil
}

func (s *MemorySessionStore) ListExpired(_ context.Context, before time.Time, limit int) ([]models.UploadSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.UploadSession
	for _, session := range s.sessions {
		if session.ExpiresAt < before.Unix() {
			out = append(out, session.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt < out[j].ExpiresAt })

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
