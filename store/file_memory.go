package store

import (
	"context"
	"sort"
	"sync"

	"github.com/Yulian302/lfusys-services-recordings/apperror"
	"github.com/Yulian302/lfusys-services-recordings/models"
)

type MemoryFileStore struct {
	mu    sync.RWMutex
	files map[string]models.File
}

func NewMemoryFileStore() *MemoryFileStore {
	return &MemoryFileStore{files: make(map[string]models.File)}
}

func (s *MemoryFileStore) IsReady(context.Context) error { return nil }

func (s *MemoryFileStore) Name() string { return "FileStore[memory]" }

func (s *MemoryFileStore) Get(_ context.Context, fileID string) (*models.File, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.files[fileID]
	if !ok {
		return nil, apperror.ErrFileNotFound
	}
	return &f, nil
}

func (s *MemoryFileStore) Create(_ context.Context, file models.File) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.files[file.FileId] = file
	return nil
}

func (s *MemoryFileStore) ListByOwner(_ context.Context, ownerID string) ([]models.File, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	files := make([]models.File, 0)
	for _, f := range s.files {
		if f.OwnerId == ownerID {
			files = append(files, f)
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].CreatedAt.Before(files[j].CreatedAt) })
	return files, nil
}

func (s *MemoryFileStore) Delete(_ context.Context, fileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.files[fileID]; !ok {
		return apperror.ErrFileNotFound
	}
	delete(s.files, fileID)
	return nil
}
