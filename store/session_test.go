package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Yulian302/lfusys-services-recordings/apperror"
	"github.com/Yulian302/lfusys-services-recordings/models"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSession(id string, totalChunks uint32, expiresAt time.Time) models.UploadSession {
	return models.UploadSession{
		UploadId:    id,
		FileId:      "file-" + id,
		OwnerId:     "user-1",
		FileName:    "meeting.webm",
		MimeType:    "audio/webm",
		FileSize:    int64(totalChunks) * 10,
		ChunkSize:   10,
		TotalChunks: totalChunks,
		Status:      models.SessionStatusPending,
		CreatedAt:   time.Now().UTC().Truncate(time.Second),
		ExpiresAt:   expiresAt.Unix(),
	}
}

// runSessionStoreSuite checks the behavior every SessionStore must share.
func runSessionStoreSuite(t *testing.T, newStore func(t *testing.T) SessionStore) {
	ctx := context.Background()

	t.Run("create and get", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.CreateSession(ctx, newSession("u1", 3, time.Now().Add(time.Hour))))

		got, err := s.GetSession(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, "file-u1", got.FileId)
		assert.Equal(t, uint32(3), got.TotalChunks)
		assert.Equal(t, int64(1), got.Version)
		assert.Empty(t, got.UploadedChunks)
	})

	t.Run("create twice fails", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.CreateSession(ctx, newSession("u1", 1, time.Now())))
		err := s.CreateSession(ctx, newSession("u1", 1, time.Now()))
		assert.ErrorIs(t, err, apperror.ErrSessionExists)
	})

	t.Run("get missing", func(t *testing.T) {
		s := newStore(t)
		_, err := s.GetSession(ctx, "nope")
		assert.ErrorIs(t, err, apperror.ErrSessionNotFound)
	})

	t.Run("update advances version", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.CreateSession(ctx, newSession("u1", 3, time.Now())))

		sess, err := s.GetSession(ctx, "u1")
		require.NoError(t, err)
		sess.AddChunk(2)
		require.NoError(t, s.UpdateSession(ctx, sess))
		assert.Equal(t, int64(2), sess.Version)

		got, err := s.GetSession(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, []uint32{2}, got.UploadedChunks)
		assert.Equal(t, int64(2), got.Version)
	})

	t.Run("stale update conflicts", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.CreateSession(ctx, newSession("u1", 3, time.Now())))

		a, err := s.GetSession(ctx, "u1")
		require.NoError(t, err)
		b, err := s.GetSession(ctx, "u1")
		require.NoError(t, err)

		a.AddChunk(1)
		require.NoError(t, s.UpdateSession(ctx, a))

		b.AddChunk(2)
		assert.ErrorIs(t, s.UpdateSession(ctx, b), apperror.ErrVersionConflict)

		got, err := s.GetSession(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, []uint32{1}, got.UploadedChunks)
	})

	t.Run("update missing", func(t *testing.T) {
		s := newStore(t)
		sess := newSession("ghost", 1, time.Now())
		sess.Version = 1
		assert.ErrorIs(t, s.UpdateSession(ctx, &sess), apperror.ErrSessionNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.CreateSession(ctx, newSession("u1", 1, time.Now())))
		require.NoError(t, s.DeleteSession(ctx, "u1"))

		_, err := s.GetSession(ctx, "u1")
		assert.ErrorIs(t, err, apperror.ErrSessionNotFound)
		assert.ErrorIs(t, s.DeleteSession(ctx, "u1"), apperror.ErrSessionNotFound)
	})

	t.Run("list expired", func(t *testing.T) {
		s := newStore(t)
		now := time.Now()
		require.NoError(t, s.CreateSession(ctx, newSession("old", 1, now.Add(-2*time.Hour))))
		require.NoError(t, s.CreateSession(ctx, newSession("older", 1, now.Add(-3*time.Hour))))
		require.NoError(t, s.CreateSession(ctx, newSession("fresh", 1, now.Add(time.Hour))))

		expired, err := s.ListExpired(ctx, now, 10)
		require.NoError(t, err)

		ids := make([]string, 0, len(expired))
		for _, e := range expired {
			ids = append(ids, e.UploadId)
		}
		assert.ElementsMatch(t, []string{"old", "older"}, ids)

		limited, err := s.ListExpired(ctx, now, 1)
		require.NoError(t, err)
		assert.Len(t, limited, 1)
	})

	t.Run("add chunk", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.CreateSession(ctx, newSession("u1", 4, time.Now())))

		got, added, err := s.AddChunk(ctx, "u1", 3)
		require.NoError(t, err)
		assert.True(t, added)
		assert.Equal(t, []uint32{3}, got.UploadedChunks)

		got, added, err = s.AddChunk(ctx, "u1", 1)
		require.NoError(t, err)
		assert.True(t, added)
		assert.Equal(t, []uint32{1, 3}, got.UploadedChunks)

		got, added, err = s.AddChunk(ctx, "u1", 3)
		require.NoError(t, err)
		assert.False(t, added)
		assert.Equal(t, []uint32{1, 3}, got.UploadedChunks)
		assert.Equal(t, uint32(4), got.TotalChunks)
	})

	t.Run("add chunk to missing session", func(t *testing.T) {
		s := newStore(t)
		_, _, err := s.AddChunk(ctx, "ghost", 1)
		assert.ErrorIs(t, err, apperror.ErrSessionNotFound)

		require.NoError(t, s.CreateSession(ctx, newSession("u1", 2, time.Now())))
		require.NoError(t, s.DeleteSession(ctx, "u1"))
		_, _, err = s.AddChunk(ctx, "u1", 1)
		assert.ErrorIs(t, err, apperror.ErrSessionNotFound)
	})

	t.Run("stale update keeps added chunks", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.CreateSession(ctx, newSession("u1", 3, time.Now())))

		stale, err := s.GetSession(ctx, "u1")
		require.NoError(t, err)
		_, _, err = s.AddChunk(ctx, "u1", 2)
		require.NoError(t, err)

		stale.ExpiresAt++
		err = s.UpdateSession(ctx, stale)
		if err != nil {
			assert.ErrorIs(t, err, apperror.ErrVersionConflict)
		}

		got, err := s.GetSession(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, []uint32{2}, got.UploadedChunks)
	})

	t.Run("concurrent adds are not lost", func(t *testing.T) {
		s := newStore(t)
		const chunks = 64
		require.NoError(t, s.CreateSession(ctx, newSession("u1", chunks, time.Now())))

		var wg sync.WaitGroup
		var mu sync.Mutex
		newly := 0
		for n := uint32(1); n <= chunks; n++ {
			// every chunk twice, so exactly one of each pair is new
			for range 2 {
				wg.Add(1)
				go func(n uint32) {
					defer wg.Done()
					_, added, err := s.AddChunk(ctx, "u1", n)
					if !assert.NoError(t, err) {
						return
					}
					if added {
						mu.Lock()
						newly++
						mu.Unlock()
					}
				}(n)
			}
		}
		wg.Wait()

		assert.Equal(t, chunks, newly)
		got, err := s.GetSession(ctx, "u1")
		require.NoError(t, err)
		assert.True(t, got.IsComplete(), "missing %v", got.MissingChunks())
	})
}

func TestMemorySessionStore(t *testing.T) {
	runSessionStoreSuite(t, func(t *testing.T) SessionStore {
		return NewMemorySessionStore()
	})
}

func TestRedisSessionStore(t *testing.T) {
	runSessionStoreSuite(t, func(t *testing.T) SessionStore {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { client.Close() })
		return NewRedisSessionStore(client)
	})
}

func TestRedisSessionStoreDropsStaleIndexEntries(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	s := NewRedisSessionStore(client)

	require.NoError(t, s.CreateSession(ctx, newSession("gone", 1, time.Now().Add(-time.Hour))))
	mr.Del(redisSessionKey("gone"))

	expired, err := s.ListExpired(ctx, time.Now(), 10)
	require.NoError(t, err)
	assert.Empty(t, expired)

	members, err := client.ZRange(ctx, redisExpiryIndexKey, 0, -1).Result()
	require.NoError(t, err)
	assert.Empty(t, members)
}
