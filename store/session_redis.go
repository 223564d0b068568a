package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/Yulian302/lfusys-services-recordings/apperror"
	"github.com/Yulian302/lfusys-services-recordings/models"
	"github.com/redis/go-redis/v9"
)

const (
	redisSessionKeyPrefix = "upload_session:"
	redisExpiryIndexKey   = "upload_sessions:expiry"
)

// addChunkScript adds ARGV[1] to the chunk set KEYS[2] only while the session
// document KEYS[1] exists. It returns -1 for a missing session, otherwise the
// SADD count.
var addChunkScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
	return -1
end
return redis.call("SADD", KEYS[2], ARGV[1])
`)

// RedisSessionStore keeps one JSON document per session, a set of received
// chunk numbers beside it and a sorted set of upload ids scored by
// expires_at. Document updates use WATCH/MULTI so concurrent writers to the
// same upload are serialized optimistically. Chunks are added with SADD and
// never conflict.
type RedisSessionStore struct {
	client redis.UniversalClient
}

func NewRedisSessionStore(client redis.UniversalClient) *RedisSessionStore {
	return &RedisSessionStore{client: client}
}

// the hash tag keeps a session's keys in one cluster slot
func redisSessionKey(uploadID string) string {
	return redisSessionKeyPrefix + "{" + uploadID + "}"
}

func redisChunksKey(uploadID string) string {
	return redisSessionKey(uploadID) + ":chunks"
}

// encodeSession returns the document without its chunks, which live in the
// chunk set, and the chunk numbers as SADD members.
func encodeSession(session models.UploadSession) ([]byte, []any, error) {
	chunks := make([]any, len(session.UploadedChunks))
	for i, n := range session.UploadedChunks {
		chunks[i] = n
	}
	session.UploadedChunks = nil
	payload, err := json.Marshal(session)
	return payload, chunks, err
}

func decodeSession(raw []byte, members []string, session *models.UploadSession) error {
	if err := json.Unmarshal(raw, session); err != nil {
		return err
	}
	session.UploadedChunks = session.UploadedChunks[:0]
	for _, m := range members {
		n, err := strconv.ParseUint(m, 10, 32)
		if err != nil {
			return fmt.Errorf("chunk number %q: %w", m, err)
		}
		session.UploadedChunks = append(session.UploadedChunks, uint32(n))
	}
	if len(session.UploadedChunks) == 0 {
		session.UploadedChunks = nil
	}
	slices.Sort(session.UploadedChunks)
	return nil
}

func (s *RedisSessionStore) IsReady(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisSessionStore) Name() string {
	return "SessionStore[redis]"
}

func (s *RedisSessionStore) CreateSession(ctx context.Context, uploadSession models.UploadSession) error {
	if uploadSession.Version == 0 {
		uploadSession.Version = 1
	}
	payload, chunks, err := encodeSession(uploadSession)
	if err != nil {
		return err
	}

	key := redisSessionKey(uploadSession.UploadId)
	chunksKey := redisChunksKey(uploadSession.UploadId)
	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return apperror.ErrSessionExists
		}

		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, key, payload, 0)
			p.Del(ctx, chunksKey)
			if len(chunks) > 0 {
				p.SAdd(ctx, chunksKey, chunks...)
			}
			p.ZAdd(ctx, redisExpiryIndexKey, redis.Z{
				Score:  float64(uploadSession.ExpiresAt),
				Member: uploadSession.UploadId,
			})
			return nil
		})
		return err
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return apperror.ErrSessionExists
	}
	return storeError(err, "create session")
}

func (s *RedisSessionStore) GetSession(ctx context.Context, uploadID string) (*models.UploadSession, error) {
	var doc *redis.StringCmd
	var members *redis.StringSliceCmd
	_, err := s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		doc = p.Get(ctx, redisSessionKey(uploadID))
		members = p.SMembers(ctx, redisChunksKey(uploadID))
		return nil
	})
	if errors.Is(err, redis.Nil) {
		return nil, apperror.ErrSessionNotFound
	}
	if err != nil {
		return nil, storeError(err, "get session")
	}

	raw, _ := doc.Bytes()
	var session models.UploadSession
	if err := decodeSession(raw, members.Val(), &session); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", uploadID, err)
	}
	return &session, nil
}

// AddChunk runs a script that checks the session and adds the chunk to its
// set in one step, then reads the session back.
func (s *RedisSessionStore) AddChunk(ctx context.Context, uploadID string, chunk uint32) (*models.UploadSession, bool, error) {
	keys := []string{redisSessionKey(uploadID), redisChunksKey(uploadID)}
	res, err := addChunkScript.Run(ctx, s.client, keys, chunk).Int64()
	if err != nil {
		return nil, false, storeError(err, "add chunk")
	}
	if res < 0 {
		return nil, false, apperror.ErrSessionNotFound
	}

	session, err := s.GetSession(ctx, uploadID)
	if err != nil {
		return nil, false, err
	}
	return session, res == 1, nil
}

func (s *RedisSessionStore) UpdateSession(ctx context.Context, session *models.UploadSession) error {
	key := redisSessionKey(session.UploadId)
	chunksKey := redisChunksKey(session.UploadId)
	next := session.Clone()
	next.Version = session.Version + 1

	payload, chunks, err := encodeSession(next)
	if err != nil {
		return err
	}

	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return apperror.ErrSessionNotFound
		}
		if err != nil {
			return err
		}

		var current models.UploadSession
		if err := json.Unmarshal(raw, &current); err != nil {
			return fmt.Errorf("decode session %s: %w", session.UploadId, err)
		}
		if current.Version != session.Version {
			return apperror.ErrVersionConflict
		}

		// chunks are only ever added, so a stale copy cannot drop one
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, key, payload, 0)
			if len(chunks) > 0 {
				p.SAdd(ctx, chunksKey, chunks...)
			}
			return nil
		})
		return err
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return apperror.ErrVersionConflict
	}
	if err != nil {
		return storeError(err, "update session")
	}

	session.Version = next.Version
	return nil
}

func (s *RedisSessionStore) DeleteSession(ctx context.Context, uploadID string) error {
	var deleted *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		deleted = p.Del(ctx, redisSessionKey(uploadID))
		p.Del(ctx, redisChunksKey(uploadID))
		p.ZRem(ctx, redisExpiryIndexKey, uploadID)
		return nil
	})
	if err != nil {
		return storeError(err, "delete session")
	}
	if deleted.Val() == 0 {
		return apperror.ErrSessionNotFound
	}
	return nil
}

func (s *RedisSessionStore) ListExpired(ctx context.Context, before time.Time, limit int) ([]models.UploadSession, error) {
	ids, err := s.client.ZRangeByScore(ctx, redisExpiryIndexKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   "(" + strconv.FormatInt(before.Unix(), 10),
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, storeError(err, "list expired sessions")
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = redisSessionKey(id)
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, storeError(err, "load expired sessions")
	}

	members := make([]*redis.StringSliceCmd, len(ids))
	_, err = s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, id := range ids {
			members[i] = p.SMembers(ctx, redisChunksKey(id))
		}
		return nil
	})
	if err != nil {
		return nil, storeError(err, "load expired session chunks")
	}

	var sessions []models.UploadSession
	var stale []any
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			stale = append(stale, ids[i])
			continue
		}
		var session models.UploadSession
		if err := decodeSession([]byte(raw), members[i].Val(), &session); err != nil {
			return nil, fmt.Errorf("decode session %s: %w", ids[i], err)
		}
		sessions = append(sessions, session)
	}

	// index entries whose document is gone
	if len(stale) > 0 {
		_ = s.client.ZRem(ctx, redisExpiryIndexKey, stale...).Err()
	}

	return sessions, nil
}
