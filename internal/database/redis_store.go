package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Coin333/courage-reps/pkg/models"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "couragereps"

// RedisProgressStore keeps progress records as JSON strings in Redis
type RedisProgressStore struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// NewRedisProgressStore creates a new store backed by Redis
func NewRedisProgressStore(addr, password string, db int) *RedisProgressStore {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return NewRedisProgressStoreWithClient(rdb, redisKeyPrefix)
}

// NewRedisProgressStoreWithClient uses an existing client and key prefix
func NewRedisProgressStoreWithClient(client *redis.Client, prefix string) *RedisProgressStore {
	if prefix == "" {
		prefix = redisKeyPrefix
	}
	return &RedisProgressStore{client: client, prefix: prefix, now: time.Now}
}

// Ping checks the connection
func (s *RedisProgressStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to reach redis: %w", err)
	}
	return nil
}

// Close closes the client
func (s *RedisProgressStore) Close() error {
	return s.client.Close()
}

func (s *RedisProgressStore) key(userID int64) string {
	return fmt.Sprintf("%s:progress:%d", s.prefix, userID)
}

func (s *RedisProgressStore) usersKey() string {
	return s.prefix + ":users"
}

// Load returns the record of userID
func (s *RedisProgressStore) Load(ctx context.Context, userID int64) (models.UserProgress, error) {
	data, err := s.client.Get(ctx, s.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.UserProgress{}, ErrNotFound
	}
	if err != nil {
		return models.UserProgress{}, fmt.Errorf("failed to get user progress: %w", err)
	}
	var p models.UserProgress
	if err := json.Unmarshal(data, &p); err != nil {
		return models.UserProgress{}, fmt.Errorf("%w: user %d: %v", ErrCorrupt, userID, err)
	}
	p.UserID = userID
	return p, nil
}

// Save writes the record inside WATCH/MULTI so that concurrent writers
// cannot both win
func (s *RedisProgressStore) Save(ctx context.Context, p *models.UserProgress) error {
	key := s.key(p.UserID)
	rec := p.Clone()
	rec.Revision = p.Revision + 1
	rec.UpdatedAt = s.now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = rec.UpdatedAt
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal user progress: %w", err)
	}

	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := storedRevision(ctx, tx, key)
		if err != nil {
			return err
		}
		if current != p.Revision {
			return ErrRevisionConflict
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			pipe.SAdd(ctx, s.usersKey(), p.UserID)
			return nil
		})
		return err
	}, key)

	switch {
	case errors.Is(err, redis.TxFailedErr), errors.Is(err, ErrRevisionConflict):
		return ErrRevisionConflict
	case err != nil:
		return fmt.Errorf("failed to save user progress: %w", err)
	}

	p.Revision = rec.Revision
	p.CreatedAt = rec.CreatedAt
	p.UpdatedAt = rec.UpdatedAt
	return nil
}

// storedRevision reads the revision of the stored record, 0 when absent.
// Undecodable records count as absent so they can be replaced.
func storedRevision(ctx context.Context, tx *redis.Tx, key string) (int64, error) {
	data, err := tx.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read current revision: %w", err)
	}
	var head struct {
		Revision int64 `json:"revision"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return 0, nil
	}
	return head.Revision, nil
}

// Delete removes the record of userID
func (s *RedisProgressStore) Delete(ctx context.Context, userID int64) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key(userID))
		pipe.SRem(ctx, s.usersKey(), userID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete user progress: %w", err)
	}
	return nil
}

// UserIDs returns every user with a record
func (s *RedisProgressStore) UserIDs(ctx context.Context) ([]int64, error) {
	members, err := s.client.SMembers(ctx, s.usersKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	ids := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	sortIDs(ids)
	return ids, nil
}
