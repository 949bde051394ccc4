// Package redisstore caches pipeline run snapshots so generation status can
// be polled across processes. The cache is best-effort; losing it only
// degrades polling, never the run itself.
package redisstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/edustack/edustack/internal/pipeline"
	"github.com/redis/go-redis/v9"
)

const snapshotTTL = time.Hour

type Store struct {
	rdb *redis.Client
}

func New(addr, password string, db int) *Store {
	return &Store{
		rdb: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
	}
}

func snapshotKey(userID string) string {
	return "videogen:run:" + userID
}

// SaveRunSnapshot implements pipeline.SnapshotSink.
func (s *Store) SaveRunSnapshot(ctx context.Context, userID string, run pipeline.Run) error {
	b, err := json.Marshal(run)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, snapshotKey(userID), b, snapshotTTL).Err()
}

// RunSnapshot returns the cached snapshot, or (nil, nil) when none exists.
func (s *Store) RunSnapshot(ctx context.Context, userID string) (*pipeline.Run, error) {
	b, err := s.rdb.Get(ctx, snapshotKey(userID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var run pipeline.Run
	if err := json.Unmarshal(b, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

func (s *Store) Close() error { return s.rdb.Close() }
