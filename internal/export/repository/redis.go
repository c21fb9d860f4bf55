package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"taskplane/internal/export/domain"
)

const queueKey = "export:queue"

// RedisStore keeps job records as JSON values with a TTL and feeds the worker
// through a Redis list.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore returns a store whose job records expire after ttl.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func jobKey(orgID, id string) string {
	return fmt.Sprintf("export:job:%s:%s", orgID, id)
}

// Save writes the job record, refreshing its TTL.
func (s *RedisStore) Save(ctx context.Context, job *domain.Job) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, jobKey(job.OrgID, job.ID), raw, s.ttl).Err()
}

// GetInOrg returns the job for (orgID, id), or nil if not found. The org is
// part of the key, so another org's job id simply does not exist here.
func (s *RedisStore) GetInOrg(ctx context.Context, orgID, id string) (*domain.Job, error) {
	raw, err := s.client.Get(ctx, jobKey(orgID, id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var job domain.Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// Enqueue saves the job and pushes it onto the work queue.
func (s *RedisStore) Enqueue(ctx context.Context, job *domain.Job) error {
	if err := s.Save(ctx, job); err != nil {
		return err
	}
	return s.client.LPush(ctx, queueKey, job.OrgID+":"+job.ID).Err()
}

// Dequeue blocks up to timeout for the next job. A queue entry whose record
// already expired is skipped by returning (nil, nil); the worker just polls
// again.
func (s *RedisStore) Dequeue(ctx context.Context, timeout time.Duration) (*domain.Job, error) {
	vals, err := s.client.BRPop(ctx, timeout, queueKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	orgID, id, ok := strings.Cut(vals[1], ":")
	if !ok {
		return nil, fmt.Errorf("export: malformed queue entry %q", vals[1])
	}
	return s.GetInOrg(ctx, orgID, id)
}
