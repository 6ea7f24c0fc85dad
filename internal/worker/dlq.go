package worker

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

// deadQueue collects jobs that exhausted their retries.
const deadQueue = "jobs:dead"

func pushDead(ctx context.Context, rdb *redis.Client, job *Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return rdb.LPush(ctx, deadQueue, data).Err()
}

// ListDead returns up to limit dead jobs without removing them.
func ListDead(ctx context.Context, rdb *redis.Client, limit int64) ([]Job, error) {
	raws, err := rdb.LRange(ctx, deadQueue, 0, limit-1).Result()
	if err != nil {
		return nil, err
	}
	jobs := make([]Job, 0, len(raws))
	for _, raw := range raws {
		var job Job
		if json.Unmarshal([]byte(raw), &job) == nil {
			jobs = append(jobs, job)
		}
	}
	return jobs, nil
}

// RequeueDead moves every dead job back onto its original queue with a fresh
// attempt counter. Returns how many were requeued.
func RequeueDead(ctx context.Context, rdb *redis.Client) (int, error) {
	count := 0
	for {
		raw, err := rdb.RPop(ctx, deadQueue).Result()
		if err == redis.Nil {
			return count, nil
		}
		if err != nil {
			return count, err
		}
		var job Job
		if json.Unmarshal([]byte(raw), &job) != nil || job.Queue == "" {
			continue
		}
		job.Attempts = 0
		job.LastError = ""
		data, err := json.Marshal(job)
		if err != nil {
			continue
		}
		if err := rdb.LPush(ctx, job.Queue, data).Err(); err != nil {
			return count, err
		}
		count++
	}
}
