package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
	"truetestify/backend/internal/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// transcodeListKey is the Redis list the transcode jobs travel through.
// LPUSH/BRPOP gives FIFO delivery with each payload handed to exactly one
// of the blocked workers.
const transcodeListKey = "truetestify:transcode:jobs"

const enqueueTimeout = 5 * time.Second

// redisQueue implements JobQueue on a Redis list.
type redisQueue struct {
	client *redis.Client
	log    *zap.Logger
}

// NewRedisQueue connects to Redis and returns a list-backed job queue.
func NewRedisQueue(cfg config.RedisConfig, log *zap.Logger) (JobQueue, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &redisQueue{
		client: client,
		log:    log.With(zap.String("module", "queue")),
	}, nil
}

// Enqueue pushes one job payload, bounded by its own timeout so a slow
// Redis never stalls the submitting request indefinitely.
func (q *redisQueue) Enqueue(ctx context.Context, payload TranscodePayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal transcode payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, enqueueTimeout)
	defer cancel()

	if err := q.client.LPush(ctx, transcodeListKey, data).Err(); err != nil {
		q.log.Error("failed to enqueue transcode job",
			zap.String("jobId", payload.JobID), zap.Error(err))
		return err
	}

	q.log.Info("transcode job enqueued",
		zap.String("jobId", payload.JobID),
		zap.String("target", payload.Target))
	return nil
}

// Dequeue blocks up to timeout for the next job.
func (q *redisQueue) Dequeue(ctx context.Context, timeout time.Duration) (*TranscodePayload, error) {
	res, err := q.client.BRPop(ctx, timeout, transcodeListKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // Timeout, queue empty
		}
		return nil, err
	}

	// BRPOP returns [key, value]
	if len(res) != 2 {
		return nil, fmt.Errorf("unexpected BRPOP reply of length %d", len(res))
	}

	var payload TranscodePayload
	if err := json.Unmarshal([]byte(res[1]), &payload); err != nil {
		q.log.Error("discarding malformed transcode payload", zap.Error(err))
		return nil, fmt.Errorf("unmarshal transcode payload: %w", err)
	}
	return &payload, nil
}

// Close closes the Redis client connection.
func (q *redisQueue) Close() error {
	if err := q.client.Close(); err != nil {
		q.log.Error("failed to close Redis client", zap.Error(err))
		return err
	}
	return nil
}
