// Package queue adapts a Redis list/sorted-set pair into the Dispatcher's
// Queue contract and the Async Worker's task source, carrying workflow ids
// instead of the generic action jobs the teacher's queue package moves.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Task is a single enqueued unit of work: a workflow id awaiting execution.
type Task struct {
	TaskID     string    `json:"taskId"`
	WorkflowID string    `json:"workflowId"`
	EnqueuedAt time.Time `json:"enqueuedAt"`
	RetryCount int       `json:"retryCount"`
}

// Config configures the Redis-backed queue.
type Config struct {
	RedisURL  string
	KeyPrefix string
}

// Redis is a blocking-list job queue with a processing sorted-set for
// deadline tracking, adapted from the teacher's redis queue package.
type Redis struct {
	client *redis.Client
	prefix string
}

const queueName = "workflows"

// NewRedis parses cfg.RedisURL, connects, and pings.
func NewRedis(ctx context.Context, cfg Config) (*Redis, error) {
	url := cfg.RedisURL
	if url == "" {
		url = "redis://localhost:6379/0"
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "vaultforge:"
	}

	return &Redis{client: client, prefix: prefix}, nil
}

// Close closes the underlying Redis client.
func (q *Redis) Close() error { return q.client.Close() }

func (q *Redis) queueKey() string      { return q.prefix + queueName }
func (q *Redis) processingKey() string { return q.prefix + "processing" }

// Enqueue implements workflow.Queue.
func (q *Redis) Enqueue(ctx context.Context, workflowID string) (string, error) {
	task := Task{
		TaskID:     uuid.New().String(),
		WorkflowID: workflowID,
		EnqueuedAt: time.Now().UTC(),
	}

	data, err := json.Marshal(task)
	if err != nil {
		return "", fmt.Errorf("marshaling task: %w", err)
	}

	if err := q.client.RPush(ctx, q.queueKey(), data).Err(); err != nil {
		return "", fmt.Errorf("enqueuing task: %w", err)
	}

	return task.TaskID, nil
}

// Dequeue blocks up to timeout for the next task. Returns (nil, nil) on
// timeout with no task available.
func (q *Redis) Dequeue(ctx context.Context, timeout time.Duration) (*Task, error) {
	blockCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	result, err := q.client.BLPop(blockCtx, timeout, q.queueKey()).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("dequeuing task: %w", err)
	}
	if len(result) < 2 {
		return nil, nil
	}

	var task Task
	if err := json.Unmarshal([]byte(result[1]), &task); err != nil {
		return nil, fmt.Errorf("unmarshaling task: %w", err)
	}
	return &task, nil
}

// MarkProcessing records a deadline for the task so a monitor could detect a
// stalled worker; the worker itself does not retry on expiry (see Non-goals).
func (q *Redis) MarkProcessing(ctx context.Context, taskID string, deadline time.Time) error {
	return q.client.ZAdd(ctx, q.processingKey(), redis.Z{
		Score:  float64(deadline.Unix()),
		Member: taskID,
	}).Err()
}

// CompleteTask removes a task from the processing set, whether it succeeded
// or failed — both are terminal from the queue's point of view.
func (q *Redis) CompleteTask(ctx context.Context, taskID string) error {
	return q.client.ZRem(ctx, q.processingKey(), taskID).Err()
}

// Depth reports how many tasks are waiting in the queue.
func (q *Redis) Depth(ctx context.Context) (int, error) {
	n, err := q.client.LLen(ctx, q.queueKey()).Result()
	return int(n), err
}
