package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// extractTimeout bounds a single pipeline run. It matches the run lock
// TTL so a stuck task cannot outlive its lock.
const extractTimeout = 15 * time.Minute

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func (c RedisConfig) clientOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: c.Addr, Password: c.Password, DB: c.DB}
}

type Client struct {
	client *asynq.Client
}

func NewClient(cfg RedisConfig) *Client {
	return &Client{client: asynq.NewClient(cfg.clientOpt())}
}

func (c *Client) Close() error {
	return c.client.Close()
}

// EnqueueDocumentExtract schedules one extraction run. Failed runs are
// recorded on the document row, so tasks are never retried.
func (c *Client) EnqueueDocumentExtract(ctx context.Context, payload DocumentExtractPayload) error {
	return c.enqueue(ctx, TypeDocumentExtract, payload, asynq.MaxRetry(0), asynq.Timeout(extractTimeout))
}

func (c *Client) enqueue(ctx context.Context, taskType string, payload any, opts ...asynq.Option) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	task := asynq.NewTask(taskType, data)
	if _, err := c.client.EnqueueContext(ctx, task, opts...); err != nil {
		return fmt.Errorf("enqueue %s: %w", taskType, err)
	}
	return nil
}
