// Package queue provides a Redis-backed intent queue consumer that feeds
// submissions into the async runner.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/quartetdev/quartet/pkg/models"
	"github.com/quartetdev/quartet/pkg/protocol"
)

// Submission is the queue message shape: an intent plus the identifiers to
// run it under.
type Submission struct {
	Intent    models.Intent       `json:"intent"`
	State     models.ProjectState `json:"state"`
	UserID    string              `json:"user_id"`
	ProjectID string              `json:"project_id"`
}

// Submitter is the slice of the runner the consumer needs.
type Submitter interface {
	ExecuteAsync(intent models.Intent, state models.ProjectState, userID, projectID string, callback protocol.ProgressCallback) string
}

// Consumer pops intent submissions from a Redis list and submits them for
// asynchronous execution.
type Consumer struct {
	addr     string
	password string
	db       int
	queueKey string

	submitter Submitter
	client    *redis.Client
	logger    *slog.Logger
	stopCh    chan struct{}
	wg        sync.WaitGroup
}

func NewConsumer(logger *slog.Logger, submitter Submitter, addr, password string, db int, queueKey string) (*Consumer, error) {
	if queueKey == "" {
		return nil, errors.New("queue key is required")
	}

	if addr == "" {
		addr = "localhost:6379"
	}

	return &Consumer{
		addr:      addr,
		password:  password,
		db:        db,
		queueKey:  queueKey,
		submitter: submitter,
		stopCh:    make(chan struct{}),
		logger: logger.With(
			"module", "intent_queue",
			"queue", queueKey,
		),
	}, nil
}

func (c *Consumer) Start(ctx context.Context) error {
	c.logger.InfoContext(ctx, "Starting intent queue consumer")

	if err := c.initializeClient(ctx); err != nil {
		return fmt.Errorf("failed to initialize queue client: %w", err)
	}

	c.wg.Add(1)

	go c.consume(ctx)

	return nil
}

func (c *Consumer) initializeClient(ctx context.Context) error {
	c.client = redis.NewClient(&redis.Options{
		Addr:     c.addr,
		Password: c.password,
		DB:       c.db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	c.logger.InfoContext(ctx, "Connected to Redis", "addr", c.addr, "db", c.db)

	return nil
}

func (c *Consumer) consume(ctx context.Context) {
	defer c.wg.Done()

	for {
		select {
		case <-c.stopCh:
			c.logger.InfoContext(ctx, "Intent queue consumer stopped")

			return
		case <-ctx.Done():
			c.logger.InfoContext(ctx, "Context cancelled, stopping intent queue consumer")

			return
		default:
			if err := c.processMessage(ctx); err != nil {
				c.logger.ErrorContext(ctx, "Error processing message", "error", err)
				time.Sleep(1 * time.Second)
			}
		}
	}
}

func (c *Consumer) processMessage(ctx context.Context) error {
	result, err := c.client.BLPop(ctx, 1*time.Second, c.queueKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}

		return fmt.Errorf("failed to pop message from queue: %w", err)
	}

	if len(result) < 2 {
		return nil
	}

	message := result[1]

	var submission Submission
	if err := json.Unmarshal([]byte(message), &submission); err != nil {
		return fmt.Errorf("failed to decode submission: %w", err)
	}

	if submission.Intent.Name == "" {
		return errors.New("submission has no intent name")
	}

	executionID := c.submitter.ExecuteAsync(submission.Intent, submission.State, submission.UserID, submission.ProjectID, protocol.NoopCallback{})
	c.logger.InfoContext(ctx, "Submitted queued intent", "intent", submission.Intent.Name, "execution_id", executionID)

	return nil
}

func (c *Consumer) Stop(ctx context.Context) error {
	c.logger.InfoContext(ctx, "Stopping intent queue consumer")

	close(c.stopCh)
	c.wg.Wait()

	if c.client != nil {
		if err := c.client.Close(); err != nil {
			c.logger.ErrorContext(ctx, "Error closing Redis client", "error", err)
		}
	}

	return nil
}
