// Package queue publishes evaluation events to a Redis stream so downstream
// observers can react to stage readiness and regressions.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// StreamEvaluations is the Redis stream carrying evaluation events.
	StreamEvaluations = "stagegate_evaluations"

	// GroupObservers is the consumer group for evaluation observers.
	GroupObservers = "observer_pool"
)

// EvaluationEvent is the payload published after an evaluation is recorded.
type EvaluationEvent struct {
	ElementID  string    `json:"element_id"`
	Process    string    `json:"process"`
	StageID    string    `json:"stage_id"`
	Status     string    `json:"status"`
	Regression bool      `json:"regression"`
	Timestamp  time.Time `json:"timestamp"`
}

// Queue manages the evaluation event stream.
type Queue struct {
	client *redis.Client
}

// New creates a Queue from a Redis client.
func New(client *redis.Client) *Queue {
	return &Queue{client: client}
}

// ConnectRedis creates a Redis client from a URL.
func ConnectRedis(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	return redis.NewClient(opts), nil
}

// EnsureStream creates the observer consumer group if it doesn't exist.
func (q *Queue) EnsureStream(ctx context.Context) error {
	err := q.client.XGroupCreateMkStream(ctx, StreamEvaluations, GroupObservers, "0").Err()
	if err != nil && err.Error() != "BUSYGROUP Consumer Group name already exists" {
		return fmt.Errorf("create group %s on %s: %w", GroupObservers, StreamEvaluations, err)
	}
	return nil
}

// PublishEvaluation adds an evaluation event to the stream.
func (q *Queue) PublishEvaluation(ctx context.Context, event EvaluationEvent) (string, error) {
	payload, _ := json.Marshal(event)
	result, err := q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamEvaluations,
		Values: map[string]any{
			"element_id": event.ElementID,
			"process":    event.Process,
			"stage_id":   event.StageID,
			"status":     event.Status,
			"regression": strconv.FormatBool(event.Regression),
			"timestamp":  event.Timestamp.UTC().Format(time.RFC3339Nano),
			"payload":    string(payload),
		},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("publish evaluation: %w", err)
	}
	return result, nil
}

// ReadEvaluation reads one evaluation event from the stream (blocking).
func (q *Queue) ReadEvaluation(ctx context.Context, consumer string) (*EvaluationEvent, string, error) {
	streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    GroupObservers,
		Consumer: consumer,
		Streams:  []string{StreamEvaluations, ">"},
		Count:    1,
		Block:    0,
	}).Result()
	if err != nil {
		return nil, "", fmt.Errorf("read evaluation: %w", err)
	}

	for _, stream := range streams {
		for _, msg := range stream.Messages {
			event := &EvaluationEvent{
				ElementID:  getString(msg.Values, "element_id"),
				Process:    getString(msg.Values, "process"),
				StageID:    getString(msg.Values, "stage_id"),
				Status:     getString(msg.Values, "status"),
				Regression: getString(msg.Values, "regression") == "true",
			}
			if ts, err := time.Parse(time.RFC3339Nano, getString(msg.Values, "timestamp")); err == nil {
				event.Timestamp = ts
			}
			return event, msg.ID, nil
		}
	}
	return nil, "", fmt.Errorf("no messages")
}

// Ack acknowledges an evaluation event.
func (q *Queue) Ack(ctx context.Context, msgID string) error {
	return q.client.XAck(ctx, StreamEvaluations, GroupObservers, msgID).Err()
}

// Status returns the stream length and the group's pending count.
func (q *Queue) Status(ctx context.Context) (length, pending int64, err error) {
	length, err = q.client.XLen(ctx, StreamEvaluations).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("stream length: %w", err)
	}
	groups, err := q.client.XInfoGroups(ctx, StreamEvaluations).Result()
	if err != nil {
		return length, 0, nil
	}
	for _, g := range groups {
		if g.Name == GroupObservers {
			pending = g.Pending
		}
	}
	return length, pending, nil
}

func getString(values map[string]any, key string) string {
	if v, ok := values[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
