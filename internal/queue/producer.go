package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Job types carried on the jobs stream.
const (
	JobQuoteCreated    = "quote.created"
	JobSessionsCleanup = "sessions.cleanup"
)

type Producer struct {
	client *redis.Client
	stream string
}

func NewProducer(client *redis.Client, stream string) *Producer {
	return &Producer{client: client, stream: stream}
}

// Enqueue appends a job; data is JSON-encoded into the "data" field.
func (p *Producer) Enqueue(ctx context.Context, jobType string, data any) error {
	if p == nil || p.client == nil {
		return nil
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	_, err = p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]any{
			"type": jobType,
			"data": string(payload),
		},
	}).Result()
	return err
}
