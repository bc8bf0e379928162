package redisclient

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Publisher hands lifecycle events to external collaborators (medical records,
// notification dispatch). The engine only emits; consumption is someone else's job.
type Publisher interface {
	Publish(ctx context.Context, eventType string, payload any) error
}

type redisPublisher struct {
	client  *redis.Client
	channel string
}

func NewRedisPublisher(client *redis.Client, channel string) Publisher {
	return &redisPublisher{
		client:  client,
		channel: channel,
	}
}

type eventEnvelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func (p *redisPublisher) Publish(ctx context.Context, eventType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}

	env, err := json.Marshal(eventEnvelope{Type: eventType, Payload: data})
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	if err := p.client.Publish(ctx, p.channel, env).Err(); err != nil {
		return fmt.Errorf("publish event %s: %w", eventType, err)
	}

	return nil
}
