package provider

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisLivePublisher publishes in-app events to a Redis channel. The websocket
// gateway subscribed to that channel forwards them to the user's open sessions.
type RedisLivePublisher struct {
	client  *redis.Client
	channel string
}

// NewRedisLivePublisher connects to redisURL and verifies the connection.
func NewRedisLivePublisher(ctx context.Context, redisURL, channel string) (*RedisLivePublisher, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return NewRedisLivePublisherFromClient(client, channel), nil
}

func NewRedisLivePublisherFromClient(client *redis.Client, channel string) *RedisLivePublisher {
	return &RedisLivePublisher{client: client, channel: channel}
}

// Publish sends the event to "<channel>.<user id>" so the gateway can route it
// without decoding the payload.
func (p *RedisLivePublisher) Publish(ctx context.Context, event LiveEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal live event: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel+"."+event.UserID, payload).Err(); err != nil {
		return fmt.Errorf("publish live event: %w", err)
	}
	return nil
}

func (p *RedisLivePublisher) Close() error {
	return p.client.Close()
}

var _ LivePublisher = (*RedisLivePublisher)(nil)
