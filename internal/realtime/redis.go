package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"
)

// RedisBroker shares the change feed between API instances over Redis pub/sub
type RedisBroker struct {
	client  *redis.Client
	channel string
	logger  *slog.Logger
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// NewRedisBroker connects to Redis and verifies the connection
func NewRedisBroker(ctx context.Context, cfg RedisConfig, logger *slog.Logger) (*RedisBroker, error) {
	if logger == nil {
		logger = slog.Default()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "chat"
	}

	return &RedisBroker{
		client:  client,
		channel: prefix + ":events",
		logger:  logger,
	}, nil
}

// Publish sends ev to every instance
func (b *RedisBroker) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("publishing event: %w", err)
	}
	return nil
}

// Subscribe opens a Redis subscription and pumps decoded events into the
// returned handle until it is released
func (b *RedisBroker) Subscribe(ctx context.Context) (*Subscription, error) {
	pubsub := b.client.Subscribe(ctx, b.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribing to %s: %w", b.channel, err)
	}

	var wg sync.WaitGroup
	var sub *Subscription
	sub = newSubscription(func() {
		_ = pubsub.Close()
		wg.Wait()
		close(sub.events)
	})

	wg.Add(1)
	go func() {
		defer wg.Done()
		b.pump(pubsub.Channel(), sub)
	}()

	return sub, nil
}

func (b *RedisBroker) pump(messages <-chan *redis.Message, sub *Subscription) {
	for {
		select {
		case <-sub.done:
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}

			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				b.logger.Warn("skipping undecodable event", "channel", msg.Channel, "error", err)
				continue
			}
			if !sub.offer(ev) {
				b.logger.Warn("subscriber lagging, event dropped", "type", ev.Type)
			}
		}
	}
}

// Ping checks the Redis connection
func (b *RedisBroker) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

// Close closes the Redis client
func (b *RedisBroker) Close() error {
	return b.client.Close()
}
