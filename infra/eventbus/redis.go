package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/amirasaad/monetary/pkg/eventbus"
	"github.com/redis/go-redis/v9"
)

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// RedisEventBus publishes events to a Redis stream and consumes them
// through a consumer group.
type RedisEventBus struct {
	client        *redis.Client
	stream        string // Stream name
	group         string // Consumer group name
	typeFactories map[string]func() eventbus.Event
	logger        *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWithRedis creates a new Redis-backed event bus.
// url: Redis connection URL (e.g., "redis://localhost:6379")
// stream: Name of the Redis stream to use
// group: Consumer group name for event processing
// types: constructors used to decode consumed events by type
func NewWithRedis(
	url, stream, group string,
	types map[string]func() eventbus.Event,
	logger *slog.Logger,
) (*RedisEventBus, error) {
	if url == "" || stream == "" || group == "" {
		return nil, fmt.Errorf("redis event bus: url, stream, and group are required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis event bus: invalid URL: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis event bus: connection failed: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	bus := &RedisEventBus{
		client:        client,
		stream:        stream,
		group:         group,
		typeFactories: types,
		logger:        logger.With("component", "redis-event-bus"),
		ctx:           ctx,
		cancel:        cancel,
	}

	return bus, nil
}

// Emit publishes an event to the Redis stream.
func (b *RedisEventBus) Emit(ctx context.Context, event eventbus.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("redis event bus: marshal failed: %w", err)
	}

	envBytes, err := json.Marshal(envelope{Type: event.Type(), Payload: data})
	if err != nil {
		return fmt.Errorf("redis event bus: envelope marshal failed: %w", err)
	}

	if err := b.client.XAdd(ctx, &redis.XAddArgs{
		Stream: b.stream,
		Values: map[string]any{"event": string(envBytes)},
	}).Err(); err != nil {
		b.logger.Error("failed to emit event", "error", err, "type", event.Type())
		return fmt.Errorf("redis event bus: emit failed: %w", err)
	}

	b.logger.Debug("event emitted", "type", event.Type())
	return nil
}

// Register starts a consumer calling handler for each event of eventType.
// Every event type reads the stream through its own consumer group so that
// handlers of different types all see every message. Failed events are
// pushed to the dead letter stream.
func (b *RedisEventBus) Register(eventType string, handler eventbus.HandlerFunc) {
	group := b.group + ":" + eventType
	consumer := fmt.Sprintf("consumer-%s-%d", eventType, time.Now().UnixNano())
	// BUSYGROUP means the group already exists.
	_ = b.client.XGroupCreateMkStream(b.ctx, b.stream, group, "0").Err()
	b.logger.Info("registering handler", "event_type", eventType, "group", group, "consumer", consumer)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for {
			res, err := b.client.XReadGroup(b.ctx, &redis.XReadGroupArgs{
				Group:    group,
				Consumer: consumer,
				Streams:  []string{b.stream, ">"},
				Count:    10,
				Block:    time.Second,
			}).Result()
			if b.ctx.Err() != nil {
				return
			}
			if err != nil {
				if !errors.Is(err, redis.Nil) {
					b.logger.Error("error reading from stream", "error", err, "consumer", consumer)
					time.Sleep(time.Second)
				}
				continue
			}

			for _, stream := range res {
				for _, msg := range stream.Messages {
					b.dispatch(group, eventType, handler, msg)
				}
			}
		}
	}()
}

func (b *RedisEventBus) dispatch(group, eventType string, handler eventbus.HandlerFunc, msg redis.XMessage) {
	ctx := b.ctx
	defer func() {
		if err := b.client.XAck(ctx, b.stream, group, msg.ID).Err(); err != nil {
			b.logger.Error("failed to acknowledge message", "error", err, "msg_id", msg.ID)
		}
	}()

	raw, ok := msg.Values["event"].(string)
	if !ok {
		return
	}
	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		b.logger.Error("failed to unmarshal envelope", "error", err)
		b.pushToDLQ(ctx, msg.Values)
		return
	}
	if env.Type != eventType {
		return
	}

	constructor, ok := b.typeFactories[env.Type]
	if !ok {
		b.logger.Error("unknown event type", "event_type", env.Type)
		b.pushToDLQ(ctx, msg.Values)
		return
	}
	evt := constructor()
	if err := json.Unmarshal(env.Payload, evt); err != nil {
		b.logger.Error("failed to unmarshal payload", "error", err, "event_type", env.Type)
		b.pushToDLQ(ctx, msg.Values)
		return
	}

	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("handler panic recovered", "panic", r, "event_type", env.Type)
			b.pushToDLQ(ctx, msg.Values)
		}
	}()
	if err := handler(ctx, evt); err != nil {
		b.logger.Error("handler error", "error", err, "event_type", env.Type)
		b.pushToDLQ(ctx, msg.Values)
	}
}

// DLQStream returns the name of the dead letter stream.
func (b *RedisEventBus) DLQStream() string {
	return b.stream + "-DLQ"
}

// pushToDLQ pushes the raw event to the dead letter stream for inspection or reprocessing.
func (b *RedisEventBus) pushToDLQ(ctx context.Context, values map[string]any) {
	dlqStream := b.DLQStream()
	if err := b.client.XAdd(ctx, &redis.XAddArgs{
		Stream: dlqStream,
		Values: values,
	}).Err(); err != nil {
		b.logger.Error("failed to push to DLQ", "error", err, "stream", dlqStream)
		return
	}
	b.logger.Warn("event pushed to DLQ", "stream", dlqStream)
}

// Close stops the consumers and closes the connection.
func (b *RedisEventBus) Close() error {
	b.cancel()
	b.wg.Wait()
	return b.client.Close()
}

var _ eventbus.Bus = (*RedisEventBus)(nil)
