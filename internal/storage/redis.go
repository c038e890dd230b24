package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	applog "cdrive/internal/log"
)

const DefaultRedisPrefix = "cdrive:kv:"

// RedisStore keeps keys in Redis and broadcasts change events over Redis
// Pub/Sub, so every process sharing the server sees them.
type RedisStore struct {
	client  *redis.Client
	prefix  string
	channel string
}

// RedisOption customizes a RedisStore.
type RedisOption func(*RedisStore)

// WithRedisPrefix sets the key prefix (default DefaultRedisPrefix).
func WithRedisPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		s.prefix = prefix
		s.channel = prefix + "events"
	}
}

func NewRedisStore(client *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client, prefix: DefaultRedisPrefix, channel: DefaultRedisPrefix + "events"}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OpenRedis parses redisURL, checks connectivity and returns a ready store.
func OpenRedis(redisURL string, opts ...RedisOption) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewRedisStore(client, opts...), nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, s.prefix+key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	old, err := s.client.Get(ctx, s.prefix+key).Result()
	if err == nil && old == value {
		return nil
	}
	if err != nil && err != redis.Nil {
		return err
	}
	if err := s.client.Set(ctx, s.prefix+key, value, 0).Err(); err != nil {
		return err
	}
	s.publish(ctx, Event{Key: key, Value: value})
	return nil
}

func (s *RedisStore) Remove(ctx context.Context, key string) error {
	n, err := s.client.Del(ctx, s.prefix+key).Result()
	if err != nil {
		return err
	}
	if n > 0 {
		s.publish(ctx, Event{Key: key, Removed: true})
	}
	return nil
}

// publish is fire-and-forget; the write already succeeded.
func (s *RedisStore) publish(ctx context.Context, e Event) {
	data, _ := json.Marshal(e)
	if err := s.client.Publish(ctx, s.channel, data).Err(); err != nil {
		applog.Warn(nil, "storage.publish.fail", err, map[string]any{"key": e.Key, "channel": s.channel})
	}
}

func (s *RedisStore) Subscribe(ctx context.Context) (<-chan Event, error) {
	pubsub := s.client.Subscribe(ctx, s.channel)
	// Wait for subscription confirmation
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", s.channel, err)
	}

	out := make(chan Event, subscriberBuffer)
	go func() {
		defer func() {
			_ = pubsub.Close()
			close(out)
		}()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var e Event
				if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
					continue
				}
				select {
				case out <- e:
				default:
				}
			}
		}
	}()
	return out, nil
}

func (s *RedisStore) Close() error { return s.client.Close() }
