package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const publishTimeout = 2 * time.Second

// envelope tags relayed events with the publishing process so a replica
// does not re-deliver its own events.
type envelope struct {
	Origin string `json:"origin"`
	Event  Event  `json:"event"`
}

// RedisRelay mirrors queue events over a Redis pub/sub channel so several
// API replicas can feed the same displays.
type RedisRelay struct {
	client  *redis.Client
	channel string
	origin  string
	log     zerolog.Logger
}

// NewRedisRelay connects to url and verifies the connection.
func NewRedisRelay(ctx context.Context, url, channel string, logger zerolog.Logger) (*RedisRelay, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisRelay{
		client:  client,
		channel: channel,
		origin:  uuid.NewString(),
		log:     logger.With().Str("component", "redis-relay").Logger(),
	}, nil
}

// Publish sends ev to the relay channel.
func (r *RedisRelay) Publish(ctx context.Context, ev Event) {
	payload, err := r.encode(ev)
	if err != nil {
		r.log.Error().Err(err).Msg("failed to marshal event")
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		r.log.Warn().Err(err).Str("type", string(ev.Type)).Msg("failed to relay event")
	}
}

// Forward delivers events published by other replicas to dst until ctx is
// cancelled.
func (r *RedisRelay) Forward(ctx context.Context, dst Publisher) {
	pubsub := r.client.Subscribe(ctx, r.channel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			r.handle(ctx, msg.Payload, dst)
		}
	}
}

func (r *RedisRelay) encode(ev Event) ([]byte, error) {
	return json.Marshal(envelope{Origin: r.origin, Event: ev})
}

// handle decodes one relay message and hands it to dst unless it is
// malformed or was published by this process. It reports whether the event
// was delivered.
func (r *RedisRelay) handle(ctx context.Context, payload string, dst Publisher) bool {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		r.log.Warn().Err(err).Msg("discarding malformed relay message")
		return false
	}
	if env.Origin == r.origin {
		return false
	}
	dst.Publish(ctx, env.Event)
	return true
}

// Close releases the Redis connection pool.
func (r *RedisRelay) Close() error {
	return r.client.Close()
}
