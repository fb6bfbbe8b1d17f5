package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// RelayChannel is the Redis channel every instance publishes and subscribes to.
	RelayChannel   = "vidshare:broadcast"
	publishTimeout = 5 * time.Second
)

// relayEnvelope is the message published to Redis for cross-instance broadcast.
type relayEnvelope struct {
	Origin string `json:"origin"`
	Data   string `json:"data"`
	At     int64  `json:"at"`
}

func encodeEnvelope(origin string, msg []byte, at time.Time) ([]byte, error) {
	return json.Marshal(relayEnvelope{Origin: origin, Data: string(msg), At: at.Unix()})
}

func decodeEnvelope(raw string) (relayEnvelope, error) {
	var env relayEnvelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return relayEnvelope{}, fmt.Errorf("decode relay envelope: %w", err)
	}
	return env, nil
}

// RedisRelay publishes broadcasts to Redis so that every instance, this one
// included, delivers them to its own connections exactly once.
type RedisRelay struct {
	client *redis.Client
	origin string
	logger *zap.Logger
}

// NewRedisRelay creates a relay on client.
func NewRedisRelay(client *redis.Client, logger *zap.Logger) *RedisRelay {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisRelay{client: client, origin: uuid.NewString(), logger: logger}
}

// Publish sends msg to RelayChannel.
func (r *RedisRelay) Publish(ctx context.Context, msg []byte) error {
	body, err := encodeEnvelope(r.origin, msg, time.Now())
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := r.client.Publish(ctx, RelayChannel, body).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Subscribe subscribes to RelayChannel and passes every payload to deliver from a
// background goroutine. It returns once the subscription is confirmed; the
// returned cancel func stops it.
func (r *RedisRelay) Subscribe(ctx context.Context, deliver func(msg []byte)) (cancel func(), err error) {
	ctx, cancelCtx := context.WithCancel(ctx)
	pubsub := r.client.Subscribe(ctx, RelayChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		cancelCtx()
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", RelayChannel, err)
	}
	r.logger.Info("redis relay subscribed", zap.String("channel", RelayChannel), zap.String("origin", r.origin))

	ch := pubsub.Channel()
	go func() {
		defer pubsub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				env, err := decodeEnvelope(msg.Payload)
				if err != nil {
					r.logger.Warn("dropping relay message", zap.Error(err))
					continue
				}
				deliver([]byte(env.Data))
			}
		}
	}()
	return cancelCtx, nil
}
