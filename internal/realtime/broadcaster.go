package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// Publisher forwards a message to every instance of the service (see RedisRelay).
type Publisher interface {
	Publish(ctx context.Context, msg []byte) error
}

// Result summarises one local fan-out. It is informational only.
type Result struct {
	Attempted int
	Delivered int
	Failed    int
}

// Broadcaster fans a message out to every connection in the Registry.
type Broadcaster struct {
	registry *Registry
	relay    Publisher
	metrics  *Metrics
	logger   *zap.Logger
}

// NewBroadcaster creates a broadcaster over reg. metrics may be nil.
func NewBroadcaster(reg *Registry, logger *zap.Logger, metrics *Metrics) *Broadcaster {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Broadcaster{registry: reg, metrics: metrics, logger: logger}
}

// SetRelay routes Publish through p so that every instance delivers the message.
// Call it during startup, before the broadcaster is shared.
func (b *Broadcaster) SetRelay(p Publisher) {
	b.relay = p
}

// Broadcast delivers msg to the connections registered at call time, in
// registration order. A connection whose Send fails is unregistered and closed;
// the remaining connections are still attempted.
func (b *Broadcaster) Broadcast(msg []byte) Result {
	conns := b.registry.Snapshot()
	res := Result{Attempted: len(conns)}
	for _, c := range conns {
		if err := c.Send(msg); err != nil {
			res.Failed++
			b.drop(c, err)
			continue
		}
		res.Delivered++
	}
	b.metrics.observeBroadcast(res)
	return res
}

func (b *Broadcaster) drop(c Conn, err error) {
	b.registry.Unregister(c.ID())
	_ = c.Close()
	b.logger.Warn("broadcast delivery failed, connection dropped",
		zap.String("conn_id", c.ID()), zap.Error(err))
}

// Publish delivers msg to all clients of all instances. Without a relay, or when
// the relay is unreachable, it falls back to a local Broadcast.
func (b *Broadcaster) Publish(ctx context.Context, msg []byte) {
	if b.relay != nil {
		err := b.relay.Publish(ctx, msg)
		if err == nil {
			return
		}
		b.metrics.relayError()
		b.logger.Warn("relay publish failed, delivering locally", zap.Error(err))
	}
	b.Broadcast(msg)
}

// Notify encodes ev as JSON and publishes it. Delivery is best effort; only an
// encoding error is returned.
func (b *Broadcaster) Notify(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", ev.Type, err)
	}
	b.Publish(ctx, data)
	return nil
}
