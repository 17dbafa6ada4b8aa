package event

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/caresync/portal-api/internal/model"
	"github.com/caresync/portal-api/pkg/logger"
	"github.com/caresync/portal-api/pkg/messaging"
)

// envelope wraps a presence status with the publishing instance's
// identity so a relay never re-broadcasts its own messages.
type envelope struct {
	Origin string               `json:"origin"`
	Status model.PresenceStatus `json:"status"`
}

// Relay connects the in-process bus to a shared message broker so
// presence events reach subscribers on every server instance. Local
// publishes go to the bus immediately and to the broker best-effort;
// broker messages from other instances are fed into the local bus.
type Relay struct {
	bus     *Bus
	broker  messaging.Broker
	channel string
	origin  string
	logger  *logger.Logger
}

func NewRelay(bus *Bus, broker messaging.Broker, channel string, logger *logger.Logger) *Relay {
	return &Relay{
		bus:     bus,
		broker:  broker,
		channel: channel,
		origin:  uuid.NewString(),
		logger:  logger,
	}
}

const brokerPublishTimeout = 5 * time.Second

// Publish delivers status to local subscribers and forwards it to the
// broker, which owns serialization. The forward runs off the caller's
// goroutine so a slow broker never stalls the mutation path; a broker
// failure only costs cross-instance delivery.
func (r *Relay) Publish(status model.PresenceStatus) {
	r.bus.Publish(status)

	env := envelope{Origin: r.origin, Status: status}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), brokerPublishTimeout)
		defer cancel()
		if err := r.broker.Publish(ctx, r.channel, env); err != nil {
			r.logger.Error(err, "failed to forward presence event to broker")
		}
	}()
}

// Run consumes broker messages until ctx is cancelled, forwarding
// remote events into the local bus. Messages this instance published
// are dropped by origin.
func (r *Relay) Run(ctx context.Context) error {
	msgs, err := r.broker.Subscribe(ctx, r.channel)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case payload, ok := <-msgs:
			if !ok {
				return nil
			}
			var env envelope
			if err := json.Unmarshal(payload, &env); err != nil {
				r.logger.Error(err, "discarding malformed presence event")
				continue
			}
			if env.Origin == r.origin {
				continue
			}
			r.bus.Publish(env.Status)
		}
	}
}
