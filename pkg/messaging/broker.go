package messaging

import (
	"context"
)

// Broker defines the interface for message brokers used to bridge
// presence events between server instances.
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}
