package ports

import "context"

// EventPublisher is the outbound event port used by the outbox relay.
type EventPublisher interface {
	Publish(ctx context.Context, eventType, partitionKey string, payload []byte) error
}
