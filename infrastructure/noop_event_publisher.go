package infrastructure

import (
	"meritbot/domain/events"

	log "github.com/sirupsen/logrus"
)

// NoopEventPublisher discards events. Used when NATS is not configured and
// in tests.
type NoopEventPublisher struct{}

// NewNoopEventPublisher creates a publisher that drops everything.
func NewNoopEventPublisher() *NoopEventPublisher {
	return &NoopEventPublisher{}
}

// Publish logs and discards the event.
func (p *NoopEventPublisher) Publish(event events.Event) error {
	log.WithField("eventType", event.Type()).Debug("Discarding event (no-op publisher)")
	return nil
}
