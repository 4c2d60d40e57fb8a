package audit

import "context"

// Store persists audit events. The postgres implementation writes to a
// transactional outbox relayed to Kafka; the memory implementation backs unit
// tests.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}
