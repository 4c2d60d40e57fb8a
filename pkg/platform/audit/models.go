package audit

import (
	"time"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryIssuance covers token issuance events. These are the ledger's
	// paper trail and require long retention.
	CategoryIssuance EventCategory = "issuance"

	// CategorySecurity covers events relevant to security monitoring:
	// rejected mints, failed auth on the mint endpoint, admin gate misses.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers events useful for debugging and operational
	// visibility: watch session lifecycle, poll outcomes. Short retention.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory `json:"category"`
	Timestamp time.Time     `json:"timestamp"`
	Action    string        `json:"action"`
	// TokenID is set for issuance events. Pointer so zero (a real token id)
	// is distinguishable from absent.
	TokenID *uint64 `json:"token_id,omitempty"`
	// Owner is the hex recipient address for issuance events.
	Owner  string `json:"owner,omitempty"`
	Reason string `json:"reason,omitempty"`
	// RequestID is the correlation id from the HTTP request context, when the
	// action originated from a request.
	RequestID string `json:"request_id,omitempty"`
	// ActorID identifies who triggered the action: the authenticated minter
	// subject, or "watcher" for automatic mints.
	ActorID string `json:"actor_id,omitempty"`
	// ClientIP and UserAgent describe the calling client for request-driven
	// events. Empty for watcher-driven events.
	ClientIP  string `json:"client_ip,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
}

// AuditEvent names an auditable action.
type AuditEvent string

const (
	// Registry events
	EventWhaleMinted  AuditEvent = "whale_minted"
	EventMintRejected AuditEvent = "mint_rejected"

	// Watcher events
	EventWatchStarted   AuditEvent = "watch_started"
	EventWatchStopped   AuditEvent = "watch_stopped"
	EventWatchCompleted AuditEvent = "watch_completed"
)

// eventCategories maps each audit event to its category.
var eventCategories = map[AuditEvent]EventCategory{
	EventWhaleMinted:    CategoryIssuance,
	EventMintRejected:   CategorySecurity,
	EventWatchStarted:   CategoryOperations,
	EventWatchStopped:   CategoryOperations,
	EventWatchCompleted: CategoryOperations,
}

// Category returns the category for an event, defaulting to operations for
// unknown actions so nothing is silently dropped.
func (e AuditEvent) Category() EventCategory {
	if c, ok := eventCategories[e]; ok {
		return c
	}
	return CategoryOperations
}
