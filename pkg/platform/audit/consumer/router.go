// Package consumer dispatches audit stream messages by event category.
// The whole stream lands on one topic; the relay keys each record by its
// category so downstream handling can diverge per category without extra
// topics.
package consumer

import (
	"context"
	"log/slog"

	"whaled/internal/platform/kafka"
	audit "whaled/pkg/platform/audit"
)

// CategoryHandler handles messages of one audit category.
type CategoryHandler interface {
	Handle(ctx context.Context, msg *kafka.Message) error
}

// Router dispatches messages to category-specific handlers. The record key
// carries the category, written by the outbox relay.
type Router struct {
	handlers map[audit.EventCategory]CategoryHandler
	fallback CategoryHandler
	logger   *slog.Logger
}

// NewRouter creates a category router with an optional fallback handler.
func NewRouter(logger *slog.Logger, fallback CategoryHandler) *Router {
	return &Router{
		handlers: make(map[audit.EventCategory]CategoryHandler),
		fallback: fallback,
		logger:   logger,
	}
}

// Register adds a handler for a category.
func (r *Router) Register(category audit.EventCategory, handler CategoryHandler) {
	r.handlers[category] = handler
}

// Handle routes the message to its category handler.
func (r *Router) Handle(ctx context.Context, msg *kafka.Message) error {
	handler, ok := r.handlers[audit.EventCategory(msg.Key)]
	if !ok {
		if r.fallback != nil {
			return r.fallback.Handle(ctx, msg)
		}
		r.logger.WarnContext(ctx, "no handler for audit category, skipping",
			"category", string(msg.Key),
		)
		return nil
	}
	return handler.Handle(ctx, msg)
}
