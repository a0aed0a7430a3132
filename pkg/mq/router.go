package mq

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// TypedHandlerFunc handles the data of one event type. The full envelope is available via EventFromContext.
type TypedHandlerFunc func(ctx context.Context, data json.RawMessage) error

type eventKey struct{}

// EventFromContext returns the envelope being dispatched, if any.
func EventFromContext(ctx context.Context) (Event, bool) {
	evt, ok := ctx.Value(eventKey{}).(Event)
	return evt, ok
}

// Router dispatches envelopes to handlers by event type.
type Router struct {
	routes map[string]TypedHandlerFunc
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		routes: make(map[string]TypedHandlerFunc),
		logger: logger,
	}
}

func (r *Router) Register(eventType string, h TypedHandlerFunc) {
	r.routes[eventType] = h
}

// Types lists the registered event types, used as queue bindings.
func (r *Router) Types() []string {
	types := make([]string, 0, len(r.routes))
	for t := range r.routes {
		types = append(types, t)
	}
	return types
}

// Handle decodes an envelope and dispatches it. It satisfies MessageHandler.
func (r *Router) Handle(ctx context.Context, raw json.RawMessage) error {
	var evt Event
	if err := json.Unmarshal(raw, &evt); err != nil {
		return fmt.Errorf("failed to decode event envelope: %w", err)
	}

	h, ok := r.routes[evt.Type]
	if !ok {
		r.logger.Warn("No handler for event", zap.String("type", evt.Type), zap.String("event_id", evt.ID))
		return nil
	}

	return h(context.WithValue(ctx, eventKey{}, evt), evt.Data)
}
