package events

import (
	"context"
	"log/slog"
	"sync"
)

// InMemoryEmitter is a simple Emitter that dispatches events to handlers
// registered in process. Cache invalidation is best-effort: a failing
// handler is logged and the remaining handlers still receive the event.
type InMemoryEmitter struct {
	handlers []Handler
	mu       sync.RWMutex
	logger   *slog.Logger
}

// NewInMemoryEmitter creates an emitter with no handlers registered.
func NewInMemoryEmitter(logger *slog.Logger) *InMemoryEmitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &InMemoryEmitter{
		logger: logger.With(slog.String("component", "invalidation_emitter")),
	}
}

var _ Emitter = (*InMemoryEmitter)(nil)

// RegisterHandler adds a handler to receive future events.
func (e *InMemoryEmitter) RegisterHandler(handler Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers = append(e.handlers, handler)
	e.logger.Debug("registered invalidation handler",
		slog.Int("handler_count", len(e.handlers)))
}

// Emit implements Emitter. Every handler sees the event even when an
// earlier one fails; the first error is returned.
func (e *InMemoryEmitter) Emit(ctx context.Context, event *InvalidationEvent) error {
	e.mu.RLock()
	handlers := make([]Handler, len(e.handlers))
	copy(handlers, e.handlers)
	e.mu.RUnlock()

	if len(handlers) == 0 {
		e.logger.Debug("no handlers registered for invalidation event",
			slog.String("scope", event.Scope))
		return nil
	}

	var firstErr error
	for _, handler := range handlers {
		if err := handler.HandleInvalidation(ctx, event); err != nil {
			e.logger.Error("invalidation handler failed",
				slog.String("scope", event.Scope),
				slog.String("event_id", event.ID.String()),
				slog.String("error", err.Error()))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
