package app

import (
	"context"
	"log/slog"

	"quiz-battle-arena/internal/domain"
)

// EventPublisher receives lifecycle events. The core never depends on its success.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
}

// Publishers fans an event out to every registered publisher.
type Publishers struct {
	sinks  []EventPublisher
	logger *slog.Logger
}

// NewPublishers registers sinks once at startup.
func NewPublishers(logger *slog.Logger, sinks ...EventPublisher) *Publishers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publishers{sinks: sinks, logger: logger}
}

// Publish delivers to every sink and logs failures instead of returning them.
func (p *Publishers) Publish(ctx context.Context, event domain.Event) error {
	if p == nil {
		return nil
	}
	for _, sink := range p.sinks {
		if err := sink.Publish(ctx, event); err != nil {
			p.logger.Warn("event publish failed", "event", event.Kind(), "error", err)
		}
	}
	return nil
}

// PublisherFunc adapts a function to EventPublisher.
type PublisherFunc func(ctx context.Context, event domain.Event) error

func (f PublisherFunc) Publish(ctx context.Context, event domain.Event) error {
	return f(ctx, event)
}
