package event

import (
	"context"

	"github.com/sac/membership/internal/domain/shared"
	"github.com/sac/membership/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// LogHandler writes every domain event to the log
type LogHandler struct {
	logger *zap.Logger
}

// NewLogHandler creates the handler
func NewLogHandler(l *zap.Logger) *LogHandler {
	return &LogHandler{logger: l}
}

// Handle logs the event with the context's run, mutation and trace fields
func (h *LogHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	logger.WithLogger(ctx, h.logger).Info("domain event",
		zap.String("event_type", event.EventType()),
		zap.String("event_id", event.EventID().String()),
		zap.String("aggregate_type", event.AggregateType()),
		zap.String("aggregate_id", event.AggregateID().String()),
	)
	return nil
}

// EventTypes subscribes to every event
func (h *LogHandler) EventTypes() []string {
	return nil
}
