// Package metrics provides unified completion metrics tracking across providers.
package metrics

import (
	"context"
	"time"

	"github.com/naripok/complete-coordinator/internal/logger"
)

// EventType represents the type of metrics event
type EventType string

const (
	EventShown    EventType = "shown"    // Completion was displayed to user
	EventAccepted EventType = "accepted" // User accepted the completion
	EventRejected EventType = "rejected" // User explicitly rejected (typed over, pressed escape)
	EventIgnored  EventType = "ignored"  // Completion was dismissed without action (cursor moved, etc.)
)

// CompletionInfo holds metadata about a completion for metrics tracking
type CompletionInfo struct {
	ID      string    // Completion ID (the engine uses session id plus item word)
	ShownAt time.Time // When the completion was shown (for lifespan tracking)
}

// Event represents a metrics event with type and completion info
type Event struct {
	Type EventType
	Info CompletionInfo
}

// Sender is the interface that providers implement to send metrics to their backend.
// Implementations should handle unsupported event types gracefully (return early).
// The engine guarantees Info.ID is non-empty when SendMetric is called.
type Sender interface {
	SendMetric(ctx context.Context, event Event)
}

// LogSender is the default Sender: it writes each event through the
// package logger rather than to a remote backend.
type LogSender struct{}

func (LogSender) SendMetric(_ context.Context, event Event) {
	logger.Info("metric %s id=%s shown_at=%s", event.Type, event.Info.ID, event.Info.ShownAt.Format(time.RFC3339))
}
