package metrics

import (
	"testing"

	"github.com/naripok/complete-coordinator/internal/assert"
)

func TestEventTypes(t *testing.T) {
	// Verify event type constants
	assert.Equal(t, EventType("shown"), EventShown, "EventShown")
	assert.Equal(t, EventType("accepted"), EventAccepted, "EventAccepted")
	assert.Equal(t, EventType("rejected"), EventRejected, "EventRejected")
	assert.Equal(t, EventType("ignored"), EventIgnored, "EventIgnored")
}

func TestCompletionInfo(t *testing.T) {
	info := CompletionInfo{
		ID: "test-id",
	}

	assert.Equal(t, "test-id", info.ID, "ID")
}

func TestEvent(t *testing.T) {
	event := Event{
		Type: EventAccepted,
		Info: CompletionInfo{
			ID: "event-id",
		},
	}

	assert.Equal(t, EventAccepted, event.Type, "Type")
	assert.Equal(t, "event-id", event.Info.ID, "Info.ID")
}
