package websocket

// EventPublisher defines the interface for publishing events to WebSocket clients
type EventPublisher interface {
	// Publish sends an event to all clients watching the specified profile
	Publish(profileID string, event Event)
}

// Ensure Hub implements EventPublisher
var _ EventPublisher = (*Hub)(nil)

// Publish implements EventPublisher by broadcasting the event to the profile
func (h *Hub) Publish(profileID string, event Event) {
	h.Broadcast(profileID, event)
}

// NoOpPublisher is a publisher that does nothing (for batch/cron runs, or
// when the dashboard's websocket surface is disabled).
type NoOpPublisher struct{}

// Publish does nothing
func (n *NoOpPublisher) Publish(profileID string, event Event) {}
