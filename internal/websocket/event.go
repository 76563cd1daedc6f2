package websocket

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType represents the type of event (created, updated, etc.)
type EventType string

const (
	EventTypeCreated      EventType = "created"
	EventTypeUpdated      EventType = "updated"
	EventTypeNeedsReview  EventType = "needs_review"
	EventTypeAcknowledged EventType = "acknowledged"
	EventTypeCompleted    EventType = "completed"
	EventTypeSynced       EventType = "synced"
)

// EntityType represents the type of entity the event is about
type EntityType string

const (
	EntityTypeTransaction   EntityType = "transaction"
	EntityTypeAlert         EntityType = "alert"
	EntityTypeBankStatement EntityType = "bank_statement"
	EntityTypeSubscription  EntityType = "subscription"
	EntityTypeProfile       EntityType = "profile"
)

// Event represents a WebSocket event message sent to clients
// Format: { type, entity, payload, timestamp }
type Event struct {
	Type      string      `json:"type"`      // Combined type e.g. "transaction.needs_review"
	Entity    EntityType  `json:"entity"`    // Entity type e.g. "transaction"
	Payload   interface{} `json:"payload"`   // Full entity data
	Timestamp time.Time   `json:"timestamp"` // Event timestamp
}

// NewEvent creates a new event with the given type, entity, and payload
func NewEvent(eventType EventType, entityType EntityType, payload interface{}) Event {
	return Event{
		Type:      fmt.Sprintf("%s.%s", entityType, eventType),
		Entity:    entityType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON serializes the event to JSON bytes
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// TransactionCreated creates a transaction.created event, fired for every
// newly-ingested transaction.
func TransactionCreated(payload interface{}) Event {
	return NewEvent(EventTypeCreated, EntityTypeTransaction, payload)
}

// TransactionNeedsReview creates a transaction.needs_review event, fired when
// categorization leaves a transaction below the auto-approve confidence
// threshold (spec.md §4.3) or dedup/reconciliation flags it ambiguous.
func TransactionNeedsReview(payload interface{}) Event {
	return NewEvent(EventTypeNeedsReview, EntityTypeTransaction, payload)
}

// TransactionUpdated creates a transaction.updated event, fired on a user
// correction (spec.md §4.7) or a reconciliation match.
func TransactionUpdated(payload interface{}) Event {
	return NewEvent(EventTypeUpdated, EntityTypeTransaction, payload)
}

// AlertCreated creates an alert.created event for any AlertKind (recurring
// upcoming charge, statistical anomaly, reconciliation complete).
func AlertCreated(payload interface{}) Event {
	return NewEvent(EventTypeCreated, EntityTypeAlert, payload)
}

// AlertAcknowledged creates an alert.acknowledged event.
func AlertAcknowledged(payload interface{}) Event {
	return NewEvent(EventTypeAcknowledged, EntityTypeAlert, payload)
}

// BankStatementCompleted creates a bank_statement.completed event, fired when
// a reconciliation run commits its four-bucket summary (spec.md §4.8).
func BankStatementCompleted(payload interface{}) Event {
	return NewEvent(EventTypeCompleted, EntityTypeBankStatement, payload)
}

// SubscriptionUpdated creates a subscription.updated event, fired when
// recurring-expense detection (spec.md §4.11) confirms or revises a
// subscription's cadence/amount.
func SubscriptionUpdated(payload interface{}) Event {
	return NewEvent(EventTypeUpdated, EntityTypeSubscription, payload)
}

// ProfileSynced creates a profile.synced event, fired when a sync run
// commits its SyncMetadataUpdate (spec.md §4.9).
func ProfileSynced(payload interface{}) Event {
	return NewEvent(EventTypeSynced, EntityTypeProfile, payload)
}
