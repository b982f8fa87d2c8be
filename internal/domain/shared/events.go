package shared

import (
	"encoding/json"
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types published by the console after a confirmed change.
const (
	// Directory events
	EventUserBlocked       EventType = "directory.user_blocked"
	EventUserUnblocked     EventType = "directory.user_unblocked"
	EventInfluencerDeleted EventType = "directory.influencer_deleted"
	EventMutationFailed    EventType = "directory.mutation_failed"

	// Session events
	EventSignedIn       EventType = "session.signed_in"
	EventSignedOut      EventType = "session.signed_out"
	EventSessionExpired EventType = "session.expired"
	EventSessionGone    EventType = "session.gone" // id no longer in the store

	// Listing events
	EventListLoaded     EventType = "listing.loaded"
	EventListLoadFailed EventType = "listing.load_failed"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now(),
		AggregateId: aggregateID,
		Version:     1,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Directory Events
// ═══════════════════════════════════════════════════════════════════════════

// UserStatusChangedEvent is emitted after the backend confirmed a block or unblock.
type UserStatusChangedEvent struct {
	BaseEvent
	UserID    string `json:"user_id"`
	NewStatus string `json:"new_status"`
	Actor     string `json:"actor"` // session fingerprint of the admin
}

// Payload implements Event interface.
func (e UserStatusChangedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":    e.UserID,
		"new_status": e.NewStatus,
		"actor":      e.Actor,
	}
}

// NewUserStatusChangedEvent creates a new UserStatusChangedEvent. The event type
// follows the new status.
func NewUserStatusChangedEvent(userID, newStatus, actor string) UserStatusChangedEvent {
	eventType := EventUserUnblocked
	if newStatus == "blocked" {
		eventType = EventUserBlocked
	}
	return UserStatusChangedEvent{
		BaseEvent: NewBaseEvent(eventType, userID),
		UserID:    userID,
		NewStatus: newStatus,
		Actor:     actor,
	}
}

// InfluencerDeletedEvent is emitted after the backend confirmed a deletion.
type InfluencerDeletedEvent struct {
	BaseEvent
	InfluencerID string `json:"influencer_id"`
	Name         string `json:"name,omitempty"`
	Actor        string `json:"actor"`
}

// Payload implements Event interface.
func (e InfluencerDeletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"influencer_id": e.InfluencerID,
		"name":          e.Name,
		"actor":         e.Actor,
	}
}

// NewInfluencerDeletedEvent creates a new InfluencerDeletedEvent.
func NewInfluencerDeletedEvent(influencerID, name, actor string) InfluencerDeletedEvent {
	return InfluencerDeletedEvent{
		BaseEvent:    NewBaseEvent(EventInfluencerDeleted, influencerID),
		InfluencerID: influencerID,
		Name:         name,
		Actor:        actor,
	}
}

// MutationFailedEvent is emitted when the backend rejected a mutation.
type MutationFailedEvent struct {
	BaseEvent
	RecordID string `json:"record_id"`
	Action   string `json:"action"` // "block", "unblock", "delete"
	Reason   string `json:"reason"`
	Actor    string `json:"actor"`
}

// Payload implements Event interface.
func (e MutationFailedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"record_id": e.RecordID,
		"action":    e.Action,
		"reason":    e.Reason,
		"actor":     e.Actor,
	}
}

// NewMutationFailedEvent creates a new MutationFailedEvent.
func NewMutationFailedEvent(recordID, action, reason, actor string) MutationFailedEvent {
	return MutationFailedEvent{
		BaseEvent: NewBaseEvent(EventMutationFailed, recordID),
		RecordID:  recordID,
		Action:    action,
		Reason:    reason,
		Actor:     actor,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Session Events
// ═══════════════════════════════════════════════════════════════════════════

// SessionEvent covers sign-in, sign-out and expiry of an admin or influencer session.
type SessionEvent struct {
	BaseEvent
	SessionID   string `json:"session_id"`
	Role        string `json:"role,omitempty"`
	Fingerprint string `json:"fingerprint"`
}

// Payload implements Event interface.
func (e SessionEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"session_id":  e.SessionID,
		"role":        e.Role,
		"fingerprint": e.Fingerprint,
	}
}

// NewSessionEvent creates a new SessionEvent of the given type.
func NewSessionEvent(eventType EventType, sessionID, role, fingerprint string) SessionEvent {
	return SessionEvent{
		BaseEvent:   NewBaseEvent(eventType, sessionID),
		SessionID:   sessionID,
		Role:        role,
		Fingerprint: fingerprint,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Listing Events
// ═══════════════════════════════════════════════════════════════════════════

// ListLoadedEvent is emitted when a page owner finished a fetch.
type ListLoadedEvent struct {
	BaseEvent
	Kind    string        `json:"kind"` // "users" or "influencers"
	Count   int           `json:"count"`
	Elapsed time.Duration `json:"elapsed"`
	Error   string        `json:"error,omitempty"`
}

// Payload implements Event interface.
func (e ListLoadedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"kind":    e.Kind,
		"count":   e.Count,
		"elapsed": e.Elapsed.String(),
		"error":   e.Error,
	}
}

// NewListLoadedEvent creates a ListLoadedEvent, or a failed one when err is set.
func NewListLoadedEvent(kind string, count int, elapsed time.Duration, err error) ListLoadedEvent {
	eventType := EventListLoaded
	msg := ""
	if err != nil {
		eventType = EventListLoadFailed
		msg = err.Error()
	}
	return ListLoadedEvent{
		BaseEvent: NewBaseEvent(eventType, kind),
		Kind:      kind,
		Count:     count,
		Elapsed:   elapsed,
		Error:     msg,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Envelope (for serialization and transport)
// ═══════════════════════════════════════════════════════════════════════════

// EventEnvelope wraps an event for transport/storage.
type EventEnvelope struct {
	ID            string          `json:"id"`
	Type          EventType       `json:"type"`
	AggregateID   string          `json:"aggregate_id"`
	Timestamp     time.Time       `json:"timestamp"`
	Version       int             `json:"version"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}
