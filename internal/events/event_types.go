package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/grievance-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventNotifyOfficer            EventType = "notify_officer"
	EventNotifyCitizen            EventType = "notify_citizen"
	EventScheduleVerificationCall EventType = "schedule_verification_call"
)

// TypeFor maps an outward intent to its event type. Audit writes are
// persisted with the ticket and never published.
func TypeFor(kind domain.IntentKind) (EventType, bool) {
	switch kind {
	case domain.IntentNotifyOfficer:
		return EventNotifyOfficer, true
	case domain.IntentNotifyCitizen:
		return EventNotifyCitizen, true
	case domain.IntentScheduleVerificationCall:
		return EventScheduleVerificationCall, true
	}
	return "", false
}

// Actor encapsulates actor metadata for an event.
type Actor struct {
	ID   string      `json:"id"`
	Role domain.Role `json:"role"`
}

// Event represents a committed side effect emitted by services.
type Event struct {
	ID         string        `json:"id"`
	Type       EventType     `json:"type"`
	TicketCode string        `json:"ticket_code"`
	Actor      Actor         `json:"actor"`
	Timestamp  time.Time     `json:"timestamp"`
	Intent     domain.Intent `json:"intent"`
}

// FromIntent wraps an intent. ok is false for intents that are not published.
func FromIntent(intent domain.Intent, actor domain.Actor, at time.Time) (Event, bool) {
	typ, ok := TypeFor(intent.Kind)
	if !ok {
		return Event{}, false
	}
	return Event{
		ID:         uuid.NewString(),
		Type:       typ,
		TicketCode: intent.TicketCode,
		Actor:      Actor{ID: actor.ID, Role: actor.Role},
		Timestamp:  at,
		Intent:     intent,
	}, true
}
