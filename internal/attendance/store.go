package attendance

import (
	"context"
	"time"
)

// EventStore persists events.
type EventStore interface {
	CreateEvent(ctx context.Context, evt Event) error
	GetEvent(ctx context.Context, id string) (Event, error)
	ListEventsByOrganizer(ctx context.Context, organizerID string) ([]Event, error)
}

// ParticipantStore persists participants. Email and normalized phone are unique per event;
// inserts that violate either return ErrConflict.
type ParticipantStore interface {
	CreateParticipant(ctx context.Context, p Participant) error
	GetParticipant(ctx context.Context, id string) (Participant, error)
	ParticipantBySecret(ctx context.Context, eventID, secret string) (Participant, error)
	ListParticipants(ctx context.Context, eventID string) ([]Participant, error)
	ParticipantExists(ctx context.Context, eventID, email, phone string) (bool, error)
	CountParticipants(ctx context.Context, eventID string) (int, error)
}

// ActivityStore owns the per-(participant, day) activity records.
//
// ApplyDay must be atomic per key: it sets the flag for kind only when the
// preconditions hold at write time and reports ErrAlreadyDone or
// ErrPrecondition otherwise. Check-in creates the record when absent.
type ActivityStore interface {
	FindDay(ctx context.Context, participantID string, day Day) (DailyActivity, bool, error)
	ApplyDay(ctx context.Context, participantID string, day Day, kind Kind, at time.Time) (DailyActivity, error)
	ActivitiesForEvent(ctx context.Context, eventID string) ([]DailyActivity, error)
}

// Store is everything the services need from persistence.
type Store interface {
	EventStore
	ParticipantStore
	ActivityStore
	Ping(ctx context.Context) error
}

// classifyMiss explains why a conditional write touched no row.
func classifyMiss(kind Kind, day Day, current DailyActivity, found bool) error {
	if kind == KindCheckIn {
		return reject(ErrAlreadyDone, "already checked in on %s", day)
	}
	if !found || !current.CheckedIn {
		return reject(ErrPrecondition, "check-in required before collecting %s", kind)
	}
	return reject(ErrAlreadyDone, "%s already collected on %s", kind, day)
}
