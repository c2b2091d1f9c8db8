package notify

import (
	"context"
	"time"

	"eventcheckin/internal/attendance"
	"eventcheckin/internal/metrics"
	"eventcheckin/internal/queue"
)

// Queue message types.
const (
	TypeRegistered = "participant.registered"
	TypeConfirmed  = "activity.confirmed"
)

// Registered is queued when a participant is added by form or import.
type Registered struct {
	EventID       string         `json:"event_id"`
	EventName     string         `json:"event_name"`
	StartDay      attendance.Day `json:"start_date"`
	EndDay        attendance.Day `json:"end_date"`
	ParticipantID string         `json:"participant_id"`
	Name          string         `json:"name"`
	Email         string         `json:"email"`
	Secret        string         `json:"secret"`
}

// Confirmed is queued after a check-in, lunch or kit confirm commits.
type Confirmed struct {
	EventName string          `json:"event_name"`
	Name      string          `json:"name"`
	Email     string          `json:"email"`
	Kind      attendance.Kind `json:"kind"`
	Day       attendance.Day  `json:"date"`
	At        time.Time       `json:"at"`
}

// Publisher turns domain notices into queue messages for the worker.
type Publisher struct {
	q queue.Queue
}

var _ attendance.Notifier = (*Publisher)(nil)

func NewPublisher(q queue.Queue) *Publisher {
	return &Publisher{q: q}
}

func (p *Publisher) ParticipantRegistered(ctx context.Context, evt attendance.Event, pt attendance.Participant) error {
	return p.publish(ctx, TypeRegistered, Registered{
		EventID:       evt.ID,
		EventName:     evt.Name,
		StartDay:      evt.StartDay,
		EndDay:        evt.EndDay,
		ParticipantID: pt.ID,
		Name:          pt.Name,
		Email:         pt.Email,
		Secret:        pt.Secret,
	})
}

func (p *Publisher) ActivityConfirmed(ctx context.Context, evt attendance.Event, pt attendance.Participant, a attendance.DailyActivity, kind attendance.Kind) error {
	return p.publish(ctx, TypeConfirmed, Confirmed{
		EventName: evt.Name,
		Name:      pt.Name,
		Email:     pt.Email,
		Kind:      kind,
		Day:       a.Day,
		At:        a.UpdatedAt,
	})
}

func (p *Publisher) publish(ctx context.Context, typ string, payload any) error {
	msg, err := queue.NewMessage(typ, payload)
	if err == nil {
		err = p.q.Publish(ctx, msg)
	}
	if err != nil {
		metrics.Notifications.WithLabelValues(typ, "publish_failed").Inc()
		return err
	}
	metrics.Notifications.WithLabelValues(typ, "queued").Inc()
	return nil
}
