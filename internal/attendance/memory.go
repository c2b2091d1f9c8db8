package attendance

import (
	"context"
	"sort"
	"sync"
	"time"
)

// InMemory is a map-backed Store for dev runs and tests. Each method holds the
// mutex for its whole read-validate-write, which gives the same per-key
// atomicity the SQL repository gets from conditional statements.
type InMemory struct {
	mu           sync.Mutex
	events       map[string]Event
	participants map[string]Participant
	emails       map[string]string // eventID|email -> participant id
	phones       map[string]string // eventID|phone_key -> participant id
	secrets      map[string]string // secret -> participant id
	activities   map[activityKey]DailyActivity
}

type activityKey struct {
	participantID string
	day           Day
}

// NewInMemory creates an empty store.
func NewInMemory() *InMemory {
	return &InMemory{
		events:       make(map[string]Event),
		participants: make(map[string]Participant),
		emails:       make(map[string]string),
		phones:       make(map[string]string),
		secrets:      make(map[string]string),
		activities:   make(map[activityKey]DailyActivity),
	}
}

var _ Store = (*InMemory)(nil)

func (m *InMemory) Ping(ctx context.Context) error { return ctx.Err() }

func (m *InMemory) CreateEvent(ctx context.Context, evt Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[evt.ID]; ok {
		return reject(ErrConflict, "event %s already exists", evt.ID)
	}
	evt.Palette = append(Palette(nil), evt.Palette...)
	m.events[evt.ID] = evt
	return nil
}

func (m *InMemory) GetEvent(ctx context.Context, id string) (Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	evt, ok := m.events[id]
	if !ok {
		return Event{}, reject(ErrNotFound, "event not found")
	}
	return evt, nil
}

func (m *InMemory) ListEventsByOrganizer(ctx context.Context, organizerID string) ([]Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Event{}
	for _, evt := range m.events {
		if evt.OrganizerID == organizerID {
			out = append(out, evt)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *InMemory) CreateParticipant(ctx context.Context, p Participant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	emailKey := p.EventID + "|" + NormalizeEmail(p.Email)
	phoneKey := p.EventID + "|" + NormalizePhone(p.Phone)
	_, emailTaken := m.emails[emailKey]
	_, phoneTaken := m.phones[phoneKey]
	_, secretTaken := m.secrets[p.Secret]
	_, idTaken := m.participants[p.ID]
	if emailTaken || phoneTaken || secretTaken || idTaken {
		return reject(ErrConflict, "phone or email already registered for this event")
	}
	p.Activities = nil
	m.participants[p.ID] = p
	m.emails[emailKey] = p.ID
	m.phones[phoneKey] = p.ID
	m.secrets[p.Secret] = p.ID
	return nil
}

func (m *InMemory) GetParticipant(ctx context.Context, id string) (Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.participants[id]
	if !ok {
		return Participant{}, reject(ErrNotFound, "participant not found")
	}
	return m.withActivities(p), nil
}

func (m *InMemory) ParticipantBySecret(ctx context.Context, eventID, secret string) (Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.secrets[secret]
	if !ok || m.participants[id].EventID != eventID {
		return Participant{}, reject(ErrNotFound, "participant not found")
	}
	return m.withActivities(m.participants[id]), nil
}

func (m *InMemory) ListParticipants(ctx context.Context, eventID string) ([]Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Participant{}
	for _, p := range m.participants {
		if p.EventID == eventID {
			out = append(out, m.withActivities(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RegisteredAt.Equal(out[j].RegisteredAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].RegisteredAt.After(out[j].RegisteredAt)
	})
	return out, nil
}

func (m *InMemory) ParticipantExists(ctx context.Context, eventID, email, phone string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, emailTaken := m.emails[eventID+"|"+NormalizeEmail(email)]
	_, phoneTaken := m.phones[eventID+"|"+NormalizePhone(phone)]
	return emailTaken || phoneTaken, nil
}

func (m *InMemory) CountParticipants(ctx context.Context, eventID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, p := range m.participants {
		if p.EventID == eventID {
			n++
		}
	}
	return n, nil
}

func (m *InMemory) FindDay(ctx context.Context, participantID string, day Day) (DailyActivity, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.activities[activityKey{participantID, day}]
	if !ok {
		return DailyActivity{ParticipantID: participantID, Day: day}, false, nil
	}
	return a, true, nil
}

func (m *InMemory) ApplyDay(ctx context.Context, participantID string, day Day, kind Kind, at time.Time) (DailyActivity, error) {
	if err := ctx.Err(); err != nil {
		return DailyActivity{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := activityKey{participantID, day}
	a, found := m.activities[key]
	if !found {
		a = DailyActivity{ParticipantID: participantID, Day: day}
	}
	switch kind {
	case KindCheckIn:
		if a.CheckedIn {
			return DailyActivity{}, classifyMiss(kind, day, a, found)
		}
		a.CheckedIn = true
	case KindLunch, KindKit:
		if !found || !a.CheckedIn || a.Done(kind) {
			return DailyActivity{}, classifyMiss(kind, day, a, found)
		}
		if kind == KindLunch {
			a.GotLunch = true
		} else {
			a.GotKit = true
		}
	default:
		return DailyActivity{}, invalid("unknown activity kind %q", kind)
	}
	a.UpdatedAt = at.UTC()
	m.activities[key] = a
	return a, nil
}

func (m *InMemory) ActivitiesForEvent(ctx context.Context, eventID string) ([]DailyActivity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []DailyActivity{}
	for key, a := range m.activities {
		if m.participants[key.participantID].EventID == eventID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Day.Compare(out[j].Day); c != 0 {
			return c < 0
		}
		return out[i].ParticipantID < out[j].ParticipantID
	})
	return out, nil
}

// withActivities attaches the participant's records in day order. Caller holds mu.
func (m *InMemory) withActivities(p Participant) Participant {
	p.Activities = []DailyActivity{}
	for key, a := range m.activities {
		if key.participantID == p.ID {
			p.Activities = append(p.Activities, a)
		}
	}
	sort.Slice(p.Activities, func(i, j int) bool { return p.Activities[i].Day.Before(p.Activities[j].Day) })
	return p
}
