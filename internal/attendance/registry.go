package attendance

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"eventcheckin/internal/colortoken"
)

// NewEvent is the organizer input for creating an event.
type NewEvent struct {
	Name        string   `json:"name" validate:"required"`
	Description string   `json:"description"`
	StartDay    Day      `json:"start_date"`
	EndDay      Day      `json:"end_date"`
	Palette     []string `json:"palette"`
}

// NewParticipant is a registration form or import row.
type NewParticipant struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone" validate:"required,phone"`
	College string `json:"college" validate:"required"`
}

// Normalize trims every field and lower-cases the email.
func (n NewParticipant) Normalize() NewParticipant {
	return NewParticipant{
		Name:    strings.TrimSpace(n.Name),
		Email:   NormalizeEmail(n.Email),
		Phone:   strings.TrimSpace(n.Phone),
		College: strings.TrimSpace(n.College),
	}
}

// Problems returns the failed validation rules of a normalized participant.
func (n NewParticipant) Problems() ([]FieldProblem, error) {
	return validateStruct(n)
}

// EventStats summarises registrations for the event detail view.
type EventStats struct {
	TotalParticipants     int `json:"total_participants"`
	CheckedInParticipants int `json:"checked_in_participants"`
}

// EventDetail is an event with its stats.
type EventDetail struct {
	Event
	Stats EventStats `json:"stats"`
}

// NewSecret returns a random QR secret: 16 bytes, hex encoded.
func NewSecret() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// CreateEvent validates and stores a new event owned by organizerID.
func (s *Service) CreateEvent(ctx context.Context, organizerID string, in NewEvent) (Event, error) {
	in.Name = strings.TrimSpace(in.Name)
	if problems, err := validateStruct(in); err != nil {
		return Event{}, err
	} else if len(problems) > 0 {
		return Event{}, invalid("%s", describeProblems(problems))
	}
	if in.StartDay.IsZero() || in.EndDay.IsZero() {
		return Event{}, invalid("start_date and end_date are required")
	}
	if in.EndDay.Before(in.StartDay) {
		return Event{}, invalid("end_date %s is before start_date %s", in.EndDay, in.StartDay)
	}
	palette, err := cleanPalette(in.Palette)
	if err != nil {
		return Event{}, err
	}
	evt := Event{
		ID:          uuid.NewString(),
		Name:        in.Name,
		Description: strings.TrimSpace(in.Description),
		StartDay:    in.StartDay,
		EndDay:      in.EndDay,
		Palette:     palette,
		OrganizerID: organizerID,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.store.CreateEvent(ctx, evt); err != nil {
		return Event{}, err
	}
	return evt, nil
}

func cleanPalette(in []string) (Palette, error) {
	if len(in) == 0 {
		return append(Palette(nil), colortoken.DefaultPalette...), nil
	}
	seen := make(map[string]bool, len(in))
	out := make(Palette, 0, len(in))
	for _, token := range in {
		token = strings.ToLower(strings.TrimSpace(token))
		if token == "" {
			return nil, invalid("palette tokens must not be blank")
		}
		if seen[token] {
			return nil, invalid("palette token %q repeated", token)
		}
		seen[token] = true
		out = append(out, token)
	}
	return out, nil
}

// OwnedEvent returns the event if organizerID owns it; other organizers get NotFound.
func (s *Service) OwnedEvent(ctx context.Context, organizerID, eventID string) (Event, error) {
	evt, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return Event{}, err
	}
	if evt.OrganizerID != organizerID {
		return Event{}, reject(ErrNotFound, "event not found")
	}
	return evt, nil
}

// ListEvents returns the organizer's events, newest first.
func (s *Service) ListEvents(ctx context.Context, organizerID string) ([]Event, error) {
	return s.store.ListEventsByOrganizer(ctx, organizerID)
}

// EventDetail returns the event with participant counts.
func (s *Service) EventDetail(ctx context.Context, organizerID, eventID string) (EventDetail, error) {
	evt, err := s.OwnedEvent(ctx, organizerID, eventID)
	if err != nil {
		return EventDetail{}, err
	}
	total, err := s.store.CountParticipants(ctx, evt.ID)
	if err != nil {
		return EventDetail{}, err
	}
	acts, err := s.store.ActivitiesForEvent(ctx, evt.ID)
	if err != nil {
		return EventDetail{}, err
	}
	checkedIn := make(map[string]bool)
	for _, a := range acts {
		if a.CheckedIn {
			checkedIn[a.ParticipantID] = true
		}
	}
	return EventDetail{Event: evt, Stats: EventStats{TotalParticipants: total, CheckedInParticipants: len(checkedIn)}}, nil
}

// RegisterParticipant validates, deduplicates and stores a participant, then
// asks the notifier to send their QR code.
func (s *Service) RegisterParticipant(ctx context.Context, eventID string, in NewParticipant) (Participant, error) {
	evt, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return Participant{}, err
	}
	in = in.Normalize()
	problems, err := in.Problems()
	if err != nil {
		return Participant{}, err
	}
	if len(problems) > 0 {
		return Participant{}, invalid("%s", describeProblems(problems))
	}
	exists, err := s.store.ParticipantExists(ctx, evt.ID, in.Email, in.Phone)
	if err != nil {
		return Participant{}, err
	}
	if exists {
		return Participant{}, reject(ErrConflict, "phone or email already registered for this event")
	}
	secret, err := NewSecret()
	if err != nil {
		return Participant{}, err
	}
	p := Participant{
		ID:           uuid.NewString(),
		EventID:      evt.ID,
		Name:         in.Name,
		Email:        in.Email,
		Phone:        in.Phone,
		College:      in.College,
		Secret:       secret,
		RegisteredAt: s.now().UTC(),
		Activities:   []DailyActivity{},
	}
	if err := s.store.CreateParticipant(ctx, p); err != nil {
		return Participant{}, err
	}
	if nerr := s.notifier.ParticipantRegistered(ctx, evt, p); nerr != nil {
		log.Printf("notify registration for %s failed: %v", p.ID, nerr)
	}
	return p, nil
}

// ListParticipants returns the event's participants with their activity records.
func (s *Service) ListParticipants(ctx context.Context, eventID string) ([]Participant, error) {
	return s.store.ListParticipants(ctx, eventID)
}

// Participant returns one participant of the event.
func (s *Service) Participant(ctx context.Context, eventID, participantID string) (Participant, error) {
	p, err := s.store.GetParticipant(ctx, participantID)
	if err != nil {
		return Participant{}, err
	}
	if p.EventID != eventID {
		return Participant{}, reject(ErrNotFound, "participant not found")
	}
	return p, nil
}
