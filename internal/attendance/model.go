package attendance

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Kind is the activity a scan targets.
type Kind string

const (
	KindCheckIn Kind = "checkin"
	KindLunch   Kind = "lunch"
	KindKit     Kind = "kit"
)

// Kinds lists every activity kind in state-machine order.
var Kinds = []Kind{KindCheckIn, KindLunch, KindKit}

// ParseKind validates a kind received from a client.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindCheckIn, KindLunch, KindKit:
		return k, nil
	}
	return "", invalid("unknown activity kind %q", s)
}

// Palette is the ordered list of rotating QR tokens for an event.
type Palette []string

func (p Palette) Value() (driver.Value, error) {
	b, err := json.Marshal([]string(p))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (p *Palette) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("scan palette: unsupported type %T", src)
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("scan palette: %w", err)
	}
	*p = out
	return nil
}

// Event is an organizer's multi-day event.
type Event struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	StartDay    Day       `json:"start_date"`
	EndDay      Day       `json:"end_date"`
	Palette     Palette   `json:"palette"`
	OrganizerID string    `json:"organizer_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// Active reports whether d is one of the event's days.
func (e Event) Active(d Day) bool { return d.Within(e.StartDay, e.EndDay) }

// Days returns every day of the event in order.
func (e Event) Days() []Day {
	var days []Day
	for d := e.StartDay; !d.After(e.EndDay); d = d.AddDays(1) {
		days = append(days, d)
	}
	return days
}

// Participant is someone registered for one event.
type Participant struct {
	ID           string          `json:"id"`
	EventID      string          `json:"event_id"`
	Name         string          `json:"name"`
	Email        string          `json:"email"`
	Phone        string          `json:"phone"`
	College      string          `json:"college"`
	Secret       string          `json:"qr_secret,omitempty"`
	RegisteredAt time.Time       `json:"registered_at"`
	Activities   []DailyActivity `json:"daily_activities"`
}

// Summary is the operator-facing view returned by a successful verify.
type Summary struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	College string `json:"college"`
}

func (p Participant) Summary() Summary {
	return Summary{ID: p.ID, Name: p.Name, Email: p.Email, Phone: p.Phone, College: p.College}
}

// DailyActivity tracks what one participant did on one event day.
// GotLunch or GotKit imply CheckedIn.
type DailyActivity struct {
	ParticipantID string    `json:"participant_id"`
	Day           Day       `json:"date"`
	CheckedIn     bool      `json:"checked_in"`
	GotLunch      bool      `json:"got_lunch"`
	GotKit        bool      `json:"got_kit"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Done reports whether the flag for kind is already set.
func (a DailyActivity) Done(kind Kind) bool {
	switch kind {
	case KindCheckIn:
		return a.CheckedIn
	case KindLunch:
		return a.GotLunch
	case KindKit:
		return a.GotKit
	}
	return false
}

var nonDigits = regexp.MustCompile(`\D`)

// NormalizeEmail lower-cases and trims an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizePhone strips everything but digits so formatting differences do not defeat dedup.
func NormalizePhone(phone string) string {
	return nonDigits.ReplaceAllString(phone, "")
}

func toMillis(t time.Time) int64 { return t.UTC().UnixMilli() }

func fromMillis(v int64) time.Time { return time.UnixMilli(v).UTC() }
