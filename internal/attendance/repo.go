package attendance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"eventcheckin/internal/store"
)

// Repository persists events, participants and daily activities in SQL.
// Queries are written with ? placeholders and rebound for the driver in use,
// so the same repository serves Postgres (pgx) and SQLite.
type Repository struct {
	db *sqlx.DB
}

// NewRepository creates a repo.
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

var _ Store = (*Repository)(nil)

type eventRow struct {
	ID          string  `db:"id"`
	Name        string  `db:"name"`
	Description string  `db:"description"`
	StartDay    Day     `db:"start_day"`
	EndDay      Day     `db:"end_day"`
	Palette     Palette `db:"palette"`
	OrganizerID string  `db:"organizer_id"`
	CreatedAt   int64   `db:"created_at"`
}

func (r eventRow) event() Event {
	return Event{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		StartDay:    r.StartDay,
		EndDay:      r.EndDay,
		Palette:     r.Palette,
		OrganizerID: r.OrganizerID,
		CreatedAt:   fromMillis(r.CreatedAt),
	}
}

type participantRow struct {
	ID           string `db:"id"`
	EventID      string `db:"event_id"`
	Name         string `db:"name"`
	Email        string `db:"email"`
	Phone        string `db:"phone"`
	College      string `db:"college"`
	Secret       string `db:"secret"`
	RegisteredAt int64  `db:"registered_at"`
}

func (r participantRow) participant() Participant {
	return Participant{
		ID:           r.ID,
		EventID:      r.EventID,
		Name:         r.Name,
		Email:        r.Email,
		Phone:        r.Phone,
		College:      r.College,
		Secret:       r.Secret,
		RegisteredAt: fromMillis(r.RegisteredAt),
	}
}

type activityRow struct {
	ParticipantID string `db:"participant_id"`
	Day           Day    `db:"day"`
	CheckedIn     bool   `db:"checked_in"`
	GotLunch      bool   `db:"got_lunch"`
	GotKit        bool   `db:"got_kit"`
	UpdatedAt     int64  `db:"updated_at"`
}

func (r activityRow) activity() DailyActivity {
	return DailyActivity{
		ParticipantID: r.ParticipantID,
		Day:           r.Day,
		CheckedIn:     r.CheckedIn,
		GotLunch:      r.GotLunch,
		GotKit:        r.GotKit,
		UpdatedAt:     fromMillis(r.UpdatedAt),
	}
}

const (
	eventColumns       = `id, name, description, start_day, end_day, palette, organizer_id, created_at`
	participantColumns = `id, event_id, name, email, phone, college, secret, registered_at`
	activityColumns    = `participant_id, day, checked_in, got_lunch, got_kit, updated_at`
)

// Ping verifies the database is reachable.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// CreateEvent inserts a new event.
func (r *Repository) CreateEvent(ctx context.Context, evt Event) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO events (`+eventColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`), evt.ID, evt.Name, evt.Description, evt.StartDay, evt.EndDay, evt.Palette, evt.OrganizerID, toMillis(evt.CreatedAt))
	if err != nil {
		if store.IsUniqueViolation(err) {
			return reject(ErrConflict, "event %s already exists", evt.ID)
		}
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// GetEvent returns a single event by id.
func (r *Repository) GetEvent(ctx context.Context, id string) (Event, error) {
	var row eventRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind(`SELECT `+eventColumns+` FROM events WHERE id = ?`), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Event{}, reject(ErrNotFound, "event not found")
		}
		return Event{}, fmt.Errorf("get event: %w", err)
	}
	return row.event(), nil
}

// ListEventsByOrganizer returns an organizer's events, newest first.
func (r *Repository) ListEventsByOrganizer(ctx context.Context, organizerID string) ([]Event, error) {
	var rows []eventRow
	err := r.db.SelectContext(ctx, &rows, r.db.Rebind(`
		SELECT `+eventColumns+` FROM events WHERE organizer_id = ? ORDER BY created_at DESC
	`), organizerID)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	out := make([]Event, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.event())
	}
	return out, nil
}

// CreateParticipant inserts a participant; duplicate email, phone or secret yields ErrConflict.
func (r *Repository) CreateParticipant(ctx context.Context, p Participant) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO participants (`+participantColumns+`, phone_key)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), p.ID, p.EventID, p.Name, p.Email, p.Phone, p.College, p.Secret, toMillis(p.RegisteredAt), NormalizePhone(p.Phone))
	if err != nil {
		if store.IsUniqueViolation(err) {
			return reject(ErrConflict, "phone or email already registered for this event")
		}
		return fmt.Errorf("insert participant: %w", err)
	}
	return nil
}

// GetParticipant loads a participant and their activity records.
func (r *Repository) GetParticipant(ctx context.Context, id string) (Participant, error) {
	return r.oneParticipant(ctx, `SELECT `+participantColumns+` FROM participants WHERE id = ?`, id)
}

// ParticipantBySecret resolves a QR secret within one event.
func (r *Repository) ParticipantBySecret(ctx context.Context, eventID, secret string) (Participant, error) {
	return r.oneParticipant(ctx, `SELECT `+participantColumns+` FROM participants WHERE event_id = ? AND secret = ?`, eventID, secret)
}

func (r *Repository) oneParticipant(ctx context.Context, query string, args ...any) (Participant, error) {
	var row participantRow
	if err := r.db.GetContext(ctx, &row, r.db.Rebind(query), args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Participant{}, reject(ErrNotFound, "participant not found")
		}
		return Participant{}, fmt.Errorf("get participant: %w", err)
	}
	p := row.participant()
	var acts []activityRow
	err := r.db.SelectContext(ctx, &acts, r.db.Rebind(`
		SELECT `+activityColumns+` FROM daily_activities WHERE participant_id = ? ORDER BY day
	`), p.ID)
	if err != nil {
		return Participant{}, fmt.Errorf("list activities: %w", err)
	}
	p.Activities = make([]DailyActivity, 0, len(acts))
	for _, a := range acts {
		p.Activities = append(p.Activities, a.activity())
	}
	return p, nil
}

// ListParticipants returns an event's participants, newest registration first, with activities.
func (r *Repository) ListParticipants(ctx context.Context, eventID string) ([]Participant, error) {
	var rows []participantRow
	err := r.db.SelectContext(ctx, &rows, r.db.Rebind(`
		SELECT `+participantColumns+` FROM participants WHERE event_id = ? ORDER BY registered_at DESC, id
	`), eventID)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	acts, err := r.ActivitiesForEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	byParticipant := make(map[string][]DailyActivity, len(rows))
	for _, a := range acts {
		byParticipant[a.ParticipantID] = append(byParticipant[a.ParticipantID], a)
	}
	out := make([]Participant, 0, len(rows))
	for _, row := range rows {
		p := row.participant()
		p.Activities = byParticipant[p.ID]
		if p.Activities == nil {
			p.Activities = []DailyActivity{}
		}
		out = append(out, p)
	}
	return out, nil
}

// ParticipantExists reports whether the email (case-insensitive) or normalized phone is taken in the event.
func (r *Repository) ParticipantExists(ctx context.Context, eventID, email, phone string) (bool, error) {
	var n int
	err := r.db.GetContext(ctx, &n, r.db.Rebind(`
		SELECT COUNT(*) FROM participants
		WHERE event_id = ? AND (email = ? OR phone_key = ?)
	`), eventID, NormalizeEmail(email), NormalizePhone(phone))
	if err != nil {
		return false, fmt.Errorf("check participant: %w", err)
	}
	return n > 0, nil
}

// CountParticipants returns how many participants an event has.
func (r *Repository) CountParticipants(ctx context.Context, eventID string) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, r.db.Rebind(`SELECT COUNT(*) FROM participants WHERE event_id = ?`), eventID); err != nil {
		return 0, fmt.Errorf("count participants: %w", err)
	}
	return n, nil
}

// FindDay returns the activity record for (participant, day), if any.
func (r *Repository) FindDay(ctx context.Context, participantID string, day Day) (DailyActivity, bool, error) {
	var row activityRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind(`
		SELECT `+activityColumns+` FROM daily_activities WHERE participant_id = ? AND day = ?
	`), participantID, day)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return DailyActivity{ParticipantID: participantID, Day: day}, false, nil
		}
		return DailyActivity{}, false, fmt.Errorf("find day: %w", err)
	}
	return row.activity(), true, nil
}

// flagColumns maps collectible kinds to their column. Never interpolate client input.
var flagColumns = map[Kind]string{
	KindLunch: "got_lunch",
	KindKit:   "got_kit",
}

// ApplyDay performs the conditional write for kind in a single statement, so two
// concurrent confirms for the same key cannot both succeed.
func (r *Repository) ApplyDay(ctx context.Context, participantID string, day Day, kind Kind, at time.Time) (DailyActivity, error) {
	var (
		query string
		args  []any
	)
	switch kind {
	case KindCheckIn:
		query = `
			INSERT INTO daily_activities (` + activityColumns + `)
			VALUES (?, ?, TRUE, FALSE, FALSE, ?)
			ON CONFLICT (participant_id, day) DO UPDATE
			SET checked_in = TRUE, updated_at = excluded.updated_at
			WHERE daily_activities.checked_in = FALSE
			RETURNING ` + activityColumns
		args = []any{participantID, day, toMillis(at)}
	case KindLunch, KindKit:
		col := flagColumns[kind]
		query = `
			UPDATE daily_activities SET ` + col + ` = TRUE, updated_at = ?
			WHERE participant_id = ? AND day = ? AND checked_in = TRUE AND ` + col + ` = FALSE
			RETURNING ` + activityColumns
		args = []any{toMillis(at), participantID, day}
	default:
		return DailyActivity{}, invalid("unknown activity kind %q", kind)
	}

	var row activityRow
	err := r.db.QueryRowxContext(ctx, r.db.Rebind(query), args...).StructScan(&row)
	switch {
	case err == nil:
		return row.activity(), nil
	case errors.Is(err, sql.ErrNoRows):
		current, found, ferr := r.FindDay(ctx, participantID, day)
		if ferr != nil {
			return DailyActivity{}, ferr
		}
		return DailyActivity{}, classifyMiss(kind, day, current, found)
	case store.IsUniqueViolation(err):
		return DailyActivity{}, reject(ErrConflict, "concurrent write on %s lost", day)
	default:
		return DailyActivity{}, fmt.Errorf("apply %s: %w", kind, err)
	}
}

// ActivitiesForEvent returns every activity record of an event's participants.
func (r *Repository) ActivitiesForEvent(ctx context.Context, eventID string) ([]DailyActivity, error) {
	var rows []activityRow
	err := r.db.SelectContext(ctx, &rows, r.db.Rebind(`
		SELECT a.participant_id, a.day, a.checked_in, a.got_lunch, a.got_kit, a.updated_at
		FROM daily_activities a
		JOIN participants p ON p.id = a.participant_id
		WHERE p.event_id = ?
		ORDER BY a.day, a.participant_id
	`), eventID)
	if err != nil {
		return nil, fmt.Errorf("list event activities: %w", err)
	}
	out := make([]DailyActivity, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.activity())
	}
	return out, nil
}
