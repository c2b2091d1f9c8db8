package importer

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"eventcheckin/internal/attendance"
	"eventcheckin/internal/metrics"
)

// Store is the part of persistence the reconciler needs.
type Store interface {
	GetEvent(ctx context.Context, id string) (attendance.Event, error)
	ParticipantExists(ctx context.Context, eventID, email, phone string) (bool, error)
	CreateParticipant(ctx context.Context, p attendance.Participant) error
}

// Skipped is a row that was not inserted and why.
type Skipped struct {
	Row    Row    `json:"row"`
	Reason string `json:"reason"`
}

// Report summarises one import batch.
type Report struct {
	Processed  int       `json:"processed"`
	Inserted   int       `json:"inserted"`
	Duplicates []Skipped `json:"duplicates"`
	Invalid    []Skipped `json:"invalid"`
}

// Reconciler partitions import rows into inserted, duplicate and invalid.
// Each row is inserted on its own; a failed insert never rolls back earlier rows.
type Reconciler struct {
	store    Store
	notifier attendance.Notifier
	now      func() time.Time
}

// New creates a reconciler. notifier may be nil.
func New(store Store, notifier attendance.Notifier) *Reconciler {
	return &Reconciler{store: store, notifier: notifier, now: time.Now}
}

// Reconcile imports rows into the event.
func (r *Reconciler) Reconcile(ctx context.Context, eventID string, rows []Row) (Report, error) {
	evt, err := r.store.GetEvent(ctx, eventID)
	if err != nil {
		return Report{}, err
	}
	rep := Report{Processed: len(rows), Duplicates: []Skipped{}, Invalid: []Skipped{}}
	seenEmail := make(map[string]bool, len(rows))
	seenPhone := make(map[string]bool, len(rows))

	for _, row := range rows {
		in := attendance.NewParticipant{Name: row.Name, Email: row.Email, Phone: row.Phone, College: row.College}.Normalize()
		problems, err := in.Problems()
		if err != nil {
			return rep, err
		}
		if len(problems) > 0 {
			rep.Invalid = append(rep.Invalid, Skipped{Row: row, Reason: invalidReason(problems)})
			metrics.ImportRows.WithLabelValues("invalid").Inc()
			continue
		}

		phoneKey := attendance.NormalizePhone(in.Phone)
		if seenEmail[in.Email] || seenPhone[phoneKey] {
			rep.Duplicates = append(rep.Duplicates, Skipped{Row: row, Reason: "duplicate within file"})
			metrics.ImportRows.WithLabelValues("duplicate").Inc()
			continue
		}
		seenEmail[in.Email] = true
		seenPhone[phoneKey] = true

		exists, err := r.store.ParticipantExists(ctx, evt.ID, in.Email, in.Phone)
		if err != nil {
			return rep, err
		}
		if exists {
			rep.Duplicates = append(rep.Duplicates, Skipped{Row: row, Reason: "already registered"})
			metrics.ImportRows.WithLabelValues("duplicate").Inc()
			continue
		}

		p, err := r.insert(ctx, evt, in)
		if errors.Is(err, attendance.ErrConflict) {
			rep.Duplicates = append(rep.Duplicates, Skipped{Row: row, Reason: "already registered"})
			metrics.ImportRows.WithLabelValues("duplicate").Inc()
			continue
		}
		if err != nil {
			return rep, err
		}
		rep.Inserted++
		metrics.ImportRows.WithLabelValues("inserted").Inc()

		if r.notifier != nil {
			if nerr := r.notifier.ParticipantRegistered(ctx, evt, p); nerr != nil {
				log.Printf("import: notify %s failed: %v", p.Email, nerr)
			}
		}
	}
	log.Printf("import into %s: processed=%d inserted=%d duplicates=%d invalid=%d",
		evt.ID, rep.Processed, rep.Inserted, len(rep.Duplicates), len(rep.Invalid))
	return rep, nil
}

func (r *Reconciler) insert(ctx context.Context, evt attendance.Event, in attendance.NewParticipant) (attendance.Participant, error) {
	secret, err := attendance.NewSecret()
	if err != nil {
		return attendance.Participant{}, err
	}
	p := attendance.Participant{
		ID:           uuid.NewString(),
		EventID:      evt.ID,
		Name:         in.Name,
		Email:        in.Email,
		Phone:        in.Phone,
		College:      in.College,
		Secret:       secret,
		RegisteredAt: r.now().UTC(),
		Activities:   []attendance.DailyActivity{},
	}
	if err := r.store.CreateParticipant(ctx, p); err != nil {
		return attendance.Participant{}, err
	}
	return p, nil
}

func invalidReason(problems []attendance.FieldProblem) string {
	for _, p := range problems {
		if p.Tag == "required" {
			return "missing required fields"
		}
	}
	for _, p := range problems {
		if p.Tag == "phone" {
			return "invalid phone number"
		}
	}
	return "invalid email format"
}
