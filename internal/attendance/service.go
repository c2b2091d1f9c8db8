package attendance

import (
	"context"
	"log"
	"strings"
	"time"

	"eventcheckin/internal/colortoken"
	"eventcheckin/internal/metrics"
)

// Notifier is told about committed changes. Delivery is best effort: a failing
// notifier never undoes or fails the change that triggered it.
type Notifier interface {
	ParticipantRegistered(ctx context.Context, evt Event, p Participant) error
	ActivityConfirmed(ctx context.Context, evt Event, p Participant, a DailyActivity, kind Kind) error
}

type nopNotifier struct{}

func (nopNotifier) ParticipantRegistered(context.Context, Event, Participant) error { return nil }
func (nopNotifier) ActivityConfirmed(context.Context, Event, Participant, DailyActivity, Kind) error {
	return nil
}

// Service coordinates events, registrations and the scan state machine.
// It holds no participant state between calls; the store is the only shared resource.
type Service struct {
	store    Store
	notifier Notifier
	now      func() time.Time
	loc      *time.Location
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the wall clock used for color windows and "today".
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLocation sets the reference time zone used to truncate instants to days.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithNotifier sets the receiver of registration and confirmation notices.
func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

// NewService creates a service backed by a store.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{store: store, notifier: nopNotifier{}, now: time.Now, loc: time.UTC}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Today returns the current day in the reference location.
func (s *Service) Today() Day { return DayOf(s.now(), s.loc) }

// ScanRequest is what a scanning station reads from a QR code plus what it wants to do.
type ScanRequest struct {
	Secret string
	Color  string
	Day    Day // zero means today
	Kind   Kind
}

// Verification is the read-only result shown to the operator before confirming.
type Verification struct {
	Participant Summary       `json:"participant"`
	Day         Day           `json:"date"`
	Kind        Kind          `json:"kind"`
	Activity    DailyActivity `json:"activity"`
}

// ConfirmRequest commits one activity for a verified participant.
type ConfirmRequest struct {
	ParticipantID string
	Day           Day // zero means today
	Kind          Kind
	Color         string // optional; when set it is re-checked against the current window
}

// Verify checks a scan without mutating anything.
func (s *Service) Verify(ctx context.Context, eventID string, req ScanRequest) (v Verification, err error) {
	start := time.Now()
	defer func() { observe("verify", req.Kind, err, start) }()

	if strings.TrimSpace(req.Secret) == "" {
		return Verification{}, invalid("missing QR secret")
	}
	kind, err := ParseKind(string(req.Kind))
	if err != nil {
		return Verification{}, err
	}
	req.Kind = kind
	evt, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return Verification{}, err
	}
	day := s.resolveDay(req.Day)
	if !evt.Active(day) {
		return Verification{}, reject(ErrOutOfRange, "event is not active on %s", day)
	}
	p, err := s.store.ParticipantBySecret(ctx, evt.ID, req.Secret)
	if err != nil {
		return Verification{}, err
	}
	if err := s.checkColor(evt, req.Color); err != nil {
		return Verification{}, err
	}
	current, found, err := s.store.FindDay(ctx, p.ID, day)
	if err != nil {
		return Verification{}, err
	}
	if err := checkTransition(req.Kind, day, current, found); err != nil {
		return Verification{}, err
	}
	return Verification{Participant: p.Summary(), Day: day, Kind: req.Kind, Activity: current}, nil
}

// Confirm re-validates and applies the activity. The store performs the final
// precondition check and the write as one atomic step.
func (s *Service) Confirm(ctx context.Context, eventID string, req ConfirmRequest) (a DailyActivity, err error) {
	start := time.Now()
	defer func() { observe("confirm", req.Kind, err, start) }()

	if strings.TrimSpace(req.ParticipantID) == "" {
		return DailyActivity{}, invalid("missing participant id")
	}
	kind, err := ParseKind(string(req.Kind))
	if err != nil {
		return DailyActivity{}, err
	}
	req.Kind = kind
	evt, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return DailyActivity{}, err
	}
	day := s.resolveDay(req.Day)
	if !evt.Active(day) {
		return DailyActivity{}, reject(ErrOutOfRange, "event is not active on %s", day)
	}
	p, err := s.store.GetParticipant(ctx, req.ParticipantID)
	if err != nil {
		return DailyActivity{}, err
	}
	if p.EventID != evt.ID {
		return DailyActivity{}, reject(ErrNotFound, "participant not found")
	}
	if req.Color != "" {
		if err := s.checkColor(evt, req.Color); err != nil {
			return DailyActivity{}, err
		}
	}
	a, err = s.store.ApplyDay(ctx, p.ID, day, req.Kind, s.now())
	if err != nil {
		return DailyActivity{}, err
	}
	if nerr := s.notifier.ActivityConfirmed(ctx, evt, p, a, req.Kind); nerr != nil {
		log.Printf("notify %s confirmation for %s failed: %v", req.Kind, p.ID, nerr)
	}
	return a, nil
}

// CurrentColor returns the token valid right now for the event and when it expires.
func (s *Service) CurrentColor(ctx context.Context, eventID string) (string, time.Time, error) {
	evt, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return "", time.Time{}, err
	}
	now := s.now()
	return colortoken.Current(evt.Palette, now), colortoken.WindowEnd(now), nil
}

func (s *Service) resolveDay(d Day) Day {
	if d.IsZero() {
		return s.Today()
	}
	return d
}

// checkColor always derives the palette from the owning event.
func (s *Service) checkColor(evt Event, presented string) error {
	want := colortoken.Current(evt.Palette, s.now())
	if !strings.EqualFold(strings.TrimSpace(presented), want) {
		return ErrInvalidToken
	}
	return nil
}

// checkTransition applies the state machine rules to a record read outside a write.
func checkTransition(kind Kind, day Day, current DailyActivity, found bool) error {
	switch kind {
	case KindCheckIn:
		if found && current.CheckedIn {
			return classifyMiss(kind, day, current, found)
		}
	default:
		if !found || !current.CheckedIn || current.Done(kind) {
			return classifyMiss(kind, day, current, found)
		}
	}
	return nil
}

func observe(phase string, kind Kind, err error, start time.Time) {
	outcome := "ok"
	if err != nil {
		if r, ok := AsRejection(err); ok {
			outcome = string(r.Reason)
		} else {
			outcome = "error"
		}
	}
	label := string(kind)
	if _, perr := ParseKind(label); perr != nil {
		label = "unknown"
	}
	metrics.Scans.WithLabelValues(phase, label, outcome).Inc()
	metrics.ScanDuration.WithLabelValues(phase).Observe(time.Since(start).Seconds())
}
