package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"time"

	"eventcheckin/internal/attendance"
)

// Header is the column order of the participant export.
var Header = []string{
	"Name", "Email", "Phone", "College", "Registration Date", "QR Code",
	"Check-in Status", "Lunch Collected", "Kit Collected", "Last Check-in Date",
}

// Filter selects participants by what they did on any event day. Set flags
// combine with AND; All disables filtering.
type Filter struct {
	All       bool
	CheckedIn bool
	Lunch     bool
	Kit       bool
}

// Match reports whether p passes the filter.
func (f Filter) Match(p attendance.Participant) bool {
	if f.All {
		return true
	}
	s := summarize(p)
	return (!f.CheckedIn || s.checkedIn) && (!f.Lunch || s.lunch) && (!f.Kit || s.kit)
}

type summary struct {
	checkedIn, lunch, kit bool
	lastCheckIn           attendance.Day
}

func summarize(p attendance.Participant) summary {
	var s summary
	for _, a := range p.Activities {
		s.lunch = s.lunch || a.GotLunch
		s.kit = s.kit || a.GotKit
		if a.CheckedIn {
			s.checkedIn = true
			if a.Day.After(s.lastCheckIn) {
				s.lastCheckIn = a.Day
			}
		}
	}
	return s
}

// Apply returns the participants that pass the filter, in input order.
func (f Filter) Apply(ps []attendance.Participant) []attendance.Participant {
	out := make([]attendance.Participant, 0, len(ps))
	for _, p := range ps {
		if f.Match(p) {
			out = append(out, p)
		}
	}
	return out
}

// WriteCSV writes the header and one row per participant. Registration times
// are rendered in loc.
func WriteCSV(w io.Writer, ps []attendance.Participant, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, p := range ps {
		s := summarize(p)
		last := "N/A"
		if !s.lastCheckIn.IsZero() {
			last = s.lastCheckIn.String()
		}
		rec := []string{
			p.Name,
			p.Email,
			p.Phone,
			p.College,
			p.RegisteredAt.In(loc).Format("2006-01-02 15:04:05"),
			p.Secret,
			yesNo(s.checkedIn),
			yesNo(s.lunch),
			yesNo(s.kit),
			last,
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row for %s: %w", p.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

var unsafeName = regexp.MustCompile(`[^a-zA-Z0-9]`)

// FileName builds the download name, e.g. Hack_Days-participants-2024-03-01.csv.
func FileName(evt attendance.Event, today attendance.Day) string {
	return fmt.Sprintf("%s-participants-%s.csv", unsafeName.ReplaceAllString(evt.Name, "_"), today)
}
