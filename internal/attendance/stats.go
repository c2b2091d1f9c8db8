package attendance

import "context"

// DayStats counts activity on one event day.
type DayStats struct {
	Day               Day `json:"date"`
	TotalParticipants int `json:"totalParticipants"`
	CheckedIn         int `json:"checkedIn"`
	LunchCollected    int `json:"lunchCollected"`
	KitCollected      int `json:"kitCollected"`
}

// DailyStats returns one entry per event day, including days with no activity.
// TotalParticipants counts participants holding a record for that day.
func (s *Service) DailyStats(ctx context.Context, eventID string) ([]DayStats, error) {
	evt, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	acts, err := s.store.ActivitiesForEvent(ctx, evt.ID)
	if err != nil {
		return nil, err
	}
	byDay := make(map[Day]*DayStats)
	out := make([]DayStats, 0)
	for _, d := range evt.Days() {
		out = append(out, DayStats{Day: d})
	}
	for i := range out {
		byDay[out[i].Day] = &out[i]
	}
	for _, a := range acts {
		st, ok := byDay[a.Day]
		if !ok {
			continue
		}
		st.TotalParticipants++
		if a.CheckedIn {
			st.CheckedIn++
		}
		if a.GotLunch {
			st.LunchCollected++
		}
		if a.GotKit {
			st.KitCollected++
		}
	}
	return out, nil
}
