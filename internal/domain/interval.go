package domain

import "time"

// StayInterval is a half-open date range [CheckIn, CheckOut). Both bounds are
// midnight-UTC dates; a one-night stay has CheckOut = CheckIn + 24h.
type StayInterval struct {
	CheckIn  time.Time
	CheckOut time.Time
}

// NewStayInterval truncates both bounds to dates and validates the range.
func NewStayInterval(checkIn, checkOut time.Time) (StayInterval, error) {
	s := StayInterval{CheckIn: DateOf(checkIn), CheckOut: DateOf(checkOut)}
	if !s.CheckOut.After(s.CheckIn) {
		return StayInterval{}, ErrInvalidRange
	}
	return s, nil
}

// DateOf drops the time-of-day component, keeping a midnight-UTC date.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (s StayInterval) Nights() int {
	return int(s.CheckOut.Sub(s.CheckIn) / (24 * time.Hour))
}

// Overlaps reports whether two half-open ranges share at least one night.
func (s StayInterval) Overlaps(o StayInterval) bool {
	return s.CheckIn.Before(o.CheckOut) && o.CheckIn.Before(s.CheckOut)
}

// Covers reports whether date (a midnight-UTC day) falls inside the stay.
func (s StayInterval) Covers(date time.Time) bool {
	return !date.Before(s.CheckIn) && date.Before(s.CheckOut)
}

// Dates returns each night of the stay, checkout day excluded.
func (s StayInterval) Dates() []time.Time {
	out := make([]time.Time, 0, s.Nights())
	for d := s.CheckIn; d.Before(s.CheckOut); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}

// Shift moves the whole interval by the given number of days.
func (s StayInterval) Shift(days int) StayInterval {
	return StayInterval{CheckIn: s.CheckIn.AddDate(0, 0, days), CheckOut: s.CheckOut.AddDate(0, 0, days)}
}
