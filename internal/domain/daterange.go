package domain

import "time"

// DateLayout is the ISO calendar date format used on the wire and in storage.
const DateLayout = "2006-01-02"

const day = 24 * time.Hour

// DateRange is a half-open stay [Start, End).
type DateRange struct {
	Start time.Time
	End   time.Time
}

// NewDateRange validates that end is strictly after start.
func NewDateRange(start, end time.Time) (DateRange, error) {
	if !end.After(start) {
		return DateRange{}, ErrInvalidRange
	}
	return DateRange{Start: start.UTC(), End: end.UTC()}, nil
}

// ParseDateRange parses two ISO dates into a validated range.
func ParseDateRange(start, end string) (DateRange, error) {
	s, err := ParseDate(start)
	if err != nil {
		return DateRange{}, err
	}
	e, err := ParseDate(end)
	if err != nil {
		return DateRange{}, err
	}
	return NewDateRange(s, e)
}

// ParseDate parses an ISO date as UTC midnight.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t, nil
}

// Nights is the number of days spanned, rounded up.
func (r DateRange) Nights() int {
	d := r.End.Sub(r.Start)
	if d <= 0 {
		return 0
	}
	n := int(d / day)
	if d%day != 0 {
		n++
	}
	return n
}

// Overlaps reports whether two half-open ranges share any instant.
func (r DateRange) Overlaps(o DateRange) bool {
	return r.Start.Before(o.End) && o.Start.Before(r.End)
}

func (r DateRange) StartDate() string { return r.Start.Format(DateLayout) }
func (r DateRange) EndDate() string   { return r.End.Format(DateLayout) }
