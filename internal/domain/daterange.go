package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// MaxRangeDays bounds the span of a single prediction request.
const MaxRangeDays = 365

// Date is a calendar day stored as UTC midnight. The zero value means "unset".
type Date struct {
	t time.Time
}

// NewDate builds a Date from its calendar parts.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar day of t as seen in t's own location.
func DateOf(t time.Time) Date {
	if t.IsZero() {
		return Date{}
	}
	y, m, d := t.Date()
	return NewDate(y, m, d)
}

// ParseDate reads a YYYY-MM-DD string. Blank or malformed input yields the
// zero Date, which range validation reports as a missing field.
func ParseDate(s string) Date {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}
	}
	return Date{t: t}
}

func (d Date) IsZero() bool { return d.t.IsZero() }

// Time returns the date as a UTC midnight.
func (d Date) Time() time.Time { return d.t }

func (d Date) Before(o Date) bool { return d.t.Before(o.t) }
func (d Date) After(o Date) bool { return d.t.After(o.t) }
func (d Date) Equal(o Date) bool { return d.t.Equal(o.t) }

// AddDays returns the date n calendar days later (earlier when n < 0).
func (d Date) AddDays(n int) Date { return Date{t: d.t.AddDate(0, 0, n)} }

// DaysUntil counts whole days from d to o.
func (d Date) DaysUntil(o Date) int {
	return int(o.t.Sub(d.t) / (24 * time.Hour))
}

// String formats the date as YYYY-MM-DD, or "" when unset.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date: %w", err)
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		// Some producers emit a full timestamp for a day.
		ts, tsErr := time.Parse("2006-01-02T15:04:05", s)
		if tsErr != nil {
			return fmt.Errorf("date %q: %w", s, err)
		}
		t = ts
	}
	*d = DateOf(t)
	return nil
}

// DateRange is a validated [Start, End] pair of calendar days.
type DateRange struct {
	Start Date `json:"start_date"`
	End   Date `json:"end_date"`
}

// Days returns the number of whole days from Start to End.
func (r DateRange) Days() int {
	return r.Start.DaysUntil(r.End)
}

// ValidateDateRange applies the request rules in order: both dates present,
// start strictly before end, end not after today, span within MaxRangeDays.
func ValidateDateRange(start, end, today Date) (DateRange, error) {
	switch {
	case start.IsZero():
		return DateRange{}, newValidationError(KindMissingField, "start_date", "is required")
	case end.IsZero():
		return DateRange{}, newValidationError(KindMissingField, "end_date", "is required")
	case !start.Before(end):
		return DateRange{}, newValidationError(KindOrderError, "start_date", "must be before end date (%s ≥ %s)", start, end)
	case end.After(today):
		return DateRange{}, newValidationError(KindFutureDate, "end_date", "%s is after today (%s)", end, today)
	}
	r := DateRange{Start: start, End: end}
	if days := r.Days(); days > MaxRangeDays {
		return DateRange{}, newValidationError(KindRangeTooLarge, "end_date", "range spans %d days, maximum is %d", days, MaxRangeDays)
	}
	return r, nil
}
