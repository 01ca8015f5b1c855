// Package schedule implements the clinic's slot availability engine:
// the fixed time-slot catalog, clinic-local timezone conversion, per-day
// occupancy derived from existing appointments, and the resolver that
// decides which (day, slot) pairs may be offered and booked.
package schedule

import (
	"fmt"
	"strings"
	"time"
)

// DefaultTimezone is the clinic's civil timezone. Slot labels are wall-clock
// times in this zone regardless of the caller's locale.
const DefaultTimezone = "America/Mexico_City"

// labelLayout is the 12-hour wall-clock format used for slot labels.
const labelLayout = "03:04 PM"

// labelParseLayout accepts an unpadded hour, so normalized backend labels
// like "9:00 AM" parse as well as the catalog's "09:00 AM". Rendering
// always uses labelLayout.
const labelParseLayout = "3:04 PM"

// ValidationError reports malformed input to the pure scheduling functions.
// It indicates a programmer error, not a user-facing rejection.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("schedule: invalid %s: %s", e.Field, e.Msg)
}

// Date is a civil calendar date with no time-of-day or timezone attached.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf extracts the civil date from t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses a date in ISO "2006-01-02" form.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, &ValidationError{Field: "date", Msg: err.Error()}
	}
	return DateOf(t), nil
}

// IsZero reports whether d is the zero date (no day selected).
func (d Date) IsZero() bool {
	return d == Date{}
}

func (d Date) String() string {
	return d.asTime().Format("2006-01-02")
}

// Weekday returns the day of the week d falls on.
func (d Date) Weekday() time.Weekday {
	return d.asTime().Weekday()
}

// Before reports whether d is strictly earlier than other.
func (d Date) Before(other Date) bool {
	return d.asTime().Before(other.asTime())
}

// After reports whether d is strictly later than other.
func (d Date) After(other Date) bool {
	return d.asTime().After(other.asTime())
}

// AddDays returns the date n days after d.
func (d Date) AddDays(n int) Date {
	return DateOf(d.asTime().AddDate(0, 0, n))
}

func (d Date) asTime() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// MarshalText renders d in ISO form so JSON payloads carry "2006-01-02"
// strings. The zero date renders empty.
func (d Date) MarshalText() ([]byte, error) {
	if d.IsZero() {
		return []byte(""), nil
	}
	return []byte(d.String()), nil
}

// UnmarshalText parses the ISO form; empty input yields the zero date.
func (d *Date) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// LocalStamp is an instant expressed in clinic-local terms: its civil date
// and its wall-clock slot label.
type LocalStamp struct {
	Date  Date
	Label string
}

// Clock converts between absolute UTC instants and clinic-local date/label
// pairs. The clinic timezone is fixed at construction.
type Clock struct {
	loc *time.Location
}

// NewClock loads the named timezone and returns a converter pinned to it.
func NewClock(timezone string) (*Clock, error) {
	if strings.TrimSpace(timezone) == "" {
		timezone = DefaultTimezone
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("schedule: load timezone %q: %w", timezone, err)
	}
	return &Clock{loc: loc}, nil
}

// MustClock is NewClock for known-good zone names; it panics on failure.
func MustClock(timezone string) *Clock {
	c, err := NewClock(timezone)
	if err != nil {
		panic(err)
	}
	return c
}

// Location returns the clinic's timezone.
func (c *Clock) Location() *time.Location {
	return c.loc
}

// ToClinicLocal converts an absolute instant to its clinic-local date and
// slot label.
func (c *Clock) ToClinicLocal(t time.Time) (LocalStamp, error) {
	if t.IsZero() {
		return LocalStamp{}, &ValidationError{Field: "instant", Msg: "zero time"}
	}
	local := t.In(c.loc)
	return LocalStamp{
		Date:  DateOf(local),
		Label: local.Format(labelLayout),
	}, nil
}

// FromClinicLocal converts a clinic-local date and slot label back to the
// absolute UTC instant. It inverts ToClinicLocal exactly, to the minute.
func (c *Clock) FromClinicLocal(date Date, label string) (time.Time, error) {
	if date.IsZero() {
		return time.Time{}, &ValidationError{Field: "date", Msg: "zero date"}
	}
	tod, err := time.Parse(labelParseLayout, NormalizeLabel(label))
	if err != nil {
		return time.Time{}, &ValidationError{Field: "label", Msg: fmt.Sprintf("%q is not a slot label", label)}
	}
	local := time.Date(date.Year, date.Month, date.Day, tod.Hour(), tod.Minute(), 0, 0, c.loc)
	return local.UTC(), nil
}

// NormalizeLabel canonicalizes a slot label so backend-provided and
// catalog-provided labels compare equal: periods stripped, whitespace
// collapsed, uppercased, and a single space before the AM/PM suffix.
func NormalizeLabel(label string) string {
	s := strings.ReplaceAll(label, ".", "")
	s = strings.Join(strings.Fields(s), " ")
	s = strings.ToUpper(s)
	for _, suffix := range []string{"AM", "PM"} {
		if strings.HasSuffix(s, suffix) && !strings.HasSuffix(s, " "+suffix) {
			s = strings.TrimSuffix(s, suffix) + " " + suffix
		}
	}
	return s
}
