package schedule

import (
	"fmt"
	"sort"
	"time"
)

// defaultSlotLabels is the clinic's fixed slot grid: hourly from 09:00 to
// 18:00 with the 02:00 PM lunch hour left out.
var defaultSlotLabels = []string{
	"09:00 AM",
	"10:00 AM",
	"11:00 AM",
	"12:00 PM",
	"01:00 PM",
	"03:00 PM",
	"04:00 PM",
	"05:00 PM",
	"06:00 PM",
}

// defaultBookableWeekdays are the days the clinic takes appointments.
var defaultBookableWeekdays = []time.Weekday{
	time.Monday,
	time.Tuesday,
	time.Wednesday,
	time.Saturday,
}

// Catalog is the immutable ordered list of bookable time-of-day slots plus
// the set of bookable weekdays. Labels are held in canonical form, unique
// and sorted by time-of-day.
type Catalog struct {
	slots    []string
	minutes  map[string]int
	weekdays map[time.Weekday]bool
}

// CanonicalLabel normalizes and re-renders a slot label into the catalog's
// canonical zero-padded form ("9:00 a.m." -> "09:00 AM"). Labels that do not
// parse as a 12-hour wall-clock time yield a *ValidationError.
func CanonicalLabel(label string) (string, error) {
	tod, err := time.Parse(labelParseLayout, NormalizeLabel(label))
	if err != nil {
		return "", &ValidationError{Field: "label", Msg: fmt.Sprintf("%q is not a slot label", label)}
	}
	return tod.Format(labelLayout), nil
}

// NewCatalog builds a catalog from slot labels and bookable weekdays.
// Labels are canonicalized and sorted by time-of-day; duplicates are
// rejected.
func NewCatalog(labels []string, weekdays []time.Weekday) (*Catalog, error) {
	if len(labels) == 0 {
		return nil, &ValidationError{Field: "labels", Msg: "empty slot catalog"}
	}
	c := &Catalog{
		minutes:  make(map[string]int, len(labels)),
		weekdays: make(map[time.Weekday]bool, len(weekdays)),
	}
	for _, label := range labels {
		canonical, err := CanonicalLabel(label)
		if err != nil {
			return nil, err
		}
		tod, _ := time.Parse(labelLayout, canonical)
		if _, dup := c.minutes[canonical]; dup {
			return nil, &ValidationError{Field: "labels", Msg: fmt.Sprintf("duplicate slot %q", canonical)}
		}
		c.minutes[canonical] = tod.Hour()*60 + tod.Minute()
		c.slots = append(c.slots, canonical)
	}
	sort.Slice(c.slots, func(i, j int) bool {
		return c.minutes[c.slots[i]] < c.minutes[c.slots[j]]
	})
	for _, wd := range weekdays {
		c.weekdays[wd] = true
	}
	return c, nil
}

// DefaultCatalog returns the clinic's standard slot grid and weekday set.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(defaultSlotLabels, defaultBookableWeekdays)
	if err != nil {
		panic(err) // defaults are static and known-good
	}
	return c
}

// Slots returns the ordered slot labels. The returned slice is a copy.
func (c *Catalog) Slots() []string {
	out := make([]string, len(c.slots))
	copy(out, c.slots)
	return out
}

// Len returns the number of slots in the catalog.
func (c *Catalog) Len() int {
	return len(c.slots)
}

// Contains reports whether label names a catalog slot. The label is
// canonicalized before comparison.
func (c *Catalog) Contains(label string) bool {
	canonical, err := CanonicalLabel(label)
	if err != nil {
		return false
	}
	_, ok := c.minutes[canonical]
	return ok
}

// IsBookableWeekday reports whether the clinic takes appointments on the
// weekday d falls on.
func (c *Catalog) IsBookableWeekday(d Date) bool {
	if d.IsZero() {
		return false
	}
	return c.weekdays[d.Weekday()]
}
