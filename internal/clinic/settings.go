// Package clinic provides the clinic's scheduling settings: timezone, slot
// grid, bookable weekdays, and booking horizons. Settings live in Redis with
// a known-good default fallback, and feed the schedule engine's
// catalog/clock/resolver construction.
package clinic

import (
	"fmt"
	"time"

	"github.com/fisioagenda/scheduling-platform/internal/schedule"
)

// Settings is the clinic's scheduling configuration.
type Settings struct {
	// Timezone is the clinic's fixed civil timezone.
	Timezone string `json:"timezone"`
	// SlotLabels is the ordered slot grid in 12-hour wall-clock form.
	SlotLabels []string `json:"slot_labels"`
	// BookableWeekdays are English weekday names ("Monday").
	BookableWeekdays []string `json:"bookable_weekdays"`
	// PatientHorizonDays bounds patient self-scheduling.
	PatientHorizonDays int `json:"patient_horizon_days"`
	// AdminHorizonDays bounds staff scheduling and rescheduling.
	AdminHorizonDays int `json:"admin_horizon_days"`
}

// DefaultSettings returns the clinic's standard configuration.
func DefaultSettings() *Settings {
	return &Settings{
		Timezone: schedule.DefaultTimezone,
		SlotLabels: []string{
			"09:00 AM", "10:00 AM", "11:00 AM", "12:00 PM",
			"01:00 PM", "03:00 PM", "04:00 PM", "05:00 PM", "06:00 PM",
		},
		BookableWeekdays:   []string{"Monday", "Tuesday", "Wednesday", "Saturday"},
		PatientHorizonDays: 30,
		AdminHorizonDays:   90,
	}
}

var weekdayNames = map[string]time.Weekday{
	"Sunday":    time.Sunday,
	"Monday":    time.Monday,
	"Tuesday":   time.Tuesday,
	"Wednesday": time.Wednesday,
	"Thursday":  time.Thursday,
	"Friday":    time.Friday,
	"Saturday":  time.Saturday,
}

func (s *Settings) weekdays() ([]time.Weekday, error) {
	out := make([]time.Weekday, 0, len(s.BookableWeekdays))
	for _, name := range s.BookableWeekdays {
		wd, ok := weekdayNames[name]
		if !ok {
			return nil, fmt.Errorf("clinic: unknown weekday %q", name)
		}
		out = append(out, wd)
	}
	return out, nil
}

// Validate checks that the settings can build a working engine.
func (s *Settings) Validate() error {
	if _, err := s.Clock(); err != nil {
		return err
	}
	if _, err := s.Catalog(); err != nil {
		return err
	}
	if s.PatientHorizonDays <= 0 || s.AdminHorizonDays <= 0 {
		return fmt.Errorf("clinic: horizons must be positive (patient=%d admin=%d)",
			s.PatientHorizonDays, s.AdminHorizonDays)
	}
	return nil
}

// Clock builds the clinic-local time converter for these settings.
func (s *Settings) Clock() (*schedule.Clock, error) {
	return schedule.NewClock(s.Timezone)
}

// Catalog builds the slot catalog for these settings.
func (s *Settings) Catalog() (*schedule.Catalog, error) {
	weekdays, err := s.weekdays()
	if err != nil {
		return nil, err
	}
	return schedule.NewCatalog(s.SlotLabels, weekdays)
}
