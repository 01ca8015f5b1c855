package schedule

// OccupiedSet is the set of catalog slot labels already taken on a day.
type OccupiedSet map[string]struct{}

// Contains reports whether the canonical form of label is in the set.
func (s OccupiedSet) Contains(label string) bool {
	canonical, err := CanonicalLabel(label)
	if err != nil {
		return false
	}
	_, ok := s[canonical]
	return ok
}

// OccupancyIndex derives which catalog slots are taken on a given day from
// a list of existing appointments.
type OccupancyIndex struct {
	catalog *Catalog
	clock   *Clock
}

// NewOccupancyIndex builds an index over the given catalog and clock.
func NewOccupancyIndex(catalog *Catalog, clock *Clock) *OccupancyIndex {
	return &OccupancyIndex{catalog: catalog, clock: clock}
}

// OccupiedSlots returns the set of catalog slots taken on date. Appointments
// are matched by clinic-local date; ones whose derived label is not a catalog
// entry are silently dropped so backend clock skew cannot break slot
// computation. Duplicate instants collapse by set construction. The input
// slice is never mutated.
func (ix *OccupancyIndex) OccupiedSlots(date Date, appointments []Appointment) OccupiedSet {
	occupied := make(OccupiedSet)
	if date.IsZero() {
		return occupied
	}
	for _, appt := range appointments {
		if !appt.Status.Occupies() {
			continue
		}
		stamp, err := ix.clock.ToClinicLocal(appt.ScheduledAt)
		if err != nil {
			continue
		}
		if stamp.Date != date {
			continue
		}
		if !ix.catalog.Contains(stamp.Label) {
			continue
		}
		occupied[stamp.Label] = struct{}{}
	}
	return occupied
}
