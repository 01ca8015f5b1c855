package booking

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fisioagenda/scheduling-platform/internal/backend"
	"github.com/fisioagenda/scheduling-platform/internal/clinic"
	"github.com/fisioagenda/scheduling-platform/internal/schedule"
	"github.com/fisioagenda/scheduling-platform/internal/session"
	"github.com/fisioagenda/scheduling-platform/internal/treatment"
)

// mockAppointments records every call so tests can assert the gate
// short-circuits before any appointment-store traffic.
type mockAppointments struct {
	active      []schedule.Appointment
	listErr     error
	listCalls   int
	created     []backend.AppointmentDraft
	createErr   error
	updated     []string
	updateErr   error
	completed   []string
	completeRef string
}

func (m *mockAppointments) ListActive(context.Context) ([]schedule.Appointment, error) {
	m.listCalls++
	return m.active, m.listErr
}

func (m *mockAppointments) Create(_ context.Context, draft backend.AppointmentDraft) (*schedule.Appointment, error) {
	m.created = append(m.created, draft)
	if m.createErr != nil {
		return nil, m.createErr
	}
	return &schedule.Appointment{
		ID:                  "new-appt",
		TreatmentAccountRef: draft.TreatmentAccountRef,
		ScheduledAt:         draft.ScheduledAt,
		Status:              schedule.StatusPending,
		PaymentStatus:       schedule.PaymentUnpaid,
	}, nil
}

func (m *mockAppointments) UpdateSchedule(_ context.Context, id string, instant time.Time) (*schedule.Appointment, error) {
	m.updated = append(m.updated, id)
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	return &schedule.Appointment{ID: id, ScheduledAt: instant, Status: schedule.StatusScheduled}, nil
}

func (m *mockAppointments) MarkCompleted(_ context.Context, id, _ string) (*schedule.Appointment, error) {
	m.completed = append(m.completed, id)
	return &schedule.Appointment{
		ID:                  id,
		TreatmentAccountRef: m.completeRef,
		Status:              schedule.StatusCompleted,
	}, nil
}

type mockTreatments struct {
	offerings     []treatment.Offering
	offeringsErr  error
	accounts      []treatment.Account
	accountsErr   error
	createdAccts  []treatment.Account
	createAcctErr error
	updatedAccts  []treatment.Account
	updateErr     error
}

func (m *mockTreatments) ListActiveOfferings(context.Context) ([]treatment.Offering, error) {
	return m.offerings, m.offeringsErr
}

func (m *mockTreatments) ListAccountsByOwner(context.Context, string) ([]treatment.Account, error) {
	return m.accounts, m.accountsErr
}

func (m *mockTreatments) GetAccount(_ context.Context, id string) (*treatment.Account, error) {
	for i := range m.accounts {
		if m.accounts[i].ID == id {
			found := m.accounts[i]
			return &found, nil
		}
	}
	return nil, errors.New("account not found")
}

func (m *mockTreatments) UpdateAccount(_ context.Context, acct treatment.Account) (*treatment.Account, error) {
	m.updatedAccts = append(m.updatedAccts, acct)
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	updated := acct
	return &updated, nil
}

func (m *mockTreatments) CreateAccount(_ context.Context, acct treatment.Account) (*treatment.Account, error) {
	m.createdAccts = append(m.createdAccts, acct)
	if m.createAcctErr != nil {
		return nil, m.createAcctErr
	}
	created := acct
	created.ID = "acct-new"
	return &created, nil
}

type staticSettings struct {
	settings *clinic.Settings
	err      error
}

func (s staticSettings) Get(context.Context) (*clinic.Settings, error) {
	return s.settings, s.err
}

type fixture struct {
	coordinator  *Coordinator
	appointments *mockAppointments
	treatments   *mockTreatments
	clock        *schedule.Clock
}

func defaultOfferings() []treatment.Offering {
	return []treatment.Offering{
		{ID: "tr-rehab", Name: "Rehab program", VisitsRequired: 10},
		{ID: "tr-eval", Name: "Spine evaluation", RequiresEvaluation: true, VisitsRequired: 8},
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	settings := clinic.DefaultSettings()
	clock, err := settings.Clock()
	require.NoError(t, err)

	appointments := &mockAppointments{}
	treatments := &mockTreatments{offerings: defaultOfferings()}
	coordinator := NewCoordinator(Deps{
		Appointments: appointments,
		Treatments:   treatments,
		Settings:     staticSettings{settings: settings},
		Sessions:     session.ContextProvider{},
	})
	return &fixture{
		coordinator:  coordinator,
		appointments: appointments,
		treatments:   treatments,
		clock:        clock,
	}
}

func patientCtx() context.Context {
	return session.WithAccount(context.Background(), &session.Account{ID: "patient-1", Role: session.RolePatient})
}

func adminCtx() context.Context {
	return session.WithAccount(context.Background(), &session.Account{ID: "staff-1", Role: session.RoleAdmin})
}

// upcomingBookableDay finds the next bookable weekday strictly after today,
// clinic-local, so tests stay inside every horizon without pinning a clock.
func upcomingBookableDay(t *testing.T, f *fixture) schedule.Date {
	t.Helper()
	catalog, err := clinic.DefaultSettings().Catalog()
	require.NoError(t, err)
	day := schedule.DateOf(time.Now().In(f.clock.Location()))
	for i := 0; i < 7; i++ {
		day = day.AddDays(1)
		if catalog.IsBookableWeekday(day) {
			return day
		}
	}
	t.Fatal("no bookable weekday within a week")
	return schedule.Date{}
}

func (f *fixture) occupy(t *testing.T, id string, day schedule.Date, slot string) schedule.Appointment {
	t.Helper()
	at, err := f.clock.FromClinicLocal(day, slot)
	require.NoError(t, err)
	appt := schedule.Appointment{ID: id, TreatmentAccountRef: "acct-x", ScheduledAt: at, Status: schedule.StatusScheduled}
	f.appointments.active = append(f.appointments.active, appt)
	return appt
}

func TestBookHappyPath(t *testing.T) {
	f := newFixture(t)
	day := upcomingBookableDay(t, f)

	result, err := f.coordinator.Book(patientCtx(), BookRequest{
		TreatmentID: "tr-rehab",
		Date:        day,
		Slot:        "10:00 AM",
	})
	require.NoError(t, err)
	require.NotNil(t, result.Appointment)
	assert.False(t, result.PendingEvaluation)

	// First booking opens an in-progress account with the offering's visits.
	require.Len(t, f.treatments.createdAccts, 1)
	assert.Equal(t, treatment.StatusInProgress, f.treatments.createdAccts[0].Status)
	assert.Equal(t, 10, f.treatments.createdAccts[0].TotalVisits)
	assert.Equal(t, "patient-1", f.treatments.createdAccts[0].OwnerRef)

	// The draft instant is the clinic-local pair converted to UTC.
	require.Len(t, f.appointments.created, 1)
	want, convErr := f.clock.FromClinicLocal(day, "10:00 AM")
	require.NoError(t, convErr)
	assert.True(t, f.appointments.created[0].ScheduledAt.Equal(want))
	assert.NotEmpty(t, f.appointments.created[0].ClientRef)
}

func TestBookLockedShortCircuits(t *testing.T) {
	f := newFixture(t)
	f.treatments.accounts = []treatment.Account{
		{ID: "acct-open", OwnerRef: "patient-1", TreatmentRef: "tr-rehab", Status: treatment.StatusInProgress},
	}

	_, err := f.coordinator.Book(patientCtx(), BookRequest{
		TreatmentID: "tr-rehab",
		Date:        upcomingBookableDay(t, f),
		Slot:        "10:00 AM",
	})
	kind, ok := KindOf(err)
	require.True(t, ok, "expected booking error, got %v", err)
	assert.Equal(t, KindLocked, kind)

	// The lock decision happens before any appointment-store traffic.
	assert.Zero(t, f.appointments.listCalls)
	assert.Empty(t, f.appointments.created)
}

func TestBookPendingEvaluationAsymmetry(t *testing.T) {
	pending := []treatment.Account{
		{ID: "acct-pending", OwnerRef: "patient-1", TreatmentRef: "tr-eval", Status: treatment.StatusPendingEvaluation},
	}

	t.Run("patient locked", func(t *testing.T) {
		f := newFixture(t)
		f.treatments.accounts = pending
		_, err := f.coordinator.Book(patientCtx(), BookRequest{
			TreatmentID: "tr-rehab",
			Date:        upcomingBookableDay(t, f),
			Slot:        "10:00 AM",
		})
		kind, _ := KindOf(err)
		assert.Equal(t, KindLocked, kind)
	})

	t.Run("staff may book", func(t *testing.T) {
		f := newFixture(t)
		f.treatments.accounts = pending
		result, err := f.coordinator.Book(adminCtx(), BookRequest{
			TreatmentID: "tr-rehab",
			Date:        upcomingBookableDay(t, f),
			Slot:        "10:00 AM",
			OnBehalfOf:  "patient-1",
		})
		require.NoError(t, err)
		require.NotNil(t, result.Appointment)
	})
}

func TestBookEvaluationRequiredCreatesPendingAccount(t *testing.T) {
	f := newFixture(t)

	result, err := f.coordinator.Book(patientCtx(), BookRequest{TreatmentID: "tr-eval"})
	require.NoError(t, err)
	assert.True(t, result.PendingEvaluation)
	assert.Nil(t, result.Appointment, "evaluation bookings attach zero appointments")
	require.NotNil(t, result.Account)
	assert.Equal(t, treatment.StatusPendingEvaluation, result.Account.Status)

	// No occupancy fetch, no appointment submission.
	assert.Zero(t, f.appointments.listCalls)
	assert.Empty(t, f.appointments.created)
}

func TestBookRevalidatesAtSubmitTime(t *testing.T) {
	f := newFixture(t)
	day := upcomingBookableDay(t, f)
	f.occupy(t, "rival", day, "10:00 AM")

	_, err := f.coordinator.Book(patientCtx(), BookRequest{
		TreatmentID: "tr-rehab",
		Date:        day,
		Slot:        "10:00 AM",
	})
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindRejected, kind)
	assert.Empty(t, f.appointments.created, "rejected picks must not reach the backend")
}

func TestBookBackendConflict(t *testing.T) {
	f := newFixture(t)
	f.appointments.createErr = &backend.StatusError{Code: http.StatusConflict, Body: "slot taken"}

	_, err := f.coordinator.Book(patientCtx(), BookRequest{
		TreatmentID: "tr-rehab",
		Date:        upcomingBookableDay(t, f),
		Slot:        "10:00 AM",
	})
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindConflict, kind)
}

func TestBookNetworkFailures(t *testing.T) {
	t.Run("occupancy fetch", func(t *testing.T) {
		f := newFixture(t)
		f.appointments.listErr = errors.New("connection reset")
		_, err := f.coordinator.Book(patientCtx(), BookRequest{
			TreatmentID: "tr-rehab",
			Date:        upcomingBookableDay(t, f),
			Slot:        "10:00 AM",
		})
		kind, _ := KindOf(err)
		assert.Equal(t, KindNetwork, kind)
	})

	t.Run("accounts fetch", func(t *testing.T) {
		f := newFixture(t)
		f.treatments.accountsErr = errors.New("timeout")
		_, err := f.coordinator.Book(patientCtx(), BookRequest{TreatmentID: "tr-rehab"})
		kind, _ := KindOf(err)
		assert.Equal(t, KindNetwork, kind)
	})

	t.Run("backend create", func(t *testing.T) {
		f := newFixture(t)
		f.appointments.createErr = errors.New("boom")
		_, err := f.coordinator.Book(patientCtx(), BookRequest{
			TreatmentID: "tr-rehab",
			Date:        upcomingBookableDay(t, f),
			Slot:        "10:00 AM",
		})
		kind, _ := KindOf(err)
		assert.Equal(t, KindNetwork, kind)
	})
}

func TestBookUnknownTreatment(t *testing.T) {
	f := newFixture(t)
	_, err := f.coordinator.Book(patientCtx(), BookRequest{TreatmentID: "tr-nope"})
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindRejected, kind)
}

func TestBookWithoutSession(t *testing.T) {
	f := newFixture(t)
	_, err := f.coordinator.Book(context.Background(), BookRequest{TreatmentID: "tr-rehab"})
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindAuth, kind)
}

func TestRescheduleNoOpOntoOwnSlot(t *testing.T) {
	f := newFixture(t)
	day := upcomingBookableDay(t, f)
	f.occupy(t, "moving", day, "10:00 AM")

	moved, err := f.coordinator.Reschedule(adminCtx(), RescheduleRequest{
		AppointmentID: "moving",
		Date:          day,
		Slot:          "10:00 AM",
	})
	require.NoError(t, err, "an appointment does not conflict with itself")
	assert.Equal(t, []string{"moving"}, f.appointments.updated)
	assert.Equal(t, "moving", moved.ID)
}

func TestRescheduleRejectsAnotherAppointmentsSlot(t *testing.T) {
	f := newFixture(t)
	day := upcomingBookableDay(t, f)
	f.occupy(t, "moving", day, "10:00 AM")
	f.occupy(t, "other", day, "11:00 AM")

	_, err := f.coordinator.Reschedule(adminCtx(), RescheduleRequest{
		AppointmentID: "moving",
		Date:          day,
		Slot:          "11:00 AM",
	})
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindRejected, kind)
	assert.Empty(t, f.appointments.updated)
}

func TestRescheduleBackendConflict(t *testing.T) {
	f := newFixture(t)
	day := upcomingBookableDay(t, f)
	f.occupy(t, "moving", day, "10:00 AM")
	f.appointments.updateErr = &backend.StatusError{Code: http.StatusConflict, Body: "taken"}

	_, err := f.coordinator.Reschedule(adminCtx(), RescheduleRequest{
		AppointmentID: "moving",
		Date:          day,
		Slot:          "03:00 PM",
	})
	kind, _ := KindOf(err)
	assert.Equal(t, KindConflict, kind)
}

func TestAvailabilitySnapshot(t *testing.T) {
	f := newFixture(t)
	day := upcomingBookableDay(t, f)
	f.occupy(t, "a1", day, "10:00 AM")

	snap, err := f.coordinator.Availability(patientCtx(), day)
	require.NoError(t, err)
	assert.True(t, snap.Selectable)
	require.Len(t, snap.Slots, 9)
	for _, s := range snap.Slots {
		assert.Equal(t, s.Slot == "10:00 AM", s.Occupied, "slot %s", s.Slot)
	}
}

func TestAvailabilityZeroDateSkipsOccupancyFetch(t *testing.T) {
	f := newFixture(t)
	snap, err := f.coordinator.Availability(patientCtx(), schedule.Date{})
	require.NoError(t, err)
	assert.False(t, snap.Selectable)
	require.Len(t, snap.Slots, 9)
	for _, s := range snap.Slots {
		assert.False(t, s.Occupied)
	}
	assert.Zero(t, f.appointments.listCalls, "no day chosen, no occupancy fetch")
}

func TestAvailabilityRequiresSession(t *testing.T) {
	f := newFixture(t)
	_, err := f.coordinator.Availability(context.Background(), schedule.Date{})
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindAuth, kind)
}

func TestSelectableDays(t *testing.T) {
	f := newFixture(t)
	today := schedule.DateOf(time.Now().In(f.clock.Location()))

	days, err := f.coordinator.SelectableDays(patientCtx(), today, 14)
	require.NoError(t, err)
	require.Len(t, days, 14)

	catalog, err := clinic.DefaultSettings().Catalog()
	require.NoError(t, err)
	for i, d := range days {
		assert.Equal(t, today.AddDays(i), d.Date)
		if !catalog.IsBookableWeekday(d.Date) {
			assert.False(t, d.Selectable, "non-bookable weekday %s", d.Date)
		}
	}
}

func TestCompleteRequiresStaff(t *testing.T) {
	f := newFixture(t)

	_, err := f.coordinator.Complete(patientCtx(), "a1", "good progress")
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindAuth, kind)
	assert.Empty(t, f.appointments.completed)

	done, err := f.coordinator.Complete(adminCtx(), "a1", "good progress")
	require.NoError(t, err)
	assert.Equal(t, schedule.StatusCompleted, done.Status)
	assert.Equal(t, []string{"a1"}, f.appointments.completed)
}

func TestCompleteRecordsAttendance(t *testing.T) {
	f := newFixture(t)
	f.appointments.completeRef = "acct-open"
	f.treatments.accounts = []treatment.Account{
		{ID: "acct-open", OwnerRef: "patient-1", TreatmentRef: "tr-rehab", Status: treatment.StatusInProgress, TotalVisits: 10, AttendedVisits: 3},
	}

	_, err := f.coordinator.Complete(adminCtx(), "a1", "good progress")
	require.NoError(t, err)
	require.Len(t, f.treatments.updatedAccts, 1)
	assert.Equal(t, 4, f.treatments.updatedAccts[0].AttendedVisits)
	assert.Equal(t, treatment.StatusInProgress, f.treatments.updatedAccts[0].Status)
}

func TestCompleteLastVisitClosesAccount(t *testing.T) {
	f := newFixture(t)
	f.appointments.completeRef = "acct-open"
	f.treatments.accounts = []treatment.Account{
		{ID: "acct-open", OwnerRef: "patient-1", TreatmentRef: "tr-rehab", Status: treatment.StatusInProgress, TotalVisits: 2, AttendedVisits: 1},
	}

	_, err := f.coordinator.Complete(adminCtx(), "a1", "final session")
	require.NoError(t, err)
	require.Len(t, f.treatments.updatedAccts, 1)
	assert.Equal(t, 2, f.treatments.updatedAccts[0].AttendedVisits)
	assert.Equal(t, treatment.StatusCompleted, f.treatments.updatedAccts[0].Status)
}

func TestApproveEvaluation(t *testing.T) {
	t.Run("staff approval unlocks the account", func(t *testing.T) {
		f := newFixture(t)
		f.treatments.accounts = []treatment.Account{
			{ID: "acct-pending", OwnerRef: "patient-1", TreatmentRef: "tr-eval", Status: treatment.StatusPendingEvaluation},
		}

		updated, err := f.coordinator.ApproveEvaluation(adminCtx(), "acct-pending")
		require.NoError(t, err)
		assert.Equal(t, treatment.StatusInProgress, updated.Status)
		require.Len(t, f.treatments.updatedAccts, 1)
		assert.Equal(t, treatment.StatusInProgress, f.treatments.updatedAccts[0].Status)
	})

	t.Run("patients may not approve", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.coordinator.ApproveEvaluation(patientCtx(), "acct-pending")
		kind, ok := KindOf(err)
		require.True(t, ok)
		assert.Equal(t, KindAuth, kind)
	})

	t.Run("only pending accounts qualify", func(t *testing.T) {
		f := newFixture(t)
		f.treatments.accounts = []treatment.Account{
			{ID: "acct-open", Status: treatment.StatusInProgress},
		}
		_, err := f.coordinator.ApproveEvaluation(adminCtx(), "acct-open")
		kind, ok := KindOf(err)
		require.True(t, ok)
		assert.Equal(t, KindRejected, kind)
		assert.Empty(t, f.treatments.updatedAccts)
	})
}
