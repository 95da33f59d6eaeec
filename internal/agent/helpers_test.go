package agent

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/healthsync/healthsync-api/internal/llm"
	"github.com/healthsync/healthsync-api/internal/schedule"
)

// Monday 2025-05-05, 08:00 UTC.
var testNow = time.Date(2025, 5, 5, 8, 0, 0, 0, time.UTC)

func seedStore(t *testing.T) *schedule.InMemoryStore {
	t.Helper()
	store := schedule.NewInMemoryStore().WithClock(func() time.Time { return testNow })
	store.AddHospital(schedule.Hospital{ID: "h1", Name: "City General"})
	store.AddHospital(schedule.Hospital{ID: "h2", Name: "Lakeside"})
	store.AddDepartment(schedule.Department{ID: "dep-derm", HospitalID: "h1", Name: "Dermatology"})
	store.AddDepartment(schedule.Department{ID: "dep-onc", HospitalID: "h2", Name: "Oncology"})
	store.AddDepartment(schedule.Department{ID: "dep-card", HospitalID: "h1", Name: "Cardiology"})
	store.AddUser(schedule.User{ID: "u1", Username: "patient1", Email: "p1@example.com"})
	store.AddDoctor(schedule.User{ID: "doc-derma", Username: "derma1", Email: "derma1@example.com"},
		schedule.DoctorProfile{DepartmentID: "dep-derm", Specialty: "Dermatology", Title: "Dr."})
	store.AddDoctor(schedule.User{ID: "doc-onc", Username: "onco1", Email: "onco1@example.com"},
		schedule.DoctorProfile{DepartmentID: "dep-onc", Specialty: "Oncology", Title: "Dr."})
	for _, id := range []string{"doc-derma", "doc-onc"} {
		_, err := store.CreateDoctorTemplate(context.Background(), id)
		require.NoError(t, err)
	}
	return store
}

// spyStore counts the calls the booking tests care about and can inject
// failures into an otherwise real in-memory store.
type spyStore struct {
	*schedule.InMemoryStore

	resolveCalls  atomic.Int32
	bookSlotCalls atomic.Int32

	forceFreeSlot bool
	bookSlotErr   error
	getUserErr    error
	panicOnList   bool
}

func (s *spyStore) ResolveDoctorByUsername(ctx context.Context, username string) (string, error) {
	s.resolveCalls.Add(1)
	return s.InMemoryStore.ResolveDoctorByUsername(ctx, username)
}

func (s *spyStore) HasActiveAppointment(ctx context.Context, doctorID, date, start string) (bool, error) {
	if s.forceFreeSlot {
		return false, nil
	}
	return s.InMemoryStore.HasActiveAppointment(ctx, doctorID, date, start)
}

func (s *spyStore) BookSlot(ctx context.Context, appt schedule.NewAppointment) (*schedule.Appointment, error) {
	s.bookSlotCalls.Add(1)
	if s.bookSlotErr != nil {
		return nil, s.bookSlotErr
	}
	return s.InMemoryStore.BookSlot(ctx, appt)
}

func (s *spyStore) GetUser(ctx context.Context, userID string) (*schedule.User, error) {
	if s.getUserErr != nil {
		return nil, s.getUserErr
	}
	return s.InMemoryStore.GetUser(ctx, userID)
}

func (s *spyStore) ListHospitals(ctx context.Context) ([]schedule.Hospital, error) {
	if s.panicOnList {
		panic("hospital table exploded")
	}
	return s.InMemoryStore.ListHospitals(ctx)
}

type stubGeneral struct {
	mu      sync.Mutex
	answer  string
	err     error
	queries []string
}

func (g *stubGeneral) Answer(ctx context.Context, query, userID string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.queries = append(g.queries, query)
	return g.answer, g.err
}

func newTestAgent(t *testing.T, store schedule.Store, model llm.Client, general GeneralAnswerer) *Agent {
	t.Helper()
	if general == nil {
		general = &stubGeneral{answer: "general answer"}
	}
	a, err := New(Options{Store: store, LLM: model, General: general, Temperature: 0.3})
	require.NoError(t, err)
	return a
}

func scheduleAppt(doctorID, date, start, end string) schedule.NewAppointment {
	return schedule.NewAppointment{
		UserID:          "u1",
		DoctorID:        doctorID,
		DepartmentID:    "dep-derm",
		HospitalID:      "h1",
		AppointmentDate: date,
		StartTime:       start,
		EndTime:         end,
	}
}
