package agent

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthsync/healthsync-api/internal/schedule"
)

func requireReason(t *testing.T, err error, want BookingReason) *BookingError {
	t.Helper()
	var be *BookingError
	require.True(t, errors.As(err, &be), "expected *BookingError, got %v", err)
	assert.Equal(t, want, be.Reason)
	return be
}

func TestBookByUsername_MissingFieldsTouchNoStorage(t *testing.T) {
	tests := []struct {
		name                       string
		username, date, start, end string
		missing                    string
	}{
		{name: "username", date: "2025-05-05", start: "09:00", end: "09:30", missing: "doctor username"},
		{name: "date", username: "derma1", start: "09:00", end: "09:30", missing: "date"},
		{name: "start", username: "derma1", date: "2025-05-05", end: "09:30", missing: "start time"},
		{name: "end", username: "derma1", date: "2025-05-05", start: "09:00", missing: "end time"},
		{name: "blank counts as missing", username: "  ", date: "2025-05-05", start: "09:00", end: "09:30", missing: "doctor username"},
		{name: "several", username: "derma1", missing: "date, start time, end time"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &spyStore{InMemoryStore: seedStore(t)}
			coordinator := NewBookingCoordinator(store, nil)

			_, err := coordinator.BookByUsername(context.Background(), "u1", tt.username, tt.date, tt.start, tt.end)
			be := requireReason(t, err, ReasonMissingFields)
			assert.Equal(t, tt.missing, be.Value)
			assert.Equal(t,
				"Booking requires doctor username, date, start time, and end time. Please provide all details. Missing: "+tt.missing+".",
				BookingMessage(be))

			assert.Zero(t, store.resolveCalls.Load())
			assert.Zero(t, store.bookSlotCalls.Load())
			assert.Empty(t, store.Appointments())
		})
	}
}

func TestBookByUsername_MalformedInputRejectedBeforeLookup(t *testing.T) {
	tests := []struct {
		name        string
		date, start string
		end         string
		reason      BookingReason
		message     string
	}{
		{name: "date", date: "05/05/2025", start: "09:00", end: "09:30", reason: ReasonInvalidDate,
			message: "Invalid appointment date '05/05/2025'. Use the YYYY-MM-DD format."},
		{name: "start", date: "2025-05-05", start: "9am", end: "09:30", reason: ReasonInvalidStartTime,
			message: "Invalid start time '9am'. Use the HH:MM format."},
		{name: "end", date: "2025-05-05", start: "09:00", end: "half past", reason: ReasonInvalidEndTime,
			message: "Invalid end time 'half past'. Use the HH:MM format."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &spyStore{InMemoryStore: seedStore(t)}
			coordinator := NewBookingCoordinator(store, nil)

			_, err := coordinator.BookByUsername(context.Background(), "u1", "derma1", tt.date, tt.start, tt.end)
			be := requireReason(t, err, tt.reason)
			assert.Equal(t, tt.message, BookingMessage(be))
			assert.Zero(t, store.resolveCalls.Load())
		})
	}
}

func TestBookByUsername_EndToEnd(t *testing.T) {
	store := seedStore(t)
	coordinator := NewBookingCoordinator(store, nil)
	ctx := context.Background()

	appt, err := coordinator.BookByUsername(ctx, "u1", "derma1", "2025-05-05", "09:00", "09:30")
	require.NoError(t, err)
	assert.Equal(t, schedule.StatusScheduled, appt.Status)
	assert.Equal(t, "patient1", appt.Username)
	assert.Equal(t, "derma1", appt.DoctorUsername)
	assert.Equal(t, "Dermatology", appt.DepartmentName)
	assert.Equal(t, "h1", appt.HospitalID)
	assert.Equal(t, "2025-05-05", appt.AppointmentDate)
	assert.NotEmpty(t, appt.ID)

	_, err = coordinator.BookByUsername(ctx, "u1", "derma1", "2025-05-05", "09:00", "09:30")
	be := requireReason(t, err, ReasonSlotAlreadyBooked)
	assert.Equal(t, "Slot already booked", BookingMessage(be))

	_, err = coordinator.BookByUsername(ctx, "u1", "derma1", "2025-05-05", "09:15", "09:45")
	be = requireReason(t, err, ReasonSlotNotAvailable)
	assert.Equal(t, "Slot not available", BookingMessage(be))

	assert.Len(t, store.Appointments(), 1)
}

func TestBookByUsername_NormalizesClockTimes(t *testing.T) {
	coordinator := NewBookingCoordinator(seedStore(t), nil)

	appt, err := coordinator.BookByUsername(context.Background(), "u1", "derma1", "2025-05-05", "9:00", "9:30")
	require.NoError(t, err)
	assert.Equal(t, "09:00", appt.StartTime)
	assert.Equal(t, "09:30", appt.EndTime)
}

func TestBookByUsername_TemplateConformance(t *testing.T) {
	coordinator := NewBookingCoordinator(seedStore(t), nil)
	ctx := context.Background()

	tests := []struct {
		name             string
		date, start, end string
	}{
		{name: "sunday has no template", date: "2025-05-04", start: "09:00", end: "09:30"},
		{name: "before opening", date: "2025-05-05", start: "08:30", end: "09:00"},
		{name: "after closing", date: "2025-05-05", start: "18:00", end: "18:30"},
		{name: "hour long", date: "2025-05-05", start: "09:00", end: "10:00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := coordinator.BookByUsername(ctx, "u1", "derma1", tt.date, tt.start, tt.end)
			requireReason(t, err, ReasonSlotNotAvailable)
		})
	}
}

func TestBookByUsername_ResolutionFailures(t *testing.T) {
	store := seedStore(t)
	store.AddUser(schedule.User{ID: "doc-float", Username: "floating", Role: schedule.RoleDoctor})
	store.AddDepartment(schedule.Department{ID: "dep-orphan", Name: "Orphan"})
	store.AddDoctor(schedule.User{ID: "doc-orphan", Username: "orphaned"}, schedule.DoctorProfile{DepartmentID: "dep-orphan"})
	coordinator := NewBookingCoordinator(store, nil)
	ctx := context.Background()

	_, err := coordinator.BookByUsername(ctx, "u1", "ghost", "2025-05-05", "09:00", "09:30")
	be := requireReason(t, err, ReasonUnknownDoctorUsername)
	assert.Equal(t, "No doctor found with username 'ghost'.", BookingMessage(be))

	_, err = coordinator.BookByUsername(ctx, "u1", "patient1", "2025-05-05", "09:00", "09:30")
	requireReason(t, err, ReasonUnknownDoctorUsername)

	_, err = coordinator.BookByUsername(ctx, "u1", "floating", "2025-05-05", "09:00", "09:30")
	be = requireReason(t, err, ReasonDoctorWithoutDepartment)
	assert.Equal(t, "No department found for doctor 'floating'.", BookingMessage(be))

	_, err = coordinator.BookByUsername(ctx, "u1", "orphaned", "2025-05-05", "09:00", "09:30")
	be = requireReason(t, err, ReasonDepartmentWithoutHospital)
	assert.Equal(t, "No hospital found for department ID 'dep-orphan'.", BookingMessage(be))

	_, err = coordinator.BookByUsername(ctx, "nobody", "derma1", "2025-05-05", "09:00", "09:30")
	be = requireReason(t, err, ReasonUserNotFound)
	assert.Equal(t, "User not found", BookingMessage(be))
}

func TestBook_ValidatesIdentifiersInOrder(t *testing.T) {
	coordinator := NewBookingCoordinator(seedStore(t), nil)
	ctx := context.Background()
	valid := BookRequest{
		UserID: "u1", DoctorID: "doc-derma", DepartmentID: "dep-derm", HospitalID: "h1",
		Date: "2025-05-05", StartTime: "10:00", EndTime: "10:30",
	}

	tests := []struct {
		name    string
		mutate  func(r *BookRequest)
		reason  BookingReason
		message string
	}{
		{name: "doctor", mutate: func(r *BookRequest) { r.DoctorID = "nope"; r.HospitalID = "nope" }, reason: ReasonDoctorNotFound, message: "Doctor not found"},
		{name: "patient is not a doctor", mutate: func(r *BookRequest) { r.DoctorID = "u1" }, reason: ReasonDoctorNotFound, message: "Doctor not found"},
		{name: "department", mutate: func(r *BookRequest) { r.DepartmentID = "nope"; r.HospitalID = "nope" }, reason: ReasonDepartmentNotFound, message: "Department not found"},
		{name: "hospital", mutate: func(r *BookRequest) { r.HospitalID = "nope"; r.StartTime = "09:15" }, reason: ReasonHospitalNotFound, message: "Hospital not found"},
		{name: "slot", mutate: func(r *BookRequest) { r.StartTime = "09:15"; r.UserID = "nope" }, reason: ReasonSlotNotAvailable, message: "Slot not available"},
		{name: "user", mutate: func(r *BookRequest) { r.UserID = "nope" }, reason: ReasonUserNotFound, message: "User not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)
			_, err := coordinator.Book(ctx, req)
			be := requireReason(t, err, tt.reason)
			assert.Equal(t, tt.message, BookingMessage(be))
		})
	}

	_, err := coordinator.Book(ctx, valid)
	require.NoError(t, err)
}

func TestBook_InsertConflictIsSlotAlreadyBooked(t *testing.T) {
	store := &spyStore{InMemoryStore: seedStore(t), forceFreeSlot: true, bookSlotErr: schedule.ErrSlotTaken}
	coordinator := NewBookingCoordinator(store, nil)

	_, err := coordinator.BookByUsername(context.Background(), "u1", "derma1", "2025-05-05", "09:00", "09:30")
	be := requireReason(t, err, ReasonSlotAlreadyBooked)
	assert.Equal(t, "Slot already booked", BookingMessage(be))
	assert.Equal(t, int32(1), store.bookSlotCalls.Load())
}

func TestBook_StorageFailureIsInternal(t *testing.T) {
	store := &spyStore{InMemoryStore: seedStore(t), bookSlotErr: errors.New("disk full")}
	coordinator := NewBookingCoordinator(store, nil)

	_, err := coordinator.BookByUsername(context.Background(), "u1", "derma1", "2025-05-05", "09:00", "09:30")
	be := requireReason(t, err, ReasonInternal)
	assert.Equal(t, "Internal error while booking: disk full", BookingMessage(be))

	store = &spyStore{InMemoryStore: seedStore(t), getUserErr: errors.New("timeout")}
	_, err = NewBookingCoordinator(store, nil).BookByUsername(context.Background(), "u1", "derma1", "2025-05-05", "09:00", "09:30")
	requireReason(t, err, ReasonInternal)
	assert.Zero(t, store.bookSlotCalls.Load())
}

func TestBookByUsername_ConcurrentRequestsAdmitOneWinner(t *testing.T) {
	store := seedStore(t)
	coordinator := NewBookingCoordinator(store, nil)

	const workers = 12
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := coordinator.BookByUsername(context.Background(), "u1", "derma1", "2025-05-06", "14:00", "14:30")
			mu.Lock()
			defer mu.Unlock()
			var be *BookingError
			switch {
			case err == nil:
				successes++
			case errors.As(err, &be) && be.Reason == ReasonSlotAlreadyBooked:
				conflicts++
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, workers-1, conflicts)
	assert.Len(t, store.Appointments(), 1)
}
