package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	pgx "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T, now time.Time) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return newPostgresStoreWithDB(mock, func() time.Time { return now }), mock
}

func TestPostgresStore_BookSlotInserts(t *testing.T) {
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	store, mock := newMockStore(t, now)

	mock.ExpectExec("INSERT INTO appointments").
		WithArgs(pgxmock.AnyArg(), "u1", "doc-1", "dep-1", "h1",
			time.Date(2025, 5, 5, 0, 0, 0, 0, time.UTC), "09:00", "09:30", "scheduled", now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	appt, err := store.BookSlot(context.Background(), NewAppointment{
		UserID: "u1", DoctorID: "doc-1", DepartmentID: "dep-1", HospitalID: "h1",
		AppointmentDate: "2025-05-05", StartTime: "09:00", EndTime: "09:30",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, appt.ID)
	assert.Equal(t, StatusScheduled, appt.Status)
	assert.Equal(t, now, appt.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_BookSlotTranslatesUniqueViolation(t *testing.T) {
	store, mock := newMockStore(t, time.Now())

	mock.ExpectExec("INSERT INTO appointments").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: ActiveSlotIndex})

	_, err := store.BookSlot(context.Background(), NewAppointment{
		UserID: "u1", DoctorID: "doc-1", DepartmentID: "dep-1", HospitalID: "h1",
		AppointmentDate: "2025-05-05", StartTime: "09:00", EndTime: "09:30",
	})
	assert.ErrorIs(t, err, ErrSlotTaken)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_BookSlotSurfacesOtherErrors(t *testing.T) {
	store, mock := newMockStore(t, time.Now())

	mock.ExpectExec("INSERT INTO appointments").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(errors.New("connection reset"))

	_, err := store.BookSlot(context.Background(), NewAppointment{
		UserID: "u1", DoctorID: "doc-1", DepartmentID: "dep-1", HospitalID: "h1",
		AppointmentDate: "2025-05-05", StartTime: "09:00", EndTime: "09:30",
	})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrSlotTaken))
	assert.Contains(t, err.Error(), "connection reset")
}

func TestPostgresStore_ResolveDoctorByUsername(t *testing.T) {
	store, mock := newMockStore(t, time.Now())

	mock.ExpectQuery("SELECT id FROM users WHERE username").
		WithArgs("derma1").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("doc-1"))
	mock.ExpectQuery("SELECT id FROM users WHERE username").
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)

	id, err := store.ResolveDoctorByUsername(context.Background(), "derma1")
	require.NoError(t, err)
	assert.Equal(t, "doc-1", id)

	_, err = store.ResolveDoctorByUsername(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_MalformedIdentifierIsNotFound(t *testing.T) {
	store, mock := newMockStore(t, time.Now())

	mock.ExpectQuery("SELECT id, name, address, lat, lng FROM hospitals WHERE id").
		WithArgs("not-a-uuid").
		WillReturnError(&pgconn.PgError{Code: "22P02"})

	_, err := store.GetHospital(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresStore_ListDoctorsBuildsFilters(t *testing.T) {
	store, mock := newMockStore(t, time.Now())

	mock.ExpectQuery(`d.department_id = \$1 AND dep.hospital_id = \$2`).
		WithArgs("dep-1", "h1").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "username", "email", "department_id", "name", "specialty", "title", "phone", "bio",
		}).AddRow("doc-1", "derma1", "d@example.com", "dep-1", "Dermatology", "Skin", "Dr.", "", ""))

	doctors, err := store.ListDoctors(context.Background(), DoctorFilter{DepartmentID: "dep-1", HospitalID: "h1"})
	require.NoError(t, err)
	require.Len(t, doctors, 1)
	assert.Equal(t, "Dermatology", doctors[0].DepartmentName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_WeeklyAvailabilityForDate(t *testing.T) {
	store, mock := newMockStore(t, time.Now())
	monday := time.Date(2025, 5, 5, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("FROM doctor_availability").
		WithArgs("doc-1", "Monday").
		WillReturnRows(pgxmock.NewRows([]string{"id", "day_of_week", "start_time", "end_time"}).
			AddRow("s1", "Monday", "09:00", "09:30").
			AddRow("s2", "Monday", "09:30", "10:00"))
	mock.ExpectQuery("FROM appointments").
		WithArgs("doc-1", []time.Time{monday}).
		WillReturnRows(pgxmock.NewRows([]string{"appointment_date", "start_time"}).
			AddRow(monday, "09:30"))

	slots, err := store.WeeklyAvailability(context.Background(), "doc-1", &monday)
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.False(t, slots[0].IsBooked)
	assert.True(t, slots[1].IsBooked)
	assert.Equal(t, "2025-05-05", slots[1].Date)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_HasActiveAppointment(t *testing.T) {
	store, mock := newMockStore(t, time.Now())
	day := time.Date(2025, 5, 5, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT 1 FROM appointments").
		WithArgs("doc-1", day, "09:00").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(1))
	mock.ExpectQuery("SELECT 1 FROM appointments").
		WithArgs("doc-1", day, "10:00").
		WillReturnError(pgx.ErrNoRows)

	active, err := store.HasActiveAppointment(context.Background(), "doc-1", "2025-05-05", "09:00")
	require.NoError(t, err)
	assert.True(t, active)

	active, err = store.HasActiveAppointment(context.Background(), "doc-1", "2025-05-05", "10:00")
	require.NoError(t, err)
	assert.False(t, active)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateDoctorTemplate(t *testing.T) {
	store, mock := newMockStore(t, time.Now())

	mock.ExpectExec("INSERT INTO doctor_availability").
		WithArgs(pgxmock.AnyArg(), "doc-1", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 108))

	added, err := store.CreateDoctorTemplate(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 108, added)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListDepartmentNames(t *testing.T) {
	store, mock := newMockStore(t, time.Now())

	mock.ExpectQuery("SELECT name FROM departments").
		WillReturnRows(pgxmock.NewRows([]string{"name"}).AddRow("Dermatology").AddRow("Oncology"))

	names, err := store.ListDepartmentNames(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Dermatology", "Oncology"}, names)
}

func TestPostgresStore_MalformedFilterIdsYieldNoRows(t *testing.T) {
	store, mock := newMockStore(t, time.Now())
	invalidUUID := &pgconn.PgError{Code: "22P02", Message: "invalid input syntax for type uuid"}

	mock.ExpectQuery("FROM users u").
		WithArgs("cardio").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "username", "email", "department_id", "name", "specialty", "title", "phone", "bio",
		}).AddRow("doc-1", "derma1", "", "dep-1", "Dermatology", "", "", "", "").RowError(0, invalidUUID))
	mock.ExpectQuery("FROM doctor_availability").
		WithArgs("drsmith").
		WillReturnRows(pgxmock.NewRows([]string{"id", "day_of_week", "start_time", "end_time"}).
			AddRow("s1", "Monday", "09:00", "09:30").RowError(0, invalidUUID))

	doctors, err := store.ListDoctors(context.Background(), DoctorFilter{DepartmentID: "cardio"})
	require.NoError(t, err)
	assert.Empty(t, doctors)

	slots, err := store.WeeklyAvailability(context.Background(), "drsmith", nil)
	require.NoError(t, err)
	assert.Empty(t, slots)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListDoctorsSurfacesOtherRowErrors(t *testing.T) {
	store, mock := newMockStore(t, time.Now())

	mock.ExpectQuery("FROM users u").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "username", "email", "department_id", "name", "specialty", "title", "phone", "bio",
		}).AddRow("doc-1", "derma1", "", "dep-1", "Dermatology", "", "", "", "").
			RowError(0, &pgconn.PgError{Code: "57014", Message: "canceling statement"}))

	_, err := store.ListDoctors(context.Background(), DoctorFilter{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "canceling statement")
}

func TestPostgresStore_WeeklyAvailabilityWithoutDate(t *testing.T) {
	// Monday morning: Monday rows point a week out, Tuesday rows at tomorrow.
	now := time.Date(2025, 5, 5, 8, 0, 0, 0, time.UTC)
	store, mock := newMockStore(t, now)
	nextMonday := time.Date(2025, 5, 12, 0, 0, 0, 0, time.UTC)
	tuesday := time.Date(2025, 5, 6, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("FROM doctor_availability").
		WithArgs("doc-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "day_of_week", "start_time", "end_time"}).
			AddRow("s1", "Monday", "09:00", "09:30").
			AddRow("s2", "Monday", "09:30", "10:00").
			AddRow("s3", "Tuesday", "09:00", "09:30"))
	mock.ExpectQuery(`appointment_date = ANY\(\$2::date\[\]\)`).
		WithArgs("doc-1", []time.Time{nextMonday, tuesday}).
		WillReturnRows(pgxmock.NewRows([]string{"appointment_date", "start_time"}).
			AddRow(tuesday, "09:00"))

	slots, err := store.WeeklyAvailability(context.Background(), "doc-1", nil)
	require.NoError(t, err)
	require.Len(t, slots, 3)

	assert.Equal(t, "2025-05-12", slots[0].Date)
	assert.Equal(t, "2025-05-12", slots[1].Date)
	assert.Equal(t, "2025-05-06", slots[2].Date)
	assert.False(t, slots[0].IsBooked)
	assert.False(t, slots[1].IsBooked)
	assert.True(t, slots[2].IsBooked)
	require.NoError(t, mock.ExpectationsWereMet())
}
