package schedule

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var scheduleTracer = otel.Tracer("healthsync.internal.schedule")

// ActiveSlotIndex is the partial unique index guarding one non-cancelled
// appointment per (doctor, date, start time).
const ActiveSlotIndex = "appointments_active_slot_idx"

const (
	pgUniqueViolation = "23505"
	pgInvalidText     = "22P02"
)

type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store on top of pgx.
type PostgresStore struct {
	db  dbtx
	now func() time.Time
}

// NewPostgresStore creates a store backed by a pgx pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	if pool == nil {
		panic("schedule: pgx pool required")
	}
	return &PostgresStore{db: pool, now: time.Now}
}

func newPostgresStoreWithDB(db dbtx, now func() time.Time) *PostgresStore {
	if db == nil {
		panic("schedule: db required")
	}
	if now == nil {
		now = time.Now
	}
	return &PostgresStore{db: db, now: now}
}

func (s *PostgresStore) ListHospitals(ctx context.Context) ([]Hospital, error) {
	rows, err := s.db.Query(ctx, `SELECT id, name, address, lat, lng FROM hospitals ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("schedule: list hospitals: %w", err)
	}
	defer rows.Close()

	var out []Hospital
	for rows.Next() {
		var h Hospital
		if err := rows.Scan(&h.ID, &h.Name, &h.Address, &h.Lat, &h.Lng); err != nil {
			return nil, fmt.Errorf("schedule: scan hospital: %w", err)
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("schedule: list hospitals: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) ListDoctors(ctx context.Context, filter DoctorFilter) ([]Doctor, error) {
	var (
		query strings.Builder
		args  []any
	)
	query.WriteString(`
		SELECT u.id, u.username, u.email, d.department_id, dep.name,
		       d.specialty, d.title, COALESCE(d.phone, ''), COALESCE(d.bio, '')
		FROM users u
		JOIN doctors d ON u.id = d.user_id
		JOIN departments dep ON d.department_id = dep.id
		WHERE u.role = 'doctor'`)
	if filter.DepartmentID != "" {
		args = append(args, filter.DepartmentID)
		fmt.Fprintf(&query, " AND d.department_id = $%d", len(args))
	}
	if filter.HospitalID != "" {
		args = append(args, filter.HospitalID)
		fmt.Fprintf(&query, " AND dep.hospital_id = $%d", len(args))
	}
	query.WriteString(" ORDER BY u.username")

	// pgx reports a bind-time 22P02 from Next/Err rather than Query; both
	// paths mean the id cannot exist.
	rows, err := s.db.Query(ctx, query.String(), args...)
	if err != nil {
		if isInvalidText(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("schedule: list doctors: %w", err)
	}
	defer rows.Close()

	var out []Doctor
	for rows.Next() {
		var d Doctor
		if err := rows.Scan(
			&d.UserID,
			&d.Username,
			&d.Email,
			&d.DepartmentID,
			&d.DepartmentName,
			&d.Specialty,
			&d.Title,
			&d.Phone,
			&d.Bio,
		); err != nil {
			if isInvalidText(err) {
				return nil, nil
			}
			return nil, fmt.Errorf("schedule: scan doctor: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		if isInvalidText(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("schedule: list doctors: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) WeeklyAvailability(ctx context.Context, doctorID string, date *time.Time) ([]SlotStatus, error) {
	query := `
		SELECT id, day_of_week, start_time, end_time
		FROM doctor_availability
		WHERE user_id = $1`
	args := []any{doctorID}
	if date != nil {
		query += " AND day_of_week = $2"
		args = append(args, date.Weekday().String())
	}
	query += ` ORDER BY array_position(ARRAY['Monday','Tuesday','Wednesday','Thursday','Friday','Saturday','Sunday'], day_of_week), start_time`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		if isInvalidText(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("schedule: list availability: %w", err)
	}
	var templates []AvailabilitySlot
	for rows.Next() {
		slot := AvailabilitySlot{DoctorID: doctorID}
		if err := rows.Scan(&slot.ID, &slot.DayOfWeek, &slot.StartTime, &slot.EndTime); err != nil {
			rows.Close()
			if isInvalidText(err) {
				return nil, nil
			}
			return nil, fmt.Errorf("schedule: scan availability: %w", err)
		}
		templates = append(templates, slot)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		if isInvalidText(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("schedule: list availability: %w", err)
	}
	if len(templates) == 0 {
		return nil, nil
	}

	dates, err := slotDates(templates, date, s.now())
	if err != nil {
		return nil, err
	}
	booked, err := s.bookedSlots(ctx, doctorID, uniqueStrings(dates))
	if err != nil {
		return nil, err
	}
	return annotateSlots(templates, dates, booked), nil
}

func (s *PostgresStore) bookedSlots(ctx context.Context, doctorID string, dates []string) (map[slotKey]bool, error) {
	params := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		parsed, err := ParseDate(d)
		if err != nil {
			return nil, err
		}
		params = append(params, parsed)
	}

	rows, err := s.db.Query(ctx, `
		SELECT appointment_date, start_time
		FROM appointments
		WHERE doctor_id = $1 AND appointment_date = ANY($2::date[]) AND status <> 'cancelled'`,
		doctorID, params,
	)
	if err != nil {
		return nil, fmt.Errorf("schedule: load booked slots: %w", err)
	}
	defer rows.Close()

	booked := make(map[slotKey]bool)
	for rows.Next() {
		var (
			day   time.Time
			start string
		)
		if err := rows.Scan(&day, &start); err != nil {
			return nil, fmt.Errorf("schedule: scan booked slot: %w", err)
		}
		booked[slotKey{date: day.Format(DateLayout), start: start}] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("schedule: load booked slots: %w", err)
	}
	return booked, nil
}

func (s *PostgresStore) ListDepartmentNames(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT name FROM departments ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("schedule: list department names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("schedule: scan department name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("schedule: list department names: %w", err)
	}
	return names, nil
}

func (s *PostgresStore) ResolveDepartmentByName(ctx context.Context, name string) (string, error) {
	return s.scanID(ctx, "resolve department",
		`SELECT id FROM departments WHERE LOWER(name) = LOWER($1) ORDER BY name LIMIT 1`,
		strings.TrimSpace(name))
}

func (s *PostgresStore) ResolveDepartmentHospital(ctx context.Context, departmentID string) (string, error) {
	return s.scanID(ctx, "resolve department hospital",
		`SELECT hospital_id FROM departments WHERE id = $1`, departmentID)
}

func (s *PostgresStore) ResolveDoctorByUsername(ctx context.Context, username string) (string, error) {
	return s.scanID(ctx, "resolve doctor",
		`SELECT id FROM users WHERE username = $1 AND role = 'doctor'`, username)
}

func (s *PostgresStore) DoctorDepartment(ctx context.Context, doctorID string) (string, error) {
	return s.scanID(ctx, "doctor department",
		`SELECT department_id FROM doctors WHERE user_id = $1 LIMIT 1`, doctorID)
}

func (s *PostgresStore) GetDoctorUser(ctx context.Context, doctorID string) (*User, error) {
	return s.getUser(ctx, `SELECT id, username, email, role FROM users WHERE id = $1 AND role = 'doctor'`, doctorID)
}

func (s *PostgresStore) GetUser(ctx context.Context, userID string) (*User, error) {
	return s.getUser(ctx, `SELECT id, username, email, role FROM users WHERE id = $1`, userID)
}

func (s *PostgresStore) getUser(ctx context.Context, query, id string) (*User, error) {
	var u User
	if err := s.db.QueryRow(ctx, query, id).Scan(&u.ID, &u.Username, &u.Email, &u.Role); err != nil {
		if isMissing(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("schedule: load user: %w", err)
	}
	return &u, nil
}

func (s *PostgresStore) GetDepartment(ctx context.Context, departmentID string) (*Department, error) {
	var d Department
	err := s.db.QueryRow(ctx, `SELECT id, hospital_id, name FROM departments WHERE id = $1`, departmentID).
		Scan(&d.ID, &d.HospitalID, &d.Name)
	if err != nil {
		if isMissing(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("schedule: load department: %w", err)
	}
	return &d, nil
}

func (s *PostgresStore) GetHospital(ctx context.Context, hospitalID string) (*Hospital, error) {
	var h Hospital
	err := s.db.QueryRow(ctx, `SELECT id, name, address, lat, lng FROM hospitals WHERE id = $1`, hospitalID).
		Scan(&h.ID, &h.Name, &h.Address, &h.Lat, &h.Lng)
	if err != nil {
		if isMissing(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("schedule: load hospital: %w", err)
	}
	return &h, nil
}

func (s *PostgresStore) FindTemplateSlot(ctx context.Context, doctorID, dayOfWeek, start, end string) (*AvailabilitySlot, error) {
	slot := AvailabilitySlot{DoctorID: doctorID}
	err := s.db.QueryRow(ctx, `
		SELECT id, day_of_week, start_time, end_time
		FROM doctor_availability
		WHERE user_id = $1 AND day_of_week = $2 AND start_time = $3 AND end_time = $4`,
		doctorID, dayOfWeek, start, end,
	).Scan(&slot.ID, &slot.DayOfWeek, &slot.StartTime, &slot.EndTime)
	if err != nil {
		if isMissing(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("schedule: find template slot: %w", err)
	}
	return &slot, nil
}

func (s *PostgresStore) HasActiveAppointment(ctx context.Context, doctorID, date, start string) (bool, error) {
	day, err := ParseDate(date)
	if err != nil {
		return false, err
	}
	var exists int
	err = s.db.QueryRow(ctx, `
		SELECT 1 FROM appointments
		WHERE doctor_id = $1 AND appointment_date = $2 AND start_time = $3 AND status <> 'cancelled'
		LIMIT 1`,
		doctorID, day, start,
	).Scan(&exists)
	if err != nil {
		if isMissing(err) {
			return false, nil
		}
		return false, fmt.Errorf("schedule: check booking conflict: %w", err)
	}
	return true, nil
}

func (s *PostgresStore) BookSlot(ctx context.Context, appt NewAppointment) (*Appointment, error) {
	ctx, span := scheduleTracer.Start(ctx, "schedule.book_slot")
	defer span.End()
	span.SetAttributes(
		attribute.String("healthsync.doctor_id", appt.DoctorID),
		attribute.String("healthsync.appointment_date", appt.AppointmentDate),
		attribute.String("healthsync.start_time", appt.StartTime),
	)

	day, err := ParseDate(appt.AppointmentDate)
	if err != nil {
		return nil, err
	}

	id := uuid.New()
	createdAt := s.now().UTC()
	_, err = s.db.Exec(ctx, `
		INSERT INTO appointments (
			id, user_id, doctor_id, department_id, hospital_id,
			appointment_date, start_time, end_time, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		id,
		appt.UserID,
		appt.DoctorID,
		appt.DepartmentID,
		appt.HospitalID,
		day,
		appt.StartTime,
		appt.EndTime,
		string(StatusScheduled),
		createdAt,
	)
	if err != nil {
		if isSlotConflict(err) {
			return nil, ErrSlotTaken
		}
		span.RecordError(err)
		return nil, fmt.Errorf("schedule: insert appointment: %w", err)
	}

	return &Appointment{
		ID:              id.String(),
		UserID:          appt.UserID,
		DoctorID:        appt.DoctorID,
		DepartmentID:    appt.DepartmentID,
		HospitalID:      appt.HospitalID,
		AppointmentDate: appt.AppointmentDate,
		StartTime:       appt.StartTime,
		EndTime:         appt.EndTime,
		Status:          StatusScheduled,
		CreatedAt:       createdAt,
	}, nil
}

func (s *PostgresStore) CreateDoctorTemplate(ctx context.Context, doctorID string) (int, error) {
	slots := GenerateWeeklyTemplate(doctorID)
	ids := make([]string, len(slots))
	days := make([]string, len(slots))
	starts := make([]string, len(slots))
	ends := make([]string, len(slots))
	for i, slot := range slots {
		ids[i] = slot.ID
		days[i] = slot.DayOfWeek
		starts[i] = slot.StartTime
		ends[i] = slot.EndTime
	}

	ct, err := s.db.Exec(ctx, `
		INSERT INTO doctor_availability (id, user_id, day_of_week, start_time, end_time)
		SELECT unnest($1::uuid[]), $2, unnest($3::text[]), unnest($4::text[]), unnest($5::text[])
		ON CONFLICT (user_id, day_of_week, start_time) DO NOTHING`,
		ids, doctorID, days, starts, ends,
	)
	if err != nil {
		return 0, fmt.Errorf("schedule: create doctor template: %w", err)
	}
	return int(ct.RowsAffected()), nil
}

func (s *PostgresStore) scanID(ctx context.Context, op, query string, arg any) (string, error) {
	var id string
	if err := s.db.QueryRow(ctx, query, arg).Scan(&id); err != nil {
		if isMissing(err) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("schedule: %s: %w", op, err)
	}
	return id, nil
}

// isMissing treats "no rows" and malformed identifiers alike: both mean the
// referenced entity does not exist.
func isMissing(err error) bool {
	return errors.Is(err, pgx.ErrNoRows) || isInvalidText(err)
}

func isInvalidText(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgInvalidText
}

func isSlotConflict(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgUniqueViolation {
		return false
	}
	return pgErr.ConstraintName == "" || pgErr.ConstraintName == ActiveSlotIndex
}

var _ Store = (*PostgresStore)(nil)
