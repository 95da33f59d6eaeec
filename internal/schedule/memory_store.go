package schedule

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DoctorProfile is the department assignment record of a doctor account.
type DoctorProfile struct {
	DepartmentID string
	Specialty    string
	Title        string
	Phone        string
	Bio          string
}

type doctorAssignment struct {
	userID string
	DoctorProfile
}

// InMemoryStore is a mutex guarded Store used by tests and local development.
type InMemoryStore struct {
	mu           sync.RWMutex
	now          func() time.Time
	users        map[string]User
	hospitals    []Hospital
	departments  []Department
	assignments  []doctorAssignment
	templates    []AvailabilitySlot
	appointments []Appointment
}

// NewInMemoryStore creates an empty in-memory schedule store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		now:   time.Now,
		users: make(map[string]User),
	}
}

// WithClock overrides the time source used for dateless availability.
func (s *InMemoryStore) WithClock(now func() time.Time) *InMemoryStore {
	if now != nil {
		s.now = now
	}
	return s
}

// AddUser registers an account.
func (s *InMemoryStore) AddUser(u User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.Role == "" {
		u.Role = RoleUser
	}
	s.users[u.ID] = u
}

// AddHospital registers a hospital.
func (s *InMemoryStore) AddHospital(h Hospital) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hospitals = append(s.hospitals, h)
}

// AddDepartment registers a department under its hospital.
func (s *InMemoryStore) AddDepartment(d Department) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.departments = append(s.departments, d)
}

// AddDoctor registers a doctor account and its department assignment.
func (s *InMemoryStore) AddDoctor(u User, profile DoctorProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.Role = RoleDoctor
	s.users[u.ID] = u
	s.assignments = append(s.assignments, doctorAssignment{userID: u.ID, DoctorProfile: profile})
}

// AddTemplateSlot inserts one weekly template row, ignoring duplicates of
// (doctor, day, start).
func (s *InMemoryStore) AddTemplateSlot(slot AvailabilitySlot) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addTemplateLocked(slot)
}

// SetAppointmentStatus changes the status of a stored appointment.
func (s *InMemoryStore) SetAppointmentStatus(id string, status AppointmentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.appointments {
		if s.appointments[i].ID == id {
			s.appointments[i].Status = status
			return nil
		}
	}
	return ErrNotFound
}

// Appointments returns a copy of every stored appointment.
func (s *InMemoryStore) Appointments() []Appointment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Appointment, len(s.appointments))
	copy(out, s.appointments)
	return out
}

func (s *InMemoryStore) addTemplateLocked(slot AvailabilitySlot) bool {
	for _, existing := range s.templates {
		if existing.DoctorID == slot.DoctorID &&
			existing.DayOfWeek == slot.DayOfWeek &&
			existing.StartTime == slot.StartTime {
			return false
		}
	}
	if slot.ID == "" {
		slot.ID = uuid.NewString()
	}
	s.templates = append(s.templates, slot)
	return true
}

func (s *InMemoryStore) ListHospitals(ctx context.Context) ([]Hospital, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Hospital, len(s.hospitals))
	copy(out, s.hospitals)
	return out, nil
}

func (s *InMemoryStore) ListDoctors(ctx context.Context, filter DoctorFilter) ([]Doctor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Doctor
	for _, a := range s.assignments {
		u, ok := s.users[a.userID]
		if !ok || u.Role != RoleDoctor {
			continue
		}
		dept, ok := s.departmentLocked(a.DepartmentID)
		if !ok {
			continue
		}
		if filter.DepartmentID != "" && a.DepartmentID != filter.DepartmentID {
			continue
		}
		if filter.HospitalID != "" && dept.HospitalID != filter.HospitalID {
			continue
		}
		out = append(out, Doctor{
			UserID:         u.ID,
			Username:       u.Username,
			Email:          u.Email,
			DepartmentID:   dept.ID,
			DepartmentName: dept.Name,
			Specialty:      a.Specialty,
			Title:          a.Title,
			Phone:          a.Phone,
			Bio:            a.Bio,
		})
	}
	return out, nil
}

func (s *InMemoryStore) WeeklyAvailability(ctx context.Context, doctorID string, date *time.Time) ([]SlotStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var templates []AvailabilitySlot
	for _, slot := range s.templates {
		if slot.DoctorID != doctorID {
			continue
		}
		if date != nil && !strings.EqualFold(slot.DayOfWeek, date.Weekday().String()) {
			continue
		}
		templates = append(templates, slot)
	}
	dates, err := slotDates(templates, date, s.now())
	if err != nil {
		return nil, err
	}
	booked := make(map[slotKey]bool)
	for _, appt := range s.appointments {
		if appt.DoctorID == doctorID && appt.Status != StatusCancelled {
			booked[slotKey{date: appt.AppointmentDate, start: appt.StartTime}] = true
		}
	}
	return annotateSlots(templates, dates, booked), nil
}

func (s *InMemoryStore) ListDepartmentNames(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.departments))
	for _, d := range s.departments {
		names = append(names, d.Name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *InMemoryStore) ResolveDepartmentByName(ctx context.Context, name string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.departments {
		if strings.EqualFold(d.Name, strings.TrimSpace(name)) {
			return d.ID, nil
		}
	}
	return "", ErrNotFound
}

func (s *InMemoryStore) ResolveDepartmentHospital(ctx context.Context, departmentID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	dept, ok := s.departmentLocked(departmentID)
	if !ok || dept.HospitalID == "" {
		return "", ErrNotFound
	}
	return dept.HospitalID, nil
}

func (s *InMemoryStore) ResolveDoctorByUsername(ctx context.Context, username string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Username == username && u.Role == RoleDoctor {
			return u.ID, nil
		}
	}
	return "", ErrNotFound
}

func (s *InMemoryStore) DoctorDepartment(ctx context.Context, doctorID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.assignments {
		if a.userID == doctorID {
			return a.DepartmentID, nil
		}
	}
	return "", ErrNotFound
}

func (s *InMemoryStore) GetDoctorUser(ctx context.Context, doctorID string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[doctorID]
	if !ok || u.Role != RoleDoctor {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (s *InMemoryStore) GetDepartment(ctx context.Context, departmentID string) (*Department, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	dept, ok := s.departmentLocked(departmentID)
	if !ok {
		return nil, ErrNotFound
	}
	return &dept, nil
}

func (s *InMemoryStore) GetHospital(ctx context.Context, hospitalID string) (*Hospital, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, h := range s.hospitals {
		if h.ID == hospitalID {
			h := h
			return &h, nil
		}
	}
	return nil, ErrNotFound
}

func (s *InMemoryStore) GetUser(ctx context.Context, userID string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (s *InMemoryStore) FindTemplateSlot(ctx context.Context, doctorID, dayOfWeek, start, end string) (*AvailabilitySlot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, slot := range s.templates {
		if slot.DoctorID == doctorID &&
			strings.EqualFold(slot.DayOfWeek, dayOfWeek) &&
			slot.StartTime == start &&
			slot.EndTime == end {
			slot := slot
			return &slot, nil
		}
	}
	return nil, ErrNotFound
}

func (s *InMemoryStore) HasActiveAppointment(ctx context.Context, doctorID, date, start string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeLocked(doctorID, date, start), nil
}

func (s *InMemoryStore) BookSlot(ctx context.Context, appt NewAppointment) (*Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeLocked(appt.DoctorID, appt.AppointmentDate, appt.StartTime) {
		return nil, ErrSlotTaken
	}
	row := Appointment{
		ID:              uuid.NewString(),
		UserID:          appt.UserID,
		DoctorID:        appt.DoctorID,
		DepartmentID:    appt.DepartmentID,
		HospitalID:      appt.HospitalID,
		AppointmentDate: appt.AppointmentDate,
		StartTime:       appt.StartTime,
		EndTime:         appt.EndTime,
		Status:          StatusScheduled,
		CreatedAt:       s.now().UTC(),
	}
	s.appointments = append(s.appointments, row)
	return &row, nil
}

func (s *InMemoryStore) CreateDoctorTemplate(ctx context.Context, doctorID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	added := 0
	for _, slot := range GenerateWeeklyTemplate(doctorID) {
		if s.addTemplateLocked(slot) {
			added++
		}
	}
	return added, nil
}

func (s *InMemoryStore) departmentLocked(id string) (Department, bool) {
	for _, d := range s.departments {
		if d.ID == id {
			return d, true
		}
	}
	return Department{}, false
}

func (s *InMemoryStore) activeLocked(doctorID, date, start string) bool {
	for _, a := range s.appointments {
		if a.DoctorID == doctorID && a.AppointmentDate == date && a.StartTime == start && a.Status != StatusCancelled {
			return true
		}
	}
	return false
}

var _ Store = (*InMemoryStore)(nil)
