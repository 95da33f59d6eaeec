package schedule

import (
	"context"
	"time"
)

// Store is the read/write surface the booking agent needs from the schedule database.
// Lookups that match nothing return ErrNotFound.
type Store interface {
	ListHospitals(ctx context.Context) ([]Hospital, error)
	ListDoctors(ctx context.Context, filter DoctorFilter) ([]Doctor, error)
	// WeeklyAvailability returns the doctor's template rows with booking status.
	// A nil date restricts nothing and evaluates each row on its next occurrence.
	WeeklyAvailability(ctx context.Context, doctorID string, date *time.Time) ([]SlotStatus, error)

	ListDepartmentNames(ctx context.Context) ([]string, error)
	ResolveDepartmentByName(ctx context.Context, name string) (string, error)
	ResolveDepartmentHospital(ctx context.Context, departmentID string) (string, error)
	ResolveDoctorByUsername(ctx context.Context, username string) (string, error)
	DoctorDepartment(ctx context.Context, doctorID string) (string, error)

	GetDoctorUser(ctx context.Context, doctorID string) (*User, error)
	GetDepartment(ctx context.Context, departmentID string) (*Department, error)
	GetHospital(ctx context.Context, hospitalID string) (*Hospital, error)
	GetUser(ctx context.Context, userID string) (*User, error)

	FindTemplateSlot(ctx context.Context, doctorID, dayOfWeek, start, end string) (*AvailabilitySlot, error)
	HasActiveAppointment(ctx context.Context, doctorID, date, start string) (bool, error)
	// BookSlot inserts a scheduled appointment. The uniqueness of a non-cancelled
	// (doctor, date, start) is enforced by the store itself; a losing writer
	// receives ErrSlotTaken.
	BookSlot(ctx context.Context, appt NewAppointment) (*Appointment, error)

	// CreateDoctorTemplate persists the default weekly template for a doctor and
	// reports how many rows were added.
	CreateDoctorTemplate(ctx context.Context, doctorID string) (int, error)
}
