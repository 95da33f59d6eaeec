package schedule

import (
	"time"
)

// Layouts used for the textual date and time columns.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// Roles a user account can hold.
const (
	RoleUser   = "user"
	RoleDoctor = "doctor"
)

// AppointmentStatus is the lifecycle state of an appointment.
type AppointmentStatus string

const (
	StatusScheduled AppointmentStatus = "scheduled"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
)

// User is the subset of an account the booking flow needs.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role"`
}

// Hospital owns departments.
type Hospital struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Address string  `json:"address"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
}

// Department belongs to exactly one hospital.
type Department struct {
	ID         string `json:"id"`
	HospitalID string `json:"hospital_id"`
	Name       string `json:"name"`
}

// Doctor is a doctor account joined with its department assignment.
type Doctor struct {
	UserID         string       `json:"user_id"`
	Username       string       `json:"username"`
	Email          string       `json:"email"`
	DepartmentID   string       `json:"department_id"`
	DepartmentName string       `json:"department_name"`
	Specialty      string       `json:"specialty"`
	Title          string       `json:"title"`
	Phone          string       `json:"phone"`
	Bio            string       `json:"bio"`
	Availability   []SlotStatus `json:"availability,omitempty"`
}

// AvailabilitySlot is one row of a doctor's recurring weekly template.
type AvailabilitySlot struct {
	ID        string `json:"id"`
	DoctorID  string `json:"doctor_id"`
	DayOfWeek string `json:"day_of_week"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// SlotStatus is a template slot annotated with its booking state for a concrete date.
type SlotStatus struct {
	ID        string `json:"id"`
	DayOfWeek string `json:"day_of_week"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Date      string `json:"date"`
	IsBooked  bool   `json:"is_booked"`
}

// NewAppointment carries the already validated values for an insert.
type NewAppointment struct {
	UserID          string
	DoctorID        string
	DepartmentID    string
	HospitalID      string
	AppointmentDate string
	StartTime       string
	EndTime         string
}

// Appointment is the denormalized booking record returned to callers.
type Appointment struct {
	ID              string            `json:"id"`
	UserID          string            `json:"user_id"`
	Username        string            `json:"username"`
	DoctorID        string            `json:"doctor_id"`
	DoctorUsername  string            `json:"doctor_username"`
	DepartmentID    string            `json:"department_id"`
	DepartmentName  string            `json:"department_name"`
	HospitalID      string            `json:"hospital_id"`
	AppointmentDate string            `json:"appointment_date"`
	StartTime       string            `json:"start_time"`
	EndTime         string            `json:"end_time"`
	Status          AppointmentStatus `json:"status"`
	CreatedAt       time.Time         `json:"created_at"`
}

// DoctorFilter narrows ListDoctors. Empty fields are ignored.
type DoctorFilter struct {
	DepartmentID string
	HospitalID   string
}
