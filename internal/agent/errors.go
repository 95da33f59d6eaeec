package agent

import (
	"fmt"
)

// BookingReason tags why a booking was refused.
type BookingReason string

const (
	ReasonMissingFields             BookingReason = "missing_fields"
	ReasonInvalidDate               BookingReason = "invalid_date"
	ReasonInvalidStartTime          BookingReason = "invalid_start_time"
	ReasonInvalidEndTime            BookingReason = "invalid_end_time"
	ReasonUnknownDoctorUsername     BookingReason = "unknown_doctor_username"
	ReasonDoctorWithoutDepartment   BookingReason = "doctor_without_department"
	ReasonDepartmentWithoutHospital BookingReason = "department_without_hospital"
	ReasonDoctorNotFound            BookingReason = "doctor_not_found"
	ReasonDepartmentNotFound        BookingReason = "department_not_found"
	ReasonHospitalNotFound          BookingReason = "hospital_not_found"
	ReasonSlotNotAvailable          BookingReason = "slot_not_available"
	ReasonSlotAlreadyBooked         BookingReason = "slot_already_booked"
	ReasonUserNotFound              BookingReason = "user_not_found"
	ReasonInternal                  BookingReason = "internal"
)

// BookingError is the single failure type returned by the booking coordinator.
// Value carries the offending input (a username, a date, a list of missing
// fields) and Err the underlying storage error when there is one.
type BookingError struct {
	Reason BookingReason
	Value  string
	Err    error
}

func (e *BookingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("agent: booking %s: %v", e.Reason, e.Err)
	}
	if e.Value != "" {
		return fmt.Sprintf("agent: booking %s: %s", e.Reason, e.Value)
	}
	return "agent: booking " + string(e.Reason)
}

func (e *BookingError) Unwrap() error { return e.Err }

func bookingErr(reason BookingReason, value string) *BookingError {
	return &BookingError{Reason: reason, Value: value}
}

func internalErr(err error) *BookingError {
	return &BookingError{Reason: ReasonInternal, Err: err}
}
