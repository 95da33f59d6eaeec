package schedule

import "errors"

var (
	// ErrNotFound is returned when a lookup matches no row
	ErrNotFound = errors.New("schedule: not found")

	// ErrSlotTaken is returned when a non-cancelled appointment already holds the doctor's slot
	ErrSlotTaken = errors.New("schedule: slot already booked")

	// ErrInvalidDate is returned when a date is not in YYYY-MM-DD form
	ErrInvalidDate = errors.New("schedule: invalid date")

	// ErrInvalidWeekday is returned for day names outside Monday..Sunday
	ErrInvalidWeekday = errors.New("schedule: invalid day of week")
)
