package agent

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/healthsync/healthsync-api/internal/schedule"
	"github.com/healthsync/healthsync-api/pkg/logging"
)

var agentTracer = otel.Tracer("healthsync.internal.agent")

// BookRequest identifies a slot by fully resolved ids.
type BookRequest struct {
	UserID       string
	DoctorID     string
	DepartmentID string
	HospitalID   string
	Date         string
	StartTime    string
	EndTime      string
}

// BookingCoordinator validates a requested slot against the schedule and
// writes the appointment.
type BookingCoordinator struct {
	store  schedule.Store
	logger *logging.Logger
}

func NewBookingCoordinator(store schedule.Store, logger *logging.Logger) *BookingCoordinator {
	if store == nil {
		panic("agent: schedule store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &BookingCoordinator{store: store, logger: logger}
}

// Book checks doctor, department, hospital, weekly template, existing
// bookings and patient in that order, then inserts. Every failure is a
// *BookingError.
func (c *BookingCoordinator) Book(ctx context.Context, req BookRequest) (*schedule.Appointment, error) {
	ctx, span := agentTracer.Start(ctx, "agent.book", trace.WithAttributes(
		attribute.String("healthsync.doctor_id", req.DoctorID),
		attribute.String("healthsync.appointment_date", req.Date),
		attribute.String("healthsync.start_time", req.StartTime),
	))
	defer span.End()

	appt, err := c.book(ctx, req)
	if err != nil {
		var be *BookingError
		if errors.As(err, &be) && be.Reason == ReasonInternal {
			span.RecordError(err)
		}
		span.SetAttributes(attribute.String("healthsync.booking_outcome", string(reasonOf(err))))
		return nil, err
	}
	span.SetAttributes(attribute.String("healthsync.booking_outcome", "booked"))
	return appt, nil
}

func (c *BookingCoordinator) book(ctx context.Context, req BookRequest) (*schedule.Appointment, error) {
	doctor, err := c.store.GetDoctorUser(ctx, req.DoctorID)
	if err != nil {
		return nil, lookupErr(err, ReasonDoctorNotFound, req.DoctorID)
	}
	department, err := c.store.GetDepartment(ctx, req.DepartmentID)
	if err != nil {
		return nil, lookupErr(err, ReasonDepartmentNotFound, req.DepartmentID)
	}
	if _, err := c.store.GetHospital(ctx, req.HospitalID); err != nil {
		return nil, lookupErr(err, ReasonHospitalNotFound, req.HospitalID)
	}

	weekday, err := schedule.WeekdayOf(req.Date)
	if err != nil {
		return nil, bookingErr(ReasonInvalidDate, req.Date)
	}
	if _, err := c.store.FindTemplateSlot(ctx, doctor.ID, weekday, req.StartTime, req.EndTime); err != nil {
		return nil, lookupErr(err, ReasonSlotNotAvailable, weekday+" "+req.StartTime+"-"+req.EndTime)
	}

	taken, err := c.store.HasActiveAppointment(ctx, doctor.ID, req.Date, req.StartTime)
	if err != nil {
		return nil, internalErr(err)
	}
	if taken {
		return nil, bookingErr(ReasonSlotAlreadyBooked, req.Date+" "+req.StartTime)
	}

	patient, err := c.store.GetUser(ctx, req.UserID)
	if err != nil {
		return nil, lookupErr(err, ReasonUserNotFound, req.UserID)
	}

	appt, err := c.store.BookSlot(ctx, schedule.NewAppointment{
		UserID:          patient.ID,
		DoctorID:        doctor.ID,
		DepartmentID:    department.ID,
		HospitalID:      req.HospitalID,
		AppointmentDate: req.Date,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
	})
	if err != nil {
		if errors.Is(err, schedule.ErrSlotTaken) {
			return nil, bookingErr(ReasonSlotAlreadyBooked, req.Date+" "+req.StartTime)
		}
		return nil, internalErr(err)
	}

	appt.Username = patient.Username
	appt.DoctorUsername = doctor.Username
	appt.DepartmentName = department.Name
	c.logger.Info("appointment booked",
		"appointment_id", appt.ID,
		"doctor_id", appt.DoctorID,
		"appointment_date", appt.AppointmentDate,
		"start_time", appt.StartTime,
	)
	return appt, nil
}

// BookByUsername resolves a doctor's username to its department and hospital
// before delegating to Book. Date and times are validated before any storage
// access.
func (c *BookingCoordinator) BookByUsername(ctx context.Context, userID, doctorUsername, date, startTime, endTime string) (*schedule.Appointment, error) {
	doctorUsername = strings.TrimSpace(doctorUsername)
	date = strings.TrimSpace(date)

	var missing []string
	for _, f := range []struct{ name, value string }{
		{"doctor username", doctorUsername},
		{"date", date},
		{"start time", startTime},
		{"end time", endTime},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return nil, bookingErr(ReasonMissingFields, strings.Join(missing, ", "))
	}

	if _, err := schedule.ParseDate(date); err != nil {
		return nil, bookingErr(ReasonInvalidDate, date)
	}
	start, err := schedule.ParseClock(startTime)
	if err != nil {
		return nil, bookingErr(ReasonInvalidStartTime, startTime)
	}
	end, err := schedule.ParseClock(endTime)
	if err != nil {
		return nil, bookingErr(ReasonInvalidEndTime, endTime)
	}

	doctorID, err := c.store.ResolveDoctorByUsername(ctx, doctorUsername)
	if err != nil {
		return nil, lookupErr(err, ReasonUnknownDoctorUsername, doctorUsername)
	}
	departmentID, err := c.store.DoctorDepartment(ctx, doctorID)
	if err != nil {
		return nil, lookupErr(err, ReasonDoctorWithoutDepartment, doctorUsername)
	}
	hospitalID, err := c.store.ResolveDepartmentHospital(ctx, departmentID)
	if err != nil {
		return nil, lookupErr(err, ReasonDepartmentWithoutHospital, departmentID)
	}

	return c.Book(ctx, BookRequest{
		UserID:       userID,
		DoctorID:     doctorID,
		DepartmentID: departmentID,
		HospitalID:   hospitalID,
		Date:         date,
		StartTime:    start,
		EndTime:      end,
	})
}

// lookupErr maps schedule.ErrNotFound to reason and anything else to an
// internal failure.
func lookupErr(err error, reason BookingReason, value string) *BookingError {
	if errors.Is(err, schedule.ErrNotFound) {
		return bookingErr(reason, value)
	}
	return internalErr(err)
}

func reasonOf(err error) BookingReason {
	var be *BookingError
	if errors.As(err, &be) {
		return be.Reason
	}
	return ReasonInternal
}
