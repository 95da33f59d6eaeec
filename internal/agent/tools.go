package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/healthsync/healthsync-api/internal/schedule"
)

// toolFunc runs one registered lookup. A string result is a message for the
// user; an error is unexpected and ends up in the generic error response.
type toolFunc func(ctx context.Context, intent Intent) (any, error)

func newToolTable(store schedule.Store) map[string]toolFunc {
	return map[string]toolFunc{
		ToolGetHospitals:          getHospitals(store),
		ToolGetDoctors:            getDoctors(store),
		ToolGetDoctorAvailability: getDoctorAvailability(store),
	}
}

func getHospitals(store schedule.Store) toolFunc {
	return func(ctx context.Context, _ Intent) (any, error) {
		hospitals, err := store.ListHospitals(ctx)
		if err != nil {
			return nil, err
		}
		if hospitals == nil {
			hospitals = []schedule.Hospital{}
		}
		return hospitals, nil
	}
}

func getDoctors(store schedule.Store) toolFunc {
	return func(ctx context.Context, intent Intent) (any, error) {
		if intent.DepartmentName != "" && intent.Condition == "" {
			return doctorsByDepartmentName(ctx, store, intent.DepartmentName)
		}
		doctors, err := store.ListDoctors(ctx, schedule.DoctorFilter{
			DepartmentID: intent.Params.DepartmentID,
			HospitalID:   intent.Params.HospitalID,
		})
		if err != nil {
			return nil, err
		}
		if doctors == nil {
			doctors = []schedule.Doctor{}
		}
		return doctors, nil
	}
}

func doctorsByDepartmentName(ctx context.Context, store schedule.Store, name string) (any, error) {
	departmentID, err := store.ResolveDepartmentByName(ctx, name)
	if errors.Is(err, schedule.ErrNotFound) {
		names, err := store.ListDepartmentNames(ctx)
		if err != nil {
			return nil, err
		}
		return fmt.Sprintf("No department found for %s. Please try again with a valid department. Available departments: %s.",
			name, joinNames(names)), nil
	}
	if err != nil {
		return nil, err
	}

	doctors, err := doctorsWithAvailability(ctx, store, departmentID)
	if err != nil {
		return nil, err
	}
	if len(doctors) == 0 {
		return fmt.Sprintf("No doctors found in the %s department.", name), nil
	}
	return doctors, nil
}

func getDoctorAvailability(store schedule.Store) toolFunc {
	return func(ctx context.Context, intent Intent) (any, error) {
		doctorID := intent.Params.DoctorID
		if doctorID == "" {
			username := intent.Params.DoctorUsername
			if username == "" {
				username = intent.DoctorUsername
			}
			if username == "" {
				return "Availability lookup requires a doctor username.", nil
			}
			id, err := store.ResolveDoctorByUsername(ctx, username)
			if errors.Is(err, schedule.ErrNotFound) {
				return fmt.Sprintf("No doctor found with username '%s'.", username), nil
			}
			if err != nil {
				return nil, err
			}
			doctorID = id
		}

		var date *time.Time
		raw := intent.Params.Date
		if raw == "" {
			raw = intent.AppointmentDate
		}
		if raw != "" {
			parsed, err := schedule.ParseDate(raw)
			if err != nil {
				return fmt.Sprintf("Invalid appointment date '%s'. Use the YYYY-MM-DD format.", raw), nil
			}
			date = &parsed
		}

		slots, err := store.WeeklyAvailability(ctx, doctorID, date)
		if err != nil {
			return nil, err
		}
		if slots == nil {
			slots = []schedule.SlotStatus{}
		}
		return slots, nil
	}
}

func joinNames(names []string) string {
	return strings.Join(names, ", ")
}
