// Package agent routes free-text patient queries to general answers, doctor
// lookups or appointment bookings.
package agent

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/healthsync/healthsync-api/internal/llm"
	"github.com/healthsync/healthsync-api/internal/observability/metrics"
	"github.com/healthsync/healthsync-api/internal/schedule"
	"github.com/healthsync/healthsync-api/pkg/logging"
)

// GeneralAnswerer answers questions that need no schedule data.
type GeneralAnswerer interface {
	Answer(ctx context.Context, query, userID string) (string, error)
}

// Response is the single reply shape: a message string, a doctor list, a
// slot list, a hospital list or a booked appointment.
type Response struct {
	Response any `json:"response"`
}

// Text returns the response when it is a plain message.
func (r Response) Text() (string, bool) {
	s, ok := r.Response.(string)
	return s, ok
}

type Options struct {
	Store       schedule.Store
	LLM         llm.Client
	General     GeneralAnswerer
	Temperature float32
	Logger      *logging.Logger
	Metrics     *metrics.AgentMetrics
}

// Agent is the booking assistant entry point.
type Agent struct {
	router      *Router
	departments *DepartmentAgent
	booking     *BookingCoordinator
	tools       map[string]toolFunc
	general     GeneralAnswerer
	logger      *logging.Logger
	metrics     *metrics.AgentMetrics
}

func New(opts Options) (*Agent, error) {
	if opts.Store == nil {
		return nil, errors.New("agent: schedule store is required")
	}
	if opts.LLM == nil {
		return nil, errors.New("agent: llm client is required")
	}
	if opts.General == nil {
		return nil, errors.New("agent: general answerer is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Default()
	}

	return &Agent{
		router:      NewRouter(opts.LLM, opts.Store, opts.Temperature, logger, opts.Metrics),
		departments: NewDepartmentAgent(opts.LLM, opts.Store, opts.Temperature, logger, opts.Metrics),
		booking:     NewBookingCoordinator(opts.Store, logger),
		tools:       newToolTable(opts.Store),
		general:     opts.General,
		logger:      logger,
		metrics:     opts.Metrics,
	}, nil
}

// Handle never fails. Expected failures come back as messages; unexpected
// errors and panics become "Error processing query: ...".
func (a *Agent) Handle(ctx context.Context, query, userID string) (resp Response) {
	ctx, span := agentTracer.Start(ctx, "agent.handle", trace.WithAttributes(
		attribute.String("healthsync.user_id", userID),
	))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("%v", r)
			a.logger.Error("agent: panic while handling query",
				"panic", r,
				"user_id", userID,
				"stack", string(debug.Stack()),
			)
			span.RecordError(err)
			resp = errorResponse(err)
		}
	}()

	out, err := a.dispatch(ctx, query, userID)
	if err != nil {
		a.logger.Error("agent: query failed", "error", err, "user_id", userID)
		span.RecordError(err)
		return errorResponse(err)
	}
	return Response{Response: out}
}

func (a *Agent) dispatch(ctx context.Context, query, userID string) (any, error) {
	intent := a.router.Classify(ctx, query, userID)
	a.metrics.ObserveRoute(routeLabels(intent))
	a.logger.Info("agent: routed query",
		"action", intent.Action,
		"tool", intent.Tool,
		"user_id", userID,
	)

	switch intent.Action {
	case ActionAnswerGeneralQuestion:
		return a.general.Answer(ctx, intent.Query, userID)
	case ActionPerformScheduleAction:
		return a.performScheduleAction(ctx, intent, userID)
	default:
		return invalidRoutingAction, nil
	}
}

func (a *Agent) performScheduleAction(ctx context.Context, intent Intent, userID string) (any, error) {
	switch {
	case intent.Tool == ToolGetDoctors && intent.Condition != "":
		result, err := a.departments.Infer(ctx, intent.Condition)
		if err != nil {
			return nil, err
		}
		if result.Error != "" {
			return result.Error, nil
		}
		return result.Doctors, nil

	case intent.Tool == ToolBookAppointment:
		appt, err := a.booking.BookByUsername(ctx, userID,
			intent.DoctorUsername, intent.AppointmentDate, intent.StartTime, intent.EndTime)
		if err != nil {
			var be *BookingError
			if !errors.As(err, &be) {
				return nil, err
			}
			a.metrics.ObserveBooking(string(be.Reason))
			if be.Reason == ReasonInternal {
				a.logger.Error("agent: booking failed", "error", be.Err, "user_id", userID)
			}
			return BookingMessage(be), nil
		}
		a.metrics.ObserveBooking("booked")
		return appt, nil
	}

	if intent.Tool == "" {
		return invalidRoutingAction, nil
	}
	tool, ok := a.tools[intent.Tool]
	if !ok {
		return fmt.Sprintf("Tool %s not found.", intent.Tool), nil
	}
	return tool(ctx, intent)
}

// BookingMessage renders a booking failure for display.
func BookingMessage(err *BookingError) string {
	switch err.Reason {
	case ReasonMissingFields:
		return "Booking requires doctor username, date, start time, and end time. Please provide all details. Missing: " + err.Value + "."
	case ReasonInvalidDate:
		return fmt.Sprintf("Invalid appointment date '%s'. Use the YYYY-MM-DD format.", err.Value)
	case ReasonInvalidStartTime:
		return fmt.Sprintf("Invalid start time '%s'. Use the HH:MM format.", err.Value)
	case ReasonInvalidEndTime:
		return fmt.Sprintf("Invalid end time '%s'. Use the HH:MM format.", err.Value)
	case ReasonUnknownDoctorUsername:
		return fmt.Sprintf("No doctor found with username '%s'.", err.Value)
	case ReasonDoctorWithoutDepartment:
		return fmt.Sprintf("No department found for doctor '%s'.", err.Value)
	case ReasonDepartmentWithoutHospital:
		return fmt.Sprintf("No hospital found for department ID '%s'.", err.Value)
	case ReasonDoctorNotFound:
		return "Doctor not found"
	case ReasonDepartmentNotFound:
		return "Department not found"
	case ReasonHospitalNotFound:
		return "Hospital not found"
	case ReasonSlotNotAvailable:
		return "Slot not available"
	case ReasonSlotAlreadyBooked:
		return "Slot already booked"
	case ReasonUserNotFound:
		return "User not found"
	default:
		msg := "unknown error"
		if err.Err != nil {
			msg = err.Err.Error()
		}
		return "Internal error while booking: " + msg
	}
}

const invalidRoutingAction = "Invalid routing action."

func errorResponse(err error) Response {
	return Response{Response: "Error processing query: " + err.Error()}
}
