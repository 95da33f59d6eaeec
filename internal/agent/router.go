package agent

import (
	"context"
	"strings"
	"time"

	"github.com/healthsync/healthsync-api/internal/llm"
	"github.com/healthsync/healthsync-api/internal/observability/metrics"
	"github.com/healthsync/healthsync-api/internal/schedule"
	"github.com/healthsync/healthsync-api/pkg/logging"
)

// Action is the routing decision for a query.
type Action string

const (
	ActionAnswerGeneralQuestion Action = "rag_query"
	ActionPerformScheduleAction Action = "db_query"
)

const (
	ToolGetHospitals          = "get_hospitals"
	ToolGetDoctors            = "get_doctors"
	ToolGetDoctorAvailability = "get_doctor_availability"
	ToolBookAppointment       = "book_appointment"
)

// routeLabels maps an intent onto a closed label set so model output cannot
// mint new metric series.
func routeLabels(intent Intent) (action, tool string) {
	switch intent.Action {
	case ActionAnswerGeneralQuestion, ActionPerformScheduleAction:
		action = string(intent.Action)
	default:
		action = "invalid"
	}
	switch intent.Tool {
	case "":
		tool = "none"
	case ToolGetHospitals, ToolGetDoctors, ToolGetDoctorAvailability, ToolBookAppointment:
		tool = intent.Tool
	default:
		tool = "unknown"
	}
	return action, tool
}

// ToolParams are the optional arguments of the generic lookup tools.
type ToolParams struct {
	DepartmentID   string
	HospitalID     string
	DoctorID       string
	DoctorUsername string
	Date           string
}

// Intent is the validated result of routing. Any field the model omitted,
// nulled or sent with a non-string value is empty.
type Intent struct {
	Action          Action
	Query           string
	Tool            string
	Condition       string
	DepartmentName  string
	DoctorUsername  string
	AppointmentDate string
	StartTime       string
	EndTime         string
	Params          ToolParams
}

// generalIntent is the safe default used whenever routing fails.
func generalIntent(query string) Intent {
	return Intent{Action: ActionAnswerGeneralQuestion, Query: query}
}

type routerReply struct {
	Action     string         `json:"action"`
	Parameters map[string]any `json:"parameters"`
}

// Router classifies a free-text query with a single completion round trip.
type Router struct {
	llm         llm.Client
	store       schedule.Store
	temperature float32
	logger      *logging.Logger
	metrics     *metrics.AgentMetrics
}

func NewRouter(client llm.Client, store schedule.Store, temperature float32, logger *logging.Logger, m *metrics.AgentMetrics) *Router {
	if logger == nil {
		logger = logging.Default()
	}
	return &Router{llm: client, store: store, temperature: temperature, logger: logger, metrics: m}
}

// Classify never fails: any storage error, completion error, timeout or
// unparseable reply yields the general-question intent for query.
func (r *Router) Classify(ctx context.Context, query, userID string) Intent {
	departments, err := r.store.ListDepartmentNames(ctx)
	if err != nil {
		r.logger.Error("router: list departments failed", "error", err, "user_id", userID)
		r.metrics.ObserveFallback("router")
		return generalIntent(query)
	}

	started := time.Now()
	resp, err := r.llm.Complete(ctx, llm.Prompt("", routerPrompt(departments, query), r.temperature))
	r.metrics.ObserveLLMLatency("router", time.Since(started).Seconds())
	if err != nil {
		r.logger.Warn("router: completion failed", "error", err, "user_id", userID)
		r.metrics.ObserveFallback("router")
		return generalIntent(query)
	}
	r.logger.Debug("router: raw completion", "text", resp.Text)

	var reply routerReply
	if err := llm.DecodeJSON(resp.Text, &reply); err != nil {
		r.logger.Warn("router: unparseable completion", "error", err, "user_id", userID)
		r.metrics.ObserveFallback("router")
		return generalIntent(query)
	}
	return parseIntent(reply, query)
}

func parseIntent(reply routerReply, query string) Intent {
	p := reply.Parameters
	intent := Intent{
		Action:          Action(strings.TrimSpace(reply.Action)),
		Query:           stringField(p, "query"),
		Tool:            stringField(p, "tool"),
		Condition:       stringField(p, "condition"),
		DepartmentName:  stringField(p, "department_name"),
		DoctorUsername:  stringField(p, "doctor_username"),
		AppointmentDate: stringField(p, "appointment_date"),
		StartTime:       stringField(p, "start_time"),
		EndTime:         stringField(p, "end_time"),
	}
	if intent.Query == "" {
		intent.Query = query
	}
	if params, ok := p["params"].(map[string]any); ok {
		intent.Params = ToolParams{
			DepartmentID:   stringField(params, "department_id"),
			HospitalID:     stringField(params, "hospital_id"),
			DoctorID:       stringField(params, "doctor_id"),
			DoctorUsername: stringField(params, "doctor_username"),
			Date:           stringField(params, "date"),
		}
	}
	return intent
}

func stringField(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return strings.TrimSpace(s)
}
