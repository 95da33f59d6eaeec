package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/healthsync/healthsync-api/internal/llm"
	"github.com/healthsync/healthsync-api/internal/observability/metrics"
	"github.com/healthsync/healthsync-api/internal/schedule"
	"github.com/healthsync/healthsync-api/pkg/logging"
)

// DepartmentResult is either a populated doctor list or a non-empty Error.
type DepartmentResult struct {
	DepartmentName string            `json:"department_name,omitempty"`
	DepartmentID   string            `json:"department_id,omitempty"`
	Doctors        []schedule.Doctor `json:"doctors"`
	Error          string            `json:"error,omitempty"`
}

// DepartmentAgent infers the department treating a condition and lists its
// doctors with availability.
type DepartmentAgent struct {
	llm         llm.Client
	store       schedule.Store
	temperature float32
	logger      *logging.Logger
	metrics     *metrics.AgentMetrics
}

func NewDepartmentAgent(client llm.Client, store schedule.Store, temperature float32, logger *logging.Logger, m *metrics.AgentMetrics) *DepartmentAgent {
	if logger == nil {
		logger = logging.Default()
	}
	return &DepartmentAgent{llm: client, store: store, temperature: temperature, logger: logger, metrics: m}
}

// Infer returns an error only for storage failures. Completion failures and
// unknown department names are reported in DepartmentResult.Error together
// with the list of valid departments.
func (a *DepartmentAgent) Infer(ctx context.Context, condition string) (DepartmentResult, error) {
	departments, err := a.store.ListDepartmentNames(ctx)
	if err != nil {
		return DepartmentResult{}, fmt.Errorf("agent: list departments: %w", err)
	}
	available := strings.Join(departments, ", ")

	name := a.inferName(ctx, departments, condition)
	if name == "" {
		return DepartmentResult{
			Error: fmt.Sprintf("Could not determine department for condition '%s'. Available departments: %s.", condition, available),
		}, nil
	}

	departmentID, err := a.store.ResolveDepartmentByName(ctx, name)
	if errors.Is(err, schedule.ErrNotFound) {
		return DepartmentResult{
			DepartmentName: name,
			Error:          fmt.Sprintf("No department found for '%s'. Available departments: %s.", name, available),
		}, nil
	}
	if err != nil {
		return DepartmentResult{}, fmt.Errorf("agent: resolve department: %w", err)
	}

	doctors, err := doctorsWithAvailability(ctx, a.store, departmentID)
	if err != nil {
		return DepartmentResult{}, err
	}
	if len(doctors) == 0 {
		return DepartmentResult{
			DepartmentName: name,
			DepartmentID:   departmentID,
			Error:          fmt.Sprintf("No doctors found in the %s department.", name),
		}, nil
	}
	return DepartmentResult{DepartmentName: name, DepartmentID: departmentID, Doctors: doctors}, nil
}

func (a *DepartmentAgent) inferName(ctx context.Context, departments []string, condition string) string {
	started := time.Now()
	resp, err := a.llm.Complete(ctx, llm.Prompt("", departmentPrompt(departments, condition), a.temperature))
	a.metrics.ObserveLLMLatency("department", time.Since(started).Seconds())
	if err != nil {
		a.logger.Warn("department: completion failed", "error", err)
		a.metrics.ObserveFallback("department")
		return ""
	}
	a.logger.Debug("department: raw completion", "text", resp.Text)

	var reply struct {
		DepartmentName *string `json:"department_name"`
	}
	if err := llm.DecodeJSON(resp.Text, &reply); err != nil {
		a.logger.Warn("department: unparseable completion", "error", err)
		a.metrics.ObserveFallback("department")
		return ""
	}
	if reply.DepartmentName == nil {
		return ""
	}
	return strings.TrimSpace(*reply.DepartmentName)
}

// doctorsWithAvailability lists a department's doctors with their next-week
// availability attached.
func doctorsWithAvailability(ctx context.Context, store schedule.Store, departmentID string) ([]schedule.Doctor, error) {
	doctors, err := store.ListDoctors(ctx, schedule.DoctorFilter{DepartmentID: departmentID})
	if err != nil {
		return nil, fmt.Errorf("agent: list doctors: %w", err)
	}
	for i := range doctors {
		slots, err := store.WeeklyAvailability(ctx, doctors[i].UserID, nil)
		if err != nil {
			return nil, fmt.Errorf("agent: availability for %s: %w", doctors[i].Username, err)
		}
		doctors[i].Availability = slots
	}
	return doctors, nil
}
