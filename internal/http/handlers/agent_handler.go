package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/healthsync/healthsync-api/internal/agent"
	"github.com/healthsync/healthsync-api/internal/http/middleware"
	"github.com/healthsync/healthsync-api/pkg/logging"
)

const maxQueryBody = 16 << 10

// Assistant answers one patient query on behalf of an authenticated user.
type Assistant interface {
	Handle(ctx context.Context, query, userID string) agent.Response
}

type chatRequest struct {
	Query string `json:"query"`
}

// AgentHandler serves the chatbot endpoint.
type AgentHandler struct {
	assistant Assistant
	logger    *logging.Logger
}

func NewAgentHandler(assistant Assistant, logger *logging.Logger) *AgentHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AgentHandler{assistant: assistant, logger: logger}
}

// Chat handles POST /chatbot. The agent always produces a reply, so the only
// failures surfaced here are a missing identity or an unreadable body.
func (h *AgentHandler) Chat(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		jsonError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req chatRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxQueryBody))
	if err := dec.Decode(&req); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		jsonError(w, "query is required", http.StatusBadRequest)
		return
	}

	resp := h.assistant.Handle(r.Context(), query, userID)
	h.logger.Debug("chatbot reply", "user_id", userID, "query_len", len(query))
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func jsonError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, map[string]string{"error": msg})
}
