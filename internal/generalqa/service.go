// Package generalqa answers general medical questions with a short per-user
// conversation memory.
package generalqa

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/healthsync/healthsync-api/internal/llm"
	"github.com/healthsync/healthsync-api/pkg/logging"
)

// NoAnswer is returned when the model produces no text.
const NoAnswer = "No answer found."

const systemPrompt = `You are a medical information assistant for a hospital network.
Answer general health questions clearly and briefly in plain language.
You do not diagnose. Suggest seeing a doctor when symptoms sound serious.
Use the earlier turns of the conversation for context when they are relevant.`

// Service answers questions that need no schedule data.
type Service struct {
	llm         llm.Client
	history     HistoryStore
	limit       int
	temperature float32
	logger      *logging.Logger
	now         func() time.Time
}

// NewService builds a Service. A nil history disables conversation memory.
func NewService(client llm.Client, history HistoryStore, limit int, temperature float32, logger *logging.Logger) *Service {
	if client == nil {
		panic("generalqa: llm client cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		llm:         client,
		history:     history,
		limit:       limit,
		temperature: temperature,
		logger:      logger,
		now:         time.Now,
	}
}

// Answer replies to query using the user's recent exchanges. History
// failures are logged and never fail the answer.
func (s *Service) Answer(ctx context.Context, query, userID string) (string, error) {
	var past []Exchange
	if s.history != nil {
		recent, err := s.history.Recent(ctx, userID, s.limit)
		if err != nil {
			s.logger.Warn("generalqa: history unavailable", "error", err, "user_id", userID)
		}
		past = recent
	}

	messages := make([]llm.Message, 0, 2*len(past)+1)
	for _, ex := range past {
		messages = append(messages,
			llm.Message{Role: llm.RoleUser, Content: ex.Query},
			llm.Message{Role: llm.RoleAssistant, Content: ex.Response},
		)
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: query})

	resp, err := s.llm.Complete(ctx, llm.Request{
		System:      []string{systemPrompt},
		Messages:    messages,
		Temperature: s.temperature,
	})
	if err != nil && !errors.Is(err, llm.ErrEmptyCompletion) {
		return "", fmt.Errorf("generalqa: completion: %w", err)
	}

	answer := strings.TrimSpace(resp.Text)
	if answer == "" {
		answer = NoAnswer
	}

	if s.history != nil {
		ex := Exchange{Query: query, Response: answer, CreatedAt: s.now().UTC()}
		if err := s.history.Append(ctx, userID, ex); err != nil {
			s.logger.Warn("generalqa: failed to store exchange", "error", err, "user_id", userID)
		}
	}
	return answer, nil
}
