// Package llmtest provides scripted llm.Client doubles for tests.
package llmtest

import (
	"context"
	"errors"
	"sync"

	"github.com/healthsync/healthsync-api/internal/llm"
)

// Scripted replays responses in order. Once the script is exhausted the
// last entry repeats.
type Scripted struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	requests  []llm.Request
}

// Reply returns a client answering every call with text, in order.
func Reply(texts ...string) *Scripted {
	return &Scripted{responses: texts}
}

// Fail returns a client whose every call fails with err.
func Fail(err error) *Scripted {
	return &Scripted{errs: []error{err}}
}

func (s *Scripted) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.requests)
	s.requests = append(s.requests, req)

	if err := ctx.Err(); err != nil {
		return llm.Response{}, err
	}
	if len(s.errs) > 0 {
		return llm.Response{}, s.errs[min(n, len(s.errs)-1)]
	}
	if len(s.responses) == 0 {
		return llm.Response{}, errors.New("llmtest: no scripted response")
	}
	return llm.Response{Text: s.responses[min(n, len(s.responses)-1)]}, nil
}

// Requests returns every request received so far.
func (s *Scripted) Requests() []llm.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]llm.Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// Calls reports how many completions were requested.
func (s *Scripted) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}
