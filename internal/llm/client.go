// Package llm holds the text-completion clients used by the booking agent.
package llm

import (
	"context"
	"errors"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

var (
	// ErrEmptyCompletion is returned when a provider answers with no text.
	ErrEmptyCompletion = errors.New("llm: empty completion")

	// ErrNoJSON is returned when a completion carries no JSON object.
	ErrNoJSON = errors.New("llm: no json object in completion")
)

// Message is one turn of a prompt.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type TokenUsage struct {
	InputTokens  int32
	OutputTokens int32
	TotalTokens  int32
}

// Request describes one completion call. A negative Temperature leaves the
// provider default in place.
type Request struct {
	Model       string
	System      []string
	Messages    []Message
	MaxTokens   int32
	Temperature float32
}

type Response struct {
	Text       string
	Usage      TokenUsage
	StopReason string
}

// Client is a fallible text-completion service.
type Client interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// Prompt builds a single-turn request.
func Prompt(system, user string, temperature float32) Request {
	req := Request{
		Messages:    []Message{{Role: RoleUser, Content: user}},
		Temperature: temperature,
	}
	if system != "" {
		req.System = []string{system}
	}
	return req
}
