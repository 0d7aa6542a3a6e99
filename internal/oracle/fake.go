package oracle

import (
	"context"
	"fmt"
	"sync"
)

// Scripted is an in-memory oracle for tests. Responses are served in FIFO
// order; an exhausted script fails the call. Every request is recorded so
// tests can assert on prompt contents.
type Scripted struct {
	mu        sync.Mutex
	responses []scriptedResponse
	calls     []ScriptedCall
}

type scriptedResponse struct {
	text string
	err  error
}

// ScriptedCall records one completion request.
type ScriptedCall struct {
	Model    string
	Messages []Message
	Options  Options
}

// NewScripted creates a scripted oracle preloaded with responses.
func NewScripted(responses ...string) *Scripted {
	s := &Scripted{}
	for _, r := range responses {
		s.Enqueue(r)
	}
	return s
}

// Enqueue appends a successful response to the script.
func (s *Scripted) Enqueue(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses = append(s.responses, scriptedResponse{text: text})
}

// EnqueueError appends a failing response to the script.
func (s *Scripted) EnqueueError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses = append(s.responses, scriptedResponse{err: err})
}

// Calls returns a copy of all recorded requests.
func (s *Scripted) Calls() []ScriptedCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ScriptedCall, len(s.calls))
	copy(out, s.calls)
	return out
}

// CallCount returns how many completions have been requested.
func (s *Scripted) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

// Complete implements Oracle.
func (s *Scripted) Complete(ctx context.Context, model string, messages []Message, opts Options) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, ScriptedCall{Model: model, Messages: messages, Options: opts})

	if len(s.responses) == 0 {
		return "", fmt.Errorf("scripted oracle exhausted after %d calls", len(s.calls))
	}
	next := s.responses[0]
	s.responses = s.responses[1:]
	if next.err != nil {
		return "", next.err
	}
	return next.text, nil
}

// CompleteJSON implements Oracle.
func (s *Scripted) CompleteJSON(ctx context.Context, model string, messages []Message, opts Options) (map[string]any, error) {
	opts.JSONMode = true
	text, err := s.Complete(ctx, model, messages, opts)
	if err != nil {
		return nil, err
	}
	return ParseJSONObject(text)
}
