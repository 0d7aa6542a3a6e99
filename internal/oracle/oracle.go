// Package oracle abstracts the LLM provider behind a narrow completion
// interface. Agents never talk to a provider SDK directly; they hold an
// Oracle handle so prompts stay isolated per agent and tests can substitute a
// scripted implementation.
package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrParse indicates CompleteJSON received text that is not parseable JSON.
var ErrParse = errors.New("completion is not valid JSON")

// Message roles understood by completion providers.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one prompt entry.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Options tune a single completion call.
type Options struct {
	Temperature float64
	MaxTokens   int
	JSONMode    bool
}

// Oracle is the completion interface every agent depends on.
type Oracle interface {
	// Complete returns the raw completion text.
	Complete(ctx context.Context, model string, messages []Message, opts Options) (string, error)

	// CompleteJSON returns the completion parsed as a JSON object. Fails with
	// an error matching ErrParse if the returned text is not parseable.
	CompleteJSON(ctx context.Context, model string, messages []Message, opts Options) (map[string]any, error)
}

// ParseJSONObject parses completion text into a JSON object, tolerating the
// markdown code fences models habitually wrap JSON in.
func ParseJSONObject(text string) (map[string]any, error) {
	cleaned := StripFences(text)
	var out map[string]any
	if err := json.Unmarshal([]byte(cleaned), &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return out, nil
}

// StripFences removes a surrounding ```json ... ``` (or bare ```) fence.
func StripFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.Index(trimmed, "\n"); idx >= 0 {
		// Drop the language tag line ("json", "JSON", or empty).
		trimmed = trimmed[idx+1:]
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
