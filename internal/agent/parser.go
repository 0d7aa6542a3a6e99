package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/scrimlabs/scrim/internal/oracle"
	"github.com/scrimlabs/scrim/internal/schema"
	"github.com/scrimlabs/scrim/pkg/blackboard"
)

// EventParsingComplete is broadcast after parsed_data is written.
const EventParsingComplete = "parsing_complete"

// MaxRawInputBytes bounds the scenario text accepted for extraction.
const MaxRawInputBytes = 50 * 1024

// Parser extracts a normalized ParsedData structure from raw scenario text
// with a single JSON-mode oracle call.
type Parser struct {
	Base
	model string
}

// NewParser creates the parser agent.
func NewParser(board *blackboard.Board, llm oracle.Oracle, model string) *Parser {
	return &Parser{
		Base:  NewBase(blackboard.AgentParser, board, llm),
		model: model,
	}
}

// Execute reads raw_input, extracts the structured scenario, writes
// parsed_data, and broadcasts parsing_complete. Fails with ErrMissingInput if
// raw_input is absent and with oracle errors if extraction fails; both are
// fatal to the build pipeline.
func (p *Parser) Execute(ctx context.Context) (*schema.ParsedData, error) {
	raw, ok := p.read(blackboard.KeyRawInput)
	if !ok {
		return nil, fmt.Errorf("parser requires raw_input: %w", ErrMissingInput)
	}
	text, _ := raw.(string)
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("parser requires non-empty raw_input: %w", ErrMissingInput)
	}
	if len(text) > MaxRawInputBytes {
		return nil, fmt.Errorf("raw_input is %d bytes, limit is %d: %w", len(text), MaxRawInputBytes, ErrInputTooLarge)
	}

	obj, err := p.oracle.CompleteJSON(ctx, p.model, parserMessages(text), oracle.Options{
		Temperature: 0.2,
		MaxTokens:   2048,
		JSONMode:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("scenario extraction failed: %w", err)
	}

	var parsed schema.ParsedData
	if err := blackboard.Decode(obj, &parsed); err != nil {
		return nil, fmt.Errorf("scenario extraction returned an unusable shape: %w", err)
	}
	parsed.Normalize()

	if err := p.write(blackboard.KeyParsedData, parsed); err != nil {
		return nil, err
	}
	if err := p.broadcast(EventParsingComplete, map[string]any{
		"scenario_type": string(parsed.ScenarioType),
		"actor_count":   len(parsed.Actors),
	}); err != nil {
		return nil, err
	}
	return &parsed, nil
}

// parserMessages builds the extraction prompt.
func parserMessages(text string) []oracle.Message {
	return []oracle.Message{
		{Role: oracle.RoleSystem, Content: parserSystemPrompt},
		{Role: oracle.RoleUser, Content: "Scenario text:\n\n" + text},
	}
}

const parserSystemPrompt = `You analyze business-school scenario descriptions and extract structured data.

Respond with a single JSON object using exactly these fields:
{
  "scenario_type": "crisis|negotiation|strategy|operations|leadership|other",
  "industry": "string",
  "context": {"company": "", "situation": "", "timeframe": "", "stakes": ""},
  "actors": [{"role": "", "name": "", "description": ""}],
  "constraints": ["string"],
  "objectives": ["string"],
  "key_challenges": ["string"]
}

Identify every named person as an actor. Capture explicit deadlines in
context.timeframe and money or other stakes in context.stakes. Use empty
strings or empty arrays for anything the text does not state; never invent
facts.`
