package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/scrimlabs/scrim/internal/oracle"
	"github.com/scrimlabs/scrim/internal/schema"
	"github.com/scrimlabs/scrim/pkg/blackboard"
)

// EventOutlineReady is broadcast after scenario_outline is written.
const EventOutlineReady = "outline_ready"

// SAG is the Scenario Arc Generator: it turns parsed data plus simulation
// settings into the pedagogical arc (goals, rules, triggers, encounters).
type SAG struct {
	Base
	model string
}

// NewSAG creates the scenario arc generator agent.
func NewSAG(board *blackboard.Board, llm oracle.Oracle, model string) *SAG {
	return &SAG{
		Base:  NewBase(blackboard.AgentSAG, board, llm),
		model: model,
	}
}

// Execute reads parsed_data (required) and simulation_settings (optional,
// defaulted), generates the outline with one oracle call, normalizes ids and
// arrays, writes scenario_outline, and broadcasts outline_ready.
func (s *SAG) Execute(ctx context.Context) (*schema.ScenarioOutline, error) {
	var parsed schema.ParsedData
	if err := s.readRequired(blackboard.KeyParsedData, &parsed); err != nil {
		return nil, err
	}

	var settings schema.SimulationSettings
	if _, err := s.readInto(blackboard.KeySimulationSettings, &settings); err != nil {
		return nil, err
	}
	settings = settings.WithDefaults()

	obj, err := s.oracle.CompleteJSON(ctx, s.model, sagMessages(&parsed, settings), oracle.Options{
		Temperature: 0.7,
		MaxTokens:   4096,
		JSONMode:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("outline generation failed: %w", err)
	}

	var outline schema.ScenarioOutline
	if err := blackboard.Decode(obj, &outline); err != nil {
		return nil, fmt.Errorf("outline generation returned an unusable shape: %w", err)
	}
	outline.Normalize()

	if outline.ScenarioID == "" {
		outline.ScenarioID = uuid.New().String()
	}
	if outline.Title == "" {
		outline.Title = fallbackTitle(&parsed)
	}
	if outline.Description == "" {
		outline.Description = parsed.Context.Situation
	}
	if len(outline.Actors) == 0 {
		outline.Actors = parsed.Actors
	}

	if err := s.write(blackboard.KeyScenarioOutline, outline); err != nil {
		return nil, err
	}
	if err := s.broadcast(EventOutlineReady, map[string]any{
		"scenario_id": outline.ScenarioID,
		"goal_count":  len(outline.Goals),
	}); err != nil {
		return nil, err
	}
	return &outline, nil
}

func fallbackTitle(parsed *schema.ParsedData) string {
	if parsed.Context.Company != "" {
		return fmt.Sprintf("%s %s simulation", parsed.Context.Company, parsed.ScenarioType)
	}
	return fmt.Sprintf("%s simulation", parsed.ScenarioType)
}

// sagMessages builds the arc-generation prompt.
func sagMessages(parsed *schema.ParsedData, settings schema.SimulationSettings) []oracle.Message {
	parsedJSON, _ := json.MarshalIndent(parsed, "", "  ")
	user := fmt.Sprintf(`Parsed scenario:
%s

Difficulty: %s
Focus areas: %v
Student level: %s

Design the simulation arc.`, parsedJSON, settings.Difficulty, settings.FocusAreas, settings.StudentLevel)

	return []oracle.Message{
		{Role: oracle.RoleSystem, Content: sagSystemPrompt},
		{Role: oracle.RoleUser, Content: user},
	}
}

const sagSystemPrompt = `You design educational simulation arcs for business scenarios.

Respond with a single JSON object:
{
  "scenario_id": "",
  "title": "",
  "description": "",
  "goals": [{"id": "", "title": "", "description": "", "learning_objective": "",
             "success_criteria": [""], "required_evidence": [""], "dependencies": [], "milestones": [""]}],
  "rules": [{"id": "", "description": ""}],
  "triggers": [{"id": "", "condition": "", "effect": "", "priority": 1}],
  "encounters": [{"id": "", "actor_role": "", "challenge_type": "ethical_dilemma|technical_problem|interpersonal_conflict|strategic_choice",
                  "personality_mode": "", "knowledge_level": "",
                  "hidden_info": [""], "loyalties": {"supports": [""], "opposes": [""]},
                  "priorities": [""], "socratic_prompts": [""]}],
  "lessons": [""],
  "tests": [""]
}

Goals must describe observable student outcomes, not task lists. Avoid
dependencies between goals unless the scenario genuinely requires ordering.
Every encounter needs a challenge_type from the closed set and at least one
socratic prompt. Trigger conditions should quote the keywords they react to,
for example: When student mentions "budget".`
