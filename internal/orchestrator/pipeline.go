// Package orchestrator drives the agent lifecycle: the sequential build
// pipeline that turns raw scenario text into an immutable blueprint, and the
// per-session turn loop that serves student messages at runtime.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/scrimlabs/scrim/internal/agent"
	"github.com/scrimlabs/scrim/internal/oracle"
	"github.com/scrimlabs/scrim/internal/schema"
	"github.com/scrimlabs/scrim/pkg/blackboard"
)

// Models selects the oracle model per tier. The fast tier serves extraction
// and evaluation calls (parser, director); the quality tier serves
// generation (sag, actor).
type Models struct {
	Fast    string
	Quality string
}

// WithDefaults fills unset model tiers.
func (m Models) WithDefaults() Models {
	if m.Fast == "" {
		m.Fast = "gemini-2.0-flash-lite"
	}
	if m.Quality == "" {
		m.Quality = "gemini-2.0-flash"
	}
	return m
}

// BuildInput is everything the build pipeline needs from the caller.
type BuildInput struct {
	RawInput      string
	Settings      *schema.SimulationSettings
	Modifications *schema.UserModifications
}

// BuildResult carries the blackboard (now in RUNTIME) and each agent's
// output. On validation failure the blueprint is nil and Validation carries
// the structured errors.
type BuildResult struct {
	Board      *blackboard.Board
	Parsed     *schema.ParsedData
	Outline    *schema.ScenarioOutline
	Validation *schema.ValidationResult
	Blueprint  *schema.SimulationBlueprint
}

// BuildSimulation runs the full build pipeline on a fresh blackboard:
// user input, Parser, SAG, Validator, optional REVIEWING edits, Finalizer,
// then transitions to RUNTIME. Each step is a single agent execution;
// failure halts the pipeline.
func BuildSimulation(ctx context.Context, llm oracle.Oracle, models Models, in BuildInput) (*BuildResult, error) {
	models = models.WithDefaults()
	board := blackboard.New()
	result := &BuildResult{Board: board}

	if err := board.Write(blackboard.KeyRawInput, in.RawInput, blackboard.AgentUser); err != nil {
		return result, fmt.Errorf("failed to stage raw input: %w", err)
	}
	if in.Settings != nil {
		if err := board.Write(blackboard.KeySimulationSettings, in.Settings, blackboard.AgentUser); err != nil {
			return result, fmt.Errorf("failed to stage settings: %w", err)
		}
	}

	log.Printf("[Pipeline] Building simulation (%d bytes of scenario text)", len(in.RawInput))

	parsed, err := agent.NewParser(board, llm, models.Fast).Execute(ctx)
	if err != nil {
		return result, fmt.Errorf("parser: %w", err)
	}
	result.Parsed = parsed
	logEvent("pipeline", "parsing_complete", map[string]interface{}{
		"scenario_type": string(parsed.ScenarioType),
		"actor_count":   len(parsed.Actors),
	})

	outline, err := agent.NewSAG(board, llm, models.Quality).Execute(ctx)
	if err != nil {
		return result, fmt.Errorf("sag: %w", err)
	}
	result.Outline = outline
	logEvent("pipeline", "outline_ready", map[string]interface{}{
		"scenario_id": outline.ScenarioID,
		"goal_count":  len(outline.Goals),
	})

	validation, err := agent.NewValidator(board).Execute(ctx)
	if err != nil {
		return result, fmt.Errorf("validator: %w", err)
	}
	result.Validation = validation
	if !validation.Valid {
		logEvent("pipeline", "validation_failed", map[string]interface{}{
			"scenario_id": outline.ScenarioID,
			"error_count": len(validation.Errors),
		})
		return result, fmt.Errorf("outline failed validation with %d error(s): %w",
			len(validation.Errors), agent.ErrValidationFailed)
	}

	// REVIEWING is always traversed; professor edits land here when present.
	if err := board.Transition(blackboard.PhaseReviewing); err != nil {
		return result, err
	}
	if in.Modifications != nil {
		if err := board.Write(blackboard.KeyUserModifications, in.Modifications, blackboard.AgentUser); err != nil {
			return result, fmt.Errorf("failed to stage modifications: %w", err)
		}
	}

	if err := board.Transition(blackboard.PhaseFinalized); err != nil {
		return result, err
	}
	blueprint, err := agent.NewFinalizer(board).Execute(ctx)
	if err != nil {
		return result, fmt.Errorf("finalizer: %w", err)
	}
	result.Blueprint = blueprint

	if err := board.Transition(blackboard.PhaseRuntime); err != nil {
		return result, err
	}

	logEvent("pipeline", "blueprint_finalized", map[string]interface{}{
		"scenario_id": blueprint.ScenarioID,
		"title":       blueprint.Title,
		"goal_count":  len(blueprint.Goals),
	})
	return result, nil
}

// RehydrateBoard reconstructs a RUNTIME blackboard from a persisted
// blueprint and conversation history. The board is walked through its phases
// so capability checks and audit attribution behave exactly as they would on
// a freshly built board.
func RehydrateBoard(blueprint *schema.SimulationBlueprint, history []schema.Message) (*blackboard.Board, error) {
	board := blackboard.New()
	for _, phase := range []blackboard.Phase{blackboard.PhaseReviewing, blackboard.PhaseFinalized} {
		if err := board.Transition(phase); err != nil {
			return nil, err
		}
	}
	if err := board.Write(blackboard.KeyBlueprint, blueprint, blackboard.AgentFinalizer); err != nil {
		return nil, fmt.Errorf("failed to restore blueprint: %w", err)
	}
	if err := board.Transition(blackboard.PhaseRuntime); err != nil {
		return nil, err
	}
	if len(history) > 0 {
		if err := board.Write(blackboard.KeyConversation, history, blackboard.AgentSessionManager); err != nil {
			return nil, fmt.Errorf("failed to restore conversation: %w", err)
		}
	}
	return board, nil
}

// ParsePreview is the professor-facing dry run: parser output plus the
// derived setup suggestions, without building a blueprint.
type ParsePreview struct {
	Parsed                *schema.ParsedData        `json:"parsed"`
	SuggestedParameters   schema.SimulationSettings `json:"suggested_parameters"`
	ActorValidation       []ActorValidationIssue    `json:"actor_validation"`
	SuggestedFirstMessage string                    `json:"suggested_first_message"`
}

// ActorValidationIssue is a sanity finding on one parsed actor.
type ActorValidationIssue struct {
	Actor   string `json:"actor"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// PreviewParse runs only the Parser against a throwaway board and derives
// the setup suggestions from its output.
func PreviewParse(ctx context.Context, llm oracle.Oracle, models Models, rawInput string) (*ParsePreview, error) {
	models = models.WithDefaults()
	board := blackboard.New()
	if err := board.Write(blackboard.KeyRawInput, rawInput, blackboard.AgentUser); err != nil {
		return nil, err
	}

	parsed, err := agent.NewParser(board, llm, models.Fast).Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("parser: %w", err)
	}

	return &ParsePreview{
		Parsed:                parsed,
		SuggestedParameters:   suggestParameters(parsed),
		ActorValidation:       validateActors(parsed.Actors),
		SuggestedFirstMessage: suggestFirstMessage(parsed),
	}, nil
}

// suggestParameters derives sensible defaults from what the parser found.
// Crisis scenarios and dense challenge lists push the difficulty up.
func suggestParameters(parsed *schema.ParsedData) schema.SimulationSettings {
	settings := schema.SimulationSettings{}.WithDefaults()

	if parsed.ScenarioType == schema.ScenarioCrisis || len(parsed.KeyChallenges) >= 4 {
		settings.Difficulty = "hard"
	} else if len(parsed.KeyChallenges) <= 1 {
		settings.Difficulty = "easy"
	}

	if len(parsed.Objectives) > 0 {
		focus := parsed.Objectives
		if len(focus) > 3 {
			focus = focus[:3]
		}
		settings.FocusAreas = focus
	}
	return settings
}

// validateActors reports parsed actors that would make a weak simulation
// cast. Findings are advisory; the pipeline accepts them as-is.
func validateActors(actors []schema.Actor) []ActorValidationIssue {
	issues := []ActorValidationIssue{}
	for _, a := range actors {
		label := a.Name
		if label == "" {
			label = a.Role
		}
		if a.Name == "" {
			issues = append(issues, ActorValidationIssue{
				Actor: label, Field: "name", Message: "actor has no name; the role will be used verbatim",
			})
		}
		if a.Description == "" {
			issues = append(issues, ActorValidationIssue{
				Actor: label, Field: "description", Message: "actor has no description; the persona will be generic",
			})
		}
	}
	if len(actors) < 2 {
		issues = append(issues, ActorValidationIssue{
			Actor: "*", Field: "actors", Message: "fewer than two actors; consider adding a counterpart perspective",
		})
	}
	return issues
}

// suggestFirstMessage templates an opener from the scenario context so a
// session can start with the advisor speaking first.
func suggestFirstMessage(parsed *schema.ParsedData) string {
	situation := parsed.Context.Situation
	if situation == "" {
		situation = "the situation at hand"
	}
	opener := fmt.Sprintf("Welcome. We need to talk about %s.", situation)
	if parsed.Context.Stakes != "" {
		opener += fmt.Sprintf(" The stakes: %s.", parsed.Context.Stakes)
	}
	if parsed.Context.Timeframe != "" {
		opener += fmt.Sprintf(" We have %s.", parsed.Context.Timeframe)
	}
	opener += " Where would you start?"
	return opener
}

// logEvent emits a structured JSON log record alongside the plain lifecycle
// lines.
func logEvent(component, eventType string, data map[string]interface{}) {
	data["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	data["level"] = "info"
	data["component"] = component
	data["event_type"] = eventType

	jsonData, err := json.Marshal(data)
	if err != nil {
		log.Printf("[Orchestrator] Failed to marshal log event: %v", err)
		return
	}

	log.Println(string(jsonData))
}
