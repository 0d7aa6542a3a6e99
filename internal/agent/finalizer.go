package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/scrimlabs/scrim/internal/schema"
	"github.com/scrimlabs/scrim/pkg/blackboard"
)

// Default settings merged under professor-supplied values at finalization.
const (
	DefaultEvaluationFrequency = 3
	DefaultNarrativeFreedom    = 0.7
	DefaultInterventionStyle   = "subtle"
	DefaultActorTemperature    = 0.7
	DefaultMaxResponseTokens   = 500
)

// Finalizer assembles the immutable simulation blueprint from the validated
// outline, parsed data, and settings. It runs once, in the FINALIZED phase,
// and never calls the oracle.
type Finalizer struct {
	Base
}

// NewFinalizer creates the finalizer agent.
func NewFinalizer(board *blackboard.Board) *Finalizer {
	return &Finalizer{Base: NewBase(blackboard.AgentFinalizer, board, nil)}
}

// Execute enforces the finalization preconditions, assembles the blueprint,
// and writes simulation_blueprint. Preconditions are hard errors: outline
// present, parsed_data present, validation present and valid, outline has at
// least one goal.
func (f *Finalizer) Execute(ctx context.Context) (*schema.SimulationBlueprint, error) {
	rawOutline, ok := f.read(blackboard.KeyScenarioOutline)
	if !ok {
		return nil, fmt.Errorf("finalizer requires scenario_outline: %w", ErrMissingInput)
	}
	rawParsed, ok := f.read(blackboard.KeyParsedData)
	if !ok {
		return nil, fmt.Errorf("finalizer requires parsed_data: %w", ErrMissingInput)
	}

	var validation schema.ValidationResult
	found, err := f.readInto(blackboard.KeyValidationResult, &validation)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("finalizer requires validation_result: %w", ErrMissingInput)
	}
	if !validation.Valid {
		return nil, fmt.Errorf("outline failed validation with %d error(s): %w",
			len(validation.Errors), ErrValidationFailed)
	}

	var outline schema.ScenarioOutline
	if err := blackboard.Decode(rawOutline, &outline); err != nil {
		return nil, fmt.Errorf("scenario_outline: %w", err)
	}
	var parsed schema.ParsedData
	if err := blackboard.Decode(rawParsed, &parsed); err != nil {
		return nil, fmt.Errorf("parsed_data: %w", err)
	}
	if len(outline.Goals) == 0 {
		return nil, fmt.Errorf("outline has no goals: %w", ErrValidationFailed)
	}

	var settings schema.SimulationSettings
	if _, err := f.readInto(blackboard.KeySimulationSettings, &settings); err != nil {
		return nil, err
	}
	var mods schema.UserModifications
	if _, err := f.readInto(blackboard.KeyUserModifications, &mods); err != nil {
		return nil, err
	}

	scenarioText := ""
	if raw, ok := f.read(blackboard.KeyRawInput); ok {
		scenarioText, _ = raw.(string)
	}

	blueprint := schema.SimulationBlueprint{
		ScenarioID:       outline.ScenarioID,
		Title:            outline.Title,
		Description:      outline.Description,
		ScenarioText:     scenarioText,
		Actors:           blueprintActors(&outline, &parsed),
		Goals:            outline.Goals,
		Rules:            outline.Rules,
		Triggers:         mergeTriggers(outline.Triggers, outline.DirectorTriggers),
		Encounters:       outline.Encounters,
		DirectorSettings: directorSettings(&outline, &mods),
		ActorSettings:    actorSettings(&mods),
		Metadata: schema.BlueprintMetadata{
			SourceDataHashes: map[string]string{
				"outline_hash":     blackboard.ValueHash(outline),
				"parsed_data_hash": blackboard.ValueHash(parsed),
				"settings_hash":    blackboard.ValueHash(settings),
			},
			FinalizedAt: time.Now().UTC(),
		},
		Immutable: true,
		LockedAt:  time.Now().UTC(),
	}

	if mods.Title != "" {
		blueprint.Title = mods.Title
	}
	if mods.Description != "" {
		blueprint.Description = mods.Description
	}

	if err := f.write(blackboard.KeyBlueprint, blueprint); err != nil {
		return nil, err
	}
	return &blueprint, nil
}

// blueprintActors prefers the outline's actors; otherwise parsed actors are
// converted with the default role "advisor".
func blueprintActors(outline *schema.ScenarioOutline, parsed *schema.ParsedData) []schema.Actor {
	if len(outline.Actors) > 0 {
		return outline.Actors
	}
	actors := make([]schema.Actor, 0, len(parsed.Actors))
	for _, a := range parsed.Actors {
		if a.Role == "" {
			a.Role = "advisor"
		}
		actors = append(actors, a)
	}
	return actors
}

// mergeTriggers normalizes director triggers onto the blueprint's top-level
// trigger list, skipping duplicates by id.
func mergeTriggers(base, extra []schema.Trigger) []schema.Trigger {
	merged := make([]schema.Trigger, 0, len(base)+len(extra))
	seen := make(map[string]bool, len(base))
	for _, t := range base {
		merged = append(merged, t)
		seen[t.ID] = true
	}
	for _, t := range extra {
		if t.ID != "" && seen[t.ID] {
			continue
		}
		merged = append(merged, t)
	}
	return merged
}

func directorSettings(outline *schema.ScenarioOutline, mods *schema.UserModifications) schema.DirectorSettings {
	ds := schema.DirectorSettings{
		EvaluationFrequency: DefaultEvaluationFrequency,
		NarrativeFreedom:    DefaultNarrativeFreedom,
		InterventionStyle:   DefaultInterventionStyle,
		GoalTracking:        true,
	}
	if outline.DirectorSettings != nil && outline.DirectorSettings.EvaluationFrequency > 0 {
		ds.EvaluationFrequency = outline.DirectorSettings.EvaluationFrequency
	}
	if mods.DirectorSettings != nil {
		if mods.DirectorSettings.EvaluationFrequency > 0 {
			ds.EvaluationFrequency = mods.DirectorSettings.EvaluationFrequency
		}
		if mods.DirectorSettings.NarrativeFreedom > 0 {
			ds.NarrativeFreedom = mods.DirectorSettings.NarrativeFreedom
		}
		if mods.DirectorSettings.InterventionStyle != "" {
			ds.InterventionStyle = mods.DirectorSettings.InterventionStyle
		}
	}
	return ds
}

func actorSettings(mods *schema.UserModifications) schema.ActorSettings {
	as := schema.ActorSettings{
		Temperature:       DefaultActorTemperature,
		MaxResponseTokens: DefaultMaxResponseTokens,
		SocraticMode:      true,
		AIMode:            schema.ModeAdaptive,
		ComplexityMode:    schema.ComplexityAdaptive,
	}
	if mods.ActorSettings != nil {
		m := mods.ActorSettings
		if m.Temperature > 0 {
			as.Temperature = m.Temperature
		}
		if m.MaxResponseTokens > 0 {
			as.MaxResponseTokens = m.MaxResponseTokens
		}
		if m.AIMode != "" {
			as.AIMode = m.AIMode.Normalize()
		}
		if m.ComplexityMode != "" {
			as.ComplexityMode = m.ComplexityMode
		}
		if m.CustomInstructions != "" {
			as.CustomInstructions = m.CustomInstructions
		}
		// Supplying actor settings sets the socratic flag explicitly.
		as.SocraticMode = m.SocraticMode
	}
	return as
}
