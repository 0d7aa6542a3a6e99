package agent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrimlabs/scrim/internal/schema"
	"github.com/scrimlabs/scrim/pkg/blackboard"
)

// finalizerBoard stages a full build: parsed data, outline, and validation in
// BUILDING, optional modifications in REVIEWING, then lands on FINALIZED.
func finalizerBoard(t *testing.T, outline schema.ScenarioOutline, validation schema.ValidationResult, mods *schema.UserModifications) *blackboard.Board {
	t.Helper()
	board := blackboard.New()

	require.NoError(t, board.Write(blackboard.KeyRawInput, "Northwind's supplier is failing.", blackboard.AgentUser))
	parsed := schema.ParsedData{
		ScenarioType: schema.ScenarioCrisis,
		Actors:       []schema.Actor{{Name: "Mark Liu"}},
	}
	parsed.Normalize()
	require.NoError(t, board.Write(blackboard.KeyParsedData, parsed, blackboard.AgentParser))
	require.NoError(t, board.Write(blackboard.KeyScenarioOutline, outline, blackboard.AgentSAG))
	require.NoError(t, board.Write(blackboard.KeyValidationResult, validation, blackboard.AgentValidator))

	require.NoError(t, board.Transition(blackboard.PhaseReviewing))
	if mods != nil {
		require.NoError(t, board.Write(blackboard.KeyUserModifications, *mods, blackboard.AgentUser))
	}
	require.NoError(t, board.Transition(blackboard.PhaseFinalized))
	return board
}

func passedValidation() schema.ValidationResult {
	return schema.ValidationResult{
		Valid:         true,
		Errors:        []schema.ValidationError{},
		Warnings:      []schema.ValidationWarning{},
		SchemaVersion: SchemaVersion,
		ValidatedAt:   time.Now().UTC(),
	}
}

func TestFinalizerExecute(t *testing.T) {
	ctx := context.Background()

	t.Run("assembles an immutable blueprint", func(t *testing.T) {
		outline := validOutline()
		outline.Triggers = []schema.Trigger{{ID: "trigger_1", Condition: `mentions "budget"`, Effect: "press"}}
		outline.Normalize()
		board := finalizerBoard(t, outline, passedValidation(), nil)

		blueprint, err := NewFinalizer(board).Execute(ctx)
		require.NoError(t, err)

		assert.Equal(t, outline.ScenarioID, blueprint.ScenarioID)
		assert.Equal(t, outline.Title, blueprint.Title)
		assert.Equal(t, "Northwind's supplier is failing.", blueprint.ScenarioText)
		assert.True(t, blueprint.Immutable)
		assert.False(t, blueprint.LockedAt.IsZero())

		// Director triggers merge behind the outline's own triggers.
		require.Len(t, blueprint.Triggers, 2)
		assert.Equal(t, "trigger_1", blueprint.Triggers[0].ID)
		assert.Equal(t, "dt_1", blueprint.Triggers[1].ID)

		assert.Equal(t, DefaultEvaluationFrequency, blueprint.DirectorSettings.EvaluationFrequency)
		assert.Equal(t, DefaultInterventionStyle, blueprint.DirectorSettings.InterventionStyle)
		assert.True(t, blueprint.DirectorSettings.GoalTracking)
		assert.Equal(t, DefaultActorTemperature, blueprint.ActorSettings.Temperature)
		assert.True(t, blueprint.ActorSettings.SocraticMode)

		for _, name := range []string{"outline_hash", "parsed_data_hash", "settings_hash"} {
			assert.Regexp(t, `^[0-9a-f]{16}$`, blueprint.Metadata.SourceDataHashes[name], name)
		}

		var stored schema.SimulationBlueprint
		found, err := board.ReadInto(blackboard.KeyBlueprint, &stored)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, blueprint.ScenarioID, stored.ScenarioID)
	})

	t.Run("parsed actors fill an empty cast with the advisor role", func(t *testing.T) {
		board := finalizerBoard(t, validOutline(), passedValidation(), nil)

		blueprint, err := NewFinalizer(board).Execute(ctx)
		require.NoError(t, err)

		require.Len(t, blueprint.Actors, 1)
		assert.Equal(t, "Mark Liu", blueprint.Actors[0].Name)
	})

	t.Run("modifications override titles and settings", func(t *testing.T) {
		mods := schema.UserModifications{
			Title: "Renamed by the professor",
			DirectorSettings: &schema.DirectorSettings{
				EvaluationFrequency: 5,
				InterventionStyle:   "direct",
			},
			ActorSettings: &schema.ActorSettings{
				AIMode:       schema.ModeChallenger,
				SocraticMode: true,
				Temperature:  0.4,
			},
		}
		board := finalizerBoard(t, validOutline(), passedValidation(), &mods)

		blueprint, err := NewFinalizer(board).Execute(ctx)
		require.NoError(t, err)

		assert.Equal(t, "Renamed by the professor", blueprint.Title)
		assert.Equal(t, 5, blueprint.DirectorSettings.EvaluationFrequency)
		assert.Equal(t, "direct", blueprint.DirectorSettings.InterventionStyle)
		assert.Equal(t, DefaultNarrativeFreedom, blueprint.DirectorSettings.NarrativeFreedom,
			"unset fields keep their defaults")
		assert.Equal(t, schema.ModeChallenger, blueprint.ActorSettings.AIMode)
		assert.Equal(t, 0.4, blueprint.ActorSettings.Temperature)
		assert.Equal(t, DefaultMaxResponseTokens, blueprint.ActorSettings.MaxResponseTokens)
	})

	t.Run("failed validation halts finalization", func(t *testing.T) {
		failed := passedValidation()
		failed.Valid = false
		failed.Errors = []schema.ValidationError{{Source: "schema", Path: "title", Message: "missing"}}
		board := finalizerBoard(t, validOutline(), failed, nil)

		_, err := NewFinalizer(board).Execute(ctx)
		assert.ErrorIs(t, err, ErrValidationFailed)
		assert.False(t, board.Exists(blackboard.KeyBlueprint))
	})

	t.Run("goalless outline halts finalization", func(t *testing.T) {
		outline := validOutline()
		outline.Goals = []schema.Goal{}
		board := finalizerBoard(t, outline, passedValidation(), nil)

		_, err := NewFinalizer(board).Execute(ctx)
		assert.ErrorIs(t, err, ErrValidationFailed)
	})

	t.Run("missing validation result halts finalization", func(t *testing.T) {
		board := blackboard.New()
		require.NoError(t, board.Write(blackboard.KeyScenarioOutline, validOutline(), blackboard.AgentSAG))
		parsed := schema.ParsedData{}
		parsed.Normalize()
		require.NoError(t, board.Write(blackboard.KeyParsedData, parsed, blackboard.AgentParser))
		require.NoError(t, board.Transition(blackboard.PhaseReviewing))
		require.NoError(t, board.Transition(blackboard.PhaseFinalized))

		_, err := NewFinalizer(board).Execute(ctx)
		assert.ErrorIs(t, err, ErrMissingInput)
	})
}
