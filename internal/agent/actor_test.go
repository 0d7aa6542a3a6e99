package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrimlabs/scrim/internal/oracle"
	"github.com/scrimlabs/scrim/internal/schema"
	"github.com/scrimlabs/scrim/pkg/blackboard"
)

func TestActorExecute(t *testing.T) {
	ctx := context.Background()

	t.Run("produces a reply and records it", func(t *testing.T) {
		history := []schema.Message{
			{Role: schema.RoleStudent, Content: "What should I look at first?"},
		}
		board := runtimeBoard(t, testBlueprint(), history)
		llm := oracle.NewScripted("Start with the supplier's cash position. What does it tell you?")
		actor := NewActor(board, llm, "quality-model")

		response, err := actor.Execute(ctx, "What should I look at first?")
		require.NoError(t, err)

		assert.Contains(t, response.Message, "cash position")
		assert.Empty(t, response.Metadata.TriggersActivated)
		assert.Empty(t, response.Metadata.DirectorInterventions)
		assert.False(t, response.Metadata.Timestamp.IsZero())

		var stored schema.ActorResponse
		found, err := board.ReadInto(blackboard.KeyActorResponses, &stored)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, response.Message, stored.Message)

		calls := llm.Calls()
		require.Len(t, calls, 1)
		assert.Equal(t, "quality-model", calls[0].Model)
		assert.Equal(t, 0.7, calls[0].Options.Temperature)
		assert.Equal(t, 500, calls[0].Options.MaxTokens)
	})

	t.Run("activated triggers surface in metadata and prompt", func(t *testing.T) {
		student := "We could handle this with layoffs."
		history := []schema.Message{{Role: schema.RoleStudent, Content: student}}
		board := runtimeBoard(t, testBlueprint(), history)
		llm := oracle.NewScripted("Before you go there, who exactly would you let go?")
		actor := NewActor(board, llm, "m")

		response, err := actor.Execute(ctx, student)
		require.NoError(t, err)

		assert.Equal(t, []string{"trigger_1"}, response.Metadata.TriggersActivated)

		messages := llm.Calls()[0].Messages
		require.GreaterOrEqual(t, len(messages), 3)
		assert.Equal(t, oracle.RoleSystem, messages[1].Role)
		assert.Contains(t, messages[1].Content, "TRIGGERS ACTIVATED:")
		assert.Contains(t, messages[1].Content, "Push back on the human cost.")
	})

	t.Run("message count trigger fires on history length", func(t *testing.T) {
		history := conversation(6)
		board := runtimeBoard(t, testBlueprint(), history)
		llm := oracle.NewScripted("A rival bidder just entered the picture.")
		actor := NewActor(board, llm, "m")

		response, err := actor.Execute(ctx, "message")
		require.NoError(t, err)
		assert.Contains(t, response.Metadata.TriggersActivated, "trigger_2")
	})

	t.Run("conversation roles map onto oracle roles", func(t *testing.T) {
		history := []schema.Message{
			{Role: schema.RoleStudent, Content: "first question"},
			{Role: schema.RoleAdvisor, Content: "first answer"},
			{Role: schema.RoleSystem, Content: "scene note"},
			{Role: schema.RoleStudent, Content: "second question"},
		}
		board := runtimeBoard(t, testBlueprint(), history)
		llm := oracle.NewScripted("reply")
		actor := NewActor(board, llm, "m")

		_, err := actor.Execute(ctx, "second question")
		require.NoError(t, err)

		messages := llm.Calls()[0].Messages
		// Leading system prompt, then the mapped history.
		tail := messages[len(messages)-4:]
		assert.Equal(t, oracle.RoleUser, tail[0].Role)
		assert.Equal(t, oracle.RoleAssistant, tail[1].Role)
		assert.Equal(t, oracle.RoleSystem, tail[2].Role)
		assert.Equal(t, oracle.RoleUser, tail[3].Role)
		assert.Equal(t, "second question", tail[3].Content)
	})

	t.Run("director guidance shapes the turn", func(t *testing.T) {
		board := runtimeBoard(t, testBlueprint(), conversation(3))
		state := schema.DirectorState{
			Phase:        schema.PhaseExploration,
			StudentState: schema.StateStuck,
			GoalProgress: map[string]schema.GoalProgress{},
			Evaluations: []schema.Evaluation{
				{Action: schema.ActionRedirect, Intervention: "Steer back to the numbers."},
			},
		}
		require.NoError(t, board.Write(blackboard.KeyDirectorState, state, blackboard.AgentDirector))

		llm := oracle.NewScripted("Let's get back to the balance sheet.")
		actor := NewActor(board, llm, "m")

		response, err := actor.Execute(ctx, "message")
		require.NoError(t, err)

		assert.Equal(t, []string{"Steer back to the numbers."}, response.Metadata.DirectorInterventions)
		assert.Contains(t, llm.Calls()[0].Messages[0].Content, "Steer back to the numbers.")
	})

	t.Run("fallback guidance is not applied", func(t *testing.T) {
		board := runtimeBoard(t, testBlueprint(), conversation(1))
		state := schema.DirectorState{
			GoalProgress: map[string]schema.GoalProgress{},
			Evaluations: []schema.Evaluation{
				{Action: schema.ActionContinue, Intervention: FallbackIntervention, Error: true},
			},
		}
		require.NoError(t, board.Write(blackboard.KeyDirectorState, state, blackboard.AgentDirector))

		llm := oracle.NewScripted("reply")
		actor := NewActor(board, llm, "m")

		response, err := actor.Execute(ctx, "message")
		require.NoError(t, err)
		assert.Empty(t, response.Metadata.DirectorInterventions)
	})

	t.Run("zero settings fall back to defaults", func(t *testing.T) {
		blueprint := testBlueprint()
		blueprint.ActorSettings.Temperature = 0
		blueprint.ActorSettings.MaxResponseTokens = 0
		board := runtimeBoard(t, blueprint, conversation(1))
		llm := oracle.NewScripted("reply")
		actor := NewActor(board, llm, "m")

		_, err := actor.Execute(ctx, "message")
		require.NoError(t, err)

		opts := llm.Calls()[0].Options
		assert.Equal(t, DefaultActorTemperature, opts.Temperature)
		assert.Equal(t, DefaultMaxResponseTokens, opts.MaxTokens)
	})

	t.Run("missing blueprint fails", func(t *testing.T) {
		board := blackboard.New()
		advance(t, board, blackboard.PhaseRuntime)
		actor := NewActor(board, oracle.NewScripted(), "m")
		_, err := actor.Execute(ctx, "hello")
		assert.ErrorIs(t, err, ErrMissingInput)
	})
}
