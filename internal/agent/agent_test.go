package agent

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/scrimlabs/scrim/internal/schema"
	"github.com/scrimlabs/scrim/pkg/blackboard"
)

// advance walks the board forward to the target phase.
func advance(t *testing.T, board *blackboard.Board, target blackboard.Phase) {
	t.Helper()
	order := []blackboard.Phase{
		blackboard.PhaseBuilding,
		blackboard.PhaseReviewing,
		blackboard.PhaseFinalized,
		blackboard.PhaseRuntime,
	}
	for _, p := range order[1:] {
		if board.Phase() == target {
			return
		}
		if next, ok := board.Phase().Next(); !ok || next != p {
			continue
		}
		require.NoError(t, board.Transition(p))
		if p == target {
			return
		}
	}
}

// testBlueprint is a minimal runnable blueprint: one advisor, two goals,
// keyword and message-count triggers, two encounters.
func testBlueprint() schema.SimulationBlueprint {
	return schema.SimulationBlueprint{
		ScenarioID:  "scn-1",
		Title:       "Northwind Acquisition",
		Description: "Decide whether Northwind should acquire its struggling supplier.",
		Actors: []schema.Actor{
			{Role: "advisor", Name: "Dana Reyes", Description: "A veteran operations consultant."},
			{Role: "CFO", Name: "Mark Liu"},
		},
		Goals: []schema.Goal{
			{ID: "goal_1", Description: "Identify the financial risks", SuccessCriteria: []string{"names at least two risks"}},
			{ID: "goal_2", Description: "Weigh strategic alternatives"},
		},
		Rules: []schema.Rule{
			{ID: "rule_1", Description: "The acquisition budget is capped at $40M."},
		},
		Triggers: []schema.Trigger{
			{ID: "trigger_1", Condition: `When the student mentions "layoffs"`, Effect: "Push back on the human cost."},
			{ID: "trigger_2", Condition: "after 6 messages", Effect: "Introduce the rival bidder."},
			{ID: "trigger_3", Condition: "student seems overconfident", Effect: "Question their assumptions."},
		},
		Encounters: []schema.Encounter{
			{ID: "encounter_1", ActorRole: "CFO", ChallengeType: schema.ChallengeEthicalDilemma},
			{ID: "encounter_2", ActorRole: "CFO", ChallengeType: schema.ChallengeStrategicChoice},
		},
		DirectorSettings: schema.DirectorSettings{EvaluationFrequency: 3, GoalTracking: true},
		ActorSettings: schema.ActorSettings{
			Temperature:       0.7,
			MaxResponseTokens: 500,
			SocraticMode:      true,
			AIMode:            schema.ModeAdaptive,
		},
		Immutable: true,
	}
}

// runtimeBoard builds a board in the RUNTIME phase carrying a blueprint and
// an initial conversation.
func runtimeBoard(t *testing.T, blueprint schema.SimulationBlueprint, history []schema.Message) *blackboard.Board {
	t.Helper()
	board := blackboard.New()
	advance(t, board, blackboard.PhaseFinalized)
	require.NoError(t, board.Write(blackboard.KeyBlueprint, blueprint, blackboard.AgentFinalizer))
	advance(t, board, blackboard.PhaseRuntime)
	if history != nil {
		require.NoError(t, board.Write(blackboard.KeyConversation, history, blackboard.AgentSessionManager))
	}
	return board
}

// conversation builds an alternating student/advisor history of n messages,
// starting with the student.
func conversation(n int) []schema.Message {
	msgs := make([]schema.Message, 0, n)
	for i := 0; i < n; i++ {
		role := schema.RoleStudent
		if i%2 == 1 {
			role = schema.RoleAdvisor
		}
		msgs = append(msgs, schema.Message{Role: role, Content: "message"})
	}
	return msgs
}
