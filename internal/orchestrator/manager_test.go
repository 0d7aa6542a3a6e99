package orchestrator

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/scrimlabs/scrim/internal/oracle"
	"github.com/scrimlabs/scrim/internal/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestManager(t *testing.T, llm oracle.Oracle) *Manager {
	t.Helper()
	mr := miniredis.RunT(t)
	st, err := store.NewClient(&redis.Options{Addr: mr.Addr()}, "test")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	manager := NewManager(st, llm, Models{})
	t.Cleanup(manager.Shutdown)
	return manager
}

func createTestSimulation(t *testing.T, manager *Manager, llm *oracle.Scripted) *store.SimulationRecord {
	t.Helper()
	llm.Enqueue(parsedJSON)
	llm.Enqueue(outlineJSON)
	record, err := manager.CreateSimulation(context.Background(), CreateRequest{
		Scenario: scenarioText,
	})
	require.NoError(t, err)
	return record
}

func TestManagerCreateSimulation(t *testing.T) {
	ctx := context.Background()
	llm := oracle.NewScripted()
	manager := newTestManager(t, llm)

	record := createTestSimulation(t, manager, llm)

	assert.Equal(t, "scn-pipeline", record.ID, "record id is the blueprint's scenario id")
	assert.Equal(t, "Northwind Supplier Crisis", record.Name, "name falls back to the generated title")
	assert.Equal(t, []string{"Identify the financial risks", "Weigh strategic alternatives"}, record.Objectives)
	assert.Equal(t, "medium", record.Parameters.Difficulty)
	assert.False(t, record.IsTemplate)

	stored, err := manager.Simulation(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, record.ID, stored.ID)
	assert.True(t, stored.Blueprint.Immutable)

	t.Run("blank scenario is rejected", func(t *testing.T) {
		_, err := manager.CreateSimulation(ctx, CreateRequest{Scenario: "  "})
		assert.Error(t, err)
	})

	t.Run("explicit name and objectives win", func(t *testing.T) {
		llm.Enqueue(parsedJSON)
		llm.Enqueue(outlineJSON)
		named, err := manager.CreateSimulation(ctx, CreateRequest{
			Name:       "Week 4 Case",
			Scenario:   scenarioText,
			Objectives: []string{"practice valuation"},
			IsTemplate: true,
		})
		require.NoError(t, err)
		assert.Equal(t, "Week 4 Case", named.Name)
		assert.Equal(t, []string{"practice valuation"}, named.Objectives)
		assert.True(t, named.IsTemplate)
	})
}

func TestManagerRespond(t *testing.T) {
	ctx := context.Background()
	llm := oracle.NewScripted()
	manager := newTestManager(t, llm)
	record := createTestSimulation(t, manager, llm)

	llm.Enqueue("Start with the cash position.") // actor
	llm.Enqueue(directorJSON)                    // director, due at 3

	result, err := manager.Respond(ctx, record.ID, "", "Where do I start?")
	require.NoError(t, err)
	manager.Shutdown()

	assert.NotEmpty(t, result.SessionID, "a fresh session was minted")
	assert.Equal(t, record.ID, result.SimulationID)
	assert.Contains(t, result.FirstMessage, "Dana Reyes", "new sessions open with the advisor")
	assert.Equal(t, "Start with the cash position.", result.Response)
	assert.Equal(t, 3, result.MessageCount)

	t.Run("session persists with its history", func(t *testing.T) {
		session, err := manager.Session(ctx, result.SessionID)
		require.NoError(t, err)
		assert.Equal(t, store.SessionActive, session.State)
		require.Len(t, session.History, 3)
		assert.Equal(t, result.FirstMessage, session.History[0].Content)
	})

	t.Run("subsequent turn reuses the session", func(t *testing.T) {
		llm.Enqueue("Second reply.") // tick gated, no director call

		second, err := manager.Respond(ctx, "", result.SessionID, "And then?")
		require.NoError(t, err)
		manager.Shutdown()

		assert.Equal(t, result.SessionID, second.SessionID)
		assert.Empty(t, second.FirstMessage, "openers only accompany new sessions")
		assert.Equal(t, 5, second.MessageCount)
	})

	t.Run("state view carries director assessment for live sessions", func(t *testing.T) {
		view, err := manager.SessionState(ctx, result.SessionID)
		require.NoError(t, err)
		assert.Equal(t, 5, view.MessageCount)
		require.NotNil(t, view.DirectorState)
		assert.Equal(t, 3, view.DirectorState.LastEvaluatedMessage)
	})

	t.Run("unknown simulation is not found", func(t *testing.T) {
		_, err := manager.Respond(ctx, "missing", "", "hello")
		assert.True(t, store.IsNotFound(err))
	})

	t.Run("blank input is rejected", func(t *testing.T) {
		_, err := manager.Respond(ctx, record.ID, "", "  ")
		assert.Error(t, err)
	})
}

func TestManagerRehydratesAfterRestart(t *testing.T) {
	ctx := context.Background()

	mr := miniredis.RunT(t)
	st, err := store.NewClient(&redis.Options{Addr: mr.Addr()}, "test")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	llm := oracle.NewScripted()
	first := NewManager(st, llm, Models{})
	record := createTestSimulation(t, first, llm)

	llm.Enqueue("First reply.")
	llm.Enqueue(directorJSON)
	result, err := first.Respond(ctx, record.ID, "", "Where do I start?")
	require.NoError(t, err)
	first.Shutdown()

	// A second manager over the same store: conversation survives, director
	// memory does not.
	second := NewManager(st, llm, Models{})
	t.Cleanup(second.Shutdown)

	llm.Enqueue("Reply after restart.")
	llm.Enqueue(directorJSON) // 5 messages, no prior state: due again

	turn, err := second.Respond(ctx, "", result.SessionID, "Picking back up.")
	require.NoError(t, err)
	second.Shutdown()

	assert.Equal(t, "Reply after restart.", turn.Response)
	assert.Equal(t, 5, turn.MessageCount, "history survived the restart")

	view, err := second.SessionState(ctx, result.SessionID)
	require.NoError(t, err)
	require.NotNil(t, view.DirectorState)
	assert.Equal(t, 5, view.DirectorState.LastEvaluatedMessage,
		"the rebuilt director state reflects only post-restart evaluations")
}

func TestManagerEditSimulation(t *testing.T) {
	ctx := context.Background()
	llm := oracle.NewScripted()
	manager := newTestManager(t, llm)
	record := createTestSimulation(t, manager, llm)

	llm.Enqueue(parsedJSON)
	llm.Enqueue(outlineJSON)
	edited, err := manager.EditSimulation(ctx, EditRequest{
		SimulationID: record.ID,
		Name:         "Revised Case",
		Scenario:     scenarioText + " The board meets Friday.",
	})
	require.NoError(t, err)

	assert.Equal(t, record.ID, edited.ID, "edits keep the simulation id")
	assert.Equal(t, record.ID, edited.Blueprint.ScenarioID, "the regenerated blueprint is re-keyed")
	assert.Equal(t, "Revised Case", edited.Name)
	assert.Contains(t, edited.ScenarioText, "The board meets Friday.")
	assert.True(t, edited.UpdatedAt.After(record.UpdatedAt) || edited.UpdatedAt.Equal(record.UpdatedAt))

	t.Run("unknown simulation is not found", func(t *testing.T) {
		_, err := manager.EditSimulation(ctx, EditRequest{SimulationID: "missing"})
		assert.True(t, store.IsNotFound(err))
	})
}

func TestManagerClear(t *testing.T) {
	ctx := context.Background()
	llm := oracle.NewScripted()
	manager := newTestManager(t, llm)
	record := createTestSimulation(t, manager, llm)

	llm.Enqueue("Reply.")
	llm.Enqueue(directorJSON)
	result, err := manager.Respond(ctx, record.ID, "", "hello")
	require.NoError(t, err)
	manager.Shutdown()

	t.Run("clear session", func(t *testing.T) {
		require.NoError(t, manager.ClearSession(ctx, result.SessionID))
		_, err := manager.Session(ctx, result.SessionID)
		assert.True(t, store.IsNotFound(err))
	})

	t.Run("clear simulation cascades", func(t *testing.T) {
		llm.Enqueue("Reply.")
		llm.Enqueue(directorJSON)
		again, err := manager.Respond(ctx, record.ID, "", "hello")
		require.NoError(t, err)
		manager.Shutdown()

		require.NoError(t, manager.ClearSimulation(ctx, record.ID))
		_, err = manager.Simulation(ctx, record.ID)
		assert.True(t, store.IsNotFound(err))
		_, err = manager.Session(ctx, again.SessionID)
		assert.True(t, store.IsNotFound(err))
	})
}

func TestManagerMarkSession(t *testing.T) {
	ctx := context.Background()
	llm := oracle.NewScripted()
	manager := newTestManager(t, llm)
	record := createTestSimulation(t, manager, llm)

	llm.Enqueue("Reply.")
	llm.Enqueue(directorJSON)
	result, err := manager.Respond(ctx, record.ID, "", "hello")
	require.NoError(t, err)
	manager.Shutdown()

	require.NoError(t, manager.MarkSession(ctx, result.SessionID, store.SessionCompleted))

	session, err := manager.Session(ctx, result.SessionID)
	require.NoError(t, err)
	assert.Equal(t, store.SessionCompleted, session.State)
	assert.False(t, session.CompletedAt.IsZero())
}

func TestManagerPreview(t *testing.T) {
	ctx := context.Background()
	llm := oracle.NewScripted(parsedJSON)
	manager := newTestManager(t, llm)

	preview, err := manager.Preview(ctx, scenarioText)
	require.NoError(t, err)
	assert.Equal(t, "hard", preview.SuggestedParameters.Difficulty)

	_, err = manager.Preview(ctx, " ")
	assert.Error(t, err)
}

func TestManagerListSimulations(t *testing.T) {
	ctx := context.Background()
	llm := oracle.NewScripted()
	manager := newTestManager(t, llm)
	createTestSimulation(t, manager, llm)

	records, err := manager.Simulations(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, records, 1)

	isTemplate := true
	records, err = manager.Simulations(ctx, &isTemplate)
	require.NoError(t, err)
	assert.Empty(t, records)
}
