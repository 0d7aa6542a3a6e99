package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrimlabs/scrim/internal/orchestrator"
)

func TestModelQuitKeys(t *testing.T) {
	for _, key := range []tea.KeyType{tea.KeyCtrlC, tea.KeyEsc} {
		model := newModel(nil, "sim-1", "Northwind")

		_, cmd := model.Update(tea.KeyMsg{Type: key})
		require.NotNil(t, cmd)
		_, ok := cmd().(tea.QuitMsg)
		assert.True(t, ok, "expected a quit command")
	}
}

func TestModelEnterSubmitsInput(t *testing.T) {
	t.Run("input becomes a student entry and starts a turn", func(t *testing.T) {
		model := newModel(nil, "sim-1", "Northwind")
		model.textarea.SetValue("Where do I start?")

		updated, cmd := model.Update(tea.KeyMsg{Type: tea.KeyEnter})
		next := updated.(Model)

		require.Len(t, next.entries, 1)
		assert.Equal(t, "student", next.entries[0].speaker)
		assert.Equal(t, "Where do I start?", next.entries[0].text)
		assert.True(t, next.waiting)
		assert.Empty(t, next.textarea.Value(), "the textarea resets on send")
		assert.NotNil(t, cmd)
	})

	t.Run("blank input is ignored", func(t *testing.T) {
		model := newModel(nil, "sim-1", "Northwind")
		model.textarea.SetValue("   ")

		updated, _ := model.Update(tea.KeyMsg{Type: tea.KeyEnter})
		next := updated.(Model)

		assert.Empty(t, next.entries)
		assert.False(t, next.waiting)
	})

	t.Run("enter while waiting is ignored", func(t *testing.T) {
		model := newModel(nil, "sim-1", "Northwind")
		model.waiting = true
		model.textarea.SetValue("another message")

		updated, _ := model.Update(tea.KeyMsg{Type: tea.KeyEnter})
		next := updated.(Model)

		assert.Empty(t, next.entries)
		assert.True(t, next.waiting)
	})
}

func TestModelTurnMsg(t *testing.T) {
	t.Run("reply is appended and the session id sticks", func(t *testing.T) {
		model := newModel(nil, "sim-1", "Northwind")
		model.waiting = true
		model.entries = []entry{{speaker: "student", text: "Where do I start?"}}

		updated, _ := model.Update(turnMsg{result: &orchestrator.RespondResult{
			TurnResult: &orchestrator.TurnResult{Response: "Start with the cash position."},
			SessionID:  "sess-1",
		}})
		next := updated.(Model)

		assert.False(t, next.waiting)
		assert.Equal(t, "sess-1", next.sessionID)
		require.Len(t, next.entries, 2)
		assert.Equal(t, "advisor", next.entries[1].speaker)
		assert.Equal(t, "Start with the cash position.", next.entries[1].text)
	})

	t.Run("the opener lands before the student's first message", func(t *testing.T) {
		model := newModel(nil, "sim-1", "Northwind")
		model.waiting = true
		model.entries = []entry{{speaker: "student", text: "Where do I start?"}}

		updated, _ := model.Update(turnMsg{result: &orchestrator.RespondResult{
			TurnResult:   &orchestrator.TurnResult{Response: "Start with the cash position."},
			SessionID:    "sess-1",
			FirstMessage: "Welcome. I'm Dana.",
		}})
		next := updated.(Model)

		require.Len(t, next.entries, 3)
		assert.Equal(t, "Welcome. I'm Dana.", next.entries[0].text)
		assert.Equal(t, "Where do I start?", next.entries[1].text)
		assert.Equal(t, "Start with the cash position.", next.entries[2].text)
	})

	t.Run("a failed turn surfaces the error and keeps the transcript", func(t *testing.T) {
		model := newModel(nil, "sim-1", "Northwind")
		model.waiting = true
		model.entries = []entry{{speaker: "student", text: "Where do I start?"}}

		updated, _ := model.Update(turnMsg{err: assert.AnError})
		next := updated.(Model)

		assert.False(t, next.waiting)
		assert.Equal(t, assert.AnError.Error(), next.errText)
		assert.Len(t, next.entries, 1)
	})
}

func TestModelWindowSize(t *testing.T) {
	model := newModel(nil, "sim-1", "Northwind")

	updated, _ := model.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	next := updated.(Model)

	assert.True(t, next.ready)
	assert.Equal(t, 120, next.width)
	assert.Equal(t, 120, next.viewport.Width)
}

func TestInsertOpener(t *testing.T) {
	t.Run("empty transcript gets just the opener", func(t *testing.T) {
		out := insertOpener(nil, "Welcome.")
		require.Len(t, out, 1)
		assert.Equal(t, "advisor", out[0].speaker)
	})

	t.Run("opener slots in before the latest entry", func(t *testing.T) {
		out := insertOpener([]entry{
			{speaker: "student", text: "old"},
			{speaker: "student", text: "new"},
		}, "Welcome.")
		require.Len(t, out, 3)
		assert.Equal(t, "old", out[0].text)
		assert.Equal(t, "Welcome.", out[1].text)
		assert.Equal(t, "new", out[2].text)
	})
}
