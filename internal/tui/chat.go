// Package tui implements the interactive chat interface for running a local
// session against a built simulation.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/scrimlabs/scrim/internal/orchestrator"
)

var (
	studentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	advisorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	faintStyle   = lipgloss.NewStyle().Faint(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// Run starts the chat TUI for one simulation. Blocks until the user quits.
func Run(manager *orchestrator.Manager, simulationID, title string) error {
	program := tea.NewProgram(newModel(manager, simulationID, title), tea.WithAltScreen())
	_, err := program.Run()
	return err
}

// entry is one rendered line pair in the transcript.
type entry struct {
	speaker string
	text    string
}

// turnMsg delivers a completed turn back into the update loop.
type turnMsg struct {
	result *orchestrator.RespondResult
	err    error
}

// Model is the bubbletea model for the chat session.
type Model struct {
	manager      *orchestrator.Manager
	simulationID string
	sessionID    string
	title        string

	textarea textarea.Model
	viewport viewport.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer

	entries []entry
	waiting bool
	errText string
	ready   bool
	width   int
}

func newModel(manager *orchestrator.Manager, simulationID, title string) Model {
	ta := textarea.New()
	ta.Placeholder = "Type your message..."
	ta.Focus()
	ta.SetHeight(3)
	ta.ShowLineNumbers = false

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		manager:      manager,
		simulationID: simulationID,
		title:        title,
		textarea:     ta,
		spinner:      sp,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		taCmd tea.Cmd
		vpCmd tea.Cmd
		spCmd tea.Cmd
	)
	m.textarea, taCmd = m.textarea.Update(msg)
	m.viewport, vpCmd = m.viewport.Update(msg)
	m.spinner, spCmd = m.spinner.Update(msg)

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		viewportHeight := msg.Height - m.textarea.Height() - 4
		if viewportHeight < 3 {
			viewportHeight = 3
		}
		if !m.ready {
			m.viewport = viewport.New(msg.Width, viewportHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = viewportHeight
		}
		m.renderer, _ = glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(msg.Width-4),
		)
		m.refreshViewport()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			if m.waiting {
				return m, nil
			}
			input := strings.TrimSpace(m.textarea.Value())
			if input == "" {
				return m, nil
			}
			m.textarea.Reset()
			m.entries = append(m.entries, entry{speaker: "student", text: input})
			m.waiting = true
			m.errText = ""
			m.refreshViewport()
			return m, tea.Batch(m.sendTurn(input), m.spinner.Tick)
		}

	case turnMsg:
		m.waiting = false
		if msg.err != nil {
			m.errText = msg.err.Error()
			m.refreshViewport()
			return m, nil
		}
		m.sessionID = msg.result.SessionID
		if msg.result.FirstMessage != "" {
			// Show the advisor's opener ahead of the reply on a fresh session.
			m.entries = insertOpener(m.entries, msg.result.FirstMessage)
		}
		m.entries = append(m.entries, entry{speaker: "advisor", text: msg.result.Response})
		m.refreshViewport()
	}

	return m, tea.Batch(taCmd, vpCmd, spCmd)
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	status := faintStyle.Render(fmt.Sprintf("%s  •  enter to send, esc to quit", m.title))
	if m.waiting {
		status = m.spinner.View() + " thinking..."
	}
	if m.errText != "" {
		status = errorStyle.Render("error: " + m.errText)
	}

	return fmt.Sprintf("%s\n\n%s\n%s", m.viewport.View(), m.textarea.View(), status)
}

func (m *Model) sendTurn(input string) tea.Cmd {
	manager, simulationID, sessionID := m.manager, m.simulationID, m.sessionID
	return func() tea.Msg {
		result, err := manager.Respond(context.Background(), simulationID, sessionID, input)
		return turnMsg{result: result, err: err}
	}
}

func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}
	var sb strings.Builder
	for _, e := range m.entries {
		switch e.speaker {
		case "student":
			sb.WriteString(studentStyle.Render("You") + "\n" + e.text + "\n\n")
		default:
			sb.WriteString(advisorStyle.Render("Advisor") + "\n" + m.renderMarkdown(e.text) + "\n")
		}
	}
	m.viewport.SetContent(sb.String())
	m.viewport.GotoBottom()
}

// renderMarkdown renders advisor replies through glamour, falling back to
// plain text when the renderer is unavailable.
func (m *Model) renderMarkdown(text string) string {
	if m.renderer == nil {
		return text
	}
	out, err := m.renderer.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimSpace(out) + "\n"
}

// insertOpener places the advisor's first message before the student's
// latest entry so the transcript reads in conversation order.
func insertOpener(entries []entry, opener string) []entry {
	if len(entries) == 0 {
		return []entry{{speaker: "advisor", text: opener}}
	}
	out := make([]entry, 0, len(entries)+1)
	out = append(out, entries[:len(entries)-1]...)
	out = append(out, entry{speaker: "advisor", text: opener}, entries[len(entries)-1])
	return out
}
