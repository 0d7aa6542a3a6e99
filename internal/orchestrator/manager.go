package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/scrimlabs/scrim/internal/oracle"
	"github.com/scrimlabs/scrim/internal/schema"
	"github.com/scrimlabs/scrim/internal/store"
)

// Manager owns the fleet of simulations and live sessions. Simulations and
// session transcripts persist in the store; blackboards live in memory and
// are rehydrated on demand, so a restart costs director memory but never
// conversation history.
type Manager struct {
	store  *store.Client
	llm    oracle.Oracle
	models Models

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates the session manager.
func NewManager(st *store.Client, llm oracle.Oracle, models Models) *Manager {
	return &Manager{
		store:    st,
		llm:      llm,
		models:   models.WithDefaults(),
		sessions: make(map[string]*Session),
	}
}

// CreateRequest is the professor's setup payload.
type CreateRequest struct {
	Name         string                     `json:"name,omitempty"`
	Scenario     string                     `json:"scenario"`
	Instructions string                     `json:"instructions,omitempty"`
	Actors       []schema.Actor             `json:"actors,omitempty"`
	Objectives   []string                   `json:"objectives,omitempty"`
	Parameters   *schema.SimulationSettings `json:"parameters,omitempty"`
	IsTemplate   bool                       `json:"is_template,omitempty"`
}

// CreateSimulation runs the full build pipeline and persists the result.
func (m *Manager) CreateSimulation(ctx context.Context, req CreateRequest) (*store.SimulationRecord, error) {
	if strings.TrimSpace(req.Scenario) == "" {
		return nil, fmt.Errorf("scenario text is required")
	}

	result, err := BuildSimulation(ctx, m.llm, m.models, BuildInput{
		RawInput: composeRawInput(req),
		Settings: req.Parameters,
	})
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	record := &store.SimulationRecord{
		ID:           result.Blueprint.ScenarioID,
		Name:         simulationName(req.Name, result.Blueprint.Title),
		ScenarioText: req.Scenario,
		Actors:       result.Blueprint.Actors,
		Objectives:   objectives(req.Objectives, result.Blueprint),
		Parameters:   settingsOrDefaults(req.Parameters),
		Blueprint:    *result.Blueprint,
		IsTemplate:   req.IsTemplate,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := m.store.SaveSimulation(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// EditRequest is the professor's edit payload. Blueprints are immutable, so
// any change regenerates one through the full pipeline.
type EditRequest struct {
	SimulationID string                     `json:"simulationId"`
	Name         string                     `json:"name,omitempty"`
	Scenario     string                     `json:"scenario,omitempty"`
	Actors       []schema.Actor             `json:"actors,omitempty"`
	Objectives   []string                   `json:"objectives,omitempty"`
	Parameters   *schema.SimulationSettings `json:"parameters,omitempty"`
}

// EditSimulation rebuilds a simulation with the requested changes merged
// over the stored ones. The simulation keeps its id; the blueprint is
// regenerated, never mutated in place.
func (m *Manager) EditSimulation(ctx context.Context, req EditRequest) (*store.SimulationRecord, error) {
	record, err := m.store.GetSimulation(ctx, req.SimulationID)
	if err != nil {
		return nil, err
	}

	scenario := record.ScenarioText
	if req.Scenario != "" {
		scenario = req.Scenario
	}
	parameters := record.Parameters
	if req.Parameters != nil {
		parameters = *req.Parameters
	}
	objectives := record.Objectives
	if len(req.Objectives) > 0 {
		objectives = req.Objectives
	}
	actors := record.Actors
	if len(req.Actors) > 0 {
		actors = req.Actors
	}

	result, err := BuildSimulation(ctx, m.llm, m.models, BuildInput{
		RawInput: composeRawInput(CreateRequest{
			Scenario:   scenario,
			Actors:     actors,
			Objectives: objectives,
		}),
		Settings: &parameters,
	})
	if err != nil {
		return nil, err
	}

	// The regenerated blueprint gets the stored simulation's id so sessions
	// and listings stay attached.
	blueprint := *result.Blueprint
	blueprint.ScenarioID = record.ID

	record.ScenarioText = scenario
	record.Actors = blueprint.Actors
	record.Objectives = objectives
	record.Parameters = parameters
	record.Blueprint = blueprint
	record.UpdatedAt = time.Now().UTC()
	if req.Name != "" {
		record.Name = req.Name
	}

	if err := m.store.SaveSimulation(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// RespondResult is one turn's outcome plus session bookkeeping.
type RespondResult struct {
	*TurnResult
	SessionID    string `json:"session_id"`
	SimulationID string `json:"simulation_id"`
	FirstMessage string `json:"first_message,omitempty"`
}

// Respond drives one turn. An empty sessionID starts a new session; the
// returned result then carries the advisor's opener alongside the reply.
func (m *Manager) Respond(ctx context.Context, simulationID, sessionID, studentInput string) (*RespondResult, error) {
	if strings.TrimSpace(studentInput) == "" {
		return nil, fmt.Errorf("student input is required")
	}

	session, firstMessage, err := m.sessionFor(ctx, simulationID, sessionID)
	if err != nil {
		return nil, err
	}

	turn, err := session.Respond(ctx, studentInput)
	if err != nil {
		return nil, err
	}

	if err := m.persistSession(ctx, session); err != nil {
		return nil, err
	}

	return &RespondResult{
		TurnResult:   turn,
		SessionID:    session.ID,
		SimulationID: session.SimulationID,
		FirstMessage: firstMessage,
	}, nil
}

// sessionFor returns the live session, rehydrating or creating as needed.
// The opener string is non-empty only for brand-new sessions.
func (m *Manager) sessionFor(ctx context.Context, simulationID, sessionID string) (*Session, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sessionID != "" {
		if session, ok := m.sessions[sessionID]; ok {
			return session, "", nil
		}
		// Rehydrate from the store. Director memory does not survive a
		// restart; the conversation does.
		record, err := m.store.GetSession(ctx, sessionID)
		if err != nil {
			return nil, "", err
		}
		simulation, err := m.store.GetSimulation(ctx, record.SimulationID)
		if err != nil {
			return nil, "", err
		}
		board, err := RehydrateBoard(&simulation.Blueprint, record.History)
		if err != nil {
			return nil, "", err
		}
		session := NewSession(record.ID, record.SimulationID, board, m.llm, m.models)
		session.startedAt = record.StartedAt
		session.lastActivityAt = record.LastActivityAt
		m.sessions[session.ID] = session
		return session, "", nil
	}

	simulation, err := m.store.GetSimulation(ctx, simulationID)
	if err != nil {
		return nil, "", err
	}
	board, err := RehydrateBoard(&simulation.Blueprint, nil)
	if err != nil {
		return nil, "", err
	}
	session := NewSession(uuid.New().String(), simulationID, board, m.llm, m.models)
	opener := firstMessageFromBlueprint(&simulation.Blueprint)
	if err := session.SeedFirstMessage(opener); err != nil {
		return nil, "", err
	}
	m.sessions[session.ID] = session
	return session, opener, nil
}

func (m *Manager) persistSession(ctx context.Context, session *Session) error {
	record := &store.SessionRecord{
		ID:             session.ID,
		SimulationID:   session.SimulationID,
		History:        session.History(),
		State:          store.SessionActive,
		StartedAt:      session.StartedAt(),
		LastActivityAt: session.LastActivityAt(),
	}
	return m.store.SaveSession(ctx, record)
}

// SessionView is the runtime state exposed to GET /simulation/state.
type SessionView struct {
	SessionID           string                `json:"session_id"`
	State               store.SessionState    `json:"state"`
	ConversationHistory []schema.Message      `json:"conversation_history"`
	MessageCount        int                   `json:"message_count"`
	DirectorState       *schema.DirectorState `json:"director_state,omitempty"`
	StartedAt           time.Time             `json:"started_at"`
	LastActivityAt      time.Time             `json:"last_activity_at"`
}

// SessionState returns the current view of one session. Live sessions are
// read from memory for director state; everything else comes from the store.
func (m *Manager) SessionState(ctx context.Context, sessionID string) (*SessionView, error) {
	record, err := m.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	view := &SessionView{
		SessionID:           record.ID,
		State:               record.State,
		ConversationHistory: record.History,
		MessageCount:        len(record.History),
		StartedAt:           record.StartedAt,
		LastActivityAt:      record.LastActivityAt,
	}

	m.mu.Lock()
	session, live := m.sessions[sessionID]
	m.mu.Unlock()
	if live {
		view.DirectorState = session.DirectorState()
	}
	return view, nil
}

// Simulation fetches one stored simulation.
func (m *Manager) Simulation(ctx context.Context, id string) (*store.SimulationRecord, error) {
	return m.store.GetSimulation(ctx, id)
}

// Simulations lists stored simulations, optionally filtered by template
// status.
func (m *Manager) Simulations(ctx context.Context, isTemplate *bool) ([]*store.SimulationRecord, error) {
	return m.store.ListSimulations(ctx, isTemplate)
}

// Session fetches one stored session record.
func (m *Manager) Session(ctx context.Context, id string) (*store.SessionRecord, error) {
	return m.store.GetSession(ctx, id)
}

// ClearSession deletes one session and drops its live state.
func (m *Manager) ClearSession(ctx context.Context, sessionID string) error {
	m.dropSessions(sessionID)
	return m.store.DeleteSession(ctx, sessionID)
}

// ClearSimulation deletes a simulation and all of its sessions.
func (m *Manager) ClearSimulation(ctx context.Context, simulationID string) error {
	ids, err := m.store.SessionsForSimulation(ctx, simulationID)
	if err != nil {
		return err
	}
	m.dropSessions(ids...)
	return m.store.DeleteSimulation(ctx, simulationID)
}

// MarkSession updates a session's lifecycle state.
func (m *Manager) MarkSession(ctx context.Context, sessionID string, state store.SessionState) error {
	record, err := m.store.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	record.State = state
	if state == store.SessionCompleted {
		record.CompletedAt = time.Now().UTC()
	}
	return m.store.SaveSession(ctx, record)
}

// Preview runs the parser-only dry run for POST /setup/parse.
func (m *Manager) Preview(ctx context.Context, scenarioText string) (*ParsePreview, error) {
	if strings.TrimSpace(scenarioText) == "" {
		return nil, fmt.Errorf("scenario text is required")
	}
	return PreviewParse(ctx, m.llm, m.models, scenarioText)
}

// Ping reports store connectivity for health checks.
func (m *Manager) Ping(ctx context.Context) error {
	return m.store.Ping(ctx)
}

// Shutdown waits for in-flight director ticks across all live sessions.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	for _, s := range sessions {
		s.Wait()
	}
}

func (m *Manager) dropSessions(ids ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.sessions, id)
	}
}

// composeRawInput folds the professor's structured hints into the scenario
// text the parser sees.
func composeRawInput(req CreateRequest) string {
	var sb strings.Builder
	sb.WriteString(strings.TrimSpace(req.Scenario))

	if req.Instructions != "" {
		sb.WriteString("\n\nInstructor notes: ")
		sb.WriteString(req.Instructions)
	}
	if len(req.Actors) > 0 {
		sb.WriteString("\n\nKey people:")
		for _, a := range req.Actors {
			sb.WriteString("\n- ")
			sb.WriteString(a.Name)
			if a.Role != "" {
				sb.WriteString(" (" + a.Role + ")")
			}
			if a.Description != "" {
				sb.WriteString(": " + a.Description)
			}
		}
	}
	if len(req.Objectives) > 0 {
		sb.WriteString("\n\nLearning objectives:")
		for _, o := range req.Objectives {
			sb.WriteString("\n- " + o)
		}
	}
	return sb.String()
}

func simulationName(requested, title string) string {
	if requested != "" {
		return requested
	}
	return title
}

func objectives(requested []string, blueprint *schema.SimulationBlueprint) []string {
	if len(requested) > 0 {
		return requested
	}
	out := make([]string, 0, len(blueprint.Goals))
	for _, g := range blueprint.Goals {
		if g.LearningObjective != "" {
			out = append(out, g.LearningObjective)
			continue
		}
		out = append(out, g.Description)
	}
	return out
}

func settingsOrDefaults(s *schema.SimulationSettings) schema.SimulationSettings {
	if s != nil {
		return s.WithDefaults()
	}
	return schema.SimulationSettings{}.WithDefaults()
}

// firstMessageFromBlueprint templates the advisor's opener for a fresh
// session.
func firstMessageFromBlueprint(blueprint *schema.SimulationBlueprint) string {
	persona := ""
	for _, a := range blueprint.Actors {
		if a.Name != "" {
			persona = a.Name
			break
		}
	}
	opener := "Welcome."
	if persona != "" {
		opener = fmt.Sprintf("Welcome, I'm %s.", persona)
	}
	if blueprint.Description != "" {
		opener += " " + summarize(blueprint.Description, 240)
	}
	opener += " Where would you like to start?"
	return opener
}

func summarize(s string, limit int) string {
	s = strings.TrimSpace(s)
	if len(s) <= limit {
		return s
	}
	cut := strings.LastIndex(s[:limit], " ")
	if cut <= 0 {
		cut = limit
	}
	return s[:cut] + "…"
}
