package agent

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/scrimlabs/scrim/internal/oracle"
	"github.com/scrimlabs/scrim/internal/schema"
	"github.com/scrimlabs/scrim/pkg/blackboard"
)

// FallbackIntervention is the sentinel guidance written when an evaluation
// fails. The actor skips it when composing its prompt.
const FallbackIntervention = "Continue current approach"

// directorHistoryWindow and directorEntryLimit bound how much conversation
// the evaluation prompt carries.
const (
	directorHistoryWindow = 10
	directorEntryLimit    = 200
)

// Decision is the outcome of one director invocation. When the cadence gate
// does not fire, Action is ActionNone and Evaluation is nil.
type Decision struct {
	Action           schema.DirectorAction `json:"action"`
	Evaluation       *schema.Evaluation    `json:"evaluation,omitempty"`
	NextEvaluationAt int                   `json:"next_evaluation_at,omitempty"`
}

// Director periodically evaluates student progress and issues interventions
// the actor honors on subsequent turns. Invocations are cooperative and
// non-blocking: the cadence gate decides whether an oracle evaluation
// actually runs.
type Director struct {
	Base
	model string
}

// NewDirector creates the director agent.
func NewDirector(board *blackboard.Board, llm oracle.Oracle, model string) *Director {
	return &Director{
		Base:  NewBase(blackboard.AgentDirector, board, llm),
		model: model,
	}
}

// Execute runs one director tick. It evaluates iff
// |conversation_history| - last_evaluated_message >= evaluation_frequency;
// otherwise it returns ActionNone with no state change. Oracle and parse
// failures are soft: a fallback decision is committed so the actor keeps
// serving turns.
func (d *Director) Execute(ctx context.Context) (*Decision, error) {
	var blueprint schema.SimulationBlueprint
	if err := d.readRequired(blackboard.KeyBlueprint, &blueprint); err != nil {
		return nil, err
	}

	var history []schema.Message
	if _, err := d.readInto(blackboard.KeyConversation, &history); err != nil {
		return nil, err
	}

	frequency := blueprint.DirectorSettings.EvaluationFrequency
	if frequency <= 0 {
		frequency = DefaultEvaluationFrequency
	}

	state := d.loadState(&blueprint)

	if len(history)-state.LastEvaluatedMessage < frequency {
		return &Decision{
			Action:           schema.ActionNone,
			NextEvaluationAt: state.LastEvaluatedMessage + frequency,
		}, nil
	}

	evaluation := d.evaluate(ctx, &blueprint, state, history)

	// Commit the evaluation - including the fallback - so the cadence window
	// always advances.
	applyEvaluation(state, evaluation, len(history))

	if err := d.write(blackboard.KeyDirectorState, state); err != nil {
		return nil, err
	}

	return &Decision{
		Action:           evaluation.Action,
		Evaluation:       evaluation,
		NextEvaluationAt: state.LastEvaluatedMessage + frequency,
	}, nil
}

// loadState returns the existing director state or a fresh one seeded from
// the blueprint's goals. Fresh state is not written here: ticks that do not
// evaluate must leave the board untouched.
func (d *Director) loadState(blueprint *schema.SimulationBlueprint) *schema.DirectorState {
	var state schema.DirectorState
	found, err := d.readInto(blackboard.KeyDirectorState, &state)
	if err == nil && found {
		if state.GoalProgress == nil {
			state.GoalProgress = map[string]schema.GoalProgress{}
		}
		return &state
	}

	now := time.Now().UTC()
	fresh := schema.DirectorState{
		Phase:                schema.PhaseIntro,
		StudentState:         schema.StateEngaged,
		LastEvaluatedMessage: 0,
		GoalProgress:         make(map[string]schema.GoalProgress, len(blueprint.Goals)),
		EncountersTriggered:  []string{},
		Evaluations:          []schema.Evaluation{},
	}
	for _, g := range blueprint.Goals {
		fresh.GoalProgress[g.ID] = schema.GoalProgress{
			Status:    schema.GoalNotStarted,
			Evidence:  []string{},
			UpdatedAt: now,
		}
	}
	return &fresh
}

// evaluate runs the oracle call and post-processes its decision. Failures
// yield the fallback evaluation rather than an error.
func (d *Director) evaluate(ctx context.Context, blueprint *schema.SimulationBlueprint, state *schema.DirectorState, history []schema.Message) *schema.Evaluation {
	obj, err := d.oracle.CompleteJSON(ctx, d.model, directorMessages(blueprint, state, history), oracle.Options{
		Temperature: 0.3,
		MaxTokens:   1024,
		JSONMode:    true,
	})
	if err != nil {
		return &schema.Evaluation{
			Phase:        state.Phase,
			StudentState: state.StudentState,
			Action:       schema.ActionContinue,
			Intervention: FallbackIntervention,
			Confidence:   0,
			Error:        true,
			Reasoning:    err.Error(),
			Timestamp:    time.Now().UTC(),
		}
	}

	var raw struct {
		Phase        schema.SessionPhase   `json:"phase"`
		StudentState schema.StudentState   `json:"student_state"`
		Action       schema.DirectorAction `json:"action"`
		Intervention string                `json:"intervention"`
		GoalProgress []string              `json:"goal_progress"`
		Confidence   float64               `json:"confidence"`
		Reasoning    string                `json:"reasoning"`
	}
	// Decode failures only lose optional fields; the clamps below fill them
	// from current state.
	_ = blackboard.Decode(obj, &raw)

	evaluation := &schema.Evaluation{
		Phase:        raw.Phase.NormalizeOr(state.Phase),
		StudentState: raw.StudentState.NormalizeOr(state.StudentState),
		Action:       raw.Action.NormalizeOr(schema.ActionContinue),
		Intervention: raw.Intervention,
		GoalProgress: raw.GoalProgress,
		Confidence:   clamp01(raw.Confidence),
		Reasoning:    raw.Reasoning,
		Timestamp:    time.Now().UTC(),
	}

	if evaluation.Action == schema.ActionEncounter {
		evaluation.SuggestedEncounters = suggestEncounters(blueprint.Encounters, state.EncountersTriggered)
	}

	return evaluation
}

// applyEvaluation commits a decision into director state: goal progress,
// encounter tracking, bounded evaluation history, and the cadence window.
func applyEvaluation(state *schema.DirectorState, evaluation *schema.Evaluation, historyLen int) {
	now := evaluation.Timestamp

	state.Phase = evaluation.Phase
	state.StudentState = evaluation.StudentState

	for _, goalID := range evaluation.GoalProgress {
		progress, ok := state.GoalProgress[goalID]
		if !ok {
			continue
		}
		if progress.Status == schema.GoalNotStarted {
			progress.Status = schema.GoalInProgress
		}
		progress.UpdatedAt = now
		state.GoalProgress[goalID] = progress
	}

	// The first suggested encounter is the one staged for the actor; mark it
	// so later suggestions exclude it.
	if evaluation.Action == schema.ActionEncounter && len(evaluation.SuggestedEncounters) > 0 {
		state.EncountersTriggered = append(state.EncountersTriggered, evaluation.SuggestedEncounters[0].ID)
	}

	state.Evaluations = append(state.Evaluations, *evaluation)
	if len(state.Evaluations) > schema.MaxEvaluations {
		state.Evaluations = state.Evaluations[len(state.Evaluations)-schema.MaxEvaluations:]
	}

	state.MessageCount = historyLen
	state.LastEvaluatedMessage = historyLen
	state.UpdatedAt = now
}

// suggestEncounters returns up to three encounters not yet triggered.
func suggestEncounters(encounters []schema.Encounter, triggered []string) []schema.Encounter {
	used := make(map[string]bool, len(triggered))
	for _, id := range triggered {
		used[id] = true
	}
	var out []schema.Encounter
	for _, e := range encounters {
		if used[e.ID] {
			continue
		}
		out = append(out, e)
		if len(out) == 3 {
			break
		}
	}
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// directorMessages builds the evaluation prompt: blueprint summary, goal
// list with success criteria, current assessment, and a truncated window of
// recent conversation.
func directorMessages(blueprint *schema.SimulationBlueprint, state *schema.DirectorState, history []schema.Message) []oracle.Message {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Simulation: %s\n%s\n\nLearning goals:\n", blueprint.Title, blueprint.Description)
	for _, g := range blueprint.Goals {
		fmt.Fprintf(&sb, "- [%s] %s", g.ID, g.Description)
		if len(g.SuccessCriteria) > 0 {
			fmt.Fprintf(&sb, " (success: %s)", strings.Join(g.SuccessCriteria, "; "))
		}
		sb.WriteString("\n")
	}

	fmt.Fprintf(&sb, "\nCurrent phase: %s\nStudent state: %s\nMessage count: %d\n",
		state.Phase, state.StudentState, len(history))

	if latest := latestStudentMessage(history); latest != "" {
		fmt.Fprintf(&sb, "\nLatest student message:\n%s\n", truncate(latest, directorEntryLimit))
	}

	sb.WriteString("\nRecent conversation:\n")
	start := len(history) - directorHistoryWindow
	if start < 0 {
		start = 0
	}
	for _, m := range history[start:] {
		fmt.Fprintf(&sb, "[%s] %s\n", m.Role, truncate(m.Content, directorEntryLimit))
	}

	return []oracle.Message{
		{Role: oracle.RoleSystem, Content: directorSystemPrompt},
		{Role: oracle.RoleUser, Content: sb.String()},
	}
}

func latestStudentMessage(history []schema.Message) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == schema.RoleStudent {
			return history[i].Content
		}
	}
	return ""
}

// truncate shortens s to at most limit bytes, never splitting a rune.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

const directorSystemPrompt = `You are the pedagogical director of an educational simulation. Evaluate the
student's progress and decide how the conversation should be steered.

Respond with a single JSON object:
{
  "phase": "intro|exploration|decision|conclusion",
  "student_state": "engaged|stuck|off_track|ready_to_advance",
  "action": "continue|challenge|redirect|encounter|advance_phase",
  "intervention": "one or two sentences of guidance for the in-character advisor",
  "goal_progress": ["ids of goals the student advanced since the last evaluation"],
  "confidence": 0.0,
  "reasoning": "brief justification"
}

Choose "encounter" only when a scripted challenge would deepen learning.
Choose "redirect" when the student has drifted from the scenario. Keep
interventions actionable for the advisor, not visible to the student.`
