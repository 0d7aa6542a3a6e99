// Package schema defines the typed shapes of the well-known blackboard keys:
// parsed data, scenario outline, validation result, simulation blueprint,
// director state, and actor responses. Values cross the blackboard as generic
// JSON trees; these structs are what agents decode them into.
package schema

import (
	"fmt"
	"time"
)

// ScenarioType is the closed set of scenario classifications the parser may
// emit. Unknown values normalize to ScenarioOther.
type ScenarioType string

const (
	ScenarioCrisis      ScenarioType = "crisis"
	ScenarioNegotiation ScenarioType = "negotiation"
	ScenarioStrategy    ScenarioType = "strategy"
	ScenarioOperations  ScenarioType = "operations"
	ScenarioLeadership  ScenarioType = "leadership"
	ScenarioOther       ScenarioType = "other"
)

// Normalize maps unknown scenario types to ScenarioOther.
func (s ScenarioType) Normalize() ScenarioType {
	switch s {
	case ScenarioCrisis, ScenarioNegotiation, ScenarioStrategy,
		ScenarioOperations, ScenarioLeadership, ScenarioOther:
		return s
	default:
		return ScenarioOther
	}
}

// ScenarioContext captures the situational frame extracted from raw input.
type ScenarioContext struct {
	Company   string `json:"company,omitempty"`
	Situation string `json:"situation,omitempty"`
	Timeframe string `json:"timeframe,omitempty"`
	Stakes    string `json:"stakes,omitempty"`
}

// Actor is a non-student character in the scenario. In parsed data the role
// and name default to each other when one is missing; in the blueprint the
// role defaults to "advisor".
type Actor struct {
	Role        string `json:"role"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// ParsedData is the parser agent's structured extraction of raw_input.
type ParsedData struct {
	ScenarioType  ScenarioType    `json:"scenario_type"`
	Industry      string          `json:"industry,omitempty"`
	Context       ScenarioContext `json:"context"`
	Actors        []Actor         `json:"actors"`
	Constraints   []string        `json:"constraints"`
	Objectives    []string        `json:"objectives"`
	KeyChallenges []string        `json:"key_challenges"`

	// Extra carries unknown fields the oracle returned, for forward compat.
	Extra map[string]any `json:"extra,omitempty"`
}

// Normalize applies the parser's defaulting rules in place: constrain the
// scenario type, replace nil arrays with empty ones, and default actor
// role/name to each other when one is missing.
func (p *ParsedData) Normalize() {
	p.ScenarioType = p.ScenarioType.Normalize()
	if p.Actors == nil {
		p.Actors = []Actor{}
	}
	if p.Constraints == nil {
		p.Constraints = []string{}
	}
	if p.Objectives == nil {
		p.Objectives = []string{}
	}
	if p.KeyChallenges == nil {
		p.KeyChallenges = []string{}
	}
	for i := range p.Actors {
		if p.Actors[i].Role == "" {
			p.Actors[i].Role = p.Actors[i].Name
		}
		if p.Actors[i].Name == "" {
			p.Actors[i].Name = p.Actors[i].Role
		}
	}
}

// Goal is an outcome-oriented learning goal on the scenario outline.
type Goal struct {
	ID                string   `json:"id"`
	Title             string   `json:"title,omitempty"`
	Description       string   `json:"description"`
	LearningObjective string   `json:"learning_objective,omitempty"`
	SuccessCriteria   []string `json:"success_criteria"`
	RequiredEvidence  []string `json:"required_evidence"`
	Dependencies      []string `json:"dependencies,omitempty"`
	Milestones        []string `json:"milestones,omitempty"`
}

// Rule constrains how the simulation may unfold.
type Rule struct {
	ID          string `json:"id"`
	Description string `json:"description"`
}

// Trigger is a condition-effect pair on the blueprint. Keyword and
// message-count conditions are evaluated structurally by the actor; any other
// phrasing is passed to the model as context.
type Trigger struct {
	ID        string `json:"id"`
	Condition string `json:"condition"`
	Effect    string `json:"effect"`
	Priority  int    `json:"priority,omitempty"`
}

// ChallengeType is the closed set of encounter challenge kinds.
type ChallengeType string

const (
	ChallengeEthicalDilemma        ChallengeType = "ethical_dilemma"
	ChallengeTechnicalProblem      ChallengeType = "technical_problem"
	ChallengeInterpersonalConflict ChallengeType = "interpersonal_conflict"
	ChallengeStrategicChoice       ChallengeType = "strategic_choice"
)

// Normalize maps unknown challenge types to strategic_choice.
func (c ChallengeType) Normalize() ChallengeType {
	switch c {
	case ChallengeEthicalDilemma, ChallengeTechnicalProblem,
		ChallengeInterpersonalConflict, ChallengeStrategicChoice:
		return c
	default:
		return ChallengeStrategicChoice
	}
}

// Loyalties records which actors or positions an encounter character supports
// and opposes. First-class so static schemas can enforce the shape.
type Loyalties struct {
	Supports []string `json:"supports,omitempty"`
	Opposes  []string `json:"opposes,omitempty"`
}

// Encounter is a scripted opportunity for a character to challenge the
// student.
type Encounter struct {
	ID              string        `json:"id"`
	ActorRole       string        `json:"actor_role"`
	ChallengeType   ChallengeType `json:"challenge_type"`
	PersonalityMode string        `json:"personality_mode,omitempty"`
	KnowledgeLevel  string        `json:"knowledge_level,omitempty"`
	HiddenInfo      []string      `json:"hidden_info,omitempty"`
	Loyalties       Loyalties     `json:"loyalties,omitempty"`
	Priorities      []string      `json:"priorities,omitempty"`
	SocraticPrompts []string      `json:"socratic_prompts"`
}

// DirectorIntensity is the closed set of director intervention intensities.
type DirectorIntensity string

const (
	IntensityOff       DirectorIntensity = "off"
	IntensityLight     DirectorIntensity = "light"
	IntensityBalanced  DirectorIntensity = "balanced"
	IntensityActive    DirectorIntensity = "active"
	IntensityIntensive DirectorIntensity = "intensive"
)

// Validate checks the intensity against the closed set.
func (d DirectorIntensity) Validate() error {
	switch d {
	case IntensityOff, IntensityLight, IntensityBalanced, IntensityActive, IntensityIntensive:
		return nil
	default:
		return fmt.Errorf("unknown director intensity: %q", d)
	}
}

// OutlineDirectorSettings is the director configuration proposed on the
// outline, before the finalizer merges it over defaults.
type OutlineDirectorSettings struct {
	Intensity           DirectorIntensity `json:"intensity,omitempty"`
	EvaluationFrequency int               `json:"evaluation_frequency,omitempty"`
}

// ScenarioOutline is the SAG agent's pedagogical arc.
type ScenarioOutline struct {
	ScenarioID       string                   `json:"scenario_id"`
	Title            string                   `json:"title"`
	Description      string                   `json:"description"`
	Goals            []Goal                   `json:"goals"`
	Rules            []Rule                   `json:"rules"`
	Triggers         []Trigger                `json:"triggers"`
	Encounters       []Encounter              `json:"encounters"`
	Lessons          []string                 `json:"lessons,omitempty"`
	Tests            []string                 `json:"tests,omitempty"`
	Actors           []Actor                  `json:"actors,omitempty"`
	DirectorSettings *OutlineDirectorSettings `json:"director_settings,omitempty"`
	DirectorTriggers []Trigger                `json:"director_triggers,omitempty"`
}

// Normalize replaces nil arrays with empty ones and assigns stable ids
// (goal_N, rule_N, trigger_N, encounter_N) where missing.
func (o *ScenarioOutline) Normalize() {
	if o.Goals == nil {
		o.Goals = []Goal{}
	}
	if o.Rules == nil {
		o.Rules = []Rule{}
	}
	if o.Triggers == nil {
		o.Triggers = []Trigger{}
	}
	if o.Encounters == nil {
		o.Encounters = []Encounter{}
	}
	for i := range o.Goals {
		if o.Goals[i].ID == "" {
			o.Goals[i].ID = fmt.Sprintf("goal_%d", i+1)
		}
		if o.Goals[i].SuccessCriteria == nil {
			o.Goals[i].SuccessCriteria = []string{}
		}
		if o.Goals[i].RequiredEvidence == nil {
			o.Goals[i].RequiredEvidence = []string{}
		}
	}
	for i := range o.Rules {
		if o.Rules[i].ID == "" {
			o.Rules[i].ID = fmt.Sprintf("rule_%d", i+1)
		}
	}
	for i := range o.Triggers {
		if o.Triggers[i].ID == "" {
			o.Triggers[i].ID = fmt.Sprintf("trigger_%d", i+1)
		}
	}
	for i := range o.Encounters {
		if o.Encounters[i].ID == "" {
			o.Encounters[i].ID = fmt.Sprintf("encounter_%d", i+1)
		}
		o.Encounters[i].ChallengeType = o.Encounters[i].ChallengeType.Normalize()
		if o.Encounters[i].SocraticPrompts == nil {
			o.Encounters[i].SocraticPrompts = []string{}
		}
	}
}

// ValidationError is a blocking validation finding.
type ValidationError struct {
	Source  string `json:"source"`
	Path    string `json:"path"`
	Message string `json:"message"`
}

// ValidationWarning is a non-blocking validation finding.
type ValidationWarning struct {
	Source   string `json:"source"`
	Severity string `json:"severity"`
	Field    string `json:"field"`
	Message  string `json:"message"`
}

// ValidationResult is the validator agent's report.
type ValidationResult struct {
	Valid         bool                `json:"valid"`
	Errors        []ValidationError   `json:"errors"`
	Warnings      []ValidationWarning `json:"warnings"`
	SchemaVersion string              `json:"schema_version"`
	ValidatedAt   time.Time           `json:"validated_at"`
}

// SimulationSettings are the professor-supplied knobs for outline generation.
type SimulationSettings struct {
	Difficulty   string   `json:"difficulty,omitempty"`
	FocusAreas   []string `json:"focus_areas,omitempty"`
	StudentLevel string   `json:"student_level,omitempty"`
}

// WithDefaults fills unset simulation settings with the standard defaults.
func (s SimulationSettings) WithDefaults() SimulationSettings {
	if s.Difficulty == "" {
		s.Difficulty = "medium"
	}
	if len(s.FocusAreas) == 0 {
		s.FocusAreas = []string{"critical thinking", "decision making"}
	}
	if s.StudentLevel == "" {
		s.StudentLevel = "undergraduate"
	}
	return s
}

// DirectorSettings configure runtime evaluation cadence and style.
type DirectorSettings struct {
	EvaluationFrequency int     `json:"evaluation_frequency"`
	NarrativeFreedom    float64 `json:"narrative_freedom"`
	InterventionStyle   string  `json:"intervention_style"`
	GoalTracking        bool    `json:"goal_tracking"`
}

// AIMode is the actor's interaction stance.
type AIMode string

const (
	ModeChallenger AIMode = "challenger"
	ModeCoach      AIMode = "coach"
	ModeExpert     AIMode = "expert"
	ModeAdaptive   AIMode = "adaptive"
	ModeCustom     AIMode = "custom"
)

// Normalize maps unknown AI modes to adaptive.
func (m AIMode) Normalize() AIMode {
	switch m {
	case ModeChallenger, ModeCoach, ModeExpert, ModeAdaptive, ModeCustom:
		return m
	default:
		return ModeAdaptive
	}
}

// ComplexityMode shapes how difficulty evolves over the conversation.
type ComplexityMode string

const (
	ComplexityLinear     ComplexityMode = "linear"
	ComplexityEscalating ComplexityMode = "escalating"
	ComplexityAdaptive   ComplexityMode = "adaptive"
)

// ActorSettings configure the actor's generation behavior.
type ActorSettings struct {
	Temperature        float64        `json:"temperature"`
	MaxResponseTokens  int            `json:"max_response_tokens"`
	SocraticMode       bool           `json:"socratic_mode"`
	AIMode             AIMode         `json:"ai_mode,omitempty"`
	ComplexityMode     ComplexityMode `json:"complexity_mode,omitempty"`
	CustomInstructions string         `json:"custom_instructions,omitempty"`
}

// UserModifications are the professor's REVIEWING-phase edits, merged by the
// finalizer over the generated outline and default settings.
type UserModifications struct {
	Title            string            `json:"title,omitempty"`
	Description      string            `json:"description,omitempty"`
	DirectorSettings *DirectorSettings `json:"director_settings,omitempty"`
	ActorSettings    *ActorSettings    `json:"actor_settings,omitempty"`
}

// BlueprintMetadata digests the blueprint's inputs.
type BlueprintMetadata struct {
	SourceDataHashes map[string]string `json:"source_data_hashes"`
	FinalizedAt      time.Time         `json:"finalized_at"`
}

// SimulationBlueprint is the immutable canonical scenario consumed at
// runtime. Once written to the blackboard it is never modified.
type SimulationBlueprint struct {
	ScenarioID       string            `json:"scenario_id"`
	Title            string            `json:"title"`
	Description      string            `json:"description"`
	ScenarioText     string            `json:"scenario_text"`
	Actors           []Actor           `json:"actors"`
	Goals            []Goal            `json:"goals"`
	Rules            []Rule            `json:"rules"`
	Triggers         []Trigger         `json:"triggers"`
	Encounters       []Encounter       `json:"encounters"`
	DirectorSettings DirectorSettings  `json:"director_settings"`
	ActorSettings    ActorSettings     `json:"actor_settings"`
	Metadata         BlueprintMetadata `json:"metadata"`
	Immutable        bool              `json:"immutable"`
	LockedAt         time.Time         `json:"locked_at"`
}

// Message roles in conversation history.
const (
	RoleStudent = "student"
	RoleAdvisor = "ai_advisor"
	RoleSystem  = "system"
)

// Message is one conversation history entry.
type Message struct {
	Role      string         `json:"role"`
	Content   string         `json:"content"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// SessionPhase is the director's view of where the conversation is.
type SessionPhase string

const (
	PhaseIntro       SessionPhase = "intro"
	PhaseExploration SessionPhase = "exploration"
	PhaseDecision    SessionPhase = "decision"
	PhaseConclusion  SessionPhase = "conclusion"
)

// NormalizeOr returns the phase if valid, else the fallback.
func (p SessionPhase) NormalizeOr(fallback SessionPhase) SessionPhase {
	switch p {
	case PhaseIntro, PhaseExploration, PhaseDecision, PhaseConclusion:
		return p
	default:
		return fallback
	}
}

// StudentState is the director's assessment of the student.
type StudentState string

const (
	StateEngaged        StudentState = "engaged"
	StateStuck          StudentState = "stuck"
	StateOffTrack       StudentState = "off_track"
	StateReadyToAdvance StudentState = "ready_to_advance"
)

// NormalizeOr returns the state if valid, else the fallback.
func (s StudentState) NormalizeOr(fallback StudentState) StudentState {
	switch s {
	case StateEngaged, StateStuck, StateOffTrack, StateReadyToAdvance:
		return s
	default:
		return fallback
	}
}

// DirectorAction is the closed set of decisions a director evaluation may
// take.
type DirectorAction string

const (
	ActionContinue     DirectorAction = "continue"
	ActionChallenge    DirectorAction = "challenge"
	ActionRedirect     DirectorAction = "redirect"
	ActionEncounter    DirectorAction = "encounter"
	ActionAdvancePhase DirectorAction = "advance_phase"

	// ActionNone is returned by cadence-gated invocations that ran no
	// evaluation. It never appears inside director_state.evaluations.
	ActionNone DirectorAction = "none"
)

// NormalizeOr returns the action if it is a valid evaluation action, else the
// fallback.
func (a DirectorAction) NormalizeOr(fallback DirectorAction) DirectorAction {
	switch a {
	case ActionContinue, ActionChallenge, ActionRedirect, ActionEncounter, ActionAdvancePhase:
		return a
	default:
		return fallback
	}
}

// Goal progress statuses.
const (
	GoalNotStarted = "not_started"
	GoalInProgress = "in_progress"
	GoalCompleted  = "completed"
)

// GoalProgress tracks one goal's advancement.
type GoalProgress struct {
	Status    string    `json:"status"`
	Evidence  []string  `json:"evidence"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Evaluation is one director decision, post-processed and clamped.
type Evaluation struct {
	Phase               SessionPhase   `json:"phase"`
	StudentState        StudentState   `json:"student_state"`
	Action              DirectorAction `json:"action"`
	Intervention        string         `json:"intervention"`
	GoalProgress        []string       `json:"goal_progress,omitempty"`
	Confidence          float64        `json:"confidence"`
	Reasoning           string         `json:"reasoning,omitempty"`
	SuggestedEncounters []Encounter    `json:"suggested_encounters,omitempty"`
	Error               bool           `json:"error,omitempty"`
	Timestamp           time.Time      `json:"timestamp"`
}

// MaxEvaluations bounds director_state.evaluations; older entries are
// truncated FIFO.
const MaxEvaluations = 20

// DirectorState is the director's running assessment of a session.
type DirectorState struct {
	Phase                SessionPhase            `json:"phase"`
	StudentState         StudentState            `json:"student_state"`
	MessageCount         int                     `json:"message_count"`
	LastEvaluatedMessage int                     `json:"last_evaluated_message"`
	GoalProgress         map[string]GoalProgress `json:"goal_progress"`
	EncountersTriggered  []string                `json:"encounters_triggered"`
	Evaluations          []Evaluation            `json:"evaluations"`
	UpdatedAt            time.Time               `json:"updated_at"`
}

// ActorResponseMetadata annotates an actor turn.
type ActorResponseMetadata struct {
	TriggersActivated     []string  `json:"triggers_activated"`
	DirectorInterventions []string  `json:"director_interventions"`
	Timestamp             time.Time `json:"timestamp"`
}

// ActorResponse is the latest actor output, overwritten each student turn.
type ActorResponse struct {
	Message  string                `json:"message"`
	Metadata ActorResponseMetadata `json:"metadata"`
}
