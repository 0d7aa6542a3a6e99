package blackboard

// Well-known agent identities. The board does not require agents to be drawn
// from this list - Grant can extend the matrix for ad-hoc agents - but the
// static matrix below is keyed by these names.
const (
	AgentUser           = "user"
	AgentParser         = "parser"
	AgentSAG            = "sag"
	AgentValidator      = "validator"
	AgentRecalibrator   = "recalibrator"
	AgentFinalizer      = "finalizer"
	AgentDirector       = "director"
	AgentActor          = "actor"
	AgentSessionManager = "session_manager"
)

// Well-known board keys.
const (
	KeyRawInput           = "raw_input"
	KeySimulationSettings = "simulation_settings"
	KeyParsedData         = "parsed_data"
	KeyScenarioOutline    = "scenario_outline"
	KeyValidationResult   = "validation_result"
	KeyUserModifications  = "user_modifications"
	KeyProposedSettings   = "proposed_settings"
	KeyRecalibratedSet    = "recalibrated_settings"
	KeyBlueprint          = "simulation_blueprint"
	KeyConversation       = "conversation_history"
	KeyDirectorState      = "director_state"
	KeyDirectorLogs       = "director_logs"
	KeyActorResponses     = "actor_responses"
)

// defaultCapabilities is the static per-phase capability matrix. Runtime
// lookups still consult the board's dynamic grants, which Union over these.
var defaultCapabilities = map[Phase]map[string]Capability{
	PhaseBuilding: {
		AgentUser: {
			Reads:  []string{Wildcard},
			Writes: []string{KeyRawInput, KeySimulationSettings},
		},
		AgentParser: {
			Reads:     []string{KeyRawInput},
			Writes:    []string{KeyParsedData},
			Preserves: []string{KeyParsedData},
		},
		AgentSAG: {
			Reads:     []string{KeyParsedData, KeySimulationSettings},
			Writes:    []string{KeyScenarioOutline},
			Preserves: []string{KeyScenarioOutline},
		},
		AgentValidator: {
			Reads:     []string{Wildcard},
			Writes:    []string{KeyValidationResult},
			Preserves: []string{Wildcard},
		},
	},
	PhaseReviewing: {
		AgentUser: {
			Reads:  []string{Wildcard},
			Writes: []string{KeyUserModifications},
		},
		AgentRecalibrator: {
			Reads:     []string{Wildcard},
			Writes:    []string{KeyRecalibratedSet},
			Preserves: []string{KeyScenarioOutline, KeyProposedSettings},
		},
	},
	PhaseFinalized: {
		AgentFinalizer: {
			Reads:  []string{Wildcard},
			Writes: []string{KeyBlueprint},
		},
		AgentUser:           {Reads: []string{KeyBlueprint}},
		AgentParser:         {Reads: []string{KeyBlueprint}},
		AgentSAG:            {Reads: []string{KeyBlueprint}},
		AgentValidator:      {Reads: []string{KeyBlueprint}},
		AgentDirector:       {Reads: []string{KeyBlueprint}},
		AgentActor:          {Reads: []string{KeyBlueprint}},
		AgentSessionManager: {Reads: []string{KeyBlueprint}},
	},
	PhaseRuntime: {
		AgentDirector: {
			Reads:  []string{KeyBlueprint, KeyConversation},
			Writes: []string{KeyDirectorState, KeyDirectorLogs},
		},
		AgentActor: {
			Reads:  []string{KeyBlueprint, KeyDirectorState, KeyConversation},
			Writes: []string{KeyActorResponses},
		},
		AgentSessionManager: {
			Reads:     []string{Wildcard},
			Writes:    []string{KeyConversation},
			Preserves: []string{KeyBlueprint},
		},
		AgentUser: {Reads: []string{Wildcard}},
	},
}

// DefaultCapability returns the static capability for an agent in a phase.
// Unknown (phase, agent) pairs yield an empty capability: no access.
func DefaultCapability(phase Phase, agentID string) Capability {
	if agents, ok := defaultCapabilities[phase]; ok {
		if cap, ok := agents[agentID]; ok {
			return cap
		}
	}
	return Capability{}
}
