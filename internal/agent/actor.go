package agent

import (
	"context"
	"time"

	"github.com/scrimlabs/scrim/internal/oracle"
	"github.com/scrimlabs/scrim/internal/schema"
	"github.com/scrimlabs/scrim/pkg/blackboard"
)

// Actor is the in-character conversational agent. Each student turn it reads
// the blueprint, the director's latest assessment, and the conversation, then
// produces one advisor reply. The session manager owns conversation_history;
// the actor only writes actor_responses.
type Actor struct {
	Base
	model string
}

// NewActor creates the actor agent.
func NewActor(board *blackboard.Board, llm oracle.Oracle, model string) *Actor {
	return &Actor{
		Base:  NewBase(blackboard.AgentActor, board, llm),
		model: model,
	}
}

// Execute produces the advisor's reply to the latest student message. The
// conversation on the board already includes that message. Director state is
// optional; early turns run without it.
func (a *Actor) Execute(ctx context.Context, studentMessage string) (*schema.ActorResponse, error) {
	var blueprint schema.SimulationBlueprint
	if err := a.readRequired(blackboard.KeyBlueprint, &blueprint); err != nil {
		return nil, err
	}

	var history []schema.Message
	if _, err := a.readInto(blackboard.KeyConversation, &history); err != nil {
		return nil, err
	}

	var state *schema.DirectorState
	var loaded schema.DirectorState
	if found, err := a.readInto(blackboard.KeyDirectorState, &loaded); err == nil && found {
		state = &loaded
	}

	outcome := evaluateTriggers(blueprint.Triggers, studentMessage, len(history))

	settings := blueprint.ActorSettings
	temperature := settings.Temperature
	if temperature <= 0 {
		temperature = DefaultActorTemperature
	}
	maxTokens := settings.MaxResponseTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxResponseTokens
	}

	text, err := a.oracle.Complete(ctx, a.model, actorMessages(&blueprint, state, history, outcome), oracle.Options{
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return nil, err
	}

	response := schema.ActorResponse{
		Message: text,
		Metadata: schema.ActorResponseMetadata{
			TriggersActivated:     triggerIDs(outcome.Activated),
			DirectorInterventions: appliedInterventions(state),
			Timestamp:             time.Now().UTC(),
		},
	}
	if err := a.write(blackboard.KeyActorResponses, response); err != nil {
		return nil, err
	}
	return &response, nil
}

// actorMessages maps the conversation onto oracle messages. Activated
// triggers are injected as a system note ahead of the latest exchange.
func actorMessages(blueprint *schema.SimulationBlueprint, state *schema.DirectorState, history []schema.Message, outcome triggerOutcome) []oracle.Message {
	messages := make([]oracle.Message, 0, len(history)+2)
	messages = append(messages, oracle.Message{
		Role:    oracle.RoleSystem,
		Content: actorSystemPrompt(blueprint, state, outcome.Opaque),
	})
	if len(outcome.Activated) > 0 {
		messages = append(messages, oracle.Message{
			Role:    oracle.RoleSystem,
			Content: triggerNote(outcome.Activated),
		})
	}

	for _, m := range history {
		switch m.Role {
		case schema.RoleStudent:
			messages = append(messages, oracle.Message{Role: oracle.RoleUser, Content: m.Content})
		case schema.RoleAdvisor:
			messages = append(messages, oracle.Message{Role: oracle.RoleAssistant, Content: m.Content})
		case schema.RoleSystem:
			messages = append(messages, oracle.Message{Role: oracle.RoleSystem, Content: m.Content})
		}
	}
	return messages
}

func triggerIDs(triggers []schema.Trigger) []string {
	ids := make([]string, 0, len(triggers))
	for _, t := range triggers {
		ids = append(ids, t.ID)
	}
	return ids
}

// appliedInterventions records which director guidance shaped this turn.
func appliedInterventions(state *schema.DirectorState) []string {
	if intervention := currentIntervention(state); intervention != "" {
		return []string{intervention}
	}
	return []string{}
}
