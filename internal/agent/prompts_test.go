package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/scrimlabs/scrim/internal/schema"
)

func TestActorSystemPrompt(t *testing.T) {
	t.Run("persona and pedagogical contract", func(t *testing.T) {
		blueprint := testBlueprint()
		prompt := actorSystemPrompt(&blueprint, nil, nil)

		assert.Contains(t, prompt, "You are Dana Reyes, an advisor")
		assert.Contains(t, prompt, blueprint.Description)
		assert.Contains(t, prompt, "Never reveal direct solutions")
		assert.Contains(t, prompt, "The acquisition budget is capped at $40M.")
		assert.Contains(t, prompt, "socratic dialogue")
	})

	t.Run("learning objectives reach the model", func(t *testing.T) {
		blueprint := testBlueprint()
		blueprint.Goals[0].LearningObjective = "Evaluate acquisition risk under time pressure"
		prompt := actorSystemPrompt(&blueprint, nil, nil)

		assert.Contains(t, prompt, "Learning objectives to steer the student toward:")
		assert.Contains(t, prompt, "Evaluate acquisition risk under time pressure")
		assert.Contains(t, prompt, "Weigh strategic alternatives", "goals without an objective fall back to their description")
	})

	t.Run("encounter descriptors reach the model", func(t *testing.T) {
		blueprint := testBlueprint()
		blueprint.Encounters[0].KnowledgeLevel = "expert"
		blueprint.Encounters[0].HiddenInfo = []string{"The supplier has a second secret creditor"}
		blueprint.Encounters[0].Loyalties = schema.Loyalties{Supports: []string{"the board"}, Opposes: []string{"the acquisition"}}
		blueprint.Encounters[0].Priorities = []string{"protect cash"}
		prompt := actorSystemPrompt(&blueprint, nil, nil)

		assert.Contains(t, prompt, "Character playbook")
		assert.Contains(t, prompt, "reveal hidden information strategically")
		assert.Contains(t, prompt, "CFO poses an ethical dilemma challenge")
		assert.Contains(t, prompt, "knowledge level expert")
		assert.Contains(t, prompt, "knows privately: The supplier has a second secret creditor")
		assert.Contains(t, prompt, "supports the board")
		assert.Contains(t, prompt, "opposes the acquisition")
		assert.Contains(t, prompt, "prioritizes protect cash")
	})

	t.Run("custom mode keeps the contract and socratic framing", func(t *testing.T) {
		blueprint := testBlueprint()
		blueprint.ActorSettings.AIMode = schema.ModeCustom
		blueprint.ActorSettings.CustomInstructions = "Speak only in maritime metaphors."
		prompt := actorSystemPrompt(&blueprint, nil, nil)

		assert.Contains(t, prompt, "Speak only in maritime metaphors.")
		assert.Contains(t, prompt, "Never reveal direct solutions")
		assert.Contains(t, prompt, "socratic dialogue")
	})

	t.Run("opaque triggers become standing conditions", func(t *testing.T) {
		blueprint := testBlueprint()
		prompt := actorSystemPrompt(&blueprint, nil, []schema.Trigger{
			{Condition: "student seems overconfident", Effect: "Question their assumptions."},
		})
		assert.Contains(t, prompt, "Standing conditions to watch for:")
		assert.Contains(t, prompt, "When student seems overconfident: Question their assumptions.")
	})

	t.Run("director intervention rides along", func(t *testing.T) {
		blueprint := testBlueprint()
		state := &schema.DirectorState{Evaluations: []schema.Evaluation{
			{Action: schema.ActionChallenge, Intervention: "Ask about the supplier's debt."},
		}}
		prompt := actorSystemPrompt(&blueprint, state, nil)
		assert.Contains(t, prompt, "Director guidance for this turn (do not reveal): Ask about the supplier's debt.")
	})

	t.Run("fallback intervention is skipped", func(t *testing.T) {
		blueprint := testBlueprint()
		state := &schema.DirectorState{Evaluations: []schema.Evaluation{
			{Action: schema.ActionContinue, Intervention: FallbackIntervention, Error: true},
		}}
		prompt := actorSystemPrompt(&blueprint, state, nil)
		assert.NotContains(t, prompt, "Director guidance")
	})
}

func TestCurrentIntervention(t *testing.T) {
	good := schema.Evaluation{Action: schema.ActionRedirect, Intervention: "Steer back to the numbers."}

	tests := []struct {
		name  string
		state *schema.DirectorState
		want  string
	}{
		{"nil state", nil, ""},
		{"no evaluations", &schema.DirectorState{}, ""},
		{"latest applies", &schema.DirectorState{Evaluations: []schema.Evaluation{
			{Action: schema.ActionContinue, Intervention: "old"},
			good,
		}}, "Steer back to the numbers."},
		{"error evaluation skipped", &schema.DirectorState{Evaluations: []schema.Evaluation{
			{Action: schema.ActionContinue, Intervention: "unreliable", Error: true},
		}}, ""},
		{"empty intervention skipped", &schema.DirectorState{Evaluations: []schema.Evaluation{
			{Action: schema.ActionContinue},
		}}, ""},
		{"fallback text skipped", &schema.DirectorState{Evaluations: []schema.Evaluation{
			{Action: schema.ActionContinue, Intervention: FallbackIntervention},
		}}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, currentIntervention(tt.state))
		})
	}
}

func TestPrimaryActor(t *testing.T) {
	t.Run("first advisor wins", func(t *testing.T) {
		a := primaryActor([]schema.Actor{
			{Role: "CFO", Name: "Mark"},
			{Role: "Advisor", Name: "Dana"},
		})
		assert.Equal(t, "Dana", a.Name)
	})

	t.Run("no advisor falls back to first", func(t *testing.T) {
		a := primaryActor([]schema.Actor{{Role: "CFO", Name: "Mark"}})
		assert.Equal(t, "Mark", a.Name)
	})

	t.Run("empty list yields generic advisor", func(t *testing.T) {
		a := primaryActor(nil)
		assert.Equal(t, "advisor", a.Role)
	})
}

func TestDescribeRole(t *testing.T) {
	assert.Equal(t, "an advisor", describeRole(schema.Actor{Role: "advisor"}))
	assert.Equal(t, "a CFO", describeRole(schema.Actor{Role: "CFO"}))
	assert.Equal(t, "an Engineer", describeRole(schema.Actor{Role: "Engineer"}))
	assert.Equal(t, "an advisor", describeRole(schema.Actor{}))
}

func TestTriggerNote(t *testing.T) {
	note := triggerNote([]schema.Trigger{
		{ID: "t1", Effect: "Introduce the rival bidder."},
		{ID: "t2", Effect: "Press on costs."},
	})
	assert.Equal(t, "TRIGGERS ACTIVATED:\n- Introduce the rival bidder.\n- Press on costs.", note)
}
