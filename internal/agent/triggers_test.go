package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/scrimlabs/scrim/internal/schema"
)

func TestEvaluateTriggers(t *testing.T) {
	keyword := schema.Trigger{ID: "kw", Condition: `When the student mentions "budget" or "deadline"`, Effect: "press"}
	count := schema.Trigger{ID: "ct", Condition: "after 5 messages", Effect: "escalate"}
	vague := schema.Trigger{ID: "vg", Condition: "student seems frustrated", Effect: "soften"}
	triggers := []schema.Trigger{keyword, count, vague}

	tests := []struct {
		name          string
		message       string
		historyLen    int
		wantActivated []string
		wantOpaque    []string
	}{
		{
			name:          "keyword match is case-insensitive",
			message:       "What about the BUDGET for next quarter?",
			historyLen:    1,
			wantActivated: []string{"kw"},
			wantOpaque:    []string{"vg"},
		},
		{
			name:          "any quoted term suffices",
			message:       "we are going to miss the deadline",
			historyLen:    1,
			wantActivated: []string{"kw"},
			wantOpaque:    []string{"vg"},
		},
		{
			name:          "no keyword no count",
			message:       "tell me about the company",
			historyLen:    2,
			wantActivated: nil,
			wantOpaque:    []string{"vg"},
		},
		{
			name:          "count fires at threshold",
			message:       "ok",
			historyLen:    5,
			wantActivated: []string{"ct"},
			wantOpaque:    []string{"vg"},
		},
		{
			name:          "count and keyword together",
			message:       `I would cut the "budget"`,
			historyLen:    9,
			wantActivated: []string{"kw", "ct"},
			wantOpaque:    []string{"vg"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := evaluateTriggers(triggers, tt.message, tt.historyLen)
			assert.Equal(t, tt.wantActivated, ids(out.Activated))
			assert.Equal(t, tt.wantOpaque, ids(out.Opaque))
		})
	}
}

func TestEvaluateTriggersCombinedCondition(t *testing.T) {
	combined := []schema.Trigger{
		{ID: "cb", Condition: `mentions "budget" after 5 messages`, Effect: "escalate"},
	}

	tests := []struct {
		name       string
		message    string
		historyLen int
		want       bool
	}{
		{"count alone is not enough", "what should we do next?", 9, false},
		{"keyword alone is not enough", "the budget worries me", 2, false},
		{"both conditions fire together", "the budget worries me", 9, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := evaluateTriggers(combined, tt.message, tt.historyLen)
			if tt.want {
				assert.Equal(t, []string{"cb"}, ids(out.Activated))
			} else {
				assert.Empty(t, out.Activated)
			}
			assert.Empty(t, out.Opaque, "a structurally evaluated condition is never opaque")
		})
	}
}

func ids(triggers []schema.Trigger) []string {
	if triggers == nil {
		return nil
	}
	out := make([]string, 0, len(triggers))
	for _, t := range triggers {
		out = append(out, t.ID)
	}
	return out
}

func TestMessageThreshold(t *testing.T) {
	tests := []struct {
		condition string
		want      int
		ok        bool
	}{
		{"after 5 messages", 5, true},
		{"After 1 message", 1, true},
		{"message count > 10", 10, true},
		{"message count >= 3", 3, true},
		{"Message count exceeds 12", 12, true},
		{"8 messages have passed", 8, true},
		{"12 messages elapsed", 12, true},
		{`mentions "after hours"`, 0, false},
		{"student seems stuck", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.condition, func(t *testing.T) {
			n, ok := messageThreshold(tt.condition)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, n)
		})
	}
}
