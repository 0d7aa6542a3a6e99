package agent

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/scrimlabs/scrim/internal/schema"
)

// Trigger conditions come out of the oracle as free text. Two phrasings are
// cheap to evaluate structurally: quoted-keyword conditions ("mentions
// \"budget\" or \"deadline\"") and message-count conditions ("after 5
// messages", "message count > 10"). Anything else is opaque and handed to the
// model as standing context instead.

var (
	quotedTermRe   = regexp.MustCompile(`"([^"]+)"`)
	messageCountRe = regexp.MustCompile(`(?i)(?:after\s+(\d+)\s+messages?|message\s+count\s*(?:>=?|over|above|exceeds)\s*(\d+)|(\d+)\s+messages?\s+(?:have\s+)?(?:passed|elapsed))`)
)

// triggerOutcome partitions a blueprint's triggers for one student turn.
type triggerOutcome struct {
	// Activated fired structurally this turn and are surfaced to the model
	// as a system note.
	Activated []schema.Trigger
	// Opaque could not be evaluated structurally; their condition and effect
	// ride along in the system prompt.
	Opaque []schema.Trigger
}

// evaluateTriggers checks every trigger against the latest student message
// and the current history length. Evaluation order follows the blueprint;
// priority only breaks ties when the caller sorts, which the finalizer
// already did.
func evaluateTriggers(triggers []schema.Trigger, studentMessage string, historyLen int) triggerOutcome {
	var out triggerOutcome
	lowered := strings.ToLower(studentMessage)

	for _, t := range triggers {
		threshold, hasCount := messageThreshold(t.Condition)
		terms := quotedTermRe.FindAllStringSubmatch(t.Condition, -1)

		switch {
		// A condition phrasing both a keyword and a count fires only when
		// both hold.
		case hasCount && len(terms) > 0:
			if historyLen >= threshold && containsAnyTerm(lowered, terms) {
				out.Activated = append(out.Activated, t)
			}
		case hasCount:
			if historyLen >= threshold {
				out.Activated = append(out.Activated, t)
			}
		case len(terms) > 0:
			if containsAnyTerm(lowered, terms) {
				out.Activated = append(out.Activated, t)
			}
		default:
			out.Opaque = append(out.Opaque, t)
		}
	}
	return out
}

func containsAnyTerm(lowered string, terms [][]string) bool {
	for _, m := range terms {
		if strings.Contains(lowered, strings.ToLower(m[1])) {
			return true
		}
	}
	return false
}

// messageThreshold extracts the count from a message-count condition. The
// second return is false when the condition is not about message counts.
func messageThreshold(condition string) (int, bool) {
	m := messageCountRe.FindStringSubmatch(condition)
	if m == nil {
		return 0, false
	}
	for _, group := range m[1:] {
		if group == "" {
			continue
		}
		n, err := strconv.Atoi(group)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}
