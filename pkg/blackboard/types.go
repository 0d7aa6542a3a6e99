package blackboard

import (
	"errors"
	"fmt"
	"time"
)

// Phase identifies a stage in the simulation lifecycle. Phases advance
// monotonically; each phase has at most one successor.
type Phase string

const (
	// PhaseBuilding is the initial phase where the scenario is parsed and the
	// outline is generated and validated.
	PhaseBuilding Phase = "BUILDING"

	// PhaseReviewing allows the professor to adjust the generated outline
	// before it is locked.
	PhaseReviewing Phase = "REVIEWING"

	// PhaseFinalized is where the finalizer assembles the immutable blueprint.
	PhaseFinalized Phase = "FINALIZED"

	// PhaseRuntime is the student-facing phase: actor turns and director
	// evaluations.
	PhaseRuntime Phase = "RUNTIME"
)

// Sentinel errors for blackboard operations. Callers match with errors.Is.
var (
	// ErrPermissionDenied indicates an agent attempted an operation its
	// current-phase capabilities do not allow. This is an architectural bug,
	// never a user-input problem.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrInvalidTransition indicates a backward or skip phase transition.
	ErrInvalidTransition = errors.New("invalid phase transition")

	// ErrUnknownTool indicates a Call for a tool no component registered.
	ErrUnknownTool = errors.New("unknown tool")
)

// Next returns the unique successor phase, or false if the phase is terminal.
func (p Phase) Next() (Phase, bool) {
	switch p {
	case PhaseBuilding:
		return PhaseReviewing, true
	case PhaseReviewing:
		return PhaseFinalized, true
	case PhaseFinalized:
		return PhaseRuntime, true
	default:
		return "", false
	}
}

// Validate checks if the Phase is a valid enum value.
func (p Phase) Validate() error {
	switch p {
	case PhaseBuilding, PhaseReviewing, PhaseFinalized, PhaseRuntime:
		return nil
	default:
		return fmt.Errorf("unknown phase: %q", p)
	}
}

// Wildcard grants access to any key when present in a capability set.
const Wildcard = "*"

// Capability describes what one agent may do on the board during one phase.
// Write permission subsumes delete. Keys listed in Preserves gain versioned
// history on every write.
type Capability struct {
	Reads     []string `json:"reads,omitempty"`
	Writes    []string `json:"writes,omitempty"`
	Preserves []string `json:"preserves,omitempty"`
}

// CanRead reports whether the capability allows reading key.
func (c Capability) CanRead(key string) bool {
	return containsKey(c.Reads, key)
}

// CanWrite reports whether the capability allows writing (or deleting) key.
func (c Capability) CanWrite(key string) bool {
	return containsKey(c.Writes, key)
}

// ShouldPreserve reports whether writes to key must be version-appended.
func (c Capability) ShouldPreserve(key string) bool {
	return containsKey(c.Preserves, key)
}

// Union merges two capabilities. Used when a dynamic Grant extends the static
// matrix for the current phase.
func (c Capability) Union(other Capability) Capability {
	return Capability{
		Reads:     unionKeys(c.Reads, other.Reads),
		Writes:    unionKeys(c.Writes, other.Writes),
		Preserves: unionKeys(c.Preserves, other.Preserves),
	}
}

func containsKey(keys []string, key string) bool {
	for _, k := range keys {
		if k == Wildcard || k == key {
			return true
		}
	}
	return false
}

func unionKeys(a, b []string) []string {
	if len(b) == 0 {
		return a
	}
	seen := make(map[string]bool, len(a)+len(b))
	merged := make([]string, 0, len(a)+len(b))
	for _, k := range a {
		if !seen[k] {
			seen[k] = true
			merged = append(merged, k)
		}
	}
	for _, k := range b {
		if !seen[k] {
			seen[k] = true
			merged = append(merged, k)
		}
	}
	return merged
}

// AuditAction identifies the kind of operation an audit record describes.
type AuditAction string

const (
	AuditWrite      AuditAction = "write"
	AuditDelete     AuditAction = "delete"
	AuditAgentCall  AuditAction = "agent_call"
	AuditBroadcast  AuditAction = "broadcast"
	AuditGrant      AuditAction = "grant_permission"
	AuditTransition AuditAction = "phase_transition"
)

// AuditRecord captures one mutating board operation. Timestamps are
// non-decreasing across the life of a board.
type AuditRecord struct {
	Timestamp time.Time   `json:"timestamp"`
	Phase     Phase       `json:"phase"`
	Agent     string      `json:"agent"`
	Action    AuditAction `json:"action"`
	Key       string      `json:"key,omitempty"`
	ValueHash string      `json:"value_hash,omitempty"`
	Preserved bool        `json:"preserved,omitempty"`
	From      Phase       `json:"from,omitempty"`
	To        Phase       `json:"to,omitempty"`
	Event     string      `json:"event,omitempty"`
	Tool      string      `json:"tool,omitempty"`
}

// AuditFilter selects a subset of audit records. Zero-value fields match
// everything.
type AuditFilter struct {
	Agent  string
	Action AuditAction
	Since  time.Time
}

// Event is a broadcast notification fanned out to subscribers.
type Event struct {
	Name      string    `json:"name"`
	Agent     string    `json:"agent"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// VersionEntry is one element of a preserved key's history vector. The
// versioned key is also readable directly from the board.
type VersionEntry struct {
	VersionKey string    `json:"version_key"`
	Value      any       `json:"value"`
	Timestamp  time.Time `json:"timestamp"`
}
