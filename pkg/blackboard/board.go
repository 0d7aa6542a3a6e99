package blackboard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ToolFunc is a callable registered on the board for intra-board RPC via Call.
type ToolFunc func(ctx context.Context, params map[string]any) (any, error)

// Subscriber receives broadcast events. Subscribers run synchronously on the
// broadcasting goroutine and must not call back into the board.
type Subscriber func(Event)

// Board is the in-memory blackboard for one simulation session.
// It is safe for concurrent use; in practice the build phases run agents
// sequentially and the runtime phase has the actor and director writing
// disjoint keys.
type Board struct {
	mu       sync.RWMutex
	phase    Phase
	values   map[string]any
	versions map[string][]VersionEntry
	grants   map[Phase]map[string]Capability
	audit    []AuditRecord
	lastTS   time.Time
	tools    map[string]ToolFunc
	subs     []Subscriber
}

// New creates an empty board in the BUILDING phase.
func New() *Board {
	return &Board{
		phase:    PhaseBuilding,
		values:   make(map[string]any),
		versions: make(map[string][]VersionEntry),
		grants:   make(map[Phase]map[string]Capability),
		tools:    make(map[string]ToolFunc),
	}
}

// Phase returns the board's current phase.
func (b *Board) Phase() Phase {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.phase
}

// Read returns a deep copy of the value stored under key, or false if the key
// was never written or has been deleted. Read performs no capability check:
// read permission violations are a prompt-assembly bug, not a state-integrity
// risk, and the audit log tracks only mutations.
func (b *Board) Read(key string) (any, bool) {
	b.mu.RLock()
	v, ok := b.values[key]
	b.mu.RUnlock()
	if !ok {
		return nil, false
	}
	clone, err := deepClone(v)
	if err != nil {
		// Stored values are already generic JSON trees; cloning them cannot
		// introduce cycles.
		return nil, false
	}
	return clone, true
}

// ReadInto reads key and decodes it into out. Returns false if absent.
func (b *Board) ReadInto(key string, out any) (bool, error) {
	v, ok := b.Read(key)
	if !ok {
		return false, nil
	}
	if err := Decode(v, out); err != nil {
		return true, fmt.Errorf("key %q: %w", key, err)
	}
	return true, nil
}

// Exists reports whether key currently holds a value.
func (b *Board) Exists(key string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.values[key]
	return ok
}

// Write stores a deep clone of value under key on behalf of agentID.
// Fails with ErrPermissionDenied if the agent's current-phase capability does
// not list key as writable. If key is in the agent's preserves set the write
// additionally stores a permanent versioned entry and refreshes {key}_latest.
// On permission or clone failure the board is left unchanged.
func (b *Board) Write(key string, value any, agentID string) error {
	clone, err := deepClone(value)
	if err != nil {
		return fmt.Errorf("write %q: %w", key, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	capability := b.effectiveCapabilityLocked(agentID)
	if !capability.CanWrite(key) {
		return fmt.Errorf("agent %q cannot write %q in phase %s: %w",
			agentID, key, b.phase, ErrPermissionDenied)
	}

	now := b.nextTimestampLocked()
	b.values[key] = clone

	preserved := capability.ShouldPreserve(key)
	if preserved {
		// The UUID suffix keeps two writes within the same clock tick
		// distinguishable.
		versionKey := fmt.Sprintf("%s_v%d_%s", key, now.UnixNano(), uuid.New().String())
		versionClone, _ := deepClone(clone)
		b.values[versionKey] = versionClone
		b.versions[key] = append(b.versions[key], VersionEntry{
			VersionKey: versionKey,
			Value:      versionClone,
			Timestamp:  now,
		})

		latestClone, _ := deepClone(clone)
		b.values[key+"_latest"] = latestClone
	}

	b.audit = append(b.audit, AuditRecord{
		Timestamp: now,
		Phase:     b.phase,
		Agent:     agentID,
		Action:    AuditWrite,
		Key:       key,
		ValueHash: ValueHash(clone),
		Preserved: preserved,
	})
	return nil
}

// Delete removes key on behalf of agentID. Write permission subsumes delete.
// Deleting an absent key is a no-op but is still audited.
func (b *Board) Delete(key string, agentID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	capability := b.effectiveCapabilityLocked(agentID)
	if !capability.CanWrite(key) {
		return fmt.Errorf("agent %q cannot delete %q in phase %s: %w",
			agentID, key, b.phase, ErrPermissionDenied)
	}

	delete(b.values, key)
	b.audit = append(b.audit, AuditRecord{
		Timestamp: b.nextTimestampLocked(),
		Phase:     b.phase,
		Agent:     agentID,
		Action:    AuditDelete,
		Key:       key,
	})
	return nil
}

// Grant extends agentID's capability for the current phase by union with cap.
// Grants are additive; there is no revoke.
func (b *Board) Grant(agentID string, cap Capability) {
	b.mu.Lock()
	defer b.mu.Unlock()

	phaseGrants, ok := b.grants[b.phase]
	if !ok {
		phaseGrants = make(map[string]Capability)
		b.grants[b.phase] = phaseGrants
	}
	phaseGrants[agentID] = phaseGrants[agentID].Union(cap)

	b.audit = append(b.audit, AuditRecord{
		Timestamp: b.nextTimestampLocked(),
		Phase:     b.phase,
		Agent:     agentID,
		Action:    AuditGrant,
	})
}

// Transition advances the board to next. Only the current phase's unique
// successor is accepted; anything else fails with ErrInvalidTransition and
// leaves the board unchanged.
func (b *Board) Transition(next Phase) error {
	if err := next.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTransition, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	successor, ok := b.phase.Next()
	if !ok || successor != next {
		return fmt.Errorf("cannot transition %s -> %s: %w", b.phase, next, ErrInvalidTransition)
	}

	from := b.phase
	b.phase = next
	b.audit = append(b.audit, AuditRecord{
		Timestamp: b.nextTimestampLocked(),
		Phase:     next,
		Agent:     "orchestrator",
		Action:    AuditTransition,
		From:      from,
		To:        next,
	})
	return nil
}

// Audit returns the chronological audit records matching filter.
func (b *Board) Audit(filter AuditFilter) []AuditRecord {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []AuditRecord
	for _, rec := range b.audit {
		if filter.Agent != "" && rec.Agent != filter.Agent {
			continue
		}
		if filter.Action != "" && rec.Action != filter.Action {
			continue
		}
		if !filter.Since.IsZero() && rec.Timestamp.Before(filter.Since) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// History returns the version entries recorded for a preserved key, oldest
// first. Entries are deep copies.
func (b *Board) History(key string) []VersionEntry {
	b.mu.RLock()
	entries := b.versions[key]
	b.mu.RUnlock()

	out := make([]VersionEntry, 0, len(entries))
	for _, e := range entries {
		value, _ := deepClone(e.Value)
		out = append(out, VersionEntry{
			VersionKey: e.VersionKey,
			Value:      value,
			Timestamp:  e.Timestamp,
		})
	}
	return out
}

// RegisterTool makes a tool available to Call.
func (b *Board) RegisterTool(name string, fn ToolFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tools[name] = fn
}

// Call invokes a registered tool on behalf of agentID. The call is audited
// whether or not the tool exists.
func (b *Board) Call(ctx context.Context, agentID, tool string, params map[string]any) (any, error) {
	b.mu.Lock()
	fn, ok := b.tools[tool]
	b.audit = append(b.audit, AuditRecord{
		Timestamp: b.nextTimestampLocked(),
		Phase:     b.phase,
		Agent:     agentID,
		Action:    AuditAgentCall,
		Tool:      tool,
	})
	b.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("tool %q: %w", tool, ErrUnknownTool)
	}
	return fn(ctx, params)
}

// Subscribe registers a subscriber for broadcast events.
func (b *Board) Subscribe(fn Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, fn)
}

// Broadcast fans out an event to all subscribers and records it in the audit
// log. The data payload is deep-cloned once so subscribers cannot corrupt the
// sender's copy.
func (b *Board) Broadcast(event string, data any, agentID string) error {
	clone, err := deepClone(data)
	if err != nil {
		return fmt.Errorf("broadcast %q: %w", event, err)
	}

	b.mu.Lock()
	now := b.nextTimestampLocked()
	b.audit = append(b.audit, AuditRecord{
		Timestamp: now,
		Phase:     b.phase,
		Agent:     agentID,
		Action:    AuditBroadcast,
		Event:     event,
	})
	subs := make([]Subscriber, len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	ev := Event{Name: event, Agent: agentID, Data: clone, Timestamp: now}
	for _, fn := range subs {
		fn(ev)
	}
	return nil
}

// effectiveCapabilityLocked unions the static matrix with dynamic grants for
// the current phase. Caller must hold b.mu.
func (b *Board) effectiveCapabilityLocked(agentID string) Capability {
	cap := DefaultCapability(b.phase, agentID)
	if phaseGrants, ok := b.grants[b.phase]; ok {
		if extra, ok := phaseGrants[agentID]; ok {
			cap = cap.Union(extra)
		}
	}
	return cap
}

// nextTimestampLocked returns a timestamp that never decreases across audit
// records, even if the wall clock steps backward. Caller must hold b.mu.
func (b *Board) nextTimestampLocked() time.Time {
	now := time.Now().UTC()
	if now.Before(b.lastTS) {
		now = b.lastTS
	}
	b.lastTS = now
	return now
}
