// Package blackboard provides the shared coordination state for a single
// simulation run.
//
// # Overview
//
// The blackboard is the central shared state system where all Scrim agents
// (parser, sag, validator, finalizer, director, actor) interact via
// well-defined data structures held in process memory. It implements the
// Blackboard architectural pattern - a shared workspace where independent
// agents collaborate by reading and writing structured data under explicit
// capability constraints.
//
// # Core Concepts
//
// Phases gate the simulation lifecycle. A board moves monotonically through
// BUILDING -> REVIEWING -> FINALIZED -> RUNTIME; backward and skip
// transitions fail. Each phase carries its own capability matrix describing
// which agents may read, write, and delete which keys.
//
// Preserved keys gain immutable history: every write to a key in an agent's
// preserves set additionally stores a permanent versioned entry
// ({key}_v{nanos}_{uuid}) and refreshes {key}_latest, so prior states of
// progressively enriched data are never lost.
//
// Audit records capture every mutating operation (write, delete, broadcast,
// agent call, grant, phase transition) with non-decreasing timestamps and a
// short content hash of the written value.
//
// # Isolation
//
// Every value read from the board is a deep copy, and every value written is
// deep-cloned before storage. No two callers ever share a mutable object
// graph, so mutating a returned value cannot corrupt the board or its
// versioned history. Values must be JSON-shaped (objects, arrays, primitives);
// cyclic graphs are rejected at write time.
//
// # Usage Example
//
//	board := blackboard.New()
//
//	if err := board.Write("raw_input", scenarioText, "user"); err != nil {
//		log.Fatal(err)
//	}
//
//	v, ok := board.Read("raw_input")
//	if !ok {
//		log.Fatal("raw_input missing")
//	}
//
//	if err := board.Transition(blackboard.PhaseReviewing); err != nil {
//		log.Fatal(err)
//	}
//
// # Design Principles
//
//   - Type Safety: well-known keys decode into internal/schema structs via Decode
//   - Immutability: deep-copy reads and writes, versioned preserved history
//   - Auditability: every mutation leaves a chronological audit record
//   - Isolation: one board per simulation session, never shared across sessions
//   - Simplicity: minimal dependencies (only google/uuid for version suffixes)
package blackboard
