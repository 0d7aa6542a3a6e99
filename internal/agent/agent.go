// Package agent implements the Scrim agent lifecycle: the build-phase agents
// (parser, sag, validator, finalizer) that progressively enrich the
// blackboard into an immutable blueprint, and the runtime agents (director,
// actor) that serve student turns against it.
//
// Agents are stateless between executions; all persistent state lives on the
// blackboard. Each agent owns its own oracle handle so prompt context never
// leaks between agents.
package agent

import (
	"errors"
	"fmt"

	"github.com/scrimlabs/scrim/internal/oracle"
	"github.com/scrimlabs/scrim/pkg/blackboard"
)

// Sentinel errors for agent execution. Callers match with errors.Is.
var (
	// ErrMissingInput indicates a required blackboard key is absent.
	ErrMissingInput = errors.New("missing required input")

	// ErrValidationFailed indicates a precondition on validated state failed.
	ErrValidationFailed = errors.New("validation failed")

	// ErrInputTooLarge indicates caller-supplied input exceeded its size bound.
	ErrInputTooLarge = errors.New("input too large")
)

// Base carries the identity, blackboard handle, and oracle handle shared by
// every agent. Board wrappers inject the agent id so capability checks and
// audit attribution are uniform.
type Base struct {
	id     string
	board  *blackboard.Board
	oracle oracle.Oracle
}

// NewBase creates the common agent core.
func NewBase(id string, board *blackboard.Board, llm oracle.Oracle) Base {
	return Base{id: id, board: board, oracle: llm}
}

// ID returns the agent identity used for capability checks and audit.
func (b *Base) ID() string {
	return b.id
}

// read returns a deep copy of a board value.
func (b *Base) read(key string) (any, bool) {
	return b.board.Read(key)
}

// readInto reads and decodes a board value into out.
func (b *Base) readInto(key string, out any) (bool, error) {
	return b.board.ReadInto(key, out)
}

// readRequired decodes a board value into out, failing with ErrMissingInput
// if the key is absent.
func (b *Base) readRequired(key string, out any) error {
	ok, err := b.board.ReadInto(key, out)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("agent %q requires %q: %w", b.id, key, ErrMissingInput)
	}
	return nil
}

// write stores a value under the agent's identity.
func (b *Base) write(key string, value any) error {
	return b.board.Write(key, value, b.id)
}

// broadcast fans out an event under the agent's identity.
func (b *Base) broadcast(event string, data any) error {
	return b.board.Broadcast(event, data, b.id)
}
