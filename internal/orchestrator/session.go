package orchestrator

import (
	"context"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/scrimlabs/scrim/internal/agent"
	"github.com/scrimlabs/scrim/internal/oracle"
	"github.com/scrimlabs/scrim/internal/schema"
	"github.com/scrimlabs/scrim/pkg/blackboard"
)

// directorTickTimeout bounds one background evaluation. Timeouts surface as
// the director's fallback decision, not as turn failures.
const directorTickTimeout = 30 * time.Second

// Session drives the runtime turn loop for one student against one
// blueprint. Each session owns its blackboard; sessions never share state.
//
// The actor turn is synchronous; the director tick is fire-and-forget with
// at most one in flight at a time. A director decision only affects
// subsequent turns.
type Session struct {
	ID           string
	SimulationID string

	board    *blackboard.Board
	actor    *agent.Actor
	director *agent.Director

	mu             sync.Mutex
	startedAt      time.Time
	lastActivityAt time.Time

	ticks singleflight.Group
	wg    sync.WaitGroup
}

// TurnResult is what one student turn yields.
type TurnResult struct {
	Response          string    `json:"response"`
	MessageCount      int       `json:"message_count"`
	TriggersActivated []string  `json:"triggers_activated"`
	Timestamp         time.Time `json:"timestamp"`
}

// NewSession creates a session over a RUNTIME blackboard. The board must
// already hold a finalized blueprint.
func NewSession(id, simulationID string, board *blackboard.Board, llm oracle.Oracle, models Models) *Session {
	models = models.WithDefaults()
	now := time.Now().UTC()
	return &Session{
		ID:             id,
		SimulationID:   simulationID,
		board:          board,
		actor:          agent.NewActor(board, llm, models.Quality),
		director:       agent.NewDirector(board, llm, models.Fast),
		startedAt:      now,
		lastActivityAt: now,
	}
}

// SeedFirstMessage prepends an advisor opener so the conversation starts
// with the simulation speaking first. No-op once the conversation exists.
func (s *Session) SeedFirstMessage(content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if content == "" || s.board.Exists(blackboard.KeyConversation) {
		return nil
	}
	return s.appendLocked(schema.Message{
		Role:      schema.RoleAdvisor,
		Content:   content,
		Timestamp: time.Now().UTC(),
	})
}

// Respond runs one turn: append the student message, produce the advisor
// reply synchronously, then schedule a director evaluation in the
// background.
func (s *Session) Respond(ctx context.Context, studentInput string) (*TurnResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if err := s.appendLocked(schema.Message{
		Role:      schema.RoleStudent,
		Content:   studentInput,
		Timestamp: now,
	}); err != nil {
		return nil, err
	}

	response, err := s.actor.Execute(ctx, studentInput)
	if err != nil {
		return nil, err
	}

	if err := s.appendLocked(schema.Message{
		Role:      schema.RoleAdvisor,
		Content:   response.Message,
		Timestamp: response.Metadata.Timestamp,
		Metadata: map[string]any{
			"triggers_activated":     response.Metadata.TriggersActivated,
			"director_interventions": response.Metadata.DirectorInterventions,
		},
	}); err != nil {
		return nil, err
	}

	s.lastActivityAt = time.Now().UTC()
	s.scheduleDirectorTick()

	return &TurnResult{
		Response:          response.Message,
		MessageCount:      s.historyLenLocked(),
		TriggersActivated: response.Metadata.TriggersActivated,
		Timestamp:         response.Metadata.Timestamp,
	}, nil
}

// scheduleDirectorTick starts a background evaluation unless one is already
// in flight. Dropped ticks are harmless; the next turn reschedules.
func (s *Session) scheduleDirectorTick() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		_, _, _ = s.ticks.Do("tick", func() (interface{}, error) {
			ctx, cancel := context.WithTimeout(context.Background(), directorTickTimeout)
			defer cancel()

			decision, err := s.director.Execute(ctx)
			if err != nil {
				// Director failures never surface to the student.
				log.Printf("[Session %s] Director tick failed: %v", s.ID, err)
				return nil, nil
			}
			if decision.Action != schema.ActionNone {
				logEvent("director", "evaluation_complete", map[string]interface{}{
					"session_id": s.ID,
					"action":     string(decision.Action),
					"confidence": decision.Evaluation.Confidence,
				})
			}
			return decision, nil
		})
	}()
}

// Wait blocks until any in-flight director tick completes. Test and
// shutdown hook.
func (s *Session) Wait() {
	s.wg.Wait()
}

// History returns a copy of the conversation so far.
func (s *Session) History() []schema.Message {
	var history []schema.Message
	_, _ = s.board.ReadInto(blackboard.KeyConversation, &history)
	return history
}

// DirectorState returns the director's current assessment, or nil before
// the first evaluation.
func (s *Session) DirectorState() *schema.DirectorState {
	var state schema.DirectorState
	found, err := s.board.ReadInto(blackboard.KeyDirectorState, &state)
	if err != nil || !found {
		return nil
	}
	return &state
}

// StartedAt reports when the session was created.
func (s *Session) StartedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startedAt
}

// LastActivityAt reports the last completed turn time.
func (s *Session) LastActivityAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivityAt
}

func (s *Session) appendLocked(m schema.Message) error {
	var history []schema.Message
	if _, err := s.board.ReadInto(blackboard.KeyConversation, &history); err != nil {
		return err
	}
	history = append(history, m)
	return s.board.Write(blackboard.KeyConversation, history, blackboard.AgentSessionManager)
}

func (s *Session) historyLenLocked() int {
	var history []schema.Message
	_, _ = s.board.ReadInto(blackboard.KeyConversation, &history)
	return len(history)
}
