// Package store persists simulations and their sessions in Redis.
//
// Redis is the only external state Scrim keeps: blackboards are per-session
// and in-memory, so everything that must survive a restart - the finalized
// blueprint and the conversation history - lives here. All keys are
// namespaced with the instance name so multiple Scrim deployments can share
// one Redis.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/scrimlabs/scrim/internal/schema"
)

// SessionState is the lifecycle of a student session.
type SessionState string

const (
	SessionActive    SessionState = "active"
	SessionCompleted SessionState = "completed"
	SessionAbandoned SessionState = "abandoned"
)

// Validate checks the session state is one of the known values.
func (s SessionState) Validate() error {
	switch s {
	case SessionActive, SessionCompleted, SessionAbandoned:
		return nil
	default:
		return fmt.Errorf("invalid session state: %q", s)
	}
}

// SimulationRecord is the persisted form of a built simulation.
type SimulationRecord struct {
	ID           string                     `json:"id"`
	Name         string                     `json:"name"`
	ScenarioText string                     `json:"scenario_text"`
	Actors       []schema.Actor             `json:"actors"`
	Objectives   []string                   `json:"objectives"`
	Parameters   schema.SimulationSettings  `json:"parameters"`
	Blueprint    schema.SimulationBlueprint `json:"blueprint"`
	IsTemplate   bool                       `json:"is_template"`
	CreatedAt    time.Time                  `json:"created_at"`
	UpdatedAt    time.Time                  `json:"updated_at"`
}

// Validate checks the record has the fields every consumer assumes.
func (r *SimulationRecord) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("simulation id cannot be empty")
	}
	if r.Blueprint.ScenarioID == "" {
		return fmt.Errorf("simulation %s has no blueprint", r.ID)
	}
	return nil
}

// SessionRecord is the persisted form of one student session.
type SessionRecord struct {
	ID             string           `json:"id"`
	SimulationID   string           `json:"simulation_id"`
	History        []schema.Message `json:"conversation_history"`
	State          SessionState     `json:"state"`
	StartedAt      time.Time        `json:"started_at"`
	LastActivityAt time.Time        `json:"last_activity_at"`
	CompletedAt    time.Time        `json:"completed_at,omitempty"`
}

// Validate checks the record is well-formed.
func (r *SessionRecord) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("session id cannot be empty")
	}
	if r.SimulationID == "" {
		return fmt.Errorf("session %s has no simulation id", r.ID)
	}
	return r.State.Validate()
}

// Client provides instance-scoped Redis operations for Scrim's persisted
// state. All keys are namespaced with the instance name. The client is
// thread-safe.
type Client struct {
	rdb          *redis.Client
	instanceName string
}

// NewClient creates a store client for the given instance.
// Returns an error if instanceName is empty.
func NewClient(redisOpts *redis.Options, instanceName string) (*Client, error) {
	if instanceName == "" {
		return nil, fmt.Errorf("instance name cannot be empty")
	}
	return &Client{
		rdb:          redis.NewClient(redisOpts),
		instanceName: instanceName,
	}, nil
}

// Close closes the Redis connection. Implements io.Closer.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping verifies Redis connectivity. Useful for health checks.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// SaveSimulation writes a simulation record and registers it in the listing
// index. Idempotent: saving the same id twice overwrites.
func (c *Client) SaveSimulation(ctx context.Context, record *SimulationRecord) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("invalid simulation record: %w", err)
	}

	hash, err := SimulationToHash(record)
	if err != nil {
		return fmt.Errorf("failed to serialize simulation: %w", err)
	}

	key := SimulationKey(c.instanceName, record.ID)
	if err := c.rdb.HSet(ctx, key, hash).Err(); err != nil {
		return fmt.Errorf("failed to write simulation to Redis: %w", err)
	}
	if err := c.rdb.SAdd(ctx, SimulationIndexKey(c.instanceName), record.ID).Err(); err != nil {
		return fmt.Errorf("failed to index simulation: %w", err)
	}
	return nil
}

// GetSimulation retrieves a simulation by id.
// Returns (nil, redis.Nil) if it doesn't exist; use IsNotFound to check.
func (c *Client) GetSimulation(ctx context.Context, id string) (*SimulationRecord, error) {
	key := SimulationKey(c.instanceName, id)

	hashData, err := c.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read simulation from Redis: %w", err)
	}
	// HGetAll returns an empty map for missing keys.
	if len(hashData) == 0 {
		return nil, redis.Nil
	}

	record, err := HashToSimulation(hashData)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize simulation: %w", err)
	}
	return record, nil
}

// ListSimulations returns all persisted simulations, optionally filtered by
// template status. Records that fail to load are skipped rather than failing
// the whole listing.
func (c *Client) ListSimulations(ctx context.Context, isTemplate *bool) ([]*SimulationRecord, error) {
	ids, err := c.rdb.SMembers(ctx, SimulationIndexKey(c.instanceName)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read simulation index: %w", err)
	}

	records := make([]*SimulationRecord, 0, len(ids))
	for _, id := range ids {
		record, err := c.GetSimulation(ctx, id)
		if err != nil {
			continue
		}
		if isTemplate != nil && record.IsTemplate != *isTemplate {
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

// DeleteSimulation removes a simulation and all of its sessions.
func (c *Client) DeleteSimulation(ctx context.Context, id string) error {
	sessionIDs, err := c.SessionsForSimulation(ctx, id)
	if err != nil {
		return err
	}
	for _, sessionID := range sessionIDs {
		if err := c.DeleteSession(ctx, sessionID); err != nil {
			return err
		}
	}

	if err := c.rdb.Del(ctx, SimulationKey(c.instanceName, id)).Err(); err != nil {
		return fmt.Errorf("failed to delete simulation: %w", err)
	}
	if err := c.rdb.SRem(ctx, SimulationIndexKey(c.instanceName), id).Err(); err != nil {
		return fmt.Errorf("failed to unindex simulation: %w", err)
	}
	return nil
}

// SaveSession writes a session record and registers it against its
// simulation.
func (c *Client) SaveSession(ctx context.Context, record *SessionRecord) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("invalid session record: %w", err)
	}

	hash, err := SessionToHash(record)
	if err != nil {
		return fmt.Errorf("failed to serialize session: %w", err)
	}

	key := SessionKey(c.instanceName, record.ID)
	if err := c.rdb.HSet(ctx, key, hash).Err(); err != nil {
		return fmt.Errorf("failed to write session to Redis: %w", err)
	}
	indexKey := SessionIndexKey(c.instanceName, record.SimulationID)
	if err := c.rdb.SAdd(ctx, indexKey, record.ID).Err(); err != nil {
		return fmt.Errorf("failed to index session: %w", err)
	}
	return nil
}

// GetSession retrieves a session by id.
// Returns (nil, redis.Nil) if it doesn't exist; use IsNotFound to check.
func (c *Client) GetSession(ctx context.Context, id string) (*SessionRecord, error) {
	key := SessionKey(c.instanceName, id)

	hashData, err := c.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read session from Redis: %w", err)
	}
	if len(hashData) == 0 {
		return nil, redis.Nil
	}

	record, err := HashToSession(hashData)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize session: %w", err)
	}
	return record, nil
}

// DeleteSession removes a session and unindexes it from its simulation.
func (c *Client) DeleteSession(ctx context.Context, id string) error {
	record, err := c.GetSession(ctx, id)
	if err != nil {
		if IsNotFound(err) {
			return nil
		}
		return err
	}

	if err := c.rdb.Del(ctx, SessionKey(c.instanceName, id)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	indexKey := SessionIndexKey(c.instanceName, record.SimulationID)
	if err := c.rdb.SRem(ctx, indexKey, id).Err(); err != nil {
		return fmt.Errorf("failed to unindex session: %w", err)
	}
	return nil
}

// SessionsForSimulation returns the ids of all sessions under a simulation.
func (c *Client) SessionsForSimulation(ctx context.Context, simulationID string) ([]string, error) {
	ids, err := c.rdb.SMembers(ctx, SessionIndexKey(c.instanceName, simulationID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read session index: %w", err)
	}
	return ids, nil
}

// IsNotFound returns true if the error is a Redis "key not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, redis.Nil)
}

// Key helpers. Layout:
//
//	scrim:{instance}:sim:{id}            simulation hash
//	scrim:{instance}:sims                simulation id set
//	scrim:{instance}:session:{id}        session hash
//	scrim:{instance}:sim:{id}:sessions   session id set per simulation

func SimulationKey(instance, id string) string {
	return fmt.Sprintf("scrim:%s:sim:%s", instance, id)
}

func SimulationIndexKey(instance string) string {
	return fmt.Sprintf("scrim:%s:sims", instance)
}

func SessionKey(instance, id string) string {
	return fmt.Sprintf("scrim:%s:session:%s", instance, id)
}

func SessionIndexKey(instance, simulationID string) string {
	return fmt.Sprintf("scrim:%s:sim:%s:sessions", instance, simulationID)
}
