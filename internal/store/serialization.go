package store

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/scrimlabs/scrim/internal/schema"
)

// Serialization helpers for converting between Go structs and Redis hashes.
//
// Redis stores hashes as string-to-string maps. Scalar fields get their own
// hash fields so they stay individually readable; structured fields
// (blueprint, history, actors) are JSON-encoded into single fields.

// SimulationToHash converts a simulation record to Redis hash form.
func SimulationToHash(r *SimulationRecord) (map[string]interface{}, error) {
	actorsJSON, err := json.Marshal(r.Actors)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal actors: %w", err)
	}
	objectivesJSON, err := json.Marshal(r.Objectives)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal objectives: %w", err)
	}
	parametersJSON, err := json.Marshal(r.Parameters)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal parameters: %w", err)
	}
	blueprintJSON, err := json.Marshal(r.Blueprint)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal blueprint: %w", err)
	}

	return map[string]interface{}{
		"id":            r.ID,
		"name":          r.Name,
		"scenario_text": r.ScenarioText,
		"actors":        string(actorsJSON),
		"objectives":    string(objectivesJSON),
		"parameters":    string(parametersJSON),
		"blueprint":     string(blueprintJSON),
		"is_template":   strconv.FormatBool(r.IsTemplate),
		"created_at":    r.CreatedAt.UTC().Format(time.RFC3339Nano),
		"updated_at":    r.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}, nil
}

// HashToSimulation converts a Redis hash back to a simulation record.
func HashToSimulation(hash map[string]string) (*SimulationRecord, error) {
	record := &SimulationRecord{
		ID:           hash["id"],
		Name:         hash["name"],
		ScenarioText: hash["scenario_text"],
	}

	if err := unmarshalField(hash, "actors", &record.Actors); err != nil {
		return nil, err
	}
	if record.Actors == nil {
		record.Actors = []schema.Actor{}
	}
	if err := unmarshalField(hash, "objectives", &record.Objectives); err != nil {
		return nil, err
	}
	if record.Objectives == nil {
		record.Objectives = []string{}
	}
	if err := unmarshalField(hash, "parameters", &record.Parameters); err != nil {
		return nil, err
	}
	if err := unmarshalField(hash, "blueprint", &record.Blueprint); err != nil {
		return nil, err
	}

	record.IsTemplate, _ = strconv.ParseBool(hash["is_template"])
	record.CreatedAt = parseTime(hash["created_at"])
	record.UpdatedAt = parseTime(hash["updated_at"])
	return record, nil
}

// SessionToHash converts a session record to Redis hash form.
func SessionToHash(r *SessionRecord) (map[string]interface{}, error) {
	historyJSON, err := json.Marshal(r.History)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal conversation history: %w", err)
	}

	hash := map[string]interface{}{
		"id":                   r.ID,
		"simulation_id":        r.SimulationID,
		"conversation_history": string(historyJSON),
		"state":                string(r.State),
		"started_at":           r.StartedAt.UTC().Format(time.RFC3339Nano),
		"last_activity_at":     r.LastActivityAt.UTC().Format(time.RFC3339Nano),
	}
	if !r.CompletedAt.IsZero() {
		hash["completed_at"] = r.CompletedAt.UTC().Format(time.RFC3339Nano)
	} else {
		hash["completed_at"] = ""
	}
	return hash, nil
}

// HashToSession converts a Redis hash back to a session record.
func HashToSession(hash map[string]string) (*SessionRecord, error) {
	record := &SessionRecord{
		ID:           hash["id"],
		SimulationID: hash["simulation_id"],
		State:        SessionState(hash["state"]),
	}

	if err := unmarshalField(hash, "conversation_history", &record.History); err != nil {
		return nil, err
	}
	// Empty slice rather than nil for consistency.
	if record.History == nil {
		record.History = []schema.Message{}
	}

	record.StartedAt = parseTime(hash["started_at"])
	record.LastActivityAt = parseTime(hash["last_activity_at"])
	record.CompletedAt = parseTime(hash["completed_at"])
	return record, nil
}

func unmarshalField(hash map[string]string, field string, out any) error {
	raw := hash[field]
	if raw == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", field, err)
	}
	return nil
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
