package blackboard

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Deep-copy and hashing helpers.
//
// Board values are JSON-shaped trees (objects, arrays, primitives). A JSON
// round-trip gives a semantic deep copy that also normalizes typed structs
// into generic trees, so a value read back never aliases what was written.
// Cyclic graphs fail json.Marshal and are rejected.

// deepClone returns a deep copy of v as a generic JSON tree.
func deepClone(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("value is not JSON-shaped: %w", err)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to rebuild cloned value: %w", err)
	}
	return out, nil
}

// Decode converts a board value (generic JSON tree) into a typed struct.
// The caller owns the result; it shares nothing with board state.
func Decode(v any, out any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal board value: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode board value: %w", err)
	}
	return nil
}

// ValueHash returns the first 16 hex characters of the SHA-256 digest of a
// canonical serialization of v. Canonical means the value is first normalized
// to a generic tree, whose map keys encoding/json emits in sorted order.
func ValueHash(v any) string {
	normalized, err := deepClone(v)
	if err != nil {
		return ""
	}
	data, err := json.Marshal(normalized)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:16]
}
