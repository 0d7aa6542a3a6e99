// Package resolver resolves short id prefixes to full simulation and
// session UUIDs so CLI users never have to paste whole ids.
package resolver

import (
	"context"
	"fmt"
	"strings"

	"github.com/scrimlabs/scrim/internal/store"
)

// MinShortIDLength balances usability with collision avoidance.
const MinShortIDLength = 6

// NotFoundError indicates nothing matched the short id.
type NotFoundError struct {
	Kind    string
	ShortID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no %s matches %q", e.Kind, e.ShortID)
}

// AmbiguousError indicates more than one id matched the prefix.
type AmbiguousError struct {
	Kind    string
	ShortID string
	Matches []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("%s id %q is ambiguous (%d matches); use more characters",
		e.Kind, e.ShortID, len(e.Matches))
}

// ResolveSimulationID resolves a prefix to a full simulation id. Full UUIDs
// pass through after an existence check.
func ResolveSimulationID(ctx context.Context, st *store.Client, shortID string) (string, error) {
	if isFullUUID(shortID) {
		if _, err := st.GetSimulation(ctx, shortID); err != nil {
			if store.IsNotFound(err) {
				return "", &NotFoundError{Kind: "simulation", ShortID: shortID}
			}
			return "", err
		}
		return shortID, nil
	}
	if len(shortID) < MinShortIDLength {
		return "", fmt.Errorf("short id must be at least %d characters (got %d)", MinShortIDLength, len(shortID))
	}

	records, err := st.ListSimulations(ctx, nil)
	if err != nil {
		return "", err
	}
	var matches []string
	for _, r := range records {
		if strings.HasPrefix(r.ID, shortID) {
			matches = append(matches, r.ID)
		}
	}
	return pick("simulation", shortID, matches)
}

// ResolveSessionID resolves a prefix to a full session id by scanning the
// sessions of every stored simulation.
func ResolveSessionID(ctx context.Context, st *store.Client, shortID string) (string, error) {
	if isFullUUID(shortID) {
		if _, err := st.GetSession(ctx, shortID); err != nil {
			if store.IsNotFound(err) {
				return "", &NotFoundError{Kind: "session", ShortID: shortID}
			}
			return "", err
		}
		return shortID, nil
	}
	if len(shortID) < MinShortIDLength {
		return "", fmt.Errorf("short id must be at least %d characters (got %d)", MinShortIDLength, len(shortID))
	}

	records, err := st.ListSimulations(ctx, nil)
	if err != nil {
		return "", err
	}
	var matches []string
	for _, r := range records {
		ids, err := st.SessionsForSimulation(ctx, r.ID)
		if err != nil {
			return "", err
		}
		for _, id := range ids {
			if strings.HasPrefix(id, shortID) {
				matches = append(matches, id)
			}
		}
	}
	return pick("session", shortID, matches)
}

func pick(kind, shortID string, matches []string) (string, error) {
	switch len(matches) {
	case 0:
		return "", &NotFoundError{Kind: kind, ShortID: shortID}
	case 1:
		return matches[0], nil
	default:
		return "", &AmbiguousError{Kind: kind, ShortID: shortID, Matches: matches}
	}
}

func isFullUUID(s string) bool {
	return len(s) == 36 && strings.Count(s, "-") == 4
}
