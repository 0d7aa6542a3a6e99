package resolver

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrimlabs/scrim/internal/schema"
	"github.com/scrimlabs/scrim/internal/store"
)

const (
	simA = "aaaa1111-0000-0000-0000-000000000001"
	simB = "aaaa2222-0000-0000-0000-000000000002"
	sesA = "bbbb1111-0000-0000-0000-000000000001"
	sesB = "bbbb1122-0000-0000-0000-000000000002"
)

func setupResolverStore(t *testing.T) *store.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	st, err := store.NewClient(&redis.Options{Addr: mr.Addr()}, "test")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	ctx := context.Background()
	now := time.Now().UTC()
	for _, id := range []string{simA, simB} {
		require.NoError(t, st.SaveSimulation(ctx, &store.SimulationRecord{
			ID:        id,
			Name:      "sim " + id[:8],
			Blueprint: schema.SimulationBlueprint{ScenarioID: id},
			CreatedAt: now,
			UpdatedAt: now,
		}))
	}
	for _, id := range []string{sesA, sesB} {
		require.NoError(t, st.SaveSession(ctx, &store.SessionRecord{
			ID:             id,
			SimulationID:   simA,
			State:          store.SessionActive,
			StartedAt:      now,
			LastActivityAt: now,
		}))
	}
	return st
}

func TestResolveSimulationID(t *testing.T) {
	ctx := context.Background()
	st := setupResolverStore(t)

	t.Run("unique prefix resolves", func(t *testing.T) {
		id, err := ResolveSimulationID(ctx, st, "aaaa11")
		require.NoError(t, err)
		assert.Equal(t, simA, id)
	})

	t.Run("full uuid passes through", func(t *testing.T) {
		id, err := ResolveSimulationID(ctx, st, simB)
		require.NoError(t, err)
		assert.Equal(t, simB, id)
	})

	t.Run("full uuid still checks existence", func(t *testing.T) {
		_, err := ResolveSimulationID(ctx, st, "cccc0000-0000-0000-0000-000000000009")
		var notFound *NotFoundError
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, "simulation", notFound.Kind)
	})

	t.Run("ambiguous prefix lists matches", func(t *testing.T) {
		_, err := ResolveSimulationID(ctx, st, "aaaa")
		assert.Error(t, err, "below the minimum length")

		_, err = ResolveSimulationID(ctx, st, "aaaa1111-0000")
		require.NoError(t, err, "longer unique prefixes are fine")
	})

	t.Run("shared prefix is ambiguous at session level", func(t *testing.T) {
		_, err := ResolveSessionID(ctx, st, "bbbb11")
		var ambiguous *AmbiguousError
		require.ErrorAs(t, err, &ambiguous)
		assert.Len(t, ambiguous.Matches, 2)
	})

	t.Run("too short prefix is rejected", func(t *testing.T) {
		_, err := ResolveSimulationID(ctx, st, "aa")
		assert.ErrorContains(t, err, "at least 6 characters")
	})

	t.Run("unknown prefix is not found", func(t *testing.T) {
		_, err := ResolveSimulationID(ctx, st, "ffffff")
		var notFound *NotFoundError
		assert.ErrorAs(t, err, &notFound)
	})
}

func TestResolveSessionID(t *testing.T) {
	ctx := context.Background()
	st := setupResolverStore(t)

	t.Run("unique prefix resolves across simulations", func(t *testing.T) {
		id, err := ResolveSessionID(ctx, st, "bbbb1111")
		require.NoError(t, err)
		assert.Equal(t, sesA, id)
	})

	t.Run("full uuid passes through", func(t *testing.T) {
		id, err := ResolveSessionID(ctx, st, sesB)
		require.NoError(t, err)
		assert.Equal(t, sesB, id)
	})

	t.Run("unknown session is not found", func(t *testing.T) {
		_, err := ResolveSessionID(ctx, st, "eeeeee")
		var notFound *NotFoundError
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, "session", notFound.Kind)
	})
}
