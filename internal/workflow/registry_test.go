package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizmatters/agent-builder/workflow-orchestrator/internal/models"
)

func TestRegistry_CreateGetDelete(t *testing.T) {
	r := NewRegistry(newFakeAnalysis(), &fakeDrafting{}, RegistryConfig{}, nil)
	defer r.Close()
	ctx := context.Background()

	s, err := r.Create(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID())
	assert.Equal(t, 1, r.Len())
	assert.Equal(t, DefaultSessionTTL, r.TTL())

	got, err := r.Get(s.ID())
	require.NoError(t, err)
	assert.Same(t, s, got)

	require.NoError(t, r.Delete(s.ID()))
	assert.True(t, s.Snapshot().Closed)
	assert.Equal(t, 0, r.Len())

	_, err = r.Get(s.ID())
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.ErrorIs(t, r.Delete(s.ID()), models.ErrNotFound)
}

func TestRegistry_UniqueIDs(t *testing.T) {
	r := NewRegistry(newFakeAnalysis(), &fakeDrafting{}, RegistryConfig{}, nil)
	defer r.Close()

	seen := map[string]bool{}
	for i := 0; i < 10; i++ {
		s, err := r.Create(context.Background())
		require.NoError(t, err)
		assert.False(t, seen[s.ID()])
		seen[s.ID()] = true
	}
}

func TestRegistry_EvictsLeastRecentlyUsed(t *testing.T) {
	r := NewRegistry(newFakeAnalysis(), &fakeDrafting{}, RegistryConfig{MaxSessions: 2}, nil)
	defer r.Close()
	ctx := context.Background()

	first, err := r.Create(ctx)
	require.NoError(t, err)
	second, err := r.Create(ctx)
	require.NoError(t, err)

	_, err = r.Get(first.ID())
	require.NoError(t, err)

	third, err := r.Create(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, r.Len())
	assert.True(t, second.Snapshot().Closed)
	assert.False(t, first.Snapshot().Closed)
	assert.False(t, third.Snapshot().Closed)

	_, err = r.Get(second.ID())
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestRegistry_ExpiresIdleSessions(t *testing.T) {
	r := NewRegistry(newFakeAnalysis(), &fakeDrafting{}, RegistryConfig{SessionTTL: 50 * time.Millisecond}, nil)
	defer r.Close()

	s, err := r.Create(context.Background())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return s.Snapshot().Closed
	}, 2*time.Second, 10*time.Millisecond)

	_, err = r.Get(s.ID())
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestRegistry_Close(t *testing.T) {
	r := NewRegistry(newFakeAnalysis(), &fakeDrafting{}, RegistryConfig{}, nil)
	s, err := r.Create(context.Background())
	require.NoError(t, err)

	r.Close()
	assert.True(t, s.Snapshot().Closed)

	_, err = r.Create(context.Background())
	assert.Error(t, err)
}
