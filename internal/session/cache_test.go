package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rebase/internal/discovery"
)

func TestDataCache_ReturnsCopies(t *testing.T) {
	c, err := NewDataCache(2)
	require.NoError(t, err)

	d := discovery.NewCollectedBusinessData()
	c.Put("a", d)
	d.Merge(map[string]any{"business_goals": map[string]any{"kpis": []any{"lead time"}}})

	got, ok := c.Get("a")
	require.True(t, ok)
	assert.Zero(t, got.OverallCompleteness())

	got.Merge(map[string]any{"business_goals": map[string]any{"kpis": []any{"mttr"}}})
	again, _ := c.Get("a")
	assert.Zero(t, again.OverallCompleteness())
}

func TestDataCache_Evicts(t *testing.T) {
	c, err := NewDataCache(2)
	require.NoError(t, err)
	c.Put("a", discovery.NewCollectedBusinessData())
	c.Put("b", discovery.NewCollectedBusinessData())
	c.Put("c", discovery.NewCollectedBusinessData())

	assert.Equal(t, 2, c.Len())
	_, ok := c.Get("a")
	assert.False(t, ok)

	c.Remove("b")
	_, ok = c.Get("b")
	assert.False(t, ok)
}

func TestDataCache_LoadRehydrates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id, err := s.CreateSession(ctx, "start", nil, "framework_migration")
	require.NoError(t, err)

	facts := discovery.NewCollectedBusinessData()
	facts.Merge(map[string]any{"current_problems": map[string]any{"technical_issues": []any{"slow builds"}}})
	require.NoError(t, s.UpdateContext(ctx, id, Update{Facts: facts}))

	c, err := NewDataCache(8)
	require.NoError(t, err)
	sc, err := s.GetContext(ctx, id)
	require.NoError(t, err)

	d, err := c.Load(sc)
	require.NoError(t, err)
	assert.Greater(t, d.CategoryProgress(discovery.CurrentProblems), 0.0)
	assert.Equal(t, 1, c.Len())
}
