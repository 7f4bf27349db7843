package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrainlab/entrain/internal/engine"
)

func TestTickerLifecycle(t *testing.T) {
	k := NewTicker("k", 0.5, 1)
	assert.Equal(t, engine.At(0), k.ProjectedTime())

	require.NoError(t, k.AdvanceOneUnit())
	assert.Equal(t, engine.At(0.5), k.ProjectedTime())

	require.NoError(t, k.AdvanceOneUnit())
	assert.True(t, k.ProjectedTime().IsDone())

	require.NoError(t, k.Reinitialize())
	assert.Equal(t, engine.At(0), k.ProjectedTime())
}

func TestProbeRecordsAdvanceOrder(t *testing.T) {
	root := engine.NewContainer("root", engine.WithID("root"))
	p := NewProbe()
	a := NewTicker("a", 1, 2)
	b := NewTicker("b", 2, 2)
	a.Observe(p)
	b.Observe(p)
	require.NoError(t, engine.Attach(root, a))
	require.NoError(t, engine.Attach(root, b))

	s := engine.NewScheduler()
	_, err := s.Simulate(context.Background(), root, 100)
	require.NoError(t, err)

	assert.Equal(t, []Advance{
		{Name: "a", To: 1},
		{Name: "b", To: 2},
		{Name: "a", To: 2},
	}, p.Advances())
}
