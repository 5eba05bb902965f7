package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWorker(name string, phase int) *Func {
	return &Func{
		S: Spec{Name: name, Phase: phase, Timeout: time.Second},
		Fn: func(ctx context.Context, input *Input) (any, error) {
			return map[string]any{"ok": true}, nil
		},
	}
}

func TestNewRegistry(t *testing.T) {
	registry := NewRegistry()

	assert.NotNil(t, registry)
	assert.Equal(t, 0, registry.Count())
}

func TestRegistry_Register(t *testing.T) {
	registry := NewRegistry()

	err := registry.Register(newTestWorker("structure_scan", 1))
	assert.NoError(t, err)
	assert.Equal(t, 1, registry.Count())
	assert.True(t, registry.Has("structure_scan"))
}

func TestRegistry_Register_Duplicate(t *testing.T) {
	registry := NewRegistry()

	require.NoError(t, registry.Register(newTestWorker("w", 1)))

	err := registry.Register(newTestWorker("w", 2))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestRegistry_Register_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		worker Worker
	}{
		{"nil worker", nil},
		{"empty name", newTestWorker("", 1)},
		{"zero phase", newTestWorker("w", 0)},
		{
			"negative timeout",
			&Func{S: Spec{Name: "w", Phase: 1, Timeout: -time.Second}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, NewRegistry().Register(tt.worker))
		})
	}
}

func TestRegistry_MustRegister_Panics(t *testing.T) {
	registry := NewRegistry()
	registry.MustRegister(newTestWorker("w", 1))

	assert.Panics(t, func() {
		registry.MustRegister(newTestWorker("w", 1))
	})
}

func TestRegistry_Get(t *testing.T) {
	registry := NewRegistry()
	registry.MustRegister(newTestWorker("w", 1))

	w := registry.Get("w")
	require.NotNil(t, w)
	assert.Equal(t, "w", w.Spec().Name)

	assert.Nil(t, registry.Get("missing"))
}

func TestRegistry_ByPhase_SortedByName(t *testing.T) {
	registry := NewRegistry()
	registry.MustRegister(newTestWorker("charlie", 1))
	registry.MustRegister(newTestWorker("alpha", 1))
	registry.MustRegister(newTestWorker("bravo", 2))

	phase1 := registry.ByPhase(1)
	require.Len(t, phase1, 2)
	assert.Equal(t, "alpha", phase1[0].Spec().Name)
	assert.Equal(t, "charlie", phase1[1].Spec().Name)

	assert.Empty(t, registry.ByPhase(3))
}

func TestRegistry_Phases_Ascending(t *testing.T) {
	registry := NewRegistry()
	registry.MustRegister(newTestWorker("c", 3))
	registry.MustRegister(newTestWorker("a", 1))
	registry.MustRegister(newTestWorker("b", 1))

	assert.Equal(t, []int{1, 3}, registry.Phases())
}
