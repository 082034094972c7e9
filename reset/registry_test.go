package reset

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry(time.Minute)
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	f := &Flow{step: StepIdentity}
	id := r.Add(f)
	assert.NotEmpty(t, id)

	got, ok := r.Get(id)
	require.True(t, ok)
	assert.Same(t, f, got)

	r.Remove(id)
	_, ok = r.Get(id)
	assert.False(t, ok)
	assert.Equal(t, Step(0), f.Step())
}

func TestRegistryExpiresIdleFlows(t *testing.T) {
	r := NewRegistry(time.Minute)
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	f := &Flow{step: StepCode, code: "1234"}
	id := r.Add(f)

	now = now.Add(2 * time.Minute)
	_, ok := r.Get(id)
	assert.False(t, ok)
	assert.Equal(t, 0, r.Len())
	assert.Empty(t, f.code)
}
