package driver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/agentsociety-driver/entity/conflict"
	"github.com/tsinghua-fib-lab/agentsociety-driver/entity/parameters"
	"go.uber.org/goleak"
)

func TestManagerLifecycle(t *testing.T) {
	m := NewManager(0)
	for id := int32(1); id <= 5; id++ {
		m.Add(newDriver(t, id))
	}
	assert.Zero(t, m.Len())
	require.NoError(t, m.Prepare())
	assert.Equal(t, 5, m.Len())

	d3, ok := m.Get(3)
	require.True(t, ok)
	m.Remove(d3)
	m.Add(newDriver(t, 1))
	err := m.Prepare()
	assert.ErrorIs(t, err, ErrDuplicateDriver)
	assert.Equal(t, 4, m.Len())
	_, ok = m.Get(3)
	assert.False(t, ok)
	for i, d := range m.Drivers() {
		assert.Equal(t, i, d.Index())
	}
}

func TestManagerUpdate(t *testing.T) {
	defer goleak.VerifyNone(t)

	m := NewManager(2)
	for id := int32(1); id <= 20; id++ {
		m.Add(newDriver(t, id))
	}
	require.NoError(t, m.Prepare())

	actions, err := m.Update(context.Background(), func(d *Driver) Perception {
		return Perception{Speed: float64(d.ID() % 10), SpeedLimit: testLimit}
	})
	require.NoError(t, err)
	require.Len(t, actions, 20)
	for i, d := range m.Drivers() {
		assert.Equal(t, d.Action(), actions[i])
		assert.Greater(t, actions[i].A, 0.)
	}
}

func TestManagerUpdateError(t *testing.T) {
	defer goleak.VerifyNone(t)

	m := NewManager(4)
	bad, err := New(7, parameters.New(), nil, 4, 2, "")
	require.NoError(t, err)
	m.Add(bad)
	for id := int32(1); id <= 5; id++ {
		m.Add(newDriver(t, id))
	}
	require.NoError(t, m.Prepare())

	_, err = m.Update(context.Background(), func(*Driver) Perception {
		return Perception{Speed: 5, SpeedLimit: testLimit}
	})
	assert.ErrorIs(t, err, parameters.ErrMissingParameter)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m.Remove(bad)
	require.NoError(t, m.Prepare())
	_, err = m.Update(ctx, func(*Driver) Perception { return Perception{} })
	assert.ErrorIs(t, err, context.Canceled)

	_, err = m.Update(context.Background(), func(*Driver) Perception {
		c := yieldMerge(5)
		c.Rule = conflict.Rule(9)
		return Perception{Speed: 5, SpeedLimit: testLimit, Conflicts: []*conflict.Conflict{c}}
	})
	assert.ErrorIs(t, err, conflict.ErrUnsupportedRule)
}
