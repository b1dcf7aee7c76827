package attention

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/agentsociety-driver/entity"
	"github.com/tsinghua-fib-lab/agentsociety-driver/entity/conflict"
	"github.com/tsinghua-fib-lab/agentsociety-driver/entity/parameters"
)

// fixed 返回固定任务的提供者
func fixed(tasks ...Task) Provider {
	return func(*Scene, Mapper) ([]Task, error) {
		return tasks, nil
	}
}

func TestCapacityAllocator(t *testing.T) {
	p := parameters.Default()
	channels := []Channel{FRONT, LEFT, RIGHT, REAR, ConflictChannel(1)}

	out, err := CapacityAllocator{}.Allocate(p, channels, map[Channel]float64{FRONT: .5, LEFT: .25})
	require.NoError(t, err)
	assert.InDelta(t, .5, out[FRONT].Attention, delta)
	assert.InDelta(t, .64, out[FRONT].PerceptionDelay, delta)
	assert.InDelta(t, .25, out[LEFT].Attention, delta)
	// 0.32/0.25 超过tau_max
	assert.InDelta(t, 1.2, out[LEFT].PerceptionDelay, delta)
	assert.Zero(t, out[REAR].Attention)
	assert.InDelta(t, 1.2, out[REAR].PerceptionDelay, delta)

	// 超出容量时按比例分配
	out, err = CapacityAllocator{}.Allocate(p, channels, map[Channel]float64{FRONT: 1.5, ConflictChannel(1): .5})
	require.NoError(t, err)
	assert.InDelta(t, .75, out[FRONT].Attention, delta)
	assert.InDelta(t, .32/.75, out[FRONT].PerceptionDelay, delta)
	assert.InDelta(t, .25, out[ConflictChannel(1)].Attention, delta)

	_, err = CapacityAllocator{}.Allocate(parameters.New(), channels, nil)
	assert.ErrorIs(t, err, parameters.ErrMissingParameter)
}

func TestMentalSumsDemand(t *testing.T) {
	m := NewMental(nil,
		fixed(Task{ID: "a", Channel: FRONT, Demand: .2}, Task{ID: "b", Channel: ConflictChannel(4), Demand: .1}),
		fixed(Task{ID: "c", Channel: ObjectChannel(2), Demand: .3}, Task{ID: "d", Channel: FRONT, Demand: .1}),
		fixed(Task{ID: "e", Channel: ConflictChannel(4), Demand: math.NaN()}),
	)
	require.NoError(t, m.Update(newScene(10)))
	assert.Equal(t, []Channel{FRONT, LEFT, RIGHT, REAR, ConflictChannel(4), ObjectChannel(2)}, m.Channels())
	assert.Len(t, m.Tasks(), 5)
	assert.InDelta(t, .3, m.TaskDemand(FRONT), delta)
	assert.InDelta(t, .1, m.TaskDemand(ConflictChannel(4)), delta)
	assert.InDelta(t, .7, m.TotalDemand(), delta)
	assert.InDelta(t, .7, m.Saturation(), delta)
	assert.InDelta(t, .3, m.Attention(FRONT), delta)
	assert.Zero(t, m.Attention(REAR))
	assert.InDelta(t, 1.2, m.PerceptionDelay(REAR), delta)
	// 未知通道
	assert.Zero(t, m.Attention(ObjectChannel(99)))
	assert.InDelta(t, 1.2, m.PerceptionDelay(ObjectChannel(99)), delta)
}

func TestMentalMappingRefresh(t *testing.T) {
	n := mergeNetwork(t)
	c1 := onLink(1, 10, n.Link(1))
	c3 := onLink(3, 15, n.Link(3))
	c3.Upstream = []entity.Vehicle{upstream(5, 10)}
	providers, err := Providers(TaskModelConflict)
	require.NoError(t, err)
	m := NewMental(CapacityAllocator{}, providers...)

	require.NoError(t, m.Update(newScene(10, c1, c3)))
	assert.Equal(t, ConflictChannel(1), m.Resolve(ConflictChannel(3)))
	assert.Equal(t, m.Attention(ConflictChannel(1)), m.Attention(ConflictChannel(3)))
	assert.Equal(t, m.PerceptionDelay(ConflictChannel(1)), m.PerceptionDelay(ConflictChannel(3)))
	// 冲突任务与扫视任务在同一通道上求和
	assert.InDelta(t, math.Exp(-1./4)+parameters.TDScan.Default, m.TaskDemand(ConflictChannel(3)), delta)
	assert.Contains(t, m.Channels(), ConflictChannel(1))
	assert.NotContains(t, m.Channels(), ConflictChannel(3))

	// 重复映射相同通道没有影响
	m.MapToChannel(ConflictChannel(3), ConflictChannel(1))
	assert.Equal(t, ConflictChannel(1), m.Resolve(ConflictChannel(3)))

	require.NoError(t, m.Update(newScene(10)))
	assert.Equal(t, ConflictChannel(3), m.Resolve(ConflictChannel(3)))
	assert.Equal(t, []Channel{FRONT, LEFT, RIGHT, REAR}, m.Channels())
}

func TestMentalIntersectionChannels(t *testing.T) {
	split := onLink(5, 10, nil)
	split.Type = conflict.Split
	split.Rule = conflict.SplitRule
	c := onLink(6, 20, nil)
	// 两种任务模型中分流冲突都归入FRONT
	for _, model := range []string{TaskModelIntersection, TaskModelConflict} {
		providers, err := Providers(model)
		require.NoError(t, err)
		m := NewMental(nil, providers...)
		require.NoError(t, m.Update(newScene(10, split, c)))
		assert.Equal(t, FRONT, m.Resolve(ConflictChannel(5)), model)
		assert.Equal(t, ConflictChannel(6), m.Resolve(ConflictChannel(6)), model)
		assert.Equal(t, []Channel{FRONT, LEFT, RIGHT, REAR, ConflictChannel(6)}, m.Channels(), model)
		for _, ch := range m.Channels() {
			a := m.Attention(ch)
			assert.GreaterOrEqual(t, a, 0.)
			assert.LessOrEqual(t, a, 1.)
		}
	}
}

func TestMentalErrors(t *testing.T) {
	_, err := Providers("foo")
	assert.ErrorIs(t, err, ErrUnknownTaskModel)

	boom := errors.New("boom")
	m := NewMental(nil,
		fixed(Task{ID: "a", Channel: ObjectChannel(1), Demand: .2}),
		func(*Scene, Mapper) ([]Task, error) { return nil, boom },
	)
	err = m.Update(newScene(10))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []Channel{FRONT, LEFT, RIGHT, REAR}, m.Channels())
	assert.Zero(t, m.Attention(ObjectChannel(1)))

	s := newScene(10)
	s.Parameters = parameters.New()
	assert.ErrorIs(t, m.Update(s), parameters.ErrMissingParameter)
}
