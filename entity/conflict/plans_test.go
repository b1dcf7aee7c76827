package conflict

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/agentsociety-driver/entity"
)

func TestStopPhaseTransitions(t *testing.T) {
	p := NewPlans()
	assert.Equal(t, PhaseNone, p.StopPhase("a"))

	assert.ErrorIs(t, p.SetStopPhaseYield("a", 0), ErrInvalidTransition)
	assert.ErrorIs(t, p.SetStopPhaseRun("a"), ErrInvalidTransition)

	require.NoError(t, p.SetStopPhaseApproach("a"))
	require.NoError(t, p.SetStopPhaseApproach("a"))
	assert.ErrorIs(t, p.SetStopPhaseRun("a"), ErrInvalidTransition)
	require.NoError(t, p.SetStopPhaseYield("a", 12))
	own, ok := p.OwnArrival("a")
	assert.True(t, ok)
	assert.Equal(t, 12., own)

	assert.ErrorIs(t, p.SetStopPhaseApproach("a"), ErrInvalidTransition)
	require.NoError(t, p.SetStopPhaseRun("a"))
	assert.Equal(t, PhaseRun, p.StopPhase("a"))
	// 终态
	assert.ErrorIs(t, p.SetStopPhaseApproach("a"), ErrInvalidTransition)
	assert.ErrorIs(t, p.SetStopPhaseYield("a", 13), ErrInvalidTransition)
	assert.ErrorIs(t, p.SetStopPhaseRun("a"), ErrInvalidTransition)

	// 停车线之间互不影响
	assert.Equal(t, PhaseNone, p.StopPhase("b"))
}

func TestIndicatorIntent(t *testing.T) {
	p := NewPlans()
	_, _, ok := p.IndicatorIntent()
	assert.False(t, ok)

	p.SetIndicatorIntent(entity.IndicatorLeft, 30)
	p.SetIndicatorIntent(entity.IndicatorRight, 40)
	intent, d, ok := p.IndicatorIntent()
	assert.True(t, ok)
	assert.Equal(t, entity.IndicatorLeft, intent)
	assert.Equal(t, 30., d)

	p.SetIndicatorIntent(entity.IndicatorRight, 10)
	intent, _, _ = p.IndicatorIntent()
	assert.Equal(t, entity.IndicatorRight, intent)

	p.Clean()
	intent, _, ok = p.IndicatorIntent()
	assert.False(t, ok)
	assert.Equal(t, entity.IndicatorNone, intent)
}

func TestArrivalTimeKeepsFirst(t *testing.T) {
	p := NewPlans()
	p.SetArrivalTime(3, 1)
	p.SetArrivalTime(3, 2)
	at, ok := p.ArrivalTime(3)
	assert.True(t, ok)
	assert.Equal(t, 1., at)
	_, ok = p.ArrivalTime(4)
	assert.False(t, ok)
}

func TestAllStopCycle(t *testing.T) {
	c := newConflict(1, Crossing, AllStop, 3, 4)
	plans := NewPlans()

	// 接近：需要停车
	in := newInput(2, c)
	in.ID = 10
	in.Time = 1
	res, err := Approach(in, plans)
	require.NoError(t, err)
	assert.True(t, res.Constrained())
	assert.Equal(t, PhaseApproach, plans.StopPhase("stop"))

	// 冲突车道上已有先到车辆在等待
	waiting := conflictingVehicle(7, 2, 0)
	c.Upstream = []entity.Vehicle{waiting}
	in = newInput(0, c)
	in.ID = 10
	in.Time = 2
	res, err = Approach(in, plans)
	require.NoError(t, err)
	assert.True(t, res.Constrained())
	assert.Equal(t, PhaseYield, plans.StopPhase("stop"))

	// 同时记录到达：ID更小的先行
	in.Time = 3
	res, err = Approach(in, plans)
	require.NoError(t, err)
	assert.True(t, res.Constrained())
	assert.Equal(t, PhaseYield, plans.StopPhase("stop"))

	// 先到车辆离开后通过
	c.Upstream = nil
	in.Time = 4
	res, err = Approach(in, plans)
	require.NoError(t, err)
	assert.False(t, res.Constrained())
	assert.Equal(t, PhaseRun, plans.StopPhase("stop"))
}

func TestAllStopFirstArrivalRuns(t *testing.T) {
	c := newConflict(1, Crossing, AllStop, 3, 4)
	plans := NewPlans()
	in := newInput(0, c)
	in.ID = 20
	in.Time = 1
	_, err := Approach(in, plans)
	require.NoError(t, err)
	assert.Equal(t, PhaseYield, plans.StopPhase("stop"))

	// 之后到达的车辆不影响自车通过
	c.Upstream = []entity.Vehicle{conflictingVehicle(7, 2, 0)}
	in.Time = 2
	res, err := Approach(in, plans)
	require.NoError(t, err)
	assert.False(t, res.Constrained())
	assert.Equal(t, PhaseRun, plans.StopPhase("stop"))
}

func TestAllStopBehindChainedCrossings(t *testing.T) {
	// 全向停车冲突前有两个首尾相接的交叉冲突，停车位置在第一个交叉冲突前
	newChain := func(rule Rule) []*Conflict {
		return []*Conflict{
			newConflict(1, Crossing, Priority, 1.5, 3),
			newConflict(2, Crossing, Priority, 6.5, 3),
			newConflict(3, Crossing, rule, 11.5, 3),
		}
	}
	chain := newChain(AllStop)
	plans := NewPlans()
	in := newInput(0, chain...)
	in.Time = 1
	res, err := Approach(in, plans)
	require.NoError(t, err)
	assert.True(t, res.Constrained())
	assert.Equal(t, PhaseYield, plans.StopPhase("stop"))
	own, ok := plans.OwnArrival("stop")
	require.True(t, ok)
	assert.Equal(t, 1., own)

	// 没有先到车辆，进入通过阶段后与优先冲突的结果相同
	in.Time = 1.5
	res, err = Approach(in, plans)
	require.NoError(t, err)
	assert.Equal(t, PhaseRun, plans.StopPhase("stop"))
	want, err := Approach(newInput(0, newChain(Priority)...), NewPlans())
	require.NoError(t, err)
	assert.Equal(t, want, res)

	// 停车位置在停车区外时仍处于接近阶段
	far := newChain(AllStop)
	for _, c := range far {
		c.Distance += 5
	}
	plans = NewPlans()
	_, err = Approach(newInput(0, far...), plans)
	require.NoError(t, err)
	assert.Equal(t, PhaseApproach, plans.StopPhase("stop"))
}

func TestApproachers(t *testing.T) {
	c := newConflict(1, Crossing, Yield, 10, 4)
	c.ConflictingVisibility = 80
	aps := c.Approachers()
	require.Len(t, aps, 1)
	assert.Equal(t, Inferred, aps[0].Kind)
	assert.Equal(t, 80., aps[0].Vehicle.Distance)
	assert.Equal(t, testLimit, aps[0].Vehicle.Speed)

	c.HasConflictingTrafficLight = true
	assert.Empty(t, c.Approachers())

	c.Upstream = []entity.Vehicle{conflictingVehicle(2, 5, 1), conflictingVehicle(3, 9, 1)}
	aps = c.Approachers()
	require.Len(t, aps, 2)
	assert.Equal(t, Observed, aps[0].Kind)
	assert.Equal(t, int32(3), aps[1].Vehicle.ID)
}

func TestWidthAt(t *testing.T) {
	c := &Conflict{StartWidth: 2, EndWidth: 6}
	assert.Equal(t, 2., c.WidthAt(-1))
	assert.Equal(t, 4., c.WidthAt(.5))
	assert.Equal(t, 6., c.WidthAt(3))
}
