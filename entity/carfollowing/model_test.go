package carfollowing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/agentsociety-driver/entity/parameters"
)

func TestIDMFollow(t *testing.T) {
	p := parameters.Default()
	m := IDM{}

	// 自由流：前车很远
	acc, err := m.FollowSingleLeader(p, 0, 10, 1e9, 10)
	require.NoError(t, err)
	assert.InDelta(t, 1.25, acc, 1e-6)

	// 期望车距：s0 + v*T + v*dv/(2*sqrt(ab))
	v, limit, gap := 5., 13.89, 12.
	sStar := 3 + v*1.2 + v*v/2/math.Sqrt(1.25*2.09)
	want := 1.25 * (1 - math.Pow(v/limit, 4) - math.Pow(sStar/gap, 2))
	acc, err = m.Stop(p, v, limit, gap)
	require.NoError(t, err)
	assert.InDelta(t, want, acc, 1e-9)

	acc, err = m.Stop(p, v, limit, 0)
	require.NoError(t, err)
	assert.True(t, math.IsInf(acc, -1) || acc < -1e9)

	// 以期望速度行驶时自由加速度为0
	acc, err = m.FreeAcceleration(p, 10, 10)
	require.NoError(t, err)
	assert.InDelta(t, 0, acc, 1e-12)

	vd, err := m.DesiredSpeed(p.With(parameters.FSpeed, 1.1), 10)
	require.NoError(t, err)
	assert.InDelta(t, 11, vd, 1e-12)
}

func TestIDMMissingParameter(t *testing.T) {
	_, err := IDM{}.FollowSingleLeader(parameters.New(), 1, 10, 10, 0)
	assert.ErrorIs(t, err, parameters.ErrMissingParameter)
	_, err = AnticipateMovementFreeAcceleration(10, 1, parameters.New(), IDM{}, 10, DefaultTimeStep)
	assert.ErrorIs(t, err, parameters.ErrMissingParameter)
}

func TestAnticipateMovement(t *testing.T) {
	assert.Equal(t, AnticipationInfo{0, 3}, AnticipateMovement(-1, 3, 0))
	assert.Equal(t, AnticipationInfo{2, 10}, AnticipateMovement(20, 10, 0))
	assert.True(t, math.IsInf(AnticipateMovement(20, 0, 0).Duration, 1))

	// 0.5*2*t^2 = 16
	info := AnticipateMovement(16, 0, 2)
	assert.InDelta(t, 4, info.Duration, 1e-9)
	assert.InDelta(t, 8, info.EndSpeed, 1e-9)

	// 减速：10m/s、-2m/s^2最多走25m
	assert.True(t, math.IsInf(AnticipateMovement(30, 10, -2).Duration, 1))
	info = AnticipateMovement(24, 10, -2)
	assert.InDelta(t, 4, info.Duration, 1e-9)
	assert.InDelta(t, 2, info.EndSpeed, 1e-9)
}

func TestAnticipateMovementFreeAcceleration(t *testing.T) {
	p := parameters.Default()
	// 已在期望速度：匀速
	info, err := AnticipateMovementFreeAcceleration(100, 10, p, IDM{}, 10, DefaultTimeStep)
	require.NoError(t, err)
	assert.InDelta(t, 10, info.Duration, 1e-6)
	assert.InDelta(t, 10, info.EndSpeed, 1e-6)

	// 从静止加速，比匀加速1.25m/s^2慢，但有限
	info, err = AnticipateMovementFreeAcceleration(50, 0, p, IDM{}, 13.89, DefaultTimeStep)
	require.NoError(t, err)
	assert.Greater(t, info.Duration, math.Sqrt(2*50/1.25))
	assert.False(t, math.IsInf(info.Duration, 1))

	// 期望速度为0时永远到不了
	info, err = AnticipateMovementFreeAcceleration(50, 0, p, IDM{}, 0, DefaultTimeStep)
	require.NoError(t, err)
	assert.True(t, math.IsInf(info.Duration, 1))
}
