package task

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/agentsociety-driver/entity"
	"github.com/tsinghua-fib-lab/agentsociety-driver/entity/attention"
	"github.com/tsinghua-fib-lab/agentsociety-driver/entity/conflict"
	"github.com/tsinghua-fib-lab/agentsociety-driver/entity/driver"
	"github.com/tsinghua-fib-lab/agentsociety-driver/utils/config"
	"go.uber.org/goleak"
	"google.golang.org/protobuf/proto"
)

const delta = 1e-6

func testConfig(t *testing.T, mutate func(c *config.Config)) *config.RuntimeConfig {
	c := config.Config{
		Control: config.Control{
			Step:    config.ControlStep{Total: 240, Interval: .5},
			Workers: 4,
		},
		Scenario: config.Scenario{
			Layout:    LayoutCrossing,
			Rule:      "yield",
			MajorFlow: 600,
			MinorFlow: 300,
			Seed:      1,
		},
	}
	if mutate != nil {
		mutate(&c)
	}
	rc, err := config.NewRuntimeConfig(c)
	require.NoError(t, err)
	return rc
}

func testContext(t *testing.T, mutate func(c *config.Config)) *Context {
	ctx, err := NewContext(testConfig(t, mutate))
	require.NoError(t, err)
	return ctx
}

func TestCrossingAreas(t *testing.T) {
	ctx := testContext(t, nil)
	major, minor := ctx.streams[0], ctx.streams[1]
	areas := major.areas[ctx.net.Link(2)]
	require.Len(t, areas, 1)
	a := areas[0]
	assert.Equal(t, conflict.Crossing, a.typ)
	assert.Equal(t, conflict.Priority, a.rule)
	assert.InDelta(t, 13.25, a.start, delta)
	assert.InDelta(t, laneWidth, a.length, delta)

	o := a.other
	assert.Same(t, ctx.net.Link(5), o.link)
	assert.Equal(t, conflict.Yield, o.rule)
	assert.InDelta(t, 13.25, o.start, delta)
	assert.Same(t, a, o.other)
	assert.Equal(t, []*area{o}, minor.areas[ctx.net.Link(5)])
	assert.Empty(t, minor.turns)
}

func TestMergeAreas(t *testing.T) {
	ctx := testContext(t, func(c *config.Config) {
		c.Scenario.Layout = LayoutMerge
		c.Scenario.Rule = "all_stop"
	})
	major, minor := ctx.streams[0], ctx.streams[1]
	areas := major.areas[ctx.net.Link(2)]
	require.Len(t, areas, 1)
	a := areas[0]
	assert.Equal(t, conflict.Merge, a.typ)
	assert.Equal(t, conflict.AllStop, a.rule)
	assert.Equal(t, "link-2", a.stopLine)
	assert.InDelta(t, 30-laneWidth, a.start, delta)

	l5 := ctx.net.Link(5)
	assert.Same(t, l5, a.other.link)
	assert.InDelta(t, l5.Length()-laneWidth, a.other.start, delta)
	assert.InDelta(t, l5.Length(), a.other.end(), delta)
	assert.Equal(t, "link-5", a.other.stopLine)
	// 共用的出口路段上没有冲突
	assert.Empty(t, major.areas[ctx.net.Link(3)])
	assert.Equal(t, entity.IndicatorRight, minor.turns[l5])
}

func TestResolveRoute(t *testing.T) {
	ctx := testContext(t, nil)
	links, err := resolveRoute(ctx.net, []int32{4, 5, 6})
	require.NoError(t, err)
	assert.Len(t, links, 3)

	_, err = resolveRoute(ctx.net, []int32{1, 3})
	assert.ErrorIs(t, err, ErrBadRoute)
	_, err = resolveRoute(ctx.net, []int32{1, 9})
	assert.ErrorIs(t, err, ErrBadRoute)
	_, err = resolveRoute(ctx.net, nil)
	assert.ErrorIs(t, err, ErrBadRoute)
}

func TestNewContextErrors(t *testing.T) {
	_, err := NewContext(testConfig(t, func(c *config.Config) { c.Scenario.Layout = "roundabout" }))
	assert.ErrorIs(t, err, ErrUnknownLayout)

	_, err = NewContext(testConfig(t, func(c *config.Config) { c.Driver.TaskModel = "nope" }))
	assert.ErrorIs(t, err, attention.ErrUnknownTaskModel)

	_, err = NewContext(testConfig(t, func(c *config.Config) {
		c.Scenario.Map = filepath.Join(t.TempDir(), "missing.pb")
	}))
	assert.Error(t, err)
}

func TestPerceive(t *testing.T) {
	ctx := testContext(t, func(c *config.Config) {
		c.Scenario.Anchors = [][2]float64{{-10, -10}}
	})
	major, minor := ctx.streams[0], ctx.streams[1]
	ego, err := ctx.addVehicle(minor, 0, 280, 8)
	require.NoError(t, err)
	other, err := ctx.addVehicle(major, 0, 250, 10)
	require.NoError(t, err)
	leader, err := ctx.addVehicle(minor, 1, 5, 3)
	require.NoError(t, err)

	p := ctx.perceive(ego.driver)
	assert.Same(t, ctx.net.Link(4), p.Link)
	assert.Equal(t, minorSpeed, p.SpeedLimit)
	assert.Equal(t, 8., p.Speed)
	assert.Equal(t, entity.IndicatorNone, p.Turn)

	leaders := p.Leaders[entity.CurrentLane]
	require.Len(t, leaders, 1)
	assert.Equal(t, leader.driver.ID(), leaders[0].ID)
	assert.InDelta(t, 5, leaders[0].Distance, delta)
	assert.Equal(t, 3., leaders[0].Speed)

	require.Len(t, p.Conflicts, 1)
	c := p.Conflicts[0]
	assert.Equal(t, conflict.Crossing, c.Type)
	assert.Equal(t, conflict.Yield, c.Rule)
	assert.InDelta(t, 18.25, c.Distance, delta)
	assert.Same(t, ctx.net.Link(2), c.ConflictingLink)
	assert.Equal(t, majorSpeed, c.ConflictingSpeedLimit)
	// 视线经过(-10,-10)落在主路进口道上距路段终点5米处
	assert.InDelta(t, 18.25, c.ConflictingVisibility, delta)
	require.Len(t, c.Upstream, 1)
	assert.Equal(t, other.driver.ID(), c.Upstream[0].ID)
	assert.InDelta(t, 48.25, c.Upstream[0].Distance, delta)
	assert.True(t, c.Upstream[0].CanAnticipate())
	assert.Empty(t, c.Downstream)
	require.NotNil(t, c.Other)
	assert.Equal(t, c.ID-1, c.Other.ID)
	assert.Equal(t, conflict.Priority, c.Other.Rule)
}

func TestPerceiveDownstream(t *testing.T) {
	ctx := testContext(t, nil)
	major, minor := ctx.streams[0], ctx.streams[1]
	ego, err := ctx.addVehicle(minor, 0, 250, 8)
	require.NoError(t, err)
	inside, err := ctx.addVehicle(major, 1, 15, 5)
	require.NoError(t, err)
	beyond, err := ctx.addVehicle(major, 2, 10, 5)
	require.NoError(t, err)

	p := ctx.perceive(ego.driver)
	require.Len(t, p.Conflicts, 1)
	c := p.Conflicts[0]
	assert.Empty(t, c.Upstream)
	require.Len(t, c.Downstream, 2)

	in := c.Downstream[0]
	assert.Equal(t, inside.driver.ID(), in.ID)
	assert.True(t, in.IsParallel())
	assert.InDelta(t, -3.25, in.OverlapRear, delta)
	assert.InDelta(t, 1.75, in.Overlap, delta)
	assert.InDelta(t, -1.75, in.OverlapFront, delta)

	out := c.Downstream[1]
	assert.Equal(t, beyond.driver.ID(), out.ID)
	assert.True(t, out.IsAhead())
	assert.InDelta(t, 18.25, out.Distance, delta)
}

func TestPerceiveTurn(t *testing.T) {
	ctx := testContext(t, func(c *config.Config) { c.Scenario.Layout = LayoutMerge })
	minor := ctx.streams[1]
	ego, err := ctx.addVehicle(minor, 0, 200, 8)
	require.NoError(t, err)

	p := ctx.perceive(ego.driver)
	assert.Equal(t, entity.IndicatorRight, p.Turn)
	assert.InDelta(t, 85, p.TurnDistance, delta)
	require.Len(t, p.Conflicts, 1)
	assert.Equal(t, conflict.Merge, p.Conflicts[0].Type)
	assert.InDelta(t, 85+ctx.net.Link(5).Length()-laneWidth, p.Conflicts[0].Distance, delta)
}

// diamondMap 主路进口道在路口前分为两条车道后重新汇合
func diamondMap(t *testing.T) string {
	lanes := []*mapv2.Lane{
		newLane(1, majorSpeed, nil, []int32{2, 3}, point(-300, 0), point(-100, 0)),
		newLane(2, majorSpeed, []int32{1}, []int32{4}, point(-100, 0), point(-50, 20), point(-15, 0)),
		newLane(3, majorSpeed, []int32{1}, []int32{4}, point(-100, 0), point(-50, -20), point(-15, 0)),
		newLane(4, majorSpeed, []int32{2, 3}, []int32{5}, point(-15, 0), point(15, 0)),
		newLane(5, majorSpeed, []int32{4}, nil, point(15, 0), point(300, 0)),
		newLane(6, minorSpeed, nil, []int32{7}, point(0, -300), point(0, -15)),
		newLane(7, minorSpeed, []int32{6}, []int32{8}, point(0, -15), point(0, 15)),
		newLane(8, minorSpeed, []int32{7}, nil, point(0, 15), point(0, 300)),
	}
	data, err := proto.Marshal(&mapv2.Map{Lanes: lanes})
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "diamond.pb")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestPerceiveUpstreamDiamond(t *testing.T) {
	path := diamondMap(t)
	ctx := testContext(t, func(c *config.Config) {
		c.Scenario.Map = path
		c.Scenario.MajorRoute = []int32{1, 2, 4, 5}
		c.Scenario.MinorRoute = []int32{6, 7, 8}
	})
	major, minor := ctx.streams[0], ctx.streams[1]
	ego, err := ctx.addVehicle(minor, 0, 280, 8)
	require.NoError(t, err)
	// 分岔点上游的车辆经两条车道都能到达冲突区
	other, err := ctx.addVehicle(major, 0, 190, 10)
	require.NoError(t, err)

	p := ctx.perceive(ego.driver)
	require.Len(t, p.Conflicts, 1)
	c := p.Conflicts[0]
	assert.Same(t, ctx.net.Link(4), c.ConflictingLink)
	require.Len(t, c.Upstream, 1)
	assert.Equal(t, other.driver.ID(), c.Upstream[0].ID)
	assert.InDelta(t, 13.25+ctx.net.Link(2).Length()+10, c.Upstream[0].Distance, delta)
}

func TestMove(t *testing.T) {
	ctx := testContext(t, nil)
	minor := ctx.streams[1]
	v, err := ctx.addVehicle(minor, 0, 284, 10)
	require.NoError(t, err)

	// 越过路段终点
	list, ok := ctx.move(v, driver.Action{A: 0})
	require.True(t, ok)
	assert.Same(t, ctx.lists[ctx.net.Link(5)], list)
	assert.Equal(t, 1, v.index)
	assert.InDelta(t, 4, v.node.S, delta)
	assert.Equal(t, 0, ctx.lists[ctx.net.Link(4)].Len())
	list.Merge(append(list.PopUnsorted(), v.node))
	assert.Equal(t, 1, list.Len())

	// 本步内停下
	v.v = 1
	_, ok = ctx.move(v, driver.Action{A: -4})
	assert.False(t, ok)
	assert.Equal(t, 0., v.v)
	assert.InDelta(t, 4.125, v.node.S, delta)

	// 驶出最后一个路段
	last, err := ctx.addVehicle(minor, 2, 283, 10)
	require.NoError(t, err)
	_, ok = ctx.move(last, driver.Action{A: 1})
	assert.False(t, ok)
	s := ctx.Summary()
	assert.Equal(t, 1, s.Completed)
	assert.Equal(t, 1, s.Active)
	assert.Equal(t, 2, s.Spawned)
	assert.InDelta(t, .5, s.MeanTravelTime, delta)
	_, ok = ctx.vehicles[last.driver.ID()]
	assert.False(t, ok)
}

func TestRun(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctx := testContext(t, func(c *config.Config) {
		c.Scenario.Anchors = [][2]float64{{-10, -10}}
	})
	s, err := ctx.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 240, s.Steps)
	assert.Positive(t, s.Spawned)
	assert.Positive(t, s.Completed)
	assert.Equal(t, s.Spawned, s.Completed+s.Active)
	assert.Positive(t, s.MeanSpeed)
	assert.True(t, ctx.Clock().Done())
}

func TestRunMergeAllStop(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctx := testContext(t, func(c *config.Config) {
		c.Control.Step.Total = 120
		c.Scenario.Layout = LayoutMerge
		c.Scenario.Rule = "all_stop"
		c.Driver.TaskModel = attention.TaskModelConflict
		c.Driver.Heterogeneity = .1
	})
	s, err := ctx.Run(context.Background())
	require.NoError(t, err)
	assert.Positive(t, s.Spawned)
	assert.Equal(t, s.Spawned, s.Completed+s.Active)
}

func TestRunCancelled(t *testing.T) {
	ctx := testContext(t, nil)
	c, cancel := context.WithCancel(context.Background())
	cancel()
	s, err := ctx.Run(c)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, s.Steps)
}
