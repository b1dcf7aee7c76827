package network

import (
	"testing"

	"git.fiblab.net/general/common/v2/geometry"
	geov2 "git.fiblab.net/sim/protos/v2/go/city/geo/v2"
	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testNetwork 构建测试路网
//
//	n5
//	 \ L5
//	n0 --L1--> n1 --L2--> n2 --L3--> n3
//	                      ^
//	                      | L4
//	                      n4
func testNetwork(t *testing.T) *Network {
	n := New()
	pos := []geometry.Point{{X: -300}, {X: -100}, {X: 0}, {X: 100}, {Y: -100}, {X: -100, Y: 100}}
	for i, p := range pos {
		_, err := n.AddNode(int32(i), p)
		require.NoError(t, err)
	}
	add := func(id, s, e int32) {
		_, err := n.AddLink(id, s, e, []geometry.Point{pos[s], pos[e]}, 13.89)
		require.NoError(t, err)
	}
	add(1, 0, 1)
	add(2, 1, 2)
	add(3, 2, 3)
	add(4, 4, 2)
	add(5, 1, 5)
	return n
}

func TestNetworkBuild(t *testing.T) {
	n := testNetwork(t)
	assert.Len(t, n.Links(), 5)
	assert.Equal(t, []int32{1, 2, 3, 4, 5}, n.LinkIDs())
	l3 := n.Link(3)
	assert.Equal(t, 100., l3.Length())
	assert.Equal(t, []*Link{n.Link(2), n.Link(4)}, l3.Upstream())
	assert.Equal(t, []*Link{n.Link(2), n.Link(5)}, n.Link(1).Downstream())
	assert.Nil(t, n.Link(9))

	_, err := n.AddNode(0, geometry.Point{})
	assert.ErrorIs(t, err, ErrDuplicateID)
	_, err = n.AddLink(6, 0, 42, []geometry.Point{{}, {X: 1}}, 10)
	assert.ErrorIs(t, err, ErrUnknownNode)
	_, err = n.AddLink(6, 0, 1, []geometry.Point{{}}, 10)
	assert.ErrorIs(t, err, ErrBadLine)
}

func TestLinkGeometry(t *testing.T) {
	n := New()
	_, _ = n.AddNode(0, geometry.Point{})
	_, _ = n.AddNode(1, geometry.Point{X: 10, Y: 10})
	l, err := n.AddLink(0, 0, 1, []geometry.Point{{}, {X: 10}, {X: 10, Y: 10}}, 10)
	require.NoError(t, err)
	assert.Equal(t, 20., l.Length())
	assert.Equal(t, []float64{0, 10, 20}, l.LineLengths())
	p := l.PositionByS(15)
	assert.InDelta(t, 10, p.X, 1e-9)
	assert.InDelta(t, 5, p.Y, 1e-9)
	assert.Equal(t, geometry.Point{X: 10, Y: 10}, l.PositionByS(100))
	assert.InDelta(t, 5, l.ProjectToLink(geometry.Point{X: 5, Y: -3}), 1e-9)
}

func TestUpstreamNodes(t *testing.T) {
	n := testNetwork(t)
	res := UpstreamNodes(n.Link(3), 50, 1000)
	assert.Equal(t, []*Node{n.Node(2), n.Node(1), n.Node(4)}, res.Nodes.Items())
	assert.Equal(t, []*Node{n.Node(1)}, res.Diverges)
	assert.Empty(t, res.Bounded)

	res = UpstreamNodes(n.Link(3), 50, 100)
	assert.Equal(t, []*Node{n.Node(2)}, res.Nodes.Items())
	assert.Empty(t, res.Diverges)
	assert.Equal(t, []*Link{n.Link(2), n.Link(4)}, res.Bounded)

	// 起点本身超出范围
	res = UpstreamNodes(n.Link(1), 10, 5)
	assert.Equal(t, 0, res.Nodes.Len())
	assert.Equal(t, []*Link{n.Link(1)}, res.Bounded)
}

func TestUpstreamNodesCycle(t *testing.T) {
	n := New()
	for i := int32(0); i < 3; i++ {
		_, _ = n.AddNode(i, geometry.Point{X: float64(i)})
	}
	line := []geometry.Point{{}, {X: 10}}
	_, _ = n.AddLink(0, 0, 1, line, 10)
	_, _ = n.AddLink(1, 1, 2, line, 10)
	_, _ = n.AddLink(2, 2, 0, line, 10)
	res := UpstreamNodes(n.Link(0), 5, 1000)
	assert.Equal(t, []*Node{n.Node(0), n.Node(2), n.Node(1)}, res.Nodes.Items())
}

func TestRoute(t *testing.T) {
	n := testNetwork(t)
	r := RouteOfLinks(n.Link(1), n.Link(2), n.Link(3))
	assert.True(t, r.OnRoute(n.Link(2)))
	assert.False(t, r.OnRoute(n.Link(4)))
	assert.False(t, r.OnRoute(n.Link(5)))
	assert.Equal(t, 3, r.IndexOf(n.Node(3)))
	assert.Equal(t, -1, r.IndexOf(n.Node(4)))

	// 不相邻
	skip := NewRoute(n.Node(0), n.Node(2), n.Node(1))
	assert.False(t, skip.OnRoute(n.Link(1)))
	assert.True(t, skip.OnRoute(n.Link(2)))

	var unknown *Route
	assert.True(t, unknown.OnRoute(n.Link(4)))
}

func TestFromLanes(t *testing.T) {
	line := func(pts ...[2]float64) *geov2.Polyline {
		nodes := make([]*geov2.XYPosition, 0, len(pts))
		for _, p := range pts {
			nodes = append(nodes, &geov2.XYPosition{X: p[0], Y: p[1]})
		}
		return &geov2.Polyline{Nodes: nodes}
	}
	pbs := []*mapv2.Lane{
		{Id: 10, Type: mapv2.LaneType_LANE_TYPE_DRIVING, MaxSpeed: 10, CenterLine: line([2]float64{-100, 0}, [2]float64{0, 0}),
			Successors: []*mapv2.LaneConnection{{Id: 11}}},
		{Id: 11, Type: mapv2.LaneType_LANE_TYPE_DRIVING, MaxSpeed: 8, CenterLine: line([2]float64{0, 0}, [2]float64{50, 0}),
			Predecessors: []*mapv2.LaneConnection{{Id: 10}, {Id: 12}}},
		{Id: 12, Type: mapv2.LaneType_LANE_TYPE_DRIVING, MaxSpeed: 10, CenterLine: line([2]float64{0, -100}, [2]float64{0, 0})},
		{Id: 13, Type: mapv2.LaneType_LANE_TYPE_WALKING, CenterLine: line([2]float64{0, 5}, [2]float64{50, 5})},
	}
	n, err := FromLanes(pbs)
	require.NoError(t, err)
	assert.Len(t, n.Links(), 3)
	assert.Len(t, n.Nodes(), 4)
	l11 := n.Link(11)
	assert.Equal(t, 8., l11.MaxV())
	assert.Equal(t, []*Link{n.Link(10), n.Link(12)}, l11.Upstream())
	assert.Equal(t, n.Link(10).End(), n.Link(12).End())
	assert.Nil(t, n.Link(13))

	_, err = FromLanes([]*mapv2.Lane{{Id: 1, Type: mapv2.LaneType_LANE_TYPE_DRIVING}})
	assert.ErrorIs(t, err, ErrBadLine)
}
