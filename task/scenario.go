package task

import (
	"errors"
	"fmt"
	"math"

	"git.fiblab.net/general/common/v2/geometry"
	geov2 "git.fiblab.net/sim/protos/v2/go/city/geo/v2"
	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/agentsociety-driver/entity"
	"github.com/tsinghua-fib-lab/agentsociety-driver/entity/conflict"
	"github.com/tsinghua-fib-lab/agentsociety-driver/entity/network"
	"github.com/tsinghua-fib-lab/agentsociety-driver/utils"
)

var (
	ErrUnknownLayout = errors.New("unknown layout")
	ErrBadRoute      = errors.New("bad route")
)

const (
	LayoutCrossing = "crossing" // 十字交叉：次路直行穿过主路
	LayoutMerge    = "merge"    // T形路口：次路右转汇入主路
)

const (
	majorSpeed     = 13.89 // 内置路口主路限速（米/秒）
	minorSpeed     = 11.11 // 内置路口次路限速（米/秒）
	approachLength = 300.  // 内置路口进口道起点到路口中心的距离（米）
	junctionHalf   = 15.   // 内置路口半径（米）
	// turnThreshold 路段首末方向夹角超过该值（弧度）时视为转弯
	turnThreshold = math.Pi / 6
)

// stream 一股车流
// 功能：车流的路径、冲突区与转向位置
type stream struct {
	name  string
	links []*network.Link
	route *network.Route
	flow  float64 // 流量（辆/小时）

	areas map[*network.Link][]*area          // 路径上各路段的冲突区，按起点排序
	turns map[*network.Link]entity.Indicator // 路径上的转弯路段
}

func newStream(name string, links []*network.Link, flow float64) *stream {
	s := &stream{
		name:  name,
		links: links,
		route: network.RouteOfLinks(links...),
		flow:  flow,
		areas: make(map[*network.Link][]*area),
		turns: make(map[*network.Link]entity.Indicator),
	}
	for _, l := range links {
		if t := turnOf(l); t != entity.IndicatorNone {
			s.turns[l] = t
		}
	}
	return s
}

func (s *stream) String() string {
	return fmt.Sprintf("stream %s", s.name)
}

// turnOf 路段的转向
// 算法说明：比较设计线首段与末段的方向，逆时针转过超过阈值为左转，顺时针为右转
func turnOf(l *network.Link) entity.Indicator {
	line := l.Line()
	first := math.Atan2(line[1].Y-line[0].Y, line[1].X-line[0].X)
	n := len(line)
	last := math.Atan2(line[n-1].Y-line[n-2].Y, line[n-1].X-line[n-2].X)
	delta := math.Remainder(last-first, 2*math.Pi)
	switch {
	case delta > turnThreshold:
		return entity.IndicatorLeft
	case delta < -turnThreshold:
		return entity.IndicatorRight
	default:
		return entity.IndicatorNone
	}
}

// resolveRoute 由车道ID序列得到首尾相接的路段序列
func resolveRoute(net *network.Network, ids []int32) ([]*network.Link, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrBadRoute)
	}
	byID := lo.SliceToMap(net.Links(), func(l *network.Link) (int32, *network.Link) {
		return l.ID(), l
	})
	links, failed := utils.Find(byID, ids)
	if len(failed) > 0 {
		return nil, fmt.Errorf("%w: unknown lanes %v", ErrBadRoute, failed)
	}
	for i := 1; i < len(links); i++ {
		if links[i-1].End() != links[i].Start() {
			return nil, fmt.Errorf("%w: lane %d is not connected to lane %d", ErrBadRoute, links[i].ID(), links[i-1].ID())
		}
	}
	return links, nil
}

func point(x, y float64) geometry.Point {
	return geometry.Point{X: x, Y: y}
}

// newLane 构造地图车道
func newLane(id int32, maxV float64, pred, succ []int32, pts ...geometry.Point) *mapv2.Lane {
	conns := func(ids []int32) []*mapv2.LaneConnection {
		return lo.Map(ids, func(id int32, _ int) *mapv2.LaneConnection {
			return &mapv2.LaneConnection{Id: id}
		})
	}
	return &mapv2.Lane{
		Id:       id,
		Type:     mapv2.LaneType_LANE_TYPE_DRIVING,
		MaxSpeed: maxV,
		CenterLine: &geov2.Polyline{Nodes: lo.Map(pts, func(p geometry.Point, _ int) *geov2.XYPosition {
			return &geov2.XYPosition{X: p.X, Y: p.Y}
		})},
		Predecessors: conns(pred),
		Successors:   conns(succ),
	}
}

// builtinLanes 内置路口的车道与两股车流的路径
// 功能：主路自西向东（1->2->3），次路自南向北进入路口
// 说明：
// 1. crossing：次路直行穿过路口（4->5->6），与主路路口内车道2交叉
// 2. merge：次路右转（4->5->3），与主路车道2在路口出口汇流
func builtinLanes(layout string) (lanes []*mapv2.Lane, major, minor []int32, err error) {
	a, j := approachLength, junctionHalf
	major = []int32{1, 2, 3}
	switch layout {
	case "", LayoutCrossing:
		lanes = []*mapv2.Lane{
			newLane(1, majorSpeed, nil, []int32{2}, point(-a, 0), point(-j, 0)),
			newLane(2, majorSpeed, []int32{1}, []int32{3}, point(-j, 0), point(j, 0)),
			newLane(3, majorSpeed, []int32{2}, nil, point(j, 0), point(a, 0)),
			newLane(4, minorSpeed, nil, []int32{5}, point(0, -a), point(0, -j)),
			newLane(5, minorSpeed, []int32{4}, []int32{6}, point(0, -j), point(0, j)),
			newLane(6, minorSpeed, []int32{5}, nil, point(0, j), point(0, a)),
		}
		minor = []int32{4, 5, 6}
	case LayoutMerge:
		lanes = []*mapv2.Lane{
			newLane(1, majorSpeed, nil, []int32{2}, point(-a, 0), point(-j, 0)),
			newLane(2, majorSpeed, []int32{1}, []int32{3}, point(-j, 0), point(j, 0)),
			newLane(3, majorSpeed, []int32{2, 5}, nil, point(j, 0), point(a, 0)),
			newLane(4, minorSpeed, nil, []int32{5}, point(0, -a), point(0, -j)),
			newLane(5, minorSpeed/2, []int32{4}, []int32{3},
				point(0, -j), point(j*.13, -j*.4), point(j*.4, -j*.13), point(j, 0)),
		}
		minor = []int32{4, 5, 3}
	default:
		return nil, nil, nil, fmt.Errorf("%w: %q", ErrUnknownLayout, layout)
	}
	return lanes, major, minor, nil
}

// ruleOf 冲突区一侧的通行规则
func ruleOf(typ conflict.Type, major bool, majorRule, minorRule conflict.Rule) conflict.Rule {
	switch {
	case typ == conflict.Split:
		return conflict.SplitRule
	case major:
		return majorRule
	default:
		return minorRule
	}
}
