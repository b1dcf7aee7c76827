package task

import (
	"fmt"
	"sort"

	"github.com/tsinghua-fib-lab/agentsociety-driver/entity/conflict"
	"github.com/tsinghua-fib-lab/agentsociety-driver/entity/network"
	"github.com/tsinghua-fib-lab/agentsociety-driver/utils/geomutil"
)

// laneWidth 车道宽度（米），决定冲突区的长度与宽度
const laneWidth = 3.5

// area 路段上的一个静态冲突区
// 说明：冲突区成对出现，other为冲突车道上的对应冲突区
type area struct {
	id     int32
	typ    conflict.Type
	rule   conflict.Rule
	link   *network.Link
	start  float64 // 起点s坐标
	length float64 // 长度

	startWidth, endWidth float64
	stopLine             string

	other *area
}

func (a *area) String() string {
	return fmt.Sprintf("area %d (%v on %v, s=%.2f)", a.id, a.typ, a.link, a.start)
}

// end 终点s坐标
func (a *area) end() float64 {
	return a.start + a.length
}

// zone 以s为中心、长度为laneWidth的区间，截断到路段范围内
func zone(l *network.Link, s float64) (start, length float64) {
	start = max(0, s-laneWidth/2)
	end := min(l.Length(), s+laneWidth/2)
	return start, end - start
}

// crossingPoint 两条路段设计线的第一个交点
// 返回：交点分别在两条路段上的s坐标，以及是否相交
func crossingPoint(a, b *network.Link) (float64, float64, bool) {
	la, lb := a.Line(), b.Line()
	sa, sb := a.LineLengths(), b.LineLengths()
	for i := 1; i < len(la); i++ {
		for j := 1; j < len(lb); j++ {
			ta, tb, ok := geomutil.SegmentIntersection(la[i-1], la[i], lb[j-1], lb[j])
			if !ok {
				continue
			}
			return sa[i-1] + ta*(sa[i]-sa[i-1]), sb[j-1] + tb*(sb[j]-sb[j-1]), true
		}
	}
	return 0, 0, false
}

// detectAreas 找出两股车流路径之间的冲突区
// 功能：对两条路径上的每一对不同路段，按拓扑与几何关系判定冲突类型并生成成对的冲突区
// 参数：major/minor-主路与次路车流，majorRule/minorRule-两侧的通行规则
// 返回：冲突区对的数量
// 算法说明：
// 1. 终点相同而起点不同：汇流，冲突区为两路段末端laneWidth长的一段
// 2. 起点相同而终点不同：分流，冲突区为两路段起始laneWidth长的一段，宽度由一个车道渐变到两个车道
// 3. 首尾均不相接：设计线相交时为交叉，冲突区以交点为中心
// 4. 同一路段或首尾相接的路段之间没有冲突
// 5. 全向停车冲突区的停车线以所在路段标识，同一进口道上的冲突共用停车线
func detectAreas(major, minor *stream, majorRule, minorRule conflict.Rule) int {
	var id int32
	pairs := 0
	for _, a := range major.links {
		for _, b := range minor.links {
			if a == b || a.Start() == b.End() || a.End() == b.Start() {
				continue
			}
			var typ conflict.Type
			var sa, sb float64
			switch {
			case a.End() == b.End() && a.Start() != b.Start():
				typ = conflict.Merge
				sa, sb = a.Length(), b.Length()
			case a.Start() == b.Start() && a.End() != b.End():
				typ = conflict.Split
			case a.Start() != b.Start() && a.End() != b.End():
				var ok bool
				if sa, sb, ok = crossingPoint(a, b); !ok {
					continue
				}
				typ = conflict.Crossing
			default:
				continue
			}
			x := newArea(id, typ, ruleOf(typ, true, majorRule, minorRule), a, sa)
			y := newArea(id+1, typ, ruleOf(typ, false, majorRule, minorRule), b, sb)
			x.other, y.other = y, x
			major.areas[a] = append(major.areas[a], x)
			minor.areas[b] = append(minor.areas[b], y)
			log.Debugf("%v <-> %v", x, y)
			id += 2
			pairs++
		}
	}
	for _, s := range []*stream{major, minor} {
		for _, as := range s.areas {
			sort.SliceStable(as, func(i, j int) bool { return as[i].start < as[j].start })
		}
	}
	return pairs
}

// newArea 在路段l上生成冲突区
// 参数：s-交叉时为交点，汇流时为路段终点，分流时不使用
func newArea(id int32, typ conflict.Type, rule conflict.Rule, l *network.Link, s float64) *area {
	a := &area{id: id, typ: typ, rule: rule, link: l, startWidth: laneWidth, endWidth: laneWidth}
	switch typ {
	case conflict.Merge:
		a.start = max(0, s-laneWidth)
		a.length = l.Length() - a.start
	case conflict.Split:
		a.length = min(laneWidth, l.Length())
		a.endWidth = 2 * laneWidth
	default:
		a.start, a.length = zone(l, s)
	}
	if rule == conflict.AllStop {
		a.stopLine = fmt.Sprintf("link-%d", l.ID())
	}
	return a
}
