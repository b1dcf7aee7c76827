package visibility

import (
	"math"

	"git.fiblab.net/general/common/v2/geometry"
	"git.fiblab.net/general/common/v2/parallel"
	"github.com/tsinghua-fib-lab/agentsociety-driver/entity/network"
	"github.com/tsinghua-fib-lab/agentsociety-driver/utils/geomutil"
)

// Visibility 视线遮挡锚点索引
// 功能：记录“观察者所在路段 -> 被观察路段”之间的遮挡点（如建筑物角点），计算受遮挡的视距
// 说明：场景初始化时一次性构建，仿真中只读，可被所有驾驶员并发查询；nil表示没有遮挡数据
type Visibility struct {
	anchors map[*network.Link]map[*network.Link][]geometry.Point
}

// New 创建空索引
func New() *Visibility {
	return &Visibility{anchors: make(map[*network.Link]map[*network.Link][]geometry.Point)}
}

// AddAnchorBetween 登记从from路段观察to路段时的遮挡点
// 说明：同一对路段上的重复点只保留一次
func (v *Visibility) AddAnchorBetween(from, to *network.Link, anchor geometry.Point) {
	toMap, ok := v.anchors[from]
	if !ok {
		toMap = make(map[*network.Link][]geometry.Point)
		v.anchors[from] = toMap
	}
	for _, p := range toMap[to] {
		if p == anchor {
			return
		}
	}
	toMap[to] = append(toMap[to], anchor)
}

// Anchors 从from路段观察to路段时的全部遮挡点
func (v *Visibility) Anchors(from, to *network.Link) []geometry.Point {
	if v == nil {
		return nil
	}
	return v.anchors[from][to]
}

// Distance 计算观察者对某一位置上游方向的视距
// 功能：观察者能看到的、被观察位置上游的最远距离（沿路段计量），不超过x0
// 参数：observerLink-观察者所在路段，observer-观察者坐标，link/position-被观察位置（通常是冲突车道上的冲突点），x0-超前感知距离
// 返回：视距（米）
// 算法说明：
// 1. 没有索引或观察者路段没有任何遮挡点时，视距不受限，返回x0
// 2. 从被观察路段开始逆行驶方向逐段检查，cumul为被观察位置到当前路段终点的距离（首段为非正数）
// 3. 当前路段有遮挡点时，对每个遮挡点求视线与设计线的交点，取非负结果中的最小值并立即返回（不超过x0）
// 4. 当前路段没有上游路段或有多条上游路段（汇流，无法确定车流来向）时停止，返回x0
func (v *Visibility) Distance(observerLink *network.Link, observer geometry.Point, link *network.Link, position, x0 float64) float64 {
	if v == nil {
		return x0
	}
	toMap, ok := v.anchors[observerLink]
	if !ok {
		return x0
	}
	to := link
	cumul := position - link.Length()
	for to != nil && cumul < x0 {
		if anchors, ok := toMap[to]; ok {
			minimum := math.Inf(1)
			for _, anchor := range anchors {
				if d, ok := ComputeVisibility(observer, to, anchor, cumul); ok && d >= 0 {
					minimum = math.Min(minimum, d)
				}
			}
			if !math.IsInf(minimum, 1) {
				return math.Min(x0, minimum)
			}
		}
		up := to.Upstream()
		if len(up) != 1 {
			break
		}
		cumul += to.Length()
		to = up[0]
	}
	return x0
}

// ComputeVisibility 计算经过遮挡点的视线在路段设计线上的落点
// 功能：视线从观察者出发经过遮挡点并向远处延伸，与设计线从下游到上游逐段求交，取最下游的交点
// 参数：observer-观察者坐标，to-路段，anchor-遮挡点，cumul-被观察位置到路段终点的距离
// 返回：cumul加上交点到路段终点的距离，以及是否存在交点
func ComputeVisibility(observer geometry.Point, to *network.Link, anchor geometry.Point, cumul float64) (float64, bool) {
	line, lengths := to.Line(), to.LineLengths()
	for i := len(line) - 1; i > 0; i-- {
		u, ok := geomutil.RaySegmentIntersection(observer, anchor, line[i-1], line[i])
		if !ok {
			continue
		}
		s := lengths[i-1] + u*(lengths[i]-lengths[i-1])
		return cumul + to.Length() - s, true
	}
	return 0, false
}

// linkPair 一对待检查的路段
type linkPair struct {
	l1, l2 *network.Link
	hit    bool
}

// AddAnchor 把遮挡点登记到所有“夹住”它的路段对上
// 功能：对路网中每一对路段（含路段与自身）构造两者之间区域的多边形，遮挡点位于任一多边形内时，双向登记该点
// 参数：net-路网，anchor-遮挡点
// 返回：登记的路段对数量
// 算法说明：
// 1. 同一路段：设计线自身围成的多边形
// 2. 两路段共享端点时（起-起、起-终、终-起、终-终四种情况），把两条设计线按首尾相接的方向拼接成一个多边形，去掉重复的公共端点
// 3. 两路段不相邻时，按两种方向拼接，得到两个候选多边形
// 4. 所有路段对的检查并行进行，登记串行进行
func (v *Visibility) AddAnchor(net *network.Network, anchor geometry.Point) int {
	links := net.Links()
	pairs := make([]linkPair, 0, len(links)*(len(links)+1)/2)
	for i := range links {
		for j := i; j < len(links); j++ {
			pairs = append(pairs, linkPair{l1: links[i], l2: links[j]})
		}
	}
	checked := parallel.GoMap(pairs, func(p linkPair) linkPair {
		for _, polygon := range polygonsBetween(p.l1, p.l2) {
			if geomutil.Contains(polygon, anchor) {
				p.hit = true
				break
			}
		}
		return p
	})
	count := 0
	for _, p := range checked {
		if !p.hit {
			continue
		}
		v.AddAnchorBetween(p.l1, p.l2, anchor)
		v.AddAnchorBetween(p.l2, p.l1, anchor)
		log.Debugf("add anchor %v between %v and %v", anchor, p.l1, p.l2)
		count++
	}
	return count
}

// polygonsBetween 构造两条路段之间区域的候选多边形
func polygonsBetween(l1, l2 *network.Link) [][]geometry.Point {
	a, b := l1.Line(), l2.Line()
	switch {
	case l1 == l2:
		return [][]geometry.Point{a}
	case l1.Start() == l2.Start():
		return [][]geometry.Point{geomutil.Concat(a, geomutil.Reverse(b))[1:]}
	case l1.Start() == l2.End():
		return [][]geometry.Point{geomutil.Concat(a, b)[1:]}
	case l1.End() == l2.Start():
		return [][]geometry.Point{geomutil.Concat(geomutil.Reverse(a), geomutil.Reverse(b))[1:]}
	case l1.End() == l2.End():
		return [][]geometry.Point{geomutil.Concat(geomutil.Reverse(a), b)[1:]}
	default:
		return [][]geometry.Point{
			geomutil.Concat(a, b),
			geomutil.Concat(a, geomutil.Reverse(b)),
		}
	}
}
