package task

import (
	"math"
	"sort"

	"github.com/tsinghua-fib-lab/agentsociety-driver/entity"
	"github.com/tsinghua-fib-lab/agentsociety-driver/entity/conflict"
	"github.com/tsinghua-fib-lab/agentsociety-driver/entity/driver"
	"github.com/tsinghua-fib-lab/agentsociety-driver/entity/network"
	"github.com/tsinghua-fib-lab/agentsociety-driver/entity/parameters"
	"github.com/tsinghua-fib-lab/agentsociety-driver/utils/container"
)

// lookahead 驾驶员的超前感知距离，参数缺失时取默认值
func lookahead(p *parameters.Parameters) float64 {
	if x0, err := p.Get(parameters.Lookahead); err == nil {
		return x0
	}
	return parameters.Lookahead.Default
}

// perceive 构造驾驶员本周期的感知结果
// 说明：在决策阶段被并发调用，只读取路网、链表与其他车辆的运动学状态
func (ctx *Context) perceive(d *driver.Driver) driver.Perception {
	v := ctx.vehicles[d.ID()]
	x0 := lookahead(d.Parameters())
	link := v.link()
	pos := link.PositionByS(v.node.S)
	turn, turnDistance := v.nextTurn(x0)
	return driver.Perception{
		Time:         ctx.clock.T,
		Speed:        v.v,
		Acceleration: v.a,
		SpeedLimit:   link.MaxV(),
		Leaders:      map[entity.RelativeLane][]entity.Vehicle{entity.CurrentLane: ctx.leaders(v, x0)},
		Conflicts:    ctx.conflicts(v, x0),
		Link:         link,
		Position:     pos,
		Visibility:   ctx.vis,
		Turn:         turn,
		TurnDistance: turnDistance,
	}
}

// nextTurn x0范围内路径上的下一个转弯路段
// 返回：转向与到转弯路段起点的距离（已在转弯路段上时为0）
func (v *vehicle) nextTurn(x0 float64) (entity.Indicator, float64) {
	offset := -v.node.S
	for i := v.index; i < len(v.stream.links) && offset <= x0; i++ {
		l := v.stream.links[i]
		if t, ok := v.stream.turns[l]; ok {
			return t, max(0, offset)
		}
		offset += l.Length()
	}
	return entity.IndicatorNone, 0
}

// leaders 沿路径x0范围内的前车，由近及远
// 说明：Distance为净车距（自车车头到前车车尾）
func (ctx *Context) leaders(v *vehicle, x0 float64) []entity.Vehicle {
	var out []entity.Vehicle
	offset := -v.node.S
	node := v.node.Next()
	for i := v.index; i < len(v.stream.links) && offset <= x0; i++ {
		l := v.stream.links[i]
		if i > v.index {
			node = ctx.lists[l].First()
		}
		for ; node != nil; node = node.Next() {
			front := offset + node.S
			if front > x0 {
				return out
			}
			out = append(out, node.Value.snapshot(front-node.Value.Length(), entity.Ahead))
		}
		offset += l.Length()
	}
	return out
}

// conflicts 路径上x0范围内、车尾尚未驶离的冲突，由近及远
// 说明：从上一路段开始检查，车头刚驶入下一路段时上一路段末端的冲突区仍可能被占用
func (ctx *Context) conflicts(v *vehicle, x0 float64) []*conflict.Conflict {
	var out []*conflict.Conflict
	first := max(0, v.index-1)
	offset := -v.node.S
	for i := v.index - 1; i >= first; i-- {
		offset -= v.stream.links[i].Length()
	}
	for i := first; i < len(v.stream.links) && offset <= x0; i++ {
		l := v.stream.links[i]
		for _, a := range v.stream.areas[l] {
			d := offset + a.start
			if d > x0 {
				break
			}
			if d+a.length+v.Length() < 0 {
				continue
			}
			out = append(out, ctx.newConflict(v, a, d, x0))
		}
		offset += l.Length()
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Distance < out[j].Distance })
	return out
}

// newConflict 由静态冲突区构造自车视角的冲突
func (ctx *Context) newConflict(v *vehicle, a *area, distance, x0 float64) *conflict.Conflict {
	o := a.other
	link := v.link()
	c := &conflict.Conflict{
		ID:                    a.id,
		Type:                  a.typ,
		Rule:                  a.rule,
		Distance:              distance,
		Length:                a.length,
		ConflictingLength:     o.length,
		StartWidth:            a.startWidth,
		EndWidth:              a.endWidth,
		ConflictingLink:       o.link,
		ConflictingPosition:   o.start,
		ConflictingVisibility: ctx.vis.Distance(link, link.PositionByS(v.node.S), o.link, o.start, x0),
		ConflictingSpeedLimit: o.link.MaxV(),
		StopLine:              a.stopLine,
		Upstream:              ctx.upstreamOf(o, x0, v.driver.ID()),
		Downstream:            ctx.downstreamOf(o, v.driver.ID()),
	}
	c.Other = &conflict.Conflict{
		ID:                  o.id,
		Type:                o.typ,
		Rule:                o.rule,
		Length:              o.length,
		ConflictingLength:   a.length,
		ConflictingLink:     a.link,
		ConflictingPosition: a.start,
		StopLine:            o.stopLine,
		Other:               c,
	}
	return c
}

// upstreamOf 冲突车道上车头尚未越过冲突区起点的车辆，由近及远
// 算法说明：从冲突区所在路段逆行驶方向按累计距离由近及远扩展到全部上游路段，每个路段只访问一次，累计距离超过x0时停止
func (ctx *Context) upstreamOf(a *area, x0 float64, self int32) []entity.Vehicle {
	type item struct {
		link *network.Link
		pos  float64 // 路段上的检查起点
	}
	var out []entity.Vehicle
	visited := make(map[*network.Link]bool)
	queue := container.NewPriorityQueue[item]()
	queue.HeapPush(item{link: a.link, pos: a.start}, 0)
	for queue.Len() > 0 {
		it, acc := queue.HeapPop()
		if visited[it.link] {
			continue
		}
		visited[it.link] = true
		for node := ctx.lists[it.link].Last(); node != nil; node = node.Prev() {
			if node.S > it.pos {
				continue
			}
			d := acc + it.pos - node.S
			if d > x0 {
				break
			}
			if node.Value.driver.ID() != self {
				out = append(out, node.Value.snapshot(d, entity.Ahead))
			}
		}
		if acc+it.pos > x0 {
			continue
		}
		for _, up := range it.link.Upstream() {
			if !visited[up] {
				queue.HeapPush(item{link: up, pos: up.Length()}, acc+it.pos)
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Distance < out[j].Distance })
	return out
}

// downstreamOf 冲突车道上车头已越过冲突区起点的车辆，从冲突区起点向下游排列
// 说明：检查冲突区所在路段及其直接下游路段；车尾仍在冲突区终点之前的为重叠车辆
func (ctx *Context) downstreamOf(a *area, self int32) []entity.Vehicle {
	type candidate struct {
		v     *vehicle
		front float64
	}
	var cs []candidate
	collect := func(l *network.Link, shift float64) {
		for node := ctx.lists[l].First(); node != nil; node = node.Next() {
			front := shift + node.S
			if front < a.start || node.Value.driver.ID() == self {
				continue
			}
			cs = append(cs, candidate{v: node.Value, front: front})
		}
	}
	collect(a.link, 0)
	for _, down := range a.link.Downstream() {
		collect(down, a.link.Length())
	}
	sort.SliceStable(cs, func(i, j int) bool { return cs[i].front < cs[j].front })

	out := make([]entity.Vehicle, 0, len(cs))
	for _, c := range cs {
		rear := c.front - c.v.Length()
		rel, distance := entity.Parallel, 0.
		if rear >= a.end() {
			rel, distance = entity.Ahead, rear-a.end()
		}
		sv := c.v.snapshot(distance, rel)
		sv.OverlapFront = c.front - a.end()
		sv.Overlap = math.Max(0, math.Min(c.front, a.end())-math.Max(rear, a.start))
		sv.OverlapRear = rear - a.start
		out = append(out, sv)
	}
	return out
}
