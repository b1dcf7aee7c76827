package attention

import (
	"sort"

	"github.com/tsinghua-fib-lab/agentsociety-driver/entity/conflict"
	"github.com/tsinghua-fib-lab/agentsociety-driver/entity/network"
	"github.com/tsinghua-fib-lab/agentsociety-driver/utils/container"
)

// Group 冲突组
// 功能：冲突车道上游节点集合相交的冲突，视为来自同一股车流
type Group struct {
	Conflicts []*conflict.Conflict // 按(距离, ID)排序
	nodes     *container.OrderedSet[*network.Node]
}

// First 组内最近的冲突
func (g *Group) First() *conflict.Conflict {
	return g.Conflicts[0]
}

// Channel 组的代表通道，即最近冲突的通道
func (g *Group) Channel() Channel {
	return ConflictChannel(g.First().ID)
}

// upstreamNodes 冲突车道上冲突点上游x0范围内的节点
func upstreamNodes(c *conflict.Conflict, x0 float64) *container.OrderedSet[*network.Node] {
	if c.ConflictingLink == nil {
		return container.NewOrderedSet[*network.Node]()
	}
	return network.UpstreamNodes(c.ConflictingLink, c.ConflictingPosition, x0).Nodes
}

// GroupConflicts 对冲突分组
// 功能：把冲突车道上游节点集合相交的冲突合并为一组，避免同一股车流的任务需求被重复计算
// 参数：conflicts-由近及远的冲突，x0-上游搜索距离
// 返回：冲突组，按各组第一次出现的顺序排列
// 算法说明：
// 1. 按顺序处理每个冲突，与第一个节点集合相交的组合并
// 2. 若同时与后续的其他组相交，把这些组也并入第一个相交的组（传递合并）
// 3. 都不相交时新建一组
// 4. 组内冲突按(距离, ID)排序
func GroupConflicts(conflicts []*conflict.Conflict, x0 float64) []*Group {
	var groups []*Group
	for _, c := range conflicts {
		nodes := upstreamNodes(c, x0)
		var target *Group
		kept := groups[:0]
		for _, g := range groups {
			if !g.nodes.Intersects(nodes) {
				kept = append(kept, g)
				continue
			}
			if target == nil {
				g.Conflicts = append(g.Conflicts, c)
				g.nodes.AddAll(nodes)
				target = g
				kept = append(kept, g)
				continue
			}
			target.Conflicts = append(target.Conflicts, g.Conflicts...)
			target.nodes.AddAll(g.nodes)
		}
		groups = kept
		if target == nil {
			groups = append(groups, &Group{Conflicts: []*conflict.Conflict{c}, nodes: nodes})
		}
	}
	for _, g := range groups {
		sort.SliceStable(g.Conflicts, func(i, j int) bool {
			a, b := g.Conflicts[i], g.Conflicts[j]
			if a.Distance != b.Distance {
				return a.Distance < b.Distance
			}
			return a.ID < b.ID
		})
	}
	return groups
}

// withoutSplits 把分流冲突移出冲突组
// 返回：去掉分流冲突后仍非空的组（保持原顺序），以及被移出的分流冲突
// 说明：分流冲突不单独产生冲突紧迫度需求，统一映射到FRONT通道，由跟车任务处理
func withoutSplits(groups []*Group, mapper Mapper) ([]*Group, []*conflict.Conflict) {
	var splits []*conflict.Conflict
	out := make([]*Group, 0, len(groups))
	for _, g := range groups {
		remaining := make([]*conflict.Conflict, 0, len(g.Conflicts))
		for _, c := range g.Conflicts {
			if c.IsSplit() {
				splits = append(splits, c)
				mapToChannel(mapper, ConflictChannel(c.ID), FRONT)
				continue
			}
			remaining = append(remaining, c)
		}
		switch {
		case len(remaining) == len(g.Conflicts):
			out = append(out, g)
		case len(remaining) > 0:
			out = append(out, &Group{Conflicts: remaining, nodes: g.nodes})
		}
	}
	return out, splits
}
