package network

import (
	"github.com/tsinghua-fib-lab/agentsociety-driver/utils/container"
)

// UpstreamResult 上游节点搜索结果
type UpstreamResult struct {
	Nodes    *container.OrderedSet[*Node] // 距离范围内的上游节点（由近及远）
	Diverges []*Node                      // 因分流而停止向上游扩展的节点
	Bounded  []*Link                      // 起点超出距离范围而未展开的路段
}

// upstreamItem 工作队列元素：路段及参考位置到其终点的距离（上游为正）
type upstreamItem struct {
	link     *Link
	distance float64
}

// UpstreamNodes 搜索参考位置上游x0范围内的节点
// 功能：从路段link上的位置position出发逆行驶方向扩展，收集可能汇入该位置的车流所经过的节点
// 参数：link-参考位置所在路段，position-在路段上的s坐标，x0-搜索距离
// 返回：搜索结果
// 算法说明：
// 1. 以累计距离为优先级的工作队列由近及远处理路段，每条路段最多展开一次
// 2. 参考位置到路段起点的距离不超过x0时，收集起点节点
// 3. 起点节点有其他离开的路段（分流）时，该分支停止：更上游的车流不一定驶向参考位置
// 4. 否则把进入起点的全部路段（汇流时有多条）加入队列
func UpstreamNodes(link *Link, position, x0 float64) UpstreamResult {
	res := UpstreamResult{Nodes: container.NewOrderedSet[*Node]()}
	visited := make(map[*Link]struct{})
	queue := container.NewPriorityQueue[upstreamItem]()
	queue.HeapPush(upstreamItem{link: link, distance: position - link.length}, position-link.length)
	for queue.Len() > 0 {
		it, _ := queue.HeapPop()
		if _, ok := visited[it.link]; ok {
			continue
		}
		visited[it.link] = struct{}{}
		next := it.distance + it.link.length
		if next > x0 {
			res.Bounded = append(res.Bounded, it.link)
			continue
		}
		start := it.link.start
		res.Nodes.Add(start)
		if len(start.outgoing) > 1 {
			res.Diverges = append(res.Diverges, start)
			continue
		}
		for _, up := range start.incoming {
			if _, ok := visited[up]; !ok {
				queue.HeapPush(upstreamItem{link: up, distance: next}, next)
			}
		}
	}
	return res
}
