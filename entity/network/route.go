package network

// Route 车辆路径
// 功能：按行驶顺序排列的节点序列，用于判断冲突路段是否在某车辆的路径上
type Route struct {
	nodes []*Node
	index map[*Node]int
}

// NewRoute 由节点序列创建路径
func NewRoute(nodes ...*Node) *Route {
	r := &Route{nodes: nodes, index: make(map[*Node]int, len(nodes))}
	for i, n := range nodes {
		if _, ok := r.index[n]; !ok {
			r.index[n] = i
		}
	}
	return r
}

// RouteOfLinks 由首尾相接的路段序列创建路径
func RouteOfLinks(links ...*Link) *Route {
	if len(links) == 0 {
		return NewRoute()
	}
	nodes := make([]*Node, 0, len(links)+1)
	nodes = append(nodes, links[0].start)
	for _, l := range links {
		nodes = append(nodes, l.end)
	}
	return NewRoute(nodes...)
}

// Nodes 路径节点
func (r *Route) Nodes() []*Node {
	return r.nodes
}

// IndexOf 节点在路径中的位置，不在路径中时返回-1
func (r *Route) IndexOf(n *Node) int {
	if i, ok := r.index[n]; ok {
		return i
	}
	return -1
}

// Contains 路径是否经过节点
func (r *Route) Contains(n *Node) bool {
	_, ok := r.index[n]
	return ok
}

// OnRoute 判断路段是否在路径上
// 功能：路径同时包含路段的起终点且两者在路径中相邻
// 说明：路径未知（nil）时保守地认为在路径上
func (r *Route) OnRoute(l *Link) bool {
	if r == nil {
		return true
	}
	i, ok1 := r.index[l.start]
	j, ok2 := r.index[l.end]
	if !ok1 || !ok2 {
		return false
	}
	return i-j == 1 || j-i == 1
}
