package network

import (
	"errors"
	"fmt"
	"sort"

	"git.fiblab.net/general/common/v2/geometry"
	"github.com/samber/lo"
)

var (
	// ErrDuplicateID 节点或路段ID重复
	ErrDuplicateID = errors.New("duplicate id")
	// ErrUnknownNode 路段引用了不存在的节点
	ErrUnknownNode = errors.New("unknown node")
	// ErrBadLine 路段中心线少于两个点
	ErrBadLine = errors.New("design line must have at least 2 points")
)

// Node 路网节点
// 功能：路段的起终点，记录进入与离开该节点的路段
type Node struct {
	id       int32
	position geometry.Point
	incoming []*Link
	outgoing []*Link
}

func (n *Node) String() string {
	return fmt.Sprintf("Node %d", n.id)
}

func (n *Node) ID() int32 {
	return n.id
}

func (n *Node) Position() geometry.Point {
	return n.position
}

// Incoming 以该节点为终点的路段
func (n *Node) Incoming() []*Link {
	return n.incoming
}

// Outgoing 以该节点为起点的路段
func (n *Node) Outgoing() []*Link {
	return n.outgoing
}

// Network 路网
// 功能：保存节点与路段，构建完成后只读，可被所有驾驶员并发读取
type Network struct {
	nodes    []*Node
	nodeData map[int32]*Node
	links    []*Link
	linkData map[int32]*Link
}

// New 创建空路网
func New() *Network {
	return &Network{
		nodeData: make(map[int32]*Node),
		linkData: make(map[int32]*Link),
	}
}

// AddNode 添加节点
func (n *Network) AddNode(id int32, position geometry.Point) (*Node, error) {
	if _, ok := n.nodeData[id]; ok {
		return nil, fmt.Errorf("%w: node %d", ErrDuplicateID, id)
	}
	node := &Node{id: id, position: position}
	n.nodes = append(n.nodes, node)
	n.nodeData[id] = node
	return node, nil
}

// AddLink 添加路段
// 参数：id-路段ID，start/end-起终点节点ID，line-中心线（设计线），maxV-限速
// 说明：路段按添加顺序保存，节点上的进出路段也按添加顺序排列，保证遍历结果可复现
func (n *Network) AddLink(id, start, end int32, line []geometry.Point, maxV float64) (*Link, error) {
	if _, ok := n.linkData[id]; ok {
		return nil, fmt.Errorf("%w: link %d", ErrDuplicateID, id)
	}
	s, ok := n.nodeData[start]
	if !ok {
		return nil, fmt.Errorf("%w: link %d start %d", ErrUnknownNode, id, start)
	}
	e, ok := n.nodeData[end]
	if !ok {
		return nil, fmt.Errorf("%w: link %d end %d", ErrUnknownNode, id, end)
	}
	l, err := newLink(id, s, e, line, maxV)
	if err != nil {
		return nil, err
	}
	s.outgoing = append(s.outgoing, l)
	e.incoming = append(e.incoming, l)
	n.links = append(n.links, l)
	n.linkData[id] = l
	return l, nil
}

// Node 按ID获取节点，不存在时返回nil
func (n *Network) Node(id int32) *Node {
	return n.nodeData[id]
}

// Link 按ID获取路段，不存在时返回nil
func (n *Network) Link(id int32) *Link {
	return n.linkData[id]
}

// Links 全部路段（添加顺序）
func (n *Network) Links() []*Link {
	return n.links
}

// Nodes 全部节点（添加顺序）
func (n *Network) Nodes() []*Node {
	return n.nodes
}

// LinkIDs 全部路段ID（升序）
func (n *Network) LinkIDs() []int32 {
	ids := lo.Keys(n.linkData)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
