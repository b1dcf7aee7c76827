package network

import (
	"fmt"

	"git.fiblab.net/general/common/v2/geometry"
	geov2 "git.fiblab.net/sim/protos/v2/go/city/geo/v2"
	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
	"github.com/samber/lo"
)

// laneEnd 车道端点：车道ID与是否为终点
type laneEnd struct {
	lane int32
	end  bool
}

// FromLanes 由地图车道数据构建路网
// 功能：每条行车道成为一条路段，首尾相接的车道端点合并为同一个节点
// 参数：pbs-地图车道数据（非行车道被忽略）
// 返回：路网与错误
// 算法说明：
// 1. 以并查集合并“车道终点-后继车道起点”与“前驱车道终点-车道起点”
// 2. 按车道顺序为每个连通的端点集合分配节点ID（从0开始），节点位置取第一次遇到的端点坐标
// 3. 按车道顺序添加路段，路段ID为车道ID
func FromLanes(pbs []*mapv2.Lane) (*Network, error) {
	lanes := lo.Filter(pbs, func(pb *mapv2.Lane, _ int) bool {
		return pb.Type == mapv2.LaneType_LANE_TYPE_DRIVING
	})
	ids := lo.SliceToMap(lanes, func(pb *mapv2.Lane) (int32, struct{}) {
		return pb.Id, struct{}{}
	})
	parent := make(map[laneEnd]laneEnd)
	var find func(x laneEnd) laneEnd
	find = func(x laneEnd) laneEnd {
		p, ok := parent[x]
		if !ok || p == x {
			parent[x] = x
			return x
		}
		r := find(p)
		parent[x] = r
		return r
	}
	union := func(a, b laneEnd) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[rb] = ra
		}
	}
	for _, pb := range lanes {
		find(laneEnd{pb.Id, false})
		find(laneEnd{pb.Id, true})
		for _, conn := range pb.Successors {
			if _, ok := ids[conn.Id]; ok {
				union(laneEnd{pb.Id, true}, laneEnd{conn.Id, false})
			}
		}
		for _, conn := range pb.Predecessors {
			if _, ok := ids[conn.Id]; ok {
				union(laneEnd{conn.Id, true}, laneEnd{pb.Id, false})
			}
		}
	}

	n := New()
	nodeOf := make(map[laneEnd]int32)
	lines := make(map[int32][]geometry.Point, len(lanes))
	for _, pb := range lanes {
		if pb.CenterLine == nil || len(pb.CenterLine.Nodes) < 2 {
			return nil, fmt.Errorf("%w: lane %d", ErrBadLine, pb.Id)
		}
		line := lo.Map(pb.CenterLine.Nodes, func(node *geov2.XYPosition, _ int) geometry.Point {
			return geometry.NewPointFromPb(node)
		})
		lines[pb.Id] = line
		for _, e := range []laneEnd{{pb.Id, false}, {pb.Id, true}} {
			root := find(e)
			if _, ok := nodeOf[root]; ok {
				continue
			}
			pos := line[0]
			if e.end {
				pos = line[len(line)-1]
			}
			id := int32(len(n.nodes))
			if _, err := n.AddNode(id, pos); err != nil {
				return nil, err
			}
			nodeOf[root] = id
		}
	}
	for _, pb := range lanes {
		start := nodeOf[find(laneEnd{pb.Id, false})]
		end := nodeOf[find(laneEnd{pb.Id, true})]
		if _, err := n.AddLink(pb.Id, start, end, lines[pb.Id], pb.MaxSpeed); err != nil {
			return nil, err
		}
	}
	return n, nil
}
