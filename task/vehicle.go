package task

import (
	"fmt"

	"github.com/tsinghua-fib-lab/agentsociety-driver/entity"
	"github.com/tsinghua-fib-lab/agentsociety-driver/entity/driver"
	"github.com/tsinghua-fib-lab/agentsociety-driver/entity/network"
	"github.com/tsinghua-fib-lab/agentsociety-driver/utils/container"
)

// brakingLightsA 减速度超过该值（米/秒^2）时刹车灯亮起
const brakingLightsA = -0.5

// vehicle 仿真中的车辆
// 功能：驾驶员决策之外的运动学状态，以及在路段链表中的位置
// 说明：运动学状态只在串行阶段修改，决策阶段被所有驾驶员并发读取
type vehicle struct {
	driver *driver.Driver
	stream *stream
	index  int // 当前路段在路径中的序号
	node   *container.ListNode[*vehicle]

	v      float64       // 速度
	a      float64       // 上一步的加速度
	action driver.Action // 上一步的决策

	departure float64 // 出发时间
	traveled  float64 // 行驶距离
}

func (v *vehicle) String() string {
	return fmt.Sprintf("vehicle %d on %v s=%.2f v=%.2f", v.driver.ID(), v.link(), v.node.S, v.v)
}

func (v *vehicle) V() float64 {
	return v.v
}

func (v *vehicle) Length() float64 {
	return v.driver.Length()
}

// link 当前所在路段
func (v *vehicle) link() *network.Link {
	return v.stream.links[v.index]
}

// snapshot 以参考区域为基准的车辆快照
func (v *vehicle) snapshot(distance float64, relation entity.Relation) entity.Vehicle {
	return entity.Vehicle{
		ID:            v.driver.ID(),
		Distance:      distance,
		Relation:      relation,
		Length:        v.driver.Length(),
		Width:         v.driver.Width(),
		Speed:         v.v,
		Acceleration:  v.a,
		SpeedLimit:    v.link().MaxV(),
		Route:         v.stream.route,
		Parameters:    v.driver.Parameters(),
		CarFollowing:  v.driver.CarFollowing(),
		BrakingLights: v.a < brakingLightsA,
		Indicator:     v.action.Indicator,
	}
}
