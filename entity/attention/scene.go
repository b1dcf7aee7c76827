package attention

import (
	"math"

	"git.fiblab.net/general/common/v2/geometry"
	"github.com/tsinghua-fib-lab/agentsociety-driver/entity"
	"github.com/tsinghua-fib-lab/agentsociety-driver/entity/conflict"
	"github.com/tsinghua-fib-lab/agentsociety-driver/entity/network"
	"github.com/tsinghua-fib-lab/agentsociety-driver/entity/parameters"
	"github.com/tsinghua-fib-lab/agentsociety-driver/entity/visibility"
)

// Scene 一个感知周期的只读场景快照
// 说明：由调用方在周期开始时构造，任务计算期间不得修改
type Scene struct {
	Parameters   *parameters.Parameters // 自车驾驶员参数
	Speed        float64                // 自车速度（米/秒）
	DesiredSpeed float64                // 自车期望速度（米/秒）

	Leaders   map[entity.RelativeLane][]entity.Vehicle // 各相对车道上的前车，由近及远
	Conflicts []*conflict.Conflict                     // 当前车道前方的冲突，由近及远

	Visibility *visibility.Visibility // 遮挡索引，nil表示视距不受限
	Link       *network.Link          // 自车所在路段
	Position   geometry.Point         // 自车坐标
}

// conflictVisibility 自车对冲突车道上游的视距，不超过x0
func (s *Scene) conflictVisibility(c *conflict.Conflict, x0 float64) float64 {
	if s.Link == nil || c.ConflictingLink == nil {
		return x0
	}
	return math.Min(s.Visibility.Distance(s.Link, s.Position, c.ConflictingLink, c.ConflictingPosition, x0), x0)
}

// decay 指数衰减 exp(-x/scale)
// 说明：x非正时为1；scale为0时x为正则为0
func decay(x, scale float64) float64 {
	if x <= 0 {
		return 1
	}
	if scale <= 0 || math.IsInf(x, 1) {
		return 0
	}
	return math.Exp(-x / scale)
}
