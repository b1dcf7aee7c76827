package conflict

import (
	"math"

	"github.com/tsinghua-fib-lab/agentsociety-driver/entity"
	"github.com/tsinghua-fib-lab/agentsociety-driver/entity/parameters"
)

// defaultLeaderS0 前车驾驶员参数未知时假设的静止车距（米）
const defaultLeaderS0 = 3.0

// AvailableSpace 排队之前自车可以前进的距离
// 功能：到第一辆静止前车的距离，减去其间每辆行驶中前车停下后占用的空间（车长+静止车距）
// 参数：leaders-当前车道前车，由近及远
// 返回：可用空间（米），没有静止前车时为正无穷
func AvailableSpace(leaders []entity.Vehicle) float64 {
	used := 0.
	for _, l := range leaders {
		if l.Speed == 0 {
			return l.Distance - used
		}
		s0, err := l.Parameters.Get(parameters.S0)
		if err != nil {
			s0 = defaultLeaderS0
		}
		used += l.Length + s0
	}
	return math.Inf(1)
}
