// 冲突通行：冲突区模型、跨周期的冲突计划与接近冲突区时的加速度决策
package conflict

import (
	"errors"
	"fmt"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/agentsociety-driver/entity"
	"github.com/tsinghua-fib-lab/agentsociety-driver/entity/network"
)

// ErrUnsupportedRule 遇到了不支持的冲突规则
var ErrUnsupportedRule = errors.New("unsupported conflict rule")

// Type 冲突类型
type Type int

const (
	Crossing Type = iota // 交叉：两车道共享一块区域
	Merge                // 汇流：两车道汇合
	Split                // 分流：两车道从同一上游分开
)

func (t Type) String() string {
	switch t {
	case Crossing:
		return "CROSSING"
	case Merge:
		return "MERGE"
	case Split:
		return "SPLIT"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

// Rule 冲突通行规则（自车一侧）
type Rule int

const (
	Priority Rule = iota // 优先通行
	Yield                // 让行
	Stop                 // 停车让行
	AllStop              // 全向停车
	SplitRule            // 分流
)

func (r Rule) String() string {
	switch r {
	case Priority:
		return "PRIORITY"
	case Yield:
		return "YIELD"
	case Stop:
		return "STOP"
	case AllStop:
		return "ALL_STOP"
	case SplitRule:
		return "SPLIT"
	default:
		return fmt.Sprintf("Rule(%d)", int(r))
	}
}

// Valid 是否是受支持的规则
func (r Rule) Valid() bool {
	return r >= Priority && r <= SplitRule
}

// 未观察到来车时假想车辆的尺寸
const (
	ghostLength = 4.0
	ghostWidth  = 2.0
	ghostID     = -1
)

// Conflict 自车前方的一个冲突区
// 功能：描述自车路径与冲突车道之间的一个交互区域，以及冲突车道上被感知到的车辆
// 说明：
// 1. Distance为自车车头到冲突区起点的距离，已驶入冲突区时为负
// 2. Upstream为冲突车道上尚未驶离冲突区起点的车辆，由近及远，Distance为其车头到冲突区起点的距离
// 3. Downstream为冲突车道上车头已越过冲突区起点的车辆，由近及远，OverlapRear为其车尾越过冲突区起点的距离
// 4. 非分流冲突都有另一侧的对应冲突Other
type Conflict struct {
	ID       int32
	Type     Type
	Rule     Rule
	Distance float64 // 自车到冲突区起点的距离（米）
	Length   float64 // 冲突区在自车车道上的长度（米）

	ConflictingLength float64 // 冲突区在冲突车道上的长度（米）
	StartWidth        float64 // 冲突区起点处的宽度（米）
	EndWidth          float64 // 冲突区终点处的宽度（米）

	ConflictingLink       *network.Link // 冲突车道所在路段
	ConflictingPosition   float64       // 冲突区起点在冲突路段上的s坐标
	ConflictingVisibility float64       // 自车对冲突车道上游的视距（米）
	ConflictingSpeedLimit float64       // 冲突车道限速（米/秒）

	HasConflictingTrafficLight      bool    // 冲突车道是否有信号灯控制
	ConflictingTrafficLightDistance float64 // 冲突车道信号灯到冲突区的距离（米）

	StopLine string // 全向停车的停车线标识

	Upstream   []entity.Vehicle
	Downstream []entity.Vehicle

	Other *Conflict
}

func (c *Conflict) String() string {
	return fmt.Sprintf("Conflict{ID=%d, %v, %v, Distance=%.2f}", c.ID, c.Type, c.Rule, c.Distance)
}

// IsCrossing 是否是交叉冲突
func (c *Conflict) IsCrossing() bool {
	return c.Type == Crossing
}

// IsMerge 是否是汇流冲突
func (c *Conflict) IsMerge() bool {
	return c.Type == Merge
}

// IsSplit 是否是分流冲突
func (c *Conflict) IsSplit() bool {
	return c.Type == Split
}

// WidthAt 冲突区在冲突车道上某一比例位置处的宽度
// 参数：fraction-位置占冲突车道上冲突区长度的比例，超出[0,1]时取端点
func (c *Conflict) WidthAt(fraction float64) float64 {
	f := lo.Clamp(fraction, 0, 1)
	return c.StartWidth + f*(c.EndWidth-c.StartWidth)
}

// ApproacherKind 冲突车道来车的来源
type ApproacherKind int

const (
	NoApproacher ApproacherKind = iota // 没有需要考虑的来车
	Observed                           // 实际观察到的车辆
	Inferred                           // 视距边界外假想的车辆
)

// Approacher 冲突车道上的来车
type Approacher struct {
	Kind    ApproacherKind
	Vehicle entity.Vehicle
}

// Ghost 视距边界处以冲突车道限速行驶的假想车辆
func (c *Conflict) Ghost() entity.Vehicle {
	return entity.Vehicle{
		ID:         ghostID,
		Distance:   c.ConflictingVisibility,
		Relation:   entity.Ahead,
		Length:     ghostLength,
		Width:      ghostWidth,
		Speed:      c.ConflictingSpeedLimit,
		SpeedLimit: c.ConflictingSpeedLimit,
	}
}

// Approachers 让行判断需要考虑的来车
// 返回：
// 1. 观察到来车时，按由近及远的顺序返回全部上游车辆
// 2. 没有观察到来车且冲突车道没有信号灯时，返回视距边界处的假想车辆
// 3. 没有观察到来车但冲突车道有信号灯时，返回空
func (c *Conflict) Approachers() []Approacher {
	if len(c.Upstream) == 0 {
		if c.HasConflictingTrafficLight {
			return nil
		}
		return []Approacher{{Kind: Inferred, Vehicle: c.Ghost()}}
	}
	return lo.Map(c.Upstream, func(v entity.Vehicle, _ int) Approacher {
		return Approacher{Kind: Observed, Vehicle: v}
	})
}
