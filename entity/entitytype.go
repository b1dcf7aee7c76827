package entity

import (
	"fmt"

	"github.com/tsinghua-fib-lab/agentsociety-driver/entity/carfollowing"
	"github.com/tsinghua-fib-lab/agentsociety-driver/entity/network"
	"github.com/tsinghua-fib-lab/agentsociety-driver/entity/parameters"
)

// Relation 感知对象与参考区域（自车或冲突区）的纵向关系
type Relation int

const (
	Ahead    Relation = iota // 与参考区域没有重叠，车距为正
	Parallel                 // 与参考区域部分或完全重叠
	Behind                   // 位于参考区域之后
)

func (r Relation) String() string {
	switch r {
	case Ahead:
		return "AHEAD"
	case Parallel:
		return "PARALLEL"
	case Behind:
		return "BEHIND"
	default:
		return fmt.Sprintf("Relation(%d)", int(r))
	}
}

// Indicator 转向灯状态
type Indicator int

const (
	IndicatorNone  Indicator = iota // 未开启
	IndicatorLeft                   // 左转向灯
	IndicatorRight                  // 右转向灯
	IndicatorBoth                   // 双闪
)

func (i Indicator) String() string {
	switch i {
	case IndicatorNone:
		return "NONE"
	case IndicatorLeft:
		return "LEFT"
	case IndicatorRight:
		return "RIGHT"
	case IndicatorBoth:
		return "BOTH"
	default:
		return fmt.Sprintf("Indicator(%d)", int(i))
	}
}

// Left 是否开启了左转向灯
func (i Indicator) Left() bool {
	return i == IndicatorLeft || i == IndicatorBoth
}

// Right 是否开启了右转向灯
func (i Indicator) Right() bool {
	return i == IndicatorRight || i == IndicatorBoth
}

// RelativeLane 相对车道，左负右正
type RelativeLane int

const (
	LeftLane    RelativeLane = -1 // 左侧相邻车道
	CurrentLane RelativeLane = 0  // 当前车道
	RightLane   RelativeLane = 1  // 右侧相邻车道
)

func (l RelativeLane) String() string {
	switch l {
	case LeftLane:
		return "LEFT"
	case CurrentLane:
		return "CURRENT"
	case RightLane:
		return "RIGHT"
	default:
		return fmt.Sprintf("RelativeLane(%d)", int(l))
	}
}

// Vehicle 感知到的其他车辆
// 功能：某一感知周期内的车辆快照，距离与重叠量相对于参考区域（前车相对自车，冲突车辆相对冲突区）
// 说明：
// 1. 上游冲突车辆：Distance为车头到冲突区起点的距离
// 2. 重叠车辆：OverlapFront/Overlap/OverlapRear分别为车头越过参考区域终点的距离、重叠长度、车尾越过参考区域起点的距离
// 3. Parameters/CarFollowing缺失时无法预判其自由加速度，按恒定加速度处理
type Vehicle struct {
	ID       int32
	Distance float64  // 车距（米）
	Relation Relation // 与参考区域的关系

	OverlapFront float64 // 车头越过参考区域终点的距离（米）
	Overlap      float64 // 与参考区域重叠的长度（米）
	OverlapRear  float64 // 车尾越过参考区域起点的距离（米）

	Length       float64 // 车长（米）
	Width        float64 // 车宽（米）
	Speed        float64 // 速度（米/秒）
	Acceleration float64 // 加速度（米/秒^2）
	SpeedLimit   float64 // 所在车道限速（米/秒）

	Route         *network.Route         // 路径，未知时为nil
	Parameters    *parameters.Parameters // 驾驶员参数，未知时为nil
	CarFollowing  carfollowing.Model     // 跟车模型，未知时为nil
	BrakingLights bool                   // 刹车灯是否亮起
	Indicator     Indicator              // 转向灯
}

func (v *Vehicle) String() string {
	return fmt.Sprintf("Vehicle{ID=%d, Distance=%.2f, %v, V=%.2f}", v.ID, v.Distance, v.Relation, v.Speed)
}

// IsAhead 是否与参考区域没有重叠且在其前方
func (v *Vehicle) IsAhead() bool {
	return v.Relation == Ahead
}

// IsParallel 是否与参考区域重叠
func (v *Vehicle) IsParallel() bool {
	return v.Relation == Parallel
}

// IsBehind 是否在参考区域之后
func (v *Vehicle) IsBehind() bool {
	return v.Relation == Behind
}

// OnRoute 车辆路径是否经过路段
// 说明：路径或路段未知时保守地认为经过
func (v *Vehicle) OnRoute(l *network.Link) bool {
	if l == nil {
		return true
	}
	return v.Route.OnRoute(l)
}

// CanAnticipate 是否可以按其跟车模型预判自由加速度
func (v *Vehicle) CanAnticipate() bool {
	return v.Parameters != nil && v.CarFollowing != nil
}
