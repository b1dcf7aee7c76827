package conflict

import (
	"math"

	"github.com/tsinghua-fib-lab/agentsociety-driver/entity"
	"github.com/tsinghua-fib-lab/agentsociety-driver/entity/carfollowing"
	"github.com/tsinghua-fib-lab/agentsociety-driver/entity/parameters"
)

// mergeSafetyMargin 评估换道目标车道上的汇流时附加的安全时间（秒）
const mergeSafetyMargin = 3.0

// avoidCrossingCollision 避免与交叉冲突区内车辆碰撞的加速度
// 算法说明：
// 1. 相关车辆：视距内第一辆路径经过冲突路段的上游车辆，以及正处于冲突区内的下游车辆
// 2. 对每辆相关车辆，按匀速预判其进入时间tteCz与离开时间ttcCz，按自由加速度预判自车进入时间tteOa
// 3. tteCz < tteOa < ttcCz 且该车没有停下时，自车会在冲突区被占用时进入：
// 3.1 按 s = v*t + 0.5*a*t^2 求在ttcCz时恰好到达冲突区的加速度
// 3.2 按此加速度在ttcCz前就会停下时，改为在冲突区前停车
func avoidCrossingCollision(in Input, c *Conflict) (float64, error) {
	var vehicles []entity.Vehicle
	for _, v := range c.Upstream {
		if c.ConflictingVisibility < v.Distance {
			break
		}
		if v.OnRoute(c.ConflictingLink) {
			vehicles = append(vehicles, v)
			break
		}
	}
	for _, v := range c.Downstream {
		if !v.IsParallel() {
			// 已驶离冲突区
			break
		}
		vehicles = append(vehicles, v)
	}
	a := math.Inf(1)
	if len(vehicles) == 0 {
		return a, nil
	}

	tteOa, err := carfollowing.AnticipateMovementFreeAcceleration(
		c.Distance, in.Speed, in.Parameters, in.CarFollowing, in.SpeedLimit, carfollowing.DefaultTimeStep,
	)
	if err != nil {
		return 0, err
	}
	for _, v := range vehicles {
		var tteCz carfollowing.AnticipationInfo
		var distance float64
		if v.IsParallel() {
			tteCz = carfollowing.AnticipationInfo{Duration: 0, EndSpeed: v.Speed}
			distance = math.Abs(v.OverlapRear) + v.Overlap + math.Abs(v.OverlapFront)
		} else {
			tteCz = carfollowing.AnticipateMovement(v.Distance, v.Speed, 0)
			distance = v.Distance + c.Length + v.Length
		}
		ttcCz := carfollowing.AnticipateMovement(distance, v.Speed, 0)
		if !(tteCz.Duration < tteOa.Duration && tteOa.Duration < ttcCz.Duration) || v.Speed == 0 {
			continue
		}
		t := ttcCz.Duration
		acc := 2 * (c.Distance - in.Speed*t) / (t * t)
		if in.Speed/-acc > t {
			a = math.Min(a, acc)
			continue
		}
		aStop, err := in.CarFollowing.Stop(in.Parameters, in.Speed, in.SpeedLimit, c.Distance)
		if err != nil {
			return 0, err
		}
		a = math.Min(a, aStop)
	}
	return a, nil
}

// avoidMergeCollision 评估换道目标车道上的汇流时，与最近上游冲突车辆的简单碰撞检查
// 说明：冲突车辆到达时间早于自车到达时间加安全余量时，在冲突区前停车
func avoidMergeCollision(in Input, c *Conflict) (float64, error) {
	if len(c.Upstream) == 0 || c.Upstream[0].IsParallel() {
		return math.Inf(1), nil
	}
	v := c.Upstream[0]
	tteC := carfollowing.AnticipateMovement(v.Distance, v.Speed, 0).Duration
	tteO := carfollowing.AnticipateMovement(c.Distance, in.Speed, 0).Duration
	if tteC < tteO+mergeSafetyMargin {
		return in.CarFollowing.Stop(in.Parameters, in.Speed, in.SpeedLimit, c.Distance)
	}
	return math.Inf(1), nil
}

// followConflictingLeader 跟随汇流/分流冲突区内的冲突车辆
// 算法说明：
// 1. 没有下游冲突车辆，或第一辆已完全驶离冲突区时不受约束
// 2. 自车尚未到达冲突区时跟随第一辆；已进入冲突区时，跟随第一辆车尾在自车前方的车辆，虚拟车距 = 冲突距离 + 车尾越过冲突区起点的距离
// 3. 分流时，若该处冲突区宽度足以容纳两车并行，则忽略该车
// 4. 汇流时，若该车车尾仍在冲突区起点之前，取跟车与在冲突区前停车中较宽松者
func followConflictingLeader(in Input, c *Conflict) (float64, error) {
	down := c.Downstream
	if len(down) == 0 || down[0].IsAhead() {
		return math.Inf(1), nil
	}
	var leader *entity.Vehicle
	var headway float64
	if c.Distance > 0 {
		leader = &down[0]
		headway = c.Distance + leader.OverlapRear
	} else {
		for i := range down {
			v := &down[i]
			if v.IsAhead() {
				// 完全驶离冲突区，属于普通跟车
				return math.Inf(1), nil
			}
			headway = c.Distance + v.OverlapRear
			if headway <= 0 {
				continue
			}
			if c.IsSplit() && c.WidthAt((headway-c.Distance)/c.ConflictingLength) > v.Width+in.Width {
				continue
			}
			leader = v
			break
		}
	}
	if leader == nil {
		return math.Inf(1), nil
	}
	a, err := in.CarFollowing.FollowSingleLeader(in.Parameters, in.Speed, in.SpeedLimit, headway, leader.Speed)
	if err != nil {
		return 0, err
	}
	if c.IsMerge() && headway < c.Distance {
		s0Conf, err := in.Parameters.Get(parameters.S0Conf)
		if err != nil {
			return 0, err
		}
		aStop, err := in.CarFollowing.Stop(in.Parameters.With(parameters.S0, s0Conf), in.Speed, in.SpeedLimit, c.Distance)
		if err != nil {
			return 0, err
		}
		a = math.Max(a, aStop)
	}
	return a, nil
}
