package conflict

import (
	"math"

	"github.com/tsinghua-fib-lab/agentsociety-driver/entity"
	"github.com/tsinghua-fib-lab/agentsociety-driver/entity/carfollowing"
	"github.com/tsinghua-fib-lab/agentsociety-driver/entity/parameters"
)

// standstillSpeed 低于该速度（米/秒）视为停车
const standstillSpeed = 0.1

// timeToEnter 来车进入冲突区的时间
// 说明：假想车辆及无法预判跟车行为的车辆按恒定加速度，其他尚未到达的车辆按自由加速度，已到达的为0
func (ap Approacher) timeToEnter() (carfollowing.AnticipationInfo, error) {
	v := ap.Vehicle
	if ap.Kind == Inferred || !v.CanAnticipate() {
		return carfollowing.AnticipateMovement(v.Distance, v.Speed, v.Acceleration), nil
	}
	if !v.IsAhead() {
		return carfollowing.AnticipationInfo{Duration: 0, EndSpeed: v.Speed}, nil
	}
	// 恒定加速度在静止时为无穷，会导致穿越拥堵车流
	return carfollowing.AnticipateMovementFreeAcceleration(
		v.Distance, v.Speed, v.Parameters, v.CarFollowing, v.SpeedLimit, carfollowing.DefaultTimeStep,
	)
}

// stopForGiveWay 让行/停车让行冲突是否需要停车
// 参数：bType-自车可接受的减速度参数（阻挡冲突区时为临界减速度）
// 算法说明：
// 1. 没有观察到来车时，冲突车道有信号灯则不停车，否则假设视距边界处有以限速行驶的车辆
// 2. 冲突车道有信号灯，第一辆来车在信号灯上游且正在停车时不停车
// 3. 按自由加速度预判自车完全通过冲突区（汇流为驶入，交叉为驶离）的时间ttcOa
// 4. 逐一检查路径经过冲突路段的来车，第一辆来车静止时不停车，否则预判其进入时间tteCa：
// 4.1 汇流：ttcOa*f+gap > tteCa，或来车调整到自车速度后与自车的间距小于安全距离时停车
// 4.2 交叉：前车让出足够空间的时间或ttcOa，乘以f加gap后大于tteCa时停车
func stopForGiveWay(in Input, c *Conflict, bType *parameters.ParameterType) (bool, error) {
	approachers := c.Approachers()
	if len(approachers) == 0 {
		return false, nil
	}
	if first := approachers[0].Vehicle; approachers[0].Kind == Observed && c.HasConflictingTrafficLight &&
		first.IsAhead() && c.ConflictingTrafficLightDistance < first.Distance &&
		(first.Speed == 0 || first.Acceleration < 0) {
		return false, nil
	}

	vs, err := in.Parameters.GetMany(bType, parameters.TimeFactor, parameters.MinGap, parameters.S0, parameters.TMax)
	if err != nil {
		return false, err
	}
	b, f, gap, s0, tMax := -vs[0], vs[1], vs[2], vs[3], vs[4]
	passable := s0 + in.Length
	distance := c.Distance + in.Length
	if c.IsCrossing() {
		// 汇流在起点即通过，交叉需要驶离终点
		distance += c.Length
	}
	ttcOa, err := carfollowing.AnticipateMovementFreeAcceleration(
		distance, in.Speed, in.Parameters, in.CarFollowing, in.SpeedLimit, carfollowing.DefaultTimeStep,
	)
	if err != nil {
		return false, err
	}

	first := true
	for _, ap := range approachers {
		v := ap.Vehicle
		if !v.OnRoute(c.ConflictingLink) {
			continue
		}
		if first && v.Speed == 0 && v.IsAhead() {
			return false, nil
		}
		tteCa, err := ap.timeToEnter()
		if err != nil {
			return false, err
		}
		switch {
		case c.IsMerge():
			if mergeGapRejected(v, ttcOa, tteCa, b, f, gap, s0, tMax) {
				return true, nil
			}
		case c.IsCrossing():
			ttpDz := carfollowing.AnticipationInfo{}
			if len(in.Leaders) > 0 {
				l := in.Leaders[0]
				ttpDz = carfollowing.AnticipateMovement(c.Distance-l.Distance+c.Length+passable, l.Speed, 0)
			}
			if ttpDz.Duration*f+gap > tteCa.Duration || ttcOa.Duration*f+gap > tteCa.Duration {
				return true, nil
			}
		}
		first = false
	}
	return false, nil
}

// mergeGapRejected 汇流间隙是否不可接受
// 算法说明：
// 1. 自车驶入冲突区晚于来车（含安全系数与最小间隙）时拒绝
// 2. 来车比自车快时，按减速度b减速到自车速度所需时间内，预判来车车头与自车车尾的位置，间距不足 (tMax+gap)*v+s0 时拒绝
func mergeGapRejected(
	v entity.Vehicle, ttcOa, tteCa carfollowing.AnticipationInfo, b, f, gap, s0, tMax float64,
) bool {
	vSelf := ttcOa.EndSpeed
	speedDiff := math.Max(0, v.Speed-vSelf)
	additional := speedDiff / -b
	followerFront := 0.
	if v.IsAhead() {
		followerFront = v.Speed*(ttcOa.Duration+additional) - v.Distance + .5*b*additional*additional
	}
	ownRear := vSelf * additional
	if ttcOa.Duration*f+gap > tteCa.Duration {
		return true
	}
	return !math.IsInf(tteCa.Duration, 1) && tteCa.Duration > 0 &&
		ownRear < (followerFront+(tMax+gap)*vSelf+s0)*f
}

// stopForAllStop 全向停车冲突是否需要停车
// 算法说明：
// 1. 已进入通过阶段时不停车
// 2. 首次接近时进入接近阶段；在停车位置前的停车区内停下后进入等待阶段并记录到达时间
// 说明：stopDistance为实际的停车位置，冲突区前方首尾相接的交叉冲突会使其位于冲突区上游
// 3. 冲突车道上在停车区内停下的车辆记录首次观察到的时间作为到达时间
// 4. 等待阶段中，没有比自车更早到达（同时到达时ID更小）且仍在等待的车辆时进入通过阶段
func stopForAllStop(in Input, c *Conflict, stopDistance float64, plans *Plans) (bool, error) {
	stopArea, err := in.Parameters.Get(parameters.StopArea)
	if err != nil {
		return false, err
	}
	phase := plans.StopPhase(c.StopLine)
	if phase == PhaseRun {
		return false, nil
	}
	var waiting []entity.Vehicle
	for _, v := range c.Upstream {
		if v.IsAhead() && v.Distance <= stopArea && v.Speed < standstillSpeed {
			plans.SetArrivalTime(v.ID, in.Time)
			waiting = append(waiting, v)
		}
	}
	switch phase {
	case PhaseNone:
		if err := plans.SetStopPhaseApproach(c.StopLine); err != nil {
			return false, err
		}
		fallthrough
	case PhaseApproach:
		if stopDistance <= stopArea && in.Speed < standstillSpeed {
			if err := plans.SetStopPhaseYield(c.StopLine, in.Time); err != nil {
				return false, err
			}
		}
		return true, nil
	}

	own, _ := plans.OwnArrival(c.StopLine)
	for _, v := range waiting {
		t, _ := plans.ArrivalTime(v.ID)
		if t < own || (t == own && v.ID < in.ID) {
			return true, nil
		}
	}
	if err := plans.SetStopPhaseRun(c.StopLine); err != nil {
		return false, err
	}
	log.Debugf("vehicle %d runs at stop line %q", in.ID, c.StopLine)
	return false, nil
}
