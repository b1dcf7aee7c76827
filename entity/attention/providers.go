package attention

import (
	"fmt"
	"math"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/agentsociety-driver/entity"
	"github.com/tsinghua-fib-lab/agentsociety-driver/entity/carfollowing"
	"github.com/tsinghua-fib-lab/agentsociety-driver/entity/conflict"
	"github.com/tsinghua-fib-lab/agentsociety-driver/entity/parameters"
)

// Provider 任务提供者
// 功能：从场景快照计算零个或多个任务；需要按组查询的对象通过mapper映射到代表通道
// 说明：各提供者相互独立，mapper可以为nil
type Provider func(scene *Scene, mapper Mapper) ([]Task, error)

func mapToChannel(m Mapper, object, channel Channel) {
	if m != nil {
		m.MapToChannel(object, channel)
	}
}

// AccelerationProvider 前车速度差导致的跟车任务，位于FRONT通道
// 算法说明：对x0范围内当前车道的每辆前车，需求 = max(0, v自车-v前车) * (1-s/x0) / v期望，取最大值
func AccelerationProvider(scene *Scene, _ Mapper) ([]Task, error) {
	x0, err := scene.Parameters.Get(parameters.Lookahead)
	if err != nil {
		return nil, err
	}
	td := 0.
	if scene.DesiredSpeed > 0 {
		for _, l := range scene.Leaders[entity.CurrentLane] {
			if l.Distance > x0 {
				break
			}
			closing := math.Max(0, scene.Speed-l.Speed)
			td = math.Max(td, closing*lo.Clamp(1-l.Distance/x0, 0, 1)/scene.DesiredSpeed)
		}
	}
	return []Task{{ID: "acceleration", Channel: FRONT, Demand: td}}, nil
}

// signalSides 各信号任务检查的车道与信号
var signalSides = []struct {
	channel Channel
	lane    entity.RelativeLane
	active  func(v *entity.Vehicle) bool
}{
	{FRONT, entity.CurrentLane, func(v *entity.Vehicle) bool { return v.BrakingLights }},
	// 左侧车道前车打右转向灯，意图切入自车车道
	{LEFT, entity.LeftLane, func(v *entity.Vehicle) bool { return v.Indicator.Right() }},
	{RIGHT, entity.RightLane, func(v *entity.Vehicle) bool { return v.Indicator.Left() }},
}

// SignalProvider 前车信号导致的检测任务
// 功能：FRONT检查当前车道前车的刹车灯，LEFT/RIGHT检查相邻车道前车朝向自车车道的转向灯
// 算法说明：需求 = td_signal * (1 - s/x0_d)，s为第一辆亮起信号的前车的距离，下限为0，没有时为0
func SignalProvider(scene *Scene, _ Mapper) ([]Task, error) {
	vs, err := scene.Parameters.GetMany(parameters.TDSignal, parameters.X0D)
	if err != nil {
		return nil, err
	}
	tdSignal, x0d := vs[0], vs[1]
	tasks := make([]Task, 0, len(signalSides))
	for _, side := range signalSides {
		td := 0.
		leaders := scene.Leaders[side.lane]
		for i := range leaders {
			if side.active(&leaders[i]) {
				td = math.Max(0, tdSignal*(1-leaders[i].Distance/x0d))
				break
			}
		}
		tasks = append(tasks, Task{ID: "signal-" + side.channel.String(), Channel: side.channel, Demand: td})
	}
	return tasks, nil
}

// ConflictProvider 冲突组的紧迫度任务
// 功能：每个冲突组一个任务，位于组的代表通道，组内每个冲突都映射到该通道
// 算法说明：
// 1. 冲突车辆时距：组内每个冲突x0范围内第一辆上游冲突车辆的 距离/速度，取最小值
// 2. 紧迫度时距 = max(冲突车辆时距, 自车到最近冲突的 距离/速度)
// 3. 需求 = exp(-紧迫度时距/h_exp)
// 4. 分流冲突移出所在组，转化为FRONT通道的跟车任务
func ConflictProvider(scene *Scene, mapper Mapper) ([]Task, error) {
	vs, err := scene.Parameters.GetMany(parameters.Lookahead, parameters.HExp)
	if err != nil {
		return nil, err
	}
	x0, hExp := vs[0], vs[1]
	groups, splits := withoutSplits(GroupConflicts(scene.Conflicts, x0), mapper)
	tasks := make([]Task, 0, len(groups)+len(splits))
	for _, c := range splits {
		tasks = append(tasks, splitCarFollowingTask(scene, c, hExp))
	}
	for _, g := range groups {
		conflictHeadway := math.Inf(1)
		for _, c := range g.Conflicts {
			if v, ok := firstUpstream(c, x0); ok {
				conflictHeadway = math.Min(conflictHeadway, carfollowing.AnticipateMovement(v.Distance, v.Speed, 0).Duration)
			}
		}
		egoHeadway := carfollowing.AnticipateMovement(g.First().Distance, scene.Speed, 0).Duration
		headway := math.Max(conflictHeadway, egoHeadway)
		ch := g.Channel()
		for _, c := range g.Conflicts {
			mapToChannel(mapper, ConflictChannel(c.ID), ch)
		}
		tasks = append(tasks, Task{ID: fmt.Sprintf("conflict-%d", g.First().ID), Channel: ch, Demand: decay(headway, hExp)})
	}
	return tasks, nil
}

// firstUpstream 冲突车道上距离不超过maxDistance的第一辆上游车辆
func firstUpstream(c *conflict.Conflict, maxDistance float64) (entity.Vehicle, bool) {
	if len(c.Upstream) == 0 || c.Upstream[0].Distance > maxDistance {
		return entity.Vehicle{}, false
	}
	return c.Upstream[0], true
}

// ScanProvider 冲突组的扫视任务
// 说明：每个冲突组的代表通道上一个固定需求td_scan的任务；只含分流冲突的组没有扫视任务
func ScanProvider(scene *Scene, mapper Mapper) ([]Task, error) {
	vs, err := scene.Parameters.GetMany(parameters.Lookahead, parameters.TDScan)
	if err != nil {
		return nil, err
	}
	groups, _ := withoutSplits(GroupConflicts(scene.Conflicts, vs[0]), mapper)
	return lo.Map(groups, func(g *Group, _ int) Task {
		return scanTask(g, vs[1])
	}), nil
}

func scanTask(g *Group, tdScan float64) Task {
	return Task{ID: fmt.Sprintf("scan-%d", g.First().ID), Channel: g.Channel(), Demand: tdScan}
}

// splitCarFollowingTask 分流冲突转化的跟车任务，位于FRONT通道
// 功能：跟随分流另一分支上第一辆冲突车辆
// 算法说明：车距 = 到冲突区的距离 + 该车车尾越过冲突区起点的距离，需求 = exp(-(车距/自车速度)/h_exp)；没有车辆时为0
func splitCarFollowingTask(scene *Scene, c *conflict.Conflict, hExp float64) Task {
	task := Task{ID: fmt.Sprintf("split-%d", c.ID), Channel: FRONT}
	if len(c.Downstream) == 0 {
		return task
	}
	headway := math.Max(0, c.Distance+c.Downstream[0].OverlapRear)
	task.Demand = decay(carfollowing.AnticipateMovement(headway, scene.Speed, 0).Duration, hExp)
	return task
}
