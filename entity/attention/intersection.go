package attention

import (
	"fmt"
	"math"

	"github.com/tsinghua-fib-lab/agentsociety-driver/entity/carfollowing"
	"github.com/tsinghua-fib-lab/agentsociety-driver/entity/conflict"
	"github.com/tsinghua-fib-lab/agentsociety-driver/entity/parameters"
)

// IntersectionGroup 同一交叉口各通道的权重
// 功能：把各冲突组通道的权重归一化，决定自车距离项在各通道间的分配
type IntersectionGroup struct {
	weights map[Channel]float64
	total   float64
}

// NewIntersectionGroup 创建空的权重组
func NewIntersectionGroup() *IntersectionGroup {
	return &IntersectionGroup{weights: make(map[Channel]float64)}
}

// Add 登记通道的权重
func (g *IntersectionGroup) Add(ch Channel, weight float64) {
	g.total += weight - g.weights[ch]
	g.weights[ch] = weight
}

// WeightedFactor 通道的归一化权重
// 返回：
// 1. FRONT：全部权重为0时为1，否则为0
// 2. 其他通道：权重占总权重的比例，总权重为0时为0
func (g *IntersectionGroup) WeightedFactor(ch Channel) float64 {
	if ch == FRONT {
		if g.total == 0 {
			return 1
		}
		return 0
	}
	if g.total == 0 {
		return 0
	}
	return g.weights[ch] / g.total
}

// intersectionParams 交叉口任务使用的参数
type intersectionParams struct {
	x0, tdEgo, xEgo, tdOth, hConf, tdScan, hExp float64
}

func readIntersectionParams(p *parameters.Parameters) (intersectionParams, error) {
	vs, err := p.GetMany(
		parameters.Lookahead, parameters.TDEgo, parameters.XEgo, parameters.TDOth,
		parameters.HConf, parameters.TDScan, parameters.HExp,
	)
	if err != nil {
		return intersectionParams{}, err
	}
	return intersectionParams{
		x0: vs[0], tdEgo: vs[1], xEgo: vs[2], tdOth: vs[3], hConf: vs[4], tdScan: vs[5], hExp: vs[6],
	}, nil
}

// conflictingDemand 冲突车辆导致的任务需求
// 返回：需求 TD_OTH*exp(-t/h_conf)，组内冲突的最大视距
// 算法说明：
// 1. 只考虑自车尚未驶入的冲突，视距取遮挡视距与x0中的较小值
// 2. 视距内有上游冲突车辆时，t为第一辆车到冲突区的时间（已进入冲突区为0）
// 3. 没有车辆时，假设视距边界处有以冲突车道限速行驶的车辆
// 4. 取组内各冲突的最小t
func conflictingDemand(scene *Scene, conflicts []*conflict.Conflict, ip intersectionParams) (td, maxVisibility float64) {
	t := math.Inf(1)
	for _, c := range conflicts {
		if c.Distance < 0 {
			continue
		}
		vis := scene.conflictVisibility(c, ip.x0)
		maxVisibility = math.Max(maxVisibility, vis)
		if v, ok := firstUpstream(c, vis); ok {
			if v.IsParallel() {
				t = 0
			} else {
				t = math.Min(t, carfollowing.AnticipateMovement(v.Distance, v.Speed, 0).Duration)
			}
			continue
		}
		limit := c.ConflictingSpeedLimit
		if limit <= 0 {
			limit = scene.DesiredSpeed
		}
		t = math.Min(t, carfollowing.AnticipateMovement(vis, limit, 0).Duration)
	}
	return ip.tdOth * decay(t, ip.hConf), maxVisibility
}

// intersectionTask 交叉口任务，conflicts为空时表示FRONT通道上的自车距离任务
type intersectionTask struct {
	channel   Channel
	conflicts []*conflict.Conflict
	confTD    float64
}

// IntersectionProvider 交叉口任务
// 功能：综合自车到交叉口的距离与各冲突组来车的到达时间，计算各冲突组通道的任务需求
// 算法说明：
// 1. 冲突分组后，以全部冲突中最近的一个计算自车距离项 TD_EGO*exp(-d/x_ego)
// 2. 组内的分流冲突移出，改为FRONT通道上跟随另一分支车辆的跟车任务，并映射到FRONT
// 3. 其余冲突的组：冲突车辆项confTD见conflictingDemand，权重 = confTD*(1-exp(-最大视距/x_ego))
// 4. 需求 = 归一化权重*自车距离项 + confTD；额外的FRONT任务在全部权重为0时得到完整的自车距离项
// 5. 每组另加一个扫视任务，组内每个冲突映射到组的代表通道
func IntersectionProvider(scene *Scene, mapper Mapper) ([]Task, error) {
	ip, err := readIntersectionParams(scene.Parameters)
	if err != nil {
		return nil, err
	}
	groups := GroupConflicts(scene.Conflicts, ip.x0)
	if len(groups) == 0 {
		return nil, nil
	}
	egoDistance := math.Max(0, groups[0].First().Distance)
	egoTD := ip.tdEgo * decay(egoDistance, ip.xEgo)

	weights := NewIntersectionGroup()
	items := []intersectionTask{{channel: FRONT}}
	var others []Task
	groups, splits := withoutSplits(groups, mapper)
	for _, c := range splits {
		others = append(others, splitCarFollowingTask(scene, c, ip.hExp))
	}
	for _, g := range groups {
		ch := g.Channel()
		confTD, maxVis := conflictingDemand(scene, g.Conflicts, ip)
		weights.Add(ch, confTD*(1-decay(maxVis, ip.xEgo)))
		items = append(items, intersectionTask{channel: ch, conflicts: g.Conflicts, confTD: confTD})
		others = append(others, scanTask(g, ip.tdScan))
		for _, c := range g.Conflicts {
			mapToChannel(mapper, ConflictChannel(c.ID), ch)
		}
	}

	tasks := make([]Task, 0, len(items)+len(others))
	for _, it := range items {
		id := "intersection"
		if len(it.conflicts) > 0 {
			id = fmt.Sprintf("intersection-%d", it.conflicts[0].ID)
		}
		tasks = append(tasks, Task{
			ID:      id,
			Channel: it.channel,
			Demand:  weights.WeightedFactor(it.channel)*egoTD + it.confTD,
		})
	}
	log.Tracef("intersection tasks: %v", tasks)
	return append(tasks, others...), nil
}
