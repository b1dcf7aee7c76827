package task

import (
	"context"
	"flag"
	"fmt"
	"math"

	"github.com/tsinghua-fib-lab/agentsociety-driver/entity/carfollowing"
	"github.com/tsinghua-fib-lab/agentsociety-driver/entity/driver"
	"github.com/tsinghua-fib-lab/agentsociety-driver/entity/parameters"
	"github.com/tsinghua-fib-lab/agentsociety-driver/utils/container"
)

var (
	heartBeatInterval = flag.Int("log.heartbeat_interval", 100, "心跳日志间隔步数")
)

const (
	// spawnGap 发车时与入口路段上最后一辆车车尾的最小距离（米）
	spawnGap = 10.
	// 参数扰动系数的截断范围
	minFactor, maxFactor = .5, 1.5
)

// perturbed 随驾驶员扰动的行为参数
var perturbed = []*parameters.ParameterType{
	parameters.A, parameters.B, parameters.TMax, parameters.S0, parameters.FSpeed,
}

// Summary 仿真结果统计
type Summary struct {
	Steps          int     // 仿真步数
	Spawned        int     // 发车数
	Completed      int     // 完成行程数
	Active         int     // 结束时仍在路网中的车辆数
	Anomalies      int     // 冲突减速度被判为异常的决策次数
	MeanTravelTime float64 // 完成行程的平均行程时间（秒）
	MeanSpeed      float64 // 完成行程的平均速度（米/秒）

	travelTime, distance float64
}

func (s Summary) String() string {
	return fmt.Sprintf(
		"steps=%d spawned=%d completed=%d active=%d anomalies=%d travel_time=%.2fs speed=%.2fm/s",
		s.Steps, s.Spawned, s.Completed, s.Active, s.Anomalies, s.MeanTravelTime, s.MeanSpeed,
	)
}

// Summary 当前的统计结果
func (ctx *Context) Summary() Summary {
	s := ctx.summary
	s.Active = len(ctx.vehicles)
	if s.Completed > 0 {
		s.MeanTravelTime = s.travelTime / float64(s.Completed)
	}
	if s.travelTime > 0 {
		s.MeanSpeed = s.distance / s.travelTime
	}
	return s
}

// addVehicle 在路径的第index个路段上位置s处加入车辆
// 功能：按配置生成驾驶员参数并创建驾驶员，把车辆插入路段链表并登记到管理器（下一次Prepare时生效）
func (ctx *Context) addVehicle(st *stream, index int, s, speed float64) (*vehicle, error) {
	rc := ctx.runtimeConfig
	p := rc.Parameters.Clone()
	for _, t := range perturbed {
		base, err := p.Get(t)
		if err != nil {
			return nil, err
		}
		if err := p.Set(t, base*ctx.rng.Factor(rc.All.Driver.Heterogeneity, minFactor, maxFactor)); err != nil {
			return nil, err
		}
	}
	d, err := driver.New(ctx.nextID, p, carfollowing.IDM{}, rc.All.Driver.Length, rc.All.Driver.Width, rc.All.Driver.TaskModel)
	if err != nil {
		return nil, err
	}
	ctx.nextID++
	v := &vehicle{
		driver:    d,
		stream:    st,
		index:     index,
		v:         speed,
		departure: ctx.clock.T,
	}
	v.node = &container.ListNode[*vehicle]{S: s, Value: v}
	ctx.lists[v.link()].Merge([]*container.ListNode[*vehicle]{v.node})
	ctx.vehicles[d.ID()] = v
	ctx.manager.Add(d)
	ctx.summary.Spawned++
	return v, nil
}

// spawn 按泊松到达为各车流发车
// 算法说明：
// 1. 到达发车时间且入口路段起点留有空间时发车，否则推迟到下一步
// 2. 初速度取限速与在可用空间内以舒适减速度刹停的速度中的较小值
func (ctx *Context) spawn() error {
	for _, src := range ctx.sources {
		if ctx.clock.T < src.next {
			continue
		}
		entry := src.stream.links[0]
		speed := entry.MaxV()
		// 入口路段上最上游的车辆
		if tail := ctx.lists[entry].First(); tail != nil {
			space := tail.S - tail.Value.Length() - spawnGap
			if space < 0 {
				continue
			}
			b, err := ctx.runtimeConfig.Parameters.Get(parameters.B)
			if err != nil {
				return err
			}
			speed = math.Min(speed, math.Sqrt(2*b*space))
		}
		if _, err := ctx.addVehicle(src.stream, 0, 0, speed); err != nil {
			return err
		}
		src.next += ctx.rng.Headway(src.stream.flow)
	}
	return nil
}

// prepare 准备阶段，每步执行一次
// 功能：发车，使驾驶员的增删生效，每隔若干配置步输出心跳日志
func (ctx *Context) prepare() error {
	if err := ctx.spawn(); err != nil {
		return err
	}
	if err := ctx.manager.Prepare(); err != nil {
		return err
	}
	if ctx.clock.AtBoundary() && ctx.clock.ExternalStep()%int32(*heartBeatInterval) == 0 {
		hour, minute, second := ctx.clock.GetHourMinuteSecond()
		log.Infof("STEP: %d(%d:%d:%.2f) vehicles: %d", ctx.clock.ExternalStep(), hour, minute, second, len(ctx.vehicles))
	}
	return nil
}

// update 更新阶段，每步执行一次
// 功能：全部驾驶员并发决策，然后串行推进车辆运动
// 算法说明：
// 1. 决策：驾驶员只读取本步开始时的状态
// 2. 运动：v' = max(0, v + a*dt)，位移取梯形积分；本步内停下时取刹停距离
// 3. 越过路段终点的车辆转入路径的下一路段，没有下一路段时完成行程并移除
// 4. 各路段链表恢复有序
func (ctx *Context) update(c context.Context) error {
	drivers := ctx.manager.Drivers()
	actions, err := ctx.manager.Update(c, ctx.perceive)
	if err != nil {
		return err
	}
	moved := make(map[*container.List[*vehicle]][]*container.ListNode[*vehicle])
	for i, d := range drivers {
		v := ctx.vehicles[d.ID()]
		if actions[i].Anomaly {
			ctx.summary.Anomalies++
		}
		if list, ok := ctx.move(v, actions[i]); ok {
			moved[list] = append(moved[list], v.node)
		}
	}
	for _, list := range ctx.lists {
		adds := append(list.PopUnsorted(), moved[list]...)
		if len(adds) > 0 {
			list.Merge(adds)
		}
	}
	return nil
}

// move 按决策推进一辆车
// 返回：车辆转入新路段时，返回新路段的链表（节点已从原链表移除，等待合并）
func (ctx *Context) move(v *vehicle, action driver.Action) (*container.List[*vehicle], bool) {
	dt := ctx.clock.DT
	v.action = action
	v.a = action.A
	next := v.v + action.A*dt
	ds := (v.v + math.Max(0, next)) / 2 * dt
	if next < 0 {
		ds = v.v * v.v / (-2 * action.A)
	}
	v.v = math.Max(0, next)
	v.traveled += ds
	v.node.S += ds

	link := v.link()
	if v.node.S <= link.Length() {
		return nil, false
	}
	ctx.lists[link].Remove(v.node)
	for v.node.S > link.Length() {
		v.node.S -= link.Length()
		if v.index+1 >= len(v.stream.links) {
			ctx.finish(v)
			return nil, false
		}
		v.index++
		link = v.link()
	}
	return ctx.lists[link], true
}

// finish 完成行程
func (ctx *Context) finish(v *vehicle) {
	ctx.manager.Remove(v.driver)
	delete(ctx.vehicles, v.driver.ID())
	ctx.summary.Completed++
	ctx.summary.travelTime += ctx.clock.T + ctx.clock.DT - v.departure
	ctx.summary.distance += v.traveled
	log.Debugf("%v completed %v in %.2fs", v.driver, v.stream, ctx.clock.T+ctx.clock.DT-v.departure)
}

// Run 运行
// 功能：初始化后逐步执行准备与更新阶段，直到结束步或c被取消
// 返回：统计结果；驾驶员决策出错或c被取消时同时返回错误
func (ctx *Context) Run(c context.Context) (Summary, error) {
	ctx.Init()
	for !ctx.clock.Done() {
		if err := c.Err(); err != nil {
			return ctx.Summary(), err
		}
		if err := ctx.prepare(); err != nil {
			return ctx.Summary(), fmt.Errorf("step %d: %w", ctx.clock.InternalStep, err)
		}
		if err := ctx.update(c); err != nil {
			return ctx.Summary(), fmt.Errorf("step %d: %w", ctx.clock.InternalStep, err)
		}
		ctx.clock.Step()
		ctx.summary.Steps++
	}
	s := ctx.Summary()
	log.Infof("engine complete: %v", s)
	return s, nil
}
