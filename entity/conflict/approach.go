package conflict

import (
	"fmt"
	"math"

	"github.com/tsinghua-fib-lab/agentsociety-driver/entity"
	"github.com/tsinghua-fib-lab/agentsociety-driver/entity/carfollowing"
	"github.com/tsinghua-fib-lab/agentsociety-driver/entity/parameters"
)

const (
	// maxPlausibleDeceleration 超过该减速度（米/秒^2）的结果视为数值异常
	maxPlausibleDeceleration = 6.0
	// anomalySpeed 低于该速度（米/秒）时不做异常判定
	anomalySpeed = 5 / 3.6
)

// Input 一次冲突通行决策的输入
type Input struct {
	ID           int32                  // 自车ID，用于全向停车的先到先行判定
	Parameters   *parameters.Parameters // 自车驾驶员参数
	Conflicts    []*Conflict            // 前方冲突区，按距离由近及远
	Leaders      []entity.Vehicle       // 当前车道前车，由近及远
	CarFollowing carfollowing.Model     // 跟车模型
	Length       float64                // 车长（米）
	Width        float64                // 车宽（米）
	Speed        float64                // 速度（米/秒）
	Acceleration float64                // 加速度（米/秒^2）
	SpeedLimit   float64                // 限速（米/秒）
	// CurrentLane 冲突是否位于实际行驶的车道上；为false时表示在评估换道目标车道
	CurrentLane bool
	Time        float64 // 当前仿真时间（秒）
}

// Result 冲突通行决策结果
type Result struct {
	Acceleration float64 // 加速度上限，正无穷表示冲突不构成约束
	Anomaly      bool    // 是否因减速度异常而放弃了约束
}

// Constrained 冲突是否约束了加速度
func (r Result) Constrained() bool {
	return !math.IsInf(r.Acceleration, 1)
}

// Approach 接近冲突区时的加速度
// 功能：按由近及远的顺序处理前方冲突区，根据通行规则、冲突车辆与前车排队情况给出加速度上限
// 参数：in-决策输入，plans-自车的冲突计划（会被修改，跨周期保存，不能为nil）
// 返回：决策结果；plans为nil、必需参数缺失或遇到不支持的冲突规则时返回错误
// 算法说明：
// 1. 最近的冲突区超出停车距离（s0+车长+v^2/2b）时不做任何处理
// 2. 可用空间 = 到静止前车的距离 - 中间行驶前车停下后占用的空间 - 自车通过所需空间
// 3. 对每个冲突区：
// 3.1 交叉：避免与冲突区内或即将进入的车辆碰撞
// 3.2 汇流/分流：跟随已进入冲突区的冲突车辆；评估换道目标车道上的优先汇流时额外检查碰撞
// 3.3 分流从不为冲突本身停车；已驶入的冲突区忽略，没有优先权的交叉冲突记为阻挡
// 3.4 交叉冲突后没有可用空间时停车，否则按规则判断是否停车
// 3.5 需要停车时，向上游查找与下游冲突之间留有通过空间的冲突区，在其前停车，之后的冲突区不再处理
// 3.6 不停车的交叉冲突记录起终点，供上述查找使用
// 4. 减速度超过6m/s^2且速度不可忽略时视为异常，放弃约束并标记
func Approach(in Input, plans *Plans) (Result, error) {
	if plans == nil {
		return Result{}, ErrNilPlans
	}
	plans.Clean()
	blocking := false
	unconstrained := math.Inf(1)

	vs, err := in.Parameters.GetMany(parameters.S0, parameters.B)
	if err != nil {
		return Result{}, fmt.Errorf("approach conflicts: %w", err)
	}
	s0, b := vs[0], vs[1]
	stoppingDistance := s0 + in.Length + .5*in.Speed*in.Speed/b
	if len(in.Conflicts) > 0 && in.Conflicts[0].Distance > stoppingDistance {
		plans.SetBlocking(blocking)
		return Result{Acceleration: unconstrained}, nil
	}

	passable := s0 + in.Length
	availableSpace := AvailableSpace(in.Leaders) - passable

	a := unconstrained
	var prevStarts, prevEnds []float64
	for _, c := range in.Conflicts {
		if !c.Rule.Valid() {
			return Result{}, fmt.Errorf("approach conflict %d: %w: %v", c.ID, ErrUnsupportedRule, c.Rule)
		}
		if c.IsCrossing() {
			acc, err := avoidCrossingCollision(in, c)
			if err != nil {
				return Result{}, fmt.Errorf("approach conflict %d: %w", c.ID, err)
			}
			a = math.Min(a, acc)
		} else {
			if c.IsMerge() && !in.CurrentLane && c.Rule == Priority {
				acc, err := avoidMergeCollision(in, c)
				if err != nil {
					return Result{}, fmt.Errorf("approach conflict %d: %w", c.ID, err)
				}
				a = math.Min(a, acc)
			}
			acc, err := followConflictingLeader(in, c)
			if err != nil {
				return Result{}, fmt.Errorf("approach conflict %d: %w", c.ID, err)
			}
			a = math.Min(a, acc)
		}

		if c.IsSplit() {
			continue
		}

		if c.Distance < 0 && in.CurrentLane {
			if c.IsCrossing() && c.Rule != Priority {
				blocking = true
			}
			continue
		}

		dist := c.Distance
		if c.IsCrossing() {
			dist += c.Length
		}
		starts := stopCandidates(prevStarts, prevEnds, c.Distance, passable, blocking)
		stop := c.IsCrossing() && availableSpace < dist
		if !stop {
			switch c.Rule {
			case Priority:
				stop = false
			case Yield, Stop:
				bType := parameters.B
				if blocking {
					bType = parameters.BCrit
				}
				stop, err = stopForGiveWay(in, c, bType)
			case AllStop:
				stop, err = stopForAllStop(in, c, starts[0], plans)
			case SplitRule:
				continue
			}
			if err != nil {
				return Result{}, fmt.Errorf("approach conflict %d: %w", c.ID, err)
			}
		}

		if stop {
			acc, err := stopBeforeConflicts(in, starts)
			if err != nil {
				return Result{}, fmt.Errorf("approach conflict %d: %w", c.ID, err)
			}
			a = math.Min(a, acc)
			log.Debugf("vehicle %d stops for conflict %d: a=%.3f", in.ID, c.ID, acc)
			break
		}

		if c.IsCrossing() {
			prevStarts = append(prevStarts, c.Distance)
			prevEnds = append(prevEnds, c.Distance+c.Length)
		}
	}
	plans.SetBlocking(blocking)

	if a < -maxPlausibleDeceleration && in.Speed > anomalySpeed {
		log.Warnf("vehicle %d: deceleration %.3f from conflicts stronger than %v m/s2 at speed %.3f, ignored",
			in.ID, a, maxPlausibleDeceleration, in.Speed)
		return Result{Acceleration: unconstrained, Anomaly: true}, nil
	}
	return Result{Acceleration: a}, nil
}

// stopCandidates 为距离distance处的冲突停车时的候选停车位置
// 参数：prevStarts、prevEnds-此前未停车的交叉冲突的起终点，passable-通过所需空间
// 返回：候选冲突区起点距离，由上游到下游，最后一个为distance
// 算法说明：从distance向上游查找，第一个与下游冲突之间留有通过空间的冲突区为最上游的候选
func stopCandidates(prevStarts, prevEnds []float64, distance, passable float64, blocking bool) []float64 {
	starts := append(prevStarts[:len(prevStarts):len(prevStarts)], distance)
	j := 0
	for i := len(prevEnds) - 1; i >= 0; i-- {
		// starts比prevEnds多一个元素
		if starts[i+1]-prevEnds[i] > passable {
			j = i + 1
			break
		}
	}
	if blocking && j == 0 {
		// 已经阻挡了冲突区，不在迫使停车的冲突区更上游停车
		j = len(starts) - 1
	}
	return starts[j:]
}

// stopBeforeConflicts 在第一个减速度可以接受的冲突区前停车
// 参数：starts-候选冲突区起点距离，由上游到下游
// 算法说明：以S0_CONF代替S0计算停车加速度；距离小于S0_CONF时取临界减速度；减速度超过临界减速度时改为在下一个冲突区前停车
func stopBeforeConflicts(in Input, starts []float64) (float64, error) {
	vs, err := in.Parameters.GetMany(parameters.S0Conf, parameters.BCrit)
	if err != nil {
		return 0, err
	}
	s0Conf, bCrit := vs[0], -vs[1]
	p := in.Parameters.With(parameters.S0, s0Conf)
	aCF := -math.MaxFloat64
	for j := 0; aCF < bCrit && j < len(starts); j++ {
		if starts[j] < s0Conf {
			aCF = math.Max(aCF, bCrit)
			continue
		}
		aStop, err := in.CarFollowing.Stop(p, in.Speed, in.SpeedLimit, starts[j])
		if err != nil {
			return 0, err
		}
		aCF = math.Max(aCF, aStop)
	}
	return aCF, nil
}
