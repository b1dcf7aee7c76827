package conflict

import (
	"errors"
	"fmt"

	"github.com/tsinghua-fib-lab/agentsociety-driver/entity"
)

// ErrInvalidTransition 全向停车阶段的非法转换
var (
	ErrInvalidTransition = errors.New("invalid stop phase transition")
	ErrNilPlans          = errors.New("nil conflict plans")
)

// StopPhase 全向停车的阶段
type StopPhase int

const (
	PhaseNone     StopPhase = iota // 尚未接近该停车线
	PhaseApproach                  // 正在接近，需要停车
	PhaseYield                     // 已在停车线停下，等待先到车辆
	PhaseRun                       // 可以通过（终态）
)

func (s StopPhase) String() string {
	switch s {
	case PhaseNone:
		return "NONE"
	case PhaseApproach:
		return "APPROACH"
	case PhaseYield:
		return "YIELD"
	case PhaseRun:
		return "RUN"
	default:
		return fmt.Sprintf("StopPhase(%d)", int(s))
	}
}

// Plans 冲突计划
// 功能：驾驶员跨感知周期保持的冲突决策状态
// 说明：
// 1. 每个驾驶员独占一个实例，随驾驶员创建与销毁
// 2. 全向停车阶段按停车线标识记录，只能按 APPROACH -> YIELD -> RUN 的顺序转换
// 3. 转向灯意图每个周期开始时清空
type Plans struct {
	stopPhases   map[string]StopPhase
	ownArrivals  map[string]float64
	arrivalTimes map[int32]float64

	indicator         entity.Indicator
	indicatorDistance float64
	hasIndicator      bool

	blocking bool
}

// NewPlans 创建空的冲突计划
func NewPlans() *Plans {
	return &Plans{
		stopPhases:   make(map[string]StopPhase),
		ownArrivals:  make(map[string]float64),
		arrivalTimes: make(map[int32]float64),
	}
}

// Clean 周期开始时清空转向灯意图
func (p *Plans) Clean() {
	p.indicator = entity.IndicatorNone
	p.indicatorDistance = 0
	p.hasIndicator = false
}

// StopPhase 停车线当前所处阶段
func (p *Plans) StopPhase(stopLine string) StopPhase {
	return p.stopPhases[stopLine]
}

// SetStopPhaseApproach 进入接近阶段，只能从未接近状态或接近阶段进入
func (p *Plans) SetStopPhaseApproach(stopLine string) error {
	switch cur := p.stopPhases[stopLine]; cur {
	case PhaseNone, PhaseApproach:
		p.stopPhases[stopLine] = PhaseApproach
		return nil
	default:
		return fmt.Errorf("%w: %v -> %v at stop line %q", ErrInvalidTransition, cur, PhaseApproach, stopLine)
	}
}

// SetStopPhaseYield 进入等待阶段，要求已处于接近阶段，同时记录自车到达时间
func (p *Plans) SetStopPhaseYield(stopLine string, arrival float64) error {
	if cur := p.stopPhases[stopLine]; cur != PhaseApproach {
		return fmt.Errorf("%w: %v -> %v at stop line %q", ErrInvalidTransition, cur, PhaseYield, stopLine)
	}
	p.stopPhases[stopLine] = PhaseYield
	p.ownArrivals[stopLine] = arrival
	return nil
}

// SetStopPhaseRun 进入通过阶段，要求已处于等待阶段
func (p *Plans) SetStopPhaseRun(stopLine string) error {
	if cur := p.stopPhases[stopLine]; cur != PhaseYield {
		return fmt.Errorf("%w: %v -> %v at stop line %q", ErrInvalidTransition, cur, PhaseRun, stopLine)
	}
	p.stopPhases[stopLine] = PhaseRun
	return nil
}

// OwnArrival 自车在停车线的到达时间
func (p *Plans) OwnArrival(stopLine string) (float64, bool) {
	t, ok := p.ownArrivals[stopLine]
	return t, ok
}

// SetArrivalTime 记录其他车辆在停车线的到达时间，已记录的不覆盖
func (p *Plans) SetArrivalTime(id int32, t float64) {
	if _, ok := p.arrivalTimes[id]; !ok {
		p.arrivalTimes[id] = t
	}
}

// ArrivalTime 其他车辆在停车线的到达时间
func (p *Plans) ArrivalTime(id int32) (float64, bool) {
	t, ok := p.arrivalTimes[id]
	return t, ok
}

// IndicatorIntent 转向灯意图及触发对象的距离
func (p *Plans) IndicatorIntent() (entity.Indicator, float64, bool) {
	return p.indicator, p.indicatorDistance, p.hasIndicator
}

// SetIndicatorIntent 设置转向灯意图，只保留最近对象触发的意图
func (p *Plans) SetIndicatorIntent(intent entity.Indicator, distance float64) {
	if !p.hasIndicator || distance < p.indicatorDistance {
		p.indicator = intent
		p.indicatorDistance = distance
		p.hasIndicator = true
	}
}

// Blocking 自车是否正阻挡着一个没有优先权的冲突区
func (p *Plans) Blocking() bool {
	return p.blocking
}

func (p *Plans) SetBlocking(blocking bool) {
	p.blocking = blocking
}
