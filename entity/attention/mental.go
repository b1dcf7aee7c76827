package attention

import (
	"errors"
	"fmt"
	"math"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/agentsociety-driver/entity/parameters"
)

var (
	ErrUnknownTaskModel = errors.New("unknown conflict task model")
)

// 冲突任务模型名称
const (
	TaskModelIntersection = "intersection"
	TaskModelConflict     = "conflict"
)

// Providers 按冲突任务模型组装全部任务提供者
// 参数：model-冲突任务模型，intersection为完整的交叉口模型（含扫视与分流跟车任务），conflict为简化的冲突紧迫度模型
func Providers(model string) ([]Provider, error) {
	switch model {
	case TaskModelIntersection, "":
		return []Provider{AccelerationProvider, SignalProvider, IntersectionProvider}, nil
	case TaskModelConflict:
		return []Provider{AccelerationProvider, SignalProvider, ConflictProvider, ScanProvider}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTaskModel, model)
	}
}

// Allocation 通道的注意力分配结果
type Allocation struct {
	Attention       float64 // 注意力，[0,1]
	PerceptionDelay float64 // 感知延迟（秒）
}

// Allocator 由各通道任务需求计算注意力
type Allocator interface {
	Allocate(p *parameters.Parameters, channels []Channel, demand map[Channel]float64) (map[Channel]Allocation, error)
}

// CapacityAllocator 按任务容量分配注意力
// 算法说明：
// 1. 注意力 = 通道需求 / max(总需求, TC)，总需求不超过容量时各通道得到其需求本身
// 2. 感知延迟 = min(tau_max, tau_min/注意力)，注意力为0时为tau_max
type CapacityAllocator struct{}

var _ Allocator = CapacityAllocator{}

func (CapacityAllocator) Allocate(p *parameters.Parameters, channels []Channel, demand map[Channel]float64) (map[Channel]Allocation, error) {
	vs, err := p.GetMany(parameters.TC, parameters.TauMin, parameters.TauMax)
	if err != nil {
		return nil, err
	}
	tc, tauMin, tauMax := vs[0], vs[1], vs[2]
	total := lo.SumBy(channels, func(ch Channel) float64 { return demand[ch] })
	capacity := math.Max(total, tc)
	out := make(map[Channel]Allocation, len(channels))
	for _, ch := range channels {
		a := Allocation{Attention: lo.Clamp(demand[ch]/capacity, 0, 1), PerceptionDelay: tauMax}
		if a.Attention > 0 {
			a.PerceptionDelay = math.Min(tauMax, tauMin/a.Attention)
		}
		out[ch] = a
	}
	return out, nil
}

// Mental 驾驶员的注意力状态
// 功能：每个感知周期汇总全部任务提供者的任务需求，分配各通道的注意力与感知延迟
// 说明：
// 1. 每个驾驶员独占一个实例，只在自己的更新中修改
// 2. 四个固定方向通道总是存在，其余通道按本周期第一次出现的顺序排列
// 3. 对象到代表通道的映射每个周期重建，不保留已消失冲突的映射
type Mental struct {
	providers []Provider
	allocator Allocator

	channels    []Channel
	tasks       []Task
	demand      map[Channel]float64
	allocations map[Channel]Allocation
	mapping     map[Channel]Channel
	total       float64
	capacity    float64
	tauMax      float64
}

var _ Mapper = (*Mental)(nil)

// NewMental 创建注意力状态
// 参数：allocator-注意力分配方法，nil时使用CapacityAllocator；providers-任务提供者
func NewMental(allocator Allocator, providers ...Provider) *Mental {
	if allocator == nil {
		allocator = CapacityAllocator{}
	}
	m := &Mental{
		providers: providers,
		allocator: allocator,
		mapping:   make(map[Channel]Channel),
		capacity:  parameters.TC.Default,
		tauMax:    parameters.TauMax.Default,
	}
	m.reset()
	return m
}

func (m *Mental) reset() {
	m.channels = append(m.channels[:0], directions...)
	m.tasks = m.tasks[:0]
	m.demand = make(map[Channel]float64, len(directions))
	m.allocations = make(map[Channel]Allocation, len(directions))
	clear(m.mapping)
	m.total = 0
}

// Update 按场景快照更新注意力
// 功能：清空映射，依次运行全部任务提供者，按通道求和任务需求，再分配注意力
// 返回：必需参数缺失时返回错误，此时注意力状态为空（全部通道注意力为0）
func (m *Mental) Update(scene *Scene) error {
	m.reset()
	vs, err := scene.Parameters.GetMany(parameters.TC, parameters.TauMax)
	if err != nil {
		return fmt.Errorf("attention: %w", err)
	}
	m.capacity, m.tauMax = vs[0], vs[1]
	for _, provide := range m.providers {
		tasks, err := provide(scene, m)
		if err != nil {
			m.reset()
			return fmt.Errorf("attention: %w", err)
		}
		for _, t := range tasks {
			if !(t.Demand > 0) {
				// 包含NaN
				t.Demand = 0
			}
			if _, ok := m.demand[t.Channel]; !ok && !t.Channel.IsDirection() {
				m.channels = append(m.channels, t.Channel)
			}
			m.demand[t.Channel] += t.Demand
			m.total += t.Demand
			m.tasks = append(m.tasks, t)
		}
	}
	allocations, err := m.allocator.Allocate(scene.Parameters, m.channels, m.demand)
	if err != nil {
		m.reset()
		return fmt.Errorf("attention: %w", err)
	}
	m.allocations = allocations
	return nil
}

// MapToChannel 把对象映射到代表通道，重复映射相同通道没有影响
func (m *Mental) MapToChannel(object, channel Channel) {
	if object == channel {
		return
	}
	m.mapping[object] = channel
}

// Resolve 对象所属的通道，没有映射时为其本身
func (m *Mental) Resolve(object Channel) Channel {
	if ch, ok := m.mapping[object]; ok {
		return ch
	}
	return object
}

// Channels 本周期的全部通道
// 说明：返回内部切片，调用方不得修改
func (m *Mental) Channels() []Channel {
	return m.channels
}

// Tasks 本周期的全部任务
func (m *Mental) Tasks() []Task {
	return m.tasks
}

// TaskDemand 通道（或映射到该通道的对象）的任务需求
func (m *Mental) TaskDemand(ch Channel) float64 {
	return m.demand[m.Resolve(ch)]
}

// TotalDemand 全部通道的任务需求之和
func (m *Mental) TotalDemand() float64 {
	return m.total
}

// Saturation 任务饱和度 = 总需求 / TC
func (m *Mental) Saturation() float64 {
	if m.capacity <= 0 {
		return 0
	}
	return m.total / m.capacity
}

// Attention 通道（或映射到该通道的对象）的注意力，未知通道为0
func (m *Mental) Attention(ch Channel) float64 {
	return m.allocations[m.Resolve(ch)].Attention
}

// PerceptionDelay 通道（或映射到该通道的对象）的感知延迟，未知通道为tau_max
func (m *Mental) PerceptionDelay(ch Channel) float64 {
	if a, ok := m.allocations[m.Resolve(ch)]; ok {
		return a.PerceptionDelay
	}
	return m.tauMax
}
