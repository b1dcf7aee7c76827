package driver

import (
	"fmt"
	"math"

	"git.fiblab.net/general/common/v2/geometry"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/agentsociety-driver/entity"
	"github.com/tsinghua-fib-lab/agentsociety-driver/entity/attention"
	"github.com/tsinghua-fib-lab/agentsociety-driver/entity/carfollowing"
	"github.com/tsinghua-fib-lab/agentsociety-driver/entity/conflict"
	"github.com/tsinghua-fib-lab/agentsociety-driver/entity/network"
	"github.com/tsinghua-fib-lab/agentsociety-driver/entity/parameters"
	"github.com/tsinghua-fib-lab/agentsociety-driver/entity/visibility"
	"github.com/tsinghua-fib-lab/agentsociety-driver/utils/container"
)

const (
	// maxBrakingA 车辆物理制动能力（米/秒^2）
	maxBrakingA = -9.0
)

// Perception 驾驶员一个决策周期的感知结果
// 说明：由调用方在周期开始时构造，决策期间只读
type Perception struct {
	Time         float64 // 仿真时间（秒）
	Speed        float64 // 速度（米/秒）
	Acceleration float64 // 加速度（米/秒^2）
	SpeedLimit   float64 // 当前车道限速（米/秒）

	Leaders   map[entity.RelativeLane][]entity.Vehicle // 各相对车道上的前车，由近及远
	Conflicts []*conflict.Conflict                     // 当前车道前方的冲突，由近及远

	Link       *network.Link          // 所在路段
	Position   geometry.Point         // 坐标
	Visibility *visibility.Visibility // 遮挡索引

	Turn         entity.Indicator // 前方路口的转向，没有时为IndicatorNone
	TurnDistance float64          // 到转向位置的距离（米）
}

// Action 驾驶员一个决策周期的输出
type Action struct {
	A         float64          // 加速度（米/秒^2）
	Indicator entity.Indicator // 转向灯
	Blocking  bool             // 是否正阻挡没有优先权的冲突区
	Anomaly   bool             // 冲突减速度是否因异常被放弃
}

// Driver 驾驶员
// 功能：组合跟车、冲突通行与注意力分配，每个仿真步给出一次加速度决策
// 说明：Plans与Mental为驾驶员私有状态，只在自己的Update中修改，不同驾驶员可以并发更新
type Driver struct {
	container.IncrementalItemBase

	// 驾驶员保持的参数

	id           int32
	params       *parameters.Parameters // 驾驶员参数
	carFollowing carfollowing.Model     // 跟车模型
	length       float64                // 车长
	width        float64                // 车宽

	// 状态

	plans  *conflict.Plans
	mental *attention.Mental
	action Action // 上一次决策
}

// New 创建驾驶员
// 参数：id-驾驶员ID，params-参数（为nil时使用默认值），cf-跟车模型，length/width-车辆尺寸，taskModel-冲突任务模型
// 返回：驾驶员；冲突任务模型未知时返回错误
func New(id int32, params *parameters.Parameters, cf carfollowing.Model, length, width float64, taskModel string) (*Driver, error) {
	providers, err := attention.Providers(taskModel)
	if err != nil {
		return nil, fmt.Errorf("driver %d: %w", id, err)
	}
	if params == nil {
		params = parameters.Default()
	}
	if cf == nil {
		cf = carfollowing.IDM{}
	}
	return &Driver{
		id:           id,
		params:       params,
		carFollowing: cf,
		length:       length,
		width:        width,
		plans:        conflict.NewPlans(),
		mental:       attention.NewMental(attention.CapacityAllocator{}, providers...),
	}, nil
}

func (d *Driver) String() string {
	return fmt.Sprintf("Driver{ID=%d}", d.id)
}

// ID 驾驶员ID
func (d *Driver) ID() int32 {
	return d.id
}

// Parameters 驾驶员参数
func (d *Driver) Parameters() *parameters.Parameters {
	return d.params
}

// CarFollowing 跟车模型
func (d *Driver) CarFollowing() carfollowing.Model {
	return d.carFollowing
}

// Length 车长
func (d *Driver) Length() float64 {
	return d.length
}

// Width 车宽
func (d *Driver) Width() float64 {
	return d.width
}

// Plans 冲突计划
func (d *Driver) Plans() *conflict.Plans {
	return d.plans
}

// Mental 注意力状态
func (d *Driver) Mental() *attention.Mental {
	return d.mental
}

// Action 上一次决策
func (d *Driver) Action() Action {
	return d.action
}

// Update 进行一次决策
// 功能：根据本周期感知结果更新注意力，并计算加速度
// 参数：in-感知结果
// 返回：决策结果；必需参数缺失或冲突规则不受支持时返回错误，此时上一次决策保持不变
// 算法说明：
// 1. 注意力：以感知结果构造场景快照，更新各通道的注意力与感知延迟
// 2. 跟车：跟随当前车道第一辆前车，没有前车时自由加速
// 3. 冲突：当前车道上的冲突通行加速度上限
// 4. 取两者较小值，限制在[物理制动能力, 最大加速度]内
// 5. 转向灯：冲突计划每周期清空转向意图，由前方路口转向重新登记
func (d *Driver) Update(in Perception) (Action, error) {
	desired, err := d.carFollowing.DesiredSpeed(d.params, in.SpeedLimit)
	if err != nil {
		return d.action, fmt.Errorf("driver %d: %w", d.id, err)
	}
	if err := d.mental.Update(&attention.Scene{
		Parameters:   d.params,
		Speed:        in.Speed,
		DesiredSpeed: desired,
		Leaders:      in.Leaders,
		Conflicts:    in.Conflicts,
		Visibility:   in.Visibility,
		Link:         in.Link,
		Position:     in.Position,
	}); err != nil {
		return d.action, fmt.Errorf("driver %d: %w", d.id, err)
	}

	aCF, err := d.followLeader(in)
	if err != nil {
		return d.action, fmt.Errorf("driver %d: %w", d.id, err)
	}
	res, err := conflict.Approach(conflict.Input{
		ID:           d.id,
		Parameters:   d.params,
		Conflicts:    in.Conflicts,
		Leaders:      in.Leaders[entity.CurrentLane],
		CarFollowing: d.carFollowing,
		Length:       d.length,
		Width:        d.width,
		Speed:        in.Speed,
		Acceleration: in.Acceleration,
		SpeedLimit:   in.SpeedLimit,
		CurrentLane:  true,
		Time:         in.Time,
	}, d.plans)
	if err != nil {
		return d.action, fmt.Errorf("driver %d: %w", d.id, err)
	}

	maxA, err := d.params.Get(parameters.A)
	if err != nil {
		return d.action, fmt.Errorf("driver %d: %w", d.id, err)
	}
	if in.Turn != entity.IndicatorNone {
		d.plans.SetIndicatorIntent(in.Turn, in.TurnDistance)
	}
	indicator, _, _ := d.plans.IndicatorIntent()
	d.action = Action{
		A:         lo.Clamp(math.Min(aCF, res.Acceleration), maxBrakingA, maxA),
		Indicator: indicator,
		Blocking:  d.plans.Blocking(),
		Anomaly:   res.Anomaly,
	}
	return d.action, nil
}

// followLeader 跟随当前车道第一辆前车的加速度
func (d *Driver) followLeader(in Perception) (float64, error) {
	leaders := in.Leaders[entity.CurrentLane]
	if len(leaders) == 0 {
		return d.carFollowing.FreeAcceleration(d.params, in.Speed, in.SpeedLimit)
	}
	l := leaders[0]
	return d.carFollowing.FollowSingleLeader(d.params, in.Speed, in.SpeedLimit, l.Distance, l.Speed)
}
