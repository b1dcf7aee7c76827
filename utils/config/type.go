package config

// ControlStep 指定模拟器模拟时间范围和间隔的配置项
// 功能：定义仿真时间控制参数
type ControlStep struct {
	Start    int32   `yaml:"start"`             // 开始步数
	Total    int32   `yaml:"total"`             // 总步数
	Interval float64 `yaml:"interval"`          // 每步的时间间隔（秒）
	Subloop  int32   `yaml:"subloop,omitempty"` // 每步内部循环次数，默认为1
}

// Control 模拟器控制配置
type Control struct {
	Step    ControlStep `yaml:"step"`
	Workers int         `yaml:"workers,omitempty"` // 并发决策的协程数，默认为CPU数
}

// Driver 驾驶员配置
// 功能：驾驶员参数覆盖、参数随机扰动与冲突任务模型
type Driver struct {
	TaskModel     string             `yaml:"task_model,omitempty"`    // 冲突任务模型：intersection（默认） | conflict
	Parameters    map[string]float64 `yaml:"parameters,omitempty"`    // 参数覆盖，键为参数标识
	Heterogeneity float64            `yaml:"heterogeneity,omitempty"` // 行为参数随机扰动的标准差比例，0表示不扰动
	Length        float64            `yaml:"length,omitempty"`        // 车长（米），默认为5
	Width         float64            `yaml:"width,omitempty"`         // 车宽（米），默认为2
}

// Scenario 演示场景配置
// 功能：主路与次路两股车流在路口交汇
// 说明：Map为空时使用内置路口，Layout决定内置路口的形式；Map不为空时按车道ID指定两股车流的路径
type Scenario struct {
	Layout     string       `yaml:"layout,omitempty"`      // 内置路口：crossing（默认，十字交叉） | merge（T形汇入）
	Map        string       `yaml:"map,omitempty"`         // 地图文件（mapv2.Map的protobuf二进制）
	MajorRoute []int32      `yaml:"major_route,omitempty"` // 主路路径（车道ID）
	MinorRoute []int32      `yaml:"minor_route,omitempty"` // 次路路径（车道ID）
	Rule       string       `yaml:"rule"`                  // 次路规则：priority | yield | stop | all_stop
	MajorFlow  float64      `yaml:"major_flow"`            // 主路流量（辆/小时）
	MinorFlow  float64      `yaml:"minor_flow"`            // 次路流量（辆/小时）
	Anchors    [][2]float64 `yaml:"anchors,omitempty"`     // 视线遮挡点坐标
	Seed       uint64       `yaml:"seed"`                  // 随机种子
}

// Config YAML配置文件的根结构
type Config struct {
	Control  Control  `yaml:"control"`  // 模拟过程控制
	Driver   Driver   `yaml:"driver"`   // 驾驶员
	Scenario Scenario `yaml:"scenario"` // 场景
}
