package clock

import (
	"fmt"

	"github.com/tsinghua-fib-lab/agentsociety-driver/utils/config"
)

// Clock 路口仿真的时钟
// 说明：配置中的一步可以拆分为Subloop个内部步，驾驶员每个内部步决策一次
type Clock struct {
	DT      float64 // 内部步长（秒）
	Subloop int32   // 每个配置步包含的内部步数

	T            float64 // 当前时间（秒）
	InternalStep int32   // 当前内部步

	start, end int32 // 内部步区间[start, end)
}

// New 创建时钟
// 参数：stepConfig-控制步配置，Subloop不大于0时按1处理
func New(stepConfig config.ControlStep) *Clock {
	subloop := max(stepConfig.Subloop, 1)
	c := &Clock{
		DT:      stepConfig.Interval / float64(subloop),
		Subloop: subloop,
		start:   stepConfig.Start * subloop,
		end:     (stepConfig.Start + stepConfig.Total) * subloop,
	}
	c.Init()
	return c
}

// Init 回到起始步
func (c *Clock) Init() {
	c.InternalStep = c.start
	c.T = float64(c.InternalStep) * c.DT
}

// Step 推进一个内部步
func (c *Clock) Step() {
	c.InternalStep++
	c.T = float64(c.InternalStep) * c.DT
}

// Done 是否已经到达结束步
func (c *Clock) Done() bool {
	return c.InternalStep >= c.end
}

// ExternalStep 当前所在的配置步
func (c *Clock) ExternalStep() int32 {
	return c.InternalStep / c.Subloop
}

// AtBoundary 当前内部步是否为配置步的第一个内部步
func (c *Clock) AtBoundary() bool {
	return c.InternalStep%c.Subloop == 0
}

// GetHourMinuteSecond 当前时间的时、分、秒（秒保留小数部分）
func (c *Clock) GetHourMinuteSecond() (int, int, float64) {
	hour := int(c.T) / 3600
	minute := int(c.T) % 3600 / 60
	return hour, minute, c.T - float64(hour*3600+minute*60)
}

// String HH:MM:SS
func (c *Clock) String() string {
	h, m, s := c.GetHourMinuteSecond()
	return fmt.Sprintf("%02d:%02d:%02d", h, m, int(s))
}
