// 随机数引擎，包装了golang.org/x/exp/rand，提供车流生成与参数扰动所需的分布
package randengine

import (
	"flag"
	"math"

	"github.com/samber/lo"
	"golang.org/x/exp/rand"
)

var (
	seedOffset = flag.Uint64("rand.seed_offset", 0, "seed offset") // 种子偏移量，用于调整随机数生成
)

// Engine 随机数引擎
// 说明：非线程安全，只在仿真的串行阶段使用
type Engine struct {
	*rand.Rand // 底层随机数生成器
}

// New 创建随机数引擎
// 参数：seed-随机数种子
// 说明：种子偏移量允许在不修改配置的情况下调整随机数序列
func New(seed uint64) *Engine {
	return &Engine{Rand: rand.New(rand.NewSource(seed + *seedOffset))}
}

// Headway 泊松到达的车头时距
// 参数：flow-流量（辆/小时）
// 返回：到下一辆车的时间（秒），流量不为正时为正无穷
func (e *Engine) Headway(flow float64) float64 {
	if flow <= 0 {
		return math.Inf(1)
	}
	return e.ExpFloat64() * 3600 / flow
}

// Factor 均值为1的正态扰动系数
// 参数：sigma-标准差，low/high-截断范围
// 说明：sigma不为正时返回1
func (e *Engine) Factor(sigma, low, high float64) float64 {
	if sigma <= 0 {
		return 1
	}
	return lo.Clamp(1+sigma*e.NormFloat64(), low, high)
}

// PTrue 以指定概率返回true
func (e *Engine) PTrue(p float64) bool {
	return e.Float64() < p
}
