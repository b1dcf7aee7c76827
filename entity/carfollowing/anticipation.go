package carfollowing

import (
	"math"

	"github.com/tsinghua-fib-lab/agentsociety-driver/entity/parameters"
)

const (
	// DefaultTimeStep 自由加速度预判的积分步长（秒）
	DefaultTimeStep = 0.5
	// maxAnticipationSteps 自由加速度预判的最大步数，超过视为永远到不了
	maxAnticipationSteps = 10000
)

// AnticipationInfo 运动预判结果
type AnticipationInfo struct {
	Duration float64 // 行驶给定距离所需时间（秒），到不了时为正无穷
	EndSpeed float64 // 到达时的速度（米/秒）
}

// AnticipateMovement 以恒定加速度预判行驶给定距离的时间
// 参数：distance-距离，speed-初速度，acceleration-加速度
// 返回：预判结果
// 算法说明：
// 1. 距离不为正时立即到达
// 2. 加速度为0：匀速，静止时永远到不了
// 3. 加速度为负：停车前走不完该距离则永远到不了
// 4. 其余情况解 distance = v*t + 0.5*a*t^2 的较小正根
func AnticipateMovement(distance, speed, acceleration float64) AnticipationInfo {
	if distance <= 0 {
		return AnticipationInfo{0, speed}
	}
	if acceleration == 0 {
		if speed <= 0 {
			return AnticipationInfo{math.Inf(1), 0}
		}
		return AnticipationInfo{distance / speed, speed}
	}
	if acceleration < 0 && speed*speed/(-2*acceleration) < distance {
		return AnticipationInfo{math.Inf(1), 0}
	}
	disc := math.Max(0, speed*speed+2*acceleration*distance)
	t := (-speed + math.Sqrt(disc)) / acceleration
	return AnticipationInfo{t, speed + acceleration*t}
}

// AnticipateMovementFreeAcceleration 以自由加速度预判行驶给定距离的时间
// 参数：distance-距离，speed-初速度，p/m-驾驶员参数与跟车模型，speedLimit-限速，dt-积分步长
// 返回：预判结果，参数缺失时返回错误
// 算法说明：按步长积分自由加速度，最后一步不足时以该步的加速度求解剩余时间
func AnticipateMovementFreeAcceleration(
	distance, speed float64, p *parameters.Parameters, m Model, speedLimit, dt float64,
) (AnticipationInfo, error) {
	if distance <= 0 {
		return AnticipationInfo{0, speed}, nil
	}
	t, x, v := 0., 0., speed
	for i := 0; i < maxAnticipationSteps; i++ {
		a, err := m.FreeAcceleration(p, v, speedLimit)
		if err != nil {
			return AnticipationInfo{}, err
		}
		add := v*dt + .5*a*dt*dt
		if x+add >= distance {
			rest := AnticipateMovement(distance-x, v, a)
			return AnticipationInfo{t + rest.Duration, rest.EndSpeed}, nil
		}
		if v <= 0 && a <= 0 {
			break
		}
		x += add
		v = math.Max(0, v+a*dt)
		t += dt
	}
	return AnticipationInfo{math.Inf(1), v}, nil
}
