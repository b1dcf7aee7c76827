// 跟车模型：单前车跟驰、停车与自由加速度，以及基于加速度假设的运动预判
package carfollowing

import (
	"math"

	"git.fiblab.net/general/common/v2/mathutil"
	"github.com/tsinghua-fib-lab/agentsociety-driver/entity/parameters"
)

// Model 跟车模型接口
// 说明：冲突通行与注意力模块只通过该接口使用跟车模型；未设置的必需参数以错误返回
type Model interface {
	// FollowSingleLeader 跟随单一前车的加速度
	// 参数：p-驾驶员参数，speed-自车速度，speedLimit-限速，headway-车头间距（前车尾部到自车前端），leaderSpeed-前车速度
	FollowSingleLeader(p *parameters.Parameters, speed, speedLimit, headway, leaderSpeed float64) (float64, error)
	// Stop 在给定距离内停车的加速度
	Stop(p *parameters.Parameters, speed, speedLimit, distance float64) (float64, error)
	// FreeAcceleration 没有前车时的加速度
	FreeAcceleration(p *parameters.Parameters, speed, speedLimit float64) (float64, error)
	// DesiredSpeed 期望速度
	DesiredSpeed(p *parameters.Parameters, speedLimit float64) (float64, error)
}

// idmTheta IDM模型的速度指数
const idmTheta = 4

// IDM 智能驾驶模型
// 功能：实现智能驾驶模型(IDM)的跟车逻辑，参数取自驾驶员参数集合
// 说明：结果不做加速度范围截断，截断由驾驶员控制器统一进行
type IDM struct{}

var _ Model = IDM{}

// idmParams 一次计算需要的IDM参数
type idmParams struct {
	a, b, s0, t, fSpeed float64
}

func readIDMParams(p *parameters.Parameters) (idmParams, error) {
	var out idmParams
	for _, x := range []struct {
		t *parameters.ParameterType
		v *float64
	}{
		{parameters.A, &out.a},
		{parameters.B, &out.b},
		{parameters.S0, &out.s0},
		{parameters.TMax, &out.t},
		{parameters.FSpeed, &out.fSpeed},
	} {
		v, err := p.Get(x.t)
		if err != nil {
			return idmParams{}, err
		}
		*x.v = v
	}
	return out, nil
}

// followImpl 跟车模型核心实现
// 算法说明：
// 1. 车距小于等于0时视为已经碰撞，返回负无穷
// 2. 期望车距：s_star = s0 + max(0, v*T + v*(v-v_ahead)/(2*sqrt(a*b)))
// 3. 加速度：acc = a * (1 - (v/v0)^4 - (s_star/distance)^2)
func (ip idmParams) followImpl(selfV, targetV, aheadV, distance float64) float64 {
	if distance <= 0 {
		return -mathutil.INF
	}
	// https://en.wikipedia.org/wiki/Intelligent_driver_model
	sStar := ip.s0 + math.Max(0, selfV*ip.t+selfV*(selfV-aheadV)/2/math.Sqrt(ip.a*ip.b))
	return ip.a * (1 - ip.speedTerm(selfV, targetV) - math.Pow(sStar/distance, 2))
}

// speedTerm (v/v0)^4，期望速度为0时静止车辆不再加速
func (ip idmParams) speedTerm(selfV, targetV float64) float64 {
	if targetV <= 0 {
		if selfV <= 0 {
			return 1
		}
		return mathutil.INF
	}
	return math.Pow(selfV/targetV, idmTheta)
}

func (IDM) FollowSingleLeader(p *parameters.Parameters, speed, speedLimit, headway, leaderSpeed float64) (float64, error) {
	ip, err := readIDMParams(p)
	if err != nil {
		return 0, err
	}
	return ip.followImpl(speed, speedLimit*ip.fSpeed, leaderSpeed, headway), nil
}

// Stop 在指定距离内刹停：把停车点视为静止前车
func (m IDM) Stop(p *parameters.Parameters, speed, speedLimit, distance float64) (float64, error) {
	return m.FollowSingleLeader(p, speed, speedLimit, distance, 0)
}

func (IDM) FreeAcceleration(p *parameters.Parameters, speed, speedLimit float64) (float64, error) {
	ip, err := readIDMParams(p)
	if err != nil {
		return 0, err
	}
	return ip.a * (1 - ip.speedTerm(speed, speedLimit*ip.fSpeed)), nil
}

func (IDM) DesiredSpeed(p *parameters.Parameters, speedLimit float64) (float64, error) {
	f, err := p.Get(parameters.FSpeed)
	if err != nil {
		return 0, err
	}
	return speedLimit * f, nil
}
