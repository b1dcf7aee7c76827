package parameters

// 参数登记表
// 默认值来自驾驶行为模型的标定结果，任务需求相关常数满足 TD_EGO + TD_OTH + 0.175 = 1
var (
	// 跟车

	A      = register("a", "最大加速度", "m/s2", 1.25, Positive)
	B      = register("b", "舒适减速度", "m/s2", 2.09, Positive)
	BCrit  = register("bCrit", "临界减速度", "m/s2", 3.5, Positive)
	S0     = register("s0", "静止最小车距", "m", 3, Positive)
	TMax   = register("tMax", "最大期望车头时距", "s", 1.2, Positive)
	FSpeed = register("fSpeed", "期望速度与限速之比", "", 1, Positive)
	// 超前感知距离
	Lookahead = register("x0", "超前感知距离", "m", 295, Positive)

	// 冲突

	MinGap     = register("minGap", "冲突最小时间间隙", "s", 1e-6, Positive)
	S0Conf     = register("s0conf", "冲突前停车距离", "m", 1.5, Positive)
	TimeFactor = register("timeFactor", "冲突时间估计的安全系数", "", 1.25, Positive)
	StopArea   = register("stopArea", "全向停车区长度", "m", 4, Positive)

	// 任务需求

	HExp     = register("h_exp", "冲突紧迫度的指数衰减时间", "s", 4, Positive)
	X0D      = register("x0_d", "信号检测距离", "m", 100, Positive)
	TDSignal = register("td_signal", "信号任务需求", "", 0.2, UnitInterval)
	TDEgo    = register("TD_EGO", "自车距离导致的最大任务需求", "", (1.0-0.175)*0.42/(0.42+0.11), UnitInterval)
	TDOth    = register("TD_OTH", "冲突车辆到达时间导致的最大任务需求", "", (1.0-0.175)*0.11/(0.42+0.11), UnitInterval)
	XEgo     = register("x_ego", "自车距离的指数衰减长度", "m", 32.5, PositiveZero)
	HConf    = register("h_conf", "冲突车辆到达时间的指数衰减时间", "s", 2.49, PositiveZero)
	TDScan   = register("td_scan", "扫视任务需求", "", 0.02, UnitInterval)

	// 注意力分配

	TC     = register("TC", "任务容量", "", 1, Positive)
	TauMin = register("tau_min", "完全注意时的感知延迟", "s", 0.32, Positive)
	TauMax = register("tau_max", "最大感知延迟", "s", 1.2, Positive)
)

var (
	registry []*ParameterType
	byID     = make(map[string]*ParameterType)
)

func register(id, description, unit string, def float64, c Constraint) *ParameterType {
	if _, ok := byID[id]; ok {
		panic("parameters: duplicate parameter " + id)
	}
	t := &ParameterType{ID: id, Description: description, Unit: unit, Default: def, Constraint: c}
	registry = append(registry, t)
	byID[id] = t
	return t
}

// ByID 按标识查找参数类型，用于配置文件覆盖
func ByID(id string) (*ParameterType, bool) {
	t, ok := byID[id]
	return t, ok
}

// All 全部已登记的参数类型（登记顺序）
func All() []*ParameterType {
	return registry
}
