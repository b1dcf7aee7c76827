package config

import (
	"errors"
	"fmt"
	"sort"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/agentsociety-driver/entity/conflict"
	"github.com/tsinghua-fib-lab/agentsociety-driver/entity/parameters"
	"gopkg.in/yaml.v2"
)

var (
	ErrUnknownParameter = errors.New("unknown driver parameter")
	ErrBadConfig        = errors.New("bad config")
)

const (
	defaultVehicleLength = 5.0
	defaultVehicleWidth  = 2.0
)

var rules = map[string]conflict.Rule{
	"priority": conflict.Priority,
	"yield":    conflict.Yield,
	"stop":     conflict.Stop,
	"all_stop": conflict.AllStop,
}

// Parse 解析YAML配置
// 说明：使用严格模式，未知字段视为错误
func Parse(data []byte) (Config, error) {
	var c Config
	if err := yaml.UnmarshalStrict(data, &c); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrBadConfig, err)
	}
	return c, nil
}

// RuntimeConfig 运行时配置
// 功能：存储经过校验与默认值填充的配置，以及由配置构造的驾驶员基础参数
type RuntimeConfig struct {
	All Config  // 全部配置
	C   Control // 全局控制配置

	Parameters *parameters.Parameters // 驾驶员基础参数（默认值+覆盖）
	MinorRule  conflict.Rule          // 次路规则
	MajorRule  conflict.Rule          // 主路规则
}

// NewRuntimeConfig 根据配置初始化运行时配置
// 功能：校验配置，填充默认值，构造驾驶员基础参数
// 参数：config-原始配置对象
// 返回：运行时配置；参数未知、违反约束或规则未知时返回错误
// 算法说明：
// 1. 步长必须为正，子循环数默认为1
// 2. 参数覆盖按标识排序后逐一应用，保证错误信息可复现
// 3. 全向停车时主路同样为全向停车，其他情况下主路为优先
func NewRuntimeConfig(config Config) (*RuntimeConfig, error) {
	if config.Control.Step.Interval <= 0 || config.Control.Step.Total <= 0 {
		return nil, fmt.Errorf("%w: step interval and total must be positive", ErrBadConfig)
	}
	if config.Control.Step.Subloop <= 0 {
		config.Control.Step.Subloop = 1
	}
	if config.Driver.Length <= 0 {
		config.Driver.Length = defaultVehicleLength
	}
	if config.Driver.Width <= 0 {
		config.Driver.Width = defaultVehicleWidth
	}
	p, err := ApplyParameters(parameters.Default(), config.Driver.Parameters)
	if err != nil {
		return nil, err
	}
	rule, ok := rules[config.Scenario.Rule]
	if !ok {
		return nil, fmt.Errorf("%w: rule %q must be one of %v", ErrBadConfig, config.Scenario.Rule, lo.Keys(rules))
	}
	major := conflict.Priority
	if rule == conflict.AllStop {
		major = conflict.AllStop
	}
	return &RuntimeConfig{
		All:        config,
		C:          config.Control,
		Parameters: p,
		MinorRule:  rule,
		MajorRule:  major,
	}, nil
}

// ApplyParameters 在基础参数上应用覆盖
// 返回：新的参数集合，base不受影响
func ApplyParameters(base *parameters.Parameters, overrides map[string]float64) (*parameters.Parameters, error) {
	p := base.Clone()
	ids := lo.Keys(overrides)
	sort.Strings(ids)
	for _, id := range ids {
		t, ok := parameters.ByID(id)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownParameter, id)
		}
		if err := p.Set(t, overrides[id]); err != nil {
			return nil, err
		}
	}
	return p, nil
}
