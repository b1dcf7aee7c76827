// 驾驶员参数：参数类型定义、默认值、取值约束与按参数类型读取
package parameters

import (
	"errors"
	"fmt"
	"sort"

	"github.com/samber/lo"
)

var (
	// ErrMissingParameter 读取了未设置的必需参数
	ErrMissingParameter = errors.New("missing parameter")
	// ErrConstraint 参数值违反取值约束
	ErrConstraint = errors.New("parameter constraint violated")
)

// Constraint 参数取值约束
type Constraint int

const (
	None         Constraint = iota // 无约束
	Positive                       // > 0
	PositiveZero                   // >= 0
	UnitInterval                   // [0, 1]
)

// check 检查取值是否满足约束
func (c Constraint) check(v float64) bool {
	switch c {
	case Positive:
		return v > 0
	case PositiveZero:
		return v >= 0
	case UnitInterval:
		return v >= 0 && v <= 1
	default:
		return true
	}
}

func (c Constraint) String() string {
	switch c {
	case Positive:
		return "> 0"
	case PositiveZero:
		return ">= 0"
	case UnitInterval:
		return "in [0, 1]"
	default:
		return "any"
	}
}

// ParameterType 参数类型
// 功能：描述一个标量参数的标识、含义、单位、默认值与取值约束
type ParameterType struct {
	ID          string
	Description string
	Unit        string
	Default     float64
	Constraint  Constraint
}

func (t *ParameterType) String() string {
	return t.ID
}

// Parameters 一个驾驶员的参数集合
// 说明：集合只在创建与配置阶段写入；每一步计算中只读，可被同一驾驶员的各模块共享
type Parameters struct {
	values map[string]float64
}

// New 创建空参数集合（所有参数均未设置）
func New() *Parameters {
	return &Parameters{values: make(map[string]float64)}
}

// Default 创建包含全部已登记参数默认值的集合
func Default() *Parameters {
	p := New()
	for _, t := range registry {
		p.values[t.ID] = t.Default
	}
	return p
}

// Set 设置参数值
// 返回：违反约束时返回包装了ErrConstraint的错误，原值不变
func (p *Parameters) Set(t *ParameterType, v float64) error {
	if !t.Constraint.check(v) {
		return fmt.Errorf("%w: %s=%v must be %v", ErrConstraint, t.ID, v, t.Constraint)
	}
	p.values[t.ID] = v
	return nil
}

// Get 读取参数值
// 返回：未设置时返回包装了ErrMissingParameter的错误
func (p *Parameters) Get(t *ParameterType) (float64, error) {
	if p == nil {
		return 0, fmt.Errorf("%w: %s (no parameters)", ErrMissingParameter, t.ID)
	}
	v, ok := p.values[t.ID]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrMissingParameter, t.ID)
	}
	return v, nil
}

// Has 参数是否已设置
func (p *Parameters) Has(t *ParameterType) bool {
	if p == nil {
		return false
	}
	_, ok := p.values[t.ID]
	return ok
}

// With 返回一个覆盖了某个参数的副本
// 功能：用于临时替换参数（如在冲突前停车时用S0_CONF替代S0），原集合不受影响
func (p *Parameters) With(t *ParameterType, v float64) *Parameters {
	c := &Parameters{values: make(map[string]float64, len(p.values)+1)}
	for k, x := range p.values {
		c.values[k] = x
	}
	c.values[t.ID] = v
	return c
}

// Clone 复制参数集合
func (p *Parameters) Clone() *Parameters {
	c := New()
	for k, x := range p.values {
		c.values[k] = x
	}
	return c
}

// IDs 已设置的参数标识（排序后）
func (p *Parameters) IDs() []string {
	ids := lo.Keys(p.values)
	sort.Strings(ids)
	return ids
}

// GetMany 依次读取多个参数
// 返回：与参数类型顺序一致的取值，任一参数缺失时返回错误
func (p *Parameters) GetMany(ts ...*ParameterType) ([]float64, error) {
	out := make([]float64, len(ts))
	for i, t := range ts {
		v, err := p.Get(t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
