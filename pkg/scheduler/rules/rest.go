package rules

import (
	"fmt"

	"github.com/labroster/labroster/pkg/model"
	"github.com/labroster/labroster/pkg/scheduler/cpmodel"
)

// HeavyRestRule 重负荷班次禁止连续：任何人在相邻两个工作日内
// 至多承担一次重负荷班次。工作日序列不含周末，
// 周五与下周一因此视为相邻。
type HeavyRestRule struct {
	BaseRule
	shifts []string
}

// NewHeavyRestRule 创建重负荷间隔规则
func NewHeavyRestRule(shifts []string) *HeavyRestRule {
	return &HeavyRestRule{
		BaseRule: NewBaseRule("重负荷间隔约束", TypeHeavyRest, model.ConstraintHard, 0),
		shifts:   shifts,
	}
}

// Apply 实现 Rule
func (r *HeavyRestRule) Apply(ctx *Context) error {
	heavyIdx := make([]int, 0, len(r.shifts))
	for _, name := range r.shifts {
		if s := ctx.ShiftIndex(name); s >= 0 {
			heavyIdx = append(heavyIdx, s)
		}
	}
	if len(heavyIdx) == 0 {
		return nil
	}

	for d := 0; d+1 < ctx.Cal.Len(); d++ {
		for e, st := range ctx.Staff {
			vars := make([]cpmodel.Var, 0, len(heavyIdx)*2)
			for _, s := range heavyIdx {
				vars = append(vars, ctx.Var(d, s, e), ctx.Var(d+1, s, e))
			}
			name := fmt.Sprintf("heavy_rest/%s/%s", st.Initials, ctx.Cal.Day(d).DateStr)
			ctx.Model.AddSumAtMost(name, vars, 1)
		}
	}
	return nil
}
