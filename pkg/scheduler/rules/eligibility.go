package rules

import (
	"fmt"

	"github.com/labroster/labroster/pkg/model"
	"github.com/labroster/labroster/pkg/scheduler/cpmodel"
)

// EligibilityRule 资格过滤：未钉选单元格里不合格的人员变量固定为假
type EligibilityRule struct {
	BaseRule
}

// NewEligibilityRule 创建资格过滤规则
func NewEligibilityRule() *EligibilityRule {
	return &EligibilityRule{
		BaseRule: NewBaseRule("资格过滤约束", TypeEligibility, model.ConstraintHard, 0),
	}
}

// Apply 实现 Rule
func (r *EligibilityRule) Apply(ctx *Context) error {
	for d := 0; d < ctx.Cal.Len(); d++ {
		for s := range ctx.Shifts {
			if _, pinned := ctx.IsPinned(d, s); pinned {
				continue
			}
			for e := range ctx.Staff {
				if !ctx.Eligible(d, s, e) {
					ctx.Model.FixFalse(ctx.Var(d, s, e))
				}
			}
		}
	}
	return nil
}

// SingleShiftPerDayRule 每人每个工作日至多承担一个班次
type SingleShiftPerDayRule struct {
	BaseRule
}

// NewSingleShiftPerDayRule 创建单日单班规则
func NewSingleShiftPerDayRule() *SingleShiftPerDayRule {
	return &SingleShiftPerDayRule{
		BaseRule: NewBaseRule("单日单班约束", TypeSingleShiftPerDay, model.ConstraintHard, 0),
	}
}

// Apply 实现 Rule
func (r *SingleShiftPerDayRule) Apply(ctx *Context) error {
	if len(ctx.Shifts) < 2 {
		return nil
	}
	for d := 0; d < ctx.Cal.Len(); d++ {
		day := ctx.Cal.Day(d)
		for e, st := range ctx.Staff {
			vars := make([]cpmodel.Var, 0, len(ctx.Shifts))
			for s := range ctx.Shifts {
				vars = append(vars, ctx.Var(d, s, e))
			}
			name := fmt.Sprintf("one_per_day/%s/%s", st.Initials, day.DateStr)
			ctx.Model.AddSumAtMost(name, vars, 1)
		}
	}
	return nil
}

// PinRule 钉选固定：钉选单元格内被指名的人员固定为真，其余固定为假。
// 钉选支配整个单元格，日期与休假日条件在此被豁免。
type PinRule struct {
	BaseRule
}

// NewPinRule 创建钉选规则
func NewPinRule() *PinRule {
	return &PinRule{
		BaseRule: NewBaseRule("钉选固定约束", TypePinned, model.ConstraintHard, 0),
	}
}

// Apply 实现 Rule
func (r *PinRule) Apply(ctx *Context) error {
	for d := 0; d < ctx.Cal.Len(); d++ {
		for s := range ctx.Shifts {
			initials, pinned := ctx.IsPinned(d, s)
			if !pinned {
				continue
			}
			target := ctx.StaffIndex(initials)
			if target < 0 {
				continue
			}
			for e := range ctx.Staff {
				if e == target {
					ctx.Model.FixTrue(ctx.Var(d, s, e))
				} else {
					ctx.Model.FixFalse(ctx.Var(d, s, e))
				}
			}
		}
	}
	return nil
}
