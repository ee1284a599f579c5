package rules

import (
	"github.com/labroster/labroster/pkg/model"
	"github.com/labroster/labroster/pkg/policy"
	"github.com/labroster/labroster/pkg/scheduler/cpmodel"
)

// VarietyRule 班次多样性：多面手一周内重复承担同一班次时，
// 超出首次的每次计罚一次
type VarietyRule struct {
	BaseRule
	threshold int
}

// NewVarietyRule 创建多样性规则
func NewVarietyRule(threshold, weight int) *VarietyRule {
	return &VarietyRule{
		BaseRule:  NewBaseRule("班次多样性", TypeVariety, model.ConstraintSoft, weight),
		threshold: threshold,
	}
}

// Apply 实现 Rule
func (r *VarietyRule) Apply(ctx *Context) error {
	if r.Weight() == 0 {
		return nil
	}
	var groups [][]cpmodel.Var
	for e, st := range ctx.Staff {
		if !st.IsVersatile(r.threshold) {
			continue
		}
		for _, week := range ctx.Cal.Weeks() {
			days := ctx.Cal.DayIndexesOfWeek(week)
			for s := range ctx.Shifts {
				vars := make([]cpmodel.Var, 0, len(days))
				for _, d := range days {
					vars = append(vars, ctx.Var(d, s, e))
				}
				groups = append(groups, vars)
			}
		}
	}
	if len(groups) == 0 {
		return nil
	}

	ctx.Model.AddPenalty(cpmodel.NewPenalty("shift_variety", r.Weight(), func(a *cpmodel.Assignment) int {
		n := 0
		for _, vars := range groups {
			if count := a.CountTrue(vars); count > 1 {
				n += count - 1
			}
		}
		return n
	}))
	return nil
}

// SpecialistOverloadRule 专科人员过载：指定角色在指定班次集合上
// 每周超过限额的部分计罚
type SpecialistOverloadRule struct {
	BaseRule
	cfg policy.OverloadRule
}

// NewSpecialistOverloadRule 创建专科过载规则
func NewSpecialistOverloadRule(cfg policy.OverloadRule, weight int) *SpecialistOverloadRule {
	return &SpecialistOverloadRule{
		BaseRule: NewBaseRule("专科人员过载", TypeSpecialistOverload, model.ConstraintSoft, weight),
		cfg:      cfg,
	}
}

// Apply 实现 Rule
func (r *SpecialistOverloadRule) Apply(ctx *Context) error {
	if r.Weight() == 0 {
		return nil
	}
	shiftIdx := make([]int, 0, len(r.cfg.Shifts))
	for _, name := range r.cfg.Shifts {
		if s := ctx.ShiftIndex(name); s >= 0 {
			shiftIdx = append(shiftIdx, s)
		}
	}
	if len(shiftIdx) == 0 {
		return nil
	}

	type weekLoad struct {
		vars  []cpmodel.Var
		limit int
	}
	var loads []weekLoad
	for e, st := range ctx.Staff {
		if st.Role != r.cfg.Role {
			continue
		}
		for _, week := range ctx.Cal.Weeks() {
			days := ctx.Cal.DayIndexesOfWeek(week)
			vars := make([]cpmodel.Var, 0, len(days)*len(shiftIdx))
			for _, d := range days {
				for _, s := range shiftIdx {
					vars = append(vars, ctx.Var(d, s, e))
				}
			}
			loads = append(loads, weekLoad{vars: vars, limit: r.cfg.PerWeek})
		}
	}
	if len(loads) == 0 {
		return nil
	}

	ctx.Model.AddPenalty(cpmodel.NewPenalty("specialist_overload", r.Weight(), func(a *cpmodel.Assignment) int {
		n := 0
		for _, load := range loads {
			if count := a.CountTrue(load.vars); count > load.limit {
				n += count - load.limit
			}
		}
		return n
	}))
	return nil
}
