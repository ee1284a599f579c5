package rules

import (
	"github.com/labroster/labroster/pkg/model"
	"github.com/labroster/labroster/pkg/scheduler/cpmodel"
)

// CountFairnessRule 班次数公平：惩罚全员班次数的最大最小差
type CountFairnessRule struct {
	BaseRule
}

// NewCountFairnessRule 创建班次数公平规则
func NewCountFairnessRule(weight int) *CountFairnessRule {
	return &CountFairnessRule{
		BaseRule: NewBaseRule("班次数公平", TypeCountFairness, model.ConstraintSoft, weight),
	}
}

// Apply 实现 Rule
func (r *CountFairnessRule) Apply(ctx *Context) error {
	if len(ctx.Staff) < 2 || r.Weight() == 0 {
		return nil
	}
	staffVars := make([][]cpmodel.Var, len(ctx.Staff))
	for e := range ctx.Staff {
		staffVars[e] = ctx.StaffVars(e)
	}
	ctx.Model.AddPenalty(cpmodel.NewPenalty("count_fairness", r.Weight(), func(a *cpmodel.Assignment) int {
		return spread(a, staffVars)
	}))
	return nil
}

// EffortFairnessRule 工作量公平：多面手子群体内
// 按工作量点数惩罚最大最小差
type EffortFairnessRule struct {
	BaseRule
	threshold int
}

// NewEffortFairnessRule 创建工作量公平规则
func NewEffortFairnessRule(threshold, weight int) *EffortFairnessRule {
	return &EffortFairnessRule{
		BaseRule:  NewBaseRule("工作量公平", TypeEffortFairness, model.ConstraintSoft, weight),
		threshold: threshold,
	}
}

// effortEntry 变量与其工作量点数
type effortEntry struct {
	v cpmodel.Var
	w int
}

// Apply 实现 Rule
func (r *EffortFairnessRule) Apply(ctx *Context) error {
	if r.Weight() == 0 {
		return nil
	}
	var entries [][]effortEntry
	for e, st := range ctx.Staff {
		if !st.IsVersatile(r.threshold) {
			continue
		}
		var list []effortEntry
		for d := 0; d < ctx.Cal.Len(); d++ {
			day := ctx.Cal.Day(d)
			for s, sh := range ctx.Shifts {
				list = append(list, effortEntry{
					v: ctx.Var(d, s, e),
					w: ctx.Effort.Lookup(sh.Name, day.Label),
				})
			}
		}
		entries = append(entries, list)
	}
	if len(entries) < 2 {
		return nil
	}

	ctx.Model.AddPenalty(cpmodel.NewPenalty("effort_fairness", r.Weight(), func(a *cpmodel.Assignment) int {
		maxPts, minPts := 0, 0
		for i, list := range entries {
			pts := 0
			for _, en := range list {
				if a.True(en.v) {
					pts += en.w
				}
			}
			if i == 0 || pts > maxPts {
				maxPts = pts
			}
			if i == 0 || pts < minPts {
				minPts = pts
			}
		}
		return maxPts - minPts
	}))
	return nil
}

// CasualUsageRule 临时工使用惩罚：每派一次临时工计一次
type CasualUsageRule struct {
	BaseRule
}

// NewCasualUsageRule 创建临时工惩罚规则
func NewCasualUsageRule(weight int) *CasualUsageRule {
	return &CasualUsageRule{
		BaseRule: NewBaseRule("临时工使用惩罚", TypeCasualUsage, model.ConstraintSoft, weight),
	}
}

// Apply 实现 Rule
func (r *CasualUsageRule) Apply(ctx *Context) error {
	if r.Weight() == 0 {
		return nil
	}
	var casualVars []cpmodel.Var
	for e, st := range ctx.Staff {
		if st.IsCasual {
			casualVars = append(casualVars, ctx.StaffVars(e)...)
		}
	}
	if len(casualVars) == 0 {
		return nil
	}
	ctx.Model.AddPenalty(cpmodel.NewPenalty("casual_usage", r.Weight(), func(a *cpmodel.Assignment) int {
		return a.CountTrue(casualVars)
	}))
	return nil
}

// spread 计算各变量组真值数的最大最小差
func spread(a *cpmodel.Assignment, groups [][]cpmodel.Var) int {
	maxCount, minCount := 0, 0
	for i, vars := range groups {
		count := a.CountTrue(vars)
		if i == 0 || count > maxCount {
			maxCount = count
		}
		if i == 0 || count < minCount {
			minCount = count
		}
	}
	return maxCount - minCount
}
