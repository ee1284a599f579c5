package rules

import (
	"fmt"

	"github.com/labroster/labroster/pkg/model"
	"github.com/labroster/labroster/pkg/policy"
	"github.com/labroster/labroster/pkg/scheduler/cpmodel"
)

// WeeklyTargetRule 周目标：指定人员在指定班次上每周应达到
// 目标次数，偏离按绝对值计罚。目标可随休假日递减。
type WeeklyTargetRule struct {
	BaseRule
	targets []policy.WeeklyTargetRule
}

// NewWeeklyTargetRule 创建周目标规则
func NewWeeklyTargetRule(targets []policy.WeeklyTargetRule, weight int) *WeeklyTargetRule {
	return &WeeklyTargetRule{
		BaseRule: NewBaseRule("周目标", TypeWeeklyTarget, model.ConstraintSoft, weight),
		targets:  targets,
	}
}

// Apply 实现 Rule
func (r *WeeklyTargetRule) Apply(ctx *Context) error {
	if r.Weight() == 0 {
		return nil
	}
	type weekTarget struct {
		vars   []cpmodel.Var
		target int
	}
	var checks []weekTarget
	for _, entry := range r.targets {
		e := ctx.StaffIndex(entry.Staff)
		s := ctx.ShiftIndex(entry.Shift)
		if e < 0 || s < 0 {
			continue
		}
		for _, week := range ctx.Cal.Weeks() {
			target := entry.PerWeek
			if entry.ReduceByHolidays {
				target -= ctx.HolidaysInWeek(week)
				if target < 0 {
					target = 0
				}
			}
			days := ctx.Cal.DayIndexesOfWeek(week)
			vars := make([]cpmodel.Var, 0, len(days))
			for _, d := range days {
				vars = append(vars, ctx.Var(d, s, e))
			}
			checks = append(checks, weekTarget{vars: vars, target: target})
		}
	}
	if len(checks) == 0 {
		return nil
	}

	ctx.Model.AddPenalty(cpmodel.NewPenalty("weekly_target", r.Weight(), func(a *cpmodel.Assignment) int {
		n := 0
		for _, c := range checks {
			diff := a.CountTrue(c.vars) - c.target
			if diff < 0 {
				diff = -diff
			}
			n += diff
		}
		return n
	}))
	return nil
}

// PreferenceMinimumRule 偏好下限：指定人员在指定班次上每周
// 希望达到的最低次数，只罚不足，不罚超出。每条偏好独立计权。
type PreferenceMinimumRule struct {
	BaseRule
	prefs []policy.PreferenceRule
}

// NewPreferenceMinimumRule 创建偏好下限规则
func NewPreferenceMinimumRule(prefs []policy.PreferenceRule) *PreferenceMinimumRule {
	weight := 0
	for _, p := range prefs {
		if p.Weight > weight {
			weight = p.Weight
		}
	}
	return &PreferenceMinimumRule{
		BaseRule: NewBaseRule("偏好下限", TypePreferenceMinimum, model.ConstraintSoft, weight),
		prefs:    prefs,
	}
}

// Apply 实现 Rule
func (r *PreferenceMinimumRule) Apply(ctx *Context) error {
	for _, entry := range r.prefs {
		if entry.Weight == 0 {
			continue
		}
		e := ctx.StaffIndex(entry.Staff)
		s := ctx.ShiftIndex(entry.Shift)
		if e < 0 || s < 0 {
			continue
		}

		type weekMin struct {
			vars   []cpmodel.Var
			target int
		}
		var checks []weekMin
		for _, week := range ctx.Cal.Weeks() {
			target := entry.MinPerWeek
			if entry.ReduceByHolidays {
				target -= ctx.HolidaysInWeek(week)
				if target < 0 {
					target = 0
				}
			}
			days := ctx.Cal.DayIndexesOfWeek(week)
			vars := make([]cpmodel.Var, 0, len(days))
			for _, d := range days {
				vars = append(vars, ctx.Var(d, s, e))
			}
			checks = append(checks, weekMin{vars: vars, target: target})
		}

		name := fmt.Sprintf("preference/%s/%s", entry.Staff, entry.Shift)
		ctx.Model.AddPenalty(cpmodel.NewPenalty(name, entry.Weight, func(a *cpmodel.Assignment) int {
			n := 0
			for _, c := range checks {
				if shortfall := c.target - a.CountTrue(c.vars); shortfall > 0 {
					n += shortfall
				}
			}
			return n
		}))
	}
	return nil
}

// QualityNudgeRule 质量引导：对指定班次的每次排入计小额惩罚，
// 引导搜索在无其他代价时倾向保持空置
type QualityNudgeRule struct {
	BaseRule
	nudges []policy.QualityNudgeRule
}

// NewQualityNudgeRule 创建质量引导规则
func NewQualityNudgeRule(nudges []policy.QualityNudgeRule) *QualityNudgeRule {
	weight := 0
	for _, n := range nudges {
		if n.Weight > weight {
			weight = n.Weight
		}
	}
	return &QualityNudgeRule{
		BaseRule: NewBaseRule("质量引导", TypeQualityNudge, model.ConstraintSoft, weight),
		nudges:   nudges,
	}
}

// Apply 实现 Rule
func (r *QualityNudgeRule) Apply(ctx *Context) error {
	for _, nudge := range r.nudges {
		if nudge.Weight == 0 {
			continue
		}
		s := ctx.ShiftIndex(nudge.Shift)
		if s < 0 {
			continue
		}
		var vars []cpmodel.Var
		for d := 0; d < ctx.Cal.Len(); d++ {
			vars = append(vars, ctx.CellVars(d, s)...)
		}

		name := fmt.Sprintf("quality_nudge/%s", nudge.Shift)
		ctx.Model.AddPenalty(cpmodel.NewPenalty(name, nudge.Weight, func(a *cpmodel.Assignment) int {
			return a.CountTrue(vars)
		}))
	}
	return nil
}
