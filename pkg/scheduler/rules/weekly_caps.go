package rules

import (
	"fmt"

	"github.com/labroster/labroster/pkg/model"
	"github.com/labroster/labroster/pkg/policy"
	"github.com/labroster/labroster/pkg/scheduler/cpmodel"
)

// HighSkillCapRule 高技能班次周上限：声明的班次每人每周
// 至多承担规定的次数
type HighSkillCapRule struct {
	BaseRule
	caps []policy.HighSkillCapRule
}

// NewHighSkillCapRule 创建高技能周上限规则
func NewHighSkillCapRule(caps []policy.HighSkillCapRule) *HighSkillCapRule {
	return &HighSkillCapRule{
		BaseRule: NewBaseRule("高技能周上限约束", TypeHighSkillCap, model.ConstraintHard, 0),
		caps:     caps,
	}
}

// Apply 实现 Rule
func (r *HighSkillCapRule) Apply(ctx *Context) error {
	for _, entry := range r.caps {
		s := ctx.ShiftIndex(entry.Shift)
		if s < 0 {
			continue
		}
		for e, st := range ctx.Staff {
			for _, week := range ctx.Cal.Weeks() {
				days := ctx.Cal.DayIndexesOfWeek(week)
				vars := make([]cpmodel.Var, 0, len(days))
				for _, d := range days {
					vars = append(vars, ctx.Var(d, s, e))
				}
				name := fmt.Sprintf("high_skill/%s/%s/w%d", entry.Shift, st.Initials, week)
				ctx.Model.AddSumAtMost(name, vars, entry.PerWeek)
			}
		}
	}
	return nil
}

// WeeklyCapRule 周总量上限。只做诊断：超量以 WeeklyOverage
// 形式报告，不进入模型，也不影响求解状态。
type WeeklyCapRule struct {
	BaseRule
	cap policy.WeeklyCapPolicy
}

// NewWeeklyCapRule 创建周总量诊断规则
func NewWeeklyCapRule(cap policy.WeeklyCapPolicy) *WeeklyCapRule {
	return &WeeklyCapRule{
		BaseRule: NewBaseRule("周总量诊断", TypeWeeklyCap, model.ConstraintDiagnostic, 0),
		cap:      cap,
	}
}

// Apply 实现 Rule
func (r *WeeklyCapRule) Apply(ctx *Context) error {
	type staffWeek struct {
		initials string
		week     int
		limit    int
		vars     []cpmodel.Var
	}

	var checks []staffWeek
	for _, week := range ctx.Cal.Weeks() {
		limit := r.cap.Limit
		if r.cap.ReduceByHolidays {
			limit -= ctx.HolidaysInWeek(week)
			if limit < 0 {
				limit = 0
			}
		}
		days := ctx.Cal.DayIndexesOfWeek(week)
		for e, st := range ctx.Staff {
			vars := make([]cpmodel.Var, 0, len(days)*len(ctx.Shifts))
			for _, d := range days {
				for s := range ctx.Shifts {
					vars = append(vars, ctx.Var(d, s, e))
				}
			}
			checks = append(checks, staffWeek{st.Initials, week, limit, vars})
		}
	}

	ctx.AddDiagnostic(func(a *cpmodel.Assignment, out *model.RunDiagnostics) {
		for _, c := range checks {
			if count := a.CountTrue(c.vars); count > c.limit {
				out.WeeklyOverages = append(out.WeeklyOverages, model.WeeklyOverage{
					Initials: c.initials,
					Week:     c.week,
					Count:    count,
					Limit:    c.limit,
				})
			}
		}
	})
	return nil
}
