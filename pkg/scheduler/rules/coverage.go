package rules

import (
	"fmt"

	"github.com/labroster/labroster/pkg/model"
	"github.com/labroster/labroster/pkg/policy"
	"github.com/labroster/labroster/pkg/scheduler/cpmodel"
)

// CoverageRule 单元格覆盖规则：班次当日出现且非休假日时，
// 强制班次恰好一人、可选班次至多一人；其余日期全部置空。
// 钉选单元格与双人轮换班次由各自规则处理。
type CoverageRule struct {
	BaseRule
}

// NewCoverageRule 创建覆盖规则
func NewCoverageRule() *CoverageRule {
	return &CoverageRule{
		BaseRule: NewBaseRule("单元格覆盖约束", TypeCoverage, model.ConstraintHard, 0),
	}
}

// Apply 实现 Rule
func (r *CoverageRule) Apply(ctx *Context) error {
	for d := 0; d < ctx.Cal.Len(); d++ {
		day := ctx.Cal.Day(d)
		holiday := ctx.Oracle.IsHoliday(day.DateStr)

		for s, sh := range ctx.Shifts {
			if ctx.DualCovered(sh.Name) {
				continue
			}
			if _, pinned := ctx.IsPinned(d, s); pinned {
				continue
			}

			if !sh.RecursOn(day.Weekday) || holiday {
				for _, v := range ctx.CellVars(d, s) {
					ctx.Model.FixFalse(v)
				}
				continue
			}

			name := fmt.Sprintf("cell/%s/%s", day.DateStr, sh.Name)
			if sh.IsMandatory() {
				ctx.Model.AddExactlyOne(name, ctx.CellVars(d, s))
				if !ctx.HasCandidates(d, s) {
					ctx.MarkUnfillable(d, s)
				}
			} else {
				ctx.Model.AddAtMostOne(name, ctx.CellVars(d, s))
				ctx.AddOptionalCell(ctx.CellVars(d, s))
			}
		}
	}
	return nil
}

// DualCoverageRule 双人轮换覆盖：指定班次每个出现日
// 恰好由两人名单中的一人承担，其余人员全部排除。
type DualCoverageRule struct {
	BaseRule
	shift string
	pair  []string
}

// NewDualCoverageRule 创建双人轮换覆盖规则
func NewDualCoverageRule(cfg policy.DualCoverageRule) *DualCoverageRule {
	return &DualCoverageRule{
		BaseRule: NewBaseRule("双人轮换覆盖约束", TypeDualCoverage, model.ConstraintHard, 0),
		shift:    cfg.Shift,
		pair:     cfg.Pair,
	}
}

// Apply 实现 Rule
func (r *DualCoverageRule) Apply(ctx *Context) error {
	s := ctx.ShiftIndex(r.shift)
	if s < 0 {
		return nil
	}
	sh := ctx.Shifts[s]

	pairIdx := make(map[int]bool, len(r.pair))
	for _, initials := range r.pair {
		if e := ctx.StaffIndex(initials); e >= 0 {
			pairIdx[e] = true
		}
	}

	for d := 0; d < ctx.Cal.Len(); d++ {
		day := ctx.Cal.Day(d)
		if _, pinned := ctx.IsPinned(d, s); pinned {
			continue
		}
		if !sh.RecursOn(day.Weekday) || ctx.Oracle.IsHoliday(day.DateStr) {
			for _, v := range ctx.CellVars(d, s) {
				ctx.Model.FixFalse(v)
			}
			continue
		}

		vars := make([]cpmodel.Var, 0, len(pairIdx))
		for e := range ctx.Staff {
			v := ctx.Var(d, s, e)
			if pairIdx[e] {
				vars = append(vars, v)
			} else {
				ctx.Model.FixFalse(v)
			}
		}

		name := fmt.Sprintf("dual/%s/%s", day.DateStr, r.shift)
		ctx.Model.AddExactlyOne(name, vars)
		if len(vars) == 0 {
			ctx.MarkUnfillable(d, s)
		}
	}
	return nil
}

// UnfilledOptionalRule 可选单元格空置惩罚
type UnfilledOptionalRule struct {
	BaseRule
}

// NewUnfilledOptionalRule 创建空置惩罚规则
func NewUnfilledOptionalRule(weight int) *UnfilledOptionalRule {
	return &UnfilledOptionalRule{
		BaseRule: NewBaseRule("可选班次空置惩罚", TypeUnfilledOptional, model.ConstraintSoft, weight),
	}
}

// Apply 实现 Rule
func (r *UnfilledOptionalRule) Apply(ctx *Context) error {
	cells := ctx.OptionalCells()
	if len(cells) == 0 || r.Weight() == 0 {
		return nil
	}
	ctx.Model.AddPenalty(cpmodel.NewPenalty("unfilled_optional", r.Weight(), func(a *cpmodel.Assignment) int {
		n := 0
		for _, vars := range cells {
			if a.CountTrue(vars) == 0 {
				n++
			}
		}
		return n
	}))
	return nil
}
