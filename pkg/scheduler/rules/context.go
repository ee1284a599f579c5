package rules

import (
	"fmt"

	"github.com/labroster/labroster/pkg/calendar"
	"github.com/labroster/labroster/pkg/effort"
	"github.com/labroster/labroster/pkg/model"
	"github.com/labroster/labroster/pkg/policy"
	"github.com/labroster/labroster/pkg/scheduler/cpmodel"
	"github.com/labroster/labroster/pkg/scheduler/eligibility"
)

// DiagnosticFunc 求解后在最终取值上执行的检查
type DiagnosticFunc func(a *cpmodel.Assignment, out *model.RunDiagnostics)

// Context 规则编译上下文：持有约束模型、变量网格和输入快照。
// 变量按（工作日、班次、人员）三元组展开，键为人员序号，
// 供搜索阶段跨单元格匹配同一人。
type Context struct {
	Model  *cpmodel.Model
	Cal    *calendar.Calendar
	Staff  []*model.StaffMember
	Shifts []*model.ShiftDefinition
	Oracle model.AvailabilityOracle
	Effort *effort.Map
	Pins   model.PinSet
	Policy *policy.Policy
	Elig   *eligibility.Evaluator

	vars     [][][]cpmodel.Var // [工作日][班次][人员]
	staffIdx map[string]int
	shiftIdx map[string]int

	unfillable    []model.CellRef
	optionalCells [][]cpmodel.Var
	diagnostics   []DiagnosticFunc
}

// NewContext 创建编译上下文并生成全部变量
func NewContext(cal *calendar.Calendar, staff []*model.StaffMember, shifts []*model.ShiftDefinition,
	oracle model.AvailabilityOracle, eff *effort.Map, pins model.PinSet, pol *policy.Policy) *Context {

	if pins == nil {
		pins = model.PinSet{}
	}
	if eff == nil {
		eff = effort.Empty()
	}
	ctx := &Context{
		Model:    cpmodel.NewModel(),
		Cal:      cal,
		Staff:    staff,
		Shifts:   shifts,
		Oracle:   oracle,
		Effort:   eff,
		Pins:     pins,
		Policy:   pol,
		Elig:     eligibility.New(oracle, pins),
		staffIdx: make(map[string]int, len(staff)),
		shiftIdx: make(map[string]int, len(shifts)),
	}
	for e, st := range staff {
		ctx.staffIdx[st.Initials] = e
	}
	for s, sh := range shifts {
		ctx.shiftIdx[sh.Name] = s
	}

	ctx.vars = make([][][]cpmodel.Var, cal.Len())
	for d := 0; d < cal.Len(); d++ {
		day := cal.Day(d)
		ctx.vars[d] = make([][]cpmodel.Var, len(shifts))
		for s, sh := range shifts {
			ctx.vars[d][s] = make([]cpmodel.Var, len(staff))
			for e, st := range staff {
				name := fmt.Sprintf("%s/%s/%s", day.DateStr, sh.Name, st.Initials)
				ctx.vars[d][s][e] = ctx.Model.NewBool(name, e)
			}
		}
	}
	return ctx
}

// Var 返回（工作日 d、班次 s、人员 e）对应的变量
func (c *Context) Var(d, s, e int) cpmodel.Var {
	return c.vars[d][s][e]
}

// CellVars 返回单元格（工作日 d、班次 s）的全部人员变量
func (c *Context) CellVars(d, s int) []cpmodel.Var {
	return c.vars[d][s]
}

// StaffIndex 返回人员序号，未知时返回 -1
func (c *Context) StaffIndex(initials string) int {
	if i, ok := c.staffIdx[initials]; ok {
		return i
	}
	return -1
}

// ShiftIndex 返回班次序号，未知时返回 -1
func (c *Context) ShiftIndex(name string) int {
	if i, ok := c.shiftIdx[name]; ok {
		return i
	}
	return -1
}

// StaffVars 返回人员 e 在全部单元格中的变量
func (c *Context) StaffVars(e int) []cpmodel.Var {
	out := make([]cpmodel.Var, 0, c.Cal.Len()*len(c.Shifts))
	for d := range c.vars {
		for s := range c.vars[d] {
			out = append(out, c.vars[d][s][e])
		}
	}
	return out
}

// IsPinned 查询单元格是否被钉选，返回钉选的人员缩写
func (c *Context) IsPinned(d, s int) (string, bool) {
	initials, ok := c.Pins[model.CellRef{Date: c.Cal.Day(d).DateStr, Shift: c.Shifts[s].Name}]
	return initials, ok
}

// Eligible 判定人员 e 能否承担单元格（d、s）
func (c *Context) Eligible(d, s, e int) bool {
	return c.Elig.Eligible(c.Cal.Day(d), c.Shifts[s], c.Staff[e]).OK
}

// HasCandidates 判定单元格是否存在合格人选
func (c *Context) HasCandidates(d, s int) bool {
	for e := range c.Staff {
		if c.Eligible(d, s, e) {
			return true
		}
	}
	return false
}

// HolidaysInWeek 返回某 ISO 周内的全体休假日数
func (c *Context) HolidaysInWeek(week int) int {
	n := 0
	for _, d := range c.Cal.DayIndexesOfWeek(week) {
		if c.Oracle.IsHoliday(c.Cal.Day(d).DateStr) {
			n++
		}
	}
	return n
}

// DualCovered 判定班次是否由双人轮换规则覆盖
func (c *Context) DualCovered(shiftName string) bool {
	return c.Policy != nil && c.Policy.DualCoverage != nil && c.Policy.DualCoverage.Shift == shiftName
}

// MarkUnfillable 登记无合格人选的强制单元格
func (c *Context) MarkUnfillable(d, s int) {
	c.unfillable = append(c.unfillable, model.CellRef{
		Date:  c.Cal.Day(d).DateStr,
		Shift: c.Shifts[s].Name,
	})
}

// Unfillable 返回登记的不可填单元格
func (c *Context) Unfillable() []model.CellRef {
	return c.unfillable
}

// AddOptionalCell 登记可选单元格的变量组，供空置惩罚使用
func (c *Context) AddOptionalCell(vars []cpmodel.Var) {
	c.optionalCells = append(c.optionalCells, vars)
}

// OptionalCells 返回全部可选单元格的变量组
func (c *Context) OptionalCells() [][]cpmodel.Var {
	return c.optionalCells
}

// AddDiagnostic 登记求解后检查
func (c *Context) AddDiagnostic(fn DiagnosticFunc) {
	c.diagnostics = append(c.diagnostics, fn)
}

// Diagnostics 返回全部求解后检查
func (c *Context) Diagnostics() []DiagnosticFunc {
	return c.diagnostics
}
