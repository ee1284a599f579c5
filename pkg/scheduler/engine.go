// Package scheduler 排班引擎：把输入快照编译为约束模型，
// 交给求解器搜索，再把取值展开为排班结果表。
package scheduler

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/labroster/labroster/pkg/calendar"
	"github.com/labroster/labroster/pkg/effort"
	"github.com/labroster/labroster/pkg/errors"
	"github.com/labroster/labroster/pkg/logger"
	"github.com/labroster/labroster/pkg/model"
	"github.com/labroster/labroster/pkg/policy"
	"github.com/labroster/labroster/pkg/scheduler/cpmodel"
	"github.com/labroster/labroster/pkg/scheduler/rules"
	"github.com/labroster/labroster/pkg/scheduler/solver"
)

// Inputs 一次排班运行的输入快照，运行期间不可变
type Inputs struct {
	Staff        []*model.StaffMember
	Shifts       []*model.ShiftDefinition
	Availability model.AvailabilityOracle
}

// RunOutput 一次排班运行的产出
type RunOutput struct {
	Result      model.ScheduleResult `json:"result"`
	Status      model.SolveStatus    `json:"status"`
	Diagnostics model.RunDiagnostics `json:"diagnostics"`
}

// Engine 排班引擎
type Engine struct {
	policy *policy.Policy
	effort *effort.Map
	solver cpmodel.Solver
	log    *logger.EngineLogger
}

// New 创建排班引擎。policy、effort、s 为 nil 时使用默认实现。
func New(pol *policy.Policy, eff *effort.Map, s cpmodel.Solver) *Engine {
	if pol == nil {
		pol = policy.Default()
	}
	if eff == nil {
		eff = effort.Empty()
	}
	if s == nil {
		s = solver.New(nil)
	}
	return &Engine{
		policy: pol,
		effort: eff,
		solver: s,
		log:    logger.NewEngineLogger(),
	}
}

// Generate 生成排班。区间无效时返回错误；
// 求解不可行或被中断不是错误，体现在 Status 与空结果上。
func (e *Engine) Generate(ctx context.Context, in Inputs, req model.GenerateRequest) (*RunOutput, error) {
	if in.Availability == nil {
		in.Availability = model.NewAvailabilitySet(nil)
	}

	cal, err := calendar.Expand(req.Range, req.EbusFriday)
	if err != nil {
		return nil, err
	}

	runID := uuid.New().String()
	e.log.StartRun(runID, len(in.Staff), len(in.Shifts), cal.Len())

	out := &RunOutput{Result: model.ScheduleResult{}}
	pins := e.validatePins(cal, in, req.Pins, &out.Diagnostics)

	rctx := rules.NewContext(cal, in.Staff, in.Shifts, in.Availability, e.effort, pins, e.policy)
	if err := rules.DefaultRegistry(e.policy).Apply(rctx); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "规则编译失败")
	}

	for _, cell := range rctx.Unfillable() {
		e.log.CellUnfillable(cell.Date, cell.Shift, true)
		out.Diagnostics.UnfillableCells = append(out.Diagnostics.UnfillableCells, cell)
	}

	sol, err := e.solver.Solve(ctx, rctx.Model)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "求解失败")
	}
	out.Status = sol.Status
	out.Diagnostics.SolveDuration = sol.Duration
	out.Diagnostics.Objective = sol.Objective
	out.Diagnostics.Iterations = sol.Statistics.Iterations

	if !sol.Status.Solved() {
		e.log.RunComplete(runID, string(sol.Status), sol.Duration, sol.Objective)
		return out, nil
	}

	out.Result = e.extract(rctx, sol.Assignment)
	e.auditTraining(rctx, out)
	for _, check := range rctx.Diagnostics() {
		check(sol.Assignment, &out.Diagnostics)
	}

	e.log.RunComplete(runID, string(sol.Status), sol.Duration, sol.Objective)
	return out, nil
}

// validatePins 过滤无效的手工指派并记录诊断。
// 日期不在区间内、班次或人员不在目录中的指派被跳过，剩余指派全部生效。
func (e *Engine) validatePins(cal *calendar.Calendar, in Inputs, pins []model.Pin, diag *model.RunDiagnostics) model.PinSet {
	staffKnown := make(map[string]bool, len(in.Staff))
	for _, st := range in.Staff {
		staffKnown[st.Initials] = true
	}
	shiftKnown := make(map[string]bool, len(in.Shifts))
	for _, sh := range in.Shifts {
		shiftKnown[sh.Name] = true
	}

	valid := make([]model.Pin, 0, len(pins))
	for _, p := range pins {
		reason := ""
		switch {
		case !cal.Contains(p.Date):
			reason = fmt.Sprintf("日期 %s 不是区间内的工作日", p.Date)
		case !shiftKnown[p.Shift]:
			reason = fmt.Sprintf("班次 %s 不在目录中", p.Shift)
		case !staffKnown[p.Initials]:
			reason = fmt.Sprintf("人员 %s 不在名单中", p.Initials)
		}
		if reason != "" {
			e.log.PinSkipped(p.Date, p.Shift, p.Initials, reason)
			diag.SkippedPins = append(diag.SkippedPins, model.SkippedPin{Pin: p, Reason: reason})
			continue
		}
		valid = append(valid, p)
	}
	return model.NewPinSet(valid)
}

// extract 把求解取值展开为结果表。
// 每个工作日包含当日出现的班次行，被钉选的班次即使当日不出现也入行；
// 没有真值变量的行记为 Unassigned。
func (e *Engine) extract(rctx *rules.Context, a *cpmodel.Assignment) model.ScheduleResult {
	result := make(model.ScheduleResult, rctx.Cal.Len())
	for d := 0; d < rctx.Cal.Len(); d++ {
		day := rctx.Cal.Day(d)
		rows := make([]model.AssignmentRecord, 0, len(rctx.Shifts))
		for s, sh := range rctx.Shifts {
			_, pinned := rctx.IsPinned(d, s)
			if !sh.RecursOn(day.Weekday) && !pinned {
				continue
			}

			assigned := model.Unassigned
			for idx := range rctx.Staff {
				if a.True(rctx.Var(d, s, idx)) {
					assigned = rctx.Staff[idx].Initials
					break
				}
			}
			rows = append(rows, model.AssignmentRecord{
				Shift:         sh.Name,
				AssignedTo:    assigned,
				Role:          sh.RoleRequired,
				IsFlexible:    sh.IsFlexible,
				CanRemainOpen: sh.CanRemainOpen,
			})
		}
		result[day.DateStr] = rows
	}
	return result
}

// auditTraining 求解后复查结果中的培训资质，发现违反时
// 记错误日志并写入诊断，不回滚结果
func (e *Engine) auditTraining(rctx *rules.Context, out *RunOutput) {
	for d := 0; d < rctx.Cal.Len(); d++ {
		date := rctx.Cal.Day(d).DateStr
		for _, row := range out.Result[date] {
			if row.AssignedTo == model.Unassigned {
				continue
			}
			idx := rctx.StaffIndex(row.AssignedTo)
			if idx < 0 {
				continue
			}
			if !rctx.Staff[idx].IsTrainedFor(row.Shift) {
				e.log.UntrainedAssignment(date, row.Shift, row.AssignedTo)
				out.Diagnostics.Untrained = append(out.Diagnostics.Untrained, model.CellRef{
					Date:  date,
					Shift: row.Shift,
				})
			}
		}
	}
}
