// Package swap 评估并推荐排班结果上的换班操作。
// 评估基于冲突检测与公平性指标的前后对比，不重新求解。
package swap

import (
	"fmt"
	"math"

	"github.com/labroster/labroster/pkg/calendar"
	"github.com/labroster/labroster/pkg/effort"
	"github.com/labroster/labroster/pkg/model"
	"github.com/labroster/labroster/pkg/policy"
	"github.com/labroster/labroster/pkg/stats"
	"github.com/labroster/labroster/pkg/validator"
)

// Request 换班请求：把单元上的排班换给指定人员
type Request struct {
	Cell        model.CellRef `json:"cell"`
	Replacement string        `json:"replacement"`
	// 互换时对方让出的单元，原承担者将接手该单元
	CounterCell *model.CellRef `json:"counter_cell,omitempty"`
}

// Issue 换班引入的问题
type Issue struct {
	Type     string `json:"type"`
	Severity string `json:"severity"` // error/warning
	Message  string `json:"message"`
}

// Impact 换班对替换者与整体公平性的影响
type Impact struct {
	Previous       string  `json:"previous"`
	CountChange    int     `json:"count_change"`
	EffortChange   int     `json:"effort_change"`
	FairnessChange float64 `json:"fairness_change"` // 正值表示换班后更公平
}

// Evaluation 换班评估结果
type Evaluation struct {
	Feasible       bool    `json:"feasible"`
	Score          float64 `json:"score"` // 0-100
	Issues         []Issue `json:"issues"`
	Impact         *Impact `json:"impact,omitempty"`
	Recommendation string  `json:"recommendation"`
}

// Evaluator 换班评估器
type Evaluator struct {
	roster   []*model.StaffMember
	detector *validator.ConflictDetector
	fairness *stats.FairnessAnalyzer
	table    *effort.Map
}

// NewEvaluator 创建换班评估器，绑定策略、工作量表与名单
func NewEvaluator(pol *policy.Policy, table *effort.Map, staff []*model.StaffMember, shifts []*model.ShiftDefinition, oracle model.AvailabilityOracle) *Evaluator {
	if table == nil {
		table = effort.Empty()
	}
	return &Evaluator{
		roster:   staff,
		detector: validator.NewConflictDetector(pol, staff, shifts, oracle, nil),
		fairness: stats.NewFairnessAnalyzer(table),
		table:    table,
	}
}

// Evaluate 评估换班的可行性与影响
func (e *Evaluator) Evaluate(cal *calendar.Calendar, result model.ScheduleResult, req *Request) *Evaluation {
	eval := &Evaluation{Feasible: true, Issues: make([]Issue, 0)}

	previous, found := holderOf(result, req.Cell)
	if !found || req.Replacement == "" {
		eval.Feasible = false
		eval.Issues = append(eval.Issues, Issue{
			Type:     "invalid_request",
			Severity: validator.SeverityError,
			Message:  "换班请求不完整或单元不存在",
		})
		eval.Recommendation = recommendation(eval)
		return eval
	}
	if previous == req.Replacement {
		eval.Feasible = false
		eval.Issues = append(eval.Issues, Issue{
			Type:     "no_change",
			Severity: validator.SeverityError,
			Message:  fmt.Sprintf("替换者 %s 即为原承担者", req.Replacement),
		})
		eval.Recommendation = recommendation(eval)
		return eval
	}

	whatIf := e.ApplySwap(result, req)

	// 只关心换班新引入的冲突，原有冲突不归咎于本次操作
	before := e.detector.DetectAll(cal, result)
	after := e.detector.DetectAll(cal, whatIf)
	for _, c := range newConflicts(before, after) {
		eval.Issues = append(eval.Issues, Issue{
			Type:     string(c.Type),
			Severity: c.Severity,
			Message:  c.Message,
		})
		if c.Severity == validator.SeverityError {
			eval.Feasible = false
		}
	}

	eval.Impact = e.calculateImpact(cal, result, whatIf, req.Replacement, previous)
	eval.Score = e.score(cal, whatIf, eval)
	eval.Recommendation = recommendation(eval)
	return eval
}

// CanSwap 快速检查是否可换班
func (e *Evaluator) CanSwap(cal *calendar.Calendar, result model.ScheduleResult, req *Request) (bool, string) {
	eval := e.Evaluate(cal, result, req)
	if !eval.Feasible {
		if len(eval.Issues) > 0 {
			return false, eval.Issues[0].Message
		}
		return false, "无法进行换班"
	}
	return true, ""
}

// ApplySwap 返回应用换班后的结果副本，原表不变
func (e *Evaluator) ApplySwap(result model.ScheduleResult, req *Request) model.ScheduleResult {
	out := cloneResult(result)
	previous, _ := holderOf(result, req.Cell)
	setHolder(out, req.Cell, req.Replacement)
	if req.CounterCell != nil {
		setHolder(out, *req.CounterCell, previous)
	}
	return out
}

// calculateImpact 计算替换者的负担变化与整体公平性变化
func (e *Evaluator) calculateImpact(cal *calendar.Calendar, before, after model.ScheduleResult, replacement, previous string) *Impact {
	impact := &Impact{Previous: previous}

	impact.CountChange = e.countOf(after, replacement) - e.countOf(before, replacement)
	impact.EffortChange = e.effortOf(cal, after, replacement) - e.effortOf(cal, before, replacement)

	diff := e.fairness.Compare(cal, e.roster, before, after)
	impact.FairnessChange = diff["score_diff"]
	return impact
}

// score 换班质量评分：以换班后的公平性评分为基础，按警告扣分
func (e *Evaluator) score(cal *calendar.Calendar, whatIf model.ScheduleResult, eval *Evaluation) float64 {
	if !eval.Feasible {
		return 0
	}
	base := e.fairness.Analyze(cal, e.roster, whatIf).OverallFairnessScore
	for _, issue := range eval.Issues {
		if issue.Severity == validator.SeverityWarning {
			base -= 10
		}
	}
	return math.Max(0, math.Min(100, base))
}

func (e *Evaluator) countOf(result model.ScheduleResult, initials string) int {
	return len(result.AssignmentsOf(initials))
}

func (e *Evaluator) effortOf(cal *calendar.Calendar, result model.ScheduleResult, initials string) int {
	points := 0
	for i := 0; i < cal.Len(); i++ {
		day := cal.Day(i)
		for _, row := range result[day.DateStr] {
			if row.AssignedTo == initials {
				points += e.table.Lookup(row.Shift, day.Label)
			}
		}
	}
	return points
}

// recommendation 按评估结果生成建议文案
func recommendation(eval *Evaluation) string {
	if !eval.Feasible {
		return "不建议进行此换班，存在硬性冲突"
	}
	switch {
	case eval.Score >= 90:
		return "推荐，换班后整体效果良好"
	case eval.Score >= 70:
		return "可以进行，但存在一些软性问题"
	case eval.Score >= 50:
		return "谨慎进行，可能影响整体排班质量"
	default:
		return "不推荐，虽然可行但会显著降低排班质量"
	}
}

// holderOf 返回单元当前的承担者，单元不存在时 found 为 false
func holderOf(result model.ScheduleResult, cell model.CellRef) (initials string, found bool) {
	for _, row := range result[cell.Date] {
		if row.Shift == cell.Shift {
			return row.AssignedTo, true
		}
	}
	return "", false
}

// setHolder 就地修改单元的承担者
func setHolder(result model.ScheduleResult, cell model.CellRef, initials string) {
	rows := result[cell.Date]
	for i := range rows {
		if rows[i].Shift == cell.Shift {
			rows[i].AssignedTo = initials
			return
		}
	}
}

func cloneResult(result model.ScheduleResult) model.ScheduleResult {
	out := make(model.ScheduleResult, len(result))
	for date, rows := range result {
		copied := make([]model.AssignmentRecord, len(rows))
		copy(copied, rows)
		out[date] = copied
	}
	return out
}

// newConflicts 返回 after 中有而 before 中没有的冲突
func newConflicts(before, after []validator.Conflict) []validator.Conflict {
	seen := make(map[validator.Conflict]bool, len(before))
	for _, c := range before {
		seen[c] = true
	}
	var fresh []validator.Conflict
	for _, c := range after {
		if !seen[c] {
			fresh = append(fresh, c)
		}
	}
	return fresh
}
