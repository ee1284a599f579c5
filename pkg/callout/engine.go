// Package callout 处理临时请假后的补班
package callout

import (
	"github.com/rs/zerolog"

	"github.com/labroster/labroster/pkg/calendar"
	"github.com/labroster/labroster/pkg/effort"
	"github.com/labroster/labroster/pkg/errors"
	"github.com/labroster/labroster/pkg/logger"
	"github.com/labroster/labroster/pkg/model"
	"github.com/labroster/labroster/pkg/policy"
	"github.com/labroster/labroster/pkg/swap"
)

// Engine 补班引擎
type Engine struct {
	roster    []*model.StaffMember
	shifts    map[string]*model.ShiftDefinition
	evaluator *swap.Evaluator
	ranker    *Ranker
	log       zerolog.Logger
}

// New 创建补班引擎
func New(pol *policy.Policy, table *effort.Map, staff []*model.StaffMember, shifts []*model.ShiftDefinition, oracle model.AvailabilityOracle) *Engine {
	catalog := make(map[string]*model.ShiftDefinition, len(shifts))
	for _, sh := range shifts {
		catalog[sh.Name] = sh
	}
	evaluator := swap.NewEvaluator(pol, table, staff, shifts, oracle)
	return &Engine{
		roster:    staff,
		shifts:    catalog,
		evaluator: evaluator,
		ranker:    NewRanker(evaluator, staff),
		log:       logger.Get().With().Str("component", "callout").Logger(),
	}
}

// Request 请假补班请求
type Request struct {
	Initials string `json:"initials"`
	// 受影响日期，为空表示整个排班区间
	Dates         []string `json:"dates,omitempty"`
	Exclude       []string `json:"exclude,omitempty"` // 额外排除的替班人选
	MaxCandidates int      `json:"max_candidates,omitempty"`
}

// Response 补班结果
type Response struct {
	Initials  string                 `json:"initials"`
	Proposals []model.RepairProposal `json:"proposals"`
	Repaired  model.ScheduleResult   `json:"repaired"`
	// 无人可补的强制班次
	Unfilled []model.CellRef `json:"unfilled,omitempty"`
}

// Repair 为请假人员受影响的每个班次生成补班建议。
// 建议按日历顺序逐格生效，后面单元的评估建立在前面已采纳的替换之上。
func (e *Engine) Repair(cal *calendar.Calendar, result model.ScheduleResult, req *Request) (*Response, error) {
	if req == nil || req.Initials == "" {
		return nil, errors.New(errors.CodeInvalidInput, "缺少请假人员")
	}
	if !e.onRoster(req.Initials) {
		return nil, errors.NotFound("人员", req.Initials)
	}

	dates, err := e.resolveDates(cal, req.Dates)
	if err != nil {
		return nil, err
	}

	affected := affectedCells(result, dates, req.Initials)
	e.log.Info().
		Str("initials", req.Initials).
		Int("dates", len(dates)).
		Int("cells", len(affected)).
		Msg("开始补班评估")

	maxCandidates := req.MaxCandidates
	if maxCandidates <= 0 {
		maxCandidates = 3
	}
	exclude := append([]string{req.Initials}, req.Exclude...)

	resp := &Response{
		Initials:  req.Initials,
		Proposals: make([]model.RepairProposal, 0, len(affected)),
		Repaired:  result,
	}

	working := result
	for _, cell := range affected {
		proposal := e.repairCell(cal, working, cell, req.Initials, exclude, maxCandidates)
		resp.Proposals = append(resp.Proposals, proposal)

		working = e.evaluator.ApplySwap(working, &swap.Request{
			Cell:        cell,
			Replacement: proposal.Replacement,
		})
		if proposal.Replacement == model.Unassigned && e.isMandatory(cell.Shift) {
			resp.Unfilled = append(resp.Unfilled, cell)
		}
	}
	resp.Repaired = working

	e.log.Info().
		Str("initials", req.Initials).
		Int("proposals", len(resp.Proposals)).
		Int("unfilled", len(resp.Unfilled)).
		Msg("补班评估完成")
	return resp, nil
}

// RepairAll 依次处理多个请假请求，后面的请求在前面的修复结果上评估。
// 同一批请假人员互不充当对方的替班人选。
func (e *Engine) RepairAll(cal *calendar.Calendar, result model.ScheduleResult, reqs []*Request) ([]*Response, error) {
	absent := make([]string, 0, len(reqs))
	for _, req := range reqs {
		if req != nil {
			absent = append(absent, req.Initials)
		}
	}

	responses := make([]*Response, 0, len(reqs))
	working := result
	for _, req := range reqs {
		if req == nil {
			return nil, errors.New(errors.CodeInvalidInput, "缺少请假人员")
		}
		augmented := *req
		augmented.Exclude = append(append([]string{}, req.Exclude...), absent...)

		resp, err := e.Repair(cal, working, &augmented)
		if err != nil {
			return nil, err
		}
		responses = append(responses, resp)
		working = resp.Repaired
	}
	return responses, nil
}

// repairCell 为单个单元评估替班人选
func (e *Engine) repairCell(cal *calendar.Calendar, result model.ScheduleResult, cell model.CellRef, sick string, exclude []string, maxCandidates int) model.RepairProposal {
	proposal := model.RepairProposal{
		Cell:     cell,
		Previous: sick,
	}

	ranked := e.ranker.Rank(cal, result, cell, exclude)
	if len(ranked) == 0 {
		proposal.Replacement = model.Unassigned
		proposal.Reasons = []string{"无合格替班人选"}
		if e.isMandatory(cell.Shift) {
			proposal.Reasons = append(proposal.Reasons, "强制班次将空置")
		}
		return proposal
	}

	if len(ranked) > maxCandidates {
		ranked = ranked[:maxCandidates]
	}
	best := ranked[0]
	proposal.Replacement = best.Initials
	proposal.Reasons = best.Reasons
	if len(ranked) > 1 {
		proposal.Candidates = ranked[1:]
	}
	return proposal
}

// resolveDates 校验并按日历顺序返回受影响日期
func (e *Engine) resolveDates(cal *calendar.Calendar, requested []string) ([]string, error) {
	if len(requested) == 0 {
		dates := make([]string, 0, cal.Len())
		for _, day := range cal.Days() {
			dates = append(dates, day.DateStr)
		}
		return dates, nil
	}

	want := make(map[string]bool, len(requested))
	for _, date := range requested {
		if !cal.Contains(date) {
			return nil, errors.New(errors.CodeInvalidInput, "日期不在排班区间内: "+date)
		}
		want[date] = true
	}
	dates := make([]string, 0, len(want))
	for _, day := range cal.Days() {
		if want[day.DateStr] {
			dates = append(dates, day.DateStr)
		}
	}
	return dates, nil
}

func (e *Engine) onRoster(initials string) bool {
	for _, st := range e.roster {
		if st.Initials == initials {
			return true
		}
	}
	return false
}

// isMandatory 班次不允许空置时为真，未知班次按强制处理
func (e *Engine) isMandatory(shift string) bool {
	def, ok := e.shifts[shift]
	if !ok {
		return true
	}
	return !def.CanRemainOpen
}

// affectedCells 按日历顺序收集该人员承担的单元
func affectedCells(result model.ScheduleResult, dates []string, initials string) []model.CellRef {
	var cells []model.CellRef
	for _, date := range dates {
		for _, row := range result[date] {
			if row.AssignedTo == initials {
				cells = append(cells, model.CellRef{Date: date, Shift: row.Shift})
			}
		}
	}
	return cells
}
