// Package handler 提供HTTP请求处理器
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/labroster/labroster/internal/metrics"
	"github.com/labroster/labroster/internal/repository"
	"github.com/labroster/labroster/pkg/calendar"
	"github.com/labroster/labroster/pkg/callout"
	"github.com/labroster/labroster/pkg/effort"
	"github.com/labroster/labroster/pkg/errors"
	"github.com/labroster/labroster/pkg/model"
	"github.com/labroster/labroster/pkg/policy"
	"github.com/labroster/labroster/pkg/scheduler"
	"github.com/labroster/labroster/pkg/swap"
)

// ScheduleHandler 排班处理器
type ScheduleHandler struct {
	schedules    *repository.ScheduleRepository
	staff        *repository.StaffRepository
	shifts       *repository.ShiftRepository
	availability *repository.AvailabilityRepository
	engine       *scheduler.Engine
	pol          *policy.Policy
	table        *effort.Map
	timeout      time.Duration
}

// NewScheduleHandler 创建排班处理器
func NewScheduleHandler(db repository.DB, engine *scheduler.Engine, pol *policy.Policy, table *effort.Map, timeout time.Duration) *ScheduleHandler {
	if pol == nil {
		pol = policy.Default()
	}
	if table == nil {
		table = effort.Empty()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ScheduleHandler{
		schedules:    repository.NewScheduleRepository(db),
		staff:        repository.NewStaffRepository(db),
		shifts:       repository.NewShiftRepository(db),
		availability: repository.NewAvailabilityRepository(db),
		engine:       engine,
		pol:          pol,
		table:        table,
		timeout:      timeout,
	}
}

// GenerateScheduleRequest 排班生成请求
type GenerateScheduleRequest struct {
	StartDate  string      `json:"start_date"`
	EndDate    string      `json:"end_date"`
	EbusFriday bool        `json:"ebus_friday,omitempty"`
	Pins       []model.Pin `json:"pins,omitempty"`
}

// GenerateScheduleResponse 排班生成响应
type GenerateScheduleResponse struct {
	ScheduleID  string               `json:"schedule_id"`
	Version     int                  `json:"version"`
	Status      model.SolveStatus    `json:"status"`
	Result      model.ScheduleResult `json:"result"`
	Diagnostics model.RunDiagnostics `json:"diagnostics"`
	Duration    string               `json:"duration"`
}

// Generate 生成排班并归档
func (h *ScheduleHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req GenerateScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败"))
		return
	}

	if err := validateGenerateRequest(&req); err != nil {
		respondError(w, err)
		return
	}

	in, err := h.loadInputs(r.Context(), req.StartDate, req.EndDate)
	if err != nil {
		respondError(w, errors.FromError(err))
		return
	}
	if len(in.Staff) == 0 {
		respondError(w, errors.New(errors.CodeInvalidInput, "人员名单为空，请先录入人员"))
		return
	}
	if len(in.Shifts) == 0 {
		respondError(w, errors.New(errors.CodeInvalidInput, "班次目录为空，请先录入班次"))
		return
	}

	genReq := model.GenerateRequest{
		Range:      model.DateRange{StartDate: req.StartDate, EndDate: req.EndDate},
		Pins:       req.Pins,
		EbusFriday: req.EbusFriday,
	}

	solveCtx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	metrics.IncActiveRuns()
	out, err := h.engine.Generate(solveCtx, in, genReq)
	metrics.DecActiveRuns()
	if err != nil {
		respondError(w, errors.FromError(err))
		return
	}

	metrics.RecordScheduleRun(string(out.Status), out.Diagnostics.Objective, out.Diagnostics.SolveDuration)

	if !out.Status.Solved() {
		appErr := errors.NoFeasibleSolution("在时限内未找到满足全部硬约束的排班").
			WithField("status", out.Status).
			WithField("diagnostics", out.Diagnostics)
		respondError(w, appErr)
		return
	}

	stored := &model.StoredSchedule{
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Status:    out.Status,
		Objective: out.Diagnostics.Objective,
		Result:    out.Result,
	}
	if err := h.schedules.Create(r.Context(), stored); err != nil {
		respondError(w, errors.FromError(err))
		return
	}

	respondJSON(w, http.StatusOK, GenerateScheduleResponse{
		ScheduleID:  stored.ID.String(),
		Version:     stored.Version,
		Status:      out.Status,
		Result:      out.Result,
		Diagnostics: out.Diagnostics,
		Duration:    out.Diagnostics.SolveDuration.String(),
	})
}

// List 分页列出归档排班
func (h *ScheduleHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := listFilterFromQuery(r, "created_at", "desc")

	items, total, err := h.schedules.List(r.Context(), filter)
	if err != nil {
		respondError(w, errors.FromError(err))
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"schedules": items,
		"total":     total,
		"limit":     filter.Limit,
		"offset":    filter.Offset,
	})
}

// Detail 获取单个归档排班
func (h *ScheduleHandler) Detail(w http.ResponseWriter, r *http.Request) {
	id, appErr := pathID(r)
	if appErr != nil {
		respondError(w, appErr)
		return
	}

	sched, err := h.schedules.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, errors.FromError(err))
		return
	}
	if sched == nil {
		respondError(w, errors.NotFound("排班", id.String()))
		return
	}

	respondJSON(w, http.StatusOK, sched)
}

// RepairScheduleRequest 请假补班请求
type RepairScheduleRequest struct {
	Staff         string   `json:"staff"`
	Dates         []string `json:"dates,omitempty"`
	Exclude       []string `json:"exclude,omitempty"`
	MaxCandidates int      `json:"max_candidates,omitempty"`
	Apply         bool     `json:"apply,omitempty"` // 采纳修复结果并归档新版本
}

// RepairScheduleResponse 补班响应
type RepairScheduleResponse struct {
	ScheduleID string                 `json:"schedule_id"`
	Staff      string                 `json:"staff"`
	Proposals  []model.RepairProposal `json:"proposals"`
	Unfilled   []model.CellRef        `json:"unfilled,omitempty"`
	Repaired   model.ScheduleResult   `json:"repaired"`
	NewVersion int                    `json:"new_version,omitempty"`
}

// Repair 为请假人员生成补班建议，可选归档修复后的新版本
func (h *ScheduleHandler) Repair(w http.ResponseWriter, r *http.Request) {
	id, appErr := pathID(r)
	if appErr != nil {
		respondError(w, appErr)
		return
	}

	var req RepairScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败"))
		return
	}
	if req.Staff == "" {
		respondError(w, errors.InvalidInput("staff", "请假人员不能为空"))
		return
	}

	sched, cal, in, appErr := h.loadSchedule(r.Context(), id)
	if appErr != nil {
		respondError(w, appErr)
		return
	}

	eng := callout.New(h.pol, h.table, in.Staff, in.Shifts, in.Availability)
	resp, err := eng.Repair(cal, sched.Result, &callout.Request{
		Initials:      req.Staff,
		Dates:         req.Dates,
		Exclude:       req.Exclude,
		MaxCandidates: req.MaxCandidates,
	})
	if err != nil {
		respondError(w, errors.FromError(err))
		return
	}

	metrics.RecordRepairRun(len(resp.Unfilled) == 0)

	out := RepairScheduleResponse{
		ScheduleID: sched.ID.String(),
		Staff:      resp.Initials,
		Proposals:  resp.Proposals,
		Unfilled:   resp.Unfilled,
		Repaired:   resp.Repaired,
	}

	if req.Apply {
		next := &model.StoredSchedule{
			StartDate: sched.StartDate,
			EndDate:   sched.EndDate,
			Status:    sched.Status,
			Objective: sched.Objective,
			Result:    resp.Repaired,
		}
		if err := h.schedules.Create(r.Context(), next); err != nil {
			respondError(w, errors.FromError(err))
			return
		}
		out.ScheduleID = next.ID.String()
		out.NewVersion = next.Version
	}

	respondJSON(w, http.StatusOK, out)
}

// SwapScheduleRequest 换班请求。
// 不带 replacement 时返回推荐人选，带 replacement 时评估指定换班。
type SwapScheduleRequest struct {
	Date               string   `json:"date"`
	Shift              string   `json:"shift"`
	Replacement        string   `json:"replacement,omitempty"`
	CounterDate        string   `json:"counter_date,omitempty"`
	CounterShift       string   `json:"counter_shift,omitempty"`
	Exclude            []string `json:"exclude,omitempty"`
	MaxRecommendations int      `json:"max_recommendations,omitempty"`
	Apply              bool     `json:"apply,omitempty"` // 评估通过后归档新版本
}

// SwapScheduleResponse 换班响应
type SwapScheduleResponse struct {
	ScheduleID      string                `json:"schedule_id"`
	Cell            model.CellRef         `json:"cell"`
	Recommendations []swap.Recommendation `json:"recommendations,omitempty"`
	Evaluation      *swap.Evaluation      `json:"evaluation,omitempty"`
	Applied         bool                  `json:"applied,omitempty"`
	NewVersion      int                   `json:"new_version,omitempty"`
}

// Swaps 换班推荐与评估
func (h *ScheduleHandler) Swaps(w http.ResponseWriter, r *http.Request) {
	id, appErr := pathID(r)
	if appErr != nil {
		respondError(w, appErr)
		return
	}

	var req SwapScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败"))
		return
	}

	ve := &errors.ValidationErrors{}
	if req.Date == "" {
		ve.Add("date", "日期不能为空")
	}
	if req.Shift == "" {
		ve.Add("shift", "班次不能为空")
	}
	if ve.HasErrors() {
		respondError(w, ve.ToAppError())
		return
	}

	sched, cal, in, appErr := h.loadSchedule(r.Context(), id)
	if appErr != nil {
		respondError(w, appErr)
		return
	}

	evaluator := swap.NewEvaluator(h.pol, h.table, in.Staff, in.Shifts, in.Availability)
	cell := model.CellRef{Date: req.Date, Shift: req.Shift}

	// 推荐模式
	if req.Replacement == "" {
		recommender := swap.NewRecommender(evaluator)
		opts := swap.DefaultRecommendOptions()
		if req.MaxRecommendations > 0 {
			opts.MaxRecommendations = req.MaxRecommendations
		}
		opts.Exclude = req.Exclude

		recs := recommender.RecommendTargets(cal, sched.Result, cell, opts)
		respondJSON(w, http.StatusOK, SwapScheduleResponse{
			ScheduleID:      sched.ID.String(),
			Cell:            cell,
			Recommendations: recs,
		})
		return
	}

	// 评估模式
	swapReq := &swap.Request{Cell: cell, Replacement: req.Replacement}
	if req.CounterDate != "" && req.CounterShift != "" {
		swapReq.CounterCell = &model.CellRef{Date: req.CounterDate, Shift: req.CounterShift}
	}

	eval := evaluator.Evaluate(cal, sched.Result, swapReq)
	metrics.RecordSwapEvaluation(eval.Feasible)

	out := SwapScheduleResponse{
		ScheduleID: sched.ID.String(),
		Cell:       cell,
		Evaluation: eval,
	}

	if req.Apply {
		if !eval.Feasible {
			respondError(w, errors.New(errors.CodeSwapRejected, "换班不可行，未执行").
				WithField("evaluation", eval))
			return
		}
		applied := evaluator.ApplySwap(sched.Result, swapReq)
		next := &model.StoredSchedule{
			StartDate: sched.StartDate,
			EndDate:   sched.EndDate,
			Status:    sched.Status,
			Objective: sched.Objective,
			Result:    applied,
		}
		if err := h.schedules.Create(r.Context(), next); err != nil {
			respondError(w, errors.FromError(err))
			return
		}
		out.Applied = true
		out.ScheduleID = next.ID.String()
		out.NewVersion = next.Version
	}

	respondJSON(w, http.StatusOK, out)
}

// loadSchedule 加载归档排班及其对应的日历与输入快照
func (h *ScheduleHandler) loadSchedule(ctx context.Context, id uuid.UUID) (*model.StoredSchedule, *calendar.Calendar, scheduler.Inputs, *errors.AppError) {
	sched, err := h.schedules.GetByID(ctx, id)
	if err != nil {
		return nil, nil, scheduler.Inputs{}, errors.FromError(err)
	}
	if sched == nil {
		return nil, nil, scheduler.Inputs{}, errors.NotFound("排班", id.String())
	}

	cal, err := calendar.Expand(model.DateRange{StartDate: sched.StartDate, EndDate: sched.EndDate}, false)
	if err != nil {
		return nil, nil, scheduler.Inputs{}, errors.FromError(err)
	}

	in, err := h.loadInputs(ctx, sched.StartDate, sched.EndDate)
	if err != nil {
		return nil, nil, scheduler.Inputs{}, errors.FromError(err)
	}
	return sched, cal, in, nil
}

// loadInputs 加载当前名单、班次目录与可用性快照
func (h *ScheduleHandler) loadInputs(ctx context.Context, startDate, endDate string) (scheduler.Inputs, error) {
	staff, err := h.staff.ListAll(ctx)
	if err != nil {
		return scheduler.Inputs{}, err
	}
	shifts, err := h.shifts.ListAll(ctx)
	if err != nil {
		return scheduler.Inputs{}, err
	}
	records, err := h.availability.ListByDateRange(ctx, startDate, endDate)
	if err != nil {
		return scheduler.Inputs{}, err
	}
	return scheduler.Inputs{
		Staff:        staff,
		Shifts:       shifts,
		Availability: model.NewAvailabilitySet(records),
	}, nil
}

// validateGenerateRequest 验证请求
func validateGenerateRequest(req *GenerateScheduleRequest) *errors.AppError {
	ve := &errors.ValidationErrors{}

	if req.StartDate == "" {
		ve.Add("start_date", "开始日期不能为空")
	}
	if req.EndDate == "" {
		ve.Add("end_date", "结束日期不能为空")
	}

	// 验证日期格式
	if req.StartDate != "" {
		if _, err := time.Parse(model.DateLayout, req.StartDate); err != nil {
			ve.Add("start_date", "日期格式无效，应为YYYY-MM-DD")
		}
	}
	if req.EndDate != "" {
		if _, err := time.Parse(model.DateLayout, req.EndDate); err != nil {
			ve.Add("end_date", "日期格式无效，应为YYYY-MM-DD")
		}
	}

	for i, pin := range req.Pins {
		if pin.Date == "" || pin.Shift == "" || pin.Initials == "" {
			ve.Add(fmt.Sprintf("pins[%d]", i), "指派需包含 date、shift、initials")
		}
	}

	if ve.HasErrors() {
		return ve.ToAppError()
	}
	return nil
}

// pathID 解析路径中的资源ID
func pathID(r *http.Request) (uuid.UUID, *errors.AppError) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, errors.Wrap(err, errors.CodeInvalidInput, "无效的ID格式")
	}
	return id, nil
}

// listFilterFromQuery 从查询参数构建分页过滤器
func listFilterFromQuery(r *http.Request, orderBy, orderDir string) repository.ListFilter {
	filter := repository.DefaultListFilter()
	filter.OrderBy = orderBy
	filter.OrderDir = orderDir

	q := r.URL.Query()
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			filter.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			filter.Offset = n
		}
	}
	filter.Status = q.Get("status")
	filter.Search = q.Get("search")
	filter.StartDate = q.Get("start_date")
	filter.EndDate = q.Get("end_date")
	return filter
}

// respondJSON 返回JSON响应
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError 返回错误响应
func respondError(w http.ResponseWriter, err *errors.AppError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.HTTPStatus)
	body := map[string]interface{}{
		"error":   true,
		"code":    err.Code,
		"message": err.Message,
	}
	if err.Details != "" {
		body["details"] = err.Details
	}
	if len(err.Fields) > 0 {
		body["fields"] = err.Fields
	}
	json.NewEncoder(w).Encode(body)
}
