package handler

import (
	"net/http"
	"sort"

	"github.com/google/uuid"

	"github.com/labroster/labroster/internal/metrics"
	"github.com/labroster/labroster/internal/repository"
	"github.com/labroster/labroster/pkg/calendar"
	"github.com/labroster/labroster/pkg/effort"
	"github.com/labroster/labroster/pkg/errors"
	"github.com/labroster/labroster/pkg/model"
	"github.com/labroster/labroster/pkg/stats"
)

// StatsHandler 统计处理器
type StatsHandler struct {
	schedules *repository.ScheduleRepository
	staff     *repository.StaffRepository
	table     *effort.Map
}

// NewStatsHandler 创建统计处理器
func NewStatsHandler(db repository.DB, table *effort.Map) *StatsHandler {
	if table == nil {
		table = effort.Empty()
	}
	return &StatsHandler{
		schedules: repository.NewScheduleRepository(db),
		staff:     repository.NewStaffRepository(db),
		table:     table,
	}
}

// Fairness 公平性报告
func (h *StatsHandler) Fairness(w http.ResponseWriter, r *http.Request) {
	sched, cal, appErr := h.resolveSchedule(r)
	if appErr != nil {
		respondError(w, appErr)
		return
	}

	staff, err := h.staff.ListAll(r.Context())
	if err != nil {
		respondError(w, errors.FromError(err))
		return
	}

	analyzer := stats.NewFairnessAnalyzer(h.table)
	m := analyzer.Analyze(cal, staff, sched.Result)

	metrics.SetFairnessScore("overall", m.OverallFairnessScore)
	metrics.SetFairnessScore("count_gini", m.CountGini)
	metrics.SetFairnessScore("effort_gini", m.EffortGini)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"schedule_id": sched.ID.String(),
		"version":     sched.Version,
		"range":       model.DateRange{StartDate: sched.StartDate, EndDate: sched.EndDate},
		"fairness":    m,
	})
}

// StaffEffort 单个人员的工作量汇总
type StaffEffort struct {
	Initials     string `json:"initials"`
	Role         string `json:"role"`
	ShiftCount   int    `json:"shift_count"`
	EffortPoints int    `json:"effort_points"`
	HeaviestWeek int    `json:"heaviest_week"`
}

// Effort 工作量报告
func (h *StatsHandler) Effort(w http.ResponseWriter, r *http.Request) {
	sched, cal, appErr := h.resolveSchedule(r)
	if appErr != nil {
		respondError(w, appErr)
		return
	}

	staff, err := h.staff.ListAll(r.Context())
	if err != nil {
		respondError(w, errors.FromError(err))
		return
	}

	analyzer := stats.NewFairnessAnalyzer(h.table)
	m := analyzer.Analyze(cal, staff, sched.Result)

	byEffort := make([]StaffEffort, 0, len(m.StaffStats))
	for _, st := range m.StaffStats {
		byEffort = append(byEffort, StaffEffort{
			Initials:     st.Initials,
			Role:         st.Role,
			ShiftCount:   st.ShiftCount,
			EffortPoints: st.EffortPoints,
			HeaviestWeek: st.HeaviestWeek,
		})
	}
	sort.SliceStable(byEffort, func(i, j int) bool {
		return byEffort[i].EffortPoints > byEffort[j].EffortPoints
	})

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"schedule_id":       sched.ID.String(),
		"version":           sched.Version,
		"range":             model.DateRange{StartDate: sched.StartDate, EndDate: sched.EndDate},
		"default_weight":    effort.DefaultWeight,
		"table_day_labels":  h.table.DayLabels(),
		"avg_effort_points": m.AvgEffortPoints,
		"effort_gini":       m.EffortGini,
		"staff":             byEffort,
	})
}

// Coverage 覆盖率报告
func (h *StatsHandler) Coverage(w http.ResponseWriter, r *http.Request) {
	sched, cal, appErr := h.resolveSchedule(r)
	if appErr != nil {
		respondError(w, appErr)
		return
	}

	analyzer := stats.NewCoverageAnalyzer(h.table)
	m := analyzer.Analyze(cal, sched.Result)

	metrics.SetCoverageRate(m.OverallCoverage)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"schedule_id": sched.ID.String(),
		"version":     sched.Version,
		"range":       model.DateRange{StartDate: sched.StartDate, EndDate: sched.EndDate},
		"coverage":    m,
	})
}

// resolveSchedule 解析报告针对的归档排班。
// 优先 schedule_id，其次日期区间的最新版本，缺省取最近一次归档。
func (h *StatsHandler) resolveSchedule(r *http.Request) (*model.StoredSchedule, *calendar.Calendar, *errors.AppError) {
	q := r.URL.Query()

	var sched *model.StoredSchedule
	var err error
	switch {
	case q.Get("schedule_id") != "":
		id, perr := uuid.Parse(q.Get("schedule_id"))
		if perr != nil {
			return nil, nil, errors.Wrap(perr, errors.CodeInvalidInput, "无效的schedule_id格式")
		}
		sched, err = h.schedules.GetByID(r.Context(), id)
	case q.Get("start_date") != "" && q.Get("end_date") != "":
		sched, err = h.schedules.GetLatest(r.Context(), q.Get("start_date"), q.Get("end_date"))
	default:
		var items []*model.StoredSchedule
		items, _, err = h.schedules.List(r.Context(), repository.ListFilter{
			Limit:    1,
			OrderBy:  "created_at",
			OrderDir: "desc",
		})
		if len(items) > 0 {
			sched = items[0]
		}
	}
	if err != nil {
		return nil, nil, errors.FromError(err)
	}
	if sched == nil {
		return nil, nil, errors.New(errors.CodeNotFound, "没有可分析的归档排班")
	}

	cal, cerr := calendar.Expand(model.DateRange{StartDate: sched.StartDate, EndDate: sched.EndDate}, false)
	if cerr != nil {
		return nil, nil, errors.FromError(cerr)
	}
	return sched, cal, nil
}
