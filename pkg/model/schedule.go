// Package model 定义排班引擎的核心数据模型
package model

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// SolveStatus 求解结果分类
type SolveStatus string

const (
	StatusOptimal    SolveStatus = "OPTIMAL"    // 目标值已达下界或搜索收敛
	StatusFeasible   SolveStatus = "FEASIBLE"   // 可行但未证明最优
	StatusInfeasible SolveStatus = "INFEASIBLE" // 硬约束无法同时满足
	StatusUnknown    SolveStatus = "UNKNOWN"    // 搜索被中断，结论未知
)

// Solved 检查状态是否产出了可用排班
func (s SolveStatus) Solved() bool {
	return s == StatusOptimal || s == StatusFeasible
}

// AssignmentRecord 单个班次的排班结果行
type AssignmentRecord struct {
	Shift         string `json:"shift"`
	AssignedTo    string `json:"assigned_to"` // 人员缩写或 Unassigned
	Role          string `json:"role"`
	IsFlexible    bool   `json:"is_flexible"`
	CanRemainOpen bool   `json:"can_remain_open"`
}

// ScheduleResult 排班结果：日期 -> 当日班次结果行（按班次目录顺序）
type ScheduleResult map[string][]AssignmentRecord

// Dates 返回结果中所有日期的排序副本
func (r ScheduleResult) Dates() []string {
	dates := make([]string, 0, len(r))
	for d := range r {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}

// AssignmentsOf 返回某人员在结果中的全部 (日期, 班次)
func (r ScheduleResult) AssignmentsOf(initials string) []CellRef {
	var cells []CellRef
	for _, date := range r.Dates() {
		for _, row := range r[date] {
			if row.AssignedTo == initials {
				cells = append(cells, CellRef{Date: date, Shift: row.Shift})
			}
		}
	}
	return cells
}

// CellRef 指向结果网格中的一个 (日期, 班次) 单元
type CellRef struct {
	Date  string `json:"date"`
	Shift string `json:"shift"`
}

// Pin 手工指派：强制某单元由指定人员承担
type Pin struct {
	Date     string `json:"date"`
	Shift    string `json:"shift"`
	Initials string `json:"initials"`
}

// PinSet 以单元为键的手工指派集合
type PinSet map[CellRef]string

// NewPinSet 从列表构建指派集合，后出现者覆盖先出现者
func NewPinSet(pins []Pin) PinSet {
	set := make(PinSet, len(pins))
	for _, p := range pins {
		set[CellRef{Date: p.Date, Shift: p.Shift}] = p.Initials
	}
	return set
}

// SkippedPin 因目标无效而被忽略的手工指派
type SkippedPin struct {
	Pin    Pin    `json:"pin"`
	Reason string `json:"reason"`
}

// WeeklyOverage 周班次数超出上限的诊断记录（仅报告，不参与目标）
type WeeklyOverage struct {
	Initials string `json:"initials"`
	Week     int    `json:"week"` // ISO 周号
	Count    int    `json:"count"`
	Limit    int    `json:"limit"`
}

// RunDiagnostics 单次排班运行的诊断信息
type RunDiagnostics struct {
	SkippedPins     []SkippedPin    `json:"skipped_pins,omitempty"`
	UnfillableCells []CellRef       `json:"unfillable_cells,omitempty"`
	WeeklyOverages  []WeeklyOverage `json:"weekly_overages,omitempty"`
	Untrained       []CellRef       `json:"untrained_assignments,omitempty"`
	SolveDuration   time.Duration   `json:"solve_duration"`
	Objective       int             `json:"objective"`
	Iterations      int             `json:"iterations"`
}

// GenerateRequest 一次排班运行的输入
type GenerateRequest struct {
	Range      DateRange `json:"range"`
	Pins       []Pin     `json:"pins,omitempty"`
	EbusFriday bool      `json:"ebus_friday"` // 本次运行的周五按 EBUS 口径计算工作量
}

// StoredSchedule 排班结果归档
type StoredSchedule struct {
	BaseModel
	StartDate string         `json:"start_date" db:"start_date"`
	EndDate   string         `json:"end_date" db:"end_date"`
	Status    SolveStatus    `json:"status" db:"status"`
	Objective int            `json:"objective" db:"objective"`
	Version   int            `json:"version" db:"version"`
	Result    ScheduleResult `json:"result" db:"result"`
	CreatedBy *uuid.UUID     `json:"created_by,omitempty" db:"created_by"`
}

// RepairProposal 补班建议：为受影响单元给出替班人选
type RepairProposal struct {
	Cell        CellRef     `json:"cell"`
	Previous    string      `json:"previous"`
	Replacement string      `json:"replacement"` // 人员缩写或 Unassigned
	Reasons     []string    `json:"reasons,omitempty"`
	Candidates  []Candidate `json:"alternatives,omitempty"`
}

// Candidate 候选人及其评分
type Candidate struct {
	Initials string   `json:"initials"`
	Score    float64  `json:"score"`
	Reasons  []string `json:"reasons,omitempty"`
}
