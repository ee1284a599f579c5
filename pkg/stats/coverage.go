package stats

import (
	"fmt"
	"strings"

	"github.com/labroster/labroster/pkg/calendar"
	"github.com/labroster/labroster/pkg/effort"
	"github.com/labroster/labroster/pkg/model"
)

// DayCoverage 单日覆盖情况
type DayCoverage struct {
	Date         string  `json:"date"`
	TotalCells   int     `json:"total_cells"`
	Assigned     int     `json:"assigned"`
	CoverageRate float64 `json:"coverage_rate"`
	StaffCount   int     `json:"staff_count"`   // 当日出勤的不同人员数
	EffortPoints int     `json:"effort_points"` // 当日总工作量点数
}

// CoverageMetrics 覆盖率指标
type CoverageMetrics struct {
	// 整体覆盖
	TotalCells      int     `json:"total_cells"`
	AssignedCells   int     `json:"assigned_cells"`
	OverallCoverage float64 `json:"overall_coverage"` // %

	// 强制与可选单元分开统计
	MandatoryCoverage float64 `json:"mandatory_coverage"`
	OptionalCoverage  float64 `json:"optional_coverage"`

	// 按日期统计
	DailyCoverage map[string]DayCoverage `json:"daily_coverage"`

	// 按班次统计
	ShiftCoverage map[string]float64 `json:"shift_coverage"`

	// 问题识别
	OpenOptional      []model.CellRef `json:"open_optional,omitempty"`      // 空置的可选单元
	UnfilledMandatory []model.CellRef `json:"unfilled_mandatory,omitempty"` // 空置的强制单元
}

// CoverageAnalyzer 覆盖率分析器
type CoverageAnalyzer struct {
	table *effort.Map
}

// NewCoverageAnalyzer 创建覆盖率分析器，table 为空时按默认点数折算
func NewCoverageAnalyzer(table *effort.Map) *CoverageAnalyzer {
	if table == nil {
		table = effort.Empty()
	}
	return &CoverageAnalyzer{table: table}
}

// Analyze 分析排班结果的覆盖率，按日历顺序遍历
func (c *CoverageAnalyzer) Analyze(cal *calendar.Calendar, result model.ScheduleResult) *CoverageMetrics {
	metrics := &CoverageMetrics{
		DailyCoverage: make(map[string]DayCoverage),
		ShiftCoverage: make(map[string]float64),
	}
	if cal == nil || cal.Len() == 0 || len(result) == 0 {
		metrics.OverallCoverage = 100
		metrics.MandatoryCoverage = 100
		metrics.OptionalCoverage = 100
		return metrics
	}

	var mandatoryTotal, mandatoryFilled, optionalTotal, optionalFilled int
	shiftTotals := make(map[string]int)
	shiftAssigned := make(map[string]int)

	for i := 0; i < cal.Len(); i++ {
		day := cal.Day(i)
		rows, ok := result[day.DateStr]
		if !ok {
			continue
		}

		dc := DayCoverage{Date: day.DateStr}
		seen := make(map[string]bool)
		for _, row := range rows {
			metrics.TotalCells++
			dc.TotalCells++
			shiftTotals[row.Shift]++

			assigned := row.AssignedTo != model.Unassigned
			if assigned {
				metrics.AssignedCells++
				dc.Assigned++
				dc.EffortPoints += c.table.Lookup(row.Shift, day.Label)
				shiftAssigned[row.Shift]++
				if !seen[row.AssignedTo] {
					seen[row.AssignedTo] = true
					dc.StaffCount++
				}
			}

			cell := model.CellRef{Date: day.DateStr, Shift: row.Shift}
			if row.CanRemainOpen {
				optionalTotal++
				if assigned {
					optionalFilled++
				} else {
					metrics.OpenOptional = append(metrics.OpenOptional, cell)
				}
			} else {
				mandatoryTotal++
				if assigned {
					mandatoryFilled++
				} else {
					metrics.UnfilledMandatory = append(metrics.UnfilledMandatory, cell)
				}
			}
		}

		if dc.TotalCells > 0 {
			dc.CoverageRate = float64(dc.Assigned) / float64(dc.TotalCells) * 100
		}
		metrics.DailyCoverage[day.DateStr] = dc
	}

	metrics.OverallCoverage = rate(metrics.AssignedCells, metrics.TotalCells)
	metrics.MandatoryCoverage = rate(mandatoryFilled, mandatoryTotal)
	metrics.OptionalCoverage = rate(optionalFilled, optionalTotal)
	for name, total := range shiftTotals {
		metrics.ShiftCoverage[name] = rate(shiftAssigned[name], total)
	}
	return metrics
}

// Report 生成文本格式的覆盖率报告
func (c *CoverageAnalyzer) Report(metrics *CoverageMetrics) string {
	var b strings.Builder
	b.WriteString("=== 覆盖率分析报告 ===\n\n")

	fmt.Fprintf(&b, "总单元格: %d\n", metrics.TotalCells)
	fmt.Fprintf(&b, "已排单元格: %d\n", metrics.AssignedCells)
	fmt.Fprintf(&b, "整体覆盖率: %.1f%%\n", metrics.OverallCoverage)
	fmt.Fprintf(&b, "强制覆盖率: %.1f%%\n", metrics.MandatoryCoverage)
	fmt.Fprintf(&b, "可选覆盖率: %.1f%%\n\n", metrics.OptionalCoverage)

	if len(metrics.UnfilledMandatory) > 0 {
		b.WriteString("空置的强制单元:\n")
		for _, cell := range metrics.UnfilledMandatory {
			fmt.Fprintf(&b, "  - %s %s\n", cell.Date, cell.Shift)
		}
		b.WriteString("\n")
	}

	if len(metrics.OpenOptional) > 0 {
		fmt.Fprintf(&b, "空置的可选单元: %d 个\n", len(metrics.OpenOptional))
	}
	return b.String()
}

// rate 百分比，分母为零时视为完全覆盖
func rate(filled, total int) float64 {
	if total == 0 {
		return 100
	}
	return float64(filled) / float64(total) * 100
}
