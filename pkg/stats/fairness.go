// Package stats 对排班结果做事后统计分析，
// 供报表接口与换班评估使用，不参与求解。
package stats

import (
	"math"
	"sort"

	"github.com/labroster/labroster/pkg/calendar"
	"github.com/labroster/labroster/pkg/effort"
	"github.com/labroster/labroster/pkg/model"
)

// StaffStat 单个人员的结果统计
type StaffStat struct {
	Initials     string  `json:"initials"`
	Role         string  `json:"role"`
	IsCasual     bool    `json:"is_casual"`
	ShiftCount   int     `json:"shift_count"`
	EffortPoints int     `json:"effort_points"`
	HeaviestWeek int     `json:"heaviest_week"` // 单周最高班次数
	Deviation    float64 `json:"deviation"`     // 与平均班次数的偏差百分比
}

// FairnessMetrics 公平性指标
type FairnessMetrics struct {
	// 班次数公平性
	AvgShiftsPerStaff float64 `json:"avg_shifts_per_staff"`
	MaxShifts         int     `json:"max_shifts"`
	MinShifts         int     `json:"min_shifts"`
	ShiftSpread       int     `json:"shift_spread"` // 极差
	CountGini         float64 `json:"count_gini"`   // 班次数基尼系数 (0=完全公平, 1=完全不公平)

	// 工作量公平性（按工作量点数表折算）
	AvgEffortPoints float64 `json:"avg_effort_points"`
	EffortGini      float64 `json:"effort_gini"`

	// 临时工使用
	CasualAssignments int `json:"casual_assignments"`

	// 各班次在结果中的占比 (%)
	ShiftDistribution map[string]float64 `json:"shift_distribution"`

	// 人员级别统计，按班次数降序
	StaffStats []StaffStat `json:"staff_stats"`

	// 综合评分 (0-100)
	OverallFairnessScore float64 `json:"overall_fairness_score"`
}

// FairnessAnalyzer 公平性分析器
type FairnessAnalyzer struct {
	table *effort.Map
}

// NewFairnessAnalyzer 创建公平性分析器，table 为空时按默认点数折算
func NewFairnessAnalyzer(table *effort.Map) *FairnessAnalyzer {
	if table == nil {
		table = effort.Empty()
	}
	return &FairnessAnalyzer{table: table}
}

// Analyze 分析排班结果的公平性。
// 统计覆盖整个名单，没有班次的人员也计入分母。
func (f *FairnessAnalyzer) Analyze(cal *calendar.Calendar, staff []*model.StaffMember, result model.ScheduleResult) *FairnessMetrics {
	if len(staff) == 0 || len(result) == 0 {
		return &FairnessMetrics{
			ShiftDistribution:    make(map[string]float64),
			StaffStats:           []StaffStat{},
			OverallFairnessScore: 100,
		}
	}

	stats := f.collectStaffStats(cal, staff, result)

	counts := make([]float64, len(stats))
	points := make([]float64, len(stats))
	for i, st := range stats {
		counts[i] = float64(st.ShiftCount)
		points[i] = float64(st.EffortPoints)
	}

	avgCount := mean(counts)
	avgPoints := mean(points)
	maxCount, minCount := extremes(counts)

	for i := range stats {
		if avgCount > 0 {
			stats[i].Deviation = (float64(stats[i].ShiftCount) - avgCount) / avgCount * 100
		}
	}

	countGini := gini(counts)
	effortGini := gini(points)

	casual := 0
	assigned := 0
	for _, st := range stats {
		if st.IsCasual {
			casual += st.ShiftCount
		}
		assigned += st.ShiftCount
	}

	shiftCounts := make(map[string]int)
	assignedRows := 0
	for _, date := range result.Dates() {
		for _, row := range result[date] {
			if row.AssignedTo != model.Unassigned {
				shiftCounts[row.Shift]++
				assignedRows++
			}
		}
	}
	distribution := make(map[string]float64, len(shiftCounts))
	for name, n := range shiftCounts {
		if assignedRows > 0 {
			distribution[name] = float64(n) / float64(assignedRows) * 100
		}
	}

	score := f.overallScore(countGini, effortGini, casual, assigned, counts, avgCount)

	return &FairnessMetrics{
		AvgShiftsPerStaff:    avgCount,
		MaxShifts:            int(maxCount),
		MinShifts:            int(minCount),
		ShiftSpread:          int(maxCount - minCount),
		CountGini:            countGini,
		AvgEffortPoints:      avgPoints,
		EffortGini:           effortGini,
		CasualAssignments:    casual,
		ShiftDistribution:    distribution,
		StaffStats:           stats,
		OverallFairnessScore: score,
	}
}

// collectStaffStats 按日历顺序汇总每个人员的班次数、点数与单周峰值
func (f *FairnessAnalyzer) collectStaffStats(cal *calendar.Calendar, staff []*model.StaffMember, result model.ScheduleResult) []StaffStat {
	statMap := make(map[string]*StaffStat, len(staff))
	weekCounts := make(map[string]map[int]int, len(staff))
	for _, st := range staff {
		statMap[st.Initials] = &StaffStat{
			Initials: st.Initials,
			Role:     st.Role,
			IsCasual: st.IsCasual,
		}
		weekCounts[st.Initials] = make(map[int]int)
	}

	for i := 0; i < cal.Len(); i++ {
		day := cal.Day(i)
		for _, row := range result[day.DateStr] {
			stat, ok := statMap[row.AssignedTo]
			if !ok {
				continue
			}
			stat.ShiftCount++
			stat.EffortPoints += f.table.Lookup(row.Shift, day.Label)
			weekCounts[row.AssignedTo][day.ISOWeek]++
		}
	}

	stats := make([]StaffStat, 0, len(statMap))
	for _, st := range staff {
		stat := statMap[st.Initials]
		for _, n := range weekCounts[st.Initials] {
			if n > stat.HeaviestWeek {
				stat.HeaviestWeek = n
			}
		}
		stats = append(stats, *stat)
	}

	sort.Slice(stats, func(i, j int) bool {
		if stats[i].ShiftCount != stats[j].ShiftCount {
			return stats[i].ShiftCount > stats[j].ShiftCount
		}
		return stats[i].Initials < stats[j].Initials
	})
	return stats
}

// overallScore 计算综合公平性评分
func (f *FairnessAnalyzer) overallScore(countGini, effortGini float64, casual, assigned int, counts []float64, avgCount float64) float64 {
	const (
		countWeight  = 0.4
		effortWeight = 0.3
		casualWeight = 0.2
		cvWeight     = 0.1
	)

	countScore := (1 - countGini) * 100
	effortScore := (1 - effortGini) * 100

	casualScore := 100.0
	if assigned > 0 {
		casualScore = (1 - float64(casual)/float64(assigned)) * 100
	}

	// 变异系数越低分数越高
	cvScore := 100.0
	if avgCount > 0 {
		stdDev := math.Sqrt(variance(counts, avgCount))
		cvScore = math.Max(0, 100-stdDev/avgCount*200)
	}

	score := countWeight*countScore +
		effortWeight*effortScore +
		casualWeight*casualScore +
		cvWeight*cvScore
	return math.Max(0, math.Min(100, score))
}

// Compare 比较两个排班结果的公平性，正值表示后者更差
func (f *FairnessAnalyzer) Compare(cal *calendar.Calendar, staff []*model.StaffMember, before, after model.ScheduleResult) map[string]float64 {
	m1 := f.Analyze(cal, staff, before)
	m2 := f.Analyze(cal, staff, after)

	return map[string]float64{
		"count_gini_diff":    m2.CountGini - m1.CountGini,
		"effort_gini_diff":   m2.EffortGini - m1.EffortGini,
		"casual_diff":        float64(m2.CasualAssignments - m1.CasualAssignments),
		"score_diff":         m2.OverallFairnessScore - m1.OverallFairnessScore,
		"before_score":       m1.OverallFairnessScore,
		"after_score":        m2.OverallFairnessScore,
	}
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func variance(values []float64, mean float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sumSquares := 0.0
	for _, v := range values {
		diff := v - mean
		sumSquares += diff * diff
	}
	return sumSquares / float64(len(values))
}

func extremes(values []float64) (max, min float64) {
	if len(values) == 0 {
		return 0, 0
	}
	max, min = values[0], values[0]
	for _, v := range values[1:] {
		if v > max {
			max = v
		}
		if v < min {
			min = v
		}
	}
	return
}

// gini 基尼系数，输入无需有序
func gini(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	if sum == 0 {
		return 0
	}

	g := 0.0
	for i, v := range sorted {
		g += (2*float64(i+1) - float64(n) - 1) * v
	}
	g = g / (float64(n) * sum)
	return math.Max(0, math.Min(1, g))
}
