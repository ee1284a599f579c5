// Package validator 对排班结果做事后验证。
// 引擎产出的结果天然满足硬约束，验证器面向的是
// 手工修改或归档导入后的结果表。
package validator

import (
	"fmt"

	"github.com/labroster/labroster/pkg/calendar"
	"github.com/labroster/labroster/pkg/model"
	"github.com/labroster/labroster/pkg/policy"
)

// ConflictType 冲突类型
type ConflictType string

const (
	ConflictDoubleBooked ConflictType = "double_booked"      // 同日多班
	ConflictUntrained    ConflictType = "untrained"          // 未受培训
	ConflictRole         ConflictType = "role_mismatch"      // 角色不匹配
	ConflictUnavailable  ConflictType = "unavailable"        // 个人不可用
	ConflictHoliday      ConflictType = "holiday"            // 全体休假日出勤
	ConflictHeavyRest    ConflictType = "heavy_back_to_back" // 重负荷班次连续
	ConflictWeeklyCap    ConflictType = "weekly_cap"         // 周班次数超限
	ConflictHighSkillCap ConflictType = "high_skill_cap"     // 高技能班次超限
	ConflictUnknownStaff ConflictType = "unknown_staff"      // 人员不在名单
	ConflictUnfilled     ConflictType = "unfilled_mandatory" // 强制单元空置
)

const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Conflict 冲突信息
type Conflict struct {
	Type     ConflictType `json:"type"`
	Severity string       `json:"severity"` // error/warning
	Initials string       `json:"initials,omitempty"`
	Date     string       `json:"date,omitempty"`
	Shift    string       `json:"shift,omitempty"`
	Message  string       `json:"message"`
}

// DetectorConfig 检测器开关
type DetectorConfig struct {
	CheckTraining     bool `json:"check_training"`
	CheckAvailability bool `json:"check_availability"`
}

// DefaultDetectorConfig 返回默认配置
func DefaultDetectorConfig() *DetectorConfig {
	return &DetectorConfig{
		CheckTraining:     true,
		CheckAvailability: true,
	}
}

// ConflictDetector 冲突检测器，绑定名单、班次目录与可用性
type ConflictDetector struct {
	policy *policy.Policy
	config *DetectorConfig
	roster []*model.StaffMember
	staff  map[string]*model.StaffMember
	shifts map[string]*model.ShiftDefinition
	oracle model.AvailabilityOracle
}

// NewConflictDetector 创建冲突检测器
func NewConflictDetector(pol *policy.Policy, staff []*model.StaffMember, shifts []*model.ShiftDefinition, oracle model.AvailabilityOracle, config *DetectorConfig) *ConflictDetector {
	if pol == nil {
		pol = policy.Default()
	}
	if config == nil {
		config = DefaultDetectorConfig()
	}
	if oracle == nil {
		oracle = model.NewAvailabilitySet(nil)
	}

	staffMap := make(map[string]*model.StaffMember, len(staff))
	for _, st := range staff {
		staffMap[st.Initials] = st
	}
	shiftMap := make(map[string]*model.ShiftDefinition, len(shifts))
	for _, sh := range shifts {
		shiftMap[sh.Name] = sh
	}

	return &ConflictDetector{
		policy: pol,
		config: config,
		roster: staff,
		staff:  staffMap,
		shifts: shiftMap,
		oracle: oracle,
	}
}

// DetectAll 检测结果表中的所有冲突，按日历顺序遍历
func (d *ConflictDetector) DetectAll(cal *calendar.Calendar, result model.ScheduleResult) []Conflict {
	var conflicts []Conflict

	for i := 0; i < cal.Len(); i++ {
		day := cal.Day(i)
		for _, row := range result[day.DateStr] {
			if row.AssignedTo == model.Unassigned {
				if !row.CanRemainOpen {
					conflicts = append(conflicts, Conflict{
						Type:     ConflictUnfilled,
						Severity: SeverityError,
						Date:     day.DateStr,
						Shift:    row.Shift,
						Message:  fmt.Sprintf("强制班次 %s 在 %s 空置", row.Shift, day.DateStr),
					})
				}
				continue
			}

			st, known := d.staff[row.AssignedTo]
			if !known {
				conflicts = append(conflicts, Conflict{
					Type:     ConflictUnknownStaff,
					Severity: SeverityError,
					Initials: row.AssignedTo,
					Date:     day.DateStr,
					Shift:    row.Shift,
					Message:  fmt.Sprintf("人员 %s 不在名单中", row.AssignedTo),
				})
				continue
			}

			conflicts = append(conflicts, d.checkCell(day, row.Shift, st)...)
		}

		conflicts = append(conflicts, d.detectDoubleBooked(day, result[day.DateStr])...)
	}

	conflicts = append(conflicts, d.detectHeavyRest(cal, result)...)
	conflicts = append(conflicts, d.detectWeeklyCaps(cal, result)...)
	conflicts = append(conflicts, d.detectHighSkillCaps(cal, result)...)
	return conflicts
}

// DetectForCell 检测把某人排入指定单元会引入的冲突。
// result 为当前结果表，指定单元上已有的排班视为将被替换。
func (d *ConflictDetector) DetectForCell(cal *calendar.Calendar, result model.ScheduleResult, date, shiftName, initials string) []Conflict {
	var conflicts []Conflict

	idx := cal.IndexOf(date)
	if idx < 0 {
		return []Conflict{{
			Type:     ConflictUnavailable,
			Severity: SeverityError,
			Initials: initials,
			Date:     date,
			Shift:    shiftName,
			Message:  fmt.Sprintf("日期 %s 不在排班区间内", date),
		}}
	}
	day := cal.Day(idx)

	st, known := d.staff[initials]
	if !known {
		return []Conflict{{
			Type:     ConflictUnknownStaff,
			Severity: SeverityError,
			Initials: initials,
			Date:     date,
			Shift:    shiftName,
			Message:  fmt.Sprintf("人员 %s 不在名单中", initials),
		}}
	}

	conflicts = append(conflicts, d.checkCell(day, shiftName, st)...)

	// 同日已有其他班次
	for _, row := range result[date] {
		if row.Shift != shiftName && row.AssignedTo == initials {
			conflicts = append(conflicts, Conflict{
				Type:     ConflictDoubleBooked,
				Severity: SeverityError,
				Initials: initials,
				Date:     date,
				Shift:    shiftName,
				Message:  fmt.Sprintf("人员 %s 当日已承担 %s", initials, row.Shift),
			})
		}
	}

	// 相邻工作日的重负荷班次
	if d.policy.IsHeavy(shiftName) {
		for _, adj := range []int{idx - 1, idx + 1} {
			if adj < 0 || adj >= cal.Len() {
				continue
			}
			other := cal.Day(adj)
			if heavy := d.heavyShiftOf(result[other.DateStr], initials); heavy != "" {
				conflicts = append(conflicts, Conflict{
					Type:     ConflictHeavyRest,
					Severity: SeverityError,
					Initials: initials,
					Date:     date,
					Shift:    shiftName,
					Message:  fmt.Sprintf("人员 %s 在相邻工作日 %s 已承担重负荷班次 %s", initials, other.DateStr, heavy),
				})
			}
		}
	}

	// 加入后的周班次数
	weekCount := 1
	for _, di := range cal.DayIndexesOfWeek(day.ISOWeek) {
		wd := cal.Day(di)
		for _, row := range result[wd.DateStr] {
			if row.AssignedTo == initials && !(wd.DateStr == date && row.Shift == shiftName) {
				weekCount++
			}
		}
	}
	if limit := d.weeklyLimit(cal, day.ISOWeek); weekCount > limit {
		conflicts = append(conflicts, Conflict{
			Type:     ConflictWeeklyCap,
			Severity: SeverityWarning,
			Initials: initials,
			Date:     date,
			Shift:    shiftName,
			Message:  fmt.Sprintf("人员 %s 本周将达 %d 班，超过上限 %d", initials, weekCount, limit),
		})
	}

	if perWeek, capped := d.policy.HighSkillCapFor(shiftName); capped {
		count := 1
		for _, di := range cal.DayIndexesOfWeek(day.ISOWeek) {
			wd := cal.Day(di)
			for _, row := range result[wd.DateStr] {
				if row.Shift == shiftName && row.AssignedTo == initials && wd.DateStr != date {
					count++
				}
			}
		}
		if count > perWeek {
			conflicts = append(conflicts, Conflict{
				Type:     ConflictHighSkillCap,
				Severity: SeverityError,
				Initials: initials,
				Date:     date,
				Shift:    shiftName,
				Message:  fmt.Sprintf("人员 %s 本周 %s 将达 %d 次，超过上限 %d", initials, shiftName, count, perWeek),
			})
		}
	}

	return conflicts
}

// checkCell 检查单个已排单元的培训、角色与可用性
func (d *ConflictDetector) checkCell(day calendar.WorkingDay, shiftName string, st *model.StaffMember) []Conflict {
	var conflicts []Conflict

	if d.config.CheckTraining && !st.IsTrainedFor(shiftName) {
		conflicts = append(conflicts, Conflict{
			Type:     ConflictUntrained,
			Severity: SeverityError,
			Initials: st.Initials,
			Date:     day.DateStr,
			Shift:    shiftName,
			Message:  fmt.Sprintf("人员 %s 未受 %s 培训", st.Initials, shiftName),
		})
	}

	if sh, ok := d.shifts[shiftName]; ok && !st.RoleMatches(sh.RoleRequired) {
		conflicts = append(conflicts, Conflict{
			Type:     ConflictRole,
			Severity: SeverityError,
			Initials: st.Initials,
			Date:     day.DateStr,
			Shift:    shiftName,
			Message:  fmt.Sprintf("角色 %s 不满足班次要求 %s", st.Role, sh.RoleRequired),
		})
	}

	if d.config.CheckAvailability {
		if d.oracle.IsHoliday(day.DateStr) {
			// 休假日出勤可能来自有意的钉选，只给警告
			conflicts = append(conflicts, Conflict{
				Type:     ConflictHoliday,
				Severity: SeverityWarning,
				Initials: st.Initials,
				Date:     day.DateStr,
				Shift:    shiftName,
				Message:  fmt.Sprintf("%s 为全体休假日", day.DateStr),
			})
		} else if !d.oracle.IsAvailable(st.Initials, day.DateStr) {
			conflicts = append(conflicts, Conflict{
				Type:     ConflictUnavailable,
				Severity: SeverityError,
				Initials: st.Initials,
				Date:     day.DateStr,
				Shift:    shiftName,
				Message:  fmt.Sprintf("人员 %s 在 %s 不可用", st.Initials, day.DateStr),
			})
		}
	}

	return conflicts
}

// detectDoubleBooked 检测同日承担多个班次的人员
func (d *ConflictDetector) detectDoubleBooked(day calendar.WorkingDay, rows []model.AssignmentRecord) []Conflict {
	counts := make(map[string]int)
	for _, row := range rows {
		if row.AssignedTo != model.Unassigned {
			counts[row.AssignedTo]++
		}
	}

	var conflicts []Conflict
	for _, st := range d.roster {
		if n := counts[st.Initials]; n > 1 {
			conflicts = append(conflicts, Conflict{
				Type:     ConflictDoubleBooked,
				Severity: SeverityError,
				Initials: st.Initials,
				Date:     day.DateStr,
				Message:  fmt.Sprintf("人员 %s 在 %s 承担 %d 个班次", st.Initials, day.DateStr, n),
			})
		}
	}
	return conflicts
}

// detectHeavyRest 检测相邻工作日连续承担重负荷班次
func (d *ConflictDetector) detectHeavyRest(cal *calendar.Calendar, result model.ScheduleResult) []Conflict {
	var conflicts []Conflict
	for i := 0; i+1 < cal.Len(); i++ {
		day, next := cal.Day(i), cal.Day(i+1)
		for _, st := range d.roster {
			first := d.heavyShiftOf(result[day.DateStr], st.Initials)
			second := d.heavyShiftOf(result[next.DateStr], st.Initials)
			if first != "" && second != "" {
				conflicts = append(conflicts, Conflict{
					Type:     ConflictHeavyRest,
					Severity: SeverityError,
					Initials: st.Initials,
					Date:     next.DateStr,
					Shift:    second,
					Message:  fmt.Sprintf("人员 %s 连续工作日承担重负荷班次 %s 与 %s", st.Initials, first, second),
				})
			}
		}
	}
	return conflicts
}

// detectWeeklyCaps 检测周班次数超限（仅警告）
func (d *ConflictDetector) detectWeeklyCaps(cal *calendar.Calendar, result model.ScheduleResult) []Conflict {
	var conflicts []Conflict
	for _, week := range cal.Weeks() {
		limit := d.weeklyLimit(cal, week)
		for _, st := range d.roster {
			count := 0
			for _, di := range cal.DayIndexesOfWeek(week) {
				for _, row := range result[cal.Day(di).DateStr] {
					if row.AssignedTo == st.Initials {
						count++
					}
				}
			}
			if count > limit {
				conflicts = append(conflicts, Conflict{
					Type:     ConflictWeeklyCap,
					Severity: SeverityWarning,
					Initials: st.Initials,
					Message:  fmt.Sprintf("人员 %s 第 %d 周承担 %d 班，超过上限 %d", st.Initials, week, count, limit),
				})
			}
		}
	}
	return conflicts
}

// detectHighSkillCaps 检测高技能班次的每周上限
func (d *ConflictDetector) detectHighSkillCaps(cal *calendar.Calendar, result model.ScheduleResult) []Conflict {
	var conflicts []Conflict
	for _, entry := range d.policy.HighSkillCaps {
		for _, week := range cal.Weeks() {
			for _, st := range d.roster {
				count := 0
				for _, di := range cal.DayIndexesOfWeek(week) {
					for _, row := range result[cal.Day(di).DateStr] {
						if row.Shift == entry.Shift && row.AssignedTo == st.Initials {
							count++
						}
					}
				}
				if count > entry.PerWeek {
					conflicts = append(conflicts, Conflict{
						Type:     ConflictHighSkillCap,
						Severity: SeverityError,
						Initials: st.Initials,
						Shift:    entry.Shift,
						Message:  fmt.Sprintf("人员 %s 第 %d 周承担 %s %d 次，超过上限 %d", st.Initials, week, entry.Shift, count, entry.PerWeek),
					})
				}
			}
		}
	}
	return conflicts
}

// heavyShiftOf 返回某人当日承担的重负荷班次名，没有则为空串
func (d *ConflictDetector) heavyShiftOf(rows []model.AssignmentRecord, initials string) string {
	for _, row := range rows {
		if row.AssignedTo == initials && d.policy.IsHeavy(row.Shift) {
			return row.Shift
		}
	}
	return ""
}

// weeklyLimit 返回某周的有效周班次上限，按休假日递减，下限为零
func (d *ConflictDetector) weeklyLimit(cal *calendar.Calendar, week int) int {
	limit := d.policy.WeeklyCap.Limit
	if d.policy.WeeklyCap.ReduceByHolidays {
		for _, di := range cal.DayIndexesOfWeek(week) {
			if d.oracle.IsHoliday(cal.Day(di).DateStr) {
				limit--
			}
		}
		if limit < 0 {
			limit = 0
		}
	}
	return limit
}
