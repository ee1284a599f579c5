// Package eligibility 判定某人某日能否承担某班次。
// 五项条件依次为：班次当日出现、非全体休假日、个人可用、
// 角色匹配、具备培训资质。钉选只豁免前两项，后三项始终生效。
package eligibility

import (
	"fmt"

	"github.com/labroster/labroster/pkg/calendar"
	"github.com/labroster/labroster/pkg/model"
)

// Check 单次资格判定结果
type Check struct {
	OK      bool     `json:"ok"`
	Reasons []string `json:"reasons,omitempty"`
}

// Evaluator 资格评估器
type Evaluator struct {
	oracle model.AvailabilityOracle
	pins   model.PinSet
}

// New 创建评估器
func New(oracle model.AvailabilityOracle, pins model.PinSet) *Evaluator {
	if pins == nil {
		pins = model.PinSet{}
	}
	return &Evaluator{oracle: oracle, pins: pins}
}

// Eligible 判定 staff 在 day 能否承担 shift，返回所有不满足的条件
func (e *Evaluator) Eligible(day calendar.WorkingDay, shift *model.ShiftDefinition, staff *model.StaffMember) Check {
	_, pinned := e.pins[model.CellRef{Date: day.DateStr, Shift: shift.Name}]
	holiday := e.oracle.IsHoliday(day.DateStr)

	var reasons []string
	if !shift.RecursOn(day.Weekday) && !pinned {
		reasons = append(reasons, fmt.Sprintf("班次 %s 不在 %s 出现", shift.Name, day.Weekday))
	}
	if holiday && !pinned {
		reasons = append(reasons, fmt.Sprintf("%s 为全体休假日", day.DateStr))
	}
	if !holiday && !e.oracle.IsAvailable(staff.Initials, day.DateStr) {
		reasons = append(reasons, fmt.Sprintf("%s 在 %s 不可用", staff.Initials, day.DateStr))
	}
	if !staff.RoleMatches(shift.RoleRequired) {
		reasons = append(reasons, fmt.Sprintf("角色 %s 不满足班次要求 %s", staff.Role, shift.RoleRequired))
	}
	if !staff.IsTrainedFor(shift.Name) {
		reasons = append(reasons, fmt.Sprintf("%s 未受 %s 培训", staff.Initials, shift.Name))
	}
	return Check{OK: len(reasons) == 0, Reasons: reasons}
}

// Candidates 返回 day 上 shift 的全部合格人选
func (e *Evaluator) Candidates(day calendar.WorkingDay, shift *model.ShiftDefinition, staff []*model.StaffMember) []*model.StaffMember {
	var out []*model.StaffMember
	for _, st := range staff {
		if e.Eligible(day, shift, st).OK {
			out = append(out, st)
		}
	}
	return out
}
