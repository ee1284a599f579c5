// Package model 定义排班引擎的核心数据模型
package model

// StaffMember 实验室人员
type StaffMember struct {
	BaseModel
	Initials  string `json:"initials" db:"initials"`     // 唯一缩写，如 "DS"
	StartTime string `json:"start_time" db:"start_time"` // HH:MM
	EndTime   string `json:"end_time" db:"end_time"`     // HH:MM
	Role      string `json:"role" db:"role"`             // Cytologist/Admin/Prep Staff 或 Any
	IsCasual  bool   `json:"is_casual" db:"is_casual"`   // 临时工，使用需付出代价

	// 受训班次集合，人员只能被排到集合内的班次
	TrainedShifts []string `json:"trained_shifts" db:"trained_shifts"`

	// 自由格式的约束备注，引擎不解释其内容
	Constraints JSONMap `json:"constraints,omitempty" db:"constraints"`
}

// IsTrainedFor 检查人员是否受训于某班次
func (s *StaffMember) IsTrainedFor(shiftName string) bool {
	if shiftName == ShiftAny {
		return true
	}
	for _, t := range s.TrainedShifts {
		if t == shiftName {
			return true
		}
	}
	return false
}

// RoleMatches 检查人员角色是否满足班次要求
func (s *StaffMember) RoleMatches(required string) bool {
	return required == RoleAny || required == s.Role
}

// IsVersatile 受训班次数超过阈值的人员视为多面手，
// 参与轮换多样性与工作量公平性软约束
func (s *StaffMember) IsVersatile(threshold int) bool {
	return len(s.TrainedShifts) > threshold
}
