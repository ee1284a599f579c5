// Package model 定义排班引擎的核心数据模型
package model

// ShiftDefinition 班次定义
type ShiftDefinition struct {
	BaseModel
	Name         string `json:"name" db:"name"`                   // 唯一名称，如 "Cyto FNA"
	RoleRequired string `json:"role_required" db:"role_required"` // 所需角色或 Any
	IsFlexible   bool   `json:"is_flexible" db:"is_flexible"`     // 工时可弹性调整
	StartTime    string `json:"start_time,omitempty" db:"start_time"`
	EndTime      string `json:"end_time,omitempty" db:"end_time"`

	// CanRemainOpen 为 true 表示可选班次，允许无人承担；
	// 否则为强制班次，出现当日必须恰好一人
	CanRemainOpen bool `json:"can_remain_open" db:"can_remain_open"`

	// 班次出现的工作日名称，如 ["Monday", "Wednesday"]
	DaysOfWeek []string `json:"days_of_week" db:"days_of_week"`
}

// RecursOn 检查班次是否在某工作日出现
func (s *ShiftDefinition) RecursOn(weekday string) bool {
	for _, d := range s.DaysOfWeek {
		if d == weekday {
			return true
		}
	}
	return false
}

// IsMandatory 检查班次是否为强制班次
func (s *ShiftDefinition) IsMandatory() bool {
	return !s.CanRemainOpen
}
