// Package model 定义排班引擎的核心数据模型
package model

// AvailabilityRecord 可用性记录。
// Initials 为 AllStaff 且 IsHoliday 为 true 时表示全体休假日，
// 否则表示单个人员在该日期不可用（PTO、病假等）。
type AvailabilityRecord struct {
	BaseModel
	Initials  string `json:"initials" db:"initials"`
	Date      string `json:"date" db:"date"` // YYYY-MM-DD
	Reason    string `json:"reason" db:"reason"`
	IsHoliday bool   `json:"is_holiday" db:"is_holiday"`
}

// AvailabilityOracle 可用性查询接口，引擎只读
type AvailabilityOracle interface {
	// IsHoliday 该日期是否为全体休假日
	IsHoliday(date string) bool
	// IsAvailable 人员该日期是否可排班（休假日视为不可用）
	IsAvailable(initials, date string) bool
}

// AvailabilitySet 基于记录快照的 AvailabilityOracle 实现
type AvailabilitySet struct {
	holidays map[string]bool
	excluded map[string]map[string]bool // initials -> date -> true
}

// NewAvailabilitySet 从记录快照构建索引
func NewAvailabilitySet(records []AvailabilityRecord) *AvailabilitySet {
	set := &AvailabilitySet{
		holidays: make(map[string]bool),
		excluded: make(map[string]map[string]bool),
	}
	for _, rec := range records {
		if rec.IsHoliday {
			set.holidays[rec.Date] = true
			continue
		}
		if set.excluded[rec.Initials] == nil {
			set.excluded[rec.Initials] = make(map[string]bool)
		}
		set.excluded[rec.Initials][rec.Date] = true
	}
	return set
}

// IsHoliday 实现 AvailabilityOracle
func (a *AvailabilitySet) IsHoliday(date string) bool {
	return a.holidays[date]
}

// IsAvailable 实现 AvailabilityOracle。
// 默认可用，休假日或存在个人排除记录时不可用。
func (a *AvailabilitySet) IsAvailable(initials, date string) bool {
	if a.holidays[date] {
		return false
	}
	return !a.excluded[initials][date]
}

// HasExclusion 检查是否存在个人排除记录（不含休假日）
func (a *AvailabilitySet) HasExclusion(initials, date string) bool {
	return a.excluded[initials][date]
}
