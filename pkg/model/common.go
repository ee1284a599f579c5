// Package model 定义排班引擎的核心数据模型
package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// 通用哨兵值
const (
	// RoleAny 表示班次不限定角色
	RoleAny = "Any"
	// ShiftAny 表示不限定班次名称的培训要求
	ShiftAny = "Any"
	// Unassigned 表示班次未排到任何人员
	Unassigned = "Unassigned"
	// AllStaff 表示可用性记录作用于全体人员（节假日）
	AllStaff = "ALL"
)

// DateLayout 日期的标准格式
const DateLayout = "2006-01-02"

// ConstraintCategory 约束类别
type ConstraintCategory string

const (
	ConstraintHard ConstraintCategory = "hard" // 硬约束（必须满足）
	ConstraintSoft ConstraintCategory = "soft" // 软约束（尽量满足）
	// ConstraintDiagnostic 诊断约束：仅报告违反情况，
	// 不参与模型也不计入目标
	ConstraintDiagnostic ConstraintCategory = "diagnostic"
)

// BaseModel 基础模型（包含通用字段）
type BaseModel struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt *time.Time `json:"-" db:"deleted_at"`
}

// NewBaseModel 创建新的基础模型
func NewBaseModel() BaseModel {
	now := time.Now()
	return BaseModel{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// JSONMap 用于存储 JSONB 数据
type JSONMap map[string]interface{}

// TimeRange 时间范围
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Duration 返回时间范围的持续时间
func (tr TimeRange) Duration() time.Duration {
	return tr.End.Sub(tr.Start)
}

// Overlaps 检查两个时间范围是否重叠
func (tr TimeRange) Overlaps(other TimeRange) bool {
	return tr.Start.Before(other.End) && other.Start.Before(tr.End)
}

// Contains 检查时间范围是否包含某个时间点
func (tr TimeRange) Contains(t time.Time) bool {
	return !t.Before(tr.Start) && t.Before(tr.End)
}

// DateRange 日期范围（闭区间）
type DateRange struct {
	StartDate string `json:"start_date"` // YYYY-MM-DD
	EndDate   string `json:"end_date"`   // YYYY-MM-DD
}

// Parse 解析日期范围，结束日期早于开始日期视为非法
func (dr DateRange) Parse() (start, end time.Time, err error) {
	start, err = time.Parse(DateLayout, dr.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("开始日期格式错误: %w", err)
	}
	end, err = time.Parse(DateLayout, dr.EndDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("结束日期格式错误: %w", err)
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("结束日期 %s 早于开始日期 %s", dr.EndDate, dr.StartDate)
	}
	return start, end, nil
}

// Days 返回闭区间内的天数，区间非法时返回 0
func (dr DateRange) Days() int {
	start, end, err := dr.Parse()
	if err != nil {
		return 0
	}
	return int(end.Sub(start).Hours()/24) + 1
}
