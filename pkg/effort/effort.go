// Package effort 提供日标签/班次到工作量点数的查询表。
// 工作量点数用于在多面手之间平衡实际负荷，而非单纯的班次数。
package effort

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/labroster/labroster/pkg/logger"
)

// DefaultWeight 未登记的 (日标签, 班次) 组合使用的默认点数
const DefaultWeight = 5

// Map 工作量查询表：日标签 -> 班次名称 -> 点数。
// 构建后只读，一次排班运行内不可变。
type Map struct {
	table map[string]map[string]int
}

// Empty 返回空表，所有查询都落到默认点数
func Empty() *Map {
	return &Map{table: map[string]map[string]int{}}
}

// New 从内存表构建
func New(table map[string]map[string]int) *Map {
	if table == nil {
		return Empty()
	}
	return &Map{table: table}
}

// Load 从 YAML 文件加载工作量表。
// 文件不存在或格式错误时返回空表并记录警告，绝不让排班运行失败。
func Load(path string) *Map {
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn().Str("path", path).Err(err).Msg("工作量表文件不可读，使用默认点数")
		return Empty()
	}

	var table map[string]map[string]int
	if err := yaml.Unmarshal(data, &table); err != nil {
		logger.Warn().Str("path", path).Err(err).Msg("工作量表格式错误，使用默认点数")
		return Empty()
	}
	if table == nil {
		return Empty()
	}
	return &Map{table: table}
}

// Lookup 查询班次在某日标签下的工作量点数
func (m *Map) Lookup(shiftName, dayLabel string) int {
	if shifts, ok := m.table[dayLabel]; ok {
		if w, ok := shifts[shiftName]; ok {
			return w
		}
	}
	return DefaultWeight
}

// IsEmpty 检查表中是否没有任何条目
func (m *Map) IsEmpty() bool {
	return len(m.table) == 0
}

// DayLabels 返回表中出现的日标签
func (m *Map) DayLabels() []string {
	labels := make([]string, 0, len(m.table))
	for l := range m.table {
		labels = append(labels, l)
	}
	return labels
}
