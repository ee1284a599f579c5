// Package calendar 将日期区间展开为工作日序列。
// 周末不进入模型：不产生变量、不产生约束、不产生结果行。
package calendar

import (
	"time"

	"github.com/teambition/rrule-go"

	"github.com/labroster/labroster/pkg/errors"
	"github.com/labroster/labroster/pkg/model"
)

// 周五的两种工作量口径标签
const (
	EbusFridayLabel    = "EBUS Friday"
	RegularFridayLabel = "Regular Friday"
)

// WorkingDay 模型中的一个工作日
type WorkingDay struct {
	Date    time.Time `json:"-"`
	DateStr string    `json:"date"`    // YYYY-MM-DD
	Weekday string    `json:"weekday"` // Monday..Friday
	ISOWeek int       `json:"iso_week"`
	Label   string    `json:"label"` // 工作量查表用：Monday..Thursday 或周五口径标签
}

// Calendar 一次排班运行的工作日序列
type Calendar struct {
	days  []WorkingDay
	weeks []int
	// 日期字符串到序号的索引
	index map[string]int
}

// Expand 展开闭区间内的工作日（仅周一至周五）。
// 结束日期早于开始日期在建模前拒绝。
func Expand(rng model.DateRange, ebusFriday bool) (*Calendar, error) {
	start, end, err := rng.Parse()
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidTimeRange, "日期区间无效")
	}

	rule, err := rrule.NewRRule(rrule.ROption{
		Freq:      rrule.WEEKLY,
		Byweekday: []rrule.Weekday{rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR},
		Dtstart:   start,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "构建工作日规则失败")
	}

	cal := &Calendar{index: make(map[string]int)}
	seenWeeks := make(map[int]bool)
	for _, occ := range rule.Between(start, end, true) {
		_, week := occ.ISOWeek()
		day := WorkingDay{
			Date:    occ,
			DateStr: occ.Format(model.DateLayout),
			Weekday: occ.Weekday().String(),
			ISOWeek: week,
			Label:   dayLabel(occ, ebusFriday),
		}
		cal.index[day.DateStr] = len(cal.days)
		cal.days = append(cal.days, day)
		if !seenWeeks[week] {
			seenWeeks[week] = true
			cal.weeks = append(cal.weeks, week)
		}
	}
	return cal, nil
}

// dayLabel 返回工作量查表使用的日标签
func dayLabel(date time.Time, ebusFriday bool) string {
	if date.Weekday() != time.Friday {
		return date.Weekday().String()
	}
	if ebusFriday {
		return EbusFridayLabel
	}
	return RegularFridayLabel
}

// Days 按时间顺序返回全部工作日
func (c *Calendar) Days() []WorkingDay {
	return c.days
}

// Len 返回工作日数量
func (c *Calendar) Len() int {
	return len(c.days)
}

// Day 返回第 i 个工作日
func (c *Calendar) Day(i int) WorkingDay {
	return c.days[i]
}

// Weeks 按出现顺序返回不重复的 ISO 周号
func (c *Calendar) Weeks() []int {
	return c.weeks
}

// DayIndexesOfWeek 返回某 ISO 周内工作日的序号
func (c *Calendar) DayIndexesOfWeek(week int) []int {
	var idx []int
	for i, d := range c.days {
		if d.ISOWeek == week {
			idx = append(idx, i)
		}
	}
	return idx
}

// IndexOf 返回日期字符串对应的工作日序号，不存在时返回 -1
func (c *Calendar) IndexOf(dateStr string) int {
	if i, ok := c.index[dateStr]; ok {
		return i
	}
	return -1
}

// Contains 检查日期是否为区间内的工作日
func (c *Calendar) Contains(dateStr string) bool {
	_, ok := c.index[dateStr]
	return ok
}
