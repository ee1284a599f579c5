package rules

import (
	"testing"

	"github.com/labroster/labroster/pkg/model"
	"github.com/labroster/labroster/pkg/policy"
	"github.com/labroster/labroster/pkg/scheduler/cpmodel"
)

func TestWeeklyTargetRule(t *testing.T) {
	cal := weekCalendar(t)
	staff := []*model.StaffMember{tech("DS", "Cyto MCY")}
	shifts := []*model.ShiftDefinition{mandatoryShift("Cyto MCY")}
	ctx := newTestContext(t, cal, staff, shifts, nil, nil, nil)

	targets := []policy.WeeklyTargetRule{
		{Staff: "DS", Shift: "Cyto MCY", PerWeek: 2, ReduceByHolidays: true},
	}
	if err := NewWeeklyTargetRule(targets, 6).Apply(ctx); err != nil {
		t.Fatalf("Apply() 错误: %v", err)
	}

	tests := []struct {
		name string
		days []int
		want int
	}{
		{"低于目标按差额计罚", []int{0}, 6},
		{"达到目标无罚", []int{0, 2}, 0},
		{"超出目标同样计罚", []int{0, 2, 4}, 6},
		{"一次未排罚两倍", nil, 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := cpmodel.NewAssignment(ctx.Model)
			for _, d := range tt.days {
				a.Set(ctx.Var(d, 0, 0), true)
			}
			if got := a.Objective(); got != tt.want {
				t.Errorf("目标 = %d, 期望 %d", got, tt.want)
			}
		})
	}
}

func TestWeeklyTargetRuleHolidayReduction(t *testing.T) {
	cal := weekCalendar(t)
	staff := []*model.StaffMember{tech("DS", "Cyto MCY")}
	shifts := []*model.ShiftDefinition{mandatoryShift("Cyto MCY")}
	records := []model.AvailabilityRecord{
		{Initials: model.AllStaff, Date: "2026-03-04", IsHoliday: true},
	}
	ctx := newTestContext(t, cal, staff, shifts, records, nil, nil)

	targets := []policy.WeeklyTargetRule{
		{Staff: "DS", Shift: "Cyto MCY", PerWeek: 2, ReduceByHolidays: true},
	}
	if err := NewWeeklyTargetRule(targets, 6).Apply(ctx); err != nil {
		t.Fatalf("Apply() 错误: %v", err)
	}

	// 一个休假日把周目标从 2 降到 1
	a := cpmodel.NewAssignment(ctx.Model)
	a.Set(ctx.Var(0, 0, 0), true)
	if got := a.Objective(); got != 0 {
		t.Errorf("休假周目标 = %d, 期望降额后无罚", got)
	}
}

func TestWeeklyTargetRuleUnknownStaff(t *testing.T) {
	cal := weekCalendar(t)
	ctx := newTestContext(t, cal, []*model.StaffMember{tech("AA", "Cyto MCY")},
		[]*model.ShiftDefinition{mandatoryShift("Cyto MCY")}, nil, nil, nil)

	targets := []policy.WeeklyTargetRule{
		{Staff: "ZZ", Shift: "Cyto MCY", PerWeek: 2},
	}
	if err := NewWeeklyTargetRule(targets, 6).Apply(ctx); err != nil {
		t.Fatalf("Apply() 错误: %v", err)
	}
	if got := len(ctx.Model.Penalties()); got != 0 {
		t.Errorf("未知人员的目标不应建惩罚, got %d", got)
	}
}

func TestPreferenceMinimumRule(t *testing.T) {
	cal := weekCalendar(t)
	staff := []*model.StaffMember{tech("KL", "Prep EBUS", "Prep GYN")}
	shifts := []*model.ShiftDefinition{mandatoryShift("Prep EBUS"), mandatoryShift("Prep GYN")}
	ctx := newTestContext(t, cal, staff, shifts, nil, nil, nil)

	prefs := []policy.PreferenceRule{
		{Staff: "KL", Shift: "Prep EBUS", MinPerWeek: 2, Weight: 5},
		{Staff: "KL", Shift: "Prep GYN", MinPerWeek: 1, Weight: 3},
	}
	if err := NewPreferenceMinimumRule(prefs).Apply(ctx); err != nil {
		t.Fatalf("Apply() 错误: %v", err)
	}
	if got := len(ctx.Model.Penalties()); got != 2 {
		t.Fatalf("惩罚项数 = %d, 期望每条偏好一项", got)
	}

	a := cpmodel.NewAssignment(ctx.Model)
	// 全部缺口：EBUS 差 2 次 ×5，GYN 差 1 次 ×3
	if got := a.Objective(); got != 13 {
		t.Errorf("全缺口目标 = %d, 期望 13", got)
	}

	a.Set(ctx.Var(0, 0, 0), true) // EBUS 一次
	a.Set(ctx.Var(1, 1, 0), true) // GYN 一次
	if got := a.Objective(); got != 5 {
		t.Errorf("部分满足目标 = %d, 期望 5", got)
	}

	a.Set(ctx.Var(2, 0, 0), true) // EBUS 第二次
	if got := a.Objective(); got != 0 {
		t.Errorf("全满足目标 = %d, 期望 0", got)
	}

	// 超出下限不加罚
	a.Set(ctx.Var(3, 0, 0), true)
	if got := a.Objective(); got != 0 {
		t.Errorf("超出下限目标 = %d, 期望 0", got)
	}
}

func TestQualityNudgeRule(t *testing.T) {
	cal := weekCalendar(t)
	staff := []*model.StaffMember{tech("AA", "Cyto 2ND (2)")}
	shifts := []*model.ShiftDefinition{optionalShift("Cyto 2ND (2)")}
	ctx := newTestContext(t, cal, staff, shifts, nil, nil, nil)

	nudges := []policy.QualityNudgeRule{{Shift: "Cyto 2ND (2)", Weight: 2}}
	if err := NewQualityNudgeRule(nudges).Apply(ctx); err != nil {
		t.Fatalf("Apply() 错误: %v", err)
	}

	a := cpmodel.NewAssignment(ctx.Model)
	if got := a.Objective(); got != 0 {
		t.Errorf("空置目标 = %d, 期望 0", got)
	}
	a.Set(ctx.Var(0, 0, 0), true)
	a.Set(ctx.Var(1, 0, 0), true)
	if got := a.Objective(); got != 4 {
		t.Errorf("两次排入目标 = %d, 期望 4", got)
	}
}
