package rules

import (
	"testing"

	"github.com/labroster/labroster/pkg/model"
	"github.com/labroster/labroster/pkg/scheduler/cpmodel"
)

func TestEligibilityRuleFixesIneligible(t *testing.T) {
	cal := weekCalendar(t)
	staff := []*model.StaffMember{
		tech("AA", "Prep GYN"),
		tech("BB", "Cyto MCY"), // 未受 Prep GYN 培训
	}
	shifts := []*model.ShiftDefinition{mandatoryShift("Prep GYN")}
	ctx := newTestContext(t, cal, staff, shifts, nil, nil, nil)

	if err := NewEligibilityRule().Apply(ctx); err != nil {
		t.Fatalf("Apply() 错误: %v", err)
	}

	for d := 0; d < cal.Len(); d++ {
		if !ctx.Model.IsFixedFalse(ctx.Var(d, 0, 1)) {
			t.Error("未受培训人员的变量应固定为假")
		}
		if !ctx.Model.IsFree(ctx.Var(d, 0, 0)) {
			t.Error("合格人员的变量应保持自由")
		}
	}
}

func TestEligibilityRulePersonalUnavailability(t *testing.T) {
	cal := weekCalendar(t)
	staff := []*model.StaffMember{tech("KL", "Prep GYN")}
	shifts := []*model.ShiftDefinition{mandatoryShift("Prep GYN")}
	records := []model.AvailabilityRecord{
		{Initials: "KL", Date: "2026-03-03", Reason: "PTO"},
	}
	ctx := newTestContext(t, cal, staff, shifts, records, nil, nil)

	if err := NewEligibilityRule().Apply(ctx); err != nil {
		t.Fatalf("Apply() 错误: %v", err)
	}

	if !ctx.Model.IsFixedFalse(ctx.Var(cal.IndexOf("2026-03-03"), 0, 0)) {
		t.Error("个人不可用日的变量应固定为假")
	}
	if !ctx.Model.IsFree(ctx.Var(cal.IndexOf("2026-03-02"), 0, 0)) {
		t.Error("其余日期的变量应保持自由")
	}
}

func TestEligibilityRuleSkipsPinnedCell(t *testing.T) {
	cal := weekCalendar(t)
	staff := []*model.StaffMember{tech("BB", "Cyto MCY")} // 未受培训
	shifts := []*model.ShiftDefinition{mandatoryShift("Prep GYN")}
	pins := model.PinSet{{Date: "2026-03-02", Shift: "Prep GYN"}: "BB"}
	ctx := newTestContext(t, cal, staff, shifts, nil, pins, nil)

	if err := NewEligibilityRule().Apply(ctx); err != nil {
		t.Fatalf("Apply() 错误: %v", err)
	}

	if !ctx.Model.IsFree(ctx.Var(cal.IndexOf("2026-03-02"), 0, 0)) {
		t.Error("钉选单元格不应被资格过滤触碰")
	}
	if !ctx.Model.IsFixedFalse(ctx.Var(cal.IndexOf("2026-03-03"), 0, 0)) {
		t.Error("未钉选单元格仍应过滤")
	}
}

func TestSingleShiftPerDayRule(t *testing.T) {
	cal := weekCalendar(t)
	staff := []*model.StaffMember{tech("AA", "Prep GYN", "Cyto MCY")}
	shifts := []*model.ShiftDefinition{
		mandatoryShift("Prep GYN"),
		mandatoryShift("Cyto MCY"),
	}
	ctx := newTestContext(t, cal, staff, shifts, nil, nil, nil)

	if err := NewSingleShiftPerDayRule().Apply(ctx); err != nil {
		t.Fatalf("Apply() 错误: %v", err)
	}

	a := cpmodel.NewAssignment(ctx.Model)
	a.Set(ctx.Var(0, 0, 0), true)
	if a.HardViolations() != 0 {
		t.Error("单日一班不应违反")
	}
	a.Set(ctx.Var(0, 1, 0), true)
	if a.HardViolations() != 1 {
		t.Errorf("单日两班应计一次违反, got %d", a.HardViolations())
	}
	// 不同日期互不影响
	a.Set(ctx.Var(0, 1, 0), false)
	a.Set(ctx.Var(1, 1, 0), true)
	if a.HardViolations() != 0 {
		t.Error("跨日承担两班不应违反")
	}
}

func TestSingleShiftPerDayRuleSingleShiftCatalog(t *testing.T) {
	cal := weekCalendar(t)
	ctx := newTestContext(t, cal, []*model.StaffMember{tech("AA", "Prep GYN")},
		[]*model.ShiftDefinition{mandatoryShift("Prep GYN")}, nil, nil, nil)

	if err := NewSingleShiftPerDayRule().Apply(ctx); err != nil {
		t.Fatalf("Apply() 错误: %v", err)
	}
	if got := len(ctx.Model.Linears()); got != 0 {
		t.Errorf("单班次目录不需要线性约束, got %d", got)
	}
}

func TestPinRule(t *testing.T) {
	cal := weekCalendar(t)
	staff := []*model.StaffMember{tech("AA", "Prep GYN"), tech("BB", "Prep GYN")}
	shifts := []*model.ShiftDefinition{mandatoryShift("Prep GYN")}
	pins := model.PinSet{{Date: "2026-03-04", Shift: "Prep GYN"}: "BB"}
	ctx := newTestContext(t, cal, staff, shifts, nil, pins, nil)

	if err := NewPinRule().Apply(ctx); err != nil {
		t.Fatalf("Apply() 错误: %v", err)
	}

	d := cal.IndexOf("2026-03-04")
	if !ctx.Model.IsFixedTrue(ctx.Var(d, 0, 1)) {
		t.Error("钉选人员应固定为真")
	}
	if !ctx.Model.IsFixedFalse(ctx.Var(d, 0, 0)) {
		t.Error("钉选单元格的其他人员应固定为假")
	}
	if !ctx.Model.IsFree(ctx.Var(cal.IndexOf("2026-03-02"), 0, 0)) {
		t.Error("未钉选单元格应保持自由")
	}

	a := cpmodel.NewAssignment(ctx.Model)
	if !a.True(ctx.Var(d, 0, 1)) {
		t.Error("初始取值应包含钉选安排")
	}
}

func TestPinRuleUnknownStaff(t *testing.T) {
	cal := weekCalendar(t)
	staff := []*model.StaffMember{tech("AA", "Prep GYN")}
	shifts := []*model.ShiftDefinition{mandatoryShift("Prep GYN")}
	pins := model.PinSet{{Date: "2026-03-04", Shift: "Prep GYN"}: "ZZ"}
	ctx := newTestContext(t, cal, staff, shifts, nil, pins, nil)

	if err := NewPinRule().Apply(ctx); err != nil {
		t.Fatalf("Apply() 错误: %v", err)
	}
	if !ctx.Model.IsFree(ctx.Var(cal.IndexOf("2026-03-04"), 0, 0)) {
		t.Error("未知人员的钉选不应固定任何变量")
	}
}
