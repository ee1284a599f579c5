package rules

import (
	"testing"

	"github.com/labroster/labroster/pkg/calendar"
	"github.com/labroster/labroster/pkg/effort"
	"github.com/labroster/labroster/pkg/model"
	"github.com/labroster/labroster/pkg/policy"
)

// weekCalendar 2026-03-02（周一）至 2026-03-06（周五）
func weekCalendar(t *testing.T) *calendar.Calendar {
	t.Helper()
	cal, err := calendar.Expand(model.DateRange{StartDate: "2026-03-02", EndDate: "2026-03-06"}, false)
	if err != nil {
		t.Fatalf("展开日历失败: %v", err)
	}
	return cal
}

func tech(initials string, trained ...string) *model.StaffMember {
	return &model.StaffMember{
		Initials:      initials,
		Role:          "Technologist",
		TrainedShifts: trained,
	}
}

func mandatoryShift(name string, days ...string) *model.ShiftDefinition {
	if len(days) == 0 {
		days = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}
	}
	return &model.ShiftDefinition{Name: name, RoleRequired: model.RoleAny, DaysOfWeek: days}
}

func optionalShift(name string) *model.ShiftDefinition {
	sh := mandatoryShift(name)
	sh.CanRemainOpen = true
	return sh
}

// minimalPolicy 只保留阈值与权重，可选规则全部关闭
func minimalPolicy() *policy.Policy {
	p := policy.Default()
	p.HighSkillCaps = nil
	p.DualCoverage = nil
	p.SpecialistOverload = nil
	p.WeeklyTargets = nil
	p.PreferenceMinimums = nil
	p.QualityNudges = nil
	return p
}

func newTestContext(t *testing.T, cal *calendar.Calendar, staff []*model.StaffMember,
	shifts []*model.ShiftDefinition, records []model.AvailabilityRecord,
	pins model.PinSet, pol *policy.Policy) *Context {
	t.Helper()
	if pol == nil {
		pol = minimalPolicy()
	}
	return NewContext(cal, staff, shifts, model.NewAvailabilitySet(records), effort.Empty(), pins, pol)
}

type stubRule struct {
	BaseRule
	applied *[]string
}

func (r stubRule) Apply(ctx *Context) error {
	if r.applied != nil {
		*r.applied = append(*r.applied, r.Name())
	}
	return nil
}

func newStub(name string, typ Type, cat model.ConstraintCategory, weight int, applied *[]string) stubRule {
	return stubRule{BaseRule: NewBaseRule(name, typ, cat, weight), applied: applied}
}

func TestRegistryOrdering(t *testing.T) {
	var order []string
	reg := NewRegistry()
	reg.Register(newStub("soft_low", TypeCasualUsage, model.ConstraintSoft, 5, &order))
	reg.Register(newStub("diag", TypeWeeklyCap, model.ConstraintDiagnostic, 0, &order))
	reg.Register(newStub("soft_high", TypeVariety, model.ConstraintSoft, 10, &order))
	reg.Register(newStub("hard", TypeCoverage, model.ConstraintHard, 0, &order))

	want := []string{"hard", "soft_high", "soft_low", "diag"}
	all := reg.All()
	if len(all) != len(want) {
		t.Fatalf("规则数 = %d, 期望 %d", len(all), len(want))
	}
	for i, rule := range all {
		if rule.Name() != want[i] {
			t.Errorf("第 %d 条规则 = %s, 期望 %s", i, rule.Name(), want[i])
		}
	}

	cal := weekCalendar(t)
	ctx := newTestContext(t, cal, []*model.StaffMember{tech("AA", "Prep GYN")},
		[]*model.ShiftDefinition{mandatoryShift("Prep GYN")}, nil, nil, nil)
	if err := reg.Apply(ctx); err != nil {
		t.Fatalf("Apply() 错误: %v", err)
	}
	for i, name := range order {
		if name != want[i] {
			t.Errorf("编译顺序第 %d 条 = %s, 期望 %s", i, name, want[i])
		}
	}
}

func TestRegistryReplaceSameType(t *testing.T) {
	reg := NewRegistry()
	reg.Register(newStub("first", TypeCoverage, model.ConstraintHard, 0, nil))
	reg.Register(newStub("second", TypeCoverage, model.ConstraintHard, 0, nil))

	if reg.Count() != 1 {
		t.Fatalf("Count() = %d, 期望 1", reg.Count())
	}
	if got := reg.Get(TypeCoverage); got == nil || got.Name() != "second" {
		t.Error("同类型注册应替换旧规则")
	}
}

func TestRegistryUnregister(t *testing.T) {
	reg := NewRegistry()
	reg.Register(newStub("hard", TypeCoverage, model.ConstraintHard, 0, nil))
	reg.Register(newStub("soft", TypeVariety, model.ConstraintSoft, 10, nil))

	reg.Unregister(TypeCoverage)
	if reg.Count() != 1 {
		t.Fatalf("Count() = %d, 期望 1", reg.Count())
	}
	if reg.Get(TypeCoverage) != nil {
		t.Error("注销后不应再能获取规则")
	}
	if got := reg.ByCategory(model.ConstraintSoft); len(got) != 1 {
		t.Errorf("软规则数 = %d, 期望 1", len(got))
	}
}

func TestRegistrySummary(t *testing.T) {
	reg := DefaultRegistry(policy.Default())
	summary := reg.Summary()
	if summary["hard"].(int) < 6 {
		t.Errorf("硬规则数 = %v, 期望至少 6", summary["hard"])
	}
	if summary["diagnostic"].(int) != 1 {
		t.Errorf("诊断规则数 = %v, 期望 1", summary["diagnostic"])
	}
	if summary["total"].(int) != reg.Count() {
		t.Error("摘要总数与 Count 不一致")
	}
}

func TestFromPolicyDefault(t *testing.T) {
	got := FromPolicy(policy.Default())

	types := make(map[Type]bool, len(got))
	for _, rule := range got {
		types[rule.Type()] = true
	}
	want := []Type{
		TypeCoverage, TypeDualCoverage, TypeSingleShiftPerDay, TypeEligibility,
		TypePinned, TypeHighSkillCap, TypeHeavyRest,
		TypeCountFairness, TypeEffortFairness, TypeCasualUsage, TypeVariety,
		TypeSpecialistOverload, TypeWeeklyTarget, TypePreferenceMinimum,
		TypeUnfilledOptional, TypeQualityNudge,
		TypeWeeklyCap,
	}
	for _, typ := range want {
		if !types[typ] {
			t.Errorf("默认策略缺少规则类型 %s", typ)
		}
	}
	if len(got) != len(want) {
		t.Errorf("规则数 = %d, 期望 %d", len(got), len(want))
	}
}

func TestFromPolicyMinimal(t *testing.T) {
	got := FromPolicy(minimalPolicy())
	for _, rule := range got {
		switch rule.Type() {
		case TypeDualCoverage, TypeSpecialistOverload, TypeWeeklyTarget,
			TypePreferenceMinimum, TypeQualityNudge:
			t.Errorf("精简策略不应产生规则 %s", rule.Type())
		}
	}
}

func TestContextGrid(t *testing.T) {
	cal := weekCalendar(t)
	staff := []*model.StaffMember{tech("AA", "Prep GYN"), tech("BB", "Prep GYN")}
	shifts := []*model.ShiftDefinition{mandatoryShift("Prep GYN"), optionalShift("Cyto 2ND (2)")}
	ctx := newTestContext(t, cal, staff, shifts, nil, nil, nil)

	if got := ctx.Model.NumVars(); got != 5*2*2 {
		t.Errorf("变量数 = %d, 期望 20", got)
	}
	if ctx.StaffIndex("BB") != 1 || ctx.StaffIndex("ZZ") != -1 {
		t.Error("StaffIndex 结果不正确")
	}
	if ctx.ShiftIndex("Cyto 2ND (2)") != 1 || ctx.ShiftIndex("缺席班次") != -1 {
		t.Error("ShiftIndex 结果不正确")
	}
	if got := len(ctx.StaffVars(0)); got != 10 {
		t.Errorf("单人变量数 = %d, 期望 10", got)
	}

	v := ctx.Var(0, 0, 1)
	if ctx.Model.Key(v) != 1 {
		t.Error("变量键应为人员序号")
	}
	if name := ctx.Model.Name(v); name != "2026-03-02/Prep GYN/BB" {
		t.Errorf("变量名 = %s", name)
	}
}

func TestContextHolidaysInWeek(t *testing.T) {
	cal := weekCalendar(t)
	records := []model.AvailabilityRecord{
		{Initials: model.AllStaff, Date: "2026-03-04", IsHoliday: true},
		{Initials: model.AllStaff, Date: "2026-03-05", IsHoliday: true},
	}
	ctx := newTestContext(t, cal, []*model.StaffMember{tech("AA")},
		[]*model.ShiftDefinition{mandatoryShift("Prep GYN")}, records, nil, nil)

	week := cal.Weeks()[0]
	if got := ctx.HolidaysInWeek(week); got != 2 {
		t.Errorf("HolidaysInWeek(%d) = %d, 期望 2", week, got)
	}
}
