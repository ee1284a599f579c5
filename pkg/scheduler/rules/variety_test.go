package rules

import (
	"testing"

	"github.com/labroster/labroster/pkg/model"
	"github.com/labroster/labroster/pkg/policy"
	"github.com/labroster/labroster/pkg/scheduler/cpmodel"
)

func TestVarietyRule(t *testing.T) {
	cal := weekCalendar(t)
	staff := []*model.StaffMember{
		tech("VV", "Cyto MCY", "Cyto GYN", "Prep GYN", "Prep EBUS"),
		tech("AA", "Prep GYN"),
	}
	shifts := []*model.ShiftDefinition{mandatoryShift("Cyto MCY"), mandatoryShift("Prep GYN")}
	ctx := newTestContext(t, cal, staff, shifts, nil, nil, nil)

	if err := NewVarietyRule(3, 10).Apply(ctx); err != nil {
		t.Fatalf("Apply() 错误: %v", err)
	}

	a := cpmodel.NewAssignment(ctx.Model)
	// 多面手一周内同一班次排两次，超出首次的一次计罚
	a.Set(ctx.Var(0, 0, 0), true)
	a.Set(ctx.Var(1, 0, 0), true)
	if got := a.Objective(); got != 10 {
		t.Errorf("重复目标 = %d, 期望 10", got)
	}

	// 改为不同班次则不罚
	a.Set(ctx.Var(1, 0, 0), false)
	a.Set(ctx.Var(1, 1, 0), true)
	if got := a.Objective(); got != 0 {
		t.Errorf("多样目标 = %d, 期望 0", got)
	}

	// 第三次重复累计两次计罚
	a.Set(ctx.Var(1, 1, 0), false)
	a.Set(ctx.Var(1, 0, 0), true)
	a.Set(ctx.Var(2, 0, 0), true)
	if got := a.Objective(); got != 20 {
		t.Errorf("三连目标 = %d, 期望 20", got)
	}
}

func TestVarietyRuleIgnoresNonVersatile(t *testing.T) {
	cal := weekCalendar(t)
	staff := []*model.StaffMember{tech("AA", "Prep GYN")}
	shifts := []*model.ShiftDefinition{mandatoryShift("Prep GYN")}
	ctx := newTestContext(t, cal, staff, shifts, nil, nil, nil)

	if err := NewVarietyRule(3, 10).Apply(ctx); err != nil {
		t.Fatalf("Apply() 错误: %v", err)
	}

	a := cpmodel.NewAssignment(ctx.Model)
	for d := 0; d < cal.Len(); d++ {
		a.Set(ctx.Var(d, 0, 0), true)
	}
	if got := a.Objective(); got != 0 {
		t.Errorf("非多面手重复目标 = %d, 期望 0", got)
	}
}

func TestSpecialistOverloadRule(t *testing.T) {
	cal := weekCalendar(t)
	specialist := &model.StaffMember{
		Initials:      "DR",
		Role:          "Cytologist",
		TrainedShifts: []string{"Cyto FNA", "Cyto EUS"},
	}
	staff := []*model.StaffMember{specialist, tech("AA", "Cyto FNA", "Cyto EUS")}
	shifts := []*model.ShiftDefinition{mandatoryShift("Cyto FNA"), mandatoryShift("Cyto EUS")}
	ctx := newTestContext(t, cal, staff, shifts, nil, nil, nil)

	cfg := policy.OverloadRule{
		Role:    "Cytologist",
		Shifts:  []string{"Cyto FNA", "Cyto EUS"},
		PerWeek: 1,
	}
	if err := NewSpecialistOverloadRule(cfg, 8).Apply(ctx); err != nil {
		t.Fatalf("Apply() 错误: %v", err)
	}

	a := cpmodel.NewAssignment(ctx.Model)
	a.Set(ctx.Var(0, 0, 0), true) // DR 周一 FNA
	if got := a.Objective(); got != 0 {
		t.Errorf("限额内目标 = %d, 期望 0", got)
	}

	a.Set(ctx.Var(2, 1, 0), true) // DR 周三 EUS，跨班次累计
	if got := a.Objective(); got != 8 {
		t.Errorf("超限目标 = %d, 期望 8", got)
	}

	// 其他角色不受限
	a.Set(ctx.Var(0, 0, 0), false)
	a.Set(ctx.Var(2, 1, 0), false)
	a.Set(ctx.Var(0, 0, 1), true)
	a.Set(ctx.Var(2, 1, 1), true)
	if got := a.Objective(); got != 0 {
		t.Errorf("非专科角色目标 = %d, 期望 0", got)
	}
}

func TestSpecialistOverloadRuleNoMatches(t *testing.T) {
	cal := weekCalendar(t)
	ctx := newTestContext(t, cal, []*model.StaffMember{tech("AA", "Prep GYN")},
		[]*model.ShiftDefinition{mandatoryShift("Prep GYN")}, nil, nil, nil)

	cfg := policy.OverloadRule{Role: "Cytologist", Shifts: []string{"Cyto FNA"}, PerWeek: 1}
	if err := NewSpecialistOverloadRule(cfg, 8).Apply(ctx); err != nil {
		t.Fatalf("Apply() 错误: %v", err)
	}
	if got := len(ctx.Model.Penalties()); got != 0 {
		t.Errorf("无匹配班次时惩罚项数 = %d, 期望 0", got)
	}
}
