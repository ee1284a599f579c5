package rules

import (
	"testing"

	"github.com/labroster/labroster/pkg/effort"
	"github.com/labroster/labroster/pkg/model"
	"github.com/labroster/labroster/pkg/scheduler/cpmodel"
)

func TestCountFairnessRule(t *testing.T) {
	cal := weekCalendar(t)
	staff := []*model.StaffMember{tech("AA", "Prep GYN"), tech("BB", "Prep GYN")}
	shifts := []*model.ShiftDefinition{mandatoryShift("Prep GYN")}
	ctx := newTestContext(t, cal, staff, shifts, nil, nil, nil)

	if err := NewCountFairnessRule(1).Apply(ctx); err != nil {
		t.Fatalf("Apply() 错误: %v", err)
	}

	a := cpmodel.NewAssignment(ctx.Model)
	a.Set(ctx.Var(0, 0, 0), true)
	a.Set(ctx.Var(1, 0, 0), true)
	if got := a.Objective(); got != 2 {
		t.Errorf("失衡目标 = %d, 期望最大最小差 2", got)
	}

	a.Set(ctx.Var(1, 0, 0), false)
	a.Set(ctx.Var(1, 0, 1), true)
	if got := a.Objective(); got != 0 {
		t.Errorf("均衡目标 = %d, 期望 0", got)
	}
}

func TestCountFairnessRuleSkips(t *testing.T) {
	cal := weekCalendar(t)
	shifts := []*model.ShiftDefinition{mandatoryShift("Prep GYN")}

	t.Run("单人无公平可言", func(t *testing.T) {
		ctx := newTestContext(t, cal, []*model.StaffMember{tech("AA", "Prep GYN")}, shifts, nil, nil, nil)
		if err := NewCountFairnessRule(1).Apply(ctx); err != nil {
			t.Fatalf("Apply() 错误: %v", err)
		}
		if got := len(ctx.Model.Penalties()); got != 0 {
			t.Errorf("惩罚项数 = %d, 期望 0", got)
		}
	})

	t.Run("权重为零不参与", func(t *testing.T) {
		staff := []*model.StaffMember{tech("AA", "Prep GYN"), tech("BB", "Prep GYN")}
		ctx := newTestContext(t, cal, staff, shifts, nil, nil, nil)
		if err := NewCountFairnessRule(0).Apply(ctx); err != nil {
			t.Fatalf("Apply() 错误: %v", err)
		}
		if got := len(ctx.Model.Penalties()); got != 0 {
			t.Errorf("惩罚项数 = %d, 期望 0", got)
		}
	})
}

func TestEffortFairnessRule(t *testing.T) {
	cal := weekCalendar(t)
	staff := []*model.StaffMember{
		tech("V1", "Cyto MCY", "Cyto GYN", "Prep GYN", "Prep EBUS"),
		tech("V2", "Cyto MCY", "Cyto GYN", "Prep GYN", "Prep Clerical"),
		tech("AA", "Prep GYN"), // 非多面手，不参与
	}
	shifts := []*model.ShiftDefinition{mandatoryShift("Cyto MCY"), mandatoryShift("Prep GYN")}
	eff := effort.New(map[string]map[string]int{
		"Monday": {"Cyto MCY": 8},
	})
	ctx := NewContext(cal, staff, shifts, model.NewAvailabilitySet(nil), eff, nil, minimalPolicy())

	if err := NewEffortFairnessRule(3, 1).Apply(ctx); err != nil {
		t.Fatalf("Apply() 错误: %v", err)
	}

	a := cpmodel.NewAssignment(ctx.Model)
	// V1 承担周一 Cyto MCY（8 点），V2 空闲
	a.Set(ctx.Var(0, 0, 0), true)
	if got := a.Objective(); got != 8 {
		t.Errorf("目标 = %d, 期望点数差 8", got)
	}

	// V2 承担周二 Cyto MCY（默认 5 点），差降为 3
	a.Set(ctx.Var(1, 0, 1), true)
	if got := a.Objective(); got != 3 {
		t.Errorf("目标 = %d, 期望点数差 3", got)
	}

	// 非多面手的安排不影响点数差
	a.Set(ctx.Var(2, 1, 2), true)
	if got := a.Objective(); got != 3 {
		t.Errorf("目标 = %d, 非多面手不应参与", got)
	}
}

func TestEffortFairnessRuleSubgroupTooSmall(t *testing.T) {
	cal := weekCalendar(t)
	staff := []*model.StaffMember{
		tech("V1", "Cyto MCY", "Cyto GYN", "Prep GYN", "Prep EBUS"),
		tech("AA", "Prep GYN"),
	}
	shifts := []*model.ShiftDefinition{mandatoryShift("Prep GYN")}
	ctx := newTestContext(t, cal, staff, shifts, nil, nil, nil)

	if err := NewEffortFairnessRule(3, 1).Apply(ctx); err != nil {
		t.Fatalf("Apply() 错误: %v", err)
	}
	if got := len(ctx.Model.Penalties()); got != 0 {
		t.Errorf("多面手不足两人时惩罚项数 = %d, 期望 0", got)
	}
}

func TestCasualUsageRule(t *testing.T) {
	cal := weekCalendar(t)
	casual := tech("CC", "Prep GYN")
	casual.IsCasual = true
	staff := []*model.StaffMember{tech("AA", "Prep GYN"), casual}
	shifts := []*model.ShiftDefinition{mandatoryShift("Prep GYN")}
	ctx := newTestContext(t, cal, staff, shifts, nil, nil, nil)

	if err := NewCasualUsageRule(10).Apply(ctx); err != nil {
		t.Fatalf("Apply() 错误: %v", err)
	}

	a := cpmodel.NewAssignment(ctx.Model)
	a.Set(ctx.Var(0, 0, 0), true) // 正式员工不计罚
	if got := a.Objective(); got != 0 {
		t.Errorf("正式员工目标 = %d, 期望 0", got)
	}

	a.Set(ctx.Var(1, 0, 1), true)
	a.Set(ctx.Var(2, 0, 1), true)
	if got := a.Objective(); got != 20 {
		t.Errorf("临时工两次目标 = %d, 期望 20", got)
	}
}

func TestCasualUsageRuleNoCasuals(t *testing.T) {
	cal := weekCalendar(t)
	ctx := newTestContext(t, cal, []*model.StaffMember{tech("AA", "Prep GYN")},
		[]*model.ShiftDefinition{mandatoryShift("Prep GYN")}, nil, nil, nil)

	if err := NewCasualUsageRule(10).Apply(ctx); err != nil {
		t.Fatalf("Apply() 错误: %v", err)
	}
	if got := len(ctx.Model.Penalties()); got != 0 {
		t.Errorf("无临时工时惩罚项数 = %d, 期望 0", got)
	}
}
