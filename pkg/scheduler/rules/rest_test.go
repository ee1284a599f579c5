package rules

import (
	"testing"

	"github.com/labroster/labroster/pkg/calendar"
	"github.com/labroster/labroster/pkg/model"
	"github.com/labroster/labroster/pkg/scheduler/cpmodel"
)

func TestHeavyRestRule(t *testing.T) {
	cal := weekCalendar(t)
	staff := []*model.StaffMember{tech("AA", "Cyto FNA", "Cyto EUS")}
	shifts := []*model.ShiftDefinition{
		mandatoryShift("Cyto FNA"),
		mandatoryShift("Cyto EUS"),
	}
	ctx := newTestContext(t, cal, staff, shifts, nil, nil, nil)

	rule := NewHeavyRestRule([]string{"Cyto FNA", "Cyto EUS"})
	if err := rule.Apply(ctx); err != nil {
		t.Fatalf("Apply() 错误: %v", err)
	}

	tests := []struct {
		name string
		set  func(a *cpmodel.Assignment)
		want int
	}{
		{
			name: "单日重负荷无违反",
			set: func(a *cpmodel.Assignment) {
				a.Set(ctx.Var(0, 0, 0), true)
			},
			want: 0,
		},
		{
			name: "连续两日同一重负荷班次",
			set: func(a *cpmodel.Assignment) {
				a.Set(ctx.Var(0, 0, 0), true)
				a.Set(ctx.Var(1, 0, 0), true)
			},
			want: 1,
		},
		{
			name: "连续两日不同重负荷班次",
			set: func(a *cpmodel.Assignment) {
				a.Set(ctx.Var(0, 0, 0), true)
				a.Set(ctx.Var(1, 1, 0), true)
			},
			want: 1,
		},
		{
			name: "隔日重负荷无违反",
			set: func(a *cpmodel.Assignment) {
				a.Set(ctx.Var(0, 0, 0), true)
				a.Set(ctx.Var(2, 0, 0), true)
			},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := cpmodel.NewAssignment(ctx.Model)
			tt.set(a)
			if got := a.HardViolations(); got != tt.want {
				t.Errorf("HardViolations() = %d, 期望 %d", got, tt.want)
			}
		})
	}
}

func TestHeavyRestRuleFridayToMonday(t *testing.T) {
	// 2026-03-06 周五，2026-03-09 周一：工作日序列中相邻
	cal, err := calendar.Expand(model.DateRange{StartDate: "2026-03-06", EndDate: "2026-03-09"}, false)
	if err != nil {
		t.Fatalf("展开日历失败: %v", err)
	}
	if cal.Len() != 2 {
		t.Fatalf("工作日数 = %d, 期望周末被剔除后剩 2", cal.Len())
	}

	staff := []*model.StaffMember{tech("AA", "Cyto FNA")}
	shifts := []*model.ShiftDefinition{mandatoryShift("Cyto FNA")}
	ctx := newTestContext(t, cal, staff, shifts, nil, nil, nil)

	if err := NewHeavyRestRule([]string{"Cyto FNA"}).Apply(ctx); err != nil {
		t.Fatalf("Apply() 错误: %v", err)
	}

	a := cpmodel.NewAssignment(ctx.Model)
	a.Set(ctx.Var(0, 0, 0), true) // 周五
	a.Set(ctx.Var(1, 0, 0), true) // 下周一
	if a.HardViolations() != 1 {
		t.Errorf("周五接下周一应计连续违反, got %d", a.HardViolations())
	}
}

func TestHeavyRestRuleIgnoresLightShifts(t *testing.T) {
	cal := weekCalendar(t)
	staff := []*model.StaffMember{tech("AA", "Cyto FNA", "Prep GYN")}
	shifts := []*model.ShiftDefinition{
		mandatoryShift("Cyto FNA"),
		mandatoryShift("Prep GYN"),
	}
	ctx := newTestContext(t, cal, staff, shifts, nil, nil, nil)

	if err := NewHeavyRestRule([]string{"Cyto FNA"}).Apply(ctx); err != nil {
		t.Fatalf("Apply() 错误: %v", err)
	}

	a := cpmodel.NewAssignment(ctx.Model)
	a.Set(ctx.Var(0, 0, 0), true) // 周一重负荷
	a.Set(ctx.Var(1, 1, 0), true) // 周二普通班次
	if a.HardViolations() != 0 {
		t.Errorf("重负荷接普通班次不应违反, got %d", a.HardViolations())
	}
}

func TestHeavyRestRuleUnknownShifts(t *testing.T) {
	cal := weekCalendar(t)
	ctx := newTestContext(t, cal, []*model.StaffMember{tech("AA", "Prep GYN")},
		[]*model.ShiftDefinition{mandatoryShift("Prep GYN")}, nil, nil, nil)

	if err := NewHeavyRestRule([]string{"Cyto FNA"}).Apply(ctx); err != nil {
		t.Fatalf("Apply() 错误: %v", err)
	}
	if got := len(ctx.Model.Linears()); got != 0 {
		t.Errorf("目录中无重负荷班次时不应建约束, got %d", got)
	}
}
