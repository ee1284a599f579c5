package scenario

import (
	"testing"

	"github.com/labroster/labroster/pkg/model"
	"github.com/labroster/labroster/pkg/scheduler"
)

// TestLeaveCrunchWeek 请假高峰：同周四人次请假后仍须排满
func TestLeaveCrunchWeek(t *testing.T) {
	leaves := []model.AvailabilityRecord{
		{Initials: "MB", Date: "2026-03-03", Reason: "年假"},
		{Initials: "MB", Date: "2026-03-04", Reason: "年假"},
		{Initials: "TH", Date: "2026-03-04", Reason: "病假"},
		{Initials: "JC", Date: "2026-03-06", Reason: "外出培训"},
	}
	in := scheduler.Inputs{
		Staff:        labStaff(),
		Shifts:       labCatalog(),
		Availability: model.NewAvailabilitySet(leaves),
	}
	out := generate(t, in, model.GenerateRequest{Range: weekRange()})

	if !out.Status.Solved() {
		t.Fatalf("状态 = %s, 期望已求解", out.Status)
	}

	for _, lv := range leaves {
		for _, row := range out.Result[lv.Date] {
			if row.AssignedTo == lv.Initials {
				t.Errorf("%s 在请假日 %s 仍被排到 %s", lv.Initials, lv.Date, row.Shift)
			}
		}
	}

	// 减员后强制班次依旧排满
	for _, date := range out.Result.Dates() {
		for _, row := range out.Result[date] {
			if !row.CanRemainOpen && row.AssignedTo == model.Unassigned {
				t.Errorf("%s 的强制班次 %s 空置", date, row.Shift)
			}
		}
	}
	t.Logf("目标值: %d, 迭代: %d", out.Diagnostics.Objective, out.Diagnostics.Iterations)
}

// TestHolidayShutdown 全体休假日整日置空且行保留
func TestHolidayShutdown(t *testing.T) {
	in := scheduler.Inputs{
		Staff:  labStaff(),
		Shifts: labCatalog(),
		Availability: model.NewAvailabilitySet([]model.AvailabilityRecord{
			{Initials: model.AllStaff, Date: "2026-03-04", Reason: "实验室年度检修", IsHoliday: true},
		}),
	}
	out := generate(t, in, model.GenerateRequest{Range: weekRange()})

	if !out.Status.Solved() {
		t.Fatalf("状态 = %s, 期望已求解", out.Status)
	}
	rows, ok := out.Result["2026-03-04"]
	if !ok {
		t.Fatal("休假日应保留在结果表中")
	}
	for _, row := range rows {
		if row.AssignedTo != model.Unassigned {
			t.Errorf("休假日 %s 仍被排班给 %s", row.Shift, row.AssignedTo)
		}
	}

	// 其余工作日不受影响
	for _, date := range []string{"2026-03-02", "2026-03-03", "2026-03-05", "2026-03-06"} {
		for _, row := range out.Result[date] {
			if !row.CanRemainOpen && row.AssignedTo == model.Unassigned {
				t.Errorf("%s 的强制班次 %s 空置", date, row.Shift)
			}
		}
	}
}

// TestCytologyWipeoutInfeasible 细胞学组整组缺席导致不可行
func TestCytologyWipeoutInfeasible(t *testing.T) {
	var records []model.AvailabilityRecord
	for _, who := range []string{"GN", "DS", "MB", "TH", "PK", "SW"} {
		records = append(records, model.AvailabilityRecord{
			Initials: who, Date: "2026-03-03", Reason: "学术会议",
		})
	}
	in := scheduler.Inputs{
		Staff:        labStaff(),
		Shifts:       labCatalog(),
		Availability: model.NewAvailabilitySet(records),
	}
	out := generate(t, in, model.GenerateRequest{Range: weekRange()})

	if out.Status != model.StatusInfeasible {
		t.Fatalf("状态 = %s, 期望 %s", out.Status, model.StatusInfeasible)
	}
	if len(out.Result) != 0 {
		t.Error("不可行的运行不应产出结果行")
	}

	// 当日三个强制细胞学班次无人可选，须进入诊断
	unfillable := make(map[model.CellRef]bool, len(out.Diagnostics.UnfillableCells))
	for _, cell := range out.Diagnostics.UnfillableCells {
		unfillable[cell] = true
	}
	for _, shift := range []string{"Cyto FNA", "Cyto EUS", "Cyto UTD"} {
		if !unfillable[model.CellRef{Date: "2026-03-03", Shift: shift}] {
			t.Errorf("诊断缺少不可填单元格 2026-03-03 %s", shift)
		}
	}
	t.Logf("不可填单元格: %v", out.Diagnostics.UnfillableCells)
}
