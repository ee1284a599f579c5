package model

import (
	"testing"
)

func TestStaffMember_IsTrainedFor(t *testing.T) {
	staff := &StaffMember{
		Initials:      "DS",
		Role:          "Cytologist",
		TrainedShifts: []string{"Cyto MCY", "Cyto FNA"},
	}

	tests := []struct {
		name     string
		shift    string
		expected bool
	}{
		{"受训班次", "Cyto MCY", true},
		{"未受训班次", "Prep GYN", false},
		{"Any班次不限培训", ShiftAny, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := staff.IsTrainedFor(tt.shift); got != tt.expected {
				t.Errorf("IsTrainedFor(%q) = %v, expected %v", tt.shift, got, tt.expected)
			}
		})
	}
}

func TestStaffMember_RoleMatches(t *testing.T) {
	staff := &StaffMember{Initials: "KL", Role: "Prep Staff"}

	if !staff.RoleMatches(RoleAny) {
		t.Error("Any角色要求应匹配所有人员")
	}
	if !staff.RoleMatches("Prep Staff") {
		t.Error("相同角色应匹配")
	}
	if staff.RoleMatches("Cytologist") {
		t.Error("不同角色不应匹配")
	}
}

func TestStaffMember_IsVersatile(t *testing.T) {
	tests := []struct {
		name      string
		trained   []string
		threshold int
		expected  bool
	}{
		{"超过阈值", []string{"A", "B", "C", "D"}, 3, true},
		{"等于阈值", []string{"A", "B", "C"}, 3, false},
		{"低于阈值", []string{"A"}, 3, false},
		{"无受训班次", nil, 3, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			staff := &StaffMember{TrainedShifts: tt.trained}
			if got := staff.IsVersatile(tt.threshold); got != tt.expected {
				t.Errorf("IsVersatile(%d) = %v, expected %v", tt.threshold, got, tt.expected)
			}
		})
	}
}
