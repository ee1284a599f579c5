package rules

import "github.com/labroster/labroster/pkg/policy"

// FromPolicy 按策略实例化全部规则。
// 无配置的可选规则（双人轮换、专科过载等）不会被创建。
func FromPolicy(p *policy.Policy) []Rule {
	out := []Rule{
		NewCoverageRule(),
		NewSingleShiftPerDayRule(),
		NewEligibilityRule(),
		NewPinRule(),
		NewHeavyRestRule(p.HeavyShifts),
		NewHighSkillCapRule(p.HighSkillCaps),
	}
	if p.DualCoverage != nil {
		out = append(out, NewDualCoverageRule(*p.DualCoverage))
	}

	out = append(out,
		NewCountFairnessRule(p.Weights.CountFairness),
		NewEffortFairnessRule(p.Thresholds.VersatilityTrainedShifts, p.Weights.EffortFairness),
		NewCasualUsageRule(p.Weights.CasualUsage),
		NewVarietyRule(p.Thresholds.VersatilityTrainedShifts, p.Weights.Variety),
		NewUnfilledOptionalRule(p.Weights.UnfilledOptional),
	)
	if p.SpecialistOverload != nil {
		out = append(out, NewSpecialistOverloadRule(*p.SpecialistOverload, p.Weights.SpecialistOverload))
	}
	if len(p.WeeklyTargets) > 0 {
		out = append(out, NewWeeklyTargetRule(p.WeeklyTargets, p.Weights.WeeklyTarget))
	}
	if len(p.PreferenceMinimums) > 0 {
		out = append(out, NewPreferenceMinimumRule(p.PreferenceMinimums))
	}
	if len(p.QualityNudges) > 0 {
		out = append(out, NewQualityNudgeRule(p.QualityNudges))
	}

	out = append(out, NewWeeklyCapRule(p.WeeklyCap))
	return out
}

// DefaultRegistry 用策略构建并填充规则注册表
func DefaultRegistry(p *policy.Policy) *Registry {
	reg := NewRegistry()
	for _, rule := range FromPolicy(p) {
		reg.Register(rule)
	}
	return reg
}
