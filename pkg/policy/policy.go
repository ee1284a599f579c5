// Package policy 定义排班策略的声明式规则表。
// 引擎逻辑不点名任何人员或班次，所有机构相关的规则
// （高技能班次、重负荷班次、双人覆盖、轮换目标、偏好）都由策略承载。
package policy

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/labroster/labroster/pkg/errors"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Thresholds 阈值参数
type Thresholds struct {
	// 受训班次数超过该值的人员视为多面手，
	// 参与轮换多样性与工作量公平性软约束
	VersatilityTrainedShifts int `yaml:"versatility_trained_shifts" json:"versatility_trained_shifts" validate:"min=0"`
}

// Weights 全局目标权重，数值为固定整数，反映机构的优先级次序：
// 公平性与临时工使用占主导，偏好与班次倾向只作细微调节
type Weights struct {
	CountFairness      int `yaml:"count_fairness" json:"count_fairness" validate:"min=0"`
	EffortFairness     int `yaml:"effort_fairness" json:"effort_fairness" validate:"min=0"`
	CasualUsage        int `yaml:"casual_usage" json:"casual_usage" validate:"min=0"`
	Variety            int `yaml:"variety" json:"variety" validate:"min=0"`
	SpecialistOverload int `yaml:"specialist_overload" json:"specialist_overload" validate:"min=0"`
	WeeklyTarget       int `yaml:"weekly_target" json:"weekly_target" validate:"min=0"`
	UnfilledOptional   int `yaml:"unfilled_optional" json:"unfilled_optional" validate:"min=0"`
}

// HighSkillCapRule 每周高技能班次上限（硬约束）
type HighSkillCapRule struct {
	Shift   string `yaml:"shift" json:"shift" validate:"required"`
	PerWeek int    `yaml:"per_week" json:"per_week" validate:"min=1"`
}

// DualCoverageRule 双人覆盖规则（硬约束）：
// 指定班次出现的每一天由指定两人中的恰好一人承担，其余人员禁排
type DualCoverageRule struct {
	Shift string   `yaml:"shift" json:"shift" validate:"required"`
	Pair  []string `yaml:"pair" json:"pair" validate:"len=2,dive,required"`
}

// OverloadRule 专家过载规则（软约束）：
// 指定角色的人员在一周内对任一指定班次承担超过每周上限的部分计罚
type OverloadRule struct {
	Role    string   `yaml:"role" json:"role" validate:"required"`
	Shifts  []string `yaml:"shifts" json:"shifts" validate:"min=1,dive,required"`
	PerWeek int      `yaml:"per_week" json:"per_week" validate:"min=1"`
}

// WeeklyTargetRule 每周轮换目标（软约束）：
// 指定人员对指定班次每周应承担的次数，偏离绝对值计罚
type WeeklyTargetRule struct {
	Staff   string `yaml:"staff" json:"staff" validate:"required"`
	Shift   string `yaml:"shift" json:"shift" validate:"required"`
	PerWeek int    `yaml:"per_week" json:"per_week" validate:"min=0"`
	// 目标按该周休假日数量递减，下限为零
	ReduceByHolidays bool `yaml:"reduce_by_holidays" json:"reduce_by_holidays"`
}

// PreferenceRule 每周偏好下限（软约束）：
// 仅对不足计罚，超额不罚，每条规则单独配权重
type PreferenceRule struct {
	Staff      string `yaml:"staff" json:"staff" validate:"required"`
	Shift      string `yaml:"shift" json:"shift" validate:"required"`
	MinPerWeek int    `yaml:"min_per_week" json:"min_per_week" validate:"min=0"`
	Weight     int    `yaml:"weight" json:"weight" validate:"min=0"`
	// 下限按该周休假日数量递减，下限为零
	ReduceByHolidays bool `yaml:"reduce_by_holidays" json:"reduce_by_holidays"`
}

// QualityNudgeRule 班次倾向（软约束）：
// 对指定的次选班次每次排班计一个小额平罚，引导求解器优先其替代班次
type QualityNudgeRule struct {
	Shift  string `yaml:"shift" json:"shift" validate:"required"`
	Weight int    `yaml:"weight" json:"weight" validate:"min=0"`
}

// WeeklyCapPolicy 每周班次总数上限。
// 仅用于诊断报告，超出不禁止也不计入目标。
type WeeklyCapPolicy struct {
	Limit            int  `yaml:"limit" json:"limit" validate:"min=1"`
	ReduceByHolidays bool `yaml:"reduce_by_holidays" json:"reduce_by_holidays"`
}

// Policy 完整的排班策略
type Policy struct {
	Thresholds         Thresholds         `yaml:"thresholds" json:"thresholds"`
	Weights            Weights            `yaml:"weights" json:"weights"`
	HighSkillCaps      []HighSkillCapRule `yaml:"high_skill_caps" json:"high_skill_caps" validate:"dive"`
	HeavyShifts        []string           `yaml:"heavy_shifts" json:"heavy_shifts" validate:"dive,required"`
	DualCoverage       *DualCoverageRule  `yaml:"dual_coverage,omitempty" json:"dual_coverage,omitempty"`
	SpecialistOverload *OverloadRule      `yaml:"specialist_overload,omitempty" json:"specialist_overload,omitempty"`
	WeeklyTargets      []WeeklyTargetRule `yaml:"weekly_targets" json:"weekly_targets" validate:"dive"`
	PreferenceMinimums []PreferenceRule   `yaml:"preference_minimums" json:"preference_minimums" validate:"dive"`
	QualityNudges      []QualityNudgeRule `yaml:"quality_nudges" json:"quality_nudges" validate:"dive"`
	WeeklyCap          WeeklyCapPolicy    `yaml:"weekly_cap" json:"weekly_cap"`
}

// Default 返回默认策略，参数与机构沿用的取值一致
func Default() *Policy {
	return &Policy{
		Thresholds: Thresholds{
			VersatilityTrainedShifts: 3,
		},
		Weights: Weights{
			CountFairness:      1,
			EffortFairness:     1,
			CasualUsage:        10,
			Variety:            10,
			SpecialistOverload: 8,
			WeeklyTarget:       6,
			UnfilledOptional:   5,
		},
		HighSkillCaps: []HighSkillCapRule{
			{Shift: "Cyto UTD", PerWeek: 1},
			{Shift: "Cyto UTD IMG", PerWeek: 1},
		},
		HeavyShifts: []string{"Cyto FNA", "Cyto EUS"},
		DualCoverage: &DualCoverageRule{
			Shift: "Cyto MCY",
			Pair:  []string{"GN", "DS"},
		},
		SpecialistOverload: &OverloadRule{
			Role:    "Cytologist",
			Shifts:  []string{"Cyto FNA", "Cyto EUS"},
			PerWeek: 1,
		},
		WeeklyTargets: []WeeklyTargetRule{
			{Staff: "DS", Shift: "Cyto MCY", PerWeek: 2, ReduceByHolidays: true},
		},
		PreferenceMinimums: []PreferenceRule{
			{Staff: "KL", Shift: "Prep EBUS", MinPerWeek: 2, Weight: 5, ReduceByHolidays: true},
			{Staff: "KL", Shift: "Prep Clerical", MinPerWeek: 1, Weight: 5, ReduceByHolidays: true},
			{Staff: "KL", Shift: "Prep GYN", MinPerWeek: 1, Weight: 5, ReduceByHolidays: true},
		},
		QualityNudges: []QualityNudgeRule{
			{Shift: "Cyto 2ND (2)", Weight: 2},
		},
		WeeklyCap: WeeklyCapPolicy{Limit: 5, ReduceByHolidays: true},
	}
}

// LoadOrDefault 加载策略文件。
// 路径为空或文件不存在时返回默认策略；
// 文件存在但无法解析或校验失败时返回错误，策略配置不允许静默降级。
func LoadOrDefault(path string) (*Policy, error) {
	if path == "" {
		return Default(), nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	return LoadFromPath(path)
}

// LoadFromPath 从指定路径加载并校验策略
func LoadFromPath(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidPolicy, "策略文件不可读")
	}

	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidPolicy, "策略文件解析失败")
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate 校验策略的结构与语义
func (p *Policy) Validate() error {
	if err := validate.Struct(p); err != nil {
		return errors.Wrap(err, errors.CodeInvalidPolicy, "策略校验失败")
	}

	// 双人覆盖的两名人员不能相同
	if p.DualCoverage != nil && p.DualCoverage.Pair[0] == p.DualCoverage.Pair[1] {
		return errors.New(errors.CodeInvalidPolicy,
			fmt.Sprintf("双人覆盖规则的两名人员不能相同: %s", p.DualCoverage.Pair[0]))
	}

	// 高技能班次不允许重复声明
	seen := make(map[string]bool)
	for _, rule := range p.HighSkillCaps {
		if seen[rule.Shift] {
			return errors.New(errors.CodeInvalidPolicy,
				fmt.Sprintf("高技能班次重复声明: %s", rule.Shift))
		}
		seen[rule.Shift] = true
	}

	return nil
}

// IsHeavy 检查班次是否属于重负荷集合
func (p *Policy) IsHeavy(shiftName string) bool {
	for _, s := range p.HeavyShifts {
		if s == shiftName {
			return true
		}
	}
	return false
}

// HighSkillCapFor 返回班次的每周上限，不受限时 ok 为 false
func (p *Policy) HighSkillCapFor(shiftName string) (limit int, ok bool) {
	for _, rule := range p.HighSkillCaps {
		if rule.Shift == shiftName {
			return rule.PerWeek, true
		}
	}
	return 0, false
}

// NudgeWeightFor 返回班次的倾向惩罚权重，未配置时为 0
func (p *Policy) NudgeWeightFor(shiftName string) int {
	for _, n := range p.QualityNudges {
		if n.Shift == shiftName {
			return n.Weight
		}
	}
	return 0
}
