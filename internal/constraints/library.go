// Package constraints 描述排班引擎支持的规则目录。
// 目录与规则工厂使用相同的类型标识，API 返回的清单
// 始终与引擎实际编译的规则一致。
package constraints

import (
	"github.com/labroster/labroster/pkg/policy"
	"github.com/labroster/labroster/pkg/scheduler/rules"
)

// RuleParam 规则参数定义
type RuleParam struct {
	Name        string `json:"name"`
	Type        string `json:"type"` // int, string, bool, array
	Description string `json:"description"`
	Default     string `json:"default,omitempty"`
	Min         string `json:"min,omitempty"`
	Max         string `json:"max,omitempty"`
}

// RuleDefinition 规则定义
type RuleDefinition struct {
	Name        string      `json:"name"`
	DisplayName string      `json:"display_name"`
	Category    string      `json:"category"` // hard 硬约束, soft 软约束, diagnostic 诊断
	Description string      `json:"description"`
	Params      []RuleParam `json:"params"`
}

// ActiveRule 注册表中一条已编译规则的摘要
type ActiveRule struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Category string `json:"category"`
	Weight   int    `json:"weight"`
}

// LibraryResponse 规则目录响应
type LibraryResponse struct {
	Library []RuleDefinition `json:"library"`
	Active  []ActiveRule     `json:"active"`
	Policy  *policy.Policy   `json:"policy,omitempty"`
}

// ActiveRules 用策略构建规则注册表，按编译顺序返回规则清单
func ActiveRules(p *policy.Policy) []ActiveRule {
	if p == nil {
		p = policy.Default()
	}

	reg := rules.DefaultRegistry(p)
	all := reg.All()

	out := make([]ActiveRule, 0, len(all))
	for _, r := range all {
		out = append(out, ActiveRule{
			Name:     r.Name(),
			Type:     string(r.Type()),
			Category: string(r.Category()),
			Weight:   r.Weight(),
		})
	}
	return out
}

// GetLibrary 获取完整的规则目录
func GetLibrary() []RuleDefinition {
	return []RuleDefinition{
		// =====================================================
		// 硬约束
		// =====================================================
		{
			Name:        string(rules.TypeCoverage),
			DisplayName: "单元格覆盖",
			Category:    "hard",
			Description: "强制班次出现当日必须恰好一人承担，可选班次至多一人。无合格人选的强制单元格在诊断中报告后放开。",
			Params:      []RuleParam{},
		},
		{
			Name:        string(rules.TypeSingleShiftPerDay),
			DisplayName: "每人每日至多一班",
			Category:    "hard",
			Description: "同一人员在同一天最多承担一个班次，杜绝重复排班。",
			Params:      []RuleParam{},
		},
		{
			Name:        string(rules.TypeEligibility),
			DisplayName: "资格过滤",
			Category:    "hard",
			Description: "人员必须受训于班次、角色匹配且当日可用，否则对应变量被直接固定为零。",
			Params:      []RuleParam{},
		},
		{
			Name:        string(rules.TypePinned),
			DisplayName: "钉选固定",
			Category:    "hard",
			Description: "手工指派的单元格固定为指定人员。目标无效（不受训、不可用、日期越界）的钉选被跳过并记入诊断。",
			Params:      []RuleParam{},
		},
		{
			Name:        string(rules.TypeDualCoverage),
			DisplayName: "双人轮换覆盖",
			Category:    "hard",
			Description: "指定班次出现的每一天由指定两人中的恰好一人承担，其余人员禁排。",
			Params: []RuleParam{
				{Name: "shift", Type: "string", Description: "受约束的班次", Default: "Cyto MCY"},
				{Name: "pair", Type: "array", Description: "轮换的两名人员缩写", Default: "GN,DS"},
			},
		},
		{
			Name:        string(rules.TypeHighSkillCap),
			DisplayName: "高技能班次每周上限",
			Category:    "hard",
			Description: "限制每人每周承担高技能班次的次数，防止个别人员包揽。",
			Params: []RuleParam{
				{Name: "shift", Type: "string", Description: "受限班次", Default: "Cyto UTD"},
				{Name: "per_week", Type: "int", Description: "每人每周上限", Default: "1", Min: "1"},
			},
		},
		{
			Name:        string(rules.TypeHeavyRest),
			DisplayName: "重负荷班次禁连排",
			Category:    "hard",
			Description: "重负荷班次之后的下一个工作日不得再排任何重负荷班次，保障恢复时间。",
			Params: []RuleParam{
				{Name: "heavy_shifts", Type: "array", Description: "重负荷班次集合", Default: "Cyto FNA,Cyto EUS"},
			},
		},

		// =====================================================
		// 软约束
		// =====================================================
		{
			Name:        string(rules.TypeCountFairness),
			DisplayName: "班次数公平",
			Category:    "soft",
			Description: "多面手人员之间的班次总数尽量均衡，按最大最小差值计罚。",
			Params: []RuleParam{
				{Name: "weight", Type: "int", Description: "优化权重", Default: "1", Min: "0"},
			},
		},
		{
			Name:        string(rules.TypeEffortFairness),
			DisplayName: "工作量公平",
			Category:    "soft",
			Description: "按工作量表折算的负担在多面手人员之间尽量均衡，按最大最小差值计罚。",
			Params: []RuleParam{
				{Name: "weight", Type: "int", Description: "优化权重", Default: "1", Min: "0"},
				{Name: "versatility_trained_shifts", Type: "int", Description: "多面手受训班次数门槛", Default: "3", Min: "0"},
			},
		},
		{
			Name:        string(rules.TypeCasualUsage),
			DisplayName: "临时工使用代价",
			Category:    "soft",
			Description: "临时工每承担一个班次计罚一次，引导求解器优先使用正式人员。",
			Params: []RuleParam{
				{Name: "weight", Type: "int", Description: "优化权重", Default: "10", Min: "0"},
			},
		},
		{
			Name:        string(rules.TypeVariety),
			DisplayName: "轮换多样性",
			Category:    "soft",
			Description: "多面手同一周内重复承担同一班次的部分计罚，促进轮换。",
			Params: []RuleParam{
				{Name: "weight", Type: "int", Description: "优化权重", Default: "10", Min: "0"},
				{Name: "versatility_trained_shifts", Type: "int", Description: "多面手受训班次数门槛", Default: "3", Min: "0"},
			},
		},
		{
			Name:        string(rules.TypeSpecialistOverload),
			DisplayName: "专科过载",
			Category:    "soft",
			Description: "指定角色人员一周内对指定班次超出每周上限的部分计罚。",
			Params: []RuleParam{
				{Name: "role", Type: "string", Description: "受约束角色", Default: "Cytologist"},
				{Name: "shifts", Type: "array", Description: "受约束班次集合", Default: "Cyto FNA,Cyto EUS"},
				{Name: "per_week", Type: "int", Description: "每周上限", Default: "1", Min: "1"},
				{Name: "weight", Type: "int", Description: "优化权重", Default: "8", Min: "0"},
			},
		},
		{
			Name:        string(rules.TypeWeeklyTarget),
			DisplayName: "每周轮换目标",
			Category:    "soft",
			Description: "指定人员对指定班次每周应承担的次数，偏离绝对值计罚。目标可按该周休假日数量递减。",
			Params: []RuleParam{
				{Name: "staff", Type: "string", Description: "人员缩写", Default: "DS"},
				{Name: "shift", Type: "string", Description: "目标班次", Default: "Cyto MCY"},
				{Name: "per_week", Type: "int", Description: "每周目标次数", Default: "2", Min: "0"},
				{Name: "reduce_by_holidays", Type: "bool", Description: "按休假日递减", Default: "true"},
				{Name: "weight", Type: "int", Description: "优化权重", Default: "6", Min: "0"},
			},
		},
		{
			Name:        string(rules.TypePreferenceMinimum),
			DisplayName: "每周偏好下限",
			Category:    "soft",
			Description: "指定人员对指定班次的每周最少次数，仅对不足计罚，超额不罚。下限可按该周休假日数量递减。",
			Params: []RuleParam{
				{Name: "staff", Type: "string", Description: "人员缩写", Default: "KL"},
				{Name: "shift", Type: "string", Description: "偏好班次", Default: "Prep EBUS"},
				{Name: "min_per_week", Type: "int", Description: "每周最少次数", Default: "2", Min: "0"},
				{Name: "weight", Type: "int", Description: "该条规则的权重", Default: "5", Min: "0"},
				{Name: "reduce_by_holidays", Type: "bool", Description: "按休假日递减", Default: "true"},
			},
		},
		{
			Name:        string(rules.TypeUnfilledOptional),
			DisplayName: "可选班次空置",
			Category:    "soft",
			Description: "可选班次空置时计罚，引导在人手允许时尽量填满。",
			Params: []RuleParam{
				{Name: "weight", Type: "int", Description: "优化权重", Default: "5", Min: "0"},
			},
		},
		{
			Name:        string(rules.TypeQualityNudge),
			DisplayName: "班次倾向",
			Category:    "soft",
			Description: "对指定的次选班次每次排班计一个小额平罚，引导求解器优先其替代班次。",
			Params: []RuleParam{
				{Name: "shift", Type: "string", Description: "次选班次", Default: "Cyto 2ND (2)"},
				{Name: "weight", Type: "int", Description: "每次排班的罚分", Default: "2", Min: "0"},
			},
		},

		// =====================================================
		// 诊断规则
		// =====================================================
		{
			Name:        string(rules.TypeWeeklyCap),
			DisplayName: "每周班次总数上限",
			Category:    "diagnostic",
			Description: "每人每周班次总数超出上限时记入诊断报告，不禁止也不计入目标。上限可按休假日递减。",
			Params: []RuleParam{
				{Name: "limit", Type: "int", Description: "每周上限", Default: "5", Min: "1"},
				{Name: "reduce_by_holidays", Type: "bool", Description: "按休假日递减", Default: "true"},
			},
		},
	}
}
