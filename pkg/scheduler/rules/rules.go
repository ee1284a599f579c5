// Package rules 将排班业务规则编译进约束模型。
// 每条规则负责一类约束：硬规则产生分组与线性约束或固定变量，
// 软规则产生带权惩罚项，诊断规则只登记运行后检查。
package rules

import (
	"sort"
	"sync"

	"github.com/labroster/labroster/pkg/model"
)

// Type 规则类型标识
type Type string

const (
	// 硬规则
	TypeCoverage          Type = "coverage"             // 单元格覆盖
	TypeDualCoverage      Type = "dual_coverage"        // 双人轮换覆盖
	TypeSingleShiftPerDay Type = "single_shift_per_day" // 每人每日至多一班
	TypeEligibility       Type = "eligibility"          // 资格过滤
	TypePinned            Type = "pinned_assignment"    // 钉选固定
	TypeHighSkillCap      Type = "high_skill_weekly_cap"
	TypeHeavyRest         Type = "heavy_no_back_to_back"

	// 软规则
	TypeCountFairness      Type = "count_fairness"
	TypeEffortFairness     Type = "effort_fairness"
	TypeCasualUsage        Type = "casual_usage"
	TypeVariety            Type = "shift_variety"
	TypeSpecialistOverload Type = "specialist_overload"
	TypeWeeklyTarget       Type = "weekly_target"
	TypePreferenceMinimum  Type = "preference_minimum"
	TypeUnfilledOptional   Type = "unfilled_optional"
	TypeQualityNudge       Type = "quality_nudge"

	// 诊断规则
	TypeWeeklyCap Type = "weekly_cap"
)

// Rule 排班规则接口。Apply 将规则编译进上下文中的模型。
type Rule interface {
	// Name 返回规则名称
	Name() string

	// Type 返回规则类型
	Type() Type

	// Category 返回规则类别
	Category() model.ConstraintCategory

	// Weight 返回软规则权重，硬规则与诊断规则为 0
	Weight() int

	// Apply 将规则编译进模型
	Apply(ctx *Context) error
}

// BaseRule 规则基础实现
type BaseRule struct {
	name     string
	typ      Type
	category model.ConstraintCategory
	weight   int
}

// NewBaseRule 创建规则基础实现
func NewBaseRule(name string, typ Type, category model.ConstraintCategory, weight int) BaseRule {
	return BaseRule{name: name, typ: typ, category: category, weight: weight}
}

// Name 返回规则名称
func (r BaseRule) Name() string { return r.name }

// Type 返回规则类型
func (r BaseRule) Type() Type { return r.typ }

// Category 返回规则类别
func (r BaseRule) Category() model.ConstraintCategory { return r.category }

// Weight 返回规则权重
func (r BaseRule) Weight() int { return r.weight }

// Registry 规则注册表。硬规则先于软规则编译，
// 同类别按权重降序、同权重按名称排序，保证编译顺序稳定。
type Registry struct {
	rules []Rule
	mu    sync.RWMutex
}

// NewRegistry 创建规则注册表
func NewRegistry() *Registry {
	return &Registry{rules: make([]Rule, 0)}
}

// categoryRank 类别编译优先级
func categoryRank(c model.ConstraintCategory) int {
	switch c {
	case model.ConstraintHard:
		return 0
	case model.ConstraintSoft:
		return 1
	default:
		return 2
	}
}

// Register 注册规则，同类型规则被替换
func (r *Registry) Register(rule Rule) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, existing := range r.rules {
		if existing.Type() == rule.Type() {
			r.rules[i] = rule
			return
		}
	}
	r.rules = append(r.rules, rule)

	sort.Slice(r.rules, func(i, j int) bool {
		ri, rj := r.rules[i], r.rules[j]
		if categoryRank(ri.Category()) != categoryRank(rj.Category()) {
			return categoryRank(ri.Category()) < categoryRank(rj.Category())
		}
		if ri.Weight() != rj.Weight() {
			return ri.Weight() > rj.Weight()
		}
		return ri.Name() < rj.Name()
	})
}

// Unregister 注销规则
func (r *Registry) Unregister(t Type) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, rule := range r.rules {
		if rule.Type() == t {
			r.rules = append(r.rules[:i], r.rules[i+1:]...)
			return
		}
	}
}

// Get 按类型获取规则，不存在时返回 nil
func (r *Registry) Get(t Type) Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, rule := range r.rules {
		if rule.Type() == t {
			return rule
		}
	}
	return nil
}

// All 返回全部规则的副本
func (r *Registry) All() []Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Rule, len(r.rules))
	copy(out, r.rules)
	return out
}

// ByCategory 按类别返回规则
func (r *Registry) ByCategory(cat model.ConstraintCategory) []Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Rule
	for _, rule := range r.rules {
		if rule.Category() == cat {
			out = append(out, rule)
		}
	}
	return out
}

// Count 返回规则数量
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rules)
}

// Apply 按编译顺序将全部规则编译进模型
func (r *Registry) Apply(ctx *Context) error {
	for _, rule := range r.All() {
		if err := rule.Apply(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Summary 返回规则摘要
func (r *Registry) Summary() map[string]interface{} {
	r.mu.RLock()
	defer r.mu.RUnlock()

	hard, soft, diagnostic := 0, 0, 0
	for _, rule := range r.rules {
		switch rule.Category() {
		case model.ConstraintHard:
			hard++
		case model.ConstraintSoft:
			soft++
		default:
			diagnostic++
		}
	}
	return map[string]interface{}{
		"total":      len(r.rules),
		"hard":       hard,
		"soft":       soft,
		"diagnostic": diagnostic,
	}
}
