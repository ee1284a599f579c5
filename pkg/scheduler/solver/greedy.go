// Package solver 提供排班求解器：贪心构造初始解，再交给局部搜索改进
package solver

import (
	"fmt"
	"strings"

	"github.com/labroster/labroster/pkg/scheduler/cpmodel"
)

// Construct 贪心构造初始取值。
// 按分组声明顺序逐格填人：跳过已钉选的格子，候选人须满足
// 所有线性约束的上界，在可行候选中选目标增量最小者。
// 强制格即使增量为正也必须填，可选格仅在降低目标时填。
func Construct(m *cpmodel.Model) *cpmodel.Assignment {
	a := cpmodel.NewAssignment(m)

	// 各线性约束的当前计数，随填格增量维护
	linears := m.Linears()
	counts := make([]int, len(linears))
	for i, lc := range linears {
		counts[i] = a.CountTrue(lc.Vars)
	}

	for _, grp := range m.Groups() {
		if pinned(m, a, grp) {
			continue
		}

		baseline := a.Objective()
		best := cpmodel.Var(-1)
		bestDelta := 0
		found := false

		for _, v := range grp.Vars {
			if !m.IsFree(v) {
				continue
			}
			if !fitsLinears(m, counts, v) {
				continue
			}
			a.Set(v, true)
			delta := a.Objective() - baseline
			a.Set(v, false)

			if !found || delta < bestDelta {
				best = v
				bestDelta = delta
				found = true
			}
		}

		if !found {
			// 强制格没有可行候选，留空由搜索阶段报硬违反
			continue
		}
		if !grp.Exact && bestDelta >= 0 {
			continue
		}

		a.Set(best, true)
		for _, li := range m.LinearsOf(best) {
			counts[li]++
		}
	}
	return a
}

// pinned 判断分组中是否已有固定为真的变量
func pinned(m *cpmodel.Model, a *cpmodel.Assignment, grp cpmodel.Group) bool {
	for _, v := range grp.Vars {
		if m.IsFixedTrue(v) {
			return true
		}
	}
	return false
}

// fitsLinears 判断将变量置真后是否仍满足所有相关线性约束的上界
func fitsLinears(m *cpmodel.Model, counts []int, v cpmodel.Var) bool {
	linears := m.Linears()
	for _, li := range m.LinearsOf(v) {
		if counts[li]+1 > linears[li].Hi {
			return false
		}
	}
	return true
}

// violationSummary 汇总被违反的约束名，供不可行结果的消息使用
func violationSummary(a *cpmodel.Assignment) string {
	names := a.ViolatedNames()
	if len(names) == 0 {
		return ""
	}
	const keep = 5
	if len(names) > keep {
		return fmt.Sprintf("%s 等 %d 项", strings.Join(names[:keep], ", "), len(names))
	}
	return strings.Join(names, ", ")
}
