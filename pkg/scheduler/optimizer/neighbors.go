package optimizer

import (
	"math/rand"

	"github.com/labroster/labroster/pkg/scheduler/cpmodel"
)

// MoveType 邻域移动类型
type MoveType int

const (
	MoveReassign MoveType = iota // 改派单元格内的另一名员工
	MoveSwap                     // 交换两个单元格的员工
	MoveChain                    // 三个单元格之间轮换员工
	MoveClear                    // 清空一个可选单元格
)

// weightedMove 带选取权重的移动类型。
// 用有序切片而非 map 保证相同种子产生相同移动序列。
type weightedMove struct {
	typ    MoveType
	weight float64
}

// NeighborhoodGenerator 在布尔模型的分组结构上生成邻居取值
type NeighborhoodGenerator struct {
	rng   *rand.Rand
	moves []weightedMove
}

// NewNeighborhoodGenerator 创建邻域生成器
func NewNeighborhoodGenerator(rng *rand.Rand) *NeighborhoodGenerator {
	return &NeighborhoodGenerator{
		rng: rng,
		moves: []weightedMove{
			{MoveReassign, 0.45},
			{MoveSwap, 0.30},
			{MoveChain, 0.15},
			{MoveClear, 0.10},
		},
	}
}

// Generate 基于当前取值生成一个邻居，无法构造时返回 nil
func (g *NeighborhoodGenerator) Generate(m *cpmodel.Model, current *cpmodel.Assignment) *cpmodel.Assignment {
	switch g.selectMoveType() {
	case MoveReassign:
		return g.reassign(m, current)
	case MoveSwap:
		return g.swap(m, current)
	case MoveChain:
		return g.chain(m, current)
	case MoveClear:
		return g.clear(m, current)
	}
	return nil
}

// selectMoveType 按权重随机选择移动类型
func (g *NeighborhoodGenerator) selectMoveType() MoveType {
	r := g.rng.Float64()
	cumulative := 0.0
	for _, mv := range g.moves {
		cumulative += mv.weight
		if r < cumulative {
			return mv.typ
		}
	}
	return g.moves[0].typ
}

// chosenVar 返回分组中当前为真的变量，没有则返回 -1
func chosenVar(a *cpmodel.Assignment, grp cpmodel.Group) cpmodel.Var {
	for _, v := range grp.Vars {
		if a.True(v) {
			return v
		}
	}
	return -1
}

// findByKey 在分组中查找携带指定键的变量
func findByKey(m *cpmodel.Model, grp cpmodel.Group, key int) (cpmodel.Var, bool) {
	for _, v := range grp.Vars {
		if m.Key(v) == key {
			return v, true
		}
	}
	return -1, false
}

// reassign 将某个单元格改派给另一名候选人
func (g *NeighborhoodGenerator) reassign(m *cpmodel.Model, current *cpmodel.Assignment) *cpmodel.Assignment {
	groups := m.Groups()
	if len(groups) == 0 {
		return nil
	}
	grp := groups[g.rng.Intn(len(groups))]
	cur := chosenVar(current, grp)

	candidates := make([]cpmodel.Var, 0, len(grp.Vars))
	for _, v := range grp.Vars {
		if v != cur && m.IsFree(v) {
			candidates = append(candidates, v)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	next := candidates[g.rng.Intn(len(candidates))]

	neighbor := current.Clone()
	if cur >= 0 {
		neighbor.Set(cur, false)
	}
	neighbor.Set(next, true)
	return neighbor
}

// swap 交换两个单元格的员工，要求双方都能接手对方的单元格
func (g *NeighborhoodGenerator) swap(m *cpmodel.Model, current *cpmodel.Assignment) *cpmodel.Assignment {
	groups := m.Groups()
	if len(groups) < 2 {
		return nil
	}
	for try := 0; try < 8; try++ {
		i := g.rng.Intn(len(groups))
		j := g.rng.Intn(len(groups))
		if i == j {
			continue
		}
		g1, g2 := groups[i], groups[j]

		v1 := chosenVar(current, g1)
		v2 := chosenVar(current, g2)
		if v1 < 0 || v2 < 0 || !m.IsFree(v1) || !m.IsFree(v2) {
			continue
		}
		if m.Key(v1) == m.Key(v2) {
			continue
		}

		w1, ok1 := findByKey(m, g2, m.Key(v1))
		w2, ok2 := findByKey(m, g1, m.Key(v2))
		if !ok1 || !ok2 || !m.IsFree(w1) || !m.IsFree(w2) {
			continue
		}

		neighbor := current.Clone()
		neighbor.Set(v1, false)
		neighbor.Set(v2, false)
		neighbor.Set(w1, true)
		neighbor.Set(w2, true)
		return neighbor
	}
	return nil
}

// chain 在三个单元格之间轮换员工
func (g *NeighborhoodGenerator) chain(m *cpmodel.Model, current *cpmodel.Assignment) *cpmodel.Assignment {
	groups := m.Groups()
	if len(groups) < 3 {
		return nil
	}
	for try := 0; try < 8; try++ {
		i := g.rng.Intn(len(groups))
		j := g.rng.Intn(len(groups))
		k := g.rng.Intn(len(groups))
		if i == j || j == k || i == k {
			continue
		}
		g1, g2, g3 := groups[i], groups[j], groups[k]

		v1 := chosenVar(current, g1)
		v2 := chosenVar(current, g2)
		v3 := chosenVar(current, g3)
		if v1 < 0 || v2 < 0 || v3 < 0 {
			continue
		}
		if !m.IsFree(v1) || !m.IsFree(v2) || !m.IsFree(v3) {
			continue
		}
		k1, k2, k3 := m.Key(v1), m.Key(v2), m.Key(v3)
		if k1 == k2 || k2 == k3 || k1 == k3 {
			continue
		}

		// v1 的员工去 g2，v2 的去 g3，v3 的去 g1
		w1, ok1 := findByKey(m, g2, k1)
		w2, ok2 := findByKey(m, g3, k2)
		w3, ok3 := findByKey(m, g1, k3)
		if !ok1 || !ok2 || !ok3 {
			continue
		}
		if !m.IsFree(w1) || !m.IsFree(w2) || !m.IsFree(w3) {
			continue
		}

		neighbor := current.Clone()
		neighbor.Set(v1, false)
		neighbor.Set(v2, false)
		neighbor.Set(v3, false)
		neighbor.Set(w1, true)
		neighbor.Set(w2, true)
		neighbor.Set(w3, true)
		return neighbor
	}
	return nil
}

// clear 清空一个当前有人的可选单元格
func (g *NeighborhoodGenerator) clear(m *cpmodel.Model, current *cpmodel.Assignment) *cpmodel.Assignment {
	groups := m.Groups()
	candidates := make([]cpmodel.Var, 0)
	for _, grp := range groups {
		if grp.Exact {
			continue
		}
		if v := chosenVar(current, grp); v >= 0 && m.IsFree(v) {
			candidates = append(candidates, v)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	v := candidates[g.rng.Intn(len(candidates))]

	neighbor := current.Clone()
	neighbor.Set(v, false)
	return neighbor
}
