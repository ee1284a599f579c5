package cpmodel

// Assignment 模型变量的一组取值
type Assignment struct {
	model  *Model
	values []bool
}

// NewAssignment 创建初始取值：固定为真的变量为真，其余为假
func NewAssignment(m *Model) *Assignment {
	a := &Assignment{model: m, values: make([]bool, m.NumVars())}
	for v := range a.values {
		if m.fixed[v] == varFixedTrue {
			a.values[v] = true
		}
	}
	return a
}

// Model 返回所属模型
func (a *Assignment) Model() *Model { return a.model }

// True 返回变量取值
func (a *Assignment) True(v Var) bool { return a.values[v] }

// Set 设置变量取值，固定变量不受影响
func (a *Assignment) Set(v Var, val bool) {
	if a.model.fixed[v] != varFree {
		return
	}
	a.values[v] = val
}

// Clone 深拷贝取值
func (a *Assignment) Clone() *Assignment {
	clone := &Assignment{model: a.model, values: make([]bool, len(a.values))}
	copy(clone.values, a.values)
	return clone
}

// CountTrue 统计取真的变量数
func (a *Assignment) CountTrue(vars []Var) int {
	n := 0
	for _, v := range vars {
		if a.values[v] {
			n++
		}
	}
	return n
}

// HardViolations 统计硬约束的违反单位数，可行解为零。
// 强制组多选或空置、可选组多选、线性约束越界各按越界量计数。
func (a *Assignment) HardViolations() int {
	total := 0
	for i := range a.model.groups {
		g := &a.model.groups[i]
		n := a.CountTrue(g.Vars)
		switch {
		case n > 1:
			total += n - 1
		case n == 0 && g.Exact:
			total++
		}
	}
	for i := range a.model.linears {
		lc := &a.model.linears[i]
		n := a.CountTrue(lc.Vars)
		if n > lc.Hi {
			total += n - lc.Hi
		}
		if n < lc.Lo {
			total += lc.Lo - n
		}
	}
	return total
}

// ViolatedNames 返回被违反的硬约束名称，诊断用
func (a *Assignment) ViolatedNames() []string {
	var names []string
	for i := range a.model.groups {
		g := &a.model.groups[i]
		n := a.CountTrue(g.Vars)
		if n > 1 || (n == 0 && g.Exact) {
			names = append(names, g.Name)
		}
	}
	for i := range a.model.linears {
		lc := &a.model.linears[i]
		n := a.CountTrue(lc.Vars)
		if n > lc.Hi || n < lc.Lo {
			names = append(names, lc.Name)
		}
	}
	return names
}

// Objective 计算加权软约束目标值
func (a *Assignment) Objective() int {
	total := 0
	for _, p := range a.model.penalties {
		total += p.Weight() * p.Cost(a)
	}
	return total
}
