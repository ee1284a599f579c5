// Package cpmodel 提供与搜索后端无关的约束模型抽象。
// 约束装配只面向三类元素：布尔决策变量、变量上的选择组与线性约束、
// 加权软约束惩罚项。具体搜索算法通过 Solver 接口接入，
// 装配逻辑不依赖任何一种后端。
package cpmodel

// Var 布尔决策变量的句柄
type Var int

// 变量固定状态
type fixState int8

const (
	varFree fixState = iota
	varFixedFalse
	varFixedTrue
)

// Model 待求解的约束模型
type Model struct {
	names []string
	keys  []int
	fixed []fixState

	groups    []Group
	linears   []LinearConstraint
	penalties []PenaltyTerm

	// 变量到线性约束的反向索引，求解器做增量检查用
	varLinears [][]int
}

// NewModel 创建空模型
func NewModel() *Model {
	return &Model{}
}

// NewBool 创建布尔变量。key 为变量在选择组间互换时的对应标识
// （排班场景中为人员序号），无对应关系时传 -1。
func (m *Model) NewBool(name string, key int) Var {
	v := Var(len(m.names))
	m.names = append(m.names, name)
	m.keys = append(m.keys, key)
	m.fixed = append(m.fixed, varFree)
	m.varLinears = append(m.varLinears, nil)
	return v
}

// NumVars 返回变量数量
func (m *Model) NumVars() int { return len(m.names) }

// Name 返回变量名
func (m *Model) Name(v Var) string { return m.names[v] }

// Key 返回变量的互换标识
func (m *Model) Key(v Var) int { return m.keys[v] }

// FixTrue 将变量固定为真
func (m *Model) FixTrue(v Var) { m.fixed[v] = varFixedTrue }

// FixFalse 将变量固定为假
func (m *Model) FixFalse(v Var) { m.fixed[v] = varFixedFalse }

// IsFixedTrue 检查变量是否被固定为真
func (m *Model) IsFixedTrue(v Var) bool { return m.fixed[v] == varFixedTrue }

// IsFixedFalse 检查变量是否被固定为假
func (m *Model) IsFixedFalse(v Var) bool { return m.fixed[v] == varFixedFalse }

// IsFree 检查变量是否未被固定
func (m *Model) IsFree(v Var) bool { return m.fixed[v] == varFree }

// Group 选择组：组内变量至多一个为真，Exact 时恰好一个
type Group struct {
	Name  string
	Vars  []Var
	Exact bool
}

// AddExactlyOne 添加恰好一个为真的选择组
func (m *Model) AddExactlyOne(name string, vars []Var) {
	m.groups = append(m.groups, Group{Name: name, Vars: vars, Exact: true})
}

// AddAtMostOne 添加至多一个为真的选择组
func (m *Model) AddAtMostOne(name string, vars []Var) {
	m.groups = append(m.groups, Group{Name: name, Vars: vars, Exact: false})
}

// Groups 返回全部选择组
func (m *Model) Groups() []Group { return m.groups }

// LinearConstraint 线性约束：Lo ≤ Σ vars ≤ Hi
type LinearConstraint struct {
	Name string
	Vars []Var
	Lo   int
	Hi   int
}

// AddLinear 添加线性约束
func (m *Model) AddLinear(name string, vars []Var, lo, hi int) {
	idx := len(m.linears)
	m.linears = append(m.linears, LinearConstraint{Name: name, Vars: vars, Lo: lo, Hi: hi})
	for _, v := range vars {
		m.varLinears[v] = append(m.varLinears[v], idx)
	}
}

// AddSumAtMost 添加 Σ vars ≤ k 约束
func (m *Model) AddSumAtMost(name string, vars []Var, k int) {
	m.AddLinear(name, vars, 0, k)
}

// Linears 返回全部线性约束
func (m *Model) Linears() []LinearConstraint { return m.linears }

// LinearsOf 返回包含某变量的线性约束序号
func (m *Model) LinearsOf(v Var) []int { return m.varLinears[v] }

// PenaltyTerm 软约束惩罚项，Cost 对任意取值返回非负整数
type PenaltyTerm interface {
	Name() string
	Weight() int
	Cost(a *Assignment) int
}

// AddPenalty 注册惩罚项
func (m *Model) AddPenalty(t PenaltyTerm) {
	m.penalties = append(m.penalties, t)
}

// Penalties 返回全部惩罚项
func (m *Model) Penalties() []PenaltyTerm { return m.penalties }

// funcPenalty 以闭包实现的惩罚项
type funcPenalty struct {
	name   string
	weight int
	cost   func(a *Assignment) int
}

// NewPenalty 以闭包构建惩罚项
func NewPenalty(name string, weight int, cost func(a *Assignment) int) PenaltyTerm {
	return &funcPenalty{name: name, weight: weight, cost: cost}
}

func (p *funcPenalty) Name() string           { return p.name }
func (p *funcPenalty) Weight() int            { return p.weight }
func (p *funcPenalty) Cost(a *Assignment) int { return p.cost(a) }
