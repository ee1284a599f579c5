package solver

import (
	"context"
	"testing"

	"github.com/labroster/labroster/pkg/errors"
	"github.com/labroster/labroster/pkg/model"
	"github.com/labroster/labroster/pkg/scheduler/cpmodel"
)

func TestConstructFillsMandatoryCells(t *testing.T) {
	m := cpmodel.NewModel()
	a0 := m.NewBool("mon/prep/AA", 0)
	a1 := m.NewBool("mon/prep/BB", 1)
	m.AddExactlyOne("mon/prep", []cpmodel.Var{a0, a1})
	b0 := m.NewBool("tue/prep/AA", 0)
	b1 := m.NewBool("tue/prep/BB", 1)
	m.AddExactlyOne("tue/prep", []cpmodel.Var{b0, b1})

	a := Construct(m)
	if a.HardViolations() != 0 {
		t.Errorf("构造结果硬违反 = %d, 期望 0", a.HardViolations())
	}
	for _, grp := range m.Groups() {
		if a.CountTrue(grp.Vars) != 1 {
			t.Errorf("分组 %s 应恰有一人", grp.Name)
		}
	}
}

func TestConstructSkipsPinnedCells(t *testing.T) {
	m := cpmodel.NewModel()
	a0 := m.NewBool("mon/prep/AA", 0)
	a1 := m.NewBool("mon/prep/BB", 1)
	m.AddExactlyOne("mon/prep", []cpmodel.Var{a0, a1})
	m.FixTrue(a1)
	m.FixFalse(a0)

	a := Construct(m)
	if !a.True(a1) || a.True(a0) {
		t.Error("钉选的格子应保持固定取值")
	}
	if a.HardViolations() != 0 {
		t.Error("钉选后构造结果应无硬违反")
	}
}

func TestConstructRespectsLinearBounds(t *testing.T) {
	m := cpmodel.NewModel()
	a0 := m.NewBool("mon/prep/AA", 0)
	a1 := m.NewBool("mon/prep/BB", 1)
	m.AddExactlyOne("mon/prep", []cpmodel.Var{a0, a1})
	b0 := m.NewBool("tue/prep/AA", 0)
	b1 := m.NewBool("tue/prep/BB", 1)
	m.AddExactlyOne("tue/prep", []cpmodel.Var{b0, b1})
	// AA 每周至多上一次
	m.AddSumAtMost("week_cap/AA", []cpmodel.Var{a0, b0}, 1)

	a := Construct(m)
	if a.HardViolations() != 0 {
		t.Fatalf("构造结果硬违反 = %d, 期望 0", a.HardViolations())
	}
	if a.True(a0) && a.True(b0) {
		t.Error("贪心不应突破线性上界")
	}
}

func TestConstructOptionalCells(t *testing.T) {
	tests := []struct {
		name       string
		cost       func(v cpmodel.Var) func(a *cpmodel.Assignment) int
		wantFilled bool
	}{
		{
			name: "空置受罚时填入可选格",
			cost: func(v cpmodel.Var) func(a *cpmodel.Assignment) int {
				return func(a *cpmodel.Assignment) int {
					if a.True(v) {
						return 0
					}
					return 1
				}
			},
			wantFilled: true,
		},
		{
			name: "填入加罚时保持空置",
			cost: func(v cpmodel.Var) func(a *cpmodel.Assignment) int {
				return func(a *cpmodel.Assignment) int {
					if a.True(v) {
						return 1
					}
					return 0
				}
			},
			wantFilled: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := cpmodel.NewModel()
			v := m.NewBool("mon/extra/AA", 0)
			m.AddAtMostOne("mon/extra", []cpmodel.Var{v})
			m.AddPenalty(cpmodel.NewPenalty("fill", 5, tt.cost(v)))

			a := Construct(m)
			if a.True(v) != tt.wantFilled {
				t.Errorf("可选格填充 = %v, 期望 %v", a.True(v), tt.wantFilled)
			}
		})
	}
}

func TestConstructPrefersLowerDelta(t *testing.T) {
	m := cpmodel.NewModel()
	a0 := m.NewBool("mon/prep/AA", 0)
	a1 := m.NewBool("mon/prep/BB", 1)
	m.AddExactlyOne("mon/prep", []cpmodel.Var{a0, a1})
	// 派 AA 比派 BB 代价高
	m.AddPenalty(cpmodel.NewPenalty("avoid_aa", 3, func(a *cpmodel.Assignment) int {
		if a.True(a0) {
			return 1
		}
		return 0
	}))

	a := Construct(m)
	if !a.True(a1) || a.True(a0) {
		t.Error("贪心应选择目标增量更小的候选人")
	}
}

func TestSearchSolverStatuses(t *testing.T) {
	tests := []struct {
		name  string
		build func() *cpmodel.Model
		ctx   func() context.Context
		want  model.SolveStatus
	}{
		{
			name: "目标可降为零时判定最优",
			build: func() *cpmodel.Model {
				m := cpmodel.NewModel()
				a0 := m.NewBool("mon/prep/AA", 0)
				a1 := m.NewBool("mon/prep/BB", 1)
				m.AddExactlyOne("mon/prep", []cpmodel.Var{a0, a1})
				return m
			},
			ctx:  context.Background,
			want: model.StatusOptimal,
		},
		{
			name: "目标非零但全部收敛时判定最优",
			build: func() *cpmodel.Model {
				m := cpmodel.NewModel()
				a0 := m.NewBool("mon/prep/AA", 0)
				m.AddExactlyOne("mon/prep", []cpmodel.Var{a0})
				m.AddPenalty(cpmodel.NewPenalty("floor", 1, func(a *cpmodel.Assignment) int {
					return 1
				}))
				return m
			},
			ctx:  context.Background,
			want: model.StatusOptimal,
		},
		{
			name: "强制格无候选人时不可行",
			build: func() *cpmodel.Model {
				m := cpmodel.NewModel()
				m.AddExactlyOne("mon/prep", nil)
				return m
			},
			ctx:  context.Background,
			want: model.StatusInfeasible,
		},
		{
			name: "取消且无可行解时结论未知",
			build: func() *cpmodel.Model {
				m := cpmodel.NewModel()
				m.AddExactlyOne("mon/prep", nil)
				return m
			},
			ctx: func() context.Context {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx
			},
			want: model.StatusUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sol, err := New(nil).Solve(tt.ctx(), tt.build())
			if err != nil {
				t.Fatalf("Solve() 错误: %v", err)
			}
			if sol.Status != tt.want {
				t.Errorf("状态 = %s, 期望 %s (消息: %s)", sol.Status, tt.want, sol.Message)
			}
		})
	}
}

func TestSearchSolverInfeasibleMessage(t *testing.T) {
	m := cpmodel.NewModel()
	m.AddExactlyOne("cell/2025-06-02/Cyto FNA", nil)

	sol, err := New(nil).Solve(context.Background(), m)
	if err != nil {
		t.Fatalf("Solve() 错误: %v", err)
	}
	if sol.Status != model.StatusInfeasible {
		t.Fatalf("状态 = %s, 期望 INFEASIBLE", sol.Status)
	}
	if sol.Message == "" {
		t.Error("不可行结果应携带违反约束的消息")
	}
	if sol.Status.Solved() {
		t.Error("不可行状态不应视为已求解")
	}
}

func TestSearchSolverNilModel(t *testing.T) {
	_, err := New(nil).Solve(context.Background(), nil)
	if err == nil {
		t.Fatal("空模型应返回错误")
	}
	if !errors.Is(err, errors.CodeInvalidInput) {
		t.Errorf("错误码 = %v, 期望 CodeInvalidInput", errors.GetCode(err))
	}
}

func TestSearchSolverName(t *testing.T) {
	if got := New(nil).Name(); got != "greedy+annealing" {
		t.Errorf("Name() = %q", got)
	}
}
