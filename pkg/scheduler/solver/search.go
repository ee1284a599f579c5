package solver

import (
	"context"
	"time"

	"github.com/labroster/labroster/pkg/errors"
	"github.com/labroster/labroster/pkg/logger"
	"github.com/labroster/labroster/pkg/model"
	"github.com/labroster/labroster/pkg/scheduler/cpmodel"
	"github.com/labroster/labroster/pkg/scheduler/optimizer"
)

// SearchSolver 两阶段求解器：先贪心构造初始解，
// 再用并行多起点的模拟退火搜索改进。
type SearchSolver struct {
	config *optimizer.Config
}

// New 创建搜索求解器，config 为 nil 时使用默认配置
func New(config *optimizer.Config) *SearchSolver {
	if config == nil {
		config = optimizer.DefaultConfig()
	}
	return &SearchSolver{config: config}
}

// Name 返回求解器名称
func (s *SearchSolver) Name() string {
	return "greedy+annealing"
}

// Solve 求解模型并按结果分类求解状态。
// 上下文取消不作为错误返回，体现在状态上：
// 已有可行解时为 FEASIBLE，否则为 UNKNOWN。
func (s *SearchSolver) Solve(ctx context.Context, m *cpmodel.Model) (*cpmodel.Solution, error) {
	if m == nil {
		return nil, errors.New(errors.CodeInvalidInput, "约束模型为空")
	}
	start := time.Now()
	log := logger.Get()

	initial := Construct(m)
	log.Debug().
		Int("vars", m.NumVars()).
		Int("groups", len(m.Groups())).
		Int("initial_score", optimizer.Score(initial)).
		Msg("贪心构造完成")

	best, stats, converged := optimizer.NewMultiStart(s.config).Run(ctx, m, initial)
	hardViolations := best.HardViolations()
	objective := best.Objective()
	cancelled := ctx.Err() != nil

	sol := &cpmodel.Solution{
		Assignment:     best,
		Objective:      objective,
		HardViolations: hardViolations,
		Statistics:     stats,
		Duration:       time.Since(start),
	}

	switch {
	case hardViolations > 0 && cancelled:
		sol.Status = model.StatusUnknown
		sol.Message = "求解被中断，未找到可行解"
	case hardViolations > 0:
		sol.Status = model.StatusInfeasible
		sol.Message = "硬约束无法同时满足: " + violationSummary(best)
	case objective == 0 || (converged && !cancelled):
		sol.Status = model.StatusOptimal
	default:
		sol.Status = model.StatusFeasible
	}

	log.Info().
		Str("solver", s.Name()).
		Str("status", string(sol.Status)).
		Int("objective", objective).
		Int("hard_violations", hardViolations).
		Int("iterations", stats.Iterations).
		Int("restarts", stats.Restarts).
		Dur("duration", sol.Duration).
		Msg("求解完成")
	return sol, nil
}
