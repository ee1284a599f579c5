package optimizer

import (
	"context"
	"math/rand"
	"sync"

	"github.com/labroster/labroster/pkg/scheduler/cpmodel"
)

// MultiStart 并行多起点搜索：同一初始解经不同扰动后
// 由多个独立种子的局部搜索并发求解，取评分最低者。
type MultiStart struct {
	config *Config
}

// NewMultiStart 创建多起点搜索器
func NewMultiStart(config *Config) *MultiStart {
	if config == nil {
		config = DefaultConfig()
	}
	return &MultiStart{config: config}
}

// Run 执行多起点搜索。converged 表示所有起点收敛到相同评分，
// 可作为解已达最优的启发式判据。
func (ms *MultiStart) Run(ctx context.Context, m *cpmodel.Model, initial *cpmodel.Assignment) (best *cpmodel.Assignment, stats cpmodel.Statistics, converged bool) {
	restarts := ms.config.Restarts
	if restarts <= 0 {
		restarts = 1
	}

	results := make([]*Result, restarts)
	var wg sync.WaitGroup
	for i := 0; i < restarts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			seed := ms.config.Seed + int64(i)
			search := NewLocalSearch(ms.config, seed)

			start := initial.Clone()
			if i > 0 {
				start = perturb(m, start, 2*i, seed)
			}
			results[i] = search.Optimize(ctx, m, start)
		}(i)
	}
	wg.Wait()

	best = results[0].Best
	bestScore := results[0].Score
	converged = true
	for _, r := range results {
		stats.Iterations += r.Iterations
		stats.Improvements += r.Improvements
		if r.Score != bestScore {
			converged = false
		}
		if r.Score < bestScore {
			best = r.Best
			bestScore = r.Score
		}
	}
	stats.Restarts = restarts
	return best, stats, converged
}

// perturb 对取值做若干次随机改派，打散多起点搜索的出发点
func perturb(m *cpmodel.Model, a *cpmodel.Assignment, moves int, seed int64) *cpmodel.Assignment {
	rng := rand.New(rand.NewSource(seed + 7919))
	gen := NewNeighborhoodGenerator(rng)
	for n := 0; n < moves; n++ {
		if neighbor := gen.reassign(m, a); neighbor != nil {
			a = neighbor
		}
	}
	return a
}
