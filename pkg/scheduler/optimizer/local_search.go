// Package optimizer 提供基于模拟退火与禁忌搜索的局部搜索优化器
package optimizer

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"
	"time"

	"github.com/labroster/labroster/pkg/scheduler/cpmodel"
)

// hardViolationCost 单条硬约束违反在评分中的代价。
// 远大于任何软约束目标值，保证搜索优先消除硬违反。
const hardViolationCost = 1_000_000

// Score 计算取值的综合评分：硬违反数乘以基准代价，再加软约束目标值。
func Score(a *cpmodel.Assignment) int {
	return a.HardViolations()*hardViolationCost + a.Objective()
}

// Config 优化配置
type Config struct {
	MaxIterations    int           `json:"max_iterations"`    // 单次搜索最大迭代次数
	MaxTime          time.Duration `json:"max_time"`          // 最大运行时间
	InitialTemp      float64       `json:"initial_temp"`      // 模拟退火初始温度
	CoolingRate      float64       `json:"cooling_rate"`      // 冷却速率
	TabuSize         int           `json:"tabu_size"`         // 禁忌表大小
	NeighborhoodSize int           `json:"neighborhood_size"` // 每轮生成的邻居数
	Restarts         int           `json:"restarts"`          // 并行重启次数
	Seed             int64         `json:"seed"`              // 随机种子基值
	StopOnPlateau    bool          `json:"stop_on_plateau"`   // 平台期停止
	PlateauThreshold int           `json:"plateau_threshold"` // 平台期阈值（无改进迭代次数）
}

// DefaultConfig 默认优化配置
func DefaultConfig() *Config {
	return &Config{
		MaxIterations:    2000,
		MaxTime:          30 * time.Second,
		InitialTemp:      50.0,
		CoolingRate:      0.995,
		TabuSize:         64,
		NeighborhoodSize: 24,
		Restarts:         4,
		Seed:             1,
		StopOnPlateau:    true,
		PlateauThreshold: 300,
	}
}

// Result 单次局部搜索的结果
type Result struct {
	Best         *cpmodel.Assignment
	Score        int
	Iterations   int
	Improvements int
}

// LocalSearch 模拟退火加禁忌表的局部搜索
type LocalSearch struct {
	config    *Config
	neighbors *NeighborhoodGenerator
	tabu      *TabuList
	rng       *rand.Rand
}

// NewLocalSearch 创建局部搜索优化器，seed 决定本次搜索的随机序列
func NewLocalSearch(config *Config, seed int64) *LocalSearch {
	if config == nil {
		config = DefaultConfig()
	}
	rng := rand.New(rand.NewSource(seed))
	return &LocalSearch{
		config:    config,
		neighbors: NewNeighborhoodGenerator(rng),
		tabu:      NewTabuList(config.TabuSize),
		rng:       rng,
	}
}

// Optimize 从初始取值出发执行局部搜索，返回找到的最优取值
func (ls *LocalSearch) Optimize(ctx context.Context, m *cpmodel.Model, initial *cpmodel.Assignment) *Result {
	best := initial.Clone()
	bestScore := Score(best)
	current := initial.Clone()
	currentScore := bestScore

	result := &Result{Best: best, Score: bestScore}
	if bestScore == 0 {
		return result
	}

	temperature := ls.config.InitialTemp
	noImprovement := 0
	deadline := time.Now().Add(ls.config.MaxTime)

	for iter := 0; iter < ls.config.MaxIterations; iter++ {
		select {
		case <-ctx.Done():
			result.Iterations = iter
			return result
		default:
		}
		if time.Now().After(deadline) {
			result.Iterations = iter
			return result
		}

		// 生成一批邻居，取其中评分最低者
		var candidate *cpmodel.Assignment
		candidateScore := math.MaxInt
		for n := 0; n < ls.config.NeighborhoodSize; n++ {
			neighbor := ls.neighbors.Generate(m, current)
			if neighbor == nil {
				continue
			}
			if s := Score(neighbor); s < candidateScore {
				candidate = neighbor
				candidateScore = s
			}
		}
		if candidate == nil {
			noImprovement++
			if ls.config.StopOnPlateau && noImprovement >= ls.config.PlateauThreshold {
				break
			}
			continue
		}

		key := hashAssignment(m, candidate)
		inTabu := ls.tabu.Contains(key)

		accepted := false
		if candidateScore < currentScore {
			accepted = true
		} else if !inTabu {
			delta := float64(candidateScore - currentScore)
			if ls.rng.Float64() < boltzmannProbability(delta, temperature) {
				accepted = true
			}
		}

		if accepted {
			current = candidate
			currentScore = candidateScore
			ls.tabu.Add(key)

			if currentScore < bestScore {
				best = current.Clone()
				bestScore = currentScore
				result.Improvements++
				noImprovement = 0
			} else {
				noImprovement++
			}
		} else {
			noImprovement++
		}

		if bestScore == 0 {
			result.Iterations = iter + 1
			break
		}
		if ls.config.StopOnPlateau && noImprovement >= ls.config.PlateauThreshold {
			result.Iterations = iter + 1
			break
		}

		temperature *= ls.config.CoolingRate
		result.Iterations = iter + 1
	}

	result.Best = best
	result.Score = bestScore
	return result
}

// boltzmannProbability 按玻尔兹曼分布计算接受劣解的概率
func boltzmannProbability(delta, temperature float64) float64 {
	if temperature <= 0 {
		return 0
	}
	return math.Exp(-delta / temperature)
}

// hashAssignment 计算取值的 FNV 哈希，用作禁忌表键
func hashAssignment(m *cpmodel.Model, a *cpmodel.Assignment) uint64 {
	h := fnv.New64a()
	buf := make([]byte, m.NumVars())
	for v := 0; v < m.NumVars(); v++ {
		if a.True(cpmodel.Var(v)) {
			buf[v] = 1
		}
	}
	h.Write(buf)
	return h.Sum64()
}

// TabuList 固定容量的禁忌表，按先进先出淘汰
type TabuList struct {
	keys    map[uint64]struct{}
	order   []uint64
	maxSize int
}

// NewTabuList 创建禁忌表
func NewTabuList(maxSize int) *TabuList {
	if maxSize <= 0 {
		maxSize = 1
	}
	return &TabuList{
		keys:    make(map[uint64]struct{}, maxSize),
		order:   make([]uint64, 0, maxSize),
		maxSize: maxSize,
	}
}

// Contains 查询键是否在禁忌表中
func (t *TabuList) Contains(key uint64) bool {
	_, ok := t.keys[key]
	return ok
}

// Add 加入新键，超出容量时淘汰最早的键
func (t *TabuList) Add(key uint64) {
	if _, ok := t.keys[key]; ok {
		return
	}
	if len(t.order) >= t.maxSize {
		oldest := t.order[0]
		t.order = t.order[1:]
		delete(t.keys, oldest)
	}
	t.keys[key] = struct{}{}
	t.order = append(t.order, key)
}

// Len 当前禁忌表大小
func (t *TabuList) Len() int {
	return len(t.keys)
}
