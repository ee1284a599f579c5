package cpmodel

import (
	"context"
	"time"

	"github.com/labroster/labroster/pkg/model"
)

// Solution 求解结果
type Solution struct {
	Assignment     *Assignment       `json:"-"`
	Status         model.SolveStatus `json:"status"`
	Objective      int               `json:"objective"`
	HardViolations int               `json:"hard_violations"`
	Statistics     Statistics        `json:"statistics"`
	Duration       time.Duration     `json:"duration"`
	Message        string            `json:"message,omitempty"`
}

// Statistics 搜索过程统计
type Statistics struct {
	Iterations   int `json:"iterations"`
	Restarts     int `json:"restarts"`
	Improvements int `json:"improvements"`
}

// Solver 求解器接口：对模型执行有界搜索并给出结论
type Solver interface {
	// Solve 求解模型。取消上下文会提前终止搜索，
	// 结论体现在返回的 Status 中而非错误里。
	Solve(ctx context.Context, m *Model) (*Solution, error)

	// Name 返回求解器名称
	Name() string
}
