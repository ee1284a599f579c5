package callout

import (
	"fmt"
	"math"
	"sort"

	"github.com/labroster/labroster/pkg/calendar"
	"github.com/labroster/labroster/pkg/model"
	"github.com/labroster/labroster/pkg/swap"
)

// Ranker 替班人选排序器
type Ranker struct {
	evaluator *swap.Evaluator
	roster    []*model.StaffMember

	// 权重配置
	fairnessWeight    float64
	loadWeight        float64
	familiarityWeight float64
}

// NewRanker 创建替班排序器
func NewRanker(evaluator *swap.Evaluator, roster []*model.StaffMember) *Ranker {
	return &Ranker{
		evaluator:         evaluator,
		roster:            roster,
		fairnessWeight:    0.4,
		loadWeight:        0.35,
		familiarityWeight: 0.25,
	}
}

// SetWeights 设置评分权重，按比例归一化
func (r *Ranker) SetWeights(fairness, load, familiarity float64) {
	total := fairness + load + familiarity
	if total <= 0 {
		return
	}
	r.fairnessWeight = fairness / total
	r.loadWeight = load / total
	r.familiarityWeight = familiarity / total
}

// Rank 对全名单评分并按得分降序排列，只保留满足硬性规则的人选
func (r *Ranker) Rank(cal *calendar.Calendar, result model.ScheduleResult, cell model.CellRef, exclude []string) []model.Candidate {
	excluded := make(map[string]bool, len(exclude))
	for _, initials := range exclude {
		excluded[initials] = true
	}

	var candidates []model.Candidate
	for _, st := range r.roster {
		if excluded[st.Initials] {
			continue
		}

		eval := r.evaluator.Evaluate(cal, result, &swap.Request{
			Cell:        cell,
			Replacement: st.Initials,
		})
		if !eval.Feasible {
			continue
		}
		candidates = append(candidates, r.score(result, cell, st.Initials, eval))
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Initials < candidates[j].Initials
	})
	return candidates
}

// score 按公平度、当前负担与班次熟悉度加权评分
func (r *Ranker) score(result model.ScheduleResult, cell model.CellRef, initials string, eval *swap.Evaluation) model.Candidate {
	fairness := eval.Score
	load := r.loadScore(result, initials)
	familiarity, times := r.familiarityScore(result, cell.Shift, initials)

	total := fairness*r.fairnessWeight + load*r.loadWeight + familiarity*r.familiarityWeight

	reasons := make([]string, 0, 3)
	if len(eval.Issues) == 0 {
		reasons = append(reasons, "无新增冲突")
	} else {
		for _, issue := range eval.Issues {
			reasons = append(reasons, issue.Message)
		}
	}
	if times > 0 {
		reasons = append(reasons, fmt.Sprintf("本期已承担该班次 %d 次", times))
	}
	if load >= 60 {
		reasons = append(reasons, "当前负担较轻")
	}

	return model.Candidate{
		Initials: initials,
		Score:    math.Round(total*10) / 10,
		Reasons:  reasons,
	}
}

// loadScore 负担评分，承担班次越少分数越高
func (r *Ranker) loadScore(result model.ScheduleResult, initials string) float64 {
	most := 0
	for _, st := range r.roster {
		if count := len(result.AssignmentsOf(st.Initials)); count > most {
			most = count
		}
	}
	if most == 0 {
		return 100
	}
	own := len(result.AssignmentsOf(initials))
	if own >= most {
		return 0
	}
	return (1 - float64(own)/float64(most)) * 100
}

// familiarityScore 本期承担过同名班次的次数越多分数越高
func (r *Ranker) familiarityScore(result model.ScheduleResult, shift, initials string) (float64, int) {
	times := 0
	for _, ref := range result.AssignmentsOf(initials) {
		if ref.Shift == shift {
			times++
		}
	}
	score := float64(times) * 25
	if score > 100 {
		score = 100
	}
	return score, times
}
