package swap

import (
	"sort"

	"github.com/labroster/labroster/pkg/calendar"
	"github.com/labroster/labroster/pkg/model"
)

// Recommendation 换班候选
type Recommendation struct {
	Initials string `json:"initials"`
	// 互换时对方让出的单元，接管时为空
	CounterCell   *model.CellRef `json:"counter_cell,omitempty"`
	Score         float64        `json:"score"`
	Reason        string         `json:"reason"`
	SwapType      string         `json:"swap_type"` // take_over/exchange
	ImpactSummary string         `json:"impact_summary"`
	Rank          int            `json:"rank"`
}

// RecommendOptions 推荐选项
type RecommendOptions struct {
	MaxRecommendations int      `json:"max_recommendations"`
	Preferred          []string `json:"preferred,omitempty"` // 优先考虑的人员
	Exclude            []string `json:"exclude,omitempty"`   // 排除的人员
	AllowExchange      bool     `json:"allow_exchange"`
	MinScore           float64  `json:"min_score"`
}

// DefaultRecommendOptions 返回默认选项
func DefaultRecommendOptions() *RecommendOptions {
	return &RecommendOptions{
		MaxRecommendations: 5,
		AllowExchange:      true,
		MinScore:           60,
	}
}

// Recommender 换班推荐器
type Recommender struct {
	evaluator *Evaluator
}

// NewRecommender 创建换班推荐器
func NewRecommender(evaluator *Evaluator) *Recommender {
	return &Recommender{evaluator: evaluator}
}

// RecommendTargets 为指定单元推荐替班人选，按得分降序
func (r *Recommender) RecommendTargets(cal *calendar.Calendar, result model.ScheduleResult, cell model.CellRef, options *RecommendOptions) []Recommendation {
	if options == nil {
		options = DefaultRecommendOptions()
	}

	previous, _ := holderOf(result, cell)
	excluded := make(map[string]bool, len(options.Exclude)+1)
	excluded[previous] = true
	for _, initials := range options.Exclude {
		excluded[initials] = true
	}
	preferred := make(map[string]bool, len(options.Preferred))
	for _, initials := range options.Preferred {
		preferred[initials] = true
	}

	var candidates []Recommendation
	for _, st := range r.evaluator.roster {
		if excluded[st.Initials] {
			continue
		}

		eval := r.evaluator.Evaluate(cal, result, &Request{
			Cell:        cell,
			Replacement: st.Initials,
		})
		if eval.Feasible && eval.Score >= options.MinScore {
			candidate := Recommendation{
				Initials:      st.Initials,
				Score:         eval.Score,
				SwapType:      "take_over",
				Reason:        takeOverReason(eval),
				ImpactSummary: impactSummary(eval),
			}
			if preferred[st.Initials] {
				candidate.Score += 10
			}
			candidates = append(candidates, candidate)
		}

		if options.AllowExchange {
			candidates = append(candidates, r.exchangeCandidates(cal, result, cell, st.Initials, options)...)
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		if candidates[i].Initials != candidates[j].Initials {
			return candidates[i].Initials < candidates[j].Initials
		}
		return counterKey(candidates[i].CounterCell) < counterKey(candidates[j].CounterCell)
	})

	if len(candidates) > options.MaxRecommendations {
		candidates = candidates[:options.MaxRecommendations]
	}
	for i := range candidates {
		candidates[i].Rank = i + 1
	}
	return candidates
}

// exchangeCandidates 评估与该人员已有班次的互换
func (r *Recommender) exchangeCandidates(cal *calendar.Calendar, result model.ScheduleResult, cell model.CellRef, initials string, options *RecommendOptions) []Recommendation {
	var candidates []Recommendation

	for _, held := range result.AssignmentsOf(initials) {
		// 同日互换没有意义
		if held.Date == cell.Date {
			continue
		}

		counter := held
		eval := r.evaluator.Evaluate(cal, result, &Request{
			Cell:        cell,
			Replacement: initials,
			CounterCell: &counter,
		})
		if !eval.Feasible || eval.Score < options.MinScore {
			continue
		}

		candidates = append(candidates, Recommendation{
			Initials:      initials,
			CounterCell:   &counter,
			Score:         eval.Score,
			SwapType:      "exchange",
			Reason:        "互换班次，双方负担更平衡",
			ImpactSummary: impactSummary(eval),
		})
	}
	return candidates
}

// FindBestReplacement 为某人某日的班次找到最佳替班人选。
// 该人当日没有班次或无人合格时返回 nil。
func (r *Recommender) FindBestReplacement(cal *calendar.Calendar, result model.ScheduleResult, initials, date string) *Recommendation {
	var cell *model.CellRef
	for _, row := range result[date] {
		if row.AssignedTo == initials {
			cell = &model.CellRef{Date: date, Shift: row.Shift}
			break
		}
	}
	if cell == nil {
		return nil
	}

	recs := r.RecommendTargets(cal, result, *cell, &RecommendOptions{
		MaxRecommendations: 1,
		MinScore:           50,
	})
	if len(recs) == 0 {
		return nil
	}
	return &recs[0]
}

// AutoAssign 自动执行得分最高的换班，无合格人选时结果为 nil
func (r *Recommender) AutoAssign(cal *calendar.Calendar, result model.ScheduleResult, cell model.CellRef) (model.ScheduleResult, *Recommendation) {
	recs := r.RecommendTargets(cal, result, cell, &RecommendOptions{
		MaxRecommendations: 1,
		MinScore:           70, // 自动执行要求更高得分
	})
	if len(recs) == 0 {
		return nil, nil
	}

	best := recs[0]
	applied := r.evaluator.ApplySwap(result, &Request{
		Cell:        cell,
		Replacement: best.Initials,
		CounterCell: best.CounterCell,
	})
	return applied, &best
}

// takeOverReason 生成接管推荐的原因
func takeOverReason(eval *Evaluation) string {
	if len(eval.Issues) == 0 {
		if eval.Impact != nil && eval.Impact.FairnessChange > 0 {
			return "无新增冲突，换班后更公平"
		}
		return "无新增冲突"
	}
	warnings := 0
	for _, issue := range eval.Issues {
		if issue.Severity == "warning" {
			warnings++
		}
	}
	if warnings > 0 && warnings <= 2 {
		return "仅有少量提醒"
	}
	return "可以接替此班次"
}

// counterKey 互换单元的排序键，接管候选排在互换之前
func counterKey(cell *model.CellRef) string {
	if cell == nil {
		return ""
	}
	return cell.Date + "/" + cell.Shift
}

// impactSummary 生成影响摘要
func impactSummary(eval *Evaluation) string {
	if eval.Impact == nil {
		return "影响较小"
	}
	switch {
	case eval.Impact.FairnessChange > 0:
		return "换班后整体更公平"
	case eval.Impact.FairnessChange < 0:
		return "公平性略有下降"
	default:
		return "对公平性影响中性"
	}
}
