package swap

import (
	"testing"

	"github.com/labroster/labroster/pkg/model"
)

func newRecommender() *Recommender {
	return NewRecommender(newEvaluator())
}

func TestRecommendTargets(t *testing.T) {
	recommender := newRecommender()
	cal := weekCalendar(t)

	// AA 是原承担者被排除，CC 未培训；BB 有一个接管与两个可行互换
	recs := recommender.RecommendTargets(cal, balancedResult(), model.CellRef{
		Date:  "2026-03-02",
		Shift: "Cyto NGYN",
	}, nil)

	if len(recs) != 3 {
		t.Fatalf("候选数 = %d, 期望 3: %+v", len(recs), recs)
	}
	for i, rec := range recs {
		if rec.Initials != "BB" {
			t.Errorf("候选 %d 人员 = %s, 期望 BB", i, rec.Initials)
		}
		if rec.Rank != i+1 {
			t.Errorf("候选 %d 名次 = %d, 期望 %d", i, rec.Rank, i+1)
		}
		if i > 0 && recs[i-1].Score < rec.Score {
			t.Errorf("得分未按降序排列: %v < %v", recs[i-1].Score, rec.Score)
		}
		if rec.Reason == "" || rec.ImpactSummary == "" {
			t.Errorf("候选 %d 缺少理由或影响说明", i)
		}
	}

	// 互换保持负担平衡，应排在接管之前
	if recs[0].SwapType != "exchange" {
		t.Errorf("首位类型 = %s, 期望 exchange", recs[0].SwapType)
	}
	if recs[0].CounterCell == nil || recs[0].CounterCell.Date != "2026-03-03" {
		t.Errorf("首位对方单元 = %+v, 期望 2026-03-03", recs[0].CounterCell)
	}
	if recs[1].CounterCell == nil || recs[1].CounterCell.Date != "2026-03-06" {
		t.Errorf("次位对方单元 = %+v, 期望 2026-03-06", recs[1].CounterCell)
	}
	if recs[2].SwapType != "take_over" || recs[2].CounterCell != nil {
		t.Errorf("末位 = %+v, 期望接管", recs[2])
	}
}

func TestRecommendTargetsExclude(t *testing.T) {
	recommender := newRecommender()
	cal := weekCalendar(t)

	recs := recommender.RecommendTargets(cal, balancedResult(), model.CellRef{
		Date:  "2026-03-02",
		Shift: "Cyto NGYN",
	}, &RecommendOptions{
		MaxRecommendations: 5,
		Exclude:            []string{"BB"},
		AllowExchange:      true,
		MinScore:           60,
	})

	if len(recs) != 0 {
		t.Errorf("排除 BB 后候选数 = %d, 期望 0: %+v", len(recs), recs)
	}
}

func TestRecommendTargetsPreferredBoost(t *testing.T) {
	recommender := newRecommender()
	cal := weekCalendar(t)
	cell := model.CellRef{Date: "2026-03-02", Shift: "Cyto NGYN"}

	base := recommender.RecommendTargets(cal, balancedResult(), cell, &RecommendOptions{
		MaxRecommendations: 5,
	})
	boosted := recommender.RecommendTargets(cal, balancedResult(), cell, &RecommendOptions{
		MaxRecommendations: 5,
		Preferred:          []string{"BB"},
	})

	if len(base) != 1 || len(boosted) != 1 {
		t.Fatalf("候选数 = %d/%d, 期望各 1", len(base), len(boosted))
	}
	if got := boosted[0].Score - base[0].Score; got != 10 {
		t.Errorf("优先加成 = %v, 期望 10", got)
	}
}

func TestRecommendTargetsMaxLimit(t *testing.T) {
	recommender := newRecommender()
	cal := weekCalendar(t)

	recs := recommender.RecommendTargets(cal, balancedResult(), model.CellRef{
		Date:  "2026-03-02",
		Shift: "Cyto NGYN",
	}, &RecommendOptions{
		MaxRecommendations: 2,
		AllowExchange:      true,
		MinScore:           60,
	})

	if len(recs) != 2 {
		t.Fatalf("候选数 = %d, 期望截断到 2", len(recs))
	}
	if recs[1].Rank != 2 {
		t.Errorf("末位名次 = %d, 期望 2", recs[1].Rank)
	}
}

func TestFindBestReplacement(t *testing.T) {
	recommender := newRecommender()
	cal := weekCalendar(t)
	result := balancedResult()

	// AA 当日已有班次会同日多班，唯一人选是 BB
	rec := recommender.FindBestReplacement(cal, result, "CC", "2026-03-02")
	if rec == nil {
		t.Fatal("应找到替班人选")
	}
	if rec.Initials != "BB" {
		t.Errorf("人选 = %s, 期望 BB", rec.Initials)
	}
	if rec.SwapType != "take_over" {
		t.Errorf("类型 = %s, 期望 take_over", rec.SwapType)
	}
}

func TestFindBestReplacementIdle(t *testing.T) {
	recommender := newRecommender()
	cal := weekCalendar(t)

	// BB 当日没有班次，无需替班
	if rec := recommender.FindBestReplacement(cal, balancedResult(), "BB", "2026-03-02"); rec != nil {
		t.Errorf("空闲人员应返回 nil, 得到 %+v", rec)
	}
}

func TestAutoAssign(t *testing.T) {
	recommender := newRecommender()
	cal := weekCalendar(t)

	result := balancedResult()
	result["2026-03-03"] = []model.AssignmentRecord{
		row("Prep GYN", "CC"),
		row("Cyto NGYN", model.Unassigned),
	}

	applied, rec := recommender.AutoAssign(cal, result, model.CellRef{
		Date:  "2026-03-03",
		Shift: "Cyto NGYN",
	})
	if applied == nil || rec == nil {
		t.Fatal("空置单元应能自动补班")
	}
	// BB 补班后各人负担最均衡
	if rec.Initials != "BB" {
		t.Errorf("补班人选 = %s, 期望 BB", rec.Initials)
	}
	if got, _ := holderOf(applied, model.CellRef{Date: "2026-03-03", Shift: "Cyto NGYN"}); got != "BB" {
		t.Errorf("补班后承担者 = %s, 期望 BB", got)
	}
	if got, _ := holderOf(result, model.CellRef{Date: "2026-03-03", Shift: "Cyto NGYN"}); got != model.Unassigned {
		t.Errorf("原结果被修改, 承担者 = %s", got)
	}
}

func TestAutoAssignNoCandidate(t *testing.T) {
	recommender := newRecommender()
	cal := weekCalendar(t)

	// AA 同日已有班次，CC 未培训，无人可自动接管
	applied, rec := recommender.AutoAssign(cal, balancedResult(), model.CellRef{
		Date:  "2026-03-04",
		Shift: "Cyto NGYN",
	})
	if applied != nil || rec != nil {
		t.Errorf("无合格人选应返回 nil, 得到 %+v", rec)
	}
}
