package evals

import (
	"math"
	"testing"
)

// item 构造一条带类别与主评分的成功结果
func item(category string, hybrid float64, matched bool) ItemResult {
	return ItemResult{Category: category, Hybrid: &hybrid, Matched: matched}
}

// TestBuildSummaryCounts 基础计数与正确率
func TestBuildSummaryCounts(t *testing.T) {
	results := []ItemResult{
		item("事实型", 0.9, true),
		item("事实型", 0.5, false),
		{Category: "推理型", Error: "judge unavailable"},
		item("推理型", 0.8, true),
	}

	s := BuildSummary(ModeHybrid, results)
	if s.TotalQuestions != 4 {
		t.Errorf("TotalQuestions = %d, want 4", s.TotalQuestions)
	}
	if s.CorrectCount != 2 {
		t.Errorf("CorrectCount = %d, want 2", s.CorrectCount)
	}
	if s.ErrorCount != 1 {
		t.Errorf("ErrorCount = %d, want 1", s.ErrorCount)
	}
	if s.Accuracy != 0.5 {
		t.Errorf("Accuracy = %v, want 0.5", s.Accuracy)
	}
}

// TestMetricMeansExcludeNulls 指标均值只统计非空样本, 不按零填充
func TestMetricMeansExcludeNulls(t *testing.T) {
	results := []ItemResult{
		{JudgeScores: map[string]JudgeScore{
			MetricFactualCorrectness: {Score: ptr(0.8)},
			MetricFaithfulness:       {Score: nil, Evidence: "评分失败"},
		}},
		{JudgeScores: map[string]JudgeScore{
			MetricFactualCorrectness: {Score: ptr(0.6)},
			MetricFaithfulness:       {Score: ptr(1.0)},
		}},
	}

	s := BuildSummary(ModeJudge, results)
	if got := s.MetricMeans[MetricFactualCorrectness]; math.Abs(got-0.7) > 1e-9 {
		t.Errorf("factual mean = %v, want 0.7", got)
	}
	// faithfulness 只有一个有效样本, 均值为 1.0 而非 0.5
	if got := s.MetricMeans[MetricFaithfulness]; got != 1.0 {
		t.Errorf("faithfulness mean = %v, want 1.0", got)
	}
	if s.MetricCounts[MetricFaithfulness] != 1 {
		t.Errorf("faithfulness count = %d, want 1", s.MetricCounts[MetricFaithfulness])
	}
}

// TestRecallMeans 召回率均值
func TestRecallMeans(t *testing.T) {
	results := []ItemResult{
		{RecallAt3: ptr(1.0), RecallAt5: ptr(1.0), RecallAt10: ptr(1.0)},
		{RecallAt3: ptr(0.0), RecallAt5: ptr(1.0), RecallAt10: ptr(1.0)},
		{Error: "failed"},
	}

	s := BuildSummary(ModeStructural, results)
	if got := s.RecallMeans["recall@3"]; got != 0.5 {
		t.Errorf("recall@3 = %v, want 0.5", got)
	}
	if got := s.RecallMeans["recall@5"]; got != 1.0 {
		t.Errorf("recall@5 = %v, want 1.0", got)
	}
}

// TestTimingStats 耗时分布: 均值与分位数
func TestTimingStats(t *testing.T) {
	results := make([]ItemResult, 0, 10)
	for i := 1; i <= 10; i++ {
		results = append(results, ItemResult{RetrievalTime: float64(i)})
	}

	s := BuildSummary(ModeStructural, results)
	if s.RetrievalTime == nil {
		t.Fatal("RetrievalTime should be present")
	}
	if s.RetrievalTime.Mean != 5.5 {
		t.Errorf("Mean = %v, want 5.5", s.RetrievalTime.Mean)
	}
	if s.RetrievalTime.P50 != 5.5 {
		t.Errorf("P50 = %v, want 5.5", s.RetrievalTime.P50)
	}
	if math.Abs(s.RetrievalTime.P95-9.55) > 1e-9 {
		t.Errorf("P95 = %v, want 9.55", s.RetrievalTime.P95)
	}
	// 无生成耗时数据时统计缺失
	if s.GenerationTime != nil {
		t.Errorf("GenerationTime = %+v, want nil", s.GenerationTime)
	}
}

// TestCategoryStats 类别统计: 大小写不敏感的子串归类
func TestCategoryStats(t *testing.T) {
	results := []ItemResult{
		item("事实型", 1.0, true),
		item("事实型(多跳)", 0.6, false),
		item("推理型", 0.8, true),
	}

	s := BuildSummary(ModeHybrid, results)
	if len(s.Categories) != 3 {
		t.Fatalf("len(Categories) = %d, want 3", len(s.Categories))
	}

	byName := make(map[string]CategoryStat)
	for _, cs := range s.Categories {
		byName[cs.Category] = cs
	}

	// "事实型" 作为子串同时命中 "事实型(多跳)"
	fact := byName["事实型"]
	if fact.Count != 2 {
		t.Errorf("事实型 count = %d, want 2", fact.Count)
	}
	if fact.MeanScore == nil || *fact.MeanScore != 0.8 {
		t.Errorf("事实型 mean = %v, want 0.8", fact.MeanScore)
	}
	if fact.Correct != 1 || fact.Accuracy != 0.5 {
		t.Errorf("事实型 correct/accuracy = %d/%v, want 1/0.5", fact.Correct, fact.Accuracy)
	}

	if byName["推理型"].Count != 1 {
		t.Errorf("推理型 count = %d, want 1", byName["推理型"].Count)
	}
}

// TestGeneralization 泛化指数的边界行为
func TestGeneralization(t *testing.T) {
	// 类别不足两个: 不可用
	s := BuildSummary(ModeHybrid, []ItemResult{item("唯一类别", 0.9, true)})
	if s.Generalization != nil {
		t.Errorf("Generalization = %v, want nil with single category", s.Generalization)
	}

	// 两个类别均值相同: cv = 0, 泛化指数 1.0
	s = BuildSummary(ModeHybrid, []ItemResult{
		item("类别A", 0.8, true),
		item("类别B", 0.8, true),
	})
	if s.Generalization == nil || *s.Generalization != 1.0 {
		t.Errorf("Generalization = %v, want 1.0 for identical means", s.Generalization)
	}

	// 均值为 0: 泛化指数 0
	s = BuildSummary(ModeHybrid, []ItemResult{
		item("类别A", 0.0, false),
		item("类别B", 0.0, false),
	})
	if s.Generalization == nil || *s.Generalization != 0.0 {
		t.Errorf("Generalization = %v, want 0 for zero mean", s.Generalization)
	}

	// 变异系数封顶: 泛化指数下限 exp(-2)
	s = BuildSummary(ModeHybrid, []ItemResult{
		item("类别A", 0.001, false),
		item("类别B", 1.0, true),
	})
	if s.Generalization == nil || *s.Generalization < math.Exp(-2)-1e-9 {
		t.Errorf("Generalization = %v, want >= exp(-2)", s.Generalization)
	}
}

// TestSuggestions 阈值规则触发的改进建议
func TestSuggestions(t *testing.T) {
	results := []ItemResult{
		{
			Category:   "事实型",
			Hybrid:     ptr(0.3),
			RecallAt5:  ptr(0.0),
			RecallAt10: ptr(0.0),
			JudgeScores: map[string]JudgeScore{
				MetricFactualCorrectness: {Score: ptr(0.3)},
			},
		},
		{
			Category:   "推理型",
			Hybrid:     ptr(0.9),
			RecallAt5:  ptr(1.0),
			RecallAt10: ptr(1.0),
			JudgeScores: map[string]JudgeScore{
				MetricFactualCorrectness: {Score: ptr(0.5)},
			},
			Matched: true,
		},
	}

	s := BuildSummary(ModeHybrid, results)

	hasMetric := func(metric string) bool {
		for _, sg := range s.Suggestions {
			if sg.Metric == metric {
				return true
			}
		}
		return false
	}

	// factual 均值 0.4 < 0.7
	if !hasMetric(MetricFactualCorrectness) {
		t.Error("expected factual_correctness suggestion")
	}
	// recall@10 均值 0.5 < 0.8, recall@5 均值 0.5 < 0.7
	if !hasMetric("recall@10") || !hasMetric("recall@5") {
		t.Error("expected recall suggestions")
	}
	// 事实型类别均值 0.3 < 0.7
	found := false
	for _, sg := range s.Suggestions {
		if sg.Category == "事实型" && sg.Metric == "mean_score" {
			found = true
		}
	}
	if !found {
		t.Error("expected weak category suggestion")
	}

	// 表现良好时无建议
	good := BuildSummary(ModeHybrid, []ItemResult{
		{Hybrid: ptr(0.95), RecallAt5: ptr(1.0), RecallAt10: ptr(1.0), Matched: true,
			JudgeScores: map[string]JudgeScore{MetricFactualCorrectness: {Score: ptr(0.9)}}},
	})
	if len(good.Suggestions) != 0 {
		t.Errorf("Suggestions = %v, want none", good.Suggestions)
	}
}

// TestBuildSummaryEmpty 空结果集
func TestBuildSummaryEmpty(t *testing.T) {
	s := BuildSummary(ModeHybrid, nil)
	if s.TotalQuestions != 0 || s.Accuracy != 0 {
		t.Errorf("empty summary = %+v", s)
	}
	if s.Generalization != nil {
		t.Error("empty summary should have no generalization")
	}
}
