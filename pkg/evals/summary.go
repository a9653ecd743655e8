package evals

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// 建议生成的阈值
const (
	qualityThreshold        = 0.7
	recallAt10Threshold     = 0.8
	recallAt5Threshold      = 0.7
	generalizationThreshold = 0.6
)

// BuildSummary 从有序结果列表构建汇总统计。
// 所有均值只统计非空样本, 缺失值不按零计入。
func BuildSummary(mode Mode, results []ItemResult) *Summary {
	s := &Summary{
		Mode:           mode,
		TotalQuestions: len(results),
	}

	for i := range results {
		r := &results[i]
		if r.Error != "" {
			s.ErrorCount++
			continue
		}
		if r.Matched {
			s.CorrectCount++
		}
	}
	if s.TotalQuestions > 0 {
		s.Accuracy = float64(s.CorrectCount) / float64(s.TotalQuestions)
	}

	s.MetricMeans, s.MetricCounts = metricMeans(results)
	s.RecallMeans = recallMeans(results)
	s.RetrievalTime = timingStats(results, func(r *ItemResult) float64 { return r.RetrievalTime })
	s.GenerationTime = timingStats(results, func(r *ItemResult) float64 { return r.GenerationTime })
	s.Categories = categoryStats(mode, results)
	s.Generalization = generalization(s.Categories)
	s.Suggestions = buildSuggestions(s)

	return s
}

// metricMeans 统计各裁判指标的均值与有效样本数
func metricMeans(results []ItemResult) (map[string]float64, map[string]int) {
	sums := make(map[string]float64)
	counts := make(map[string]int)

	for i := range results {
		for metric, js := range results[i].JudgeScores {
			if js.Score == nil {
				continue
			}
			sums[metric] += *js.Score
			counts[metric]++
		}
	}

	if len(counts) == 0 {
		return nil, nil
	}

	means := make(map[string]float64, len(counts))
	for metric, n := range counts {
		means[metric] = sums[metric] / float64(n)
	}
	return means, counts
}

// recallMeans 统计各截断位置的平均召回率
func recallMeans(results []ItemResult) map[string]float64 {
	type acc struct {
		sum float64
		n   int
	}
	accs := map[string]*acc{"recall@3": {}, "recall@5": {}, "recall@10": {}}

	for i := range results {
		r := &results[i]
		for key, v := range map[string]*float64{
			"recall@3":  r.RecallAt3,
			"recall@5":  r.RecallAt5,
			"recall@10": r.RecallAt10,
		} {
			if v != nil {
				accs[key].sum += *v
				accs[key].n++
			}
		}
	}

	means := make(map[string]float64)
	for key, a := range accs {
		if a.n > 0 {
			means[key] = a.sum / float64(a.n)
		}
	}
	if len(means) == 0 {
		return nil
	}
	return means
}

// timingStats 统计耗时分布。只统计正值, 无有效样本时返回 nil。
func timingStats(results []ItemResult, pick func(*ItemResult) float64) *TimingStats {
	var values []float64
	for i := range results {
		if v := pick(&results[i]); v > 0 {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return nil
	}

	sort.Float64s(values)
	sum := 0.0
	for _, v := range values {
		sum += v
	}

	return &TimingStats{
		Mean: sum / float64(len(values)),
		P50:  percentile(values, 0.50),
		P95:  percentile(values, 0.95),
	}
}

// percentile 线性插值分位数, values 必须已升序排列
func percentile(values []float64, p float64) float64 {
	if len(values) == 1 {
		return values[0]
	}
	rank := p * float64(len(values)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return values[lo]
	}
	frac := rank - float64(lo)
	return values[lo]*(1-frac) + values[hi]*frac
}

// categoryStats 按类别统计。类别标签来自数据集中出现过的类别字段,
// 条目按类别字段的大小写不敏感子串匹配归入标签。
func categoryStats(mode Mode, results []ItemResult) []CategoryStat {
	tags := make([]string, 0)
	seen := make(map[string]bool)
	for i := range results {
		tag := strings.TrimSpace(results[i].Category)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
	}
	if len(tags) == 0 {
		return nil
	}
	sort.Strings(tags)

	stats := make([]CategoryStat, 0, len(tags))
	for _, tag := range tags {
		cs := CategoryStat{Category: tag}
		sum := 0.0
		scored := 0

		lowerTag := strings.ToLower(tag)
		for i := range results {
			r := &results[i]
			if !strings.Contains(strings.ToLower(r.Category), lowerTag) {
				continue
			}
			cs.Count++
			if r.Matched {
				cs.Correct++
			}
			if score := r.Score(mode); score != nil {
				sum += *score
				scored++
			}
		}

		if cs.Count > 0 {
			cs.Accuracy = float64(cs.Correct) / float64(cs.Count)
		}
		if scored > 0 {
			mean := sum / float64(scored)
			cs.MeanScore = &mean
		}
		stats = append(stats, cs)
	}
	return stats
}

// generalization 计算跨类别泛化指数 exp(-min(cv, 2)), cv 为各类别
// 主评分均值的变异系数。有效类别不足两个时返回 nil。
func generalization(categories []CategoryStat) *float64 {
	var means []float64
	for i := range categories {
		if categories[i].MeanScore != nil {
			means = append(means, *categories[i].MeanScore)
		}
	}
	if len(means) < 2 {
		return nil
	}

	sum := 0.0
	for _, m := range means {
		sum += m
	}
	mean := sum / float64(len(means))

	if mean == 0 {
		zero := 0.0
		return &zero
	}

	// 样本标准差
	sqSum := 0.0
	for _, m := range means {
		d := m - mean
		sqSum += d * d
	}
	stdev := math.Sqrt(sqSum / float64(len(means)-1))

	cv := stdev / mean
	g := math.Exp(-math.Min(cv, 2.0))
	return &g
}

// buildSuggestions 按固定阈值规则生成改进建议
func buildSuggestions(s *Summary) []Suggestion {
	var suggestions []Suggestion

	// 裁判质量指标
	for _, metric := range AllMetrics {
		mean, ok := s.MetricMeans[metric]
		if !ok || mean >= qualityThreshold {
			continue
		}
		suggestions = append(suggestions, Suggestion{
			Metric:       metric,
			CurrentValue: mean,
			Message:      fmt.Sprintf("%s 均值 %.2f 低于 %.1f, 建议检查答案生成质量与提示词", metric, mean, qualityThreshold),
		})
	}

	// 检索召回
	if mean, ok := s.RecallMeans["recall@10"]; ok && mean < recallAt10Threshold {
		suggestions = append(suggestions, Suggestion{
			Metric:       "recall@10",
			CurrentValue: mean,
			Message:      fmt.Sprintf("recall@10 为 %.2f 低于 %.1f, 建议扩大检索候选集或优化向量索引", mean, recallAt10Threshold),
		})
	}
	if mean, ok := s.RecallMeans["recall@5"]; ok && mean < recallAt5Threshold {
		suggestions = append(suggestions, Suggestion{
			Metric:       "recall@5",
			CurrentValue: mean,
			Message:      fmt.Sprintf("recall@5 为 %.2f 低于 %.1f, 建议优化排序模型使正确章节更靠前", mean, recallAt5Threshold),
		})
	}

	// 跨类别泛化
	if s.Generalization != nil && *s.Generalization < generalizationThreshold {
		suggestions = append(suggestions, Suggestion{
			Metric:       "generalization",
			CurrentValue: *s.Generalization,
			Message:      fmt.Sprintf("泛化指数 %.2f 低于 %.1f, 各类别表现不均衡, 建议补充弱势类别的语料", *s.Generalization, generalizationThreshold),
		})
	}

	// 弱势类别
	for i := range s.Categories {
		cs := &s.Categories[i]
		if cs.MeanScore == nil || *cs.MeanScore >= qualityThreshold {
			continue
		}
		suggestions = append(suggestions, Suggestion{
			Category:     cs.Category,
			Metric:       "mean_score",
			CurrentValue: *cs.MeanScore,
			Message:      fmt.Sprintf("类别 %q 主评分均值 %.2f 低于 %.1f, 建议针对该类别补充知识库内容", cs.Category, *cs.MeanScore, qualityThreshold),
		})
	}

	return suggestions
}
