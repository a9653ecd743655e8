package evals

import (
	"context"
	"strings"

	"github.com/wordflowlab/rageval/pkg/chapter"
)

// Scorer 对单条用例完成一次完整评分。
// 结构匹配与裁判评分按模式裁剪: structural 模式不调用裁判,
// judge 模式不做结构匹配, hybrid 模式两者兼有并融合。
type Scorer struct {
	mode  Mode
	judge Judge
	cache *chapter.Cache
}

// NewScorer 创建评分器。judge 在 structural 模式下可为 nil。
func NewScorer(mode Mode, judge Judge, cache *chapter.Cache) *Scorer {
	if cache == nil {
		cache = chapter.NewCache()
	}
	return &Scorer{mode: mode, judge: judge, cache: cache}
}

// ScoreItem 评测单条用例, idx 为其在数据集中的序号。
// 裁判整体失败时返回带 Error 的结果而非 error, 保证单条失败不影响批次。
func (s *Scorer) ScoreItem(ctx context.Context, idx int, tc *TestCase) ItemResult {
	result := ItemResult{
		Index:          idx,
		Question:       tc.Question,
		Answer:         tc.Answer,
		Reference:      tc.Reference,
		Category:       tc.Category,
		Theme:          tc.Theme,
		RetrievalTime:  tc.RetrievalTime,
		GenerationTime: tc.GenerationTime,
	}

	// 章节提取对所有模式都执行, 结果随评测输出便于排查
	answerSource := tc.AnswerLocation
	if strings.TrimSpace(answerSource) == "" {
		answerSource = tc.Answer
	}
	result.AnswerChapter = s.cache.Extract(answerSource)
	result.ReferenceChapter = s.cache.Extract(tc.Reference)

	// 结构匹配
	if s.mode != ModeJudge {
		structural := 0.0
		if result.AnswerChapter != "" && result.ReferenceChapter != "" &&
			s.cache.ValidMatch(result.AnswerChapter, result.ReferenceChapter) {
			structural = 1.0
		}
		result.Structural = &structural
	}

	// 召回率
	s.scoreRecall(tc, &result)

	// 裁判评分
	if s.mode != ModeStructural && s.judge != nil {
		scores, err := s.judge.Evaluate(ctx, tc)
		result.JudgeScores = scores
		if err != nil {
			// 整条评测失败, 评分字段全部置空
			result.Error = err.Error()
			result.Structural = nil
			result.RecallAt3, result.RecallAt5, result.RecallAt10 = nil, nil, nil
			return result
		}
		result.JudgeCore = coreScore(scores)
	}

	// 融合与判定
	switch s.mode {
	case ModeStructural:
		result.Matched = result.Structural != nil && *result.Structural == 1.0

	case ModeJudge:
		result.Matched = result.JudgeCore != nil && *result.JudgeCore >= CoreScoreThreshold

	case ModeHybrid:
		core := 0.0
		if result.JudgeCore != nil {
			core = *result.JudgeCore
		}
		hybrid := StructuralWeight*(*result.Structural) + JudgeWeight*core
		result.Hybrid = &hybrid
		result.Matched = *result.Structural == 1.0 &&
			result.JudgeCore != nil && *result.JudgeCore >= CoreScoreThreshold
	}

	return result
}

// scoreRecall 计算各截断位置的召回率。
// 命中定义: 前 K 个片段中存在章节能与金标准章节构成有效匹配;
// 无金标准章节或无排序片段时召回率记 0。
func (s *Scorer) scoreRecall(tc *TestCase, result *ItemResult) {
	// 逐片段提取章节, 片段元数据自带定位时优先使用
	chapters := make([]string, len(tc.RankedContexts))
	for i := range tc.RankedContexts {
		rc := &tc.RankedContexts[i]
		source := rc.Location()
		if strings.TrimSpace(source) == "" {
			source = rc.Content
		}
		chapters[i] = s.cache.Extract(source)
	}

	recallAt := func(k int) *float64 {
		hit := 0.0
		if k > len(chapters) {
			k = len(chapters)
		}
		if result.ReferenceChapter != "" {
			for _, ch := range chapters[:k] {
				if ch != "" && s.cache.ValidMatch(ch, result.ReferenceChapter) {
					hit = 1.0
					break
				}
			}
		}
		return &hit
	}

	result.RecallAt3 = recallAt(3)
	result.RecallAt5 = recallAt(5)
	result.RecallAt10 = recallAt(10)
}

// coreScore 计算核心指标均值。无任何核心指标可用时返回 nil。
func coreScore(scores map[string]JudgeScore) *float64 {
	sum := 0.0
	n := 0
	for _, metric := range CoreMetrics {
		if js, ok := scores[metric]; ok && js.Score != nil {
			sum += *js.Score
			n++
		}
	}
	if n == 0 {
		return nil
	}
	mean := sum / float64(n)
	return &mean
}
