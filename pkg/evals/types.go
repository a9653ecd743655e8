// Package evals 实现检索问答系统的评测引擎。
//
// 评测分三种模式:
//   - structural: 仅依据章节定位做结构化匹配
//   - judge:      仅依据 LLM 裁判的多维评分
//   - hybrid:     结构分与裁判分按权重融合(默认)
//
// 一次评测的生命周期: 加载数据集 -> 并发逐条评分 -> 汇总统计。
package evals

import (
	"time"
)

// Mode 评测模式
type Mode string

const (
	// ModeStructural 仅结构化章节匹配
	ModeStructural Mode = "structural"
	// ModeJudge 仅 LLM 裁判评分
	ModeJudge Mode = "judge"
	// ModeHybrid 结构分与裁判分融合
	ModeHybrid Mode = "hybrid"
)

// Valid 判断模式是否合法
func (m Mode) Valid() bool {
	switch m {
	case ModeStructural, ModeJudge, ModeHybrid:
		return true
	}
	return false
}

// 融合权重与判定阈值
const (
	// StructuralWeight 结构分在融合分中的权重
	StructuralWeight = 0.4
	// JudgeWeight 裁判核心分在融合分中的权重
	JudgeWeight = 0.6
	// CoreScoreThreshold 判定"正确"所需的裁判核心分下限
	CoreScoreThreshold = 0.7
)

// 裁判指标名。核心指标参与融合分，辅助指标仅用于汇总展示。
const (
	MetricFactualCorrectness = "factual_correctness"
	MetricFaithfulness       = "faithfulness"
	MetricAnswerRelevancy    = "answer_relevancy"
	MetricContextRelevancy   = "context_relevancy"
)

// CoreMetrics 参与核心分计算的指标
var CoreMetrics = []string{MetricFactualCorrectness, MetricFaithfulness}

// AllMetrics 全部裁判指标
var AllMetrics = []string{
	MetricFactualCorrectness,
	MetricFaithfulness,
	MetricAnswerRelevancy,
	MetricContextRelevancy,
}

// RecallKs 计算召回率的截断位置
var RecallKs = []int{3, 5, 10}

// RankedContext 检索返回的带排序的上下文片段
type RankedContext struct {
	// Content 片段正文
	Content string `json:"content"`
	// Metadata 片段元数据, 可携带 "location" 等定位信息
	Metadata map[string]interface{} `json:"metadata,omitempty"`
	// Score 检索相似度得分
	Score float64 `json:"score,omitempty"`
}

// Location 返回元数据中声明的章节定位, 未声明时为空
func (rc *RankedContext) Location() string {
	if rc.Metadata == nil {
		return ""
	}
	loc, _ := rc.Metadata["location"].(string)
	return loc
}

// TestCase 单条评测用例
type TestCase struct {
	// Question 用户问题
	Question string `json:"question"`
	// Answer 系统生成的答案
	Answer string `json:"answer"`
	// AnswerLocation 答案声明的章节定位(可选,为空时从 Answer 提取)
	AnswerLocation string `json:"answer_location,omitempty"`
	// Reference 标准答案的章节定位(金标准)
	Reference string `json:"reference"`
	// Category 题目类别(用于分类统计)
	Category string `json:"type,omitempty"`
	// Theme 题目主题
	Theme string `json:"theme,omitempty"`
	// RetrievedContext 提供给裁判的检索上下文全文
	RetrievedContext string `json:"retrieved_context,omitempty"`
	// RankedContexts 带排序的检索片段(用于 recall@K)
	RankedContexts []RankedContext `json:"ranked_contexts,omitempty"`
	// RetrievalTime 检索耗时(秒)
	RetrievalTime float64 `json:"retrieval_time,omitempty"`
	// GenerationTime 生成耗时(秒)
	GenerationTime float64 `json:"generation_time,omitempty"`
}

// JudgeScore 裁判在单一指标上的评分。
// Score 为 nil 表示该指标评分失败或不适用，Evidence 记录裁判依据或失败原因。
type JudgeScore struct {
	Score    *float64 `json:"score"`
	Evidence string   `json:"evidence,omitempty"`
}

// ItemResult 单条用例的评测结果
type ItemResult struct {
	// Index 用例在输入数据集中的序号(从 0 开始)
	Index int `json:"index"`

	// 用例原始字段透传
	Question  string `json:"question"`
	Answer    string `json:"answer"`
	Reference string `json:"reference"`
	Category  string `json:"type,omitempty"`
	Theme     string `json:"theme,omitempty"`

	// AnswerChapter 从答案(或其声明定位)提取的规范化章节
	AnswerChapter string `json:"answer_chapter,omitempty"`
	// ReferenceChapter 从金标准提取的规范化章节
	ReferenceChapter string `json:"reference_chapter,omitempty"`

	// Structural 结构匹配得分(0 或 1); 纯裁判模式下为 nil
	Structural *float64 `json:"structural_score,omitempty"`
	// JudgeScores 裁判各指标评分; 纯结构模式下为 nil
	JudgeScores map[string]JudgeScore `json:"judge_scores,omitempty"`
	// JudgeCore 裁判核心分(核心指标均值); 无可用核心指标时为 nil
	JudgeCore *float64 `json:"judge_core,omitempty"`
	// Hybrid 融合分; 仅 hybrid 模式下有值
	Hybrid *float64 `json:"hybrid_score,omitempty"`
	// Matched 是否判定为"正确"
	Matched bool `json:"matched"`

	// RecallAt3/5/10 章节召回率(0 或 1); 评测失败的条目为 nil
	RecallAt3  *float64 `json:"recall_at_3,omitempty"`
	RecallAt5  *float64 `json:"recall_at_5,omitempty"`
	RecallAt10 *float64 `json:"recall_at_10,omitempty"`

	// RetrievalTime/GenerationTime 从用例透传的耗时(秒)
	RetrievalTime  float64 `json:"retrieval_time,omitempty"`
	GenerationTime float64 `json:"generation_time,omitempty"`

	// Error 非空表示该条评测失败，其余评分字段不可用
	Error string `json:"error,omitempty"`
}

// Score 返回该条结果的主评分。
// hybrid 模式返回融合分，judge 模式返回核心分，structural 模式返回结构分。
func (r *ItemResult) Score(mode Mode) *float64 {
	switch mode {
	case ModeHybrid:
		return r.Hybrid
	case ModeJudge:
		return r.JudgeCore
	default:
		return r.Structural
	}
}

// TimingStats 耗时分布统计(秒)
type TimingStats struct {
	Mean float64 `json:"mean"`
	P50  float64 `json:"p50"`
	P95  float64 `json:"p95"`
}

// CategoryStat 单个类别的统计
type CategoryStat struct {
	// Category 类别名
	Category string `json:"category"`
	// Count 该类别下的用例数
	Count int `json:"count"`
	// Correct 判定正确的用例数
	Correct int `json:"correct"`
	// Accuracy 正确率
	Accuracy float64 `json:"accuracy"`
	// MeanScore 主评分均值; 类别内无可用评分时为 nil
	MeanScore *float64 `json:"mean_score,omitempty"`
}

// Suggestion 基于汇总结果给出的改进建议
type Suggestion struct {
	// Category 建议针对的题目类别, 全局建议为空
	Category string `json:"category,omitempty"`
	// Metric 触发建议的指标名
	Metric string `json:"metric"`
	// CurrentValue 该指标的当前值
	CurrentValue float64 `json:"current_value"`
	// Message 建议内容
	Message string `json:"suggestion"`
}

// Summary 一次评测的汇总统计
type Summary struct {
	// Mode 评测模式
	Mode Mode `json:"mode"`
	// TotalQuestions 输入用例总数
	TotalQuestions int `json:"total_questions"`
	// CorrectCount 判定正确的用例数
	CorrectCount int `json:"correct_count"`
	// ErrorCount 单条评测失败的用例数
	ErrorCount int `json:"error_count"`
	// Accuracy 正确率(正确数/总数)
	Accuracy float64 `json:"accuracy"`

	// MetricMeans 各裁判指标的均值(仅统计成功评分的条目)
	MetricMeans map[string]float64 `json:"metric_means,omitempty"`
	// MetricCounts 各裁判指标的有效样本数
	MetricCounts map[string]int `json:"metric_counts,omitempty"`

	// RecallMeans 各截断位置的平均召回率, 键为 "recall@K"
	RecallMeans map[string]float64 `json:"recall_means,omitempty"`

	// RetrievalTime/GenerationTime 耗时分布; 无耗时数据时为 nil
	RetrievalTime  *TimingStats `json:"retrieval_time,omitempty"`
	GenerationTime *TimingStats `json:"generation_time,omitempty"`

	// Categories 按类别的统计, 按类别名排序
	Categories []CategoryStat `json:"categories,omitempty"`
	// Generalization 跨类别泛化指数 [0,1]; 类别不足两个时为 nil
	Generalization *float64 `json:"generalization,omitempty"`

	// Suggestions 改进建议
	Suggestions []Suggestion `json:"suggestions,omitempty"`
}

// RunState 评测运行状态
type RunState string

const (
	StateIdle        RunState = "idle"
	StateLoading     RunState = "loading"
	StateScoring     RunState = "scoring"
	StateAggregating RunState = "aggregating"
	StateDone        RunState = "done"
	StateFailed      RunState = "failed"
)

// EvaluationRun 一次完整的评测运行
type EvaluationRun struct {
	// ID 运行唯一标识
	ID string `json:"id"`
	// Mode 评测模式
	Mode Mode `json:"mode"`
	// Concurrency 并发度
	Concurrency int `json:"concurrency"`
	// State 运行状态
	State RunState `json:"state"`
	// StartedAt/FinishedAt 起止时间
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
	// Results 逐条结果, 与输入数据集同序
	Results []ItemResult `json:"results"`
	// Summary 汇总统计
	Summary *Summary `json:"summary,omitempty"`
	// Error 运行级失败原因(仅 State 为 failed 时非空)
	Error string `json:"error,omitempty"`
}
