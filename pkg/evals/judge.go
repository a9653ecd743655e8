package evals

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/wordflowlab/rageval/pkg/provider"
	"github.com/wordflowlab/rageval/pkg/telemetry"
	"github.com/wordflowlab/rageval/pkg/types"
)

// Judge LLM 裁判接口。
// 返回各指标的评分; 所有指标均失败时返回错误。
type Judge interface {
	Evaluate(ctx context.Context, tc *TestCase) (map[string]JudgeScore, error)
}

// judgeSystemPrompt 裁判的系统提示词
const judgeSystemPrompt = `你是一个严格的检索问答评测专家。你会收到问题、系统答案、标准答案和检索上下文，请按要求对单一维度打分。
评分必须是 0 到 1 之间的小数，只输出 JSON，格式为 {"score": 0.x, "reason": "简短依据"}。不要输出其他内容。`

// metricPrompts 各指标的评分指令
var metricPrompts = map[string]string{
	MetricFactualCorrectness: "评估【系统答案】与【标准答案】在事实层面的一致程度。事实完全一致得 1 分，完全矛盾得 0 分。",
	MetricFaithfulness:       "评估【系统答案】是否忠实于【检索上下文】，即答案中的每个论断都能在上下文中找到依据。全部有依据得 1 分，全部凭空编造得 0 分。",
	MetricAnswerRelevancy:    "评估【系统答案】与【问题】的相关程度。完全切题得 1 分，答非所问得 0 分。",
	MetricContextRelevancy:   "评估【检索上下文】与【问题】的相关程度。上下文全部有助于回答问题得 1 分，完全无关得 0 分。",
}

// contextMetrics 依赖检索上下文的指标; 上下文为空时跳过
var contextMetrics = map[string]bool{
	MetricFaithfulness:     true,
	MetricContextRelevancy: true,
}

// LLMJudge 基于 LLM 的裁判实现。
// 每个指标独立发起一次评分请求，单指标失败不影响其他指标。
type LLMJudge struct {
	provider  provider.Provider
	metrics   []string
	maxTokens int
	telemetry *telemetry.JudgeMetrics
}

// NewLLMJudge 创建 LLM 裁判。metrics 为空时评估全部指标。
func NewLLMJudge(p provider.Provider, metrics []string) *LLMJudge {
	if len(metrics) == 0 {
		metrics = AllMetrics
	}
	return &LLMJudge{
		provider:  p,
		metrics:   metrics,
		maxTokens: 500,
		telemetry: telemetry.NewJudgeMetrics(telemetry.GetGlobalMetrics()),
	}
}

// Evaluate 对单条用例逐指标评分。
// 单指标失败时该指标 Score 为 nil 并在 Evidence 中记录原因;
// 所有指标都失败时整体返回错误。
func (j *LLMJudge) Evaluate(ctx context.Context, tc *TestCase) (map[string]JudgeScore, error) {
	scores := make(map[string]JudgeScore, len(j.metrics))
	failures := 0
	attempted := 0

	for _, metric := range j.metrics {
		// 没有上下文时跳过依赖上下文的指标
		if contextMetrics[metric] && strings.TrimSpace(tc.RetrievedContext) == "" {
			continue
		}
		attempted++

		score, evidence, err := j.evaluateMetric(ctx, metric, tc)
		if err != nil {
			failures++
			scores[metric] = JudgeScore{Score: nil, Evidence: fmt.Sprintf("评分失败: %v", err)}
			continue
		}
		scores[metric] = JudgeScore{Score: &score, Evidence: evidence}
	}

	if attempted > 0 && failures == attempted {
		return scores, fmt.Errorf("judge: all %d metrics failed", attempted)
	}
	return scores, nil
}

// evaluateMetric 对单一指标发起评分请求并解析结果
func (j *LLMJudge) evaluateMetric(ctx context.Context, metric string, tc *TestCase) (float64, string, error) {
	prompt := j.buildPrompt(metric, tc)
	providerName := j.provider.Config().Provider

	start := time.Now()
	resp, err := j.provider.Complete(ctx, []types.Message{
		{Role: types.RoleUser, Content: prompt},
	}, &provider.CompleteOptions{
		MaxTokens: j.maxTokens,
		System:    judgeSystemPrompt,
	})
	j.telemetry.RecordCall(providerName, metric, time.Since(start), err == nil)
	if err != nil {
		return 0, "", fmt.Errorf("%s: %w", metric, err)
	}
	if resp.Usage != nil {
		j.telemetry.RecordTokens(providerName, resp.Usage.InputTokens, resp.Usage.OutputTokens)
	}

	score, reason, err := parseScoreResponse(resp.Message.Content)
	if err != nil {
		return 0, "", fmt.Errorf("%s: %w", metric, err)
	}
	return score, reason, nil
}

// buildPrompt 构建单指标的评分 prompt
func (j *LLMJudge) buildPrompt(metric string, tc *TestCase) string {
	var b strings.Builder
	b.WriteString("评分维度: ")
	b.WriteString(metric)
	b.WriteString("\n")
	b.WriteString(metricPrompts[metric])
	b.WriteString("\n\n【问题】\n")
	b.WriteString(tc.Question)
	b.WriteString("\n\n【系统答案】\n")
	b.WriteString(tc.Answer)

	if tc.Reference != "" {
		b.WriteString("\n\n【标准答案】\n")
		b.WriteString(tc.Reference)
	}
	if tc.RetrievedContext != "" {
		b.WriteString("\n\n【检索上下文】\n")
		b.WriteString(tc.RetrievedContext)
	}
	return b.String()
}

var (
	// jsonBlockRe 提取响应中的第一个 JSON 对象
	jsonBlockRe = regexp.MustCompile(`\{[^{}]*\}`)
	// scoreLineRe 匹配 "score: 0.8" 形式的文本
	scoreLineRe = regexp.MustCompile(`(?i)score["'\s:：]+([01](?:\.\d+)?)`)
	// bareNumberRe 匹配裸数字响应
	bareNumberRe = regexp.MustCompile(`\b([01](?:\.\d+)?)\b`)
)

// parseScoreResponse 三段式解析裁判响应:
// 优先解析 JSON; 失败则匹配 "score: N" 文本; 最后尝试提取裸数字。
func parseScoreResponse(content string) (float64, string, error) {
	content = strings.TrimSpace(content)

	// 1. JSON 解析
	if block := jsonBlockRe.FindString(content); block != "" {
		var parsed struct {
			Score  *float64 `json:"score"`
			Reason string   `json:"reason"`
		}
		if err := json.Unmarshal([]byte(block), &parsed); err == nil && parsed.Score != nil {
			return clampScore(*parsed.Score), parsed.Reason, nil
		}
	}

	// 2. "score: N" 文本
	if m := scoreLineRe.FindStringSubmatch(content); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			return clampScore(v), content, nil
		}
	}

	// 3. 裸数字
	if m := bareNumberRe.FindStringSubmatch(content); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			return clampScore(v), content, nil
		}
	}

	return 0, "", fmt.Errorf("unparseable judge response: %q", truncate(content, 120))
}

// clampScore 将评分限制在 [0, 1]
func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
