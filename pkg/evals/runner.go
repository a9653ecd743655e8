package evals

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/wordflowlab/rageval/pkg/chapter"
	"github.com/wordflowlab/rageval/pkg/logging"
	"github.com/wordflowlab/rageval/pkg/telemetry"
)

// DefaultConcurrency 默认并发评测数
const DefaultConcurrency = 4

// ErrEmptyDataset 数据集为空
var ErrEmptyDataset = errors.New("evals: dataset is empty")

// ProgressFunc 进度回调。completed 为已完成条数, total 为总条数,
// status 携带最近完成条目的摘要。回调返回的错误会被记录但不会中断评测。
type ProgressFunc func(completed, total int, status map[string]interface{}) error

// RunnerOptions Runner 的可选配置
type RunnerOptions struct {
	// Concurrency 并发度, <=0 时取 DefaultConcurrency
	Concurrency int
	// Progress 进度回调, 可为 nil
	Progress ProgressFunc
	// Logger 日志器, nil 时使用 logging.Default
	Logger *logging.Logger
	// Metrics 指标收集器, nil 时使用内存实现
	Metrics telemetry.Metrics
}

// Runner 并发评测编排器。
// 状态机: idle -> loading -> scoring -> aggregating -> done,
// 仅当输入为空时进入 failed。
type Runner struct {
	mode        Mode
	judge       Judge
	concurrency int
	progress    ProgressFunc
	logger      *logging.Logger
	metrics     telemetry.Metrics
}

// NewRunner 创建评测编排器
func NewRunner(mode Mode, judge Judge, opts *RunnerOptions) (*Runner, error) {
	if !mode.Valid() {
		return nil, fmt.Errorf("evals: invalid mode %q", mode)
	}
	if mode != ModeStructural && judge == nil {
		return nil, fmt.Errorf("evals: mode %q requires a judge", mode)
	}

	r := &Runner{
		mode:        mode,
		judge:       judge,
		concurrency: DefaultConcurrency,
		logger:      logging.Default,
		metrics:     telemetry.NewSimpleMetrics(),
	}
	if opts != nil {
		if opts.Concurrency > 0 {
			r.concurrency = opts.Concurrency
		}
		if opts.Progress != nil {
			r.progress = opts.Progress
		}
		if opts.Logger != nil {
			r.logger = opts.Logger
		}
		if opts.Metrics != nil {
			r.metrics = opts.Metrics
		}
	}
	return r, nil
}

// Run 对数据集执行一次完整评测。
// 结果顺序与输入一致; 单条失败记录在 ItemResult.Error 中, 不中断批次。
func (r *Runner) Run(ctx context.Context, cases []TestCase) (*EvaluationRun, error) {
	run := &EvaluationRun{
		ID:          uuid.New().String(),
		Mode:        r.mode,
		Concurrency: r.concurrency,
		State:       StateIdle,
		StartedAt:   time.Now(),
	}

	run.State = StateLoading
	if len(cases) == 0 {
		run.State = StateFailed
		run.Error = ErrEmptyDataset.Error()
		run.FinishedAt = time.Now()
		return run, ErrEmptyDataset
	}

	r.logger.Info(ctx, "evaluation started", map[string]interface{}{
		"run_id":      run.ID,
		"mode":        string(r.mode),
		"total":       len(cases),
		"concurrency": r.concurrency,
	})

	// 章节缓存与运行同生命周期
	scorer := NewScorer(r.mode, r.judge, chapter.NewCache())

	run.State = StateScoring
	results := make([]ItemResult, len(cases))

	var mu sync.Mutex
	completed := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for i := range cases {
		idx := i
		g.Go(func() error {
			result := r.scoreWithRecover(gctx, scorer, idx, &cases[idx])
			results[idx] = result

			r.recordItemMetrics(&result)

			mu.Lock()
			completed++
			done := completed
			mu.Unlock()

			r.reportProgress(gctx, done, len(cases), &result)
			return nil
		})
	}

	// 工作函数不返回错误, Wait 仅用于同步
	_ = g.Wait()

	run.State = StateAggregating
	run.Results = results
	run.Summary = BuildSummary(r.mode, results)

	run.State = StateDone
	run.FinishedAt = time.Now()

	r.metrics.RecordHistogram("eval.run.duration_seconds",
		run.FinishedAt.Sub(run.StartedAt).Seconds(), map[string]string{"mode": string(r.mode)})

	r.logger.Info(ctx, "evaluation finished", map[string]interface{}{
		"run_id":   run.ID,
		"total":    run.Summary.TotalQuestions,
		"correct":  run.Summary.CorrectCount,
		"errors":   run.Summary.ErrorCount,
		"accuracy": run.Summary.Accuracy,
	})

	return run, nil
}

// scoreWithRecover 评测单条用例, panic 转为条目级错误
func (r *Runner) scoreWithRecover(ctx context.Context, scorer *Scorer, idx int, tc *TestCase) (result ItemResult) {
	defer func() {
		if rec := recover(); rec != nil {
			result = ItemResult{
				Index:     idx,
				Question:  tc.Question,
				Answer:    tc.Answer,
				Reference: tc.Reference,
				Category:  tc.Category,
				Theme:     tc.Theme,
				Error:     fmt.Sprintf("panic: %v", rec),
			}
			r.logger.Error(ctx, "case scoring panicked", map[string]interface{}{
				"index": idx,
				"panic": fmt.Sprintf("%v", rec),
			})
		}
	}()

	return scorer.ScoreItem(ctx, idx, tc)
}

// recordItemMetrics 上报单条结果的指标
func (r *Runner) recordItemMetrics(result *ItemResult) {
	labels := map[string]string{"mode": string(r.mode)}

	r.metrics.IncrementCounter("eval.cases.total", 1, labels)
	if result.Error != "" {
		r.metrics.IncrementCounter("eval.cases.errors", 1, labels)
		return
	}
	if result.Matched {
		r.metrics.IncrementCounter("eval.cases.matched", 1, labels)
	}
	if score := result.Score(r.mode); score != nil {
		r.metrics.RecordHistogram("eval.case.score", *score, labels)
	}
}

// reportProgress 调用进度回调。回调错误仅记录日志, 不影响评测。
func (r *Runner) reportProgress(ctx context.Context, completed, total int, result *ItemResult) {
	if r.progress == nil {
		return
	}

	status := map[string]interface{}{
		"index":   result.Index,
		"matched": result.Matched,
	}
	if result.Error != "" {
		status["error"] = result.Error
	}

	if err := r.progress(completed, total, status); err != nil {
		r.logger.Warn(ctx, "progress callback failed", map[string]interface{}{
			"completed": completed,
			"total":     total,
			"error":     err.Error(),
		})
	}
}
