package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/wordflowlab/rageval/pkg/appconfig"
	"github.com/wordflowlab/rageval/pkg/evals"
	"github.com/wordflowlab/rageval/pkg/logging"
	"github.com/wordflowlab/rageval/pkg/provider"
	"github.com/wordflowlab/rageval/pkg/store"
)

// runEval 执行一次评测: 加载数据集 -> 评分 -> 写出结果
func runEval(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	dataset := fs.String("dataset", "", "Dataset file or glob pattern (csv/json)")
	configPath := fs.String("config", "", "Optional YAML config file")
	mode := fs.String("mode", "", "Evaluation mode: structural, judge, hybrid")
	profile := fs.String("profile", "", "Judge profile name from config")
	concurrency := fs.Int("concurrency", 0, "Concurrent judge calls (0 = default)")
	outputDir := fs.String("output", "", "Output directory for run results")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	// 命令行参数覆盖配置文件
	if *mode != "" {
		cfg.Evaluation.Mode = *mode
	}
	if *dataset != "" {
		cfg.Evaluation.Dataset = *dataset
	}
	if *concurrency > 0 {
		cfg.Evaluation.Concurrency = *concurrency
	}
	if *outputDir != "" {
		cfg.Evaluation.OutputDir = *outputDir
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Evaluation.Dataset == "" {
		return fmt.Errorf("dataset is required (use -dataset or config file)")
	}

	logger, err := buildLogger(cfg)
	if err != nil {
		return err
	}

	ctx := context.Background()
	defer logger.Flush(ctx)

	fileStore, err := store.NewFileStore(cfg.Evaluation.OutputDir)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}

	datasets, err := fileStore.FindDatasets(ctx, cfg.Evaluation.Dataset)
	if err != nil {
		return err
	}
	if len(datasets) == 0 {
		return fmt.Errorf("no datasets match %q", cfg.Evaluation.Dataset)
	}

	runner, err := buildRunner(cfg, *profile, logger)
	if err != nil {
		return err
	}

	for _, path := range datasets {
		if err := evaluateFile(ctx, runner, fileStore, path); err != nil {
			return fmt.Errorf("evaluate %s: %w", path, err)
		}
	}
	return nil
}

// loadConfig 加载配置文件, 未指定时使用默认配置
func loadConfig(path string) (*appconfig.Config, error) {
	if path == "" {
		return appconfig.Default(), nil
	}
	cfg, err := appconfig.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// buildLogger 按配置构建日志器
func buildLogger(cfg *appconfig.Config) (*logging.Logger, error) {
	level := logging.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = logging.LevelDebug
	case "warn":
		level = logging.LevelWarn
	case "error":
		level = logging.LevelError
	}

	transports := []logging.Transport{logging.NewStdoutTransport()}
	if cfg.Logging.File != "" {
		ft, err := logging.NewFileTransport(cfg.Logging.File)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		transports = append(transports, ft)
	}
	return logging.NewLogger(level, transports...), nil
}

// buildRunner 按配置组装评测编排器
func buildRunner(cfg *appconfig.Config, profile string, logger *logging.Logger) (*evals.Runner, error) {
	var judge evals.Judge

	if cfg.Mode() != evals.ModeStructural {
		mc, err := cfg.JudgeModelConfig(profile)
		if err != nil {
			return nil, err
		}
		p, err := provider.New(mc)
		if err != nil {
			return nil, fmt.Errorf("init judge provider: %w", err)
		}
		judge = evals.NewLLMJudge(p, nil)
	}

	progress := func(completed, total int, status map[string]interface{}) error {
		fmt.Fprintf(os.Stderr, "\r[%d/%d] evaluated", completed, total)
		if completed == total {
			fmt.Fprintln(os.Stderr)
		}
		return nil
	}

	return evals.NewRunner(cfg.Mode(), judge, &evals.RunnerOptions{
		Concurrency: cfg.Evaluation.Concurrency,
		Progress:    progress,
		Logger:      logger,
	})
}

// evaluateFile 评测单个数据集文件并持久化运行结果
func evaluateFile(ctx context.Context, runner *evals.Runner, fileStore *store.FileStore, path string) error {
	cases, err := evals.LoadDataset(path)
	if err != nil {
		return err
	}

	log.Printf("evaluating %s (%d cases)", path, len(cases))

	run, err := runner.Run(ctx, cases)
	if err != nil {
		return err
	}
	if err := fileStore.SaveRun(ctx, run); err != nil {
		return fmt.Errorf("save run: %w", err)
	}

	printSummary(run)
	return nil
}

// printSummary 把汇总统计打到 stdout
func printSummary(run *evals.EvaluationRun) {
	s := run.Summary
	fmt.Printf("\nrun %s (%s mode)\n", run.ID, run.Mode)
	fmt.Printf("  total:    %d\n", s.TotalQuestions)
	fmt.Printf("  correct:  %d (%.1f%%)\n", s.CorrectCount, s.Accuracy*100)
	fmt.Printf("  errors:   %d\n", s.ErrorCount)

	for metric, mean := range s.MetricMeans {
		fmt.Printf("  %s: %.3f (n=%d)\n", metric, mean, s.MetricCounts[metric])
	}
	for _, k := range []string{"recall@3", "recall@5", "recall@10"} {
		if v, ok := s.RecallMeans[k]; ok {
			fmt.Printf("  %s: %.3f\n", k, v)
		}
	}
	if s.Generalization != nil {
		fmt.Printf("  generalization: %.3f\n", *s.Generalization)
	}
	for _, sg := range s.Suggestions {
		fmt.Printf("  suggestion: %s\n", sg.Message)
	}
}
