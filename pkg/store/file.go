package store

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/wordflowlab/rageval/pkg/evals"
)

// FileStore 文件系统存储实现。
// 每次运行占一个目录: run.json 为完整运行记录,
// results.csv 为逐条结果表, summary.json 为汇总统计。
type FileStore struct {
	baseDir string
	mu      sync.RWMutex
}

// sanitizeRunIDForPath 将运行 ID 转换为适合作为目录名的字符串。
// 主要目的是避免在 Windows 等平台上出现 ":"、"\" 等保留字符导致的路径错误。
func sanitizeRunIDForPath(runID string) string {
	replacer := strings.NewReplacer(
		":", "_",
		"/", "_",
		"\\", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
	)
	return replacer.Replace(runID)
}

// NewFileStore 创建文件存储
func NewFileStore(baseDir string) (*FileStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("create base directory: %w", err)
	}

	return &FileStore{baseDir: baseDir}, nil
}

// runDir 获取运行的存储目录
func (fs *FileStore) runDir(runID string) string {
	return filepath.Join(fs.baseDir, sanitizeRunIDForPath(runID))
}

// saveJSON 保存 JSON 文件
func (fs *FileStore) saveJSON(path string, data interface{}) error {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}

	if err := os.WriteFile(path, jsonData, 0644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

// loadJSON 加载 JSON 文件, 文件不存在时返回 ErrNotFound
func (fs *FileStore) loadJSON(path string, dest interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("read file: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("unmarshal json: %w", err)
	}
	return nil
}

// SaveRun 持久化一次完整的评测运行
func (fs *FileStore) SaveRun(ctx context.Context, run *evals.EvaluationRun) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	dir := fs.runDir(run.ID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create run directory: %w", err)
	}

	if err := fs.saveJSON(filepath.Join(dir, "run.json"), run); err != nil {
		return err
	}
	if run.Summary != nil {
		if err := fs.saveJSON(filepath.Join(dir, "summary.json"), run.Summary); err != nil {
			return err
		}
	}
	return fs.saveResultsCSV(filepath.Join(dir, "results.csv"), run.Results)
}

// saveResultsCSV 将逐条结果写成 CSV 表
func (fs *FileStore) saveResultsCSV(path string, results []evals.ItemResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create results csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{
		"index", "question", "answer", "reference", "type", "theme",
		"answer_chapter", "reference_chapter",
		"structural_score", "judge_core", "hybrid_score", "matched",
		"recall_at_3", "recall_at_5", "recall_at_10",
		"retrieval_time", "generation_time", "error",
	}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	formatScore := func(v *float64) string {
		if v == nil {
			return ""
		}
		return strconv.FormatFloat(*v, 'f', 4, 64)
	}
	formatTime := func(v float64) string {
		if v == 0 {
			return ""
		}
		return strconv.FormatFloat(v, 'f', 3, 64)
	}

	for i := range results {
		r := &results[i]
		row := []string{
			strconv.Itoa(r.Index),
			r.Question,
			r.Answer,
			r.Reference,
			r.Category,
			r.Theme,
			r.AnswerChapter,
			r.ReferenceChapter,
			formatScore(r.Structural),
			formatScore(r.JudgeCore),
			formatScore(r.Hybrid),
			strconv.FormatBool(r.Matched),
			formatScore(r.RecallAt3),
			formatScore(r.RecallAt5),
			formatScore(r.RecallAt10),
			formatTime(r.RetrievalTime),
			formatTime(r.GenerationTime),
			r.Error,
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write csv row %d: %w", i, err)
		}
	}

	w.Flush()
	return w.Error()
}

// LoadRun 加载指定运行
func (fs *FileStore) LoadRun(ctx context.Context, runID string) (*evals.EvaluationRun, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	var run evals.EvaluationRun
	if err := fs.loadJSON(filepath.Join(fs.runDir(runID), "run.json"), &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// LoadSummary 只加载指定运行的汇总
func (fs *FileStore) LoadSummary(ctx context.Context, runID string) (*evals.Summary, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	var summary evals.Summary
	if err := fs.loadJSON(filepath.Join(fs.runDir(runID), "summary.json"), &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

// ListRuns 列出所有运行 ID
func (fs *FileStore) ListRuns(ctx context.Context) ([]string, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	entries, err := os.ReadDir(fs.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("read base directory: %w", err)
	}

	runs := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		// 只保留确实包含运行记录的目录
		if _, err := os.Stat(filepath.Join(fs.baseDir, entry.Name(), "run.json")); err != nil {
			continue
		}
		runs = append(runs, entry.Name())
	}
	return runs, nil
}

// DeleteRun 删除指定运行的所有数据
func (fs *FileStore) DeleteRun(ctx context.Context, runID string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	dir := fs.runDir(runID)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return ErrNotFound
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove run directory: %w", err)
	}
	return nil
}

// FindDatasets 按 glob 模式查找数据集文件, 支持 ** 递归匹配。
// 返回结果按路径排序。
func (fs *FileStore) FindDatasets(ctx context.Context, pattern string) ([]string, error) {
	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, fmt.Errorf("glob datasets: %w", err)
	}

	datasets := make([]string, 0, len(matches))
	for _, m := range matches {
		switch strings.ToLower(filepath.Ext(m)) {
		case ".csv", ".json":
			datasets = append(datasets, m)
		}
	}
	return datasets, nil
}
