package store

import (
	"context"

	"github.com/wordflowlab/rageval/pkg/evals"
)

// Store 评测运行的持久化存储接口
type Store interface {
	// SaveRun 持久化一次完整的评测运行
	SaveRun(ctx context.Context, run *evals.EvaluationRun) error

	// LoadRun 加载指定运行
	LoadRun(ctx context.Context, runID string) (*evals.EvaluationRun, error)

	// LoadSummary 只加载指定运行的汇总
	LoadSummary(ctx context.Context, runID string) (*evals.Summary, error)

	// ListRuns 列出所有运行 ID
	ListRuns(ctx context.Context) ([]string, error)

	// DeleteRun 删除指定运行的所有数据
	DeleteRun(ctx context.Context, runID string) error

	// FindDatasets 按 glob 模式查找数据集文件
	FindDatasets(ctx context.Context, pattern string) ([]string, error)
}

var (
	// ErrNotFound 资源未找到错误
	ErrNotFound = &StoreError{Code: "not_found", Message: "resource not found"}
)

// StoreError Store 错误类型
type StoreError struct {
	Code    string
	Message string
	Err     error
}

func (e *StoreError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
