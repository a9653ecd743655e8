package provider

import (
	"context"

	"github.com/wordflowlab/rageval/pkg/types"
)

// TokenUsage Token使用统计
type TokenUsage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
	TotalTokens  int64 `json:"total_tokens,omitempty"`
}

// CompleteOptions 非流式请求选项
type CompleteOptions struct {
	// MaxTokens 最大生成 token 数
	MaxTokens int

	// Temperature 温度（评分场景建议 0，更确定性）
	Temperature float64

	// System 系统提示词，作为首条消息注入
	System string
}

// CompleteResponse 完整响应
type CompleteResponse struct {
	Message types.Message
	Usage   *TokenUsage
}

// Provider 模型提供商接口。
// 评测裁判只需要阻塞式的完整响应，不使用流式输出。
type Provider interface {
	// Complete 非流式对话(阻塞式,返回完整响应)
	Complete(ctx context.Context, messages []types.Message, opts *CompleteOptions) (*CompleteResponse, error)

	// Config 返回配置
	Config() *types.ModelConfig

	// Close 关闭连接
	Close() error
}
