package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/wordflowlab/rageval/pkg/retry"
	"github.com/wordflowlab/rageval/pkg/types"
)

// OpenAICompatibleProvider OpenAI 兼容格式的通用 Provider
// 适用于 OpenAI, DeepSeek, Moonshot, GLM, OpenRouter, Ollama 等
type OpenAICompatibleProvider struct {
	config       *types.ModelConfig
	baseURL      string
	providerName string
	httpClient   *http.Client

	options OpenAICompatibleOptions
}

// OpenAICompatibleOptions OpenAI 兼容 Provider 的可选配置
type OpenAICompatibleOptions struct {
	// 是否需要 API Key
	RequireAPIKey bool

	// 默认模型名称
	DefaultModel string

	// 超时配置
	Timeout time.Duration

	// 重试配置
	MaxRetries int
	RetryDelay time.Duration

	// 自定义请求头
	CustomHeaders map[string]string
}

// apiError 上游 API 的非 200 响应
type apiError struct {
	provider string
	status   int
	body     string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("%s API error: %d - %s", e.provider, e.status, e.body)
}

// retryable 429 与 5xx 可重试
func (e *apiError) retryable() bool {
	return e.status == http.StatusTooManyRequests || e.status >= 500
}

// IsRetryableError 判断 Provider 错误是否可重试（429/5xx/网络错误）
func IsRetryableError(err error) bool {
	var ae *apiError
	if errors.As(err, &ae) {
		return ae.retryable()
	}
	// 非 API 错误视为网络层错误，可重试
	return true
}

// NewOpenAICompatibleProvider 创建 OpenAI 兼容 Provider
func NewOpenAICompatibleProvider(
	config *types.ModelConfig,
	baseURL string,
	providerName string,
	options *OpenAICompatibleOptions,
) (*OpenAICompatibleProvider, error) {
	// 设置默认选项
	if options == nil {
		options = &OpenAICompatibleOptions{RequireAPIKey: true}
	}
	if options.Timeout <= 0 {
		options.Timeout = 120 * time.Second
	}
	if options.MaxRetries <= 0 {
		options.MaxRetries = 3
	}
	if options.RetryDelay <= 0 {
		options.RetryDelay = 1 * time.Second
	}

	// 验证 API Key
	if options.RequireAPIKey && config.APIKey == "" {
		return nil, fmt.Errorf("%s: API key is required", providerName)
	}

	// 设置默认模型
	if config.Model == "" && options.DefaultModel != "" {
		config.Model = options.DefaultModel
	}

	return &OpenAICompatibleProvider{
		config:       config,
		baseURL:      baseURL,
		providerName: providerName,
		httpClient:   &http.Client{Timeout: options.Timeout},
		options:      *options,
	}, nil
}

// Complete 实现非流式对话
func (p *OpenAICompatibleProvider) Complete(
	ctx context.Context,
	messages []types.Message,
	opts *CompleteOptions,
) (*CompleteResponse, error) {
	requestBody := p.buildRequest(messages, opts)

	bodyBytes, err := json.Marshal(requestBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	// 发送请求（带重试）
	var raw []byte
	err = retry.Do(ctx, retry.Config{
		MaxAttempts: p.options.MaxRetries,
		BaseDelay:   p.options.RetryDelay,
		IsRetryable: IsRetryableError,
	}, func(ctx context.Context) error {
		req, err := p.createHTTPRequest(ctx, bodyBytes)
		if err != nil {
			return err
		}

		resp, err := p.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}

		if resp.StatusCode != http.StatusOK {
			return &apiError{provider: p.providerName, status: resp.StatusCode, body: string(data)}
		}

		raw = data
		return nil
	})
	if err != nil {
		return nil, err
	}

	// 解析响应
	var apiResp map[string]interface{}
	if err := json.Unmarshal(raw, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	message, err := p.parseCompleteResponse(apiResp)
	if err != nil {
		return nil, err
	}

	return &CompleteResponse{
		Message: message,
		Usage:   p.parseUsage(apiResp),
	}, nil
}

// buildRequest 构建请求体
func (p *OpenAICompatibleProvider) buildRequest(messages []types.Message, opts *CompleteOptions) map[string]interface{} {
	msgs := make([]map[string]interface{}, 0, len(messages)+1)

	// system 作为第一条消息
	if opts != nil && opts.System != "" {
		msgs = append(msgs, map[string]interface{}{
			"role":    "system",
			"content": opts.System,
		})
	}

	for _, m := range messages {
		msgs = append(msgs, map[string]interface{}{
			"role":    string(m.Role),
			"content": m.Content,
		})
	}

	requestBody := map[string]interface{}{
		"model":    p.config.Model,
		"stream":   false,
		"messages": msgs,
	}

	if opts != nil {
		if opts.MaxTokens > 0 {
			requestBody["max_tokens"] = opts.MaxTokens
		}
		if opts.Temperature > 0 {
			requestBody["temperature"] = opts.Temperature
		}
	}

	return requestBody
}

// createHTTPRequest 创建 HTTP 请求
func (p *OpenAICompatibleProvider) createHTTPRequest(ctx context.Context, body []byte) (*http.Request, error) {
	url := p.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	if p.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.config.APIKey)
	}
	for key, value := range p.options.CustomHeaders {
		req.Header.Set(key, value)
	}

	return req, nil
}

// parseCompleteResponse 解析完整响应中的消息
func (p *OpenAICompatibleProvider) parseCompleteResponse(apiResp map[string]interface{}) (types.Message, error) {
	choices, ok := apiResp["choices"].([]interface{})
	if !ok || len(choices) == 0 {
		return types.Message{}, fmt.Errorf("%s: response has no choices", p.providerName)
	}

	choice, ok := choices[0].(map[string]interface{})
	if !ok {
		return types.Message{}, fmt.Errorf("%s: invalid choice format", p.providerName)
	}

	messageData, ok := choice["message"].(map[string]interface{})
	if !ok {
		return types.Message{}, fmt.Errorf("%s: choice has no message", p.providerName)
	}

	content, _ := messageData["content"].(string)

	return types.Message{
		Role:    types.RoleAssistant,
		Content: content,
	}, nil
}

// parseUsage 解析 usage 统计
func (p *OpenAICompatibleProvider) parseUsage(apiResp map[string]interface{}) *TokenUsage {
	usageData, ok := apiResp["usage"].(map[string]interface{})
	if !ok {
		return nil
	}

	usage := &TokenUsage{}
	if v, ok := usageData["prompt_tokens"].(float64); ok {
		usage.InputTokens = int64(v)
	}
	if v, ok := usageData["completion_tokens"].(float64); ok {
		usage.OutputTokens = int64(v)
	}
	if v, ok := usageData["total_tokens"].(float64); ok {
		usage.TotalTokens = int64(v)
	}
	return usage
}

// Config 返回配置
func (p *OpenAICompatibleProvider) Config() *types.ModelConfig {
	return p.config
}

// Close 关闭连接
func (p *OpenAICompatibleProvider) Close() error {
	p.httpClient.CloseIdleConnections()
	return nil
}
