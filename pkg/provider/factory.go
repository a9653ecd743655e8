package provider

import (
	"fmt"

	"github.com/wordflowlab/rageval/pkg/types"
)

// 各提供商的默认 API 端点
const (
	OpenAIAPIBaseURL     = "https://api.openai.com/v1"
	DeepseekAPIBaseURL   = "https://api.deepseek.com/v1"
	MoonshotAPIBaseURL   = "https://api.moonshot.cn/v1"
	GLMAPIBaseURL        = "https://open.bigmodel.cn/api/paas/v4"
	OpenRouterAPIBaseURL = "https://openrouter.ai/api/v1"
	OllamaAPIBaseURL     = "http://localhost:11434/v1"
)

// New 根据配置创建相应的提供商。
// 所有提供商都走 OpenAI 兼容的 chat/completions 端点。
func New(config *types.ModelConfig) (Provider, error) {
	providerType := config.Provider
	if providerType == "" {
		providerType = "openai"
	}

	baseURL := config.BaseURL

	switch providerType {
	case "openai":
		if baseURL == "" {
			baseURL = OpenAIAPIBaseURL
		}
		return NewOpenAICompatibleProvider(config, baseURL, "OpenAI", &OpenAICompatibleOptions{
			RequireAPIKey: true,
			DefaultModel:  "gpt-4o",
		})

	case "deepseek":
		if baseURL == "" {
			baseURL = DeepseekAPIBaseURL
		}
		return NewOpenAICompatibleProvider(config, baseURL, "Deepseek", &OpenAICompatibleOptions{
			RequireAPIKey: true,
			DefaultModel:  "deepseek-chat",
		})

	case "moonshot", "kimi":
		if baseURL == "" {
			baseURL = MoonshotAPIBaseURL
		}
		return NewOpenAICompatibleProvider(config, baseURL, "Moonshot", &OpenAICompatibleOptions{
			RequireAPIKey: true,
			DefaultModel:  "moonshot-v1-8k",
		})

	case "glm", "zhipu", "bigmodel":
		if baseURL == "" {
			baseURL = GLMAPIBaseURL
		}
		return NewOpenAICompatibleProvider(config, baseURL, "GLM", &OpenAICompatibleOptions{
			RequireAPIKey: true,
			DefaultModel:  "glm-4",
		})

	case "openrouter":
		if baseURL == "" {
			baseURL = OpenRouterAPIBaseURL
		}
		return NewOpenAICompatibleProvider(config, baseURL, "OpenRouter", &OpenAICompatibleOptions{
			RequireAPIKey: true,
		})

	case "ollama":
		if baseURL == "" {
			baseURL = OllamaAPIBaseURL
		}
		return NewOpenAICompatibleProvider(config, baseURL, "Ollama", &OpenAICompatibleOptions{
			RequireAPIKey: false,
		})

	default:
		return nil, fmt.Errorf("unsupported provider: %s", providerType)
	}
}
