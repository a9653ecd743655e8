package types

// ModelConfig 模型提供商配置
type ModelConfig struct {
	Provider string `json:"provider"` // "openai", "deepseek", "moonshot" 等
	Model    string `json:"model"`
	APIKey   string `json:"api_key,omitempty"`
	BaseURL  string `json:"base_url,omitempty"`
}
