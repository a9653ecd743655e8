package appconfig

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/wordflowlab/rageval/pkg/evals"
	"github.com/wordflowlab/rageval/pkg/types"
)

// JudgeProfile 定义一个裁判模型配置。
// API Key 通过环境变量提供, 这里只指定 env 名称。
type JudgeProfile struct {
	Provider  string `yaml:"provider"`
	Model     string `yaml:"model,omitempty"`
	BaseURL   string `yaml:"base_url,omitempty"`
	EnvAPIKey string `yaml:"env_api_key,omitempty"`
}

// Judge 定义 profile -> 裁判模型的映射与默认选择。
type Judge struct {
	Default  string                  `yaml:"default,omitempty"`
	Profiles map[string]JudgeProfile `yaml:"profiles"`
}

// Evaluation 评测运行配置。
type Evaluation struct {
	// Mode 评测模式: structural / judge / hybrid, 默认 hybrid
	Mode string `yaml:"mode,omitempty"`
	// Concurrency 并发度, 默认取引擎默认值
	Concurrency int `yaml:"concurrency,omitempty"`
	// Dataset 数据集文件路径或 glob 模式
	Dataset string `yaml:"dataset,omitempty"`
	// OutputDir 运行结果输出目录, 默认 "./eval_results"
	OutputDir string `yaml:"output_dir,omitempty"`
}

// Logging 日志配置。
type Logging struct {
	// Level debug / info / warn / error, 默认 info
	Level string `yaml:"level,omitempty"`
	// File 非空时追加一路文件输出
	File string `yaml:"file,omitempty"`
}

// Config 顶层应用配置。
type Config struct {
	Judge      *Judge      `yaml:"judge,omitempty"`
	Evaluation *Evaluation `yaml:"evaluation,omitempty"`
	Logging    *Logging    `yaml:"logging,omitempty"`
}

// Load 从指定路径加载 YAML 配置并填充默认值。
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default 返回不依赖配置文件的默认配置。
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Evaluation == nil {
		c.Evaluation = &Evaluation{}
	}
	if c.Evaluation.Mode == "" {
		c.Evaluation.Mode = string(evals.ModeHybrid)
	}
	if c.Evaluation.OutputDir == "" {
		c.Evaluation.OutputDir = "./eval_results"
	}
	if c.Logging == nil {
		c.Logging = &Logging{}
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate 校验配置的完整性。
func (c *Config) Validate() error {
	if !evals.Mode(c.Evaluation.Mode).Valid() {
		return fmt.Errorf("invalid evaluation mode: %q", c.Evaluation.Mode)
	}
	if c.Evaluation.Concurrency < 0 {
		return fmt.Errorf("concurrency must be non-negative, got %d", c.Evaluation.Concurrency)
	}

	if c.Judge != nil {
		if c.Judge.Default != "" {
			if _, ok := c.Judge.Profiles[c.Judge.Default]; !ok {
				return fmt.Errorf("default judge profile %q not defined", c.Judge.Default)
			}
		}
		for name, p := range c.Judge.Profiles {
			if p.Provider == "" {
				return fmt.Errorf("judge profile %q missing provider", name)
			}
		}
	}
	return nil
}

// Mode 返回解析后的评测模式。
func (c *Config) Mode() evals.Mode {
	return evals.Mode(c.Evaluation.Mode)
}

// JudgeModelConfig 解析指定 profile 为模型配置, API Key 从环境变量读取。
// profile 为空时使用默认 profile。
func (c *Config) JudgeModelConfig(profile string) (*types.ModelConfig, error) {
	if c.Judge == nil || len(c.Judge.Profiles) == 0 {
		return nil, fmt.Errorf("no judge profiles configured")
	}

	if profile == "" {
		profile = c.Judge.Default
	}
	if profile == "" {
		return nil, fmt.Errorf("judge profile not specified and no default set")
	}

	p, ok := c.Judge.Profiles[profile]
	if !ok {
		return nil, fmt.Errorf("judge profile %q not defined", profile)
	}

	apiKey := ""
	if p.EnvAPIKey != "" {
		apiKey = os.Getenv(p.EnvAPIKey)
	}

	return &types.ModelConfig{
		Provider: p.Provider,
		Model:    p.Model,
		BaseURL:  p.BaseURL,
		APIKey:   apiKey,
	}, nil
}
