package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Config 重试配置
type Config struct {
	// MaxAttempts 最大尝试次数（含首次，默认: 3）
	MaxAttempts int

	// BaseDelay 首次重试前的等待时间，之后指数递增（默认: 1s）
	BaseDelay time.Duration

	// IsRetryable 判断错误是否可重试。nil 表示所有错误都可重试。
	IsRetryable func(error) bool
}

// normalize 填充默认值
func (c Config) normalize() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = time.Second
	}
	return c
}

// Do 以指数退避重试执行 fn，直到成功、错误不可重试或尝试次数用尽。
// 等待期间响应 ctx 取消。
func Do(ctx context.Context, cfg Config, fn func(ctx context.Context) error) error {
	cfg = cfg.normalize()

	var lastErr error
	delay := cfg.BaseDelay

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		if cfg.IsRetryable != nil && !cfg.IsRetryable(lastErr) {
			return lastErr
		}
		if errors.Is(lastErr, context.Canceled) || errors.Is(lastErr, context.DeadlineExceeded) {
			return lastErr
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}
