package logging

import (
	"context"
	"testing"
)

// TestLoggerLevelFiltering 低于当前级别的日志被过滤
func TestLoggerLevelFiltering(t *testing.T) {
	mem := NewMemoryTransport()
	logger := NewLogger(LevelWarn, mem)

	ctx := context.Background()
	logger.Debug(ctx, "debug msg", nil)
	logger.Info(ctx, "info msg", nil)
	logger.Warn(ctx, "warn msg", nil)
	logger.Error(ctx, "error msg", map[string]interface{}{"code": 500})

	records := mem.Records()
	if len(records) != 2 {
		t.Fatalf("len(records) = %d, want 2", len(records))
	}
	if records[0].Level != LevelWarn || records[1].Level != LevelError {
		t.Errorf("levels = %v/%v, want warn/error", records[0].Level, records[1].Level)
	}
	if records[1].Fields["code"] != 500 {
		t.Errorf("fields = %v", records[1].Fields)
	}
}

// TestLoggerSetLevel 运行时调整级别
func TestLoggerSetLevel(t *testing.T) {
	mem := NewMemoryTransport()
	logger := NewLogger(LevelError, mem)

	logger.Info(context.Background(), "dropped", nil)
	logger.SetLevel(LevelDebug)
	logger.Debug(context.Background(), "kept", nil)

	records := mem.Records()
	if len(records) != 1 || records[0].Message != "kept" {
		t.Fatalf("records = %+v", records)
	}
}

// TestLevelString 级别名称
func TestLevelString(t *testing.T) {
	tests := []struct {
		level Level
		want  string
	}{
		{LevelDebug, "debug"},
		{LevelInfo, "info"},
		{LevelWarn, "warn"},
		{LevelError, "error"},
		{Level(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.level.String(); got != tt.want {
			t.Errorf("Level(%d).String() = %q, want %q", tt.level, got, tt.want)
		}
	}
}

// TestAddTransport 多路输出
func TestAddTransport(t *testing.T) {
	a := NewMemoryTransport()
	b := NewMemoryTransport()
	logger := NewLogger(LevelInfo, a)
	logger.AddTransport(b)

	logger.Info(context.Background(), "both", nil)
	if len(a.Records()) != 1 || len(b.Records()) != 1 {
		t.Errorf("records a=%d b=%d, want 1/1", len(a.Records()), len(b.Records()))
	}
}
