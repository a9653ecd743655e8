package logging

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"time"
)

// Level 日志级别
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String 返回级别名称
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalJSON 以级别名称序列化
func (l Level) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

// LogRecord 标准化日志记录结构
type LogRecord struct {
	Timestamp time.Time              `json:"ts"`
	Level     Level                  `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// Transport 日志输出通道接口
type Transport interface {
	// Name 返回 transport 名称(用于调试)
	Name() string
	// Log 写入一条日志记录
	Log(ctx context.Context, rec *LogRecord) error
	// Flush 刷新缓冲(如果有)
	Flush(ctx context.Context) error
}

// Logger 聚合多个 Transport, 提供统一的日志接口
type Logger struct {
	mu         sync.RWMutex
	level      Level
	transports []Transport
}

// NewLogger 创建 Logger 实例
func NewLogger(level Level, transports ...Transport) *Logger {
	return &Logger{
		level:      level,
		transports: transports,
	}
}

// SetLevel 设置日志级别
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// AddTransport 动态添加 transport
func (l *Logger) AddTransport(t Transport) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.transports = append(l.transports, t)
}

// log 内部通用日志函数
func (l *Logger) log(ctx context.Context, level Level, msg string, fields map[string]interface{}) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if level < l.level {
		return
	}

	rec := &LogRecord{
		Timestamp: time.Now(),
		Level:     level,
		Message:   msg,
		Fields:    fields,
	}

	for _, t := range l.transports {
		_ = t.Log(ctx, rec)
	}
}

// Debug 记录调试日志
func (l *Logger) Debug(ctx context.Context, msg string, fields map[string]interface{}) {
	l.log(ctx, LevelDebug, msg, fields)
}

// Info 记录信息日志
func (l *Logger) Info(ctx context.Context, msg string, fields map[string]interface{}) {
	l.log(ctx, LevelInfo, msg, fields)
}

// Warn 记录警告日志
func (l *Logger) Warn(ctx context.Context, msg string, fields map[string]interface{}) {
	l.log(ctx, LevelWarn, msg, fields)
}

// Error 记录错误日志
func (l *Logger) Error(ctx context.Context, msg string, fields map[string]interface{}) {
	l.log(ctx, LevelError, msg, fields)
}

// Flush 刷新所有 transports
func (l *Logger) Flush(ctx context.Context) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, t := range l.transports {
		_ = t.Flush(ctx)
	}
}

// =========================
// Stdout Transport
// =========================

// StdoutTransport 将日志记录以 JSON 行的形式写到 stdout
type StdoutTransport struct {
	mu      sync.Mutex
	encoder *json.Encoder
}

// NewStdoutTransport 创建 StdoutTransport
func NewStdoutTransport() *StdoutTransport {
	return &StdoutTransport{
		encoder: json.NewEncoder(os.Stdout),
	}
}

func (t *StdoutTransport) Name() string { return "stdout" }

func (t *StdoutTransport) Log(ctx context.Context, rec *LogRecord) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.encoder.Encode(rec)
}

func (t *StdoutTransport) Flush(ctx context.Context) error {
	// stdout 无需显式刷新
	return nil
}

// =========================
// File Transport
// =========================

// FileTransport 将日志记录以 JSON 行写入到指定文件
type FileTransport struct {
	mu      sync.Mutex
	file    *os.File
	encoder *json.Encoder
}

// NewFileTransport 创建 FileTransport, path 为日志文件路径
func NewFileTransport(path string) (*FileTransport, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}

	return &FileTransport{
		file:    f,
		encoder: json.NewEncoder(f),
	}, nil
}

func (t *FileTransport) Name() string { return "file" }

func (t *FileTransport) Log(ctx context.Context, rec *LogRecord) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.encoder.Encode(rec)
}

func (t *FileTransport) Flush(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.file.Sync()
}

// Close 关闭底层文件
func (t *FileTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.file.Close()
}

// =========================
// Memory Transport (测试用)
// =========================

// MemoryTransport 将日志记录保留在内存中，供测试断言使用
type MemoryTransport struct {
	mu      sync.Mutex
	records []LogRecord
}

// NewMemoryTransport 创建 MemoryTransport
func NewMemoryTransport() *MemoryTransport {
	return &MemoryTransport{}
}

func (t *MemoryTransport) Name() string { return "memory" }

func (t *MemoryTransport) Log(ctx context.Context, rec *LogRecord) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records = append(t.records, *rec)
	return nil
}

func (t *MemoryTransport) Flush(ctx context.Context) error { return nil }

// Records 返回已记录日志的副本
func (t *MemoryTransport) Records() []LogRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]LogRecord, len(t.records))
	copy(out, t.records)
	return out
}

// =========================
// 包级默认 Logger
// =========================

// Default 默认 Logger，info 级别输出到 stdout
var Default = NewLogger(LevelInfo, NewStdoutTransport())

// Debug 使用默认 Logger 记录调试日志
func Debug(ctx context.Context, msg string, fields map[string]interface{}) {
	Default.Debug(ctx, msg, fields)
}

// Info 使用默认 Logger 记录信息日志
func Info(ctx context.Context, msg string, fields map[string]interface{}) {
	Default.Info(ctx, msg, fields)
}

// Warn 使用默认 Logger 记录警告日志
func Warn(ctx context.Context, msg string, fields map[string]interface{}) {
	Default.Warn(ctx, msg, fields)
}

// Error 使用默认 Logger 记录错误日志
func Error(ctx context.Context, msg string, fields map[string]interface{}) {
	Default.Error(ctx, msg, fields)
}
