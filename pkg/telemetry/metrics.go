package telemetry

import (
	"sort"
	"sync"
	"time"
)

// Metrics 提供指标收集能力
type Metrics interface {
	// Counter 操作
	IncrementCounter(name string, value int64, labels map[string]string)

	// Gauge 操作
	SetGauge(name string, value float64, labels map[string]string)

	// Histogram 操作
	RecordHistogram(name string, value float64, labels map[string]string)

	// 获取指标快照
	Snapshot() MetricsSnapshot
}

// MetricsSnapshot 指标快照
type MetricsSnapshot struct {
	Counters   map[string]*CounterSnapshot
	Gauges     map[string]*GaugeSnapshot
	Histograms map[string]*HistogramSnapshot
	Timestamp  time.Time
}

// CounterSnapshot 计数器快照
type CounterSnapshot struct {
	Name   string
	Value  int64
	Labels map[string]string
}

// GaugeSnapshot 仪表盘快照
type GaugeSnapshot struct {
	Name   string
	Value  float64
	Labels map[string]string
}

// HistogramSnapshot 直方图快照
type HistogramSnapshot struct {
	Name   string
	Count  int64
	Sum    float64
	Min    float64
	Max    float64
	Mean   float64
	Labels map[string]string
}

// SimpleMetrics 简单的内存 metrics 实现
type SimpleMetrics struct {
	mu         sync.RWMutex
	counters   map[string]*counter
	gauges     map[string]*gauge
	histograms map[string]*histogram
}

type counter struct {
	value  int64
	labels map[string]string
}

type gauge struct {
	value  float64
	labels map[string]string
}

type histogram struct {
	count  int64
	sum    float64
	min    float64
	max    float64
	labels map[string]string
}

// NewSimpleMetrics 创建简单的 metrics 实例
func NewSimpleMetrics() *SimpleMetrics {
	return &SimpleMetrics{
		counters:   make(map[string]*counter),
		gauges:     make(map[string]*gauge),
		histograms: make(map[string]*histogram),
	}
}

func (m *SimpleMetrics) IncrementCounter(name string, value int64, labels map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := makeKey(name, labels)
	if c, ok := m.counters[key]; ok {
		c.value += value
	} else {
		m.counters[key] = &counter{value: value, labels: labels}
	}
}

func (m *SimpleMetrics) SetGauge(name string, value float64, labels map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := makeKey(name, labels)
	m.gauges[key] = &gauge{value: value, labels: labels}
}

func (m *SimpleMetrics) RecordHistogram(name string, value float64, labels map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := makeKey(name, labels)
	if h, ok := m.histograms[key]; ok {
		h.count++
		h.sum += value
		if value < h.min {
			h.min = value
		}
		if value > h.max {
			h.max = value
		}
	} else {
		m.histograms[key] = &histogram{
			count:  1,
			sum:    value,
			min:    value,
			max:    value,
			labels: labels,
		}
	}
}

func (m *SimpleMetrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snapshot := MetricsSnapshot{
		Counters:   make(map[string]*CounterSnapshot),
		Gauges:     make(map[string]*GaugeSnapshot),
		Histograms: make(map[string]*HistogramSnapshot),
		Timestamp:  time.Now(),
	}

	for key, c := range m.counters {
		snapshot.Counters[key] = &CounterSnapshot{
			Name:   key,
			Value:  c.value,
			Labels: copyLabels(c.labels),
		}
	}

	for key, g := range m.gauges {
		snapshot.Gauges[key] = &GaugeSnapshot{
			Name:   key,
			Value:  g.value,
			Labels: copyLabels(g.labels),
		}
	}

	for key, h := range m.histograms {
		mean := 0.0
		if h.count > 0 {
			mean = h.sum / float64(h.count)
		}

		snapshot.Histograms[key] = &HistogramSnapshot{
			Name:   key,
			Count:  h.count,
			Sum:    h.sum,
			Min:    h.min,
			Max:    h.max,
			Mean:   mean,
			Labels: copyLabels(h.labels),
		}
	}

	return snapshot
}

// JudgeMetrics 裁判调用相关的指标收集器
type JudgeMetrics struct {
	metrics Metrics
}

// NewJudgeMetrics 创建裁判 metrics
func NewJudgeMetrics(metrics Metrics) *JudgeMetrics {
	return &JudgeMetrics{metrics: metrics}
}

// RecordCall 记录一次裁判调用
func (m *JudgeMetrics) RecordCall(providerName, metric string, duration time.Duration, success bool) {
	labels := map[string]string{
		"provider": providerName,
		"metric":   metric,
	}

	m.metrics.IncrementCounter("judge.calls.total", 1, labels)
	m.metrics.RecordHistogram("judge.call.duration", duration.Seconds(), labels)

	if !success {
		m.metrics.IncrementCounter("judge.calls.errors", 1, labels)
	}
}

// RecordTokens 记录 token 使用
func (m *JudgeMetrics) RecordTokens(providerName string, inputTokens, outputTokens int64) {
	labels := map[string]string{"provider": providerName}
	m.metrics.IncrementCounter("judge.tokens.input", inputTokens, labels)
	m.metrics.IncrementCounter("judge.tokens.output", outputTokens, labels)
}

// SetInFlight 设置在途裁判调用数
func (m *JudgeMetrics) SetInFlight(count int) {
	m.metrics.SetGauge("judge.calls.in_flight", float64(count), nil)
}

// makeKey 按排序后的 labels 生成稳定的指标键
func makeKey(name string, labels map[string]string) string {
	if len(labels) == 0 {
		return name
	}

	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	key := name
	for _, k := range keys {
		key += ":" + k + "=" + labels[k]
	}
	return key
}

func copyLabels(labels map[string]string) map[string]string {
	if labels == nil {
		return nil
	}

	copied := make(map[string]string, len(labels))
	for k, v := range labels {
		copied[k] = v
	}
	return copied
}

// 全局默认 metrics
var globalMetrics Metrics = NewSimpleMetrics()

// SetGlobalMetrics 设置全局 metrics
func SetGlobalMetrics(metrics Metrics) {
	globalMetrics = metrics
}

// GetGlobalMetrics 获取全局 metrics
func GetGlobalMetrics() Metrics {
	return globalMetrics
}

// 便捷函数
func IncrementCounter(name string, value int64, labels map[string]string) {
	globalMetrics.IncrementCounter(name, value, labels)
}

func SetGauge(name string, value float64, labels map[string]string) {
	globalMetrics.SetGauge(name, value, labels)
}

func RecordHistogram(name string, value float64, labels map[string]string) {
	globalMetrics.RecordHistogram(name, value, labels)
}
