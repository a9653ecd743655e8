package telemetry

import (
	"testing"
	"time"
)

// TestCounterAccumulates 同名同标签的计数器累加
func TestCounterAccumulates(t *testing.T) {
	m := NewSimpleMetrics()
	labels := map[string]string{"mode": "hybrid"}

	m.IncrementCounter("eval.cases.total", 1, labels)
	m.IncrementCounter("eval.cases.total", 2, labels)
	m.IncrementCounter("eval.cases.total", 1, map[string]string{"mode": "judge"})

	snap := m.Snapshot()
	c := snap.Counters["eval.cases.total:mode=hybrid"]
	if c == nil || c.Value != 3 {
		t.Fatalf("counter = %+v, want value 3", c)
	}
	if snap.Counters["eval.cases.total:mode=judge"].Value != 1 {
		t.Error("labels should partition counters")
	}
}

// TestHistogramStats 直方图的 min/max/mean
func TestHistogramStats(t *testing.T) {
	m := NewSimpleMetrics()
	for _, v := range []float64{0.2, 0.4, 0.6} {
		m.RecordHistogram("eval.case.score", v, nil)
	}

	h := m.Snapshot().Histograms["eval.case.score"]
	if h == nil {
		t.Fatal("histogram missing from snapshot")
	}
	if h.Count != 3 || h.Min != 0.2 || h.Max != 0.6 {
		t.Errorf("histogram = %+v", h)
	}
	if h.Mean < 0.399 || h.Mean > 0.401 {
		t.Errorf("Mean = %v, want 0.4", h.Mean)
	}
}

// TestMakeKeyStable 标签顺序不影响指标键
func TestMakeKeyStable(t *testing.T) {
	a := makeKey("m", map[string]string{"x": "1", "y": "2"})
	b := makeKey("m", map[string]string{"y": "2", "x": "1"})
	if a != b {
		t.Errorf("makeKey unstable: %q vs %q", a, b)
	}
}

// TestJudgeMetrics 裁判调用指标
func TestJudgeMetrics(t *testing.T) {
	m := NewSimpleMetrics()
	jm := NewJudgeMetrics(m)

	jm.RecordCall("deepseek", "factual_correctness", 120*time.Millisecond, true)
	jm.RecordCall("deepseek", "factual_correctness", 80*time.Millisecond, false)
	jm.RecordTokens("deepseek", 100, 20)

	snap := m.Snapshot()
	key := "judge.calls.total:metric=factual_correctness:provider=deepseek"
	if snap.Counters[key] == nil || snap.Counters[key].Value != 2 {
		t.Errorf("calls counter = %+v", snap.Counters[key])
	}
	errKey := "judge.calls.errors:metric=factual_correctness:provider=deepseek"
	if snap.Counters[errKey] == nil || snap.Counters[errKey].Value != 1 {
		t.Errorf("errors counter = %+v", snap.Counters[errKey])
	}
	if snap.Counters["judge.tokens.input:provider=deepseek"].Value != 100 {
		t.Error("token counter missing")
	}
}
