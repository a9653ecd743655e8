package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/wordflowlab/rageval/pkg/types"
)

// TestFactoryPresets 测试工厂的端点预设
func TestFactoryPresets(t *testing.T) {
	tests := []struct {
		provider  string
		wantModel string
		wantErr   bool
	}{
		{"openai", "gpt-4o", false},
		{"deepseek", "deepseek-chat", false},
		{"moonshot", "moonshot-v1-8k", false},
		{"glm", "glm-4", false},
		{"unknown-vendor", "", true},
	}

	for _, tt := range tests {
		p, err := New(&types.ModelConfig{Provider: tt.provider, APIKey: "test-key"})
		if tt.wantErr {
			if err == nil {
				t.Errorf("New(%q) expected error, got nil", tt.provider)
			}
			continue
		}
		if err != nil {
			t.Fatalf("New(%q) error = %v", tt.provider, err)
		}
		if p.Config().Model != tt.wantModel {
			t.Errorf("New(%q) default model = %q, want %q", tt.provider, p.Config().Model, tt.wantModel)
		}
	}
}

// TestFactoryRequiresAPIKey 需要 API Key 的提供商缺 Key 时报错
func TestFactoryRequiresAPIKey(t *testing.T) {
	if _, err := New(&types.ModelConfig{Provider: "openai"}); err == nil {
		t.Error("New(openai) without API key expected error, got nil")
	}

	// Ollama 不需要 Key
	if _, err := New(&types.ModelConfig{Provider: "ollama", Model: "qwen2"}); err != nil {
		t.Errorf("New(ollama) error = %v", err)
	}
}

// TestCompleteParsesResponse 测试非流式响应解析
func TestCompleteParsesResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req["stream"] != false {
			t.Errorf("request stream = %v, want false", req["stream"])
		}

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]interface{}{"role": "assistant", "content": `{"score": 0.9}`}},
			},
			"usage": map[string]interface{}{
				"prompt_tokens":     100,
				"completion_tokens": 20,
				"total_tokens":      120,
			},
		})
	}))
	defer server.Close()

	p, err := NewOpenAICompatibleProvider(
		&types.ModelConfig{Model: "test-model", APIKey: "test-key"},
		server.URL,
		"Test",
		nil,
	)
	if err != nil {
		t.Fatalf("NewOpenAICompatibleProvider() error = %v", err)
	}

	resp, err := p.Complete(context.Background(), []types.Message{
		{Role: types.RoleUser, Content: "评估这个答案"},
	}, &CompleteOptions{MaxTokens: 500})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	if resp.Message.Content != `{"score": 0.9}` {
		t.Errorf("Complete() content = %q", resp.Message.Content)
	}
	if resp.Usage == nil || resp.Usage.InputTokens != 100 || resp.Usage.OutputTokens != 20 {
		t.Errorf("Complete() usage = %+v", resp.Usage)
	}
}

// TestCompleteRetriesOn429 429 响应触发重试
func TestCompleteRetriesOn429(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]interface{}{"role": "assistant", "content": "ok"}},
			},
		})
	}))
	defer server.Close()

	p, err := NewOpenAICompatibleProvider(
		&types.ModelConfig{Model: "test-model", APIKey: "test-key"},
		server.URL,
		"Test",
		&OpenAICompatibleOptions{RequireAPIKey: true, MaxRetries: 3, RetryDelay: time.Millisecond},
	)
	if err != nil {
		t.Fatalf("NewOpenAICompatibleProvider() error = %v", err)
	}

	resp, err := p.Complete(context.Background(), []types.Message{
		{Role: types.RoleUser, Content: "hi"},
	}, nil)
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Message.Content != "ok" {
		t.Errorf("Complete() content = %q, want ok", resp.Message.Content)
	}
	if calls.Load() != 2 {
		t.Errorf("server calls = %d, want 2", calls.Load())
	}
}

// TestCompleteFailsOn400 400 响应不重试，直接失败
func TestCompleteFailsOn400(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	p, err := NewOpenAICompatibleProvider(
		&types.ModelConfig{Model: "test-model", APIKey: "test-key"},
		server.URL,
		"Test",
		&OpenAICompatibleOptions{RequireAPIKey: true, MaxRetries: 3, RetryDelay: time.Millisecond},
	)
	if err != nil {
		t.Fatalf("NewOpenAICompatibleProvider() error = %v", err)
	}

	if _, err := p.Complete(context.Background(), []types.Message{{Role: types.RoleUser, Content: "hi"}}, nil); err == nil {
		t.Fatal("Complete() expected error, got nil")
	}
	if calls.Load() != 1 {
		t.Errorf("server calls = %d, want 1", calls.Load())
	}
}
