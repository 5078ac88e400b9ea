package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/foxzi/inkwell/internal/config"
)

func TestClient_Generate(t *testing.T) {
	var got chatCompletionRequest
	var auth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"x","model":"test-model","choices":[{"index":0,"message":{"role":"assistant","content":"<html></html>"},"finish_reason":"stop"}],"usage":{"prompt_tokens":10,"completion_tokens":5,"total_tokens":15}}`))
	}))
	defer srv.Close()

	c := NewClient(config.LLMConfig{
		Provider:  ProviderCustom,
		BaseURL:   srv.URL + "/v1/",
		APIKey:    "sk-test",
		Model:     "test-model",
		MaxTokens: 1000,
		Timeout:   5 * time.Second,
	}, nil)

	comp, err := c.Generate(context.Background(), "write an email", 0)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if comp.Text != "<html></html>" || comp.TokensUsed != 15 {
		t.Errorf("Generate() = %+v", comp)
	}
	if auth != "Bearer sk-test" {
		t.Errorf("Authorization = %q", auth)
	}
	if got.Model != "test-model" || got.MaxTokens != 1000 {
		t.Errorf("request = %+v", got)
	}
	if len(got.Messages) != 2 || got.Messages[1].Content != "write an email" {
		t.Errorf("messages = %+v", got.Messages)
	}
}

func TestClient_GenerateErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"server error", http.StatusInternalServerError, `{"error":"boom"}`, "status 500"},
		{"bad json", http.StatusOK, `not json`, "decode"},
		{"no choices", http.StatusOK, `{"choices":[]}`, ErrEmptyCompletion.Error()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewClient(config.LLMConfig{BaseURL: srv.URL, Timeout: time.Second}, nil)
			_, err := c.Generate(context.Background(), "p", 10)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Generate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient(config.LLMConfig{Provider: ProviderDeepSeek}, nil)
	if c.baseURL != "https://api.deepseek.com" || c.model != "deepseek-chat" {
		t.Errorf("deepseek defaults = %s %s", c.baseURL, c.model)
	}

	c = NewClient(config.LLMConfig{}, nil)
	if c.baseURL != "https://api.openai.com/v1" || c.model != "gpt-4o" {
		t.Errorf("openai defaults = %s %s", c.baseURL, c.model)
	}
}

func TestMock(t *testing.T) {
	m := &Mock{}
	comp, err := m.Generate(context.Background(), "hello world!", 0)
	if err != nil || comp.Text != "hello world!" {
		t.Errorf("Generate() = %+v, %v", comp, err)
	}

	sentinel := errors.New("down")
	m.GenerateFunc = func(ctx context.Context, prompt string, maxTokens int) (*Completion, error) {
		return nil, sentinel
	}
	if _, err := m.Generate(context.Background(), "x", 0); !errors.Is(err, sentinel) {
		t.Errorf("Generate() error = %v", err)
	}
	if len(m.Prompts()) != 2 {
		t.Errorf("Prompts() = %v", m.Prompts())
	}
}
