package extraction

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"recipe-importer/internal/infrastructure/config"
)

func TestGeminiProviderGenerate(t *testing.T) {
	var gotBody map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/gemini-test:generateContent" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "secret" {
			t.Errorf("missing api key header")
		}
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"[{\"title\":"},{"text":"\"Pie\"}]"}]},"finishReason":"STOP"}]}`))
	}))
	defer server.Close()

	p := NewGeminiProvider(ProviderConfig{APIKey: "secret", Model: "gemini-test", BaseURL: server.URL})
	text, err := p.Generate(context.Background(), "prompt text", SamplingConfig{Temperature: 0.3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != `[{"title":"Pie"}]` {
		t.Errorf("text = %q", text)
	}

	gen, _ := gotBody["generationConfig"].(map[string]interface{})
	if gen["temperature"] != 0.3 || gen["maxOutputTokens"] != float64(8192) || gen["topK"] != float64(40) {
		t.Errorf("generationConfig = %v", gen)
	}
	if p.Name() != "gemini/gemini-test" {
		t.Errorf("name = %q", p.Name())
	}
}

func TestGeminiProviderStatusErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   Kind
	}{
		{"rate limited", http.StatusTooManyRequests, `{"error":{"message":"Resource has been exhausted, try later"}}`, KindRateLimited},
		{"quota", http.StatusTooManyRequests, `{"error":{"message":"Quota exceeded for quota metric"}}`, KindQuotaExceeded},
		{"unavailable", http.StatusServiceUnavailable, `overloaded`, KindUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			p := NewGeminiProvider(ProviderConfig{Model: "m", BaseURL: server.URL})
			_, err := p.Generate(context.Background(), "p", SamplingConfig{})
			if err == nil {
				t.Fatal("expected error")
			}
			if got := classify(err).Kind; got != tt.want {
				t.Errorf("kind = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGeminiProviderMalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer server.Close()

	p := NewGeminiProvider(ProviderConfig{Model: "m", BaseURL: server.URL})
	_, err := p.Generate(context.Background(), "p", SamplingConfig{})
	if classify(err).Kind != KindMalformedPayload {
		t.Errorf("error = %v, want malformedPayload", err)
	}
}

func TestGeminiProviderTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	p := NewGeminiProvider(ProviderConfig{Model: "m", BaseURL: server.URL})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := p.Generate(ctx, "p", SamplingConfig{})
	if classify(err).Kind != KindTimedOut {
		t.Errorf("error = %v, want timedOut", err)
	}
}

func TestOpenRouterProviderGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
			t.Errorf("missing bearer token")
		}
		var body map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["model"] != "meta/llama" {
			t.Errorf("model = %v", body["model"])
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"title\":\"Stew\"}"}}]}`))
	}))
	defer server.Close()

	p := NewOpenRouterProvider(ProviderConfig{APIKey: "k", Model: "meta/llama", BaseURL: server.URL})
	text, err := p.Generate(context.Background(), "p", SamplingConfig{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != `{"title":"Stew"}` {
		t.Errorf("text = %q", text)
	}
}

func TestOpenRouterProviderPaymentRequired(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"error":{"message":"insufficient credits"}}`))
	}))
	defer server.Close()

	p := NewOpenRouterProvider(ProviderConfig{Model: "m", BaseURL: server.URL})
	_, err := p.Generate(context.Background(), "p", SamplingConfig{})
	if classify(err).Kind != KindQuotaExceeded {
		t.Errorf("error = %v, want quotaExceeded", err)
	}
}

func TestNewProviderDefaultsModelPerBackend(t *testing.T) {
	tests := []struct {
		provider string
		want     string
	}{
		{"gemini", "gemini/" + DefaultGeminiModel},
		{"openrouter", "openrouter/" + DefaultOpenRouterModel},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			p, err := NewProvider(config.ExtractionConfig{Provider: tt.provider})
			if err != nil {
				t.Fatalf("NewProvider: %v", err)
			}
			if p.Name() != tt.want {
				t.Errorf("name = %q, want %q", p.Name(), tt.want)
			}
		})
	}
}

func TestBuildPromptEmbedsChunk(t *testing.T) {
	prompt := BuildPrompt("  2 cups rice\nBoil water.  ")
	if !strings.Contains(prompt, "---\n2 cups rice\nBoil water.\n---") {
		t.Errorf("chunk not embedded between markers:\n%s", prompt)
	}
	if !strings.Contains(prompt, "Return ONLY JSON") {
		t.Errorf("missing output instruction")
	}
}
