package assistant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestGeminiProvider_Generate_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/v1beta/models/gemini-test:generateContent" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "test-key" {
			t.Errorf("x-goog-api-key = %q", r.Header.Get("x-goog-api-key"))
		}

		var req geminiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if len(req.Contents) != 1 || req.Contents[0].Parts[0].Text != "hello" {
			t.Errorf("unexpected request: %+v", req)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"foo "},{"text":"bar"}]}}]}`))
	}))
	defer server.Close()

	p := NewGeminiProvider(GeminiConfig{APIKey: "test-key", Endpoint: server.URL})
	got, err := p.Generate(context.Background(), "gemini-test", "hello")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got != "foo bar" {
		t.Errorf("Generate() = %q, want %q", got, "foo bar")
	}
}

func TestGeminiProvider_Generate_NoCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[]}`))
	}))
	defer server.Close()

	p := NewGeminiProvider(GeminiConfig{APIKey: "k", Endpoint: server.URL})
	got, err := p.Generate(context.Background(), "m", "p")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got != "" {
		t.Errorf("Generate() = %q, want empty", got)
	}
}

func TestGeminiProvider_Generate_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"quota"}}`))
	}))
	defer server.Close()

	p := NewGeminiProvider(GeminiConfig{APIKey: "k", Endpoint: server.URL, MaxRetries: -1})
	if _, err := p.Generate(context.Background(), "m", "p"); err == nil {
		t.Fatal("expected error for 429 response")
	}
}

func TestGeminiProvider_Generate_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer server.Close()

	p := NewGeminiProvider(GeminiConfig{APIKey: "k", Endpoint: server.URL})
	if _, err := p.Generate(context.Background(), "m", "p"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestNewGeminiProvider_Defaults(t *testing.T) {
	p := NewGeminiProvider(GeminiConfig{APIKey: "k"})
	if p.config.Endpoint != defaultGeminiEndpoint {
		t.Errorf("Endpoint = %q, want default", p.config.Endpoint)
	}
	if p.client.Timeout == 0 {
		t.Error("expected non-zero client timeout")
	}
	if p.config.MaxRetries != defaultMaxRetries {
		t.Errorf("MaxRetries = %d, want %d", p.config.MaxRetries, defaultMaxRetries)
	}
}

func TestGeminiProvider_Generate_RetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`))
	}))
	defer server.Close()

	p := NewGeminiProvider(GeminiConfig{APIKey: "k", Endpoint: server.URL})
	got, err := p.Generate(context.Background(), "m", "p")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got != "ok" || calls.Load() != 2 {
		t.Errorf("Generate() = %q after %d calls, want ok after 2", got, calls.Load())
	}
}

func TestGeminiProvider_Generate_DoesNotRetryClientError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	p := NewGeminiProvider(GeminiConfig{APIKey: "bad", Endpoint: server.URL, MaxRetries: 3})
	if _, err := p.Generate(context.Background(), "m", "p"); err == nil {
		t.Fatal("expected error for 403 response")
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}
