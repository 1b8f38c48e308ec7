// Package assistant はゲームのプレイ記録をプロンプトに整形し、
// 外部のテキスト生成APIに問い合わせるアシスタントクライアントを提供する。
// 上流の失敗はすべてフォールバック文言に吸収され、呼び出し元にエラーは返さない。
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Provider はテキスト生成APIのインターフェース。
type Provider interface {
	// Generate はモデルIDとプロンプトを受け取り、生成されたテキストを返す。
	Generate(ctx context.Context, model, prompt string) (string, error)
}

const (
	defaultGeminiEndpoint = "https://generativelanguage.googleapis.com"
	defaultMaxRetries     = 1
)

// GeminiConfig はGemini APIの設定。
type GeminiConfig struct {
	APIKey     string
	Endpoint   string // テスト用にオーバーライド可能
	Timeout    time.Duration
	MaxRetries int // 429/5xxと通信エラー時の再試行回数。負の値は再試行しない
}

// GeminiProvider はGemini APIのgenerateContentでProviderを実装する。
type GeminiProvider struct {
	config GeminiConfig
	client *http.Client
}

// NewGeminiProvider はGeminiProviderを生成する。
func NewGeminiProvider(config GeminiConfig) *GeminiProvider {
	if config.Endpoint == "" {
		config.Endpoint = defaultGeminiEndpoint
	}
	config.Endpoint = strings.TrimRight(config.Endpoint, "/")
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = defaultMaxRetries
	}
	return &GeminiProvider{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// Generate はPOST {endpoint}/v1beta/models/{model}:generateContent を呼び出す。
// 429/5xxと通信エラーはMaxRetries回まで指数バックオフで再試行する。
// 候補が無い場合は空文字列を返す。
func (p *GeminiProvider) Generate(ctx context.Context, model, prompt string) (string, error) {
	return withRetry(ctx, max(p.config.MaxRetries, 0), func(ctx context.Context) (string, error) {
		return p.generateOnce(ctx, model, prompt)
	})
}

func (p *GeminiProvider) generateOnce(ctx context.Context, model, prompt string) (string, error) {
	payload, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	endpoint := p.config.Endpoint + "/v1beta/models/" + url.PathEscape(model) + ":generateContent"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", p.config.APIKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("generate request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if classifyStatus(resp.StatusCode) != resultOK {
		return "", &statusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var res geminiResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if len(res.Candidates) == 0 {
		return "", nil
	}

	var sb strings.Builder
	for _, part := range res.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String(), nil
}

// compile-time interface check
var _ Provider = (*GeminiProvider)(nil)
