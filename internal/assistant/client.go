package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/hitoshi/questlog/internal/metrics"
	"github.com/hitoshi/questlog/internal/model"
)

// 操作名。メトリクスのラベルと重複排除キーに使う。
const (
	OpResume     = "resume"
	OpPlan       = "plan"
	OpStagnation = "stagnation"
)

// MinPlanMinutes と MaxPlanMinutes はセッションプランで受け付ける時間の範囲（分）。
const (
	MinPlanMinutes = 1
	MaxPlanMinutes = 1440
)

// フォールバック文言。
const (
	MsgNotConfigured   = "アシスタントが設定されていません。APIキーを設定してください。"
	MsgNoSessions      = "まだプレイ記録がありません。最初のセッションを記録して冒険を始めましょう！"
	MsgResumeFailed    = "アシスタントに接続できませんでした。しばらくしてから再度お試しください。"
	MsgResumeEmpty     = "あらすじを生成できませんでした。"
	MsgPlanFailed      = "セッションプランを作成できませんでした。しばらくしてから再度お試しください。"
	MsgPlanEmpty       = "プランを生成できませんでした。"
	defaultModel       = "gemini-2.5-flash"
	defaultCallTimeout = 30 * time.Second
)

// Config はアシスタントクライアントの設定。
type Config struct {
	Model   string
	Timeout time.Duration // 1回の呼び出しの上限時間
}

// Client はアシスタントの3つの助言操作を提供する。
// providerがnilの場合は未設定として扱い、固定の文言を返す。
// 同一ユーザー・同一操作・同一ゲームの同時呼び出しは1回の上流呼び出しにまとめる。
type Client struct {
	provider Provider
	config   Config
	metrics  metrics.MetricsCollector
	group    singleflight.Group
}

// NewClient はClientを生成する。
func NewClient(provider Provider, config Config, collector metrics.MetricsCollector) *Client {
	if config.Model == "" {
		config.Model = defaultModel
	}
	if config.Timeout == 0 {
		config.Timeout = defaultCallTimeout
	}
	if collector == nil {
		collector = metrics.NopCollector{}
	}
	return &Client{
		provider: provider,
		config:   config,
		metrics:  collector,
	}
}

// Configured はプロバイダーが設定されているかどうかを返す。
func (c *Client) Configured() bool {
	return c.provider != nil
}

// GenerateResume は直近のセッションメモから「前回までのあらすじ」を生成する。
// セッションが無い場合は上流を呼ばずに励ましの文言を返す。
func (c *Client) GenerateResume(ctx context.Context, session *model.Session, game model.Game) string {
	if !c.Configured() {
		c.metrics.RecordAssistantCall(OpResume, metrics.OutcomeNotConfigured)
		return MsgNotConfigured
	}
	if len(game.Sessions) == 0 {
		c.metrics.RecordAssistantCall(OpResume, metrics.OutcomeFallback)
		return MsgNoSessions
	}

	text, err := c.call(ctx, OpResume, dedupeKey(session, OpResume, game.ID, 0), resumePrompt(game))
	return c.resolve(OpResume, text, err, MsgResumeFailed, MsgResumeEmpty)
}

// PlanSession は使える時間に合わせたセッション目標を1つ提案する。
// minutesの範囲検証は呼び出し元で行う。
func (c *Client) PlanSession(ctx context.Context, session *model.Session, game model.Game, minutes int) string {
	if !c.Configured() {
		c.metrics.RecordAssistantCall(OpPlan, metrics.OutcomeNotConfigured)
		return MsgNotConfigured
	}

	text, err := c.call(ctx, OpPlan, dedupeKey(session, OpPlan, game.ID, minutes), planPrompt(game, minutes))
	return c.resolve(OpPlan, text, err, MsgPlanFailed, MsgPlanEmpty)
}

// AnalyzeStagnation はメモから停滞や苛立ちを読み取り、短い助言を返す。
// 失敗時や未設定時は空文字列を返す。
func (c *Client) AnalyzeStagnation(ctx context.Context, session *model.Session, game model.Game) string {
	if !c.Configured() {
		c.metrics.RecordAssistantCall(OpStagnation, metrics.OutcomeNotConfigured)
		return ""
	}

	text, err := c.call(ctx, OpStagnation, dedupeKey(session, OpStagnation, game.ID, 0), stagnationPrompt(game))
	return c.resolve(OpStagnation, text, err, "", "")
}

// call は重複排除とタイムアウトを適用して上流を呼び出す。
// 共有される呼び出しは先頭の呼び出し元のキャンセルに引きずられないようにする。
func (c *Client) call(ctx context.Context, op, key, prompt string) (string, error) {
	ch := c.group.DoChan(key, func() (any, error) {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.config.Timeout)
		defer cancel()

		start := time.Now()
		text, err := c.provider.Generate(callCtx, c.config.Model, prompt)
		c.metrics.RecordAssistantLatency(op, time.Since(start))
		return text, err
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// resolve は上流の結果をフォールバック込みの文言に変換する。
func (c *Client) resolve(op, text string, err error, failed, empty string) string {
	if err != nil {
		slog.Warn("assistant call failed",
			slog.String("operation", op),
			slog.String("error", err.Error()),
		)
		c.metrics.RecordAssistantCall(op, metrics.OutcomeError)
		return failed
	}

	text = strings.TrimSpace(text)
	if text == "" {
		c.metrics.RecordAssistantCall(op, metrics.OutcomeFallback)
		return empty
	}

	c.metrics.RecordAssistantCall(op, metrics.OutcomeOK)
	return text
}

func dedupeKey(session *model.Session, op, gameID string, minutes int) string {
	userID := ""
	if session != nil {
		userID = session.UserID
	}
	return fmt.Sprintf("%s|%s|%s|%d", userID, op, gameID, minutes)
}
