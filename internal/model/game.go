// Package model はドメインモデルを定義する。
package model

import "time"

// GameStatus はゲームのプレイ状態を表す。
type GameStatus string

const (
	GameStatusPlaying   GameStatus = "Playing"
	GameStatusPaused    GameStatus = "Paused"
	GameStatusCompleted GameStatus = "Completed"
	GameStatusAbandoned GameStatus = "Abandoned"
	GameStatusWishlist  GameStatus = "Wishlist"
)

// GameStatuses は表示順に並べた全ステータス。
var GameStatuses = []GameStatus{
	GameStatusPlaying,
	GameStatusPaused,
	GameStatusCompleted,
	GameStatusAbandoned,
	GameStatusWishlist,
}

// Valid は定義済みのステータスかどうかを返す。
func (s GameStatus) Valid() bool {
	for _, v := range GameStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Sentiment はプレイセッションの手応えを表す。
type Sentiment string

const (
	SentimentPositive   Sentiment = "positive"
	SentimentNeutral    Sentiment = "neutral"
	SentimentFrustrated Sentiment = "frustrated"
)

// Valid は定義済みの値かどうかを返す。空文字列（未指定）も許可する。
func (s Sentiment) Valid() bool {
	switch s {
	case "", SentimentPositive, SentimentNeutral, SentimentFrustrated:
		return true
	default:
		return false
	}
}

const (
	// MinCompletion は進捗率の下限。
	MinCompletion = 0
	// MaxCompletion は進捗率の上限。
	MaxCompletion = 100
)

// Game はユーザーが記録するビデオゲームを表す。
// Sessionsは古い順に並ぶ。
type Game struct {
	ID                   string        `json:"id"`
	Title                string        `json:"title"`
	Platform             string        `json:"platform"`
	Status               GameStatus    `json:"status"`
	CompletionPercentage int           `json:"completion_percentage"`
	CoverURL             string        `json:"cover_url,omitempty"`
	Sessions             []PlaySession `json:"sessions"`
	LastPlayed           *time.Time    `json:"last_played,omitempty"`
	Notes                string        `json:"notes"`
	CreatedAt            time.Time     `json:"created_at"`
}

// PlaySession はゲームに紐づく1回分のプレイ記録を表す。
// 認証セッション（Session）とは別物。
type PlaySession struct {
	ID              string    `json:"id"`
	Date            time.Time `json:"date"`
	DurationMinutes int       `json:"duration_minutes"`
	Notes           string    `json:"notes"`
	Sentiment       Sentiment `json:"sentiment,omitempty"`
}

// EntityID はエンティティIDを返す。
func (g Game) EntityID() string { return g.ID }

// Created は作成日時を返す。
func (g Game) Created() time.Time { return g.CreatedAt }

// RecentSessions は直近n件のセッションを新しい順で返す。
func (g Game) RecentSessions(n int) []PlaySession {
	if n <= 0 || len(g.Sessions) == 0 {
		return nil
	}
	start := len(g.Sessions) - n
	if start < 0 {
		start = 0
	}
	recent := make([]PlaySession, 0, len(g.Sessions)-start)
	for i := len(g.Sessions) - 1; i >= start; i-- {
		recent = append(recent, g.Sessions[i])
	}
	return recent
}

// TotalMinutes は全セッションのプレイ時間合計（分）を返す。
func (g Game) TotalMinutes() int {
	total := 0
	for _, s := range g.Sessions {
		total += s.DurationMinutes
	}
	return total
}

// Clone はSessionsスライスを含めたディープコピーを返す。
func (g Game) Clone() Game {
	c := g
	if g.Sessions != nil {
		c.Sessions = make([]PlaySession, len(g.Sessions))
		copy(c.Sessions, g.Sessions)
	}
	if g.LastPlayed != nil {
		t := *g.LastPlayed
		c.LastPlayed = &t
	}
	return c
}
