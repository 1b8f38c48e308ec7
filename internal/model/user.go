// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// ローカルモードではIDは登録時のユーザー名、ホステッドモードではIdPのユーザーIDとなる。
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string // ローカルモードのみ（bcrypt）
	CreatedAt    time.Time
}

// Session はユーザーのログインセッションを表す。
// リポジトリやアシスタント呼び出しに明示的に渡すセッションコンテキストでもある。
type Session struct {
	ID        string // セッショントークン
	UserID    string
	Username  string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired はセッションが指定時刻の時点で期限切れかどうかを返す。
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}
