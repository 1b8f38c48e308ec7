// Package auth はユーザー登録、ログイン、セッション解決を提供する。
// ローカル認証（bcrypt + セッションリポジトリ）とホスト型IdPへの委譲の2実装を持ち、
// 起動時の設定（AUTH_MODE）でどちらかを選択する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strings"
	"unicode/utf8"

	"github.com/hitoshi/questlog/internal/model"
)

// MinUsernameLength はユーザー名の最小文字数。
const MinUsernameLength = 3

// 認証モードごとのパスワード最小文字数。
const (
	MinLocalPasswordLength  = 4
	MinHostedPasswordLength = 6
)

// CredentialStore は資格情報の登録・照合とセッションの管理を行うインターフェース。
type CredentialStore interface {
	// Register はユーザーを登録する。
	// 入力不正はValidationError、ユーザー名重複はDuplicateUserErrorを返す。
	Register(ctx context.Context, username, password string) error

	// Login は資格情報を照合してセッションを発行する。
	// 空入力や不一致の場合はAuthErrorを返す。
	Login(ctx context.Context, username, password string) (*model.Session, error)

	// Logout はセッションを破棄する。冪等。
	Logout(ctx context.Context, token string) error

	// CurrentUser はトークンに対応する有効なセッションを返す。
	// セッションが無い場合はnilを返す。
	CurrentUser(ctx context.Context, token string) (*model.Session, error)
}

// validateRegistration はユーザー名とパスワードの長さを検証する。
func validateRegistration(username, password string, minPassword int) error {
	if utf8.RuneCountInString(username) < MinUsernameLength {
		return model.NewValidationError("ユーザー名は3文字以上で入力してください")
	}
	if utf8.RuneCountInString(password) < minPassword {
		if minPassword == MinHostedPasswordLength {
			return model.NewValidationError("パスワードは6文字以上で入力してください")
		}
		return model.NewValidationError("パスワードは4文字以上で入力してください")
	}
	return nil
}

func normalizeUsername(username string) string {
	return strings.TrimSpace(username)
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
