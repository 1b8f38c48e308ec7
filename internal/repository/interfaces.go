// Package repository はデータ永続化のインターフェースと実装を定義する。
// キーバリューストア（プロセス内/Redis）とPostgreSQLの2系統の実装を持つ。
package repository

import (
	"context"
	"errors"

	"github.com/hitoshi/questlog/internal/model"
)

// ErrDuplicateUser はユーザー名（大文字小文字を区別しない）が既に登録済みであることを表す。
var ErrDuplicateUser = errors.New("repository: duplicate username")

// EntityRepository はユーザー所有エンティティ配列の永続化インターフェース。
// ゲーム・アイデア・アプリ・学習トピックの4種別で共通に使う。
type EntityRepository[T model.Entity] interface {
	// Load は指定ユーザーの全エンティティを作成日時の新しい順で返す。
	// データが無い場合は空スライスを返す。
	Load(ctx context.Context, userID string) ([]T, error)

	// Save はエンティティをIDでUPSERTする。
	Save(ctx context.Context, userID string, entity T) error

	// SaveAll は複数のエンティティをUPSERTする。
	// 同一IDが複数含まれる場合は最初のものだけが保存される。
	SaveAll(ctx context.Context, userID string, entities []T) error

	// Delete は指定IDのエンティティを削除する。存在しない場合も成功とする。
	Delete(ctx context.Context, userID, id string) error
}

// UserRepository はローカル認証モードのユーザー永続化インターフェース。
type UserRepository interface {
	// FindByUsername はユーザー名（大文字小文字を区別しない）でユーザーを検索する。
	// 見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.User, error)

	// Create はユーザーを作成する。ユーザー名が重複する場合はErrDuplicateUserを返す。
	Create(ctx context.Context, user *model.User) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteExpired は期限切れセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}

// Set はストレージバックエンドごとのリポジトリ一式。
type Set struct {
	Games    EntityRepository[model.Game]
	Ideas    EntityRepository[model.Idea]
	Apps     EntityRepository[model.AppProject]
	Learning EntityRepository[model.LearningItem]
	Users    UserRepository
	Sessions SessionRepository
}

// dedupeByID は同一IDの重複を取り除く。最初に現れたものを残す。
func dedupeByID[T model.Entity](entities []T) []T {
	seen := make(map[string]struct{}, len(entities))
	out := make([]T, 0, len(entities))
	for _, e := range entities {
		if _, ok := seen[e.EntityID()]; ok {
			continue
		}
		seen[e.EntityID()] = struct{}{}
		out = append(out, e)
	}
	return out
}
