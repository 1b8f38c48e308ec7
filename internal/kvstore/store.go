// Package kvstore はエンティティ配列やセッションを保存するキーバリューストアを提供する。
// プロセス内ストア（go-cache）とRedisの2実装を持ち、起動時の設定で切り替える。
package kvstore

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound はキーが存在しないことを表す。
var ErrNotFound = errors.New("kvstore: key not found")

// Store はキーバリューストアのインターフェース。
type Store interface {
	// Get はキーの値を返す。存在しない場合はErrNotFoundを返す。
	Get(ctx context.Context, key string) ([]byte, error)
	// Set はキーに値を保存する。ttlが0以下の場合は期限なし。
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// SetIfAbsent はキーが存在しない場合に限り値を保存する。
	// 保存した場合はtrue、既に存在した場合はfalseを返す。判定と保存は不可分に行う。
	SetIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	// Delete はキーを削除する。存在しないキーの削除はエラーにならない。
	Delete(ctx context.Context, key string) error
	// PingContext はストアへの疎通を確認する。
	PingContext(ctx context.Context) error
}
