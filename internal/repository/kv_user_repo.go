package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hitoshi/questlog/internal/kvstore"
	"github.com/hitoshi/questlog/internal/model"
)

// kvUser はキーバリューストア上のユーザーレコード。
type kvUser struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email,omitempty"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

// KVUserRepo はキーバリューストアを使用したユーザーリポジトリ。
// キーは "user_{小文字化したユーザー名}"。
type KVUserRepo struct {
	store kvstore.Store
}

// NewKVUserRepo はKVUserRepoを生成する。
func NewKVUserRepo(store kvstore.Store) *KVUserRepo {
	return &KVUserRepo{store: store}
}

func userKey(username string) string {
	return "user_" + strings.ToLower(username)
}

// FindByUsername はユーザー名（大文字小文字を区別しない）でユーザーを検索する。
func (r *KVUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	raw, err := r.store.Get(ctx, userKey(username))
	if errors.Is(err, kvstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by username: %w", err)
	}

	var rec kvUser
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode user: %w", err)
	}
	return &model.User{
		ID:           rec.ID,
		Username:     rec.Username,
		Email:        rec.Email,
		PasswordHash: rec.PasswordHash,
		CreatedAt:    rec.CreatedAt,
	}, nil
}

// Create はユーザーを作成する。
// 同じキーを共有する複数プロセスから同時に呼ばれても、作成に成功するのは1件だけ。
func (r *KVUserRepo) Create(ctx context.Context, user *model.User) error {
	raw, err := json.Marshal(kvUser{
		ID:           user.ID,
		Username:     user.Username,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		CreatedAt:    user.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to encode user: %w", err)
	}
	created, err := r.store.SetIfAbsent(ctx, userKey(user.Username), raw, 0)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	if !created {
		return ErrDuplicateUser
	}
	return nil
}

// compile-time interface check
var _ UserRepository = (*KVUserRepo)(nil)
