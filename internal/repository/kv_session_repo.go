package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hitoshi/questlog/internal/kvstore"
	"github.com/hitoshi/questlog/internal/model"
)

type kvSession struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// KVSessionRepo はキーバリューストアを使用したセッションリポジトリ。
// キーは "session_{token}" で、有効期限までのTTLを付けて保存する。
type KVSessionRepo struct {
	store kvstore.Store
	now   func() time.Time
}

// NewKVSessionRepo はKVSessionRepoを生成する。
func NewKVSessionRepo(store kvstore.Store) *KVSessionRepo {
	return &KVSessionRepo{store: store, now: time.Now}
}

func sessionKey(id string) string {
	return "session_" + id
}

// Create はセッションを作成する。
func (r *KVSessionRepo) Create(ctx context.Context, session *model.Session) error {
	ttl := session.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		return fmt.Errorf("failed to create session: already expired")
	}

	raw, err := json.Marshal(kvSession{
		ID:        session.ID,
		UserID:    session.UserID,
		Username:  session.Username,
		ExpiresAt: session.ExpiresAt,
		CreatedAt: session.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := r.store.Set(ctx, sessionKey(session.ID), raw, ttl); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
func (r *KVSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	raw, err := r.store.Get(ctx, sessionKey(id))
	if errors.Is(err, kvstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}

	var rec kvSession
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	session := &model.Session{
		ID:        rec.ID,
		UserID:    rec.UserID,
		Username:  rec.Username,
		ExpiresAt: rec.ExpiresAt,
		CreatedAt: rec.CreatedAt,
	}
	if session.Expired(r.now()) {
		return nil, nil
	}
	return session, nil
}

// DeleteByID は指定IDのセッションを削除する。
func (r *KVSessionRepo) DeleteByID(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, sessionKey(id)); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpired はTTLでストア側が失効させるため何もしない。
func (r *KVSessionRepo) DeleteExpired(_ context.Context) (int64, error) {
	return 0, nil
}

// compile-time interface check
var _ SessionRepository = (*KVSessionRepo)(nil)
