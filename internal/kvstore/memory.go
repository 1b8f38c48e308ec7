package kvstore

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

// MemoryStore はgo-cacheを使ったプロセス内ストア。
// ブラウザのローカルストレージ相当で、プロセス終了とともに内容は失われる。
type MemoryStore struct {
	cache *cache.Cache
}

// NewMemoryStore はMemoryStoreを生成する。
// 期限付きエントリは10分ごとに掃除される。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		cache: cache.New(cache.NoExpiration, 10*time.Minute),
	}
}

// Get はキーの値のコピーを返す。
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	x, found := s.cache.Get(key)
	if !found {
		return nil, ErrNotFound
	}
	b, ok := x.([]byte)
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

// Set は値のコピーを保存する。
func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	exp := cache.NoExpiration
	if ttl > 0 {
		exp = ttl
	}
	b := make([]byte, len(value))
	copy(b, value)
	s.cache.Set(key, b, exp)
	return nil
}

// SetIfAbsent はgo-cacheのAddで不可分に保存する。
func (s *MemoryStore) SetIfAbsent(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	exp := cache.NoExpiration
	if ttl > 0 {
		exp = ttl
	}
	b := make([]byte, len(value))
	copy(b, value)
	if err := s.cache.Add(key, b, exp); err != nil {
		return false, nil
	}
	return true, nil
}

// Delete はキーを削除する。
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.cache.Delete(key)
	return nil
}

// PingContext は常に成功する。
func (s *MemoryStore) PingContext(_ context.Context) error {
	return nil
}

var _ Store = (*MemoryStore)(nil)
