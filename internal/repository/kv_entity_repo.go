package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/hitoshi/questlog/internal/kvstore"
	"github.com/hitoshi/questlog/internal/model"
)

// KVEntityRepo はキーバリューストアにエンティティ配列をJSONで保存するリポジトリ。
// キーは "{kind}_{userID}" の形式。
type KVEntityRepo[T model.Entity] struct {
	store kvstore.Store
	kind  string
	mu    sync.Mutex
}

// NewKVEntityRepo はKVEntityRepoを生成する。kindはmodel.KindGames等を指定する。
func NewKVEntityRepo[T model.Entity](store kvstore.Store, kind string) *KVEntityRepo[T] {
	return &KVEntityRepo[T]{store: store, kind: kind}
}

func (r *KVEntityRepo[T]) key(userID string) string {
	return r.kind + "_" + userID
}

// Load は保存済み配列を作成日時の新しい順で返す。
func (r *KVEntityRepo[T]) Load(ctx context.Context, userID string) ([]T, error) {
	return r.load(ctx, userID)
}

func (r *KVEntityRepo[T]) load(ctx context.Context, userID string) ([]T, error) {
	raw, err := r.store.Get(ctx, r.key(userID))
	if errors.Is(err, kvstore.ErrNotFound) {
		return []T{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", r.kind, err)
	}

	var entities []T
	if err := json.Unmarshal(raw, &entities); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", r.kind, err)
	}
	if entities == nil {
		entities = []T{}
	}
	sortNewestFirst(entities)
	return entities, nil
}

func (r *KVEntityRepo[T]) write(ctx context.Context, userID string, entities []T) error {
	sortNewestFirst(entities)
	raw, err := json.Marshal(entities)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", r.kind, err)
	}
	if err := r.store.Set(ctx, r.key(userID), raw, 0); err != nil {
		return fmt.Errorf("failed to save %s: %w", r.kind, err)
	}
	return nil
}

// Save はエンティティをIDでUPSERTする。
func (r *KVEntityRepo[T]) Save(ctx context.Context, userID string, entity T) error {
	return r.SaveAll(ctx, userID, []T{entity})
}

// SaveAll は複数のエンティティをUPSERTする。
func (r *KVEntityRepo[T]) SaveAll(ctx context.Context, userID string, entities []T) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, err := r.load(ctx, userID)
	if err != nil {
		return err
	}

	index := make(map[string]int, len(current))
	for i, e := range current {
		index[e.EntityID()] = i
	}
	for _, e := range dedupeByID(entities) {
		if i, ok := index[e.EntityID()]; ok {
			current[i] = e
			continue
		}
		index[e.EntityID()] = len(current)
		current = append(current, e)
	}

	return r.write(ctx, userID, current)
}

// Delete は指定IDのエンティティを削除する。
func (r *KVEntityRepo[T]) Delete(ctx context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, err := r.load(ctx, userID)
	if err != nil {
		return err
	}

	kept := current[:0]
	for _, e := range current {
		if e.EntityID() != id {
			kept = append(kept, e)
		}
	}
	if len(kept) == len(current) {
		return nil
	}
	return r.write(ctx, userID, kept)
}

// sortNewestFirst は作成日時の新しい順に並べ替える。同時刻は元の順序を保つ。
func sortNewestFirst[T model.Entity](entities []T) {
	sort.SliceStable(entities, func(i, j int) bool {
		return entities[i].Created().After(entities[j].Created())
	})
}

var (
	_ EntityRepository[model.Game]         = (*KVEntityRepo[model.Game])(nil)
	_ EntityRepository[model.Idea]         = (*KVEntityRepo[model.Idea])(nil)
	_ EntityRepository[model.AppProject]   = (*KVEntityRepo[model.AppProject])(nil)
	_ EntityRepository[model.LearningItem] = (*KVEntityRepo[model.LearningItem])(nil)
)
