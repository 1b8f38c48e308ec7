package hub

import (
	"context"
	"slices"

	"github.com/hitoshi/questlog/internal/model"
	"github.com/hitoshi/questlog/internal/repository"
)

// entity はワークスペースで保持できる要素の制約。
type entity[T any] interface {
	model.Entity
	Clone() T
}

// collection は1種別分の順序付きエンティティ列。先頭が最新。
// 変更は永続化に成功した後にのみメモリへ反映する。
type collection[T entity[T]] struct {
	kind  string
	repo  repository.EntityRepository[T]
	items []T
}

func newCollection[T entity[T]](kind string, repo repository.EntityRepository[T]) *collection[T] {
	return &collection[T]{kind: kind, repo: repo, items: []T{}}
}

// list は呼び出し元が変更しても影響しないコピーを返す。
func (c *collection[T]) list() []T {
	out := make([]T, len(c.items))
	for i, v := range c.items {
		out[i] = v.Clone()
	}
	return out
}

func (c *collection[T]) index(id string) int {
	return slices.IndexFunc(c.items, func(v T) bool { return v.EntityID() == id })
}

// get は指定IDの要素のコピーを返す。
func (c *collection[T]) get(id string) (T, bool) {
	i := c.index(id)
	if i < 0 {
		var zero T
		return zero, false
	}
	return c.items[i].Clone(), true
}

func (c *collection[T]) insert(ctx context.Context, userID string, v T) error {
	if err := c.repo.Save(ctx, userID, v); err != nil {
		return err
	}
	c.items = append([]T{v}, c.items...)
	return nil
}

// replace は同じIDの要素を位置を保ったまま置き換える。
func (c *collection[T]) replace(ctx context.Context, userID string, v T) error {
	i := c.index(v.EntityID())
	if i < 0 {
		return model.NewNotFoundError(c.kind, v.EntityID())
	}
	if err := c.repo.Save(ctx, userID, v); err != nil {
		return err
	}
	c.items[i] = v
	return nil
}

func (c *collection[T]) remove(ctx context.Context, userID, id string) error {
	if err := c.repo.Delete(ctx, userID, id); err != nil {
		return err
	}
	if i := c.index(id); i >= 0 {
		c.items = slices.Delete(c.items, i, i+1)
	}
	return nil
}
