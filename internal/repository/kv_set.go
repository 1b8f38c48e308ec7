package repository

import (
	"github.com/hitoshi/questlog/internal/kvstore"
	"github.com/hitoshi/questlog/internal/model"
)

// NewKVSet はキーバリューストア上のリポジトリ一式を生成する。
func NewKVSet(store kvstore.Store) *Set {
	return &Set{
		Games:    NewKVEntityRepo[model.Game](store, model.KindGames),
		Ideas:    NewKVEntityRepo[model.Idea](store, model.KindIdeas),
		Apps:     NewKVEntityRepo[model.AppProject](store, model.KindApps),
		Learning: NewKVEntityRepo[model.LearningItem](store, model.KindLearning),
		Users:    NewKVUserRepo(store),
		Sessions: NewKVSessionRepo(store),
	}
}
