package model

import "time"

// Entity はリポジトリで保存されるユーザー所有エンティティの共通インターフェース。
type Entity interface {
	EntityID() string
	Created() time.Time
}

// エンティティ種別。キーバリューストアのキー接頭辞にも使われる。
const (
	KindGames    = "games"
	KindIdeas    = "ideas"
	KindApps     = "apps"
	KindLearning = "learn"
)

var (
	_ Entity = Game{}
	_ Entity = Idea{}
	_ Entity = AppProject{}
	_ Entity = LearningItem{}
)
