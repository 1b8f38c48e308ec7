// Package hub はユーザーごとのワークスペースをメモリ上に保持するアプリケーション状態コントローラを提供する。
//
// ワークスペースはゲーム・アイデア・アプリ・学習トピックの4つの順序付きコレクションから成る。
// 全ての変更はリポジトリへの書き込みに成功してから反映され、失敗時はメモリの状態も変わらない。
package hub

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"

	"github.com/hitoshi/questlog/internal/metrics"
	"github.com/hitoshi/questlog/internal/model"
	"github.com/hitoshi/questlog/internal/repository"
	"github.com/hitoshi/questlog/internal/security"
)

// 変更操作名。メトリクスのラベルに使う。
const (
	opLoad   = "load"
	opCreate = "create"
	opUpdate = "update"
	opDelete = "delete"
)

// DefaultWorkspaceTTL はアクセスの無いワークスペースをメモリから破棄するまでの時間。
// ログアウトせずにセッションが切れたユーザーの状態を残し続けないためのもの。
const DefaultWorkspaceTTL = 24 * time.Hour

// Service はアプリケーション状態コントローラ。
type Service struct {
	repos     *repository.Set
	sanitizer security.Sanitizer
	guard     security.SSRFGuardService
	metrics   metrics.MetricsCollector
	logger    *slog.Logger

	now   func() time.Time
	newID func() string

	// mu は同一ユーザーのワークスペースを二重に読み込まないための排他。
	mu           sync.Mutex
	workspaces   *cache.Cache
	workspaceTTL time.Duration
}

// workspace は1ユーザー分のメモリ上の状態。
type workspace struct {
	mu       sync.Mutex
	games    *collection[model.Game]
	ideas    *collection[model.Idea]
	apps     *collection[model.AppProject]
	learning *collection[model.LearningItem]
}

// NewService はServiceを生成する。collectorとloggerはnilでもよい。
func NewService(
	repos *repository.Set,
	sanitizer security.Sanitizer,
	guard security.SSRFGuardService,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
) *Service {
	if collector == nil {
		collector = metrics.NopCollector{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repos:        repos,
		sanitizer:    sanitizer,
		guard:        guard,
		metrics:      collector,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
		newID:        uuid.NewString,
		workspaces:   cache.New(DefaultWorkspaceTTL, 10*time.Minute),
		workspaceTTL: DefaultWorkspaceTTL,
	}
}

// SetWorkspaceTTL はワークスペースの保持期間を設定する。最後のアクセスから数える。
// 0以下の場合は変更しない。
func (s *Service) SetWorkspaceTTL(ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	s.mu.Lock()
	s.workspaceTTL = ttl
	s.mu.Unlock()
}

// Open はユーザーの4つのコレクションを並行して読み込み直す。
// 読み込みに失敗したコレクションは空として扱う。ログイン直後に呼ぶ。
func (s *Service) Open(ctx context.Context, session *model.Session) error {
	if session == nil {
		return model.NewUnauthorizedError()
	}
	ws := s.load(ctx, session.UserID)

	s.mu.Lock()
	s.workspaces.Set(session.UserID, ws, s.workspaceTTL)
	s.mu.Unlock()
	return nil
}

// Close はユーザーのワークスペースをメモリから破棄する。ストレージは変更しない。
func (s *Service) Close(userID string) {
	s.mu.Lock()
	s.workspaces.Delete(userID)
	s.mu.Unlock()
}

// workspace は開いているワークスペースを返す。未オープンの場合は読み込む。
func (s *Service) workspace(ctx context.Context, session *model.Session) (*workspace, error) {
	if session == nil || session.UserID == "" {
		return nil, model.NewUnauthorizedError()
	}

	s.mu.Lock()
	ws, ok := s.cached(session.UserID)
	s.mu.Unlock()
	if ok {
		return ws, nil
	}

	loaded := s.load(ctx, session.UserID)

	s.mu.Lock()
	defer s.mu.Unlock()
	// 並行して別のリクエストが読み込んだ場合はそちらを使う
	if ws, ok := s.cached(session.UserID); ok {
		return ws, nil
	}
	s.workspaces.Set(session.UserID, loaded, s.workspaceTTL)
	return loaded, nil
}

// cached は保持中のワークスペースを返し、保持期限を延ばす。s.muを保持して呼ぶ。
func (s *Service) cached(userID string) (*workspace, bool) {
	x, found := s.workspaces.Get(userID)
	if !found {
		return nil, false
	}
	ws := x.(*workspace)
	s.workspaces.Set(userID, ws, s.workspaceTTL)
	return ws, true
}

func (s *Service) load(ctx context.Context, userID string) *workspace {
	ws := &workspace{
		games:    newCollection(model.KindGames, s.repos.Games),
		ideas:    newCollection(model.KindIdeas, s.repos.Ideas),
		apps:     newCollection(model.KindApps, s.repos.Apps),
		learning: newCollection(model.KindLearning, s.repos.Learning),
	}

	var g errgroup.Group
	g.Go(func() error { loadCollection(ctx, s, ws.games, userID); return nil })
	g.Go(func() error { loadCollection(ctx, s, ws.ideas, userID); return nil })
	g.Go(func() error { loadCollection(ctx, s, ws.apps, userID); return nil })
	g.Go(func() error { loadCollection(ctx, s, ws.learning, userID); return nil })
	_ = g.Wait()

	return ws
}

func loadCollection[T entity[T]](ctx context.Context, s *Service, c *collection[T], userID string) {
	items, err := c.repo.Load(ctx, userID)
	if err != nil {
		s.logger.Error("コレクションの読み込みに失敗しました",
			slog.String("kind", c.kind),
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		s.metrics.RecordPersistenceError(c.kind, opLoad)
		return
	}
	if items != nil {
		c.items = items
	}
}

// persisted は永続化の結果をメトリクスとログに記録し、呼び出し元に返すエラーに変換する。
// APIError（NotFound等）はそのまま返す。
func (s *Service) persisted(kind, op, userID string, err error) error {
	if err == nil {
		s.metrics.RecordMutation(kind, op)
		return nil
	}
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	s.logger.Error("エンティティの保存に失敗しました",
		slog.String("kind", kind),
		slog.String("op", op),
		slog.String("user_id", userID),
		slog.String("error", err.Error()),
	)
	s.metrics.RecordPersistenceError(kind, op)
	return model.NewPersistenceError()
}

// requireText はサニタイズ後に空になる必須項目を検証する。
func (s *Service) requireText(field, raw string) (string, error) {
	v := s.sanitizer.Sanitize(raw)
	if v == "" {
		return "", model.NewValidationError(fmt.Sprintf("%sは必須です", field))
	}
	return v, nil
}
