package hub

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/hitoshi/questlog/internal/model"
)

// defaultPlatform は作成時にプラットフォームが空の場合の値。
const defaultPlatform = "PC"

// GameFilter はゲーム一覧の絞り込み条件。
type GameFilter struct {
	Query  string           // タイトルまたはプラットフォームの部分一致（大文字小文字を区別しない）
	Status model.GameStatus // 空の場合は全件
}

// GameInput はゲームの作成・更新の入力。
// 更新時、Notes以外の空のフィールドとnilの進捗率は既存の値を保持する。
type GameInput struct {
	Title                string           `json:"title"`
	Platform             string           `json:"platform"`
	Status               model.GameStatus `json:"status"`
	CompletionPercentage *int             `json:"completion_percentage"`
	CoverURL             string           `json:"cover_url"`
	Notes                string           `json:"notes"`
}

// PlaySessionInput はプレイセッション追加の入力。
type PlaySessionInput struct {
	Date            *time.Time      `json:"date"`
	DurationMinutes int             `json:"duration_minutes"`
	Notes           string          `json:"notes"`
	Sentiment       model.Sentiment `json:"sentiment"`
}

// Games はゲーム一覧を新しい順で返す。
func (s *Service) Games(ctx context.Context, session *model.Session, filter GameFilter) ([]model.Game, error) {
	ws, err := s.workspace(ctx, session)
	if err != nil {
		return nil, err
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, model.NewValidationError(fmt.Sprintf("不明なステータスです: %s", filter.Status))
	}

	ws.mu.Lock()
	games := ws.games.list()
	ws.mu.Unlock()

	query := strings.ToLower(strings.TrimSpace(filter.Query))
	return slices.DeleteFunc(games, func(g model.Game) bool {
		if filter.Status != "" && g.Status != filter.Status {
			return true
		}
		if query == "" {
			return false
		}
		return !strings.Contains(strings.ToLower(g.Title), query) &&
			!strings.Contains(strings.ToLower(g.Platform), query)
	}), nil
}

// Game は詳細表示用にゲームを1件返す。状態は変更しない。
func (s *Service) Game(ctx context.Context, session *model.Session, id string) (*model.Game, error) {
	ws, err := s.workspace(ctx, session)
	if err != nil {
		return nil, err
	}
	ws.mu.Lock()
	defer ws.mu.Unlock()

	g, ok := ws.games.get(id)
	if !ok {
		return nil, model.NewNotFoundError("ゲーム", id)
	}
	return &g, nil
}

// CreateGame はゲームを作成し、一覧の先頭に追加する。
func (s *Service) CreateGame(ctx context.Context, session *model.Session, in GameInput) (*model.Game, error) {
	ws, err := s.workspace(ctx, session)
	if err != nil {
		return nil, err
	}

	title, err := s.requireText("タイトル", in.Title)
	if err != nil {
		return nil, err
	}
	game := model.Game{
		ID:        s.newID(),
		Title:     title,
		Platform:  s.sanitizer.Sanitize(in.Platform),
		Status:    in.Status,
		CoverURL:  strings.TrimSpace(in.CoverURL),
		Notes:     s.sanitizer.Sanitize(in.Notes),
		Sessions:  []model.PlaySession{},
		CreatedAt: s.now(),
	}
	if game.Platform == "" {
		game.Platform = defaultPlatform
	}
	if game.Status == "" {
		game.Status = model.GameStatusPlaying
	}
	if in.CompletionPercentage != nil {
		game.CompletionPercentage = *in.CompletionPercentage
	}
	if err := validateGame(game); err != nil {
		return nil, err
	}

	ws.mu.Lock()
	defer ws.mu.Unlock()
	if err := s.persisted(model.KindGames, opCreate, session.UserID, ws.games.insert(ctx, session.UserID, game)); err != nil {
		return nil, err
	}
	out := game.Clone()
	return &out, nil
}

// UpdateGame はゲームの基本情報を更新する。セッション履歴は変更しない。
func (s *Service) UpdateGame(ctx context.Context, session *model.Session, id string, in GameInput) (*model.Game, error) {
	return s.mutateGame(ctx, session, id, func(g *model.Game) error {
		if strings.TrimSpace(in.Title) != "" {
			title, err := s.requireText("タイトル", in.Title)
			if err != nil {
				return err
			}
			g.Title = title
		}
		if p := s.sanitizer.Sanitize(in.Platform); p != "" {
			g.Platform = p
		}
		if in.Status != "" {
			g.Status = in.Status
		}
		if in.CompletionPercentage != nil {
			g.CompletionPercentage = *in.CompletionPercentage
		}
		if u := strings.TrimSpace(in.CoverURL); u != "" {
			g.CoverURL = u
		}
		g.Notes = s.sanitizer.Sanitize(in.Notes)
		return nil
	})
}

// DeleteGame はゲームを削除する。存在しないIDでも成功とする。
func (s *Service) DeleteGame(ctx context.Context, session *model.Session, id string) error {
	ws, err := s.workspace(ctx, session)
	if err != nil {
		return err
	}
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return s.persisted(model.KindGames, opDelete, session.UserID, ws.games.remove(ctx, session.UserID, id))
}

// SetGameStatus はゲームのステータスを変更する。
func (s *Service) SetGameStatus(ctx context.Context, session *model.Session, id string, status model.GameStatus) (*model.Game, error) {
	return s.mutateGame(ctx, session, id, func(g *model.Game) error {
		g.Status = status
		return nil
	})
}

// SetGameProgress はゲームの進捗率を変更する。0から100の範囲外はエラーとなる。
func (s *Service) SetGameProgress(ctx context.Context, session *model.Session, id string, percentage int) (*model.Game, error) {
	return s.mutateGame(ctx, session, id, func(g *model.Game) error {
		g.CompletionPercentage = percentage
		return nil
	})
}

// AddPlaySession はプレイセッションを末尾に追加し、最終プレイ日時を更新する。
func (s *Service) AddPlaySession(ctx context.Context, session *model.Session, gameID string, in PlaySessionInput) (*model.Game, error) {
	if in.DurationMinutes <= 0 {
		return nil, model.NewValidationError("プレイ時間は1分以上で入力してください")
	}
	if !in.Sentiment.Valid() {
		return nil, model.NewValidationError(fmt.Sprintf("不明な手応えです: %s", in.Sentiment))
	}

	return s.mutateGame(ctx, session, gameID, func(g *model.Game) error {
		now := s.now()
		date := now
		if in.Date != nil && !in.Date.IsZero() {
			date = in.Date.UTC()
		}
		g.Sessions = append(g.Sessions, model.PlaySession{
			ID:              s.newID(),
			Date:            date,
			DurationMinutes: in.DurationMinutes,
			Notes:           s.sanitizer.Sanitize(in.Notes),
			Sentiment:       in.Sentiment,
		})
		g.LastPlayed = &now
		return nil
	})
}

// RemovePlaySession はプレイセッションを削除する。存在しないセッションIDの場合は何もしない。
func (s *Service) RemovePlaySession(ctx context.Context, session *model.Session, gameID, sessionID string) (*model.Game, error) {
	return s.mutateGame(ctx, session, gameID, func(g *model.Game) error {
		g.Sessions = slices.DeleteFunc(g.Sessions, func(ps model.PlaySession) bool {
			return ps.ID == sessionID
		})
		return nil
	})
}

// mutateGame はゲームのコピーに変更を適用し、検証と永続化に成功した場合のみ置き換える。
func (s *Service) mutateGame(ctx context.Context, session *model.Session, id string, apply func(*model.Game) error) (*model.Game, error) {
	ws, err := s.workspace(ctx, session)
	if err != nil {
		return nil, err
	}
	ws.mu.Lock()
	defer ws.mu.Unlock()

	game, ok := ws.games.get(id)
	if !ok {
		return nil, model.NewNotFoundError("ゲーム", id)
	}
	if err := apply(&game); err != nil {
		return nil, err
	}
	if err := validateGame(game); err != nil {
		return nil, err
	}
	if err := s.persisted(model.KindGames, opUpdate, session.UserID, ws.games.replace(ctx, session.UserID, game)); err != nil {
		return nil, err
	}
	out := game.Clone()
	return &out, nil
}

func validateGame(g model.Game) error {
	if !g.Status.Valid() {
		return model.NewValidationError(fmt.Sprintf("不明なステータスです: %s", g.Status))
	}
	if g.CompletionPercentage < model.MinCompletion || g.CompletionPercentage > model.MaxCompletion {
		return model.NewValidationError(fmt.Sprintf("進捗率は%dから%dの範囲で入力してください", model.MinCompletion, model.MaxCompletion))
	}
	return nil
}
