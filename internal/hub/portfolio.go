package hub

import (
	"context"
	"fmt"

	"github.com/hitoshi/questlog/internal/model"
	"github.com/hitoshi/questlog/internal/security"
)

// defaultCategory は学習トピック作成時にカテゴリが空の場合の値。
const defaultCategory = "Frontend"

// IdeaInput はアイデアの作成・更新の入力。
// 更新時、空のTitleとPriority、nilのTagsは既存の値を保持する。
type IdeaInput struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Tags        []string       `json:"tags"`
	Priority    model.Priority `json:"priority"`
}

// AppInput はアプリの作成・更新の入力。
// 更新時、空のNameとStatus、nilのTechStackは既存の値を保持する。URLは常に置き換える。
type AppInput struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	URL         string          `json:"url"`
	TechStack   []string        `json:"tech_stack"`
	Status      model.AppStatus `json:"status"`
}

// LearningInput は学習トピックの作成・更新の入力。
// 更新時、空のTopic・Category・Statusは既存の値を保持する。
type LearningInput struct {
	Topic    string               `json:"topic"`
	Category string               `json:"category"`
	Status   model.LearningStatus `json:"status"`
	Notes    string               `json:"notes"`
}

// --- アイデア ---

// Ideas はアイデア一覧を新しい順で返す。
func (s *Service) Ideas(ctx context.Context, session *model.Session) ([]model.Idea, error) {
	return listOf(ctx, s, session, ideasOf)
}

// Idea はアイデアを1件返す。
func (s *Service) Idea(ctx context.Context, session *model.Session, id string) (*model.Idea, error) {
	return getOf(ctx, s, session, ideasOf, "アイデア", id)
}

// CreateIdea はアイデアを作成する。優先度の既定値はmedium。
func (s *Service) CreateIdea(ctx context.Context, session *model.Session, in IdeaInput) (*model.Idea, error) {
	title, err := s.requireText("タイトル", in.Title)
	if err != nil {
		return nil, err
	}
	idea := model.Idea{
		ID:          s.newID(),
		Title:       title,
		Description: s.sanitizer.Sanitize(in.Description),
		Tags:        s.sanitizer.SanitizeList(in.Tags),
		Priority:    in.Priority,
		CreatedAt:   s.now(),
	}
	if idea.Priority == "" {
		idea.Priority = model.PriorityMedium
	}
	if !idea.Priority.Valid() {
		return nil, model.NewValidationError(fmt.Sprintf("不明な優先度です: %s", idea.Priority))
	}
	return createOf(ctx, s, session, ideasOf, idea)
}

// UpdateIdea はアイデアを位置を保ったまま更新する。
func (s *Service) UpdateIdea(ctx context.Context, session *model.Session, id string, in IdeaInput) (*model.Idea, error) {
	return updateOf(ctx, s, session, ideasOf, "アイデア", id, func(idea *model.Idea) error {
		if title := s.sanitizer.Sanitize(in.Title); title != "" {
			idea.Title = title
		}
		idea.Description = s.sanitizer.Sanitize(in.Description)
		if in.Tags != nil {
			idea.Tags = s.sanitizer.SanitizeList(in.Tags)
		}
		if in.Priority != "" {
			if !in.Priority.Valid() {
				return model.NewValidationError(fmt.Sprintf("不明な優先度です: %s", in.Priority))
			}
			idea.Priority = in.Priority
		}
		return nil
	})
}

// DeleteIdea はアイデアを削除する。存在しないIDでも成功とする。
func (s *Service) DeleteIdea(ctx context.Context, session *model.Session, id string) error {
	return deleteOf(ctx, s, session, ideasOf, id)
}

// --- アプリ ---

// Apps はアプリ一覧を新しい順で返す。
func (s *Service) Apps(ctx context.Context, session *model.Session) ([]model.AppProject, error) {
	return listOf(ctx, s, session, appsOf)
}

// App はアプリを1件返す。
func (s *Service) App(ctx context.Context, session *model.Session, id string) (*model.AppProject, error) {
	return getOf(ctx, s, session, appsOf, "アプリ", id)
}

// CreateApp はアプリを作成する。状態の既定値はDevelopment。
func (s *Service) CreateApp(ctx context.Context, session *model.Session, in AppInput) (*model.AppProject, error) {
	name, err := s.requireText("名前", in.Name)
	if err != nil {
		return nil, err
	}
	url, err := s.appURL(in.URL)
	if err != nil {
		return nil, err
	}
	app := model.AppProject{
		ID:          s.newID(),
		Name:        name,
		Description: s.sanitizer.Sanitize(in.Description),
		URL:         url,
		TechStack:   s.sanitizer.SanitizeList(in.TechStack),
		Status:      in.Status,
		CreatedAt:   s.now(),
	}
	if app.Status == "" {
		app.Status = model.AppStatusDevelopment
	}
	if !app.Status.Valid() {
		return nil, model.NewValidationError(fmt.Sprintf("不明な状態です: %s", app.Status))
	}
	return createOf(ctx, s, session, appsOf, app)
}

// UpdateApp はアプリを位置を保ったまま更新する。
func (s *Service) UpdateApp(ctx context.Context, session *model.Session, id string, in AppInput) (*model.AppProject, error) {
	url, err := s.appURL(in.URL)
	if err != nil {
		return nil, err
	}
	return updateOf(ctx, s, session, appsOf, "アプリ", id, func(app *model.AppProject) error {
		if name := s.sanitizer.Sanitize(in.Name); name != "" {
			app.Name = name
		}
		app.Description = s.sanitizer.Sanitize(in.Description)
		app.URL = url
		if in.TechStack != nil {
			app.TechStack = s.sanitizer.SanitizeList(in.TechStack)
		}
		if in.Status != "" {
			if !in.Status.Valid() {
				return model.NewValidationError(fmt.Sprintf("不明な状態です: %s", in.Status))
			}
			app.Status = in.Status
		}
		return nil
	})
}

// DeleteApp はアプリを削除する。存在しないIDでも成功とする。
func (s *Service) DeleteApp(ctx context.Context, session *model.Session, id string) error {
	return deleteOf(ctx, s, session, appsOf, id)
}

// CheckAppURL はアプリのURLへ到達できるかを確認する。
// プライベートアドレスへの接続はSSRF防止クライアントが拒否する。
func (s *Service) CheckAppURL(ctx context.Context, session *model.Session, id string) (*security.ProbeResult, error) {
	app, err := s.App(ctx, session, id)
	if err != nil {
		return nil, err
	}
	if app.URL == "" {
		return nil, model.NewValidationError("アプリにURLが設定されていません")
	}
	result, err := s.guard.Probe(ctx, app.URL)
	if err != nil {
		return nil, model.NewValidationError(err.Error())
	}
	return result, nil
}

// appURL は空でないURLを検証する。空文字列はURL無しとして許可する。
func (s *Service) appURL(raw string) (string, error) {
	if raw == "" {
		return "", nil
	}
	if err := s.guard.ValidateURL(raw); err != nil {
		return "", model.NewValidationError(fmt.Sprintf("URLが不正です: %v", err))
	}
	return raw, nil
}

// --- 学習トピック ---

// LearningItems は学習トピック一覧を新しい順で返す。
func (s *Service) LearningItems(ctx context.Context, session *model.Session) ([]model.LearningItem, error) {
	return listOf(ctx, s, session, learningOf)
}

// LearningItem は学習トピックを1件返す。
func (s *Service) LearningItem(ctx context.Context, session *model.Session, id string) (*model.LearningItem, error) {
	return getOf(ctx, s, session, learningOf, "学習トピック", id)
}

// CreateLearningItem は学習トピックを作成する。状態の既定値はLearning。
func (s *Service) CreateLearningItem(ctx context.Context, session *model.Session, in LearningInput) (*model.LearningItem, error) {
	topic, err := s.requireText("トピック", in.Topic)
	if err != nil {
		return nil, err
	}
	item := model.LearningItem{
		ID:        s.newID(),
		Topic:     topic,
		Category:  s.sanitizer.Sanitize(in.Category),
		Status:    in.Status,
		Notes:     s.sanitizer.Sanitize(in.Notes),
		CreatedAt: s.now(),
	}
	if item.Category == "" {
		item.Category = defaultCategory
	}
	if item.Status == "" {
		item.Status = model.LearningStatusLearning
	}
	if !item.Status.Valid() {
		return nil, model.NewValidationError(fmt.Sprintf("不明な状態です: %s", item.Status))
	}
	return createOf(ctx, s, session, learningOf, item)
}

// UpdateLearningItem は学習トピックを位置を保ったまま更新する。
func (s *Service) UpdateLearningItem(ctx context.Context, session *model.Session, id string, in LearningInput) (*model.LearningItem, error) {
	return updateOf(ctx, s, session, learningOf, "学習トピック", id, func(item *model.LearningItem) error {
		if topic := s.sanitizer.Sanitize(in.Topic); topic != "" {
			item.Topic = topic
		}
		if category := s.sanitizer.Sanitize(in.Category); category != "" {
			item.Category = category
		}
		if in.Status != "" {
			if !in.Status.Valid() {
				return model.NewValidationError(fmt.Sprintf("不明な状態です: %s", in.Status))
			}
			item.Status = in.Status
		}
		item.Notes = s.sanitizer.Sanitize(in.Notes)
		return nil
	})
}

// DeleteLearningItem は学習トピックを削除する。存在しないIDでも成功とする。
func (s *Service) DeleteLearningItem(ctx context.Context, session *model.Session, id string) error {
	return deleteOf(ctx, s, session, learningOf, id)
}

// --- 共通処理 ---

func ideasOf(ws *workspace) *collection[model.Idea]            { return ws.ideas }
func appsOf(ws *workspace) *collection[model.AppProject]       { return ws.apps }
func learningOf(ws *workspace) *collection[model.LearningItem] { return ws.learning }

func listOf[T entity[T]](ctx context.Context, s *Service, session *model.Session, pick func(*workspace) *collection[T]) ([]T, error) {
	ws, err := s.workspace(ctx, session)
	if err != nil {
		return nil, err
	}
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return pick(ws).list(), nil
}

func getOf[T entity[T]](ctx context.Context, s *Service, session *model.Session, pick func(*workspace) *collection[T], label, id string) (*T, error) {
	ws, err := s.workspace(ctx, session)
	if err != nil {
		return nil, err
	}
	ws.mu.Lock()
	defer ws.mu.Unlock()

	v, ok := pick(ws).get(id)
	if !ok {
		return nil, model.NewNotFoundError(label, id)
	}
	return &v, nil
}

func createOf[T entity[T]](ctx context.Context, s *Service, session *model.Session, pick func(*workspace) *collection[T], v T) (*T, error) {
	ws, err := s.workspace(ctx, session)
	if err != nil {
		return nil, err
	}
	ws.mu.Lock()
	defer ws.mu.Unlock()

	c := pick(ws)
	if err := s.persisted(c.kind, opCreate, session.UserID, c.insert(ctx, session.UserID, v)); err != nil {
		return nil, err
	}
	out := v.Clone()
	return &out, nil
}

func updateOf[T entity[T]](ctx context.Context, s *Service, session *model.Session, pick func(*workspace) *collection[T], label, id string, apply func(*T) error) (*T, error) {
	ws, err := s.workspace(ctx, session)
	if err != nil {
		return nil, err
	}
	ws.mu.Lock()
	defer ws.mu.Unlock()

	c := pick(ws)
	v, ok := c.get(id)
	if !ok {
		return nil, model.NewNotFoundError(label, id)
	}
	if err := apply(&v); err != nil {
		return nil, err
	}
	if err := s.persisted(c.kind, opUpdate, session.UserID, c.replace(ctx, session.UserID, v)); err != nil {
		return nil, err
	}
	out := v.Clone()
	return &out, nil
}

func deleteOf[T entity[T]](ctx context.Context, s *Service, session *model.Session, pick func(*workspace) *collection[T], id string) error {
	ws, err := s.workspace(ctx, session)
	if err != nil {
		return err
	}
	ws.mu.Lock()
	defer ws.mu.Unlock()

	c := pick(ws)
	return s.persisted(c.kind, opDelete, session.UserID, c.remove(ctx, session.UserID, id))
}
