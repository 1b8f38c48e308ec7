package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/questlog/internal/hub"
	"github.com/hitoshi/questlog/internal/model"
	"github.com/hitoshi/questlog/internal/security"
)

// PortfolioServiceInterface はアイデア・アプリ・学習項目のハンドラーが必要とするサービスインターフェース。
type PortfolioServiceInterface interface {
	Ideas(ctx context.Context, session *model.Session) ([]model.Idea, error)
	Idea(ctx context.Context, session *model.Session, id string) (*model.Idea, error)
	CreateIdea(ctx context.Context, session *model.Session, in hub.IdeaInput) (*model.Idea, error)
	UpdateIdea(ctx context.Context, session *model.Session, id string, in hub.IdeaInput) (*model.Idea, error)
	DeleteIdea(ctx context.Context, session *model.Session, id string) error

	Apps(ctx context.Context, session *model.Session) ([]model.AppProject, error)
	App(ctx context.Context, session *model.Session, id string) (*model.AppProject, error)
	CreateApp(ctx context.Context, session *model.Session, in hub.AppInput) (*model.AppProject, error)
	UpdateApp(ctx context.Context, session *model.Session, id string, in hub.AppInput) (*model.AppProject, error)
	DeleteApp(ctx context.Context, session *model.Session, id string) error
	CheckAppURL(ctx context.Context, session *model.Session, id string) (*security.ProbeResult, error)

	LearningItems(ctx context.Context, session *model.Session) ([]model.LearningItem, error)
	LearningItem(ctx context.Context, session *model.Session, id string) (*model.LearningItem, error)
	CreateLearningItem(ctx context.Context, session *model.Session, in hub.LearningInput) (*model.LearningItem, error)
	UpdateLearningItem(ctx context.Context, session *model.Session, id string, in hub.LearningInput) (*model.LearningItem, error)
	DeleteLearningItem(ctx context.Context, session *model.Session, id string) error
}

// PortfolioHandler はアイデア・アプリ・学習項目のHTTPハンドラー。
type PortfolioHandler struct {
	service PortfolioServiceInterface
}

// NewPortfolioHandler はPortfolioHandlerを生成する。
func NewPortfolioHandler(service PortfolioServiceInterface) *PortfolioHandler {
	return &PortfolioHandler{service: service}
}

type ideaListResponse struct {
	Ideas []model.Idea `json:"ideas"`
}

type appListResponse struct {
	Apps []model.AppProject `json:"apps"`
}

type learningListResponse struct {
	Items []model.LearningItem `json:"items"`
}

// crudOps は1種類のエンティティに対するサービス呼び出しの組。
type crudOps[T any, In any] struct {
	list   func(ctx context.Context, session *model.Session) ([]T, error)
	wrap   func(items []T) any
	get    func(ctx context.Context, session *model.Session, id string) (*T, error)
	create func(ctx context.Context, session *model.Session, in In) (*T, error)
	update func(ctx context.Context, session *model.Session, id string, in In) (*T, error)
	remove func(ctx context.Context, session *model.Session, id string) error
}

func (c crudOps[T, In]) handleList(w http.ResponseWriter, r *http.Request) {
	session := sessionOrUnauthorized(w, r)
	if session == nil {
		return
	}
	items, err := c.list(r.Context(), session)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c.wrap(items))
}

func (c crudOps[T, In]) handleGet(w http.ResponseWriter, r *http.Request) {
	session := sessionOrUnauthorized(w, r)
	if session == nil {
		return
	}
	item, err := c.get(r.Context(), session, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (c crudOps[T, In]) handleCreate(w http.ResponseWriter, r *http.Request) {
	session := sessionOrUnauthorized(w, r)
	if session == nil {
		return
	}
	var in In
	if !decodeJSON(w, r, &in) {
		return
	}
	item, err := c.create(r.Context(), session, in)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (c crudOps[T, In]) handleUpdate(w http.ResponseWriter, r *http.Request) {
	session := sessionOrUnauthorized(w, r)
	if session == nil {
		return
	}
	var in In
	if !decodeJSON(w, r, &in) {
		return
	}
	item, err := c.update(r.Context(), session, chi.URLParam(r, "id"), in)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (c crudOps[T, In]) handleDelete(w http.ResponseWriter, r *http.Request) {
	session := sessionOrUnauthorized(w, r)
	if session == nil {
		return
	}
	if err := c.remove(r.Context(), session, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// mount は一覧・詳細・作成・更新・削除のルートを登録する。
func (c crudOps[T, In]) mount(r chi.Router) {
	r.Get("/", c.handleList)
	r.Post("/", c.handleCreate)
	r.Get("/{id}", c.handleGet)
	r.Put("/{id}", c.handleUpdate)
	r.Delete("/{id}", c.handleDelete)
}

func (h *PortfolioHandler) ideas() crudOps[model.Idea, hub.IdeaInput] {
	return crudOps[model.Idea, hub.IdeaInput]{
		list:   h.service.Ideas,
		wrap:   func(items []model.Idea) any { return ideaListResponse{Ideas: items} },
		get:    h.service.Idea,
		create: h.service.CreateIdea,
		update: h.service.UpdateIdea,
		remove: h.service.DeleteIdea,
	}
}

func (h *PortfolioHandler) apps() crudOps[model.AppProject, hub.AppInput] {
	return crudOps[model.AppProject, hub.AppInput]{
		list:   h.service.Apps,
		wrap:   func(items []model.AppProject) any { return appListResponse{Apps: items} },
		get:    h.service.App,
		create: h.service.CreateApp,
		update: h.service.UpdateApp,
		remove: h.service.DeleteApp,
	}
}

func (h *PortfolioHandler) learning() crudOps[model.LearningItem, hub.LearningInput] {
	return crudOps[model.LearningItem, hub.LearningInput]{
		list:   h.service.LearningItems,
		wrap:   func(items []model.LearningItem) any { return learningListResponse{Items: items} },
		get:    h.service.LearningItem,
		create: h.service.CreateLearningItem,
		update: h.service.UpdateLearningItem,
		remove: h.service.DeleteLearningItem,
	}
}

// MountIdeas は /api/ideas 配下のルートを登録する。
func (h *PortfolioHandler) MountIdeas(r chi.Router) { h.ideas().mount(r) }

// MountApps は /api/apps 配下のルートを登録する。到達確認ルートを含む。
func (h *PortfolioHandler) MountApps(r chi.Router) {
	h.apps().mount(r)
	r.Get("/{id}/reachability", h.CheckReachability)
}

// MountLearning は /api/learning 配下のルートを登録する。
func (h *PortfolioHandler) MountLearning(r chi.Router) { h.learning().mount(r) }

// CheckReachability はアプリURLへの到達可否を返す。
// GET /api/apps/{id}/reachability
func (h *PortfolioHandler) CheckReachability(w http.ResponseWriter, r *http.Request) {
	session := sessionOrUnauthorized(w, r)
	if session == nil {
		return
	}
	result, err := h.service.CheckAppURL(r.Context(), session, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
