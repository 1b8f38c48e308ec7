package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/questlog/internal/hub"
	"github.com/hitoshi/questlog/internal/model"
)

// GameServiceInterface はゲームハンドラーが必要とするサービスインターフェース。
type GameServiceInterface interface {
	Games(ctx context.Context, session *model.Session, filter hub.GameFilter) ([]model.Game, error)
	Game(ctx context.Context, session *model.Session, id string) (*model.Game, error)
	CreateGame(ctx context.Context, session *model.Session, in hub.GameInput) (*model.Game, error)
	UpdateGame(ctx context.Context, session *model.Session, id string, in hub.GameInput) (*model.Game, error)
	DeleteGame(ctx context.Context, session *model.Session, id string) error
	SetGameStatus(ctx context.Context, session *model.Session, id string, status model.GameStatus) (*model.Game, error)
	SetGameProgress(ctx context.Context, session *model.Session, id string, percentage int) (*model.Game, error)
	AddPlaySession(ctx context.Context, session *model.Session, gameID string, in hub.PlaySessionInput) (*model.Game, error)
	RemovePlaySession(ctx context.Context, session *model.Session, gameID, sessionID string) (*model.Game, error)
}

// GameHandler はゲームとプレイセッションのHTTPハンドラー。
type GameHandler struct {
	service GameServiceInterface
}

// NewGameHandler はGameHandlerを生成する。
func NewGameHandler(service GameServiceInterface) *GameHandler {
	return &GameHandler{service: service}
}

type gameListResponse struct {
	Games []model.Game `json:"games"`
}

type statusRequest struct {
	Status model.GameStatus `json:"status"`
}

type progressRequest struct {
	CompletionPercentage *int `json:"completion_percentage"`
}

// ListGames はゲーム一覧を返す。
// GET /api/games?q=...&status=...
func (h *GameHandler) ListGames(w http.ResponseWriter, r *http.Request) {
	session := sessionOrUnauthorized(w, r)
	if session == nil {
		return
	}

	filter := hub.GameFilter{
		Query:  r.URL.Query().Get("q"),
		Status: model.GameStatus(r.URL.Query().Get("status")),
	}
	games, err := h.service.Games(r.Context(), session, filter)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, gameListResponse{Games: games})
}

// CreateGame はゲームを作成する。
// POST /api/games
func (h *GameHandler) CreateGame(w http.ResponseWriter, r *http.Request) {
	session := sessionOrUnauthorized(w, r)
	if session == nil {
		return
	}
	var in hub.GameInput
	if !decodeJSON(w, r, &in) {
		return
	}

	game, err := h.service.CreateGame(r.Context(), session, in)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, game)
}

// GetGame はゲーム詳細を返す。
// GET /api/games/{id}
func (h *GameHandler) GetGame(w http.ResponseWriter, r *http.Request) {
	session := sessionOrUnauthorized(w, r)
	if session == nil {
		return
	}

	game, err := h.service.Game(r.Context(), session, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, game)
}

// UpdateGame はゲームの基本情報を更新する。
// PUT /api/games/{id}
func (h *GameHandler) UpdateGame(w http.ResponseWriter, r *http.Request) {
	session := sessionOrUnauthorized(w, r)
	if session == nil {
		return
	}
	var in hub.GameInput
	if !decodeJSON(w, r, &in) {
		return
	}

	game, err := h.service.UpdateGame(r.Context(), session, chi.URLParam(r, "id"), in)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, game)
}

// DeleteGame はゲームを削除する。
// DELETE /api/games/{id}
func (h *GameHandler) DeleteGame(w http.ResponseWriter, r *http.Request) {
	session := sessionOrUnauthorized(w, r)
	if session == nil {
		return
	}

	if err := h.service.DeleteGame(r.Context(), session, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateStatus はゲームのステータスを変更する。
// PUT /api/games/{id}/status
func (h *GameHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	session := sessionOrUnauthorized(w, r)
	if session == nil {
		return
	}
	var req statusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	game, err := h.service.SetGameStatus(r.Context(), session, chi.URLParam(r, "id"), req.Status)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, game)
}

// UpdateProgress はゲームの進捗率を変更する。
// PUT /api/games/{id}/progress
func (h *GameHandler) UpdateProgress(w http.ResponseWriter, r *http.Request) {
	session := sessionOrUnauthorized(w, r)
	if session == nil {
		return
	}
	var req progressRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.CompletionPercentage == nil {
		handleServiceError(w, model.NewValidationError("completion_percentageは必須です"))
		return
	}

	game, err := h.service.SetGameProgress(r.Context(), session, chi.URLParam(r, "id"), *req.CompletionPercentage)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, game)
}

// AddSession はプレイセッションを記録する。
// POST /api/games/{id}/sessions
func (h *GameHandler) AddSession(w http.ResponseWriter, r *http.Request) {
	session := sessionOrUnauthorized(w, r)
	if session == nil {
		return
	}
	var in hub.PlaySessionInput
	if !decodeJSON(w, r, &in) {
		return
	}

	game, err := h.service.AddPlaySession(r.Context(), session, chi.URLParam(r, "id"), in)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, game)
}

// RemoveSession はプレイセッションを削除する。
// DELETE /api/games/{id}/sessions/{sessionID}
func (h *GameHandler) RemoveSession(w http.ResponseWriter, r *http.Request) {
	session := sessionOrUnauthorized(w, r)
	if session == nil {
		return
	}

	game, err := h.service.RemovePlaySession(r.Context(), session, chi.URLParam(r, "id"), chi.URLParam(r, "sessionID"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, game)
}
