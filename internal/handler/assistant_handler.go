package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/questlog/internal/assistant"
	"github.com/hitoshi/questlog/internal/model"
)

// AssistantInterface はアシスタントハンドラーが必要とするクライアントインターフェース。
// 失敗は全てフォールバック文言として返るため、エラーを返さない。
type AssistantInterface interface {
	GenerateResume(ctx context.Context, session *model.Session, game model.Game) string
	PlanSession(ctx context.Context, session *model.Session, game model.Game, minutes int) string
	AnalyzeStagnation(ctx context.Context, session *model.Session, game model.Game) string
}

// GameFinder は詳細表示用にゲームを1件取得する。
type GameFinder interface {
	Game(ctx context.Context, session *model.Session, id string) (*model.Game, error)
}

// AssistantHandler はゲームに対するアシスタント操作のHTTPハンドラー。
type AssistantHandler struct {
	games     GameFinder
	assistant AssistantInterface
}

// NewAssistantHandler はAssistantHandlerを生成する。
func NewAssistantHandler(games GameFinder, client AssistantInterface) *AssistantHandler {
	return &AssistantHandler{games: games, assistant: client}
}

type assistantResponse struct {
	Text string `json:"text"`
}

type planRequest struct {
	Minutes int `json:"minutes"`
}

// Resume は「前回までのあらすじ」を返す。
// POST /api/games/{id}/assistant/resume
func (h *AssistantHandler) Resume(w http.ResponseWriter, r *http.Request) {
	session, game, ok := h.loadGame(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, assistantResponse{Text: h.assistant.GenerateResume(r.Context(), session, *game)})
}

// Plan は指定時間で達成できるセッション目標を返す。
// POST /api/games/{id}/assistant/plan
func (h *AssistantHandler) Plan(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Minutes < assistant.MinPlanMinutes || req.Minutes > assistant.MaxPlanMinutes {
		handleServiceError(w, model.NewValidationError(
			fmt.Sprintf("minutesは%dから%dの範囲で指定してください", assistant.MinPlanMinutes, assistant.MaxPlanMinutes)))
		return
	}

	session, game, ok := h.loadGame(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, assistantResponse{Text: h.assistant.PlanSession(r.Context(), session, *game, req.Minutes)})
}

// Stagnation はプレイメモから停滞の兆候を読み取った助言を返す。助言が無い場合は空文字列。
// POST /api/games/{id}/assistant/stagnation
func (h *AssistantHandler) Stagnation(w http.ResponseWriter, r *http.Request) {
	session, game, ok := h.loadGame(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, assistantResponse{Text: h.assistant.AnalyzeStagnation(r.Context(), session, *game)})
}

func (h *AssistantHandler) loadGame(w http.ResponseWriter, r *http.Request) (*model.Session, *model.Game, bool) {
	session := sessionOrUnauthorized(w, r)
	if session == nil {
		return nil, nil, false
	}
	game, err := h.games.Game(r.Context(), session, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return nil, nil, false
	}
	return session, game, true
}
