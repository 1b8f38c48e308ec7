// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/questlog/internal/middleware"
	"github.com/hitoshi/questlog/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
// auth.CredentialStoreが実装する。
type AuthServiceInterface interface {
	Register(ctx context.Context, username, password string) error
	Login(ctx context.Context, username, password string) (*model.Session, error)
	Logout(ctx context.Context, token string) error
	CurrentUser(ctx context.Context, token string) (*model.Session, error)
}

// WorkspaceManager はログイン・ログアウトに合わせてワークスペースを開閉する。
// hub.Serviceが実装する。
type WorkspaceManager interface {
	Open(ctx context.Context, session *model.Session) error
	Close(userID string)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieDomain string
	CookieSecure bool
}

// AuthHandler は登録・ログイン・ログアウトのHTTPハンドラー。
type AuthHandler struct {
	service    AuthServiceInterface
	workspaces WorkspaceManager
	config     AuthHandlerConfig
	now        func() time.Time
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, workspaces WorkspaceManager, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service:    service,
		workspaces: workspaces,
		config:     config,
		now:        time.Now,
	}
}

// credentialsRequest は登録・ログインリクエストのボディ。
type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// sessionResponse はログイン中ユーザーのAPIレスポンス。
type sessionResponse struct {
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expires_at"`
}

func toSessionResponse(s *model.Session) sessionResponse {
	return sessionResponse{UserID: s.UserID, Username: s.Username, ExpiresAt: s.ExpiresAt}
}

// Register はユーザーを登録し、そのままログインする。
// POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.service.Register(r.Context(), req.Username, req.Password); err != nil {
		handleServiceError(w, err)
		return
	}

	session, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	h.startSession(w, r, session)
	writeJSON(w, http.StatusCreated, toSessionResponse(session))
}

// Login はログインし、セッションCookieを設定する。ワークスペースは読み込み直す。
// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	session, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	h.startSession(w, r, session)
	writeJSON(w, http.StatusOK, toSessionResponse(session))
}

// Logout はセッションを破棄し、メモリ上のワークスペースを閉じる。
// セッションが無い場合も成功とする。
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(middleware.SessionCookieName)
	if err == nil && cookie.Value != "" {
		if session, err := h.service.CurrentUser(r.Context(), cookie.Value); err == nil && session != nil {
			h.workspaces.Close(session.UserID)
		}
		if logoutErr := h.service.Logout(r.Context(), cookie.Value); logoutErr != nil {
			slog.Error("failed to logout", slog.String("error", logoutErr.Error()))
			// ログアウト失敗してもCookieはクリアする
		}
	}

	h.setSessionCookie(w, "", -1)
	w.WriteHeader(http.StatusNoContent)
}

// Me は現在のログインユーザー情報を返す。
// GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(middleware.SessionCookieName)
	if err != nil || cookie.Value == "" {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	session, err := h.service.CurrentUser(r.Context(), cookie.Value)
	if err != nil {
		slog.Error("failed to get current user", slog.String("error", err.Error()))
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}
	if session == nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	writeJSON(w, http.StatusOK, toSessionResponse(session))
}

// startSession はセッションCookieを設定し、ワークスペースを読み込む。
func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, session *model.Session) {
	maxAge := 0
	if !session.ExpiresAt.IsZero() {
		maxAge = max(int(session.ExpiresAt.Sub(h.now()).Seconds()), 1)
	}
	h.setSessionCookie(w, session.ID, maxAge)

	if err := h.workspaces.Open(r.Context(), session); err != nil {
		slog.Error("failed to open workspace",
			slog.String("user_id", session.UserID),
			slog.String("error", err.Error()),
		)
	}
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    value,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
