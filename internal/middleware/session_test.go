package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/questlog/internal/model"
)

// --- モック定義 ---

type mockSessionResolver struct {
	currentUserFn func(ctx context.Context, token string) (*model.Session, error)
}

func (m *mockSessionResolver) CurrentUser(ctx context.Context, token string) (*model.Session, error) {
	if m.currentUserFn != nil {
		return m.currentUserFn(ctx, token)
	}
	return nil, nil
}

// resolverFor は指定トークンのみ有効とするリゾルバーを返す。
func resolverFor(token, userID string) *mockSessionResolver {
	return &mockSessionResolver{
		currentUserFn: func(_ context.Context, t string) (*model.Session, error) {
			if t != token {
				return nil, nil
			}
			return &model.Session{
				ID:        token,
				UserID:    userID,
				Username:  userID,
				ExpiresAt: time.Now().Add(time.Hour),
			}, nil
		},
	}
}

// --- テスト ---

func TestSessionMiddleware_ValidSession_InjectsSession(t *testing.T) {
	mw := NewSessionMiddleware(resolverFor("valid-token", "alice"))

	var captured *model.Session
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := SessionFromContext(r.Context())
		if err != nil {
			t.Errorf("expected no error, got %v", err)
		}
		captured = session
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/games", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "valid-token"})
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if captured == nil || captured.UserID != "alice" || captured.ID != "valid-token" {
		t.Errorf("captured session = %+v", captured)
	}
}

func TestSessionMiddleware_Rejects(t *testing.T) {
	tests := []struct {
		name     string
		cookie   string
		resolver *mockSessionResolver
	}{
		{"no cookie", "", resolverFor("valid-token", "alice")},
		{"unknown token", "other", resolverFor("valid-token", "alice")},
		{"resolver error", "valid-token", &mockSessionResolver{
			currentUserFn: func(context.Context, string) (*model.Session, error) {
				return nil, errors.New("identity provider down")
			},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewSessionMiddleware(tt.resolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatal("handler should not be called")
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/games", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: tt.cookie})
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
			}
			var body ErrorResponseBody
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode body: %v", err)
			}
			if body.Code != model.ErrCodeUnauthorized {
				t.Errorf("code = %q, want %q", body.Code, model.ErrCodeUnauthorized)
			}
		})
	}
}

func TestUserIDFromContext_NoSession_ReturnsError(t *testing.T) {
	if _, err := UserIDFromContext(context.Background()); err == nil {
		t.Error("expected error for empty context")
	}
}

func TestContextWithSession_RoundTrip(t *testing.T) {
	ctx := ContextWithSession(context.Background(), &model.Session{ID: "t", UserID: "bob"})

	userID, err := UserIDFromContext(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if userID != "bob" {
		t.Errorf("userID = %q, want %q", userID, "bob")
	}
}
