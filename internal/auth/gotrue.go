package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// IdentityProvider のエラー。
var (
	// ErrIdentityExists は同じメールアドレスのユーザーが既に存在することを表す。
	ErrIdentityExists = errors.New("identity: user already registered")
	// ErrInvalidCredentials はメールアドレスまたはパスワードが一致しないことを表す。
	ErrInvalidCredentials = errors.New("identity: invalid credentials")
	// ErrInvalidToken はアクセストークンが無効または期限切れであることを表す。
	ErrInvalidToken = errors.New("identity: invalid token")
)

// IdentityUser はIdPから取得したユーザー情報を表す。
type IdentityUser struct {
	ID       string
	Email    string
	Username string // user_metadata.username（未設定の場合は空）
}

// IdentityToken はパスワードグラントで得られるトークンを表す。
type IdentityToken struct {
	AccessToken string
	ExpiresIn   int // 秒
	User        IdentityUser
}

// IdentityProvider はホスト型IdPのインターフェース。
type IdentityProvider interface {
	// SignUp はユーザーを作成する。usernameはユーザーメタデータに保存される。
	SignUp(ctx context.Context, email, password, username string) error
	// SignIn はパスワードでサインインしてアクセストークンを取得する。
	SignIn(ctx context.Context, email, password string) (*IdentityToken, error)
	// GetUser はアクセストークンに対応するユーザーを取得する。
	GetUser(ctx context.Context, accessToken string) (*IdentityUser, error)
	// SignOut はアクセストークンを失効させる。
	SignOut(ctx context.Context, accessToken string) error
}

// GoTrueConfig はGoTrue互換IdPの設定。
type GoTrueConfig struct {
	BaseURL string // 例: "https://xxxx.supabase.co"
	APIKey  string
	Timeout time.Duration
}

// GoTrueProvider はGoTrue互換のREST APIでIdentityProviderを実装する。
type GoTrueProvider struct {
	config GoTrueConfig
	client *http.Client
}

// NewGoTrueProvider はGoTrueProviderを生成する。
func NewGoTrueProvider(config GoTrueConfig) *GoTrueProvider {
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	return &GoTrueProvider{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
	}
}

type gotrueUser struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	UserMetadata struct {
		Username string `json:"username"`
	} `json:"user_metadata"`
}

func (u gotrueUser) toIdentityUser() IdentityUser {
	return IdentityUser{ID: u.ID, Email: u.Email, Username: u.UserMetadata.Username}
}

type gotrueTokenResponse struct {
	AccessToken string     `json:"access_token"`
	TokenType   string     `json:"token_type"`
	ExpiresIn   int        `json:"expires_in"`
	User        gotrueUser `json:"user"`
}

type gotrueError struct {
	Code             string `json:"error_code"`
	Msg              string `json:"msg"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (e gotrueError) text() string {
	return strings.ToLower(strings.Join([]string{e.Code, e.Msg, e.Error, e.ErrorDescription}, " "))
}

// SignUp はPOST /auth/v1/signup を呼び出す。
func (p *GoTrueProvider) SignUp(ctx context.Context, email, password, username string) error {
	payload := map[string]any{
		"email":    email,
		"password": password,
		"data":     map[string]string{"username": username},
	}
	status, body, err := p.do(ctx, http.MethodPost, "/auth/v1/signup", "", payload)
	if err != nil {
		return err
	}

	switch {
	case status == http.StatusOK || status == http.StatusCreated:
		return nil
	case isAlreadyRegistered(status, body):
		return ErrIdentityExists
	default:
		return fmt.Errorf("signup failed with status %d: %s", status, string(body))
	}
}

// SignIn はPOST /auth/v1/token?grant_type=password を呼び出す。
func (p *GoTrueProvider) SignIn(ctx context.Context, email, password string) (*IdentityToken, error) {
	payload := map[string]string{"email": email, "password": password}
	status, body, err := p.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=password", "", payload)
	if err != nil {
		return nil, err
	}

	if status == http.StatusBadRequest || status == http.StatusUnauthorized {
		return nil, ErrInvalidCredentials
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("sign in failed with status %d: %s", status, string(body))
	}

	var resp gotrueTokenResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse token response: %w", err)
	}
	if resp.AccessToken == "" {
		return nil, fmt.Errorf("empty access token in response")
	}

	return &IdentityToken{
		AccessToken: resp.AccessToken,
		ExpiresIn:   resp.ExpiresIn,
		User:        resp.User.toIdentityUser(),
	}, nil
}

// GetUser はGET /auth/v1/user を呼び出す。
func (p *GoTrueProvider) GetUser(ctx context.Context, accessToken string) (*IdentityUser, error) {
	status, body, err := p.do(ctx, http.MethodGet, "/auth/v1/user", accessToken, nil)
	if err != nil {
		return nil, err
	}

	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return nil, ErrInvalidToken
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("user fetch failed with status %d: %s", status, string(body))
	}

	var u gotrueUser
	if err := json.Unmarshal(body, &u); err != nil {
		return nil, fmt.Errorf("failed to parse user response: %w", err)
	}
	if u.ID == "" {
		return nil, fmt.Errorf("empty id in user response")
	}
	user := u.toIdentityUser()
	return &user, nil
}

// SignOut はPOST /auth/v1/logout を呼び出す。
func (p *GoTrueProvider) SignOut(ctx context.Context, accessToken string) error {
	status, body, err := p.do(ctx, http.MethodPost, "/auth/v1/logout", accessToken, nil)
	if err != nil {
		return err
	}

	switch status {
	case http.StatusOK, http.StatusNoContent:
		return nil
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return ErrInvalidToken
	default:
		return fmt.Errorf("logout failed with status %d: %s", status, string(body))
	}
}

// do はIdPにリクエストを送り、ステータスコードとボディを返す。
func (p *GoTrueProvider) do(ctx context.Context, method, path, accessToken string, payload any) (int, []byte, error) {
	var reader io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.config.BaseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("apikey", p.config.APIKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	} else {
		req.Header.Set("Authorization", "Bearer "+p.config.APIKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("identity request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read identity response: %w", err)
	}
	return resp.StatusCode, body, nil
}

func isAlreadyRegistered(status int, body []byte) bool {
	if status != http.StatusBadRequest && status != http.StatusUnprocessableEntity && status != http.StatusConflict {
		return false
	}
	var e gotrueError
	if err := json.Unmarshal(body, &e); err != nil {
		return status == http.StatusConflict
	}
	text := e.text()
	return status == http.StatusConflict ||
		strings.Contains(text, "already registered") ||
		strings.Contains(text, "user_already_exists") ||
		strings.Contains(text, "email_exists")
}

// compile-time interface check
var _ IdentityProvider = (*GoTrueProvider)(nil)
