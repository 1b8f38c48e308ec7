package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/patrickmn/go-cache"

	"github.com/hitoshi/questlog/internal/model"
)

// HostedConfig はホスト型認証の設定。
type HostedConfig struct {
	EmailDomain string        // ユーザー名がメール形式でない場合に付与するドメイン
	CacheTTL    time.Duration // 解決済みトークンのキャッシュ期間
}

// HostedStore はIdentityProviderに認証を委譲するCredentialStore。
// IdPが返すアクセストークンをそのままセッショントークンとして使う。
type HostedStore struct {
	provider IdentityProvider
	config   HostedConfig
	tokens   *cache.Cache
	now      func() time.Time
}

// NewHostedStore はHostedStoreを生成する。
func NewHostedStore(provider IdentityProvider, config HostedConfig) *HostedStore {
	if config.EmailDomain == "" {
		config.EmailDomain = "questlog.local"
	}
	if config.CacheTTL == 0 {
		config.CacheTTL = time.Minute
	}
	return &HostedStore{
		provider: provider,
		config:   config,
		tokens:   cache.New(config.CacheTTL, 5*time.Minute),
		now:      time.Now,
	}
}

// EmailFor はユーザー名からIdPに渡すメールアドレスを導出する。
// ユーザー名が既にメール形式ならそのまま使う。
func (s *HostedStore) EmailFor(username string) string {
	if strings.Contains(username, "@") {
		return username
	}
	return username + "@" + s.config.EmailDomain
}

// Register はIdPにユーザーを作成する。
func (s *HostedStore) Register(ctx context.Context, username, password string) error {
	username = normalizeUsername(username)
	if err := validateRegistration(username, password, MinHostedPasswordLength); err != nil {
		return err
	}

	err := s.provider.SignUp(ctx, s.EmailFor(username), password, username)
	if errors.Is(err, ErrIdentityExists) {
		return model.NewDuplicateUserError(username)
	}
	if err != nil {
		return fmt.Errorf("failed to sign up: %w", err)
	}

	slog.Info("user registered with identity provider", slog.String("username", username))
	return nil
}

// Login はIdPでサインインしてセッションを発行する。
func (s *HostedStore) Login(ctx context.Context, username, password string) (*model.Session, error) {
	username = normalizeUsername(username)
	if username == "" || password == "" {
		return nil, model.NewAuthError()
	}

	token, err := s.provider.SignIn(ctx, s.EmailFor(username), password)
	if errors.Is(err, ErrInvalidCredentials) {
		return nil, model.NewAuthError()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to sign in: %w", err)
	}

	now := s.now()
	expiresAt := tokenExpiry(token.AccessToken)
	if expiresAt.IsZero() && token.ExpiresIn > 0 {
		expiresAt = now.Add(time.Duration(token.ExpiresIn) * time.Second)
	}
	session := &model.Session{
		ID:        token.AccessToken,
		UserID:    token.User.ID,
		Username:  displayName(token.User),
		ExpiresAt: expiresAt,
		CreatedAt: now,
	}
	s.remember(session)

	slog.Info("user logged in with identity provider", slog.String("user_id", session.UserID))
	return session, nil
}

// Logout はキャッシュからトークンを除き、IdP側のセッションも失効させる。
// IdP側で既に無効なトークンは成功として扱う。
func (s *HostedStore) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	s.tokens.Delete(token)

	err := s.provider.SignOut(ctx, token)
	if err != nil && !errors.Is(err, ErrInvalidToken) {
		slog.Warn("identity provider sign out failed", slog.String("error", err.Error()))
	}
	return nil
}

// CurrentUser はトークンを解決してセッションを返す。
// 解決結果は短時間キャッシュされる。
func (s *HostedStore) CurrentUser(ctx context.Context, token string) (*model.Session, error) {
	if token == "" {
		return nil, nil
	}

	now := s.now()
	if x, found := s.tokens.Get(token); found {
		session := x.(*model.Session)
		if !session.Expired(now) {
			return session, nil
		}
		s.tokens.Delete(token)
		return nil, nil
	}

	expiresAt := tokenExpiry(token)
	if !expiresAt.IsZero() && !now.Before(expiresAt) {
		return nil, nil
	}

	user, err := s.provider.GetUser(ctx, token)
	if errors.Is(err, ErrInvalidToken) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve session token: %w", err)
	}

	session := &model.Session{
		ID:        token,
		UserID:    user.ID,
		Username:  displayName(*user),
		ExpiresAt: expiresAt,
		CreatedAt: now,
	}
	s.remember(session)
	return session, nil
}

func (s *HostedStore) remember(session *model.Session) {
	ttl := s.config.CacheTTL
	if !session.ExpiresAt.IsZero() {
		if remaining := session.ExpiresAt.Sub(s.now()); remaining < ttl {
			ttl = remaining
		}
	}
	if ttl <= 0 {
		return
	}
	s.tokens.Set(session.ID, session, ttl)
}

// tokenExpiry はJWTのexpクレームを読み取る。署名検証はIdPが行うためここでは行わない。
// JWTでない場合やexpが無い場合はゼロ値を返す。
func tokenExpiry(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

// displayName はメタデータのusername、無ければメールアドレスのローカル部を返す。
func displayName(u IdentityUser) string {
	if u.Username != "" {
		return u.Username
	}
	if i := strings.Index(u.Email, "@"); i > 0 {
		return u.Email[:i]
	}
	return u.Email
}

// compile-time interface check
var _ CredentialStore = (*HostedStore)(nil)
