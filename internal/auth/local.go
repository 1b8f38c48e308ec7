package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/questlog/internal/model"
	"github.com/hitoshi/questlog/internal/repository"
)

// LocalConfig はローカル認証の設定。
type LocalConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
	BcryptCost    int // 0の場合はbcrypt.DefaultCost
}

// LocalStore はユーザーリポジトリとセッションリポジトリを使うローカル認証。
// パスワードはbcryptハッシュで保存する。
type LocalStore struct {
	users    repository.UserRepository
	sessions repository.SessionRepository
	config   LocalConfig
	now      func() time.Time
}

// NewLocalStore はLocalStoreを生成する。
func NewLocalStore(users repository.UserRepository, sessions repository.SessionRepository, config LocalConfig) *LocalStore {
	if config.BcryptCost == 0 {
		config.BcryptCost = bcrypt.DefaultCost
	}
	return &LocalStore{
		users:    users,
		sessions: sessions,
		config:   config,
		now:      time.Now,
	}
}

// Register はユーザーを登録する。ユーザー名の重複判定は大文字小文字を区別しない。
func (s *LocalStore) Register(ctx context.Context, username, password string) error {
	username = normalizeUsername(username)
	if err := validateRegistration(username, password, MinLocalPasswordLength); err != nil {
		return err
	}

	existing, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}
	if existing != nil {
		return model.NewDuplicateUserError(username)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.config.BcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		ID:           username,
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    s.now(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateUser) {
			return model.NewDuplicateUserError(username)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("user registered", slog.String("user_id", user.ID))
	return nil
}

// Login は資格情報を照合してセッションを発行する。
func (s *LocalStore) Login(ctx context.Context, username, password string) (*model.Session, error) {
	username = normalizeUsername(username)
	if username == "" || password == "" {
		return nil, model.NewAuthError()
	}

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewAuthError()
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, model.NewAuthError()
	}

	token, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}
	now := s.now()
	session := &model.Session{
		ID:        token,
		UserID:    user.ID,
		Username:  user.Username,
		ExpiresAt: now.Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: now,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	slog.Info("user logged in", slog.String("user_id", user.ID))
	return session, nil
}

// Logout はセッションを破棄する。
func (s *LocalStore) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.sessions.DeleteByID(ctx, token); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// CurrentUser はトークンに対応する有効なセッションを返す。
func (s *LocalStore) CurrentUser(ctx context.Context, token string) (*model.Session, error) {
	if token == "" {
		return nil, nil
	}
	session, err := s.sessions.FindByID(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil || session.Expired(s.now()) {
		return nil, nil
	}
	return session, nil
}

// compile-time interface check
var _ CredentialStore = (*LocalStore)(nil)
