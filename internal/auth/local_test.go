package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/questlog/internal/kvstore"
	"github.com/hitoshi/questlog/internal/model"
	"github.com/hitoshi/questlog/internal/repository"
)

// --- モック定義 ---

type mockUserRepo struct {
	findByUsernameFn func(ctx context.Context, username string) (*model.User, error)
	createFn         func(ctx context.Context, user *model.User) error
}

func (m *mockUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	if m.findByUsernameFn != nil {
		return m.findByUsernameFn(ctx, username)
	}
	return nil, nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return nil
}

type mockSessionRepo struct {
	createFn     func(ctx context.Context, session *model.Session) error
	findByIDFn   func(ctx context.Context, id string) (*model.Session, error)
	deleteByIDFn func(ctx context.Context, id string) error
}

func (m *mockSessionRepo) Create(ctx context.Context, session *model.Session) error {
	if m.createFn != nil {
		return m.createFn(ctx, session)
	}
	return nil
}

func (m *mockSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockSessionRepo) DeleteByID(ctx context.Context, id string) error {
	if m.deleteByIDFn != nil {
		return m.deleteByIDFn(ctx, id)
	}
	return nil
}

func (m *mockSessionRepo) DeleteExpired(_ context.Context) (int64, error) {
	return 0, nil
}

// --- compile-time interface checks ---
var _ repository.UserRepository = (*mockUserRepo)(nil)
var _ repository.SessionRepository = (*mockSessionRepo)(nil)

// newTestLocalStore はメモリストア上のLocalStoreを生成する。
func newTestLocalStore() *LocalStore {
	store := kvstore.NewMemoryStore()
	return NewLocalStore(
		repository.NewKVUserRepo(store),
		repository.NewKVSessionRepo(store),
		LocalConfig{SessionMaxAge: 3600, BcryptCost: bcrypt.MinCost},
	)
}

// --- テスト ---

func TestLocalStore_RegisterThenLogin(t *testing.T) {
	s := newTestLocalStore()
	ctx := context.Background()

	if err := s.Register(ctx, "alice", "pass1"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	session, err := s.Login(ctx, "alice", "pass1")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if session.UserID != "alice" || session.Username != "alice" {
		t.Errorf("session = %+v", session)
	}
	if session.ID == "" {
		t.Error("expected non-empty session token")
	}

	current, err := s.CurrentUser(ctx, session.ID)
	if err != nil {
		t.Fatalf("CurrentUser() error = %v", err)
	}
	if current == nil || current.Username != "alice" {
		t.Errorf("CurrentUser() = %+v, want alice", current)
	}
}

func TestLocalStore_Register_Validation(t *testing.T) {
	tests := []struct {
		name     string
		username string
		password string
	}{
		{"short username", "al", "pass"},
		{"blank username padded", "  a  ", "pass"},
		{"short password", "alice", "abc"},
		{"empty password", "alice", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestLocalStore()
			err := s.Register(context.Background(), tt.username, tt.password)
			if !model.IsCode(err, model.ErrCodeValidation) {
				t.Errorf("err = %v, want ValidationError", err)
			}
		})
	}
}

func TestLocalStore_Register_MinimumLengthsAccepted(t *testing.T) {
	s := newTestLocalStore()
	if err := s.Register(context.Background(), "bob", "1234"); err != nil {
		t.Errorf("Register() with minimum lengths error = %v", err)
	}
}

func TestLocalStore_Register_DuplicateRegardlessOfPasswordAndCase(t *testing.T) {
	s := newTestLocalStore()
	ctx := context.Background()

	if err := s.Register(ctx, "alice", "pass1"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	for _, name := range []string{"alice", "ALICE", " Alice "} {
		err := s.Register(ctx, name, "different-password")
		if !model.IsCode(err, model.ErrCodeDuplicateUser) {
			t.Errorf("Register(%q) err = %v, want DuplicateUserError", name, err)
		}
	}
}

func TestLocalStore_Register_RaceOnCreateMapsToDuplicate(t *testing.T) {
	s := NewLocalStore(
		&mockUserRepo{
			createFn: func(_ context.Context, _ *model.User) error {
				return repository.ErrDuplicateUser
			},
		},
		&mockSessionRepo{},
		LocalConfig{BcryptCost: bcrypt.MinCost},
	)

	err := s.Register(context.Background(), "alice", "pass1")
	if !model.IsCode(err, model.ErrCodeDuplicateUser) {
		t.Errorf("err = %v, want DuplicateUserError", err)
	}
}

func TestLocalStore_Register_StoresBcryptHash(t *testing.T) {
	var created *model.User
	s := NewLocalStore(
		&mockUserRepo{
			createFn: func(_ context.Context, u *model.User) error {
				created = u
				return nil
			},
		},
		&mockSessionRepo{},
		LocalConfig{BcryptCost: bcrypt.MinCost},
	)

	if err := s.Register(context.Background(), "alice", "pass1"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if created.PasswordHash == "pass1" {
		t.Fatal("password stored in plain text")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(created.PasswordHash), []byte("pass1")); err != nil {
		t.Errorf("stored hash does not match password: %v", err)
	}
}

func TestLocalStore_Login_Failures(t *testing.T) {
	s := newTestLocalStore()
	ctx := context.Background()
	s.Register(ctx, "alice", "pass1")

	tests := []struct {
		name     string
		username string
		password string
	}{
		{"empty username", "", "pass1"},
		{"empty password", "alice", ""},
		{"wrong password", "alice", "nope"},
		{"unknown user", "carol", "pass1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session, err := s.Login(ctx, tt.username, tt.password)
			if !model.IsCode(err, model.ErrCodeAuthFailed) {
				t.Errorf("err = %v, want AuthError", err)
			}
			if session != nil {
				t.Errorf("session = %+v, want nil", session)
			}
		})
	}
}

func TestLocalStore_Login_CaseInsensitiveUsername(t *testing.T) {
	s := newTestLocalStore()
	ctx := context.Background()
	s.Register(ctx, "Alice", "pass1")

	session, err := s.Login(ctx, "alice", "pass1")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if session.UserID != "Alice" {
		t.Errorf("UserID = %q, want %q", session.UserID, "Alice")
	}
}

func TestLocalStore_Login_RepositoryError(t *testing.T) {
	repoErr := errors.New("db down")
	s := NewLocalStore(
		&mockUserRepo{
			findByUsernameFn: func(_ context.Context, _ string) (*model.User, error) {
				return nil, repoErr
			},
		},
		&mockSessionRepo{},
		LocalConfig{},
	)

	_, err := s.Login(context.Background(), "alice", "pass1")
	if !errors.Is(err, repoErr) {
		t.Errorf("err = %v, want wrapping %v", err, repoErr)
	}
}

func TestLocalStore_Logout_Idempotent(t *testing.T) {
	s := newTestLocalStore()
	ctx := context.Background()
	s.Register(ctx, "alice", "pass1")
	session, _ := s.Login(ctx, "alice", "pass1")

	if err := s.Logout(ctx, session.ID); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if err := s.Logout(ctx, session.ID); err != nil {
		t.Fatalf("second Logout() error = %v", err)
	}
	if err := s.Logout(ctx, ""); err != nil {
		t.Fatalf("Logout(\"\") error = %v", err)
	}

	current, _ := s.CurrentUser(ctx, session.ID)
	if current != nil {
		t.Errorf("CurrentUser() after logout = %+v, want nil", current)
	}
}

func TestLocalStore_CurrentUser_Expired(t *testing.T) {
	now := time.Now()
	s := NewLocalStore(&mockUserRepo{}, &mockSessionRepo{
		findByIDFn: func(_ context.Context, id string) (*model.Session, error) {
			return &model.Session{ID: id, UserID: "alice", ExpiresAt: now.Add(-time.Second)}, nil
		},
	}, LocalConfig{})

	got, err := s.CurrentUser(context.Background(), "token")
	if err != nil {
		t.Fatalf("CurrentUser() error = %v", err)
	}
	if got != nil {
		t.Errorf("CurrentUser() = %+v, want nil", got)
	}
}

func TestLocalStore_CurrentUser_EmptyToken(t *testing.T) {
	s := newTestLocalStore()
	got, err := s.CurrentUser(context.Background(), "")
	if err != nil || got != nil {
		t.Errorf("CurrentUser(\"\") = %+v, %v", got, err)
	}
}
