package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/questlog/internal/kvstore"
	"github.com/hitoshi/questlog/internal/model"
)

// failingStore は常にエラーを返すストア。
type failingStore struct {
	getErr error
	setErr error
}

func (s *failingStore) Get(_ context.Context, _ string) ([]byte, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return nil, kvstore.ErrNotFound
}

func (s *failingStore) Set(_ context.Context, _ string, _ []byte, _ time.Duration) error {
	return s.setErr
}

func (s *failingStore) SetIfAbsent(_ context.Context, _ string, _ []byte, _ time.Duration) (bool, error) {
	return s.setErr == nil, s.setErr
}

func (s *failingStore) Delete(_ context.Context, _ string) error { return nil }

func (s *failingStore) PingContext(_ context.Context) error { return nil }

var base = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func idea(id string, minutes int) model.Idea {
	return model.Idea{
		ID:        id,
		Title:     "idea " + id,
		Priority:  model.PriorityMedium,
		CreatedAt: base.Add(time.Duration(minutes) * time.Minute),
	}
}

func TestKVEntityRepo_Load_Empty(t *testing.T) {
	repo := NewKVEntityRepo[model.Idea](kvstore.NewMemoryStore(), model.KindIdeas)

	got, err := repo.Load(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("Load() = %v, want empty non-nil slice", got)
	}
}

func TestKVEntityRepo_Load_NewestFirst(t *testing.T) {
	repo := NewKVEntityRepo[model.Idea](kvstore.NewMemoryStore(), model.KindIdeas)
	ctx := context.Background()

	for _, i := range []model.Idea{idea("a", 1), idea("c", 3), idea("b", 2)} {
		if err := repo.Save(ctx, "alice", i); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}

	got, _ := repo.Load(ctx, "alice")
	want := []string{"c", "b", "a"}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("got[%d].ID = %q, want %q", i, got[i].ID, id)
		}
	}
}

func TestKVEntityRepo_Save_Upserts(t *testing.T) {
	repo := NewKVEntityRepo[model.Idea](kvstore.NewMemoryStore(), model.KindIdeas)
	ctx := context.Background()

	i := idea("a", 1)
	repo.Save(ctx, "alice", i)
	i.Title = "renamed"
	repo.Save(ctx, "alice", i)

	got, _ := repo.Load(ctx, "alice")
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if got[0].Title != "renamed" {
		t.Errorf("Title = %q, want %q", got[0].Title, "renamed")
	}
}

func TestKVEntityRepo_SaveAll_DuplicateIDsKeepFirst(t *testing.T) {
	repo := NewKVEntityRepo[model.Idea](kvstore.NewMemoryStore(), model.KindIdeas)
	ctx := context.Background()

	first := idea("x", 1)
	first.Title = "first"
	second := idea("x", 2)
	second.Title = "second"

	if err := repo.SaveAll(ctx, "alice", []model.Idea{first, second, idea("y", 3)}); err != nil {
		t.Fatalf("SaveAll() error = %v", err)
	}

	got, _ := repo.Load(ctx, "alice")
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	for _, g := range got {
		if g.ID == "x" && g.Title != "first" {
			t.Errorf("duplicate id kept %q, want %q", g.Title, "first")
		}
	}
}

func TestKVEntityRepo_Delete_Idempotent(t *testing.T) {
	repo := NewKVEntityRepo[model.Idea](kvstore.NewMemoryStore(), model.KindIdeas)
	ctx := context.Background()

	repo.Save(ctx, "alice", idea("a", 1))
	repo.Save(ctx, "alice", idea("b", 2))

	if err := repo.Delete(ctx, "alice", "a"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := repo.Delete(ctx, "alice", "a"); err != nil {
		t.Fatalf("second Delete() error = %v", err)
	}
	if err := repo.Delete(ctx, "alice", "never-existed"); err != nil {
		t.Fatalf("Delete(missing) error = %v", err)
	}

	got, _ := repo.Load(ctx, "alice")
	if len(got) != 1 || got[0].ID != "b" {
		t.Errorf("Load() = %+v, want only b", got)
	}
}

func TestKVEntityRepo_UsersAreIsolated(t *testing.T) {
	store := kvstore.NewMemoryStore()
	repo := NewKVEntityRepo[model.Idea](store, model.KindIdeas)
	ctx := context.Background()

	repo.Save(ctx, "alice", idea("a", 1))

	got, _ := repo.Load(ctx, "bob")
	if len(got) != 0 {
		t.Errorf("bob sees %d ideas of alice", len(got))
	}
	if _, err := store.Get(ctx, "ideas_alice"); err != nil {
		t.Errorf("expected key ideas_alice to exist: %v", err)
	}
}

func TestKVEntityRepo_GamesRoundTripSessions(t *testing.T) {
	repo := NewKVEntityRepo[model.Game](kvstore.NewMemoryStore(), model.KindGames)
	ctx := context.Background()

	played := base.Add(time.Hour)
	g := model.Game{
		ID:        "g1",
		Title:     "Elden Ring",
		Platform:  "PC",
		Status:    model.GameStatusPlaying,
		CreatedAt: base,
		Sessions: []model.PlaySession{
			{ID: "s1", Date: played, DurationMinutes: 60, Sentiment: model.SentimentPositive},
		},
		LastPlayed: &played,
	}
	if err := repo.Save(ctx, "alice", g); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, _ := repo.Load(ctx, "alice")
	if len(got) != 1 || len(got[0].Sessions) != 1 {
		t.Fatalf("Load() = %+v", got)
	}
	if got[0].Sessions[0].DurationMinutes != 60 {
		t.Errorf("DurationMinutes = %d, want 60", got[0].Sessions[0].DurationMinutes)
	}
	if got[0].LastPlayed == nil || !got[0].LastPlayed.Equal(played) {
		t.Errorf("LastPlayed = %v, want %v", got[0].LastPlayed, played)
	}
}

func TestKVEntityRepo_Load_CorruptData(t *testing.T) {
	store := kvstore.NewMemoryStore()
	repo := NewKVEntityRepo[model.Idea](store, model.KindIdeas)
	ctx := context.Background()

	store.Set(ctx, "ideas_alice", []byte("{not json"), 0)

	if _, err := repo.Load(ctx, "alice"); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestKVEntityRepo_StoreErrors(t *testing.T) {
	ctx := context.Background()
	storeErr := errors.New("connection refused")

	t.Run("load", func(t *testing.T) {
		repo := NewKVEntityRepo[model.Idea](&failingStore{getErr: storeErr}, model.KindIdeas)
		if _, err := repo.Load(ctx, "alice"); !errors.Is(err, storeErr) {
			t.Errorf("err = %v, want wrapping %v", err, storeErr)
		}
	})

	t.Run("save", func(t *testing.T) {
		repo := NewKVEntityRepo[model.Idea](&failingStore{setErr: storeErr}, model.KindIdeas)
		if err := repo.Save(ctx, "alice", idea("a", 1)); !errors.Is(err, storeErr) {
			t.Errorf("err = %v, want wrapping %v", err, storeErr)
		}
	})
}

func TestDedupeByID(t *testing.T) {
	got := dedupeByID([]model.Idea{idea("a", 1), idea("b", 2), idea("a", 3)})
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if !got[0].CreatedAt.Equal(base.Add(time.Minute)) {
		t.Errorf("first occurrence was not kept")
	}
}
