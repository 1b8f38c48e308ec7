package kvstore

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryStore_GetMissingKey_ReturnsErrNotFound(t *testing.T) {
	s := NewMemoryStore()

	_, err := s.Get(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestMemoryStore_SetThenGet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.Set(ctx, "games_alice", []byte(`[]`), 0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, err := s.Get(ctx, "games_alice")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != "[]" {
		t.Errorf("Get() = %q, want %q", got, "[]")
	}
}

func TestMemoryStore_ValuesAreCopied(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	value := []byte("abc")
	s.Set(ctx, "k", value, 0)
	value[0] = 'x'

	got, _ := s.Get(ctx, "k")
	if string(got) != "abc" {
		t.Errorf("stored value was mutated through caller slice: %q", got)
	}
	got[1] = 'y'
	again, _ := s.Get(ctx, "k")
	if string(again) != "abc" {
		t.Errorf("stored value was mutated through returned slice: %q", again)
	}
}

func TestMemoryStore_TTLExpires(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	s.Set(ctx, "session_x", []byte("1"), 20*time.Millisecond)
	time.Sleep(40 * time.Millisecond)

	if _, err := s.Get(ctx, "session_x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected expired key to be gone, err = %v", err)
	}
}

func TestMemoryStore_DeleteIsIdempotent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	s.Set(ctx, "k", []byte("v"), 0)
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("second Delete() error = %v", err)
	}
	if _, err := s.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected key to be deleted, err = %v", err)
	}
}

func TestMemoryStore_SetIfAbsent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	ok, err := s.SetIfAbsent(ctx, "user_alice", []byte("first"), 0)
	if err != nil || !ok {
		t.Fatalf("first SetIfAbsent() = %v, %v, want true", ok, err)
	}
	ok, err = s.SetIfAbsent(ctx, "user_alice", []byte("second"), 0)
	if err != nil || ok {
		t.Fatalf("second SetIfAbsent() = %v, %v, want false", ok, err)
	}

	got, _ := s.Get(ctx, "user_alice")
	if string(got) != "first" {
		t.Errorf("Get() = %q, want first", got)
	}
}

func TestMemoryStore_SetIfAbsent_AfterExpiry(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	s.SetIfAbsent(ctx, "k", []byte("old"), 20*time.Millisecond)
	time.Sleep(40 * time.Millisecond)

	if ok, _ := s.SetIfAbsent(ctx, "k", []byte("new"), 0); !ok {
		t.Error("expected SetIfAbsent to succeed after the previous key expired")
	}
}
