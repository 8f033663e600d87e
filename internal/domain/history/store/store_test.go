package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"github.com/arth-1/socialpost/internal/platform/errors"
	"github.com/arth-1/socialpost/internal/platform/storage"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	list, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List empty: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected empty store, got %v", list)
	}

	for _, p := range []string{"one", "two", "three"} {
		if err := s.Prepend(ctx, p); err != nil {
			t.Fatalf("Prepend %s: %v", p, err)
		}
	}
	list, err = s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if fmt.Sprint(list) != "[three two one]" {
		t.Fatalf("unexpected order %v", list)
	}

	ok, err := s.Contains(ctx, "two")
	if err != nil || !ok {
		t.Fatalf("Contains(two) = %v, %v", ok, err)
	}
	ok, err = s.Contains(ctx, "four")
	if err != nil || ok {
		t.Fatalf("Contains(four) = %v, %v", ok, err)
	}

	if err := s.Trim(ctx, 2); err != nil {
		t.Fatalf("Trim: %v", err)
	}
	list, _ = s.List(ctx)
	if fmt.Sprint(list) != "[three two]" {
		t.Fatalf("unexpected list after trim %v", list)
	}

	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	list, _ = s.List(ctx)
	if len(list) != 0 {
		t.Fatalf("expected empty after clear, got %v", list)
	}
}

func TestMemoryStore(t *testing.T) {
	s := NewMemory()
	defer s.Close(context.Background())
	exerciseStore(t, s)
}

func TestSQLiteStore(t *testing.T) {
	db, err := storage.Open(storage.Config{DSN: fmt.Sprintf("file:history-%d?mode=memory&cache=shared", time.Now().UnixNano())})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer storage.Close(db)

	s, err := NewSQLite(db)
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	exerciseStore(t, s)
}

func TestRedisStore(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()

	s, err := NewRedis(Config{Redis: &RedisConfig{Addr: mr.Addr(), Key: "test:history"}})
	if err != nil {
		t.Fatalf("NewRedis: %v", err)
	}
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	exerciseStore(t, s)

	if err := s.Prepend(context.Background(), "kept"); err != nil {
		t.Fatalf("Prepend: %v", err)
	}
	if got, _ := mr.List("test:history"); len(got) != 1 || got[0] != "kept" {
		t.Fatalf("unexpected redis list %v", got)
	}
}

func TestFactory(t *testing.T) {
	s, err := New(Config{}, Dependencies{})
	if err != nil {
		t.Fatalf("New default: %v", err)
	}
	if _, ok := s.(*memoryStore); !ok {
		t.Fatalf("default driver should be memory, got %T", s)
	}

	if _, err := New(Config{Driver: DriverSQLite}, Dependencies{}); !errors.IsKind(err, errors.KindConfig) {
		t.Fatalf("expected config error for sqlite without db, got %v", err)
	}
	if _, err := New(Config{Driver: DriverRedis}, Dependencies{}); !errors.IsKind(err, errors.KindConfig) {
		t.Fatalf("expected config error for redis without addr, got %v", err)
	}
	if _, err := New(Config{Driver: "etcd"}, Dependencies{}); !errors.IsKind(err, errors.KindConfig) {
		t.Fatalf("expected config error for unknown driver, got %v", err)
	}
}
