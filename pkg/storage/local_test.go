package storage

import (
	"context"
	"errors"
	"testing"
)

func TestLocalStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}

	if err := s.Put(ctx, "lesson_abc.wav", []byte("wav")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := s.Get(ctx, "lesson_abc.wav")
	if err != nil || string(got) != "wav" {
		t.Fatalf("Get = %q, %v", got, err)
	}
	if err := s.Delete(ctx, "lesson_abc.wav"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, "lesson_abc.wav"); !errors.Is(err, ErrObjectNotFound) {
		t.Fatalf("Get after delete: %v", err)
	}
	if err := s.Delete(ctx, "lesson_abc.wav"); !errors.Is(err, ErrObjectNotFound) {
		t.Fatalf("second Delete: %v", err)
	}
}

func TestLocalStoreConfinesNamesToDir(t *testing.T) {
	ctx := context.Background()
	s, _ := NewLocalStore(t.TempDir())
	if err := s.Put(ctx, "../escape.wav", []byte("x")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	// 路径被截断为文件名本身
	if _, err := s.Get(ctx, "escape.wav"); err != nil {
		t.Fatalf("expected file inside store dir: %v", err)
	}
}
