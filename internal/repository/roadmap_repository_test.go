package repository

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"voice-tutor-go/internal/model"
	"voice-tutor-go/pkg/database"
)

func newSQLiteRepo(t *testing.T) RoadmapRepository {
	t.Helper()
	db, err := database.Open("sqlite", "file::memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewRoadmapRepository(db)
}

func sampleRoadmap() model.RoadmapDocument {
	return model.RoadmapDocument{
		Topic:   "Guitar",
		Summary: "Two weeks of chords and strumming.",
		Days: []model.RoadmapDay{
			{Day: 1, Title: "Holding the guitar", Tasks: []string{"Posture", "Tuning"}, Lesson: "Sit up straight."},
			{Day: 2, Title: "First chords", Tasks: []string{"E minor", "A minor"}, Lesson: "Place two fingers."},
		},
	}
}

func TestRoadmapRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newSQLiteRepo(t)
	doc := sampleRoadmap()
	audio := "lesson_abc.wav"

	id := repo.Save(ctx, doc.Topic, "learn guitar", doc, doc.Summary, &audio)
	if id == "" {
		t.Fatal("empty id")
	}

	got, err := repo.Get(ctx, id)
	if err != nil || got == nil {
		t.Fatalf("Get = %v, %v", got, err)
	}
	if !reflect.DeepEqual(got.Roadmap, doc) {
		t.Fatalf("roadmap mismatch:\n got %+v\nwant %+v", got.Roadmap, doc)
	}
	if got.SummaryAudioPath == nil || *got.SummaryAudioPath != audio {
		t.Fatalf("summary audio = %v", got.SummaryAudioPath)
	}

	day, err := repo.GetDay(ctx, id, 2)
	if err != nil || day == nil || day.Title != "First chords" {
		t.Fatalf("GetDay = %+v, %v", day, err)
	}
	if day, _ := repo.GetDay(ctx, id, 9); day != nil {
		t.Fatalf("expected no day 9, got %+v", day)
	}
}

func TestRoadmapGetMissing(t *testing.T) {
	repo := newSQLiteRepo(t)
	got, err := repo.Get(context.Background(), "nope")
	if err != nil || got != nil {
		t.Fatalf("Get = %v, %v", got, err)
	}
}

func TestRoadmapListNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := newSQLiteRepo(t)
	first := repo.Save(ctx, "A", "a", sampleRoadmap(), "s", nil)
	time.Sleep(10 * time.Millisecond)
	second := repo.Save(ctx, "B", "b", sampleRoadmap(), "s", nil)

	list, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].ID != second || list[1].ID != first {
		t.Fatalf("unexpected order: %+v", list)
	}
}

func TestUnconfiguredStore(t *testing.T) {
	ctx := context.Background()
	repo := NewRoadmapRepository(nil)

	if id := repo.Save(ctx, "t", "d", sampleRoadmap(), "s", nil); id == "" {
		t.Fatal("Save must still return an id")
	}
	if _, err := repo.Get(ctx, "x"); !errors.Is(err, ErrStoreNotConfigured) {
		t.Fatalf("Get err = %v", err)
	}
	if _, err := repo.List(ctx); !errors.Is(err, ErrStoreNotConfigured) {
		t.Fatalf("List err = %v", err)
	}
	if _, err := repo.GetDay(ctx, "x", 1); !errors.Is(err, ErrStoreNotConfigured) {
		t.Fatalf("GetDay err = %v", err)
	}
}
