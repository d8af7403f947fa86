package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"voice-tutor-go/internal/model"
	"voice-tutor-go/pkg/tasks"
)

type memIndex struct {
	docs []model.RoadmapIndexDoc
	err  error
}

func (m *memIndex) IndexRoadmap(_ context.Context, doc model.RoadmapIndexDoc) error {
	if m.err != nil {
		return m.err
	}
	m.docs = append(m.docs, doc)
	return nil
}

func sampleEvent() tasks.RoadmapEvent {
	return tasks.RoadmapEvent{
		Type:        tasks.RoadmapCreated,
		RoadmapID:   "r-1",
		Topic:       "Guitar",
		Description: "Create a 2-day learning roadmap for guitar.",
		Summary:     "Learn chords",
		DayTitles:   []string{"Basics", "Chords"},
		Lessons:     []string{"Hold the guitar.", "Play C major."},
		CreatedAt:   time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
	}
}

func TestToIndexDoc(t *testing.T) {
	doc := ToIndexDoc(sampleEvent())
	if doc.DayCount != 2 || doc.Lessons != "Hold the guitar.\n\nPlay C major." {
		t.Fatalf("unexpected doc: %+v", doc)
	}
	if doc.CreatedAt != "2026-03-01T09:30:00" {
		t.Fatalf("created_at = %q", doc.CreatedAt)
	}
}

func TestDirectPublisherIndexes(t *testing.T) {
	idx := &memIndex{}
	pub := NewDirectPublisher(NewProcessor(idx))
	if err := pub.Publish(context.Background(), sampleEvent()); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(idx.docs) != 1 || idx.docs[0].RoadmapID != "r-1" {
		t.Fatalf("indexed = %+v", idx.docs)
	}
}

func TestProcessErrors(t *testing.T) {
	boom := errors.New("es down")
	p := NewProcessor(&memIndex{err: boom})
	if err := p.Process(context.Background(), sampleEvent()); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}

	ev := sampleEvent()
	ev.RoadmapID = ""
	if err := NewProcessor(&memIndex{}).Process(context.Background(), ev); err == nil {
		t.Fatal("expected error for missing roadmap_id")
	}
}
