// Package tasks defines the structure for events that are sent to Kafka.
package tasks

import "time"

// RoadmapCreated is the event type published after a roadmap is persisted.
const RoadmapCreated = "roadmap.created"

// RoadmapEvent carries enough of a generated roadmap to index it for search.
type RoadmapEvent struct {
	Type        string    `json:"type"`
	RoadmapID   string    `json:"roadmap_id"`
	Topic       string    `json:"topic"`
	Description string    `json:"description"`
	Summary     string    `json:"summary"`
	DayTitles   []string  `json:"day_titles"`
	Lessons     []string  `json:"lessons"`
	CreatedAt   time.Time `json:"created_at"`
}
