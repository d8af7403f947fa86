package model

import "time"

// RoadmapDay 是学习路线中的一天。
type RoadmapDay struct {
	Day    int      `json:"day"`
	Title  string   `json:"title"`
	Tasks  []string `json:"tasks"`
	Lesson string   `json:"lesson"`
}

// RoadmapDocument 是语言模型生成的多日学习计划，生成后不再修改。
type RoadmapDocument struct {
	Topic   string       `json:"topic"`
	Summary string       `json:"summary"`
	Days    []RoadmapDay `json:"days"`
}

// Day 按天数查找，不存在时返回 nil。
func (d RoadmapDocument) Day(n int) *RoadmapDay {
	for i := range d.Days {
		if d.Days[i].Day == n {
			return &d.Days[i]
		}
	}
	return nil
}

// RoadmapRecord 对应 roadmaps 表，路线文档以 JSON 列保存。
type RoadmapRecord struct {
	ID               string          `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Topic            string          `gorm:"type:varchar(255)" json:"topic"`
	Description      string          `gorm:"type:text" json:"description"`
	Roadmap          RoadmapDocument `gorm:"type:text;serializer:json" json:"roadmap"`
	Summary          string          `gorm:"type:text" json:"summary"`
	SummaryAudioPath *string         `gorm:"type:varchar(255)" json:"summary_audio_path"`
	CreatedAt        time.Time       `gorm:"autoCreateTime;index" json:"-"`
}

func (RoadmapRecord) TableName() string {
	return "roadmaps"
}

// RoadmapView 是 GET /roadmap/:id 的返回结构。
type RoadmapView struct {
	ID               string          `json:"id"`
	Topic            string          `json:"topic"`
	Description      string          `json:"description"`
	Roadmap          RoadmapDocument `json:"roadmap"`
	Summary          string          `json:"summary"`
	SummaryAudioPath *string         `json:"summary_audio_path"`
	CreatedAt        LocalTime       `json:"created_at"`
}

// View converts the row into its API shape.
func (r RoadmapRecord) View() RoadmapView {
	return RoadmapView{
		ID:               r.ID,
		Topic:            r.Topic,
		Description:      r.Description,
		Roadmap:          r.Roadmap,
		Summary:          r.Summary,
		SummaryAudioPath: r.SummaryAudioPath,
		CreatedAt:        LocalTime(r.CreatedAt),
	}
}

// RoadmapSummary 是 GET /roadmaps 列表中的单项。
type RoadmapSummary struct {
	ID          string    `json:"id"`
	Topic       string    `json:"topic"`
	Description string    `json:"description"`
	Summary     string    `json:"summary"`
	CreatedAt   LocalTime `json:"created_at"`
}
