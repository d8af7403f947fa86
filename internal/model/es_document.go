// Package model 定义了与数据库表、Redis 和 Elasticsearch 对应的 Go 结构体。
package model

// RoadmapIndexDoc 代表存储在 Elasticsearch 中的路线文档。
type RoadmapIndexDoc struct {
	RoadmapID   string   `json:"roadmap_id"`
	Topic       string   `json:"topic"`
	Description string   `json:"description"`
	Summary     string   `json:"summary"`
	DayTitles   []string `json:"day_titles"`
	Lessons     string   `json:"lessons"`
	DayCount    int      `json:"day_count"`
	CreatedAt   string   `json:"created_at"`
}

// SearchResult 定义了返回给前端的搜索结果结构。
type SearchResult struct {
	RoadmapID string  `json:"roadmap_id"`
	Topic     string  `json:"topic"`
	Summary   string  `json:"summary"`
	DayCount  int     `json:"day_count"`
	Score     float64 `json:"score"`
}
