package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"voice-tutor-go/internal/model"
	"voice-tutor-go/internal/repository"
	"voice-tutor-go/pkg/llm"
	"voice-tutor-go/pkg/log"
	"voice-tutor-go/pkg/tasks"
)

var (
	ErrRoadmapNotFound      = errors.New("roadmap not found")
	ErrLessonNotFound       = errors.New("lesson not found")
	ErrSummaryAudioNotFound = errors.New("summary audio not found")
	ErrSearchNotConfigured  = errors.New("roadmap search not configured: set elasticsearch.addresses")
)

// EventPublisher 发布路线事件（Kafka 生产者或同步索引器）。
type EventPublisher interface {
	Publish(ctx context.Context, event tasks.RoadmapEvent) error
}

// RoadmapSearcher 在已生成的路线中检索。
type RoadmapSearcher interface {
	SearchRoadmaps(ctx context.Context, query string, size int) ([]model.SearchResult, error)
}

// CreateRoadmapResult 是 /create-roadmap 的返回结构。
type CreateRoadmapResult struct {
	RoadmapID       string                `json:"roadmap_id"`
	Roadmap         model.RoadmapDocument `json:"roadmap"`
	Day1AudioURL    string                `json:"day1_audio_url"`
	SummaryAudioURL *string               `json:"summary_audio_url"`
}

// RoadmapService 定义了学习路线的业务接口。
type RoadmapService interface {
	Generate(ctx context.Context, summary string) (model.RoadmapDocument, error)
	CreateWithAudio(ctx context.Context, prompt, sessionID string) (*CreateRoadmapResult, error)
	Get(ctx context.Context, id string) (*model.RoadmapView, error)
	List(ctx context.Context) ([]model.RoadmapSummary, error)
	GetDay(ctx context.Context, id string, day int) (*model.RoadmapDay, error)
	SummaryAudio(ctx context.Context, id string) ([]byte, error)
	Search(ctx context.Context, query string, size int) ([]model.SearchResult, error)
}

type roadmapService struct {
	llmClient llm.Client
	audio     AudioService
	repo      repository.RoadmapRepository
	publisher EventPublisher
	searcher  RoadmapSearcher
}

// NewRoadmapService 创建一个新的 RoadmapService 实例。publisher 和 searcher 可以为 nil。
func NewRoadmapService(llmClient llm.Client, audio AudioService, repo repository.RoadmapRepository, publisher EventPublisher, searcher RoadmapSearcher) RoadmapService {
	return &roadmapService{
		llmClient: llmClient,
		audio:     audio,
		repo:      repo,
		publisher: publisher,
		searcher:  searcher,
	}
}

// FallbackRoadmap 在模型输出无法解析时返回的一天路线。
func FallbackRoadmap() model.RoadmapDocument {
	return model.RoadmapDocument{
		Topic:   "Learning Topic",
		Summary: "A comprehensive learning roadmap to help you master your chosen subject.",
		Days: []model.RoadmapDay{{
			Day:    1,
			Title:  "Getting Started",
			Tasks:  []string{"Introduction to the topic", "Basic concepts"},
			Lesson: "Welcome to your learning journey! Today we'll start with the fundamentals and build a strong foundation.",
		}},
	}
}

func roadmapPrompt(summary string) string {
	return fmt.Sprintf(`Create a detailed learning roadmap based on this summary: %s

Return ONLY valid JSON in this format:
{
    "topic": "extract topic name from summary",
    "summary": "Brief overview of the roadmap covering main topics and goals",
    "days": [
        {
            "day": 1,
            "title": "Day 1 title",
            "tasks": ["task1", "task2"],
            "lesson": "Detailed lesson content for audio conversion"
        }
    ]
}
Learning Summary: %q`, summary, summary)
}

// stripCodeFence 去掉模型常加的 ```json ... ``` 包裹。
func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// parseRoadmap 解析模型输出；缺少 topic、days 或任一天的必填字段时视为无效。
func parseRoadmap(raw string) (model.RoadmapDocument, error) {
	cleaned := stripCodeFence(raw)
	if cleaned == "" {
		return model.RoadmapDocument{}, errors.New("empty response from language model")
	}
	var doc model.RoadmapDocument
	if err := json.Unmarshal([]byte(cleaned), &doc); err != nil {
		return model.RoadmapDocument{}, fmt.Errorf("invalid roadmap json: %w", err)
	}
	switch {
	case strings.TrimSpace(doc.Topic) == "":
		return model.RoadmapDocument{}, errors.New("roadmap json missing topic")
	case len(doc.Days) == 0:
		return model.RoadmapDocument{}, errors.New("roadmap json missing days")
	}
	for i, d := range doc.Days {
		if err := validateDay(d, i+1); err != nil {
			return model.RoadmapDocument{}, err
		}
	}
	return doc, nil
}

// validateDay 要求每一天都有 day、title、tasks 和 lesson，且 day 从 1 开始连续编号。
func validateDay(d model.RoadmapDay, want int) error {
	switch {
	case d.Day != want:
		return fmt.Errorf("roadmap json day %d has day=%d", want, d.Day)
	case strings.TrimSpace(d.Title) == "":
		return fmt.Errorf("roadmap json day %d missing title", want)
	case d.Tasks == nil:
		return fmt.Errorf("roadmap json day %d missing tasks", want)
	case strings.TrimSpace(d.Lesson) == "":
		return fmt.Errorf("roadmap json day %d missing lesson", want)
	}
	return nil
}

func (s *roadmapService) Generate(ctx context.Context, summary string) (model.RoadmapDocument, error) {
	raw, err := s.llmClient.Complete(ctx, roadmapPrompt(summary))
	if err != nil {
		return model.RoadmapDocument{}, fmt.Errorf("roadmap generation failed: %w", err)
	}
	log.Debugf("[RoadmapService] Raw response: %s", raw)
	doc, err := parseRoadmap(raw)
	return attempt("roadmap parse", doc, err).or(FallbackRoadmap()), nil
}

func (s *roadmapService) CreateWithAudio(ctx context.Context, prompt, sessionID string) (*CreateRoadmapResult, error) {
	doc, err := s.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	day1, err := s.audio.Synthesize(ctx, doc.Days[0].Lesson, sessionID)
	if err != nil {
		return nil, err
	}

	result := &CreateRoadmapResult{Roadmap: doc, Day1AudioURL: day1.URL}
	var summaryAudio *string
	if doc.Summary != "" {
		ref, err := s.audio.Synthesize(ctx, doc.Summary, sessionID)
		if err != nil {
			return nil, err
		}
		summaryAudio = &ref.Name
		result.SummaryAudioURL = &ref.URL
	}

	result.RoadmapID = s.repo.Save(ctx, doc.Topic, prompt, doc, doc.Summary, summaryAudio)
	s.publishCreated(ctx, result.RoadmapID, prompt, doc)
	log.Infof("[RoadmapService] 路线已生成: id=%s, topic=%s, days=%d", result.RoadmapID, doc.Topic, len(doc.Days))
	return result, nil
}

func (s *roadmapService) publishCreated(ctx context.Context, id, description string, doc model.RoadmapDocument) {
	if s.publisher == nil {
		return
	}
	event := tasks.RoadmapEvent{
		Type:        tasks.RoadmapCreated,
		RoadmapID:   id,
		Topic:       doc.Topic,
		Description: description,
		Summary:     doc.Summary,
		CreatedAt:   time.Now(),
	}
	for _, d := range doc.Days {
		event.DayTitles = append(event.DayTitles, d.Title)
		event.Lessons = append(event.Lessons, d.Lesson)
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		log.Errorf("[RoadmapService] 发布路线事件失败: id=%s, error: %v", id, err)
	}
}

func (s *roadmapService) Get(ctx context.Context, id string) (*model.RoadmapView, error) {
	record, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrRoadmapNotFound
	}
	view := record.View()
	return &view, nil
}

func (s *roadmapService) List(ctx context.Context) ([]model.RoadmapSummary, error) {
	return s.repo.List(ctx)
}

func (s *roadmapService) GetDay(ctx context.Context, id string, day int) (*model.RoadmapDay, error) {
	lesson, err := s.repo.GetDay(ctx, id, day)
	if err != nil {
		return nil, err
	}
	if lesson == nil {
		return nil, ErrLessonNotFound
	}
	return lesson, nil
}

func (s *roadmapService) SummaryAudio(ctx context.Context, id string) ([]byte, error) {
	record, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if record == nil || record.SummaryAudioPath == nil || *record.SummaryAudioPath == "" {
		return nil, ErrSummaryAudioNotFound
	}
	data, err := s.audio.Open(ctx, *record.SummaryAudioPath)
	if errors.Is(err, ErrAudioNotFound) {
		return nil, ErrSummaryAudioNotFound
	}
	return data, err
}

func (s *roadmapService) Search(ctx context.Context, query string, size int) ([]model.SearchResult, error) {
	if s.searcher == nil {
		return nil, ErrSearchNotConfigured
	}
	return s.searcher.SearchRoadmaps(ctx, query, size)
}
