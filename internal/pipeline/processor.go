// Package pipeline 定义了路线事件的索引流程。
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"voice-tutor-go/internal/model"
	"voice-tutor-go/pkg/log"
	"voice-tutor-go/pkg/tasks"
)

// Index 是 Processor 写入的搜索索引，*es.RoadmapIndex 满足该接口。
type Index interface {
	IndexRoadmap(ctx context.Context, doc model.RoadmapIndexDoc) error
}

// Processor 把 roadmap.created 事件转换为搜索文档并写入索引。
type Processor struct {
	index Index
}

// NewProcessor 创建一个新的 Processor 实例。
func NewProcessor(index Index) *Processor {
	return &Processor{index: index}
}

// Process 处理一个路线事件。
func (p *Processor) Process(ctx context.Context, event tasks.RoadmapEvent) error {
	if event.RoadmapID == "" {
		return errors.New("事件缺少 roadmap_id")
	}
	log.Infof("[Processor] 开始索引路线, RoadmapID: %s, Topic: %s", event.RoadmapID, event.Topic)

	doc := ToIndexDoc(event)
	if err := p.index.IndexRoadmap(ctx, doc); err != nil {
		log.Errorf("[Processor] 索引路线到Elasticsearch失败, RoadmapID: %s, Error: %v", event.RoadmapID, err)
		return fmt.Errorf("索引路线失败: %w", err)
	}
	log.Infof("[Processor] 路线索引完成, RoadmapID: %s, 天数: %d", event.RoadmapID, doc.DayCount)
	return nil
}

// ToIndexDoc flattens an event into the document stored in the search index.
func ToIndexDoc(event tasks.RoadmapEvent) model.RoadmapIndexDoc {
	return model.RoadmapIndexDoc{
		RoadmapID:   event.RoadmapID,
		Topic:       event.Topic,
		Description: event.Description,
		Summary:     event.Summary,
		DayTitles:   event.DayTitles,
		Lessons:     strings.Join(event.Lessons, "\n\n"),
		DayCount:    len(event.DayTitles),
		CreatedAt:   event.CreatedAt.UTC().Format("2006-01-02T15:04:05"),
	}
}

// DirectPublisher 在没有 Kafka 时同步调用 Processor。
type DirectPublisher struct {
	processor *Processor
}

// NewDirectPublisher wraps p so it can stand in for the Kafka producer.
func NewDirectPublisher(p *Processor) *DirectPublisher {
	return &DirectPublisher{processor: p}
}

// Publish 直接处理事件。
func (d *DirectPublisher) Publish(ctx context.Context, event tasks.RoadmapEvent) error {
	return d.processor.Process(ctx, event)
}
