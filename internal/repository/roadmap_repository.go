// Package repository 定义了与数据库、Redis 进行数据交换的接口和实现。
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"voice-tutor-go/internal/model"
	"voice-tutor-go/pkg/log"
)

// ErrStoreNotConfigured 表示文档存储未配置（database.driver 为空或连接失败）。
var ErrStoreNotConfigured = errors.New("roadmap store not configured: set database.driver and database.dsn")

// RoadmapRepository 定义了学习路线的持久化操作。
type RoadmapRepository interface {
	// Save 总是返回新生成的 ID；持久化失败只记录日志，不影响调用方。
	Save(ctx context.Context, topic, description string, doc model.RoadmapDocument, summary string, summaryAudio *string) string
	// Get 在路线不存在时返回 (nil, nil)。
	Get(ctx context.Context, id string) (*model.RoadmapRecord, error)
	List(ctx context.Context) ([]model.RoadmapSummary, error)
	// GetDay 在路线或该天不存在时返回 (nil, nil)。
	GetDay(ctx context.Context, id string, day int) (*model.RoadmapDay, error)
}

type roadmapRepository struct {
	db *gorm.DB
}

// NewRoadmapRepository 创建一个新的 RoadmapRepository。db 为 nil 时进入临时模式。
func NewRoadmapRepository(db *gorm.DB) RoadmapRepository {
	return &roadmapRepository{db: db}
}

// AutoMigrate 创建或更新 roadmaps 表。
func AutoMigrate(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	return db.AutoMigrate(&model.RoadmapRecord{})
}

func (r *roadmapRepository) Save(ctx context.Context, topic, description string, doc model.RoadmapDocument, summary string, summaryAudio *string) string {
	id := uuid.NewString()
	if r.db == nil {
		log.Warnf("[RoadmapRepository] 存储未配置，返回临时 ID: %s", id)
		return id
	}

	record := &model.RoadmapRecord{
		ID:               id,
		Topic:            topic,
		Description:      description,
		Roadmap:          doc,
		Summary:          summary,
		SummaryAudioPath: summaryAudio,
	}
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		log.Errorf("[RoadmapRepository] 保存路线失败，继续使用临时 ID %s: %v", id, err)
		return id
	}
	log.Infof("[RoadmapRepository] Roadmap saved with ID: %s", id)
	return id
}

func (r *roadmapRepository) Get(ctx context.Context, id string) (*model.RoadmapRecord, error) {
	if r.db == nil {
		return nil, ErrStoreNotConfigured
	}
	var record model.RoadmapRecord
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get roadmap %s: %w", id, err)
	}
	return &record, nil
}

func (r *roadmapRepository) List(ctx context.Context) ([]model.RoadmapSummary, error) {
	if r.db == nil {
		return nil, ErrStoreNotConfigured
	}
	var records []model.RoadmapRecord
	err := r.db.WithContext(ctx).
		Select("id", "topic", "description", "summary", "created_at").
		Order("created_at desc").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list roadmaps: %w", err)
	}
	summaries := make([]model.RoadmapSummary, 0, len(records))
	for _, rec := range records {
		summaries = append(summaries, model.RoadmapSummary{
			ID:          rec.ID,
			Topic:       rec.Topic,
			Description: rec.Description,
			Summary:     rec.Summary,
			CreatedAt:   model.LocalTime(rec.CreatedAt),
		})
	}
	return summaries, nil
}

func (r *roadmapRepository) GetDay(ctx context.Context, id string, day int) (*model.RoadmapDay, error) {
	record, err := r.Get(ctx, id)
	if err != nil || record == nil {
		return nil, err
	}
	return record.Roadmap.Day(day), nil
}
