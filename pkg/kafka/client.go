// Package kafka 提供了与 Kafka 消息队列交互的功能。
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/segmentio/kafka-go"

	"voice-tutor-go/internal/config"
	"voice-tutor-go/pkg/log"
	"voice-tutor-go/pkg/tasks"
)

// maxAttempts 同一事件处理失败达到该次数后提交 offset，放弃重试。
const maxAttempts = 3

// EventProcessor defines the interface for any service that can process a roadmap event.
type EventProcessor interface {
	Process(ctx context.Context, event tasks.RoadmapEvent) error
}

// Producer 发送路线事件到 Kafka。
type Producer struct {
	writer *kafka.Writer
}

// NewProducer 初始化 Kafka 生产者。
func NewProducer(cfg config.KafkaConfig) *Producer {
	p := &Producer{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(strings.Split(cfg.Brokers, ",")...),
			Topic:                  cfg.Topic,
			Balancer:               &kafka.LeastBytes{},
			AllowAutoTopicCreation: true,
		},
	}
	log.Info("[Kafka] 生产者初始化成功")
	return p
}

// Publish 发送一个路线事件，消息 key 为 roadmap_id。
func (p *Producer) Publish(ctx context.Context, event tasks.RoadmapEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.RoadmapID),
		Value: payload,
	})
}

// Close 关闭生产者。
func (p *Producer) Close() error {
	return p.writer.Close()
}

// attemptTracker 记录事件的失败次数；有 Redis 时跨实例共享，否则保存在进程内。
type attemptTracker struct {
	rdb   *redis.Client
	mu    sync.Mutex
	local map[string]int64
}

func newAttemptTracker(rdb *redis.Client) *attemptTracker {
	return &attemptTracker{rdb: rdb, local: make(map[string]int64)}
}

func attemptsKey(id string) string {
	return fmt.Sprintf("kafka:attempts:%s", id)
}

func (t *attemptTracker) incr(ctx context.Context, id string) (int64, error) {
	if t.rdb == nil {
		t.mu.Lock()
		defer t.mu.Unlock()
		t.local[id]++
		return t.local[id], nil
	}
	n, err := t.rdb.Incr(ctx, attemptsKey(id)).Result()
	if err != nil {
		return 0, err
	}
	_ = t.rdb.Expire(ctx, attemptsKey(id), 24*time.Hour).Err()
	return n, nil
}

func (t *attemptTracker) reset(ctx context.Context, id string) {
	if t.rdb == nil {
		t.mu.Lock()
		delete(t.local, id)
		t.mu.Unlock()
		return
	}
	_ = t.rdb.Del(ctx, attemptsKey(id)).Err()
}

// handle 处理单条消息并返回是否应提交 offset。
func handle(ctx context.Context, m kafka.Message, processor EventProcessor, tracker *attemptTracker) bool {
	var event tasks.RoadmapEvent
	if err := json.Unmarshal(m.Value, &event); err != nil {
		// 消息格式错误，直接提交，避免阻塞队列
		log.Errorf("[Kafka] 无法解析消息: %v, value: %s", err, string(m.Value))
		return true
	}
	if event.Type != tasks.RoadmapCreated {
		log.Warnf("[Kafka] 忽略未知事件类型: %s", event.Type)
		return true
	}

	if err := processor.Process(ctx, event); err != nil {
		log.Errorf("[Kafka] 处理路线事件失败: roadmap=%s, error: %v", event.RoadmapID, err)
		attempts, incErr := tracker.incr(ctx, event.RoadmapID)
		if incErr != nil {
			// Redis 异常时保守处理：不提交 offset，让 Kafka 重试
			return false
		}
		if attempts >= maxAttempts {
			log.Errorf("[Kafka] 路线事件多次失败(>=%d)，提交 offset 终止重试: roadmap=%s", maxAttempts, event.RoadmapID)
			return true
		}
		return false
	}

	tracker.reset(ctx, event.RoadmapID)
	log.Infof("[Kafka] 路线事件处理成功: roadmap=%s", event.RoadmapID)
	return true
}

// StartConsumer 启动一个 Kafka 消费者处理路线事件，直到 ctx 被取消。
func StartConsumer(ctx context.Context, cfg config.KafkaConfig, processor EventProcessor, rdb *redis.Client) {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  strings.Split(cfg.Brokers, ","),
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})
	defer func() {
		if err := r.Close(); err != nil {
			log.Errorf("[Kafka] 关闭消费者失败: %v", err)
		}
	}()

	tracker := newAttemptTracker(rdb)
	log.Infof("[Kafka] 消费者已启动，正在监听主题 '%s'", cfg.Topic)

	for {
		m, err := r.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				log.Info("[Kafka] 消费者已停止")
			} else {
				log.Error("[Kafka] 读取消息失败", err)
			}
			return
		}
		if handle(ctx, m, processor, tracker) {
			if err := r.CommitMessages(ctx, m); err != nil {
				log.Errorf("[Kafka] 提交 offset 失败: %v", err)
			}
		}
	}
}
