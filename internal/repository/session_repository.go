package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"voice-tutor-go/internal/conversation"
)

// ErrSessionNotFound 表示欢迎会话不存在或已过期。
var ErrSessionNotFound = errors.New("welcome session not found")

// SessionRepository 定义了欢迎会话的存取接口。
type SessionRepository interface {
	Get(ctx context.Context, id string) (*conversation.Session, error)
	Put(ctx context.Context, session *conversation.Session) error
	Delete(ctx context.Context, id string) error
}

type redisSessionRepository struct {
	redisClient *redis.Client
	ttl         time.Duration
}

// NewRedisSessionRepository 以 JSON 形式把会话保存在 welcome_session:<id>，每次写入刷新 TTL。
func NewRedisSessionRepository(redisClient *redis.Client, ttl time.Duration) SessionRepository {
	return &redisSessionRepository{redisClient: redisClient, ttl: ttl}
}

func welcomeSessionKey(id string) string {
	return fmt.Sprintf("welcome_session:%s", id)
}

func (r *redisSessionRepository) Get(ctx context.Context, id string) (*conversation.Session, error) {
	data, err := r.redisClient.Get(ctx, welcomeSessionKey(id)).Bytes()
	if err == redis.Nil {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get welcome session: %w", err)
	}
	var session conversation.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal welcome session: %w", err)
	}
	return &session, nil
}

func (r *redisSessionRepository) Put(ctx context.Context, session *conversation.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal welcome session: %w", err)
	}
	if err := r.redisClient.Set(ctx, welcomeSessionKey(session.ID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save welcome session: %w", err)
	}
	return nil
}

func (r *redisSessionRepository) Delete(ctx context.Context, id string) error {
	return r.redisClient.Del(ctx, welcomeSessionKey(id)).Err()
}

// memorySessionRepository 在进程内保存会话快照，没有过期。
type memorySessionRepository struct {
	mu       sync.RWMutex
	sessions map[string][]byte
}

// NewMemorySessionRepository 返回一个进程内的 SessionRepository，用于未配置 Redis 的部署和测试。
func NewMemorySessionRepository() SessionRepository {
	return &memorySessionRepository{sessions: make(map[string][]byte)}
}

func (r *memorySessionRepository) Get(_ context.Context, id string) (*conversation.Session, error) {
	r.mu.RLock()
	data, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	// 保存的是快照，调用方修改返回值不会影响存储
	var session conversation.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *memorySessionRepository) Put(_ context.Context, session *conversation.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.sessions[session.ID] = data
	r.mu.Unlock()
	return nil
}

func (r *memorySessionRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
	return nil
}
