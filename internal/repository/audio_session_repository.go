package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// AudioSessionRepository 记录每个音频会话生成过的音频文件，供清理时逐个删除。
type AudioSessionRepository interface {
	Create(ctx context.Context, id string) error
	// Add 对未知会话不做任何事，返回 false。
	Add(ctx context.Context, id, ref string) (bool, error)
	// Remove 返回会话中的全部音频并忘记该会话；会话不存在时 ok 为 false。
	Remove(ctx context.Context, id string) (refs []string, ok bool, err error)
}

type redisAudioSessionRepository struct {
	redisClient *redis.Client
	ttl         time.Duration
}

// NewRedisAudioSessionRepository 用 audio_session:<id>:open 标记会话存在，audio_session:<id> 列表保存音频名。
func NewRedisAudioSessionRepository(redisClient *redis.Client, ttl time.Duration) AudioSessionRepository {
	return &redisAudioSessionRepository{redisClient: redisClient, ttl: ttl}
}

func audioSessionKeys(id string) (marker, list string) {
	list = fmt.Sprintf("audio_session:%s", id)
	return list + ":open", list
}

func (r *redisAudioSessionRepository) Create(ctx context.Context, id string) error {
	marker, _ := audioSessionKeys(id)
	if err := r.redisClient.Set(ctx, marker, time.Now().Unix(), r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to create audio session: %w", err)
	}
	return nil
}

func (r *redisAudioSessionRepository) Add(ctx context.Context, id, ref string) (bool, error) {
	marker, list := audioSessionKeys(id)
	n, err := r.redisClient.Exists(ctx, marker).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check audio session: %w", err)
	}
	if n == 0 {
		return false, nil
	}
	pipe := r.redisClient.TxPipeline()
	pipe.RPush(ctx, list, ref)
	pipe.Expire(ctx, list, r.ttl)
	pipe.Expire(ctx, marker, r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("failed to add audio to session: %w", err)
	}
	return true, nil
}

func (r *redisAudioSessionRepository) Remove(ctx context.Context, id string) ([]string, bool, error) {
	marker, list := audioSessionKeys(id)
	pipe := r.redisClient.TxPipeline()
	exists := pipe.Exists(ctx, marker)
	refs := pipe.LRange(ctx, list, 0, -1)
	pipe.Del(ctx, marker, list)
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, false, fmt.Errorf("failed to remove audio session: %w", err)
	}
	if exists.Val() == 0 {
		return nil, false, nil
	}
	return refs.Val(), true, nil
}

type memoryAudioSessionRepository struct {
	mu       sync.Mutex
	sessions map[string][]string
}

// NewMemoryAudioSessionRepository 返回进程内实现，会话只在进程生命周期内有效。
func NewMemoryAudioSessionRepository() AudioSessionRepository {
	return &memoryAudioSessionRepository{sessions: make(map[string][]string)}
}

func (r *memoryAudioSessionRepository) Create(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[id] = []string{}
	return nil
}

func (r *memoryAudioSessionRepository) Add(_ context.Context, id, ref string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	refs, ok := r.sessions[id]
	if !ok {
		return false, nil
	}
	r.sessions[id] = append(refs, ref)
	return true, nil
}

func (r *memoryAudioSessionRepository) Remove(_ context.Context, id string) ([]string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	refs, ok := r.sessions[id]
	if !ok {
		return nil, false, nil
	}
	delete(r.sessions, id)
	return refs, true, nil
}
