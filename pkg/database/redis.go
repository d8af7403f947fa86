package database

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"

	"voice-tutor-go/pkg/log"
)

// RDB 为空时会话存储使用进程内内存实现。
var RDB *redis.Client

// InitRedis 初始化 Redis 客户端连接。addr 为空或连接失败时 RDB 保持为 nil。
func InitRedis(addr, password string, db int) {
	if addr == "" {
		log.Warnf("[Redis] 未配置 redis 地址，会话保存在内存中")
		return
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Error("[Redis] failed to connect to redis, falling back to memory", err)
		_ = client.Close()
		return
	}

	RDB = client
	log.Info("[Redis] client connected successfully")
}
