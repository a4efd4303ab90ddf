package database

import (
	"context"
	"fmt"
	"time"

	"support-chat-go/internal/config"
	"support-chat-go/pkg/log"

	"github.com/go-redis/redis/v8"
)

// InitRedis 初始化 Redis 客户端连接。未配置地址时返回 nil，调用方改用内存存储。
func InitRedis(cfg config.RedisConfig) (*redis.Client, error) {
	if cfg.Addr == "" {
		log.Info("未配置 Redis，偏好与工单台账使用内存存储")
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	log.Infow("Redis client connected successfully", "addr", cfg.Addr, "db", cfg.DB)
	return client, nil
}
