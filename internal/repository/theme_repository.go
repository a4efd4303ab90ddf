// Package repository 提供了本地持久化的实现。
package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-redis/redis/v8"
)

// ThemeRepository 保存主题偏好（"dark" 或 "light"）。
type ThemeRepository interface {
	// Get 返回保存的值；没有保存过时 ok 为 false。
	Get(ctx context.Context) (value string, ok bool, err error)
	Set(ctx context.Context, value string) error
}

type redisThemeRepository struct {
	redisClient *redis.Client
	key         string
}

// NewThemeRepository 创建一个基于 Redis 的 ThemeRepository。key 为完整的 Redis 键名。
func NewThemeRepository(redisClient *redis.Client, key string) ThemeRepository {
	return &redisThemeRepository{redisClient: redisClient, key: key}
}

func (r *redisThemeRepository) Get(ctx context.Context) (string, bool, error) {
	value, err := r.redisClient.Get(ctx, r.key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get theme preference: %w", err)
	}
	return value, true, nil
}

// Set 持久化主题偏好，不设置过期时间。
func (r *redisThemeRepository) Set(ctx context.Context, value string) error {
	if err := r.redisClient.Set(ctx, r.key, value, 0).Err(); err != nil {
		return fmt.Errorf("failed to set theme preference: %w", err)
	}
	return nil
}

type memoryThemeRepository struct {
	mu    sync.RWMutex
	value *string
}

// NewMemoryThemeRepository 创建一个进程内的 ThemeRepository，进程退出后偏好丢失。
func NewMemoryThemeRepository() ThemeRepository {
	return &memoryThemeRepository{}
}

func (r *memoryThemeRepository) Get(context.Context) (string, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.value == nil {
		return "", false, nil
	}
	return *r.value, true, nil
}

func (r *memoryThemeRepository) Set(_ context.Context, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.value = &value
	return nil
}
