/**
 * 缓存仓库层:应用清单缓存
 * @author: sun977
 * @date: 2025.08.29
 * @description: 采集端拉取的应用/产品清单缓存(Redis存储,适合多实例部署)
 * @func: 单纯数据访问,不应该包含业务逻辑
 */
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const appsCacheKey = "neohq:cache:apps"

// AppsCacheRepository 应用清单Redis缓存库
type AppsCacheRepository struct {
	client     *redis.Client
	expiration time.Duration
}

// NewAppsCacheRepository 创建应用清单缓存库实例
func NewAppsCacheRepository(client *redis.Client, expiration time.Duration) *AppsCacheRepository {
	return &AppsCacheRepository{
		client:     client,
		expiration: expiration,
	}
}

// Get 获取缓存的应用清单
// 缓存未命中返回 (nil, false, nil)
func (r *AppsCacheRepository) Get(ctx context.Context) ([]string, bool, error) {
	data, err := r.client.Get(ctx, appsCacheKey).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get apps cache: %w", err)
	}

	var apps []string
	if err := json.Unmarshal([]byte(data), &apps); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal apps cache: %w", err)
	}
	return apps, true, nil
}

// Set 写入应用清单缓存
func (r *AppsCacheRepository) Set(ctx context.Context, apps []string) error {
	data, err := json.Marshal(apps)
	if err != nil {
		return fmt.Errorf("failed to marshal apps cache: %w", err)
	}

	err = r.client.Set(ctx, appsCacheKey, data, r.expiration).Err()
	if err != nil {
		return fmt.Errorf("failed to store apps cache: %w", err)
	}
	return nil
}

// Invalidate 清除应用清单缓存
func (r *AppsCacheRepository) Invalidate(ctx context.Context) error {
	err := r.client.Del(ctx, appsCacheKey).Err()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("failed to invalidate apps cache: %w", err)
	}
	return nil
}
