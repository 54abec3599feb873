package cache

import (
	"context"

	"go.uber.org/zap"

	"pantry-matcher/internal/pkg/common"
)

// Tiered 本地緩存在前、遠端緩存在後；遠端錯誤只記錄不回傳
type Tiered[V any] struct {
	local  *Manager[V]
	remote Store[V]
}

// NewTiered 組合本地與遠端緩存，remote 可為 nil
func NewTiered[V any](local *Manager[V], remote Store[V]) *Tiered[V] {
	return &Tiered[V]{local: local, remote: remote}
}

// Get 先查本地，未命中再查遠端並回填本地
func (t *Tiered[V]) Get(ctx context.Context, key string) (V, bool) {
	if v, ok := t.local.Get(key); ok {
		return v, true
	}

	var zero V
	if t.remote == nil {
		return zero, false
	}
	v, ok, err := t.remote.Get(ctx, key)
	if err != nil {
		common.LogWarn("遠端快取讀取失敗", zap.String("key", key), zap.Error(err))
		return zero, false
	}
	if !ok {
		return zero, false
	}
	t.local.Set(key, v)
	return v, true
}

// Set 寫入兩層緩存
func (t *Tiered[V]) Set(ctx context.Context, key string, value V) {
	t.local.Set(key, value)
	if t.remote == nil {
		return
	}
	if err := t.remote.Set(ctx, key, value); err != nil {
		common.LogWarn("遠端快取寫入失敗", zap.String("key", key), zap.Error(err))
	}
}

// Local 取得本地緩存
func (t *Tiered[V]) Local() *Manager[V] {
	return t.local
}
