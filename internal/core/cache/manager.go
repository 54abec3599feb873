package cache

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"pantry-matcher/internal/pkg/common"
)

// Manager 記憶體緩存：TTL 到期淘汰，滿載時淘汰最久未存取的項目
type Manager[V any] struct {
	name    string
	mu      sync.RWMutex
	store   map[string]entry[V]
	stats   Stats
	maxSize int
	ttl     time.Duration
	now     func() time.Time
}

// entry 緩存條目
type entry[V any] struct {
	value       V
	expiresAt   time.Time
	createdAt   time.Time
	lastAccess  time.Time
	accessCount int
}

// Stats 緩存統計
type Stats struct {
	Size      int     `json:"size"`
	MaxSize   int     `json:"max_size"`
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	Evictions int64   `json:"evictions"`
	Expired   int64   `json:"expired"`
	HitRatio  float64 `json:"hit_ratio"`
}

// Option 管理器選項
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock 指定時鐘，測試用
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// NewManager 創建新的緩存管理器
func NewManager[V any](name string, maxSize int, ttl time.Duration, opts ...Option) *Manager[V] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if maxSize <= 0 {
		maxSize = 1
	}

	m := &Manager[V]{
		name:    name,
		store:   make(map[string]entry[V], maxSize),
		maxSize: maxSize,
		ttl:     ttl,
		now:     o.now,
	}

	common.LogInfo("快取管理員已初始化",
		zap.String("cache", name),
		zap.Int("max_size", maxSize),
		zap.Duration("ttl", ttl),
	)
	return m
}

// Get 獲取緩存值，過期項目會被移除
func (m *Manager[V]) Get(key string) (V, bool) {
	var zero V
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	e, exists := m.store[key]
	if !exists {
		m.stats.Misses++
		common.LogCacheMiss(m.name, key)
		return zero, false
	}

	// 檢查是否過期
	if !now.Before(e.expiresAt) {
		delete(m.store, key)
		m.stats.Expired++
		m.stats.Misses++
		common.LogCacheMiss(m.name, key)
		return zero, false
	}

	// 更新訪問統計
	e.lastAccess = now
	e.accessCount++
	m.store[key] = e
	m.stats.Hits++
	common.LogCacheHit(m.name, key)
	return e.value, true
}

// Set 設置緩存值
func (m *Manager[V]) Set(key string, value V) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.store[key]; !exists && len(m.store) >= m.maxSize {
		// 先清理過期項目，仍然滿載時淘汰最久未存取者
		if m.cleanupLocked(now) == 0 {
			m.evictOldestLocked()
		}
	}

	m.store[key] = entry[V]{
		value:      value,
		expiresAt:  now.Add(m.ttl),
		createdAt:  now,
		lastAccess: now,
	}
}

// Add 僅在鍵不存在或已過期時寫入，回傳是否寫入
func (m *Manager[V]) Add(key string, value V) bool {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	if e, exists := m.store[key]; exists && now.Before(e.expiresAt) {
		return false
	}
	if _, exists := m.store[key]; !exists && len(m.store) >= m.maxSize {
		if m.cleanupLocked(now) == 0 {
			m.evictOldestLocked()
		}
	}
	m.store[key] = entry[V]{
		value:      value,
		expiresAt:  now.Add(m.ttl),
		createdAt:  now,
		lastAccess: now,
	}
	return true
}

// Delete 移除緩存值
func (m *Manager[V]) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.store, key)
}

// Len 目前項目數
func (m *Manager[V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.store)
}

// StartCleanup 啟動定期清理過期緩存的協程，ctx 取消時停止
func (m *Manager[V]) StartCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.Cleanup()
			}
		}
	}()
}

// Cleanup 清理過期的緩存，回傳清理數量
func (m *Manager[V]) Cleanup() int {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cleanupLocked(now)
}

func (m *Manager[V]) cleanupLocked(now time.Time) int {
	count := 0
	for key, e := range m.store {
		if !now.Before(e.expiresAt) {
			delete(m.store, key)
			count++
		}
	}
	m.stats.Expired += int64(count)

	if count > 0 {
		common.LogDebug("Cleaned up expired cache entries",
			zap.String("cache", m.name),
			zap.Int("count", count),
			zap.Int("remaining_size", len(m.store)),
		)
	}
	return count
}

// evictOldestLocked 淘汰最久未存取的項目，同時間者取建立較早者
func (m *Manager[V]) evictOldestLocked() {
	var (
		oldestKey string
		oldest    entry[V]
	)
	for key, e := range m.store {
		if oldestKey == "" ||
			e.lastAccess.Before(oldest.lastAccess) ||
			(e.lastAccess.Equal(oldest.lastAccess) && e.createdAt.Before(oldest.createdAt)) ||
			(e.lastAccess.Equal(oldest.lastAccess) && e.createdAt.Equal(oldest.createdAt) && key < oldestKey) {
			oldestKey, oldest = key, e
		}
	}

	if oldestKey != "" {
		delete(m.store, oldestKey)
		m.stats.Evictions++
		common.LogDebug("快取已淘汰(LRU)",
			zap.String("cache", m.name),
			zap.String("key", oldestKey),
		)
	}
}

// GetStats 獲取緩存統計信息
func (m *Manager[V]) GetStats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := m.stats
	s.Size = len(m.store)
	s.MaxSize = m.maxSize
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRatio = float64(s.Hits) / float64(total)
	}
	return s
}

// Close 清空緩存
func (m *Manager[V]) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.store = make(map[string]entry[V])
	common.LogInfo("快取管理員已關閉",
		zap.String("cache", m.name),
		zap.Int64("hits", m.stats.Hits),
		zap.Int64("misses", m.stats.Misses),
		zap.Int64("evictions", m.stats.Evictions),
	)
	return nil
}
