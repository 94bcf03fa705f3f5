// Package catalog 提供约束目录（外部配置提供方的只读快照）
package catalog

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/banbiao/banbiao/pkg/logger"
)

// Provider 外部配置提供方接口
// 返回的快照可以是部分的，缺失字段由内置默认值补齐
type Provider interface {
	GetSettings(ctx context.Context) (*Settings, error)
}

// StaticProvider 固定配置提供方（测试和单机部署使用）
type StaticProvider struct {
	settings *Settings
}

// NewStaticProvider 创建固定配置提供方
func NewStaticProvider(s *Settings) *StaticProvider {
	return &StaticProvider{settings: s}
}

// GetSettings 返回固定配置
func (p *StaticProvider) GetSettings(ctx context.Context) (*Settings, error) {
	return p.settings, nil
}

// Cache 约束目录缓存
// 读多写少：读方总是拿到最近一次已知快照，刷新失败沿用旧快照
type Cache struct {
	provider Provider
	interval time.Duration

	mu       sync.RWMutex
	current  *Settings
	version  atomic.Int64
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewCache 创建目录缓存并加载初始快照
// 初始加载失败时落到内置默认值
func NewCache(provider Provider, refreshInterval time.Duration) *Cache {
	c := &Cache{
		provider: provider,
		interval: refreshInterval,
		stopCh:   make(chan struct{}),
	}
	c.refresh(context.Background())
	if c.Snapshot() == nil {
		c.store(Defaults())
	}
	return c
}

// Snapshot 返回当前快照（只读，不会阻塞在刷新上）
func (c *Cache) Snapshot() *Settings {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Invalidate 立即刷新
func (c *Cache) Invalidate(ctx context.Context) {
	c.refresh(ctx)
}

// Start 启动定时刷新
func (c *Cache) Start() {
	if c.interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.refresh(context.Background())
			case <-c.stopCh:
				return
			}
		}
	}()
}

// Stop 停止定时刷新
func (c *Cache) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
}

// refresh 拉取最新配置并替换快照
func (c *Cache) refresh(ctx context.Context) {
	if c.provider == nil {
		return
	}
	fetched, err := c.provider.GetSettings(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("约束目录刷新失败，沿用旧快照")
		return
	}
	c.store(merge(fetched))
}

// store 保存新快照并递增版本号
func (c *Cache) store(s *Settings) {
	snapshot := *s
	snapshot.Version = c.version.Add(1)
	snapshot.FetchedAt = time.Now()

	c.mu.Lock()
	c.current = &snapshot
	c.mu.Unlock()

	logger.Debug().
		Int64("version", snapshot.Version).
		Msg("约束目录快照已更新")
}
