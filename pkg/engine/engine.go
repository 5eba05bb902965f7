// Package engine 提供分析引擎的公共 API。
// 它根据配置装配编排核心的全部协作组件（并发限制器、自适应限流器、
// 多级缓存、LLM 客户端、worker 注册表），对外只暴露 Analyze 一个入口。
package engine

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"yqhp/analysis-engine/internal/cache"
	"yqhp/analysis-engine/internal/config"
	"yqhp/analysis-engine/internal/limiter"
	"yqhp/analysis-engine/internal/metrics"
	"yqhp/analysis-engine/internal/orchestrator"
	"yqhp/analysis-engine/internal/worker"
	"yqhp/analysis-engine/internal/worker/analysis"
	"yqhp/analysis-engine/pkg/logger"
	"yqhp/analysis-engine/pkg/types"
)

// Engine 是装配完成的分析引擎。
// 所有状态都挂在注入的协作组件上，Engine 自身可安全并发使用。
type Engine struct {
	cfg  *config.Config
	orch *orchestrator.Orchestrator
	rate *limiter.Adaptive

	sharedClient  *redis.Client
	archiveClient *redis.Client
}

// Options 控制装配行为。
type Options struct {
	// DisableRedis 强制共享/归档层使用进程内存储，便于本地运行和测试。
	DisableRedis bool
}

// New 装配一个分析引擎。cfg 必须先通过校验。
func New(ctx context.Context, cfg *config.Config, opts Options) (*Engine, error) {
	if err := config.NewValidator().Validate(cfg); err != nil {
		return nil, fmt.Errorf("配置校验失败: %w", err)
	}

	logger.Init(&logger.Config{
		Level:    cfg.Logging.Level,
		Format:   cfg.Logging.Format,
		Output:   cfg.Logging.Output,
		FilePath: cfg.Logging.FilePath,
	})

	e := &Engine{cfg: cfg}

	rate := limiter.NewAdaptive(limiter.AdaptiveConfig{
		Rate:    cfg.RateLimiter.Rate,
		Burst:   cfg.RateLimiter.Burst,
		MinRate: cfg.RateLimiter.MinRate,
		MaxRate: cfg.RateLimiter.MaxRate,
		Window:  cfg.RateLimiter.Window,
		Decay:   cfg.RateLimiter.Decay,
		Growth:  cfg.RateLimiter.Growth,
	})
	e.rate = rate

	tiers := e.buildCache(opts)

	llmClient, err := worker.NewLLMClient(ctx, &cfg.LLM, rate)
	if err != nil {
		return nil, fmt.Errorf("创建 LLM 客户端失败: %w", err)
	}

	registry := worker.NewRegistry()
	analysis.RegisterAll(registry, llmClient, cfg.Orchestrator.DefaultWorkerTimeout)

	permits := limiter.NewConcurrency(cfg.Limiter.MaxConcurrent)
	e.orch = orchestrator.New(cfg, registry, tiers, permits, metrics.NewRecorder())

	return e, nil
}

// buildCache 构建三级缓存。
// 配置了 Redis 地址时，共享层和归档层分别落在两个 Redis DB 上；
// 否则退化为进程内存储。
func (e *Engine) buildCache(opts Options) *cache.Tiered {
	levels := []cache.Level{
		{Tier: cache.NewMemoryTier(e.cfg.Cache.MemoryCapacity), TTL: e.cfg.Cache.MemoryTTL},
	}

	if !opts.DisableRedis && e.cfg.Cache.Redis.Addr != "" {
		e.sharedClient = redis.NewClient(&redis.Options{
			Addr:     e.cfg.Cache.Redis.Addr,
			Password: e.cfg.Cache.Redis.Password,
			DB:       e.cfg.Cache.Redis.DB,
		})
		e.archiveClient = redis.NewClient(&redis.Options{
			Addr:     e.cfg.Cache.Redis.Addr,
			Password: e.cfg.Cache.Redis.Password,
			DB:       e.cfg.Cache.Redis.ArchiveDB,
		})
		levels = append(levels,
			cache.Level{Tier: cache.NewRedisTier(e.sharedClient, types.CacheTierShared, "ae:shared:"), TTL: e.cfg.Cache.SharedTTL},
			cache.Level{Tier: cache.NewRedisTier(e.archiveClient, types.CacheTierArchive, "ae:archive:"), TTL: e.cfg.Cache.ArchiveTTL},
		)
		return cache.NewTiered(levels...)
	}

	levels = append(levels,
		cache.Level{Tier: cache.NewMemoryStore(types.CacheTierShared), TTL: e.cfg.Cache.SharedTTL},
		cache.Level{Tier: cache.NewMemoryStore(types.CacheTierArchive), TTL: e.cfg.Cache.ArchiveTTL},
	)
	return cache.NewTiered(levels...)
}

// Analyze 执行一次分析请求。
func (e *Engine) Analyze(ctx context.Context, req *types.AnalysisRequest) (*types.OrchestrationResult, error) {
	return e.orch.Run(ctx, req)
}

// Invalidate 使该请求的缓存结果失效。
func (e *Engine) Invalidate(ctx context.Context, req *types.AnalysisRequest) {
	e.orch.Invalidate(ctx, req)
}

// CacheStats 返回缓存命中统计。
func (e *Engine) CacheStats() cache.StatsSnapshot {
	return e.orch.CacheStats()
}

// WorkerTimings 返回各 worker 的延迟分位统计。
func (e *Engine) WorkerTimings() []metrics.TimingStats {
	return e.orch.WorkerTimings()
}

// CurrentRate 返回自适应限流器的当前速率，用于观测。
func (e *Engine) CurrentRate() float64 {
	return e.rate.Rate()
}

// Close 释放引擎持有的外部连接。
func (e *Engine) Close() error {
	var firstErr error
	if e.sharedClient != nil {
		if err := e.sharedClient.Close(); err != nil {
			firstErr = err
		}
	}
	if e.archiveClient != nil {
		if err := e.archiveClient.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	logger.Sync()
	return firstErr
}
