// BanBiao 班表引擎服务
// 主程序入口

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/banbiao/banbiao/internal/config"
	"github.com/banbiao/banbiao/internal/database"
	"github.com/banbiao/banbiao/internal/handler"
	"github.com/banbiao/banbiao/internal/metrics"
	"github.com/banbiao/banbiao/internal/middleware"
	"github.com/banbiao/banbiao/internal/repository"
	"github.com/banbiao/banbiao/internal/security"
	"github.com/banbiao/banbiao/pkg/catalog"
	"github.com/banbiao/banbiao/pkg/logger"
	"github.com/banbiao/banbiao/pkg/roster"
	"github.com/banbiao/banbiao/pkg/roster/generator"
)

// 构建信息（通过 ldflags 注入）
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// .env 文件是可选的，不存在时静默跳过
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	logger.Init(logger.Config{
		Level:  cfg.App.LogLevel,
		Format: "console",
	})

	// 打印版本信息
	fmt.Printf("BanBiao 班表引擎 v%s\n", Version)
	fmt.Printf("Build: %s (%s)\n", BuildTime, GitCommit)
	fmt.Println()

	// 数据库是可选依赖，连接失败时以无持久化模式运行
	var db *database.DB
	var rosterRepo repository.RosterRepositoryInterface
	if d, err := database.New(&cfg.Database); err != nil {
		logger.Warn().Err(err).Msg("数据库不可用，以无持久化模式运行")
	} else {
		db = d
		defer db.Close()
		bootCtx, cancelBoot := context.WithTimeout(context.Background(), 10*time.Second)
		if err := db.Bootstrap(bootCtx); err != nil {
			logger.Warn().Err(err).Msg("初始化数据表失败，以无持久化模式运行")
		} else {
			rosterRepo = repository.NewRosterRepository(db)
		}
		cancelBoot()
	}

	// 约束目录缓存，周期刷新
	cache := catalog.NewCache(catalog.NewStaticProvider(catalog.Defaults()), cfg.Catalog.RefreshInterval)
	cache.Start()
	defer cache.Stop()
	if s := cache.Snapshot(); s != nil {
		metrics.SetCatalogVersion(s.Version)
	}

	// 班表引擎
	genOpts := generator.DefaultOptions()
	genOpts.Seed = cfg.Engine.Seed
	genOpts.OffTargetMargin = cfg.Engine.OffTargetMargin
	genOpts.Lookahead = cfg.Engine.Lookahead

	engine := roster.NewEngine(cache, nil)
	engine.SetGeneratorOptions(genOpts)
	engine.SetBudget(cfg.Engine.Budget)

	// 认证
	keyManager := security.NewAPIKeyManager()
	if n := keyManager.LoadFromEnv(); n > 0 {
		logger.Info().Int("keys", n).Msg("已加载API密钥")
	}
	authConfig := &middleware.AuthConfig{
		APIKeyManager:   keyManager,
		RateLimiter:     security.NewRateLimiter(cfg.API.RateLimit, time.Second),
		SkipPaths:       []string{"/health", "/ready", "/version", "/metrics"},
		EnableRateLimit: true,
	}

	// 创建处理器
	rosterHandler := handler.NewRosterHandler(engine, rosterRepo)
	constraintHandler := handler.NewConstraintHandler(cache)
	statsHandler := handler.NewStatsHandler(cache)

	// 创建 HTTP 服务器
	mux := http.NewServeMux()

	// ========================================
	// 系统端点
	// ========================================

	// 健康检查端点
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","service":"banbiao"}`))
	})

	// 就绪检查端点，带数据库探活
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.Health(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte(`{"status":"degraded","database":"unreachable"}`))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready"}`))
	})

	// 版本信息端点
	mux.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"version":"%s","build_time":"%s","git_commit":"%s"}`, Version, BuildTime, GitCommit)
	})

	// ========================================
	// API v1 端点
	// ========================================

	// API 根路由
	mux.HandleFunc("/api/v1/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{
			"message": "BanBiao 班表引擎 API v1",
			"endpoints": {
				"roster": {
					"generate": "POST /api/v1/roster/generate",
					"validate": "POST /api/v1/roster/validate",
					"stats": "POST /api/v1/roster/stats",
					"history": "GET /api/v1/roster/history"
				},
				"constraints": {
					"library": "GET /api/v1/constraints/library",
					"settings": "GET /api/v1/constraints/settings"
				}
			}
		}`))
	})

	// 班表生成 API
	mux.HandleFunc("/api/v1/roster/generate", rosterHandler.Generate)

	// 班表校验 API
	mux.HandleFunc("/api/v1/roster/validate", rosterHandler.Validate)

	// 历史记录 API
	mux.HandleFunc("/api/v1/roster/history", rosterHandler.History)

	// 班表统计 API
	mux.HandleFunc("/api/v1/roster/stats", statsHandler.Analyze)

	// 约束库 API - 返回校验器支持的所有约束及参数定义
	mux.HandleFunc("/api/v1/constraints/library", constraintHandler.Library)

	// 约束目录快照 API
	mux.HandleFunc("/api/v1/constraints/settings", constraintHandler.Settings)

	// ========================================
	// 监控端点
	// ========================================

	// Prometheus 指标端点
	mux.Handle("/metrics", metrics.Handler())

	// ========================================
	// 中间件
	// ========================================

	// 中间件执行顺序：recovery -> requestID -> rateLimit -> cors -> auth -> logging -> handler
	chain := middleware.RecoveryMiddleware(
		requestIDMiddleware(
			rateLimitMiddleware(
				corsMiddleware(
					middleware.AuthMiddleware(authConfig)(
						middleware.SecurityHeadersMiddleware(
							loggingMiddleware(mux)))))))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      chain,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 启动服务器（非阻塞）
	go func() {
		logger.Info().
			Int("port", cfg.App.Port).
			Str("version", Version).
			Str("env", cfg.App.Env).
			Str("url", fmt.Sprintf("http://localhost:%d", cfg.App.Port)).
			Msg("服务器启动")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("服务器启动失败")
			os.Exit(1)
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("正在关闭服务器...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("服务器关闭失败")
		os.Exit(1)
	}

	logger.Info().Msg("服务器已关闭")
}

// requestIDMiddleware 请求ID追踪中间件
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 尝试从请求头获取 Request ID，没有则生成新的
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		// 设置响应头
		w.Header().Set("X-Request-ID", requestID)

		// 将 Request ID 存储到 context 中
		ctx := context.WithValue(r.Context(), "request_id", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// loggingMiddleware 日志中间件
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// 获取 Request ID
		requestID, _ := r.Context().Value("request_id").(string)

		// 包装ResponseWriter以捕获状态码
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		duration := time.Since(start)

		logger.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rw.statusCode).
			Dur("duration", duration).
			Msg("请求处理")

		// 记录Prometheus指标
		metrics.RecordRequestMetrics(r.Method, r.URL.Path, rw.statusCode, duration)
	})
}

// responseWriter 包装ResponseWriter以捕获状态码
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// RateLimiter 简单的令牌桶限流器
type RateLimiter struct {
	tokens     float64
	maxTokens  float64
	refillRate float64 // 每秒添加的令牌数
	lastRefill time.Time
	mu         sync.Mutex
}

// NewRateLimiter 创建限流器
func NewRateLimiter(requestsPerSecond float64) *RateLimiter {
	return &RateLimiter{
		tokens:     requestsPerSecond,
		maxTokens:  requestsPerSecond * 2, // 允许突发流量
		refillRate: requestsPerSecond,
		lastRefill: time.Now(),
	}
}

// Allow 检查是否允许请求
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(rl.lastRefill).Seconds()
	rl.tokens += elapsed * rl.refillRate
	if rl.tokens > rl.maxTokens {
		rl.tokens = rl.maxTokens
	}
	rl.lastRefill = now

	if rl.tokens >= 1 {
		rl.tokens--
		return true
	}
	return false
}

var globalRateLimiter = NewRateLimiter(100) // 默认 100 QPS

// rateLimitMiddleware 限流中间件
func rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !globalRateLimiter.Allow() {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"error":   true,
				"code":    "RATE_LIMITED",
				"message": "请求过于频繁，请稍后重试",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// corsMiddleware CORS中间件
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
