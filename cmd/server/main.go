// LabRoster 排班引擎服务
// 主程序入口

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/labroster/labroster/internal/config"
	"github.com/labroster/labroster/internal/database"
	"github.com/labroster/labroster/internal/handler"
	"github.com/labroster/labroster/internal/metrics"
	"github.com/labroster/labroster/internal/middleware"
	"github.com/labroster/labroster/pkg/effort"
	"github.com/labroster/labroster/pkg/logger"
	"github.com/labroster/labroster/pkg/policy"
	"github.com/labroster/labroster/pkg/scheduler"
	"github.com/labroster/labroster/pkg/scheduler/optimizer"
	"github.com/labroster/labroster/pkg/scheduler/solver"
)

// 构建信息（通过 ldflags 注入）
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "配置加载失败: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	logger.Init(logger.Config{
		Level:  cfg.App.LogLevel,
		Format: cfg.App.LogFormat,
	})

	// 打印版本信息
	fmt.Printf("LabRoster 排班引擎 v%s\n", Version)
	fmt.Printf("Build: %s (%s)\n", BuildTime, GitCommit)
	fmt.Println()

	// ========================================
	// 数据库
	// ========================================

	db, err := database.New(&cfg.Database)
	if err != nil {
		logger.Error().Err(err).Msg("数据库连接失败")
		os.Exit(1)
	}
	defer db.Close()

	migrateCtx, cancelMigrate := context.WithTimeout(context.Background(), 30*time.Second)
	err = db.Migrate(migrateCtx)
	cancelMigrate()
	if err != nil {
		logger.Error().Err(err).Msg("数据库迁移失败")
		os.Exit(1)
	}

	// ========================================
	// 排班引擎
	// ========================================

	pol, err := policy.LoadOrDefault(cfg.Scheduler.PolicyPath)
	if err != nil {
		logger.Error().Err(err).Str("path", cfg.Scheduler.PolicyPath).Msg("策略加载失败")
		os.Exit(1)
	}

	table := effort.Empty()
	if cfg.Scheduler.EffortPath != "" {
		table = effort.Load(cfg.Scheduler.EffortPath)
	}

	optCfg := optimizer.DefaultConfig()
	optCfg.Seed = cfg.Scheduler.Seed
	if cfg.Scheduler.Timeout > 0 {
		optCfg.MaxTime = cfg.Scheduler.Timeout
	}
	if cfg.Scheduler.MaxIterations > 0 {
		optCfg.MaxIterations = cfg.Scheduler.MaxIterations
	}
	if cfg.Scheduler.Restarts > 0 {
		optCfg.Restarts = cfg.Scheduler.Restarts
	}

	engine := scheduler.New(pol, table, solver.New(optCfg))

	// ========================================
	// 处理器
	// ========================================

	scheduleHandler := handler.NewScheduleHandler(db, engine, pol, table, cfg.Scheduler.Timeout)
	staffHandler := handler.NewStaffHandler(db)
	shiftHandler := handler.NewShiftHandler(db)
	availabilityHandler := handler.NewAvailabilityHandler(db)
	statsHandler := handler.NewStatsHandler(db, table)
	policyHandler := handler.NewPolicyHandler(pol)

	mux := http.NewServeMux()

	// ========================================
	// 系统端点
	// ========================================

	// 健康检查端点
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		stats := db.Stats()
		metrics.SetDBConnections(stats.OpenConnections, stats.InUse, stats.Idle)

		w.Header().Set("Content-Type", "application/json")
		if err := db.Health(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"degraded","service":"labroster","database":"down"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","service":"labroster","database":"up"}`))
	})

	// 版本信息端点
	mux.HandleFunc("GET /version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"version":"%s","build_time":"%s","git_commit":"%s"}`, Version, BuildTime, GitCommit)
	})

	// ========================================
	// API v1 端点
	// ========================================

	// API 根路由
	mux.HandleFunc("GET /api/v1/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{
			"message": "LabRoster 排班引擎 API v1",
			"endpoints": {
				"schedules": {
					"generate": "POST /api/v1/schedules/generate",
					"list": "GET /api/v1/schedules",
					"detail": "GET /api/v1/schedules/{id}",
					"repair": "POST /api/v1/schedules/{id}/repair",
					"swaps": "POST /api/v1/schedules/{id}/swaps"
				},
				"staff": {
					"list": "GET /api/v1/staff",
					"create": "POST /api/v1/staff",
					"detail": "GET /api/v1/staff/{id}",
					"update": "PUT /api/v1/staff/{id}",
					"delete": "DELETE /api/v1/staff/{id}"
				},
				"shifts": {
					"list": "GET /api/v1/shifts",
					"create": "POST /api/v1/shifts",
					"detail": "GET /api/v1/shifts/{id}",
					"update": "PUT /api/v1/shifts/{id}",
					"delete": "DELETE /api/v1/shifts/{id}"
				},
				"availability": {
					"list": "GET /api/v1/availability",
					"create": "POST /api/v1/availability",
					"detail": "GET /api/v1/availability/{id}",
					"update": "PUT /api/v1/availability/{id}",
					"delete": "DELETE /api/v1/availability/{id}"
				},
				"stats": {
					"fairness": "GET /api/v1/stats/fairness",
					"effort": "GET /api/v1/stats/effort",
					"coverage": "GET /api/v1/stats/coverage"
				},
				"policy": {
					"rules": "GET /api/v1/policy/rules"
				}
			}
		}`))
	})

	// 排班 API
	mux.HandleFunc("POST /api/v1/schedules/generate", scheduleHandler.Generate)
	mux.HandleFunc("GET /api/v1/schedules", scheduleHandler.List)
	mux.HandleFunc("GET /api/v1/schedules/{id}", scheduleHandler.Detail)
	mux.HandleFunc("POST /api/v1/schedules/{id}/repair", scheduleHandler.Repair)
	mux.HandleFunc("POST /api/v1/schedules/{id}/swaps", scheduleHandler.Swaps)

	// 人员 API
	mux.HandleFunc("GET /api/v1/staff", staffHandler.List)
	mux.HandleFunc("POST /api/v1/staff", staffHandler.Create)
	mux.HandleFunc("GET /api/v1/staff/{id}", staffHandler.Detail)
	mux.HandleFunc("PUT /api/v1/staff/{id}", staffHandler.Update)
	mux.HandleFunc("DELETE /api/v1/staff/{id}", staffHandler.Delete)

	// 班次 API
	mux.HandleFunc("GET /api/v1/shifts", shiftHandler.List)
	mux.HandleFunc("POST /api/v1/shifts", shiftHandler.Create)
	mux.HandleFunc("GET /api/v1/shifts/{id}", shiftHandler.Detail)
	mux.HandleFunc("PUT /api/v1/shifts/{id}", shiftHandler.Update)
	mux.HandleFunc("DELETE /api/v1/shifts/{id}", shiftHandler.Delete)

	// 可用性 API
	mux.HandleFunc("GET /api/v1/availability", availabilityHandler.List)
	mux.HandleFunc("POST /api/v1/availability", availabilityHandler.Create)
	mux.HandleFunc("GET /api/v1/availability/{id}", availabilityHandler.Detail)
	mux.HandleFunc("PUT /api/v1/availability/{id}", availabilityHandler.Update)
	mux.HandleFunc("DELETE /api/v1/availability/{id}", availabilityHandler.Delete)

	// ========================================
	// 统计分析 API
	// ========================================

	mux.HandleFunc("GET /api/v1/stats/fairness", statsHandler.Fairness)
	mux.HandleFunc("GET /api/v1/stats/effort", statsHandler.Effort)
	mux.HandleFunc("GET /api/v1/stats/coverage", statsHandler.Coverage)

	// ========================================
	// 策略 API
	// ========================================

	// 规则目录与当前生效的策略
	mux.HandleFunc("GET /api/v1/policy/rules", policyHandler.Rules)

	// ========================================
	// 监控端点
	// ========================================

	// Prometheus 指标端点
	if cfg.Metrics.Enabled {
		mux.Handle("GET "+cfg.Metrics.Path, metrics.Handler())
	}

	// ========================================
	// 中间件
	// ========================================

	root := middleware.Chain(&middleware.Config{
		APIKey:      cfg.API.Key,
		RateLimit:   cfg.API.RateLimit,
		CORSEnabled: cfg.API.CORS.Enabled,
		CORSOrigins: cfg.API.CORS.Origins,
		SkipPaths:   []string{"/health", "/version", cfg.Metrics.Path},
	}, mux)

	server := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.App.Port),
		Handler:      root,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 启动服务器（非阻塞）
	go func() {
		logger.Info().
			Int("port", cfg.App.Port).
			Str("env", cfg.App.Env).
			Str("version", Version).
			Str("url", fmt.Sprintf("http://localhost:%d", cfg.App.Port)).
			Str("api_docs", fmt.Sprintf("http://localhost:%d/api/v1/", cfg.App.Port)).
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
