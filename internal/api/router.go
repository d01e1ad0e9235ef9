package api

import (
	"context"
	"net/http"
	"time"

	adminHandler "recipe-suggester/internal/api/handlers/admin"
	"recipe-suggester/internal/api/handlers/health"
	suggestHandler "recipe-suggester/internal/api/handlers/suggest"
	"recipe-suggester/internal/api/middleware"
	suggestService "recipe-suggester/internal/core/suggest"
	"recipe-suggester/internal/core/suggest/cache"
	"recipe-suggester/internal/infrastructure/artifact"
	"recipe-suggester/internal/infrastructure/config"
	"recipe-suggester/internal/pkg/common"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	// 超時設置
	timeoutDuration = 30 * time.Second
	// 請求體大小限制 (1MB)：查詢只有文字
	maxBodySize = 1 << 20
)

// SetupRouter 設置路由
func SetupRouter(cfg *config.Config, manager *suggestService.Manager, cacheStore cache.Store) (*gin.Engine, error) {
	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	// 設置 gin 模式
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	// 創建路由引擎
	router := gin.New()

	// 註冊基礎中間件
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(requestid.New()) // 自動生成請求 ID

	// CORS 設置
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// 請求體大小限制
	router.Use(middleware.BodySizeLimit(maxBodySize))

	// 限流
	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}

	common.LogInfo("Initializing services",
		zap.Bool("cache_enabled", cfg.Cache.Enabled),
		zap.String("cache_backend", cfg.Cache.Backend),
		zap.Int("query_candidates", cfg.Query.Candidates),
		zap.Duration("timeout", timeoutDuration),
	)

	// 初始化查詢引擎
	engine := suggestService.NewEngine(cfg, manager, cacheStore)

	// 初始化產物下載器
	fetcher := artifact.NewFetcher(cfg.Artifacts.Timeout)

	// 全局中間件：設置超時並注入共用狀態
	router.Use(func(c *gin.Context) {
		// 設置請求超時
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeoutDuration)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)

		// 設置配置與世代管理器
		c.Set("config", cfg)
		c.Set("generation_manager", manager)

		// 處理請求
		c.Next()

		// 檢查是否超時
		if ctx.Err() == context.DeadlineExceeded {
			common.LogError("Request timeout",
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", c.GetHeader("X-Request-ID")),
				zap.Duration("timeout", timeoutDuration),
			)
			c.JSON(http.StatusGatewayTimeout, gin.H{
				"error": "Request timeout",
				"code":  common.ErrCodeRequestTimeout,
			})
			c.Abort()
			return
		}
	})

	// 健康檢查路由
	router.GET("/health", health.HealthCheck)
	router.GET("/ready", health.ReadinessCheck)
	router.GET("/live", health.LivenessCheck)

	// API 路由組
	api := router.Group("/api/v1")
	{
		sh := suggestHandler.NewHandler(engine)
		ah := adminHandler.NewHandler(cfg, manager, fetcher)

		// 食譜推薦
		recipeGroup := api.Group("/recipe")
		{
			recipeGroup.POST("/suggest", sh.HandleSuggest)
		}

		// 世代管理
		adminGroup := api.Group("/admin")
		{
			adminGroup.POST("/models/reload", ah.HandleReload)
			adminGroup.POST("/models/download", ah.HandleDownload)
		}
	}

	common.LogInfo("Router setup complete")
	return router, nil
}
