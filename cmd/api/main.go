package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"recipe-suggester/internal/api"
	coreartifact "recipe-suggester/internal/core/artifact"
	"recipe-suggester/internal/core/suggest"
	"recipe-suggester/internal/core/suggest/cache"
	"recipe-suggester/internal/infrastructure/artifact"
	"recipe-suggester/internal/infrastructure/config"
	"recipe-suggester/internal/pkg/common"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// 載入 .env
	if err := godotenv.Load(); err != nil {
		fmt.Println("Warning: .env file not found")
	}

	// 載入設定
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化 logger（需在載入 config 後）
	if err := common.InitLogger(cfg.LogLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	common.LogInfo("載入設定",
		zap.String("artifacts_dir", cfg.Artifacts.Dir),
		zap.Int("hash_dim", cfg.Index.HashDim),
		zap.Int("components", cfg.Index.Components),
	)

	// 初始化快取
	cacheStore, err := cache.NewStore(cfg)
	if err != nil {
		common.LogFatal("Failed to initialize cache", zap.Error(err))
	}

	// 載入索引世代；找不到本地產物且有遠端位址時先下載
	manager := suggest.NewManager()
	loadGeneration(cfg, manager)

	// 設置路由
	router, err := api.SetupRouter(cfg, manager, cacheStore)
	if err != nil {
		common.LogError("Failed to setup router", zap.Error(err))
		os.Exit(1)
	}

	// 設置 HTTP 服務器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// 啟動服務器
	go func() {
		common.LogInfo("啟動應用",
			zap.String("version", cfg.App.Version),
			zap.String("env", cfg.App.Env),
			zap.Bool("debug", cfg.App.Debug),
			zap.Bool("index_loaded", manager.Loaded()),
		)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			common.LogError("Failed to start server",
				zap.Error(err),
			)
			os.Exit(1)
		}
	}()

	// 等待中斷信號
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	common.LogInfo("Shutting down server...")

	// 設置關閉超時
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		common.LogError("Server forced to shutdown",
			zap.Error(err),
		)
		os.Exit(1)
	}

	common.LogInfo("Server exited")
}

// loadGeneration 嘗試載入本地產物，必要時先從遠端下載
// 失敗只記 warning：服務照常啟動，健康檢查回報 needs_models
func loadGeneration(cfg *config.Config, manager *suggest.Manager) {
	if _, err := os.Stat(cfg.Artifacts.Dir); os.IsNotExist(err) && cfg.Artifacts.RemoteURL != "" {
		common.LogInfo("本地無產物，從遠端下載",
			zap.String("url", cfg.Artifacts.RemoteURL),
		)
		fetcher := artifact.NewFetcher(cfg.Artifacts.Timeout)
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Artifacts.Timeout)
		defer cancel()
		if err := fetcher.Fetch(ctx, cfg.Artifacts.RemoteURL, cfg.Artifacts.Dir); err != nil {
			common.LogWarn("產物下載失敗", zap.Error(err))
			return
		}
	}

	gen, err := coreartifact.Load(cfg.Artifacts.Dir, cfg)
	if err != nil {
		common.LogWarn("索引世代載入失敗，稍後可透過 admin API 重新載入",
			zap.Error(err),
		)
		return
	}
	manager.Swap(gen)
	common.LogInfo("索引世代已載入",
		zap.String("build_id", gen.BuildID),
		zap.Int("食譜數", gen.Rows()),
	)
}
