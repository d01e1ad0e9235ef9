package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"recipe-suggester/internal/core/artifact"
	"recipe-suggester/internal/core/suggest"
	"recipe-suggester/internal/infrastructure/config"
	"recipe-suggester/internal/pkg/common"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	datasetFlag := flag.String("dataset", "", "語料庫 CSV 路徑（預設用設定值）")
	outFlag := flag.String("out", "", "產物輸出目錄（預設用設定值）")
	flag.Parse()

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

	// 初始化 logger
	if err := common.InitLogger(cfg.LogLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	dataset := cfg.Index.DatasetPath
	if *datasetFlag != "" {
		dataset = *datasetFlag
	}
	outDir := cfg.Artifacts.Dir
	if *outFlag != "" {
		outDir = *outFlag
	}

	common.LogInfo("開始建索引",
		zap.String("dataset", dataset),
		zap.String("out", outDir),
		zap.Int("hash_dim", cfg.Index.HashDim),
		zap.Int("components", cfg.Index.Components),
		zap.Int("chunk_size", cfg.Index.ChunkSize),
		zap.Int("workers", cfg.Index.Workers),
	)

	f, err := os.Open(dataset)
	if err != nil {
		common.LogFatal("無法開啟語料庫", zap.Error(err))
	}
	defer f.Close()

	// Ctrl-C 中止建索引
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	start := time.Now()
	builder := suggest.NewBuilder(cfg)
	gen, err := builder.Build(ctx, f)
	if err != nil {
		common.LogFatal("建索引失敗", zap.Error(err))
	}

	if err := artifact.Save(outDir, gen); err != nil {
		common.LogFatal("產物寫入失敗", zap.Error(err))
	}

	common.LogInfo("建索引完成",
		zap.String("build_id", gen.BuildID),
		zap.Int("食譜數", gen.Rows()),
		zap.String("輸出目錄", outDir),
		zap.Duration("總耗時", time.Since(start)),
	)
}
