package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"recipe-suggester/internal/pkg/common"
)

// Config 應用配置
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Index     IndexConfig     `mapstructure:"index"`
	Query     QueryConfig     `mapstructure:"query"`
	Artifacts ArtifactsConfig `mapstructure:"artifacts"`
	Cache     CacheConfig     `mapstructure:"cache"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	LogLevel  string          `mapstructure:"log_level"`
}

// AppConfig 應用程式設定
type AppConfig struct {
	Env      string `mapstructure:"env"`
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
	Version  string `mapstructure:"version"`
	Name     string `mapstructure:"name"`
}

// ServerConfig 服務器配置
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// IndexConfig 建索引設定
// HashDim 與 Components 在建索引與查詢時必須一致
type IndexConfig struct {
	DatasetPath string `mapstructure:"dataset_path"`
	HashDim     int    `mapstructure:"hash_dim"`   // 特徵雜湊桶數（預設 2^18）
	Components  int    `mapstructure:"components"` // SVD 保留的維度 K
	ChunkSize   int    `mapstructure:"chunk_size"` // 每個批次處理的列數
	Workers     int    `mapstructure:"workers"`    // 向量化工作協程數
	SVDIters    int    `mapstructure:"svd_iters"`  // 隨機化 SVD 的冪迭代次數
	Oversample  int    `mapstructure:"oversample"` // 隨機化 SVD 的過採樣量
}

// QueryConfig 查詢設定
type QueryConfig struct {
	Candidates           int `mapstructure:"candidates"`             // 相似度搜尋取回的候選數
	TopN                 int `mapstructure:"top_n"`                  // 預設回傳的推薦數
	MinRecipeIngredients int `mapstructure:"min_recipe_ingredients"` // 低於此食材數的食譜不推薦
}

// ArtifactsConfig 模型產物設定
type ArtifactsConfig struct {
	Dir       string        `mapstructure:"dir"`        // 本地產物目錄
	RemoteURL string        `mapstructure:"remote_url"` // 遠端下載位址（可為空）
	Timeout   time.Duration `mapstructure:"timeout"`    // 下載超時
}

// CacheConfig 緩存配置
type CacheConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Backend         string        `mapstructure:"backend"` // memory 或 redis
	RedisAddr       string        `mapstructure:"redis_addr"`
	MaxSize         int           `mapstructure:"max_size"`
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// RateLimitConfig 速率限制配置
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// LoadConfig 載入設定
func LoadConfig() (*Config, error) {
	// 加載 .env 文件（不存在時忽略）
	_ = godotenv.Load()

	// 設定預設值
	setDefaults()

	// 設定環境變數前綴
	viper.SetEnvPrefix("APP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// 綁定環境變量
	viper.BindEnv("index.dataset_path", "DATASET_PATH")
	viper.BindEnv("index.hash_dim", "INDEX_HASH_DIM")
	viper.BindEnv("index.components", "INDEX_COMPONENTS")
	viper.BindEnv("index.chunk_size", "INDEX_CHUNK_SIZE")
	viper.BindEnv("index.workers", "INDEX_WORKERS")
	viper.BindEnv("artifacts.dir", "ARTIFACTS_DIR")
	viper.BindEnv("artifacts.remote_url", "ARTIFACTS_REMOTE_URL")
	viper.BindEnv("cache.enabled", "CACHE_ENABLED")
	viper.BindEnv("cache.backend", "CACHE_BACKEND")
	viper.BindEnv("cache.redis_addr", "CACHE_REDIS_ADDR")
	viper.BindEnv("rate_limit.enabled", "RATE_LIMIT_ENABLED")
	viper.BindEnv("rate_limit.requests", "RATE_LIMIT_REQUESTS")
	viper.BindEnv("rate_limit.window", "RATE_LIMIT_WINDOW")
	viper.BindEnv("log_level", "LOG_LEVEL")

	// 設定設定檔名稱和路徑
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")

	// 讀取設定檔
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// 解析設定
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 驗證必要設定
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// setDefaults 設定預設值
func setDefaults() {
	// 應用程式設定
	viper.SetDefault("app.env", "development")
	viper.SetDefault("app.debug", true)
	viper.SetDefault("app.log_level", "info")
	viper.SetDefault("app.version", "1.0.0")
	viper.SetDefault("app.name", "recipe-suggester")

	// 伺服器設定
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "120s")

	// 建索引設定
	viper.SetDefault("index.dataset_path", "recipes_data.csv")
	viper.SetDefault("index.hash_dim", 1<<18)
	viper.SetDefault("index.components", 100)
	viper.SetDefault("index.chunk_size", 50000)
	viper.SetDefault("index.workers", 4)
	viper.SetDefault("index.svd_iters", 2)
	viper.SetDefault("index.oversample", 10)

	// 查詢設定
	viper.SetDefault("query.candidates", 100)
	viper.SetDefault("query.top_n", 5)
	viper.SetDefault("query.min_recipe_ingredients", 3)

	// 產物設定
	viper.SetDefault("artifacts.dir", "model_optimized")
	viper.SetDefault("artifacts.remote_url", "")
	viper.SetDefault("artifacts.timeout", "120s")

	// 快取設定
	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("cache.backend", "memory")
	viper.SetDefault("cache.redis_addr", "localhost:6379")
	viper.SetDefault("cache.max_size", 1000)
	viper.SetDefault("cache.ttl", "24h")
	viper.SetDefault("cache.cleanup_interval", "10m")

	// 限流設定
	viper.SetDefault("rate_limit.enabled", true)
	viper.SetDefault("rate_limit.requests", 100)
	viper.SetDefault("rate_limit.window", "1m")
}

// validateConfig 驗證設定
func validateConfig(config *Config) error {
	// 驗證伺服器設定
	if config.Server.Port == 0 {
		return common.NewValidationError("server port is required")
	}

	// 驗證索引設定
	if config.Index.HashDim <= 0 {
		return common.NewValidationError("invalid index hash dim")
	}
	if config.Index.Components <= 0 {
		return common.NewValidationError("invalid index components")
	}
	if config.Index.Components > config.Index.HashDim {
		return common.NewValidationError("index components cannot exceed hash dim")
	}
	if config.Index.ChunkSize <= 0 {
		return common.NewValidationError("invalid index chunk size")
	}
	if config.Index.Workers <= 0 {
		return common.NewValidationError("invalid index workers")
	}

	// 驗證查詢設定
	if config.Query.Candidates <= 0 {
		return common.NewValidationError("invalid query candidates")
	}
	if config.Query.TopN <= 0 {
		return common.NewValidationError("invalid query top n")
	}

	// 驗證快取設定
	if config.Cache.Enabled {
		if config.Cache.MaxSize <= 0 {
			return common.NewValidationError("invalid cache max size")
		}
		if config.Cache.TTL <= 0 {
			return common.NewValidationError("invalid cache ttl")
		}
		if config.Cache.CleanupInterval <= 0 {
			return common.NewValidationError("invalid cache cleanup interval")
		}
		if config.Cache.Backend != "memory" && config.Cache.Backend != "redis" {
			return common.NewValidationError(fmt.Sprintf("invalid cache backend: %s", config.Cache.Backend))
		}
	}

	return nil
}
