package health

import (
	"net/http"
	"runtime"
	"time"

	suggestService "recipe-suggester/internal/core/suggest"
	"recipe-suggester/internal/infrastructure/config"
	"recipe-suggester/internal/pkg/common"

	"github.com/gin-gonic/gin"
)

// HealthResponse 健康檢查響應
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime"`
	Index     *IndexStatus           `json:"index,omitempty"`
}

// IndexStatus 目前索引世代的狀態
type IndexStatus struct {
	Loaded  bool   `json:"loaded"`
	BuildID string `json:"build_id,omitempty"`
	Rows    int    `json:"rows"`
}

// HealthCheck 健康檢查處理器
func HealthCheck(c *gin.Context) {
	// 獲取配置
	cfg, exists := c.Get("config")
	if !exists {
		common.LogError("Configuration not found in context")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Configuration not found",
		})
		return
	}
	config, ok := cfg.(*config.Config)
	if !ok {
		common.LogError("Invalid configuration type in context")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Invalid configuration type",
		})
		return
	}

	// 獲取世代管理器
	manager := managerFromContext(c)

	// 獲取運行時信息
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	status := "ok"
	indexStatus := &IndexStatus{}
	if manager != nil && manager.Loaded() {
		gen := manager.Current()
		indexStatus.Loaded = true
		indexStatus.BuildID = gen.BuildID
		indexStatus.Rows = gen.Rows()
	} else {
		// 與查詢路徑一致：沒有世代時服務可用但無法推薦
		status = "needs_models"
	}

	// 構建響應
	response := HealthResponse{
		Status:    status,
		Timestamp: time.Now(),
		Version:   config.App.Version,
		Runtime: map[string]interface{}{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]interface{}{
				"alloc":       m.Alloc,
				"total_alloc": m.TotalAlloc,
				"sys":         m.Sys,
				"num_gc":      m.NumGC,
			},
		},
		Index: indexStatus,
	}

	c.JSON(http.StatusOK, response)
}

// ReadinessCheck 就緒檢查處理器
// 已載入世代才視為就緒
func ReadinessCheck(c *gin.Context) {
	manager := managerFromContext(c)
	if manager == nil || !manager.Loaded() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not_ready",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
	})
}

// LivenessCheck 存活檢查處理器
func LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}

func managerFromContext(c *gin.Context) *suggestService.Manager {
	v, exists := c.Get("generation_manager")
	if !exists {
		return nil
	}
	manager, ok := v.(*suggestService.Manager)
	if !ok {
		return nil
	}
	return manager
}
