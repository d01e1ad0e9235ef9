package admin

import (
	"errors"
	"net/http"

	coreartifact "recipe-suggester/internal/core/artifact"
	suggestService "recipe-suggester/internal/core/suggest"
	"recipe-suggester/internal/infrastructure/artifact"
	"recipe-suggester/internal/infrastructure/config"
	"recipe-suggester/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler 世代管理處理程序
// 下載與重新載入都是整個世代的原子替換，失敗時保留原世代
type Handler struct {
	cfg     *config.Config
	manager *suggestService.Manager
	fetcher *artifact.Fetcher
}

// NewHandler 創建管理處理程序
func NewHandler(cfg *config.Config, manager *suggestService.Manager, fetcher *artifact.Fetcher) *Handler {
	return &Handler{
		cfg:     cfg,
		manager: manager,
		fetcher: fetcher,
	}
}

// DownloadRequest 下載產物請求
type DownloadRequest struct {
	URL string `json:"url,omitempty"` // 省略時用設定中的 remote_url
}

// respondError 以統一的錯誤結構回應，Details 帶原始錯誤
func respondError(c *gin.Context, err *common.CustomError) {
	resp := common.ErrorResponse{
		Code:    err.Code,
		Message: err.Message,
	}
	if err.Err != nil {
		resp.Details = err.Err.Error()
	}
	c.JSON(err.Status, resp)
}

// HandleReload 從本地產物目錄重新載入世代
func (h *Handler) HandleReload(c *gin.Context) {
	gen, err := coreartifact.Load(h.cfg.Artifacts.Dir, h.cfg)
	if err != nil {
		h.loadError(c, err)
		return
	}

	h.manager.Swap(gen)
	common.LogInfo("世代已重新載入",
		zap.String("build_id", gen.BuildID),
		zap.Int("食譜數", gen.Rows()),
	)
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"build_id": gen.BuildID,
		"rows":     gen.Rows(),
	})
}

// HandleDownload 下載遠端產物後重新載入
func (h *Handler) HandleDownload(c *gin.Context) {
	var req DownloadRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		respondError(c, common.NewError(common.ErrCodeInvalidRequest,
			"Invalid request format", http.StatusBadRequest, err))
		return
	}

	url := req.URL
	if url == "" {
		url = h.cfg.Artifacts.RemoteURL
	}
	if url == "" {
		respondError(c, common.NewError(common.ErrCodeInvalidRequest,
			"No artifact url provided", http.StatusBadRequest, nil))
		return
	}

	if err := h.fetcher.Fetch(c.Request.Context(), url, h.cfg.Artifacts.Dir); err != nil {
		common.LogError("產物下載失敗", zap.Error(err))
		respondError(c, common.NewError("DOWNLOAD_FAILED",
			"Failed to download artifacts", http.StatusBadGateway, err))
		return
	}

	gen, err := coreartifact.Load(h.cfg.Artifacts.Dir, h.cfg)
	if err != nil {
		h.loadError(c, err)
		return
	}

	h.manager.Swap(gen)
	common.LogInfo("世代已下載並載入",
		zap.String("build_id", gen.BuildID),
		zap.Int("食譜數", gen.Rows()),
	)
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"build_id": gen.BuildID,
		"rows":     gen.Rows(),
	})
}

// loadError 載入失敗時回報原因，原世代保持不變
func (h *Handler) loadError(c *gin.Context, err error) {
	common.LogError("世代載入失敗", zap.Error(err))

	cerr := common.NewError(common.ErrCodeInternalError,
		"Failed to load artifacts", http.StatusInternalServerError, err)
	switch {
	case errors.Is(err, common.ErrConfigMismatch):
		cerr = common.NewError("CONFIG_MISMATCH",
			"Artifact dimensions do not match configuration", http.StatusInternalServerError, err)
	case errors.Is(err, common.ErrMissingArtifact):
		cerr = common.NewError("MISSING_ARTIFACT",
			"Artifacts missing or unreadable", http.StatusNotFound, err)
	}
	respondError(c, cerr)
}
