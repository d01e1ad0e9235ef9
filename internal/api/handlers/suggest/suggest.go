package suggest

import (
	"errors"
	"net/http"

	suggestService "recipe-suggester/internal/core/suggest"
	"recipe-suggester/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SuggestRequest 食材推薦請求
type SuggestRequest struct {
	Ingredients string `json:"ingredients"`     // 逗號分隔的食材文字
	TopN        int    `json:"top_n,omitempty"` // 回傳數量，省略時用預設值
}

// SuggestResponse 推薦結果
type SuggestResponse struct {
	Recipes []common.Suggestion `json:"recipes"`
}

// Handler 推薦處理程序
type Handler struct {
	engine *suggestService.Engine
}

// respondError 以統一的錯誤結構回應
func respondError(c *gin.Context, err *common.CustomError) {
	c.JSON(err.Status, common.ErrorResponse{
		Code:    err.Code,
		Message: err.Message,
	})
}

// NewHandler 創建推薦處理程序
func NewHandler(engine *suggestService.Engine) *Handler {
	return &Handler{engine: engine}
}

// HandleSuggest 依食材推薦食譜
func (h *Handler) HandleSuggest(c *gin.Context) {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.New().String()
		c.Header("X-Request-ID", requestID)
	}

	var req SuggestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.LogError("請求格式無效",
			zap.Error(err),
			zap.String("request_id", requestID),
		)
		respondError(c, common.NewError(common.ErrCodeInvalidRequest,
			"Invalid request format", http.StatusBadRequest, err))
		return
	}

	common.LogInfo("開始處理推薦請求",
		zap.String("request_id", requestID),
		zap.String("client_ip", c.ClientIP()),
	)

	// 空查詢回傳空列表，不視為錯誤
	suggestions, err := h.engine.Suggest(c.Request.Context(), req.Ingredients, req.TopN)
	if err != nil {
		if errors.Is(err, common.ErrNoGeneration) {
			common.LogWarn("尚未載入索引世代",
				zap.String("request_id", requestID),
			)
			respondError(c, common.NewError(common.ErrCodeServiceUnavailable,
				"No index loaded", http.StatusServiceUnavailable, err))
			return
		}
		common.LogError("推薦失敗",
			zap.Error(err),
			zap.String("request_id", requestID),
		)
		respondError(c, common.NewError(common.ErrCodeInternalError,
			"Internal server error", http.StatusInternalServerError, err))
		return
	}

	c.JSON(http.StatusOK, SuggestResponse{Recipes: suggestions})
}
