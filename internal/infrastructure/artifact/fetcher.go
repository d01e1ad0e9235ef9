// Package artifact 提供遠端模型產物的下載
// 屬於服務層協作者：核心查詢路徑不依賴這裡
package artifact

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	coreartifact "recipe-suggester/internal/core/artifact"
	"recipe-suggester/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Fetcher 遠端產物下載器
type Fetcher struct {
	client *resty.Client
}

// NewFetcher 創建下載器
func NewFetcher(timeout time.Duration) *Fetcher {
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(3).
		SetRetryWaitTime(2 * time.Second)

	return &Fetcher{client: client}
}

// Fetch 從 baseURL 下載一個世代的全部產物到 dir
// 先下載到暫存目錄，全部成功後才換名就位，避免留下不完整的世代
func (f *Fetcher) Fetch(ctx context.Context, baseURL, dir string) error {
	if baseURL == "" {
		return fmt.Errorf("no remote artifact url configured")
	}
	baseURL = strings.TrimRight(baseURL, "/")

	tmpDir := dir + ".download"
	if err := os.RemoveAll(tmpDir); err != nil {
		return fmt.Errorf("failed to clear download directory: %w", err)
	}
	if err := os.MkdirAll(tmpDir, 0755); err != nil {
		return fmt.Errorf("failed to create download directory: %w", err)
	}

	files := []string{
		coreartifact.ManifestFile,
		coreartifact.ReducerFile,
		coreartifact.VectorsFile,
		coreartifact.RecipesFile,
	}
	for _, name := range files {
		url := baseURL + "/" + name
		common.LogInfo("下載產物",
			zap.String("url", url),
		)
		resp, err := f.client.R().
			SetContext(ctx).
			SetOutput(filepath.Join(tmpDir, name)).
			Get(url)
		if err != nil {
			return fmt.Errorf("failed to download %s: %w", name, err)
		}
		if resp.IsError() {
			return fmt.Errorf("failed to download %s: status %d", name, resp.StatusCode())
		}
	}

	// 就位：先移走舊目錄再換名，載入失敗時舊世代仍在記憶體中服務
	backup := dir + ".previous"
	_ = os.RemoveAll(backup)
	if _, err := os.Stat(dir); err == nil {
		if err := os.Rename(dir, backup); err != nil {
			return fmt.Errorf("failed to move previous artifacts aside: %w", err)
		}
	}
	if err := os.Rename(tmpDir, dir); err != nil {
		return fmt.Errorf("failed to move artifacts into place: %w", err)
	}
	_ = os.RemoveAll(backup)

	common.LogInfo("產物下載完成",
		zap.String("目錄", dir),
	)
	return nil
}
