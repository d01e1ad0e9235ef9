package suggest

import (
	"sync/atomic"
	"time"

	"recipe-suggester/internal/core/feature"
	"recipe-suggester/internal/core/index"
	"recipe-suggester/internal/core/store"
)

// Generation 一個內部一致的索引世代
// 建索引時產生的全部產物（雜湊設定、投影參數、相似度索引、食譜存放區）
// 必須一起載入、一起替換，查詢永遠只看到單一世代
type Generation struct {
	BuildID   string
	CreatedAt time.Time
	Hasher    *feature.Hasher
	Reducer   *feature.Reducer
	Index     *index.Index
	Store     *store.Store
}

// Rows 世代中的食譜數
func (g *Generation) Rows() int {
	if g == nil || g.Index == nil {
		return 0
	}
	return g.Index.Rows()
}

// Manager 保存目前服務中的世代，替換是單一指標交換
// 查詢中途換代時，進行中的查詢仍然讀到舊世代的完整產物
type Manager struct {
	current atomic.Pointer[Generation]
}

// NewManager 創建世代管理器
func NewManager() *Manager {
	return &Manager{}
}

// Current 目前載入的世代，尚未載入時為 nil
func (m *Manager) Current() *Generation {
	return m.current.Load()
}

// Swap 原子地替換目前世代
func (m *Manager) Swap(g *Generation) {
	m.current.Store(g)
}

// Loaded 是否已有世代可供查詢
func (m *Manager) Loaded() bool {
	return m.current.Load() != nil
}
