package store

import (
	"recipe-suggester/internal/pkg/common"
)

// Store 食譜中繼資料存放區
// 記錄在建索引時寫入一次，ID 與相似度索引的列號一致，之後唯讀
type Store struct {
	records []common.RecipeRecord
}

// New 從有序記錄建立存放區
func New(records []common.RecipeRecord) *Store {
	return &Store{records: records}
}

// Get 依 ID 取得記錄，超出範圍回傳 false
func (s *Store) Get(id int) (*common.RecipeRecord, bool) {
	if id < 0 || id >= len(s.records) {
		return nil, false
	}
	return &s.records[id], true
}

// Len 記錄總數
func (s *Store) Len() int {
	return len(s.records)
}

// Records 全部記錄（持久化時使用，呼叫方不可修改）
func (s *Store) Records() []common.RecipeRecord {
	return s.records
}
