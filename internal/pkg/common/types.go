package common

// RecipeRecord 單筆食譜的中繼資料，建索引時建立一次，之後唯讀
// ID 與相似度索引中的列號一致
type RecipeRecord struct {
	ID          int      `json:"id"`
	Title       string   `json:"title"`
	Ingredients []string `json:"ingredients"` // 原始食材文字，保留順序
	Directions  string   `json:"directions"`
	Link        string   `json:"link"`
}

// Candidate 相似度搜尋回傳的候選食譜（重排序前）
type Candidate struct {
	ID         int     `json:"id"`
	Similarity float32 `json:"similarity"`
}

// Suggestion 重排序之後的最終推薦結果
type Suggestion struct {
	Title            string   `json:"title"`
	Match            int      `json:"match"` // 精確匹配百分比（四捨五入）
	Used             []string `json:"used"`
	Missing          []string `json:"missing"`
	TotalIngredients int      `json:"total_ingredients"`
	Directions       string   `json:"directions"`
	Link             string   `json:"link"`
}
