package feature

import (
	"regexp"
	"strings"
)

// 與建索引、查詢共用的食材正規化規則
// 順序：小寫 → 去除開頭的數量與單位 → 去除括號內容 → 去除標點 → 壓縮空白
// 最後再去一次數量前綴，確保 Normalize(Normalize(x)) == Normalize(x)
var (
	// 開頭的數量（含分數）加上固定單位詞彙表
	measureRe = regexp.MustCompile(`^\d+\s*[/\d\s]*\s*(c\.|tsp\.|tbsp\.|cup[s]*|ounce[s]*|g|kg|ml|l)\s*`)
	// 括號與其內容
	parenRe = regexp.MustCompile(`\(.*?\)`)
	// 非字母數字、非空白的字元
	punctRe = regexp.MustCompile(`[^\w\s]`)
	// 連續空白
	spaceRe = regexp.MustCompile(`\s+`)
)

// Normalize 將食材文字轉成可比較的標準形式
// 純函式，不依賴語料庫狀態，對任何輸入都不會失敗
func Normalize(text string) string {
	ing := strings.ToLower(text)

	// 先去除數量與單位前綴（單位可能帶點號，必須在去標點之前）
	ing = stripMeasure(ing)

	// 去除括號內容與標點
	ing = parenRe.ReplaceAllString(ing, "")
	ing = punctRe.ReplaceAllString(ing, "")

	// 壓縮空白
	ing = strings.TrimSpace(spaceRe.ReplaceAllString(ing, " "))

	// 去標點後可能又露出新的數量前綴，再清一次
	ing = stripMeasure(ing)

	return strings.TrimSpace(spaceRe.ReplaceAllString(ing, " "))
}

// stripMeasure 反覆去除開頭的數量與單位，直到不再變化
func stripMeasure(s string) string {
	for {
		next := measureRe.ReplaceAllString(s, "")
		if next == s {
			return s
		}
		s = next
	}
}

// NormalizeQuery 將逗號分隔的查詢字串拆成正規化後的片語集合
// 正規化後為空的片語會被丟棄，重複的片語會合併
func NormalizeQuery(rawQuery string) []string {
	parts := strings.Split(rawQuery, ",")
	seen := make(map[string]struct{}, len(parts))
	phrases := make([]string, 0, len(parts))
	for _, p := range parts {
		n := Normalize(strings.TrimSpace(p))
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		phrases = append(phrases, n)
	}
	return phrases
}
