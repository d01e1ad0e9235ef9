package ingest

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseIngredientList 解析語料庫 ingredients 欄內的文字編碼列表
// 支援 JSON 陣列與 Python 字面值形式（["a", "b"] / ['a', 'b']）
// 解析失敗視為單筆記錄的 ParseError，由呼叫方跳過該記錄
func ParseIngredientList(s string) ([]string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty ingredient field")
	}
	if !strings.HasPrefix(s, "[") {
		return nil, fmt.Errorf("ingredient field is not a list")
	}

	// 先試 JSON，語料庫多半是雙引號形式
	var viaJSON []string
	if err := json.Unmarshal([]byte(s), &viaJSON); err == nil {
		return viaJSON, nil
	}

	return parseLiteralList(s)
}

// parseLiteralList 解析單引號或雙引號的字面值列表，支援反斜線逸出
func parseLiteralList(s string) ([]string, error) {
	runes := []rune(s)
	i := 0
	skipSpace := func() {
		for i < len(runes) && (runes[i] == ' ' || runes[i] == '\t' || runes[i] == '\n') {
			i++
		}
	}

	if runes[i] != '[' {
		return nil, fmt.Errorf("expected '[' at position %d", i)
	}
	i++

	out := []string{}
	skipSpace()
	if i < len(runes) && runes[i] == ']' {
		return out, nil
	}

	for {
		skipSpace()
		if i >= len(runes) {
			return nil, fmt.Errorf("unterminated list")
		}
		quote := runes[i]
		if quote != '\'' && quote != '"' {
			return nil, fmt.Errorf("expected quote at position %d", i)
		}
		i++

		var sb strings.Builder
		closed := false
		for i < len(runes) {
			ch := runes[i]
			if ch == '\\' && i+1 < len(runes) {
				sb.WriteRune(runes[i+1])
				i += 2
				continue
			}
			if ch == quote {
				closed = true
				i++
				break
			}
			sb.WriteRune(ch)
			i++
		}
		if !closed {
			return nil, fmt.Errorf("unterminated string literal")
		}
		out = append(out, sb.String())

		skipSpace()
		if i >= len(runes) {
			return nil, fmt.Errorf("unterminated list")
		}
		switch runes[i] {
		case ',':
			i++
		case ']':
			return out, nil
		default:
			return nil, fmt.Errorf("unexpected character %q at position %d", runes[i], i)
		}
	}
}

// TruncateRunes 依符文數截斷字串（中繼資料欄位上限）
func TruncateRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
