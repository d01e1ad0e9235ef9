package feature

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"小寫轉換", "Flour", "flour"},
		{"去除數量與單位", "2 cups flour", "flour"},
		{"大小寫與單位", "2 CUPS Flour", "flour"},
		{"帶點號的單位", "1 c. butter", "butter"},
		{"分數數量", "1 1/2 tbsp. olive oil", "olive oil"},
		{"括號內容", "eggs (large, free-range)", "eggs"},
		{"標點符號", "salt-and-pepper!", "saltandpepper"},
		{"多餘空白", "  baking   soda  ", "baking soda"},
		{"公制單位", "500 g ground beef", "ground beef"},
		{"單位黏在詞首", "2 gram flour", "ram flour"},
		{"沒有單位的數字保留", "2 eggs", "2 eggs"},
		{"空字串", "", ""},
		{"只有標點", "()!,.", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"2 CUPS Flour",
		"eggs (large, free-range)",
		"1 1/2 cups sugar",
		"#2 cups flour",
		"(about) 2 cups flour",
		"salt",
		"",
		"3 tsp. vanilla extract",
		"500 g ground beef",
		"2 gram flour",
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
}

func TestNormalizeMatchesUnitlessForm(t *testing.T) {
	// 同一食材帶不帶數量單位都要正規化到同一結果
	assert.Equal(t, Normalize("flour"), Normalize("2 CUPS Flour"))
	assert.Equal(t, Normalize("milk"), Normalize("250 ml milk"))
}

func TestNormalizeQuery(t *testing.T) {
	t.Run("逗號拆分並正規化", func(t *testing.T) {
		got := NormalizeQuery("2 Eggs, 1 cup Flour, milk")
		assert.Equal(t, []string{"2 eggs", "flour", "milk"}, got)
	})

	t.Run("重複片語合併", func(t *testing.T) {
		got := NormalizeQuery("flour, 2 cups flour, FLOUR")
		assert.Equal(t, []string{"flour"}, got)
	})

	t.Run("空查詢", func(t *testing.T) {
		assert.Empty(t, NormalizeQuery(""))
		assert.Empty(t, NormalizeQuery(","))
		assert.Empty(t, NormalizeQuery("  ,  , "))
	})
}
