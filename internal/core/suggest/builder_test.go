package suggest

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"recipe-suggester/internal/infrastructure/config"
	"recipe-suggester/internal/pkg/common"
)

func TestMain(m *testing.M) {
	common.Logger = zap.NewNop()
	os.Exit(m.Run())
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Index.HashDim = 1 << 12
	cfg.Index.Components = 8
	cfg.Index.ChunkSize = 2
	cfg.Index.Workers = 2
	cfg.Index.SVDIters = 2
	cfg.Index.Oversample = 10
	cfg.Query.Candidates = 50
	cfg.Query.TopN = 5
	cfg.Query.MinRecipeIngredients = 3
	cfg.Cache.Enabled = true
	cfg.Cache.MaxSize = 100
	cfg.Cache.TTL = 5 * time.Minute
	return cfg
}

// testRecipe 測試語料庫中的一列
type testRecipe struct {
	title       string
	ingredients []string
	directions  []string
	link        string
}

// corpusCSV 將測試食譜編成語料庫 CSV
func corpusCSV(t *testing.T, recipes []testRecipe) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	require.NoError(t, w.Write([]string{"title", "ingredients", "directions", "link"}))
	for _, r := range recipes {
		ings, err := json.Marshal(r.ingredients)
		require.NoError(t, err)
		dirs, err := json.Marshal(r.directions)
		require.NoError(t, err)
		require.NoError(t, w.Write([]string{r.title, string(ings), string(dirs), r.link}))
	}
	w.Flush()
	require.NoError(t, w.Error())
	return buf
}

func testRecipes() []testRecipe {
	return []testRecipe{
		{"Pancakes", []string{"Eggs", "2 cups Flour", "250 ml milk", "1 cup sugar"}, []string{"mix", "fry"}, "example.com/1"},
		{"Omelette", []string{"eggs (large)", "1 cup flour", "butter"}, []string{"whisk", "cook"}, "example.com/2"},
		{"Congee", []string{"rice", "chicken", "broth"}, []string{"simmer"}, "example.com/3"},
		{"Dough", []string{"eggs", "flour"}, []string{"knead"}, "example.com/4"},
		{"Custard", []string{"eggs", "250 ml milk", "1 cup sugar", "vanilla", "cream", "salt"}, []string{"bake"}, "example.com/5"},
	}
}

func TestBuildAssignsSequentialIDs(t *testing.T) {
	cfg := testConfig()
	recipes := testRecipes()

	gen, err := NewBuilder(cfg).Build(context.Background(), corpusCSV(t, recipes))
	require.NoError(t, err)
	require.Equal(t, len(recipes), gen.Rows())

	// chunk_size=2 強迫多批次，合併後 ID 仍按語料庫順序
	for i, r := range recipes {
		rec, ok := gen.Store.Get(i)
		require.True(t, ok)
		assert.Equal(t, i, rec.ID)
		assert.Equal(t, r.title, rec.Title)
		assert.Equal(t, r.ingredients, rec.Ingredients)
	}
	assert.NotEmpty(t, gen.BuildID)
}

func TestBuildReproducibleVectors(t *testing.T) {
	cfg := testConfig()
	recipes := testRecipes()

	a, err := NewBuilder(cfg).Build(context.Background(), corpusCSV(t, recipes))
	require.NoError(t, err)
	b, err := NewBuilder(cfg).Build(context.Background(), corpusCSV(t, recipes))
	require.NoError(t, err)

	// 相同語料庫重建出位元級相同的向量；BuildID 每次不同
	require.Equal(t, a.Rows(), b.Rows())
	for i := 0; i < a.Rows(); i++ {
		assert.Equal(t, a.Index.Row(i), b.Index.Row(i), "第 %d 列", i)
	}
	assert.NotEqual(t, a.BuildID, b.BuildID)
}

func TestBuildSkipsUnparseableRecords(t *testing.T) {
	cfg := testConfig()
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	require.NoError(t, w.Write([]string{"title", "ingredients", "directions", "link"}))
	require.NoError(t, w.Write([]string{"Pancakes", `["eggs", "flour", "milk"]`, `["mix"]`, "example.com/1"}))
	require.NoError(t, w.Write([]string{"Broken", "not a list", "", "example.com/2"}))
	require.NoError(t, w.Write([]string{"Congee", `["rice", "chicken", "broth"]`, `["simmer"]`, "example.com/3"}))
	w.Flush()

	gen, err := NewBuilder(cfg).Build(context.Background(), buf)
	require.NoError(t, err)

	// 跳過的記錄不佔 ID，向量與記錄保持對齊
	require.Equal(t, 2, gen.Rows())
	rec, ok := gen.Store.Get(1)
	require.True(t, ok)
	assert.Equal(t, "Congee", rec.Title)
}

func TestBuildEmptyCorpus(t *testing.T) {
	cfg := testConfig()

	_, err := NewBuilder(cfg).Build(context.Background(), bytes.NewBufferString("title,ingredients,directions,link\n"))
	assert.ErrorIs(t, err, common.ErrEmptyCorpus)

	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	require.NoError(t, w.Write([]string{"title", "ingredients", "directions", "link"}))
	require.NoError(t, w.Write([]string{"Broken", "not a list", "", ""}))
	w.Flush()
	_, err = NewBuilder(cfg).Build(context.Background(), buf)
	assert.ErrorIs(t, err, common.ErrEmptyCorpus)
}

func TestBuildMissingIngredientsColumn(t *testing.T) {
	cfg := testConfig()
	_, err := NewBuilder(cfg).Build(context.Background(), bytes.NewBufferString("title,link\nPancakes,example.com/1\n"))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrEmptyCorpus)
}

func TestBuildTruncatesMetadata(t *testing.T) {
	cfg := testConfig()
	long := make([]byte, 0, 600)
	for i := 0; i < 600; i++ {
		long = append(long, 'x')
	}
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	require.NoError(t, w.Write([]string{"title", "ingredients", "directions", "link"}))
	require.NoError(t, w.Write([]string{string(long), `["eggs", "flour", "milk"]`, string(long), string(long)}))
	w.Flush()

	gen, err := NewBuilder(cfg).Build(context.Background(), buf)
	require.NoError(t, err)

	rec, ok := gen.Store.Get(0)
	require.True(t, ok)
	assert.Len(t, rec.Title, maxTitleRunes)
	assert.Len(t, rec.Directions, maxDirectionsRunes)
	assert.Len(t, rec.Link, maxLinkRunes)
}
