package artifact

import (
	"bytes"
	"context"
	"encoding/csv"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	coreartifact "recipe-suggester/internal/core/artifact"
	"recipe-suggester/internal/core/suggest"
	"recipe-suggester/internal/infrastructure/config"
	"recipe-suggester/internal/pkg/common"
)

func TestMain(m *testing.M) {
	common.Logger = zap.NewNop()
	os.Exit(m.Run())
}

func fetcherConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Index.HashDim = 1 << 12
	cfg.Index.Components = 8
	cfg.Index.ChunkSize = 100
	cfg.Index.Workers = 2
	cfg.Index.SVDIters = 2
	cfg.Index.Oversample = 10
	cfg.Query.Candidates = 50
	cfg.Query.TopN = 5
	cfg.Query.MinRecipeIngredients = 3
	return cfg
}

// saveArtifacts 建一個小世代並存到目錄，作為遠端伺服器的內容
func saveArtifacts(t *testing.T, cfg *config.Config, dir string) *suggest.Generation {
	t.Helper()
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	require.NoError(t, w.Write([]string{"title", "ingredients", "directions", "link"}))
	require.NoError(t, w.Write([]string{"Pancakes", `["eggs", "flour", "milk"]`, `["mix"]`, "example.com/1"}))
	require.NoError(t, w.Write([]string{"Congee", `["rice", "chicken", "broth"]`, `["simmer"]`, "example.com/2"}))
	w.Flush()

	gen, err := suggest.NewBuilder(cfg).Build(context.Background(), buf)
	require.NoError(t, err)
	require.NoError(t, coreartifact.Save(dir, gen))
	return gen
}

func TestFetchDownloadsAllArtifacts(t *testing.T) {
	cfg := fetcherConfig()
	remote := t.TempDir()
	gen := saveArtifacts(t, cfg, remote)

	server := httptest.NewServer(http.FileServer(http.Dir(remote)))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "model_optimized")
	f := NewFetcher(5 * time.Second)
	require.NoError(t, f.Fetch(context.Background(), server.URL, dest))

	// 下載後可直接載入，內容與來源一致
	loaded, err := coreartifact.Load(dest, cfg)
	require.NoError(t, err)
	assert.Equal(t, gen.BuildID, loaded.BuildID)
	assert.Equal(t, gen.Rows(), loaded.Rows())

	// 暫存目錄不殘留
	_, err = os.Stat(dest + ".download")
	assert.True(t, os.IsNotExist(err))
}

func TestFetchReplacesExistingArtifacts(t *testing.T) {
	cfg := fetcherConfig()
	remote := t.TempDir()
	gen := saveArtifacts(t, cfg, remote)

	server := httptest.NewServer(http.FileServer(http.Dir(remote)))
	defer server.Close()

	// 目的地已有一份舊世代
	dest := filepath.Join(t.TempDir(), "model_optimized")
	saveArtifacts(t, cfg, dest)

	f := NewFetcher(5 * time.Second)
	require.NoError(t, f.Fetch(context.Background(), server.URL, dest))

	loaded, err := coreartifact.Load(dest, cfg)
	require.NoError(t, err)
	assert.Equal(t, gen.BuildID, loaded.BuildID)
}

func TestFetchMissingRemoteFile(t *testing.T) {
	cfg := fetcherConfig()
	remote := t.TempDir()
	saveArtifacts(t, cfg, remote)
	require.NoError(t, os.Remove(filepath.Join(remote, coreartifact.VectorsFile)))

	server := httptest.NewServer(http.FileServer(http.Dir(remote)))
	defer server.Close()

	// 缺檔時整次下載失敗，目的地不被污染
	dest := filepath.Join(t.TempDir(), "model_optimized")
	f := NewFetcher(5 * time.Second)
	err := f.Fetch(context.Background(), server.URL, dest)
	require.Error(t, err)

	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr))
}

func TestFetchRejectsEmptyURL(t *testing.T) {
	f := NewFetcher(time.Second)
	err := f.Fetch(context.Background(), "", t.TempDir())
	assert.Error(t, err)
}
