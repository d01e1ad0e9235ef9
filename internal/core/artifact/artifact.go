// Package artifact 負責索引世代的持久化
// 編碼格式必須精確往返：向量、投影參數、食譜記錄載回後
// 查詢路徑要能位元級重現建索引時的行為
package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"recipe-suggester/internal/core/feature"
	"recipe-suggester/internal/core/store"
	"recipe-suggester/internal/core/suggest"
	"recipe-suggester/internal/infrastructure/config"
	"recipe-suggester/internal/pkg/common"
)

// 世代產物檔名
const (
	ManifestFile = "manifest.json"
	ReducerFile  = "reducer.bin"
	VectorsFile  = "vectors.bin"
	RecipesFile  = "recipes.json"
)

// Manifest 世代描述檔，載入時用來檢查維度設定是否一致
type Manifest struct {
	BuildID    string    `json:"build_id"`
	CreatedAt  time.Time `json:"created_at"`
	Rows       int       `json:"rows"`
	HashDim    int       `json:"hash_dim"`
	Components int       `json:"components"`
}

// Save 將一個世代的全部產物寫入目錄
func Save(dir string, gen *suggest.Generation) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create artifact directory: %w", err)
	}

	manifest := Manifest{
		BuildID:    gen.BuildID,
		CreatedAt:  gen.CreatedAt,
		Rows:       gen.Index.Rows(),
		HashDim:    gen.Reducer.HashDim,
		Components: gen.Reducer.K,
	}
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestFile), data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}

	if err := writeReducer(filepath.Join(dir, ReducerFile), gen.Reducer); err != nil {
		return err
	}
	if err := writeVectors(filepath.Join(dir, VectorsFile), gen.Index); err != nil {
		return err
	}

	records, err := json.Marshal(gen.Store.Records())
	if err != nil {
		return fmt.Errorf("failed to marshal records: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, RecipesFile), records, 0644); err != nil {
		return fmt.Errorf("failed to write records: %w", err)
	}

	return nil
}

// Load 從目錄載入一個世代
// 缺少產物回傳 ErrMissingArtifact；維度與設定不符回傳 ErrConfigMismatch，
// 兩者都不影響呼叫方已載入的世代
func Load(dir string, cfg *config.Config) (*suggest.Generation, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", common.ErrMissingArtifact, ManifestFile, err)
	}
	// 描述檔是自家格式，未知欄位視為產物損壞
	var manifest Manifest
	if err := common.ParseJSONBytesStrict(data, &manifest); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", common.ErrMissingArtifact, ManifestFile, err)
	}

	// 維度必須與編入查詢引擎的設定一致，否則查詢無法重現建索引語義
	if manifest.HashDim != cfg.Index.HashDim {
		return nil, fmt.Errorf("%w: artifact hash dim %d, config %d",
			common.ErrConfigMismatch, manifest.HashDim, cfg.Index.HashDim)
	}
	if manifest.Components != cfg.Index.Components {
		return nil, fmt.Errorf("%w: artifact components %d, config %d",
			common.ErrConfigMismatch, manifest.Components, cfg.Index.Components)
	}

	reducer, err := readReducer(filepath.Join(dir, ReducerFile))
	if err != nil {
		return nil, err
	}
	if reducer.HashDim != manifest.HashDim || reducer.K != manifest.Components {
		return nil, fmt.Errorf("%w: reducer dimensions disagree with manifest",
			common.ErrConfigMismatch)
	}

	ix, err := readVectors(filepath.Join(dir, VectorsFile))
	if err != nil {
		return nil, err
	}
	if ix.Rows() != manifest.Rows || ix.Dim() != manifest.Components {
		return nil, fmt.Errorf("%w: vector dimensions disagree with manifest",
			common.ErrConfigMismatch)
	}

	recData, err := os.ReadFile(filepath.Join(dir, RecipesFile))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", common.ErrMissingArtifact, RecipesFile, err)
	}
	var records []common.RecipeRecord
	if err := common.ParseJSONBytes(recData, &records); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", common.ErrMissingArtifact, RecipesFile, err)
	}
	if len(records) != ix.Rows() {
		return nil, fmt.Errorf("%w: %d records for %d vectors",
			common.ErrMissingArtifact, len(records), ix.Rows())
	}

	return &suggest.Generation{
		BuildID:   manifest.BuildID,
		CreatedAt: manifest.CreatedAt,
		Hasher:    feature.NewHasher(manifest.HashDim),
		Reducer:   reducer,
		Index:     ix,
		Store:     store.New(records),
	}, nil
}
