package suggest

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"recipe-suggester/internal/core/feature"
	"recipe-suggester/internal/core/index"
	"recipe-suggester/internal/core/ingest"
	"recipe-suggester/internal/core/store"
	"recipe-suggester/internal/infrastructure/config"
	"recipe-suggester/internal/pkg/common"

	"go.uber.org/zap"
)

// 中繼資料欄位長度上限
const (
	maxTitleRunes      = 100
	maxDirectionsRunes = 300
	maxLinkRunes       = 200
)

// Builder 離線建索引管線
// 分批讀取語料庫限制記憶體峰值，批次的正規化與雜湊可平行，
// 最後按固定批次順序合併，確保重建時 ID 穩定
type Builder struct {
	cfg    *config.Config
	hasher *feature.Hasher
}

// NewBuilder 創建建索引器
func NewBuilder(cfg *config.Config) *Builder {
	return &Builder{
		cfg:    cfg,
		hasher: feature.NewHasher(cfg.Index.HashDim),
	}
}

// chunkJob 待向量化的批次
type chunkJob struct {
	seq     int
	records []ingest.RawRecord
}

// chunkResult 向量化完成的批次，seq 用於還原固定順序
type chunkResult struct {
	seq     int
	vecs    []feature.SparseVector
	recs    []common.RecipeRecord
	skipped int
}

// Build 從語料庫串流建出一個完整世代
// 無法解析的記錄會被跳過；整個語料庫沒有可用記錄時回傳 ErrEmptyCorpus
func (b *Builder) Build(ctx context.Context, corpus io.Reader) (*Generation, error) {
	start := time.Now()

	reader, err := ingest.NewReader(corpus, b.cfg.Index.ChunkSize)
	if err != nil {
		return nil, err
	}

	jobs := make(chan chunkJob, b.cfg.Index.Workers)
	results := make(chan chunkResult, b.cfg.Index.Workers)

	// 向量化工作協程
	var wg sync.WaitGroup
	for w := 0; w < b.cfg.Index.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				results <- b.processChunk(job)
			}
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	// 讀取批次並分派
	var readErr error
	go func() {
		defer close(jobs)
		seq := 0
		for {
			if ctx.Err() != nil {
				readErr = ctx.Err()
				return
			}
			chunk, err := reader.NextChunk()
			if err == io.EOF {
				return
			}
			if err != nil {
				readErr = err
				return
			}
			common.LogInfo("處理語料庫批次",
				zap.Int("批次", seq),
				zap.Int("列數", len(chunk)),
			)
			jobs <- chunkJob{seq: seq, records: chunk}
			seq++
		}
	}()

	// 收集結果並還原批次順序
	collected := make([]chunkResult, 0)
	for res := range results {
		collected = append(collected, res)
	}
	if readErr != nil {
		return nil, fmt.Errorf("corpus read failed: %w", readErr)
	}
	sort.Slice(collected, func(i, j int) bool { return collected[i].seq < collected[j].seq })

	var vecs []feature.SparseVector
	var records []common.RecipeRecord
	skipped := 0
	for _, res := range collected {
		vecs = append(vecs, res.vecs...)
		records = append(records, res.recs...)
		skipped += res.skipped
	}
	if len(records) == 0 {
		return nil, common.ErrEmptyCorpus
	}

	// ID 即最終順序中的位置，向量與記錄共用
	for i := range records {
		records[i].ID = i
	}

	common.LogInfo("語料庫處理完成",
		zap.Int("可用記錄", len(records)),
		zap.Int("跳過記錄", skipped),
		zap.Duration("耗時", time.Since(start)),
	)

	// 對完整矩陣擬合截斷 SVD
	reducer, err := feature.FitReducer(
		vecs,
		b.cfg.Index.HashDim,
		b.cfg.Index.Components,
		b.cfg.Index.SVDIters,
		b.cfg.Index.Oversample,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to fit reducer: %w", err)
	}

	// 投影每一列並建立相似度索引
	projected := make([][]float32, len(vecs))
	for i, v := range vecs {
		projected[i] = reducer.Project(v)
	}
	ix, err := index.Build(projected, reducer.K)
	if err != nil {
		return nil, fmt.Errorf("failed to build similarity index: %w", err)
	}

	gen := &Generation{
		BuildID:   common.GenerateUUID(),
		CreatedAt: time.Now(),
		Hasher:    b.hasher,
		Reducer:   reducer,
		Index:     ix,
		Store:     store.New(records),
	}

	common.LogInfo("索引世代建立完成",
		zap.String("build_id", gen.BuildID),
		zap.Int("食譜數", gen.Rows()),
		zap.Int("維度", reducer.K),
		zap.Duration("總耗時", time.Since(start)),
	)

	return gen, nil
}

// processChunk 解析、正規化並雜湊一個批次
// 向量與記錄同步增減，維持共用 ID 的前提
func (b *Builder) processChunk(job chunkJob) chunkResult {
	res := chunkResult{
		seq:  job.seq,
		vecs: make([]feature.SparseVector, 0, len(job.records)),
		recs: make([]common.RecipeRecord, 0, len(job.records)),
	}
	for _, raw := range job.records {
		ings, err := ingest.ParseIngredientList(raw.Ingredients)
		if err != nil {
			res.skipped++
			common.LogDebug("跳過無法解析的記錄",
				zap.Int("批次", job.seq),
				zap.Error(err),
			)
			continue
		}
		norm := feature.Normalize(raw.Ingredients)
		res.vecs = append(res.vecs, b.hasher.Vectorize(norm))
		res.recs = append(res.recs, common.RecipeRecord{
			Title:       ingest.TruncateRunes(raw.Title, maxTitleRunes),
			Ingredients: ings,
			Directions:  ingest.TruncateRunes(raw.Directions, maxDirectionsRunes),
			Link:        ingest.TruncateRunes(raw.Link, maxLinkRunes),
		})
	}
	return res
}
