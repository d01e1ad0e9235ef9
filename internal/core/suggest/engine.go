package suggest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"recipe-suggester/internal/core/feature"
	"recipe-suggester/internal/core/suggest/cache"
	"recipe-suggester/internal/infrastructure/config"
	"recipe-suggester/internal/pkg/common"

	"go.uber.org/zap"
)

// Engine 線上查詢引擎
// 每次查詢對目前世代唯讀，多個查詢可同時執行
type Engine struct {
	cfg     *config.Config
	manager *Manager
	cache   cache.Store
}

// NewEngine 創建查詢引擎，cacheStore 可為 nil（不快取）
func NewEngine(cfg *config.Config, manager *Manager, cacheStore cache.Store) *Engine {
	return &Engine{
		cfg:     cfg,
		manager: manager,
		cache:   cacheStore,
	}
}

// Suggest 依食材文字回傳排序後的推薦食譜
// 空白查詢回傳空列表而不是錯誤；尚未載入世代時回傳 ErrNoGeneration
func (e *Engine) Suggest(ctx context.Context, rawQuery string, topN int) ([]common.Suggestion, error) {
	start := time.Now()

	gen := e.manager.Current()
	if gen == nil {
		return nil, common.ErrNoGeneration
	}
	if topN <= 0 {
		topN = e.cfg.Query.TopN
	}

	// 逗號拆分並正規化；正規化後為空的查詢直接回空結果
	phrases := feature.NormalizeQuery(rawQuery)
	if len(phrases) == 0 {
		common.LogQuery(0, time.Since(start), nil)
		return []common.Suggestion{}, nil
	}

	// 查快取
	key := e.cacheKey(gen, phrases, topN)
	if e.cache != nil {
		if raw, err := e.cache.Get(ctx, key); err == nil {
			var cached []common.Suggestion
			if err := common.ParseJSON(raw, &cached); err == nil {
				common.LogQuery(len(cached), time.Since(start), nil)
				return cached, nil
			}
		}
	}

	querySet := make(map[string]struct{}, len(phrases))
	for _, p := range phrases {
		querySet[p] = struct{}{}
	}

	// 與建索引相同的向量化路徑：片語以空白連接後雜湊、投影
	vec := gen.Hasher.Vectorize(strings.Join(phrases, " "))
	projected := gen.Reducer.Project(vec)

	candidates, err := gen.Index.Query(projected, e.cfg.Query.Candidates)
	if err != nil {
		common.LogQuery(0, time.Since(start), err)
		return nil, fmt.Errorf("similarity search failed: %w", err)
	}

	suggestions := e.rerank(gen, candidates, querySet)
	if len(suggestions) > topN {
		suggestions = suggestions[:topN]
	}

	// 寫快取（失敗不影響查詢）
	if e.cache != nil {
		if data, err := common.ToJSON(suggestions); err == nil {
			if err := e.cache.Set(ctx, key, data); err != nil {
				common.LogWarn("快取寫入失敗", zap.Error(err))
			}
		}
	}

	common.LogQuery(len(suggestions), time.Since(start), nil)
	return suggestions, nil
}

// rerank 以精確匹配重排候選
// 候選以相似度順序處理，穩定排序讓相似度成為最後的平手依據
func (e *Engine) rerank(gen *Generation, candidates []common.Candidate, querySet map[string]struct{}) []common.Suggestion {
	// 覆蓋下限隨查詢大小成長，但不低於 2
	minUsed := int(math.Ceil(0.3 * float64(len(querySet))))
	if minUsed < 2 {
		minUsed = 2
	}

	suggestions := make([]common.Suggestion, 0, len(candidates))
	for _, cand := range candidates {
		// 世代錯配防禦：索引與存放區不一致時跳過而不是整個查詢失敗
		rec, ok := gen.Store.Get(cand.ID)
		if !ok {
			continue
		}

		// 食材太少的食譜不具推薦意義
		if len(rec.Ingredients) < e.cfg.Query.MinRecipeIngredients {
			continue
		}

		used := make([]string, 0, len(rec.Ingredients))
		missing := make([]string, 0, len(rec.Ingredients))
		for _, ing := range rec.Ingredients {
			if _, hit := querySet[feature.Normalize(ing)]; hit {
				used = append(used, ing)
			} else {
				missing = append(missing, ing)
			}
		}
		if len(used) < minUsed {
			continue
		}

		match := int(math.Round(100 * float64(len(used)) / float64(len(rec.Ingredients))))
		suggestions = append(suggestions, common.Suggestion{
			Title:            rec.Title,
			Match:            match,
			Used:             used,
			Missing:          missing,
			TotalIngredients: len(rec.Ingredients),
			Directions:       rec.Directions,
			Link:             rec.Link,
		})
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		if suggestions[i].Match != suggestions[j].Match {
			return suggestions[i].Match > suggestions[j].Match
		}
		return len(suggestions[i].Used) > len(suggestions[j].Used)
	})
	return suggestions
}

// cacheKey 由世代、正規化片語與 topN 生成快取鍵
// 片語排序後再雜湊，同一組食材不同輸入順序共用快取
func (e *Engine) cacheKey(gen *Generation, phrases []string, topN int) string {
	sorted := make([]string, len(phrases))
	copy(sorted, phrases)
	sort.Strings(sorted)

	h := sha256.New()
	h.Write([]byte(gen.BuildID))
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(sorted, ",")))
	h.Write([]byte(fmt.Sprintf(":%d", topN)))
	return "suggest:" + hex.EncodeToString(h.Sum(nil))
}
