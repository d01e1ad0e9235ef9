package feature

import (
	"hash/fnv"
	"sort"
	"strings"
)

// SparseVector 特徵雜湊後的稀疏向量，索引遞增排列，數值皆為正
type SparseVector struct {
	Indices []int32
	Values  []float32
}

// NNZ 非零元素個數
func (v SparseVector) NNZ() int {
	return len(v.Indices)
}

// Hasher 特徵雜湊器
// 不需要詞彙表，同一組設定下對相同文字的輸出位元級相同，
// 因此查詢時遇到語料庫外的詞也能確定性地向量化
type Hasher struct {
	dim int
}

// NewHasher 創建特徵雜湊器，dim 為桶數（建索引與查詢必須一致）
func NewHasher(dim int) *Hasher {
	return &Hasher{dim: dim}
}

// Dim 雜湊空間維度
func (h *Hasher) Dim() int {
	return h.dim
}

// Vectorize 將正規化後的文字雜湊成稀疏向量
// 每個空白分隔的詞落入一個桶，桶值加一，不做符號交替
func (h *Hasher) Vectorize(text string) SparseVector {
	buckets := make(map[int32]float32)
	for _, token := range strings.Fields(text) {
		f := fnv.New32a()
		f.Write([]byte(token))
		idx := int32(f.Sum32() % uint32(h.dim))
		buckets[idx] += 1.0
	}

	vec := SparseVector{
		Indices: make([]int32, 0, len(buckets)),
		Values:  make([]float32, 0, len(buckets)),
	}
	for idx := range buckets {
		vec.Indices = append(vec.Indices, idx)
	}
	sort.Slice(vec.Indices, func(i, j int) bool { return vec.Indices[i] < vec.Indices[j] })
	for _, idx := range vec.Indices {
		vec.Values = append(vec.Values, buckets[idx])
	}
	return vec
}

// VectorizeAll 批次雜湊
func (h *Hasher) VectorizeAll(texts []string) []SparseVector {
	vecs := make([]SparseVector, len(texts))
	for i, t := range texts {
		vecs[i] = h.Vectorize(t)
	}
	return vecs
}
