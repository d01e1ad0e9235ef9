package index

import (
	"container/heap"
	"fmt"
	"sort"

	"recipe-suggester/internal/pkg/common"
)

// Index 餘弦相似度索引
// 以 row-major 連續記憶體保存所有食譜的投影向量，建好之後唯讀；
// 向量皆已 L2 正規化，餘弦相似度退化為內積，用暴力掃描回答 k-NN
type Index struct {
	dim     int
	rows    int
	vectors []float32
}

// Build 從有序的投影向量建立索引，列號即食譜 ID
func Build(vectors [][]float32, dim int) (*Index, error) {
	if len(vectors) == 0 {
		return nil, fmt.Errorf("no vectors to index")
	}
	flat := make([]float32, 0, len(vectors)*dim)
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("vector %d has dim %d, want %d", i, len(v), dim)
		}
		flat = append(flat, v...)
	}
	return &Index{dim: dim, rows: len(vectors), vectors: flat}, nil
}

// FromFlat 從連續記憶體直接還原索引（載入產物時使用）
func FromFlat(flat []float32, rows, dim int) (*Index, error) {
	if rows <= 0 || dim <= 0 || len(flat) != rows*dim {
		return nil, fmt.Errorf("flat vector data has %d values, want %d×%d", len(flat), rows, dim)
	}
	return &Index{dim: dim, rows: rows, vectors: flat}, nil
}

// Rows 索引中的向量數
func (ix *Index) Rows() int { return ix.rows }

// Dim 向量維度
func (ix *Index) Dim() int { return ix.dim }

// Row 第 i 列的向量（共享底層記憶體，呼叫方不可修改）
func (ix *Index) Row(i int) []float32 {
	return ix.vectors[i*ix.dim : (i+1)*ix.dim]
}

// Query 回傳與 q 最相似的 k 個候選，相似度由高到低
// 相似度相同時以 ID 由小到大決定順序，保證結果可重現
func (ix *Index) Query(q []float32, k int) ([]common.Candidate, error) {
	if len(q) != ix.dim {
		return nil, fmt.Errorf("query vector has dim %d, want %d", len(q), ix.dim)
	}
	if k <= 0 {
		return nil, nil
	}
	if k > ix.rows {
		k = ix.rows
	}

	// 以 k 大小的最小堆掃描全部列，避免整體排序
	h := make(candidateHeap, 0, k)
	heap.Init(&h)
	for id := 0; id < ix.rows; id++ {
		sim := dot(q, ix.Row(id))
		cand := common.Candidate{ID: id, Similarity: sim}
		if len(h) < k {
			heap.Push(&h, cand)
			continue
		}
		if worse(h[0], cand) {
			h[0] = cand
			heap.Fix(&h, 0)
		}
	}

	out := make([]common.Candidate, len(h))
	copy(out, h)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Similarity != out[j].Similarity {
			return out[i].Similarity > out[j].Similarity
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// worse 判斷 a 是否比 b 更該被淘汰（相似度較低，平手時 ID 較大）
func worse(a, b common.Candidate) bool {
	if a.Similarity != b.Similarity {
		return a.Similarity < b.Similarity
	}
	return a.ID > b.ID
}

// candidateHeap 以「最差候選在頂端」排序的最小堆
type candidateHeap []common.Candidate

func (h candidateHeap) Len() int            { return len(h) }
func (h candidateHeap) Less(i, j int) bool  { return worse(h[i], h[j]) }
func (h candidateHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *candidateHeap) Push(x interface{}) { *h = append(*h, x.(common.Candidate)) }
func (h *candidateHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
