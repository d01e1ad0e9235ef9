package feature

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// 隨機化 SVD 的固定種子，確保同一語料庫重建出相同的投影
const svdSeed int64 = 42

// Reducer 截斷 SVD 學到的線性投影參數
// Components 為 K×HashDim 的右奇異向量，fit 一次之後唯讀
type Reducer struct {
	HashDim    int
	K          int
	Components [][]float32
}

// FitReducer 對整個雜湊向量矩陣擬合 rank-K 截斷 SVD
// 採用隨機化演算法（隨機投影 + 冪迭代 + 小矩陣 SVD），
// 高斯測試矩陣按特徵索引決定性生成，重複擬合結果一致
func FitReducer(rows []SparseVector, hashDim, k, iters, oversample int) (*Reducer, error) {
	n := len(rows)
	if n == 0 {
		return nil, fmt.Errorf("no rows to fit")
	}
	if k <= 0 || k > hashDim {
		return nil, fmt.Errorf("invalid component count %d for dim %d", k, hashDim)
	}

	// 有效秩不能超過列數與維度
	rank := k
	if n < rank {
		rank = n
	}
	l := rank + oversample
	if l > n {
		l = n
	}
	if l > hashDim {
		l = hashDim
	}

	omega := newGaussianRows(l)

	// Y = A·Ω （n×l）
	y := mat.NewDense(n, l, nil)
	sparseMul(y, rows, omega)

	// 冪迭代：拉近 Y 的值域與 A 的主奇異子空間
	for it := 0; it < iters; it++ {
		orthonormalize(y)
		z := mat.NewDense(hashDim, l, nil)
		sparseMulT(z, rows, y)
		orthonormalize(z)
		y.Zero()
		sparseMulDense(y, rows, z)
	}
	orthonormalize(y)

	// B = Qᵀ·A （l×hashDim）
	b := mat.NewDense(l, hashDim, nil)
	for i, row := range rows {
		for p, j := range row.Indices {
			v := float64(row.Values[p])
			for c := 0; c < l; c++ {
				b.Set(c, int(j), b.At(c, int(j))+y.At(i, c)*v)
			}
		}
	}

	// 小矩陣 SVD，取前 rank 個右奇異向量
	var svd mat.SVD
	if ok := svd.Factorize(b, mat.SVDThin); !ok {
		return nil, fmt.Errorf("svd factorization failed")
	}
	var v mat.Dense
	svd.VTo(&v)

	components := make([][]float32, k)
	for c := 0; c < k; c++ {
		comp := make([]float32, hashDim)
		if c < rank {
			for j := 0; j < hashDim; j++ {
				comp[j] = float32(v.At(j, c))
			}
		}
		components[c] = comp
	}

	return &Reducer{
		HashDim:    hashDim,
		K:          k,
		Components: components,
	}, nil
}

// Project 將稀疏雜湊向量投影到 K 維子空間並做 L2 正規化
// 無副作用，查詢時的投影與建索引時位元級一致
func (r *Reducer) Project(v SparseVector) []float32 {
	out := make([]float32, r.K)
	for p, j := range v.Indices {
		val := v.Values[p]
		for c := 0; c < r.K; c++ {
			out[c] += r.Components[c][j] * val
		}
	}
	return l2Normalize(out)
}

// l2Normalize 原地 L2 正規化，零向量維持為零
func l2Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return v
	}
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
	return v
}

// gaussianRows 按特徵索引惰性生成的高斯測試矩陣
// 不需要實體化 hashDim×l 的稠密矩陣，只為語料庫中出現過的特徵生成列
type gaussianRows struct {
	l    int
	rows map[int32][]float64
}

func newGaussianRows(l int) *gaussianRows {
	return &gaussianRows{l: l, rows: make(map[int32][]float64)}
}

func (g *gaussianRows) row(j int32) []float64 {
	if row, ok := g.rows[j]; ok {
		return row
	}
	rng := rand.New(rand.NewSource(svdSeed + int64(j)*2654435761))
	row := make([]float64, g.l)
	for c := range row {
		row[c] = rng.NormFloat64()
	}
	g.rows[j] = row
	return row
}

// sparseMul dst(n×l) = A·Ω，A 為稀疏列、Ω 按需生成
func sparseMul(dst *mat.Dense, rows []SparseVector, omega *gaussianRows) {
	_, l := dst.Dims()
	for i, row := range rows {
		for p, j := range row.Indices {
			v := float64(row.Values[p])
			om := omega.row(j)
			for c := 0; c < l; c++ {
				dst.Set(i, c, dst.At(i, c)+v*om[c])
			}
		}
	}
}

// sparseMulT dst(hashDim×l) = Aᵀ·Q
func sparseMulT(dst *mat.Dense, rows []SparseVector, q *mat.Dense) {
	_, l := dst.Dims()
	for i, row := range rows {
		for p, j := range row.Indices {
			v := float64(row.Values[p])
			for c := 0; c < l; c++ {
				dst.Set(int(j), c, dst.At(int(j), c)+v*q.At(i, c))
			}
		}
	}
}

// sparseMulDense dst(n×l) = A·Z
func sparseMulDense(dst *mat.Dense, rows []SparseVector, z *mat.Dense) {
	_, l := dst.Dims()
	for i, row := range rows {
		for p, j := range row.Indices {
			v := float64(row.Values[p])
			for c := 0; c < l; c++ {
				dst.Set(i, c, dst.At(i, c)+v*z.At(int(j), c))
			}
		}
	}
}

// orthonormalize 以修正 Gram–Schmidt 原地正交化各行向量
// 避免對高瘦矩陣做完整 QR 分解的記憶體開銷
func orthonormalize(m *mat.Dense) {
	rows, cols := m.Dims()
	for c := 0; c < cols; c++ {
		for prev := 0; prev < c; prev++ {
			var dot float64
			for i := 0; i < rows; i++ {
				dot += m.At(i, c) * m.At(i, prev)
			}
			for i := 0; i < rows; i++ {
				m.Set(i, c, m.At(i, c)-dot*m.At(i, prev))
			}
		}
		var norm float64
		for i := 0; i < rows; i++ {
			norm += m.At(i, c) * m.At(i, c)
		}
		norm = math.Sqrt(norm)
		if norm < 1e-12 {
			// 線性相依的行向量，清為零避免污染後續投影
			for i := 0; i < rows; i++ {
				m.Set(i, c, 0)
			}
			continue
		}
		for i := 0; i < rows; i++ {
			m.Set(i, c, m.At(i, c)/norm)
		}
	}
}
