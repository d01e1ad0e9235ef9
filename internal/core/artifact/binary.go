package artifact

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"recipe-suggester/internal/core/feature"
	"recipe-suggester/internal/core/index"
	"recipe-suggester/internal/pkg/common"
)

// 二進位產物的魔術標頭
var (
	reducerMagic = [4]byte{'R', 'S', 'V', 'D'}
	vectorsMagic = [4]byte{'R', 'V', 'E', 'C'}
)

// writeReducer 寫出投影參數：魔術標頭、K、HashDim、K×HashDim 個 float32（小端）
func writeReducer(path string, r *feature.Reducer) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if _, err := w.Write(reducerMagic[:]); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(r.K)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(r.HashDim)); err != nil {
		return err
	}
	for _, row := range r.Components {
		if err := binary.Write(w, binary.LittleEndian, row); err != nil {
			return err
		}
	}
	return w.Flush()
}

// readReducer 載回投影參數
func readReducer(path string) (*feature.Reducer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", common.ErrMissingArtifact, path, err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil || magic != reducerMagic {
		return nil, fmt.Errorf("%w: %s has invalid header", common.ErrMissingArtifact, path)
	}
	var k, hashDim uint32
	if err := binary.Read(r, binary.LittleEndian, &k); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", common.ErrMissingArtifact, path, err)
	}
	if err := binary.Read(r, binary.LittleEndian, &hashDim); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", common.ErrMissingArtifact, path, err)
	}

	components := make([][]float32, k)
	for i := range components {
		row := make([]float32, hashDim)
		if err := binary.Read(r, binary.LittleEndian, row); err != nil {
			return nil, fmt.Errorf("%w: %s truncated: %v", common.ErrMissingArtifact, path, err)
		}
		components[i] = row
	}

	return &feature.Reducer{
		HashDim:    int(hashDim),
		K:          int(k),
		Components: components,
	}, nil
}

// writeVectors 寫出所有投影向量：魔術標頭、列數、維度、列優先 float32（小端）
func writeVectors(path string, ix *index.Index) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if _, err := w.Write(vectorsMagic[:]); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(ix.Rows())); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(ix.Dim())); err != nil {
		return err
	}
	for i := 0; i < ix.Rows(); i++ {
		if err := binary.Write(w, binary.LittleEndian, ix.Row(i)); err != nil {
			return err
		}
	}
	return w.Flush()
}

// readVectors 載回相似度索引
func readVectors(path string) (*index.Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", common.ErrMissingArtifact, path, err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil || magic != vectorsMagic {
		return nil, fmt.Errorf("%w: %s has invalid header", common.ErrMissingArtifact, path)
	}
	var rows, dim uint32
	if err := binary.Read(r, binary.LittleEndian, &rows); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", common.ErrMissingArtifact, path, err)
	}
	if err := binary.Read(r, binary.LittleEndian, &dim); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", common.ErrMissingArtifact, path, err)
	}

	flat := make([]float32, int(rows)*int(dim))
	if err := binary.Read(r, binary.LittleEndian, flat); err != nil {
		return nil, fmt.Errorf("%w: %s truncated: %v", common.ErrMissingArtifact, path, err)
	}

	ix, err := index.FromFlat(flat, int(rows), int(dim))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", common.ErrMissingArtifact, path, err)
	}
	return ix, nil
}
