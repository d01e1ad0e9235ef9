package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// RawRecord 語料庫中一列的原始欄位
type RawRecord struct {
	Title       string
	Ingredients string
	Directions  string
	Link        string
}

// Reader 串流式讀取 CSV 語料庫，按固定大小的批次回傳
// 批次順序即記錄順序，確保重建時 ID 穩定
type Reader struct {
	csv       *csv.Reader
	chunkSize int
	cols      map[string]int
}

// NewReader 建立語料庫讀取器，第一列必須是含 ingredients 欄的表頭
func NewReader(r io.Reader, chunkSize int) (*Reader, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive")
	}
	cr := csv.NewReader(r)
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := cols["ingredients"]; !ok {
		return nil, fmt.Errorf("corpus has no ingredients column")
	}

	return &Reader{csv: cr, chunkSize: chunkSize, cols: cols}, nil
}

// NextChunk 讀取下一批記錄，語料庫結束時回傳 io.EOF
// 欄位數不符的列會被跳過，不會中斷整個批次
func (r *Reader) NextChunk() ([]RawRecord, error) {
	chunk := make([]RawRecord, 0, r.chunkSize)
	for len(chunk) < r.chunkSize {
		row, err := r.csv.Read()
		if err == io.EOF {
			if len(chunk) == 0 {
				return nil, io.EOF
			}
			return chunk, nil
		}
		if err != nil {
			if errors.Is(err, csv.ErrFieldCount) {
				continue
			}
			return nil, fmt.Errorf("failed to read corpus row: %w", err)
		}
		chunk = append(chunk, RawRecord{
			Title:       r.field(row, "title"),
			Ingredients: r.field(row, "ingredients"),
			Directions:  r.field(row, "directions"),
			Link:        r.field(row, "link"),
		})
	}
	return chunk, nil
}

func (r *Reader) field(row []string, name string) string {
	i, ok := r.cols[name]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}
