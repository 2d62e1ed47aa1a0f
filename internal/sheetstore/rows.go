package sheetstore

import (
	"context"
	"slices"
	"strconv"
	"strings"
	"sync"
)

// RowStore is the sheet: an ordered list of positional rows keyed by the
// numeric value of their first cell.
type RowStore interface {
	Rows(ctx context.Context) ([][]string, error)
	Append(ctx context.Context, cells []string) error
	// Replace overwrites the first row with id.
	Replace(ctx context.Context, id int64, cells []string) (bool, error)
	// Remove deletes the last row with id.
	Remove(ctx context.Context, id int64) (bool, error)
}

// MemoryRows is a RowStore held in process memory.
type MemoryRows struct {
	mu   sync.Mutex
	rows [][]string
}

func NewMemoryRows() *MemoryRows {
	return &MemoryRows{}
}

func (m *MemoryRows) Rows(context.Context) ([][]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([][]string, len(m.rows))
	for i, r := range m.rows {
		out[i] = slices.Clone(r)
	}
	return out, nil
}

func (m *MemoryRows) Append(_ context.Context, cells []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, slices.Clone(cells))
	return nil
}

func (m *MemoryRows) Replace(_ context.Context, id int64, cells []string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.rows {
		if rowID(r) == id {
			m.rows[i] = slices.Clone(cells)
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryRows) Remove(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.rows) - 1; i >= 0; i-- {
		if rowID(m.rows[i]) == id {
			m.rows = slices.Delete(m.rows, i, i+1)
			return true, nil
		}
	}
	return false, nil
}

func rowID(cells []string) int64 {
	if len(cells) == 0 {
		return -1
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(cells[0]), 64)
	if err != nil {
		return -1
	}
	return int64(f)
}
