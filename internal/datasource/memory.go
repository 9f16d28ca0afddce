package datasource

import (
	"context"
	"fmt"
	"sync"

	"github.com/andresuchdata/stockcast/internal/domain"
)

// Memory is an in-process RowProvider holding raw cell grids.
type Memory struct {
	mu   sync.RWMutex
	tabs map[string][][]string
}

// NewMemory copies the given grids (header row first) into a new provider.
func NewMemory(tabs map[string][][]string) *Memory {
	m := &Memory{tabs: make(map[string][][]string, len(tabs))}
	for name, grid := range tabs {
		m.tabs[name] = copyGrid(grid)
	}
	return m
}

// SetTab replaces a tab's grid.
func (m *Memory) SetTab(name string, grid [][]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tabs[name] = copyGrid(grid)
}

// Grid returns a copy of a tab's raw cells.
func (m *Memory) Grid(name string) [][]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copyGrid(m.tabs[name])
}

func (m *Memory) ReadTable(_ context.Context, tab string) (*domain.Table, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	grid, ok := m.tabs[tab]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTabNotFound, tab)
	}
	return tableFromGrid(tab, grid), nil
}

func (m *Memory) AppendRow(_ context.Context, tab string, values map[string]string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	grid, ok := m.tabs[tab]
	if !ok || len(grid) == 0 {
		return 0, fmt.Errorf("%w: %s", ErrTabNotFound, tab)
	}
	m.tabs[tab] = append(grid, orderedRow(tab, grid[0], values))
	return len(m.tabs[tab]), nil
}

func (m *Memory) UpdateRow(_ context.Context, tab string, rowIndex int, values map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	grid, ok := m.tabs[tab]
	if !ok || len(grid) == 0 {
		return fmt.Errorf("%w: %s", ErrTabNotFound, tab)
	}
	if err := checkRow(tab, rowIndex, len(grid)); err != nil {
		return err
	}

	header := grid[0]
	row := grid[rowIndex-1]
	for label, v := range values {
		idx := columnIndex(header, label)
		if idx < 0 {
			return fmt.Errorf("%w: %s in %s", ErrColumnNotFound, label, tab)
		}
		for len(row) <= idx {
			row = append(row, "")
		}
		row[idx] = v
	}
	grid[rowIndex-1] = row
	return nil
}

func copyGrid(grid [][]string) [][]string {
	if grid == nil {
		return nil
	}
	out := make([][]string, len(grid))
	for i, r := range grid {
		out[i] = append([]string(nil), r...)
	}
	return out
}
