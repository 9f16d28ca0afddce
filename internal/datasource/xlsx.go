package datasource

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/andresuchdata/stockcast/internal/domain"
	"github.com/xuri/excelize/v2"
)

// XLSX is a RowProvider over a local workbook, one sheet per tab. The file
// is reopened on every call so a freshly pulled workbook is picked up.
type XLSX struct {
	mu   sync.Mutex
	path string
}

func NewXLSX(path string) (*XLSX, error) {
	if path == "" {
		return nil, errors.New("workbook path is required")
	}
	return &XLSX{path: path}, nil
}

func (x *XLSX) open(tab string) (*excelize.File, error) {
	f, err := excelize.OpenFile(x.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx file %s: %w", x.path, err)
	}
	if idx, err := f.GetSheetIndex(tab); err != nil || idx < 0 {
		f.Close()
		return nil, fmt.Errorf("%w: %s", ErrTabNotFound, tab)
	}
	return f, nil
}

func (x *XLSX) ReadTable(_ context.Context, tab string) (*domain.Table, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	f, err := x.open(tab)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := f.GetRows(tab)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows from sheet %s: %w", tab, err)
	}
	return tableFromGrid(tab, rows), nil
}

func (x *XLSX) AppendRow(_ context.Context, tab string, values map[string]string) (int, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	f, err := x.open(tab)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	rows, err := f.GetRows(tab)
	if err != nil {
		return 0, fmt.Errorf("failed to read rows from sheet %s: %w", tab, err)
	}
	if len(rows) == 0 {
		return 0, fmt.Errorf("%w: %s has no header", ErrTabNotFound, tab)
	}

	rowIndex := len(rows) + 1
	cell, err := excelize.CoordinatesToCellName(1, rowIndex)
	if err != nil {
		return 0, err
	}
	record := orderedRow(tab, rows[0], values)
	cells := make([]interface{}, len(record))
	for i, v := range record {
		cells[i] = v
	}
	if err := f.SetSheetRow(tab, cell, &cells); err != nil {
		return 0, fmt.Errorf("failed to write row %d to %s: %w", rowIndex, tab, err)
	}
	if err := f.Save(); err != nil {
		return 0, fmt.Errorf("failed to save %s: %w", x.path, err)
	}
	return rowIndex, nil
}

func (x *XLSX) UpdateRow(_ context.Context, tab string, rowIndex int, values map[string]string) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	f, err := x.open(tab)
	if err != nil {
		return err
	}
	defer f.Close()

	rows, err := f.GetRows(tab)
	if err != nil {
		return fmt.Errorf("failed to read rows from sheet %s: %w", tab, err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("%w: %s has no header", ErrTabNotFound, tab)
	}
	if err := checkRow(tab, rowIndex, len(rows)); err != nil {
		return err
	}

	for label, v := range values {
		idx := columnIndex(rows[0], label)
		if idx < 0 {
			return fmt.Errorf("%w: %s in %s", ErrColumnNotFound, label, tab)
		}
		cell, err := excelize.CoordinatesToCellName(idx+1, rowIndex)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(tab, cell, v); err != nil {
			return fmt.Errorf("failed to set %s!%s: %w", tab, cell, err)
		}
	}
	if err := f.Save(); err != nil {
		return fmt.Errorf("failed to save %s: %w", x.path, err)
	}
	return nil
}

// WriteWorkbook creates a workbook at path with one sheet per tab, each grid
// starting with its header row.
func WriteWorkbook(path string, tabs map[string][][]string, order []string) error {
	f := excelize.NewFile()
	defer f.Close()

	defaultSheet := f.GetSheetName(0)
	for i, name := range order {
		if i == 0 {
			if err := f.SetSheetName(defaultSheet, name); err != nil {
				return err
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return err
		}
		for r, row := range tabs[name] {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				return err
			}
			cells := make([]interface{}, len(row))
			for j, v := range row {
				cells[j] = v
			}
			if err := f.SetSheetRow(name, cell, &cells); err != nil {
				return err
			}
		}
	}
	return f.SaveAs(path)
}
