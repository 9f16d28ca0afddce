// Package datasource reads and writes the tabular workbook the dashboard is
// fed from. Rows are addressed by their 1-based sheet row number; the header
// occupies row 1.
package datasource

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/andresuchdata/stockcast/internal/domain"
	"github.com/rs/zerolog/log"
)

var (
	ErrTabNotFound    = errors.New("datasource: tab not found")
	ErrRowOutOfRange  = errors.New("datasource: row out of range")
	ErrColumnNotFound = errors.New("datasource: column not found")
)

// HeaderRow is the sheet row holding column labels.
const HeaderRow = 1

// RowProvider is the tabular row store. Values are keyed by header label.
type RowProvider interface {
	ReadTable(ctx context.Context, tab string) (*domain.Table, error)
	// AppendRow writes values after the last row and returns its row index.
	// Labels missing from the header are skipped.
	AppendRow(ctx context.Context, tab string, values map[string]string) (int, error)
	// UpdateRow overwrites only the given labels of an existing row.
	UpdateRow(ctx context.Context, tab string, rowIndex int, values map[string]string) error
}

const (
	KindSheets = "sheets"
	KindXLSX   = "xlsx"
	KindMemory = "memory"
)

// Options selects and configures a provider.
type Options struct {
	Kind            string
	SpreadsheetID   string
	CredentialsJSON string
	WorkbookPath    string
}

// New builds the provider named by opts.Kind.
func New(ctx context.Context, opts Options) (RowProvider, error) {
	switch strings.ToLower(opts.Kind) {
	case KindSheets, "":
		return NewSheets(ctx, opts.CredentialsJSON, opts.SpreadsheetID)
	case KindXLSX:
		return NewXLSX(opts.WorkbookPath)
	case KindMemory:
		return NewMemory(nil), nil
	default:
		return nil, fmt.Errorf("unknown data source kind %q", opts.Kind)
	}
}

// tableFromGrid turns a raw cell grid (header first) into a Table. Blank
// rows are skipped but later rows keep their real sheet index.
func tableFromGrid(name string, grid [][]string) *domain.Table {
	table := &domain.Table{Name: name, Header: []string{}, Rows: []domain.Row{}}
	if len(grid) == 0 {
		return table
	}
	table.Header = append(table.Header, grid[0]...)

	for i, cells := range grid[1:] {
		if blank(cells) {
			continue
		}
		values := make(map[string]string, len(table.Header))
		for col, label := range table.Header {
			if label == "" {
				continue
			}
			if _, dup := values[label]; dup {
				continue
			}
			if col < len(cells) {
				values[label] = cells[col]
			} else {
				values[label] = ""
			}
		}
		table.Rows = append(table.Rows, domain.Row{Index: i + HeaderRow + 1, Values: values})
	}
	return table
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// columnIndex returns the 0-based position of label in header.
func columnIndex(header []string, label string) int {
	want := strings.TrimSpace(label)
	for i, h := range header {
		if strings.TrimSpace(h) == want {
			return i
		}
	}
	return -1
}

// orderedRow lays values out in header order.
func orderedRow(tab string, header []string, values map[string]string) []string {
	row := make([]string, len(header))
	for label, v := range values {
		idx := columnIndex(header, label)
		if idx < 0 {
			log.Warn().Str("tab", tab).Str("column", label).Msg("datasource: append skipped unknown column")
			continue
		}
		row[idx] = v
	}
	return row
}

func checkRow(tab string, rowIndex, lastRow int) error {
	if rowIndex <= HeaderRow || rowIndex > lastRow {
		return fmt.Errorf("%w: %s row %d", ErrRowOutOfRange, tab, rowIndex)
	}
	return nil
}
