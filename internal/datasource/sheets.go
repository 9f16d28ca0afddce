package datasource

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/andresuchdata/stockcast/internal/domain"
	"github.com/xuri/excelize/v2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const valueInputOption = "USER_ENTERED"

// Sheets is a RowProvider backed by a Google spreadsheet.
type Sheets struct {
	srv           *sheets.Service
	spreadsheetID string
}

// NewSheets authenticates with a service-account JSON key.
func NewSheets(ctx context.Context, credentialsJSON, spreadsheetID string) (*Sheets, error) {
	if spreadsheetID == "" {
		return nil, errors.New("spreadsheet id is required")
	}
	config, err := google.JWTConfigFromJSON([]byte(credentialsJSON), sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse service account credentials: %w", err)
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(config.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets client: %w", err)
	}
	return &Sheets{srv: srv, spreadsheetID: spreadsheetID}, nil
}

// quoteTab builds an A1 range prefix; single quotes in the name are doubled.
func quoteTab(tab string) string {
	return "'" + strings.ReplaceAll(tab, "'", "''") + "'"
}

func (s *Sheets) grid(ctx context.Context, rng, tab string) ([][]string, error) {
	resp, err := s.srv.Spreadsheets.Values.Get(s.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == http.StatusBadRequest {
			return nil, fmt.Errorf("%w: %s", ErrTabNotFound, tab)
		}
		return nil, fmt.Errorf("failed to read range %s: %w", rng, err)
	}

	out := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = fmt.Sprint(v)
		}
		out[i] = cells
	}
	return out, nil
}

func (s *Sheets) header(ctx context.Context, tab string) ([]string, error) {
	g, err := s.grid(ctx, fmt.Sprintf("%s!%d:%d", quoteTab(tab), HeaderRow, HeaderRow), tab)
	if err != nil {
		return nil, err
	}
	if len(g) == 0 {
		return nil, fmt.Errorf("%w: %s has no header", ErrTabNotFound, tab)
	}
	return g[0], nil
}

func (s *Sheets) ReadTable(ctx context.Context, tab string) (*domain.Table, error) {
	g, err := s.grid(ctx, quoteTab(tab), tab)
	if err != nil {
		return nil, err
	}
	return tableFromGrid(tab, g), nil
}

func (s *Sheets) AppendRow(ctx context.Context, tab string, values map[string]string) (int, error) {
	header, err := s.header(ctx, tab)
	if err != nil {
		return 0, err
	}
	row := orderedRow(tab, header, values)
	cells := make([]interface{}, len(row))
	for i, v := range row {
		cells[i] = v
	}

	resp, err := s.srv.Spreadsheets.Values.
		Append(s.spreadsheetID, quoteTab(tab), &sheets.ValueRange{Values: [][]interface{}{cells}}).
		ValueInputOption(valueInputOption).
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return 0, fmt.Errorf("failed to append row to %s: %w", tab, err)
	}
	if resp.Updates == nil {
		return 0, nil
	}
	return firstRowOfRange(resp.Updates.UpdatedRange)
}

func (s *Sheets) UpdateRow(ctx context.Context, tab string, rowIndex int, values map[string]string) error {
	if rowIndex <= HeaderRow {
		return fmt.Errorf("%w: %s row %d", ErrRowOutOfRange, tab, rowIndex)
	}
	header, err := s.header(ctx, tab)
	if err != nil {
		return err
	}

	data := make([]*sheets.ValueRange, 0, len(values))
	for label, v := range values {
		idx := columnIndex(header, label)
		if idx < 0 {
			return fmt.Errorf("%w: %s in %s", ErrColumnNotFound, label, tab)
		}
		cell, err := excelize.CoordinatesToCellName(idx+1, rowIndex)
		if err != nil {
			return fmt.Errorf("invalid cell for %s row %d: %w", label, rowIndex, err)
		}
		data = append(data, &sheets.ValueRange{
			Range:  quoteTab(tab) + "!" + cell,
			Values: [][]interface{}{{v}},
		})
	}
	if len(data) == 0 {
		return nil
	}

	_, err = s.srv.Spreadsheets.Values.
		BatchUpdate(s.spreadsheetID, &sheets.BatchUpdateValuesRequest{
			ValueInputOption: valueInputOption,
			Data:             data,
		}).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to update %s row %d: %w", tab, rowIndex, err)
	}
	return nil
}

// firstRowOfRange extracts the starting row of an A1 range such as
// "'Orders'!A12:H12".
func firstRowOfRange(rng string) (int, error) {
	if i := strings.LastIndex(rng, "!"); i >= 0 {
		rng = rng[i+1:]
	}
	if i := strings.Index(rng, ":"); i >= 0 {
		rng = rng[:i]
	}
	_, row, err := excelize.CellNameToCoordinates(rng)
	if err != nil {
		return 0, fmt.Errorf("unexpected updated range %q: %w", rng, err)
	}
	return row, nil
}
