package drive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

// FileSource is the part of Service the puller needs.
type FileSource interface {
	FindFolderByPath(ctx context.Context, path string) (string, error)
	FindFile(ctx context.Context, folderID, name string) (*File, error)
	Download(ctx context.Context, f *File, w io.Writer) error
}

// PullOptions names the workbook on Drive and where to store it locally.
type PullOptions struct {
	FolderPath string
	FileName   string
	Dest       string
}

// Puller downloads the stock workbook for the XLSX data source.
type Puller struct {
	files FileSource
}

func NewPuller(files FileSource) *Puller {
	return &Puller{files: files}
}

// Pull downloads the workbook to opts.Dest. The file is written next to the
// destination first and renamed into place, so readers never see a partial
// workbook.
func (p *Puller) Pull(ctx context.Context, opts PullOptions) (*File, error) {
	if opts.FileName == "" || opts.Dest == "" {
		return nil, fmt.Errorf("file name and destination are required")
	}

	folderID, err := p.files.FindFolderByPath(ctx, opts.FolderPath)
	if err != nil {
		return nil, err
	}
	f, err := p.files.FindFile(ctx, folderID, opts.FileName)
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(opts.Dest)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create download dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".pull-*.xlsx")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := p.files.Download(ctx, f, tmp); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("failed to download %s: %w", f.Name, err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), opts.Dest); err != nil {
		return nil, fmt.Errorf("failed to move workbook into place: %w", err)
	}

	log.Info().
		Str("file", f.Name).
		Str("id", f.ID).
		Str("modified", f.ModifiedTime).
		Str("dest", opts.Dest).
		Msg("drive: workbook pulled")
	return f, nil
}
