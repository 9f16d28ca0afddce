package drive

import (
	"context"
	"fmt"
	"io"
	"strings"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

const (
	folderMimeType      = "application/vnd.google-apps.folder"
	spreadsheetMimeType = "application/vnd.google-apps.spreadsheet"
	// XLSXMimeType is the export format for native spreadsheets.
	XLSXMimeType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type Service struct {
	srv *drive.Service
}

func NewService(ctx context.Context, credentialsJSON string) (*Service, error) {
	config, err := google.JWTConfigFromJSON([]byte(credentialsJSON), drive.DriveReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse service account credentials: %w", err)
	}

	srv, err := drive.NewService(ctx, option.WithHTTPClient(config.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve Drive client: %w", err)
	}

	return &Service{srv: srv}, nil
}

type File struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	MimeType     string `json:"mimeType"`
	ModifiedTime string `json:"modifiedTime,omitempty"`
	Size         int64  `json:"size,string,omitempty"`
}

// Native reports whether the file is a Google spreadsheet that must be
// exported rather than downloaded.
func (f *File) Native() bool {
	return f.MimeType == spreadsheetMimeType
}

// escapeQuery escapes a value for use inside a single-quoted Drive query.
func escapeQuery(v string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(v)
}

func (s *Service) ListFiles(ctx context.Context, folderID string) ([]*File, error) {
	if folderID == "" {
		folderID = "root"
	}

	result, err := s.srv.Files.List().
		Q(fmt.Sprintf("'%s' in parents and trashed=false", escapeQuery(folderID))).
		Fields("files(id, name, mimeType, modifiedTime, size)").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve files: %w", err)
	}

	files := make([]*File, 0, len(result.Files))
	for _, f := range result.Files {
		files = append(files, &File{
			ID:           f.Id,
			Name:         f.Name,
			MimeType:     f.MimeType,
			ModifiedTime: f.ModifiedTime,
			Size:         f.Size,
		})
	}
	return files, nil
}

// FindFile returns the first non-trashed file named name inside folderID.
func (s *Service) FindFile(ctx context.Context, folderID, name string) (*File, error) {
	files, err := s.ListFiles(ctx, folderID)
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		if f.Name == name {
			return f, nil
		}
	}
	return nil, fmt.Errorf("file not found: %s", name)
}

// Download copies a file's content to w. Native spreadsheets are exported
// as XLSX.
func (s *Service) Download(ctx context.Context, f *File, w io.Writer) error {
	var body io.ReadCloser
	if f.Native() {
		resp, err := s.srv.Files.Export(f.ID, XLSXMimeType).Context(ctx).Download()
		if err != nil {
			return fmt.Errorf("unable to export file: %w", err)
		}
		body = resp.Body
	} else {
		resp, err := s.srv.Files.Get(f.ID).Context(ctx).Download()
		if err != nil {
			return fmt.Errorf("unable to download file: %w", err)
		}
		body = resp.Body
	}
	defer body.Close()

	_, err := io.Copy(w, body)
	return err
}

func (s *Service) FindFolderByPath(ctx context.Context, path string) (string, error) {
	if path == "" {
		return "root", nil
	}

	currentID := "root"
	for _, folder := range strings.Split(path, "/") {
		if folder == "" {
			continue
		}

		result, err := s.srv.Files.List().
			Q(fmt.Sprintf("'%s' in parents and name='%s' and mimeType='%s' and trashed=false",
				escapeQuery(currentID), escapeQuery(folder), folderMimeType)).
			Fields("files(id, name)").
			Context(ctx).
			Do()
		if err != nil {
			return "", fmt.Errorf("error finding folder %s: %w", folder, err)
		}

		if len(result.Files) == 0 {
			return "", fmt.Errorf("folder not found: %s", folder)
		}

		currentID = result.Files[0].Id
	}

	return currentID, nil
}
