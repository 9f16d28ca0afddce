package drive

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	folders  map[string]string
	files    map[string]*File
	content  string
	failDown bool
}

func (f *fakeSource) FindFolderByPath(_ context.Context, path string) (string, error) {
	id, ok := f.folders[path]
	if !ok {
		return "", errors.New("folder not found: " + path)
	}
	return id, nil
}

func (f *fakeSource) FindFile(_ context.Context, folderID, name string) (*File, error) {
	file, ok := f.files[folderID+"/"+name]
	if !ok {
		return nil, errors.New("file not found: " + name)
	}
	return file, nil
}

func (f *fakeSource) Download(_ context.Context, _ *File, w io.Writer) error {
	if f.failDown {
		return errors.New("boom")
	}
	_, err := io.WriteString(w, f.content)
	return err
}

func TestPuller_WritesWorkbook(t *testing.T) {
	src := &fakeSource{
		folders: map[string]string{"Stock/Exports": "folder-1"},
		files:   map[string]*File{"folder-1/stock.xlsx": {ID: "file-9", Name: "stock.xlsx"}},
		content: "xlsx-bytes",
	}
	dest := filepath.Join(t.TempDir(), "data", "stock.xlsx")

	f, err := NewPuller(src).Pull(context.Background(), PullOptions{FolderPath: "Stock/Exports", FileName: "stock.xlsx", Dest: dest})

	require.NoError(t, err)
	assert.Equal(t, "file-9", f.ID)
	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "xlsx-bytes", string(got))

	entries, err := os.ReadDir(filepath.Dir(dest))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file removed")
}

func TestPuller_FailedDownloadKeepsExistingFile(t *testing.T) {
	src := &fakeSource{
		folders:  map[string]string{"": "root"},
		files:    map[string]*File{"root/stock.xlsx": {ID: "x", Name: "stock.xlsx"}},
		failDown: true,
	}
	dest := filepath.Join(t.TempDir(), "stock.xlsx")
	require.NoError(t, os.WriteFile(dest, []byte("old"), 0644))

	_, err := NewPuller(src).Pull(context.Background(), PullOptions{FileName: "stock.xlsx", Dest: dest})

	require.Error(t, err)
	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "old", string(got))
}

func TestPuller_MissingFile(t *testing.T) {
	src := &fakeSource{folders: map[string]string{"": "root"}}
	_, err := NewPuller(src).Pull(context.Background(), PullOptions{FileName: "nope.xlsx", Dest: filepath.Join(t.TempDir(), "x.xlsx")})
	assert.Error(t, err)

	_, err = NewPuller(src).Pull(context.Background(), PullOptions{})
	assert.Error(t, err)
}

func TestEscapeQueryAndNative(t *testing.T) {
	assert.Equal(t, `Bob\'s \\ stock`, escapeQuery(`Bob's \ stock`))
	assert.True(t, (&File{MimeType: spreadsheetMimeType}).Native())
	assert.False(t, (&File{MimeType: XLSXMimeType}).Native())
}
