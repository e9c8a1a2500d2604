package jsonfile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/uniedit/ghiblify/internal/port/outbound"
)

const (
	fileExt  = ".json"
	fileMode = 0o644
)

// DocumentStore implements outbound.DocumentPort with one file per document
// in a directory: <dir>/users.json, <dir>/history.json.
type DocumentStore struct {
	dir string
}

// NewDocumentStore creates a file-backed document store rooted at dir.
func NewDocumentStore(dir string) *DocumentStore {
	if dir == "" {
		dir = "."
	}
	return &DocumentStore{dir: dir}
}

// Path returns the file backing the named document.
func (s *DocumentStore) Path(name string) string {
	return filepath.Join(s.dir, name+fileExt)
}

// Load reads <dir>/<name>.json. A missing file yields outbound.ErrDocumentNotFound.
func (s *DocumentStore) Load(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkName(name); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.Path(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", outbound.ErrDocumentNotFound, s.Path(name))
		}
		return nil, err
	}
	return data, nil
}

// Save overwrites <dir>/<name>.json with data.
func (s *DocumentStore) Save(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkName(name); err != nil {
		return err
	}
	return os.WriteFile(s.Path(name), data, fileMode)
}

func checkName(name string) error {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return fmt.Errorf("invalid document name %q", name)
	}
	return nil
}

// Compile-time check
var _ outbound.DocumentPort = (*DocumentStore)(nil)
