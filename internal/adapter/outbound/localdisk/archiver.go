package localdisk

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/uniedit/ghiblify/internal/port/outbound"
)

// Archiver keeps uploaded images in a local directory.
type Archiver struct {
	dir string
}

// NewArchiver creates an archiver writing into dir.
func NewArchiver(dir string) *Archiver {
	if dir == "" {
		dir = "uploads"
	}
	return &Archiver{dir: dir}
}

// Archive writes data to <dir>/<uuid><ext> and returns the file path.
func (a *Archiver) Archive(ctx context.Context, filename string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	path := filepath.Join(a.dir, uuid.NewString()+strings.ToLower(filepath.Ext(filename)))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}
	return path, nil
}

// Compile-time check
var _ outbound.ArchivePort = (*Archiver)(nil)
