package outbound

import (
	"context"
)

// ArchivePort keeps a copy of uploaded source images.
type ArchivePort interface {
	// Archive stores data under a name derived from filename and
	// returns where it was written.
	Archive(ctx context.Context, filename string, data []byte) (string, error)
}
