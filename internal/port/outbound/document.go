package outbound

import (
	"context"
	"errors"
)

// ErrDocumentNotFound is returned by a DocumentPort when the named document
// has never been created. Callers treat it as fatal.
var ErrDocumentNotFound = errors.New("document not found")

// DocumentPort persists whole JSON documents by name.
type DocumentPort interface {
	// Load returns the raw document bytes.
	Load(ctx context.Context, name string) ([]byte, error)

	// Save overwrites the document.
	Save(ctx context.Context, name string, data []byte) error
}
