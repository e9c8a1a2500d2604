package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/uniedit/ghiblify/internal/port/outbound"
)

// InitDocuments writes an empty {} for each ledger document that does not
// exist yet and returns the names it created. Existing documents are untouched.
func InitDocuments(ctx context.Context, docs outbound.DocumentPort) ([]string, error) {
	var created []string
	for _, name := range []string{UsersDocument, HistoryDocument} {
		_, err := docs.Load(ctx, name)
		if err == nil {
			continue
		}
		if !errors.Is(err, outbound.ErrDocumentNotFound) {
			return created, fmt.Errorf("load %s document: %w", name, err)
		}
		if err := docs.Save(ctx, name, []byte("{}")); err != nil {
			return created, fmt.Errorf("create %s document: %w", name, err)
		}
		created = append(created, name)
	}
	return created, nil
}
