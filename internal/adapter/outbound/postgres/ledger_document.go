package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/uniedit/ghiblify/internal/port/outbound"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LedgerDocument is one whole ledger document stored as JSON text.
type LedgerDocument struct {
	Name      string    `gorm:"primaryKey;size:64"`
	Data      string    `gorm:"type:jsonb;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

// TableName returns the database table name.
func (LedgerDocument) TableName() string {
	return "ledger_documents"
}

// DocumentStore implements outbound.DocumentPort on a single table.
type DocumentStore struct {
	db *gorm.DB
}

// NewDocumentStore creates a Postgres-backed document store.
func NewDocumentStore(db *gorm.DB) *DocumentStore {
	return &DocumentStore{db: db}
}

// AutoMigrate creates the ledger_documents table.
func (s *DocumentStore) AutoMigrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&LedgerDocument{})
}

// Load returns the stored JSON for name, or outbound.ErrDocumentNotFound.
func (s *DocumentStore) Load(ctx context.Context, name string) ([]byte, error) {
	var doc LedgerDocument
	err := s.db.WithContext(ctx).First(&doc, "name = ?", name).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", outbound.ErrDocumentNotFound, name)
		}
		return nil, err
	}
	return []byte(doc.Data), nil
}

// Save upserts the document row for name.
func (s *DocumentStore) Save(ctx context.Context, name string, data []byte) error {
	doc := LedgerDocument{Name: name, Data: string(data)}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
		}).
		Create(&doc).Error
}

// Compile-time check
var _ outbound.DocumentPort = (*DocumentStore)(nil)
