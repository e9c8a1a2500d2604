package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uniedit/ghiblify/internal/port/outbound"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupMock(t *testing.T) (*DocumentStore, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return NewDocumentStore(db), mock
}

func TestDocumentStore_Load(t *testing.T) {
	store, mock := setupMock(t)

	rows := sqlmock.NewRows([]string{"name", "data", "updated_at"}).
		AddRow("users", `{"user123":{"count":5}}`, time.Now())
	mock.ExpectQuery(`SELECT \* FROM "ledger_documents" WHERE name = \$1`).
		WillReturnRows(rows)

	data, err := store.Load(context.Background(), "users")
	require.NoError(t, err)
	assert.Equal(t, `{"user123":{"count":5}}`, string(data))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentStore_Load_NotFound(t *testing.T) {
	store, mock := setupMock(t)

	mock.ExpectQuery(`SELECT \* FROM "ledger_documents"`).
		WillReturnRows(sqlmock.NewRows([]string{"name", "data", "updated_at"}))

	_, err := store.Load(context.Background(), "history")
	assert.ErrorIs(t, err, outbound.ErrDocumentNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentStore_Load_Error(t *testing.T) {
	store, mock := setupMock(t)
	boom := errors.New("connection reset")

	mock.ExpectQuery(`SELECT \* FROM "ledger_documents"`).WillReturnError(boom)

	_, err := store.Load(context.Background(), "users")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, outbound.ErrDocumentNotFound)
}

func TestDocumentStore_Save(t *testing.T) {
	store, mock := setupMock(t)

	mock.ExpectExec(`INSERT INTO "ledger_documents" \("name","data","updated_at"\) VALUES \(\$1,\$2,\$3\) ON CONFLICT \("name"\) DO UPDATE SET "data"="excluded"."data","updated_at"="excluded"."updated_at"`).
		WithArgs("users", `{}`, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Save(context.Background(), "users", []byte(`{}`)))
	assert.NoError(t, mock.ExpectationsWereMet())
}
