package app

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/uniedit/ghiblify/internal/adapter/outbound/jsonfile"
	"github.com/uniedit/ghiblify/internal/adapter/outbound/localdisk"
	"github.com/uniedit/ghiblify/internal/adapter/outbound/postgres"
	redisadapter "github.com/uniedit/ghiblify/internal/adapter/outbound/redis"
	s3adapter "github.com/uniedit/ghiblify/internal/adapter/outbound/s3"
	"github.com/uniedit/ghiblify/internal/module/ledger"
	"github.com/uniedit/ghiblify/internal/port/outbound"
	sharedcache "github.com/uniedit/ghiblify/internal/shared/cache"
	"github.com/uniedit/ghiblify/internal/shared/config"
	"github.com/uniedit/ghiblify/internal/shared/database"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Documents is an opened ledger document backend and the connections behind it.
type Documents struct {
	Port    outbound.DocumentPort
	Backend string

	db    *gorm.DB
	redis *redis.Client
}

// Close releases backend connections.
func (d *Documents) Close() {
	if d.redis != nil {
		_ = d.redis.Close()
	}
	if d.db != nil {
		_ = database.Close(d.db)
	}
}

// OpenDocuments connects the document backend selected by cfg.Ledger.Backend.
func OpenDocuments(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Documents, error) {
	docs := &Documents{Backend: cfg.Ledger.Backend}

	switch cfg.Ledger.Backend {
	case config.BackendFile:
		docs.Port = jsonfile.NewDocumentStore(cfg.Ledger.Dir)

	case config.BackendRedis:
		client, err := sharedcache.NewRedisClient(ctx, &cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("init redis: %w", err)
		}
		docs.redis = client
		docs.Port = redisadapter.NewDocumentStore(client)

	case config.BackendPostgres:
		db, err := database.New(ctx, &cfg.Database, log)
		if err != nil {
			return nil, fmt.Errorf("init database: %w", err)
		}
		store := postgres.NewDocumentStore(db)
		if err := store.AutoMigrate(ctx); err != nil {
			_ = database.Close(db)
			return nil, fmt.Errorf("migrate ledger documents: %w", err)
		}
		docs.db = db
		docs.Port = store

	case config.BackendMemory:
		docs.Port = ledger.NewSeededMemoryBackend()

	default:
		return nil, fmt.Errorf("unknown ledger backend %q", cfg.Ledger.Backend)
	}

	log.Info("ledger backend ready", zap.String("backend", cfg.Ledger.Backend))
	return docs, nil
}

// newArchiver builds the upload archive selected by cfg.Upload.Archive.
// A nil port disables archiving.
func newArchiver(ctx context.Context, cfg *config.Config) (outbound.ArchivePort, error) {
	switch cfg.Upload.Archive {
	case config.ArchiveNone, "":
		return nil, nil
	case config.ArchiveLocal:
		return localdisk.NewArchiver(cfg.Upload.Dir), nil
	case config.ArchiveS3:
		client, err := s3adapter.NewClient(ctx, &cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("init s3: %w", err)
		}
		return s3adapter.NewArchiver(client, cfg.Storage.Bucket, cfg.Storage.Prefix), nil
	default:
		return nil, fmt.Errorf("unknown upload archive %q", cfg.Upload.Archive)
	}
}
