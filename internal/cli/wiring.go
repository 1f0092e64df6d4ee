package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"qrmatch/config"
	"qrmatch/internal/adapter/blob/minio"
	"qrmatch/internal/adapter/blob/s3"
	"qrmatch/internal/adapter/cache"
	"qrmatch/internal/adapter/dynamo"
	"qrmatch/internal/adapter/embedding"
	"qrmatch/internal/adapter/matcher"
	"qrmatch/internal/adapter/memstore"
	"qrmatch/internal/adapter/render"
	"qrmatch/internal/adapter/store"
	"qrmatch/internal/domain"
	"qrmatch/internal/port"
	"qrmatch/internal/usecase"
)

// app holds the adapters and use cases built from a config.
type app struct {
	entries port.EntryStore

	register *usecase.RegisterUseCase
	retrieve *usecase.RetrieveUseCase
	stats    *usecase.StatsUseCase
	importer *usecase.ImportUseCase
}

func (a *app) Close() error {
	return a.entries.Close()
}

func buildApp(ctx context.Context, cfg *config.Config, rootDir string, logger *slog.Logger) (*app, error) {
	embedder, err := embedding.New(cfg.Embedding)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	if cfg.Cache.Enabled {
		embedder = cache.NewCachedEmbedder(embedder, cache.NewQueryCache(cfg.Cache.MaxSize, cfg.Cache.TTL))
	}

	renderer, err := render.NewQRRenderer(cfg.Render.Size, cfg.Render.RecoveryLevel)
	if err != nil {
		return nil, err
	}

	entries, bolt, err := openEntryStore(ctx, cfg, rootDir, embedder.Dimension())
	if err != nil {
		return nil, err
	}

	if ss, ok := entries.(port.SchemaStore); ok {
		info := domain.SchemaInfo{Model: embedder.ModelName(), Dimension: embedder.Dimension()}
		if err := ss.EnsureSchema(ctx, info); err != nil {
			entries.Close()
			return nil, fmt.Errorf("store does not match embedding config: %w", err)
		}
	}

	blobs, err := openBlobStore(ctx, cfg, bolt, renderer.ContentType())
	if err != nil {
		entries.Close()
		return nil, err
	}

	register := usecase.NewRegisterUseCase(embedder, entries, blobs, renderer, logger)
	return &app{
		entries:  entries,
		register: register,
		retrieve: usecase.NewRetrieveUseCase(embedder, entries, blobs, matcher.NewLinearScan(),
			cfg.Match.Threshold, renderer.ContentType(), logger),
		stats:    usecase.NewStatsUseCase(entries, embedder),
		importer: usecase.NewImportUseCase(register, logger),
	}, nil
}

// openEntryStore returns the configured row store. The bolt handle is also
// returned so the artifact store can share the file.
func openEntryStore(ctx context.Context, cfg *config.Config, rootDir string, dimension int) (port.EntryStore, *store.BoltStore, error) {
	switch cfg.Store.Backend {
	case "bolt":
		if err := cfg.EnsureStoreDir(rootDir); err != nil {
			return nil, nil, fmt.Errorf("failed to create store directory: %w", err)
		}
		st, err := store.NewBoltStore(cfg.StorePath(rootDir))
		if err != nil {
			return nil, nil, err
		}
		return st, st, nil
	case "memory":
		return memstore.NewMemoryStore(), nil, nil
	case "dynamodb":
		client, err := dynamo.NewClient(ctx, cfg.Store.Dynamo.Region, cfg.Store.Dynamo.Endpoint)
		if err != nil {
			return nil, nil, err
		}
		return dynamo.NewEntryStore(client, cfg.Store.Dynamo.Table, dimension), nil, nil
	default:
		return nil, nil, fmt.Errorf("unsupported store backend: %s", cfg.Store.Backend)
	}
}

func openBlobStore(ctx context.Context, cfg *config.Config, bolt *store.BoltStore, contentType string) (port.BlobStore, error) {
	switch cfg.Blob.Backend {
	case "bolt":
		if bolt == nil {
			return nil, errors.New("blob backend bolt requires store backend bolt")
		}
		return store.NewBoltBlobStore(bolt), nil
	case "memory":
		return memstore.NewBlobStore(), nil
	case "minio":
		mc := cfg.Blob.MinIO
		client, err := minio.NewClient(mc.Endpoint, os.Getenv(mc.AccessKeyEnv), os.Getenv(mc.SecretKeyEnv), mc.Secure)
		if err != nil {
			return nil, err
		}
		return minio.NewStore(client, mc.Bucket, cfg.Blob.Prefix, contentType), nil
	case "s3":
		sc := cfg.Blob.S3
		client, err := s3.NewClient(ctx, sc.Region, sc.Endpoint, sc.UsePathStyle)
		if err != nil {
			return nil, err
		}
		return s3.NewStore(client, sc.Bucket, cfg.Blob.Prefix, contentType), nil
	default:
		return nil, fmt.Errorf("unsupported blob backend: %s", cfg.Blob.Backend)
	}
}
