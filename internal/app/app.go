// Package app wires the storage, AI and pipeline components from config.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bull/imgindex-server/internal/blob"
	"github.com/bull/imgindex-server/internal/config"
	"github.com/bull/imgindex-server/internal/describe"
	"github.com/bull/imgindex-server/internal/embedding"
	"github.com/bull/imgindex-server/internal/indexer"
	"github.com/bull/imgindex-server/internal/search"
	"github.com/bull/imgindex-server/internal/storage"
	"github.com/bull/imgindex-server/internal/workflow"
)

// App holds the wired components shared by the server and the CLI.
type App struct {
	Store    *storage.QdrantStorage
	Blobs    *blob.MinioStore
	Index    *indexer.Index
	Pipeline *indexer.Pipeline
	Search   *search.Action
}

// New connects to Qdrant and object storage, ensures the collection exists,
// and builds the ingestion pipeline and search action on top of them.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if err := cfg.RequireOpenAI(); err != nil {
		return nil, err
	}

	store, err := storage.NewQdrantStorage(cfg.QdrantHost, cfg.QdrantPort)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Qdrant: %w", err)
	}

	if err := store.EnsureCollection(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to ensure collection: %w", err)
	}

	embeddingClient, err := embedding.NewClient(cfg.OpenAIKey)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to create embedding client: %w", err)
	}
	embedder := embedding.NewEmbedder(embeddingClient, 0)
	index := indexer.NewIndex(store, embedder)

	a := &App{
		Store:  store,
		Index:  index,
		Search: search.NewAction(index, logger),
	}

	return a.withPipeline(ctx, cfg, embeddingClient, logger)
}

func (a *App) withPipeline(ctx context.Context, cfg *config.Config, client *embedding.Client, logger *slog.Logger) (*App, error) {
	blobs, err := blob.NewMinioStore(ctx, cfg.Blob, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to connect to object storage: %w", err)
	}
	a.Blobs = blobs

	describer := describe.NewGenerator(client.Client(), cfg.DescribeModel, logger)
	a.Pipeline = indexer.NewPipeline(blobs, describer, indexer.NewIndexer(a.Index, logger), newRunner(cfg, logger), logger)
	a.Pipeline.SetPrivateTTL(cfg.PrivateTTL)

	return a, nil
}

// newRunner builds the step host. Upload requests wait on the pipeline, so the
// classifier's minute-long retry hints are capped at cfg.StepMaxDelay.
func newRunner(cfg *config.Config, logger *slog.Logger) *workflow.Runner {
	return workflow.NewRunner(
		workflow.WithMaxDelay(cfg.StepMaxDelay),
		workflow.WithLogger(logger),
	)
}

// Close releases the Qdrant connection.
func (a *App) Close() error {
	return a.Store.Close()
}
