package indexer

import (
	"context"
	"log/slog"
	"time"

	"github.com/bull/imgindex-server/internal/blob"
	"github.com/bull/imgindex-server/internal/storage"
	"github.com/bull/imgindex-server/internal/workflow"
)

// Upserter writes documents to the search index.
type Upserter interface {
	Upsert(ctx context.Context, doc *storage.IndexedDocument) error
}

// Indexer is the indexing step of the pipeline. It writes one image to the
// search index and classifies failures for the step host.
type Indexer struct {
	index  Upserter
	logger *slog.Logger
	now    func() time.Time
}

// NewIndexer creates the indexing step over index.
func NewIndexer(index Upserter, logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{
		index:  index,
		logger: logger,
		now:    time.Now,
	}
}

// IndexImage upserts obj with text as its searchable content and md merged
// into its metadata, stamping IndexedAt with the write time.
// Failures are returned as *workflow.StepError (see Classify); the
// pathname and point ID are left out of the classified text.
func (x *Indexer) IndexImage(
	ctx context.Context,
	meta workflow.StepMetadata,
	obj *blob.StoredObject,
	text string,
	md storage.ImageMetadata,
) error {
	x.logger.Info("Indexing image",
		"step", meta.StepID,
		"attempt", meta.Attempt,
		"url", obj.DownloadURL,
	)

	indexedAt := x.now().UTC()
	md.IndexedAt = &indexedAt

	doc := &storage.IndexedDocument{
		ID:       obj.Pathname,
		Text:     text,
		Object:   *obj,
		Metadata: md,
	}

	if err := x.index.Upsert(ctx, doc); err != nil {
		x.logger.Warn("Index upsert failed",
			"step", meta.StepID,
			"attempt", meta.Attempt,
			"pathname", obj.Pathname,
			"error", err,
		)
		return classifyExcluding(err, meta, obj.Pathname, storage.PointID(obj.Pathname))
	}

	x.logger.Info("Indexed image",
		"step", meta.StepID,
		"pathname", obj.Pathname,
		"step_started_at", meta.StartedAt.UTC().Format(time.RFC3339),
	)
	return nil
}
