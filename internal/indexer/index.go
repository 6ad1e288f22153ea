package indexer

import (
	"context"
	"fmt"
	"strings"

	"github.com/bull/imgindex-server/internal/storage"
)

// DefaultSearchLimit is the number of results returned when a request sets no limit.
const DefaultSearchLimit = 20

// VectorStore persists and queries image vectors.
type VectorStore interface {
	UpsertImage(ctx context.Context, doc *storage.IndexedDocument) error
	SearchImages(ctx context.Context, embedding []float32, limit int, filter *storage.Filter) ([]storage.SearchResult, error)
}

// TextEmbedder turns text into a vector.
type TextEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// SearchRequest is a free-text query against the image index.
type SearchRequest struct {
	Query  string
	Filter *storage.Filter // Optional
	Limit  int             // 0 uses DefaultSearchLimit
}

// Index is a text search index over images: documents go in as text and
// metadata, queries come in as text. Embeddings are computed on the way in.
type Index struct {
	store    VectorStore
	embedder TextEmbedder
}

// NewIndex creates an Index over store, embedding text with embedder.
func NewIndex(store VectorStore, embedder TextEmbedder) *Index {
	return &Index{
		store:    store,
		embedder: embedder,
	}
}

// Upsert embeds doc.Text (unless already embedded) and writes the document.
// Upserts are idempotent on doc.ID.
func (i *Index) Upsert(ctx context.Context, doc *storage.IndexedDocument) error {
	if doc.ID == "" {
		return storage.ErrMissingID
	}

	if len(doc.Embedding) == 0 {
		vector, err := i.embedder.Embed(ctx, doc.Text)
		if err != nil {
			return fmt.Errorf("embed document: %w", err)
		}
		doc.Embedding = vector
	}

	return i.store.UpsertImage(ctx, doc)
}

// Search returns images matching the query text, ordered by descending score.
func (i *Index) Search(ctx context.Context, req SearchRequest) ([]storage.SearchResult, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, fmt.Errorf("empty search query")
	}

	limit := req.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	vector, err := i.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	results, err := i.store.SearchImages(ctx, vector, limit, req.Filter)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return results, nil
}
