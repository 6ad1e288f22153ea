package storage

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/qdrant/go-client/qdrant"
)

// QdrantStorage wraps the Qdrant client with connection management and health checks.
type QdrantStorage struct {
	client *qdrant.Client
	host   string
	port   int
}

// NewQdrantStorage creates a new Qdrant client with health validation.
// It performs health check with retry on startup and fails fast if Qdrant is unreachable.
func NewQdrantStorage(host string, port int) (*QdrantStorage, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	storage := &QdrantStorage{
		client: client,
		host:   host,
		port:   port,
	}

	ctx := context.Background()
	err = storage.healthCheckWithRetry(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrQdrantUnreachable, err)
	}

	return storage, nil
}

// healthCheckWithRetry performs health check with exponential backoff.
// Initial interval 500ms, max interval 10s, max elapsed 30s.
func (s *QdrantStorage) healthCheckWithRetry(ctx context.Context) error {
	exponentialBackoff := backoff.NewExponentialBackOff()
	exponentialBackoff.InitialInterval = 500 * time.Millisecond
	exponentialBackoff.MaxInterval = 10 * time.Second
	exponentialBackoff.MaxElapsedTime = 30 * time.Second

	return backoff.Retry(func() error {
		return s.Health(ctx)
	}, backoff.WithContext(exponentialBackoff, ctx))
}

// Health performs a single health check against Qdrant.
func (s *QdrantStorage) Health(ctx context.Context) error {
	result, err := s.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	if result == nil || result.Title == "" {
		return fmt.Errorf("health check returned invalid response")
	}

	return nil
}

// EnsureCollection creates the images collection with a 1536-dimension cosine
// vector and keyword payload indexes. Idempotent.
func (s *QdrantStorage) EnsureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, CollectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: CollectionName,
		VectorsConfig: qdrant.NewVectorsConfigMap(map[string]*qdrant.VectorParams{
			VectorName: {
				Size:     VectorDimension,
				Distance: qdrant.Distance_Cosine,
			},
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	if err := s.createPayloadIndexes(ctx); err != nil {
		return fmt.Errorf("failed to create payload indexes: %w", err)
	}

	return nil
}

// createPayloadIndexes indexes the fields used in query filters.
func (s *QdrantStorage) createPayloadIndexes(ctx context.Context) error {
	fields := []string{
		"pathname",
		"visibility",
		"user_id",
		"source",
	}

	for _, field := range fields {
		_, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: CollectionName,
			FieldName:      field,
			FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
		})
		if err != nil {
			return fmt.Errorf("failed to create index for field %s: %w", field, err)
		}
	}

	return nil
}

// ClearCollection drops and recreates the collection.
func (s *QdrantStorage) ClearCollection(ctx context.Context) error {
	if err := s.client.DeleteCollection(ctx, CollectionName); err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	return s.EnsureCollection(ctx)
}

// Close closes the Qdrant client connection.
func (s *QdrantStorage) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// UpsertImage stores an indexed image. The point ID is derived from doc.ID,
// so repeated upserts of the same pathname overwrite one point.
// Returns once Qdrant has applied the write.
func (s *QdrantStorage) UpsertImage(ctx context.Context, doc *IndexedDocument) error {
	if doc.ID == "" {
		return ErrMissingID
	}
	if len(doc.Embedding) != VectorDimension {
		return fmt.Errorf("%w: document has %d dimensions, expected %d",
			ErrDimensionMismatch, len(doc.Embedding), VectorDimension)
	}

	point := &qdrant.PointStruct{
		Id: qdrant.NewIDUUID(PointID(doc.ID)),
		Vectors: qdrant.NewVectorsMap(map[string]*qdrant.Vector{
			VectorName: qdrant.NewVector(doc.Embedding...),
		}),
		Payload: qdrant.NewValueMap(documentPayload(doc)),
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: CollectionName,
		Wait:           qdrant.PtrOf(true),
		Points:         []*qdrant.PointStruct{point},
	})
	if err != nil {
		return fmt.Errorf("failed to upsert image: %w", err)
	}
	return nil
}

// GetImage retrieves the stored record for a pathname.
// Returns ErrDocumentNotFound if the image is not indexed.
func (s *QdrantStorage) GetImage(ctx context.Context, pathname string) (*Record, error) {
	result, err := s.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: CollectionName,
		Ids:            []*qdrant.PointId{qdrant.NewIDUUID(PointID(pathname))},
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get image: %w", err)
	}

	if len(result) == 0 {
		return nil, ErrDocumentNotFound
	}

	record := recordFromPayload(result[0].Payload)
	if record == nil {
		return nil, ErrDocumentNotFound
	}
	return record, nil
}

// SearchImages performs vector similarity search.
// Returns up to limit results ordered by similarity score.
func (s *QdrantStorage) SearchImages(ctx context.Context, embedding []float32, limit int, filter *Filter) ([]SearchResult, error) {
	if len(embedding) != VectorDimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(embedding), VectorDimension)
	}

	vectorName := VectorName
	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: CollectionName,
		Query:          qdrant.NewQuery(embedding...),
		Using:          &vectorName,
		Filter:         buildFilter(filter),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(false),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search images: %w", err)
	}

	scored := make([]SearchResult, 0, len(results))
	for _, result := range results {
		scored = append(scored, SearchResult{
			Score:    float64(result.Score),
			Metadata: recordFromPayload(result.Payload),
		})
	}

	return scored, nil
}

// ListPathnames returns the pathnames of all indexed images matching filter,
// sorted alphabetically.
func (s *QdrantStorage) ListPathnames(ctx context.Context, filter *Filter) ([]string, error) {
	var pathnames []string
	var offset *qdrant.PointId

	batchSize := uint32(100)

	for {
		results, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: CollectionName,
			Filter:         buildFilter(filter),
			Limit:          qdrant.PtrOf(batchSize),
			Offset:         offset,
			WithPayload:    qdrant.NewWithPayloadInclude("pathname"),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scroll images: %w", err)
		}

		for i, result := range results {
			// Scroll offsets are inclusive
			if offset != nil && i == 0 {
				continue
			}
			if pathname := result.Payload["pathname"].GetStringValue(); pathname != "" {
				pathnames = append(pathnames, pathname)
			}
		}

		if uint32(len(results)) < batchSize {
			break
		}

		offset = results[len(results)-1].Id
	}

	sort.Strings(pathnames)
	return pathnames, nil
}

// CollectionInfo contains collection statistics
type CollectionInfo struct {
	PointsCount uint64
}

// GetCollectionInfo retrieves collection statistics including total points count.
func (s *QdrantStorage) GetCollectionInfo(ctx context.Context) (*CollectionInfo, error) {
	collection, err := s.client.GetCollectionInfo(ctx, CollectionName)
	if err != nil {
		return nil, fmt.Errorf("failed to get collection: %w", err)
	}

	return &CollectionInfo{
		PointsCount: collection.GetPointsCount(),
	}, nil
}
