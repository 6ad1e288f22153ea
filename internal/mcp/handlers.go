package mcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bull/imgindex-server/internal/search"
	"github.com/bull/imgindex-server/internal/storage"
)

const (
	defaultMaxResults = 10
	maxMaxResults     = 20
)

// ImageStore is the read side of the image index used by the tools.
type ImageStore interface {
	GetImage(ctx context.Context, pathname string) (*storage.Record, error)
	ListPathnames(ctx context.Context, filter *storage.Filter) ([]string, error)
	GetCollectionInfo(ctx context.Context) (*storage.CollectionInfo, error)
}

// Searcher runs a search query the same way the HTTP search endpoint does.
type Searcher interface {
	Run(ctx context.Context, form search.Form) search.Response
}

// makeSearchHandler creates the search_images tool handler.
// Queries go through the search action, so an empty query yields the same
// error message as the HTTP endpoint.
func makeSearchHandler(searcher Searcher) func(
	context.Context, *mcp.CallToolRequest, SearchImagesInput,
) (*mcp.CallToolResult, SearchImagesOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SearchImagesInput) (
		*mcp.CallToolResult, SearchImagesOutput, error,
	) {
		maxResults := input.MaxResults
		if maxResults <= 0 {
			maxResults = defaultMaxResults
		}
		if maxResults > maxMaxResults {
			maxResults = maxMaxResults
		}

		resp := searcher.Run(ctx, search.Form{
			Search:     input.Query,
			Visibility: storage.Visibility(input.Visibility),
			UserID:     input.UserID,
		})
		if resp.Error != "" {
			return nil, SearchImagesOutput{}, errors.New(resp.Error)
		}

		data := resp.Data
		if len(data) > maxResults {
			data = data[:maxResults]
		}

		results := make([]ImageResult, 0, len(data))
		for _, obj := range data {
			results = append(results, ImageResult{
				Pathname:    obj.Pathname,
				URL:         obj.URL,
				DownloadURL: obj.DownloadURL,
				ContentType: obj.ContentType,
				Size:        obj.Size,
			})
		}

		if len(results) == 0 {
			return nil, SearchImagesOutput{
				Results: results,
				Message: "No matching images found. Try broader search terms.",
			}, nil
		}

		return nil, SearchImagesOutput{Results: results}, nil
	}
}

// makeGetImageHandler creates the get_image tool handler.
func makeGetImageHandler(store ImageStore) func(
	context.Context, *mcp.CallToolRequest, GetImageInput,
) (*mcp.CallToolResult, GetImageOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input GetImageInput) (
		*mcp.CallToolResult, GetImageOutput, error,
	) {
		record, err := store.GetImage(ctx, input.Pathname)
		if err != nil {
			if errors.Is(err, storage.ErrDocumentNotFound) {
				return nil, GetImageOutput{Found: false, Pathname: input.Pathname}, nil
			}
			return nil, GetImageOutput{}, fmt.Errorf("failed to fetch image: %w", err)
		}

		out := GetImageOutput{
			Found:                true,
			Pathname:             record.Pathname,
			URL:                  record.URL,
			DownloadURL:          record.DownloadURL,
			Title:                record.Title,
			MarketingDescription: record.MarketingDescription,
			OriginalPrompt:       record.OriginalPrompt,
			Source:               string(record.Source),
			Visibility:           string(record.Visibility),
			IndexedAt:            formatTime(record.IndexedAt),
			ExpiresAt:            formatTime(record.ExpiresAt),
		}
		// The prompt of a private upload stays with its owner.
		if record.Visibility == storage.VisibilityPrivate {
			out.OriginalPrompt = ""
		}
		return nil, out, nil
	}
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// makeListHandler creates the list_images tool handler.
func makeListHandler(store ImageStore) func(
	context.Context, *mcp.CallToolRequest, ListImagesInput,
) (*mcp.CallToolResult, ListImagesOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input ListImagesInput) (
		*mcp.CallToolResult, ListImagesOutput, error,
	) {
		var filter *storage.Filter
		if input.Visibility != "" {
			filter = &storage.Filter{Visibility: storage.Visibility(input.Visibility)}
		}

		pathnames, err := store.ListPathnames(ctx, filter)
		if err != nil {
			return nil, ListImagesOutput{}, fmt.Errorf("failed to list images: %w", err)
		}
		if pathnames == nil {
			pathnames = []string{}
		}

		return nil, ListImagesOutput{
			Pathnames: pathnames,
			Count:     len(pathnames),
		}, nil
	}
}

// makeStatusHandler creates the get_index_status tool handler.
func makeStatusHandler(store ImageStore) func(
	context.Context, *mcp.CallToolRequest, StatusInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input StatusInput) (
		*mcp.CallToolResult, StatusOutput, error,
	) {
		info, err := store.GetCollectionInfo(ctx)
		if err != nil {
			return nil, StatusOutput{}, fmt.Errorf("qdrant_error: failed to get collection info: %w", err)
		}

		public, err := store.ListPathnames(ctx, &storage.Filter{Visibility: storage.VisibilityPublic})
		if err != nil {
			return nil, StatusOutput{}, fmt.Errorf("qdrant_error: failed to list public images: %w", err)
		}
		private, err := store.ListPathnames(ctx, &storage.Filter{Visibility: storage.VisibilityPrivate})
		if err != nil {
			return nil, StatusOutput{}, fmt.Errorf("qdrant_error: failed to list private images: %w", err)
		}

		return nil, StatusOutput{
			TotalImages:   int(info.PointsCount),
			PublicImages:  len(public),
			PrivateImages: len(private),
			Collection:    storage.CollectionName,
		}, nil
	}
}
