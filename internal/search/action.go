// Package search answers free-text image queries against the search index.
package search

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/url"
	"sort"
	"strings"

	"github.com/bull/imgindex-server/internal/blob"
	"github.com/bull/imgindex-server/internal/indexer"
	"github.com/bull/imgindex-server/internal/storage"
)

const (
	// MsgEmptyQuery is returned when a query has no search text.
	MsgEmptyQuery = "Please enter a search query"

	// MsgUnknownError stands in for an index error with no message, which
	// would otherwise encode as an empty result set.
	MsgUnknownError = "Unknown error"
)

// Index runs a query against the search index.
type Index interface {
	Search(ctx context.Context, req indexer.SearchRequest) ([]storage.SearchResult, error)
}

// Form is the query as submitted by a client.
type Form struct {
	Search     string
	Visibility storage.Visibility
	UserID     string
}

// ParseForm reads the form fields search, visibility and userId.
func ParseForm(values url.Values) Form {
	return Form{
		Search:     values.Get("search"),
		Visibility: storage.Visibility(values.Get("visibility")),
		UserID:     values.Get("userId"),
	}
}

// Response carries either matching images or an error message.
type Response struct {
	Data  []blob.StoredObject
	Error string
}

// MarshalJSON encodes the response as {"data": [...]} or {"error": "..."}.
func (r Response) MarshalJSON() ([]byte, error) {
	if r.Error != "" {
		return json.Marshal(struct {
			Error string `json:"error"`
		}{r.Error})
	}
	data := r.Data
	if data == nil {
		data = []blob.StoredObject{}
	}
	return json.Marshal(struct {
		Data []blob.StoredObject `json:"data"`
	}{data})
}

// Action handles search queries.
type Action struct {
	index  Index
	logger *slog.Logger
}

// NewAction creates a search action over index.
func NewAction(index Index, logger *slog.Logger) *Action {
	if logger == nil {
		logger = slog.Default()
	}
	return &Action{index: index, logger: logger}
}

// Run executes the query in form. An empty query is rejected without
// touching the index; index failures are reported in Response.Error.
//
// Visibility and UserID are accepted but not yet applied as filters.
func (a *Action) Run(ctx context.Context, form Form) Response {
	query := strings.TrimSpace(form.Search)
	if query == "" {
		return Response{Error: MsgEmptyQuery}
	}

	// TODO: build a storage.Filter from Visibility/UserID once the rules for
	// private images are decided; SearchImages already supports one.
	a.logger.Info("Searching images",
		"query", query,
		"visibility", form.Visibility,
		"user_id", form.UserID,
	)

	results, err := a.index.Search(ctx, indexer.SearchRequest{Query: query})
	if err != nil {
		a.logger.Warn("Search failed", "query", query, "error", err)
		msg := err.Error()
		if msg == "" {
			msg = MsgUnknownError
		}
		return Response{Error: msg}
	}

	data := Rank(results)
	a.logger.Info("Images found", "query", query, "count", len(data))

	return Response{Data: data}
}

// Rank orders results by descending score, keeping the input order for ties,
// and returns the stored objects of results that carry metadata.
func Rank(results []storage.SearchResult) []blob.StoredObject {
	sorted := make([]storage.SearchResult, len(results))
	copy(sorted, results)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	objects := make([]blob.StoredObject, 0, len(sorted))
	for _, r := range sorted {
		if r.Metadata == nil {
			continue
		}
		objects = append(objects, r.Metadata.StoredObject)
	}
	return objects
}
