package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/imgindex-server/internal/blob"
	"github.com/bull/imgindex-server/internal/search"
	"github.com/bull/imgindex-server/internal/storage"
)

type fakeSearcher struct {
	resp  search.Response
	forms []search.Form
}

func (f *fakeSearcher) Run(ctx context.Context, form search.Form) search.Response {
	f.forms = append(f.forms, form)
	return f.resp
}

type fakeStore struct {
	records map[string]*storage.Record
	byVis   map[storage.Visibility][]string
	all     []string
	points  uint64
	err     error
	filters []*storage.Filter
}

func (f *fakeStore) GetImage(ctx context.Context, pathname string) (*storage.Record, error) {
	if f.err != nil {
		return nil, f.err
	}
	r, ok := f.records[pathname]
	if !ok {
		return nil, storage.ErrDocumentNotFound
	}
	return r, nil
}

func (f *fakeStore) ListPathnames(ctx context.Context, filter *storage.Filter) ([]string, error) {
	f.filters = append(f.filters, filter)
	if f.err != nil {
		return nil, f.err
	}
	if filter == nil {
		return f.all, nil
	}
	return f.byVis[filter.Visibility], nil
}

func (f *fakeStore) GetCollectionInfo(ctx context.Context) (*storage.CollectionInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &storage.CollectionInfo{PointsCount: f.points}, nil
}

func objects(n int) []blob.StoredObject {
	out := make([]blob.StoredObject, n)
	for i := range out {
		out[i] = blob.StoredObject{Pathname: "images/" + string(rune('a'+i)) + ".png", URL: "http://cdn/x"}
	}
	return out
}

func TestSearchHandler(t *testing.T) {
	searcher := &fakeSearcher{resp: search.Response{Data: objects(2)}}
	handler := makeSearchHandler(searcher)

	_, out, err := handler(context.Background(), nil, SearchImagesInput{Query: "wolf", Visibility: "private", UserID: "u1"})
	require.NoError(t, err)

	require.Len(t, out.Results, 2)
	assert.Equal(t, "images/a.png", out.Results[0].Pathname)
	assert.Empty(t, out.Message)
	assert.Equal(t, search.Form{Search: "wolf", Visibility: storage.VisibilityPrivate, UserID: "u1"}, searcher.forms[0])
}

func TestSearchHandler_CapsResults(t *testing.T) {
	handler := makeSearchHandler(&fakeSearcher{resp: search.Response{Data: objects(15)}})

	_, out, err := handler(context.Background(), nil, SearchImagesInput{Query: "wolf"})
	require.NoError(t, err)
	assert.Len(t, out.Results, defaultMaxResults)

	_, out, err = handler(context.Background(), nil, SearchImagesInput{Query: "wolf", MaxResults: 3})
	require.NoError(t, err)
	assert.Len(t, out.Results, 3)
}

func TestSearchHandler_NoResults(t *testing.T) {
	handler := makeSearchHandler(&fakeSearcher{})

	_, out, err := handler(context.Background(), nil, SearchImagesInput{Query: "wolf"})
	require.NoError(t, err)
	assert.NotNil(t, out.Results)
	assert.Empty(t, out.Results)
	assert.NotEmpty(t, out.Message)
}

func TestSearchHandler_ActionError(t *testing.T) {
	handler := makeSearchHandler(&fakeSearcher{resp: search.Response{Error: search.MsgEmptyQuery}})

	_, _, err := handler(context.Background(), nil, SearchImagesInput{})
	require.Error(t, err)
	assert.Equal(t, search.MsgEmptyQuery, err.Error())
}

func TestGetImageHandler(t *testing.T) {
	indexed := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	store := &fakeStore{records: map[string]*storage.Record{
		"images/a.png": {
			StoredObject: blob.StoredObject{Pathname: "images/a.png", URL: "http://cdn/a.png"},
			ImageMetadata: storage.ImageMetadata{
				Source:     storage.SourceUser,
				Visibility: storage.VisibilityPublic,
				Title:      "Wolf Howling Moon",
				IndexedAt:  &indexed,
			},
		},
	}}
	handler := makeGetImageHandler(store)

	_, out, err := handler(context.Background(), nil, GetImageInput{Pathname: "images/a.png"})
	require.NoError(t, err)
	assert.True(t, out.Found)
	assert.Equal(t, "Wolf Howling Moon", out.Title)
	assert.Equal(t, "user", out.Source)
	assert.Equal(t, "2025-03-01T00:00:00Z", out.IndexedAt)
	assert.Empty(t, out.ExpiresAt)

	_, out, err = handler(context.Background(), nil, GetImageInput{Pathname: "images/missing.png"})
	require.NoError(t, err)
	assert.False(t, out.Found)
	assert.Equal(t, "images/missing.png", out.Pathname)
}

func TestGetImageHandler_PrivatePromptWithheld(t *testing.T) {
	store := &fakeStore{records: map[string]*storage.Record{
		"images/public.png": {
			StoredObject: blob.StoredObject{Pathname: "images/public.png"},
			ImageMetadata: storage.ImageMetadata{
				Visibility:     storage.VisibilityPublic,
				OriginalPrompt: "koi fish in waves",
			},
		},
		"images/private.png": {
			StoredObject: blob.StoredObject{Pathname: "images/private.png"},
			ImageMetadata: storage.ImageMetadata{
				Visibility:     storage.VisibilityPrivate,
				UserID:         "user-9",
				OriginalPrompt: "my daughter's name in script",
			},
		},
	}}
	handler := makeGetImageHandler(store)

	_, out, err := handler(context.Background(), nil, GetImageInput{Pathname: "images/public.png"})
	require.NoError(t, err)
	assert.Equal(t, "koi fish in waves", out.OriginalPrompt)

	_, out, err = handler(context.Background(), nil, GetImageInput{Pathname: "images/private.png"})
	require.NoError(t, err)
	assert.True(t, out.Found)
	assert.Equal(t, "private", out.Visibility)
	assert.Empty(t, out.OriginalPrompt)
}

func TestGetImageHandler_StoreError(t *testing.T) {
	handler := makeGetImageHandler(&fakeStore{err: errors.New("connection refused")})

	_, _, err := handler(context.Background(), nil, GetImageInput{Pathname: "images/a.png"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestListHandler(t *testing.T) {
	store := &fakeStore{
		all:   []string{"images/a.png", "images/b.png"},
		byVis: map[storage.Visibility][]string{storage.VisibilityPrivate: {"images/b.png"}},
	}
	handler := makeListHandler(store)

	_, out, err := handler(context.Background(), nil, ListImagesInput{})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Count)
	assert.Nil(t, store.filters[0])

	_, out, err = handler(context.Background(), nil, ListImagesInput{Visibility: "private"})
	require.NoError(t, err)
	assert.Equal(t, []string{"images/b.png"}, out.Pathnames)
	assert.Equal(t, storage.VisibilityPrivate, store.filters[1].Visibility)
}

func TestListHandler_EmptyIsNotNil(t *testing.T) {
	_, out, err := makeListHandler(&fakeStore{})(context.Background(), nil, ListImagesInput{})
	require.NoError(t, err)
	assert.NotNil(t, out.Pathnames)
	assert.Equal(t, 0, out.Count)
}

func TestStatusHandler(t *testing.T) {
	store := &fakeStore{
		points: 3,
		byVis: map[storage.Visibility][]string{
			storage.VisibilityPublic:  {"images/a.png", "images/b.png"},
			storage.VisibilityPrivate: {"images/c.png"},
		},
	}

	_, out, err := makeStatusHandler(store)(context.Background(), nil, StatusInput{})
	require.NoError(t, err)
	assert.Equal(t, StatusOutput{TotalImages: 3, PublicImages: 2, PrivateImages: 1, Collection: storage.CollectionName}, out)
}

func TestStatusHandler_Error(t *testing.T) {
	_, _, err := makeStatusHandler(&fakeStore{err: errors.New("down")})(context.Background(), nil, StatusInput{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "qdrant_error")
}

type fakeHealth struct{ err error }

func (f fakeHealth) Health(ctx context.Context) error { return f.err }

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name   string
		index  HealthChecker
		blob   HealthChecker
		code   int
		status string
		blobS  string
	}{
		{"index only healthy", fakeHealth{}, nil, http.StatusOK, "healthy", ""},
		{"both healthy", fakeHealth{}, fakeHealth{}, http.StatusOK, "healthy", "connected"},
		{"index down", fakeHealth{err: errors.New("down")}, fakeHealth{}, http.StatusServiceUnavailable, "unhealthy", "connected"},
		{"blob down", fakeHealth{}, fakeHealth{err: errors.New("down")}, http.StatusServiceUnavailable, "unhealthy", "disconnected"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			NewHealthHandler(tt.index, tt.blob)(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.code, rec.Code)
			var resp HealthResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, tt.status, resp.Status)
			assert.Equal(t, tt.blobS, resp.Blob)
		})
	}
}

func TestNewServer_RegistersTools(t *testing.T) {
	s := NewServer(&Config{Store: &fakeStore{}, Searcher: &fakeSearcher{}})
	assert.NotNil(t, s.MCPServer())
}

func TestLandingHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	NewLandingHandler()(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/api/images")

	rec = httptest.NewRecorder()
	NewLandingHandler()(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
