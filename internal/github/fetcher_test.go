package github

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/google/go-github/v81/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepos struct {
	dirs  map[string][]*github.RepositoryContent
	files map[string]string
	refs  []string
}

func (f *fakeRepos) GetContents(ctx context.Context, owner, repo, p string, opts *github.RepositoryContentGetOptions) (
	*github.RepositoryContent, []*github.RepositoryContent, *github.Response, error) {
	if opts != nil {
		f.refs = append(f.refs, opts.Ref)
	}
	items, ok := f.dirs[p]
	if !ok {
		return nil, nil, nil, errors.New("404 Not Found")
	}
	return nil, items, nil, nil
}

func (f *fakeRepos) DownloadContents(ctx context.Context, owner, repo, p string, opts *github.RepositoryContentGetOptions) (
	io.ReadCloser, *github.Response, error) {
	data, ok := f.files[p]
	if !ok {
		return nil, nil, errors.New("no file named " + p)
	}
	resp := &github.Response{Response: &http.Response{StatusCode: http.StatusOK}}
	return io.NopCloser(strings.NewReader(data)), resp, nil
}

func entry(kind, name string) *github.RepositoryContent {
	return &github.RepositoryContent{Type: github.Ptr(kind), Name: github.Ptr(name)}
}

func TestIsImagePath(t *testing.T) {
	tests := map[string]bool{
		"wolf.png":        true,
		"koi.JPG":         true,
		"rose.jpeg":       true,
		"anim.gif":        true,
		"dragon.webp":     true,
		"README.md":       false,
		"design.svg":      false,
		"no-extension":    false,
		"archive.png.zip": false,
	}
	for name, want := range tests {
		assert.Equal(t, want, IsImagePath(name), name)
	}
}

func TestListImages(t *testing.T) {
	repos := &fakeRepos{dirs: map[string][]*github.RepositoryContent{
		"seed": {
			entry("file", "wolf.png"),
			entry("file", "README.md"),
			entry("dir", "flash"),
			{Type: github.Ptr("file")},
		},
		"seed/flash": {
			entry("file", "koi.webp"),
			entry("symlink", "link.png"),
		},
	}}
	f := &Fetcher{repos: repos, owner: "o", repo: "r", basePath: "seed", ref: "main"}

	images, err := f.ListImages(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"wolf.png", "flash/koi.webp"}, images)
	assert.Equal(t, []string{"main", "main"}, repos.refs)
}

func TestListImages_Error(t *testing.T) {
	f := &Fetcher{repos: &fakeRepos{}, basePath: "missing"}

	_, err := f.ListImages(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}

func TestFetchImage(t *testing.T) {
	repos := &fakeRepos{files: map[string]string{"seed/flash/koi.webp": "RIFFxxxxWEBP"}}
	f := &Fetcher{repos: repos, basePath: "seed"}

	file, err := f.FetchImage(context.Background(), "flash/koi.webp")
	require.NoError(t, err)

	assert.Equal(t, "koi.webp", file.Name)
	assert.Equal(t, "image/webp", file.ContentType)
	assert.Equal(t, int64(12), file.Size)
	assert.Equal(t, []byte("RIFFxxxxWEBP"), file.Data)
}

func TestFetchImage_Error(t *testing.T) {
	f := &Fetcher{repos: &fakeRepos{}, basePath: "seed"}

	_, err := f.FetchImage(context.Background(), "gone.png")
	assert.Error(t, err)
}
