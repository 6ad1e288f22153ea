package github

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/google/go-github/v81/github"

	"github.com/bull/imgindex-server/internal/blob"
)

// imageExtensions maps seedable file extensions to their content types.
var imageExtensions = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// IsImagePath reports whether name has a seedable image extension.
func IsImagePath(name string) bool {
	_, ok := imageExtensions[strings.ToLower(path.Ext(name))]
	return ok
}

// contentsService is the subset of the repositories API the fetcher uses.
type contentsService interface {
	GetContents(ctx context.Context, owner, repo, path string, opts *github.RepositoryContentGetOptions) (
		*github.RepositoryContent, []*github.RepositoryContent, *github.Response, error)
	DownloadContents(ctx context.Context, owner, repo, filepath string, opts *github.RepositoryContentGetOptions) (
		io.ReadCloser, *github.Response, error)
}

// Fetcher lists and downloads images below a repository directory.
type Fetcher struct {
	repos    contentsService
	owner    string
	repo     string
	basePath string
	ref      string
}

// NewFetcher creates a new image fetcher. ref may be empty for the default branch.
func NewFetcher(client *Client, owner, repo, basePath, ref string) *Fetcher {
	return &Fetcher{
		repos:    client.Repositories,
		owner:    owner,
		repo:     repo,
		basePath: basePath,
		ref:      ref,
	}
}

func (f *Fetcher) contentOptions() *github.RepositoryContentGetOptions {
	if f.ref == "" {
		return nil
	}
	return &github.RepositoryContentGetOptions{Ref: f.ref}
}

// ListImages recursively lists image files below the base path, relative to it.
func (f *Fetcher) ListImages(ctx context.Context) ([]string, error) {
	return f.listRecursive(ctx, f.basePath, "")
}

func (f *Fetcher) listRecursive(ctx context.Context, fullPath, relativePath string) ([]string, error) {
	var images []string

	_, dirContents, _, err := f.repos.GetContents(ctx, f.owner, f.repo, fullPath, f.contentOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to get contents of %s: %w", fullPath, err)
	}

	for _, item := range dirContents {
		if item.Type == nil || item.Name == nil {
			continue
		}

		itemRelPath := path.Join(relativePath, *item.Name)

		switch *item.Type {
		case "file":
			if IsImagePath(*item.Name) {
				images = append(images, itemRelPath)
			}

		case "dir":
			sub, err := f.listRecursive(ctx, path.Join(fullPath, *item.Name), itemRelPath)
			if err != nil {
				return nil, err
			}
			images = append(images, sub...)
		}
	}

	return images, nil
}

// FetchImage downloads one image. The returned file's content type comes
// from its extension; the blob store re-checks it against the bytes.
func (f *Fetcher) FetchImage(ctx context.Context, relativePath string) (blob.File, error) {
	fullPath := path.Join(f.basePath, relativePath)

	rc, resp, err := f.repos.DownloadContents(ctx, f.owner, f.repo, fullPath, f.contentOptions())
	if err != nil {
		return blob.File{}, fmt.Errorf("failed to download %s: %w", fullPath, err)
	}
	defer rc.Close()

	if resp != nil && resp.StatusCode != http.StatusOK {
		return blob.File{}, fmt.Errorf("failed to download %s: status %d", fullPath, resp.StatusCode)
	}

	data, err := io.ReadAll(rc)
	if err != nil {
		return blob.File{}, fmt.Errorf("failed to read %s: %w", fullPath, err)
	}

	return blob.File{
		Data:        data,
		Name:        path.Base(relativePath),
		ContentType: imageExtensions[strings.ToLower(path.Ext(relativePath))],
		Size:        int64(len(data)),
	}, nil
}
