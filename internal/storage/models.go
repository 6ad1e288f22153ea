package storage

import (
	"time"

	"github.com/bull/imgindex-server/internal/blob"
)

// Source records who contributed an image.
type Source string

const (
	SourceUser   Source = "user"
	SourceSystem Source = "system"
)

// Visibility controls who may see an image in search results.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// ImageMetadata is the descriptive and access-control metadata attached to
// an indexed image.
type ImageMetadata struct {
	Source               Source     `json:"source"`
	Visibility           Visibility `json:"visibility"`
	UserID               string     `json:"userId,omitempty"`
	ExpiresAt            *time.Time `json:"expiresAt,omitempty"` // Private images only
	Title                string     `json:"title,omitempty"`
	IndexedAt            *time.Time `json:"indexedAt,omitempty"`
	OriginalPrompt       string     `json:"originalPrompt,omitempty"`       // Full AI description
	MarketingDescription string     `json:"marketingDescription,omitempty"` // Public copy, also the indexed text
}

// IndexedDocument is one image as written to the search index.
// ID is the object's pathname, so upserting the same object twice replaces
// the earlier point.
type IndexedDocument struct {
	ID        string
	Text      string // Content that is embedded and searched
	Object    blob.StoredObject
	Metadata  ImageMetadata
	Embedding []float32 // 1536-dim vector of Text
}

// Record is the stored payload of an image: the object descriptor merged
// with its metadata.
type Record struct {
	blob.StoredObject
	ImageMetadata
}

// SearchResult is a scored match returned by a similarity query.
// Metadata is nil when the stored point carried no usable payload.
type SearchResult struct {
	Score    float64
	Metadata *Record
}

// Filter restricts a query to matching payload values. Empty fields are ignored.
type Filter struct {
	Visibility Visibility
	UserID     string
}

// IsEmpty reports whether the filter has no conditions.
func (f *Filter) IsEmpty() bool {
	return f == nil || (f.Visibility == "" && f.UserID == "")
}

// CollectionName is the Qdrant collection holding indexed images.
const CollectionName = "images"

// VectorName is the named vector used for image descriptions.
const VectorName = "content"

// VectorDimension is the embedding size for text-embedding-3-small.
const VectorDimension = 1536
