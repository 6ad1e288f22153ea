// Package mcp exposes the image index over the Model Context Protocol.
package mcp

// SearchImagesInput defines the input parameters for the search_images tool.
type SearchImagesInput struct {
	// Query is the free-text search query.
	Query string `json:"query" jsonschema:"free-text description of the images to find"`
	// MaxResults caps the number of returned images.
	MaxResults int `json:"max_results,omitempty" jsonschema:"maximum number of images to return (1-20, default 10)"`
	// Visibility is forwarded to the search action (public or private).
	Visibility string `json:"visibility,omitempty" jsonschema:"visibility of the images to search: public or private"`
	// UserID identifies the owner of private images.
	UserID string `json:"user_id,omitempty" jsonschema:"owner of private images"`
}

// SearchImagesOutput contains the search results.
type SearchImagesOutput struct {
	// Results is the list of matching images, best match first.
	Results []ImageResult `json:"results"`
	// Message provides informational context (e.g., "No matching images found").
	Message string `json:"message,omitempty"`
}

// ImageResult is a single stored image.
type ImageResult struct {
	Pathname    string `json:"pathname"`
	URL         string `json:"url"`
	DownloadURL string `json:"download_url"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// GetImageInput defines the input parameters for the get_image tool.
type GetImageInput struct {
	// Pathname is the object key returned at upload (e.g., "images/<uuid>-wolf.png").
	Pathname string `json:"pathname" jsonschema:"the image pathname returned at upload"`
}

// GetImageOutput contains the stored record of one image.
type GetImageOutput struct {
	Found                bool   `json:"found"`
	Pathname             string `json:"pathname"`
	URL                  string `json:"url,omitempty"`
	DownloadURL          string `json:"download_url,omitempty"`
	Title                string `json:"title,omitempty"`
	MarketingDescription string `json:"marketing_description,omitempty"`
	OriginalPrompt       string `json:"original_prompt,omitempty"`
	Source               string `json:"source,omitempty"`
	Visibility           string `json:"visibility,omitempty"`
	IndexedAt            string `json:"indexed_at,omitempty"` // RFC3339
	ExpiresAt            string `json:"expires_at,omitempty"` // RFC3339, private images only
}

// ListImagesInput defines the input parameters for the list_images tool.
type ListImagesInput struct {
	// Visibility optionally restricts the listing.
	Visibility string `json:"visibility,omitempty" jsonschema:"only list images with this visibility: public or private"`
}

// ListImagesOutput contains the indexed pathnames.
type ListImagesOutput struct {
	Pathnames []string `json:"pathnames"`
	Count     int      `json:"count"`
}

// StatusInput defines the input parameters for the get_index_status tool.
// This tool takes no parameters.
type StatusInput struct{}

// StatusOutput describes the state of the image index.
type StatusOutput struct {
	// TotalImages is the number of points in the collection.
	TotalImages int `json:"total_images"`
	// PublicImages and PrivateImages split the total by visibility.
	PublicImages  int `json:"public_images"`
	PrivateImages int `json:"private_images"`
	// Collection is the Qdrant collection name.
	Collection string `json:"collection"`
}
