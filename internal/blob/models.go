package blob

// File is an uploaded image held in memory until it reaches the object store.
type File struct {
	Data        []byte
	Name        string // Original filename from the client
	ContentType string // MIME type reported by the client
	Size        int64
}

// StoredObject describes a binary persisted in the object store.
// It is produced once by Upload and never modified afterwards; later steps
// refer to it through Pathname.
type StoredObject struct {
	URL         string `json:"url"`         // Public URL
	DownloadURL string `json:"downloadUrl"` // URL that forces a download
	Pathname    string `json:"pathname"`    // Object key, unique per upload
	Size        int64  `json:"size"`
	ContentType string `json:"contentType"`
}
