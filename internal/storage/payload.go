package storage

import (
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/bull/imgindex-server/internal/blob"
)

// pointNamespace seeds name-based point IDs. Qdrant only accepts UUIDs or
// integers as point IDs, so pathnames are mapped through UUIDv5.
var pointNamespace = uuid.MustParse("3b241101-e2bb-4255-8caf-4136c566a962")

// PointID returns the deterministic Qdrant point ID for a document ID.
func PointID(docID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(docID)).String()
}

// documentPayload flattens the object descriptor and metadata into a Qdrant payload.
func documentPayload(doc *IndexedDocument) map[string]any {
	md := doc.Metadata
	payload := map[string]any{
		"id":                    doc.ID,
		"content":               doc.Text,
		"pathname":              doc.Object.Pathname,
		"url":                   doc.Object.URL,
		"download_url":          doc.Object.DownloadURL,
		"size":                  doc.Object.Size,
		"content_type":          doc.Object.ContentType,
		"source":                string(md.Source),
		"visibility":            string(md.Visibility),
		"title":                 md.Title,
		"original_prompt":       md.OriginalPrompt,
		"marketing_description": md.MarketingDescription,
	}
	if md.UserID != "" {
		payload["user_id"] = md.UserID
	}
	if md.ExpiresAt != nil {
		payload["expires_at"] = md.ExpiresAt.UTC().Format(time.RFC3339)
	}
	if md.IndexedAt != nil {
		payload["indexed_at"] = md.IndexedAt.UTC().Format(time.RFC3339)
	}
	return payload
}

// recordFromPayload rebuilds a Record from a stored payload.
// Returns nil when the payload has no pathname.
func recordFromPayload(payload map[string]*qdrant.Value) *Record {
	pathname := payload["pathname"].GetStringValue()
	if pathname == "" {
		return nil
	}

	return &Record{
		StoredObject: blob.StoredObject{
			URL:         payload["url"].GetStringValue(),
			DownloadURL: payload["download_url"].GetStringValue(),
			Pathname:    pathname,
			Size:        payload["size"].GetIntegerValue(),
			ContentType: payload["content_type"].GetStringValue(),
		},
		ImageMetadata: ImageMetadata{
			Source:               Source(payload["source"].GetStringValue()),
			Visibility:           Visibility(payload["visibility"].GetStringValue()),
			UserID:               payload["user_id"].GetStringValue(),
			ExpiresAt:            parseTime(payload["expires_at"].GetStringValue()),
			Title:                payload["title"].GetStringValue(),
			IndexedAt:            parseTime(payload["indexed_at"].GetStringValue()),
			OriginalPrompt:       payload["original_prompt"].GetStringValue(),
			MarketingDescription: payload["marketing_description"].GetStringValue(),
		},
	}
}

// buildFilter converts a Filter into Qdrant conditions. Returns nil for an empty filter.
func buildFilter(f *Filter) *qdrant.Filter {
	if f.IsEmpty() {
		return nil
	}

	var must []*qdrant.Condition
	if f.Visibility != "" {
		must = append(must, qdrant.NewMatch("visibility", string(f.Visibility)))
	}
	if f.UserID != "" {
		must = append(must, qdrant.NewMatch("user_id", f.UserID))
	}
	return &qdrant.Filter{Must: must}
}

func parseTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &t
}
