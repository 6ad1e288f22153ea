// Package httpapi serves the upload and search endpoints.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/bull/imgindex-server/internal/blob"
	"github.com/bull/imgindex-server/internal/indexer"
	"github.com/bull/imgindex-server/internal/search"
	"github.com/bull/imgindex-server/internal/storage"
	"github.com/bull/imgindex-server/internal/workflow"
)

// formOverhead is the allowance for multipart framing on top of the file limit.
const formOverhead = 1 << 20

// Processor runs the ingestion pipeline for one file.
type Processor interface {
	Process(ctx context.Context, file blob.File, attr indexer.Attribution) (*indexer.Result, error)
}

// Searcher runs a search query.
type Searcher interface {
	Run(ctx context.Context, form search.Form) search.Response
}

// UploadResponse is the body of a successful upload.
type UploadResponse struct {
	Success          bool   `json:"success"`
	Pathname         string `json:"pathname"`
	ImageURL         string `json:"imageUrl"`
	ProcessingTimeMs int64  `json:"processingTimeMs"`
}

// ErrorResponse is the body of a failed request.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// Handler serves the image API.
type Handler struct {
	processor Processor
	searcher  Searcher
	maxBytes  int64
	logger    *slog.Logger
}

// NewHandler creates the API handler. maxBytes limits uploaded files; zero
// uses blob.DefaultMaxSize.
func NewHandler(processor Processor, searcher Searcher, maxBytes int64, logger *slog.Logger) *Handler {
	if maxBytes <= 0 {
		maxBytes = blob.DefaultMaxSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		processor: processor,
		searcher:  searcher,
		maxBytes:  maxBytes,
		logger:    logger,
	}
}

// Register mounts the API routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/images", h.Upload)
	mux.HandleFunc("POST /api/search", h.Search)
}

// Upload accepts a multipart form with a "file" field and optional
// "visibility" and "userId" fields, and runs it through the pipeline.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+formOverhead)
	if err := r.ParseMultipartForm(h.maxBytes + formOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, blob.ErrFileTooLarge.Error())
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.maxBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read file")
		return
	}

	file := blob.File{
		Data:        data,
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
	}
	attr := indexer.Attribution{
		Source:     storage.SourceUser,
		Visibility: storage.Visibility(r.FormValue("visibility")),
		UserID:     r.FormValue("userId"),
	}
	if attr.Visibility != "" && attr.Visibility != storage.VisibilityPublic && attr.Visibility != storage.VisibilityPrivate {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid visibility %q", attr.Visibility))
		return
	}

	result, err := h.processor.Process(r.Context(), file, attr)
	if err != nil {
		status := statusFor(err)
		if d, ok := workflow.RetryAfter(err); ok && status == http.StatusServiceUnavailable {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(d.Seconds()))))
		}
		h.logger.Warn("Upload failed", "file", file.Name, "status", status, "error", err)
		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, UploadResponse{
		Success:          true,
		Pathname:         result.Pathname,
		ImageURL:         result.ImageURL,
		ProcessingTimeMs: result.ProcessingTime.Milliseconds(),
	})
}

// Search answers a form-encoded query. Validation and index errors are
// reported in the body with status 200, matching the action's contract.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, search.Response{Error: "invalid form"})
		return
	}
	writeJSON(w, http.StatusOK, h.searcher.Run(r.Context(), search.ParseForm(r.PostForm)))
}

// statusFor maps a pipeline error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, blob.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, blob.ErrEmptyFile), errors.Is(err, blob.ErrNotAnImage):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	case workflow.IsFatal(err):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusServiceUnavailable
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Success: false, Error: msg})
}
