package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bull/imgindex-server/internal/blob"
	"github.com/bull/imgindex-server/internal/copywriter"
	"github.com/bull/imgindex-server/internal/storage"
	"github.com/bull/imgindex-server/internal/workflow"
)

// Step identifiers reported to the step host and in logs.
const (
	StepDescribe = "describe-image"
	StepIndex    = "index-image"
)

// State is a pipeline run's position in Uploading → Describing → Indexing → Done.
// Failed is reachable from every state except Done.
type State string

const (
	StateUploading  State = "uploading"
	StateDescribing State = "describing"
	StateIndexing   State = "indexing"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

// Uploader stores raw image bytes.
type Uploader interface {
	Upload(ctx context.Context, file blob.File) (*blob.StoredObject, error)
}

// Describer produces a natural-language description of a stored image.
type Describer interface {
	Describe(ctx context.Context, obj *blob.StoredObject) (string, error)
}

// ImageIndexer writes a described image to the search index.
type ImageIndexer interface {
	IndexImage(ctx context.Context, meta workflow.StepMetadata, obj *blob.StoredObject, text string, md storage.ImageMetadata) error
}

// Attribution says who an image belongs to. Zero values mean a public user upload.
type Attribution struct {
	Source     storage.Source
	Visibility storage.Visibility
	UserID     string
}

// Result describes a successfully processed image.
type Result struct {
	Success        bool
	Pathname       string
	ImageURL       string
	ProcessingTime time.Duration
}

// Pipeline orchestrates upload, description and indexing of one image.
type Pipeline struct {
	uploader   Uploader
	describer  Describer
	indexer    ImageIndexer
	runner     *workflow.Runner
	logger     *slog.Logger
	privateTTL time.Duration
	onState    func(State)
	now        func() time.Time
}

// NewPipeline creates a new ingestion pipeline with the given components.
// A nil runner uses workflow defaults.
func NewPipeline(
	uploader Uploader,
	describer Describer,
	indexer ImageIndexer,
	runner *workflow.Runner,
	logger *slog.Logger,
) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = workflow.NewRunner(workflow.WithLogger(logger))
	}
	return &Pipeline{
		uploader:  uploader,
		describer: describer,
		indexer:   indexer,
		runner:    runner,
		logger:    logger,
		now:       time.Now,
	}
}

// SetPrivateTTL makes private images expire ttl after indexing. Zero disables expiry.
func (p *Pipeline) SetPrivateTTL(ttl time.Duration) {
	p.privateTTL = ttl
}

// OnStateChange registers fn to be called on every state transition.
func (p *Pipeline) OnStateChange(fn func(State)) {
	p.onState = fn
}

// Process uploads file, describes it, derives title and marketing copy, and
// indexes it. Errors are returned unchanged from the failing step; use
// workflow.IsFatal to tell whether a retry makes sense.
func (p *Pipeline) Process(ctx context.Context, file blob.File, attr Attribution) (*Result, error) {
	start := p.now()
	state := StateUploading

	fail := func(err error) (*Result, error) {
		kind := workflow.Retryable
		if workflow.IsFatal(err) {
			kind = workflow.Fatal
		}
		p.logger.Error("Image processing failed",
			"file", file.Name,
			"state", state,
			"kind", kind,
			"duration", p.now().Sub(start),
			"error", err,
		)
		p.transition(StateFailed)
		return nil, err
	}

	p.logger.Info("Starting image processing",
		"file", file.Name,
		"type", file.ContentType,
		"size", file.Size,
	)

	// 1. Upload to blob storage (not retried)
	p.transition(StateUploading)
	p.logger.Info("Step 1/3: Uploading image", "file", file.Name)
	obj, err := p.uploader.Upload(ctx, file)
	if err != nil {
		return fail(workflow.NewFatal(fmt.Sprintf("upload %s: %v", file.Name, err), err))
	}
	p.logger.Info("Step 1/3 complete", "url", obj.DownloadURL)

	// 2. Generate description
	state = StateDescribing
	p.transition(StateDescribing)
	p.logger.Info("Step 2/3: Generating description", "pathname", obj.Pathname)
	var description string
	err = p.runner.Run(ctx, StepDescribe, func(ctx context.Context, meta workflow.StepMetadata) error {
		d, err := p.describer.Describe(ctx, obj)
		if err != nil {
			return err
		}
		description = strings.TrimSpace(d)
		return nil
	})
	if err != nil {
		return fail(err)
	}
	if description == "" {
		return fail(workflow.NewFatal(
			fmt.Sprintf("describe %s: %v", obj.Pathname, ErrEmptyDescription), ErrEmptyDescription))
	}
	p.logger.Info("Step 2/3 complete", "chars", len(description), "tattoo", copywriter.IsTattoo(description))

	// 3. Index with public copy; the raw description is kept as metadata
	marketing := copywriter.MarketingDescription(description)
	md := p.metadata(attr, description, marketing)

	state = StateIndexing
	p.transition(StateIndexing)
	p.logger.Info("Step 3/3: Indexing in search", "title", md.Title)
	err = p.runner.Run(ctx, StepIndex, func(ctx context.Context, meta workflow.StepMetadata) error {
		return p.indexer.IndexImage(ctx, meta, obj, marketing, md)
	})
	if err != nil {
		return fail(err)
	}
	p.logger.Info("Step 3/3 complete")

	p.transition(StateDone)
	duration := p.now().Sub(start)
	p.logger.Info("Processed image", "file", file.Name, "pathname", obj.Pathname, "duration", duration)

	return &Result{
		Success:        true,
		Pathname:       obj.Pathname,
		ImageURL:       obj.URL,
		ProcessingTime: duration,
	}, nil
}

// metadata builds the index metadata for a described image.
func (p *Pipeline) metadata(attr Attribution, description, marketing string) storage.ImageMetadata {
	source := attr.Source
	if source == "" {
		source = storage.SourceUser
	}
	visibility := attr.Visibility
	if visibility == "" {
		visibility = storage.VisibilityPublic
	}

	now := p.now().UTC()
	md := storage.ImageMetadata{
		Source:               source,
		Visibility:           visibility,
		UserID:               attr.UserID,
		Title:                copywriter.Title(description),
		IndexedAt:            &now,
		OriginalPrompt:       description,
		MarketingDescription: marketing,
	}
	if visibility == storage.VisibilityPrivate && p.privateTTL > 0 {
		expiresAt := now.Add(p.privateTTL)
		md.ExpiresAt = &expiresAt
	}
	return md
}

func (p *Pipeline) transition(s State) {
	if p.onState != nil {
		p.onState(s)
	}
}
