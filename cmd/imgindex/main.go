// Package main provides the imgindex CLI for ingesting and searching images.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/bull/imgindex-server/internal/app"
	"github.com/bull/imgindex-server/internal/blob"
	"github.com/bull/imgindex-server/internal/config"
	ghclient "github.com/bull/imgindex-server/internal/github"
	"github.com/bull/imgindex-server/internal/indexer"
	"github.com/bull/imgindex-server/internal/search"
	"github.com/bull/imgindex-server/internal/storage"
	"github.com/bull/imgindex-server/internal/workflow"
)

const envHelp = `Environment variables:
  QDRANT_HOST      Qdrant hostname (default: localhost)
  QDRANT_PORT      Qdrant gRPC port (default: 6334)
  OPENAI_API_KEY   OpenAI API key for descriptions and embeddings (required)
  S3_ENDPOINT      Object storage endpoint (default: localhost:9000)
  S3_BUCKET        Bucket for uploaded images (default: images)
  S3_PUBLIC_URL    Public base URL of the bucket (optional)`

var rootCmd = &cobra.Command{
	Use:   "imgindex",
	Short: "Image ingestion and search tool",
	Long:  "CLI tool for uploading, describing and indexing images, and searching the index in Qdrant",
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>...",
	Short: "Upload, describe and index local image files",
	Long: `Runs each file through the ingestion pipeline:

1. Uploads the file to object storage
2. Generates a description with the vision model
3. Derives a title and marketing description
4. Indexes the marketing description in Qdrant

` + envHelp,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search indexed images",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Ingest system images from a GitHub directory",
	Long: `Lists image files below a GitHub repository directory and runs each one
through the ingestion pipeline with source=system.

` + envHelp + `
  GITHUB_TOKEN       GitHub token for higher rate limits (optional)
  SEED_GITHUB_OWNER  Repository owner (or --owner)
  SEED_GITHUB_REPO   Repository name (or --repo)
  SEED_GITHUB_PATH   Directory to seed from (default: images)
  SEED_GITHUB_REF    Branch, tag or commit (default: repository default branch)`,
	RunE: runSeed,
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete and recreate the image collection",
	RunE:  runReset,
}

var (
	visibility string
	userID     string
	seedOwner  string
	seedRepo   string
	seedPath   string
	seedRef    string
	verbose    bool
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log pipeline steps")

	ingestCmd.Flags().StringVar(&visibility, "visibility", "public", "visibility of the ingested images (public or private)")
	ingestCmd.Flags().StringVar(&userID, "user-id", "", "owner of the ingested images")

	seedCmd.Flags().StringVar(&seedOwner, "owner", "", "GitHub repository owner")
	seedCmd.Flags().StringVar(&seedRepo, "repo", "", "GitHub repository name")
	seedCmd.Flags().StringVar(&seedPath, "path", "", "directory within the repository")
	seedCmd.Flags().StringVar(&seedRef, "ref", "", "branch, tag or commit")

	rootCmd.AddCommand(ingestCmd, searchCmd, seedCmd, resetCmd)
}

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	config.LoadDotEnv()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		cancel()
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func setup(ctx context.Context) (*config.Config, *app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("Invalid configuration: %w", err)
	}

	fmt.Printf("Connecting to Qdrant at %s:%d...\n", cfg.QdrantHost, cfg.QdrantPort)
	a, err := app.New(ctx, cfg, newLogger())
	if err != nil {
		return nil, nil, err
	}
	if err := a.Store.Health(ctx); err != nil {
		a.Close()
		return nil, nil, fmt.Errorf("Qdrant health check failed: %w", err)
	}
	fmt.Println("Qdrant healthy")
	fmt.Println()

	return cfg, a, nil
}

// failure records an image that could not be processed.
type failure struct {
	Name   string
	Reason string
	Fatal  bool
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	start := time.Now()

	vis := storage.Visibility(visibility)
	if vis != storage.VisibilityPublic && vis != storage.VisibilityPrivate {
		return fmt.Errorf("invalid visibility %q", visibility)
	}

	_, a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	attr := indexer.Attribution{Source: storage.SourceUser, Visibility: vis, UserID: userID}

	var failures []failure
	for i, name := range args {
		fmt.Printf("[%d/%d] %s\n", i+1, len(args), name)

		data, err := os.ReadFile(name)
		if err != nil {
			failures = append(failures, failure{Name: name, Reason: err.Error(), Fatal: true})
			continue
		}

		file := blob.File{Data: data, Name: filepath.Base(name), Size: int64(len(data))}
		if f, ok := process(ctx, a.Pipeline, file, attr); !ok {
			failures = append(failures, f)
		}
	}

	printSummary(len(args), failures, start)
	return nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	_, a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	resp := a.Search.Run(ctx, search.Form{Search: strings.Join(args, " ")})
	if resp.Error != "" {
		return errors.New(resp.Error)
	}

	if len(resp.Data) == 0 {
		fmt.Println("No matching images found.")
		return nil
	}

	for i, obj := range resp.Data {
		fmt.Printf("%2d. %s\n    %s\n", i+1, obj.Pathname, obj.URL)
	}
	return nil
}

func runSeed(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	start := time.Now()

	fmt.Println("Starting seed...")
	fmt.Println()

	cfg, a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	owner := firstNonEmpty(seedOwner, cfg.SeedOwner)
	repo := firstNonEmpty(seedRepo, cfg.SeedRepo)
	if owner == "" || repo == "" {
		return fmt.Errorf("a GitHub owner and repository are required (--owner/--repo or SEED_GITHUB_OWNER/SEED_GITHUB_REPO)")
	}

	ghClient, err := ghclient.NewClient(cfg.GitHubToken)
	if err != nil {
		return fmt.Errorf("Failed to create GitHub client: %w", err)
	}
	fetcher := ghclient.NewFetcher(ghClient, owner, repo,
		firstNonEmpty(seedPath, cfg.SeedPath), firstNonEmpty(seedRef, cfg.SeedRef))

	fmt.Printf("Listing images in %s/%s...\n", owner, repo)
	paths, err := fetcher.ListImages(ctx)
	if err != nil {
		return fmt.Errorf("Failed to list images: %w", err)
	}
	fmt.Printf("Found %d images\n", len(paths))
	fmt.Println()

	attr := indexer.Attribution{Source: storage.SourceSystem, Visibility: storage.VisibilityPublic}

	var failures []failure
	for i, p := range paths {
		fmt.Printf("[%d/%d] %s\n", i+1, len(paths), p)

		file, err := fetcher.FetchImage(ctx, p)
		if err != nil {
			failures = append(failures, failure{Name: p, Reason: err.Error()})
			continue
		}
		if f, ok := process(ctx, a.Pipeline, file, attr); !ok {
			f.Name = p
			failures = append(failures, f)
		}
	}

	printSummary(len(paths), failures, start)
	return nil
}

func runReset(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	_, a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Println("Clearing image collection...")
	if err := a.Store.ClearCollection(ctx); err != nil {
		return fmt.Errorf("Failed to clear collection: %w", err)
	}
	fmt.Println("Collection cleared")
	return nil
}

func process(ctx context.Context, p *indexer.Pipeline, file blob.File, attr indexer.Attribution) (failure, bool) {
	result, err := p.Process(ctx, file, attr)
	if err != nil {
		fmt.Printf("  failed: %v\n", err)
		return failure{Name: file.Name, Reason: err.Error(), Fatal: workflow.IsFatal(err)}, false
	}
	fmt.Printf("  %s (%s)\n", result.Pathname, result.ProcessingTime.Round(time.Millisecond))
	return failure{}, true
}

func printSummary(total int, failures []failure, start time.Time) {
	fmt.Println()
	fmt.Println("Done!")
	fmt.Printf("  Images: %d/%d\n", total-len(failures), total)
	fmt.Printf("  Duration: %s\n", time.Since(start).Round(time.Second))

	if len(failures) > 0 {
		fmt.Println()
		fmt.Println("Failed images:")
		for _, f := range failures {
			kind := "retryable"
			if f.Fatal {
				kind = "fatal"
			}
			fmt.Printf("  - %s [%s]: %s\n", f.Name, kind, f.Reason)
		}
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
