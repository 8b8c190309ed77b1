// Package main provides the uwp-index CLI for crawling, indexing and querying the UW-Parkside website.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/bull/uwp-rag-server/internal/bootstrap"
	"github.com/bull/uwp-rag-server/internal/config"
	"github.com/bull/uwp-rag-server/internal/crawler"
	"github.com/bull/uwp-rag-server/internal/docstore"
	"github.com/bull/uwp-rag-server/internal/indexer"
	"github.com/bull/uwp-rag-server/internal/logger"
	mcpserver "github.com/bull/uwp-rag-server/internal/mcp"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:          "uwp-index",
	Short:        "UW-Parkside website indexing tool",
	Long:         "CLI tool for crawling the UW-Parkside website, building the vector index and asking questions against it",
	SilenceUsage: true,
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Crawl the website into a JSONL document file",
	Long: `Crawls the website breadth-first from the seed URL and writes one JSON document
per line ({url, title, text}).

Pages disallowed by robots.txt, pages outside the allowed domain and pages with
fewer than 80 words are skipped.

Environment variables:
  CRAWL_SEED_URL        Start URL (default: https://www.uwp.edu/)
  CRAWL_ALLOWED_DOMAIN  Domain to stay within (default: uwp.edu)
  CRAWL_THROTTLE_MS     Delay between requests (default: 350)
  DATA_DIR              Output directory (default: data)`,
	Args: cobra.NoArgs,
	RunE: runScrape,
}

var buildIndexCmd = &cobra.Command{
	Use:   "build-index",
	Short: "Chunk, embed and store documents in the vector collection",
	Long: `Reads a JSONL document file and rebuilds the vector collection from it.

This command:
1. Connects to the vector store and verifies health
2. Drops and recreates the collection (unless --no-reset)
3. Splits each document into token chunks
4. Embeds chunks in batches and stores them
5. Writes build statistics as JSON

Environment variables:
  QDRANT_HOST    Qdrant hostname (default: localhost)
  QDRANT_PORT    Qdrant gRPC port (default: 6334)
  OPENAI_API_KEY OpenAI API key for embeddings (required)`,
	Args: cobra.NoArgs,
	RunE: runBuildIndex,
}

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question against the index",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the MCP tools over stdio",
	Long:  "Runs the Model Context Protocol server over stdin/stdout for local MCP clients",
	Args:  cobra.NoArgs,
	RunE:  runMCP,
}

var (
	scrapeMaxPages int
	scrapeOutput   string
	scrapeSeedURL  string

	buildInput       string
	buildStatsOutput string
	buildNoReset     bool

	askK int
)

func init() {
	scrapeCmd.Flags().IntVar(&scrapeMaxPages, "max-pages", 0, "maximum number of pages to keep (default: INGEST_MAX_PAGES)")
	scrapeCmd.Flags().StringVar(&scrapeOutput, "output", "", "output JSONL path (default: DATA_DIR/uwp_docs.jsonl)")
	scrapeCmd.Flags().StringVar(&scrapeSeedURL, "seed-url", "", "start URL (default: CRAWL_SEED_URL)")

	buildIndexCmd.Flags().StringVar(&buildInput, "input", "", "input JSONL path (default: DATA_DIR/uwp_docs.jsonl)")
	buildIndexCmd.Flags().StringVar(&buildStatsOutput, "stats-output", "", "stats JSON path (default: DATA_DIR/stats.json)")
	buildIndexCmd.Flags().BoolVar(&buildNoReset, "no-reset", false, "keep the existing collection and upsert into it")

	askCmd.Flags().IntVarP(&askK, "k", "k", 5, "number of passages to retrieve (1-20)")

	rootCmd.AddCommand(scrapeCmd, buildIndexCmd, askCmd, mcpCmd)
}

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
}

func runScrape(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()
	start := time.Now()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(os.Stderr, cfg.Logging.Level)

	crawlCfg := crawler.Config{
		SeedURL:       cfg.Ingest.SeedURL,
		AllowedDomain: cfg.Ingest.AllowedDomain,
		MaxPages:      cfg.Ingest.MaxPages,
		Throttle:      time.Duration(cfg.Ingest.ThrottleMillis) * time.Millisecond,
	}
	if scrapeMaxPages > 0 {
		crawlCfg.MaxPages = scrapeMaxPages
	}
	if scrapeSeedURL != "" {
		crawlCfg.SeedURL = scrapeSeedURL
	}
	output := scrapeOutput
	if output == "" {
		output = cfg.DocsPath()
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Crawling %s (max %d pages)...\n", crawlCfg.SeedURL, crawlCfg.MaxPages)

	docs, err := crawler.New(crawlCfg, log).Crawl(ctx)
	if err != nil {
		return fmt.Errorf("Crawl failed: %w", err)
	}
	if err := docstore.Write(output, docs); err != nil {
		return fmt.Errorf("Failed to write documents: %w", err)
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Scrape complete!")
	fmt.Fprintf(out, "  Pages: %d\n", len(docs))
	fmt.Fprintf(out, "  Output: %s\n", output)
	fmt.Fprintf(out, "  Duration: %s\n", time.Since(start).Round(time.Second))
	return nil
}

func runBuildIndex(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()
	start := time.Now()

	app, err := bootstrap.New(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	input := buildInput
	if input == "" {
		input = app.Config.DocsPath()
	}
	statsOutput := buildStatsOutput
	if statsOutput == "" {
		statsOutput = app.Config.StatsPath()
	}

	out := cmd.OutOrStdout()
	docs, err := docstore.Read(input)
	if err != nil {
		return fmt.Errorf("Failed to read documents: %w", err)
	}
	fmt.Fprintf(out, "Indexing %d documents into collection %q...\n", len(docs), app.Store.CollectionName())

	stats, err := app.Builder.BuildIndex(ctx, docs, !buildNoReset)
	if err != nil {
		return fmt.Errorf("Indexing failed: %w", err)
	}
	if err := indexer.SaveStats(statsOutput, stats); err != nil {
		return fmt.Errorf("Failed to write stats: %w", err)
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Index complete!")
	fmt.Fprintf(out, "  Documents: %d\n", stats.TotalDocuments)
	fmt.Fprintf(out, "  Chunks: %d\n", stats.TotalChunks)
	fmt.Fprintf(out, "  Model: %s\n", stats.EmbedModel)
	fmt.Fprintf(out, "  Stats: %s\n", statsOutput)
	fmt.Fprintf(out, "  Duration: %s\n", time.Since(start).Round(time.Second))
	return nil
}

func runAsk(cmd *cobra.Command, args []string) error {
	if askK < 1 || askK > 20 {
		return fmt.Errorf("--k must be between 1 and 20")
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	app, err := bootstrap.New(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	res, err := app.Answers.Answer(ctx, strings.Join(args, " "), askK)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, res.Answer)
	if len(res.Sources) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Sources:")
		for i, src := range res.Sources {
			fmt.Fprintf(out, "  [%d] %s - %s\n", i+1, src.Title, src.URL)
		}
	}
	return nil
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()

	app, err := bootstrap.New(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	server := mcpserver.NewServer(&mcpserver.Config{
		Answerer: app.Answers,
		Searcher: app.Retriever,
		Status:   app.NewRunner(ctx),
		Version:  version,
	})

	app.Logger.Info("Starting UW-Parkside MCP server (stdio mode)")
	return server.Run(ctx)
}
