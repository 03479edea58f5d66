package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/nao1215/triesearch/internal/config"
	"github.com/nao1215/triesearch/internal/pipeline"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl <url>...",
		Short: "Crawl sites and store their pages",
		Long: `Crawl fetches each seed breadth-first up to --depth links away, extracts
the visible words of every page and stores the pages in the page database.
The stored crawl can later be indexed with 'search --from-db' or
'shell --from-db' without fetching anything.

Links are only followed within the seed's host unless --allow lists other
URL prefixes.

Examples:
  # Crawl a site two links deep
  triesearch crawl -d 2 https://example.com

  # Crawl several sites, four at a time
  triesearch crawl -b 4 https://a.example https://b.example

  # Crawl an onion service through an embedded Tor daemon
  triesearch crawl --tor exampleonion.onion

  # Use an existing Tor SOCKS proxy
  triesearch crawl --proxy 127.0.0.1:9050 exampleonion.onion`,
		Args: cobra.MinimumNArgs(1),
		RunE: runCrawlCmd,
	}

	addCrawlFlags(cmd)

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	cfg.SaveToDB = true

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if err := normalizeSeeds(cfg); err != nil {
		return err
	}

	logger := setupLogger(cmd, cfg.Verbose)

	ctx, cancel := signalContext(logger)
	defer cancel()

	return runCrawl(ctx, cfg, logger, cmd.OutOrStdout())
}

// runCrawl crawls every seed and stores the results.
func runCrawl(ctx context.Context, cfg *config.Config, logger *slog.Logger, out io.Writer) error {
	store, err := openStore(cfg, true)
	if err != nil {
		return err
	}
	defer store.Close()

	client, release, err := newClient(ctx, cfg, logger, out)
	if err != nil {
		return err
	}
	defer release()

	fmt.Fprintf(out, "Crawling %d seed(s)...\n", len(cfg.Seeds))

	bp := pipeline.NewBatchProcessor(
		pipelineFactory(cfg, client, store, logger),
		pipeline.WithBatchLogger(logger),
		pipeline.WithConcurrency(cfg.BatchSize),
	)

	reports, err := bp.ProcessBatch(ctx, cfg.Seeds)
	printReports(out, reports)
	if err != nil {
		return err
	}

	failed := 0
	for _, r := range reports {
		if r != nil && r.Error != nil {
			failed++
		}
	}
	if failed == len(reports) {
		return fmt.Errorf("all %d seed(s) failed", failed)
	}

	fmt.Fprintf(out, "Pages stored in %s\n", store.Path())
	return nil
}
