package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/nao1215/triesearch/internal/config"
)

// NewSearchCmd creates the search command.
func NewSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <pattern>...",
		Short: "Build an index and run queries against it",
		Long: `Search builds a word index, either by crawling the --url seeds or from the
latest stored crawl of each seed (--from-db), and runs every pattern
against it.

A pattern is a word where '*' matches exactly one character, so "c*t"
finds "cat" and "cot" but not "coat". Patterns are lowercased before
searching. Every character other than the letters a-z is treated as the
same character.

Examples:
  # Crawl a site and look up one word
  triesearch search -u https://example.com domain

  # Several patterns against the stored crawls
  triesearch search --from-db "c*t" "h*ll*"

  # JSON report written to a file
  triesearch search --from-db --json -o out/result.json "c*t"`,
		Args: cobra.MinimumNArgs(1),
		RunE: runSearchCmd,
	}

	addCrawlFlags(cmd)
	addIndexFlags(cmd)

	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	return cmd
}

// runSearchCmd executes the search command.
func runSearchCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, nil)
	if err != nil {
		return err
	}
	if err := applyReportFlags(cmd, cfg); err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if err := normalizeSeeds(cfg); err != nil {
		return err
	}

	logger := setupLogger(cmd, cfg.Verbose)

	ctx, cancel := signalContext(logger)
	defer cancel()

	return runSearch(ctx, cfg, args, logger, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// applyReportFlags reads the report format flags.
func applyReportFlags(cmd *cobra.Command, cfg *config.Config) error {
	var err error
	if cfg.JSONReport, err = cmd.Flags().GetBool("json"); err != nil {
		return err
	}
	if cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown"); err != nil {
		return err
	}
	if cfg.ReportFile, err = cmd.Flags().GetString("output"); err != nil {
		return err
	}
	return nil
}

// runSearch builds the index and writes one report per pattern. Progress
// goes to progress so that stdout only carries reports.
func runSearch(
	ctx context.Context,
	cfg *config.Config,
	patterns []string,
	logger *slog.Logger,
	stdout, progress io.Writer,
) error {
	idx, err := buildIndex(ctx, cfg, logger, progress)
	if err != nil {
		return err
	}

	writer, closeOutput, err := newReportWriter(cfg, stdout)
	if err != nil {
		return err
	}

	for _, pattern := range patterns {
		if _, err := writer.Write(idx.Report(pattern)); err != nil {
			_ = closeOutput() //nolint:errcheck // the write error is reported
			return fmt.Errorf("failed to write report: %w", err)
		}
	}

	if err := closeOutput(); err != nil {
		return fmt.Errorf("failed to close report file: %w", err)
	}
	if cfg.ReportFile != "" {
		fmt.Fprintf(progress, "Report written to %s\n", cfg.ReportFile)
	}
	return nil
}
