package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/triesearch/internal/config"
	"github.com/nao1215/triesearch/internal/index"
	"github.com/nao1215/triesearch/internal/report"
)

// exitCommand ends the interactive loop.
const exitCommand = "exit"

// NewShellCmd creates the shell command.
func NewShellCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Build an index and query it interactively",
		Long: `Shell builds a word index once and then reads search patterns from
standard input, one per line, until 'exit' or end of input.

Without --url, --from-db or --run the shell asks for a starting URL and a crawl
depth first. Patterns are lowercased; '*' matches exactly one character.

Examples:
  triesearch shell -u https://example.com -d 2
  triesearch shell --from-db
  triesearch shell --run 3`,
		Args: cobra.NoArgs,
		RunE: runShellCmd,
	}

	addCrawlFlags(cmd)
	addIndexFlags(cmd)

	return cmd
}

// runShellCmd executes the shell command.
func runShellCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd, nil)
	if err != nil {
		return err
	}

	in := bufio.NewScanner(cmd.InOrStdin())
	out := cmd.OutOrStdout()

	if len(cfg.Seeds) == 0 && !cfg.FromDB {
		if err := promptSeed(in, out, cfg, !cmd.Flags().Changed("depth")); err != nil {
			return err
		}
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

	idx, err := buildIndex(ctx, cfg, logger, out)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "Index built successfully!")

	return runShell(ctx, idx, in, out)
}

// promptSeed asks for the starting URL and, if askDepth is set, the crawl
// depth. Invalid depths are asked again.
func promptSeed(in *bufio.Scanner, out io.Writer, cfg *config.Config, askDepth bool) error {
	seed, err := prompt(in, out, "Enter the starting URL", "")
	if err != nil {
		return err
	}
	if seed != "" {
		cfg.Seeds = []string{seed}
	}

	if !askDepth {
		return nil
	}
	for {
		raw, err := prompt(in, out, "Enter the maximum depth", strconv.Itoa(cfg.CrawlDepth))
		if err != nil {
			return err
		}
		depth, err := strconv.Atoi(raw)
		if err == nil && depth >= 0 {
			cfg.CrawlDepth = depth
			return nil
		}
		fmt.Fprintln(out, "Invalid input. Please enter a valid non-negative integer.")
	}
}

// prompt prints label and reads one trimmed line. An empty answer yields
// def. End of input is io.ErrUnexpectedEOF.
func prompt(in *bufio.Scanner, out io.Writer, label, def string) (string, error) {
	if def != "" {
		fmt.Fprintf(out, "%s [%s]: ", label, def)
	} else {
		fmt.Fprintf(out, "%s: ", label)
	}

	if !in.Scan() {
		if err := in.Err(); err != nil {
			return "", err
		}
		return "", io.ErrUnexpectedEOF
	}

	answer := strings.TrimSpace(in.Text())
	if answer == "" {
		return def, nil
	}
	return answer, nil
}

// runShell answers queries read from in until "exit", end of input or
// cancellation.
func runShell(ctx context.Context, idx *index.Index, in *bufio.Scanner, out io.Writer) error {
	writer := report.NewSimpleWriter(out)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		query, err := prompt(in, out, "Enter a search query (or type 'exit' to quit)", "")
		if errors.Is(err, io.ErrUnexpectedEOF) {
			fmt.Fprintln(out)
			break
		}
		if err != nil {
			return err
		}

		query = strings.ToLower(query)
		if query == exitCommand {
			break
		}
		if query == "" {
			continue
		}

		if _, err := writer.Write(idx.Report(query)); err != nil {
			return err
		}
	}

	fmt.Fprintln(out, "Goodbye!")
	return nil
}

