package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/nao1215/triesearch/internal/config"
	"github.com/nao1215/triesearch/internal/database"
)

var errInvalidRunID = errors.New("invalid run ID")

// NewRunsCmd creates the runs command, which lists stored crawl runs and
// has a delete subcommand.
func NewRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List stored crawl runs",
		Long: `Runs lists every crawl stored in the page database, newest first.

A run ID can be passed to 'search --run' or 'shell --run' to index that
crawl instead of the latest one of its seed.

Examples:
  triesearch runs
  triesearch runs delete 3 4`,
		Args: cobra.NoArgs,
		RunE: runRunsListCmd,
	}

	cmd.PersistentFlags().String("db-dir", config.XDGDataDir(), "Directory of the page database")
	cmd.AddCommand(newRunsDeleteCmd())

	return cmd
}

func newRunsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <run-id>...",
		Short: "Delete stored crawl runs and their pages",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runRunsDeleteCmd,
	}
}

// runsStore opens the existing page database named by --db-dir.
func runsStore(cmd *cobra.Command) (*database.PageStore, error) {
	cfg := config.NewConfig()

	var err error
	if cfg.DBDir, err = cmd.Flags().GetString("db-dir"); err != nil {
		return nil, err
	}
	return openStore(cfg, false)
}

// runRunsListCmd prints the stored runs.
func runRunsListCmd(cmd *cobra.Command, _ []string) error {
	store, err := runsStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.ListRuns(cmd.Context())
	if err != nil {
		return err
	}

	printRuns(cmd.OutOrStdout(), runs)
	return nil
}

// printRuns writes runs as an aligned list.
func printRuns(out io.Writer, runs []*database.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(out, "No stored crawl runs.")
		return
	}

	fmt.Fprintf(out, "Stored crawl runs (%d):\n\n", len(runs))
	fmt.Fprintf(out, "  %-6s  %-16s  %-5s  %-5s  %s\n", "ID", "Finished", "Pages", "Depth", "Seed")
	for _, run := range runs {
		fmt.Fprintf(out, "  %-6d  %-16s  %-5d  %-5d  %s\n",
			run.ID, formatRunTime(run), run.Pages, run.MaxDepth, run.Seed)
	}
}

// runRunsDeleteCmd deletes the runs named by args. All IDs are parsed
// before anything is deleted.
func runRunsDeleteCmd(cmd *cobra.Command, args []string) error {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil || id <= 0 {
			return fmt.Errorf("%w: %q", errInvalidRunID, arg)
		}
		ids = append(ids, id)
	}

	store, err := runsStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	out := cmd.OutOrStdout()
	for _, id := range ids {
		if err := store.DeleteRun(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Fprintf(out, "Deleted run #%d\n", id)
	}
	return nil
}
