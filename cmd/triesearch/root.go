package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for triesearch.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "triesearch",
		Short: "Crawl sites into a trie-backed word index and search it",
		Long: `triesearch crawls web sites breadth-first, indexes every word it finds
in a trie keyed by lowercased word, and answers queries where '*' matches
exactly one character.

Crawled pages are stored in a local SQLite database so an index can be
rebuilt later without crawling again (--from-db, --run). Onion services are
reachable through an embedded Tor daemon (--tor) or an existing SOCKS5
proxy (--proxy).`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON")

	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewSearchCmd())
	cmd.AddCommand(NewShellCmd())
	cmd.AddCommand(NewRunsCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
