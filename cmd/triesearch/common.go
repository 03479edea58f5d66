package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/triesearch/internal/config"
	"github.com/nao1215/triesearch/internal/database"
	"github.com/nao1215/triesearch/internal/index"
	"github.com/nao1215/triesearch/internal/log"
	"github.com/nao1215/triesearch/internal/model"
	"github.com/nao1215/triesearch/internal/pipeline"
	"github.com/nao1215/triesearch/internal/report"
	"github.com/nao1215/triesearch/internal/transport"
)

var (
	errInvalidSeed    = errors.New("invalid seed URL: expected an http or https URL")
	errOnionNeedsTor  = errors.New("onion seeds require --tor or --proxy")
	errNoStoredRuns   = errors.New("no stored crawls found (run 'triesearch crawl' first)")
	errNothingIndexed = errors.New("no pages were indexed")
)

// addCrawlFlags registers the flags shared by every command that crawls.
func addCrawlFlags(cmd *cobra.Command) {
	f := cmd.Flags()

	f.DurationP("timeout", "t", config.DefaultTimeout, "Timeout for each HTTP request")
	f.IntP("depth", "d", config.DefaultCrawlDepth, "Maximum link depth from the seed (0 fetches only the seed)")
	f.IntP("max-pages", "p", config.DefaultMaxPages, "Maximum number of pages per seed")
	f.IntP("batch", "b", config.DefaultBatchSize, "Number of seeds crawled concurrently")
	f.Duration("delay", config.DefaultCrawlDelay, "Delay between requests of one crawl")
	f.String("user-agent", config.DefaultUserAgent, "User-Agent header sent with every request")
	f.Int64("max-body-size", config.DefaultMaxBodySize, "Maximum response body size in bytes")
	f.StringSlice("allow", nil, "Only follow links starting with these URL prefixes (default: the seed's host)")
	f.Bool("follow-images", false, "Index EXIF text of linked JPEG images")

	f.String("proxy", "", "Route requests through a SOCKS5 proxy (e.g. "+config.DefaultTorProxyAddress+")")
	f.Bool("tor", false, "Start an embedded Tor daemon and route requests through it")
	f.Duration("tor-timeout", config.DefaultTorStartupTimeout, "Timeout for embedded Tor startup")
	f.Bool("insecure", false, "Skip TLS certificate verification")

	f.StringP("config", "c", "", "Configuration file path (default: .triesearch in current or home directory)")
	f.String("db-dir", config.XDGDataDir(), "Directory of the page database")
}

// addIndexFlags registers the flags of commands that build an index.
func addIndexFlags(cmd *cobra.Command) {
	f := cmd.Flags()

	f.StringSliceP("url", "u", nil, "Seed URL to crawl (repeatable)")
	f.Bool("from-db", false, "Build the index from the latest stored crawl of each seed instead of crawling")
	f.Int64Slice("run", nil, "Build the index from these stored crawl runs (see 'triesearch runs'); implies --from-db")
	f.Bool("save", false, "Also store crawled pages in the page database")
	f.StringSlice("stop-words", nil, "Words that are never indexed")
	f.Int("min-word-length", 0, "Skip words shorter than this many characters")
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// setupLogger creates the secure logger selected by the persistent flags.
func setupLogger(cmd *cobra.Command, verbose bool) *slog.Logger {
	jsonLogs, err := cmd.Flags().GetBool("log-json")
	if err != nil {
		jsonLogs = false
	}
	if jsonLogs {
		return log.NewSecureJSONLogger(cmd.ErrOrStderr(), verbose)
	}
	return log.NewSecureLogger(cmd.ErrOrStderr(), verbose)
}

// buildConfig creates a Config from the crawl flags, the index flags if the
// command has them, and the configuration file. seeds are added before the
// --url values.
func buildConfig(cmd *cobra.Command, seeds []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error

	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.CrawlDepth, err = flags.GetInt("depth"); err != nil {
		return nil, err
	}
	if cfg.MaxPages, err = flags.GetInt("max-pages"); err != nil {
		return nil, err
	}
	if cfg.BatchSize, err = flags.GetInt("batch"); err != nil {
		return nil, err
	}
	if cfg.CrawlDelay, err = flags.GetDuration("delay"); err != nil {
		return nil, err
	}
	if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
		return nil, err
	}
	if cfg.MaxBodySize, err = flags.GetInt64("max-body-size"); err != nil {
		return nil, err
	}
	if cfg.AllowedDomains, err = flags.GetStringSlice("allow"); err != nil {
		return nil, err
	}
	if cfg.FollowImages, err = flags.GetBool("follow-images"); err != nil {
		return nil, err
	}
	if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
		return nil, err
	}
	if cfg.UseTor, err = flags.GetBool("tor"); err != nil {
		return nil, err
	}
	if cfg.TorStartupTimeout, err = flags.GetDuration("tor-timeout"); err != nil {
		return nil, err
	}
	if cfg.InsecureTLS, err = flags.GetBool("insecure"); err != nil {
		return nil, err
	}
	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}
	if cfg.DBDir, err = flags.GetString("db-dir"); err != nil {
		return nil, err
	}
	cfg.Verbose = getVerboseFlag(cmd)

	cfg.Seeds = append(cfg.Seeds, seeds...)
	if flags.Lookup("from-db") != nil {
		if err := applyIndexFlags(cmd, cfg); err != nil {
			return nil, err
		}
	}

	// An explicit config path must exist; the default locations are optional.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		file, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		cfg.ApplyFile(file)
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	return cfg, nil
}

// applyIndexFlags reads the flags registered by addIndexFlags.
func applyIndexFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()

	urls, err := flags.GetStringSlice("url")
	if err != nil {
		return err
	}
	cfg.Seeds = append(cfg.Seeds, urls...)

	if cfg.FromDB, err = flags.GetBool("from-db"); err != nil {
		return err
	}
	if cfg.RunIDs, err = flags.GetInt64Slice("run"); err != nil {
		return err
	}
	if len(cfg.RunIDs) > 0 {
		cfg.FromDB = true
	}
	if cfg.SaveToDB, err = flags.GetBool("save"); err != nil {
		return err
	}
	if cfg.StopWords, err = flags.GetStringSlice("stop-words"); err != nil {
		return err
	}
	if cfg.MinWordLength, err = flags.GetInt("min-word-length"); err != nil {
		return err
	}
	return nil
}

// normalizeSeeds validates cfg.Seeds in place. A seed without a scheme
// gets http:// for onion hosts and https:// otherwise, and an empty path
// becomes "/".
func normalizeSeeds(cfg *config.Config) error {
	for i, raw := range cfg.Seeds {
		seed, err := normalizeSeed(raw)
		if err != nil {
			return err
		}
		u, _ := url.Parse(seed) //nolint:errcheck // normalizeSeed already parsed it
		if transport.IsOnionHost(u.Hostname()) && !cfg.UseTor && cfg.ProxyAddress == "" {
			return fmt.Errorf("%w: %s", errOnionNeedsTor, seed)
		}
		cfg.Seeds[i] = seed
	}
	return nil
}

// normalizeSeed turns one user-supplied seed into an absolute URL.
func normalizeSeed(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if !strings.Contains(raw, "://") {
		host := raw
		if i := strings.IndexAny(host, ":/"); i >= 0 {
			host = host[:i]
		}
		if transport.IsOnionHost(host) {
			raw = "http://" + raw
		} else {
			raw = "https://" + raw
		}
	}

	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%w: %q", errInvalidSeed, raw)
	}

	if transport.IsOnionHost(u.Hostname()) {
		if _, err := transport.NormalizeOnionHost(u.Hostname()); err != nil {
			return "", fmt.Errorf("invalid onion seed %q: %w", raw, err)
		}
	}

	if u.Path == "" {
		u.Path = "/"
	}
	return u.String(), nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Warn("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

// newClient creates the HTTP transport selected by cfg and returns a
// function that releases it.
func newClient(ctx context.Context, cfg *config.Config, logger *slog.Logger, out io.Writer) (*transport.Client, func(), error) {
	opts := []transport.ClientOption{transport.WithInsecureTLS(cfg.InsecureTLS)}

	switch {
	case cfg.UseTor:
		return startEmbeddedTor(ctx, cfg, logger, out, opts)

	case cfg.ProxyAddress != "":
		client, err := transport.NewProxyClient(cfg.ProxyAddress, cfg.Timeout, opts...)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create proxy client: %w", err)
		}
		if status := client.CheckConnection(ctx); status != transport.ProxyStatusOK {
			return nil, nil, fmt.Errorf("proxy check failed for %s: %w", cfg.ProxyAddress, status.Err())
		}
		logger.Info("proxy connection verified", "address", cfg.ProxyAddress)
		return client, func() {}, nil

	default:
		return transport.NewDirectClient(cfg.Timeout, opts...), func() {}, nil
	}
}

// startEmbeddedTor starts a Tor daemon and returns a client routed through it.
func startEmbeddedTor(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	out io.Writer,
	opts []transport.ClientOption,
) (*transport.Client, func(), error) {
	fmt.Fprintln(out, "Starting embedded Tor daemon...")
	fmt.Fprintf(out, "This may take 1-3 minutes while Tor bootstraps and connects to the network.\n\n")

	embeddedTor := transport.NewEmbeddedTor(transport.WithStartupTimeout(cfg.TorStartupTimeout))
	if err := embeddedTor.Start(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to start embedded Tor: %w", err)
	}

	stop := func() {
		logger.Info("stopping embedded Tor daemon")
		if err := embeddedTor.Stop(); err != nil {
			logger.Error("failed to stop embedded Tor", "error", err)
		}
	}

	client, err := embeddedTor.NewClient(cfg.Timeout, opts...)
	if err != nil {
		stop()
		return nil, nil, fmt.Errorf("failed to create Tor client: %w", err)
	}

	if status := client.CheckConnection(ctx); status != transport.ProxyStatusOK {
		stop()
		return nil, nil, fmt.Errorf("embedded Tor proxy check failed: %w", status.Err())
	}

	logger.Info("embedded Tor daemon started",
		"socks_addr", embeddedTor.SocksAddr(),
		"control_addr", embeddedTor.ControlAddr(),
	)
	fmt.Fprintf(out, "SOCKS proxy: %s\n\n", embeddedTor.SocksAddr())

	return client, stop, nil
}

// pipelineFactory returns the per-seed pipeline constructor. Site settings
// from the configuration file override the global depth for their host.
// store may be nil.
func pipelineFactory(
	cfg *config.Config,
	client *transport.Client,
	store *database.PageStore,
	logger *slog.Logger,
) func(seed string) *pipeline.Pipeline {
	return func(seed string) *pipeline.Pipeline {
		site := cfg.SiteConfig(seed)

		depth := cfg.CrawlDepth
		if site.Depth > 0 {
			depth = site.Depth
		}

		opts := []pipeline.DefaultPipelineOption{
			pipeline.WithPipelineCrawlDepth(depth),
			pipeline.WithPipelineCrawlMaxPages(cfg.MaxPages),
			pipeline.WithPipelineCrawlDelay(cfg.CrawlDelay),
			pipeline.WithPipelineUserAgent(cfg.UserAgent),
			pipeline.WithPipelineMaxBodySize(cfg.MaxBodySize),
			pipeline.WithPipelineAllowedDomains(cfg.AllowedDomains),
			pipeline.WithPipelineFollowImages(cfg.FollowImages),
			pipeline.WithPipelineCookie(site.Cookie),
			pipeline.WithPipelineHeaders(site.Headers),
			pipeline.WithPipelineIgnorePatterns(site.IgnorePatterns),
			pipeline.WithPipelineFollowPatterns(site.FollowPatterns),
		}
		if store != nil {
			opts = append(opts, pipeline.WithPipelineStore(store))
		}

		return pipeline.DefaultPipeline(client, []pipeline.Option{pipeline.WithLogger(logger)}, opts...)
	}
}

// openStore opens the page database in cfg.DBDir.
func openStore(cfg *config.Config, create bool) (*database.PageStore, error) {
	opts := database.DefaultOptions()
	opts.CreateIfNotExists = create

	store, err := database.Open(cfg.DBDir, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open page database in %s: %w", cfg.DBDir, err)
	}
	return store, nil
}

// buildIndex builds the word index either from stored crawls or by
// crawling cfg.Seeds, printing per-seed progress to out.
func buildIndex(ctx context.Context, cfg *config.Config, logger *slog.Logger, out io.Writer) (*index.Index, error) {
	builder := index.NewBuilder(
		index.WithLogger(logger),
		index.WithStopWords(cfg.StopWords),
		index.WithMinWordLength(cfg.MinWordLength),
	)

	var err error
	if cfg.FromDB {
		err = indexFromStore(ctx, cfg, builder, out)
	} else {
		err = indexFromCrawl(ctx, cfg, builder, logger, out)
	}
	if err != nil {
		return nil, err
	}

	stats := builder.Stats()
	if stats.Pages == 0 {
		return nil, errNothingIndexed
	}
	fmt.Fprintf(out, "Index built: %d word(s) from %d page(s).\n", stats.DistinctWords, stats.Pages)

	return builder.Index(), nil
}

// indexFromCrawl crawls the seeds concurrently and indexes the results.
func indexFromCrawl(ctx context.Context, cfg *config.Config, builder *index.Builder, logger *slog.Logger, out io.Writer) error {
	client, release, err := newClient(ctx, cfg, logger, out)
	if err != nil {
		return err
	}
	defer release()

	var store *database.PageStore
	if cfg.SaveToDB {
		if store, err = openStore(cfg, true); err != nil {
			return err
		}
		defer store.Close()
	}

	fmt.Fprintf(out, "Crawling %d seed(s) and building the index...\n", len(cfg.Seeds))

	bp := pipeline.NewBatchProcessor(
		pipelineFactory(cfg, client, store, logger),
		pipeline.WithBatchLogger(logger),
		pipeline.WithConcurrency(cfg.BatchSize),
	)
	reports, err := bp.BuildIndex(ctx, cfg.Seeds, builder)
	printReports(out, reports)
	return err
}

// indexFromStore indexes stored crawls selected by selectRuns.
func indexFromStore(ctx context.Context, cfg *config.Config, builder *index.Builder, out io.Writer) error {
	store, err := openStore(cfg, false)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := selectRuns(ctx, store, cfg)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		return errNoStoredRuns
	}

	for _, run := range runs {
		pages, err := store.LoadPages(ctx, run.ID)
		if err != nil {
			return fmt.Errorf("failed to load run %d: %w", run.ID, err)
		}

		result := model.NewCrawlResult(run.Seed, run.MaxDepth)
		for _, p := range pages {
			result.AddPage(p)
		}
		builder.AddResult(result)

		fmt.Fprintf(out, "  %s: %d page(s) from run #%d (%s)\n",
			run.Seed, len(pages), run.ID, formatRunTime(run))
	}
	return nil
}

// selectRuns picks the stored runs to index: the runs named by --run, else
// the latest finished run of every seed in cfg.Seeds, else the latest
// finished run of every stored seed. Seeds without a stored run are
// skipped; an unknown run ID is an error.
func selectRuns(ctx context.Context, store *database.PageStore, cfg *config.Config) ([]*database.Run, error) {
	switch {
	case len(cfg.RunIDs) > 0:
		runs := make([]*database.Run, 0, len(cfg.RunIDs))
		for _, id := range cfg.RunIDs {
			run, err := store.GetRun(ctx, id)
			if err != nil {
				return nil, err
			}
			runs = append(runs, run)
		}
		return runs, nil

	case len(cfg.Seeds) > 0:
		runs := make([]*database.Run, 0, len(cfg.Seeds))
		for _, seed := range cfg.Seeds {
			run, err := store.LatestRun(ctx, seed)
			if errors.Is(err, database.ErrRunNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			runs = append(runs, run)
		}
		return runs, nil

	default:
		runs, err := store.LatestRuns(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list stored crawls: %w", err)
		}
		return runs, nil
	}
}

// formatRunTime returns when run finished, or "in progress".
func formatRunTime(run *database.Run) string {
	if !run.Finished() {
		return "in progress"
	}
	return run.FinishedAt.Format("2006-01-02 15:04")
}

// printReports writes one line per seed. Seeds that never started are
// skipped.
func printReports(out io.Writer, reports []*model.IndexReport) {
	for _, r := range reports {
		if r == nil {
			continue
		}
		fmt.Fprintf(out, "  %s\n", formatReport(r))
	}
}

// formatReport summarizes one seed's pipeline run.
func formatReport(r *model.IndexReport) string {
	if r.Error != nil {
		return fmt.Sprintf("%s: error: %v", r.Seed, r.Error)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %d page(s)", r.Seed, len(r.Pages()))
	if r.WordsIndexed > 0 {
		fmt.Fprintf(&sb, ", %d word(s) indexed", r.WordsIndexed)
	}
	if r.RunID > 0 {
		fmt.Fprintf(&sb, " (run #%d)", r.RunID)
	}
	if r.Cancelled {
		sb.WriteString(" [cancelled]")
	}
	return sb.String()
}

// newReportWriter returns the writer selected by the report flags. Output
// goes to cfg.ReportFile if set, otherwise to stdout. The returned function
// closes the file.
func newReportWriter(cfg *config.Config, stdout io.Writer) (report.Writer, func() error, error) {
	output := stdout
	closeFn := func() error { return nil }

	if cfg.ReportFile != "" {
		if dir := filepath.Dir(cfg.ReportFile); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
			}
		}
		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create output file: %w", err)
		}
		output = f
		closeFn = f.Close
	}

	switch {
	case cfg.JSONReport:
		return report.NewJSONWriter(output, report.WithPrettyPrint()), closeFn, nil
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(output), closeFn, nil
	default:
		return report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose)), closeFn, nil
	}
}
