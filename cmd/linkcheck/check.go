package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/nao1215/linkcheck/internal/config"
	"github.com/nao1215/linkcheck/internal/crawler"
	"github.com/nao1215/linkcheck/internal/database"
	"github.com/nao1215/linkcheck/internal/log"
	"github.com/nao1215/linkcheck/internal/model"
	"github.com/nao1215/linkcheck/internal/pipeline"
	"github.com/nao1215/linkcheck/internal/report"
	"github.com/nao1215/linkcheck/internal/server"
	"github.com/spf13/cobra"
)

// NewCheckCmd creates the check command.
func NewCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [start-url...]",
		Short: "Check a site for broken links",
		Long: `Check crawls each start URL and reports every reference that does not
return 200 OK, together with the pages that contain it.

Pages whose URL begins with the start URL are parsed for more links. Other
URLs, including external sites, are fetched once and only their status is
checked. Redirects are not followed and count as broken.

If a start URL points at localhost or a loopback address, the directory
given by --root is served on that address while the check runs.

Progress is printed as one character per fetched URL: "." for a healthy
URL and "!" for a broken one. The exit status is 0 when nothing is broken,
1 when at least one link is broken, and 2 if the final counts do not add up
(a bug in linkcheck).

Examples:
  # Check a local build served from ./build
  linkcheck check http://localhost:8080/

  # Serve ./public instead
  linkcheck check -r public http://127.0.0.1:4000/

  # Check a deployed site, two requests per second at most
  linkcheck check --rate 2 https://example.com/docs/

  # Check several sites, two at a time, and write a Markdown report
  linkcheck check -b 2 -f markdown -o report.md https://example.com/ https://example.org/

Configuration file (.linkcheck) example:
  defaults:
    ignorePatterns:
      - "/drafts/*"
  sites:
    https://staging.example.com/:
      cookie: "preview=1"
      headers:
        Authorization: "Bearer token"`,
		Args: cobra.ArbitraryArgs,
		RunE: runCheckCmd,
	}

	// Crawl behavior flags
	cmd.Flags().IntP("concurrency", "c", config.DefaultConcurrency,
		"Maximum number of requests in flight per site")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each request")
	cmd.Flags().Float64("rate", config.DefaultRateLimit,
		"Maximum requests per second per site (0 means unlimited)")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header sent with every request")
	cmd.Flags().Int64("max-body", config.DefaultMaxBodySize,
		"Maximum number of bytes read from each page")

	// Local server flags
	cmd.Flags().StringP("root", "r", config.DefaultServeRoot,
		"Directory served when the start URL is a loopback address")
	cmd.Flags().Bool("no-serve", false,
		"Do not serve --root; use a server that is already running")

	// Batch flags
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of start URLs checked concurrently")

	// Configuration file
	cmd.Flags().String("config", "",
		"Configuration file path (default: .linkcheck in current or home directory)")

	// Report flags
	cmd.Flags().StringP("format", "f", config.FormatText,
		"Report format: text, json, markdown or csv")
	cmd.Flags().StringP("output", "o", "",
		"Also write the report to this file (creates directories if needed)")
	cmd.Flags().Bool("save", false,
		"Save the result to the history database")

	return cmd
}

// runCheckCmd executes the check command.
func runCheckCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := log.NewLogger(cmd.ErrOrStderr(), cfg.Verbose)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Warn("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return runCheck(ctx, cfg, logger, cmd.OutOrStdout())
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

// buildConfig creates a Config from cobra command flags and the
// configuration file.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	if cfg.Concurrency, err = flags.GetInt("concurrency"); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.RateLimit, err = flags.GetFloat64("rate"); err != nil {
		return nil, err
	}
	if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
		return nil, err
	}
	if cfg.MaxBodySize, err = flags.GetInt64("max-body"); err != nil {
		return nil, err
	}
	if cfg.ServeRoot, err = flags.GetString("root"); err != nil {
		return nil, err
	}
	if cfg.NoServe, err = flags.GetBool("no-serve"); err != nil {
		return nil, err
	}
	if cfg.BatchSize, err = flags.GetInt("batch"); err != nil {
		return nil, err
	}
	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}
	if cfg.Format, err = flags.GetString("format"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}
	if cfg.SaveToDB, err = flags.GetBool("save"); err != nil {
		return nil, err
	}
	cfg.Verbose = getVerboseFlag(cmd)
	cfg.StartURLs = args

	if err := cfg.Load(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// runCheck checks every start URL of cfg, writes the report, and returns
// the outcome of the check as an error.
func runCheck(ctx context.Context, cfg *config.Config, logger *slog.Logger, stdout io.Writer) error {
	logger.Info("starting check",
		"start_urls", cfg.StartURLs,
		"concurrency", cfg.Concurrency,
		"batch", cfg.BatchSize,
		"save", cfg.SaveToDB,
	)

	var db *database.HistoryDB
	if cfg.SaveToDB {
		var err error
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
	}

	// Servers stay up until the report has been written.
	servers := newServerSet(logger)
	defer servers.stopAll()

	// Concurrent checks share the progress line.
	progress := &lockedWriter{w: stdout}

	bp := pipeline.NewBatchProcessor(
		func(startURL string) (pipeline.Runner, error) {
			sc, err := newSiteCheck(cfg, startURL, servers, progress, logger)
			if err != nil {
				return nil, err
			}
			return sc, nil
		},
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(logger),
	)

	items, err := bp.ProcessBatch(ctx, cfg.StartURLs)
	if err != nil {
		// An interrupted check has no trustworthy tally, so nothing is reported.
		return fmt.Errorf("check interrupted: %w", err)
	}

	var errs []error
	for _, it := range items {
		if it.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", it.StartURL, it.Err))
		}
	}

	results := pipeline.Results(items)
	if len(results) > 0 {
		errs = append(errs, emitReport(cfg, stdout, results))
		if db != nil && report.Verify(results...) == nil {
			saveResults(ctx, db, results, logger)
		}
	}
	return errors.Join(errs...)
}

// lockedWriter serializes writes from concurrent checks.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// siteCheck runs one Checker, serving its build directory first when the
// start URL is local.
type siteCheck struct {
	checker *crawler.Checker
	root    string
	servers *serverSet
}

// newSiteCheck builds the check for one start URL from the global flags and
// the site's entry in the configuration file.
func newSiteCheck(cfg *config.Config, startURL string, servers *serverSet, progress io.Writer, logger *slog.Logger) (*siteCheck, error) {
	site := cfg.SiteConfigs.GetSiteConfig(startURL)

	concurrency := cfg.Concurrency
	if site.Concurrency > 0 {
		concurrency = site.Concurrency
	}

	fetcher := crawler.NewHTTPFetcher(
		crawler.WithTimeout(cfg.Timeout),
		crawler.WithUserAgent(cfg.UserAgent),
		crawler.WithMaxBodySize(cfg.MaxBodySize),
		crawler.WithHeaders(site.Headers),
		crawler.WithCookie(site.Cookie),
	)

	checker, err := crawler.NewChecker(startURL,
		crawler.WithFetcher(fetcher),
		crawler.WithConcurrency(concurrency),
		crawler.WithRateLimit(cfg.RateLimit),
		crawler.WithIgnorePatterns(site.IgnorePatterns),
		crawler.WithProgress(progress),
		crawler.WithLogger(logger.With("start_url", startURL)),
	)
	if err != nil {
		return nil, err
	}

	sc := &siteCheck{checker: checker, servers: servers}
	if !cfg.NoServe && server.IsLoopback(startURL) {
		sc.root = cfg.ServeRoot
		if site.ServeRoot != "" {
			sc.root = site.ServeRoot
		}
	}
	return sc, nil
}

// Run implements pipeline.Runner.
func (s *siteCheck) Run(ctx context.Context) (*model.Result, error) {
	if s.root != "" {
		if err := s.servers.ensure(ctx, s.root, s.checker.StartURL()); err != nil {
			return nil, err
		}
	}
	return s.checker.Run(ctx)
}

// emitReport writes the results in the configured format. Without
// --output the report goes to stdout; with it, stdout gets the text summary
// and the file gets the chosen format.
func emitReport(cfg *config.Config, stdout io.Writer, results []*model.Result) (err error) {
	if cfg.ReportFile == "" {
		w, err := report.NewWriter(cfg.Format, stdout, getVersion())
		if err != nil {
			return err
		}
		return report.Emit(w, results...)
	}

	dir := filepath.Dir(cfg.ReportFile)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	// Reports can carry URLs with preview tokens, so keep them owner-only.
	f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close output file: %w", cerr)
		}
	}()

	fileWriter, err := report.NewWriter(cfg.Format, f, getVersion())
	if err != nil {
		return err
	}
	return report.Emit(report.NewMultiWriter(report.NewSimpleWriter(stdout), fileWriter), results...)
}

// saveResults stores results in the history database. Failures are logged
// and do not change the outcome of the check.
func saveResults(ctx context.Context, db *database.HistoryDB, results []*model.Result, logger *slog.Logger) {
	for _, r := range results {
		if err := db.SaveResult(ctx, r); err != nil {
			logger.Error("failed to save result", "start_url", r.StartURL, "error", err)
			continue
		}
		logger.Info("result saved to history", "start_url", r.StartURL, "id", r.ID)
	}
}
