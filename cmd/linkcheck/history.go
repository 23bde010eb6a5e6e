package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"time"

	"github.com/fatih/color"
	"github.com/nao1215/linkcheck/internal/config"
	"github.com/nao1215/linkcheck/internal/crawler"
	"github.com/nao1215/linkcheck/internal/database"
	"github.com/nao1215/linkcheck/internal/model"
	"github.com/nao1215/linkcheck/internal/report"
	"github.com/rodaine/table"
	"github.com/spf13/cobra"
)

// defaultHistoryLimit is the number of runs listed when --limit is not set.
const defaultHistoryLimit = 20

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [start-url]",
		Short: "Show saved link check results",
		Long: `History lists results saved with 'linkcheck check --save'.

Runs are grouped by start URL. With --diff, the two most recent runs of a
site are compared: links that broke since the previous run, links that are
still broken, and links that were fixed.

Examples:
  # List every site with saved runs
  linkcheck history --list-sites

  # List the runs of a site
  linkcheck history https://example.com/

  # Show what changed since the previous run
  linkcheck history --diff https://example.com/

  # Print the full report of one run
  linkcheck history --show <run-id>

  # Delete runs older than 30 days
  linkcheck history --prune 720h`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().BoolP("list-sites", "L", false,
		"List all start URLs with saved runs")
	cmd.Flags().BoolP("diff", "d", false,
		"Compare the two most recent runs of the start URL")
	cmd.Flags().IntP("limit", "n", defaultHistoryLimit,
		"Maximum number of runs to list (0 lists all)")
	cmd.Flags().StringP("show", "s", "",
		"Print the report of the run with this ID")
	cmd.Flags().Duration("prune", 0,
		"Delete runs older than this duration")

	return cmd
}

// historyOptions are the parsed flags of the history command.
type historyOptions struct {
	listSites bool
	diff      bool
	limit     int
	show      string
	prune     time.Duration
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	var opts historyOptions
	var err error
	if opts.listSites, err = cmd.Flags().GetBool("list-sites"); err != nil {
		return err
	}
	if opts.diff, err = cmd.Flags().GetBool("diff"); err != nil {
		return err
	}
	if opts.limit, err = cmd.Flags().GetInt("limit"); err != nil {
		return err
	}
	if opts.show, err = cmd.Flags().GetString("show"); err != nil {
		return err
	}
	if opts.prune, err = cmd.Flags().GetDuration("prune"); err != nil {
		return err
	}
	return runHistory(cmd.Context(), cmd.OutOrStdout(), config.XDGDataDir(), args, opts)
}

// runHistory opens the history database in dbDir and performs the action
// selected by opts.
func runHistory(ctx context.Context, out io.Writer, dbDir string, args []string, opts historyOptions) error {
	// Validate arguments before opening the database
	var site string
	if !opts.listSites && opts.prune == 0 && opts.show == "" {
		if len(args) == 0 {
			return errors.New("start URL is required (use --list-sites to see saved sites)")
		}
		normalized, ok := crawler.Normalize(args[0])
		if !ok {
			return fmt.Errorf("invalid start URL: %q", args[0])
		}
		site = normalized
	}

	db, err := database.Open(dbDir, database.Options{CreateIfNotExists: false, EnableWAL: true})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			fmt.Fprintln(out, "No saved results yet.")
			fmt.Fprintln(out, "\nUse 'linkcheck check --save <start-url>' to save a result.")
			return nil
		}
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	switch {
	case opts.prune > 0:
		return pruneHistory(ctx, out, db, opts.prune)
	case opts.show != "":
		return showRun(ctx, out, db, opts.show)
	case opts.listSites:
		return listSavedSites(ctx, out, db)
	case opts.diff:
		return showDiff(ctx, out, db, site)
	default:
		return listRuns(ctx, out, db, site, opts.limit)
	}
}

// listSavedSites prints every start URL with saved runs.
func listSavedSites(ctx context.Context, out io.Writer, db *database.HistoryDB) error {
	sites, err := db.ListSites(ctx)
	if err != nil {
		return err
	}
	if len(sites) == 0 {
		fmt.Fprintln(out, "No saved results yet.")
		return nil
	}

	fmt.Fprintf(out, "Sites with saved results (%d):\n\n", len(sites))
	for _, s := range sites {
		fmt.Fprintf(out, "  %s\n", s)
	}
	fmt.Fprintln(out, "\nUse 'linkcheck history <start-url>' to list the runs of a site.")
	return nil
}

// listRuns prints the runs of site as a table, newest first.
func listRuns(ctx context.Context, out io.Writer, db *database.HistoryDB, site string, limit int) error {
	runs, err := db.ListRuns(ctx, site, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintf(out, "No saved results for %s\n", site)
		return nil
	}

	fmt.Fprintf(out, "Saved results for %s (%d runs):\n\n", site, len(runs))
	tbl := newTable(out, "Started", "OK", "Broken", "Total", "Duration", "ID")
	for _, r := range runs {
		tbl.AddRow(
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.OK,
			r.Broken,
			r.Registered,
			r.Duration.Round(time.Millisecond),
			r.ID,
		)
	}
	tbl.Print()
	return nil
}

// showDiff compares the two most recent runs of site.
func showDiff(ctx context.Context, out io.Writer, db *database.HistoryDB, site string) error {
	results, err := db.LatestResults(ctx, site, 2)
	if err != nil {
		return err
	}
	if len(results) < 2 {
		return fmt.Errorf("at least 2 saved runs are required for comparison (found %d)", len(results))
	}
	current, previous := results[0], results[1]
	writeDiff(out, previous, current, model.Diff(previous, current))
	return nil
}

// writeDiff prints a RunDiff. Newly broken links come first since they are
// what a reader usually needs to act on.
func writeDiff(out io.Writer, previous, current *model.Result, d model.RunDiff) {
	const layout = "2006-01-02 15:04:05"
	fmt.Fprintf(out, "Comparing %s\n", current.StartURL)
	fmt.Fprintf(out, "  previous: %s  (%d broken)\n", previous.StartedAt.Local().Format(layout), previous.Broken)
	fmt.Fprintf(out, "  current:  %s  (%d broken)\n\n", current.StartedAt.Local().Format(layout), current.Broken)

	if !d.Changed() && len(d.StillBroken) == 0 {
		fmt.Fprintln(out, "No broken links in either run.")
		return
	}

	if len(d.NewlyBroken) > 0 {
		fmt.Fprintf(out, "Newly broken (%d):\n", len(d.NewlyBroken))
		tbl := newTable(out, "Code", "URL", "First referrer")
		for _, b := range d.NewlyBroken {
			tbl.AddRow(b.Code, b.URL, firstReferrer(b))
		}
		tbl.Print()
		fmt.Fprintln(out)
	}
	if len(d.StillBroken) > 0 {
		fmt.Fprintf(out, "Still broken (%d):\n", len(d.StillBroken))
		tbl := newTable(out, "Code", "URL", "First referrer")
		for _, b := range d.StillBroken {
			tbl.AddRow(b.Code, b.URL, firstReferrer(b))
		}
		tbl.Print()
		fmt.Fprintln(out)
	}
	if len(d.Fixed) > 0 {
		fmt.Fprintf(out, "Fixed (%d):\n", len(d.Fixed))
		for _, u := range d.Fixed {
			fmt.Fprintf(out, "  %s\n", u)
		}
	}
}

// showRun prints a stored run in the console report format.
func showRun(ctx context.Context, out io.Writer, db *database.HistoryDB, id string) error {
	r, err := db.GetRun(ctx, id)
	if err != nil {
		return err
	}
	_, err = report.NewSimpleWriter(out, report.WithVerbose(true)).Write(r)
	return err
}

// pruneHistory deletes runs older than age.
func pruneHistory(ctx context.Context, out io.Writer, db *database.HistoryDB, age time.Duration) error {
	n, err := db.DeleteRunsBefore(ctx, time.Now().Add(-age))
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Deleted %d runs older than %s\n", n, age)
	return nil
}

func firstReferrer(b model.BrokenLink) string {
	if len(b.Referrers) == 0 {
		return ""
	}
	return b.Referrers[0]
}

// newTable returns a table writing to out with an underlined header.
func newTable(out io.Writer, headers ...any) table.Table {
	header := color.New(color.FgGreen, color.Underline).SprintfFunc()
	return table.New(headers...).WithWriter(out).WithHeaderFormatter(header)
}
