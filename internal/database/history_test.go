package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nao1215/linkcheck/internal/model"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) *HistoryDB {
	t.Helper()

	db, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newRun(startURL string, startedAt time.Time, broken ...string) *model.Result {
	r := model.NewResult(startURL)
	r.StartedAt = startedAt
	r.Duration = 1500 * time.Millisecond
	r.OK = 3
	for _, u := range broken {
		r.Failures = append(r.Failures, model.BrokenLink{
			URL:       u,
			Code:      "404",
			Referrers: []string{startURL},
		})
	}
	r.Broken = len(broken)
	r.Registered = r.OK + r.Broken
	return r
}

func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "newdir", "subdir")
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if _, err := os.Stat(filepath.Join(dbDir, "linkcheck.db")); os.IsNotExist(err) {
			t.Error("database file was not created")
		}
		if db.Path() != filepath.Join(dbDir, "linkcheck.db") {
			t.Errorf("Path() = %q", db.Path())
		}
	})

	t.Run("CreateIfNotExists=false returns error when database does not exist", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "missing")
		_, err := Open(dbDir, Options{CreateIfNotExists: false})
		if err == nil {
			t.Fatal("expected error for missing database")
		}
		if _, statErr := os.Stat(dbDir); !os.IsNotExist(statErr) {
			t.Error("directory should not have been created")
		}
	})

	t.Run("CreateIfNotExists=false opens existing database", func(t *testing.T) {
		t.Parallel()

		dbDir := t.TempDir()
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		_ = db.Close()

		db, err = Open(dbDir, Options{CreateIfNotExists: false, EnableWAL: true})
		if err != nil {
			t.Fatalf("failed to reopen database: %v", err)
		}
		_ = db.Close()
	})
}

func TestSaveAndGetRun(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	run := newRun("http://localhost:8080/", time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC), "http://localhost:8080/gone")
	if err := db.SaveResult(ctx, run); err != nil {
		t.Fatalf("SaveResult() error = %v", err)
	}

	got, err := db.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if got.StartURL != run.StartURL || got.OK != 3 || got.Broken != 1 || got.Registered != 4 {
		t.Errorf("GetRun() = %+v", got)
	}
	if len(got.Failures) != 1 || got.Failures[0].URL != "http://localhost:8080/gone" {
		t.Errorf("failures = %+v", got.Failures)
	}
	if got.Duration != run.Duration {
		t.Errorf("duration = %v, want %v", got.Duration, run.Duration)
	}

	t.Run("saving again replaces the run", func(t *testing.T) {
		run.OK = 4
		run.Registered = 5
		if err := db.SaveResult(ctx, run); err != nil {
			t.Fatalf("SaveResult() error = %v", err)
		}
		runs, err := db.ListRuns(ctx, run.StartURL, 0)
		if err != nil {
			t.Fatalf("ListRuns() error = %v", err)
		}
		if len(runs) != 1 || runs[0].OK != 4 {
			t.Errorf("runs = %+v", runs)
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := db.GetRun(ctx, "does-not-exist")
		if !errors.Is(err, ErrRunNotFound) {
			t.Errorf("GetRun() error = %v, want ErrRunNotFound", err)
		}
	})
}

func TestListRuns(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	site := "http://localhost:8080/"
	for i := range 3 {
		if err := db.SaveResult(ctx, newRun(site, base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("SaveResult() error = %v", err)
		}
	}
	if err := db.SaveResult(ctx, newRun("https://example.com/", base)); err != nil {
		t.Fatalf("SaveResult() error = %v", err)
	}

	runs, err := db.ListRuns(ctx, site, 0)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("got %d runs, want 3", len(runs))
	}
	if !runs[0].StartedAt.Equal(base.Add(2 * time.Hour)) {
		t.Errorf("newest run started at %v", runs[0].StartedAt)
	}
	if !runs[2].StartedAt.Equal(base) {
		t.Errorf("oldest run started at %v", runs[2].StartedAt)
	}

	limited, err := db.ListRuns(ctx, site, 2)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("got %d runs with limit 2", len(limited))
	}

	sites, err := db.ListSites(ctx)
	if err != nil {
		t.Fatalf("ListSites() error = %v", err)
	}
	if len(sites) != 2 || sites[0] != site || sites[1] != "https://example.com/" {
		t.Errorf("sites = %v", sites)
	}
}

func TestLatestResults(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()
	site := "http://localhost:8080/"
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	older := newRun(site, base, site+"a")
	newer := newRun(site, base.Add(time.Minute), site+"b")
	for _, r := range []*model.Result{newer, older} {
		if err := db.SaveResult(ctx, r); err != nil {
			t.Fatalf("SaveResult() error = %v", err)
		}
	}

	results, err := db.LatestResults(ctx, site, 2)
	if err != nil {
		t.Fatalf("LatestResults() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].ID != newer.ID || results[1].ID != older.ID {
		t.Errorf("results are not newest first")
	}

	diff := model.Diff(results[1], results[0])
	if len(diff.NewlyBroken) != 1 || len(diff.Fixed) != 1 {
		t.Errorf("diff = %+v", diff)
	}

	none, err := db.LatestResults(ctx, "https://unknown.example/", 2)
	if err != nil {
		t.Fatalf("LatestResults() error = %v", err)
	}
	if len(none) != 0 {
		t.Errorf("got %d results for unknown site", len(none))
	}
}

func TestDeleteRunsBefore(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()
	site := "http://localhost:8080/"
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	for _, at := range []time.Time{base, base.Add(24 * time.Hour), base.Add(48 * time.Hour)} {
		if err := db.SaveResult(ctx, newRun(site, at)); err != nil {
			t.Fatalf("SaveResult() error = %v", err)
		}
	}

	n, err := db.DeleteRunsBefore(ctx, base.Add(36*time.Hour))
	if err != nil {
		t.Fatalf("DeleteRunsBefore() error = %v", err)
	}
	if n != 2 {
		t.Errorf("deleted %d runs, want 2", n)
	}
	runs, err := db.ListRuns(ctx, site, 0)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 1 {
		t.Errorf("got %d runs left, want 1", len(runs))
	}
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want time.Time
	}{
		{"fixed width", "2025-03-01 10:00:00.250000", time.Date(2025, 3, 1, 10, 0, 0, 250000000, time.UTC)},
		{"sqlite default", "2025-03-01 10:00:00", time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)},
		{"rfc3339", "2025-03-01T10:00:00Z", time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)},
		{"garbage", "yesterday", time.Time{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := parseTimestamp(tt.in); !got.Equal(tt.want) {
				t.Errorf("parseTimestamp(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
