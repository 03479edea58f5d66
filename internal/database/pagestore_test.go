package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/nao1215/triesearch/internal/model"
)

// setupTestStore creates a temporary page store for testing.
func setupTestStore(t *testing.T) *PageStore {
	t.Helper()

	store, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func testPage(url string, depth int, words ...string) *model.Page {
	return &model.Page{
		URL:         url,
		Depth:       depth,
		StatusCode:  200,
		ContentType: "text/html",
		Title:       "title of " + url,
		Words:       words,
		Headers:     map[string][]string{"Server": {"nginx"}},
		Raw:         []byte("<p>" + url + "</p>"),
		FetchedAt:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

// TestOpen tests database opening and creation.
func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "newdir", "subdir")
		store, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer store.Close()

		if _, err := os.Stat(filepath.Join(dbDir, FileName)); os.IsNotExist(err) {
			t.Error("database file was not created")
		}
		if store.Path() != filepath.Join(dbDir, FileName) {
			t.Errorf("unexpected path %q", store.Path())
		}
	})

	t.Run("CreateIfNotExists=false returns error when database does not exist", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "nonexistent-db")

		_, err := Open(dbDir, Options{CreateIfNotExists: false, EnableWAL: true})
		if !errors.Is(err, ErrDatabaseNotFound) {
			t.Fatalf("expected ErrDatabaseNotFound, got %v", err)
		}
		if _, statErr := os.Stat(dbDir); !os.IsNotExist(statErr) {
			t.Error("database directory should not have been created")
		}
	})

	t.Run("CreateIfNotExists=false opens existing database", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		dbDir := filepath.Join(t.TempDir(), "existing-db")

		store1, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		runID, err := store1.StartRun(ctx, "https://example.com", 1)
		if err != nil {
			t.Fatalf("failed to start run: %v", err)
		}
		store1.Close()

		store2, err := Open(dbDir, Options{CreateIfNotExists: false, EnableWAL: true})
		if err != nil {
			t.Fatalf("failed to open existing database: %v", err)
		}
		defer store2.Close()

		if _, err := store2.GetRun(ctx, runID); err != nil {
			t.Errorf("expected run to persist: %v", err)
		}
	})
}

// TestDefaultOptions tests the default options values.
func TestDefaultOptions(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()
	if !opts.CreateIfNotExists || !opts.EnableWAL {
		t.Errorf("unexpected defaults: %+v", opts)
	}
}

// TestRuns tests the run lifecycle.
func TestRuns(t *testing.T) {
	t.Parallel()

	t.Run("start and finish", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		store := setupTestStore(t)

		runID, err := store.StartRun(ctx, "https://example.com", 2)
		if err != nil {
			t.Fatalf("failed to start run: %v", err)
		}

		run, err := store.GetRun(ctx, runID)
		if err != nil {
			t.Fatalf("failed to get run: %v", err)
		}
		if run.Finished() {
			t.Error("run should not be finished yet")
		}
		if run.Seed != "https://example.com" || run.MaxDepth != 2 {
			t.Errorf("unexpected run: %+v", run)
		}
		if _, err := store.LatestRun(ctx, "https://example.com"); !errors.Is(err, ErrRunNotFound) {
			t.Errorf("unfinished runs should not be latest, got %v", err)
		}

		if err := store.FinishRun(ctx, runID, 7); err != nil {
			t.Fatalf("failed to finish run: %v", err)
		}

		latest, err := store.LatestRun(ctx, "https://example.com")
		if err != nil {
			t.Fatalf("failed to get latest run: %v", err)
		}
		if latest.ID != runID || latest.Pages != 7 || !latest.Finished() {
			t.Errorf("unexpected latest run: %+v", latest)
		}
		if latest.FinishedAt.Before(latest.StartedAt) {
			t.Error("finish time before start time")
		}
	})

	t.Run("unknown run", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		store := setupTestStore(t)

		if err := store.FinishRun(ctx, 42, 0); !errors.Is(err, ErrRunNotFound) {
			t.Errorf("FinishRun: expected ErrRunNotFound, got %v", err)
		}
		if _, err := store.GetRun(ctx, 42); !errors.Is(err, ErrRunNotFound) {
			t.Errorf("GetRun: expected ErrRunNotFound, got %v", err)
		}
		if err := store.DeleteRun(ctx, 42); !errors.Is(err, ErrRunNotFound) {
			t.Errorf("DeleteRun: expected ErrRunNotFound, got %v", err)
		}
	})

	t.Run("latest run per seed", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		store := setupTestStore(t)

		var ids []int64
		for _, seed := range []string{"https://b.example", "https://a.example", "https://b.example"} {
			id, err := store.StartRun(ctx, seed, 1)
			if err != nil {
				t.Fatalf("failed to start run: %v", err)
			}
			if err := store.FinishRun(ctx, id, 1); err != nil {
				t.Fatalf("failed to finish run: %v", err)
			}
			ids = append(ids, id)
		}

		latest, err := store.LatestRuns(ctx)
		if err != nil {
			t.Fatalf("failed to get latest runs: %v", err)
		}
		got := make([]int64, 0, len(latest))
		for _, r := range latest {
			got = append(got, r.ID)
		}
		if diff := cmp.Diff([]int64{ids[1], ids[2]}, got); diff != "" {
			t.Errorf("latest runs mismatch (-want +got):\n%s", diff)
		}

		all, err := store.ListRuns(ctx)
		if err != nil {
			t.Fatalf("failed to list runs: %v", err)
		}
		if len(all) != 3 || all[0].ID != ids[2] {
			t.Errorf("expected newest first, got %d runs starting at %d", len(all), all[0].ID)
		}
	})
}

// TestPages tests saving and loading pages.
func TestPages(t *testing.T) {
	t.Parallel()

	t.Run("round trip in crawl order", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		store := setupTestStore(t)

		runID, err := store.StartRun(ctx, "https://example.com", 1)
		if err != nil {
			t.Fatalf("failed to start run: %v", err)
		}

		pages := []*model.Page{
			testPage("https://example.com/", 0, "Hello", "world"),
			testPage("https://example.com/b", 1, "bee"),
			testPage("https://example.com/a", 1),
		}
		for _, p := range pages {
			if err := store.SavePage(ctx, runID, p); err != nil {
				t.Fatalf("failed to save page: %v", err)
			}
		}

		loaded, err := store.LoadPages(ctx, runID)
		if err != nil {
			t.Fatalf("failed to load pages: %v", err)
		}
		if len(loaded) != 3 {
			t.Fatalf("expected 3 pages, got %d", len(loaded))
		}

		first := loaded[0]
		if first.URL != "https://example.com/" || first.Depth != 0 || first.Title != "title of https://example.com/" {
			t.Errorf("unexpected first page: %+v", first)
		}
		if diff := cmp.Diff([]string{"Hello", "world"}, first.Words); diff != "" {
			t.Errorf("words mismatch (-want +got):\n%s", diff)
		}
		if first.GetHeader("Server") != "nginx" {
			t.Errorf("expected Server header, got %v", first.Headers)
		}
		if first.Hash == "" || first.Hash != pages[0].Hash {
			t.Errorf("expected stored hash %q, got %q", pages[0].Hash, first.Hash)
		}
		if !first.FetchedAt.Equal(pages[0].FetchedAt) {
			t.Errorf("expected fetch time %v, got %v", pages[0].FetchedAt, first.FetchedAt)
		}
		if first.Raw != nil {
			t.Error("raw content should not be stored")
		}

		if loaded[1].URL != "https://example.com/b" || loaded[2].URL != "https://example.com/a" {
			t.Error("pages not returned in crawl order")
		}
		if loaded[2].Words == nil || len(loaded[2].Words) != 0 {
			t.Errorf("expected empty non-nil words, got %#v", loaded[2].Words)
		}
	})

	t.Run("upsert keeps position", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		store := setupTestStore(t)

		runID, err := store.StartRun(ctx, "https://example.com", 1)
		if err != nil {
			t.Fatalf("failed to start run: %v", err)
		}
		for _, p := range []*model.Page{
			testPage("https://example.com/1", 0, "old"),
			testPage("https://example.com/2", 1, "two"),
			testPage("https://example.com/1", 0, "new"),
		} {
			if err := store.SavePage(ctx, runID, p); err != nil {
				t.Fatalf("failed to save page: %v", err)
			}
		}

		loaded, err := store.LoadPages(ctx, runID)
		if err != nil {
			t.Fatalf("failed to load pages: %v", err)
		}
		if len(loaded) != 2 {
			t.Fatalf("expected 2 pages, got %d", len(loaded))
		}
		if loaded[0].URL != "https://example.com/1" || loaded[0].Words[0] != "new" {
			t.Errorf("unexpected upserted page: %+v", loaded[0])
		}
	})

	t.Run("runs are isolated", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		store := setupTestStore(t)

		run1, _ := store.StartRun(ctx, "https://example.com", 1) //nolint:errcheck
		run2, _ := store.StartRun(ctx, "https://example.com", 1) //nolint:errcheck

		if err := store.SavePage(ctx, run1, testPage("https://example.com/", 0, "one")); err != nil {
			t.Fatalf("failed to save page: %v", err)
		}

		loaded, err := store.LoadPages(ctx, run2)
		if err != nil {
			t.Fatalf("failed to load pages: %v", err)
		}
		if len(loaded) != 0 {
			t.Errorf("expected no pages in run 2, got %d", len(loaded))
		}
	})

	t.Run("delete run removes pages", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		store := setupTestStore(t)

		runID, _ := store.StartRun(ctx, "https://example.com", 1) //nolint:errcheck
		if err := store.SavePage(ctx, runID, testPage("https://example.com/", 0, "w")); err != nil {
			t.Fatalf("failed to save page: %v", err)
		}
		if err := store.DeleteRun(ctx, runID); err != nil {
			t.Fatalf("failed to delete run: %v", err)
		}

		loaded, err := store.LoadPages(ctx, runID)
		if err != nil {
			t.Fatalf("failed to load pages: %v", err)
		}
		if len(loaded) != 0 {
			t.Errorf("expected pages to be deleted, got %d", len(loaded))
		}
	})
}

// TestSaveCrawl tests storing a crawl result in one transaction.
func TestSaveCrawl(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := setupTestStore(t)

	result := model.NewCrawlResult("https://example.com", 1)
	result.AddPage(testPage("https://example.com/", 0, "root"))
	result.AddPage(testPage("https://example.com/x", 1, "x"))
	result.FinishedAt = time.Now()

	runID, err := store.SaveCrawl(ctx, result)
	if err != nil {
		t.Fatalf("failed to save crawl: %v", err)
	}

	run, err := store.LatestRun(ctx, "https://example.com")
	if err != nil {
		t.Fatalf("failed to get latest run: %v", err)
	}
	if run.ID != runID || run.Pages != 2 || run.MaxDepth != 1 {
		t.Errorf("unexpected run: %+v", run)
	}

	loaded, err := store.LoadPages(ctx, runID)
	if err != nil {
		t.Fatalf("failed to load pages: %v", err)
	}
	got := make(map[string][]string)
	for _, p := range loaded {
		got[p.URL] = p.Words
	}
	if diff := cmp.Diff(result.Words(), got); diff != "" {
		t.Errorf("words mismatch (-want +got):\n%s", diff)
	}
}

// TestParseTimestamp tests timestamp parsing.
func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	want := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	tests := []string{
		"2026-03-04T05:06:07Z",
		"2026-03-04 05:06:07",
		"2026-03-04T05:06:07",
	}
	for _, s := range tests {
		if got := parseTimestamp(s); !got.Equal(want) {
			t.Errorf("parseTimestamp(%q) = %v, want %v", s, got, want)
		}
	}

	if !parseTimestamp("").IsZero() || !parseTimestamp("garbage").IsZero() {
		t.Error("expected zero time for unparseable input")
	}
	if formatTimestamp(time.Time{}) != "" {
		t.Error("expected empty string for zero time")
	}
}
