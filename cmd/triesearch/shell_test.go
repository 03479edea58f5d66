package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/nao1215/triesearch/internal/config"
	"github.com/nao1215/triesearch/internal/index"
)

// TestShellCommand tests the interactive loop end to end.
func TestShellCommand(t *testing.T) {
	t.Parallel()

	t.Run("with url flag", func(t *testing.T) {
		t.Parallel()

		server := newTestSite(t, "Home")
		configPath := writeConfigFile(t, "sites: {}\n")

		stdout, _, err := execute(t, "HELLO\nexit\n", "shell", "-c", configPath, "--db-dir", t.TempDir(), "-u", server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, want := range []string{"Index built successfully!", "| hello | " + server.URL + "/ |", "Goodbye!"} {
			if !strings.Contains(stdout, want) {
				t.Errorf("expected output to contain %q, got:\n%s", want, stdout)
			}
		}
	})

	t.Run("prompts for seed and depth", func(t *testing.T) {
		t.Parallel()

		server := newTestSite(t, "Home")
		configPath := writeConfigFile(t, "sites: {}\n")

		stdin := server.URL + "\n0\nabout\n"
		stdout, _, err := execute(t, stdin, "shell", "-c", configPath, "--db-dir", t.TempDir())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(stdout, "Enter the starting URL: ") || !strings.Contains(stdout, "Enter the maximum depth [1]: ") {
			t.Errorf("expected prompts, got:\n%s", stdout)
		}
		// Depth 0 indexes only the seed, whose link text is "About".
		if !strings.Contains(stdout, "| about | "+server.URL+"/ |") || strings.Contains(stdout, server.URL+"/about") {
			t.Errorf("expected only the seed page, got:\n%s", stdout)
		}
	})
}

// TestPromptSeed tests the interactive seed prompt.
func TestPromptSeed(t *testing.T) {
	t.Parallel()

	t.Run("retries invalid depth", func(t *testing.T) {
		t.Parallel()

		cfg := config.NewConfig()
		var out bytes.Buffer
		in := bufio.NewScanner(strings.NewReader("example.com\nabc\n-1\n2\n"))

		if err := promptSeed(in, &out, cfg, true); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if diff := cmp.Diff([]string{"example.com"}, cfg.Seeds); diff != "" {
			t.Errorf("seeds mismatch (-want +got):\n%s", diff)
		}
		if cfg.CrawlDepth != 2 {
			t.Errorf("expected depth 2, got %d", cfg.CrawlDepth)
		}
		if strings.Count(out.String(), "Invalid input") != 2 {
			t.Errorf("expected two retries, got:\n%s", out.String())
		}
	})

	t.Run("empty depth keeps default", func(t *testing.T) {
		t.Parallel()

		cfg := config.NewConfig()
		in := bufio.NewScanner(strings.NewReader("example.com\n\n"))
		if err := promptSeed(in, &bytes.Buffer{}, cfg, true); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.CrawlDepth != config.DefaultCrawlDepth {
			t.Errorf("expected default depth, got %d", cfg.CrawlDepth)
		}
	})

	t.Run("skips depth when set by flag", func(t *testing.T) {
		t.Parallel()

		cfg := config.NewConfig()
		var out bytes.Buffer
		in := bufio.NewScanner(strings.NewReader("example.com\n"))
		if err := promptSeed(in, &out, cfg, false); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Contains(out.String(), "depth") {
			t.Errorf("expected no depth prompt, got %q", out.String())
		}
	})

	t.Run("end of input", func(t *testing.T) {
		t.Parallel()

		in := bufio.NewScanner(strings.NewReader(""))
		if err := promptSeed(in, &bytes.Buffer{}, config.NewConfig(), true); err == nil {
			t.Error("expected an error at end of input")
		}
	})
}

// TestRunShell tests query handling.
func TestRunShell(t *testing.T) {
	t.Parallel()

	builder := index.NewBuilder()
	builder.Add("https://a.example/", []string{"cat", "cot"})
	builder.Add("https://b.example/", []string{"Cat"})
	idx := builder.Index()

	t.Run("lowercases queries and exits", func(t *testing.T) {
		t.Parallel()

		var out bytes.Buffer
		in := bufio.NewScanner(strings.NewReader("C*T\n\n  zzz  \nEXIT\nnever\n"))
		if err := runShell(context.Background(), idx, in, &out); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := out.String()
		for _, want := range []string{
			"Wildcard Search Results for 'c*t'",
			"| cat  | https://a.example/ |",
			"| cat  | https://b.example/ |",
			"| cot  | https://a.example/ |",
			"No results found for 'zzz'.",
			"Goodbye!",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q, got:\n%s", want, output)
			}
		}
		if strings.Contains(output, "never") {
			t.Error("expected input after exit to be ignored")
		}
	})

	t.Run("end of input exits", func(t *testing.T) {
		t.Parallel()

		var out bytes.Buffer
		if err := runShell(context.Background(), idx, bufio.NewScanner(strings.NewReader("cat")), &out); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.HasSuffix(out.String(), "Goodbye!\n") {
			t.Errorf("expected goodbye, got:\n%s", out.String())
		}
	})

	t.Run("cancelled context stops the loop", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := runShell(ctx, idx, bufio.NewScanner(strings.NewReader("cat\n")), &bytes.Buffer{})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}
