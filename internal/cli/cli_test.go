package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/yiblet/clipd/internal/clipboard"
	"github.com/yiblet/clipd/internal/clipboard/mockboard"
	"github.com/yiblet/clipd/internal/config"
	"github.com/yiblet/clipd/internal/engine"
	"github.com/yiblet/clipd/internal/logger"
	"github.com/yiblet/clipd/internal/remfs"
)

func stringPtr(s string) *string {
	return &s
}

type testCLI struct {
	*CLI
	out    *bytes.Buffer
	writer *mockboard.Writer
}

// newTestCLI creates a CLI whose config and storage root live in dir.
func newTestCLI(t *testing.T, dir string) *testCLI {
	t.Helper()

	c, err := NewWithArgs(&Args{
		ConfigPath: stringPtr(filepath.Join(dir, "config.yaml")),
		Root:       stringPtr(filepath.Join(dir, "store")),
	})
	if err != nil {
		t.Fatalf("NewWithArgs failed: %v", err)
	}

	tc := &testCLI{CLI: c, out: &bytes.Buffer{}, writer: &mockboard.Writer{}}
	c.log = logger.NewNop()
	c.out = tc.out
	c.in = strings.NewReader("")
	c.clipboard = tc.writer
	t.Cleanup(func() { c.Close() })
	return tc
}

func (tc *testCLI) run(t *testing.T, args *Args) string {
	t.Helper()
	tc.out.Reset()
	if err := tc.Execute(context.Background(), args); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	return tc.out.String()
}

// capture feeds snapshots through 'clipd watch' until they are all handled.
func (tc *testCLI) capture(t *testing.T, snaps ...clipboard.Snapshot) string {
	t.Helper()
	src := mockboard.NewSource(len(snaps))
	for _, s := range snaps {
		src.Push(s)
	}
	src.Close()
	tc.source = src
	return tc.run(t, &Args{Watch: &WatchCmd{NoSweep: true}})
}

func TestNewWithArgs_RootOverride(t *testing.T) {
	dir := t.TempDir()
	tc := newTestCLI(t, dir)

	want := filepath.Join(dir, "store")
	if tc.fs.Root() != want {
		t.Errorf("Expected storage root %s, got %s", want, tc.fs.Root())
	}
	for _, sub := range []string{remfs.DataDir, remfs.ImagesDir, remfs.FilesDir} {
		if _, err := os.Stat(filepath.Join(want, sub)); err != nil {
			t.Errorf("Expected %s to be created: %v", sub, err)
		}
	}
	if tc.config.HydrateLimit != 50 {
		t.Errorf("Expected default config, got %+v", tc.config)
	}
}

func TestNewWithArgs_StorageRootFromConfig(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "from-config")
	configPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("storage_root: "+root+"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	c, err := NewWithArgs(&Args{ConfigPath: &configPath})
	if err != nil {
		t.Fatalf("NewWithArgs failed: %v", err)
	}
	defer c.Close()

	if c.fs.Root() != root {
		t.Errorf("Expected storage root %s, got %s", root, c.fs.Root())
	}
}

func TestNewWithArgs_DefaultRoot(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	c, err := New()
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer c.Close()

	want := filepath.Join(home, remfs.ConfigDir, remfs.DefaultStoreDir)
	if c.fs.Root() != want {
		t.Errorf("Expected storage root %s, got %s", want, c.fs.Root())
	}
}

func TestNewWithArgs_InvalidConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("hydrate_limit: 0\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := NewWithArgs(&Args{ConfigPath: &configPath}); err == nil {
		t.Error("Expected an error for an invalid config")
	}
}

func TestArgsValidation(t *testing.T) {
	tests := []struct {
		name    string
		args    Args
		wantErr bool
	}{
		{"get", Args{Get: &GetCmd{ID: 1}}, false},
		{"get to file", Args{Get: &GetCmd{ID: 1, Output: stringPtr("out.txt")}}, false},
		{"get zero id", Args{Get: &GetCmd{ID: 0}}, true},
		{"get file and clipboard", Args{Get: &GetCmd{ID: 1, Output: stringPtr("x"), Clipboard: true}}, true},
		{"fav", Args{Fav: &IDCmd{ID: 3}}, false},
		{"rm negative", Args{Rm: &IDCmd{ID: -1}}, true},
		{"list negative limit", Args{List: &ListCmd{Limit: -1}}, true},
		{"config without subcommand", Args{Config: &ConfigCmd{}}, true},
		{"no command", Args{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.args.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestExecute_InvalidArgs(t *testing.T) {
	tc := newTestCLI(t, t.TempDir())
	err := tc.Execute(context.Background(), &Args{Get: &GetCmd{ID: 0}})
	if !errors.Is(err, ErrInvalidArgs) {
		t.Errorf("Expected ErrInvalidArgs, got %v", err)
	}
}

func TestWatchAndList(t *testing.T) {
	tc := newTestCLI(t, t.TempDir())

	out := tc.capture(t,
		mockboard.Text("hello world"),
		mockboard.Text("hello world"),
		mockboard.Text("public class Foo { void run() {} }"),
	)
	if n := strings.Count(out, "captured"); n != 2 {
		t.Errorf("Expected 2 captures (duplicate dropped), got %d:\n%s", n, out)
	}

	out = tc.run(t, &Args{List: &ListCmd{}})
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 rows, got %q", out)
	}
	if !strings.Contains(lines[0], "Code") || !strings.Contains(lines[1], "hello world") {
		t.Errorf("Expected newest first, got %q", lines)
	}

	out = tc.run(t, &Args{List: &ListCmd{Limit: 1}})
	if strings.Count(out, "\n") != 1 {
		t.Errorf("Expected a single row, got %q", out)
	}
}

func TestList_Empty(t *testing.T) {
	tc := newTestCLI(t, t.TempDir())
	out := tc.run(t, &Args{List: &ListCmd{}})
	if !strings.Contains(out, "History is empty") {
		t.Errorf("Expected empty message, got %q", out)
	}
}

func TestGet(t *testing.T) {
	dir := t.TempDir()
	tc := newTestCLI(t, dir)
	tc.capture(t, mockboard.Text("the payload"))

	if out := tc.run(t, &Args{Get: &GetCmd{ID: 1}}); out != "the payload" {
		t.Errorf("Expected raw payload on stdout, got %q", out)
	}

	target := filepath.Join(dir, "out.txt")
	out := tc.run(t, &Args{Get: &GetCmd{ID: 1, Output: &target}})
	if !strings.Contains(out, "Written to") {
		t.Errorf("Unexpected output %q", out)
	}
	data, err := os.ReadFile(target)
	if err != nil || string(data) != "the payload" {
		t.Errorf("Expected file content, got %q (%v)", data, err)
	}

	tc.run(t, &Args{Get: &GetCmd{ID: 1, Clipboard: true}})
	if tc.writer.Text() != "the payload" {
		t.Errorf("Expected clipboard text, got %q", tc.writer.Text())
	}

	err = tc.Execute(context.Background(), &Args{Get: &GetCmd{ID: 99}})
	if !errors.Is(err, engine.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestSearch(t *testing.T) {
	tc := newTestCLI(t, t.TempDir())
	tc.capture(t, mockboard.Text("alpha token"), mockboard.Text("beta"), mockboard.Text("gamma TOKEN"))

	out := tc.run(t, &Args{Search: &SearchCmd{Query: "token", IDs: true}})
	if out != "3\n1\n" {
		t.Errorf("Expected ids 3 and 1, got %q", out)
	}

	err := tc.Execute(context.Background(), &Args{Search: &SearchCmd{Query: "missing"}})
	if err == nil || !strings.Contains(err.Error(), "no matches") {
		t.Errorf("Expected no matches error, got %v", err)
	}
}

func TestFavRmAndClear(t *testing.T) {
	tc := newTestCLI(t, t.TempDir())
	tc.capture(t, mockboard.Text("one"), mockboard.Text("two"), mockboard.Text("three"))

	if out := tc.run(t, &Args{Fav: &IDCmd{ID: 2}}); !strings.Contains(out, "added to favorites") {
		t.Errorf("Unexpected output %q", out)
	}
	out := tc.run(t, &Args{List: &ListCmd{Favorites: true}})
	if strings.Count(out, "\n") != 1 || !strings.Contains(out, "two") {
		t.Errorf("Expected only the favorite, got %q", out)
	}

	tc.run(t, &Args{Rm: &IDCmd{ID: 3}})
	if out := tc.run(t, &Args{List: &ListCmd{}}); strings.Contains(out, "three") {
		t.Errorf("Expected item 3 to be removed, got %q", out)
	}

	tc.in = strings.NewReader("n\n")
	if out := tc.run(t, &Args{Clear: &ClearCmd{}}); !strings.Contains(out, "including 1 favorite") || !strings.Contains(out, "Cancelled.") {
		t.Errorf("Expected cancelled prompt, got %q", out)
	}

	tc.in = strings.NewReader("y\n")
	if out := tc.run(t, &Args{Clear: &ClearCmd{}}); !strings.Contains(out, "Cleared 2 item(s)") {
		t.Errorf("Expected clear, got %q", out)
	}

	if out := tc.run(t, &Args{Clear: &ClearCmd{Force: true}}); !strings.Contains(out, "already empty") {
		t.Errorf("Expected already empty, got %q", out)
	}
}

func TestSweep(t *testing.T) {
	dir := t.TempDir()
	tc := newTestCLI(t, dir)
	tc.capture(t, mockboard.Text("keep"), mockboard.Text("expire"))
	tc.run(t, &Args{Fav: &IDCmd{ID: 1}})
	tc.Close()

	if err := config.NewConfigManagerWithPath(filepath.Join(dir, "config.yaml")).Update("retention_window", "1ns"); err != nil {
		t.Fatal(err)
	}

	later := newTestCLI(t, dir)
	out := later.run(t, &Args{Sweep: &SweepCmd{}})
	if !strings.Contains(out, "Swept 1 expired item(s); 1 remain (1 favorite)") {
		t.Errorf("Unexpected sweep output %q", out)
	}
}

func TestClassify(t *testing.T) {
	tc := newTestCLI(t, t.TempDir())

	tc.in = strings.NewReader("public class Foo { }")
	if out := tc.run(t, &Args{Classify: &ClassifyCmd{}}); out != "Code\n" {
		t.Errorf("Expected Code, got %q", out)
	}

	file := filepath.Join(t.TempDir(), "page.html")
	if err := os.WriteFile(file, []byte("<p>hi</p>"), 0644); err != nil {
		t.Fatal(err)
	}
	out := tc.run(t, &Args{Classify: &ClassifyCmd{File: &file, Verbose: true}})
	if !strings.HasPrefix(out, "Html\n") || !strings.Contains(out, "indicators (0 of 3 needed)") {
		t.Errorf("Unexpected verbose output %q", out)
	}
}

func TestConfigCommands(t *testing.T) {
	tc := newTestCLI(t, t.TempDir())

	out := tc.run(t, &Args{Config: &ConfigCmd{Set: &ConfigSetCmd{Key: "max-capture-size", Value: "64 MiB"}}})
	if out != "Set max-capture-size = 64 MiB\n" {
		t.Errorf("Unexpected output %q", out)
	}

	if out := tc.run(t, &Args{Config: &ConfigCmd{Get: &ConfigGetCmd{Key: "max_capture_size"}}}); out != "64 MiB\n" {
		t.Errorf("Unexpected value %q", out)
	}

	out = tc.run(t, &Args{Config: &ConfigCmd{List: &ConfigListCmd{}}})
	for _, key := range config.Keys {
		if !strings.Contains(out, key+" = ") {
			t.Errorf("Expected %s in list output:\n%s", key, out)
		}
	}

	err := tc.Execute(context.Background(), &Args{Config: &ConfigCmd{Set: &ConfigSetCmd{Key: "bogus", Value: "1"}}})
	if !errors.Is(err, config.ErrUnknownKey) {
		t.Errorf("Expected ErrUnknownKey, got %v", err)
	}
}

func TestSQLiteBackend(t *testing.T) {
	dir := t.TempDir()
	if err := config.NewConfigManagerWithPath(filepath.Join(dir, "config.yaml")).Update("index_backend", "sqlite"); err != nil {
		t.Fatal(err)
	}

	tc := newTestCLI(t, dir)
	tc.capture(t, mockboard.Text("stored in sqlite"))
	tc.Close()

	if _, err := os.Stat(filepath.Join(dir, "store", remfs.IndexSQLite)); err != nil {
		t.Errorf("Expected sqlite index: %v", err)
	}

	reopened := newTestCLI(t, dir)
	if out := reopened.run(t, &Args{List: &ListCmd{}}); !strings.Contains(out, "stored in sqlite") {
		t.Errorf("Expected item after reopen, got %q", out)
	}
}
