package linepatch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestApplyFileUpdatesFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(path, []byte("one\ntwo\n"), 0o600); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	result, err := ApplyFile(context.Background(), "notes.txt", "-one\n+uno", FileOptions{WorkingDir: dir})
	if err != nil {
		t.Fatalf("ApplyFile returned error: %v", err)
	}
	if !result.Written {
		t.Fatalf("expected file to be written")
	}
	if result.Original != "one\ntwo\n" {
		t.Fatalf("unexpected original: %q", result.Original)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read file: %v", err)
	}
	if string(content) != "uno\ntwo\n" {
		t.Fatalf("unexpected content: %q", content)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("permissions not preserved: %v", info.Mode().Perm())
	}
}

func TestApplyFileDryRunLeavesFileAlone(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(path, []byte("one"), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	result, err := ApplyFile(context.Background(), path, "-one\n+two", FileOptions{DryRun: true})
	if err != nil {
		t.Fatalf("ApplyFile returned error: %v", err)
	}
	if result.Written {
		t.Fatalf("dry run must not write")
	}
	if result.Report.Text != "two" {
		t.Fatalf("unexpected report text: %q", result.Report.Text)
	}
	content, _ := os.ReadFile(path)
	if string(content) != "one" {
		t.Fatalf("file changed during dry run: %q", content)
	}
}

func TestApplyFileSkipsWriteWhenUnchanged(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(path, []byte("one"), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	result, err := ApplyFile(context.Background(), path, "-missing", FileOptions{})
	if err != nil {
		t.Fatalf("ApplyFile returned error: %v", err)
	}
	if result.Written {
		t.Fatalf("unchanged content must not be written")
	}
}

func TestApplyFileErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	if _, err := ApplyFile(context.Background(), "missing.txt", "+x", FileOptions{WorkingDir: dir}); err == nil {
		t.Fatalf("expected error for missing file")
	}

	_, err := ApplyFile(context.Background(), dir, "+x", FileOptions{})
	if !errors.Is(err, ErrIsDirectory) {
		t.Fatalf("expected ErrIsDirectory, got %v", err)
	}

	if _, err := ApplyFile(context.Background(), "   ", "+x", FileOptions{WorkingDir: dir}); err == nil {
		t.Fatalf("expected error for blank path")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := ApplyFile(ctx, "missing.txt", "+x", FileOptions{WorkingDir: dir}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
