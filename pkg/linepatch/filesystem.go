package linepatch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrIsDirectory is returned when ApplyFile is pointed at a directory.
var ErrIsDirectory = errors.New("cannot patch a directory")

// FileOptions configure ApplyFile.
type FileOptions struct {
	// WorkingDir resolves relative paths. Empty means the process working directory.
	WorkingDir string
	// DryRun computes the result without writing it back.
	DryRun bool
}

// FileResult describes the outcome of ApplyFile.
type FileResult struct {
	Path     string
	Original string
	Report   Report
	Written  bool
}

// ApplyFile applies diffText to the file at path and writes the result back
// when it differs from the original. Permission bits are preserved.
func ApplyFile(ctx context.Context, path, diffText string, opts FileOptions) (FileResult, error) {
	if err := ctx.Err(); err != nil {
		return FileResult{}, err
	}
	abs, err := resolvePath(path, opts.WorkingDir)
	if err != nil {
		return FileResult{}, err
	}

	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return FileResult{}, fmt.Errorf("failed to read %s: file does not exist", path)
		}
		return FileResult{}, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return FileResult{}, fmt.Errorf("%s: %w", path, ErrIsDirectory)
	}
	content, err := os.ReadFile(abs)
	if err != nil {
		return FileResult{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	original := string(content)
	report := ApplyWithReport(original, diffText)
	result := FileResult{Path: abs, Original: original, Report: report}
	if opts.DryRun || report.Text == original {
		return result, nil
	}
	if err := ctx.Err(); err != nil {
		return FileResult{}, err
	}

	perm := info.Mode() & fs.ModePerm
	if perm == 0 {
		perm = 0o644
	}
	if err := os.WriteFile(abs, []byte(report.Text), perm); err != nil {
		return FileResult{}, fmt.Errorf("failed to write %s: %w", path, err)
	}
	special := info.Mode() & (fs.ModeSetuid | fs.ModeSetgid | fs.ModeSticky)
	if special != 0 {
		if err := os.Chmod(abs, perm|special); err != nil {
			return FileResult{}, fmt.Errorf("failed to restore permissions for %s: %w", path, err)
		}
	}
	result.Written = true
	return result, nil
}

func resolvePath(path, workingDir string) (string, error) {
	rel := strings.TrimSpace(path)
	if rel == "" {
		return "", fmt.Errorf("invalid path")
	}
	cleaned := filepath.Clean(rel)
	if filepath.IsAbs(cleaned) {
		return cleaned, nil
	}
	dir := strings.TrimSpace(workingDir)
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to determine working directory: %w", err)
		}
		dir = wd
	}
	return filepath.Join(dir, cleaned), nil
}
