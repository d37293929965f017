package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/asynkron/justpaste/pkg/linepatch"
)

type runResult struct {
	code   int
	stdout string
	stderr string
}

// setup isolates the command from the user's config, .env and stdin, and
// returns the temporary working directory.
func setup(t *testing.T, input string) string {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	dir := t.TempDir()
	t.Chdir(dir)

	prevStdin, prevClipboard := stdin, readClipboard
	stdin = strings.NewReader(input)
	readClipboard = func() (string, error) { return "", errors.New("clipboard unavailable") }
	t.Cleanup(func() {
		stdin, readClipboard = prevStdin, prevClipboard
	})
	return dir
}

func run(ctx context.Context, args ...string) runResult {
	var stdout, stderr bytes.Buffer
	code := Run(ctx, args, &stdout, &stderr)
	return runResult{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestApplyWritesFileFromDiffFile(t *testing.T) {
	dir := setup(t, "")
	target := writeFile(t, dir, "notes.txt", "a\r\nb\r\nc")
	writeFile(t, dir, "change.diff", "-b\n+B\n")

	res := run(context.Background(), "apply", "notes.txt", "--diff", "change.diff")
	require.Equal(t, 0, res.code, res.stderr)
	require.Equal(t, "notes.txt: patched\n", res.stdout)
	require.Equal(t, "a\r\nB\r\nc", readFile(t, target))
}

func TestApplyReadsStdinByDefault(t *testing.T) {
	dir := setup(t, "+top\n")
	target := writeFile(t, dir, "notes.txt", "a\nb")

	res := run(context.Background(), "apply", "notes.txt")
	require.Equal(t, 0, res.code, res.stderr)
	require.Equal(t, "top\na\nb", readFile(t, target))
}

func TestApplyStdoutLeavesFileUntouched(t *testing.T) {
	dir := setup(t, "-b\n+B")
	target := writeFile(t, dir, "notes.txt", "a\nb")

	res := run(context.Background(), "apply", "notes.txt", "--stdout", "--report")
	require.Equal(t, 0, res.code, res.stderr)
	require.Equal(t, "a\nB", res.stdout)
	require.Contains(t, res.stderr, "Operations applied: 1.")
	require.Equal(t, "a\nb", readFile(t, target))
}

func TestApplyDryRun(t *testing.T) {
	dir := setup(t, "-b\n+B")
	target := writeFile(t, dir, "notes.txt", "a\nb")

	res := run(context.Background(), "apply", "notes.txt", "--dry-run")
	require.Equal(t, 0, res.code, res.stderr)
	require.Equal(t, "notes.txt: would be patched (dry run)\n", res.stdout)
	require.Equal(t, "a\nb", readFile(t, target))
}

func TestApplyUnchangedWhenTargetsMissing(t *testing.T) {
	dir := setup(t, "-zzz")
	writeFile(t, dir, "notes.txt", "a\nb")

	res := run(context.Background(), "apply", "notes.txt", "--log-level", "warn")
	require.Equal(t, 0, res.code, res.stderr)
	require.Equal(t, "notes.txt: unchanged\n", res.stdout)
	require.Contains(t, res.stderr, "[WARN] operation target not found")
}

func TestApplyFromClipboard(t *testing.T) {
	dir := setup(t, "")
	readClipboard = func() (string, error) { return "-a\n+A", nil }
	target := writeFile(t, dir, "notes.txt", "a")

	res := run(context.Background(), "apply", "notes.txt", "--clipboard")
	require.Equal(t, 0, res.code, res.stderr)
	require.Equal(t, "A", readFile(t, target))
}

func TestApplyClipboardFailure(t *testing.T) {
	dir := setup(t, "")
	writeFile(t, dir, "notes.txt", "a")

	res := run(context.Background(), "apply", "notes.txt", "--clipboard")
	require.Equal(t, 1, res.code)
	require.Contains(t, res.stderr, "failed to read clipboard")
}

func TestApplyMissingFile(t *testing.T) {
	setup(t, "+x")

	res := run(context.Background(), "apply", "missing.txt")
	require.Equal(t, 1, res.code)
	require.Contains(t, res.stderr, "error:")
}

func TestUsageErrors(t *testing.T) {
	setup(t, "")

	require.Equal(t, 2, run(context.Background(), "apply").code)
	require.Equal(t, 2, run(context.Background(), "apply", "a", "b").code)
	require.Equal(t, 2, run(context.Background(), "parse", "--bogus").code)
	require.Equal(t, 2, run(context.Background(), "parse", "--log-level", "loud").code)

	unknown := run(context.Background(), "bogus")
	require.Equal(t, 2, unknown.code)
	require.Contains(t, unknown.stderr, `unknown command "bogus"`)
}

func TestRootWithoutCommandPrintsHelp(t *testing.T) {
	setup(t, "")

	res := run(context.Background())
	require.Equal(t, 0, res.code, res.stderr)
	require.Contains(t, res.stdout, "Usage:")
}

func TestLogLevelFlagOverridesInvalidConfig(t *testing.T) {
	dir := setup(t, "+b")
	writeFile(t, dir, "cfg.yaml", "log:\n  level: shouty\n")
	target := writeFile(t, dir, "notes.txt", "a")

	failing := run(context.Background(), "--config", "cfg.yaml", "apply", "notes.txt")
	require.Equal(t, 1, failing.code)

	stdin = strings.NewReader("+b")
	res := run(context.Background(), "--config", "cfg.yaml", "--log-level", "debug", "apply", "notes.txt")
	require.Equal(t, 0, res.code, res.stderr)
	require.Contains(t, res.stderr, "[DEBUG] diff applied")
	require.Equal(t, "b\na", readFile(t, target))
}

func TestConfigFlag(t *testing.T) {
	dir := setup(t, "")

	missing := run(context.Background(), "--config", filepath.Join(dir, "nope.yaml"), "parse")
	require.Equal(t, 1, missing.code)
	require.Contains(t, missing.stderr, "failed to read config")

	writeFile(t, dir, "cfg.yaml", "log:\n  level: debug\n")
	writeFile(t, dir, "notes.txt", "a")
	stdin = strings.NewReader("+b")
	res := run(context.Background(), "--config", "cfg.yaml", "apply", "notes.txt")
	require.Equal(t, 0, res.code, res.stderr)
	require.Contains(t, res.stderr, "[DEBUG] diff applied")
}

func TestParsePrintsJSONLines(t *testing.T) {
	setup(t, "--- header\n-a\n+b\ncontext\n+c\n-d")

	res := run(context.Background(), "parse")
	require.Equal(t, 0, res.code, res.stderr)

	var ops []linepatch.Operation
	dec := json.NewDecoder(strings.NewReader(res.stdout))
	for {
		var op linepatch.Operation
		err := dec.Decode(&op)
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		ops = append(ops, op)
	}
	require.Equal(t, []linepatch.Operation{
		{Type: linepatch.OperationDelete, Old: "-- header"},
		{Type: linepatch.OperationReplace, Old: "a", New: "b"},
		{Type: linepatch.OperationInsert, New: "c"},
		{Type: linepatch.OperationDelete, Old: "d"},
	}, ops)
	require.Len(t, strings.Split(strings.TrimSpace(res.stdout), "\n"), 4)
}

func TestPreviewPlain(t *testing.T) {
	dir := setup(t, "-b\n+B")
	target := writeFile(t, dir, "notes.txt", "a\nb\nc\n")

	res := run(context.Background(), "preview", "notes.txt", "--plain")
	require.Equal(t, 0, res.code, res.stderr)
	require.Equal(t, " a\n-b\n+B\n c\n", res.stdout)
	require.Equal(t, "a\nb\nc\n", readFile(t, target))
}

func TestPreviewSideBySide(t *testing.T) {
	dir := setup(t, "-b\n+B")
	writeFile(t, dir, "notes.txt", "a\nb")

	res := run(context.Background(), "preview", "notes.txt", "--side-by-side", "--width", "40")
	require.Equal(t, 0, res.code, res.stderr)
	require.Contains(t, res.stdout, "│")
	require.Contains(t, res.stdout, "B")
}

func TestPreviewNoChanges(t *testing.T) {
	dir := setup(t, "-zzz")
	writeFile(t, dir, "notes.txt", "a")

	res := run(context.Background(), "preview", "notes.txt")
	require.Equal(t, 0, res.code, res.stderr)
	require.Equal(t, "No changes.\n", res.stdout)
}

func TestServeStopsWithContext(t *testing.T) {
	setup(t, "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := run(ctx, "serve", "--addr", "127.0.0.1:0")
	require.Equal(t, 0, res.code, res.stderr)
}

func TestTUIRequiresFile(t *testing.T) {
	setup(t, "")
	require.Equal(t, 2, run(context.Background(), "tui").code)
}
