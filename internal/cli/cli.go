// Package cli wires the justpaste commands together.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/atotto/clipboard"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/asynkron/justpaste/internal/config"
	"github.com/asynkron/justpaste/internal/logging"
)

// Swapped out by tests.
var (
	stdin         io.Reader = os.Stdin
	readClipboard           = clipboard.ReadAll
)

// usageError marks errors caused by bad flags or arguments.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

// app holds the state shared by every subcommand once the root command has
// loaded configuration.
type app struct {
	configFile string
	logLevel   string

	cfg    *config.Config
	logger logging.Logger
	stdout io.Writer
	stderr io.Writer
}

// Run executes justpaste with the provided CLI arguments.
// It returns a POSIX-style exit code: 0 on success, 1 on failure and 2 for
// usage errors.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}

	if err := godotenv.Load(); err != nil {
		// A missing .env file is fine, but other errors should be surfaced to help with debugging.
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			fmt.Fprintf(stderr, "failed to load .env: %v\n", err)
			return 1
		}
	}

	a := &app{stdout: stdout, stderr: stderr, logger: logging.Nop{}}
	root := newRootCommand(a)
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		var uerr usageError
		if errors.As(err, &uerr) {
			return 2
		}
		return 1
	}
	return 0
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "justpaste",
		Short: "Apply loosely formatted -old/+new diffs to text",
		Long: `justpaste applies pasted diff snippets without hunk headers or context.

Lines starting with "-" name a line to remove, a following "+" line replaces
it, and a lone "+" line is inserted after the last edit.

Examples:
  justpaste apply main.go --diff change.diff
  pbpaste | justpaste preview main.go
  justpaste apply main.go --clipboard --report
  justpaste serve --addr :9000`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return usageError{fmt.Errorf("unknown command %q for %q", args[0], cmd.CommandPath())}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init()
		},
	}
	root.PersistentFlags().StringVar(&a.configFile, "config", "", "config file (default $XDG_CONFIG_HOME/justpaste/justpaste.yaml or ./justpaste.yaml)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})

	root.AddCommand(
		newApplyCommand(a),
		newPreviewCommand(a),
		newParseCommand(a),
		newServeCommand(a),
		newTUICommand(a),
	)
	return root
}

func (a *app) init() error {
	var opts []config.Option
	if a.logLevel != "" {
		if _, err := logging.ParseLevel(a.logLevel); err != nil {
			return usageError{err}
		}
		opts = append(opts, config.WithOverride("log.level", a.logLevel))
	}
	cfg, err := config.Load(a.configFile, opts...)
	if err != nil {
		return err
	}
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logging.New(level, a.stderr)
	return nil
}

// exactArgs is cobra.ExactArgs reported as a usage error.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return usageError{err}
		}
		return nil
	}
}
