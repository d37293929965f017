package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/asynkron/justpaste/internal/logging"
	"github.com/asynkron/justpaste/internal/metrics"
	"github.com/asynkron/justpaste/internal/preview"
	"github.com/asynkron/justpaste/internal/server"
	"github.com/asynkron/justpaste/internal/tui"
	"github.com/asynkron/justpaste/pkg/linepatch"
)

// diffSource selects where a command reads its diff from.
type diffSource struct {
	path      string
	clipboard bool
}

func (s *diffSource) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&s.path, "diff", "-", `diff file to read ("-" reads stdin)`)
	cmd.Flags().BoolVar(&s.clipboard, "clipboard", false, "read the diff from the system clipboard")
	cmd.MarkFlagsMutuallyExclusive("diff", "clipboard")
}

func (s *diffSource) read(cmd *cobra.Command) (string, error) {
	if s.clipboard {
		text, err := readClipboard()
		if err != nil {
			return "", fmt.Errorf("failed to read clipboard: %w", err)
		}
		return text, nil
	}
	if s.path == "-" || s.path == "" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read diff from stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return "", fmt.Errorf("failed to read diff: %w", err)
	}
	return string(data), nil
}

func newApplyCommand(a *app) *cobra.Command {
	var (
		src      diffSource
		dryRun   bool
		toStdout bool
		report   bool
	)
	cmd := &cobra.Command{
		Use:   "apply FILE",
		Short: "Apply a diff to FILE in place",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			diff, err := src.read(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			result, err := linepatch.ApplyFile(ctx, args[0], diff, linepatch.FileOptions{
				DryRun: dryRun || toStdout,
			})
			if err != nil {
				return err
			}
			a.logger.Debug(ctx, "diff applied",
				logging.F("path", result.Path),
				logging.F("operations", len(result.Report.Steps)),
				logging.F("written", result.Written),
			)
			for _, step := range result.Report.Steps {
				if step.Outcome == linepatch.OutcomeAppended || step.Outcome == linepatch.OutcomeSkipped {
					a.logger.Warn(ctx, "operation target not found",
						logging.F("operation", step.Number),
						logging.F("type", step.Type),
						logging.F("outcome", step.Outcome),
					)
				}
			}

			if report {
				fmt.Fprintln(a.stderr, linepatch.FormatReport(result.Report))
			}
			switch {
			case toStdout:
				fmt.Fprint(a.stdout, result.Report.Text)
			case result.Written:
				fmt.Fprintf(a.stdout, "%s: patched\n", args[0])
			case dryRun && result.Report.Text != result.Original:
				fmt.Fprintf(a.stdout, "%s: would be patched (dry run)\n", args[0])
			default:
				fmt.Fprintf(a.stdout, "%s: unchanged\n", args[0])
			}
			return nil
		},
	}
	src.register(cmd)
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "apply in memory only; never write FILE")
	cmd.Flags().BoolVar(&toStdout, "stdout", false, "print the patched text instead of writing FILE")
	cmd.Flags().BoolVar(&report, "report", false, "print a summary of every operation to stderr")
	return cmd
}

func newPreviewCommand(a *app) *cobra.Command {
	var (
		src        diffSource
		sideBySide bool
		width      int
		plain      bool
	)
	cmd := &cobra.Command{
		Use:   "preview FILE",
		Short: "Show how a diff would change FILE without writing it",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			diff, err := src.read(cmd)
			if err != nil {
				return err
			}
			result, err := linepatch.ApplyFile(cmd.Context(), args[0], diff, linepatch.FileOptions{DryRun: true})
			if err != nil {
				return err
			}
			comparison := preview.Compare(result.Original, result.Report.Text)
			if !comparison.Changed() {
				fmt.Fprintln(a.stdout, "No changes.")
				return nil
			}

			if !cmd.Flags().Changed("side-by-side") {
				sideBySide = a.cfg.Preview.SideBySide
			}
			if width <= 0 {
				width = a.cfg.Preview.Width
			}
			switch {
			case sideBySide:
				fmt.Fprintln(a.stdout, preview.SideBySide(comparison, width))
			case plain:
				fmt.Fprint(a.stdout, preview.Unified(comparison))
			default:
				out, err := preview.Render(comparison, preview.Options{Style: a.cfg.Preview.Style, Width: width})
				if err != nil {
					return err
				}
				fmt.Fprint(a.stdout, out)
			}
			return nil
		},
	}
	src.register(cmd)
	cmd.Flags().BoolVar(&sideBySide, "side-by-side", false, "render original and patched text in two columns")
	cmd.Flags().IntVar(&width, "width", 0, "output width (default from config)")
	cmd.Flags().BoolVar(&plain, "plain", false, "print a plain unified diff without styling")
	return cmd
}

func newParseCommand(a *app) *cobra.Command {
	var src diffSource
	cmd := &cobra.Command{
		Use:   "parse",
		Short: "Print the operations found in a diff, one JSON object per line",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			diff, err := src.read(cmd)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(a.stdout)
			for _, op := range linepatch.Parse(diff) {
				if err := enc.Encode(op); err != nil {
					return err
				}
			}
			return nil
		},
	}
	src.register(cmd)
	return cmd
}

func newServeCommand(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the apply, preview and parse endpoints over HTTP",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				addr = a.cfg.Server.Addr
			}
			srv := server.New(server.Options{
				Addr:              addr,
				MaxBodyBytes:      a.cfg.Server.MaxBodyBytes,
				ReadHeaderTimeout: a.cfg.Server.ReadHeaderTimeout,
				ShutdownTimeout:   a.cfg.Server.ShutdownTimeout,
				Concurrency:       a.cfg.Apply.Concurrency,
				Logger:            a.logger,
				Metrics:           metrics.NewInMemory(),
			})
			return srv.ListenAndServe(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}

func newTUICommand(a *app) *cobra.Command {
	var logFile string
	cmd := &cobra.Command{
		Use:   "tui FILE",
		Short: "Open an interactive panel to paste, preview and apply diffs to FILE",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// The panel owns the terminal, so logs only go to a file.
			logger := logging.Logger(logging.Nop{})
			if logFile != "" {
				f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
				if err != nil {
					return fmt.Errorf("failed to open log file: %w", err)
				}
				defer f.Close()
				level, _ := logging.ParseLevel(a.cfg.Log.Level)
				logger = logging.New(level, f).With(logging.F("session", time.Now().UTC().Format(time.RFC3339)))
			}
			return tui.Run(cmd.Context(), tui.Options{
				Path:    args[0],
				Style:   a.cfg.Preview.Style,
				Logger:  logger,
				Metrics: metrics.NewInMemory(),
			})
		},
	}
	cmd.Flags().StringVar(&logFile, "log-file", "", "append logs to this file while the panel is open")
	return cmd
}
