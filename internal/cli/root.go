package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/buemura/scanrun/internal/config"
	"github.com/buemura/scanrun/internal/output"
	"github.com/buemura/scanrun/internal/run"
	"github.com/buemura/scanrun/internal/scanner"
	"github.com/buemura/scanrun/internal/scanner/sqli"
	"github.com/buemura/scanrun/internal/scanner/xssreflected"
)

var version = "dev"

// NewRootCmd builds the scanrun command. Each call returns a fresh command
// with its own flag state.
func NewRootCmd() *cobra.Command {
	var appConfig *config.Config

	cmd := &cobra.Command{
		Use:   "scanrun --url <target> --outdir <dir>",
		Short: "Run the reflected XSS and SQL injection scanners against one target",
		Long: `scanrun runs the reflected XSS and SQL injection scanners against a single
target, writes each scanner's artifacts into its own directory under a
per-run directory, and prints a JSON report followed by a true/false line
telling whether anything was found.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.ApplyFlags(cfg, cmd)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			appConfig = cfg
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, appConfig)
		},
	}

	cmd.Flags().String("url", "", "target base URL (required)")
	cmd.Flags().String("outdir", "", "root output directory (required)")

	cmd.AddCommand(newVersionCmd())
	return cmd
}

// Execute runs the root command and reports any error on stderr. The
// returned error maps to an exit code through run.ExitCode.
func Execute() error {
	err := NewRootCmd().Execute()
	if err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return err
}

func runScan(cmd *cobra.Command, cfg *config.Config) error {
	if !cmd.Flags().Changed("url") && cfg.URL == "" {
		return &run.InputError{Msg: "--url is required"}
	}
	if cfg.OutDir == "" {
		return &run.InputError{Msg: "--outdir is required"}
	}

	formatter, err := output.GetFormatter(cfg.OutputFormat)
	if err != nil {
		return err
	}

	logger := newLogger(cmd.ErrOrStderr(), cfg.Verbose)

	coordinator, err := run.NewCoordinator(newRegistry(logger), run.Config{
		OutDir: cfg.OutDir,
		Plans:  plansFor(cfg),
		Runner: scanner.Options{
			Parallel:    cfg.Parallel,
			Concurrency: cfg.Concurrency,
			Timeout:     cfg.ScannerTimeout,
		},
		Logger: logger,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, runErr := coordinator.Run(ctx, cfg.URL)
	if report == nil {
		return runErr
	}

	out := cmd.OutOrStdout()
	if err := formatter.Format(out, report); err != nil {
		return &run.FSError{Path: "stdout", Err: fmt.Errorf("writing report: %w", err)}
	}
	if err := output.WriteVerdict(out, report.Found()); err != nil {
		return &run.FSError{Path: "stdout", Err: fmt.Errorf("writing verdict: %w", err)}
	}

	var scanErr *run.ScannerError
	if errors.As(runErr, &scanErr) {
		logger.Warn("run finished with failed scanners", "failed", scanErr.Failed, "status", report.Status)
	}
	return runErr
}

// plansFor applies the configured crawl, rate and request-timeout settings
// to the default scanner plans.
func plansFor(cfg *config.Config) []run.Plan {
	plans := run.DefaultPlans()
	for i, p := range plans {
		switch p.Name {
		case xssreflected.Name:
			p = p.WithOption(xssreflected.OptMaxLinks, cfg.XSSMaxLinks)
		case sqli.Name:
			p = p.WithOption(sqli.OptMaxLinks, cfg.SQLiMaxLinks)
		}
		if cfg.RateLimit > 0 {
			p = p.WithOption("rate_limit", cfg.RateLimit)
		}
		if cfg.RequestTimeout > 0 {
			p = p.WithOption("timeout_seconds", cfg.RequestTimeout.Seconds())
		}
		plans[i] = p
	}
	return plans
}

// newRegistry holds the bundled scanners in execution order.
func newRegistry(logger *slog.Logger) *scanner.Registry {
	reg := scanner.NewRegistry()
	reg.Register(xssreflected.New(logger))
	reg.Register(sqli.New(logger))
	return reg
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
