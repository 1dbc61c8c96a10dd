package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/pulse/internal/engine"
	"github.com/roach88/pulse/internal/harness"
	"github.com/roach88/pulse/internal/ir"
	"github.com/roach88/pulse/internal/metric"
	"github.com/roach88/pulse/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Network  string
	Script   string
	Database string
	RunID    string
	MaxSteps int
	Metrics  bool

	// TokenPrefix switches pass tokens from UUIDv7 to Prefix-1, Prefix-2...
	TokenPrefix string
}

// RunResult is the JSON payload of the run command.
type RunResult struct {
	RunID    string         `json:"run_id"`
	Network  string         `json:"network"`
	Passes   []ir.PassTrace `json:"passes"`
	Failures []string       `json:"failures,omitempty"`
	Metrics  string         `json:"metrics,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <specs-dir>",
		Short: "Drive a network with a script of emits",
		Long: `Build a network and emit the steps of a YAML script into its sources,
one propagation pass per step, printing every pass.

The script is a list of steps:

  - emit: clicks
  - emit: amount
    value: 5
  - emit: amount
    value: "five"
    expect_error: TYPE_MISMATCH

With --db the run and every pass are recorded to SQLite for later
replay and trace. With --metrics the Prometheus counters of the run are
printed after the last pass.

Exit codes:
  0 - Every step behaved as expected
  1 - A step failed or did not fail as expected
  2 - Command error (specs, script or database)

Examples:
  pulse run ./specs --network counter --script clicks.yaml
  pulse run ./specs --network counter --script clicks.yaml --db ./pulse.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScript(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Network, "network", "", "network to run (required if the package has several)")
	cmd.Flags().StringVar(&opts.Script, "script", "", "path to a YAML step script (required)")
	_ = cmd.MarkFlagRequired("script")
	cmd.Flags().StringVar(&opts.Database, "db", "", "record the run to this SQLite database")
	cmd.Flags().StringVar(&opts.RunID, "run-id", "", "run id (default: generated UUIDv7)")
	cmd.Flags().StringVar(&opts.TokenPrefix, "token-prefix", "", "use sequential pass tokens with this prefix")
	cmd.Flags().IntVar(&opts.MaxSteps, "max-steps", 0, "per-pass step budget (default: engine default)")
	cmd.Flags().BoolVar(&opts.Metrics, "metrics", false, "print Prometheus metrics after the run")

	return cmd
}

func runScript(opts *RunOptions, specsDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, formatter.GetErrWriter())

	spec, err := loadNetwork(specsDir, opts.Network)
	if err != nil {
		return outputCommandError(formatter, err)
	}
	steps, err := harness.LoadScript(opts.Script)
	if err != nil {
		return outputCommandError(formatter, &LoadError{Code: ErrCodeLoadFailed, Message: err.Error()})
	}

	var tokens engine.TokenGenerator = engine.UUIDv7Generator{}
	if opts.TokenPrefix != "" {
		tokens = &engine.SequenceGenerator{Prefix: opts.TokenPrefix}
	}
	engOpts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithTokenGenerator(tokens),
	}
	if opts.RunID != "" {
		engOpts = append(engOpts, engine.WithRunID(opts.RunID))
	}
	if opts.MaxSteps > 0 {
		engOpts = append(engOpts, engine.WithMaxSteps(opts.MaxSteps))
	}

	var collector *metric.Collector
	if opts.Metrics {
		collector = metric.NewCollector(metric.DefaultNamespace)
		engOpts = append(engOpts, engine.WithHooks(collector.Hooks()))
	}

	var st *store.Store
	if opts.Database != "" {
		logger.Debug("opening database", "path", opts.Database)
		st, err = store.Open(opts.Database)
		if err != nil {
			return outputCommandError(formatter, &LoadError{Code: ErrCodeDatabase, Message: err.Error()})
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()
		engOpts = append(engOpts, engine.WithRecorder(st))
	}

	eng, err := engine.New(spec, engOpts...)
	if err != nil {
		return outputCommandError(formatter, &LoadError{Code: ErrCodeGeneric, Message: err.Error()})
	}
	defer eng.Close()

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if st != nil {
		run, err := eng.RunRecord()
		if err == nil {
			err = st.CreateRun(ctx, run)
		}
		if err != nil {
			return outputCommandError(formatter, &LoadError{Code: ErrCodeDatabase, Message: err.Error()})
		}
	}

	result := RunResult{RunID: eng.RunID(), Network: spec.Name, Passes: []ir.PassTrace{}}
	formatter.VerboseLog("Running %d step(s) on %s (run %s)", len(steps), spec.Name, eng.RunID())

	for i, step := range steps {
		if ctx.Err() != nil {
			result.Failures = append(result.Failures, fmt.Sprintf("steps[%d]: interrupted", i))
			break
		}
		value, err := ir.FromGo(step.Value)
		if err != nil {
			result.Failures = append(result.Failures, fmt.Sprintf("steps[%d]: value: %v", i, err))
			continue
		}
		trace, err := eng.Emit(ctx, step.Emit, value)
		if trace != nil {
			result.Passes = append(result.Passes, *trace)
			if !formatter.JSON() {
				printPass(formatter, trace)
			}
		}
		if msg := harness.CheckStep(i, step, trace, err); msg != "" {
			result.Failures = append(result.Failures, msg)
			if !formatter.JSON() {
				fmt.Fprintf(formatter.Writer, "  ✗ %s\n", msg)
			}
		}
	}

	if collector != nil {
		var buf bytes.Buffer
		if err := collector.WriteText(&buf); err != nil {
			return outputCommandError(formatter, &LoadError{Code: ErrCodeGeneric, Message: err.Error()})
		}
		result.Metrics = buf.String()
	}

	return outputRunResult(formatter, result, opts.Database)
}

// printPass renders one pass as a header line and one line per delivery.
func printPass(formatter *OutputFormatter, trace *ir.PassTrace) {
	w := formatter.Writer
	fmt.Fprintf(w, "#%d %s(%s)", trace.Seq, trace.Source, ir.Format(trace.Input))
	if trace.Code != "" {
		fmt.Fprintf(w, " [%s]", trace.Code)
	}
	fmt.Fprintln(w)
	for _, d := range trace.Deliveries {
		fmt.Fprintf(w, "  %-16s %-8s %s\n", d.Node, d.Kind, ir.Format(d.Value))
	}
	if formatter.Verbose {
		fmt.Fprintf(w, "  hash %s\n", trace.Hash)
	}
}

func outputRunResult(formatter *OutputFormatter, result RunResult, database string) error {
	var failure error
	if len(result.Failures) > 0 {
		failure = NewExitError(ExitFailure, fmt.Sprintf("%d step(s) failed", len(result.Failures)))
	}

	if formatter.JSON() {
		var message string
		if failure != nil {
			message = result.Failures[0]
		}
		return formatter.Report(result, failure, ErrCodeStepFailed, message)
	}

	if result.Metrics != "" {
		fmt.Fprintln(formatter.Writer)
		fmt.Fprint(formatter.Writer, result.Metrics)
	}
	fmt.Fprintln(formatter.Writer)
	status := "✓"
	if failure != nil {
		status = "✗"
	}
	fmt.Fprintf(formatter.Writer, "%s %d pass(es), %d failure(s), run %s\n", status, len(result.Passes), len(result.Failures), result.RunID)
	if database != "" {
		fmt.Fprintf(formatter.Writer, "Recorded to %s\n", database)
	}
	if failure != nil && formatter.Verbose {
		fmt.Fprintln(formatter.GetErrWriter(), strings.Join(result.Failures, "\n"))
	}
	return failure
}

// commandContext returns the command's context, or Background when the
// command was executed without one.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
