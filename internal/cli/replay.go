package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/pulse/internal/engine"
	"github.com/roach88/pulse/internal/ir"
	"github.com/roach88/pulse/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	RunID    string
	MaxSteps int
}

// ReplayResult holds the replay outcome of one recorded run.
type ReplayResult struct {
	RunID     string                  `json:"run_id"`
	Network   string                  `json:"network"`
	SpecHash  string                  `json:"spec_hash"`
	Passes    int                     `json:"passes"`
	Matched   int                     `json:"matched"`
	Identical bool                    `json:"identical"`
	Diverged  []engine.ReplayMismatch `json:"diverged,omitempty"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Re-execute a recorded run and verify determinism",
		Long: `Rebuild the network of a recorded run from the description stored with
it, re-emit every recorded input in order, and compare the hash of each
new pass with the recorded one.

The replay does not need the original CUE sources.

Exit codes:
  0 - Every pass reproduced its recorded hash
  1 - At least one pass diverged
  2 - Command error (database not found, unknown run, etc.)

Examples:
  pulse replay --db ./pulse.db --run 0190f6c2-...
  pulse replay --db ./pulse.db --run demo --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run to replay (required)")
	_ = cmd.MarkFlagRequired("run")
	cmd.Flags().IntVar(&opts.MaxSteps, "max-steps", 0, "per-pass step budget the run was recorded with")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := commandContext(cmd)

	st, err := openExistingStore(opts.Database)
	if err != nil {
		return outputCommandError(formatter, err)
	}
	defer st.Close()

	run, err := st.GetRun(ctx, opts.RunID)
	if err != nil {
		return outputCommandError(formatter, storeError(err))
	}
	spec, err := ir.ParseNetworkSpec(run.Spec)
	if err != nil {
		return outputCommandError(formatter, &LoadError{Code: ErrCodeDatabase, Message: fmt.Sprintf("run %s: %v", run.ID, err)})
	}
	passes, err := st.ReadPasses(ctx, run.ID)
	if err != nil {
		return outputCommandError(formatter, storeError(err))
	}
	formatter.VerboseLog("Replaying %d pass(es) of run %s on %s", len(passes), run.ID, run.Network)

	engOpts := []engine.Option{engine.WithLogger(newLogger(opts.RootOptions, formatter.GetErrWriter()))}
	if opts.MaxSteps > 0 {
		engOpts = append(engOpts, engine.WithMaxSteps(opts.MaxSteps))
	}
	report, err := engine.Replay(ctx, spec, passes, engOpts...)
	if err != nil {
		return outputCommandError(formatter, &LoadError{Code: ErrCodeGeneric, Message: err.Error()})
	}

	result := ReplayResult{
		RunID:     run.ID,
		Network:   run.Network,
		SpecHash:  run.SpecHash,
		Passes:    report.Passes,
		Matched:   report.Matched,
		Identical: report.Identical(),
		Diverged:  report.Mismatches,
	}
	return outputReplayResult(formatter, result)
}

func outputReplayResult(formatter *OutputFormatter, result ReplayResult) error {
	var failure error
	if !result.Identical {
		failure = NewExitError(ExitFailure, fmt.Sprintf("replay diverged on %d pass(es)", len(result.Diverged)))
	}

	if formatter.JSON() {
		var message string
		if failure != nil {
			message = failure.Error()
		}
		return formatter.Report(result, failure, ErrCodeDiverged, message)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Run %s (%s)\n", result.RunID, result.Network)
	fmt.Fprintf(w, "  Spec hash: %s\n", result.SpecHash)
	fmt.Fprintf(w, "  Passes:    %d\n", result.Passes)
	fmt.Fprintf(w, "  Matched:   %d\n", result.Matched)
	for _, m := range result.Diverged {
		fmt.Fprintf(w, "  ✗ #%d %s: recorded %s, replayed %s\n", m.Seq, m.Source, m.Want, m.Got)
	}
	fmt.Fprintln(w)
	if failure != nil {
		fmt.Fprintln(w, "✗ Replay diverged")
		return failure
	}
	fmt.Fprintln(w, "✓ Replay identical")
	return nil
}

// openExistingStore opens a database that must already exist; store.Open
// would otherwise create an empty one.
func openExistingStore(path string) (*store.Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("database not found: %s", path)}
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeDatabase, Message: err.Error()}
	}
	return st, nil
}

func storeError(err error) error {
	if errors.Is(err, store.ErrUnknownRun) {
		return &LoadError{Code: ErrCodeUnknownRun, Message: err.Error()}
	}
	return &LoadError{Code: ErrCodeDatabase, Message: err.Error()}
}
