package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/pulse/internal/ir"
	"github.com/roach88/pulse/internal/queryir"
	"github.com/roach88/pulse/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunID    string
	Node     string // optional - keep only deliveries to this node
	Where    []string
	From     string // table searched by --where
	Limit    int
}

// TraceResult holds the recorded passes of one run.
type TraceResult struct {
	Run    ir.Run         `json:"run"`
	Passes []ir.PassTrace `json:"passes"`
	Stats  TraceStats     `json:"stats"`
}

// TraceStats holds summary statistics for a run.
type TraceStats struct {
	Passes     int            `json:"passes"`
	Deliveries int            `json:"deliveries"`
	Rejected   int            `json:"rejected"`
	ByCode     map[string]int `json:"by_code,omitempty"`
}

// SearchResult holds the rows matched by --where.
type SearchResult struct {
	Table      queryir.Table          `json:"table"`
	Deliveries []store.DeliveryRecord `json:"deliveries,omitempty"`
	Passes     []ir.PassTrace         `json:"passes,omitempty"`
	Count      int                    `json:"count"`
}

// RunListResult lists the runs in a database.
type RunListResult struct {
	Runs []store.RunSummary `json:"runs"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show recorded passes",
		Long: `Show the passes recorded for a run: the stimulus of each pass and every
delivery in propagation order. Without --run, list the recorded runs.

With --where, search every recorded run instead. Each --where is
field=value or field!=value over the deliveries table (run_id, seq, idx,
node, kind, value) or, with --from passes, the passes table (run_id, seq,
token, source, input, code, error, hash). Payload values are written as
YAML: value=3 matches the integer 3, value='"3"' the string.

Examples:
  pulse trace --db ./pulse.db
  pulse trace --db ./pulse.db --run demo
  pulse trace --db ./pulse.db --run demo --node total --format json
  pulse trace --db ./pulse.db --where node=total --where value=3
  pulse trace --db ./pulse.db --from passes --where 'code!='`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run to show (default: list runs)")
	cmd.Flags().StringVar(&opts.Node, "node", "", "show only deliveries to this node")
	cmd.Flags().StringArrayVar(&opts.Where, "where", nil, "search condition field=value or field!=value (repeatable)")
	cmd.Flags().StringVar(&opts.From, "from", string(queryir.TableDeliveries), "table searched by --where (deliveries|passes)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum rows returned by --where (0 = no limit)")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := commandContext(cmd)

	st, err := openExistingStore(opts.Database)
	if err != nil {
		return outputCommandError(formatter, err)
	}
	defer st.Close()

	if len(opts.Where) > 0 {
		return runSearch(opts, st, formatter, cmd)
	}

	if opts.RunID == "" {
		runs, err := st.ListRuns(ctx)
		if err != nil {
			return outputCommandError(formatter, storeError(err))
		}
		return outputRunList(formatter, RunListResult{Runs: runs})
	}

	run, err := st.GetRun(ctx, opts.RunID)
	if err != nil {
		return outputCommandError(formatter, storeError(err))
	}
	passes, err := st.ReadPasses(ctx, run.ID)
	if err != nil {
		return outputCommandError(formatter, storeError(err))
	}
	if opts.Node != "" {
		passes = filterDeliveries(passes, opts.Node)
	}

	result := TraceResult{Run: run, Passes: passes, Stats: traceStats(passes)}
	return outputTrace(formatter, result)
}

// runSearch executes a --where search. --run and --node narrow it further.
func runSearch(opts *TraceOptions, st *store.Store, formatter *OutputFormatter, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	table := queryir.Table(opts.From)
	if queryir.Columns(table) == nil {
		return outputCommandError(formatter, &LoadError{Code: ErrCodeInvalidQuery, Message: fmt.Sprintf("invalid --from %q: must be deliveries or passes", opts.From)})
	}

	exprs := append([]string(nil), opts.Where...)
	if opts.RunID != "" {
		exprs = append(exprs, "run_id="+opts.RunID)
	}
	if opts.Node != "" {
		exprs = append(exprs, "node="+opts.Node)
	}
	filter, err := parseWhere(table, exprs)
	if err != nil {
		return outputCommandError(formatter, &LoadError{Code: ErrCodeInvalidQuery, Message: err.Error()})
	}

	result := SearchResult{Table: table}
	switch table {
	case queryir.TablePasses:
		result.Passes, err = st.FindPasses(ctx, filter, opts.Limit)
		result.Count = len(result.Passes)
	default:
		result.Deliveries, err = st.FindDeliveries(ctx, filter, opts.Limit)
		result.Count = len(result.Deliveries)
	}
	if errors.Is(err, queryir.ErrInvalidQuery) {
		return outputCommandError(formatter, &LoadError{Code: ErrCodeInvalidQuery, Message: err.Error()})
	}
	if err != nil {
		return outputCommandError(formatter, storeError(err))
	}
	return outputSearch(formatter, result)
}

// filterDeliveries keeps the deliveries to node. Passes stay, so that
// sequence numbers and rejections remain visible.
func filterDeliveries(passes []ir.PassTrace, node string) []ir.PassTrace {
	out := make([]ir.PassTrace, len(passes))
	for i, p := range passes {
		kept := []ir.Delivery{}
		for _, d := range p.Deliveries {
			if d.Node == node {
				kept = append(kept, d)
			}
		}
		p.Deliveries = kept
		out[i] = p
	}
	return out
}

func traceStats(passes []ir.PassTrace) TraceStats {
	stats := TraceStats{Passes: len(passes)}
	for _, p := range passes {
		stats.Deliveries += len(p.Deliveries)
		if p.Code != "" {
			stats.Rejected++
			if stats.ByCode == nil {
				stats.ByCode = make(map[string]int)
			}
			stats.ByCode[p.Code]++
		}
	}
	return stats
}

func outputRunList(formatter *OutputFormatter, result RunListResult) error {
	if formatter.JSON() {
		return formatter.Success(result)
	}
	w := formatter.Writer
	if len(result.Runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}
	fmt.Fprintf(w, "%-38s %-16s %8s  %s\n", "RUN", "NETWORK", "PASSES", "SPEC")
	for _, r := range result.Runs {
		fmt.Fprintf(w, "%-38s %-16s %8d  %s\n", r.ID, r.Network, r.Passes, shortHash(r.SpecHash))
	}
	return nil
}

func outputTrace(formatter *OutputFormatter, result TraceResult) error {
	if formatter.JSON() {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Run %s (%s)\n", result.Run.ID, result.Run.Network)
	fmt.Fprintf(w, "  Spec hash: %s\n", result.Run.SpecHash)
	fmt.Fprintf(w, "  Engine:    %s (IR %s)\n\n", result.Run.EngineVersion, result.Run.IRVersion)

	for i := range result.Passes {
		printPass(formatter, &result.Passes[i])
		if p := result.Passes[i]; p.Error != "" && formatter.Verbose {
			fmt.Fprintf(w, "  error %s\n", p.Error)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%d pass(es), %d deliver(ies), %d rejected\n",
		result.Stats.Passes, result.Stats.Deliveries, result.Stats.Rejected)
	return nil
}

func outputSearch(formatter *OutputFormatter, result SearchResult) error {
	if formatter.JSON() {
		return formatter.Success(result)
	}
	w := formatter.Writer
	for _, d := range result.Deliveries {
		fmt.Fprintf(w, "%-38s #%-4d %-3d %-16s %-8s %s\n", d.RunID, d.Seq, d.Index, d.Node, d.Kind, ir.Format(d.Value))
	}
	for i := range result.Passes {
		fmt.Fprintf(w, "run %s\n", result.Passes[i].RunID)
		printPass(formatter, &result.Passes[i])
	}
	fmt.Fprintf(w, "%d match(es)\n", result.Count)
	return nil
}

// shortHash trims a hex hash for tables.
func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
