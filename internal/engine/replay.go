package engine

import (
	"context"
	"fmt"

	"github.com/roach88/pulse/internal/ir"
)

// ReplayReport compares a recorded run with its re-execution.
type ReplayReport struct {
	RunID      string           `json:"run_id"`
	Passes     int              `json:"passes"`
	Matched    int              `json:"matched"`
	Mismatches []ReplayMismatch `json:"mismatches,omitempty"`
}

// Identical reports whether every replayed pass reproduced its hash.
func (r *ReplayReport) Identical() bool {
	return len(r.Mismatches) == 0
}

// ReplayMismatch is a pass whose replay produced a different outcome.
type ReplayMismatch struct {
	Seq    int64  `json:"seq"`
	Source string `json:"source"`
	Want   string `json:"want"`
	Got    string `json:"got"`
}

// Replay re-executes recorded passes, in order, on a fresh engine built from
// spec and compares each outcome hash with the recorded one.
//
// Passes reuse their recorded tokens and sequence numbers, so the replayed
// traces are identical to the originals whenever the hashes match. Options
// are applied after those defaults; WithRecorder makes the replay itself
// a recorded run.
func Replay(ctx context.Context, spec *ir.NetworkSpec, passes []ir.PassTrace, opts ...Option) (*ReplayReport, error) {
	tokens := make([]string, len(passes))
	for i, p := range passes {
		tokens[i] = p.Token
	}
	var start int64
	if len(passes) > 0 {
		start = passes[0].Seq - 1
	}

	defaults := []Option{
		WithTokenGenerator(NewFixedGenerator(tokens...)),
		WithClock(NewClockAt(start)),
	}
	eng, err := New(spec, append(defaults, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	defer eng.Close()

	report := &ReplayReport{RunID: eng.RunID(), Passes: len(passes)}
	for _, p := range passes {
		trace, err := eng.Emit(ctx, p.Source, p.Input)
		if trace == nil {
			return report, fmt.Errorf("replay pass %d: %w", p.Seq, err)
		}
		if trace.Hash == p.Hash {
			report.Matched++
			continue
		}
		eng.logger.Warn("replay mismatch", "seq", p.Seq, "source", p.Source, "want", p.Hash, "got", trace.Hash)
		report.Mismatches = append(report.Mismatches, ReplayMismatch{
			Seq:    p.Seq,
			Source: p.Source,
			Want:   p.Hash,
			Got:    trace.Hash,
		})
	}
	return report, nil
}
