package harness

import "github.com/roach88/pulse/internal/ir"

// Result is the outcome of running a scenario.
type Result struct {
	// Pass is true when every step and assertion succeeded.
	Pass bool `json:"pass"`

	// RunID is the scenario name; the run is recorded under it.
	RunID string `json:"run_id"`

	// Passes holds every recorded pass in seq order, including rejected
	// and aborted ones.
	Passes []ir.PassTrace `json:"passes"`

	// Collected holds the values delivered to each collected node.
	Collected map[string][]ir.IRValue `json:"collected,omitempty"`

	// LiveNodes is the number of live nodes after the last step.
	LiveNodes int `json:"live_nodes"`

	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a passing result.
func NewResult(runID string) *Result {
	return &Result{
		Pass:      true,
		RunID:     runID,
		Passes:    []ir.PassTrace{},
		Collected: map[string][]ir.IRValue{},
		Errors:    []string{},
	}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Deliveries returns every value delivered to node across all passes.
func (r *Result) Deliveries(node string) []ir.IRValue {
	var out []ir.IRValue
	for i := range r.Passes {
		out = append(out, r.Passes[i].Values(node)...)
	}
	return out
}

// Order returns the node of every delivery across all passes, in order.
func (r *Result) Order() []string {
	var out []string
	for _, p := range r.Passes {
		for _, d := range p.Deliveries {
			out = append(out, d.Node)
		}
	}
	return out
}
