package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/pulse/internal/compiler"
	"github.com/roach88/pulse/internal/engine"
	"github.com/roach88/pulse/internal/ir"
	"github.com/roach88/pulse/internal/store"
	"github.com/roach88/pulse/pkg/frp"
)

// Run executes a scenario on a fresh engine and returns its result.
//
// A returned error means the scenario could not be run at all (specs
// failed to load, a collected node does not exist). Failed steps and
// assertions are reported in Result.Errors instead.
//
// opts are applied after the deterministic defaults; use them to attach a
// logger or metric hooks.
func Run(scenario *Scenario, opts ...engine.Option) (*Result, error) {
	ctx := context.Background()

	spec, err := LoadNetwork(scenario.Specs, scenario.Network)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("create in-memory store: %w", err)
	}
	defer st.Close()

	token := scenario.Token
	if token == "" {
		token = scenario.Name
	}
	defaults := []engine.Option{
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		engine.WithRunID(scenario.Name),
		engine.WithTokenGenerator(&engine.SequenceGenerator{Prefix: token}),
		engine.WithRecorder(st),
	}
	if scenario.MaxSteps > 0 {
		defaults = append(defaults, engine.WithMaxSteps(scenario.MaxSteps))
	}
	eng, err := engine.New(spec, append(defaults, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("build network %s: %w", scenario.Network, err)
	}
	defer eng.Close()

	run, err := eng.RunRecord()
	if err != nil {
		return nil, err
	}
	if err := st.CreateRun(ctx, run); err != nil {
		return nil, err
	}

	collectors := make(map[string]*engine.Collector, len(scenario.Collect))
	for _, name := range scenario.Collect {
		c, err := eng.Collect(name)
		if err != nil {
			return nil, fmt.Errorf("collect %s: %w", name, err)
		}
		defer c.Cancel()
		collectors[name] = c
	}

	result := NewResult(run.ID)
	for _, msg := range ExecuteSteps(ctx, eng, scenario.Steps) {
		result.AddError(msg)
	}

	if result.Passes, err = st.ReadPasses(ctx, run.ID); err != nil {
		return nil, fmt.Errorf("read back passes: %w", err)
	}
	for name, c := range collectors {
		result.Collected[name] = c.Values()
	}
	result.LiveNodes = eng.LiveNodes()

	actx := &AssertionContext{Engine: eng}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

// ExecuteSteps emits each step in order and returns a message for every
// step whose outcome differs from its expect_error. Execution continues
// after a failed step.
func ExecuteSteps(ctx context.Context, eng *engine.Engine, steps []Step) []string {
	var failures []string
	for i, step := range steps {
		value, err := ir.FromGo(step.Value)
		if err != nil {
			failures = append(failures, fmt.Sprintf("steps[%d]: value: %v", i, err))
			continue
		}

		trace, err := eng.Emit(ctx, step.Emit, value)
		if msg := CheckStep(i, step, trace, err); msg != "" {
			failures = append(failures, msg)
		}
	}
	return failures
}

// CheckStep compares the outcome of emitting step i with its expect_error
// and returns a failure message, or "" when they agree.
func CheckStep(i int, step Step, trace *ir.PassTrace, err error) string {
	code := ErrorCode(trace, err)
	switch {
	case step.ExpectError == "" && err != nil:
		return fmt.Sprintf("steps[%d]: emit %s: unexpected error: %v", i, step.Emit, err)
	case step.ExpectError != "" && err == nil:
		return fmt.Sprintf("steps[%d]: emit %s: expected %s, got success", i, step.Emit, step.ExpectError)
	case step.ExpectError != "" && code != step.ExpectError:
		return fmt.Sprintf("steps[%d]: emit %s: expected %s, got %s: %v", i, step.Emit, step.ExpectError, code, err)
	}
	return ""
}

// ErrorCode extracts the machine-readable code of an emit failure: the
// pass code for rejected or aborted passes, the runtime error code for
// requests the network never saw, "ERROR" otherwise. It returns "" for nil.
func ErrorCode(trace *ir.PassTrace, err error) string {
	if err == nil {
		return ""
	}
	if trace != nil && trace.Code != "" {
		return trace.Code
	}
	var re *engine.RuntimeError
	if errors.As(err, &re) {
		return string(re.Code)
	}
	var pe *frp.PropagationError
	if errors.As(err, &pe) {
		return string(pe.Code)
	}
	return "ERROR"
}

// LoadNetwork loads every CUE directory in dirs and returns the network
// called name. Any load or compile error fails the whole load.
func LoadNetwork(dirs []string, name string) (*ir.NetworkSpec, error) {
	var available []string
	var found *ir.NetworkSpec
	for _, dir := range dirs {
		pkg, errs := compiler.LoadDir(dir)
		if len(errs) > 0 {
			return nil, fmt.Errorf("load %s: %w", dir, errors.Join(errs...))
		}
		if spec, ok := pkg.Network(name); ok && found == nil {
			found = spec
		}
		available = append(available, pkg.Names()...)
	}
	if found == nil {
		return nil, fmt.Errorf("network %q not found (available: %v)", name, available)
	}
	return found, nil
}
