package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/pulse/internal/ir"
)

// Snapshot is the golden-file view of a run: everything deterministic about
// it, serialized as canonical JSON.
type Snapshot struct {
	Scenario  string
	Network   string
	Passes    []ir.PassTrace
	Collected map[string][]ir.IRValue
}

// canonical converts the snapshot to a document ir.MarshalCanonical
// accepts. Run ids are left out; the scenario name already identifies it.
func (s *Snapshot) canonical() map[string]any {
	passes := make([]any, len(s.Passes))
	for i, p := range s.Passes {
		doc := map[string]any{
			"seq":    p.Seq,
			"token":  p.Token,
			"hash":   p.Hash,
			"source": p.Source,
			"input":  p.Input,
		}
		deliveries := make([]any, len(p.Deliveries))
		for j, d := range p.Deliveries {
			deliveries[j] = map[string]any{
				"node":  d.Node,
				"kind":  d.Kind,
				"value": d.Value,
			}
		}
		doc["deliveries"] = deliveries
		if p.Code != "" {
			doc["code"] = p.Code
		}
		passes[i] = doc
	}

	doc := map[string]any{
		"scenario": s.Scenario,
		"passes":   passes,
	}
	if s.Network != "" {
		doc["network"] = s.Network
	}
	if len(s.Collected) > 0 {
		collected := make(map[string]any, len(s.Collected))
		for name, vs := range s.Collected {
			collected[name] = ir.IRArray(vs)
		}
		doc["collected"] = collected
	}
	return doc
}

// Marshal renders the snapshot as canonical JSON.
func (s *Snapshot) Marshal() ([]byte, error) {
	return ir.MarshalCanonical(s.canonical())
}

// RunWithGolden runs a scenario and compares its snapshot with
// testdata/golden/<scenario name>.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// A returned error means the scenario could not run; a mismatch fails t
// through goldie.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	snapshot := Snapshot{
		Scenario:  scenario.Name,
		Network:   scenario.Network,
		Passes:    result.Passes,
		Collected: result.Collected,
	}
	if err := assertSnapshot(t, scenario.Name, &snapshot); err != nil {
		return result, err
	}
	return result, nil
}

// AssertGolden compares an existing result with a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()
	return assertSnapshot(t, name, &Snapshot{
		Scenario:  name,
		Passes:    result.Passes,
		Collected: result.Collected,
	})
}

func assertSnapshot(t *testing.T, name string, s *Snapshot) error {
	t.Helper()
	data, err := s.Marshal()
	if err != nil {
		return err
	}
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
