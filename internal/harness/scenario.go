package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario is one scripted run of a network with expectations.
type Scenario struct {
	// Name uniquely identifies the scenario; it names the golden file and
	// the recorded run.
	Name string `yaml:"name"`

	Description string `yaml:"description"`

	// Specs lists CUE directories to load. Relative paths are resolved
	// against the scenario file's directory by LoadScenario.
	Specs []string `yaml:"specs"`

	// Network names the network to build from the loaded specs.
	Network string `yaml:"network"`

	// Token prefixes the pass tokens. Defaults to the scenario name.
	Token string `yaml:"token,omitempty"`

	// MaxSteps overrides the per-pass step budget when positive.
	MaxSteps int `yaml:"max_steps,omitempty"`

	// Collect lists nodes to watch and record for the whole run.
	Collect []string `yaml:"collect,omitempty"`

	Steps []Step `yaml:"steps"`

	Assertions []Assertion `yaml:"assertions"`
}

// Step emits one value into a source.
type Step struct {
	// Emit names the source node.
	Emit string `yaml:"emit"`

	// Value is the payload. Omitted or null means unit.
	Value any `yaml:"value,omitempty"`

	// ExpectError is the error code the emit must fail with, such as
	// STEPS_EXCEEDED or TYPE_MISMATCH. Empty means the emit must succeed.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// Assertion checks the state of the run after the last step.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Node is the node under test (peek_equals, deliveries, delivery_count).
	Node string `yaml:"node,omitempty"`

	// Value is the expected current value (peek_equals).
	Value any `yaml:"value,omitempty"`

	// Values are the expected delivered values, in order (deliveries).
	Values []any `yaml:"values,omitempty"`

	// Count is the expected number (delivery_count, live_nodes).
	Count int `yaml:"count,omitempty"`

	// Nodes is the expected order of first deliveries (trace_order).
	Nodes []string `yaml:"nodes,omitempty"`
}

// Assertion type constants.
const (
	AssertPeekEquals    = "peek_equals"
	AssertDeliveries    = "deliveries"
	AssertDeliveryCount = "delivery_count"
	AssertLiveNodes     = "live_nodes"
	AssertTraceOrder    = "trace_order"
)

// LoadScenario reads and validates a scenario file. Unknown fields are
// rejected so typos surface as errors. Relative spec paths are resolved
// against the scenario file's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}
	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	base := filepath.Dir(path)
	for i, dir := range scenario.Specs {
		if !filepath.IsAbs(dir) {
			scenario.Specs[i] = filepath.Join(base, dir)
		}
	}
	for _, dir := range scenario.Specs {
		if _, err := os.Stat(dir); err != nil {
			return nil, fmt.Errorf("%s: spec directory not found: %s", path, dir)
		}
	}
	return scenario, nil
}

// ParseScenario decodes and validates scenario YAML. Spec paths are left
// as written.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}
	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadScript reads a bare list of steps, as used by `pulse run --script`.
func LoadScript(path string) ([]Step, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	var steps []Step
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&steps); err != nil {
		return nil, fmt.Errorf("parse script %s: %w", path, err)
	}
	if err := validateSteps(steps); err != nil {
		return nil, fmt.Errorf("invalid script %s: %w", path, err)
	}
	return steps, nil
}

func validateScenario(s *Scenario) error {
	switch {
	case s.Name == "":
		return fmt.Errorf("name is required")
	case s.Description == "":
		return fmt.Errorf("description is required")
	case len(s.Specs) == 0:
		return fmt.Errorf("specs list is required and must be non-empty")
	case s.Network == "":
		return fmt.Errorf("network is required")
	case len(s.Steps) == 0:
		return fmt.Errorf("steps list is required and must be non-empty")
	case len(s.Assertions) == 0:
		return fmt.Errorf("assertions list is required and must be non-empty")
	case s.MaxSteps < 0:
		return fmt.Errorf("max_steps must be non-negative")
	}
	if err := validateSteps(s.Steps); err != nil {
		return err
	}
	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateSteps(steps []Step) error {
	for i, step := range steps {
		if step.Emit == "" {
			return fmt.Errorf("steps[%d]: emit is required", i)
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertPeekEquals, AssertDeliveries, AssertDeliveryCount:
		if a.Node == "" {
			return fmt.Errorf("assertions[%d]: node is required for %s", index, a.Type)
		}
	case AssertLiveNodes:
	case AssertTraceOrder:
		if len(a.Nodes) == 0 {
			return fmt.Errorf("assertions[%d]: nodes list is required for trace_order", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	if a.Count < 0 {
		return fmt.Errorf("assertions[%d]: count must be non-negative", index)
	}
	return nil
}
