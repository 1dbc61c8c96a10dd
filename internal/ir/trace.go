package ir

import (
	"encoding/json"
	"fmt"
)

// Run identifies one engine instance whose passes are recorded together.
type Run struct {
	ID            string `json:"id"`
	Network       string `json:"network"`
	SpecHash      string `json:"spec_hash"`
	EngineVersion string `json:"engine_version"`
	IRVersion     string `json:"ir_version"`

	// Spec is the canonical JSON of the network description, kept so that a
	// run can be replayed without the original sources.
	Spec []byte `json:"-"`
}

// Delivery is one value arriving at one declared node during a pass.
type Delivery struct {
	Node  string  `json:"node"`
	Kind  string  `json:"kind"`
	Value IRValue `json:"value"`
}

// UnmarshalJSON decodes the payload through UnmarshalIRValue. A missing
// value is unit.
func (d *Delivery) UnmarshalJSON(data []byte) error {
	var raw struct {
		Node  string          `json:"node"`
		Kind  string          `json:"kind"`
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v, err := rawValue(raw.Value)
	if err != nil {
		return fmt.Errorf("delivery %s: %w", raw.Node, err)
	}
	*d = Delivery{Node: raw.Node, Kind: raw.Kind, Value: v}
	return nil
}

// PassTrace is the observable record of a propagation pass: the stimulus and
// every delivery, in the order they happened.
type PassTrace struct {
	RunID      string     `json:"run_id"`
	Seq        int64      `json:"seq"`
	Token      string     `json:"token"`
	Source     string     `json:"source"`
	Input      IRValue    `json:"input"`
	Deliveries []Delivery `json:"deliveries"`

	// Code and Error are set when the pass was rejected or aborted.
	Code  string `json:"code,omitempty"`
	Error string `json:"error,omitempty"`

	Hash string `json:"hash"`
}

// UnmarshalJSON decodes a trace written by encoding/json, restoring the
// input as an IRValue.
func (t *PassTrace) UnmarshalJSON(data []byte) error {
	type plain PassTrace
	var raw struct {
		*plain
		Input json.RawMessage `json:"input"`
	}
	var out PassTrace
	raw.plain = (*plain)(&out)
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v, err := rawValue(raw.Input)
	if err != nil {
		return fmt.Errorf("pass %d input: %w", out.Seq, err)
	}
	out.Input = v
	*t = out
	return nil
}

func rawValue(data json.RawMessage) (IRValue, error) {
	if len(data) == 0 {
		return IRNull{}, nil
	}
	return UnmarshalIRValue(data)
}

// Outcome returns the run-independent part of the trace: everything except
// run id, seq, token and hash. Replays compare PassHash(Outcome()).
func (t *PassTrace) Outcome() IRObject {
	deliveries := make(IRArray, len(t.Deliveries))
	for i, d := range t.Deliveries {
		deliveries[i] = IRObject{
			"node":  IRString(d.Node),
			"kind":  IRString(d.Kind),
			"value": d.Value,
		}
	}
	doc := IRObject{
		"source":     IRString(t.Source),
		"input":      t.Input,
		"deliveries": deliveries,
	}
	if t.Code != "" {
		doc["code"] = IRString(t.Code)
	}
	return doc
}

// Values returns the values delivered to node, in order.
func (t *PassTrace) Values(node string) []IRValue {
	var out []IRValue
	for _, d := range t.Deliveries {
		if d.Node == node {
			out = append(out, d.Value)
		}
	}
	return out
}
