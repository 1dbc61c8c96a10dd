package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/pulse/internal/ir"
)

// RunSummary is a run record plus the number of passes stored for it.
type RunSummary struct {
	ir.Run
	Passes int64 `json:"passes"`
}

// ListRuns returns every run with its pass count, ordered by id. Run ids are
// UUIDv7 by default, so this is creation order.
func (s *Store) ListRuns(ctx context.Context) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.network, r.spec_hash, r.engine_version, r.ir_version,
		       (SELECT COUNT(*) FROM passes p WHERE p.run_id = r.id)
		FROM runs r
		ORDER BY r.id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := []RunSummary{}
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.ID, &r.Network, &r.SpecHash, &r.EngineVersion, &r.IRVersion, &r.Passes); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// GetRun returns the run record including its stored network description.
// A missing run yields ErrUnknownRun.
func (s *Store) GetRun(ctx context.Context, id string) (ir.Run, error) {
	var r ir.Run
	err := s.db.QueryRowContext(ctx, `
		SELECT id, network, spec_hash, engine_version, ir_version, spec
		FROM runs
		WHERE id = ?
	`, id).Scan(&r.ID, &r.Network, &r.SpecHash, &r.EngineVersion, &r.IRVersion, &r.Spec)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.Run{}, fmt.Errorf("%w %q", ErrUnknownRun, id)
	}
	if err != nil {
		return ir.Run{}, fmt.Errorf("get run %s: %w", id, err)
	}
	return r, nil
}

// ReadPasses returns every pass of a run with its deliveries, ordered by seq.
func (s *Store) ReadPasses(ctx context.Context, runID string) ([]ir.PassTrace, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, seq, token, source, input, code, error, hash
		FROM passes
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("read passes %s: %w", runID, err)
	}

	passes := []ir.PassTrace{}
	for rows.Next() {
		p, err := scanPass(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		passes = append(passes, p)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, fmt.Errorf("iterate passes: %w", err)
	}

	// The pool holds a single connection, so deliveries are read only once
	// the pass cursor is closed.
	for i := range passes {
		if passes[i].Deliveries, err = s.ReadDeliveries(ctx, runID, passes[i].Seq); err != nil {
			return nil, err
		}
	}
	return passes, nil
}

// ReadDeliveries returns the deliveries of one pass in delivery order.
func (s *Store) ReadDeliveries(ctx context.Context, runID string, seq int64) ([]ir.Delivery, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT node, kind, value
		FROM deliveries
		WHERE run_id = ? AND seq = ?
		ORDER BY idx ASC
	`, runID, seq)
	if err != nil {
		return nil, fmt.Errorf("read deliveries %s/%d: %w", runID, seq, err)
	}
	defer rows.Close()

	deliveries := []ir.Delivery{}
	for rows.Next() {
		var d ir.Delivery
		var value string
		if err := rows.Scan(&d.Node, &d.Kind, &value); err != nil {
			return nil, fmt.Errorf("scan delivery: %w", err)
		}
		if d.Value, err = unmarshalValue(value); err != nil {
			return nil, fmt.Errorf("delivery %s/%d %s: %w", runID, seq, d.Node, err)
		}
		deliveries = append(deliveries, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deliveries: %w", err)
	}
	return deliveries, nil
}

func scanPass(rows *sql.Rows) (ir.PassTrace, error) {
	var p ir.PassTrace
	var input string
	if err := rows.Scan(&p.RunID, &p.Seq, &p.Token, &p.Source, &input, &p.Code, &p.Error, &p.Hash); err != nil {
		return ir.PassTrace{}, fmt.Errorf("scan pass: %w", err)
	}
	v, err := unmarshalValue(input)
	if err != nil {
		return ir.PassTrace{}, fmt.Errorf("pass %d input: %w", p.Seq, err)
	}
	p.Input = v
	return p, nil
}
