package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/pulse/internal/ir"
)

// ErrUnknownRun is returned when a pass refers to a run that was never
// created, and by GetRun for a missing id.
var ErrUnknownRun = errors.New("store: unknown run")

// CreateRun inserts a run record. Creating the same run twice is a no-op as
// long as the spec hash agrees; a different hash under the same id is an
// error.
func (s *Store) CreateRun(ctx context.Context, run ir.Run) error {
	if run.ID == "" {
		return fmt.Errorf("create run: empty id")
	}
	spec := run.Spec
	if spec == nil {
		spec = []byte{}
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, network, spec_hash, engine_version, ir_version, spec)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, run.ID, run.Network, run.SpecHash, run.EngineVersion, run.IRVersion, spec)
	if err != nil {
		return fmt.Errorf("create run %s: %w", run.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return nil
	}

	existing, err := s.GetRun(ctx, run.ID)
	if err != nil {
		return fmt.Errorf("create run %s: %w", run.ID, err)
	}
	if existing.SpecHash != run.SpecHash {
		return fmt.Errorf("create run %s: already recorded with spec %s", run.ID, existing.SpecHash)
	}
	return nil
}

// RecordPass stores a pass and its deliveries in one transaction. It
// satisfies engine.Recorder. Recording the same (run, seq) twice is a no-op.
func (s *Store) RecordPass(ctx context.Context, pass *ir.PassTrace) error {
	input, err := marshalValue(pass.Input)
	if err != nil {
		return fmt.Errorf("record pass %d: %w", pass.Seq, err)
	}
	values := make([]string, len(pass.Deliveries))
	for i, d := range pass.Deliveries {
		if values[i], err = marshalValue(d.Value); err != nil {
			return fmt.Errorf("record pass %d delivery %d: %w", pass.Seq, i, err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("record pass %d: begin: %w", pass.Seq, err)
	}
	defer tx.Rollback()

	if err := requireRun(ctx, tx, pass.RunID); err != nil {
		return fmt.Errorf("record pass %d: %w", pass.Seq, err)
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO passes (run_id, seq, token, source, input, code, error, hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, seq) DO NOTHING
	`, pass.RunID, pass.Seq, pass.Token, pass.Source, input, pass.Code, pass.Error, pass.Hash)
	if err != nil {
		return fmt.Errorf("record pass %d: %w", pass.Seq, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO deliveries (run_id, seq, idx, node, kind, value)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("record pass %d: prepare: %w", pass.Seq, err)
	}
	defer stmt.Close()

	for i, d := range pass.Deliveries {
		if _, err := stmt.ExecContext(ctx, pass.RunID, pass.Seq, i, d.Node, d.Kind, values[i]); err != nil {
			return fmt.Errorf("record pass %d delivery %d: %w", pass.Seq, i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("record pass %d: commit: %w", pass.Seq, err)
	}
	return nil
}

func requireRun(ctx context.Context, tx *sql.Tx, runID string) error {
	var one int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM runs WHERE id = ?`, runID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w %q", ErrUnknownRun, runID)
	}
	return err
}
