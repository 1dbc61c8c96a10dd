package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/roach88/pulse/internal/ir"
	"github.com/roach88/pulse/internal/queryir"
	"github.com/roach88/pulse/internal/querysql"
)

// DeliveryRecord is a stored delivery with its position in the run.
type DeliveryRecord struct {
	RunID string `json:"run_id"`
	Seq   int64  `json:"seq"`
	Index int    `json:"idx"`
	ir.Delivery
}

// UnmarshalJSON keeps the position fields, which the embedded Delivery's
// decoder would otherwise swallow.
func (r *DeliveryRecord) UnmarshalJSON(data []byte) error {
	var pos struct {
		RunID string `json:"run_id"`
		Seq   int64  `json:"seq"`
		Index int    `json:"idx"`
	}
	if err := json.Unmarshal(data, &pos); err != nil {
		return err
	}
	var d ir.Delivery
	if err := json.Unmarshal(data, &d); err != nil {
		return err
	}
	*r = DeliveryRecord{RunID: pos.RunID, Seq: pos.Seq, Index: pos.Index, Delivery: d}
	return nil
}

// FindDeliveries returns the deliveries matching filter across all runs,
// ordered by run, seq and index. A nil filter matches everything; limit 0
// means no limit.
func (s *Store) FindDeliveries(ctx context.Context, filter queryir.Predicate, limit int) ([]DeliveryRecord, error) {
	query, params, err := querysql.Compile(queryir.Select{From: queryir.TableDeliveries, Filter: filter, Limit: limit})
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("find deliveries: %w", err)
	}
	defer rows.Close()

	records := []DeliveryRecord{}
	for rows.Next() {
		var r DeliveryRecord
		var value string
		if err := rows.Scan(&r.RunID, &r.Seq, &r.Index, &r.Node, &r.Kind, &value); err != nil {
			return nil, fmt.Errorf("scan delivery: %w", err)
		}
		if r.Value, err = unmarshalValue(value); err != nil {
			return nil, fmt.Errorf("delivery %s/%d %s: %w", r.RunID, r.Seq, r.Node, err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deliveries: %w", err)
	}
	return records, nil
}

// FindPasses returns the passes matching filter across all runs, ordered by
// run and seq, each with its deliveries.
func (s *Store) FindPasses(ctx context.Context, filter queryir.Predicate, limit int) ([]ir.PassTrace, error) {
	query, params, err := querysql.Compile(queryir.Select{From: queryir.TablePasses, Filter: filter, Limit: limit})
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("find passes: %w", err)
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

	for i := range passes {
		if passes[i].Deliveries, err = s.ReadDeliveries(ctx, passes[i].RunID, passes[i].Seq); err != nil {
			return nil, err
		}
	}
	return passes, nil
}
