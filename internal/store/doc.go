// Package store persists propagation traces in SQLite.
//
// A run is one engine instance, identified by its run id and pinned to the
// network description it was built from. Each pass is stored with its
// stimulus and outcome hash; deliveries are stored one row per value in the
// order they happened.
//
// # Ordering
//
// Passes are ordered by seq, the engine's logical clock, and deliveries by
// their index within the pass. Wall time is never recorded, so a replayed
// run reads back byte-identical.
//
// # Values
//
// Payloads are stored as RFC 8785 canonical JSON TEXT and decoded with
// ir.UnmarshalIRValue, which keeps 64-bit integers exact.
//
// # Searching
//
// FindDeliveries and FindPasses run queryir searches across every run. The
// statements come from querysql, so filters are always parameterized and
// results follow the same run, seq, index order as ReadPasses.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait on lock contention
//   - foreign_keys=ON: deliveries must belong to a pass, passes to a run
package store
