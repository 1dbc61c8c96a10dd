// Package queryir describes searches over recorded traces.
//
// A query selects rows from one of the trace tables (passes or deliveries)
// and filters them with a predicate tree. Queries are plain values; the
// querysql package compiles them to parameterized SQLite statements and the
// store executes them.
//
// # Sealed interfaces
//
// Query and Predicate use the marker method pattern, so only types in this
// package implement them and backends can switch exhaustively:
//
//	switch p := pred.(type) {
//	case Equals:
//	case NotEquals:
//	case And:
//	}
//
// # Columns
//
// Every table has a fixed column list. A column is text, an integer, or a
// payload. Payload columns hold canonical JSON, so comparing a payload is
// comparing canonical encodings: IRInt(3) matches 3 but not "3".
package queryir
