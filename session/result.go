package session

// Result is the unified shape for heterogeneous driver return values.
//
// Records is populated when the statement produced a row set. Affected is
// populated when the driver reported a row count. Raw carries the
// driver-shaped payload a non-structured caller would have seen: the record
// list for row-returning statements, the generated id for inserts on
// drivers that report one, otherwise the affected count.
type Result struct {
	Raw          any
	Records      []map[string]any
	Affected     *int64
	LastInsertID *int64
}

// rowsReturned reports whether the statement yielded a row set.
func (r *Result) rowsReturned() bool {
	return r.Records != nil
}
