package sqldriver

import (
	"database/sql"
	"fmt"

	"github.com/Aleph-Alpha/sqlpipe/pkg/pipeline"
)

// rowsResult adapts *sql.Rows
type rowsResult struct {
	rows    *sql.Rows
	meta    pipeline.RowMetadata
	scanned int64
}

func newRowsResult(rows *sql.Rows) (*rowsResult, error) {
	types, err := rows.ColumnTypes()
	if err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("failed to read column types: %w", err)
	}

	meta := pipeline.RowMetadata{Columns: make([]pipeline.ColumnMetadata, len(types))}
	for i, ct := range types {
		nullable, _ := ct.Nullable()
		meta.Columns[i] = pipeline.ColumnMetadata{
			Name:         ct.Name(),
			DatabaseType: ct.DatabaseTypeName(),
			Nullable:     nullable,
		}
	}
	return &rowsResult{rows: rows, meta: meta}, nil
}

func (r *rowsResult) Metadata() pipeline.RowMetadata { return r.meta }

func (r *rowsResult) Next() bool {
	if r.rows.Next() {
		r.scanned++
		return true
	}
	return false
}

func (r *rowsResult) Row() pipeline.Row { return row{r: r} }

func (r *rowsResult) Err() error { return r.rows.Err() }

func (r *rowsResult) Close() error { return r.rows.Close() }

// RowsAffected drains the remaining rows and reports how many rows the result
// produced in total.
func (r *rowsResult) RowsAffected() (int64, error) {
	for r.Next() {
	}
	if err := r.rows.Err(); err != nil {
		return r.scanned, err
	}
	return r.scanned, nil
}

// row scans the current row. database/sql needs one destination per column, so
// unrequested columns are scanned into discard slots.
type row struct {
	r *rowsResult
}

func (w row) Scan(dest ...any) error {
	n := len(w.r.meta.Columns)
	if len(dest) > n {
		return fmt.Errorf("scan: %d destinations for %d columns", len(dest), n)
	}
	if len(dest) == n {
		return w.r.rows.Scan(dest...)
	}
	all := make([]any, n)
	copy(all, dest)
	for i := len(dest); i < n; i++ {
		all[i] = new(any)
	}
	return w.r.rows.Scan(all...)
}

func (w row) Get(column string, dest any) error {
	idx := w.r.meta.Index(column)
	if idx < 0 {
		return fmt.Errorf("no column named %q", column)
	}
	all := make([]any, len(w.r.meta.Columns))
	for i := range all {
		all[i] = new(any)
	}
	all[idx] = dest
	return w.r.rows.Scan(all...)
}

// execResult adapts sql.Result for statements without a result set
type execResult struct {
	res sql.Result
}

func (e *execResult) RowsAffected() (int64, error)   { return e.res.RowsAffected() }
func (e *execResult) Metadata() pipeline.RowMetadata { return pipeline.RowMetadata{} }
func (e *execResult) Next() bool                     { return false }
func (e *execResult) Row() pipeline.Row              { return nil }
func (e *execResult) Err() error                     { return nil }
func (e *execResult) Close() error                   { return nil }
