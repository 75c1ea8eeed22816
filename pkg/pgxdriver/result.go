package pgxdriver

import (
	"fmt"

	"github.com/Aleph-Alpha/sqlpipe/pkg/pipeline"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

type result struct {
	rows pgx.Rows
	meta pipeline.RowMetadata
}

func newResult(rows pgx.Rows, types *pgtype.Map) *result {
	fields := rows.FieldDescriptions()
	meta := pipeline.RowMetadata{Columns: make([]pipeline.ColumnMetadata, len(fields))}
	for i, f := range fields {
		name := fmt.Sprintf("oid:%d", f.DataTypeOID)
		if t, ok := types.TypeForOID(f.DataTypeOID); ok {
			name = t.Name
		}
		// the wire protocol does not report nullability
		meta.Columns[i] = pipeline.ColumnMetadata{Name: f.Name, DatabaseType: name, Nullable: true}
	}
	return &result{rows: rows, meta: meta}
}

func (r *result) Metadata() pipeline.RowMetadata { return r.meta }
func (r *result) Next() bool                     { return r.rows.Next() }
func (r *result) Row() pipeline.Row              { return row{r: r} }
func (r *result) Err() error                     { return r.rows.Err() }

func (r *result) Close() error {
	r.rows.Close()
	return r.rows.Err()
}

// RowsAffected drains the result and returns the count from the command tag
func (r *result) RowsAffected() (int64, error) {
	for r.rows.Next() {
	}
	r.rows.Close()
	if err := r.rows.Err(); err != nil {
		return 0, err
	}
	return r.rows.CommandTag().RowsAffected(), nil
}

// row scans the current row. pgx skips nil destinations, so columns beyond the
// requested ones are ignored.
type row struct {
	r *result
}

func (w row) Scan(dest ...any) error {
	n := len(w.r.meta.Columns)
	if len(dest) > n {
		return fmt.Errorf("scan: %d destinations for %d columns", len(dest), n)
	}
	all := make([]any, n)
	copy(all, dest)
	return w.r.rows.Scan(all...)
}

func (w row) Get(column string, dest any) error {
	idx := w.r.meta.Index(column)
	if idx < 0 {
		return fmt.Errorf("no column named %q", column)
	}
	all := make([]any, len(w.r.meta.Columns))
	all[idx] = dest
	return w.r.rows.Scan(all...)
}
