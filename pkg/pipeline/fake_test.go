package pipeline

import (
	"context"
	"fmt"
	"reflect"
	"sync"
)

// recorder collects driver calls in the order they happen
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	copy(out, r.events)
	return out
}

func (r *recorder) count(event string) int {
	n := 0
	for _, e := range r.list() {
		if e == event {
			n++
		}
	}
	return n
}

// outcome is what the fake connection returns for one SQL text
type outcome struct {
	columns  []string
	rows     [][]any
	affected int64
	execErr  error
	rowsErr  error
	closeErr error
}

type fakeSource struct {
	rec     *recorder
	conn    *fakeConn
	openErr error
}

func newFake() (*fakeSource, *recorder) {
	rec := &recorder{}
	conn := &fakeConn{rec: rec, outcomes: map[string]outcome{}}
	return &fakeSource{rec: rec, conn: conn}, rec
}

func (s *fakeSource) on(sql string, o outcome) *fakeSource {
	s.conn.outcomes[sql] = o
	return s
}

func (s *fakeSource) Open(ctx context.Context) (Connection, error) {
	s.rec.add("open")
	if s.openErr != nil {
		return nil, s.openErr
	}
	return s.conn, nil
}

type fakeConn struct {
	rec         *recorder
	outcomes    map[string]outcome
	beginErr    error
	commitErr   error
	rollbackErr error
	closeErr    error

	mu       sync.Mutex
	bindings map[string][]string
}

func (c *fakeConn) BeginTransaction(ctx context.Context) error {
	c.rec.add("begin")
	return c.beginErr
}

func (c *fakeConn) CommitTransaction(ctx context.Context) error {
	c.rec.add("commit")
	return c.commitErr
}

func (c *fakeConn) RollbackTransaction(ctx context.Context) error {
	c.rec.add("rollback")
	return c.rollbackErr
}

func (c *fakeConn) Close(ctx context.Context) error {
	c.rec.add("close")
	return c.closeErr
}

func (c *fakeConn) CreateStatement(sql string) StatementBuilder {
	return &fakeStatement{conn: c, sql: sql}
}

func (c *fakeConn) recordBinding(sql, b string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bindings == nil {
		c.bindings = map[string][]string{}
	}
	c.bindings[sql] = append(c.bindings[sql], b)
}

type fakeStatement struct {
	conn      *fakeConn
	sql       string
	generated []string
}

func (s *fakeStatement) Bind(index int, value any) StatementBuilder {
	s.conn.recordBinding(s.sql, fmt.Sprintf("%d=%v", index, value))
	return s
}

func (s *fakeStatement) BindNull(index int, declaredType reflect.Type) StatementBuilder {
	s.conn.recordBinding(s.sql, fmt.Sprintf("%d=null(%s)", index, declaredType))
	return s
}

func (s *fakeStatement) ReturnGeneratedValues(columns ...string) StatementBuilder {
	s.generated = append(s.generated, columns...)
	return s
}

func (s *fakeStatement) Execute(ctx context.Context) (Result, error) {
	s.conn.rec.add("exec:" + s.sql)
	o, ok := s.conn.outcomes[s.sql]
	if !ok {
		return nil, fmt.Errorf("unexpected statement %q", s.sql)
	}
	if o.execErr != nil {
		return nil, o.execErr
	}
	return &fakeResult{rec: s.conn.rec, o: o, pos: -1}, nil
}

type fakeResult struct {
	rec    *recorder
	o      outcome
	pos    int
	closed bool
}

func (r *fakeResult) RowsAffected() (int64, error) { return r.o.affected, nil }

func (r *fakeResult) Metadata() RowMetadata {
	meta := RowMetadata{}
	for _, c := range r.o.columns {
		meta.Columns = append(meta.Columns, ColumnMetadata{Name: c})
	}
	return meta
}

func (r *fakeResult) Next() bool {
	if r.closed || r.pos+1 >= len(r.o.rows) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeResult) Row() Row {
	return fakeRow{columns: r.o.columns, values: r.o.rows[r.pos]}
}

func (r *fakeResult) Err() error {
	if r.pos+1 >= len(r.o.rows) {
		return r.o.rowsErr
	}
	return nil
}

func (r *fakeResult) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.rec.add("result_close")
	return r.o.closeErr
}

type fakeRow struct {
	columns []string
	values  []any
}

func (r fakeRow) Scan(dest ...any) error {
	if len(dest) > len(r.values) {
		return fmt.Errorf("scan: %d destinations for %d columns", len(dest), len(r.values))
	}
	for i, d := range dest {
		if err := assign(d, r.values[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r fakeRow) Get(column string, dest any) error {
	for i, c := range r.columns {
		if c == column {
			return assign(dest, r.values[i])
		}
	}
	return fmt.Errorf("no column %q", column)
}

func assign(dest, value any) error {
	dv := reflect.ValueOf(dest)
	if dv.Kind() != reflect.Pointer || dv.IsNil() {
		return fmt.Errorf("destination must be a non-nil pointer, got %T", dest)
	}
	vv := reflect.ValueOf(value)
	if !vv.IsValid() {
		dv.Elem().SetZero()
		return nil
	}
	if !vv.Type().AssignableTo(dv.Elem().Type()) {
		return fmt.Errorf("cannot scan %T into %s", value, dv.Elem().Type())
	}
	dv.Elem().Set(vv)
	return nil
}

func nameRows(names ...string) [][]any {
	rows := make([][]any, len(names))
	for i, n := range names {
		rows[i] = []any{n}
	}
	return rows
}

var nameMapper = RowMapper[string](func(row Row, _ RowMetadata) (string, error) {
	return Column[string](row, "name")
})
