package sqldriver

import (
	"context"
	"database/sql"
	"reflect"
	"strings"
	"time"

	"github.com/Aleph-Alpha/sqlpipe/pkg/pipeline"
)

type statement struct {
	conn      *Conn
	query     string
	args      []any
	generated []string
}

func (s *statement) Bind(index int, value any) pipeline.StatementBuilder {
	s.set(index, value)
	return s
}

func (s *statement) BindNull(index int, declaredType reflect.Type) pipeline.StatementBuilder {
	s.set(index, nullFor(declaredType))
	return s
}

func (s *statement) ReturnGeneratedValues(columns ...string) pipeline.StatementBuilder {
	s.generated = append(s.generated, columns...)
	return s
}

func (s *statement) set(index int, value any) {
	for len(s.args) <= index {
		s.args = append(s.args, nil)
	}
	s.args[index] = value
}

func (s *statement) Execute(ctx context.Context) (pipeline.Result, error) {
	if s.conn.closed {
		return nil, ErrConnClosed
	}

	query := s.query
	if len(s.generated) > 0 && !pipeline.HasKeyword(query, "returning") {
		query = strings.TrimRight(strings.TrimSpace(query), ";") + " RETURNING " + strings.Join(s.generated, ", ")
	}

	q := s.conn.queryer()
	if returnsRows(query) {
		rows, err := q.QueryContext(ctx, query, s.args...)
		if err != nil {
			return nil, err
		}
		return newRowsResult(rows)
	}

	res, err := q.ExecContext(ctx, query, s.args...)
	if err != nil {
		return nil, err
	}
	return &execResult{res: res}, nil
}

var rowKeywords = map[string]bool{
	"select":  true,
	"with":    true,
	"values":  true,
	"show":    true,
	"explain": true,
	"pragma":  true,
	"table":   true,
}

// returnsRows guesses from the leading keyword, or a RETURNING clause, whether
// the statement produces a result set.
func returnsRows(query string) bool {
	fields := strings.Fields(strings.TrimLeft(query, "( \t\n"))
	if len(fields) == 0 {
		return false
	}
	return rowKeywords[strings.ToLower(fields[0])] || pipeline.HasKeyword(query, "returning")
}

var timeType = reflect.TypeFor[time.Time]()

// nullFor returns a NULL value of the sql.Null* type matching t, so drivers that
// inspect the Go type of an argument see the declared type.
func nullFor(t reflect.Type) any {
	if t == nil {
		return nil
	}
	if t == timeType {
		return sql.NullTime{}
	}
	switch t.Kind() {
	case reflect.String:
		return sql.NullString{}
	case reflect.Bool:
		return sql.NullBool{}
	case reflect.Int8, reflect.Int16:
		return sql.NullInt16{}
	case reflect.Int32:
		return sql.NullInt32{}
	case reflect.Int, reflect.Int64, reflect.Uint16, reflect.Uint32, reflect.Uint, reflect.Uint64:
		return sql.NullInt64{}
	case reflect.Uint8:
		return sql.NullByte{}
	case reflect.Float32, reflect.Float64:
		return sql.NullFloat64{}
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return []byte(nil)
		}
	}
	return nil
}
