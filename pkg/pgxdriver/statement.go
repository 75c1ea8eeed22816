package pgxdriver

import (
	"context"
	"reflect"
	"strings"

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

// Execute runs the statement with the extended protocol. Every statement goes
// through Query; for commands without a result set the rows are empty and the
// affected count comes from the command tag.
func (s *statement) Execute(ctx context.Context) (pipeline.Result, error) {
	if s.conn.conn == nil {
		return nil, ErrConnClosed
	}

	query := s.query
	if len(s.generated) > 0 && !pipeline.HasKeyword(query, "returning") {
		query = strings.TrimRight(strings.TrimSpace(query), ";") + " RETURNING " + strings.Join(s.generated, ", ")
	}

	rows, err := s.conn.querier().Query(ctx, query, s.args...)
	if err != nil {
		return nil, err
	}
	return newResult(rows, s.conn.conn.Conn().TypeMap()), nil
}

// nullFor returns a typed nil pointer, which pgx encodes as NULL of the
// pointed-to type
func nullFor(t reflect.Type) any {
	if t == nil || t.Kind() == reflect.Interface {
		return nil
	}
	return reflect.Zero(reflect.PointerTo(t)).Interface()
}
