package pipeline

import (
	"context"
	"reflect"
	"time"
)

// loggingConn reports every statement executed through it at debug level. It
// wraps only the connection handed to Work; transaction control and close go to
// the driver connection directly.
type loggingConn struct {
	Connection
	logger    Logger
	operation string
}

func withStatementLog(conn Connection, o *options) Connection {
	if _, ok := o.logger.(nopLogger); ok {
		return conn
	}
	return loggingConn{Connection: conn, logger: o.logger, operation: o.operation}
}

func (c loggingConn) CreateStatement(sql string) StatementBuilder {
	return &loggingStatement{
		StatementBuilder: c.Connection.CreateStatement(sql),
		sql:              sql,
		conn:             c,
	}
}

type loggingStatement struct {
	StatementBuilder
	sql      string
	bindings int
	conn     loggingConn
}

func (s *loggingStatement) Bind(index int, value any) StatementBuilder {
	s.StatementBuilder = s.StatementBuilder.Bind(index, value)
	s.bindings++
	return s
}

func (s *loggingStatement) BindNull(index int, declaredType reflect.Type) StatementBuilder {
	s.StatementBuilder = s.StatementBuilder.BindNull(index, declaredType)
	s.bindings++
	return s
}

func (s *loggingStatement) ReturnGeneratedValues(columns ...string) StatementBuilder {
	s.StatementBuilder = s.StatementBuilder.ReturnGeneratedValues(columns...)
	return s
}

func (s *loggingStatement) Execute(ctx context.Context) (Result, error) {
	start := time.Now()
	res, err := s.StatementBuilder.Execute(ctx)

	fields := map[string]interface{}{
		"sql":         s.sql,
		"bindings":    s.bindings,
		"duration_ms": time.Since(start).Milliseconds(),
	}
	if s.conn.operation != "" {
		fields["operation"] = s.conn.operation
	}
	if err != nil {
		s.conn.logger.Debug("statement failed", err, fields)
	} else {
		s.conn.logger.Debug("statement executed", nil, fields)
	}
	return res, err
}
