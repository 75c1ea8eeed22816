package pipeline

import (
	"context"
	"fmt"
	"reflect"
	"slices"
)

// NullValue is an explicit SQL NULL carrying the declared type the driver needs
// to encode it.
type NullValue struct {
	Type reflect.Type
}

// Null returns a NULL bind value declared as T
func Null[T any]() NullValue {
	return NullValue{Type: reflect.TypeFor[T]()}
}

var anyType = reflect.TypeFor[any]()

type binding struct {
	index    int
	value    any
	null     bool
	declared reflect.Type
}

// Statement is an immutable SQL text plus positional bindings. Every method
// returns a new Statement and leaves the receiver untouched.
type Statement struct {
	sql       string
	bindings  []binding
	generated []string
}

// NewStatement creates a statement and binds params to indices 0..len(params)-1.
// A nil param, a nil pointer, or a NullValue binds NULL.
func NewStatement(sql string, params ...any) Statement {
	s := Statement{sql: sql, bindings: make([]binding, 0, len(params))}
	for i, p := range params {
		s.bindings = append(s.bindings, bindingFor(i, p))
	}
	return s
}

func (s Statement) SQL() string { return s.sql }

// Bindings returns the number of bound parameters
func (s Statement) Bindings() int { return len(s.bindings) }

// Bind binds value to the placeholder at index (0-based). Nil values are routed
// through the NULL path.
func (s Statement) Bind(index int, value any) Statement {
	return s.with(bindingFor(index, value))
}

// BindNull binds NULL with the given declared type to the placeholder at index
func (s Statement) BindNull(index int, declaredType reflect.Type) Statement {
	if declaredType == nil {
		declaredType = anyType
	}
	return s.with(binding{index: index, null: true, declared: declaredType})
}

// ReturnGeneratedValues asks the driver to return the named generated columns
func (s Statement) ReturnGeneratedValues(columns ...string) Statement {
	out := s.clone()
	out.generated = append(out.generated, columns...)
	return out
}

func (s Statement) with(b binding) Statement {
	out := s.clone()
	out.bindings = append(out.bindings, b)
	return out
}

func (s Statement) clone() Statement {
	return Statement{
		sql:       s.sql,
		bindings:  slices.Clone(s.bindings),
		generated: slices.Clone(s.generated),
	}
}

func bindingFor(index int, value any) binding {
	switch v := value.(type) {
	case nil:
		return binding{index: index, null: true, declared: anyType}
	case NullValue:
		t := v.Type
		if t == nil {
			t = anyType
		}
		return binding{index: index, null: true, declared: t}
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Pointer && rv.IsNil() {
		return binding{index: index, null: true, declared: rv.Type().Elem()}
	}
	return binding{index: index, value: value}
}

// Validate checks that bindings cover every placeholder exactly once. It performs
// no I/O.
func (s Statement) Validate(style PlaceholderStyle) error {
	want, err := countPlaceholders(s.sql, style)
	if err != nil {
		return newError(ErrBinding, StageBind, err)
	}

	seen := make([]bool, want)
	for _, b := range s.bindings {
		if b.index < 0 || b.index >= want {
			return newError(ErrBinding, StageBind,
				fmt.Errorf("index %d out of range for %d placeholder(s)", b.index, want))
		}
		if seen[b.index] {
			return newError(ErrBinding, StageBind, fmt.Errorf("index %d bound more than once", b.index))
		}
		seen[b.index] = true
	}
	if len(s.bindings) != want {
		return newError(ErrBinding, StageBind,
			fmt.Errorf("statement has %d placeholder(s) but %d binding(s)", want, len(s.bindings)))
	}
	return nil
}

// execute creates the driver statement on conn, applies the bindings in index
// order and runs it.
func (s Statement) execute(ctx context.Context, conn Connection) (Result, error) {
	builder := conn.CreateStatement(s.sql)

	ordered := slices.Clone(s.bindings)
	slices.SortFunc(ordered, func(a, b binding) int { return a.index - b.index })
	for _, b := range ordered {
		if b.null {
			builder = builder.BindNull(b.index, b.declared)
		} else {
			builder = builder.Bind(b.index, b.value)
		}
	}
	if len(s.generated) > 0 {
		builder = builder.ReturnGeneratedValues(s.generated...)
	}

	res, err := builder.Execute(ctx)
	if err != nil {
		return nil, newError(ErrStatement, StageExecute, err)
	}
	return res, nil
}
