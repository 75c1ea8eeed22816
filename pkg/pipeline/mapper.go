package pipeline

import "fmt"

// RowMapper converts one row into a value. It is called once per row, in driver
// order, and must not keep a reference to row after it returns.
type RowMapper[T any] func(row Row, meta RowMetadata) (T, error)

// Scalar maps the first column of each row into a T
func Scalar[T any]() RowMapper[T] {
	return func(row Row, _ RowMetadata) (T, error) {
		var v T
		err := row.Scan(&v)
		return v, err
	}
}

// Column reads the named column of row into a T
func Column[T any](row Row, name string) (T, error) {
	var v T
	if err := row.Get(name, &v); err != nil {
		return v, fmt.Errorf("column %q: %w", name, err)
	}
	return v, nil
}

func mapRow[T any](mapper RowMapper[T], row Row, meta RowMetadata) (T, error) {
	v, err := mapper(row, meta)
	if err != nil {
		var zero T
		return zero, newError(ErrMapping, StageMap, err)
	}
	return v, nil
}
