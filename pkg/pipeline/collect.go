package pipeline

// Collect drains s into a slice
func Collect[T any](s *Stream[T]) ([]T, error) {
	defer s.Close()

	var out []T
	for s.Next() {
		out = append(out, s.Value())
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Single returns the only item of s. Zero or several items fail with
// ErrCardinality; with several items the stream is abandoned, so a transactional
// stream rolls back.
func Single[T any](s *Stream[T]) (T, error) {
	var zero T

	if !s.Next() {
		if err := s.Err(); err != nil {
			return zero, err
		}
		return zero, cardinalityError(0)
	}
	v := s.Value()

	if s.Next() {
		cerr := cardinalityError(2)
		if err := s.Close(); err != nil {
			cerr.Cleanup = append(cerr.Cleanup, err)
		}
		return zero, cerr
	}
	if err := s.Err(); err != nil {
		return zero, err
	}
	return v, nil
}

// First returns the first item of s, if any, and closes the stream
func First[T any](s *Stream[T]) (T, bool, error) {
	var zero T

	if !s.Next() {
		return zero, false, s.Err()
	}
	v := s.Value()
	if err := s.Close(); err != nil {
		return zero, false, err
	}
	return v, true, nil
}
