// Package client implements the endpoint-level upstream facade (C4),
// grounded on pytanis's PretalxClient (original_source/src/pytanis/
// pretalx/client.py): one list+detail method pair per resource, with
// transparent reference expansion via the C3 cache and the talks/
// submissions alias fallback.
package client

import (
	"context"
	"encoding/json"

	apperrors "github.com/pytanis-go/pretalx-core/pkg/errors"
)

// Sequence is a pull-based, typed view over a fetch.Cursor: it decodes
// (and, per element, expands) each raw record lazily. This is the Go
// analogue of client.py's `_endpoint_lst`, which wraps the raw iterator
// in a generator that validates each dict into a pydantic model.
type Sequence[T any] struct {
	next    func(json.RawMessage) (T, error)
	source  rawCursor
	lenient bool
}

// rawCursor is the minimal surface Sequence needs from *fetch.Cursor,
// named so this file doesn't import the fetch package directly.
type rawCursor interface {
	Next(ctx context.Context) (json.RawMessage, bool, error)
}

func newSequence[T any](source rawCursor, lenient bool, decode func(json.RawMessage) (T, error)) *Sequence[T] {
	return &Sequence[T]{source: source, lenient: lenient, next: decode}
}

// Next returns the next decoded element. On a malformed record,
// lenient mode drops the element and continues; otherwise the sequence
// terminates with a *apperrors.WireError (spec.md §4.3's failure policy).
func (s *Sequence[T]) Next(ctx context.Context) (T, bool, error) {
	var zero T
	for {
		raw, ok, err := s.source.Next(ctx)
		if err != nil {
			return zero, false, err
		}
		if !ok {
			return zero, false, nil
		}

		v, err := s.next(raw)
		if err != nil {
			if s.lenient {
				continue
			}
			if wireErr, ok := err.(*apperrors.WireError); ok {
				return zero, false, wireErr
			}
			return zero, false, &apperrors.WireError{Path: "decode", Cause: err}
		}
		return v, true, nil
	}
}

// Materialize drains the sequence into a slice, in upstream order.
func (s *Sequence[T]) Materialize(ctx context.Context) ([]T, error) {
	var out []T
	for {
		v, ok, err := s.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, v)
	}
}
