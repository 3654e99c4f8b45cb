package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	apperrors "github.com/pytanis-go/pretalx-core/pkg/errors"
)

// Cursor is a pull-based iterator over one paginated list endpoint's
// results, modeled on pytanis's _resolve_pagination generator. Next
// yields raw (undecoded) elements so C4 can expand references before
// unmarshaling. A cursor built by a blocking GetMany call is already
// exhausted: Next drains the pre-fetched buffer only.
type Cursor struct {
	fetcher   *Fetcher
	buffer    []json.RawMessage
	next      *string
	count     int
	exhausted bool
	yielded   int
}

// Count returns the total element count reported by the first page.
func (c *Cursor) Count() int { return c.count }

// Next returns the next element, or ok=false once the sequence is
// exhausted. The suspension point is exactly before yielding each
// element (spec.md §5): advancing past the in-memory buffer triggers
// exactly one further request.
func (c *Cursor) Next(ctx context.Context) (json.RawMessage, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, &apperrors.Cancelled{Path: "cursor"}
	}

	if len(c.buffer) == 0 {
		if c.exhausted || c.next == nil {
			return nil, false, nil
		}
		if err := c.fetchNextPage(ctx); err != nil {
			return nil, false, err
		}
		if len(c.buffer) == 0 {
			return nil, false, nil
		}
	}

	elem := c.buffer[0]
	c.buffer = c.buffer[1:]
	c.yielded++
	return elem, true, nil
}

func (c *Cursor) fetchNextPage(ctx context.Context) error {
	u, err := url.Parse(*c.next)
	if err != nil {
		return &apperrors.WireError{Path: *c.next, Cause: err}
	}

	body, _, err := c.fetcher.do(ctx, u.Path, u.Query())
	if err != nil {
		return err
	}

	var page Page
	if err := json.Unmarshal(body, &page); err != nil {
		return &apperrors.WireError{Path: u.Path, Cause: err}
	}

	c.buffer = page.Results
	c.next = page.Next
	if c.next == nil {
		c.exhausted = true
	}
	return nil
}

// drainAll materializes the entire sequence, matching the blocking mode
// of spec.md §4.1. A discrepancy between the reported count and the
// number of elements actually yielded is surfaced as a *apperrors.WireError
// rather than silently accepted ("must be surfaced").
func (c *Cursor) drainAll(ctx context.Context) ([]json.RawMessage, error) {
	var all []json.RawMessage
	for {
		elem, ok, err := c.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		all = append(all, elem)
	}
	if len(all) != c.count {
		return nil, &apperrors.WireError{
			Path:  "pagination",
			Cause: errCountMismatch(c.count, len(all)),
		}
	}
	return all, nil
}

type countMismatchError struct {
	expected, got int
}

func (e *countMismatchError) Error() string {
	return fmt.Sprintf("reported count %d but yielded %d elements", e.expected, e.got)
}

func errCountMismatch(expected, got int) error {
	return &countMismatchError{expected: expected, got: got}
}
