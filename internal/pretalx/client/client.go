package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"go.uber.org/zap"

	"github.com/pytanis-go/pretalx-core/internal/pretalx/expand"
	"github.com/pytanis-go/pretalx-core/internal/pretalx/fetch"
	"github.com/pytanis-go/pretalx-core/internal/pretalx/wire"
	apperrors "github.com/pytanis-go/pretalx-core/pkg/errors"
	"github.com/pytanis-go/pretalx-core/pkg/metrics"
)

// Client is the endpoint-level upstream facade (C4): list/detail method
// pairs over C2 (fetch.Fetcher), with C3-backed transparent reference
// expansion.
type Client struct {
	fetcher  *fetch.Fetcher
	cache    *expand.Cache
	log      *zap.Logger
	metrics  *metrics.Recorder
	blocking bool
	lenient  bool
}

// New builds a Client. blocking selects spec.md §4.1's blocking
// pagination mode by default (pytanis defaults to non-blocking/lazy;
// callers needing the original default should pass false).
func New(f *fetch.Fetcher, cache *expand.Cache, log *zap.Logger, rec *metrics.Recorder, blocking bool) *Client {
	c := &Client{fetcher: f, cache: cache, log: log, metrics: rec, blocking: blocking}
	cache.SetPrepopulator(c)
	return c
}

// SetLenient toggles spec.md §4.3's lenient decoding mode: malformed
// elements are dropped from a sequence instead of terminating it.
func (c *Client) SetLenient(lenient bool) {
	c.lenient = lenient
}

func endpoint(event, resource string) string {
	return fmt.Sprintf("/api/events/%s/%s/", event, resource)
}

func endpointID(event, resource string, id any) string {
	return fmt.Sprintf("/api/events/%s/%s/%v/", event, resource, id)
}

// Me returns the authenticated user's profile (spec.md §6).
func (c *Client) Me(ctx context.Context) (wire.Me, error) {
	raw, err := c.fetcher.GetOne(ctx, "/api/me/", nil)
	if err != nil {
		return wire.Me{}, err
	}
	var m wire.Me
	if err := json.Unmarshal(raw, &m); err != nil {
		return wire.Me{}, wireErr("/api/me/", err)
	}
	return m, nil
}

// Event returns detailed information about a specific event.
func (c *Client) Event(ctx context.Context, event string, params url.Values) (wire.Event, error) {
	raw, err := c.fetcher.GetOne(ctx, fmt.Sprintf("/api/events/%s/", event), params)
	if err != nil {
		return wire.Event{}, err
	}
	var e wire.Event
	if err := json.Unmarshal(raw, &e); err != nil {
		return wire.Event{}, wireErr(event, err)
	}
	return e, nil
}

// Events lists all events visible to the configured credential.
func (c *Client) Events(ctx context.Context, params url.Values) (int, *Sequence[wire.Event], error) {
	count, cur, err := c.fetcher.GetMany(ctx, "/api/events/", params, c.blocking)
	if err != nil {
		return 0, nil, err
	}
	seq := newSequence(cur, c.lenient, func(raw json.RawMessage) (wire.Event, error) {
		var e wire.Event
		if err := json.Unmarshal(raw, &e); err != nil {
			return wire.Event{}, err
		}
		return e, nil
	})
	return count, seq, nil
}

func wireErr(path string, cause error) error {
	return &apperrors.WireError{Path: path, Cause: cause}
}
