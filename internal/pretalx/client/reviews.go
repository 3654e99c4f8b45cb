package client

import (
	"context"
	"encoding/json"
	"net/url"

	apperrors "github.com/pytanis-go/pretalx-core/pkg/errors"

	"github.com/pytanis-go/pretalx-core/internal/pretalx/wire"
)

// Review returns one review by id. Requires privileged credentials
// (spec.md §6).
func (c *Client) Review(ctx context.Context, event string, id int, params url.Values) (wire.Review, error) {
	raw, err := c.fetcher.GetOne(ctx, endpointID(event, "reviews", id), params)
	if err != nil {
		return wire.Review{}, err
	}
	return decodeReview(raw)
}

// Reviews lists all reviews for event.
func (c *Client) Reviews(ctx context.Context, event string, params url.Values) (int, *Sequence[wire.Review], error) {
	count, cur, err := c.fetcher.GetMany(ctx, endpoint(event, "reviews"), params, c.blocking)
	if err != nil {
		return 0, nil, err
	}
	return count, newSequence(cur, c.lenient, decodeReview), nil
}

func decodeReview(raw json.RawMessage) (wire.Review, error) {
	var r struct {
		ID         int      `json:"id"`
		Submission string   `json:"submission"`
		User       string   `json:"user"`
		Score      *float64 `json:"score"`
		Text       string   `json:"text"`
		Created    string   `json:"created"`
		Updated    string   `json:"updated"`
	}
	if err := json.Unmarshal(raw, &r); err != nil {
		return wire.Review{}, &apperrors.WireError{Path: "reviews", Cause: err}
	}

	rev := wire.Review{
		ID:           r.ID,
		ProposalCode: r.Submission,
		ReviewerUser: r.User,
		Score:        r.Score,
		Text:         r.Text,
	}
	if t, err := parseTimeLenient(r.Created); err == nil {
		rev.Created = t
	}
	if t, err := parseTimeLenient(r.Updated); err == nil {
		rev.Updated = t
	}
	return rev, nil
}
