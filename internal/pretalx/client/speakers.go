package client

import (
	"context"
	"encoding/json"
	"net/url"

	apperrors "github.com/pytanis-go/pretalx-core/pkg/errors"

	"github.com/pytanis-go/pretalx-core/internal/pretalx/wire"
)

type rawSpeaker struct {
	Code         string          `json:"code"`
	Name         string          `json:"name"`
	Biography    string          `json:"biography"`
	AvatarURL    string          `json:"avatar_url"`
	Submissions  []string        `json:"submissions"`
	Answers      json.RawMessage `json:"answers"`
	Availability []struct {
		Start string `json:"start"`
		End   string `json:"end"`
	} `json:"availabilities"`
}

// Speaker returns one speaker by code.
func (c *Client) Speaker(ctx context.Context, event, code string, params url.Values) (wire.Speaker, error) {
	raw, err := c.fetcher.GetOne(ctx, endpointID(event, "speakers", code), params)
	if err != nil {
		return wire.Speaker{}, err
	}
	return c.decodeSpeaker(ctx, event, raw)
}

// Speakers lists all speakers for event.
func (c *Client) Speakers(ctx context.Context, event string, params url.Values) (int, *Sequence[wire.Speaker], error) {
	count, cur, err := c.fetcher.GetMany(ctx, endpoint(event, "speakers"), params, c.blocking)
	if err != nil {
		return 0, nil, err
	}
	seq := newSequence(cur, c.lenient, func(raw json.RawMessage) (wire.Speaker, error) {
		return c.decodeSpeaker(ctx, event, raw)
	})
	return count, seq, nil
}

func (c *Client) decodeSpeaker(ctx context.Context, event string, raw json.RawMessage) (wire.Speaker, error) {
	var rs rawSpeaker
	if err := json.Unmarshal(raw, &rs); err != nil {
		return wire.Speaker{}, &apperrors.WireError{Path: "speakers", Cause: err}
	}

	s := wire.Speaker{
		Code:      rs.Code,
		Name:      rs.Name,
		Biography: rs.Biography,
		AvatarURL: rs.AvatarURL,
		Proposals: rs.Submissions,
	}
	for _, w := range rs.Availability {
		start, errS := parseTimeLenient(w.Start)
		end, errE := parseTimeLenient(w.End)
		if errS == nil && errE == nil {
			s.Availability = append(s.Availability, wire.AvailabilityWindow{Start: start, End: end})
		}
	}

	answers, err := c.expandAnswerRefs(ctx, event, rs.Answers)
	if err != nil {
		return wire.Speaker{}, err
	}
	s.Answers = answers

	return s, nil
}
