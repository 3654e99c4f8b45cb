package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"

	apperrors "github.com/pytanis-go/pretalx-core/pkg/errors"

	"github.com/pytanis-go/pretalx-core/internal/pretalx/expand"
	"github.com/pytanis-go/pretalx-core/internal/pretalx/wire"
)

// rawProposal mirrors the upstream submission JSON shape before
// reference expansion — the Go analogue of the plain dict client.py's
// _expand_submissions mutates in place.
type rawProposal struct {
	Code           string          `json:"code"`
	Title          string          `json:"title"`
	Abstract       string          `json:"abstract"`
	Description    string          `json:"description"`
	SubmissionType json.RawMessage `json:"submission_type"`
	Track          json.RawMessage `json:"track"`
	State          string          `json:"state"`
	PendingState   *string         `json:"pending_state"`
	Duration       *int            `json:"duration"`
	Speakers       json.RawMessage `json:"speakers"`
	Answers        json.RawMessage `json:"answers"`
	Created        string          `json:"created"`
	URLs           map[string]string `json:"urls"`
	IsFeatured     *bool           `json:"is_featured"`
	Resources      []int           `json:"resources"`
}

// Submission returns one proposal by code.
func (c *Client) Submission(ctx context.Context, event, code string, params url.Values) (wire.Proposal, error) {
	raw, err := c.fetcher.GetOne(ctx, endpointID(event, "submissions", code), params)
	if err != nil {
		return wire.Proposal{}, err
	}
	return c.decodeProposal(ctx, event, raw)
}

// Submissions lists all submissions for event.
func (c *Client) Submissions(ctx context.Context, event string, params url.Values) (int, *Sequence[wire.Proposal], error) {
	return c.listProposals(ctx, event, "submissions", params)
}

// Talk returns one talk by code, falling back to the submissions
// endpoint on 404 (spec.md §4.3's alias endpoint).
func (c *Client) Talk(ctx context.Context, event, code string, params url.Values) (wire.Proposal, error) {
	raw, err := c.fetcher.GetOne(ctx, endpointID(event, "talks", code), params)
	if isNotFound(err) {
		c.log.Info("talk endpoint not available, using submission endpoint")
		raw, err = c.fetcher.GetOne(ctx, endpointID(event, "submissions", code), params)
	}
	if err != nil {
		return wire.Proposal{}, err
	}
	return c.decodeProposal(ctx, event, raw)
}

// Talks lists talks, falling back to submissions filtered by
// accepted/confirmed on 404, per spec.md §4.3.
func (c *Client) Talks(ctx context.Context, event string, params url.Values) (int, *Sequence[wire.Proposal], error) {
	count, seq, err := c.listProposals(ctx, event, "talks", params)
	if isNotFound(err) {
		c.log.Info("talks endpoint not available, using submissions endpoint")
		return c.listProposals(ctx, event, "submissions", withTalkStateFilter(params))
	}
	return count, seq, err
}

// withTalkStateFilter clones params and constrains the state field to
// the states "talks" implies (accepted or confirmed), so the
// submissions fallback doesn't silently widen the result set to every
// submission state.
func withTalkStateFilter(params url.Values) url.Values {
	out := url.Values{}
	for k, v := range params {
		out[k] = append([]string(nil), v...)
	}
	out.Set("state", string(wire.StateAccepted)+","+string(wire.StateConfirmed))
	return out
}

func (c *Client) listProposals(ctx context.Context, event, resource string, params url.Values) (int, *Sequence[wire.Proposal], error) {
	requested := requestedItemHint(params)
	count, cur, err := c.fetcher.GetMany(ctx, endpoint(event, resource), params, c.blocking)
	if err != nil {
		return 0, nil, err
	}

	c.cache.MaybePrepopulate(ctx, event, []expand.Kind{expand.KindTrack, expand.KindSubmissionType}, requested)

	seq := newSequence(cur, c.lenient, func(raw json.RawMessage) (wire.Proposal, error) {
		return c.decodeProposal(ctx, event, raw)
	})
	return count, seq, nil
}

// decodeProposal expands submission_type, track, speaker, and answer
// references via the C3 cache before building the nested wire.Proposal
// view — a cache miss triggers exactly one detail fetch and a put, and
// the fetched value is used directly (no retry is made).
func (c *Client) decodeProposal(ctx context.Context, event string, raw json.RawMessage) (wire.Proposal, error) {
	var rp rawProposal
	if err := json.Unmarshal(raw, &rp); err != nil {
		return wire.Proposal{}, &apperrors.WireError{Path: "submissions", Cause: err}
	}

	p := wire.Proposal{
		Code:        rp.Code,
		Title:       rp.Title,
		Abstract:    rp.Abstract,
		Description: rp.Description,
		State:       wire.SubmissionState(rp.State),
		URLs:        rp.URLs,
		Resources:   rp.Resources,
	}
	if rp.Duration != nil {
		p.DurationMinutes = *rp.Duration
	}
	if rp.PendingState != nil {
		s := wire.SubmissionState(*rp.PendingState)
		p.PendingState = &s
	}
	if rp.IsFeatured != nil {
		p.IsFeatured = *rp.IsFeatured
	}
	if t, err := parseTimeLenient(rp.Created); err == nil {
		p.Created = t
	}

	subType, err := c.expandSubmissionType(ctx, event, rp.SubmissionType)
	if err != nil {
		return wire.Proposal{}, err
	}
	p.SubmissionType = subType

	track, err := c.expandTrack(ctx, event, rp.Track)
	if err != nil {
		return wire.Proposal{}, err
	}
	p.Track = track

	speakers, err := c.expandSpeakerRefs(ctx, event, rp.Speakers)
	if err != nil {
		return wire.Proposal{}, err
	}
	p.Speakers = speakers

	answers, err := c.expandAnswerRefs(ctx, event, rp.Answers)
	if err != nil {
		return wire.Proposal{}, err
	}
	p.Answers = answers

	return p, nil
}

func isNotFound(err error) bool {
	var nf *apperrors.NotFound
	return err != nil && errors.As(err, &nf)
}
