package client

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"

	apperrors "github.com/pytanis-go/pretalx-core/pkg/errors"

	"github.com/pytanis-go/pretalx-core/internal/pretalx/expand"
	"github.com/pytanis-go/pretalx-core/internal/pretalx/wire"
)

// SubmissionType returns one submission type by id.
func (c *Client) SubmissionType(ctx context.Context, event string, id int, params url.Values) (wire.SubmissionType, error) {
	raw, err := c.fetcher.GetOne(ctx, endpointID(event, "submission-types", id), params)
	if err != nil {
		return wire.SubmissionType{}, err
	}
	return decodeSubmissionType(raw)
}

// SubmissionTypes lists all submission types for event.
func (c *Client) SubmissionTypes(ctx context.Context, event string, params url.Values) (int, *Sequence[wire.SubmissionType], error) {
	count, cur, err := c.fetcher.GetMany(ctx, endpoint(event, "submission-types"), params, c.blocking)
	if err != nil {
		return 0, nil, err
	}
	return count, newSequence(cur, c.lenient, decodeSubmissionType), nil
}

func decodeSubmissionType(raw json.RawMessage) (wire.SubmissionType, error) {
	var st struct {
		ID   int                     `json:"id"`
		Name wire.MultiLingualString `json:"name"`
	}
	if err := json.Unmarshal(raw, &st); err != nil {
		return wire.SubmissionType{}, &apperrors.WireError{Path: "submission-types", Cause: err}
	}
	return wire.SubmissionType{ID: st.ID, Name: st.Name}, nil
}

// Track returns one track by id.
func (c *Client) Track(ctx context.Context, event string, id int, params url.Values) (wire.Track, error) {
	raw, err := c.fetcher.GetOne(ctx, endpointID(event, "tracks", id), params)
	if err != nil {
		return wire.Track{}, err
	}
	return decodeTrack(raw)
}

// Tracks lists all tracks for event.
func (c *Client) Tracks(ctx context.Context, event string, params url.Values) (int, *Sequence[wire.Track], error) {
	count, cur, err := c.fetcher.GetMany(ctx, endpoint(event, "tracks"), params, c.blocking)
	if err != nil {
		return 0, nil, err
	}
	return count, newSequence(cur, c.lenient, decodeTrack), nil
}

func decodeTrack(raw json.RawMessage) (wire.Track, error) {
	var t struct {
		ID   int                     `json:"id"`
		Name wire.MultiLingualString `json:"name"`
	}
	if err := json.Unmarshal(raw, &t); err != nil {
		return wire.Track{}, &apperrors.WireError{Path: "tracks", Cause: err}
	}
	return wire.Track{ID: t.ID, Name: t.Name}, nil
}

// Tag returns one tag by name.
func (c *Client) Tag(ctx context.Context, event, tag string, params url.Values) (wire.Tag, error) {
	raw, err := c.fetcher.GetOne(ctx, endpointID(event, "tags", tag), params)
	if err != nil {
		return wire.Tag{}, err
	}
	return decodeTag(raw)
}

// Tags lists all tags for event.
func (c *Client) Tags(ctx context.Context, event string, params url.Values) (int, *Sequence[wire.Tag], error) {
	count, cur, err := c.fetcher.GetMany(ctx, endpoint(event, "tags"), params, c.blocking)
	if err != nil {
		return 0, nil, err
	}
	return count, newSequence(cur, c.lenient, decodeTag), nil
}

func decodeTag(raw json.RawMessage) (wire.Tag, error) {
	var t struct {
		Tag         string                  `json:"tag"`
		Description wire.MultiLingualString `json:"description"`
	}
	if err := json.Unmarshal(raw, &t); err != nil {
		return wire.Tag{}, &apperrors.WireError{Path: "tags", Cause: err}
	}
	return wire.Tag{Tag: t.Tag, Description: t.Description}, nil
}

// --- expand.Prepopulator implementation -----------------------------

// PrepopulateTracks performs the single bulk list request that fills
// the track kind ahead of per-proposal expansion.
func (c *Client) PrepopulateTracks(ctx context.Context, event string) ([]expand.Entry, error) {
	_, seq, err := c.Tracks(ctx, event, nil)
	if err != nil {
		return nil, err
	}
	tracks, err := seq.Materialize(ctx)
	if err != nil {
		return nil, err
	}
	entries := make([]expand.Entry, 0, len(tracks))
	for _, t := range tracks {
		raw, err := json.Marshal(t)
		if err != nil {
			continue
		}
		entries = append(entries, expand.Entry{Key: strconv.Itoa(t.ID), Value: raw})
	}
	return entries, nil
}

// PrepopulateSubmissionTypes mirrors PrepopulateTracks for the
// submission-type kind.
func (c *Client) PrepopulateSubmissionTypes(ctx context.Context, event string) ([]expand.Entry, error) {
	_, seq, err := c.SubmissionTypes(ctx, event, nil)
	if err != nil {
		return nil, err
	}
	types, err := seq.Materialize(ctx)
	if err != nil {
		return nil, err
	}
	entries := make([]expand.Entry, 0, len(types))
	for _, t := range types {
		raw, err := json.Marshal(t)
		if err != nil {
			continue
		}
		entries = append(entries, expand.Entry{Key: strconv.Itoa(t.ID), Value: raw})
	}
	return entries, nil
}

// PrepopulateSpeakers mirrors PrepopulateTracks for the speaker kind.
func (c *Client) PrepopulateSpeakers(ctx context.Context, event string) ([]expand.Entry, error) {
	_, seq, err := c.Speakers(ctx, event, nil)
	if err != nil {
		return nil, err
	}
	speakers, err := seq.Materialize(ctx)
	if err != nil {
		return nil, err
	}
	entries := make([]expand.Entry, 0, len(speakers))
	for _, s := range speakers {
		raw, err := json.Marshal(s)
		if err != nil {
			continue
		}
		entries = append(entries, expand.Entry{Key: s.Code, Value: raw})
	}
	return entries, nil
}

// PrepopulateRooms mirrors PrepopulateTracks for the room kind.
func (c *Client) PrepopulateRooms(ctx context.Context, event string) ([]expand.Entry, error) {
	_, seq, err := c.Rooms(ctx, event, nil)
	if err != nil {
		return nil, err
	}
	rooms, err := seq.Materialize(ctx)
	if err != nil {
		return nil, err
	}
	entries := make([]expand.Entry, 0, len(rooms))
	for _, r := range rooms {
		raw, err := json.Marshal(r)
		if err != nil {
			continue
		}
		entries = append(entries, expand.Entry{Key: strconv.Itoa(r.ID), Value: raw})
	}
	return entries, nil
}
