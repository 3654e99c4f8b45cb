package client

import (
	"context"
	"encoding/json"
	"net/url"

	apperrors "github.com/pytanis-go/pretalx-core/pkg/errors"

	"github.com/pytanis-go/pretalx-core/internal/pretalx/wire"
)

// Room returns one room by id.
func (c *Client) Room(ctx context.Context, event string, id int, params url.Values) (wire.Room, error) {
	raw, err := c.fetcher.GetOne(ctx, endpointID(event, "rooms", id), params)
	if err != nil {
		return wire.Room{}, err
	}
	return decodeRoom(raw)
}

// Rooms lists all rooms for event.
func (c *Client) Rooms(ctx context.Context, event string, params url.Values) (int, *Sequence[wire.Room], error) {
	count, cur, err := c.fetcher.GetMany(ctx, endpoint(event, "rooms"), params, c.blocking)
	if err != nil {
		return 0, nil, err
	}
	return count, newSequence(cur, c.lenient, decodeRoom), nil
}

func decodeRoom(raw json.RawMessage) (wire.Room, error) {
	var r struct {
		ID       int                     `json:"id"`
		Name     wire.MultiLingualString `json:"name"`
		Capacity *int                    `json:"capacity"`
	}
	if err := json.Unmarshal(raw, &r); err != nil {
		return wire.Room{}, &apperrors.WireError{Path: "rooms", Cause: err}
	}
	room := wire.Room{ID: r.ID, Name: r.Name}
	if r.Capacity != nil {
		room.Capacity = *r.Capacity
	}
	return room, nil
}
