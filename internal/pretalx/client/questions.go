package client

import (
	"context"
	"encoding/json"
	"net/url"

	apperrors "github.com/pytanis-go/pretalx-core/pkg/errors"

	"github.com/pytanis-go/pretalx-core/internal/pretalx/wire"
)

// Question returns one question by id.
func (c *Client) Question(ctx context.Context, event string, id int, params url.Values) (wire.Question, error) {
	raw, err := c.fetcher.GetOne(ctx, endpointID(event, "questions", id), params)
	if err != nil {
		return wire.Question{}, err
	}
	return decodeQuestion(raw)
}

// Questions lists all questions for event.
func (c *Client) Questions(ctx context.Context, event string, params url.Values) (int, *Sequence[wire.Question], error) {
	count, cur, err := c.fetcher.GetMany(ctx, endpoint(event, "questions"), params, c.blocking)
	if err != nil {
		return 0, nil, err
	}
	return count, newSequence(cur, c.lenient, decodeQuestion), nil
}

func decodeQuestion(raw json.RawMessage) (wire.Question, error) {
	var q struct {
		ID      int                     `json:"id"`
		Prompt  wire.MultiLingualString `json:"question"`
		Target  string                  `json:"target"`
		Options []struct {
			ID   int                     `json:"id"`
			Text wire.MultiLingualString `json:"answer"`
		} `json:"options"`
	}
	if err := json.Unmarshal(raw, &q); err != nil {
		return wire.Question{}, &apperrors.WireError{Path: "questions", Cause: err}
	}
	question := wire.Question{ID: q.ID, Prompt: q.Prompt, Target: wire.QuestionTarget(q.Target)}
	for _, o := range q.Options {
		question.Options = append(question.Options, wire.Option{ID: o.ID, Text: o.Text})
	}
	return question, nil
}

// Answer returns one answer by id. Requires privileged credentials
// (spec.md §6); an unauthorized/forbidden response is not treated as
// the answer being absent — it surfaces as the usual client error.
func (c *Client) Answer(ctx context.Context, event string, id int, params url.Values) (wire.Answer, error) {
	raw, err := c.fetcher.GetOne(ctx, endpointID(event, "answers", id), params)
	if err != nil {
		return wire.Answer{}, err
	}
	return c.decodeAnswer(ctx, event, raw)
}

// Answers lists all answers for event.
func (c *Client) Answers(ctx context.Context, event string, params url.Values) (int, *Sequence[wire.Answer], error) {
	count, cur, err := c.fetcher.GetMany(ctx, endpoint(event, "answers"), params, c.blocking)
	if err != nil {
		return 0, nil, err
	}
	seq := newSequence(cur, c.lenient, func(raw json.RawMessage) (wire.Answer, error) {
		return c.decodeAnswer(ctx, event, raw)
	})
	return count, seq, nil
}

type rawAnswer struct {
	ID        int             `json:"id"`
	Question  json.RawMessage `json:"question"`
	Target    string          `json:"target"`
	Answer    string          `json:"answer"`
	OptionIDs []int           `json:"options"`
}

func (c *Client) decodeAnswer(ctx context.Context, event string, raw json.RawMessage) (wire.Answer, error) {
	var ra rawAnswer
	if err := json.Unmarshal(raw, &ra); err != nil {
		return wire.Answer{}, &apperrors.WireError{Path: "answers", Cause: err}
	}

	a := wire.Answer{
		ID:        ra.ID,
		Target:    wire.QuestionTarget(ra.Target),
		Value:     ra.Answer,
		OptionIDs: ra.OptionIDs,
	}

	qref, err := c.expandQuestionRef(ctx, event, ra.Question)
	if err != nil {
		return wire.Answer{}, err
	}
	a.Question = qref

	return a, nil
}
