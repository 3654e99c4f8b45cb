package client

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"time"

	"github.com/pytanis-go/pretalx-core/internal/pretalx/expand"
	"github.com/pytanis-go/pretalx-core/internal/pretalx/wire"
	apperrors "github.com/pytanis-go/pretalx-core/pkg/errors"
)

// expandSubmissionType resolves a submission_type reference (either a
// bare id or an already-nested object) into a wire.Ref, consulting the
// cache and falling back to a single detail fetch on miss, per
// spec.md §4.3.
func (c *Client) expandSubmissionType(ctx context.Context, event string, raw json.RawMessage) (wire.Ref, error) {
	if isJSONNull(raw) {
		return wire.Ref{}, nil
	}
	if !isJSONNumber(raw) {
		// Already nested: decode the name map directly.
		var name wire.MultiLingualString
		if err := json.Unmarshal(raw, &name); err != nil {
			return wire.Ref{}, &apperrors.WireError{Path: "submission_type", Cause: err}
		}
		return wire.Ref{Name: name}, nil
	}

	var id int
	if err := json.Unmarshal(raw, &id); err != nil {
		return wire.Ref{}, &apperrors.WireError{Path: "submission_type", Cause: err}
	}

	key := strconv.Itoa(id)
	if cached, ok, err := c.cache.Get(ctx, expand.KindSubmissionType, key); err != nil {
		return wire.Ref{}, err
	} else if ok {
		st, err := decodeSubmissionType(cached)
		if err != nil {
			return wire.Ref{}, err
		}
		return wire.Ref{ID: id, Name: st.Name}, nil
	}

	st, err := c.SubmissionType(ctx, event, id, nil)
	if err != nil {
		// Mirrors client.py's _get_submission_type fallback: a failed
		// detail fetch degrades to a placeholder name rather than
		// failing the whole proposal.
		return wire.Ref{ID: id, Name: wire.MultiLingualString{"en": "Type " + key}}, nil
	}
	raw2, _ := json.Marshal(st)
	_ = c.cache.Put(ctx, expand.KindSubmissionType, key, raw2)
	return wire.Ref{ID: id, Name: st.Name}, nil
}

// expandTrack mirrors expandSubmissionType for the nullable track
// reference.
func (c *Client) expandTrack(ctx context.Context, event string, raw json.RawMessage) (*wire.Ref, error) {
	if isJSONNull(raw) {
		return nil, nil
	}
	if !isJSONNumber(raw) {
		var name wire.MultiLingualString
		if err := json.Unmarshal(raw, &name); err != nil {
			return nil, &apperrors.WireError{Path: "track", Cause: err}
		}
		ref := wire.Ref{Name: name}
		return &ref, nil
	}

	var id int
	if err := json.Unmarshal(raw, &id); err != nil {
		return nil, &apperrors.WireError{Path: "track", Cause: err}
	}

	key := strconv.Itoa(id)
	if cached, ok, err := c.cache.Get(ctx, expand.KindTrack, key); err != nil {
		return nil, err
	} else if ok {
		t, err := decodeTrack(cached)
		if err != nil {
			return nil, err
		}
		ref := wire.Ref{ID: id, Name: t.Name}
		return &ref, nil
	}

	t, err := c.Track(ctx, event, id, nil)
	if err != nil {
		ref := wire.Ref{ID: id, Name: wire.MultiLingualString{"en": "Track " + key}}
		return &ref, nil
	}
	raw2, _ := json.Marshal(t)
	_ = c.cache.Put(ctx, expand.KindTrack, key, raw2)
	ref := wire.Ref{ID: id, Name: t.Name}
	return &ref, nil
}

// expandSpeakerRefs resolves a submission's speaker list, which the
// upstream sends as either bare codes or already-nested {code, name}
// objects, into the nested SpeakerRef view.
func (c *Client) expandSpeakerRefs(ctx context.Context, event string, raw json.RawMessage) ([]wire.SpeakerRef, error) {
	if isJSONNull(raw) {
		return nil, nil
	}

	first, ok := firstArrayElem(raw)
	if !ok {
		return nil, nil
	}

	if !isJSONString(first) {
		var nested []wire.SpeakerRef
		if err := json.Unmarshal(raw, &nested); err != nil {
			return nil, &apperrors.WireError{Path: "speakers", Cause: err}
		}
		return nested, nil
	}

	var codes []string
	if err := json.Unmarshal(raw, &codes); err != nil {
		return nil, &apperrors.WireError{Path: "speakers", Cause: err}
	}

	refs := make([]wire.SpeakerRef, 0, len(codes))
	for _, code := range codes {
		name, err := c.resolveSpeakerName(ctx, event, code)
		if err != nil {
			return nil, err
		}
		refs = append(refs, wire.SpeakerRef{Code: code, Name: name})
	}
	return refs, nil
}

func (c *Client) resolveSpeakerName(ctx context.Context, event, code string) (string, error) {
	if cached, ok, err := c.cache.Get(ctx, expand.KindSpeaker, code); err != nil {
		return "", err
	} else if ok {
		var s struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(cached, &s); err == nil {
			return s.Name, nil
		}
	}

	speaker, err := c.Speaker(ctx, event, code, url.Values{})
	if err != nil {
		return code, nil // degrade to the bare code rather than failing the proposal
	}
	raw, _ := json.Marshal(speaker)
	_ = c.cache.Put(ctx, expand.KindSpeaker, code, raw)
	return speaker.Name, nil
}

// expandAnswerRefs resolves a list of bare answer ids into Answer
// records, skipping ids the credential is not authorized to see
// (client.py's "Skip unauthorized answers").
func (c *Client) expandAnswerRefs(ctx context.Context, event string, raw json.RawMessage) ([]wire.Answer, error) {
	if isJSONNull(raw) {
		return nil, nil
	}

	first, ok := firstArrayElem(raw)
	if !ok {
		return nil, nil
	}
	if !isJSONNumber(first) {
		// Already nested.
		var nested []wire.Answer
		if err := json.Unmarshal(raw, &nested); err != nil {
			return nil, &apperrors.WireError{Path: "answers", Cause: err}
		}
		return nested, nil
	}

	var ids []int
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, &apperrors.WireError{Path: "answers", Cause: err}
	}

	var out []wire.Answer
	for _, id := range ids {
		a, unauthorized, err := c.resolveAnswer(ctx, event, id)
		if err != nil {
			return nil, err
		}
		if unauthorized {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (c *Client) resolveAnswer(ctx context.Context, event string, id int) (wire.Answer, bool, error) {
	key := strconv.Itoa(id)
	if cached, ok, err := c.cache.Get(ctx, expand.KindAnswer, key); err != nil {
		return wire.Answer{}, false, err
	} else if ok {
		if cached == nil {
			return wire.Answer{}, true, nil
		}
		var a wire.Answer
		if err := json.Unmarshal(cached, &a); err == nil {
			return a, false, nil
		}
	}

	a, err := c.Answer(ctx, event, id, nil)
	if err != nil {
		if apperrors.HTTPStatus(err) == 401 || apperrors.HTTPStatus(err) == 403 {
			_ = c.cache.Put(ctx, expand.KindAnswer, key, nil)
			return wire.Answer{}, true, nil
		}
		return wire.Answer{}, false, err
	}
	raw, _ := json.Marshal(a)
	_ = c.cache.Put(ctx, expand.KindAnswer, key, raw)
	return a, false, nil
}

// expandQuestionRef resolves an answer's question reference into the
// nested {id, question} view the upstream's newer wire format replaced
// with a bare id.
func (c *Client) expandQuestionRef(ctx context.Context, event string, raw json.RawMessage) (wire.QuestionRef, error) {
	if isJSONNull(raw) {
		return wire.QuestionRef{}, nil
	}
	if !isJSONNumber(raw) {
		var nested wire.QuestionRef
		if err := json.Unmarshal(raw, &nested); err != nil {
			return wire.QuestionRef{}, &apperrors.WireError{Path: "question", Cause: err}
		}
		return nested, nil
	}

	var id int
	if err := json.Unmarshal(raw, &id); err != nil {
		return wire.QuestionRef{}, &apperrors.WireError{Path: "question", Cause: err}
	}

	key := strconv.Itoa(id)
	if cached, ok, err := c.cache.Get(ctx, expand.KindQuestion, key); err != nil {
		return wire.QuestionRef{}, err
	} else if ok {
		q, err := decodeQuestion(cached)
		if err == nil {
			return wire.QuestionRef{ID: id, Question: q.Prompt}, nil
		}
	}

	q, err := c.Question(ctx, event, id, nil)
	if err != nil {
		return wire.QuestionRef{ID: id}, nil
	}
	raw2, _ := json.Marshal(q)
	_ = c.cache.Put(ctx, expand.KindQuestion, key, raw2)
	return wire.QuestionRef{ID: id, Question: q.Prompt}, nil
}

// requestedItemHint inspects a list request's query parameters for a
// page-size-style hint, used by the pre-population heuristic to skip
// bulk-filling the cache for queries that are "bounded" per spec.md §4.2.
func requestedItemHint(params url.Values) int {
	if params == nil {
		return 0
	}
	if v := params.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return 0
}

func parseTimeLenient(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errEmptyTime
	}
	return time.Parse(time.RFC3339, s)
}

var errEmptyTime = &emptyTimeError{}

type emptyTimeError struct{}

func (e *emptyTimeError) Error() string { return "empty time value" }
