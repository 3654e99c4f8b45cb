// Package fetch implements the paginated, rate-limited, version-pinned
// HTTP fetcher (C2), grounded on pytanis's PretalxClient._get/_get_one/
// _resolve_pagination/_get_many (original_source/src/pytanis/pretalx/client.py).
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/pytanis-go/pretalx-core/pkg/errors"
	"github.com/pytanis-go/pretalx-core/pkg/metrics"
)

// Config holds the per-fetcher wire settings described in spec.md §4.1
// and §6.
type Config struct {
	BaseURL       string
	Token         string
	VersionHeader string
	APIVersion    string
	RequestTimeout time.Duration
	MaxRetries    int
	BaseBackoff   time.Duration
	MaxBackoff    time.Duration
}

// Page is the raw list-endpoint envelope: {count, next, previous,
// results}, kept undecoded so the client layer (C4) can expand
// references before unmarshaling into wire types — mirroring the
// original's dict-first, model_validate-last ordering.
type Page struct {
	Count    int               `json:"count"`
	Next     *string           `json:"next"`
	Previous *string           `json:"previous"`
	Results  []json.RawMessage `json:"results"`
}

// Fetcher issues throttled, retried HTTP GETs against the upstream.
type Fetcher struct {
	cfg     Config
	http    *http.Client
	limiter Limiter
	log     *zap.Logger
	metrics *metrics.Recorder
}

// New builds a Fetcher. limiter is required; pass a *TokenBucket for the
// default in-process mode.
func New(cfg Config, limiter Limiter, log *zap.Logger, rec *metrics.Recorder) *Fetcher {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = 500 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 30 * time.Second
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = "v1"
	}
	if cfg.VersionHeader == "" {
		cfg.VersionHeader = "Pretalx-Version"
	}
	return &Fetcher{
		cfg:     cfg,
		http:    &http.Client{},
		limiter: limiter,
		log:     log,
		metrics: rec,
	}
}

// GetOne issues a GET against a single-resource (detail) endpoint.
// 404 maps to *apperrors.NotFound.
func (f *Fetcher) GetOne(ctx context.Context, path string, params url.Values) (json.RawMessage, error) {
	body, status, err := f.do(ctx, path, params)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, &apperrors.NotFound{Path: path}
	}
	return body, nil
}

// GetMany issues a GET against a list endpoint and returns the result
// count alongside a Cursor over its elements. blocking selects the
// materialize-everything-before-returning mode of spec.md §4.1; when
// false, the Cursor lazily fetches subsequent pages as it is advanced.
func (f *Fetcher) GetMany(ctx context.Context, path string, params url.Values, blocking bool) (int, *Cursor, error) {
	body, status, err := f.do(ctx, path, params)
	if err != nil {
		return 0, nil, err
	}
	if status == http.StatusNotFound {
		return 0, nil, &apperrors.NotFound{Path: path}
	}

	var page Page
	if err := json.Unmarshal(body, &page); err != nil {
		return 0, nil, &apperrors.WireError{Path: path, Cause: err}
	}

	cur := &Cursor{fetcher: f, buffer: page.Results, next: page.Next, count: page.Count}

	if blocking {
		all, err := cur.drainAll(ctx)
		if err != nil {
			return 0, nil, err
		}
		return page.Count, &Cursor{fetcher: f, buffer: all, next: nil, count: page.Count, exhausted: true}, nil
	}
	return page.Count, cur, nil
}

// do performs one throttled, retried HTTP GET, following trailing-slash
// redirects with the version header preserved (spec.md §4.1).
func (f *Fetcher) do(ctx context.Context, path string, params url.Values) (json.RawMessage, int, error) {
	var lastErr error

	for attempt := 0; attempt <= f.cfg.MaxRetries; attempt++ {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, 0, &apperrors.Cancelled{Path: path}
		}

		reqCtx := ctx
		var cancel context.CancelFunc
		if f.cfg.RequestTimeout > 0 {
			reqCtx, cancel = context.WithTimeout(ctx, f.cfg.RequestTimeout)
		}

		body, status, err := f.doOnce(reqCtx, path, params)
		if cancel != nil {
			cancel()
		}

		if err != nil {
			if ctx.Err() != nil {
				return nil, 0, &apperrors.Cancelled{Path: path}
			}
			if reqCtx.Err() == context.DeadlineExceeded {
				return nil, 0, &apperrors.UpstreamTimeout{Path: path}
			}
			lastErr = err
			f.retryAfter(ctx, attempt, "transport")
			continue
		}

		switch {
		case status == http.StatusTooManyRequests || status >= 500:
			lastErr = fmt.Errorf("status %d", status)
			if f.metrics != nil {
				f.metrics.FetchRetries.WithLabelValues(path, strconv.Itoa(status)).Inc()
			}
			f.retryAfter(ctx, attempt, "status_"+strconv.Itoa(status))
			continue
		case status == http.StatusNotFound:
			return body, status, nil
		case status >= 400:
			return nil, status, &apperrors.UpstreamClientError{Status: status, Body: string(body), Path: path}
		default:
			return body, status, nil
		}
	}

	return nil, 0, &apperrors.UpstreamUnavailable{Path: path, Err: lastErr}
}

func (f *Fetcher) retryAfter(ctx context.Context, attempt int, reason string) {
	backoff := f.cfg.BaseBackoff * time.Duration(math.Pow(2, float64(attempt)))
	if backoff > f.cfg.MaxBackoff {
		backoff = f.cfg.MaxBackoff
	}
	jitter := time.Duration(rand.Int63n(int64(backoff) / 2))
	wait := backoff/2 + jitter

	f.log.Debug("fetch: retrying", zap.Int("attempt", attempt), zap.String("reason", reason), zap.Duration("wait", wait))

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func (f *Fetcher) doOnce(ctx context.Context, path string, params url.Values) (json.RawMessage, int, error) {
	base, err := url.Parse(f.cfg.BaseURL)
	if err != nil {
		return nil, 0, err
	}
	ref, err := url.Parse(path)
	if err != nil {
		return nil, 0, err
	}
	full := base.ResolveReference(ref)
	if params != nil {
		full.RawQuery = params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, full.String(), nil)
	if err != nil {
		return nil, 0, err
	}
	f.setHeaders(req)

	f.log.Debug("fetch: GET", zap.String("path", path))
	start := time.Now()
	resp, err := f.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	if f.metrics != nil {
		f.metrics.FetchLatency.WithLabelValues(path).Observe(time.Since(start).Seconds())
	}

	// Trailing-slash redirect: net/http follows 3xx automatically while
	// reusing the original request's headers (incl. the version header),
	// so no special handling is required beyond reading the final body.
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}

func (f *Fetcher) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Token "+f.cfg.Token)
	req.Header.Set(f.cfg.VersionHeader, f.cfg.APIVersion)
	req.Header.Set("Accept", "application/json")
}
