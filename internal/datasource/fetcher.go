// Package datasource reads dashboard resources from the REST API and falls
// back to the static mock document when the API cannot answer.
package datasource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// DefaultTimeout bounds the primary request when the caller sets none.
const DefaultTimeout = 5 * time.Second

const maxBodyBytes = 16 << 20

// Fetch outcomes reported to the Recorder.
const (
	SourcePrimary  = "primary"
	SourceFallback = "fallback"

	OutcomeOK          = "ok"
	OutcomeError       = "error"
	OutcomeKeyNotFound = "key_not_found"
)

// Request identifies one resource: where the API serves it and where it
// lives inside the mock document.
type Request struct {
	URL         string
	FallbackKey string
	// Timeout overrides the fetcher's primary timeout when positive.
	Timeout time.Duration
}

// Source is anything that can resolve a Request to JSON.
type Source interface {
	Fetch(ctx context.Context, req Request) (json.RawMessage, error)
}

// Recorder receives one observation per attempted source.
type Recorder interface {
	ObserveFetch(source, outcome string)
}

// Options configures a Fetcher.
type Options struct {
	Client      *http.Client
	FallbackURL string
	Timeout     time.Duration
	Logger      *slog.Logger
	Recorder    Recorder
}

// Fetcher performs exactly one primary attempt and, on any failure, exactly
// one read of the mock document.
type Fetcher struct {
	client      *http.Client
	fallbackURL string
	timeout     time.Duration
	logger      *slog.Logger
	recorder    Recorder
}

// NewFetcher builds a Fetcher, applying defaults for missing options.
func NewFetcher(opts Options) *Fetcher {
	client := opts.Client
	if client == nil {
		client = &http.Client{}
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		client:      client,
		fallbackURL: opts.FallbackURL,
		timeout:     timeout,
		logger:      logger,
		recorder:    opts.Recorder,
	}
}

// Fetch returns the primary response, or the value at req.FallbackKey in the
// mock document when the primary fails for any reason. An empty req.URL skips
// the primary. Mock values shaped {"success", "data"} are unwrapped. Errors are
// ErrFallbackKeyNotFound or ErrNoDataAvailable, or the context error when the
// caller gave up.
func (f *Fetcher) Fetch(ctx context.Context, req Request) (json.RawMessage, error) {
	if strings.TrimSpace(req.URL) != "" {
		body, err := f.primary(ctx, req)
		if err == nil {
			f.observe(SourcePrimary, OutcomeOK)
			return body, nil
		}
		f.observe(SourcePrimary, OutcomeError)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		f.logger.Warn("primary source unavailable, using fallback",
			slog.String("url", req.URL),
			slog.String("fallback_key", req.FallbackKey),
			slog.Any("error", err),
		)
	}

	doc, err := f.fallbackDocument(ctx)
	if err != nil {
		f.observe(SourceFallback, OutcomeError)
		f.logger.Error("fallback document unavailable",
			slog.String("fallback_url", f.fallbackURL),
			slog.Any("error", err),
		)
		return nil, fmt.Errorf("%w: %v", ErrNoDataAvailable, err)
	}

	value, err := Resolve(doc, req.FallbackKey)
	if err != nil {
		f.observe(SourceFallback, OutcomeKeyNotFound)
		f.logger.Error("fallback key not found", slog.String("fallback_key", req.FallbackKey))
		return nil, err
	}
	value, err = unwrapEnvelope(value)
	if err != nil {
		f.observe(SourceFallback, OutcomeError)
		f.logger.Error("fallback value reports failure", slog.String("fallback_key", req.FallbackKey))
		return nil, fmt.Errorf("%w: %s: %v", ErrNoDataAvailable, req.FallbackKey, err)
	}
	f.observe(SourceFallback, OutcomeOK)
	return value, nil
}

func (f *Fetcher) primary(ctx context.Context, req Request) (json.RawMessage, error) {
	timeout := f.timeout
	if req.Timeout > 0 {
		timeout = req.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, status, err := f.get(ctx, req.URL)
	if err != nil {
		return nil, &primaryError{url: req.URL, err: err}
	}
	if status < 200 || status > 299 {
		return nil, &primaryError{url: req.URL, status: status}
	}
	if !json.Valid(body) {
		return nil, &primaryError{url: req.URL, err: errors.New("invalid json body")}
	}
	data, err := Unwrap(body)
	if err != nil {
		return nil, &primaryError{url: req.URL, err: err}
	}
	return data, nil
}

func (f *Fetcher) fallbackDocument(ctx context.Context) (json.RawMessage, error) {
	if strings.TrimSpace(f.fallbackURL) == "" {
		return nil, errors.New("no fallback url configured")
	}
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	body, status, err := f.get(ctx, f.fallbackURL)
	if err != nil {
		return nil, err
	}
	if status < 200 || status > 299 {
		return nil, fmt.Errorf("unexpected status %d", status)
	}
	if !json.Valid(body) {
		return nil, errors.New("invalid json document")
	}
	return body, nil
}

func (f *Fetcher) get(ctx context.Context, url string) ([]byte, int, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, err
	}
	httpReq.Header.Set("Accept", "application/json")
	resp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}

func (f *Fetcher) observe(source, outcome string) {
	if f.recorder != nil {
		f.recorder.ObserveFetch(source, outcome)
	}
}

// FetchInto fetches req and decodes the result into T.
func FetchInto[T any](ctx context.Context, src Source, req Request) (T, error) {
	var out T
	data, err := src.Fetch(ctx, req)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("datasource: decode %s: %w", req.FallbackKey, err)
	}
	return out, nil
}
