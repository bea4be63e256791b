// Package transport provides the retrying HTTP session the link walker
// uses to fetch index pages and probe content types, and that
// internal/pypi.Service now also issues its JSON API GETs through,
// rather than each package keeping its own GET-with-backoff loop (spec
// §6 "HTTP session collaborator").
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"
)

const (
	defaultMaxRetries = 3
	defaultTimeout    = 30 * time.Second
)

// Response is the stripped-down result of a fetch: enough for the walker
// to decide what to do with a page without holding an *http.Response open.
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
	FinalURL    string // post-redirect URL, used to resolve relative links
}

// Session is the collaborator the walker depends on to reach the network
// (spec §6). Get fetches and reads a full body; Head issues a HEAD request
// to cheaply learn a URL's content type before committing to a GET, the
// way skip_archives probes in the original.
type Session interface {
	Get(ctx context.Context, url string, headers map[string]string) (*Response, error)
	Head(ctx context.Context, url string) (*Response, error)
}

// Option configures a Service.
type Option func(*Service)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Service) {
		if c != nil {
			s.httpClient = c
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMaxRetries overrides the retry count for transient failures.
func WithMaxRetries(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxRetries = n
		}
	}
}

// Service is a retrying HTTP session.
type Service struct {
	httpClient *http.Client
	logger     *slog.Logger
	maxRetries int
}

var _ Session = (*Service)(nil)

// New creates a Service with sane defaults.
func New(opts ...Option) *Service {
	s := &Service{
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     slog.Default(),
		maxRetries: defaultMaxRetries,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Get issues a GET, retrying transient failures with exponential backoff,
// exactly as internal/pypi.Service.fetch does for the JSON API.
func (s *Service) Get(ctx context.Context, url string, headers map[string]string) (*Response, error) {
	return s.fetch(ctx, http.MethodGet, url, headers)
}

// Head issues a HEAD request, used by the walker to check a content type
// before deciding whether to fetch a whole page (spec §6 "skip_archives").
func (s *Service) Head(ctx context.Context, url string) (*Response, error) {
	return s.fetch(ctx, http.MethodHead, url, nil)
}

// HTTPError reports a non-2xx response that is not worth retrying, mirroring
// pip's treatment of a 4xx as a permanent "drop this link" signal rather
// than a DistributionNotFound-worthy hard failure (spec §7).
type HTTPError struct {
	StatusCode int
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http %d fetching %s", e.StatusCode, e.URL)
}

type retryableError struct {
	err error
}

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

func (s *Service) fetch(ctx context.Context, method, url string, headers map[string]string) (*Response, error) {
	var lastErr error

	for attempt := range s.maxRetries {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt))) * 500 * time.Millisecond
			s.logger.Debug("retrying request",
				slog.String("method", method),
				slog.String("url", url),
				slog.Int("attempt", attempt+1),
				slog.Duration("backoff", backoff),
			)

			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%s %s: %w", method, url, ctx.Err())
			case <-time.After(backoff):
			}
		}

		resp, err := s.doRequest(ctx, method, url, headers)
		if err == nil {
			return resp, nil
		}

		var re *retryableError
		if !errors.As(err, &re) {
			return nil, err
		}

		lastErr = err
		s.logger.Debug("request failed",
			slog.String("method", method),
			slog.String("url", url),
			slog.Int("attempt", attempt+1),
			slog.String("error", err.Error()),
		)
	}

	return nil, fmt.Errorf("%s %s after %d attempts: %w", method, url, s.maxRetries, lastErr)
}

func (s *Service) doRequest(ctx context.Context, method, url string, headers map[string]string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request for %s: %w", url, err)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, &retryableError{err: fmt.Errorf("requesting %s: %w", url, err)}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, &retryableError{err: fmt.Errorf("server error %d from %s", resp.StatusCode, url)}
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &HTTPError{StatusCode: resp.StatusCode, URL: url}
	}

	var body []byte

	if method != http.MethodHead {
		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return nil, &retryableError{err: fmt.Errorf("reading response from %s: %w", url, err)}
		}
	}

	finalURL := url
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return &Response{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
		FinalURL:    finalURL,
	}, nil
}
