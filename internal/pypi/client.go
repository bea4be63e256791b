package pypi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/bilusteknoloji/pipget/internal/transport"
)

const (
	defaultBaseURL = "https://pypi.org/pypi"
	clientTimeout  = 30 * time.Second
)

// Client defines the interface for communicating with the PyPI JSON API.
type Client interface {
	GetPackage(ctx context.Context, name string) (*PackageInfo, error)
	GetPackageVersion(ctx context.Context, name, version string) (*PackageInfo, error)
}

// Option configures a Service.
type Option func(*Service)

// WithHTTPClient sets the HTTP client used for API requests.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Service) {
		if c != nil {
			s.httpClient = c
		}
	}
}

// WithBaseURL sets a custom base URL (useful for testing with httptest.Server).
func WithBaseURL(url string) Option {
	return func(s *Service) {
		if url != "" {
			s.baseURL = url
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

// Service communicates with the PyPI JSON API over HTTP, delegating the
// actual request/retry mechanics to internal/transport.Session — the same
// collaborator internal/finder's page walker uses — rather than keeping a
// second hand-rolled retry loop.
type Service struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
	session    transport.Session
}

// compile-time proof that Service implements Client.
var _ Client = (*Service)(nil)

// New creates a new PyPI API service.
func New(opts ...Option) *Service {
	s := &Service{
		httpClient: &http.Client{Timeout: clientTimeout},
		baseURL:    defaultBaseURL,
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.session = transport.New(transport.WithHTTPClient(s.httpClient), transport.WithLogger(s.logger))

	return s
}

// GetPackage fetches metadata for a package from PyPI.
// Endpoint: GET {baseURL}/{package_name}/json
func (s *Service) GetPackage(ctx context.Context, name string) (*PackageInfo, error) {
	url := fmt.Sprintf("%s/%s/json", s.baseURL, name)

	return s.fetch(ctx, url, name)
}

// GetPackageVersion fetches metadata for a specific version of a package.
// Endpoint: GET {baseURL}/{package_name}/{version}/json
func (s *Service) GetPackageVersion(ctx context.Context, name, version string) (*PackageInfo, error) {
	url := fmt.Sprintf("%s/%s/%s/json", s.baseURL, name, version)

	return s.fetch(ctx, url, name)
}

// fetch issues the GET through the shared retrying session and decodes the
// response. transport.Session already retries transient failures (5xx,
// network errors) with exponential backoff; a 404 is reported as
// "package not found" to match pip's own package-lookup error, any other
// 4xx is surfaced via the session's own HTTPError, a 5xx that outlasts
// the retries via the session's "after N attempts" error, and a
// malformed JSON body is a permanent decode error, never retried.
func (s *Service) fetch(ctx context.Context, url, name string) (*PackageInfo, error) {
	resp, err := s.session.Get(ctx, url, map[string]string{"Accept": "application/json"})
	if err != nil {
		var httpErr *transport.HTTPError
		if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("package not found at %s", url)
		}

		return nil, fmt.Errorf("fetching %s: %w", name, err)
	}

	var info PackageInfo
	if err := json.Unmarshal(resp.Body, &info); err != nil {
		return nil, fmt.Errorf("decoding response from %s: %w", url, err)
	}

	return &info, nil
}
