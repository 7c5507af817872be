package listing

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

const (
	// ParentParam is the query parameter carrying the parent id. It is
	// omitted for the virtual root.
	ParentParam = "parent"

	// DefaultTimeout bounds a single listing request.
	DefaultTimeout = 15 * time.Second

	// maxAnswerBytes caps the response body read from the source.
	maxAnswerBytes = 8 << 20

	// maxErrorBodyBytes caps how much of a non-2xx body ends up in the error.
	maxErrorBodyBytes = 512
)

// HTTPSource fetches listings from a JSON endpoint that answers
// GET <url>?parent=<id> with an Answer envelope.
type HTTPSource struct {
	base   *url.URL
	client *http.Client
	logger zerolog.Logger
}

// HTTPOption configures an HTTPSource.
type HTTPOption func(*HTTPSource)

// WithHTTPClient replaces the default client (which has DefaultTimeout).
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(s *HTTPSource) {
		if c != nil {
			s.client = c
		}
	}
}

// WithTimeout sets the per-request timeout of the default client.
func WithTimeout(d time.Duration) HTTPOption {
	return func(s *HTTPSource) {
		if d > 0 {
			s.client = &http.Client{Timeout: d}
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l zerolog.Logger) HTTPOption {
	return func(s *HTTPSource) {
		s.logger = l.With().Str("component", "listing").Logger()
	}
}

// NewHTTPSource creates a source for the endpoint at rawURL. Any query
// parameters already present on rawURL are preserved on every request.
func NewHTTPSource(rawURL string, opts ...HTTPOption) (*HTTPSource, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}

	s := &HTTPSource{
		base:   u,
		client: &http.Client{Timeout: DefaultTimeout},
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// URL returns the endpoint URL used for the root request.
func (s *HTTPSource) URL() string {
	return s.base.String()
}

// RequestURL returns the URL requested for parentID. The root request carries
// no parent qualifier.
func (s *HTTPSource) RequestURL(parentID int64) string {
	u := *s.base
	q := u.Query()
	if IsRoot(parentID) {
		q.Del(ParentParam)
	} else {
		q.Set(ParentParam, FormatID(parentID))
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// List implements Source.
func (s *HTTPSource) List(ctx context.Context, parentID int64) (Listing, error) {
	target := s.RequestURL(parentID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %w", ErrTransport, err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: %w", ErrTransport, target, err)
	}
	defer resp.Body.Close()

	s.logger.Debug().
		Int64("parent_id", parentID).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("listing request completed")

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, fmt.Errorf("%w: GET %s: HTTP %d: %s", ErrTransport, target, resp.StatusCode, snippet)
	}

	var answer Answer
	if decodeErr := json.NewDecoder(io.LimitReader(resp.Body, maxAnswerBytes)).Decode(&answer); decodeErr != nil {
		return nil, fmt.Errorf("%w: parent %d: %w", ErrMalformedAnswer, parentID, decodeErr)
	}

	return answer.Listing(parentID)
}
