package stats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultHTTPTimeout bounds one HTTPProvider request.
	DefaultHTTPTimeout = 10 * time.Second

	// maxResponseBytes caps a provider response body.
	maxResponseBytes = 1 << 20
)

// HTTPProvider fetches stats from a JSON endpoint. The URL template must
// contain "{name}", which is replaced by the path-escaped player name.
// The response body must decode into Stats.
//
// 404 maps to ErrNotFound and 429 to ErrRateLimited.
type HTTPProvider struct {
	name     string
	template string
	header   http.Header
	client   *http.Client
	limiter  *rate.Limiter
	now      func() time.Time
}

// HTTPOption configures an HTTPProvider.
type HTTPOption func(*HTTPProvider)

// WithHTTPClient sets the client used for requests.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(p *HTTPProvider) {
		if c != nil {
			p.client = c
		}
	}
}

// WithHeader adds a request header, e.g. an API key.
func WithHeader(key, value string) HTTPOption {
	return func(p *HTTPProvider) {
		p.header.Add(key, value)
	}
}

// WithProviderName sets the name reported by Name.
func WithProviderName(name string) HTTPOption {
	return func(p *HTTPProvider) {
		if name != "" {
			p.name = name
		}
	}
}

// WithRateLimit limits requests to perSecond, allowing bursts of burst.
// Fetch waits for a token or until its context is done.
func WithRateLimit(perSecond float64, burst int) HTTPOption {
	return func(p *HTTPProvider) {
		if perSecond <= 0 {
			return
		}
		if burst < 1 {
			burst = 1
		}
		p.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// NewHTTPProvider returns a provider for the URL template.
func NewHTTPProvider(template string, opts ...HTTPOption) (*HTTPProvider, error) {
	if !strings.Contains(template, "{name}") {
		return nil, errors.New("stats url must contain {name}")
	}
	u, err := url.Parse(strings.ReplaceAll(template, "{name}", "x"))
	if err != nil {
		return nil, fmt.Errorf("stats url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("stats url: unsupported scheme %q", u.Scheme)
	}

	p := &HTTPProvider{
		name:     u.Host,
		template: template,
		header:   make(http.Header),
		client:   &http.Client{Timeout: DefaultHTTPTimeout},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Name implements Provider.
func (p *HTTPProvider) Name() string { return p.name }

// Fetch implements Provider.
func (p *HTTPProvider) Fetch(ctx context.Context, name string) (Stats, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return Stats{}, err
		}
	}

	target := strings.ReplaceAll(p.template, "{name}", url.PathEscape(name))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Stats{}, err
	}
	for k, vs := range p.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return Stats{}, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return Stats{}, ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		return Stats{}, ErrRateLimited
	case resp.StatusCode != http.StatusOK:
		return Stats{}, fmt.Errorf("unexpected status %s", resp.Status)
	}

	var s Stats
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&s); err != nil {
		return Stats{}, fmt.Errorf("decode response: %w", err)
	}
	if s.Name == "" {
		s.Name = name
	}
	s.Provider = p.name
	if s.FetchedAt.IsZero() {
		s.FetchedAt = p.now()
	}
	return s, nil
}
