// Package vworld is a client for the VWorld (브이월드) address geocoding API.
package vworld

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the getCoord endpoint.
const DefaultBaseURL = "https://api.vworld.kr/req/address"

// Address types accepted by getCoord.
const (
	TypeRoad   = "road"
	TypeParcel = "parcel"
)

var (
	// ErrMissingKey is returned before any network call when no API key is configured.
	ErrMissingKey = eris.New("vworld: api key not configured")

	// ErrMalformedResponse marks a body that could not be decoded as a getCoord response.
	ErrMalformedResponse = eris.New("vworld: malformed response")
)

// Option configures the Client.
type Option func(*Client)

// WithKey sets the API key sent with every request.
func WithKey(key string) Option {
	return func(c *Client) {
		c.key = key
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithBaseURL overrides the getCoord endpoint.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = u
		}
	}
}

// WithRateLimit sets the requests-per-second limit. Zero or less disables limiting.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithTimeout bounds a single lookup, including the rate limiter wait.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// Client performs getCoord lookups. It is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	baseURL    string
	key        string
	limiter    *rate.Limiter
	timeout    time.Duration
}

// New creates a Client with the given options.
func New(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{},
		baseURL:    DefaultBaseURL,
		limiter:    rate.NewLimiter(10, 10),
		timeout:    5 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HasKey reports whether an API key is configured.
func (c *Client) HasKey() bool {
	return c.key != ""
}

// Lookup geocodes address as the given address type (TypeRoad or TypeParcel).
// Provider-level outcomes (OK, NOT_FOUND, ERROR) come back in the Response;
// the error is reserved for missing credentials, transport failures, non-2xx
// statuses and undecodable bodies.
func (c *Client) Lookup(ctx context.Context, address, addrType string) (*Response, error) {
	if c.key == "" {
		return nil, ErrMissingKey
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "vworld: rate limit")
	}

	params := url.Values{
		"service": {"address"},
		"request": {"getCoord"},
		"version": {"2.0"},
		"crs":     {"epsg:4326"},
		"address": {address},
		"refine":  {"true"},
		"simple":  {"false"},
		"format":  {"json"},
		"type":    {addrType},
		"key":     {c.key},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "vworld: build request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "vworld: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, eris.Errorf("vworld: returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "vworld: read body")
	}

	parsed, err := Parse(body)
	if err != nil {
		return nil, eris.Wrapf(err, "vworld: content-type %q", resp.Header.Get("Content-Type"))
	}
	return parsed, nil
}

// Parse decodes a getCoord JSON body.
func Parse(body []byte) (*Response, error) {
	var raw rawResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, eris.Wrap(ErrMalformedResponse, err.Error())
	}
	if raw.Response.Status == "" {
		return nil, eris.Wrap(ErrMalformedResponse, "missing response.status")
	}
	return raw.toResponse(), nil
}
