// Package api fetches game data from the HTTP game-data API.
package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// DefaultBaseURL is the public game-data API
const DefaultBaseURL = "https://api.spocks.club"

// StatusError reports a non-200 response
type StatusError struct {
	Route  string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("api: GET /%s: %d %s", e.Route, e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("api: GET /%s: %d %s", e.Route, e.Status, e.Body)
}

// Client is a rate-limited fetcher for the game-data API
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithRateLimit allows perSecond requests on average with bursts of burst.
// perSecond <= 0 disables throttling.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(cl *Client) {
		if perSecond <= 0 {
			cl.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		if burst < 1 {
			burst = 1
		}
		cl.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// New creates a client for baseURL with a 10s timeout and 10 requests per second
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(10), 10),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch GETs baseURL/route and returns the body
func (c *Client) Fetch(ctx context.Context, route string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	route = strings.TrimLeft(route, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+route, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{Route: route, Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return io.ReadAll(resp.Body)
}
