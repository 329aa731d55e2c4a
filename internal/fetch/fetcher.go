// Package fetch retrieves raw menu payloads over HTTP.
//
// The fetcher is deliberately dumb: one GET per attempt, body returned
// as opaque text. Parsing and state transitions belong to the caller.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Body size cap. Menu payloads are tens of kilobytes; anything past
// this is a misbehaving upstream.
const maxBodyBytes = 4 << 20

// Request timeouts. Manual refreshes get more slack because a user is
// watching and would rather wait than see a spurious error.
const (
	BackgroundTimeout = 10 * time.Second
	ManualTimeout     = 30 * time.Second
)

// Fetcher retrieves payload bodies.
type Fetcher struct {
	client  *http.Client
	limiter *rate.Limiter
}

// NewFetcher creates a Fetcher. The rate limiter spaces requests out so
// a refresh pass over the whole catalog does not burst-hit the
// upstreams.
func NewFetcher() *Fetcher {
	return &Fetcher{
		client:  &http.Client{},
		limiter: rate.NewLimiter(rate.Every(250*time.Millisecond), 2),
	}
}

// Fetch performs one GET against url and returns the body as text.
// Any non-2xx status is an error. The timeout rides on ctx; callers
// pick BackgroundTimeout or ManualTimeout.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	// Set a user agent to be a good citizen
	req.Header.Set("User-Agent", "Lunchtray/1.0 (https://github.com/abelbrown/lunchtray)")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read body: %w", err)
	}

	return string(body), nil
}
