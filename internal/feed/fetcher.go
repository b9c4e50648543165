package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/skimreader/skim/internal/config"
)

const maxFeedSize = 10 * 1024 * 1024 // 10MB

type Fetcher struct {
	client    *http.Client
	userAgent string
}

func NewFetcher(cfg *config.Config) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: cfg.Feed.HTTPTimeout,
		},
		userAgent: cfg.Feed.UserAgent,
	}
}

// Fetch downloads the raw feed document. The client timeout converts a hang
// into ErrTimeout instead of occupying a refresh slot forever.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, newFetchError(ErrNetwork, fmt.Errorf("creating request: %w", err))
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml")

	resp, err := f.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return nil, newFetchError(ErrTimeout, err)
		}
		return nil, newFetchError(ErrNetwork, fmt.Errorf("fetching feed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, newFetchError(ErrNetwork, fmt.Errorf("HTTP error: %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedSize+1))
	if err != nil {
		if isTimeout(err) {
			return nil, newFetchError(ErrTimeout, err)
		}
		return nil, newFetchError(ErrNetwork, fmt.Errorf("reading response: %w", err))
	}
	if len(body) > maxFeedSize {
		return nil, newFetchError(ErrParse, fmt.Errorf("feed exceeds %d bytes", maxFeedSize))
	}

	return body, nil
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
