// Package content turns article links into clean reading text via a
// Jina-style reader service. The service prefixes the article URL and
// returns the page body as markdown.
package content

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/skimreader/skim/internal/config"
)

const maxContentSize = 5 * 1024 * 1024 // 5MB

// ExtractError is the typed failure of a content extraction. The reader
// falls back to the article summary whenever one of these is returned.
type ExtractError struct {
	Timeout bool
	Status  int
	Err     error
}

func (e *ExtractError) Error() string {
	switch {
	case e.Timeout:
		return "extraction timed out"
	case e.Status != 0:
		return fmt.Sprintf("extraction service returned %d", e.Status)
	default:
		return fmt.Sprintf("extraction failed: %v", e.Err)
	}
}

func (e *ExtractError) Unwrap() error { return e.Err }

type Extractor struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

func NewExtractor(cfg *config.Config) *Extractor {
	return &Extractor{
		client:  &http.Client{Timeout: cfg.Extractor.Timeout},
		baseURL: strings.TrimRight(cfg.Extractor.BaseURL, "/"),
		apiKey:  config.APIKey(),
	}
}

// Extract fetches clean text for the given article URL. Without an API key
// the service still answers, just rate limited harder.
func (e *Extractor) Extract(ctx context.Context, articleURL string) (string, error) {
	if _, err := url.ParseRequestURI(articleURL); err != nil {
		return "", &ExtractError{Err: fmt.Errorf("invalid article URL: %w", err)}
	}

	endpoint := e.baseURL + "/" + articleURL
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", &ExtractError{Err: err}
	}
	req.Header.Set("Accept", "text/plain")
	req.Header.Set("X-Return-Format", "markdown")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return "", &ExtractError{Timeout: true, Err: err}
		}
		return "", &ExtractError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &ExtractError{Status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxContentSize+1))
	if err != nil {
		if isTimeout(err) {
			return "", &ExtractError{Timeout: true, Err: err}
		}
		return "", &ExtractError{Err: fmt.Errorf("reading response: %w", err)}
	}
	if len(body) > maxContentSize {
		return "", &ExtractError{Err: fmt.Errorf("content exceeds %d bytes", maxContentSize)}
	}

	text := strings.TrimSpace(string(body))
	if text == "" {
		return "", &ExtractError{Err: errors.New("empty response from extraction service")}
	}
	return text, nil
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
