package content

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/skimreader/skim/internal/config"
)

func testExtractor(baseURL string) *Extractor {
	cfg := config.TestConfig()
	cfg.Extractor.BaseURL = baseURL
	return NewExtractor(cfg)
}

func TestExtractor_Extract(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if format := r.Header.Get("X-Return-Format"); format != "markdown" {
			t.Errorf("expected X-Return-Format markdown, got %s", format)
		}
		if !strings.Contains(r.URL.Path, "example.com/article") {
			t.Errorf("expected article URL in path, got %s", r.URL.Path)
		}
		w.Write([]byte("# Article\n\nClean text."))
	}))
	defer server.Close()

	text, err := testExtractor(server.URL).Extract(context.Background(), "http://example.com/article")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "# Article\n\nClean text." {
		t.Errorf("unexpected text %q", text)
	}
}

func TestExtractor_ExtractAPIKey(t *testing.T) {
	t.Setenv(config.APIKeyEnv, "secret-key")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "Bearer secret-key" {
			t.Errorf("expected bearer token, got %q", auth)
		}
		w.Write([]byte("text"))
	}))
	defer server.Close()

	if _, err := testExtractor(server.URL).Extract(context.Background(), "http://example.com/a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestExtractor_ExtractErrors(t *testing.T) {
	tests := []struct {
		name          string
		handler       http.HandlerFunc
		url           string
		expectTimeout bool
		expectStatus  int
	}{
		{
			name: "service error status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
			url:          "http://example.com/a",
			expectStatus: http.StatusBadGateway,
		},
		{
			name: "rate limited",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
			},
			url:          "http://example.com/a",
			expectStatus: http.StatusTooManyRequests,
		},
		{
			name: "empty response",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("   \n  "))
			},
			url: "http://example.com/a",
		},
		{
			name:    "invalid article url",
			handler: func(w http.ResponseWriter, r *http.Request) {},
			url:     "not a url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			_, err := testExtractor(server.URL).Extract(context.Background(), tt.url)
			var ee *ExtractError
			if !errors.As(err, &ee) {
				t.Fatalf("expected ExtractError, got %v", err)
			}
			if ee.Timeout != tt.expectTimeout {
				t.Errorf("timeout=%v, want %v", ee.Timeout, tt.expectTimeout)
			}
			if ee.Status != tt.expectStatus {
				t.Errorf("status=%d, want %d", ee.Status, tt.expectStatus)
			}
		})
	}
}

func TestExtractor_ExtractTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := testExtractor(server.URL).Extract(ctx, "http://example.com/a")
	var ee *ExtractError
	if !errors.As(err, &ee) {
		t.Fatalf("expected ExtractError, got %v", err)
	}
	if !ee.Timeout {
		t.Errorf("expected timeout classification, got %v", err)
	}
}
