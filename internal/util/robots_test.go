package util

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestRobotsChecker_CanFetch(t *testing.T) {
	var robotsHits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		robotsHits.Add(1)
		_, _ = fmt.Fprint(w, "User-agent: thermobook\nDisallow: /cgi/structure\nCrawl-delay: 2\n\nUser-agent: *\nDisallow: /\n")
	}))
	defer server.Close()

	checker := NewRobotsChecker("thermobook/0.3 (+https://example.com)", 5*time.Second, nil, nil)
	ctx := context.Background()

	allowed, delay, err := checker.CanFetch(ctx, server.URL+"/cgi/cbook.cgi?ID=C74828&Units=SI")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !allowed {
		t.Error("Expected root page to be allowed")
	}
	if delay != 2*time.Second {
		t.Errorf("Expected 2s crawl delay, got %v", delay)
	}

	allowed, _, err = checker.CanFetch(ctx, server.URL+"/cgi/structure/C74828.png")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if allowed {
		t.Error("Expected structure image to be disallowed")
	}

	if robotsHits.Load() != 1 {
		t.Errorf("Expected robots.txt fetched once, got %d", robotsHits.Load())
	}
}

func TestRobotsChecker_Missing(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	checker := NewRobotsChecker("thermobook/0.3", 5*time.Second, nil, nil)
	allowed, _, err := checker.CanFetch(context.Background(), server.URL+"/anything")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !allowed {
		t.Error("Expected missing robots.txt to allow everything")
	}
}

func TestNormalizeUserAgent(t *testing.T) {
	if got := NormalizeUserAgent("thermobook/0.3 (+https://x)"); got != "thermobook" {
		t.Errorf("Expected thermobook, got %q", got)
	}
	if got := NormalizeUserAgent(""); got != "" {
		t.Errorf("Expected empty, got %q", got)
	}
}
