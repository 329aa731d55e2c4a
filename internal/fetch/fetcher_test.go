package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func newTestFetcher() *Fetcher {
	f := NewFetcher()
	f.limiter = rate.NewLimiter(rate.Inf, 1)
	return f
}

func TestFetchReturnsBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"MenusForDays":[]}`))
	}))
	defer server.Close()

	f := newTestFetcher()
	body, err := f.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if body != `{"MenusForDays":[]}` {
		t.Errorf("unexpected body: %s", body)
	}
}

func TestFetchSetsUserAgent(t *testing.T) {
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
	}))
	defer server.Close()

	f := newTestFetcher()
	if _, err := f.Fetch(context.Background(), server.URL); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if !strings.HasPrefix(gotUA, "Lunchtray/") {
		t.Errorf("unexpected user agent: %s", gotUA)
	}
}

func TestFetchNon2xxIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone fishing", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	f := newTestFetcher()
	if _, err := f.Fetch(context.Background(), server.URL); err == nil {
		t.Fatal("expected error for 503 response")
	}
}

func TestFetchHonorsContextTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	f := newTestFetcher()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := f.Fetch(ctx, server.URL); err == nil {
		t.Fatal("expected timeout error")
	}
}
