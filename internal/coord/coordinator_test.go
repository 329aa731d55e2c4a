package coord

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/abelbrown/lunchtray/internal/cache"
	"github.com/abelbrown/lunchtray/internal/catalog"
	"github.com/abelbrown/lunchtray/internal/engine"
	"github.com/abelbrown/lunchtray/internal/provider"
)

var testNow = time.Date(2026, 2, 19, 11, 0, 0, 0, time.UTC)

func testClock() time.Time { return testNow }

// compassBody is a structured-feed payload whose only day matches testNow.
const compassBody = `{
	"RestaurantName": "Snellmania",
	"RestaurantUrl": "https://example.test/snellmania",
	"MenusForDays": [
		{
			"Date": "2026-02-19T00:00:00",
			"LunchTime": "10:30-13:30",
			"SetMenus": [
				{"SortOrder": 1, "Name": "Lunch", "Price": "2,95", "Components": ["Pea soup (L, G)"]}
			]
		}
	]
}`

// compassBodyYesterday only describes the day before testNow.
const compassBodyYesterday = `{
	"MenusForDays": [
		{
			"Date": "2026-02-18T00:00:00",
			"LunchTime": "10:30-13:30",
			"SetMenus": [
				{"SortOrder": 1, "Name": "Lunch", "Price": "2,95", "Components": ["Old soup"]}
			]
		}
	]
}`

// mockFetcher implements the fetcher interface for testing.
type mockFetcher struct {
	mu   sync.Mutex
	body string
	err  error
	urls []string
}

func (m *mockFetcher) Fetch(ctx context.Context, url string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.urls = append(m.urls, url)
	return m.body, m.err
}

func (m *mockFetcher) fetchedURLs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]string, len(m.urls))
	copy(result, m.urls)
	return result
}

func testEntries(t *testing.T, codes ...string) []catalog.Entry {
	t.Helper()
	entries := make([]catalog.Entry, 0, len(codes))
	for _, code := range codes {
		entries = append(entries, catalog.ForCode(code, true))
	}
	return entries
}

func TestRefreshAppliesSuccess(t *testing.T) {
	e := engine.New(testClock)
	f := &mockFetcher{body: compassBody}
	c := New(e, nil, f, testEntries(t, "0437"), "fi", 0, testClock)

	c.Refresh(context.Background(), nil, false)

	s, ok := e.Snapshot("0437")
	if !ok {
		t.Fatal("restaurant not tracked")
	}
	if s.Status != engine.StatusOk || !s.IsTodayFresh {
		t.Fatalf("status=%s fresh=%v, want ok/fresh", s.Status, s.IsTodayFresh)
	}
	if s.RestaurantName != "Snellmania" {
		t.Fatalf("restaurant name = %q", s.RestaurantName)
	}
	if s.TodayMenu == nil || len(s.TodayMenu.Menus) != 1 {
		t.Fatalf("unexpected menu: %+v", s.TodayMenu)
	}
}

func TestRefreshFetchesEveryEntry(t *testing.T) {
	e := engine.New(testClock)
	f := &mockFetcher{body: compassBody}
	c := New(e, nil, f, testEntries(t, "0437", "0439", "antell-round"), "fi", 0, testClock)

	c.Refresh(context.Background(), nil, false)

	urls := f.fetchedURLs()
	if len(urls) != 3 {
		t.Fatalf("fetched %d URLs, want 3", len(urls))
	}

	var sawFeed, sawScrape bool
	for _, u := range urls {
		if strings.Contains(u, "costNumber=0437") {
			sawFeed = true
		}
		if strings.Contains(u, "print_lunch_day=thursday") {
			sawScrape = true
		}
	}
	if !sawFeed || !sawScrape {
		t.Fatalf("provider URLs not dispatched: %v", urls)
	}
}

func TestTransportErrorLandsInState(t *testing.T) {
	e := engine.New(testClock)
	f := &mockFetcher{err: errors.New("connection refused")}
	c := New(e, nil, f, testEntries(t, "0437"), "fi", 0, testClock)

	c.Refresh(context.Background(), nil, false)

	s, _ := e.Snapshot("0437")
	if s.Status != engine.StatusError {
		t.Fatalf("status = %s, want error", s.Status)
	}
	if s.ErrorMessage == "" {
		t.Fatal("error message not recorded")
	}
	if s.NextRetry.IsZero() {
		t.Fatal("retry not scheduled after transport error")
	}
}

func TestParseFailureLandsInState(t *testing.T) {
	e := engine.New(testClock)
	f := &mockFetcher{body: "not json at all"}
	c := New(e, nil, f, testEntries(t, "0437"), "fi", 0, testClock)

	c.Refresh(context.Background(), nil, false)

	s, _ := e.Snapshot("0437")
	if s.Status != engine.StatusError {
		t.Fatalf("status = %s, want error", s.Status)
	}
}

func TestSuccessPersistsToCache(t *testing.T) {
	store, err := cache.Open(":memory:")
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	defer store.Close()

	e := engine.New(testClock)
	f := &mockFetcher{body: compassBody}
	c := New(e, store, f, testEntries(t, "0437"), "fi", 0, testClock)

	c.Refresh(context.Background(), nil, false)

	key := cache.Key(provider.KindStructuredFeed, "0437", "fi")
	entry, ok, err := store.Get(key)
	if err != nil || !ok {
		t.Fatalf("cache entry missing after fetch: ok=%v err=%v", ok, err)
	}
	if entry.RawText != compassBody {
		t.Fatal("cached payload differs from fetched body")
	}
	if entry.FetchDay != "2026-02-19" {
		t.Fatalf("fetch day = %s", entry.FetchDay)
	}
}

func TestDeriveFromCacheMarksYesterdayStale(t *testing.T) {
	store, err := cache.Open(":memory:")
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	defer store.Close()

	cachedAt := testNow.Add(-20 * time.Hour)
	put := cache.Entry{
		Key:      cache.Key(provider.KindStructuredFeed, "0437", "fi"),
		Kind:     provider.KindStructuredFeed,
		RawText:  compassBodyYesterday,
		FetchDay: "2026-02-18",
		StoredAt: cachedAt,
	}
	if err := store.Put(put); err != nil {
		t.Fatalf("put: %v", err)
	}

	e := engine.New(testClock)
	c := New(e, store, &mockFetcher{}, testEntries(t, "0437"), "fi", 0, testClock)

	c.DeriveFromCache()

	s, _ := e.Snapshot("0437")
	if s.Status != engine.StatusStale {
		t.Fatalf("status = %s, want stale for yesterday's cache", s.Status)
	}
	if s.ConsecutiveFailures != 0 {
		t.Fatal("cache replay must not count as a failure")
	}
	if !s.LastUpdated.Equal(cachedAt) {
		t.Fatalf("last updated = %v, want cache time", s.LastUpdated)
	}
}

func TestDeriveFromCacheFreshPayload(t *testing.T) {
	store, err := cache.Open(":memory:")
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	defer store.Close()

	put := cache.Entry{
		Key:      cache.Key(provider.KindStructuredFeed, "0437", "fi"),
		Kind:     provider.KindStructuredFeed,
		RawText:  compassBody,
		FetchDay: "2026-02-19",
		StoredAt: testNow.Add(-time.Hour),
	}
	if err := store.Put(put); err != nil {
		t.Fatalf("put: %v", err)
	}

	e := engine.New(testClock)
	c := New(e, store, &mockFetcher{}, testEntries(t, "0437"), "fi", 0, testClock)

	c.DeriveFromCache()

	s, _ := e.Snapshot("0437")
	if s.Status != engine.StatusOk || !s.IsTodayFresh {
		t.Fatalf("fresh cache: status=%s fresh=%v", s.Status, s.IsTodayFresh)
	}
}

func TestDeriveFromCacheSkipsCorruptEntries(t *testing.T) {
	store, err := cache.Open(":memory:")
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	defer store.Close()

	put := cache.Entry{
		Key:      cache.Key(provider.KindStructuredFeed, "0437", "fi"),
		Kind:     provider.KindStructuredFeed,
		RawText:  "garbage{{",
		FetchDay: "2026-02-19",
		StoredAt: testNow,
	}
	if err := store.Put(put); err != nil {
		t.Fatalf("put: %v", err)
	}

	e := engine.New(testClock)
	c := New(e, store, &mockFetcher{}, testEntries(t, "0437"), "fi", 0, testClock)

	c.DeriveFromCache()

	s, _ := e.Snapshot("0437")
	if s.Status != engine.StatusIdle {
		t.Fatalf("corrupt cache entry should leave state untouched, got %s", s.Status)
	}
}

func TestStaleBodyIncrementsFailures(t *testing.T) {
	e := engine.New(testClock)
	f := &mockFetcher{body: compassBodyYesterday}
	c := New(e, nil, f, testEntries(t, "0437"), "fi", 0, testClock)

	c.Refresh(context.Background(), nil, false)
	c.Refresh(context.Background(), nil, false)

	s, _ := e.Snapshot("0437")
	if s.Status != engine.StatusStale {
		t.Fatalf("status = %s, want stale", s.Status)
	}
	if s.ConsecutiveFailures != 2 {
		t.Fatalf("failures = %d, want 2", s.ConsecutiveFailures)
	}
	if want := testNow.Add(10 * time.Minute); !s.NextRetry.Equal(want) {
		t.Fatalf("retry at %v, want %v", s.NextRetry, want)
	}
}

func TestNextMidnight(t *testing.T) {
	at := time.Date(2026, 2, 19, 23, 15, 0, 0, time.UTC)
	next := nextMidnight(at)
	if next.Day() != 20 || next.Hour() != 0 {
		t.Fatalf("nextMidnight = %v", next)
	}
	if !next.After(at) {
		t.Fatal("nextMidnight not in the future")
	}
}
