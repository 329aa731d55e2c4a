// Package coord provides background fetch coordination: the periodic
// refresh timer, the retry poller, the midnight rollover, and manual
// refresh all route through the same fetch pass.
package coord

import (
	"context"
	"fmt"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/abelbrown/lunchtray/internal/cache"
	"github.com/abelbrown/lunchtray/internal/catalog"
	"github.com/abelbrown/lunchtray/internal/engine"
	"github.com/abelbrown/lunchtray/internal/fetch"
	"github.com/abelbrown/lunchtray/internal/logging"
	"github.com/abelbrown/lunchtray/internal/provider"
	"github.com/abelbrown/lunchtray/internal/provider/antell"
	"github.com/abelbrown/lunchtray/internal/provider/compass"
	"github.com/abelbrown/lunchtray/internal/provider/rssmenu"
	"github.com/abelbrown/lunchtray/internal/ui"
)

// retryPollInterval is how often the retry poller checks for elapsed
// retry deadlines while any are pending.
const retryPollInterval = 30 * time.Second

// maxConcurrentFetches limits parallel fetch operations.
const maxConcurrentFetches = 3

// fetcher interface for dependency injection (testing).
type fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Coordinator manages background fetching.
// Uses context cancellation as the ONLY stop mechanism.
type Coordinator struct {
	engine  *engine.Engine
	cache   *cache.Store // optional: nil disables persistence
	fetcher fetcher
	entries []catalog.Entry // IMMUTABLE: set at construction, never modified

	language     string
	refreshEvery time.Duration // 0 = periodic refresh disabled
	now          func() time.Time
	wg           sync.WaitGroup
}

// New creates a Coordinator and registers every catalog entry with the
// engine. refreshMinutes of zero disables the periodic timer; retries
// and rollover still run. clock may be nil for time.Now.
func New(e *engine.Engine, c *cache.Store, f fetcher, entries []catalog.Entry, language string, refreshMinutes int, clock func() time.Time) *Coordinator {
	if clock == nil {
		clock = time.Now
	}
	entriesCopy := make([]catalog.Entry, len(entries))
	copy(entriesCopy, entries)

	for _, entry := range entriesCopy {
		e.Track(entry.Code, entry.FallbackName, entry.SiteURL)
	}

	return &Coordinator{
		engine:       e,
		cache:        c,
		fetcher:      f,
		entries:      entriesCopy,
		language:     language,
		refreshEvery: time.Duration(refreshMinutes) * time.Minute,
		now:          clock,
	}
}

// Start begins background work. Call with a cancellable context.
// Derives initial state from the cache, fetches immediately, then runs
// the periodic timer, the retry poller, and the midnight rollover.
func (c *Coordinator) Start(ctx context.Context, program *tea.Program) {
	c.DeriveFromCache()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		c.Refresh(ctx, program, false)

		if c.refreshEvery <= 0 {
			return
		}
		ticker := time.NewTicker(c.refreshEvery)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.Refresh(ctx, program, false)
			}
		}
	}()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.retryLoop(ctx, program)
	}()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.rolloverLoop(ctx, program)
	}()
}

// Wait blocks until the background goroutines exit.
// Call after canceling the context passed to Start.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// Refresh runs one fetch pass over every catalog entry. Manual passes
// get the longer per-request timeout.
func (c *Coordinator) Refresh(ctx context.Context, program *tea.Program, manual bool) {
	var g errgroup.Group
	g.SetLimit(maxConcurrentFetches)

	for _, entry := range c.entries {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			c.fetchOne(ctx, entry, program, manual)
			return nil // never fail the group - errors land in restaurant state
		})
	}

	_ = g.Wait()
}

// DeriveFromCache replays each restaurant's cached payload through the
// engine under the current reference date. Used at startup and at
// midnight, when yesterday's fresh data must be re-flagged as stale.
// Missing, unreadable, or unparseable entries are skipped; the cache
// is an optimization, never a requirement.
func (c *Coordinator) DeriveFromCache() {
	if c.cache == nil {
		return
	}

	for _, entry := range c.entries {
		key := cache.Key(entry.Provider, entry.Code, entry.CacheVariant(c.language))
		cached, ok, err := c.cache.Get(key)
		if err != nil {
			logging.Warn("cache read failed", "key", key, "err", err)
			continue
		}
		if !ok {
			continue
		}

		p, err := c.parsePayload(entry, cached.RawText)
		if err != nil {
			logging.Debug("cached payload no longer parses", "key", key, "err", err)
			continue
		}
		c.engine.ApplyCached(entry.Code, cached.RawText, p, cached.StoredAt)
	}
}

// fetchOne runs a single restaurant through issue, fetch, parse, apply.
// Every failure mode updates the restaurant state; nothing escapes.
func (c *Coordinator) fetchOne(ctx context.Context, entry catalog.Entry, program *tea.Program, manual bool) {
	serial := c.engine.BeginFetch(entry.Code)

	url, err := entry.RequestURL(c.language, c.now())
	if err != nil {
		c.engine.ApplyFetchError(entry.Code, serial, err.Error())
		c.notify(program, entry, err)
		return
	}

	timeout := fetch.BackgroundTimeout
	if manual {
		timeout = fetch.ManualTimeout
	}
	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, err := c.fetcher.Fetch(fetchCtx, url)
	if err != nil {
		c.engine.ApplyFetchError(entry.Code, serial, err.Error())
		c.notify(program, entry, err)
		return
	}

	p, err := c.parsePayload(entry, body)
	if err != nil {
		c.engine.ApplyFetchError(entry.Code, serial, err.Error())
		c.notify(program, entry, err)
		return
	}

	if c.engine.ApplyFetchSuccess(entry.Code, serial, body, p) {
		c.persist(entry, body)
	}
	c.notify(program, entry, nil)
}

// parsePayload dispatches the raw body to the provider parser for this
// catalog entry, evaluated against the current day. A panicking parser
// surfaces as an ordinary payload error; upstream bodies are untrusted.
func (c *Coordinator) parsePayload(entry catalog.Entry, body string) (p *provider.RawPayload, err error) {
	defer func() {
		if r := recover(); r != nil {
			p, err = nil, fmt.Errorf("parser panic for %s: %v", entry.Code, r)
		}
	}()

	ref := c.now()
	switch entry.Provider {
	case provider.KindStructuredFeed:
		return compass.Parse(entry.Code, body, ref)
	case provider.KindHTMLScrape:
		return antell.Parse(entry.Code, body, ref)
	case provider.KindRSSFeed:
		return rssmenu.Parse(entry.Code, body, ref)
	default:
		return nil, fmt.Errorf("no parser for provider %q", entry.Provider)
	}
}

// persist writes a successful payload to the cache. Best-effort: a
// write failure leaves the previous entry intact and the in-memory
// state stays authoritative.
func (c *Coordinator) persist(entry catalog.Entry, body string) {
	if c.cache == nil {
		return
	}

	now := c.now()
	err := c.cache.Put(cache.Entry{
		Key:      cache.Key(entry.Provider, entry.Code, entry.CacheVariant(c.language)),
		Kind:     entry.Provider,
		RawText:  body,
		FetchDay: now.Format("2006-01-02"),
		StoredAt: now,
	})
	if err != nil {
		logging.Warn("cache write failed", "code", entry.Code, "err", err)
	}
}

// notify sends a completion message (handle nil program gracefully for testing).
func (c *Coordinator) notify(program *tea.Program, entry catalog.Entry, err error) {
	if program == nil {
		return
	}
	program.Send(ui.FetchComplete{Code: entry.Code, Err: err})
}

// retryLoop wakes periodically and refetches restaurants whose retry
// deadline has elapsed. It parks when nothing is pending and resumes
// on the engine's wake signal.
func (c *Coordinator) retryLoop(ctx context.Context, program *tea.Program) {
	for {
		if !c.engine.HasPendingRetries() {
			select {
			case <-ctx.Done():
				return
			case <-c.engine.RetryWake():
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(retryPollInterval):
		}

		due := c.engine.DueRetries(c.now())
		if len(due) == 0 {
			continue
		}

		var g errgroup.Group
		g.SetLimit(maxConcurrentFetches)
		for _, code := range due {
			entry, ok := c.entryFor(code)
			if !ok {
				continue
			}
			g.Go(func() error {
				if ctx.Err() != nil {
					return nil
				}
				c.fetchOne(ctx, entry, program, false)
				return nil
			})
		}
		_ = g.Wait()
	}
}

// rolloverLoop fires just after each local midnight: it re-derives
// state from the cache under the new day (immediately marking
// yesterday's data stale) and then forces a network pass.
func (c *Coordinator) rolloverLoop(ctx context.Context, program *tea.Program) {
	for {
		wait := time.Until(nextMidnight(c.now()))
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}

		logging.Info("day rollover", "day", c.now().Format("2006-01-02"))
		c.DeriveFromCache()
		c.Refresh(ctx, program, false)
	}
}

func (c *Coordinator) entryFor(code string) (catalog.Entry, bool) {
	for _, entry := range c.entries {
		if entry.Code == code {
			return entry, true
		}
	}
	return catalog.Entry{}, false
}

// nextMidnight returns the first instant of the next local day, with a
// small grace so the new date is unambiguous when the timer fires.
func nextMidnight(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location()).AddDate(0, 0, 1).Add(2 * time.Second)
}
