// Package engine owns the per-restaurant fetch state machine: status,
// freshness, retry bookkeeping, and the last normalized menu. All state
// lives in one registry constructed at startup; callers mutate it only
// through the methods here.
package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/abelbrown/lunchtray/internal/dates"
	"github.com/abelbrown/lunchtray/internal/menu"
	"github.com/abelbrown/lunchtray/internal/provider"
)

// Status is the lifecycle phase of one restaurant's menu data.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusOk      Status = "ok"
	StatusStale   Status = "stale"
	StatusError   Status = "error"
)

// Retry delays keyed by consecutive-failure count. The third delay is
// the cap for all later failures.
var retryDelays = []time.Duration{5 * time.Minute, 10 * time.Minute, 15 * time.Minute}

// State is the engine-owned record for one restaurant. Snapshot returns
// copies; only the engine mutates the stored value.
type State struct {
	Code         string
	Status       Status
	ErrorMessage string
	LastUpdated  time.Time

	// PayloadText is the raw body of the last successful fetch, any
	// age. Empty exactly when Status is idle, loading, or error.
	PayloadText string

	TodayMenu         *menu.TodayMenu
	MenuDateISO       string
	ProviderDateValid bool
	IsTodayFresh      bool

	ConsecutiveFailures int
	NextRetry           time.Time // zero = no retry scheduled

	RestaurantName string
	RestaurantURL  string
}

// Engine is the registry of restaurant states plus the request serials
// that guard against applying superseded fetch results.
type Engine struct {
	mu      sync.Mutex
	now     func() time.Time
	states  map[string]*State
	serials map[string]uint64
	version uint64

	retryWake chan struct{}
}

// New returns an empty engine. clock may be nil, in which case
// time.Now is used.
func New(clock func() time.Time) *Engine {
	if clock == nil {
		clock = time.Now
	}
	return &Engine{
		now:       clock,
		states:    make(map[string]*State),
		serials:   make(map[string]uint64),
		retryWake: make(chan struct{}, 1),
	}
}

// Track registers a restaurant if it is not already known. Name and URL
// are catalog fallbacks, overwritten by provider payloads that carry
// their own.
func (e *Engine) Track(code, name, url string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.states[code]; ok {
		return
	}
	e.states[code] = &State{
		Code:           code,
		Status:         StatusIdle,
		RestaurantName: name,
		RestaurantURL:  url,
	}
	e.version++
}

// BeginFetch bumps the restaurant's request serial and returns it. The
// returned serial must accompany the eventual ApplyFetchSuccess or
// ApplyFetchError call; a stale serial means the result is discarded.
// The state only shows loading when there is no prior payload, so a
// restaurant with old data never flashes back to a spinner.
func (e *Engine) BeginFetch(code string) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.serials[code]++
	serial := e.serials[code]

	s, ok := e.states[code]
	if !ok {
		return serial
	}
	if s.PayloadText == "" {
		s.Status = StatusLoading
		s.ErrorMessage = ""
		e.version++
	}
	return serial
}

// ApplyFetchSuccess records a successfully parsed network payload.
// Returns false when the serial has been superseded and the result was
// discarded.
func (e *Engine) ApplyFetchSuccess(code string, serial uint64, rawText string, p *provider.RawPayload) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.currentLocked(code, serial)
	if !ok {
		return false
	}

	e.applyPayloadLocked(s, rawText, p)

	if s.IsTodayFresh {
		s.Status = StatusOk
		s.ErrorMessage = ""
		s.ConsecutiveFailures = 0
		s.NextRetry = time.Time{}
	} else {
		s.Status = StatusStale
		s.ErrorMessage = fmt.Sprintf("no menu for %s", dates.DayKey(e.now()))
		s.ConsecutiveFailures++
		e.scheduleRetryLocked(s)
	}
	s.LastUpdated = e.now()
	e.version++
	return true
}

// ApplyFetchError records a transport or parse failure. A restaurant
// that is already fresh for today silently re-confirms ok and resets
// its failure bookkeeping; a transient failure must not regress a
// confirmed-fresh state. Returns false when the serial was superseded.
func (e *Engine) ApplyFetchError(code string, serial uint64, message string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.currentLocked(code, serial)
	if !ok {
		return false
	}

	if s.IsTodayFresh {
		s.Status = StatusOk
		s.ErrorMessage = ""
		s.ConsecutiveFailures = 0
		s.NextRetry = time.Time{}
		s.LastUpdated = e.now()
		e.version++
		return true
	}

	s.ConsecutiveFailures++
	s.ErrorMessage = message
	if s.PayloadText != "" {
		s.Status = StatusStale
	} else {
		s.Status = StatusError
	}
	e.scheduleRetryLocked(s)
	s.LastUpdated = e.now()
	e.version++
	return true
}

// ApplyCached derives state from a cached payload without any network
// attempt. Cache replay never touches the failure counter, and a stale
// cache entry leaves the retry schedule alone: stale at startup and
// after midnight is expected, not a failure. A replay that turns the
// restaurant fresh for today still cancels any pending retry, since
// the retry field is cleared whenever freshness is established.
func (e *Engine) ApplyCached(code, rawText string, p *provider.RawPayload, cachedAt time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.states[code]
	if !ok {
		return
	}

	e.applyPayloadLocked(s, rawText, p)

	if s.IsTodayFresh {
		s.Status = StatusOk
		s.ErrorMessage = ""
		s.NextRetry = time.Time{}
	} else {
		s.Status = StatusStale
		s.ErrorMessage = fmt.Sprintf("no menu for %s", dates.DayKey(e.now()))
	}
	s.LastUpdated = cachedAt
	e.version++
}

// applyPayloadLocked stores the normalized payload fields shared by the
// network and cache paths. Caller holds e.mu.
func (e *Engine) applyPayloadLocked(s *State, rawText string, p *provider.RawPayload) {
	m := provider.Normalize(p)

	s.PayloadText = rawText
	s.TodayMenu = m
	s.MenuDateISO = p.MenuDateISO
	s.ProviderDateValid = p.DateValid
	s.IsTodayFresh = p.DateValid && m != nil
	if p.RestaurantName != "" {
		s.RestaurantName = p.RestaurantName
	}
	if p.RestaurantURL != "" {
		s.RestaurantURL = p.RestaurantURL
	}
}

// currentLocked returns the state for code if serial is still the
// latest issued one. Caller holds e.mu.
func (e *Engine) currentLocked(code string, serial uint64) (*State, bool) {
	if serial != e.serials[code] {
		return nil, false
	}
	s, ok := e.states[code]
	return s, ok
}

// scheduleRetryLocked sets the next retry time from the failure count
// and pokes the retry poller. Caller holds e.mu.
func (e *Engine) scheduleRetryLocked(s *State) {
	s.NextRetry = e.now().Add(RetryDelay(s.ConsecutiveFailures))
	select {
	case e.retryWake <- struct{}{}:
	default:
	}
}

// RetryDelay maps a consecutive-failure count to the wait before the
// next attempt: 5, 10, then 15 minutes for every failure after that.
func RetryDelay(failures int) time.Duration {
	if failures < 1 {
		failures = 1
	}
	if failures > len(retryDelays) {
		failures = len(retryDelays)
	}
	return retryDelays[failures-1]
}

// DueRetries returns the codes whose scheduled retry time has elapsed
// and that are not already fresh for today.
func (e *Engine) DueRetries(now time.Time) []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	var due []string
	for code, s := range e.states {
		if s.NextRetry.IsZero() || s.IsTodayFresh {
			continue
		}
		if !s.NextRetry.After(now) {
			due = append(due, code)
		}
	}
	return due
}

// HasPendingRetries reports whether any restaurant has a retry
// scheduled. The poller parks itself when this is false.
func (e *Engine) HasPendingRetries() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, s := range e.states {
		if !s.NextRetry.IsZero() && !s.IsTodayFresh {
			return true
		}
	}
	return false
}

// RetryWake returns a channel signalled whenever a new retry is
// scheduled, so a parked poller can resume.
func (e *Engine) RetryWake() <-chan struct{} {
	return e.retryWake
}

// Snapshot returns a copy of one restaurant's state.
func (e *Engine) Snapshot(code string) (State, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.states[code]
	if !ok {
		return State{}, false
	}
	return *s, true
}

// Version is a monotonic counter incremented on every state mutation.
// Collaborators compare it to decide when to re-render.
func (e *Engine) Version() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.version
}
