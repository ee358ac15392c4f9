// Package ratelimit enforces the per-user generation budget: a fixed window
// of requests and model tokens per (user, endpoint) pair, with ceilings set
// by the user's tier.
//
// This limiter is the engine's own accounting layer and complements the
// edge token-bucket middleware in the HTTP layer: the middleware protects the
// process from request floods, this package protects the model-spend budget.
//
// Concurrency: all state lives in one mutex-guarded map, and the only
// admission operation is CheckAndReserve, which performs the ceiling check
// and the tentative increment under a single lock hold. Two concurrent
// requests can therefore never both slip under a ceiling meant to admit one.
//
// Failure policy: the limiter fails open. A panic in bookkeeping yields an
// Allowed decision (and a metric increment) rather than blocking content
// generation; Record and Release never propagate errors into the caller's
// success path.
package ratelimit

import (
	"time"

	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Tier is one budget class (free, pro, …). Ceilings apply per window per
// (user, endpoint) pair.
type Tier struct {
	Name        string
	Window      time.Duration
	MaxRequests int
	MaxTokens   int
}

// DefaultTiers returns the built-in tier table used when the host configures
// none.
func DefaultTiers() map[string]Tier {
	return map[string]Tier{
		"free":       {Name: "free", Window: time.Hour, MaxRequests: 20, MaxTokens: 40_000},
		"pro":        {Name: "pro", Window: time.Hour, MaxRequests: 200, MaxTokens: 500_000},
		"enterprise": {Name: "enterprise", Window: time.Hour, MaxRequests: 2_000, MaxTokens: 5_000_000},
	}
}

// Decision is the outcome of an admission check. When denied, ResetTime is
// when the current window ends and the budget refills.
type Decision struct {
	Allowed   bool
	ResetTime time.Time
}

// Reservation is the tentative budget hold taken by CheckAndReserve. It must
// be settled exactly once, with Record (call completed) or Release (call
// aborted). A nil or already-settled reservation is a safe no-op.
type Reservation struct {
	key       windowKey
	estTokens int
	settled   bool
	noop      bool
}

type windowKey struct {
	userID   string
	endpoint string
}

// window tracks consumption for one (user, endpoint) pair. Counters reset
// lazily when the window has elapsed at check time.
type window struct {
	tier         Tier
	requestCount int
	tokenCount   int
	windowStart  time.Time
}

var (
	budgetDenials = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "generation_budget_denials_total",
			Help: "Generation requests denied by the tier budget.",
		},
		[]string{"tier"},
	)
	budgetFailOpen = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "generation_budget_fail_open_total",
			Help: "Budget checks that failed open due to an internal error.",
		},
	)
)

func init() {
	prometheus.MustRegister(budgetDenials, budgetFailOpen)
}

// sweepEvery is the lookup count between eviction passes. Eviction is
// amortized over lookups the same way the HTTP limiter GCs its visitors.
const sweepEvery = 4096

// Limiter is the shared budget store. Safe for concurrent use by any number
// of sessions and users.
type Limiter struct {
	mu      sync.Mutex
	windows map[windowKey]*window
	sweepN  uint64

	// longest tier window seen; eviction horizon is twice this.
	longestWindow time.Duration

	// now is a test seam.
	now func() time.Time
}

// New constructs an empty limiter.
func New() *Limiter {
	return &Limiter{
		windows: make(map[windowKey]*window),
		now:     time.Now,
	}
}

// CheckAndReserve admits or denies one request against the tier budget and,
// when admitted, tentatively charges one request plus estTokens to the
// window. The returned reservation settles the charge later via Record or
// Release.
//
// Internal bookkeeping failures fail open: the caller gets an Allowed
// decision with a no-op reservation.
func (l *Limiter) CheckAndReserve(userID, endpoint string, tier Tier, estTokens int) (res *Reservation, dec Decision) {
	defer func() {
		if r := recover(); r != nil {
			budgetFailOpen.Inc()
			res = &Reservation{noop: true}
			dec = Decision{Allowed: true}
		}
	}()

	if tier.Window <= 0 {
		tier.Window = time.Hour
	}
	if estTokens < 0 {
		estTokens = 0
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.maybeSweep(now)
	if tier.Window > l.longestWindow {
		l.longestWindow = tier.Window
	}

	key := windowKey{userID: userID, endpoint: endpoint}
	w, ok := l.windows[key]
	if !ok || now.Sub(w.windowStart) >= tier.Window {
		w = &window{tier: tier, windowStart: now}
		l.windows[key] = w
	}
	w.tier = tier // tier upgrades take effect within the window

	reset := w.windowStart.Add(tier.Window)
	if tier.MaxRequests > 0 && w.requestCount >= tier.MaxRequests {
		budgetDenials.WithLabelValues(tier.Name).Inc()
		return nil, Decision{Allowed: false, ResetTime: reset}
	}
	if tier.MaxTokens > 0 && w.tokenCount+estTokens > tier.MaxTokens {
		budgetDenials.WithLabelValues(tier.Name).Inc()
		return nil, Decision{Allowed: false, ResetTime: reset}
	}

	w.requestCount++
	w.tokenCount += estTokens
	return &Reservation{key: key, estTokens: estTokens}, Decision{Allowed: true, ResetTime: reset}
}

// Record settles a reservation after the model call completed, replacing the
// estimate with the actual token count when the service reported one.
// Recording is best-effort: it never panics into the caller.
func (l *Limiter) Record(res *Reservation, actualTokens int, succeeded bool) {
	defer func() { _ = recover() }()

	if res == nil || res.settled || res.noop {
		return
	}
	res.settled = true
	if actualTokens <= 0 {
		return // keep the pre-call estimate
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if w, ok := l.windows[res.key]; ok {
		w.tokenCount += actualTokens - res.estTokens
		if w.tokenCount < 0 {
			w.tokenCount = 0
		}
	}
}

// Release returns a reservation unused, e.g. after a cancelled call. An
// aborted generation consumes no budget.
func (l *Limiter) Release(res *Reservation) {
	defer func() { _ = recover() }()

	if res == nil || res.settled || res.noop {
		return
	}
	res.settled = true

	l.mu.Lock()
	defer l.mu.Unlock()
	if w, ok := l.windows[res.key]; ok {
		if w.requestCount > 0 {
			w.requestCount--
		}
		w.tokenCount -= res.estTokens
		if w.tokenCount < 0 {
			w.tokenCount = 0
		}
	}
}

// maybeSweep evicts windows older than twice the longest tier duration.
// Runs every sweepEvery lookups; caller holds the lock.
func (l *Limiter) maybeSweep(now time.Time) {
	l.sweepN++
	if l.sweepN < sweepEvery {
		return
	}
	l.sweepN = 0
	horizon := 2 * l.longestWindow
	if horizon <= 0 {
		horizon = 2 * time.Hour
	}
	for k, w := range l.windows {
		if now.Sub(w.windowStart) >= horizon {
			delete(l.windows, k)
		}
	}
}
