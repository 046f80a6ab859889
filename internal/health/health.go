// Package health aggregates readiness checks for the relay's ops endpoints.
package health

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Status represents the health status of a dependency.
type Status string

const (
	StatusOK       Status = "ok"
	StatusDegraded Status = "degraded"
	StatusDown     Status = "down"
)

const defaultCheckTimeout = 5 * time.Second

// CheckFunc is a function that checks a dependency's health.
type CheckFunc func(ctx context.Context) Status

// Report is the outcome of one round of checks.
type Report struct {
	Ready  bool              `json:"ready"`
	Checks map[string]Status `json:"checks"`
}

// Checker manages health checks for all dependencies.
type Checker struct {
	mu      sync.RWMutex
	checks  map[string]CheckFunc
	last    map[string]Status
	timeout time.Duration
	logger  zerolog.Logger
}

// NewChecker creates a new health checker.
func NewChecker(logger zerolog.Logger) *Checker {
	return &Checker{
		checks:  make(map[string]CheckFunc),
		last:    make(map[string]Status),
		timeout: defaultCheckTimeout,
		logger:  logger.With().Str("component", "health").Logger(),
	}
}

// Register adds a named health check, replacing any check with that name.
func (c *Checker) Register(name string, fn CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = fn
}

// RunAll executes all health checks concurrently. Status changes since the
// previous run are logged.
func (c *Checker) RunAll(ctx context.Context) map[string]Status {
	c.mu.RLock()
	checks := make(map[string]CheckFunc, len(c.checks))
	for k, v := range c.checks {
		checks[k] = v
	}
	timeout := c.timeout
	c.mu.RUnlock()

	results := make(map[string]Status, len(checks))
	var wg sync.WaitGroup
	var mu sync.Mutex

	for name, fn := range checks {
		wg.Add(1)
		go func(n string, f CheckFunc) {
			defer wg.Done()
			checkCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			s := f(checkCtx)
			mu.Lock()
			results[n] = s
			mu.Unlock()
		}(name, fn)
	}

	wg.Wait()

	c.mu.Lock()
	for name, s := range results {
		if prev, ok := c.last[name]; ok && prev != s {
			c.logger.Warn().
				Str("check", name).
				Str("from", string(prev)).
				Str("to", string(s)).
				Msg("health status changed")
		}
	}
	c.last = results
	c.mu.Unlock()

	return results
}

// Check runs every check and reports readiness. Degraded checks do not
// make the relay unready.
func (c *Checker) Check(ctx context.Context) Report {
	results := c.RunAll(ctx)
	ready := true
	for _, s := range results {
		if s == StatusDown {
			ready = false
			break
		}
	}
	return Report{Ready: ready, Checks: results}
}

// Flag returns a check that is OK while ready returns true.
func Flag(ready func() bool) CheckFunc {
	return func(context.Context) Status {
		if ready() {
			return StatusOK
		}
		return StatusDown
	}
}
