package actuator

import (
	"context"
	"slices"
	"sync"
	"time"
)

const (
	StatusUp   = "UP"
	StatusDown = "DOWN"
)

// Check reports a component as unhealthy by returning an error.
type Check func(ctx context.Context) error

// CheckResult is one entry of the health report.
type CheckResult struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Health is the overall report served at {basePath}/health.
type Health struct {
	Status string        `json:"status"`
	Checks []CheckResult `json:"checks"`
}

// Checks holds the named health checks host modules contribute.
type Checks struct {
	mu     sync.RWMutex
	checks map[string]Check
}

func NewChecks() *Checks {
	return &Checks{checks: map[string]Check{}}
}

// Register adds or replaces the check called name.
func (c *Checks) Register(name string, check Check) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// Run evaluates every check, sorted by name, each bounded by timeout.
func (c *Checks) Run(ctx context.Context, timeout time.Duration) Health {
	c.mu.RLock()
	names := make([]string, 0, len(c.checks))
	for name := range c.checks {
		names = append(names, name)
	}
	checks := make(map[string]Check, len(c.checks))
	for k, v := range c.checks {
		checks[k] = v
	}
	c.mu.RUnlock()
	slices.Sort(names)

	h := Health{Status: StatusUp, Checks: make([]CheckResult, 0, len(names))}
	for _, name := range names {
		res := CheckResult{Name: name, Status: StatusUp}
		checkCtx, cancel := context.WithTimeout(ctx, timeout)
		if err := checks[name](checkCtx); err != nil {
			res.Status = StatusDown
			res.Error = err.Error()
			h.Status = StatusDown
		}
		cancel()
		h.Checks = append(h.Checks, res)
	}
	return h
}
