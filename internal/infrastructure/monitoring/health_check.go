package monitoring

import (
	"context"
	"sync"
	"time"
)

// CheckFunc probes one dependency. A non-nil error marks it unhealthy.
type CheckFunc func(ctx context.Context) error

type check struct {
	name    string
	fn      CheckFunc
	timeout time.Duration
}

// HealthStatus is the aggregate served on the health endpoint.
type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

// HealthChecker aggregates dependency probes (backend reachability, Redis)
// into one status.
type HealthChecker struct {
	mu     sync.RWMutex
	checks []check
}

func NewHealthChecker() *HealthChecker {
	return &HealthChecker{}
}

func (h *HealthChecker) AddCheck(name string, fn CheckFunc, timeout time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks = append(h.checks, check{name: name, fn: fn, timeout: timeout})
}

// CheckAll probes every registered dependency. One failing check degrades
// the aggregate status; the agent still serves its API either way.
func (h *HealthChecker) CheckAll(ctx context.Context) HealthStatus {
	h.mu.RLock()
	checks := make([]check, len(h.checks))
	copy(checks, h.checks)
	h.mu.RUnlock()

	status := HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now(),
		Checks:    make(map[string]string, len(checks)),
	}

	for _, c := range checks {
		checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
		err := c.fn(checkCtx)
		cancel()

		if err != nil {
			status.Status = "degraded"
			status.Checks[c.name] = err.Error()
		} else {
			status.Checks[c.name] = "ok"
		}
	}

	return status
}
