package circuitbreaker

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// State represents the breaker state
type State int

const (
	StateClosed   State = iota // Normal operation, calls pass through
	StateOpen                  // Calls fail immediately
	StateHalfOpen              // Probing whether the backend recovered
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Config holds breaker configuration
type Config struct {
	FailureThreshold int           // Consecutive failures before opening
	SuccessThreshold int           // Successes in half-open needed to close
	Timeout          time.Duration // Open duration before probing
}

// DefaultConfig returns a default breaker configuration
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Timeout:          30 * time.Second,
	}
}

// Breaker guards calls to a flaky dependency. The control link to the drone
// drops regularly on weak radio links; the breaker keeps the UI responsive
// instead of stacking timeouts.
type Breaker struct {
	config Config

	mu           sync.Mutex
	state        State
	failureCount int
	successCount int
	openedAt     time.Time

	onStateChange func(from, to State)
}

// New creates a breaker with the given configuration
func New(config Config) *Breaker {
	return &Breaker{
		config: config,
		state:  StateClosed,
	}
}

// OnStateChange registers a callback invoked on every state transition
func (b *Breaker) OnStateChange(fn func(from, to State)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onStateChange = fn
}

// Execute runs fn if the breaker allows it and records the outcome
func (b *Breaker) Execute(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !b.allow() {
		return fmt.Errorf("circuit breaker is %s, call rejected", b.State())
	}

	err := fn()
	if err != nil {
		b.recordFailure()
		return err
	}

	b.recordSuccess()
	return nil
}

func (b *Breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen {
		if time.Since(b.openedAt) >= b.config.Timeout {
			b.transition(StateHalfOpen)
			return true
		}
		return false
	}
	return true
}

func (b *Breaker) recordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failureCount++
	b.successCount = 0

	switch b.state {
	case StateClosed:
		if b.failureCount >= b.config.FailureThreshold {
			b.transition(StateOpen)
		}
	case StateHalfOpen:
		b.transition(StateOpen)
	}
}

func (b *Breaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failureCount = 0
	b.successCount++

	if b.state == StateHalfOpen && b.successCount >= b.config.SuccessThreshold {
		b.transition(StateClosed)
	}
}

// transition must be called with the mutex held.
func (b *Breaker) transition(newState State) {
	if b.state == newState {
		return
	}

	oldState := b.state
	b.state = newState
	b.failureCount = 0
	b.successCount = 0
	if newState == StateOpen {
		b.openedAt = time.Now()
	}

	if b.onStateChange != nil {
		go b.onStateChange(oldState, newState)
	}
}

// State returns the current state
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Reset forces the breaker back to closed
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transition(StateClosed)
}
