package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"skylink/internal/core/ports"
	apperrors "skylink/pkg/errors"
)

const liveUpdateTimeout = 5 * time.Second

// LiveUpdateChannel pushes individual parameter changes to the running
// pipeline. Rapid repeated pushes for the same property within the quiet
// window collapse into a single outbound call carrying only the last value;
// intermediate values are discarded, not queued. Failures are surfaced
// through the error callback but the optimistic local value is never rolled
// back.
type LiveUpdateChannel struct {
	api     ports.ControlAPI
	window  time.Duration
	metrics ports.MetricsSink
	logger  *zap.SugaredLogger

	// onError is invoked with the rejected property; nil is allowed.
	onError func(property string, err error)

	mu      sync.Mutex
	timers  map[string]*time.Timer
	pending map[string]interface{}
	closed  bool
}

// NewLiveUpdateChannel creates the dispatcher with the given quiet window.
func NewLiveUpdateChannel(api ports.ControlAPI, window time.Duration, metrics ports.MetricsSink, logger *zap.SugaredLogger) *LiveUpdateChannel {
	return &LiveUpdateChannel{
		api:     api,
		window:  window,
		metrics: metrics,
		logger:  logger,
		timers:  make(map[string]*time.Timer),
		pending: make(map[string]interface{}),
	}
}

// OnError registers the callback used to surface rejected updates.
func (c *LiveUpdateChannel) OnError(fn func(property string, err error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onError = fn
}

// Push schedules a debounced update for the property. The single-shot timer
// is rearmed on each call, so the call fires only after the input has been
// quiet for the full window.
func (c *LiveUpdateChannel) Push(property string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	c.pending[property] = value
	if t, ok := c.timers[property]; ok {
		t.Stop()
	}
	c.timers[property] = time.AfterFunc(c.window, func() {
		c.flush(property)
	})
}

// PushImmediate bypasses the debounce for discrete selections that should
// apply without delay. Any pending debounced value for the property is
// superseded.
func (c *LiveUpdateChannel) PushImmediate(property string, value interface{}) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	if t, ok := c.timers[property]; ok {
		t.Stop()
		delete(c.timers, property)
	}
	delete(c.pending, property)
	c.mu.Unlock()

	return c.send(property, value)
}

// Close stops all pending timers. Pending values are dropped.
func (c *LiveUpdateChannel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	for property, t := range c.timers {
		t.Stop()
		delete(c.timers, property)
	}
	c.pending = make(map[string]interface{})
}

func (c *LiveUpdateChannel) flush(property string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	value, ok := c.pending[property]
	delete(c.pending, property)
	delete(c.timers, property)
	c.mu.Unlock()

	if !ok {
		return
	}

	if err := c.send(property, value); err != nil {
		c.logger.Warnw("live update rejected",
			"property", property,
			"error", err,
		)
	}
}

func (c *LiveUpdateChannel) send(property string, value interface{}) error {
	ctx, cancel := context.WithTimeout(context.Background(), liveUpdateTimeout)
	defer cancel()

	err := c.api.LiveUpdate(ctx, property, value)
	c.metrics.LiveUpdateResult(err == nil)
	if err != nil {
		wrapped := apperrors.WrapError(err, apperrors.ErrCodeLiveUpdateRejected, "live update failed", 502)

		c.mu.Lock()
		onError := c.onError
		c.mu.Unlock()
		if onError != nil {
			onError(property, wrapped)
		}
		return wrapped
	}
	return nil
}
