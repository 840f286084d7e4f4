// Package session keeps the terminal's server session alive through long
// idle stretches and warns the operator before it expires.
package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/puntoventa/poskit/core"
)

const (
	// DefaultIdleLimit is how long the terminal may sit untouched before
	// the session is considered at risk.
	DefaultIdleLimit = 14 * time.Minute
	// DefaultGrace is how long the operator has to answer the expiry
	// warning before the session is dropped.
	DefaultGrace = 60 * time.Second
)

// Pinger refreshes the server session. *catalog.Client is not used here
// directly; the caller wires whatever touch endpoint the backend exposes.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// Monitor watches terminal activity. While the operator is active it pings
// the server before the idle limit runs out. Once the terminal goes idle
// past the limit it asks whether to stay signed in; no answer within the
// grace window expires the session.
type Monitor struct {
	pinger   Pinger
	fb       core.Feedback
	logger   core.Logger
	tel      core.Telemetry
	clock    core.Clock
	idle     time.Duration
	grace    time.Duration
	onExpire func()

	mu       sync.Mutex
	lastSeen time.Time
	expired  bool

	started  atomic.Bool
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// MonitorOptions configures a Monitor. Pinger is required; OnExpire is
// called once when the session lapses.
type MonitorOptions struct {
	Pinger    Pinger
	Feedback  core.Feedback
	Logger    core.Logger
	Telemetry core.Telemetry
	Clock     core.Clock
	IdleLimit time.Duration
	Grace     time.Duration
	OnExpire  func()
}

// NewMonitor creates a monitor. Call Start to begin watching.
func NewMonitor(opts MonitorOptions) *Monitor {
	fb := opts.Feedback
	if fb == nil {
		fb = &core.SilentFeedback{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	tel := opts.Telemetry
	if tel == nil {
		tel = &core.NoOpTelemetry{}
	}
	clock := opts.Clock
	if clock == nil {
		clock = core.SystemClock{}
	}
	idle := opts.IdleLimit
	if idle == 0 {
		idle = DefaultIdleLimit
	}
	grace := opts.Grace
	if grace == 0 {
		grace = DefaultGrace
	}
	return &Monitor{
		pinger:   opts.Pinger,
		fb:       fb,
		logger:   logger,
		tel:      tel,
		clock:    clock,
		idle:     idle,
		grace:    grace,
		onExpire: opts.OnExpire,
		lastSeen: clock.Now(),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Touch records operator activity. Every handled keystroke, scan and click
// should land here.
func (m *Monitor) Touch() {
	m.mu.Lock()
	m.lastSeen = m.clock.Now()
	m.mu.Unlock()
}

// Expired reports whether the session has lapsed.
func (m *Monitor) Expired() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.expired
}

// Start launches the watch loop, checking once per interval. The interval
// is a fraction of the idle limit in production; tests pass something
// short.
func (m *Monitor) Start(ctx context.Context, interval time.Duration) {
	if !m.started.CompareAndSwap(false, true) {
		return
	}
	go m.run(ctx, interval)
}

// Stop ends the loop. Safe to call even when the loop was never started.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
	if m.started.Load() {
		<-m.done
	}
}

func (m *Monitor) run(ctx context.Context, interval time.Duration) {
	defer close(m.done)

	ticker := m.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stop:
			return
		case <-ticker.C():
			if !m.check(ctx) {
				return
			}
		}
	}
}

// check returns false once the session has expired and the loop should end.
func (m *Monitor) check(ctx context.Context) bool {
	m.mu.Lock()
	if m.expired {
		m.mu.Unlock()
		return false
	}
	idleFor := m.clock.Now().Sub(m.lastSeen)
	m.mu.Unlock()

	if idleFor < m.idle {
		// Active terminal: refresh the server session quietly.
		if err := m.pinger.Ping(ctx); err != nil {
			m.logger.Warn("Session keep-alive ping failed", map[string]interface{}{
				"error": err,
			})
			m.tel.RecordMetric("session.ping.error", 1, nil)
		}
		return true
	}

	// Idle past the limit. Ask once; the host's Confirm is expected to
	// enforce the grace window and answer false on timeout.
	if m.fb.Confirm("Su sesión está por expirar. ¿Desea continuar?") {
		m.Touch()
		if err := m.pinger.Ping(ctx); err != nil {
			m.logger.Warn("Session keep-alive ping failed", map[string]interface{}{
				"error": err,
			})
		}
		return true
	}

	m.mu.Lock()
	m.expired = true
	m.mu.Unlock()
	m.logger.Info("Session expired after inactivity", map[string]interface{}{
		"idle": idleFor.String(),
	})
	m.tel.RecordMetric("session.expired", 1, nil)
	if m.onExpire != nil {
		m.onExpire()
	}
	return false
}
