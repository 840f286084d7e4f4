package core

import (
	"context"
	"time"
)

// Logger interface - minimal structured logging interface
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Debug(msg string, fields map[string]interface{})
}

// Telemetry interface - optional telemetry support
type Telemetry interface {
	StartSpan(ctx context.Context, name string) (context.Context, Span)
	RecordMetric(name string, value float64, labels map[string]string)
}

// Span represents a telemetry span
type Span interface {
	End()
	SetAttribute(key string, value interface{})
	RecordError(err error)
}

// Feedback is the surface through which the controller talks to whatever
// front end hosts it: alert boxes, confirmation prompts, loading spinners.
// It replaces the duck-typed window.* hooks of a browser host. Implementations
// must be safe for concurrent use; all methods may be called from the
// background reconciler as well as from event handlers.
type Feedback interface {
	// Alert shows a dismissible message to the operator.
	Alert(msg string)
	// Confirm asks a yes/no question and blocks for the answer.
	Confirm(msg string) bool
	// ShowLoading and HideLoading bracket long-running work. Hosts that have
	// no spinner can ignore both.
	ShowLoading(label string)
	HideLoading()
}

// PreferenceStore is the persisted key-value state shared between terminal
// sessions (the localStorage of the browser original). Values are plain
// strings; callers serialize richer state themselves. OnChange fires for
// writes made through any handle of the same store, including other
// processes when the store is Redis-backed.
type PreferenceStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// OnChange registers a listener for a single key. The returned func
	// unregisters it. Listeners run on the store's goroutine and must not
	// block.
	OnChange(key string, fn func(value string)) (cancel func())
}

// Clock abstracts time for the debouncer, the scanner and the autosave
// expiry so tests can drive them deterministically.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
}

// Ticker is the periodic trigger used by background loops.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Default no-op implementations

// NoOpLogger provides a no-op logger implementation
type NoOpLogger struct{}

func (n *NoOpLogger) Info(msg string, fields map[string]interface{})  {}
func (n *NoOpLogger) Error(msg string, fields map[string]interface{}) {}
func (n *NoOpLogger) Warn(msg string, fields map[string]interface{})  {}
func (n *NoOpLogger) Debug(msg string, fields map[string]interface{}) {}

// NoOpTelemetry provides a no-op telemetry implementation
type NoOpTelemetry struct{}

func (n *NoOpTelemetry) StartSpan(ctx context.Context, name string) (context.Context, Span) {
	return ctx, &NoOpSpan{}
}

func (n *NoOpTelemetry) RecordMetric(name string, value float64, labels map[string]string) {}

// NoOpSpan provides a no-op span implementation
type NoOpSpan struct{}

func (n *NoOpSpan) End()                                       {}
func (n *NoOpSpan) SetAttribute(key string, value interface{}) {}
func (n *NoOpSpan) RecordError(err error)                      {}

// SilentFeedback answers every prompt affirmatively and drops everything
// else. It is the default when no host UI is attached.
type SilentFeedback struct{}

func (s *SilentFeedback) Alert(msg string)        {}
func (s *SilentFeedback) Confirm(msg string) bool { return true }
func (s *SilentFeedback) ShowLoading(label string) {}
func (s *SilentFeedback) HideLoading()            {}

// SystemClock is the Clock used outside of tests.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

func (SystemClock) NewTicker(d time.Duration) Ticker {
	return &systemTicker{t: time.NewTicker(d)}
}

type systemTicker struct {
	t *time.Ticker
}

func (s *systemTicker) C() <-chan time.Time { return s.t.C }
func (s *systemTicker) Stop()               { s.t.Stop() }
