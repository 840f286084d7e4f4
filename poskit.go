// Package poskit is the entry point for the POS terminal toolkit. Hosts
// that only need one concern should import the specific package:
//   - github.com/puntoventa/poskit/core - shared interfaces, config, stores
//   - github.com/puntoventa/poskit/pos - cart controller and view models
//   - github.com/puntoventa/poskit/catalog - backend client, search, reconcile
//
// The Terminal type in this package wires all of them into one running
// terminal session.
package poskit

import (
	"github.com/puntoventa/poskit/core"
)

// Re-export the types hosts touch most, so simple embedders need only
// this package and core stays an implementation detail.
type (
	Config          = core.Config
	Option          = core.Option
	Logger          = core.Logger
	Telemetry       = core.Telemetry
	Span            = core.Span
	Feedback        = core.Feedback
	PreferenceStore = core.PreferenceStore
	Product         = core.Product
	Categoria       = core.Categoria
	OrderPayload    = core.OrderPayload
	OrderResult     = core.OrderResult
	POSError        = core.POSError
)

// Re-export constructors and configuration options.
var (
	NewConfig       = core.NewConfig
	NewMemoryStore  = core.NewMemoryStore
	NewRedisStore   = core.NewRedisStore
	NewSimpleLogger = core.NewSimpleLogger

	WithBaseURL           = core.WithBaseURL
	WithTerminalName      = core.WithTerminalName
	WithCurrency          = core.WithCurrency
	WithRedisURL          = core.WithRedisURL
	WithReconcileInterval = core.WithReconcileInterval
	WithDiscountPresets   = core.WithDiscountPresets
	WithDevMode           = core.WithDevMode
	WithProfile           = core.WithProfile
)

// Re-export the sentinel errors hosts branch on.
var (
	ErrOutOfStock    = core.ErrOutOfStock
	ErrCartEmpty     = core.ErrCartEmpty
	ErrCartNotReady  = core.ErrCartNotReady
	ErrOrderRejected = core.ErrOrderRejected
	ErrRequestFailed = core.ErrRequestFailed
)
