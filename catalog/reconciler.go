package catalog

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/puntoventa/poskit/core"
)

// Reconciler periodically re-fetches server stock and hands it to the
// controller, which merges it with local reservations. Wake forces an
// immediate pass, used when the terminal regains focus after sitting idle.
type Reconciler struct {
	client   *Client
	sink     Sink
	cfg      *core.Config
	logger   core.Logger
	tel      core.Telemetry
	clock    core.Clock
	wake     chan struct{}
	started  atomic.Bool
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewReconciler creates a reconciler. Call Start to begin the loop.
func NewReconciler(client *Client, sink Sink, cfg *core.Config, logger core.Logger, tel core.Telemetry, clock core.Clock) *Reconciler {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	if tel == nil {
		tel = &core.NoOpTelemetry{}
	}
	if clock == nil {
		clock = core.SystemClock{}
	}
	return &Reconciler{
		client: client,
		sink:   sink,
		cfg:    cfg,
		logger: logger,
		tel:    tel,
		clock:  clock,
		wake:   make(chan struct{}, 1),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start launches the reconcile loop. It runs until Stop is called or ctx
// is cancelled. Calling Start twice is a no-op.
func (r *Reconciler) Start(ctx context.Context) {
	if !r.started.CompareAndSwap(false, true) {
		return
	}
	go r.run(ctx)
}

// Wake requests an immediate reconcile pass. Safe to call from any
// goroutine; redundant wakes while one is pending collapse into one.
func (r *Reconciler) Wake() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Stop ends the loop and waits for the in-flight pass to finish. Safe to
// call even when the loop was never started.
func (r *Reconciler) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
	if r.started.Load() {
		<-r.done
	}
}

func (r *Reconciler) run(ctx context.Context) {
	defer close(r.done)

	ticker := r.clock.NewTicker(r.cfg.ReconcileInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stop:
			return
		case <-ticker.C():
			r.pass(ctx)
		case <-r.wake:
			r.pass(ctx)
		}
	}
}

func (r *Reconciler) pass(ctx context.Context) {
	products, err := r.client.Products(ctx, "", 0, 0)
	if err != nil {
		// Transient failures are expected on flaky links. The next tick
		// tries again; meanwhile the local mirror stays authoritative.
		r.logger.Warn("Stock reconcile failed", map[string]interface{}{
			"error": err,
		})
		r.tel.RecordMetric("catalog.reconcile.error", 1, nil)
		return
	}
	r.sink.Reconcile(products)
	r.tel.RecordMetric("catalog.reconcile.products", float64(len(products)), nil)
}
