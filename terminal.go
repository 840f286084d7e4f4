package poskit

import (
	"context"
	"time"

	"github.com/puntoventa/poskit/catalog"
	"github.com/puntoventa/poskit/core"
	"github.com/puntoventa/poskit/pos"
	"github.com/puntoventa/poskit/scanner"
	"github.com/puntoventa/poskit/session"
	"github.com/puntoventa/poskit/telemetry"
)

// Terminal is one fully wired POS terminal session: backend client, cart
// controller, catalog loader, background reconciler, barcode scanner and
// session keep-alive, all sharing one config and preference store.
type Terminal struct {
	Config     *core.Config
	Logger     core.Logger
	Prefs      core.PreferenceStore
	Client     *catalog.Client
	Controller *pos.Controller
	Loader     *catalog.Loader
	Reconciler *catalog.Reconciler
	Scanner    *scanner.Scanner
	Session    *session.Monitor
	Telemetry  core.Telemetry

	closers []func()
}

// TerminalOptions configures a Terminal. Feedback is how the host surfaces
// alerts and prompts; leaving it nil silences them, which only makes sense
// in tests.
type TerminalOptions struct {
	Config   *core.Config
	Feedback core.Feedback
	Logger   core.Logger
}

// NewTerminal wires a terminal. Redis-backed preferences are used when the
// config carries a Redis URL, so threshold and scanner settings follow the
// operator across terminals.
func NewTerminal(opts TerminalOptions) (*Terminal, error) {
	cfg := opts.Config
	if cfg == nil {
		var err error
		cfg, err = core.NewConfig()
		if err != nil {
			return nil, err
		}
	}
	logger := opts.Logger
	if logger == nil {
		logger = core.NewSimpleLogger()
	}
	fb := opts.Feedback
	if fb == nil {
		fb = &core.SilentFeedback{}
	}

	t := &Terminal{Config: cfg, Logger: logger}

	var tel core.Telemetry
	provider, err := telemetry.NewProvider(cfg)
	if err != nil {
		logger.Warn("Telemetry disabled", map[string]interface{}{"error": err})
		tel = &core.NoOpTelemetry{}
	} else {
		tel = provider
		t.closers = append(t.closers, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = provider.Shutdown(ctx)
		})
	}
	t.Telemetry = tel

	if cfg.RedisURL != "" {
		store, err := core.NewRedisStore(core.RedisStoreOptions{
			RedisURL: cfg.RedisURL,
			Logger:   logger,
		})
		if err != nil {
			t.close()
			return nil, err
		}
		t.Prefs = store
		t.closers = append(t.closers, func() { _ = store.Close() })
	} else {
		t.Prefs = core.NewMemoryStore()
	}

	t.Client = catalog.NewClient(cfg, catalog.ClientOptions{
		HTTPClient: telemetry.NewTracedHTTPClient(cfg.RequestTimeout),
		Logger:     logger,
		Telemetry:  tel,
	})

	ctrl, err := pos.NewController(pos.Options{
		Config:    cfg,
		Logger:    logger,
		Telemetry: tel,
		Feedback:  fb,
		Prefs:     t.Prefs,
		Orders:    t.Client,
		Refresh: func(ctx context.Context) error {
			// Loader assignment happens below; a refresh can only fire
			// from a checkout, long after wiring finished.
			t.Loader.InvalidateCache()
			return t.Loader.Load(ctx)
		},
	})
	if err != nil {
		t.close()
		return nil, err
	}
	t.Controller = ctrl
	t.closers = append(t.closers, ctrl.Close)

	t.Loader = catalog.NewLoader(catalog.LoaderOptions{
		Client:    t.Client,
		Sink:      ctrl,
		Config:    cfg,
		Logger:    logger,
		Telemetry: tel,
		Feedback:  fb,
	})
	t.closers = append(t.closers, t.Loader.Close)

	t.Reconciler = catalog.NewReconciler(t.Client, ctrl, cfg, logger, tel, nil)

	t.Session = session.NewMonitor(session.MonitorOptions{
		Pinger:    session.PingFunc(t.Client.KeepAlive),
		Feedback:  fb,
		Logger:    logger,
		Telemetry: tel,
	})

	t.Scanner = scanner.New(scanner.Options{
		Config:      cfg,
		Cart:        ctrl,
		Preferences: t.Prefs,
		Logger:      logger,
		Telemetry:   tel,
		Feedback:    fb,
		Resolve: func(ctx context.Context, code string) (core.Product, bool) {
			products, err := t.Client.Search(ctx, code, cfg.SearchLimit)
			if err != nil {
				logger.Warn("Barcode lookup failed", map[string]interface{}{
					"codigo_barra": code,
					"error":        err,
				})
				return core.Product{}, false
			}
			for _, p := range products {
				if p.CodigoBarra == code {
					ctrl.LoadProducts([]core.Product{p}, false)
					return p, true
				}
			}
			return core.Product{}, false
		},
		OnScan: func(scan scanner.Scan) {
			t.Session.Touch()
			// Every flush also lands in the search box, the way a wedge
			// scan typed into the field would.
			t.Loader.SearchInput(context.Background(), scan.Code)
		},
	})
	t.closers = append(t.closers, t.Scanner.Close)

	return t, nil
}

// Start loads the first catalog page and launches the background loops.
func (t *Terminal) Start(ctx context.Context) error {
	if err := t.Loader.Load(ctx); err != nil {
		return err
	}
	t.Reconciler.Start(ctx)
	t.Session.Start(ctx, time.Minute)
	return nil
}

// Wake is called when the terminal regains focus after sitting idle: it
// forces a stock reconcile and counts as operator activity.
func (t *Terminal) Wake() {
	t.Reconciler.Wake()
	t.Session.Touch()
}

// Close stops the background loops and releases everything in reverse
// wiring order.
func (t *Terminal) Close() {
	t.Session.Stop()
	t.Reconciler.Stop()
	t.close()
}

func (t *Terminal) close() {
	for i := len(t.closers) - 1; i >= 0; i-- {
		t.closers[i]()
	}
	t.closers = nil
}
