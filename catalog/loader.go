package catalog

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/puntoventa/poskit/core"
)

// Sink receives fetched catalog data. *pos.Controller satisfies it.
type Sink interface {
	LoadProducts(products []core.Product, replace bool)
	Reconcile(products []core.Product)
}

const historyLimit = 10

// Loader drives the catalog view: paged full loads, debounced cached
// searches, and a bounded history of recent search terms. Load errors are
// kept inline for the view to show and dismiss; the loader never retries
// on its own.
type Loader struct {
	client *Client
	cache  *SearchCache
	deb    *Debouncer
	sink   Sink
	cfg    *core.Config
	logger core.Logger
	tel    core.Telemetry
	fb     core.Feedback

	mu      sync.Mutex
	skip    int
	done    bool
	term    string
	lastErr error
	history []string
}

// LoaderOptions configures a Loader. Client and Sink are required.
type LoaderOptions struct {
	Client    *Client
	Sink      Sink
	Config    *core.Config
	Logger    core.Logger
	Telemetry core.Telemetry
	Feedback  core.Feedback
	Clock     core.Clock
}

// NewLoader wires a loader from its options, filling ambient defaults.
func NewLoader(opts LoaderOptions) *Loader {
	cfg := opts.Config
	if cfg == nil {
		cfg, _ = core.NewConfig()
	}
	logger := opts.Logger
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	tel := opts.Telemetry
	if tel == nil {
		tel = &core.NoOpTelemetry{}
	}
	fb := opts.Feedback
	if fb == nil {
		fb = &core.SilentFeedback{}
	}
	return &Loader{
		client: opts.Client,
		cache:  NewSearchCache(cfg.SearchCacheTTL, cfg.SearchCacheSize, opts.Clock),
		deb:    NewDebouncer(cfg.SearchDebounce),
		sink:   opts.Sink,
		cfg:    cfg,
		logger: logger,
		tel:    tel,
		fb:     fb,
	}
}

// Load fetches the first catalog page, replacing the current snapshot.
// While the request runs a loading indicator shows; if it outlives the
// configured fallback window the slowness is logged and counted.
func (l *Loader) Load(ctx context.Context) error {
	l.mu.Lock()
	l.skip = 0
	l.done = false
	l.mu.Unlock()
	return l.fetchPage(ctx, true)
}

// LoadMore appends the next catalog page. It is a no-op once the server
// returns a short page.
func (l *Loader) LoadMore(ctx context.Context) error {
	l.mu.Lock()
	if l.done {
		l.mu.Unlock()
		return nil
	}
	l.mu.Unlock()
	return l.fetchPage(ctx, false)
}

func (l *Loader) fetchPage(ctx context.Context, replace bool) error {
	l.fb.ShowLoading("Cargando productos...")
	defer l.fb.HideLoading()

	slow := time.AfterFunc(l.cfg.LoadingFallback, func() {
		l.logger.Warn("Product load exceeding fallback window", map[string]interface{}{
			"fallback": l.cfg.LoadingFallback.String(),
		})
		l.tel.RecordMetric("catalog.load.slow", 1, nil)
	})
	defer slow.Stop()

	l.mu.Lock()
	skip := l.skip
	l.mu.Unlock()

	products, err := l.client.Products(ctx, "", skip, l.cfg.SearchLimit)
	if err != nil {
		l.setError(err)
		return err
	}

	l.mu.Lock()
	l.lastErr = nil
	l.skip = skip + len(products)
	if len(products) < l.cfg.SearchLimit {
		l.done = true
	}
	l.mu.Unlock()

	l.sink.LoadProducts(products, replace)
	l.logger.Info("Catalog page loaded", map[string]interface{}{
		"count":   len(products),
		"skip":    skip,
		"replace": replace,
	})
	return nil
}

// SearchInput registers a keystroke's worth of search text. The actual
// request fires only after the debounce interval passes with no further
// input. Blank input cancels the pending search and restores the full
// catalog.
func (l *Loader) SearchInput(ctx context.Context, term string) {
	term = strings.TrimSpace(term)

	l.mu.Lock()
	l.term = term
	l.mu.Unlock()

	if term == "" {
		l.deb.Cancel()
		go func() {
			if err := l.Load(ctx); err != nil {
				l.logger.Error("Catalog reload after search clear failed", map[string]interface{}{
					"error": err,
				})
			}
		}()
		return
	}

	l.deb.Trigger(func() {
		l.mu.Lock()
		// A newer keystroke may have changed the term since scheduling.
		current := l.term
		l.mu.Unlock()
		if current != term {
			return
		}
		l.runSearch(ctx, term)
	})
}

// SearchNow bypasses the debounce. Used when the operator presses Enter.
func (l *Loader) SearchNow(ctx context.Context, term string) {
	term = strings.TrimSpace(term)
	if term == "" {
		return
	}
	l.deb.Cancel()
	l.mu.Lock()
	l.term = term
	l.mu.Unlock()
	l.runSearch(ctx, term)
}

func (l *Loader) runSearch(ctx context.Context, term string) {
	key := strings.ToLower(term)

	if products, ok := l.cache.Get(key, l.cfg.SearchLimit); ok {
		l.tel.RecordMetric("catalog.search.cache_hit", 1, nil)
		l.sink.LoadProducts(products, true)
		l.recordHistory(term)
		return
	}

	products, err := l.client.Search(ctx, term, l.cfg.SearchLimit)
	if err != nil {
		l.setError(err)
		return
	}

	l.cache.Put(key, l.cfg.SearchLimit, products)
	l.sink.LoadProducts(products, true)
	l.recordHistory(term)
	l.logger.Debug("Search completed", map[string]interface{}{
		"term":  term,
		"count": len(products),
	})
}

// InvalidateCache drops cached search results. Called after a checkout so
// stock counts re-fetch.
func (l *Loader) InvalidateCache() {
	l.cache.Clear()
}

// Err returns the last load or search error, nil when the last operation
// succeeded. The view shows it inline with a dismiss control.
func (l *Loader) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastErr
}

// DismissError clears the inline error without retrying.
func (l *Loader) DismissError() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lastErr = nil
}

// History returns recent search terms, newest first.
func (l *Loader) History() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.history))
	copy(out, l.history)
	return out
}

// Close stops the debouncer.
func (l *Loader) Close() {
	l.deb.Stop()
}

func (l *Loader) setError(err error) {
	l.mu.Lock()
	l.lastErr = err
	l.mu.Unlock()
	l.tel.RecordMetric("catalog.load.error", 1, nil)
}

func (l *Loader) recordHistory(term string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, h := range l.history {
		if strings.EqualFold(h, term) {
			l.history = append(l.history[:i], l.history[i+1:]...)
			break
		}
	}
	l.history = append([]string{term}, l.history...)
	if len(l.history) > historyLimit {
		l.history = l.history[:historyLimit]
	}
}
