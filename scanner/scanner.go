// Package scanner turns raw keystroke streams into barcode reads. USB
// barcode scanners type like extremely fast keyboards, so the capture
// heuristic is timing: keys arriving faster than a human could type are
// buffered as a code, and a terminator key flushes the buffer.
package scanner

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/puntoventa/poskit/core"
)

// Preference keys shared with the settings screen.
const (
	PrefEnabled = "posScannerEnabled"
	PrefAutoAdd = "posScannerAutoAdd"
)

const scanHistoryLimit = 20

// Cart is the slice of the cart controller the scanner needs.
type Cart interface {
	FindByBarcode(code string) (core.Product, bool)
	AddToCart(id int) error
}

// Scan is one recognized barcode read.
type Scan struct {
	Code    string
	At      time.Time
	Matched bool
	// Added is true when auto-add put the product in the cart.
	Added bool
}

// Scanner accumulates keystrokes into barcode reads. Enabled and auto-add
// state persist through the preference store and follow external changes.
type Scanner struct {
	cfg     *core.Config
	cart    Cart
	prefs   core.PreferenceStore
	clock   core.Clock
	logger  core.Logger
	tel     core.Telemetry
	fb      core.Feedback
	resolve func(ctx context.Context, code string) (core.Product, bool)

	mu      sync.Mutex
	enabled bool
	autoAdd bool
	buffer  strings.Builder
	lastKey time.Time
	history []Scan
	onScan  func(Scan)
	cancels []func()
}

// Options configures a Scanner. Cart is required.
type Options struct {
	Config      *core.Config
	Cart        Cart
	Preferences core.PreferenceStore
	Clock       core.Clock
	Logger      core.Logger
	Telemetry   core.Telemetry
	Feedback    core.Feedback
	// Resolve looks a code up server-side when the local snapshot misses,
	// loading the product so auto-add can still work.
	Resolve func(ctx context.Context, code string) (core.Product, bool)
	// OnScan is called after each recognized read, matched or not.
	OnScan func(Scan)
}

// New creates a scanner, restoring enabled and auto-add state from the
// preference store. Both default to on for a POS terminal.
func New(opts Options) *Scanner {
	cfg := opts.Config
	if cfg == nil {
		cfg, _ = core.NewConfig()
	}
	prefs := opts.Preferences
	if prefs == nil {
		prefs = core.NewMemoryStore()
	}
	clock := opts.Clock
	if clock == nil {
		clock = core.SystemClock{}
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

	s := &Scanner{
		cfg:     cfg,
		cart:    opts.Cart,
		prefs:   prefs,
		clock:   clock,
		logger:  logger,
		tel:     tel,
		fb:      fb,
		enabled: loadBool(prefs, PrefEnabled, true),
		autoAdd: loadBool(prefs, PrefAutoAdd, true),
		resolve: opts.Resolve,
		onScan:  opts.OnScan,
	}

	s.cancels = append(s.cancels,
		prefs.OnChange(PrefEnabled, func(value string) {
			s.mu.Lock()
			s.enabled = value == "true"
			s.mu.Unlock()
		}),
		prefs.OnChange(PrefAutoAdd, func(value string) {
			s.mu.Lock()
			s.autoAdd = value == "true"
			s.mu.Unlock()
		}),
	)
	return s
}

// Close detaches the preference listeners.
func (s *Scanner) Close() {
	for _, cancel := range s.cancels {
		cancel()
	}
}

func loadBool(prefs core.PreferenceStore, key string, def bool) bool {
	value, err := prefs.Get(context.Background(), key)
	if err != nil || value == "" {
		return def
	}
	return value == "true"
}

// Enabled reports whether keystrokes are being captured.
func (s *Scanner) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

// SetEnabled flips capture on or off and persists the choice.
func (s *Scanner) SetEnabled(enabled bool) {
	s.mu.Lock()
	s.enabled = enabled
	if !enabled {
		s.buffer.Reset()
	}
	s.mu.Unlock()
	if err := s.prefs.Set(context.Background(), PrefEnabled, strconv.FormatBool(enabled), 0); err != nil {
		s.logger.Warn("Could not persist scanner state", map[string]interface{}{
			"error": err,
		})
	}
}

// AutoAdd reports whether matched scans go straight into the cart.
func (s *Scanner) AutoAdd() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.autoAdd
}

// SetAutoAdd flips auto-add and persists the choice.
func (s *Scanner) SetAutoAdd(autoAdd bool) {
	s.mu.Lock()
	s.autoAdd = autoAdd
	s.mu.Unlock()
	if err := s.prefs.Set(context.Background(), PrefAutoAdd, strconv.FormatBool(autoAdd), 0); err != nil {
		s.logger.Warn("Could not persist scanner auto-add", map[string]interface{}{
			"error": err,
		})
	}
}

// Key feeds one keystroke into the scanner. Printable runes accumulate
// when they arrive within the scanner key-delay window; a slower keystroke
// starts a fresh buffer, since it was a human typing. Returns the
// completed Scan when this key terminated a read.
func (s *Scanner) Key(r rune) (Scan, bool) {
	s.mu.Lock()

	if !s.enabled {
		s.mu.Unlock()
		return Scan{}, false
	}

	now := s.clock.Now()

	if r == '\n' || r == '\t' {
		code := s.buffer.String()
		s.buffer.Reset()
		s.lastKey = time.Time{}
		s.mu.Unlock()
		if len(code) < s.cfg.ScannerMinLength {
			return Scan{}, false
		}
		return s.complete(code, now), true
	}

	if r < ' ' {
		s.mu.Unlock()
		return Scan{}, false
	}

	if !s.lastKey.IsZero() && now.Sub(s.lastKey) > s.cfg.ScannerMaxKeyDelay {
		// Too slow for a scanner. Start over with this key.
		s.buffer.Reset()
	}
	s.buffer.WriteRune(r)
	s.lastKey = now
	s.mu.Unlock()
	return Scan{}, false
}

// Feed runs a whole string through Key, as a wedge scanner would deliver
// it. The terminator must be included by the caller.
func (s *Scanner) Feed(input string) []Scan {
	var scans []Scan
	for _, r := range input {
		if scan, ok := s.Key(r); ok {
			scans = append(scans, scan)
		}
	}
	return scans
}

func (s *Scanner) complete(code string, at time.Time) Scan {
	scan := Scan{Code: code, At: at}

	product, found := s.cart.FindByBarcode(code)
	if !found && s.resolve != nil {
		// Cold snapshot. Let the backend resolve the code before giving up.
		product, found = s.resolve(context.Background(), code)
	}
	scan.Matched = found

	if found {
		s.mu.Lock()
		autoAdd := s.autoAdd
		s.mu.Unlock()
		if autoAdd {
			if err := s.cart.AddToCart(product.ID); err != nil {
				s.logger.Warn("Scanned product not added", map[string]interface{}{
					"codigo_barra": code,
					"producto_id":  product.ID,
					"error":        err,
				})
			} else {
				scan.Added = true
			}
		}
	} else {
		s.fb.Alert("Producto no encontrado: " + code)
		s.logger.Info("Unknown barcode scanned", map[string]interface{}{
			"codigo_barra": code,
		})
	}

	s.tel.RecordMetric("scanner.read", 1, map[string]string{
		"matched": strconv.FormatBool(found),
	})

	s.mu.Lock()
	s.history = append([]Scan{scan}, s.history...)
	if len(s.history) > scanHistoryLimit {
		s.history = s.history[:scanHistoryLimit]
	}
	onScan := s.onScan
	s.mu.Unlock()

	if onScan != nil {
		onScan(scan)
	}
	return scan
}

// History returns recent scans, newest first.
func (s *Scanner) History() []Scan {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Scan, len(s.history))
	copy(out, s.history)
	return out
}
