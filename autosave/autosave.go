// Package autosave snapshots in-progress form state so a reload or crash
// does not lose the operator's work. Snapshots live in the preference
// store under a per-form key and expire after an hour.
package autosave

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/puntoventa/poskit/core"
)

// DefaultTTL is how long a snapshot survives without being rewritten.
const DefaultTTL = time.Hour

const keyPrefix = "posAutosave:"

// Snapshot is one saved form state.
type Snapshot struct {
	Fields  map[string]string `json:"fields"`
	SavedAt time.Time         `json:"saved_at"`
}

// Saver writes and restores form snapshots.
type Saver struct {
	store  core.PreferenceStore
	clock  core.Clock
	logger core.Logger
	ttl    time.Duration
}

// Options configures a Saver. Store is required.
type Options struct {
	Store  core.PreferenceStore
	Clock  core.Clock
	Logger core.Logger
	TTL    time.Duration
}

// New creates a Saver.
func New(opts Options) *Saver {
	clock := opts.Clock
	if clock == nil {
		clock = core.SystemClock{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	ttl := opts.TTL
	if ttl == 0 {
		ttl = DefaultTTL
	}
	return &Saver{store: opts.Store, clock: clock, logger: logger, ttl: ttl}
}

// Save stores the form's current fields, replacing any prior snapshot and
// restarting the expiry clock.
func (s *Saver) Save(ctx context.Context, form string, fields map[string]string) error {
	snap := Snapshot{Fields: fields, SavedAt: s.clock.Now()}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode autosave for %s: %w", form, err)
	}
	if err := s.store.Set(ctx, keyPrefix+form, string(data), s.ttl); err != nil {
		return fmt.Errorf("store autosave for %s: %w", form, err)
	}
	s.logger.Debug("Form autosaved", map[string]interface{}{
		"form":   form,
		"fields": len(fields),
	})
	return nil
}

// Restore returns the saved snapshot for the form, or ok=false when none
// exists or it has expired. An unreadable snapshot is dropped and treated
// as absent.
func (s *Saver) Restore(ctx context.Context, form string) (Snapshot, bool, error) {
	raw, err := s.store.Get(ctx, keyPrefix+form)
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("read autosave for %s: %w", form, err)
	}
	if raw == "" {
		return Snapshot{}, false, nil
	}
	var snap Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		s.logger.Warn("Dropping unreadable autosave", map[string]interface{}{
			"form":  form,
			"error": err,
		})
		_ = s.store.Delete(ctx, keyPrefix+form)
		return Snapshot{}, false, nil
	}
	return snap, true, nil
}

// Discard removes the form's snapshot. Called after a successful submit.
func (s *Saver) Discard(ctx context.Context, form string) error {
	return s.store.Delete(ctx, keyPrefix+form)
}
