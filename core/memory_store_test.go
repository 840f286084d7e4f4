package core

import (
	"context"
	"testing"
	"time"
)

func TestNewMemoryStore(t *testing.T) {
	store := NewMemoryStore()

	if store == nil {
		t.Fatal("NewMemoryStore() returned nil")
	}
	if store.store == nil {
		t.Error("MemoryStore map should be initialized")
	}
}

func TestMemoryStore_Get(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	// Missing key behaves like localStorage.getItem: empty, no error
	value, err := store.Get(ctx, "missing")
	if err != nil {
		t.Errorf("Get() returned unexpected error: %v", err)
	}
	if value != "" {
		t.Errorf("Get() for missing key = %q, want empty string", value)
	}

	if err := store.Set(ctx, "stockUmbralPOS", "8", 0); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}

	value, err = store.Get(ctx, "stockUmbralPOS")
	if err != nil {
		t.Errorf("Get() returned unexpected error: %v", err)
	}
	if value != "8" {
		t.Errorf("Get() = %q, want 8", value)
	}
}

func TestMemoryStore_TTLExpiry(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Set(ctx, "autosave:form1", "{}", 10*time.Millisecond); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}

	time.Sleep(20 * time.Millisecond)

	value, err := store.Get(ctx, "autosave:form1")
	if err != nil {
		t.Errorf("Get() returned unexpected error: %v", err)
	}
	if value != "" {
		t.Errorf("Get() after expiry = %q, want empty string", value)
	}
}

func TestMemoryStore_Delete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Set(ctx, "posScannerEnabled", "1", 0); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}
	if err := store.Delete(ctx, "posScannerEnabled"); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}

	value, _ := store.Get(ctx, "posScannerEnabled")
	if value != "" {
		t.Errorf("Get() after delete = %q, want empty string", value)
	}
}

func TestMemoryStore_OnChange(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	var got []string
	cancel := store.OnChange("stockUmbralPOS", func(value string) {
		got = append(got, value)
	})

	if err := store.Set(ctx, "stockUmbralPOS", "3", 0); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}
	// Writes to other keys must not fire this listener
	if err := store.Set(ctx, "posScannerEnabled", "1", 0); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}
	if err := store.Delete(ctx, "stockUmbralPOS"); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}

	if len(got) != 2 || got[0] != "3" || got[1] != "" {
		t.Errorf("OnChange notifications = %v, want [3 \"\"]", got)
	}

	cancel()
	if err := store.Set(ctx, "stockUmbralPOS", "9", 0); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("listener fired after cancel, notifications = %v", got)
	}
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			_ = store.Set(ctx, "k", "v", 0)
		}
	}()
	for i := 0; i < 100; i++ {
		_, _ = store.Get(ctx, "k")
	}
	<-done
}
