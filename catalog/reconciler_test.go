package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/puntoventa/poskit/core"
)

func testReconciler(t *testing.T, handler http.Handler) (*Reconciler, *fakeSink, *fakeClock) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg, err := core.NewConfig(core.WithBaseURL(srv.URL))
	require.NoError(t, err)

	sink := &fakeSink{}
	clock := newFakeClock()
	rec := NewReconciler(NewClient(cfg, ClientOptions{}), sink, cfg, nil, nil, clock)
	return rec, sink, clock
}

func reconcileCount(s *fakeSink) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reconciles
}

func TestReconcilerRunsOnTick(t *testing.T) {
	rec, sink, clock := testReconciler(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]core.Product{{ID: 1, Cantidad: 4}})
	}))

	rec.Start(context.Background())
	defer rec.Stop()

	clock.Tick()
	require.Eventually(t, func() bool { return reconcileCount(sink) == 1 }, time.Second, 10*time.Millisecond)

	clock.Tick()
	require.Eventually(t, func() bool { return reconcileCount(sink) == 2 }, time.Second, 10*time.Millisecond)
}

func TestReconcilerWake(t *testing.T) {
	rec, sink, _ := testReconciler(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]core.Product{})
	}))

	rec.Start(context.Background())
	defer rec.Stop()

	rec.Wake()
	require.Eventually(t, func() bool { return reconcileCount(sink) == 1 }, time.Second, 10*time.Millisecond)
}

func TestReconcilerSurvivesFetchErrors(t *testing.T) {
	var calls int32
	rec, sink, _ := testReconciler(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode([]core.Product{{ID: 1}})
	}))

	rec.Start(context.Background())
	defer rec.Stop()

	rec.Wake()
	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, reconcileCount(sink))

	rec.Wake()
	require.Eventually(t, func() bool { return reconcileCount(sink) == 1 }, time.Second, 10*time.Millisecond)
}

func TestReconcilerStopsOnContextCancel(t *testing.T) {
	rec, _, _ := testReconciler(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]core.Product{})
	}))

	ctx, cancel := context.WithCancel(context.Background())
	rec.Start(ctx)
	cancel()

	select {
	case <-rec.done:
	case <-time.After(time.Second):
		t.Fatal("reconciler did not stop on context cancel")
	}
}
