package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"order-gateway/middleware/ratelimit/infra"
)

func TestConcurrencyMiddleware_RejectsWhileSlotHeld(t *testing.T) {
	pool := infra.NewChanPool(1)
	hold := make(chan struct{})
	entered := make(chan struct{})
	var once sync.Once

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		once.Do(func() { close(entered) })
		<-hold
		w.WriteHeader(http.StatusOK)
	})

	h := ConcurrencyMiddleware(ConcurrencyOptions{
		Pool:           pool,
		AcquireTimeout: 20 * time.Millisecond,
		OnReject: func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":"busy"}`))
		},
	})(next)

	first := make(chan int, 1)
	go func() {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/order", nil))
		first <- w.Code
	}()

	select {
	case <-entered:
	case <-time.After(200 * time.Millisecond):
		close(hold)
		t.Fatalf("first request never reached the handler")
	}
	if got := pool.InUse(); got != 1 {
		close(hold)
		t.Fatalf("expected 1 slot in use, got %d", got)
	}

	// a vaga está ocupada: a segunda expira esperando
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/submit", nil))
	if w.Code != http.StatusServiceUnavailable || w.Body.String() != `{"error":"busy"}` {
		close(hold)
		t.Fatalf("expected custom 503 rejection, got %d %q", w.Code, w.Body.String())
	}

	close(hold)
	if code := <-first; code != http.StatusOK {
		t.Fatalf("expected first request 200, got %d", code)
	}
	if got := pool.InUse(); got != 0 {
		t.Fatalf("expected slot released, got %d in use", got)
	}
}

func TestConcurrencyMiddleware_DefaultRejectStatus(t *testing.T) {
	pool := infra.NewChanPool(1)
	release, _ := pool.Acquire(t.Context())
	defer release()

	h := ConcurrencyMiddleware(ConcurrencyOptions{Pool: pool, AcquireTimeout: time.Millisecond})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestConcurrencyMiddleware_DisabledWhenMaxZero(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	h := ConcurrencyMiddleware(ConcurrencyOptions{})(next)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "http://example/", nil))
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected pass-through, got %d", w.Code)
	}
}
