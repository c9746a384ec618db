package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestDefaultKeyFunc_PrefersClientIPHeader(t *testing.T) {
	fn := DefaultKeyFunc("Client-Ip", true)

	r := httptest.NewRequest(http.MethodPost, "http://example/api/order", nil)
	r.RemoteAddr = "10.0.0.1:1234"
	r.Header.Set("Client-Ip", " 41.200.1.7 ")
	r.Header.Set("X-Forwarded-For", "1.2.3.4")

	if got := fn(r); got != "41.200.1.7" {
		t.Fatalf("expected header key, got %q", got)
	}
}

func TestDefaultKeyFunc_TrustXForwardedForUsesFirstIP(t *testing.T) {
	fn := DefaultKeyFunc("Client-Ip", true)

	r := httptest.NewRequest(http.MethodGet, "http://example/", nil)
	r.RemoteAddr = "10.0.0.9:5555"
	r.Header.Set("X-Forwarded-For", "1.2.3.4, 5.6.7.8")

	if got := fn(r); got != "1.2.3.4" {
		t.Fatalf("expected first XFF ip, got %q", got)
	}
}

func TestDefaultKeyFunc_IgnoresXForwardedForWhenUntrusted(t *testing.T) {
	fn := DefaultKeyFunc("", false)

	r := httptest.NewRequest(http.MethodGet, "http://example/", nil)
	r.RemoteAddr = "10.0.0.9:5555"
	r.Header.Set("X-Forwarded-For", "1.2.3.4")

	if got := fn(r); got != "10.0.0.9" {
		t.Fatalf("expected remote host, got %q", got)
	}
}

func TestDefaultKeyFunc_UnknownWhenNothingAvailable(t *testing.T) {
	fn := DefaultKeyFunc("", false)

	r := httptest.NewRequest(http.MethodGet, "http://example/", nil)
	r.RemoteAddr = ""

	if got := fn(r); got != "unknown" {
		t.Fatalf("expected unknown, got %q", got)
	}
}

func TestRetryAfterSeconds_Truncates(t *testing.T) {
	if got := RetryAfterSeconds(2500 * time.Millisecond); got != "2" {
		t.Fatalf("expected 2, got %q", got)
	}
}
