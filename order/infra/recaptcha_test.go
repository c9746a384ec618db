package infra

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecaptchaVerifier_PostsFormAndDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		assert.Equal(t, "s3cret", r.PostForm.Get("secret"))
		assert.Equal(t, "tok&en=1", r.PostForm.Get("response"))
		assert.Equal(t, "41.1.1.1", r.PostForm.Get("remoteip"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"score":0.7,"action":"submit","hostname":"formdz.netlify.app","error-codes":[]}`))
	}))
	defer srv.Close()

	v := NewRecaptchaVerifier("s3cret", WithRecaptchaEndpoint(srv.URL))
	verdict, err := v.Verify(context.Background(), "tok&en=1", "41.1.1.1")
	require.NoError(t, err)
	assert.True(t, verdict.Success)
	assert.Equal(t, 0.7, verdict.Score)
	assert.Equal(t, "submit", verdict.Action)
	assert.Equal(t, "formdz.netlify.app", verdict.Hostname)
}

func TestRecaptchaVerifier_Failure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"error-codes":["timeout-or-duplicate"]}`))
	}))
	defer srv.Close()

	verdict, err := NewRecaptchaVerifier("s", WithRecaptchaEndpoint(srv.URL)).Verify(context.Background(), "t", "unknown")
	require.NoError(t, err)
	assert.False(t, verdict.Success)
	assert.Equal(t, []string{"timeout-or-duplicate"}, verdict.ErrorCodes)
}

func TestRecaptchaVerifier_TransportErrors(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer bad.Close()

	_, err := NewRecaptchaVerifier("s", WithRecaptchaEndpoint(bad.URL)).Verify(context.Background(), "t", "")
	assert.Error(t, err)

	garbage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	}))
	defer garbage.Close()

	_, err = NewRecaptchaVerifier("s", WithRecaptchaEndpoint(garbage.URL)).Verify(context.Background(), "t", "")
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewRecaptchaVerifier("s", WithRecaptchaEndpoint(garbage.URL)).Verify(ctx, "t", "")
	assert.Error(t, err)
}
