package order

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	rlapp "order-gateway/middleware/ratelimit/application"
	rlinfra "order-gateway/middleware/ratelimit/infra"
	"order-gateway/order/application"
	"order-gateway/order/domain"
	"order-gateway/order/infra"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubVerifier struct {
	verdict application.Verdict
	err     error
}

func (s stubVerifier) Verify(context.Context, string, string) (application.Verdict, error) {
	return s.verdict, s.err
}

type stubSender struct {
	mu   sync.Mutex
	fail map[string]error
	sent map[string]string
}

func newStubSender() *stubSender {
	return &stubSender{fail: map[string]error{}, sent: map[string]string{}}
}

func (s *stubSender) Send(_ context.Context, chatID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail[chatID]; err != nil {
		return err
	}
	s.sent[chatID] = text
	return nil
}

type stubMailer struct {
	mu   sync.Mutex
	err  error
	sent []application.Mail
}

func (s *stubMailer) Send(_ context.Context, m application.Mail) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, m)
	return s.err
}

type countingRecorder struct {
	counts map[domain.Outcome]int
}

func (c *countingRecorder) Order(_ string, outcome domain.Outcome) {
	if c.counts == nil {
		c.counts = map[domain.Outcome]int{}
	}
	c.counts[outcome]++
}

var passing = stubVerifier{verdict: application.Verdict{Success: true, Score: 0.9}}

func lenientOptions(mailer application.Mailer, sender application.ChatSender, chats string) Options {
	return Options{
		Pipeline: &application.Pipeline{
			Variant:    "lenient",
			Gate:       application.Gate{Verifier: passing, OnError: application.CaptchaProceed},
			Validator:  application.DefaultLenientValidator(),
			Normalizer: application.Normalizer{NewID: application.RandomID("INV", 6)},
			Chat:       application.SummaryChat,
			Fanout:     &application.Fanout{Sender: sender, Destinations: application.ParseDestinations(chats)},
			Mailer:     mailer,
			Authority:  application.ChannelMail,
			Log:        zerolog.Nop(),
		},
		AllowedOrigins: []string{"shop.example.dz", "localhost", "null"},
		CORS:           true,
		Limiter:        rlapp.WindowService{Store: rlinfra.NewWindowStore(10, time.Minute)},
		Log:            zerolog.Nop(),
	}
}

func strictOptions(sender application.ChatSender, chats string) Options {
	return Options{
		Pipeline: &application.Pipeline{
			Variant:    "strict",
			Gate:       application.Gate{Verifier: passing, TokenRequired: true, OnError: application.CaptchaReject},
			Validator:  application.StrictValidator{},
			Normalizer: application.Normalizer{
				NewID:     application.RandomID("ORD", 9),
				Defaults:  application.StrictDefaults,
				IntFields: []string{"quantity"},
			},
			Chat:      application.DetailedChat,
			Fanout:    &application.Fanout{Sender: sender, Destinations: application.ParseDestinations(chats)},
			Authority: application.ChannelChat,
			Log:       zerolog.Nop(),
		},
		AllowedOrigins: []string{"shop.example.dz"},
		RequireOrigin:  true,
		Limiter:        rlapp.WindowService{Store: rlinfra.NewWindowStore(10, time.Minute)},
		Log:            zerolog.Nop(),
	}
}

const strictJSON = `{"fullName":"Amine Benali","phone":"0551234567","wilaya":"16 - Alger","commune":"Bab Ezzouar",` +
	`"size":"XL","color":"أسود","quantity":2,"honeypot":"","recaptchaToken":"tok"}`

func post(h http.Handler, body, origin, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/submit", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	if ip != "" {
		req.Header.Set("Client-Ip", ip)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHandler_LenientAccepts(t *testing.T) {
	mailer := &stubMailer{}
	sender := newStubSender()
	stats := infra.NewMemoryStatsStore()
	rec := &countingRecorder{}
	opts := lenientOptions(mailer, sender, "1")
	opts.Stats = stats
	opts.Metrics = rec
	h := NewHandler(opts)

	resp := post(h, `{"name":"Amine","email":"amine@example.dz","honeypot":""}`, "https://shop.example.dz", "41.1.1.1")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	body := decode(t, resp)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "تم إرسال الطلب بنجاح! سنتواصل معك قريباً.", body["message"])
	assert.Regexp(t, `^INV-[A-Z0-9]{6}$`, body["orderId"])
	assert.Equal(t, "*", resp.Header().Get("Access-Control-Allow-Origin"))

	require.Len(t, mailer.sent, 1)
	assert.Contains(t, sender.sent["1"], body["orderId"])
	assert.Equal(t, int64(1), stats.ByVariant("lenient")[domain.OutcomeAccepted])
	assert.Equal(t, 1, rec.counts[domain.OutcomeAccepted])
}

func TestHandler_LenientAllowsMissingOrigin(t *testing.T) {
	h := NewHandler(lenientOptions(&stubMailer{}, newStubSender(), "1"))

	resp := post(h, `{"name":"Amine"}`, "", "41.1.1.1")
	assert.Equal(t, http.StatusOK, resp.Code)

	resp = post(h, `{"name":"Amine"}`, "null", "41.1.1.1")
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestHandler_RateLimitsEleventhRequest(t *testing.T) {
	h := NewHandler(lenientOptions(&stubMailer{}, newStubSender(), "1"))

	for i := 0; i < 10; i++ {
		resp := post(h, `{"name":"Amine"}`, "https://shop.example.dz", "41.1.1.1")
		require.Equal(t, http.StatusOK, resp.Code, "request %d", i+1)
	}

	resp := post(h, `{"name":"Amine"}`, "https://shop.example.dz", "41.1.1.1")
	require.Equal(t, http.StatusTooManyRequests, resp.Code)
	assert.Equal(t, "طلبات كثيرة جداً. يرجى المحاولة لاحقاً.", decode(t, resp)["error"])
	assert.NotEmpty(t, resp.Header().Get("Retry-After"))

	// outra identidade não é afetada
	resp = post(h, `{"name":"Amine"}`, "https://shop.example.dz", "41.2.2.2")
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestHandler_HoneypotRejected(t *testing.T) {
	mailer := &stubMailer{}
	h := NewHandler(lenientOptions(mailer, newStubSender(), "1"))

	resp := post(h, `{"name":"Amine","honeypot":"http://spam"}`, "https://shop.example.dz", "41.1.1.1")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "فشل التحقق من البيانات", decode(t, resp)["error"])
	assert.Empty(t, mailer.sent)
}

func TestHandler_OriginRejected(t *testing.T) {
	h := NewHandler(lenientOptions(&stubMailer{}, newStubSender(), "1"))
	resp := post(h, `{"name":"Amine"}`, "https://evil.example.com", "41.1.1.1")
	assert.Equal(t, http.StatusForbidden, resp.Code)

	strict := NewHandler(strictOptions(newStubSender(), "1"))
	resp = post(strict, strictJSON, "", "41.1.1.1")
	assert.Equal(t, http.StatusForbidden, resp.Code, "strict variant requires an origin")

	req := httptest.NewRequest(http.MethodPost, "/api/order", strings.NewReader(strictJSON))
	req.Header.Set("Referer", "https://shop.example.dz/product/1")
	rr := httptest.NewRecorder()
	strict.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code, "referer is accepted in place of origin")
}

func TestHandler_MethodAndPreflight(t *testing.T) {
	lenient := NewHandler(lenientOptions(&stubMailer{}, newStubSender(), "1"))
	strict := NewHandler(strictOptions(newStubSender(), "1"))

	rec := httptest.NewRecorder()
	lenient.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/submit", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "POST, OPTIONS", rec.Header().Get("Allow"))

	rec = httptest.NewRecorder()
	lenient.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/submit", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.Equal(t, "POST, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))

	rec = httptest.NewRecorder()
	strict.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/order", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestHandler_MalformedBody(t *testing.T) {
	h := NewHandler(lenientOptions(&stubMailer{}, newStubSender(), "1"))

	for _, body := range []string{`{"name":`, `[1,2]`, `"text"`, ``} {
		resp := post(h, body, "https://shop.example.dz", "41.1.1.1")
		assert.Equal(t, http.StatusBadRequest, resp.Code, body)
	}

	opts := lenientOptions(&stubMailer{}, newStubSender(), "1")
	opts.MaxBodyBytes = 16
	resp := post(NewHandler(opts), `{"name":"a very long name indeed"}`, "", "41.1.1.1")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestHandler_StrictEndToEnd(t *testing.T) {
	sender := newStubSender()
	h := NewHandler(strictOptions(sender, "1,2"))

	resp := post(h, strictJSON, "https://shop.example.dz", "41.1.1.1")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	body := decode(t, resp)
	assert.Equal(t, true, body["success"])
	assert.Regexp(t, `^ORD-[A-Z0-9]{9}$`, body["orderId"])
	assert.Len(t, sender.sent, 2)
	assert.Contains(t, sender.sent["1"], "Amine Benali")
}

func TestHandler_StrictValidationMessages(t *testing.T) {
	opts := strictOptions(newStubSender(), "1")
	opts.Messages = NewMessages("en")
	h := NewHandler(opts)

	resp := post(h, strings.Replace(strictJSON, `"wilaya":"16 - Alger"`, `"wilaya":"  "`, 1), "https://shop.example.dz", "41.1.1.1")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "Wilaya is required", decode(t, resp)["error"])

	resp = post(h, strings.Replace(strictJSON, `"size":"XL"`, `"size":"XXXXXXXXXXXL"`, 1), "https://shop.example.dz", "41.1.1.2")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "Size exceeds maximum length of 10", decode(t, resp)["error"])
}

func TestHandler_CaptchaPolicies(t *testing.T) {
	low := stubVerifier{verdict: application.Verdict{Success: true, Score: 0.2}}
	down := stubVerifier{err: errors.New("dial tcp: i/o timeout")}

	opts := strictOptions(newStubSender(), "1")
	opts.Pipeline.Gate.Verifier = low
	resp := post(NewHandler(opts), strictJSON, "https://shop.example.dz", "41.1.1.1")
	assert.Equal(t, http.StatusForbidden, resp.Code)

	opts = strictOptions(newStubSender(), "1")
	opts.Pipeline.Gate.Verifier = down
	resp = post(NewHandler(opts), strictJSON, "https://shop.example.dz", "41.1.1.1")
	assert.Equal(t, http.StatusInternalServerError, resp.Code)

	lenient := lenientOptions(&stubMailer{}, newStubSender(), "1")
	lenient.Pipeline.Gate.Verifier = down
	resp = post(NewHandler(lenient), `{"name":"Amine","recaptchaToken":"tok"}`, "", "41.1.1.1")
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestHandler_FanoutFailures(t *testing.T) {
	t.Run("strict partial failure is tolerated", func(t *testing.T) {
		sender := newStubSender()
		sender.fail["1"] = errors.New("chat not found")
		resp := post(NewHandler(strictOptions(sender, "1,2")), strictJSON, "https://shop.example.dz", "41.1.1.1")
		assert.Equal(t, http.StatusOK, resp.Code)
	})

	t.Run("strict total failure is a 500 with debug in development", func(t *testing.T) {
		sender := newStubSender()
		sender.fail["1"] = errors.New("chat not found")
		sender.fail["2"] = errors.New("bot blocked")
		opts := strictOptions(sender, "1,2")
		opts.Debug = true
		resp := post(NewHandler(opts), strictJSON, "https://shop.example.dz", "41.1.1.1")
		require.Equal(t, http.StatusInternalServerError, resp.Code)

		body := decode(t, resp)
		assert.Equal(t, "حدث خطأ في معالجة الطلب. يرجى المحاولة لاحقاً.", body["error"])
		assert.Contains(t, body["debug"], "chat dispatch failed")
	})

	t.Run("lenient total chat failure is tolerated", func(t *testing.T) {
		sender := newStubSender()
		sender.fail["1"] = errors.New("chat not found")
		resp := post(NewHandler(lenientOptions(&stubMailer{}, sender, "1")), `{"name":"Amine"}`, "", "41.1.1.1")
		assert.Equal(t, http.StatusOK, resp.Code)
	})

	t.Run("lenient mail failure is a 500 without debug", func(t *testing.T) {
		opts := lenientOptions(&stubMailer{err: errors.New("535 auth")}, newStubSender(), "1")
		resp := post(NewHandler(opts), `{"name":"Amine"}`, "", "41.1.1.1")
		require.Equal(t, http.StatusInternalServerError, resp.Code)
		_, hasDebug := decode(t, resp)["debug"]
		assert.False(t, hasDebug)
	})
}

func TestMessages_Locales(t *testing.T) {
	assert.Equal(t, "Invalid JSON", NewMessages("en-US").Text(msgInvalidJSON))
	assert.Equal(t, "Invalid JSON", NewMessages("fr").Text(msgInvalidJSON))
	assert.Equal(t, "بيانات JSON غير صالحة", NewMessages("ar-DZ").Text(msgInvalidJSON))
	assert.Equal(t, "بيانات JSON غير صالحة", NewMessages("").Text(msgInvalidJSON))
	assert.Equal(t, "Size يتجاوز الحد الأقصى للطول وهو 10", NewMessages("ar").Text("%s exceeds maximum length of %d", "Size", 10))
	assert.Equal(t, "unknown key", NewMessages("ar").Text("unknown key"))
}
