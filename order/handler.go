package order

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"order-gateway/middleware/ratelimit"
	rlapp "order-gateway/middleware/ratelimit/application"
	rldomain "order-gateway/middleware/ratelimit/domain"
	"order-gateway/order/application"
	"order-gateway/order/domain"

	"github.com/rs/zerolog"
)

const defaultMaxBodyBytes = 64 << 10

// OutcomeRecorder conta desfechos por variante (métricas).
type OutcomeRecorder interface {
	Order(variant string, outcome domain.Outcome)
}

// Options configura o endpoint de uma variante.
type Options struct {
	Pipeline *application.Pipeline

	// AllowedOrigins são comparados por substring com Origin (ou Referer).
	AllowedOrigins []string
	// RequireOrigin rejeita requisições sem Origin nem Referer.
	RequireOrigin bool
	// CORS responde OPTIONS e adiciona os headers Access-Control-*.
	CORS bool

	Limiter      rlapp.WindowService
	KeyFn        ratelimit.KeyFunc
	MaxBodyBytes int64

	Messages *Messages
	Stats    domain.StatsStore
	Metrics  OutcomeRecorder

	// Debug inclui a causa das falhas 500 na resposta (só em desenvolvimento).
	Debug bool
	Log   zerolog.Logger
}

type Handler struct {
	opts Options
}

func NewHandler(opts Options) *Handler {
	if opts.KeyFn == nil {
		opts.KeyFn = ratelimit.DefaultKeyFunc("Client-Ip", true)
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}
	if opts.Messages == nil {
		opts.Messages = NewMessages("ar")
	}
	return &Handler{opts: opts}
}

type successResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	OrderID string `json:"orderId"`
}

type errorResponse struct {
	Error string `json:"error"`
	Debug string `json:"debug,omitempty"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.opts.CORS {
		setCORSHeaders(w.Header())
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
	}

	clientIP := h.opts.KeyFn(r)
	log := h.logger(r).With().Str("variant", h.variant()).Str("client_ip", clientIP).Logger()

	order, err := h.handle(w, r, clientIP, log)
	h.record(r.Context(), clientIP, err, log)

	if err != nil {
		h.writeError(w, err, log)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{
		Success: true,
		Message: h.opts.Messages.Text(msgSuccess),
		OrderID: order.OrderID,
	})
}

func (h *Handler) handle(w http.ResponseWriter, r *http.Request, clientIP string, log zerolog.Logger) (domain.SanitizedOrder, error) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", allowedMethods(h.opts.CORS))
		return domain.SanitizedOrder{}, domain.NewError(domain.MethodNotAllowed, msgMethod)
	}

	if !h.originAllowed(r) {
		log.Warn().Str("origin", requestOrigin(r)).Msg("rejected request from invalid origin")
		return domain.SanitizedOrder{}, domain.NewError(domain.OriginRejected, msgOrigin)
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.opts.MaxBodyBytes))
	if err != nil {
		return domain.SanitizedOrder{}, domain.Wrap(domain.MalformedBody, msgInvalidJSON, err)
	}
	payload, err := domain.ParseObject(body)
	if err != nil {
		return domain.SanitizedOrder{}, domain.Wrap(domain.MalformedBody, msgInvalidJSON, err)
	}

	dec, err := h.opts.Limiter.Decide(r.Context(), rldomain.Key(clientIP))
	if err != nil {
		log.Warn().Err(err).Msg("rate limiter unavailable, allowing request")
	}
	if !dec.Allowed {
		log.Warn().Msg("rate limit exceeded")
		w.Header().Set("Retry-After", ratelimit.RetryAfterSeconds(dec.RetryAfter))
		return domain.SanitizedOrder{}, domain.NewError(domain.RateLimited, msgTooManyRequests)
	}

	return h.opts.Pipeline.Process(r.Context(), payload, clientIP)
}

func (h *Handler) writeError(w http.ResponseWriter, err error, log zerolog.Logger) {
	var de *domain.Error
	if !errors.As(err, &de) {
		de = domain.Wrap(domain.UnexpectedFailure, msgGeneric, err)
	}

	status := de.Kind.Status()
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("kind", de.Kind.String()).Msg("order processing error")
		resp := errorResponse{Error: h.opts.Messages.Text(msgGeneric)}
		if h.opts.Debug {
			resp.Debug = err.Error()
		}
		writeJSON(w, status, resp)
		return
	}

	if de.Kind == domain.ValidationFailed || de.Kind == domain.FieldTooLong {
		log.Info().Str("field", de.Field).Str("kind", de.Kind.String()).Msg("order rejected")
	}
	writeJSON(w, status, errorResponse{Error: h.opts.Messages.Text(de.Message, de.Args...)})
}

// record grava o desfecho sem atrasar a resposta além de um timeout curto.
func (h *Handler) record(ctx context.Context, clientIP string, err error, log zerolog.Logger) {
	outcome := domain.OutcomeOf(err)
	if h.opts.Metrics != nil {
		h.opts.Metrics.Order(h.variant(), outcome)
	}
	if h.opts.Stats == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	ev := domain.StatsEvent{Variant: h.variant(), Outcome: outcome, ClientIP: clientIP, At: time.Now()}
	if err := h.opts.Stats.Record(ctx, ev); err != nil {
		log.Warn().Err(err).Msg("stats record failed")
	}
}

func (h *Handler) originAllowed(r *http.Request) bool {
	origin := requestOrigin(r)
	if origin == "" {
		return !h.opts.RequireOrigin
	}
	for _, allowed := range h.opts.AllowedOrigins {
		if allowed != "" && strings.Contains(origin, allowed) {
			return true
		}
	}
	return false
}

func (h *Handler) variant() string {
	if h.opts.Pipeline == nil {
		return ""
	}
	return h.opts.Pipeline.Variant
}

// logger prefere o logger da requisição (com request_id) quando existe.
func (h *Handler) logger(r *http.Request) zerolog.Logger {
	if l := zerolog.Ctx(r.Context()); l.GetLevel() != zerolog.Disabled {
		return *l
	}
	return h.opts.Log
}

func requestOrigin(r *http.Request) string {
	if o := r.Header.Get("Origin"); o != "" {
		return o
	}
	return r.Header.Get("Referer")
}

func allowedMethods(cors bool) string {
	if cors {
		return "POST, OPTIONS"
	}
	return http.MethodPost
}

func setCORSHeaders(h http.Header) {
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Headers", "Content-Type")
	h.Set("Access-Control-Allow-Methods", "POST, OPTIONS")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	b, err := domain.MarshalIndent(v, "")
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(b)
}
