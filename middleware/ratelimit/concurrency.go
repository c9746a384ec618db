package ratelimit

import (
	"net/http"
	"time"

	"order-gateway/middleware/ratelimit/application"
	"order-gateway/middleware/ratelimit/domain"
	"order-gateway/middleware/ratelimit/infra"
)

// ConcurrencyOptions limita requisições simultâneas no servidor inteiro.
type ConcurrencyOptions struct {
	Max            int
	RejectStatus   int
	AcquireTimeout time.Duration // 0 = espera até o cliente desistir
	// Pool compartilhado (ex: para expor a ocupação em métricas).
	// Se nil, é criado um ChanPool de capacidade Max.
	Pool     domain.SlotPool
	OnReject http.HandlerFunc
}

// ConcurrencyMiddleware devolve next sem alteração quando Max <= 0 e não há Pool.
func ConcurrencyMiddleware(opts ConcurrencyOptions) func(next http.Handler) http.Handler {
	if opts.Pool == nil {
		if opts.Max <= 0 {
			return func(next http.Handler) http.Handler { return next }
		}
		opts.Pool = infra.NewChanPool(opts.Max)
	}
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusServiceUnavailable
	}
	reject := opts.OnReject
	if reject == nil {
		status := opts.RejectStatus
		reject = func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Retry-After", "1")
			http.Error(w, http.StatusText(status), status)
		}
	}

	svc := application.ConcurrencyService{Pool: opts.Pool, AcquireTimeout: opts.AcquireTimeout}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			release, ok := svc.Acquire(r.Context())
			defer release()
			if !ok {
				reject(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
